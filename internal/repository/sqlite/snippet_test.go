package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/threadlines/internal/apperror"
	"github.com/sakif/threadlines/internal/model"
)

// newTestDB opens a fresh in-memory database that lives only for this
// test. t.Helper makes failures report at the caller's line.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedUser creates an account row and returns its ID. Snippets and folders
// carry a foreign key to users, so every owner in these tests must exist.
func seedUser(t *testing.T, db *DB, email string) string {
	t.Helper()
	user := &model.User{Email: email, DisplayName: email, PasswordHash: "x"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user %s: %v", email, err)
	}
	return user.ID
}

func createTestSnippet(t *testing.T, db *DB, ownerID, title string) *model.Snippet {
	t.Helper()
	snippet := &model.Snippet{
		UserID:   ownerID,
		Title:    title,
		Content:  "some content",
		Category: model.DefaultCategory,
		Tags:     []string{},
	}
	if err := db.Create(context.Background(), snippet); err != nil {
		t.Fatalf("failed to create test snippet: %v", err)
	}
	return snippet
}

func TestCreate(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com")

	snippet := &model.Snippet{
		UserID:   owner,
		Title:    "Hello World",
		Content:  "first note",
		Category: "Ideas",
		Tags:     []string{"go", "notes"},
	}

	if err := db.Create(context.Background(), snippet); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if snippet.ID == "" {
		t.Error("Create() did not set snippet.ID")
	}
	if snippet.CreatedAt == 0 {
		t.Error("Create() did not set snippet.CreatedAt")
	}
	if snippet.UpdatedAt != snippet.CreatedAt {
		t.Errorf("UpdatedAt = %d, want equal to CreatedAt %d on a fresh row",
			snippet.UpdatedAt, snippet.CreatedAt)
	}
}

func TestCreate_VerifyPersistence(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com")

	folderID := "some-folder"
	original := &model.Snippet{
		UserID:   owner,
		Title:    "persisted",
		Content:  "content here",
		Category: "Code",
		Tags:     []string{"a", "b"},
		Color:    "bg-emerald-50",
		FolderID: &folderID,
		Pinned:   true,
		Favorite: true,
	}
	if err := db.Create(context.Background(), original); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	found, err := db.GetByID(context.Background(), original.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if found.Title != original.Title {
		t.Errorf("Title = %q, want %q", found.Title, original.Title)
	}
	if found.Category != original.Category {
		t.Errorf("Category = %q, want %q", found.Category, original.Category)
	}
	if len(found.Tags) != 2 || found.Tags[0] != "a" || found.Tags[1] != "b" {
		t.Errorf("Tags = %v, want [a b]", found.Tags)
	}
	if found.FolderID == nil || *found.FolderID != folderID {
		t.Errorf("FolderID = %v, want %q", found.FolderID, folderID)
	}
	if !found.Pinned || !found.Favorite {
		t.Errorf("Pinned/Favorite = %v/%v, want true/true", found.Pinned, found.Favorite)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "nonexistent-id")
	if err == nil {
		t.Fatal("GetByID() should have returned an error for nonexistent ID")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestGetByID_NilFolderAndEmptyTags(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com")
	created := createTestSnippet(t, db, owner, "loose snippet")

	found, err := db.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if found.FolderID != nil {
		t.Errorf("FolderID = %v, want nil", found.FolderID)
	}
	// Tags must come back as an empty set, never nil, so the JSON encoding
	// is [] rather than null.
	if found.Tags == nil {
		t.Error("Tags = nil, want empty slice")
	}
}

func TestListByOwner_ScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice@example.com")
	bob := seedUser(t, db, "bob@example.com")

	createTestSnippet(t, db, alice, "alice 1")
	createTestSnippet(t, db, alice, "alice 2")
	createTestSnippet(t, db, bob, "bob 1")

	snippets, err := db.ListByOwner(context.Background(), alice)
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}

	if len(snippets) != 2 {
		t.Fatalf("ListByOwner() returned %d snippets, want 2", len(snippets))
	}
	for _, s := range snippets {
		if s.UserID != alice {
			t.Errorf("got snippet owned by %q, want only alice's", s.UserID)
		}
	}
}

func TestListByOwner_Empty(t *testing.T) {
	db := newTestDB(t)

	snippets, err := db.ListByOwner(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(snippets) != 0 {
		t.Errorf("ListByOwner() returned %d snippets, want 0", len(snippets))
	}
}

func TestUpdate(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com")
	original := createTestSnippet(t, db, owner, "original title")

	original.Title = "updated title"
	original.Pinned = true
	original.Tags = []string{"updated"}

	if err := db.Update(context.Background(), original); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, err := db.GetByID(context.Background(), original.ID)
	if err != nil {
		t.Fatalf("GetByID() after update error = %v", err)
	}

	if found.Title != "updated title" {
		t.Errorf("Title after update = %q, want %q", found.Title, "updated title")
	}
	if !found.Pinned {
		t.Error("Pinned after update = false, want true")
	}
	if found.UpdatedAt < found.CreatedAt {
		t.Errorf("UpdatedAt %d < CreatedAt %d after update", found.UpdatedAt, found.CreatedAt)
	}
}

func TestUpdate_ClearsFolderRef(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com")

	folderID := "f1"
	snippet := &model.Snippet{UserID: owner, Title: "filed", FolderID: &folderID}
	if err := db.Create(context.Background(), snippet); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	snippet.FolderID = nil
	if err := db.Update(context.Background(), snippet); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, err := db.GetByID(context.Background(), snippet.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.FolderID != nil {
		t.Errorf("FolderID = %v, want nil after clearing", found.FolderID)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	snippet := &model.Snippet{ID: "nonexistent", Title: "test"}
	err := db.Update(context.Background(), snippet)

	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com")
	snippet := createTestSnippet(t, db, owner, "to delete")

	if err := db.Delete(context.Background(), snippet.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := db.GetByID(context.Background(), snippet.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete: error = %v, want ErrNotFound", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Delete(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}
