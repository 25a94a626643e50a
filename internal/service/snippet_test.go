package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sakif/threadlines/internal/apperror"
	"github.com/sakif/threadlines/internal/live"
	"github.com/sakif/threadlines/internal/model"
	"github.com/sakif/threadlines/internal/view"
)

// mockSnippetRepo is an in-memory stand-in for the SQLite repository. It
// mirrors the real repository's contract: Create assigns ID and both
// timestamps, Update bumps UpdatedAt, missing rows map to ErrNotFound.
type mockSnippetRepo struct {
	snippets map[string]*model.Snippet
	nextID   int
}

func newMockSnippetRepo() *mockSnippetRepo {
	return &mockSnippetRepo{snippets: make(map[string]*model.Snippet)}
}

func (m *mockSnippetRepo) Create(_ context.Context, snippet *model.Snippet) error {
	m.nextID++
	snippet.ID = fmt.Sprintf("mock-%d", m.nextID)
	now := time.Now().UnixMilli()
	snippet.CreatedAt = now
	snippet.UpdatedAt = now
	stored := *snippet
	m.snippets[snippet.ID] = &stored
	return nil
}

func (m *mockSnippetRepo) GetByID(_ context.Context, id string) (*model.Snippet, error) {
	snippet, ok := m.snippets[id]
	if !ok {
		return nil, apperror.NotFound("snippet", id)
	}
	result := *snippet
	return &result, nil
}

func (m *mockSnippetRepo) ListByOwner(_ context.Context, ownerID string) ([]model.Snippet, error) {
	result := []model.Snippet{}
	for _, s := range m.snippets {
		if s.UserID == ownerID {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockSnippetRepo) Update(_ context.Context, snippet *model.Snippet) error {
	if _, ok := m.snippets[snippet.ID]; !ok {
		return apperror.NotFound("snippet", snippet.ID)
	}
	snippet.UpdatedAt = time.Now().UnixMilli()
	stored := *snippet
	m.snippets[snippet.ID] = &stored
	return nil
}

func (m *mockSnippetRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.snippets[id]; !ok {
		return apperror.NotFound("snippet", id)
	}
	delete(m.snippets, id)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestSnippetService(t *testing.T) (*SnippetService, *mockSnippetRepo, *live.Hub) {
	t.Helper()
	repo := newMockSnippetRepo()
	hub := live.NewHub(testLogger())
	svc := NewSnippetService(repo, hub, testLogger())
	return svc, repo, hub
}

func TestSnippetCreate_RequiresIdentity(t *testing.T) {
	svc, _, _ := newTestSnippetService(t)

	_, err := svc.Create(context.Background(), "", CreateSnippetInput{Title: "x"})
	if !errors.Is(err, apperror.ErrAuthRequired) {
		t.Errorf("Create() with empty owner: error = %v, want ErrAuthRequired", err)
	}
}

func TestSnippetCreate_Defaults(t *testing.T) {
	svc, _, _ := newTestSnippetService(t)

	snippet, err := svc.Create(context.Background(), "user-1", CreateSnippetInput{
		Title:   "  padded title  ",
		Content: "body",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if snippet.Title != "padded title" {
		t.Errorf("Title = %q, want trimmed", snippet.Title)
	}
	if snippet.Category != model.DefaultCategory {
		t.Errorf("Category = %q, want %q", snippet.Category, model.DefaultCategory)
	}
	if snippet.Tags == nil || len(snippet.Tags) != 0 {
		t.Errorf("Tags = %v, want empty set", snippet.Tags)
	}
	if snippet.FolderID != nil {
		t.Errorf("FolderID = %v, want nil", snippet.FolderID)
	}
	if snippet.Pinned || snippet.Favorite {
		t.Error("new snippet should be unpinned and not favorite by default")
	}
	if snippet.UpdatedAt != snippet.CreatedAt {
		t.Errorf("UpdatedAt = %d, want CreatedAt %d", snippet.UpdatedAt, snippet.CreatedAt)
	}
}

func TestSnippetCreate_Validation(t *testing.T) {
	svc, _, _ := newTestSnippetService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateSnippetInput
	}{
		{"unknown category", CreateSnippetInput{Category: "Nonsense"}},
		{"unknown color", CreateSnippetInput{Color: "mauve-ish"}},
		{"title too long", CreateSnippetInput{Title: strings.Repeat("a", MaxTitleLength+1)}},
		{"content too long", CreateSnippetInput{Content: strings.Repeat("a", MaxContentLength+1)}},
		{"tag too long", CreateSnippetInput{Tags: []string{strings.Repeat("t", MaxTagLength+1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "user-1", tt.input)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Create() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestSnippetCreate_NormalizesTags(t *testing.T) {
	svc, _, _ := newTestSnippetService(t)

	snippet, err := svc.Create(context.Background(), "user-1", CreateSnippetInput{
		Title: "tagged",
		Tags:  []string{" go ", "go", "", "sql"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	want := []string{"go", "sql"}
	if len(snippet.Tags) != len(want) || snippet.Tags[0] != "go" || snippet.Tags[1] != "sql" {
		t.Errorf("Tags = %v, want %v", snippet.Tags, want)
	}
}

func TestSnippetCreate_PublishesChange(t *testing.T) {
	svc, _, hub := newTestSnippetService(t)

	sub := hub.Subscribe("user-1")
	defer sub.Close()

	if _, err := svc.Create(context.Background(), "user-1", CreateSnippetInput{Title: "x"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	select {
	case change := <-sub.C:
		if change.Collection != live.CollectionSnippets {
			t.Errorf("change.Collection = %q, want snippets", change.Collection)
		}
	default:
		t.Error("no change event published after Create")
	}
}

func TestSnippetGet_OwnershipEnforced(t *testing.T) {
	svc, _, _ := newTestSnippetService(t)
	ctx := context.Background()

	snippet, err := svc.Create(ctx, "alice", CreateSnippetInput{Title: "alice's"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// The owner reads it fine.
	if _, err := svc.Get(ctx, "alice", snippet.ID); err != nil {
		t.Errorf("owner Get() error = %v", err)
	}

	// Anyone else is rejected even though the ID is valid.
	_, err = svc.Get(ctx, "bob", snippet.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("foreign Get() error = %v, want ErrForbidden", err)
	}
}

func TestSnippetUpdate_PartialMerge(t *testing.T) {
	svc, _, _ := newTestSnippetService(t)
	ctx := context.Background()

	folderID := "f1"
	created, err := svc.Create(ctx, "user-1", CreateSnippetInput{
		Title:    "original",
		Content:  "original content",
		Category: "Code",
		Tags:     []string{"keep"},
		FolderID: &folderID,
		Pinned:   true,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Change only the title; everything else must survive untouched.
	newTitle := "renamed"
	updated, err := svc.Update(ctx, "user-1", created.ID, UpdateSnippetInput{Title: &newTitle})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Title != "renamed" {
		t.Errorf("Title = %q, want renamed", updated.Title)
	}
	if updated.Content != "original content" {
		t.Errorf("Content changed: %q", updated.Content)
	}
	if updated.Category != "Code" {
		t.Errorf("Category changed: %q", updated.Category)
	}
	if len(updated.Tags) != 1 || updated.Tags[0] != "keep" {
		t.Errorf("Tags changed: %v", updated.Tags)
	}
	if updated.FolderID == nil || *updated.FolderID != folderID {
		t.Errorf("FolderID changed: %v", updated.FolderID)
	}
	if !updated.Pinned {
		t.Error("Pinned changed")
	}
	if updated.UpdatedAt < updated.CreatedAt {
		t.Errorf("UpdatedAt %d < CreatedAt %d", updated.UpdatedAt, updated.CreatedAt)
	}
}

func TestSnippetUpdate_FolderThreeStates(t *testing.T) {
	svc, _, _ := newTestSnippetService(t)
	ctx := context.Background()

	folderID := "f1"
	created, err := svc.Create(ctx, "user-1", CreateSnippetInput{Title: "filed", FolderID: &folderID})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Folder not set in the input: unchanged.
	got, err := svc.Update(ctx, "user-1", created.ID, UpdateSnippetInput{})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.FolderID == nil || *got.FolderID != folderID {
		t.Errorf("unset folder ref changed: %v", got.FolderID)
	}

	// Explicit nil: cleared.
	got, err = svc.Update(ctx, "user-1", created.ID, UpdateSnippetInput{Folder: FolderRef{Set: true}})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.FolderID != nil {
		t.Errorf("FolderID = %v, want nil after explicit clear", got.FolderID)
	}

	// Explicit value: set.
	other := "f2"
	got, err = svc.Update(ctx, "user-1", created.ID, UpdateSnippetInput{Folder: FolderRef{Set: true, ID: &other}})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.FolderID == nil || *got.FolderID != "f2" {
		t.Errorf("FolderID = %v, want f2", got.FolderID)
	}
}

func TestSnippetUpdate_TagsNilVsEmpty(t *testing.T) {
	svc, _, _ := newTestSnippetService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "user-1", CreateSnippetInput{Title: "tagged", Tags: []string{"a"}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// nil slice: unchanged.
	got, err := svc.Update(ctx, "user-1", created.ID, UpdateSnippetInput{Tags: nil})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(got.Tags) != 1 {
		t.Errorf("nil Tags cleared the set: %v", got.Tags)
	}

	// Empty non-nil slice: clears.
	got, err = svc.Update(ctx, "user-1", created.ID, UpdateSnippetInput{Tags: []string{}})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(got.Tags) != 0 {
		t.Errorf("empty Tags did not clear the set: %v", got.Tags)
	}
}

func TestSnippetUpdate_ForeignOwnerForbidden(t *testing.T) {
	svc, _, _ := newTestSnippetService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "alice", CreateSnippetInput{Title: "alice's"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	title := "stolen"
	_, err = svc.Update(ctx, "bob", created.ID, UpdateSnippetInput{Title: &title})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Update() error = %v, want ErrForbidden", err)
	}
}

func TestSnippetDelete(t *testing.T) {
	svc, repo, _ := newTestSnippetService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "user-1", CreateSnippetInput{Title: "doomed"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Delete(ctx, "user-1", created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := repo.snippets[created.ID]; ok {
		t.Error("snippet still in repo after Delete")
	}

	// Deleting again reports not found, not forbidden.
	err = svc.Delete(ctx, "user-1", created.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestSnippetDelete_ForeignOwnerForbidden(t *testing.T) {
	svc, repo, _ := newTestSnippetService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "alice", CreateSnippetInput{Title: "alice's"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	err = svc.Delete(ctx, "bob", created.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Delete() error = %v, want ErrForbidden", err)
	}
	if _, ok := repo.snippets[created.ID]; !ok {
		t.Error("snippet was deleted despite the ownership failure")
	}
}

func TestSnippetListView(t *testing.T) {
	svc, _, _ := newTestSnippetService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "user-1", CreateSnippetInput{
		Title: "pinned one", Pinned: true, Tags: []string{"go"},
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Create(ctx, "user-1", CreateSnippetInput{
		Title: "plain one", Tags: []string{"sql"},
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Create(ctx, "intruder", CreateSnippetInput{Title: "not yours"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	lv, err := svc.ListView(ctx, "user-1", view.Filter{})
	if err != nil {
		t.Fatalf("ListView() error = %v", err)
	}

	if len(lv.Pinned) != 1 || lv.Pinned[0].Title != "pinned one" {
		t.Errorf("Pinned = %v, want the pinned snippet", lv.Pinned)
	}
	if len(lv.Others) != 1 || lv.Others[0].Title != "plain one" {
		t.Errorf("Others = %v, want the plain snippet", lv.Others)
	}
	if len(lv.Tags) != 2 {
		t.Errorf("Tags = %v, want both tags", lv.Tags)
	}
}

func TestSnippetListView_TagVocabularyIgnoresFilter(t *testing.T) {
	svc, _, _ := newTestSnippetService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "user-1", CreateSnippetInput{
		Title: "go note", Tags: []string{"go"}, Category: "Code",
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Create(ctx, "user-1", CreateSnippetInput{
		Title: "recipe", Tags: []string{"baking"}, Category: "Recipes",
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Filter down to Code only; the tag chips still offer every tag.
	lv, err := svc.ListView(ctx, "user-1", view.Filter{Category: "Code"})
	if err != nil {
		t.Fatalf("ListView() error = %v", err)
	}

	if len(lv.Pinned)+len(lv.Others) != 1 {
		t.Errorf("filtered result has %d snippets, want 1", len(lv.Pinned)+len(lv.Others))
	}
	if len(lv.Tags) != 2 {
		t.Errorf("Tags = %v, want the full vocabulary", lv.Tags)
	}
}
