package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sakif/threadlines/internal/apperror"
	"github.com/sakif/threadlines/internal/live"
	"github.com/sakif/threadlines/internal/model"
)

type mockFolderRepo struct {
	folders map[string]*model.Folder
	nextID  int

	// cascades records DeleteFolderCascade calls as "folderID/ownerID".
	cascades []string
}

func newMockFolderRepo() *mockFolderRepo {
	return &mockFolderRepo{folders: make(map[string]*model.Folder)}
}

func (m *mockFolderRepo) CreateFolder(_ context.Context, folder *model.Folder) error {
	m.nextID++
	folder.ID = fmt.Sprintf("folder-%d", m.nextID)
	folder.CreatedAt = time.Now().UnixMilli()
	stored := *folder
	m.folders[folder.ID] = &stored
	return nil
}

func (m *mockFolderRepo) GetFolderByID(_ context.Context, id string) (*model.Folder, error) {
	folder, ok := m.folders[id]
	if !ok {
		return nil, apperror.NotFound("folder", id)
	}
	result := *folder
	return &result, nil
}

func (m *mockFolderRepo) ListFoldersByOwner(_ context.Context, ownerID string) ([]model.Folder, error) {
	result := []model.Folder{}
	for _, f := range m.folders {
		if f.UserID == ownerID {
			result = append(result, *f)
		}
	}
	return result, nil
}

func (m *mockFolderRepo) RenameFolder(_ context.Context, id, name string) error {
	folder, ok := m.folders[id]
	if !ok {
		return apperror.NotFound("folder", id)
	}
	folder.Name = name
	return nil
}

func (m *mockFolderRepo) DeleteFolderCascade(_ context.Context, id, ownerID string) error {
	folder, ok := m.folders[id]
	if !ok || folder.UserID != ownerID {
		return apperror.NotFound("folder", id)
	}
	delete(m.folders, id)
	m.cascades = append(m.cascades, id+"/"+ownerID)
	return nil
}

func newTestFolderService(t *testing.T) (*FolderService, *mockFolderRepo, *live.Hub) {
	t.Helper()
	repo := newMockFolderRepo()
	hub := live.NewHub(testLogger())
	svc := NewFolderService(repo, hub, testLogger())
	return svc, repo, hub
}

func TestFolderCreate_RequiresIdentity(t *testing.T) {
	svc, _, _ := newTestFolderService(t)

	_, err := svc.Create(context.Background(), "", "Work", "")
	if !errors.Is(err, apperror.ErrAuthRequired) {
		t.Errorf("Create() error = %v, want ErrAuthRequired", err)
	}
}

func TestFolderCreate_NameValidation(t *testing.T) {
	svc, _, _ := newTestFolderService(t)
	ctx := context.Background()

	// Whitespace-only is not a name. The rule holds at the service
	// boundary, not only in some client form.
	for _, name := range []string{"", "   ", "\t"} {
		if _, err := svc.Create(ctx, "user-1", name, ""); !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Create(%q) error = %v, want ErrValidation", name, err)
		}
	}

	long := strings.Repeat("n", MaxFolderNameLength+1)
	if _, err := svc.Create(ctx, "user-1", long, ""); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Create(long name) error = %v, want ErrValidation", err)
	}
}

func TestFolderCreate_TrimsName(t *testing.T) {
	svc, _, _ := newTestFolderService(t)

	folder, err := svc.Create(context.Background(), "user-1", "  Ideas  ", "bg-amber-50")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if folder.Name != "Ideas" {
		t.Errorf("Name = %q, want trimmed %q", folder.Name, "Ideas")
	}
	if folder.Color != "bg-amber-50" {
		t.Errorf("Color = %q, want bg-amber-50", folder.Color)
	}
}

func TestFolderRename(t *testing.T) {
	svc, _, _ := newTestFolderService(t)
	ctx := context.Background()

	folder, err := svc.Create(ctx, "user-1", "Old", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	renamed, err := svc.Rename(ctx, "user-1", folder.ID, "New")
	if err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if renamed.Name != "New" {
		t.Errorf("Name = %q, want New", renamed.Name)
	}

	// Empty replacement name is rejected, original survives.
	if _, err := svc.Rename(ctx, "user-1", folder.ID, "  "); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Rename(blank) error = %v, want ErrValidation", err)
	}
}

func TestFolderRename_ForeignOwnerForbidden(t *testing.T) {
	svc, _, _ := newTestFolderService(t)
	ctx := context.Background()

	folder, err := svc.Create(ctx, "alice", "Alice's", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = svc.Rename(ctx, "bob", folder.ID, "Bob's now")
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Rename() error = %v, want ErrForbidden", err)
	}
}

func TestFolderDelete_RunsCascade(t *testing.T) {
	svc, repo, _ := newTestFolderService(t)
	ctx := context.Background()

	folder, err := svc.Create(ctx, "user-1", "Doomed", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Delete(ctx, "user-1", folder.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if len(repo.cascades) != 1 || repo.cascades[0] != folder.ID+"/user-1" {
		t.Errorf("cascades = %v, want one call scoped to the owner", repo.cascades)
	}
}

func TestFolderDelete_PublishesBothCollections(t *testing.T) {
	svc, _, hub := newTestFolderService(t)
	ctx := context.Background()

	folder, err := svc.Create(ctx, "user-1", "Doomed", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sub := hub.Subscribe("user-1")
	defer sub.Close()

	if err := svc.Delete(ctx, "user-1", folder.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	// The cascade touches snippets (re-filed) and folders (deleted), so
	// both collections get a change event.
	got := map[live.Collection]bool{}
	for i := 0; i < 2; i++ {
		select {
		case change := <-sub.C:
			got[change.Collection] = true
		default:
			t.Fatalf("only %d change events after cascade, want 2", i)
		}
	}
	if !got[live.CollectionSnippets] || !got[live.CollectionFolders] {
		t.Errorf("collections notified = %v, want both", got)
	}
}

func TestFolderDelete_ForeignOwnerForbidden(t *testing.T) {
	svc, repo, _ := newTestFolderService(t)
	ctx := context.Background()

	folder, err := svc.Create(ctx, "alice", "Alice's", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	err = svc.Delete(ctx, "bob", folder.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Delete() error = %v, want ErrForbidden", err)
	}
	if len(repo.cascades) != 0 {
		t.Error("cascade ran despite the ownership failure")
	}
}

func TestFolderList_ScopedToOwner(t *testing.T) {
	svc, _, _ := newTestFolderService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "alice", "Hers", ""); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Create(ctx, "bob", "His", ""); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	folders, err := svc.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(folders) != 1 || folders[0].Name != "Hers" {
		t.Errorf("List() = %v, want only alice's folder", folders)
	}
}
