// Package repository declares the storage interfaces the service layer
// programs against. The sqlite subpackage provides the one real
// implementation; tests substitute in-memory fakes.
//
// The interfaces mirror a document store with two collections (snippets,
// folders) plus the account records: per-collection CRUD, equality queries
// scoped by owner, and two multi-row batch operations that must commit
// atomically (DeleteFolderCascade, WipeOwnerData).
package repository

import (
	"context"

	"github.com/sakif/threadlines/internal/model"
)

type SnippetRepository interface {
	Create(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, id string) (*model.Snippet, error)
	// ListByOwner returns every snippet owned by ownerID, most recently
	// updated first. Live snapshot deliveries are built from this query.
	ListByOwner(ctx context.Context, ownerID string) ([]model.Snippet, error)
	Update(ctx context.Context, snippet *model.Snippet) error
	Delete(ctx context.Context, id string) error
}

type FolderRepository interface {
	CreateFolder(ctx context.Context, folder *model.Folder) error
	GetFolderByID(ctx context.Context, id string) (*model.Folder, error)
	// ListFoldersByOwner returns every folder owned by ownerID, newest first.
	ListFoldersByOwner(ctx context.Context, ownerID string) ([]model.Folder, error)
	RenameFolder(ctx context.Context, id, name string) error

	// DeleteFolderCascade clears FolderID on every snippet that references
	// the folder AND is owned by ownerID, then deletes the folder row.
	// Both steps commit atomically: a failure of either leaves the
	// pre-operation state intact. The owner filter on the snippet query is
	// part of the contract — only the caller's rows may be touched.
	DeleteFolderCascade(ctx context.Context, id, ownerID string) error
}

// AccountRepository covers the operations that span collections or touch
// the users table.
type AccountRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// UpsertGitHubUser inserts or refreshes a user keyed by GitHub ID.
	UpsertGitHubUser(ctx context.Context, user *model.User) error
	UpdateDisplayName(ctx context.Context, id, displayName string) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	DeleteUser(ctx context.Context, id string) error

	// WipeOwnerData deletes every snippet and every folder owned by
	// ownerID in one atomic batch. An owner with no data is a no-op, not
	// an error. The user record itself is untouched.
	WipeOwnerData(ctx context.Context, ownerID string) error
}
