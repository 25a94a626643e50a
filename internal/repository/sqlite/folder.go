package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/threadlines/internal/apperror"
	"github.com/sakif/threadlines/internal/model"
	"github.com/sakif/threadlines/internal/repository"
)

// Compile-time check that *DB implements repository.FolderRepository.
var _ repository.FolderRepository = (*DB)(nil)

// CreateFolder inserts a new folder, generating its ID and created_at.
func (db *DB) CreateFolder(ctx context.Context, folder *model.Folder) error {
	folder.ID = xid.New().String()
	folder.CreatedAt = time.Now().UnixMilli()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO folders (id, user_id, name, color, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		folder.ID,
		folder.UserID,
		folder.Name,
		folder.Color,
		folder.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating folder: %w", err)
	}

	return nil
}

// GetFolderByID retrieves a single folder by its ID.
func (db *DB) GetFolderByID(ctx context.Context, id string) (*model.Folder, error) {
	var f model.Folder

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, name, color, created_at
		 FROM folders WHERE id = ?`,
		id,
	).Scan(&f.ID, &f.UserID, &f.Name, &f.Color, &f.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("folder", id)
		}
		return nil, fmt.Errorf("sqlite: getting folder %s: %w", id, err)
	}

	return &f, nil
}

// ListFoldersByOwner returns the full folder collection for one owner,
// newest first.
func (db *DB) ListFoldersByOwner(ctx context.Context, ownerID string) ([]model.Folder, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, name, color, created_at
		 FROM folders
		 WHERE user_id = ?
		 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing folders for %s: %w", ownerID, err)
	}
	defer rows.Close()

	folders := []model.Folder{}
	for rows.Next() {
		var f model.Folder
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &f.Color, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning folder row: %w", err)
		}
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating folders: %w", err)
	}

	return folders, nil
}

// RenameFolder updates only the folder's name.
func (db *DB) RenameFolder(ctx context.Context, id, name string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE folders SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("sqlite: renaming folder %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("folder", id)
	}

	return nil
}

// DeleteFolderCascade removes the folder and clears the folder reference
// on every snippet that pointed at it, as one atomic batch.
//
// The two statements run inside a single transaction: either the snippets
// are re-filed to "none" AND the folder row is gone, or neither happened.
// A reader can never observe the half-done state.
//
// The owner filter on the UPDATE is required, not defensive styling:
// mutation authorization is per-owner, so the cascade may only touch rows
// the caller owns. Snippets are never deleted here — only their reference
// is cleared, and updated_at is left alone (re-filing is not an edit).
func (db *DB) DeleteFolderCascade(ctx context.Context, id, ownerID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning cascade transaction: %w", err)
	}
	// Rollback is a no-op after a successful Commit.
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE snippets SET folder_id = NULL
		 WHERE folder_id = ? AND user_id = ?`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: clearing folder refs for %s: %w", id, err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM folders WHERE id = ? AND user_id = ?`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting folder %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Unknown folder (or not the caller's): the deferred Rollback
		// undoes the reference clearing above.
		return apperror.NotFound("folder", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing cascade for %s: %w", id, err)
	}

	return nil
}
