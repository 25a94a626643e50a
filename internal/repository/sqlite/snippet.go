package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/threadlines/internal/apperror"
	"github.com/sakif/threadlines/internal/model"
	"github.com/sakif/threadlines/internal/repository"
)

// Compile-time check that *DB implements repository.SnippetRepository.
var _ repository.SnippetRepository = (*DB)(nil)

// snippetColumns is the canonical SELECT column order; scanSnippet must
// match it field for field.
const snippetColumns = `id, user_id, title, content, category, tags, color,
	folder_id, pinned, favorite, created_at, updated_at`

// encodeTags serialises a tag set as a JSON array for the TEXT column.
// nil and empty both encode as "[]" so the column never holds NULL.
func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encoding tags: %w", err)
	}
	return string(b), nil
}

// scanSnippet reads one row into a model.Snippet. Works for both sql.Row
// and sql.Rows via the small scanner interface.
func scanSnippet(row interface{ Scan(...any) error }) (*model.Snippet, error) {
	var (
		s        model.Snippet
		tagsJSON string
		folderID sql.NullString
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.Title, &s.Content, &s.Category, &tagsJSON,
		&s.Color, &folderID, &s.Pinned, &s.Favorite, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &s.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags for snippet %s: %w", s.ID, err)
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	if folderID.Valid {
		s.FolderID = &folderID.String
	}
	return &s, nil
}

// Create inserts a new snippet. The caller's struct is modified in place:
// ID is generated here (xid — 20 chars, URL-safe, time-ordered) and both
// timestamps are set to the same "now", so UpdatedAt == CreatedAt on a
// fresh row.
func (db *DB) Create(ctx context.Context, snippet *model.Snippet) error {
	snippet.ID = xid.New().String()

	now := time.Now().UnixMilli()
	snippet.CreatedAt = now
	snippet.UpdatedAt = now

	tagsJSON, err := encodeTags(snippet.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO snippets (id, user_id, title, content, category, tags,
			color, folder_id, pinned, favorite, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snippet.ID,
		snippet.UserID,
		snippet.Title,
		snippet.Content,
		snippet.Category,
		tagsJSON,
		snippet.Color,
		snippet.FolderID, // *string → NULL when nil
		snippet.Pinned,
		snippet.Favorite,
		snippet.CreatedAt,
		snippet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	return nil
}

// GetByID retrieves a single snippet by its ID.
// Returns apperror.ErrNotFound if no row matches.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+snippetColumns+` FROM snippets WHERE id = ?`, id)

	snippet, err := scanSnippet(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}

	return snippet, nil
}

// ListByOwner returns the full snippet collection for one owner, most
// recently updated first. This is the query behind every live snapshot
// delivery — it always returns the complete current result set, never a
// diff.
func (db *DB) ListByOwner(ctx context.Context, ownerID string) ([]model.Snippet, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+snippetColumns+` FROM snippets
		 WHERE user_id = ?
		 ORDER BY updated_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets for %s: %w", ownerID, err)
	}
	defer rows.Close()

	snippets := []model.Snippet{}
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		snippets = append(snippets, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}

	return snippets, nil
}

// Update writes the full snippet row and bumps updated_at to now. The
// service layer is responsible for the fetch-and-merge; by the time the
// struct reaches here it is the complete desired state. id, user_id and
// created_at are immutable.
func (db *DB) Update(ctx context.Context, snippet *model.Snippet) error {
	snippet.UpdatedAt = time.Now().UnixMilli()

	tagsJSON, err := encodeTags(snippet.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %s: %w", snippet.ID, err)
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets
		 SET title = ?, content = ?, category = ?, tags = ?, color = ?,
		     folder_id = ?, pinned = ?, favorite = ?, updated_at = ?
		 WHERE id = ?`,
		snippet.Title,
		snippet.Content,
		snippet.Category,
		tagsJSON,
		snippet.Color,
		snippet.FolderID,
		snippet.Pinned,
		snippet.Favorite,
		snippet.UpdatedAt,
		snippet.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %s: %w", snippet.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", snippet.ID)
	}

	return nil
}

// Delete removes a snippet by ID. RowsAffected distinguishes "deleted"
// from "never existed".
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM snippets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", id)
	}

	return nil
}
