package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/threadlines/internal/apperror"
	"github.com/sakif/threadlines/internal/model"
	"github.com/sakif/threadlines/internal/repository"
)

// Compile-time check that *DB implements repository.AccountRepository.
var _ repository.AccountRepository = (*DB)(nil)

const userColumns = `id, email, display_name, password_hash, github_id,
	avatar_url, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &githubID,
		&u.AvatarURL, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.GitHubID = githubID.Int64 // stays 0 for NULL
	return &u, nil
}

// nullableGitHubID maps "no GitHub credential" (0) onto SQL NULL so the
// partial unique index on github_id ignores password-only accounts.
func nullableGitHubID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// CreateUser inserts a new email/password account.
// A duplicate email surfaces as apperror.ErrConflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UnixMilli()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, display_name, password_hash, github_id,
			avatar_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.DisplayName,
		user.PasswordHash,
		nullableGitHubID(user.GitHubID),
		user.AvatarURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		// modernc/sqlite reports constraint violations by message, not a
		// typed error. idx_users_email is the only unique index this
		// insert can trip.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") ||
			strings.Contains(err.Error(), "constraint failed") {
			return apperror.Conflict("user", "email already in use")
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by internal ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email (sign-in lookup).
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return user, nil
}

// UpsertGitHubUser inserts or refreshes a user keyed by their GitHub ID.
//
// First OAuth login inserts a row; later logins keep the existing internal
// ID and refresh email/avatar in case they changed on GitHub. The two-step
// lookup-then-write (instead of INSERT OR REPLACE) preserves the internal
// ID and created_at across logins.
func (db *DB) UpsertGitHubUser(ctx context.Context, user *model.User) error {
	if user.GitHubID == 0 {
		return fmt.Errorf("sqlite: upserting user: github id is required")
	}

	var existingID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE github_id = ?`, user.GitHubID,
	).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", user.GitHubID, err)
	}

	if existingID != "" {
		user.ID = existingID
		user.UpdatedAt = time.Now().UnixMilli()
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET email = ?, display_name = ?, avatar_url = ?, updated_at = ?
			 WHERE id = ?`,
			user.Email,
			user.DisplayName,
			user.AvatarURL,
			user.UpdatedAt,
			user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		return nil
	}

	now := time.Now().UnixMilli()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, display_name, password_hash, github_id,
			avatar_url, created_at, updated_at)
		 VALUES (?, ?, ?, '', ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.DisplayName,
		user.GitHubID,
		user.AvatarURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user (githubID=%d): %w", user.GitHubID, err)
	}

	return nil
}

// UpdateDisplayName changes only the display name.
func (db *DB) UpdateDisplayName(ctx context.Context, id, displayName string) error {
	return db.updateUserField(ctx, id, "display_name", displayName)
}

// UpdatePasswordHash replaces the stored bcrypt hash.
func (db *DB) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return db.updateUserField(ctx, id, "password_hash", hash)
}

// updateUserField is the shared single-column update. column is always one
// of the two literals above, never caller input.
func (db *DB) updateUserField(ctx context.Context, id, column, value string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET `+column+` = ?, updated_at = ? WHERE id = ?`,
		value, time.Now().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// DeleteUser removes the identity record itself. Call WipeOwnerData first;
// the foreign keys on snippets/folders reject deleting a user who still
// owns data.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// WipeOwnerData deletes every snippet and every folder owned by ownerID in
// one atomic batch. No per-snippet re-filing happens here — the folders go
// in the same commit, so there is nothing to re-file to. An owner with no
// data commits an empty batch and returns nil.
func (db *DB) WipeOwnerData(ctx context.Context, ownerID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning wipe transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snippets WHERE user_id = ?`, ownerID); err != nil {
		return fmt.Errorf("sqlite: wiping snippets for %s: %w", ownerID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM folders WHERE user_id = ?`, ownerID); err != nil {
		return fmt.Errorf("sqlite: wiping folders for %s: %w", ownerID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing wipe for %s: %w", ownerID, err)
	}

	return nil
}
