// Package service — authentication and account lifecycle business logic.
//
// AuthService is the gateway between the HTTP handlers and the identity
// primitives:
//
//	AuthHandler (HTTP) → AuthService (rules) → AccountRepository (DB)
//	                   ↘ TokenService (JWT)  ↘ PasswordService (bcrypt)
//
// Two credential types produce the same session: email/password (the
// primary flow) and GitHub OAuth. Either way the result is an AuthResult
// bundling the user record with the issued JWT, and the handler turns
// that into an HttpOnly cookie.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/threadlines/internal/apperror"
	"github.com/sakif/threadlines/internal/auth"
	"github.com/sakif/threadlines/internal/live"
	"github.com/sakif/threadlines/internal/model"
	"github.com/sakif/threadlines/internal/repository"
)

const (
	MinPasswordLength    = 8
	MaxDisplayNameLength = 80
)

// AuthService handles authentication and account lifecycle.
type AuthService struct {
	users     repository.AccountRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	hub       *live.Hub
	logger    *slog.Logger
}

func NewAuthService(
	users repository.AccountRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	hub *live.Hub,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		hub:       hub,
		logger:    logger,
	}
}

// AuthResult bundles the authenticated user and the issued JWT so the
// handler can set the session cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// SignUp registers a new email/password account and signs it in.
//
// Rules: the email must parse as an address and be unused; the password
// must be at least MinPasswordLength characters. A duplicate email
// surfaces as a conflict error with the classic "already in use" message.
func (s *AuthService) SignUp(ctx context.Context, email, password, displayName string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.ValidationFailed("email", "a valid email address is required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password should be at least %d characters", MinPasswordLength))
	}
	displayName = strings.TrimSpace(displayName)
	if len(displayName) > MaxDisplayNameLength {
		return nil, apperror.ValidationFailed("displayName",
			fmt.Sprintf("display name must be %d characters or less", MaxDisplayNameLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}

	user := &model.User{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err // Conflict (email in use) or a wrapped store error
	}

	s.logger.Info("user signed up",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	return s.issueToken(user)
}

// SignIn authenticates an email/password credential.
//
// All failure modes — unknown email, OAuth-only account, wrong password —
// return the same invalid-credential error, so responses don't reveal
// which accounts exist.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apperror.InvalidCredential()
	}
	if user.PasswordHash == "" {
		// GitHub-only account; it has no password to check.
		return nil, apperror.InvalidCredential()
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		s.logger.Info("sign-in rejected", slog.String("email", email))
		return nil, apperror.InvalidCredential()
	}

	s.logger.Info("user signed in", slog.String("userID", user.ID))
	return s.issueToken(user)
}

// SignInGitHub completes the OAuth callback: upserts the user keyed by
// GitHub ID (insert on first login, refresh profile fields on later ones)
// and issues a session.
func (s *AuthService) SignInGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	displayName := ghUser.Name
	if displayName == "" {
		displayName = ghUser.Login
	}

	user := &model.User{
		GitHubID:    ghUser.ID,
		Email:       strings.ToLower(ghUser.Email),
		DisplayName: displayName,
		AvatarURL:   ghUser.AvatarURL,
	}
	if err := s.users.UpsertGitHubUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", ghUser.Login),
	)

	return s.issueToken(user)
}

// Profile returns the current identity's client-facing profile.
func (s *AuthService) Profile(ctx context.Context, userID string) (*model.UserProfile, error) {
	if userID == "" {
		return nil, apperror.AuthRequired()
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := user.Profile()
	return &profile, nil
}

// UpdateDisplayName changes the current identity's display name.
func (s *AuthService) UpdateDisplayName(ctx context.Context, userID, displayName string) error {
	if userID == "" {
		return apperror.AuthRequired()
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return apperror.ValidationFailed("displayName", "display name is required")
	}
	if len(displayName) > MaxDisplayNameLength {
		return apperror.ValidationFailed("displayName",
			fmt.Sprintf("display name must be %d characters or less", MaxDisplayNameLength))
	}

	if err := s.users.UpdateDisplayName(ctx, userID, displayName); err != nil {
		return err
	}

	s.logger.Info("display name updated", slog.String("userID", userID))
	return nil
}

// UpdatePassword changes the current identity's password. The current
// password must be supplied and verify — the equivalent of the "recent
// login" requirement identity providers put on sensitive operations.
func (s *AuthService) UpdatePassword(ctx context.Context, userID, current, updated string) error {
	if userID == "" {
		return apperror.AuthRequired()
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.PasswordHash == "" {
		return apperror.ValidationFailed("password",
			"this account signs in with GitHub and has no password")
	}
	if err := s.passwords.Verify(user.PasswordHash, current); err != nil {
		return apperror.Forbidden("current password is incorrect")
	}
	if len(updated) < MinPasswordLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password should be at least %d characters", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(updated)
	if err != nil {
		return apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}

	s.logger.Info("password updated", slog.String("userID", userID))
	return nil
}

// WipeUserData deletes every snippet and folder owned by ownerID in one
// atomic batch. An owner with no data is a successful no-op.
func (s *AuthService) WipeUserData(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return apperror.AuthRequired()
	}

	if err := s.users.WipeOwnerData(ctx, ownerID); err != nil {
		s.logger.Error("failed to wipe user data",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("wiping user data: %w", err)
	}

	s.logger.Info("user data wiped", slog.String("ownerID", ownerID))
	s.hub.Publish(ownerID, live.CollectionSnippets, live.CollectionFolders)
	return nil
}

// DeleteAccount removes the account in two phases: (1) wipe all owned
// documents, (2) delete the identity record.
//
// The phases are not atomic with each other, and the order — wipe first —
// is deliberate and preserved from the system this one replaces. If phase
// 2 fails, the documents are already gone while the identity survives;
// that state is logged loudly rather than papered over, and the user can
// retry the deletion.
//
// confirm must be the literal string "DELETE". The confirmation lives at
// the service boundary, not only in the UI, so no caller can wipe an
// account by accident.
func (s *AuthService) DeleteAccount(ctx context.Context, userID, confirm string) error {
	if userID == "" {
		return apperror.AuthRequired()
	}
	if confirm != "DELETE" {
		return apperror.ValidationFailed("confirm", `type "DELETE" to confirm account deletion`)
	}

	// Phase 1: the data wipe must complete before the identity goes.
	if err := s.WipeUserData(ctx, userID); err != nil {
		return err
	}

	// Phase 2: delete the identity itself.
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		s.logger.Warn("identity deletion failed after data wipe; account data is gone but the identity remains",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting identity: %w", err)
	}

	s.logger.Info("account deleted", slog.String("userID", userID))
	return nil
}

func (s *AuthService) issueToken(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
