package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/threadlines/internal/apperror"
	"github.com/sakif/threadlines/internal/auth"
	"github.com/sakif/threadlines/internal/service"
)

// AccountHandler serves the authenticated user's own account:
//
//   - HandleMe             → GET    /api/me           current profile
//   - HandleUpdateProfile  → PATCH  /api/me           change display name
//   - HandleUpdatePassword → PUT    /api/me/password  change password
//   - HandleWipeData       → POST   /api/me/wipe      delete all snippets and folders
//   - HandleDeleteAccount  → DELETE /api/me           delete the account
//
// All routes sit behind RequireAuth, so the user ID is always in context.
type AccountHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

func NewAccountHandler(service *service.AuthService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{service: service, logger: logger}
}

// HandleMe returns the authenticated user's profile. The frontend calls
// this on load to learn who is signed in.
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	profile, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

type updateProfileRequest struct {
	DisplayName string `json:"displayName"`
}

// HandleUpdateProfile changes the display name and returns the updated
// profile.
func (h *AccountHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON request body"))
		return
	}

	if err := h.service.UpdateDisplayName(r.Context(), userID, req.DisplayName); err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// HandleUpdatePassword changes the password. The current password must be
// supplied and verify.
func (h *AccountHandler) HandleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req updatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON request body"))
		return
	}

	if err := h.service.UpdatePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// HandleWipeData deletes every snippet and folder the user owns while
// keeping the account itself.
func (h *AccountHandler) HandleWipeData(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.service.WipeUserData(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "data wiped"})
}

type deleteAccountRequest struct {
	Confirm string `json:"confirm"`
}

// HandleDeleteAccount deletes the account and all its data. The body must
// carry {"confirm": "DELETE"}; the session cookie is cleared on success.
func (h *AccountHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req deleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON request body"))
		return
	}

	if err := h.service.DeleteAccount(r.Context(), userID, req.Confirm); err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
}
