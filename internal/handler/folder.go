package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/threadlines/internal/apperror"
	"github.com/sakif/threadlines/internal/auth"
	"github.com/sakif/threadlines/internal/service"
)

// FolderHandler serves the folder surface under /api/folders.
//
//   - HandleList   → GET    /api/folders
//   - HandleCreate → POST   /api/folders
//   - HandleRename → PATCH  /api/folders/{id}
//   - HandleDelete → DELETE /api/folders/{id}   (cascades: member snippets drop the reference)
type FolderHandler struct {
	service *service.FolderService
	logger  *slog.Logger
}

func NewFolderHandler(service *service.FolderService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{service: service, logger: logger}
}

type createFolderRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type renameFolderRequest struct {
	Name string `json:"name"`
}

// HandleList returns the user's folders, newest first.
func (h *FolderHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	folders, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, folders)
}

// HandleCreate saves a new folder.
func (h *FolderHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON request body"))
		return
	}

	folder, err := h.service.Create(r.Context(), userID, req.Name, req.Color)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, folder)
}

// HandleRename changes a folder's name.
func (h *FolderHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req renameFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON request body"))
		return
	}

	folder, err := h.service.Rename(r.Context(), userID, id, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, folder)
}

// HandleDelete deletes a folder. Snippets inside it survive; they come
// loose from the folder in the same transaction that removes it.
func (h *FolderHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("folder deleted", slog.String("userID", userID), slog.String("id", id))
	writeJSON(w, http.StatusOK, map[string]string{"message": "folder deleted"})
}
