package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/threadlines/internal/apperror"
	"github.com/sakif/threadlines/internal/auth"
	"github.com/sakif/threadlines/internal/service"
	"github.com/sakif/threadlines/internal/view"
)

// SnippetHandler serves the snippet CRUD surface under /api/snippets.
//
//   - HandleList   → GET    /api/snippets        filtered view {pinned, others, tags}
//   - HandleGet    → GET    /api/snippets/{id}
//   - HandleCreate → POST   /api/snippets
//   - HandleUpdate → PATCH  /api/snippets/{id}
//   - HandleDelete → DELETE /api/snippets/{id}
type SnippetHandler struct {
	service *service.SnippetService
	logger  *slog.Logger
}

func NewSnippetHandler(service *service.SnippetService, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{service: service, logger: logger}
}

// optionalString distinguishes "field absent" from "field present but
// null" in a PATCH body. UnmarshalJSON runs only when the key is present,
// so Set=true with Value=nil is an explicit null.
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	return json.Unmarshal(data, &o.Value)
}

type createSnippetRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Color    string   `json:"color"`
	FolderID *string  `json:"folderId"`
	Pinned   bool     `json:"pinned"`
	Favorite bool     `json:"favorite"`
}

type updateSnippetRequest struct {
	Title    *string        `json:"title"`
	Content  *string        `json:"content"`
	Category *string        `json:"category"`
	Tags     []string       `json:"tags"`
	Color    *string        `json:"color"`
	FolderID optionalString `json:"folderId"`
	Pinned   *bool          `json:"pinned"`
	Favorite *bool          `json:"favorite"`
}

// HandleList returns the user's snippets through the display pipeline.
//
// HTTP: GET /api/snippets?scope=&folderId=&q=&category=&tag=&sort=
//
// All query parameters are optional; omitted ones impose no restriction.
// The response is the view the UI renders directly:
//
//	{"pinned":[...], "others":[...], "tags":["go","sql",...]}
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	q := r.URL.Query()
	filter := view.Filter{
		Scope:    view.Scope(q.Get("scope")),
		FolderID: q.Get("folderId"),
		Search:   q.Get("q"),
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
		Sort:     view.Sort(q.Get("sort")),
	}

	switch filter.Scope {
	case "", view.ScopeAll, view.ScopeFavorites:
	case view.ScopeFolder:
		if filter.FolderID == "" {
			writeError(w, apperror.ValidationFailed("folderId", "folder scope requires a folderId"))
			return
		}
	default:
		writeError(w, apperror.ValidationFailed("scope", "scope must be one of: all, favorites, folder"))
		return
	}
	switch filter.Sort {
	case "", view.SortNewest, view.SortOldest, view.SortTitleAsc, view.SortTitleDesc:
	default:
		writeError(w, apperror.ValidationFailed("sort", "sort must be one of: newest, oldest, az, za"))
		return
	}

	result, err := h.service.ListView(r.Context(), userID, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleGet returns one snippet by ID.
//
// HTTP: GET /api/snippets/{id}
func (h *SnippetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	snippet, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snippet)
}

// HandleCreate saves a new snippet.
//
// HTTP: POST /api/snippets
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req createSnippetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON request body"))
		return
	}

	snippet, err := h.service.Create(r.Context(), userID, service.CreateSnippetInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Tags:     req.Tags,
		Color:    req.Color,
		FolderID: req.FolderID,
		Pinned:   req.Pinned,
		Favorite: req.Favorite,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, snippet)
}

// HandleUpdate applies a partial update to one snippet.
//
// HTTP: PATCH /api/snippets/{id}
//
// Only the fields present in the body change. folderId is three-state:
// absent leaves it alone, null clears it, a string sets it.
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req updateSnippetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON request body"))
		return
	}

	snippet, err := h.service.Update(r.Context(), userID, id, service.UpdateSnippetInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Tags:     req.Tags,
		Color:    req.Color,
		Folder:   service.FolderRef{Set: req.FolderID.Set, ID: req.FolderID.Value},
		Pinned:   req.Pinned,
		Favorite: req.Favorite,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snippet)
}

// HandleDelete removes one snippet.
//
// HTTP: DELETE /api/snippets/{id}
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("snippet deleted", slog.String("userID", userID), slog.String("id", id))
	writeJSON(w, http.StatusOK, map[string]string{"message": "snippet deleted"})
}
