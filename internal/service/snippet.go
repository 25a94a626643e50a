// Package service contains the business logic layer of the application.
//
// The layering follows the usual three-tier shape:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → authorizes, validates, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Two rules every mutation in this package follows:
//
//   - A present identity is required. ownerID comes from the validated
//     session; an empty ownerID fails with apperror.ErrAuthRequired before
//     anything else happens.
//   - Ownership is checked HERE, explicitly, not delegated to storage
//     access rules: a mutation that targets an existing record first loads
//     it and compares its UserID against the caller.
//
// Every successful mutation publishes a change event to the live hub for
// the affected collection(s). That redelivery is how the UI observes
// results — mutations return only the created record, never a snapshot.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/threadlines/internal/apperror"
	"github.com/sakif/threadlines/internal/live"
	"github.com/sakif/threadlines/internal/model"
	"github.com/sakif/threadlines/internal/repository"
	"github.com/sakif/threadlines/internal/view"
)

const (
	MaxTitleLength   = 200
	MaxContentLength = 100000 // ~100KB of text
	MaxTagLength     = 40
	MaxTags          = 20
)

// SnippetService handles business logic for snippets.
type SnippetService struct {
	repo   repository.SnippetRepository
	hub    *live.Hub
	logger *slog.Logger
}

// NewSnippetService creates a SnippetService. The caller decides which
// repository implementation to inject (SQLite in production, a mock in
// tests).
func NewSnippetService(repo repository.SnippetRepository, hub *live.Hub, logger *slog.Logger) *SnippetService {
	return &SnippetService{
		repo:   repo,
		hub:    hub,
		logger: logger,
	}
}

// CreateSnippetInput carries the caller-settable fields for a new snippet.
// Omitted fields get their documented defaults in Create.
type CreateSnippetInput struct {
	Title    string
	Content  string
	Category string
	Tags     []string
	Color    string
	FolderID *string
	Pinned   bool
	Favorite bool
}

// FolderRef distinguishes the three partial-update cases for a snippet's
// folder reference: leave it unchanged (Set=false), clear it (Set=true,
// ID=nil), or point it at a folder (Set=true, ID set).
type FolderRef struct {
	Set bool
	ID  *string
}

// UpdateSnippetInput is a partial field set: nil pointers mean "leave
// unchanged". Tags follows the same convention — a nil slice is
// unchanged, an empty non-nil slice clears the tags.
type UpdateSnippetInput struct {
	Title    *string
	Content  *string
	Category *string
	Tags     []string
	Color    *string
	Folder   FolderRef
	Pinned   *bool
	Favorite *bool
}

// ListView is the derived display view returned by the list endpoint:
// the filtered+sorted result split into its two display groups, plus the
// tag vocabulary of the whole (unfiltered) snapshot.
type ListView struct {
	Pinned []model.Snippet `json:"pinned"`
	Others []model.Snippet `json:"others"`
	Tags   []string        `json:"tags"`
}

// Create validates and saves a new snippet for ownerID.
//
// Defaults for omitted fields: category "General", empty tag set, no
// color, unpinned, not favorite. CreatedAt and UpdatedAt are both set to
// now by the repository, so the updatedAt >= createdAt invariant holds
// from the first write.
func (s *SnippetService) Create(ctx context.Context, ownerID string, in CreateSnippetInput) (*model.Snippet, error) {
	if ownerID == "" {
		return nil, apperror.AuthRequired()
	}

	title := strings.TrimSpace(in.Title)
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if len(in.Content) > MaxContentLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxContentLength))
	}

	category := in.Category
	if category == "" {
		category = model.DefaultCategory
	}
	if !model.ValidCategory(category) {
		return nil, apperror.ValidationFailed("category",
			fmt.Sprintf("unknown category %q", category))
	}
	if !model.ValidColor(in.Color) {
		return nil, apperror.ValidationFailed("color",
			fmt.Sprintf("unknown color %q", in.Color))
	}

	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}

	snippet := &model.Snippet{
		UserID:   ownerID,
		Title:    title,
		Content:  in.Content,
		Category: category,
		Tags:     tags,
		Color:    in.Color,
		FolderID: in.FolderID,
		Pinned:   in.Pinned,
		Favorite: in.Favorite,
	}

	if err := s.repo.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("ownerID", ownerID),
	)
	s.hub.Publish(ownerID, live.CollectionSnippets)

	return snippet, nil
}

// Get retrieves one snippet, enforcing that it belongs to the caller.
func (s *SnippetService) Get(ctx context.Context, ownerID, id string) (*model.Snippet, error) {
	if ownerID == "" {
		return nil, apperror.AuthRequired()
	}

	snippet, err := s.authorize(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return snippet, nil
}

// ListView derives the display view for ownerID's snapshot under the
// given filter. The tag vocabulary always comes from the unfiltered
// snapshot.
func (s *SnippetService) ListView(ctx context.Context, ownerID string, f view.Filter) (*ListView, error) {
	if ownerID == "" {
		return nil, apperror.AuthRequired()
	}

	snapshot, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to list snippets",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing snippets: %w", err)
	}

	filtered := view.Apply(snapshot, f)
	pinned, others := view.Partition(filtered)

	return &ListView{
		Pinned: pinned,
		Others: others,
		Tags:   view.TagVocabulary(snapshot),
	}, nil
}

// Update merges the given partial fields into the snippet and persists
// it. Every successful update bumps updatedAt (in the repository), even
// when the merged value equals the old one.
func (s *SnippetService) Update(ctx context.Context, ownerID, id string, in UpdateSnippetInput) (*model.Snippet, error) {
	if ownerID == "" {
		return nil, apperror.AuthRequired()
	}

	snippet, err := s.authorize(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if len(title) > MaxTitleLength {
			return nil, apperror.ValidationFailed("title",
				fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
		}
		snippet.Title = title
	}
	if in.Content != nil {
		if len(*in.Content) > MaxContentLength {
			return nil, apperror.ValidationFailed("content",
				fmt.Sprintf("content must be %d characters or less", MaxContentLength))
		}
		snippet.Content = *in.Content
	}
	if in.Category != nil {
		if !model.ValidCategory(*in.Category) {
			return nil, apperror.ValidationFailed("category",
				fmt.Sprintf("unknown category %q", *in.Category))
		}
		snippet.Category = *in.Category
	}
	if in.Tags != nil {
		tags, err := normalizeTags(in.Tags)
		if err != nil {
			return nil, err
		}
		snippet.Tags = tags
	}
	if in.Color != nil {
		if !model.ValidColor(*in.Color) {
			return nil, apperror.ValidationFailed("color",
				fmt.Sprintf("unknown color %q", *in.Color))
		}
		snippet.Color = *in.Color
	}
	if in.Folder.Set {
		snippet.FolderID = in.Folder.ID
	}
	if in.Pinned != nil {
		snippet.Pinned = *in.Pinned
	}
	if in.Favorite != nil {
		snippet.Favorite = *in.Favorite
	}

	if err := s.repo.Update(ctx, snippet); err != nil {
		s.logger.Error("failed to update snippet",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating snippet: %w", err)
	}

	s.hub.Publish(ownerID, live.CollectionSnippets)
	return snippet, nil
}

// Delete removes a snippet by ID after the ownership check.
func (s *SnippetService) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return apperror.AuthRequired()
	}

	if _, err := s.authorize(ctx, ownerID, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("snippet deleted", slog.String("id", id))
	s.hub.Publish(ownerID, live.CollectionSnippets)
	return nil
}

// authorize loads the snippet and verifies it belongs to ownerID.
func (s *SnippetService) authorize(ctx context.Context, ownerID, id string) (*model.Snippet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}

	snippet, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if snippet.UserID != ownerID {
		return nil, apperror.Forbidden("snippet belongs to a different user")
	}
	return snippet, nil
}

// normalizeTags trims, drops empties, de-duplicates (tags are a set), and
// enforces the size limits. Order of first appearance is preserved.
func normalizeTags(in []string) ([]string, error) {
	tags := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		t := strings.TrimSpace(raw)
		if t == "" {
			continue
		}
		if len(t) > MaxTagLength {
			return nil, apperror.ValidationFailed("tags",
				fmt.Sprintf("tag must be %d characters or less", MaxTagLength))
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	if len(tags) > MaxTags {
		return nil, apperror.ValidationFailed("tags",
			fmt.Sprintf("at most %d tags are allowed", MaxTags))
	}
	return tags, nil
}
