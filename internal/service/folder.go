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
)

const MaxFolderNameLength = 60

// FolderService handles business logic for folders, including the one
// multi-document transaction in the system: the deletion cascade.
type FolderService struct {
	repo   repository.FolderRepository
	hub    *live.Hub
	logger *slog.Logger
}

func NewFolderService(repo repository.FolderRepository, hub *live.Hub, logger *slog.Logger) *FolderService {
	return &FolderService{
		repo:   repo,
		hub:    hub,
		logger: logger,
	}
}

// Create validates and saves a new folder.
//
// The non-empty name rule is enforced here, at the service boundary, so
// it holds for every caller — not only for clients that happen to
// validate their own forms.
func (s *FolderService) Create(ctx context.Context, ownerID, name, color string) (*model.Folder, error) {
	if ownerID == "" {
		return nil, apperror.AuthRequired()
	}

	name, err := validFolderName(name)
	if err != nil {
		return nil, err
	}
	if !model.ValidColor(color) {
		return nil, apperror.ValidationFailed("color",
			fmt.Sprintf("unknown color %q", color))
	}

	folder := &model.Folder{
		UserID: ownerID,
		Name:   name,
		Color:  color,
	}

	if err := s.repo.CreateFolder(ctx, folder); err != nil {
		s.logger.Error("failed to create folder",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating folder: %w", err)
	}

	s.logger.Info("folder created",
		slog.String("id", folder.ID),
		slog.String("name", folder.Name),
	)
	s.hub.Publish(ownerID, live.CollectionFolders)

	return folder, nil
}

// List returns the caller's folders, newest first.
func (s *FolderService) List(ctx context.Context, ownerID string) ([]model.Folder, error) {
	if ownerID == "" {
		return nil, apperror.AuthRequired()
	}

	folders, err := s.repo.ListFoldersByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to list folders",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	return folders, nil
}

// Rename changes only the folder's name, after the ownership check.
func (s *FolderService) Rename(ctx context.Context, ownerID, id, name string) (*model.Folder, error) {
	if ownerID == "" {
		return nil, apperror.AuthRequired()
	}

	folder, err := s.authorize(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	name, err = validFolderName(name)
	if err != nil {
		return nil, err
	}

	if err := s.repo.RenameFolder(ctx, id, name); err != nil {
		s.logger.Error("failed to rename folder",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("renaming folder: %w", err)
	}
	folder.Name = name

	s.hub.Publish(ownerID, live.CollectionFolders)
	return folder, nil
}

// Delete removes the folder via the atomic cascade: every snippet of the
// caller that referenced it is re-filed to "none", then the folder row is
// deleted, all in one batch. Snippet count is unchanged by this operation
// — snippets are reassigned, never deleted.
//
// Both collections changed, so both get a change event.
func (s *FolderService) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return apperror.AuthRequired()
	}

	if _, err := s.authorize(ctx, ownerID, id); err != nil {
		return err
	}

	if err := s.repo.DeleteFolderCascade(ctx, id, ownerID); err != nil {
		s.logger.Error("failed to delete folder",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting folder: %w", err)
	}

	s.logger.Info("folder deleted", slog.String("id", id))
	s.hub.Publish(ownerID, live.CollectionSnippets, live.CollectionFolders)
	return nil
}

func (s *FolderService) authorize(ctx context.Context, ownerID, id string) (*model.Folder, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "folder ID is required")
	}

	folder, err := s.repo.GetFolderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if folder.UserID != ownerID {
		return nil, apperror.Forbidden("folder belongs to a different user")
	}
	return folder, nil
}

func validFolderName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperror.ValidationFailed("name", "folder name is required")
	}
	if len(name) > MaxFolderNameLength {
		return "", apperror.ValidationFailed("name",
			fmt.Sprintf("folder name must be %d characters or less", MaxFolderNameLength))
	}
	return name, nil
}
