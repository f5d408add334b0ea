package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/teamtalk/talktome/internal/db"
	"github.com/teamtalk/talktome/internal/errors"
	"github.com/teamtalk/talktome/internal/meeting"
)

// CreateFolderInput contains parameters for the CreateFolder operation.
type CreateFolderInput struct {
	Name string `json:"name" validate:"required" msg:"Name required"`
}

// RenameFolderInput contains parameters for the RenameFolder operation.
type RenameFolderInput struct {
	ID   string `json:"id" validate:"required" msg:"id required"`
	Name string `json:"name" validate:"required" msg:"Name required"`
}

// ListFolders returns all folders, newest first.
func ListFolders(ctx context.Context, database *sql.DB) ([]meeting.Folder, error) {
	return db.ListFolders(ctx, database)
}

// CreateFolder creates a folder with a trimmed, non-empty name.
func CreateFolder(ctx context.Context, database *sql.DB, input CreateFolderInput) (*meeting.Folder, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := meeting.Validate(&input); err != nil {
		return nil, err
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	f := &meeting.Folder{ID: id, Name: input.Name, CreatedAt: now()}
	if err := db.InsertFolder(ctx, database, f); err != nil {
		return nil, err
	}
	return db.GetFolder(ctx, database, id)
}

// RenameFolder changes a folder's name.
func RenameFolder(ctx context.Context, database *sql.DB, input RenameFolderInput) (*meeting.Folder, error) {
	input.ID = strings.TrimSpace(input.ID)
	input.Name = strings.TrimSpace(input.Name)
	if err := meeting.Validate(&input); err != nil {
		return nil, err
	}

	if err := db.RenameFolder(ctx, database, input.ID, input.Name); err != nil {
		return nil, err
	}
	return db.GetFolder(ctx, database, input.ID)
}

// DeleteFolder deletes a folder and every meeting in it.
func DeleteFolder(ctx context.Context, database *sql.DB, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.NewInvalidRequest("id required")
	}
	return db.DeleteFolder(ctx, database, id)
}
