package db

import (
	"context"
	"database/sql"

	"github.com/teamtalk/talktome/internal/errors"
	"github.com/teamtalk/talktome/internal/meeting"
)

// InsertFolder stores a new folder.
func InsertFolder(ctx context.Context, q Querier, f *meeting.Folder) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO folders (id, name, created_at) VALUES (?, ?, ?)`,
		f.ID, f.Name, toMillis(f.CreatedAt),
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetFolder retrieves a folder by ID.
func GetFolder(ctx context.Context, q Querier, id string) (*meeting.Folder, error) {
	row := q.QueryRowContext(ctx, `SELECT id, name, created_at FROM folders WHERE id = ?`, id)
	f, err := scanFolder(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("folder", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return f, nil
}

// FolderExists reports whether a folder with id exists.
func FolderExists(ctx context.Context, q Querier, id string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM folders WHERE id = ? LIMIT 1`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// ListFolders returns all folders, newest first.
func ListFolders(ctx context.Context, q Querier) ([]meeting.Folder, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, name, created_at FROM folders ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	folders := []meeting.Folder{}
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		folders = append(folders, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return folders, nil
}

// RenameFolder sets a folder's name.
func RenameFolder(ctx context.Context, q Querier, id, name string) error {
	result, err := q.ExecContext(ctx, `UPDATE folders SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := checkAffected(result, errors.NewNotFound("folder", id)); err != nil {
		return err
	}
	return nil
}

// DeleteFolder removes a folder. Its meetings (and their transcript edits)
// are removed by ON DELETE CASCADE.
func DeleteFolder(ctx context.Context, q Querier, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := checkAffected(result, errors.NewNotFound("folder", id)); err != nil {
		return err
	}
	return nil
}

func scanFolder(row rowScanner) (*meeting.Folder, error) {
	var (
		f         meeting.Folder
		createdAt int64
	)
	if err := row.Scan(&f.ID, &f.Name, &createdAt); err != nil {
		return nil, err
	}
	f.CreatedAt = fromMillis(createdAt)
	return &f, nil
}
