package repository

import (
	"context"

	"secureNotes/models"
)

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
	UpdateRole(ctx context.Context, id int64, role models.Role) error
	UpdateRoleByUsername(ctx context.Context, username string, role models.Role) error
	UpdatePassword(ctx context.Context, id int64, credential string) error
	Delete(ctx context.Context, id int64) error
}

// NoteRepositoryI defines operations on Note entities.
type NoteRepositoryI interface {
	Create(ctx context.Context, n *models.Note) (*models.Note, error)
	GetByID(ctx context.Context, id int64) (*models.Note, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]models.Note, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.NoteWithAuthor, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
	Update(ctx context.Context, id int64, title, content *string) error
	Delete(ctx context.Context, id int64) error
}

var (
	_ UserRepositoryI = (*UserRepository)(nil)
	_ NoteRepositoryI = (*NoteRepository)(nil)
)

// clampPage applies the default and bounds used by every list query.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
