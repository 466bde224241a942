package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/catmatch/internal/db"
)

// UserRepository reads and merges account records.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// Get returns the user or gorm.ErrRecordNotFound.
func (r *UserRepository) Get(ctx context.Context, id string) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UserPatch carries only the fields a client supplied.
type UserPatch struct {
	DisplayName *string
	Email       *string
	PhotoURL    *string
}

func (p UserPatch) Empty() bool {
	return p.DisplayName == nil && p.Email == nil && p.PhotoURL == nil
}

// Merge creates the user on first write and otherwise overwrites only the
// columns present in patch.
func (r *UserRepository) Merge(ctx context.Context, id string, patch UserPatch) (*db.User, error) {
	u := db.User{ID: id}
	cols := []string{"updated_at"}
	if patch.DisplayName != nil {
		u.DisplayName = *patch.DisplayName
		cols = append(cols, "display_name")
	}
	if patch.Email != nil {
		u.Email = *patch.Email
		cols = append(cols, "email")
	}
	if patch.PhotoURL != nil {
		u.PhotoURL = *patch.PhotoURL
		cols = append(cols, "photo_url")
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(cols),
		}).
		Create(&u).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}
