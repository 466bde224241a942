package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oggyb/catmatch/internal/db"
)

// CatRepository provides access to cat profiles.
type CatRepository struct {
	db *gorm.DB
}

func NewCatRepository(database *gorm.DB) *CatRepository {
	return &CatRepository{db: database}
}

// Get returns the cat or gorm.ErrRecordNotFound.
func (r *CatRepository) Get(ctx context.Context, id string) (*db.Cat, error) {
	var c db.Cat
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FirstByOwner returns the oldest cat owned by userID, or nil when the user
// has none.
func (r *CatRepository) FirstByOwner(ctx context.Context, userID string) (*db.Cat, error) {
	var c db.Cat
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// IDsByOwner lists the ids of every cat owned by userID.
func (r *CatRepository) IDsByOwner(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&db.Cat{}).
		Where("user_id = ?", userID).
		Pluck("id", &ids).Error
	return ids, err
}

// ListCandidates returns cats the requester may still swipe on.
//
// Behavior:
//   - Excludes cats owned by requesterID and cats with no owner.
//   - Excludes cats requesterID already has a swipe on (liked or passed).
//   - Order is unspecified; callers shuffle.
func (r *CatRepository) ListCandidates(ctx context.Context, requesterID string) ([]db.Cat, error) {
	var cats []db.Cat
	err := r.db.WithContext(ctx).
		Table("cats c").
		Where("c.user_id <> ? AND c.user_id <> ''", requesterID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM swipes s
				WHERE s.user_id = ?
				  AND s.cat_id = c.id
			)`, requesterID).
		Find(&cats).Error
	return cats, err
}

// Count returns the total number of cat profiles.
func (r *CatRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&db.Cat{}).Count(&n).Error
	return n, err
}

// UpsertByOwner writes the owner's profile. An existing profile keeps its id
// and created_at; a new one gets a fresh uuid.
func (r *CatRepository) UpsertByOwner(ctx context.Context, cat db.Cat) (*db.Cat, error) {
	var stored db.Cat
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing db.Cat
		err := tx.Where("user_id = ?", cat.UserID).
			Order("created_at ASC, id ASC").
			Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			cat.ID = uuid.NewString()
			if err := tx.Create(&cat).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			cat.ID = existing.ID
			cat.CreatedAt = existing.CreatedAt
			cat.IsSample = existing.IsSample
			if err := tx.Model(&existing).Select(
				"name", "age", "breed", "bio", "photos", "image", "owner_name", "owner_photo", "updated_at",
			).Updates(&cat).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", cat.ID).Take(&stored).Error
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}
