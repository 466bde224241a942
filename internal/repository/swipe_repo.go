package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/catmatch/internal/db"
)

// SwipeRepository provides data access methods for the Swipe model.
// It is the ledger of who decided what on which cat.
type SwipeRepository struct {
	db *gorm.DB
}

// NewSwipeRepository creates a new repository bound to the given DB connection.
func NewSwipeRepository(database *gorm.DB) *SwipeRepository {
	return &SwipeRepository{db: database}
}

// Upsert inserts or updates the decision made by userID on catID.
//
// Behavior:
//   - If (user_id, cat_id) exists → liked and updated_at are overwritten.
//   - If it doesn’t exist → a new row is inserted.
//   - Composite PK ensures one record per pair, so retries and double
//     submits converge (last write wins).
//
// Returns the stored row.
func (r *SwipeRepository) Upsert(
	ctx context.Context,
	userID, catID, catOwnerID string,
	liked bool,
) (*db.Swipe, error) {
	swipe := db.Swipe{
		UserID:     userID,
		CatID:      catID,
		CatOwnerID: catOwnerID,
		Liked:      liked,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "cat_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"liked", "cat_owner_id", "updated_at"}),
		}).
		Create(&swipe).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, userID, catID)
}

// Get returns the decision for the pair or gorm.ErrRecordNotFound.
func (r *SwipeRepository) Get(ctx context.Context, userID, catID string) (*db.Swipe, error) {
	var s db.Swipe
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND cat_id = ?", userID, catID).
		Take(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// LikedOneOf reports whether userID liked any of catIDs, returning the first
// such cat.
//
// Example:
//
//	repo.LikedOneOf(ctx, "bob", []string{"cat-a"}) // -> "cat-a", true if bob liked alice's cat
func (r *SwipeRepository) LikedOneOf(
	ctx context.Context,
	userID string,
	catIDs []string,
) (string, bool, error) {
	if userID == "" || len(catIDs) == 0 {
		return "", false, nil
	}

	var s db.Swipe
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND cat_id IN ? AND liked = ?", userID, catIDs, true).
		Order("updated_at DESC").
		Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return s.CatID, true, nil
}

// CountByUser returns how many cats userID has decided on.
func (r *SwipeRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
