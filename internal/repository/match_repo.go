package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/catmatch/internal/db"
)

// MatchRepository persists Match records keyed by db.MatchID.
type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// Get returns the match or gorm.ErrRecordNotFound.
func (r *MatchRepository) Get(ctx context.Context, id string) (*db.Match, error) {
	var m db.Match
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// Find is Get that reports absence as (nil, nil).
func (r *MatchRepository) Find(ctx context.Context, id string) (*db.Match, error) {
	m, err := r.Get(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return m, err
}

// Save writes m in a single conditional statement keyed by its id.
//
// Behavior:
//   - No row with m.ID → m is inserted as given.
//   - Row exists → users_info and last_activity are refreshed; status is
//     written only when m.Status is matched, so a pending write can never
//     downgrade a matched record.
//   - Two concurrent creators of the same pair+cat collide on the primary
//     key and converge on one row.
//
// Returns the stored row.
func (r *MatchRepository) Save(ctx context.Context, m *db.Match) (*db.Match, error) {
	if m.UserB < m.UserA {
		m.UserA, m.UserB = m.UserB, m.UserA
	}

	cols := []string{"users_info", "last_activity", "updated_at"}
	if m.Status == db.MatchStatusMatched {
		cols = append(cols, "status")
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(cols),
		}).
		Create(m).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, m.ID)
}

// ListForUser returns every match userID participates in, in creation order.
func (r *MatchRepository) ListForUser(ctx context.Context, userID string) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user_a = ? OR user_b = ?", userID, userID).
		Order("created_at ASC, id ASC").
		Find(&matches).Error
	return matches, err
}

// Touch records chat activity on the match.
func (r *MatchRepository) Touch(ctx context.Context, id, preview string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_activity": at,
			"last_message":  preview,
		}).Error
}

// FindMany returns the matches among ids that exist, ordered by id.
func (r *MatchRepository) FindMany(ctx context.Context, ids []string) ([]db.Match, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&matches).Error
	return matches, err
}

// Fold merges the records in dropIDs into keepID: keepID becomes matched,
// their messages move over and the dropped rows are removed. Running it
// again with the same arguments changes nothing.
func (r *MatchRepository) Fold(ctx context.Context, keepID string, dropIDs []string) (*db.Match, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&db.Match{}).
			Where("id = ?", keepID).
			Update("status", db.MatchStatusMatched).Error; err != nil {
			return err
		}
		if len(dropIDs) == 0 {
			return nil
		}
		if err := tx.Model(&db.Message{}).
			Where("match_id IN ?", dropIDs).
			Update("match_id", keepID).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", dropIDs).Delete(&db.Match{}).Error
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, keepID)
}
