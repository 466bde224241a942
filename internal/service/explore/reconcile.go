package explore

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/catmatch/internal/db"
	"github.com/oggyb/catmatch/internal/metrics"
	"github.com/oggyb/catmatch/internal/repository"
)

// Outcome is what a like resolved to.
type Outcome struct {
	IsMatch  bool
	IsSample bool
	MatchID  string
	Status   string
}

// Reconciler turns likes into Match records.
type Reconciler struct {
	users   *repository.UserRepository
	cats    *repository.CatRepository
	swipes  *repository.SwipeRepository
	matches *repository.MatchRepository
	log     *slog.Logger
	metrics *metrics.Metrics
}

func NewReconciler(database *gorm.DB, log *slog.Logger, m *metrics.Metrics) *Reconciler {
	return &Reconciler{
		users:   repository.NewUserRepository(database),
		cats:    repository.NewCatRepository(database),
		swipes:  repository.NewSwipeRepository(database),
		matches: repository.NewMatchRepository(database),
		log:     log,
		metrics: m,
	}
}

// Reconcile runs after deciderID liked cat.
//
// Behavior:
//   - Mutual when the cat's owner liked any cat deciderID owns. A decider
//     with no cat is never mutual.
//   - Sample cats match immediately.
//   - The record for (pair, cat) is updated in place when present. Failing
//     that, a mutual like upgrades the record the owner created over the
//     decider's cat. Otherwise a new record is written.
//   - Every write is keyed by db.MatchID, so concurrent creators converge
//     and status only ever moves pending → matched.
//   - Once mutual, a second record for the pair left by a racing like is
//     folded into one.
//
// Example:
//
//	// alice (cat A) liked B earlier → pending record over B.
//	r.Reconcile(ctx, "bob", catA) // → IsMatch, same record upgraded
func (r *Reconciler) Reconcile(ctx context.Context, deciderID string, cat *db.Cat) (Outcome, error) {
	ownerID := cat.UserID

	deciderCatIDs, err := r.cats.IDsByOwner(ctx, deciderID)
	if err != nil {
		return Outcome{}, err
	}
	likedCatID, mutual, err := r.swipes.LikedOneOf(ctx, ownerID, deciderCatIDs)
	if err != nil {
		return Outcome{}, err
	}
	isMatch := cat.IsSample || mutual

	target, err := r.matches.Find(ctx, db.MatchID(deciderID, ownerID, cat.ID))
	if err != nil {
		return Outcome{}, err
	}
	if target == nil && mutual {
		target, err = r.matches.Find(ctx, db.MatchID(deciderID, ownerID, likedCatID))
		if err != nil {
			return Outcome{}, err
		}
	}

	record := &db.Match{
		ID:     db.MatchID(deciderID, ownerID, cat.ID),
		CatID:  cat.ID,
		Status: db.MatchStatusPending,
	}
	if target != nil {
		record.ID = target.ID
		record.CatID = target.CatID
	}
	record.UserA, record.UserB = db.SortPair(deciderID, ownerID)
	if isMatch {
		record.Status = db.MatchStatusMatched
	}

	deciderSnap, err := r.snapshot(ctx, deciderID, nil)
	if err != nil {
		return Outcome{}, err
	}
	ownerSnap, err := r.snapshot(ctx, ownerID, cat)
	if err != nil {
		return Outcome{}, err
	}
	record.UsersInfo = map[string]db.ParticipantSnapshot{
		deciderID: deciderSnap,
		ownerID:   ownerSnap,
	}
	now := db.NowFunc()
	record.LastActivity = &now

	saved, err := r.matches.Save(ctx, record)
	if err != nil {
		return Outcome{}, err
	}

	// The owner's like may have landed after the first check.
	if !mutual {
		if _, mutual, err = r.swipes.LikedOneOf(ctx, ownerID, deciderCatIDs); err != nil {
			return Outcome{}, err
		}
	}
	if mutual {
		folded, merged, err := r.fold(ctx, saved, deciderID, ownerID, deciderCatIDs)
		if err != nil {
			return Outcome{}, err
		}
		if merged {
			saved, isMatch = folded, true
		}
	}

	via := "none"
	switch {
	case cat.IsSample:
		via = "sample"
	case isMatch:
		via = "mutual"
	}
	r.metrics.ObserveMatch(saved.Status, via)
	r.log.Debug("match reconciled",
		"match_id", saved.ID,
		"decider", deciderID,
		"owner", ownerID,
		"cat_id", saved.CatID,
		"status", saved.Status,
		"via", via,
	)

	return Outcome{
		IsMatch:  isMatch,
		IsSample: cat.IsSample,
		MatchID:  saved.ID,
		Status:   saved.Status,
	}, nil
}

// fold collapses saved with any record the owner created over one of the
// decider's cats. Two likes racing past each other's lookup each write their
// own record; whichever side sees both keeps the smaller id.
func (r *Reconciler) fold(ctx context.Context, saved *db.Match, deciderID, ownerID string, deciderCatIDs []string) (*db.Match, bool, error) {
	ids := make([]string, 0, len(deciderCatIDs))
	for _, catID := range deciderCatIDs {
		if id := db.MatchID(deciderID, ownerID, catID); id != saved.ID {
			ids = append(ids, id)
		}
	}
	others, err := r.matches.FindMany(ctx, ids)
	if err != nil || len(others) == 0 {
		return saved, false, err
	}

	candidates := []string{saved.ID}
	for _, m := range others {
		candidates = append(candidates, m.ID)
	}
	keep := candidates[0]
	for _, id := range candidates[1:] {
		if id < keep {
			keep = id
		}
	}
	var drop []string
	for _, id := range candidates {
		if id != keep {
			drop = append(drop, id)
		}
	}

	r.log.Info("folding duplicate match records", "keep", keep, "drop", drop)
	m, err := r.matches.Fold(ctx, keep, drop)
	return m, err == nil, err
}

// snapshot freezes the public view of userID and their cat. A nil cat is
// looked up by owner. Missing records leave fields blank.
func (r *Reconciler) snapshot(ctx context.Context, userID string, cat *db.Cat) (db.ParticipantSnapshot, error) {
	snap := db.ParticipantSnapshot{UserID: userID}

	u, err := r.users.Get(ctx, userID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return snap, err
	default:
		snap.DisplayName = u.DisplayName
		snap.Email = u.Email
		snap.PhotoURL = u.PhotoURL
	}

	if cat == nil {
		if cat, err = r.cats.FirstByOwner(ctx, userID); err != nil {
			return snap, err
		}
	}
	if cat != nil {
		snap.CatID = cat.ID
		snap.CatName = cat.Name
		snap.CatAge = cat.Age
		snap.CatBreed = cat.Breed
		snap.CatImage = cat.Image
		snap.CatBio = cat.Bio
		snap.IsSample = cat.IsSample
		if snap.DisplayName == "" {
			snap.DisplayName = cat.OwnerName
		}
		if snap.PhotoURL == "" {
			snap.PhotoURL = cat.OwnerPhoto
		}
	}
	return snap, nil
}
