package explore

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/catmatch/internal/app"
	"github.com/oggyb/catmatch/internal/db"
	svcErr "github.com/oggyb/catmatch/internal/errors"
	"github.com/oggyb/catmatch/internal/repository"
)

// Service implements candidate discovery and swiping.
// It contains the business logic on top of the repository layer; the HTTP
// handlers in register.go only translate requests.
type Service struct {
	appCtx     *app.AppContext
	catRepo    *repository.CatRepository
	swipeRepo  *repository.SwipeRepository
	reconciler *Reconciler

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewExploreService creates a new Explore service with dependencies from AppContext.
func NewExploreService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:     appCtx,
		catRepo:    repository.NewCatRepository(appCtx.DB),
		swipeRepo:  repository.NewSwipeRepository(appCtx.DB),
		reconciler: NewReconciler(appCtx.DB, appCtx.Logger, appCtx.Metrics),
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SwipeResult is the persisted decision plus what reconciliation made of it.
type SwipeResult struct {
	Swipe   *db.Swipe
	Outcome Outcome
}

// ListCandidates returns cats requesterID may still swipe on, shuffled.
//
// Behavior:
//   - Excludes the requester's own cats and cats without an owner.
//   - Excludes every cat the requester already liked or passed.
//   - Order differs per call; there is no cursor.
//   - An empty slice is a valid answer, not an error.
func (s *Service) ListCandidates(ctx context.Context, requesterID string) ([]db.Cat, error) {
	if requesterID == "" {
		return nil, svcErr.Unauthenticated("missing principal")
	}

	cats, err := s.catRepo.ListCandidates(ctx, requesterID)
	if err != nil {
		s.appCtx.Logger.Error("ListCandidates failed", "requester", requesterID, "err", err)
		return nil, svcErr.Map(err)
	}

	s.mu.Lock()
	s.rnd.Shuffle(len(cats), func(i, j int) { cats[i], cats[j] = cats[j], cats[i] })
	s.mu.Unlock()

	if s.appCtx.Logger.Enabled(ctx, slog.LevelDebug) {
		total, _ := s.catRepo.Count(ctx)
		swiped, _ := s.swipeRepo.CountByUser(ctx, requesterID)
		s.appCtx.Logger.Debug("ListCandidates result",
			"requester", requesterID,
			"total", total,
			"swiped", swiped,
			"available", len(cats),
		)
	}
	s.appCtx.Metrics.Candidates.Observe(float64(len(cats)))

	return cats, nil
}

// Swipe records userID's decision on catID and, for likes, reconciles the
// match.
//
// Behavior:
//   - Unknown cat → NotFound. Own cat → InvalidInput.
//   - The decision row is overwritten on repeat (last write wins).
//   - A failed reconciliation leaves the decision in place; retrying the
//     same like re-derives the same outcome.
//
// Example:
//
//	svc.Swipe(ctx, "alice", "cat-b", true)
func (s *Service) Swipe(ctx context.Context, userID, catID string, liked bool) (*SwipeResult, error) {
	catID = strings.TrimSpace(catID)
	if catID == "" {
		return nil, svcErr.InvalidArgument("catId is required")
	}

	cat, err := s.catRepo.Get(ctx, catID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("Cat not found")
	} else if err != nil {
		return nil, svcErr.Map(err)
	}
	if cat.UserID == userID {
		return nil, svcErr.InvalidArgument("cannot swipe on your own cat")
	}

	swipe, err := s.swipeRepo.Upsert(ctx, userID, cat.ID, cat.UserID, liked)
	if err != nil {
		s.appCtx.Logger.Error("swipe upsert failed", "user", userID, "cat_id", catID, "err", err)
		return nil, svcErr.Map(err)
	}
	s.appCtx.Metrics.ObserveSwipe(liked)

	res := &SwipeResult{Swipe: swipe}
	if !liked {
		return res, nil
	}

	res.Outcome, err = s.reconciler.Reconcile(ctx, userID, cat)
	if err != nil {
		s.appCtx.Logger.Error("match reconciliation failed", "user", userID, "cat_id", catID, "err", err)
		return nil, svcErr.Upstream("Failed to process swipe", err)
	}
	return res, nil
}
