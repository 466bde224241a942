package explore_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/catmatch/internal/app"
	"github.com/oggyb/catmatch/internal/auth"
	"github.com/oggyb/catmatch/internal/cache"
	"github.com/oggyb/catmatch/internal/config"
	"github.com/oggyb/catmatch/internal/db"
	"github.com/oggyb/catmatch/internal/db/dbtest"
	svcErr "github.com/oggyb/catmatch/internal/errors"
	"github.com/oggyb/catmatch/internal/logger"
	"github.com/oggyb/catmatch/internal/repository"
	"github.com/oggyb/catmatch/internal/server"
	"github.com/oggyb/catmatch/internal/service/explore"
)

//
// Test helpers
//

// seedPeople inserts a deterministic dataset:
//   - alice owns cat-a, bob owns cat-b, carol owns nothing
//   - dave owns cat-d
func seedPeople(t *testing.T, gdb *gorm.DB) {
	t.Helper()

	users := []db.User{
		{ID: "alice", DisplayName: "Alice", Email: "alice@test.com"},
		{ID: "bob", DisplayName: "Bob", Email: "bob@test.com"},
		{ID: "carol", DisplayName: "Carol"},
		{ID: "dave", DisplayName: "Dave"},
	}
	require.NoError(t, gdb.Create(&users).Error)

	cats := []db.Cat{
		{ID: "cat-a", UserID: "alice", Name: "Apollo", Age: 2, Breed: "Tabby", Image: db.DefaultCatImage},
		{ID: "cat-b", UserID: "bob", Name: "Biscuit", Age: 4, Breed: "Persian", Image: db.DefaultCatImage},
		{ID: "cat-d", UserID: "dave", Name: "Dot", Age: 1, Breed: "Mixed", Image: db.DefaultCatImage},
	}
	require.NoError(t, gdb.Create(&cats).Error)
}

// setup spins up an in-memory SQLite DB and a miniredis, seeds the people
// above, and wires everything into an AppContext.
func setup(t *testing.T) (*app.AppContext, *explore.Service) {
	t.Helper()

	dbase := dbtest.Open(t)
	seedPeople(t, dbase)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	cfg.Auth.Secret = "test-secret"
	cfg.Auth.Issuer = ""
	cfg.Auth.Audience = ""

	appCtx := app.New(cfg, dbase, cache.NewRedisCache(cfg), logger.Nop(), nil)
	return appCtx, explore.NewExploreService(appCtx)
}

func countMatches(t *testing.T, gdb *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(&db.Match{}).Count(&n).Error)
	return n
}

//
// Tests
//

// TestRepeatedSwipesCollapse checks the last decision wins and only one row
// per (user, cat) exists.
func TestRepeatedSwipesCollapse(t *testing.T) {
	ctx := context.Background()
	appCtx, svc := setup(t)

	_, err := svc.Swipe(ctx, "alice", "cat-b", true)
	require.NoError(t, err)
	res, err := svc.Swipe(ctx, "alice", "cat-b", false)
	require.NoError(t, err)
	assert.False(t, res.Swipe.Liked)

	var rows []db.Swipe
	require.NoError(t, appCtx.DB.Where("user_id = ?", "alice").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Liked)
}

// TestConcurrentSwipesConverge fires the same decision from many goroutines;
// one ledger row and at most one match record survive.
func TestConcurrentSwipesConverge(t *testing.T) {
	ctx := context.Background()
	appCtx, svc := setup(t)

	const n = 8
	start := make(chan struct{})
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Swipe(ctx, "alice", "cat-b", true)
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var swipes int64
	require.NoError(t, appCtx.DB.Model(&db.Swipe{}).Where("user_id = ?", "alice").Count(&swipes).Error)
	assert.Equal(t, int64(1), swipes)
	assert.Equal(t, int64(1), countMatches(t, appCtx.DB))
}

// TestConcurrentMutualLikesLeaveOneMatch runs both halves of a mutual like
// at the same time.
func TestConcurrentMutualLikesLeaveOneMatch(t *testing.T) {
	ctx := context.Background()
	appCtx, svc := setup(t)

	start := make(chan struct{})
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, s := range []struct{ user, cat string }{{"alice", "cat-b"}, {"bob", "cat-a"}} {
		wg.Add(1)
		go func(user, cat string) {
			defer wg.Done()
			<-start
			_, err := svc.Swipe(ctx, user, cat, true)
			errs <- err
		}(s.user, s.cat)
	}
	close(start)
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var records []db.Match
	require.NoError(t, appCtx.DB.Find(&records).Error)
	require.Len(t, records, 1)
	assert.Equal(t, db.MatchStatusMatched, records[0].Status)
}

// TestRacingLikesAreFolded starts from what two likes that missed each
// other's lookup leave behind: a record over each cat. The next reconcile
// keeps the smaller id, marks it matched and moves the chat over.
func TestRacingLikesAreFolded(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := setup(t)

	swipes := repository.NewSwipeRepository(appCtx.DB)
	_, err := swipes.Upsert(ctx, "alice", "cat-b", "bob", true)
	require.NoError(t, err)
	_, err = swipes.Upsert(ctx, "bob", "cat-a", "alice", true)
	require.NoError(t, err)

	overB := db.MatchID("alice", "bob", "cat-b")
	overA := db.MatchID("alice", "bob", "cat-a")
	keep, drop := overA, overB
	if overB < overA {
		keep, drop = overB, overA
	}
	records := []db.Match{
		{ID: overB, UserA: "alice", UserB: "bob", CatID: "cat-b", Status: db.MatchStatusPending},
		{ID: overA, UserA: "alice", UserB: "bob", CatID: "cat-a", Status: db.MatchStatusMatched},
	}
	require.NoError(t, appCtx.DB.Create(&records).Error)
	require.NoError(t, appCtx.DB.Create(&db.Message{ID: "msg-1", MatchID: drop, SenderID: "bob", Content: "hi"}).Error)

	var cat db.Cat
	require.NoError(t, appCtx.DB.Where("id = ?", "cat-b").Take(&cat).Error)
	out, err := explore.NewReconciler(appCtx.DB, appCtx.Logger, appCtx.Metrics).Reconcile(ctx, "alice", &cat)
	require.NoError(t, err)

	assert.True(t, out.IsMatch)
	assert.Equal(t, keep, out.MatchID)
	assert.Equal(t, db.MatchStatusMatched, out.Status)

	var left []db.Match
	require.NoError(t, appCtx.DB.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, keep, left[0].ID)

	var msg db.Message
	require.NoError(t, appCtx.DB.Where("id = ?", "msg-1").Take(&msg).Error)
	assert.Equal(t, keep, msg.MatchID)
}

// TestCandidatesExcludeOwnAndSwiped never returns the requester's cat or a
// cat they already decided on.
func TestCandidatesExcludeOwnAndSwiped(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)

	cats, err := svc.ListCandidates(ctx, "alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"cat-b", "cat-d"}, catIDs(cats))

	_, err = svc.Swipe(ctx, "alice", "cat-d", false)
	require.NoError(t, err)

	cats, err = svc.ListCandidates(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"cat-b"}, catIDs(cats))

	_, err = svc.Swipe(ctx, "alice", "cat-b", true)
	require.NoError(t, err)

	cats, err = svc.ListCandidates(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, cats)
}

// TestPendingThenMutualUpgrade: alice likes B (pending), bob likes A, the
// same record becomes matched.
func TestPendingThenMutualUpgrade(t *testing.T) {
	ctx := context.Background()
	appCtx, svc := setup(t)

	res, err := svc.Swipe(ctx, "alice", "cat-b", true)
	require.NoError(t, err)
	assert.False(t, res.Outcome.IsMatch)
	assert.Equal(t, db.MatchStatusPending, res.Outcome.Status)
	pendingID := res.Outcome.MatchID
	assert.Equal(t, db.MatchID("alice", "bob", "cat-b"), pendingID)

	res, err = svc.Swipe(ctx, "bob", "cat-a", true)
	require.NoError(t, err)
	assert.True(t, res.Outcome.IsMatch)
	assert.False(t, res.Outcome.IsSample)
	assert.Equal(t, pendingID, res.Outcome.MatchID)

	assert.Equal(t, int64(1), countMatches(t, appCtx.DB))

	var m db.Match
	require.NoError(t, appCtx.DB.Where("id = ?", pendingID).Take(&m).Error)
	assert.Equal(t, db.MatchStatusMatched, m.Status)
	assert.Equal(t, "alice", m.UserA)
	assert.Equal(t, "bob", m.UserB)
	assert.Equal(t, "Biscuit", m.UsersInfo["bob"].CatName)
	assert.Equal(t, "Apollo", m.UsersInfo["alice"].CatName)
}

// TestSampleCatMatchesImmediately needs no reciprocal action.
func TestSampleCatMatchesImmediately(t *testing.T) {
	ctx := context.Background()
	appCtx, svc := setup(t)

	_, err := db.SeedSampleData(appCtx.DB, false)
	require.NoError(t, err)

	res, err := svc.Swipe(ctx, "alice", "sample-whiskers", true)
	require.NoError(t, err)
	assert.True(t, res.Outcome.IsMatch)
	assert.True(t, res.Outcome.IsSample)
	assert.Equal(t, db.MatchStatusMatched, res.Outcome.Status)
}

// TestRepeatLikeNeverDuplicates re-runs the same like.
func TestRepeatLikeNeverDuplicates(t *testing.T) {
	ctx := context.Background()
	appCtx, svc := setup(t)

	for i := 0; i < 3; i++ {
		_, err := svc.Swipe(ctx, "alice", "cat-b", true)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), countMatches(t, appCtx.DB))
}

// TestMatchedNeverDowngrades: once matched, a like that is no longer mutual
// keeps the record matched.
func TestMatchedNeverDowngrades(t *testing.T) {
	ctx := context.Background()
	appCtx, svc := setup(t)

	_, err := svc.Swipe(ctx, "alice", "cat-b", true)
	require.NoError(t, err)
	_, err = svc.Swipe(ctx, "bob", "cat-a", true)
	require.NoError(t, err)

	// bob changes their mind, alice likes again
	_, err = svc.Swipe(ctx, "bob", "cat-a", false)
	require.NoError(t, err)
	res, err := svc.Swipe(ctx, "alice", "cat-b", true)
	require.NoError(t, err)

	assert.False(t, res.Outcome.IsMatch)
	assert.Equal(t, db.MatchStatusMatched, res.Outcome.Status)
	assert.Equal(t, int64(1), countMatches(t, appCtx.DB))
}

// TestLikerWithoutCatIsNeverMutual: carol has no cat, so bob cannot have
// liked one of carol's.
func TestLikerWithoutCatIsNeverMutual(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)

	res, err := svc.Swipe(ctx, "carol", "cat-b", true)
	require.NoError(t, err)
	assert.False(t, res.Outcome.IsMatch)
	assert.Equal(t, db.MatchStatusPending, res.Outcome.Status)
}

func TestSwipeValidation(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)

	_, err := svc.Swipe(ctx, "alice", "nope", true)
	assert.Equal(t, svcErr.KindNotFound, svcErr.KindOf(err))

	_, err = svc.Swipe(ctx, "alice", "", true)
	assert.Equal(t, svcErr.KindInvalidInput, svcErr.KindOf(err))

	_, err = svc.Swipe(ctx, "alice", "cat-a", true)
	assert.Equal(t, svcErr.KindInvalidInput, svcErr.KindOf(err))
}

// TestHTTPSwipeFlow drives the same scenario through the router.
func TestHTTPSwipeFlow(t *testing.T) {
	appCtx, _ := setup(t)
	signer := auth.NewSigner(appCtx.Config)
	router := server.NewRouter(appCtx, auth.NewJWTVerifier(appCtx.Config), explore.NewRegistrar(appCtx))

	do := func(uid, method, path, body string) *httptest.ResponseRecorder {
		token, err := signer.Sign(auth.Principal{UID: uid})
		require.NoError(t, err)
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := do("alice", http.MethodPost, "/api/swipe", `{"catId":"cat-b","liked":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var first map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, true, first["success"])
	assert.Equal(t, false, first["isMatch"])

	rec = do("bob", http.MethodPost, "/api/swipe", `{"catId":"cat-a","liked":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var second map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, true, second["isMatch"])
	assert.Equal(t, false, second["isSampleUser"])

	rec = do("alice", http.MethodPost, "/api/swipe", `{"catId":"missing","liked":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do("alice", http.MethodPost, "/api/swipe", `{"catId":"cat-d"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// alice has now decided on cat-b only, dave's cat is left
	rec = do("alice", http.MethodGet, "/api/cats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Success bool     `json:"success"`
		Message string   `json:"message"`
		Cats    []db.Cat `json:"cats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.True(t, list.Success)
	assert.Equal(t, []string{"cat-d"}, catIDs(list.Cats))

	do("alice", http.MethodPost, "/api/swipe", `{"catId":"cat-d","liked":false}`)
	rec = do("alice", http.MethodGet, "/api/cats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, explore.NoCandidatesMessage, list.Message)
	assert.Empty(t, list.Cats)
	assert.Contains(t, rec.Body.String(), `"cats":[]`)
}

func catIDs(cats []db.Cat) []string {
	ids := make([]string, 0, len(cats))
	for _, c := range cats {
		ids = append(ids, c.ID)
	}
	return ids
}
