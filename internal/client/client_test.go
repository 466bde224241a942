package client_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/catmatch/internal/app"
	"github.com/oggyb/catmatch/internal/auth"
	"github.com/oggyb/catmatch/internal/cache"
	"github.com/oggyb/catmatch/internal/client"
	"github.com/oggyb/catmatch/internal/config"
	"github.com/oggyb/catmatch/internal/db"
	"github.com/oggyb/catmatch/internal/db/dbtest"
	svcErr "github.com/oggyb/catmatch/internal/errors"
	"github.com/oggyb/catmatch/internal/logger"
	"github.com/oggyb/catmatch/internal/server"
	"github.com/oggyb/catmatch/internal/service/chat"
	"github.com/oggyb/catmatch/internal/service/explore"
	"github.com/oggyb/catmatch/internal/service/matches"
	"github.com/oggyb/catmatch/internal/service/profile"
)

type stack struct {
	appCtx *app.AppContext
	url    string
	signer *auth.Signer
}

// setup runs the whole API on an httptest server with the sample cats seeded.
func setup(t *testing.T) *stack {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	cfg.Auth.Secret = "test-secret"
	cfg.Auth.Issuer = ""
	cfg.Auth.Audience = ""
	cfg.Chat.BotMinDelay = time.Millisecond
	cfg.Chat.BotMaxDelay = 5 * time.Millisecond

	dbase := dbtest.Open(t)
	_, err = db.SeedSampleData(dbase, false)
	require.NoError(t, err)

	appCtx := app.New(cfg, dbase, cache.NewRedisCache(cfg), logger.Nop(), nil)
	chatReg := chat.NewRegistrar(appCtx)
	router := server.NewRouter(appCtx, auth.NewJWTVerifier(cfg),
		explore.NewRegistrar(appCtx),
		matches.NewRegistrar(appCtx),
		chatReg,
		profile.NewRegistrar(appCtx),
	)
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	t.Cleanup(chatReg.Service().Bot().Wait)

	return &stack{appCtx: appCtx, url: ts.URL, signer: auth.NewSigner(cfg)}
}

func (s *stack) client(t *testing.T, uid string) *client.Client {
	t.Helper()
	tok, err := s.signer.Sign(auth.Principal{UID: uid})
	require.NoError(t, err)
	return client.New(s.url, tok)
}

func TestDeckDedupsByOwnerAndDropsSwiped(t *testing.T) {
	ctx := context.Background()
	s := setup(t)

	bob := s.client(t, "bob")
	_, err := bob.UpdateCat(ctx, profile.CatInput{Name: "Biscuit", Age: 4, Breed: "Persian"})
	require.NoError(t, err)
	// a second profile for bob sneaks in directly
	require.NoError(t, s.appCtx.DB.Create(&db.Cat{ID: "bob-2", UserID: "bob", Name: "", Age: 1, Breed: "Mixed"}).Error)

	alice := client.NewState(s.client(t, "alice"))
	deck, err := alice.RefreshCats(ctx)
	require.NoError(t, err)

	owners := map[string]int{}
	for _, c := range deck {
		owners[c.UserID]++
		assert.NotEmpty(t, c.Name)
		assert.NotEmpty(t, c.Image)
	}
	assert.Equal(t, 1, owners["bob"])
	assert.Len(t, deck, 5) // four samples + bob

	_, err = alice.Pass(ctx, deck[0].ID)
	require.NoError(t, err)
	remaining, _ := alice.Available()
	assert.Len(t, remaining, 4)
	for _, c := range remaining {
		assert.NotEqual(t, deck[0].ID, c.ID)
	}
}

func TestLikeSampleAndChatWithBot(t *testing.T) {
	ctx := context.Background()
	s := setup(t)

	alice := client.NewState(s.client(t, "alice"))
	_, err := alice.RefreshCats(ctx)
	require.NoError(t, err)

	res, err := alice.Like(ctx, "sample-whiskers")
	require.NoError(t, err)
	assert.True(t, res.IsMatch)
	assert.True(t, res.IsSampleUser)

	liked := alice.LikedCats()
	require.Len(t, liked, 1)
	assert.Equal(t, "Whiskers", liked[0].Name)

	matchID := res.MatchID
	require.NotEmpty(t, matchID)

	var (
		mu   sync.Mutex
		seen []db.Message
	)
	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	poller := client.NewChatPoller(alice, matchID,
		client.WithInterval(10*time.Millisecond),
		client.WithLogger(logger.Nop()),
		client.OnNew(func(msgs []db.Message) {
			mu.Lock()
			seen = append(seen, msgs...)
			mu.Unlock()
		}),
	)
	done := make(chan error, 1)
	go func() { done <- poller.Run(pollCtx) }()

	_, err = alice.Send(ctx, matchID, "hello whiskers")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		for _, m := range alice.Transcript(matchID) {
			if m.SenderID == "bot_whiskers" {
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	transcript := alice.Transcript(matchID)
	require.Len(t, transcript, 2)
	assert.Equal(t, "hello whiskers", transcript[0].Content)
	assert.Contains(t, chat.BotReplies, transcript[1].Content)

	mu.Lock()
	defer mu.Unlock()
	assert.NotEmpty(t, seen)

	_, err = alice.RefreshMatches(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), alice.UnreadTotal())
	require.NoError(t, alice.MarkRead(ctx, matchID))
	assert.Zero(t, alice.UnreadTotal())
}

func TestAPIErrorKinds(t *testing.T) {
	ctx := context.Background()
	s := setup(t)

	_, err := s.client(t, "alice").Cat(ctx, "missing")
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, svcErr.KindNotFound, apiErr.Kind())
	assert.Equal(t, "Cat not found", apiErr.Message)

	_, err = client.New(s.url, "").Matches(ctx)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, svcErr.KindUnauthenticated, apiErr.Kind())

	_, _, err = s.client(t, "mallory").Messages(ctx, "whatever", "")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, svcErr.KindUnauthorized, apiErr.Kind())
}
