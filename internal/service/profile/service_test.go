package profile_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	"github.com/oggyb/catmatch/internal/service/profile"
)

func setup(t *testing.T) (*app.AppContext, *profile.Service) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	cfg.Auth.Secret = "test-secret"
	cfg.Auth.Issuer = ""
	cfg.Auth.Audience = ""

	appCtx := app.New(cfg, dbtest.Open(t), cache.NewRedisCache(cfg), logger.Nop(), nil)
	return appCtx, profile.NewProfileService(appCtx)
}

func ptr(s string) *string { return &s }

func TestUpsertCatValidation(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)

	for name, in := range map[string]profile.CatInput{
		"missing name":  {Age: 2, Breed: "Tabby"},
		"zero age":      {Name: "Tom", Breed: "Tabby"},
		"missing breed": {Name: "Tom", Age: 2},
	} {
		_, err := svc.UpsertCat(ctx, "alice", in)
		assert.Equal(t, svcErr.KindInvalidInput, svcErr.KindOf(err), name)
	}
}

func TestUpsertCatDenormalizesOwner(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)

	// no account yet
	cat, err := svc.UpsertCat(ctx, "alice", profile.CatInput{Name: "Tom", Age: 2, Breed: "Tabby"})
	require.NoError(t, err)
	assert.Equal(t, profile.AnonymousOwner, cat.OwnerName)
	assert.Equal(t, db.DefaultCatImage, cat.Image)

	_, err = svc.UpdateUser(ctx, "alice", repository.UserPatch{DisplayName: ptr("Alice"), PhotoURL: ptr("a.png")})
	require.NoError(t, err)

	updated, err := svc.UpsertCat(ctx, "alice", profile.CatInput{
		Name: "Tom", Age: 3, Breed: "Tabby", Photos: []string{"", "first.png", "second.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, cat.ID, updated.ID)
	assert.True(t, cat.CreatedAt.Equal(updated.CreatedAt))
	assert.Equal(t, "Alice", updated.OwnerName)
	assert.Equal(t, "a.png", updated.OwnerPhoto)
	assert.Equal(t, "first.png", updated.Image)
	assert.Equal(t, []string{"first.png", "second.png"}, updated.Photos)
}

func TestUpdateUserRejectsEmptyPatch(t *testing.T) {
	_, svc := setup(t)
	_, err := svc.UpdateUser(context.Background(), "alice", repository.UserPatch{})
	assert.Equal(t, svcErr.KindInvalidInput, svcErr.KindOf(err))
}

func TestGetCatAndMe(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)

	_, err := svc.GetCat(ctx, "nope")
	assert.Equal(t, svcErr.KindNotFound, svcErr.KindOf(err))

	me, err := svc.GetMe(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, me.ProfileComplete)
	assert.Equal(t, "bob", me.User.ID)

	_, err = svc.UpdateUser(ctx, "bob", repository.UserPatch{DisplayName: ptr("Bob"), Email: ptr("bob@test.com")})
	require.NoError(t, err)
	cat, err := svc.UpsertCat(ctx, "bob", profile.CatInput{Name: "Biscuit", Age: 4, Breed: "Persian"})
	require.NoError(t, err)

	got, err := svc.GetCat(ctx, cat.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Owner)
	assert.Equal(t, "Bob", got.Owner.Name)
	assert.Equal(t, "bob@test.com", got.Owner.Email)

	me, err = svc.GetMe(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, me.ProfileComplete)
	assert.Equal(t, cat.ID, me.Cat.ID)
}

func TestHTTPProfileRoutes(t *testing.T) {
	appCtx, _ := setup(t)
	signer := auth.NewSigner(appCtx.Config)
	router := server.NewRouter(appCtx, auth.NewJWTVerifier(appCtx.Config), profile.NewRegistrar(appCtx))

	tok, err := signer.Sign(auth.Principal{UID: "alice"})
	require.NoError(t, err)
	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/api/update-user", `{"displayName":"Alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodPost, "/api/cats/update", `{"name":"Tom","age":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodPost, "/api/cats/update", `{"name":"Tom","age":2,"breed":"Tabby","photos":["t.png"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var cat struct {
		Success   bool   `json:"success"`
		ID        string `json:"id"`
		OwnerName string `json:"ownerName"`
		Image     string `json:"image"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cat))
	assert.True(t, cat.Success)
	assert.Equal(t, "Alice", cat.OwnerName)
	assert.Equal(t, "t.png", cat.Image)

	rec = do(http.MethodGet, "/api/cats/"+cat.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var withOwner struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Owner struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"owner"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &withOwner))
	assert.Equal(t, cat.ID, withOwner.ID)
	assert.Equal(t, "Tom", withOwner.Name)
	assert.Equal(t, "alice", withOwner.Owner.ID)

	rec = do(http.MethodGet, "/api/cats/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cat not found")
}
