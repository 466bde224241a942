// Package profile manages user accounts and their cat profiles.
package profile

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/catmatch/internal/app"
	"github.com/oggyb/catmatch/internal/db"
	svcErr "github.com/oggyb/catmatch/internal/errors"
	"github.com/oggyb/catmatch/internal/repository"
)

// AnonymousOwner is the owner name used when the owner has no display name.
const AnonymousOwner = "Anonymous"

type Service struct {
	appCtx   *app.AppContext
	userRepo *repository.UserRepository
	catRepo  *repository.CatRepository
}

func NewProfileService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		userRepo: repository.NewUserRepository(appCtx.DB),
		catRepo:  repository.NewCatRepository(appCtx.DB),
	}
}

// UpdateUser merges the supplied fields into the caller's account, creating
// it on first use.
func (s *Service) UpdateUser(ctx context.Context, userID string, patch repository.UserPatch) (*db.User, error) {
	if patch.Empty() {
		return nil, svcErr.InvalidArgument("no profile fields supplied")
	}
	u, err := s.userRepo.Merge(ctx, userID, patch)
	if err != nil {
		s.appCtx.Logger.Error("UpdateUser failed", "user", userID, "err", err)
		return nil, svcErr.Map(err)
	}
	return u, nil
}

// CatInput is the editable part of a cat profile.
type CatInput struct {
	Name   string   `json:"name"`
	Age    int      `json:"age"`
	Breed  string   `json:"breed"`
	Bio    string   `json:"bio"`
	Photos []string `json:"photos"`
}

// UpsertCat writes the caller's cat profile.
//
// Behavior:
//   - name, age > 0 and breed are required.
//   - Owner name and photo are copied from the account ("Anonymous" when
//     unknown).
//   - image is the first photo, or the placeholder.
//   - An existing profile keeps its id and creation time.
func (s *Service) UpsertCat(ctx context.Context, userID string, in CatInput) (*db.Cat, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Breed = strings.TrimSpace(in.Breed)
	if in.Name == "" || in.Age <= 0 || in.Breed == "" {
		return nil, svcErr.InvalidArgument("Name, age, and breed are required")
	}

	cat := db.Cat{
		UserID:    userID,
		Name:      in.Name,
		Age:       in.Age,
		Breed:     in.Breed,
		Bio:       in.Bio,
		Photos:    nonEmpty(in.Photos),
		Image:     db.DefaultCatImage,
		OwnerName: AnonymousOwner,
	}
	if len(cat.Photos) > 0 {
		cat.Image = cat.Photos[0]
	}

	owner, err := s.userRepo.Get(ctx, userID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return nil, svcErr.Map(err)
	default:
		if owner.DisplayName != "" {
			cat.OwnerName = owner.DisplayName
		}
		cat.OwnerPhoto = owner.PhotoURL
	}

	stored, err := s.catRepo.UpsertByOwner(ctx, cat)
	if err != nil {
		s.appCtx.Logger.Error("UpsertCat failed", "user", userID, "err", err)
		return nil, svcErr.Map(err)
	}
	return stored, nil
}

// Owner is the public view of a cat's owner.
type Owner struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoURL"`
}

// CatWithOwner is a cat merged with its resolved owner.
type CatWithOwner struct {
	db.Cat
	Owner *Owner `json:"owner"`
}

// GetCat returns the cat and, when it can be resolved, its owner. A failed
// owner lookup is logged and otherwise ignored.
func (s *Service) GetCat(ctx context.Context, catID string) (*CatWithOwner, error) {
	if catID == "" {
		return nil, svcErr.InvalidArgument("Cat ID is required")
	}
	cat, err := s.catRepo.Get(ctx, catID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("Cat not found")
	} else if err != nil {
		return nil, svcErr.Map(err)
	}

	out := &CatWithOwner{Cat: *cat}
	if cat.UserID == "" {
		return out, nil
	}
	u, err := s.userRepo.Get(ctx, cat.UserID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.appCtx.Logger.Warn("owner lookup failed", "cat_id", catID, "owner", cat.UserID, "err", err)
		}
		return out, nil
	}
	out.Owner = &Owner{
		ID:       u.ID,
		Name:     firstNonEmpty(u.DisplayName, "Unknown"),
		Email:    u.Email,
		PhotoURL: u.PhotoURL,
	}
	return out, nil
}

// Me is the caller's own account and cat.
type Me struct {
	User            *db.User `json:"user"`
	Cat             *db.Cat  `json:"cat"`
	ProfileComplete bool     `json:"profileComplete"`
}

// GetMe returns whatever the caller has set up so far. Nothing set up yet
// is not an error.
func (s *Service) GetMe(ctx context.Context, userID string) (*Me, error) {
	me := &Me{}

	u, err := s.userRepo.Get(ctx, userID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		me.User = &db.User{ID: userID}
	case err != nil:
		return nil, svcErr.Map(err)
	default:
		me.User = u
	}

	if me.Cat, err = s.catRepo.FirstByOwner(ctx, userID); err != nil {
		return nil, svcErr.Map(err)
	}
	me.ProfileComplete = me.Cat != nil
	return me, nil
}

func nonEmpty(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
