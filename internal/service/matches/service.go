// Package matches projects Match records into the requester's point of view.
package matches

import (
	"context"
	"sort"
	"time"

	"github.com/oggyb/catmatch/internal/app"
	"github.com/oggyb/catmatch/internal/db"
	svcErr "github.com/oggyb/catmatch/internal/errors"
	"github.com/oggyb/catmatch/internal/repository"
)

// Fallbacks for participants whose snapshot is incomplete.
const (
	UnknownCatName  = "Unknown Cat"
	UnknownCatBreed = "Mixed"
	UnknownCatBio   = "A lovely cat looking for a friend"
	UnknownUserName = "Unknown User"
	PlaceholderCat  = "https://placekitten.com/300/300"
	unknownCatAge   = 1
)

type CatView struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Breed    string `json:"breed"`
	Image    string `json:"image"`
	Bio      string `json:"bio"`
	IsSample bool   `json:"isSample"`
}

type UserView struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	PhotoURL *string `json:"photoURL"`
	Email    *string `json:"email"`
}

// View is one match as seen by a participant: the other side's cat and user.
type View struct {
	MatchID      string    `json:"matchId"`
	Cat          CatView   `json:"cat"`
	User         UserView  `json:"user"`
	Status       string    `json:"status"`
	IsMatch      bool      `json:"isMatch"`
	LastMessage  string    `json:"lastMessage,omitempty"`
	UnreadCount  int64     `json:"unreadCount"`
	LastActivity time.Time `json:"lastActivity"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Service struct {
	appCtx      *app.AppContext
	matchRepo   *repository.MatchRepository
	messageRepo *repository.MessageRepository
	now         func() time.Time
}

func NewMatchesService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:      appCtx,
		matchRepo:   repository.NewMatchRepository(appCtx.DB),
		messageRepo: repository.NewMessageRepository(appCtx.DB),
		now:         db.NowFunc,
	}
}

// List returns every match requesterID takes part in, most recently active
// first.
//
// Behavior:
//   - No record is dropped for missing snapshot data; fallbacks fill in.
//   - Sort key is last activity, then creation time, then now. Ties keep
//     stored order.
//   - Unread counts come from Redis and are rebuilt from the DB on a miss.
func (s *Service) List(ctx context.Context, requesterID string) ([]View, error) {
	if requesterID == "" {
		return nil, svcErr.Unauthenticated("missing principal")
	}

	records, err := s.matchRepo.ListForUser(ctx, requesterID)
	if err != nil {
		s.appCtx.Logger.Error("ListForUser failed", "requester", requesterID, "err", err)
		return nil, svcErr.Map(err)
	}

	now := s.now()
	views := make([]View, 0, len(records))
	for i := range records {
		v := Project(&records[i], requesterID, now)
		v.UnreadCount = s.unread(ctx, v.MatchID, requesterID)
		views = append(views, v)
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].LastActivity.After(views[j].LastActivity)
	})

	s.appCtx.Logger.Debug("ListMatches result", "requester", requesterID, "count", len(views))
	return views, nil
}

// Project reshapes m for requesterID. LastActivity is already resolved
// through its fallbacks.
func Project(m *db.Match, requesterID string, now time.Time) View {
	otherID, _ := m.OtherUser(requesterID)
	info := m.UsersInfo[otherID]

	cat := CatView{
		ID:       info.CatID,
		UserID:   otherID,
		Name:     firstNonEmpty(info.CatName, UnknownCatName),
		Age:      info.CatAge,
		Breed:    firstNonEmpty(info.CatBreed, UnknownCatBreed),
		Image:    firstNonEmpty(info.CatImage, info.PhotoURL, PlaceholderCat),
		Bio:      firstNonEmpty(info.CatBio, UnknownCatBio),
		IsSample: info.IsSample,
	}
	if cat.Age <= 0 {
		cat.Age = unknownCatAge
	}

	user := UserView{
		ID:   otherID,
		Name: firstNonEmpty(info.DisplayName, UnknownUserName),
	}
	if photo := firstNonEmpty(info.PhotoURL, info.CatImage); photo != "" {
		user.PhotoURL = &photo
	}
	if info.Email != "" {
		email := info.Email
		user.Email = &email
	}

	created := m.CreatedAt
	if created.IsZero() {
		created = now
	}
	last := created
	if m.LastActivity != nil && !m.LastActivity.IsZero() {
		last = *m.LastActivity
	}

	status := m.Status
	if status == "" {
		status = db.MatchStatusPending
	}

	return View{
		MatchID:      m.ID,
		Cat:          cat,
		User:         user,
		Status:       status,
		IsMatch:      status == db.MatchStatusMatched,
		LastMessage:  m.LastMessage,
		LastActivity: last,
		CreatedAt:    created,
	}
}

func (s *Service) unread(ctx context.Context, matchID, userID string) int64 {
	if rc := s.appCtx.RedisCache; rc != nil {
		n, ok, err := rc.GetUnread(ctx, matchID, userID)
		if err == nil && ok {
			return n
		}
		if err != nil {
			s.appCtx.Logger.Warn("unread cache read failed", "match_id", matchID, "err", err)
		}
	}

	n, err := s.messageRepo.CountUnread(ctx, matchID, userID)
	if err != nil {
		s.appCtx.Logger.Warn("unread count failed", "match_id", matchID, "err", err)
		return 0
	}
	if rc := s.appCtx.RedisCache; rc != nil {
		_ = rc.SetUnread(ctx, matchID, userID, n)
	}
	return n
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
