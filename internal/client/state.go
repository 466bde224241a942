package client

import (
	"context"
	"sync"

	"github.com/oggyb/catmatch/internal/db"
	"github.com/oggyb/catmatch/internal/service/matches"
)

// State holds eventually consistent copies of what the API last returned.
// All methods are safe for concurrent use.
type State struct {
	api *Client

	mu          sync.RWMutex
	available   []db.Cat
	noneMessage string
	matchViews  []matches.View
	transcripts map[string][]db.Message
	cursors     map[string]string
}

func NewState(api *Client) *State {
	return &State{
		api:         api,
		transcripts: make(map[string][]db.Message),
		cursors:     make(map[string]string),
	}
}

// RefreshCats reloads the candidate deck.
//
// Behavior:
//   - One card per owner; the first one the server sent wins.
//   - Cats belonging to an already matched participant are dropped.
//   - Missing name or image get display fallbacks.
func (s *State) RefreshCats(ctx context.Context) ([]db.Cat, error) {
	res, err := s.api.Cats(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make(map[string]bool, len(s.matchViews))
	for _, m := range s.matchViews {
		if m.IsMatch {
			matched[m.User.ID] = true
		}
	}

	seen := make(map[string]bool, len(res.Cats))
	deck := make([]db.Cat, 0, len(res.Cats))
	for _, c := range res.Cats {
		if seen[c.UserID] || matched[c.UserID] {
			continue
		}
		seen[c.UserID] = true
		if c.Name == "" {
			c.Name = matches.UnknownCatName
		}
		if c.Image == "" {
			c.Image = db.DefaultCatImage
		}
		deck = append(deck, c)
	}

	s.available = deck
	s.noneMessage = res.Message
	return cloneCats(deck), nil
}

// RefreshMatches reloads the match list.
func (s *State) RefreshMatches(ctx context.Context) ([]matches.View, error) {
	views, err := s.api.Matches(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.matchViews = views
	s.mu.Unlock()
	return append([]matches.View(nil), views...), nil
}

// Like records a like, drops the cat from the deck and, on a match,
// refreshes the match list.
func (s *State) Like(ctx context.Context, catID string) (*SwipeResult, error) {
	res, err := s.swipe(ctx, catID, true)
	if err != nil {
		return nil, err
	}
	if res.IsMatch {
		if _, err := s.RefreshMatches(ctx); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Pass records a pass and drops the cat from the deck.
func (s *State) Pass(ctx context.Context, catID string) (*SwipeResult, error) {
	return s.swipe(ctx, catID, false)
}

func (s *State) swipe(ctx context.Context, catID string, liked bool) (*SwipeResult, error) {
	res, err := s.api.Swipe(ctx, catID, liked)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	kept := s.available[:0]
	for _, c := range s.available {
		if c.ID != catID {
			kept = append(kept, c)
		}
	}
	s.available = kept
	s.mu.Unlock()
	return res, nil
}

// Available is the current deck and, when empty, the server's explanation.
func (s *State) Available() ([]db.Cat, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCats(s.available), s.noneMessage
}

func (s *State) Matches() []matches.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]matches.View(nil), s.matchViews...)
}

// LikedCats are the cats of every confirmed match.
func (s *State) LikedCats() []matches.CatView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []matches.CatView
	for _, m := range s.matchViews {
		if m.IsMatch {
			out = append(out, m.Cat)
		}
	}
	return out
}

// UnreadTotal sums unread counts over the cached match list.
func (s *State) UnreadTotal() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, m := range s.matchViews {
		n += m.UnreadCount
	}
	return n
}

// SyncChat fetches messages newer than the cached cursor and merges them.
// Returns only the messages that were not cached yet.
func (s *State) SyncChat(ctx context.Context, matchID string) ([]db.Message, error) {
	s.mu.RLock()
	cursor := s.cursors[matchID]
	s.mu.RUnlock()

	msgs, next, err := s.api.Messages(ctx, matchID, cursor)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if next != "" {
		s.cursors[matchID] = next
	}
	return s.merge(matchID, msgs), nil
}

// Send posts a message and adds it to the cached transcript right away.
func (s *State) Send(ctx context.Context, matchID, content string) (*db.Message, error) {
	msg, err := s.api.SendMessage(ctx, matchID, content)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.merge(matchID, []db.Message{*msg})
	s.mu.Unlock()
	return msg, nil
}

// MarkRead tells the server and zeroes the cached unread count.
func (s *State) MarkRead(ctx context.Context, matchID string) error {
	if err := s.api.MarkRead(ctx, matchID); err != nil {
		return err
	}
	s.mu.Lock()
	for i := range s.matchViews {
		if s.matchViews[i].MatchID == matchID {
			s.matchViews[i].UnreadCount = 0
		}
	}
	s.mu.Unlock()
	return nil
}

// Transcript is the cached conversation in arrival order.
func (s *State) Transcript(matchID string) []db.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]db.Message(nil), s.transcripts[matchID]...)
}

// merge appends msgs not yet cached. Caller holds s.mu.
func (s *State) merge(matchID string, msgs []db.Message) []db.Message {
	have := make(map[string]bool, len(s.transcripts[matchID]))
	for _, m := range s.transcripts[matchID] {
		have[m.ID] = true
	}
	var added []db.Message
	for _, m := range msgs {
		if have[m.ID] {
			continue
		}
		have[m.ID] = true
		s.transcripts[matchID] = append(s.transcripts[matchID], m)
		added = append(added, m)
	}
	return added
}

func cloneCats(cats []db.Cat) []db.Cat {
	return append([]db.Cat(nil), cats...)
}
