package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/oggyb/catmatch/internal/db"
)

// DefaultPollInterval is how often an open chat is refreshed.
const DefaultPollInterval = 5 * time.Second

// ChatPoller keeps one match's transcript fresh by polling. Staleness of up
// to one interval is expected.
type ChatPoller struct {
	state    *State
	matchID  string
	interval time.Duration
	onNew    func([]db.Message)
	log      *slog.Logger
}

type PollerOption func(*ChatPoller)

func WithInterval(d time.Duration) PollerOption {
	return func(p *ChatPoller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// OnNew is called with each batch of messages not seen before.
func OnNew(fn func([]db.Message)) PollerOption {
	return func(p *ChatPoller) { p.onNew = fn }
}

func WithLogger(l *slog.Logger) PollerOption {
	return func(p *ChatPoller) { p.log = l }
}

func NewChatPoller(state *State, matchID string, opts ...PollerOption) *ChatPoller {
	p := &ChatPoller{
		state:    state,
		matchID:  matchID,
		interval: DefaultPollInterval,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run syncs immediately and then every interval until ctx is done. Failed
// polls are logged and retried on the next tick.
func (p *ChatPoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.poll(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *ChatPoller) poll(ctx context.Context) {
	added, err := p.state.SyncChat(ctx, p.matchID)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn("chat poll failed", "match_id", p.matchID, "err", err)
		}
		return
	}
	if len(added) > 0 && p.onNew != nil {
		p.onNew(added)
	}
}
