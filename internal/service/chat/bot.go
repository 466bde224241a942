package chat

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oggyb/catmatch/internal/metrics"
)

// BotReplies is the fixed set a bot picks from.
var BotReplies = []string{
	"Meow! 😺",
	"Meow meow! 🐱",
	"Purrrrr... 😻",
	"Meow meow meow! 🐾",
	"Mrow! 😸",
	"Prrrr... meow! 🐈",
}

// postFunc appends a message on behalf of a bot.
type postFunc func(ctx context.Context, matchID, botID, content string) error

// BotResponder answers messages sent to synthetic participants after a short
// random delay. Replies run detached from the request that triggered them; a
// reply pending at process exit is lost.
type BotResponder struct {
	prefix   string
	minDelay time.Duration
	maxDelay time.Duration
	post     postFunc
	log      *slog.Logger
	metrics  *metrics.Metrics

	mu  sync.Mutex
	rnd *rand.Rand
	wg  sync.WaitGroup
}

func newBotResponder(prefix string, minDelay, maxDelay time.Duration, post postFunc, log *slog.Logger, m *metrics.Metrics) *BotResponder {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &BotResponder{
		prefix:   prefix,
		minDelay: minDelay,
		maxDelay: maxDelay,
		post:     post,
		log:      log,
		metrics:  m,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// IsBot reports whether userID lives in the reserved bot namespace.
func (b *BotResponder) IsBot(userID string) bool {
	return b.prefix != "" && strings.HasPrefix(userID, b.prefix)
}

// Schedule queues one reply from botID into matchID and returns immediately.
func (b *BotResponder) Schedule(matchID, botID string) {
	delay, reply := b.pick()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := b.post(ctx, matchID, botID, reply); err != nil {
			b.metrics.ObserveBotReply("error")
			b.log.Error("bot reply failed", "match_id", matchID, "bot", botID, "err", err)
			return
		}
		b.metrics.ObserveBotReply("sent")
		b.log.Debug("bot replied", "match_id", matchID, "bot", botID, "delay", delay)
	}()
}

// Wait blocks until every scheduled reply has run.
func (b *BotResponder) Wait() {
	b.wg.Wait()
}

func (b *BotResponder) pick() (time.Duration, string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := b.minDelay
	if span := b.maxDelay - b.minDelay; span > 0 {
		delay += time.Duration(b.rnd.Int63n(int64(span)))
	}
	return delay, BotReplies[b.rnd.Intn(len(BotReplies))]
}
