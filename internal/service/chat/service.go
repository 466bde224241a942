// Package chat is the per-match message log, its unread counters and the
// scripted bot participants.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/catmatch/internal/app"
	"github.com/oggyb/catmatch/internal/db"
	svcErr "github.com/oggyb/catmatch/internal/errors"
	"github.com/oggyb/catmatch/internal/repository"
	"github.com/oggyb/catmatch/internal/utils/pagination"
)

const defaultPreviewRunes = 100

// Service implements the chat endpoints.
type Service struct {
	appCtx      *app.AppContext
	matchRepo   *repository.MatchRepository
	messageRepo *repository.MessageRepository
	bot         *BotResponder
	previewMax  int
}

// NewChatService wires the repositories and the bot responder.
func NewChatService(appCtx *app.AppContext) *Service {
	s := &Service{
		appCtx:      appCtx,
		matchRepo:   repository.NewMatchRepository(appCtx.DB),
		messageRepo: repository.NewMessageRepository(appCtx.DB),
		previewMax:  appCtx.Config.Chat.PreviewMaxRune,
	}
	if s.previewMax <= 0 {
		s.previewMax = defaultPreviewRunes
	}
	s.bot = newBotResponder(
		appCtx.Config.Chat.BotPrefix,
		appCtx.Config.Chat.BotMinDelay,
		appCtx.Config.Chat.BotMaxDelay,
		func(ctx context.Context, matchID, botID, content string) error {
			m, err := s.matchRepo.Get(ctx, matchID)
			if err != nil {
				return err
			}
			_, err = s.append(ctx, m, botID, content)
			return err
		},
		appCtx.Logger,
		appCtx.Metrics,
	)
	return s
}

// Bot exposes the responder so shutdown can wait for pending replies.
func (s *Service) Bot() *BotResponder {
	return s.bot
}

// authorize loads the match and checks requesterID is a participant. A
// missing match is reported the same way as a foreign one.
func (s *Service) authorize(ctx context.Context, matchID, requesterID string) (*db.Match, error) {
	if matchID == "" {
		return nil, svcErr.InvalidArgument("Match ID is required")
	}
	m, err := s.matchRepo.Find(ctx, matchID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if m == nil || !m.HasUser(requesterID) {
		return nil, svcErr.Unauthorized("Unauthorized")
	}
	return m, nil
}

// List returns the transcript in timestamp order.
//
// Behavior:
//   - Non-participants (and unknown matches) → Unauthorized.
//   - after == "" → whole transcript, otherwise only newer messages.
//   - The returned cursor can be passed back as after.
func (s *Service) List(ctx context.Context, matchID, requesterID, after string) ([]db.Message, string, error) {
	if _, err := s.authorize(ctx, matchID, requesterID); err != nil {
		return nil, "", err
	}

	messages, next, err := s.messageRepo.List(ctx, matchID, after)
	if errors.Is(err, pagination.ErrInvalidToken) {
		return nil, "", svcErr.InvalidArgument("invalid cursor")
	} else if err != nil {
		s.appCtx.Logger.Error("List messages failed", "match_id", matchID, "err", err)
		return nil, "", svcErr.Map(err)
	}
	return messages, next, nil
}

// Post appends requesterID's message.
//
// Behavior:
//   - Non-participants → Unauthorized, nothing is written.
//   - Content is trimmed; empty → InvalidInput.
//   - The match's last activity and preview move forward.
//   - A bot on the other side answers later; the post never waits for it.
//
// Example:
//
//	svc.Post(ctx, matchID, "alice", "hello")
func (s *Service) Post(ctx context.Context, matchID, requesterID, content string) (*db.Message, error) {
	m, err := s.authorize(ctx, matchID, requesterID)
	if err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, svcErr.InvalidArgument("Match ID and content are required")
	}

	msg, err := s.append(ctx, m, requesterID, content)
	if err != nil {
		s.appCtx.Logger.Error("Post message failed", "match_id", matchID, "err", err)
		return nil, svcErr.Map(err)
	}

	if other, ok := m.OtherUser(requesterID); ok && s.bot.IsBot(other) {
		s.bot.Schedule(m.ID, other)
	}
	return msg, nil
}

// append writes the message and updates everything derived from it. Only
// the message insert is fatal; the rest is rebuilt on the next read.
func (s *Service) append(ctx context.Context, m *db.Match, senderID, content string) (*db.Message, error) {
	msg, err := s.messageRepo.Append(ctx, m.ID, senderID, content)
	if err != nil {
		return nil, err
	}

	if err := s.matchRepo.Touch(ctx, m.ID, truncateRunes(content, s.previewMax), msg.CreatedAt); err != nil {
		s.appCtx.Logger.Warn("match activity update failed", "match_id", m.ID, "err", err)
	}

	author := "user"
	if s.bot.IsBot(senderID) {
		author = "bot"
	}
	s.appCtx.Metrics.ObserveMessage(author)

	if rc := s.appCtx.RedisCache; rc != nil {
		if other, ok := m.OtherUser(senderID); ok {
			if _, _, err := rc.IncrUnread(ctx, m.ID, other); err != nil {
				s.appCtx.Logger.Warn("unread increment failed", "match_id", m.ID, "err", err)
			}
		}
		if payload, err := json.Marshal(msg); err == nil {
			if err := rc.Publish(ctx, m.ID, payload); err != nil {
				s.appCtx.Logger.Warn("message publish failed", "match_id", m.ID, "err", err)
			}
		}
	}
	return msg, nil
}

// MarkRead flips every message from the other participant to read and
// drops requesterID's cached unread counter. Calling it again is a no-op.
func (s *Service) MarkRead(ctx context.Context, matchID, requesterID string) error {
	if _, err := s.authorize(ctx, matchID, requesterID); err != nil {
		return err
	}

	changed, err := s.messageRepo.MarkRead(ctx, matchID, requesterID)
	if err != nil {
		s.appCtx.Logger.Error("MarkRead failed", "match_id", matchID, "err", err)
		return svcErr.Map(err)
	}

	if rc := s.appCtx.RedisCache; rc != nil {
		if err := rc.ClearUnread(ctx, matchID, requesterID); err != nil {
			s.appCtx.Logger.Warn("unread clear failed", "match_id", matchID, "err", err)
		}
	}
	s.appCtx.Logger.Debug("messages marked read", "match_id", matchID, "reader", requesterID, "changed", changed)
	return nil
}

// Subscribe opens the live feed of new messages in matchID for a participant.
func (s *Service) Subscribe(ctx context.Context, matchID, requesterID string) (*redis.PubSub, error) {
	if _, err := s.authorize(ctx, matchID, requesterID); err != nil {
		return nil, err
	}
	if s.appCtx.RedisCache == nil {
		return nil, svcErr.Upstream("live updates unavailable", nil)
	}
	sub, err := s.appCtx.RedisCache.Subscribe(ctx, matchID)
	if err != nil {
		return nil, svcErr.Upstream("live updates unavailable", err)
	}
	return sub, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
