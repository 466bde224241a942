package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oggyb/catmatch/internal/db"
	"github.com/oggyb/catmatch/internal/utils/pagination"
)

// MessageRepository is the per-match chat log.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// Append stores a new unread message and returns it with id and timestamp set.
// Ids are time-ordered so messages sharing a millisecond keep insert order.
func (r *MessageRepository) Append(ctx context.Context, matchID, senderID, content string) (*db.Message, error) {
	msg := db.Message{
		ID:       uuid.Must(uuid.NewV7()).String(),
		MatchID:  matchID,
		SenderID: senderID,
		Content:  content,
		Read:     false,
	}
	if err := r.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// List returns the match's messages ordered by timestamp ascending.
//
// Behavior:
//   - Empty token → the whole transcript.
//   - Otherwise only messages strictly after the cursor position.
//   - The returned token points at the last message, or echoes the input
//     when nothing new arrived, so pollers can keep reusing it.
func (r *MessageRepository) List(ctx context.Context, matchID, token string) ([]db.Message, string, error) {
	cursor, err := pagination.Decode(token)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Table("messages m").
		Where("m.match_id = ?", matchID).
		Order("m.created_at ASC, m.id ASC")

	if cursor.ID != "" && cursor.CreatedUnix > 0 {
		ts := time.UnixMilli(cursor.CreatedUnix).UTC()
		query = query.Where(
			"(m.created_at > ? OR (m.created_at = ? AND m.id > ?))",
			ts, ts, cursor.ID,
		)
	}

	var messages []db.Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, "", err
	}

	next := token
	if n := len(messages); n > 0 {
		last := messages[n-1]
		next, _ = pagination.Encode(pagination.Cursor{
			ID:          last.ID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
	}
	return messages, next, nil
}

// MarkRead flips read on every unread message in the match that readerID
// did not author. Returns the number of rows changed; zero is fine.
func (r *MessageRepository) MarkRead(ctx context.Context, matchID, readerID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("match_id = ? AND sender_id <> ? AND is_read = ?", matchID, readerID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// CountUnread counts messages in the match readerID has not read yet.
func (r *MessageRepository) CountUnread(ctx context.Context, matchID, readerID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("match_id = ? AND sender_id <> ? AND is_read = ?", matchID, readerID, false).
		Count(&n).Error
	return n, err
}
