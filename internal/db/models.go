package db

import (
	"time"
)

const (
	MatchStatusPending = "pending"
	MatchStatusMatched = "matched"
)

// User is an account keyed by the identity provider's principal id.
type User struct {
	ID          string    `gorm:"primaryKey;size:128" json:"id"`
	DisplayName string    `gorm:"size:128" json:"displayName"`
	Email       string    `gorm:"size:255" json:"email"`
	PhotoURL    string    `gorm:"size:1024" json:"photoURL"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Cat is a swipeable profile. One per owner in practice; nothing enforces it.
type Cat struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     string    `gorm:"size:128;not null;index:idx_cats_user" json:"userId"`
	Name       string    `gorm:"size:64;not null" json:"name"`
	Age        int       `gorm:"not null" json:"age"`
	Breed      string    `gorm:"size:64;not null" json:"breed"`
	Bio        string    `gorm:"size:1024" json:"bio"`
	Photos     []string  `gorm:"serializer:json;type:text" json:"photos"`
	Image      string    `gorm:"size:1024" json:"image"`
	OwnerName  string    `gorm:"size:128" json:"ownerName"`
	OwnerPhoto string    `gorm:"size:1024" json:"ownerPhoto"`
	IsSample   bool      `gorm:"not null;default:false" json:"isSample"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Swipe is a user's like/pass decision on a cat.
//
// Composite PK: (UserID, CatID)
//   - Ensures a single row per pair (overwrite guarantee).
//
// Indexes:
//   - idx_swipes_owner_liked(cat_owner_id, user_id, liked)
//     Serves the reciprocal lookup "did the owner like one of my cats".
type Swipe struct {
	UserID     string    `gorm:"primaryKey;size:128" json:"userId"`
	CatID      string    `gorm:"primaryKey;size:36;index:idx_swipes_owner_liked,priority:2" json:"catId"`
	CatOwnerID string    `gorm:"size:128;not null;index:idx_swipes_owner_liked,priority:1" json:"catOwnerId"`
	Liked      bool      `gorm:"not null;index:idx_swipes_owner_liked,priority:3" json:"liked"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"timestamp"`
}

// ParticipantSnapshot is the public view of one side of a match, frozen at
// the last reconciliation.
type ParticipantSnapshot struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
	CatID       string `json:"catId,omitempty"`
	CatName     string `json:"catName,omitempty"`
	CatAge      int    `json:"catAge,omitempty"`
	CatBreed    string `json:"catBreed,omitempty"`
	CatImage    string `json:"catImage,omitempty"`
	CatBio      string `json:"catBio,omitempty"`
	IsSample    bool   `json:"isSample,omitempty"`
}

// Match links two users over one cat.
//
// ID is derived from the sorted pair plus the cat id (see MatchID), so two
// concurrent creators collide on the primary key instead of writing twice.
// UserA < UserB always holds.
type Match struct {
	ID           string                         `gorm:"primaryKey;size:40"`
	UserA        string                         `gorm:"size:128;not null;index:idx_matches_user_a"`
	UserB        string                         `gorm:"size:128;not null;index:idx_matches_user_b"`
	CatID        string                         `gorm:"size:36;not null"`
	Status       string                         `gorm:"size:16;not null"`
	UsersInfo    map[string]ParticipantSnapshot `gorm:"serializer:json;type:text"`
	LastMessage  string                         `gorm:"size:512"`
	LastActivity *time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// HasUser reports whether userID is one of the two participants.
func (m *Match) HasUser(userID string) bool {
	return userID != "" && (m.UserA == userID || m.UserB == userID)
}

// OtherUser returns the participant that is not userID.
func (m *Match) OtherUser(userID string) (string, bool) {
	switch userID {
	case m.UserA:
		return m.UserB, true
	case m.UserB:
		return m.UserA, true
	}
	return "", false
}

// Message is append-only apart from the read flag.
type Message struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	MatchID   string    `gorm:"size:40;not null;index:idx_messages_match_created,priority:1" json:"matchId"`
	SenderID  string    `gorm:"size:128;not null" json:"senderId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Read      bool      `gorm:"column:is_read;not null;default:false" json:"read"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_messages_match_created,priority:2" json:"timestamp"`
}
