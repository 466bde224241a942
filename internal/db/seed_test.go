package db_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/catmatch/internal/db"
	"github.com/oggyb/catmatch/internal/db/dbtest"
)

func TestSeedSampleDataIsIdempotent(t *testing.T) {
	gdb := dbtest.Open(t)

	n, err := db.SeedSampleData(gdb, false)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	_, err = db.SeedSampleData(gdb, false)
	require.NoError(t, err)

	var cats []db.Cat
	require.NoError(t, gdb.Order("id").Find(&cats).Error)
	require.Len(t, cats, 4)
	for _, c := range cats {
		assert.True(t, c.IsSample, c.ID)
		assert.NotEmpty(t, c.Image, c.ID)
		assert.Contains(t, c.UserID, "bot_")
	}

	var owners int64
	require.NoError(t, gdb.Model(&db.User{}).Count(&owners).Error)
	assert.Equal(t, int64(4), owners)
}

func TestMatchIDIgnoresPairOrder(t *testing.T) {
	assert.Equal(t, db.MatchID("alice", "bob", "cat-b"), db.MatchID("bob", "alice", "cat-b"))
	assert.NotEqual(t, db.MatchID("alice", "bob", "cat-a"), db.MatchID("alice", "bob", "cat-b"))
	assert.Len(t, db.MatchID("alice", "bob", "cat-a"), 40)
}

func TestMatchParticipants(t *testing.T) {
	m := db.Match{UserA: "alice", UserB: "bob"}

	assert.True(t, m.HasUser("bob"))
	assert.False(t, m.HasUser("mallory"))
	assert.False(t, m.HasUser(""))

	other, ok := m.OtherUser("alice")
	assert.True(t, ok)
	assert.Equal(t, "bob", other)

	_, ok = m.OtherUser("mallory")
	assert.False(t, ok)
}
