package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/domain"
	"ragcore/internal/ragerrors"
)

func TestMemoryStoreCreateAndAppendTurn(t *testing.T) {
	store := NewMemoryStore()
	session, err := store.CreateSession(context.Background(), "user-1", "")
	require.NoError(t, err)
	assert.Equal(t, "New Session", session.Title)

	err = store.AppendTurn(context.Background(), domain.QATurn{
		SessionID: session.ID,
		Question:  "what is go",
		Answer:    "a language",
	})
	require.NoError(t, err)

	updated, err := store.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.QACount)

	turns, err := store.GetSessionHistory(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "what is go", turns[0].Question)
}

func TestMemoryStoreAppendTurnUnknownSessionFails(t *testing.T) {
	store := NewMemoryStore()
	err := store.AppendTurn(context.Background(), domain.QATurn{SessionID: "missing"})
	require.Error(t, err)
	assert.True(t, ragerrors.Is(err, ragerrors.KindNotFound))
}

func TestMemoryStoreDeleteSessionCascadesToTurns(t *testing.T) {
	store := NewMemoryStore()
	session, err := store.CreateSession(context.Background(), "", "mine")
	require.NoError(t, err)
	require.NoError(t, store.AppendTurn(context.Background(), domain.QATurn{SessionID: session.ID, Question: "q"}))

	require.NoError(t, store.DeleteSession(context.Background(), session.ID))
	_, err = store.GetSession(context.Background(), session.ID)
	require.Error(t, err)

	turns, err := store.GetSessionHistory(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestMemoryStoreListRecentSessionsOrdersByUpdatedAt(t *testing.T) {
	store := NewMemoryStore()
	first, err := store.CreateSession(context.Background(), "", "first")
	require.NoError(t, err)
	second, err := store.CreateSession(context.Background(), "", "second")
	require.NoError(t, err)

	require.NoError(t, store.AppendTurn(context.Background(), domain.QATurn{SessionID: first.ID, Question: "q"}))

	sessions, err := store.ListRecentSessions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first.ID, sessions[0].ID) // bumped by AppendTurn, so it sorts first
	_ = second
}

func TestMemoryStoreStatsSummary(t *testing.T) {
	store := NewMemoryStore()
	session, err := store.CreateSession(context.Background(), "", "")
	require.NoError(t, err)
	require.NoError(t, store.AppendTurn(context.Background(), domain.QATurn{SessionID: session.ID}))
	require.NoError(t, store.AppendTurn(context.Background(), domain.QATurn{SessionID: session.ID}))

	stats, err := store.StatsSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalSessions)
	assert.Equal(t, 2, stats.TotalQAPairs)
	assert.Equal(t, 1, stats.ActiveSessionsLast24h)
	assert.InDelta(t, 2.0, stats.AvgQAPerSession, 0.001)
}
