package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"ragcore/internal/domain"
	"ragcore/internal/ragerrors"
)

// MemoryStore is an in-process Store used for tests and local/offline
// profiles (§4.3). Writes to a single session are serialized by mu, matching
// the "concurrency: writes to a single session are serialized" requirement.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	turns    map[string][]domain.QATurn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: map[string]domain.Session{},
		turns:    map[string][]domain.QATurn{},
	}
}

func (m *MemoryStore) Initialize(ctx context.Context) error { return nil }

func (m *MemoryStore) CreateSession(ctx context.Context, userID, title string) (domain.Session, error) {
	if title == "" {
		title = "New Session"
	}
	now := time.Now().UTC()
	session := domain.Session{
		ID:        domain.NewID(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	return session, nil
}

func (m *MemoryStore) GetSession(ctx context.Context, id string) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return domain.Session{}, ragerrors.NotFound("session not found", nil)
	}
	return session, nil
}

func (m *MemoryStore) ListRecentSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	delete(m.turns, id)
	return nil
}

func (m *MemoryStore) AppendTurn(ctx context.Context, turn domain.QATurn) error {
	if turn.ID == "" {
		turn.ID = domain.NewID()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[turn.SessionID]
	if !ok {
		return ragerrors.NotFound("session not found for append_turn", nil)
	}
	m.turns[turn.SessionID] = append(m.turns[turn.SessionID], turn)
	session.QACount++
	session.UpdatedAt = turn.CreatedAt
	m.sessions[turn.SessionID] = session
	return nil
}

func (m *MemoryStore) GetSessionHistory(ctx context.Context, sessionID string) ([]domain.QATurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns := m.turns[sessionID]
	out := make([]domain.QATurn, len(turns))
	copy(out, turns)
	return out, nil
}

func (m *MemoryStore) StatsSummary(ctx context.Context) (domain.SessionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := domain.SessionStats{TotalSessions: len(m.sessions)}
	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	for _, s := range m.sessions {
		stats.TotalQAPairs += s.QACount
		if s.UpdatedAt.After(cutoff) {
			stats.ActiveSessionsLast24h++
		}
	}
	if stats.TotalSessions > 0 {
		stats.AvgQAPerSession = float64(stats.TotalQAPairs) / float64(stats.TotalSessions)
	}
	return stats, nil
}

func (m *MemoryStore) Cleanup(ctx context.Context) error { return nil }
