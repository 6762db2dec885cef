package history

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ragcore/internal/domain"
	"ragcore/internal/ragerrors"
)

// PostgresStore is the primary C3 backend. Grounded on the donor's
// internal/persistence/databases/chat_store_postgres.go: same
// pgxpool.Pool-over-raw-SQL idiom and the same transaction-wrapped
// append-and-bump for append_turn. create_session is a plain
// "INSERT ... RETURNING" that always creates a new session with a fresh id.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Initialize(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS qa_sessions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    qa_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS qa_turns (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES qa_sessions(id) ON DELETE CASCADE,
    question TEXT NOT NULL,
    answer TEXT NOT NULL,
    sources JSONB NOT NULL DEFAULT '[]',
    confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    processing_time_ms BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS qa_turns_session_created_idx ON qa_turns(session_id, created_at);
CREATE INDEX IF NOT EXISTS qa_sessions_updated_idx ON qa_sessions(updated_at DESC);
`)
	if err != nil {
		return ragerrors.Session("initialize qa history schema", err)
	}
	return nil
}

func scanSession(row pgx.Row) (domain.Session, error) {
	var s domain.Session
	if err := row.Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt, &s.QACount); err != nil {
		return domain.Session{}, err
	}
	return s, nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, userID, title string) (domain.Session, error) {
	if title == "" {
		title = "New Session"
	}
	id := domain.NewID()
	row := s.pool.QueryRow(ctx, `
INSERT INTO qa_sessions (id, user_id, title)
VALUES ($1, $2, $3)
RETURNING id, user_id, title, created_at, updated_at, qa_count`, id, userID, title)
	session, err := scanSession(row)
	if err != nil {
		return domain.Session{}, ragerrors.Session("create_session failed", err)
	}
	return session, nil
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (domain.Session, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, user_id, title, created_at, updated_at, qa_count
FROM qa_sessions WHERE id = $1`, id)
	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, ragerrors.NotFound("session not found", err)
	}
	if err != nil {
		return domain.Session{}, ragerrors.Session("get_session failed", err)
	}
	return session, nil
}

func (s *PostgresStore) ListRecentSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, user_id, title, created_at, updated_at, qa_count
FROM qa_sessions
ORDER BY updated_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, ragerrors.Session("list_recent_sessions failed", err)
	}
	defer rows.Close()

	out := make([]domain.Session, 0, limit)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, ragerrors.Session("scan session row", err)
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM qa_sessions WHERE id = $1`, id)
	if err != nil {
		return ragerrors.Session("delete_session failed", err)
	}
	return nil
}

func (s *PostgresStore) AppendTurn(ctx context.Context, turn domain.QATurn) error {
	if turn.ID == "" {
		turn.ID = domain.NewID()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	sourcesJSON, err := json.Marshal(turn.Sources)
	if err != nil {
		return ragerrors.Session("marshal turn sources", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ragerrors.Session("begin append_turn transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
INSERT INTO qa_turns (id, session_id, question, answer, sources, confidence_score, processing_time_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		turn.ID, turn.SessionID, turn.Question, turn.Answer, sourcesJSON, turn.ConfidenceScore, turn.ProcessingTimeMS, turn.CreatedAt); err != nil {
		return ragerrors.Session("insert qa_turn failed", err)
	}

	cmd, err := tx.Exec(ctx, `
UPDATE qa_sessions
SET qa_count = qa_count + 1, updated_at = NOW()
WHERE id = $1`, turn.SessionID)
	if err != nil {
		return ragerrors.Session("bump session qa_count failed", err)
	}
	if cmd.RowsAffected() == 0 {
		return ragerrors.NotFound("session not found for append_turn", nil)
	}

	if err := tx.Commit(ctx); err != nil {
		return ragerrors.Session("commit append_turn transaction", err)
	}
	return nil
}

func (s *PostgresStore) GetSessionHistory(ctx context.Context, sessionID string) ([]domain.QATurn, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, session_id, question, answer, sources, confidence_score, processing_time_ms, created_at
FROM qa_turns
WHERE session_id = $1
ORDER BY created_at ASC, id ASC`, sessionID)
	if err != nil {
		return nil, ragerrors.Session("get_session_history failed", err)
	}
	defer rows.Close()

	out := make([]domain.QATurn, 0)
	for rows.Next() {
		var t domain.QATurn
		var sourcesJSON []byte
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Question, &t.Answer, &sourcesJSON, &t.ConfidenceScore, &t.ProcessingTimeMS, &t.CreatedAt); err != nil {
			return nil, ragerrors.Session("scan qa_turn row", err)
		}
		if len(sourcesJSON) > 0 {
			if err := json.Unmarshal(sourcesJSON, &t.Sources); err != nil {
				return nil, ragerrors.Session("unmarshal turn sources", err)
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) StatsSummary(ctx context.Context) (domain.SessionStats, error) {
	var stats domain.SessionStats
	var totalQA int
	row := s.pool.QueryRow(ctx, `
SELECT
    COUNT(*) AS total_sessions,
    COALESCE(SUM(qa_count), 0) AS total_qa_pairs,
    COUNT(*) FILTER (WHERE updated_at >= NOW() - INTERVAL '24 hours') AS active_last_24h
FROM qa_sessions`)
	if err := row.Scan(&stats.TotalSessions, &totalQA, &stats.ActiveSessionsLast24h); err != nil {
		return domain.SessionStats{}, ragerrors.Session("stats_summary failed", err)
	}
	stats.TotalQAPairs = totalQA
	if stats.TotalSessions > 0 {
		stats.AvgQAPerSession = float64(totalQA) / float64(stats.TotalSessions)
	}
	return stats, nil
}

func (s *PostgresStore) Cleanup(ctx context.Context) error {
	s.pool.Close()
	return nil
}
