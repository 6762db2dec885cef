package domain

import "time"

// Session groups a sequence of QA turns (§3).
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	QACount   int       `json:"qa_count"`
}

// SourceAttribution is one entry of QATurn.Sources (§3).
type SourceAttribution struct {
	ChunkID         string  `json:"chunk_id"`
	DocumentID      string  `json:"document_id"`
	DocumentName    string  `json:"document_name"`
	SimilarityScore float64 `json:"similarity_score"`
	ContentPreview  string  `json:"content_preview"`
	RerankScore     *float64 `json:"rerank_score,omitempty"`
}

// QATurn is one question/answer exchange persisted by C3 (§3).
type QATurn struct {
	ID               string              `json:"id"`
	SessionID        string              `json:"session_id"`
	Question         string              `json:"question"`
	Answer           string              `json:"answer"`
	Sources          []SourceAttribution `json:"sources"`
	ConfidenceScore  float64             `json:"confidence_score"`
	ProcessingTimeMS int64               `json:"processing_time_ms"`
	CreatedAt        time.Time           `json:"created_at"`
}

// SessionStats is the shape of the "/sessions/stats/summary" contract (§6).
type SessionStats struct {
	TotalSessions       int     `json:"total_sessions"`
	TotalQAPairs        int     `json:"total_qa_pairs"`
	AvgQAPerSession     float64 `json:"avg_qa_per_session"`
	ActiveSessionsLast24h int   `json:"active_sessions_last_24h"`
}

// QAResponse is the shape returned by the orchestrator's answer_question
// operation (§4.6 step 8).
type QAResponse struct {
	Question         string              `json:"question"`
	Answer           string              `json:"answer"`
	Sources          []SourceAttribution `json:"sources"`
	ConfidenceScore  float64             `json:"confidence_score"`
	SessionID        string              `json:"session_id"`
	ProcessingTimeMS int64               `json:"processing_time_ms"`
}
