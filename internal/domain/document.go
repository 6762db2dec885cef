// Package domain declares the shared data model types described in §3 of
// the specification: Document, TextChunk, VectorRecord, SearchResult,
// Session, QATurn, ModelConfig, ModelStatus, and their enums. These types
// carry no behavior beyond small invariant helpers; every component
// (documents, vectorstore, history, retrieval, qa, modelprovider) imports
// this package rather than declaring its own copies.
package domain

import (
	"encoding/json"
	"time"
)

// DocumentStatus is the lifecycle state of an uploaded Document (§3).
type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "pending"
	DocumentProcessing DocumentStatus = "processing"
	DocumentReady      DocumentStatus = "ready"
	DocumentError      DocumentStatus = "error"
)

// Document is the record of one uploaded file and its processing lifecycle.
type Document struct {
	ID           string         `json:"id"`
	Filename     string         `json:"filename"`
	ContentType  string         `json:"content_type"`
	ByteSize     int64          `json:"byte_size"`
	UploadedAt   time.Time      `json:"uploaded_at"`
	Status       DocumentStatus `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ChunkCount   int            `json:"chunk_count"`
	VectorCount  int            `json:"vector_count"`
	// ObjectKey, when non-empty, is the key under which the original file
	// bytes are stored in the uploads object store (out of the base spec's
	// scope as a contract, but given a concrete home per the domain stack).
	ObjectKey string `json:"object_key,omitempty"`
}

// ChunkMetadata is the typed projection of TextChunk.metadata's known keys
// (§3), plus an open Extra map for anything strategy-specific or additive.
// Both the known fields and Extra serialize transparently: MarshalJSON
// flattens Extra alongside the named fields so a consumer sees one flat
// object, matching the base spec's "open map" description.
type ChunkMetadata struct {
	Length        int       `json:"length"`
	CreatedAt     time.Time `json:"created_at"`
	SplitterType  string    `json:"splitter_type"`
	SplitMethod   string    `json:"split_method"`
	HierarchyPath string    `json:"hierarchy_path,omitempty"`
	SectionTitle  string    `json:"section_title,omitempty"`
	Level         int       `json:"level,omitempty"`
	Paragraphs    int       `json:"paragraphs,omitempty"`
	HasHeader     bool      `json:"has_header,omitempty"`
	HeaderLevel   int       `json:"header_level,omitempty"`
	SentenceCount int       `json:"sentence_count,omitempty"`
	SemanticGroup int       `json:"semantic_group,omitempty"`
	StartPos      int       `json:"start_pos,omitempty"`
	EndPos        int       `json:"end_pos,omitempty"`
	ParentChunkID string    `json:"parent_chunk_id,omitempty"`
	IsSubChunk    bool      `json:"is_sub_chunk,omitempty"`
	MergedChunks  int       `json:"merged_chunks,omitempty"`

	// Extra carries anything not named above (e.g. document_name) without
	// losing it on round-trip.
	Extra map[string]any `json:"-"`
}

// MarshalJSON flattens Extra alongside the named fields so a consumer sees
// one flat metadata object rather than a nested "extra" key.
func (m ChunkMetadata) MarshalJSON() ([]byte, error) {
	type alias ChunkMetadata
	named, err := json.Marshal(alias(m))
	if err != nil {
		return nil, err
	}
	if len(m.Extra) == 0 {
		return named, nil
	}
	flat := make(map[string]any, len(m.Extra)+8)
	if err := json.Unmarshal(named, &flat); err != nil {
		return nil, err
	}
	for k, v := range m.Extra {
		if _, exists := flat[k]; !exists {
			flat[k] = v
		}
	}
	return json.Marshal(flat)
}

// TextChunk is one contiguous fragment of a Document, the unit of embedding
// and retrieval (§3, GLOSSARY).
type TextChunk struct {
	ID          string        `json:"id"`
	DocumentID  string        `json:"document_id"`
	ChunkIndex  int           `json:"chunk_index"`
	Content     string        `json:"content"`
	Metadata    ChunkMetadata `json:"metadata"`
	Summary     string        `json:"summary,omitempty"`
	Questions   []string      `json:"questions,omitempty"`
}

// DocumentStats summarizes the full collection for the "list documents"
// HTTP contract (§6).
type DocumentStats struct {
	Documents         []Document `json:"documents"`
	TotalCount        int        `json:"total_count"`
	ReadyCount        int        `json:"ready_count"`
	ProcessingCount   int        `json:"processing_count"`
	ErrorCount        int        `json:"error_count"`
}
