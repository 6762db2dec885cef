package documents

import (
	"context"

	"ragcore/internal/domain"
)

// Repository persists Document records and their lifecycle (§3's Document,
// §4.4's pending/processing/ready/error transitions, §6's list/get/delete
// document endpoints). Mirrors history.Store's interface-over-backend shape.
type Repository interface {
	Initialize(ctx context.Context) error

	Save(ctx context.Context, doc domain.Document) error
	Get(ctx context.Context, id string) (domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
	Delete(ctx context.Context, id string) error

	// UpdateStatus transitions doc's status and, on error, records
	// errMessage; chunkCount/vectorCount are set atomically with the status
	// change on success (§4.4 "the document transitions to ready/error").
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string, chunkCount, vectorCount int) error

	Cleanup(ctx context.Context) error
}
