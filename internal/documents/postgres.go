package documents

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ragcore/internal/domain"
	"ragcore/internal/ragerrors"
)

// PostgresRepository is the primary Repository backend, grounded on
// history.PostgresStore's pgxpool.Pool-over-raw-SQL idiom.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Initialize(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    filename TEXT NOT NULL,
    content_type TEXT NOT NULL DEFAULT '',
    byte_size BIGINT NOT NULL DEFAULT 0,
    uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    status TEXT NOT NULL DEFAULT 'pending',
    error_message TEXT NOT NULL DEFAULT '',
    chunk_count INTEGER NOT NULL DEFAULT 0,
    vector_count INTEGER NOT NULL DEFAULT 0,
    object_key TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS documents_uploaded_idx ON documents(uploaded_at DESC);
`)
	if err != nil {
		return ragerrors.Document("initialize documents schema", err)
	}
	return nil
}

func scanDocument(row pgx.Row) (domain.Document, error) {
	var d domain.Document
	if err := row.Scan(&d.ID, &d.Filename, &d.ContentType, &d.ByteSize, &d.UploadedAt, &d.Status, &d.ErrorMessage, &d.ChunkCount, &d.VectorCount, &d.ObjectKey); err != nil {
		return domain.Document{}, err
	}
	return d, nil
}

func (r *PostgresRepository) Save(ctx context.Context, doc domain.Document) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO documents (id, filename, content_type, byte_size, uploaded_at, status, error_message, chunk_count, vector_count, object_key)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
    filename = EXCLUDED.filename,
    content_type = EXCLUDED.content_type,
    byte_size = EXCLUDED.byte_size,
    status = EXCLUDED.status,
    error_message = EXCLUDED.error_message,
    chunk_count = EXCLUDED.chunk_count,
    vector_count = EXCLUDED.vector_count,
    object_key = EXCLUDED.object_key`,
		doc.ID, doc.Filename, doc.ContentType, doc.ByteSize, doc.UploadedAt, doc.Status, doc.ErrorMessage, doc.ChunkCount, doc.VectorCount, doc.ObjectKey)
	if err != nil {
		return ragerrors.Document("save document failed", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (domain.Document, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, filename, content_type, byte_size, uploaded_at, status, error_message, chunk_count, vector_count, object_key
FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Document{}, ragerrors.NotFound("document not found", err)
	}
	if err != nil {
		return domain.Document{}, ragerrors.Document("get document failed", err)
	}
	return doc, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]domain.Document, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, filename, content_type, byte_size, uploaded_at, status, error_message, chunk_count, vector_count, object_key
FROM documents ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, ragerrors.Document("list documents failed", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, ragerrors.Document("scan document row", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return ragerrors.Document("delete document failed", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string, chunkCount, vectorCount int) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE documents SET status = $2, error_message = $3, chunk_count = $4, vector_count = $5
WHERE id = $1`, id, status, errMessage, chunkCount, vectorCount)
	if err != nil {
		return ragerrors.Document("update document status failed", err)
	}
	if cmd.RowsAffected() == 0 {
		return ragerrors.NotFound("document not found", nil)
	}
	return nil
}

func (r *PostgresRepository) Cleanup(ctx context.Context) error {
	r.pool.Close()
	return nil
}
