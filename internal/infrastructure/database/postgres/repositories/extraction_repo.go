package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/turtacn/FloraTraits/internal/domain/record"
	"github.com/turtacn/FloraTraits/internal/infrastructure/database/postgres"
	"github.com/turtacn/FloraTraits/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
	"github.com/turtacn/FloraTraits/pkg/errors"
)

const extractionColumns = `document_id, source, text_hash, record, trait_count, duration_ms, created_at`

type postgresExtractionRepo struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewPostgresExtractionRepo returns a record.Repository backed by the
// extractions table.
func NewPostgresExtractionRepo(conn *postgres.Connection, log logging.Logger) record.Repository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &postgresExtractionRepo{conn: conn, log: log.Named("extraction_repo")}
}

func (r *postgresExtractionRepo) executor() queryExecutor {
	return r.conn.DB()
}

// Save upserts by document ID. Re-extracting a document replaces its record
// and keeps the original created_at.
func (r *postgresExtractionRepo) Save(ctx context.Context, e *record.Extraction) error {
	if e == nil || e.DocumentID == "" {
		return errors.InvalidParam("extraction document id is required")
	}
	rec := e.Record
	if rec == nil {
		rec = traits.NewRecord()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode record")
	}

	query := `
		INSERT INTO extractions (document_id, source, text_hash, record, trait_count, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (document_id) DO UPDATE SET
			source = EXCLUDED.source,
			text_hash = EXCLUDED.text_hash,
			record = EXCLUDED.record,
			trait_count = EXCLUDED.trait_count,
			duration_ms = EXCLUDED.duration_ms,
			updated_at = NOW()
		RETURNING created_at`

	err = r.executor().QueryRowContext(ctx, query,
		e.DocumentID, e.Source, e.TextHash, data, e.TraitCount, e.Duration.Milliseconds(),
	).Scan(&e.CreatedAt)
	if err != nil {
		r.log.Error("failed to save extraction", logging.DocumentID(e.DocumentID), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save extraction")
	}
	return nil
}

func (r *postgresExtractionRepo) FindByDocumentID(ctx context.Context, documentID string) (*record.Extraction, error) {
	query := `SELECT ` + extractionColumns + ` FROM extractions WHERE document_id = $1`
	e, err := scanExtraction(r.executor().QueryRowContext(ctx, query, documentID))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeExtractionDocNotFound, "extraction not found").WithDetail(documentID)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load extraction")
	}
	return e, nil
}

// List returns extractions newest first.
func (r *postgresExtractionRepo) List(ctx context.Context, limit, offset int) ([]*record.Extraction, error) {
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + extractionColumns + ` FROM extractions ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.executor().QueryContext(ctx, query, clampLimit(limit), offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list extractions")
	}
	defer rows.Close()

	var out []*record.Extraction
	for rows.Next() {
		e, err := scanExtraction(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan extraction")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate extractions")
	}
	return out, nil
}

func scanExtraction(row scanner) (*record.Extraction, error) {
	var (
		e          record.Extraction
		data       []byte
		durationMS int64
	)
	if err := row.Scan(&e.DocumentID, &e.Source, &e.TextHash, &data, &e.TraitCount, &durationMS, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Record = traits.NewRecord()
	if err := json.Unmarshal(data, e.Record); err != nil {
		return nil, err
	}
	e.Duration = time.Duration(durationMS) * time.Millisecond
	return &e, nil
}
