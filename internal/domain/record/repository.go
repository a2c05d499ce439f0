package record

import "context"

// Repository persists extractions.
type Repository interface {
	Save(ctx context.Context, e *Extraction) error
	FindByDocumentID(ctx context.Context, documentID string) (*Extraction, error)
	List(ctx context.Context, limit, offset int) ([]*Extraction, error)
}
