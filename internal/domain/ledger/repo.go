package ledger

import (
	"context"

	"github.com/google/uuid"
)

// Filter narrows ledger listings. Zero-valued fields are ignored.
type Filter struct {
	PatientID uuid.UUID
	BudgetID  uuid.UUID
	Type      string
	From      string
	To        string
}

type Repository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error)
	Summarize(ctx context.Context, from, to string) (*Summary, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
