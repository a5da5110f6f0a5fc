package budget

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists budgets together with their item lists. Update
// replaces the stored item list and status as one operation.
type Repository interface {
	Create(ctx context.Context, b *Budget) error
	GetByID(ctx context.Context, id uuid.UUID) (*Budget, error)
	List(ctx context.Context, limit, offset int) ([]*Budget, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Budget, int, error)
	Update(ctx context.Context, b *Budget) error
	Delete(ctx context.Context, id uuid.UUID) error
}
