package budget

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service owns budget CRUD and item operations. Every mutation that touches
// item statuses re-derives the budget status before persisting.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, b *Budget) error {
	if b.PatientID == uuid.Nil {
		return validationf("patient_id is required")
	}
	if b.Date != "" && parseBudgetDate(b.Date, time.Time{}).IsZero() {
		return validationf("invalid budget date: %q", b.Date)
	}
	for i := range b.Items {
		if err := b.Items[i].Validate(); err != nil {
			return validationf("item %d: %v", i, err)
		}
	}
	b.RecomputeStatus()
	return s.repo.Create(ctx, b)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Budget, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Budget, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Budget, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// UpdateMeta changes budget metadata, leaving the item list untouched.
func (s *Service) UpdateMeta(ctx context.Context, id uuid.UUID, date, location, notes string, locationRate *float64) (*Budget, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if date != "" {
		if parseBudgetDate(date, time.Time{}).IsZero() {
			return nil, validationf("invalid budget date: %q", date)
		}
		b.Date = date
	}
	if location != "" {
		b.Location = location
	}
	if notes != "" {
		b.Notes = notes
	}
	if locationRate != nil {
		b.LocationRate = locationRate
	}
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// UpsertItem adds the item, replacing any existing item with the same target.
func (s *Service) UpsertItem(ctx context.Context, id uuid.UUID, item TreatmentItem) (*Budget, error) {
	if err := item.Validate(); err != nil {
		return nil, validationf("%v", err)
	}
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	b.UpsertItem(item)
	b.RecomputeStatus()
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// RemoveItem deletes the item at idx; any item status is legal to delete.
func (s *Service) RemoveItem(ctx context.Context, id uuid.UUID, idx int) (*Budget, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := b.RemoveItem(idx); err != nil {
		return nil, validationf("%v", err)
	}
	b.RecomputeStatus()
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ToggleItemApproval flips an item between pending and approved. Toggling a
// paid item is a no-op; the budget is returned unchanged.
func (s *Service) ToggleItemApproval(ctx context.Context, id uuid.UUID, idx int) (*Budget, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	item, err := b.ItemAt(idx)
	if err != nil {
		return nil, validationf("%v", err)
	}
	if !ToggleApproval(item) {
		return b, nil
	}
	b.RecomputeStatus()
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}
