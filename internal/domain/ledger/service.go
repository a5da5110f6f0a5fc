package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record validates and stores a ledger entry. It is used both by manual
// bookkeeping endpoints and as the sink for payment confirmation.
func (s *Service) Record(ctx context.Context, e *Entry) error {
	if e.Type != TypeIncome && e.Type != TypeExpense {
		return fmt.Errorf("entry type must be income or expense, got %q", e.Type)
	}
	if e.Amount <= 0 {
		return fmt.Errorf("entry amount must be positive")
	}
	if e.Description == "" {
		return fmt.Errorf("entry description is required")
	}
	if e.Date == "" {
		e.Date = time.Now().Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, e.Date); err != nil {
		return fmt.Errorf("invalid entry date: %q", e.Date)
	}
	if e.NetAmount == 0 {
		e.NetAmount = e.Amount - e.TaxAmount - e.CardFeeAmount - e.AnticipationAmount - e.LocationAmount
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return s.repo.Create(ctx, e)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// Summarize aggregates entries in the inclusive date range.
func (s *Service) Summarize(ctx context.Context, from, to string) (*Summary, error) {
	if _, err := time.Parse(dateLayout, from); err != nil {
		return nil, fmt.Errorf("invalid from date: %q", from)
	}
	if _, err := time.Parse(dateLayout, to); err != nil {
		return nil, fmt.Errorf("invalid to date: %q", to)
	}
	return s.repo.Summarize(ctx, from, to)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
