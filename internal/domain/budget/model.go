package budget

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ItemStatus is the lifecycle status of a single treatment item.
type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemApproved  ItemStatus = "approved"
	ItemPaid      ItemStatus = "paid"
	ItemCompleted ItemStatus = "completed"
)

// BudgetStatus is derived from the statuses of a budget's items, never set
// directly.
type BudgetStatus string

const (
	StatusPending   BudgetStatus = "pending"
	StatusPartial   BudgetStatus = "partial"
	StatusApproved  BudgetStatus = "approved"
	StatusCompleted BudgetStatus = "completed"
)

// Transaction is one dated partial payment within a settlement.
type Transaction struct {
	Date   string `json:"date"`
	Amount int64  `json:"amount"`
	Method string `json:"method"`
}

// FinancialBreakdown decomposes a gross payment into net plus named
// deductions. Amounts are minor currency units, rates are percentages.
type FinancialBreakdown struct {
	GrossAmount        int64   `json:"gross_amount"`
	NetAmount          int64   `json:"net_amount"`
	TaxRate            float64 `json:"tax_rate"`
	TaxAmount          int64   `json:"tax_amount"`
	CardFeeRate        float64 `json:"card_fee_rate"`
	CardFeeAmount      int64   `json:"card_fee_amount"`
	AnticipationRate   float64 `json:"anticipation_rate"`
	AnticipationAmount int64   `json:"anticipation_amount"`
	LocationRate       float64 `json:"location_rate"`
	LocationAmount     int64   `json:"location_amount"`
	Anticipated        bool    `json:"anticipated,omitempty"`
}

// PaymentInfo is stamped onto an item when it is paid. The allocator is the
// only writer.
type PaymentInfo struct {
	Method       string              `json:"method"`
	Installments int                 `json:"installments"`
	Date         string              `json:"date"`
	Brand        string              `json:"brand,omitempty"`
	Location     string              `json:"location,omitempty"`
	Breakdown    *FinancialBreakdown `json:"breakdown,omitempty"`
	Transactions []Transaction       `json:"transactions,omitempty"`
}

// TreatmentItem is one billable tooth or arch entry within a budget.
type TreatmentItem struct {
	Target               string            `json:"target"`
	Procedures           []string          `json:"procedures"`
	Amounts              map[string]int64  `json:"amounts"`
	Materials            map[string]string `json:"materials,omitempty"`
	Description          string            `json:"description,omitempty"`
	Surfaces             []string          `json:"surfaces,omitempty"`
	LabFlags             map[string]bool   `json:"lab_flags,omitempty"`
	LocationRateOverride *float64          `json:"location_rate,omitempty"`
	Status               ItemStatus        `json:"status"`
	Payment              *PaymentInfo      `json:"payment,omitempty"`
}

// Value returns the item's total value, the sum of all procedure amounts.
func (t *TreatmentItem) Value() int64 {
	var sum int64
	for _, v := range t.Amounts {
		sum += v
	}
	return sum
}

// IsPaid reports whether the item has reached a paid state.
func (t *TreatmentItem) IsPaid() bool {
	return t.Status == ItemPaid || t.Status == ItemCompleted
}

// Validate checks the item invariants before it may enter a budget.
func (t *TreatmentItem) Validate() error {
	if !ValidTarget(t.Target) {
		return fmt.Errorf("invalid target: %q", t.Target)
	}
	if len(t.Procedures) == 0 {
		return fmt.Errorf("at least one procedure is required")
	}
	for _, p := range t.Procedures {
		if t.Amounts[p] <= 0 {
			return fmt.Errorf("procedure %q requires a positive amount", p)
		}
		if MaterialRequired(p) && t.Materials[p] == "" {
			return fmt.Errorf("procedure %q requires a material", p)
		}
		if DescriptionRequired(p) && t.Description == "" {
			return fmt.Errorf("procedure %q requires a description", p)
		}
	}
	if t.Value() <= 0 {
		return fmt.Errorf("item value must be positive")
	}
	for _, s := range t.Surfaces {
		if !ValidSurface(s) {
			return fmt.Errorf("invalid tooth surface: %q", s)
		}
	}
	if len(t.Surfaces) > 0 && !hasSurfaceSensitive(t.Procedures) {
		return fmt.Errorf("surfaces given but no surface-sensitive procedure present")
	}
	if t.Status == "" {
		t.Status = ItemPending
	}
	return nil
}

func hasSurfaceSensitive(procedures []string) bool {
	for _, p := range procedures {
		if SurfaceSensitive(p) {
			return true
		}
	}
	return false
}

// Budget is a dated treatment plan quote for a patient.
type Budget struct {
	ID           uuid.UUID       `json:"id"`
	PatientID    uuid.UUID       `json:"patient_id"`
	Date         string          `json:"date"`
	Location     string          `json:"location,omitempty"`
	LocationRate *float64        `json:"location_rate,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	Items        []TreatmentItem `json:"items"`
	Status       BudgetStatus    `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TotalValue is the sum of all item values.
func (b *Budget) TotalValue() int64 {
	var sum int64
	for i := range b.Items {
		sum += b.Items[i].Value()
	}
	return sum
}

// UpsertItem appends the item, or replaces an existing item sharing the same
// target. Returns true when an existing item was replaced.
func (b *Budget) UpsertItem(item TreatmentItem) bool {
	for i := range b.Items {
		if b.Items[i].Target == item.Target {
			b.Items[i] = item
			return true
		}
	}
	b.Items = append(b.Items, item)
	return false
}

// RemoveItem deletes the item at the given position. Legal in any item status.
func (b *Budget) RemoveItem(idx int) error {
	if idx < 0 || idx >= len(b.Items) {
		return fmt.Errorf("item index %d out of range", idx)
	}
	b.Items = append(b.Items[:idx], b.Items[idx+1:]...)
	return nil
}

// ItemAt returns a pointer to the item at the given position.
func (b *Budget) ItemAt(idx int) (*TreatmentItem, error) {
	if idx < 0 || idx >= len(b.Items) {
		return nil, fmt.Errorf("item index %d out of range", idx)
	}
	return &b.Items[idx], nil
}

// RecomputeStatus derives the budget status from its items and stores it.
func (b *Budget) RecomputeStatus() {
	statuses := make([]ItemStatus, len(b.Items))
	for i := range b.Items {
		statuses[i] = b.Items[i].Status
	}
	b.Status = AggregateStatus(statuses)
}
