package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one financial ledger row. Income entries emitted by payment
// confirmation carry the per-entry slice of the financial breakdown;
// manually recorded entries may leave the rate fields zero.
type Entry struct {
	ID                 uuid.UUID  `json:"id"`
	Type               string     `json:"type"` // income or expense
	Amount             int64      `json:"amount"`
	Description        string     `json:"description"`
	Category           string     `json:"category,omitempty"`
	Date               string     `json:"date"`
	Location           string     `json:"location,omitempty"`
	PatientID          uuid.UUID  `json:"patient_id,omitempty"`
	BudgetID           uuid.UUID  `json:"budget_id,omitempty"`
	NetAmount          int64      `json:"net_amount"`
	TaxRate            float64    `json:"tax_rate,omitempty"`
	TaxAmount          int64      `json:"tax_amount,omitempty"`
	CardFeeRate        float64    `json:"card_fee_rate,omitempty"`
	CardFeeAmount      int64      `json:"card_fee_amount,omitempty"`
	AnticipationRate   float64    `json:"anticipation_rate,omitempty"`
	AnticipationAmount int64      `json:"anticipation_amount,omitempty"`
	LocationRate       float64    `json:"location_rate,omitempty"`
	LocationAmount     int64      `json:"location_amount,omitempty"`
	PayerIsPatient     bool       `json:"payer_is_patient"`
	PayerType          string     `json:"payer_type,omitempty"` // PF or PJ
	PayerName          string     `json:"payer_name,omitempty"`
	PayerTaxID         string     `json:"payer_tax_id,omitempty"`
	InvoiceSourceID    *uuid.UUID `json:"invoice_source_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Summary aggregates entries over a period.
type Summary struct {
	From         string `json:"from"`
	To           string `json:"to"`
	IncomeGross  int64  `json:"income_gross"`
	IncomeNet    int64  `json:"income_net"`
	ExpenseTotal int64  `json:"expense_total"`
	EntryCount   int    `json:"entry_count"`
}
