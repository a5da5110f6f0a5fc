package budget

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// EntryPayload is the ledger record the allocator builds; persistence is the
// sink's concern.
type EntryPayload struct {
	Type               string
	Amount             int64
	Description        string
	Category           string
	Date               string
	Location           string
	PatientID          uuid.UUID
	BudgetID           uuid.UUID
	NetAmount          int64
	TaxRate            float64
	TaxAmount          int64
	CardFeeRate        float64
	CardFeeAmount      int64
	AnticipationRate   float64
	AnticipationAmount int64
	LocationRate       float64
	LocationAmount     int64
	PayerIsPatient     bool
	PayerType          string
	PayerName          string
	PayerTaxID         string
	InvoiceSourceID    *uuid.UUID
}

// LedgerSink persists emitted ledger entries.
type LedgerSink interface {
	CreateEntry(ctx context.Context, e *EntryPayload) error
}

// AccountRates are the practice-level default rates applied when a payment
// arrives without a precomputed breakdown.
type AccountRates struct {
	LocationRate     float64
	TaxRate          float64
	AnticipationRate float64
	CardFeeCredit    float64
	CardFeeDebit     float64
}

// CardFee returns the account card-fee rate for the given method, zero for
// non-card methods.
func (r AccountRates) CardFee(method string) float64 {
	switch method {
	case MethodCredit:
		return r.CardFeeCredit
	case MethodDebit:
		return r.CardFeeDebit
	}
	return 0
}

// Payer identifies who is paying when it is not the patient themselves.
type Payer struct {
	IsPatient       bool       `json:"is_patient"`
	Type            string     `json:"type"` // PF or PJ
	Name            string     `json:"name,omitempty"`
	TaxID           string     `json:"tax_id,omitempty"`
	InvoiceSourceID *uuid.UUID `json:"invoice_source_id,omitempty"`
}

// PaymentRequest carries everything a payment confirmation supplies.
type PaymentRequest struct {
	Method       string              `json:"method"`
	Brand        string              `json:"brand,omitempty"`
	Transactions []Transaction       `json:"transactions,omitempty"`
	Installments int                 `json:"installments,omitempty"`
	Breakdown    *FinancialBreakdown `json:"breakdown,omitempty"`
	Payer        *Payer              `json:"payer,omitempty"`
	PatientName  string              `json:"patient_name,omitempty"`
}

// Allocator commits payments: it marks items paid, distributes the financial
// breakdown across items and installment transactions, recomputes the budget
// status and emits one ledger entry per (item, transaction) pair.
type Allocator struct {
	budgets Repository
	sink    LedgerSink
	account AccountRates
	now     func() time.Time
}

func NewAllocator(budgets Repository, sink LedgerSink, account AccountRates) *Allocator {
	return &Allocator{budgets: budgets, sink: sink, account: account, now: time.Now}
}

// PayItem commits a payment for a single approved item.
func (a *Allocator) PayItem(ctx context.Context, budgetID uuid.UUID, idx int, req PaymentRequest) error {
	b, err := a.budgets.GetByID(ctx, budgetID)
	if err != nil {
		return err
	}
	item, err := b.ItemAt(idx)
	if err != nil {
		return validationf("%v", err)
	}
	if item.Status != ItemApproved {
		return validationf("item %d is not approved (status %s)", idx, item.Status)
	}
	if req.Method == "" {
		return validationf("payment method is required")
	}

	gross := item.Value()

	// The supplied breakdown's rate wins for a single item; it was computed
	// for exactly this item.
	rate := ResolveLocationRate(item, b, a.account.LocationRate)
	if req.Breakdown != nil && req.Breakdown.LocationRate > 0 {
		rate = req.Breakdown.LocationRate
	}

	txs, err := a.resolveTransactions(b, req, gross)
	if err != nil {
		return err
	}

	bd := a.resolveBreakdown(req.Breakdown, gross, rate)

	item.Status = ItemPaid
	item.Payment = &PaymentInfo{
		Method:       req.Method,
		Installments: maxInt(1, len(txs)),
		Date:         a.now().Format(dateLayout),
		Brand:        req.Brand,
		Location:     b.Location,
		Breakdown:    &bd,
		Transactions: txs,
	}

	if err := a.emitEntries(ctx, b, item, req, txs, bd); err != nil {
		return err
	}

	b.RecomputeStatus()
	if err := a.budgets.Update(ctx, b); err != nil {
		return fmt.Errorf("persist budget: %w", err)
	}
	return nil
}

// PayItems commits one combined payment across several approved items of the
// same budget. The supplied breakdown and transactions describe the combined
// amount; the allocator splits them per item and re-derives each item's
// location amount from that item's own rate.
func (a *Allocator) PayItems(ctx context.Context, budgetID uuid.UUID, indexes []int, req PaymentRequest) error {
	if len(indexes) == 0 {
		return validationf("no items selected")
	}
	if req.Method == "" {
		return validationf("payment method is required")
	}

	b, err := a.budgets.GetByID(ctx, budgetID)
	if err != nil {
		return err
	}

	seen := make(map[int]bool, len(indexes))
	items := make([]*TreatmentItem, len(indexes))
	values := make([]int64, len(indexes))
	var total int64
	for n, idx := range indexes {
		if seen[idx] {
			return validationf("item %d selected twice", idx)
		}
		seen[idx] = true
		item, err := b.ItemAt(idx)
		if err != nil {
			return validationf("%v", err)
		}
		if item.Status != ItemApproved {
			return validationf("item %d is not approved (status %s)", idx, item.Status)
		}
		items[n] = item
		values[n] = item.Value()
		total += item.Value()
	}

	txs, err := a.resolveTransactions(b, req, total)
	if err != nil {
		return err
	}

	// Per-item slices of the combined pools.
	var cardFees, taxes, anticipations []int64
	if req.Breakdown != nil {
		cardFees = splitProportional(req.Breakdown.CardFeeAmount, values)
		taxes = splitProportional(req.Breakdown.TaxAmount, values)
		anticipations = splitProportional(req.Breakdown.AnticipationAmount, values)
	}

	// Each transaction's amount split across items, so per-item transaction
	// lists re-sum to the originals.
	txShares := make([][]int64, len(txs))
	for j, tx := range txs {
		txShares[j] = splitProportional(tx.Amount, values)
	}

	paymentDate := a.now().Format(dateLayout)
	breakdowns := make([]FinancialBreakdown, len(items))
	for n, item := range items {
		// Batched payments always resolve the item's own rate, never the
		// batch-average rate carried by the combined breakdown.
		rate := ResolveLocationRate(item, b, a.account.LocationRate)

		var bd FinancialBreakdown
		if req.Breakdown != nil {
			location := pct(values[n]-cardFees[n], rate)
			bd = FinancialBreakdown{
				GrossAmount:        values[n],
				NetAmount:          values[n] - taxes[n] - cardFees[n] - anticipations[n] - location,
				TaxRate:            req.Breakdown.TaxRate,
				TaxAmount:          taxes[n],
				CardFeeRate:        req.Breakdown.CardFeeRate,
				CardFeeAmount:      cardFees[n],
				AnticipationRate:   req.Breakdown.AnticipationRate,
				AnticipationAmount: anticipations[n],
				LocationRate:       rate,
				LocationAmount:     location,
				Anticipated:        req.Breakdown.Anticipated,
			}
		} else {
			bd = ComputeBreakdown(values[n], Rates{LocationRate: rate})
		}
		breakdowns[n] = bd

		itemTxs := make([]Transaction, len(txs))
		for j, tx := range txs {
			itemTxs[j] = Transaction{Date: tx.Date, Amount: txShares[j][n], Method: tx.Method}
		}

		item.Status = ItemPaid
		item.Payment = &PaymentInfo{
			Method:       req.Method,
			Installments: maxInt(1, len(txs)),
			Date:         paymentDate,
			Brand:        req.Brand,
			Location:     b.Location,
			Breakdown:    &breakdowns[n],
			Transactions: itemTxs,
		}
	}

	for n, item := range items {
		if err := a.emitEntries(ctx, b, item, req, item.Payment.Transactions, breakdowns[n]); err != nil {
			return fmt.Errorf("item %d: %w", indexes[n], err)
		}
	}

	b.RecomputeStatus()
	if err := a.budgets.Update(ctx, b); err != nil {
		return fmt.Errorf("persist budget: %w", err)
	}
	return nil
}

// resolveTransactions returns the installment transactions for a payment of
// the given gross: the explicit ones when supplied (validated to sum
// exactly), a generated monthly schedule when an installment count was sent,
// or none.
func (a *Allocator) resolveTransactions(b *Budget, req PaymentRequest, gross int64) ([]Transaction, error) {
	if len(req.Transactions) > 0 {
		var sum int64
		for _, t := range req.Transactions {
			if t.Amount <= 0 {
				return nil, validationf("transaction amounts must be positive")
			}
			sum += t.Amount
		}
		if sum != gross {
			return nil, validationf("transactions sum to %d, expected %d", sum, gross)
		}
		return req.Transactions, nil
	}

	anticipated := req.Breakdown != nil && req.Breakdown.Anticipated
	if req.Installments > 1 || anticipated {
		start := parseBudgetDate(b.Date, a.now())
		return BuildSchedule(start, req.Installments, gross, req.Method, anticipated), nil
	}
	return nil, nil
}

// resolveBreakdown returns the breakdown for a single-item payment, deriving
// an ad hoc one from the location rate when none was supplied.
func (a *Allocator) resolveBreakdown(supplied *FinancialBreakdown, gross int64, rate float64) FinancialBreakdown {
	if supplied == nil {
		return ComputeBreakdown(gross, Rates{LocationRate: rate})
	}
	bd := *supplied
	bd.LocationRate = rate
	if bd.LocationAmount == 0 && rate > 0 {
		bd.LocationAmount = pct(gross-bd.CardFeeAmount, rate)
		bd.NetAmount -= bd.LocationAmount
	}
	return bd
}

// emitEntries writes one ledger entry per transaction (or a single whole-item
// entry when there are none), slicing every deduction of the item breakdown
// proportionally so the entry amounts and deductions re-sum exactly.
func (a *Allocator) emitEntries(ctx context.Context, b *Budget, item *TreatmentItem, req PaymentRequest, txs []Transaction, bd FinancialBreakdown) error {
	desc := entryDescription(item, req)

	if len(txs) == 0 {
		date := parseBudgetDate(b.Date, a.now()).Format(dateLayout)
		e := a.buildEntry(b, req, bd.GrossAmount, desc, date, bd, bd.TaxAmount, bd.CardFeeAmount, bd.AnticipationAmount, bd.LocationAmount)
		if err := a.sink.CreateEntry(ctx, e); err != nil {
			return fmt.Errorf("create ledger entry: %w", err)
		}
		return nil
	}

	amounts := make([]int64, len(txs))
	for j, tx := range txs {
		amounts[j] = tx.Amount
	}
	taxes := splitProportional(bd.TaxAmount, amounts)
	cardFees := splitProportional(bd.CardFeeAmount, amounts)
	anticipations := splitProportional(bd.AnticipationAmount, amounts)
	locations := splitProportional(bd.LocationAmount, amounts)

	for j, tx := range txs {
		suffix := ""
		if len(txs) > 1 {
			suffix = fmt.Sprintf(" (%d/%d)", j+1, len(txs))
		}
		e := a.buildEntry(b, req, tx.Amount, desc+suffix, tx.Date, bd, taxes[j], cardFees[j], anticipations[j], locations[j])
		if err := a.sink.CreateEntry(ctx, e); err != nil {
			return fmt.Errorf("create ledger entry: %w", err)
		}
	}
	return nil
}

func (a *Allocator) buildEntry(b *Budget, req PaymentRequest, amount int64, desc, date string, bd FinancialBreakdown, tax, cardFee, anticipation, location int64) *EntryPayload {
	e := &EntryPayload{
		Type:               "income",
		Amount:             amount,
		Description:        desc,
		Category:           "Procedure",
		Date:               date,
		Location:           b.Location,
		PatientID:          b.PatientID,
		BudgetID:           b.ID,
		NetAmount:          amount - tax - cardFee - anticipation - location,
		TaxRate:            bd.TaxRate,
		TaxAmount:          tax,
		CardFeeRate:        bd.CardFeeRate,
		CardFeeAmount:      cardFee,
		AnticipationRate:   bd.AnticipationRate,
		AnticipationAmount: anticipation,
		LocationRate:       bd.LocationRate,
		LocationAmount:     location,
		PayerIsPatient:     true,
		PayerType:          "PF",
	}
	if req.Payer != nil {
		e.PayerIsPatient = req.Payer.IsPatient
		if req.Payer.Type != "" {
			e.PayerType = req.Payer.Type
		}
		e.PayerName = req.Payer.Name
		e.PayerTaxID = req.Payer.TaxID
		e.InvoiceSourceID = req.Payer.InvoiceSourceID
	}
	return e
}

// entryDescription builds "<procedures> (<method[ - BRAND]>) - <target> -
// <patient>"; the installment suffix is appended per entry.
func entryDescription(item *TreatmentItem, req PaymentRequest) string {
	tag := MethodLabel(req.Method)
	if CardMethod(req.Method) && req.Brand != "" {
		tag += " - " + strings.ToUpper(req.Brand)
	}
	desc := fmt.Sprintf("%s (%s) - %s", strings.Join(item.Procedures, ", "), tag, TargetLabel(item.Target))
	if req.PatientName != "" {
		desc += " - " + req.PatientName
	}
	return desc
}

// BuildSchedule produces the installment transactions for a payment without
// explicit ones: anticipated settlements collapse to a single transaction at
// the start date, otherwise n monthly-spaced transactions whose amounts
// split the gross with the remainder on the last.
func BuildSchedule(start time.Time, n int, gross int64, method string, anticipated bool) []Transaction {
	if anticipated || n <= 1 {
		return []Transaction{{Date: start.Format(dateLayout), Amount: gross, Method: method}}
	}
	amounts := splitEven(gross, n)
	txs := make([]Transaction, n)
	for i := range txs {
		txs[i] = Transaction{
			Date:   start.AddDate(0, i, 0).Format(dateLayout),
			Amount: amounts[i],
			Method: method,
		}
	}
	return txs
}

// parseBudgetDate accepts YYYY-MM-DD or DD/MM/YYYY budget dates, falling
// back to now when the date is missing or malformed.
func parseBudgetDate(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse("02/01/2006", s); err == nil {
		return t
	}
	return fallback
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
