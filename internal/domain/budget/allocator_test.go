package budget

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// -- Mocks --

type mockBudgetRepo struct {
	items map[uuid.UUID]*Budget
}

func newMockBudgetRepo() *mockBudgetRepo {
	return &mockBudgetRepo{items: make(map[uuid.UUID]*Budget)}
}

func (m *mockBudgetRepo) Create(_ context.Context, b *Budget) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = time.Now()
	b.UpdatedAt = time.Now()
	m.items[b.ID] = b
	return nil
}

func (m *mockBudgetRepo) GetByID(_ context.Context, id uuid.UUID) (*Budget, error) {
	b, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (m *mockBudgetRepo) List(_ context.Context, limit, offset int) ([]*Budget, int, error) {
	var result []*Budget
	for _, b := range m.items {
		result = append(result, b)
	}
	return result, len(result), nil
}

func (m *mockBudgetRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Budget, int, error) {
	var result []*Budget
	for _, b := range m.items {
		if b.PatientID == patientID {
			result = append(result, b)
		}
	}
	return result, len(result), nil
}

func (m *mockBudgetRepo) Update(_ context.Context, b *Budget) error {
	if _, ok := m.items[b.ID]; !ok {
		return ErrNotFound
	}
	m.items[b.ID] = b
	return nil
}

func (m *mockBudgetRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

type mockSink struct {
	entries []*EntryPayload
}

func (m *mockSink) CreateEntry(_ context.Context, e *EntryPayload) error {
	m.entries = append(m.entries, e)
	return nil
}

func newTestAllocator(repo *mockBudgetRepo, sink *mockSink, account AccountRates) *Allocator {
	a := NewAllocator(repo, sink, account)
	a.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return a
}

func approvedItem(target string, amount int64) TreatmentItem {
	item := validItem(target, amount)
	item.Status = ItemApproved
	return item
}

func seedBudget(repo *mockBudgetRepo, items ...TreatmentItem) *Budget {
	b := &Budget{
		ID:        uuid.New(),
		PatientID: uuid.New(),
		Date:      "2026-02-01",
		Location:  "Downtown",
		Items:     items,
	}
	b.RecomputeStatus()
	repo.items[b.ID] = b
	return b
}

// -- PayItem --

func TestPayItem_CashNoBreakdown(t *testing.T) {
	repo := newMockBudgetRepo()
	sink := &mockSink{}
	a := newTestAllocator(repo, sink, AccountRates{})
	rate := 20.0
	b := seedBudget(repo, approvedItem("11", 5000))
	b.LocationRate = &rate

	err := a.PayItem(context.Background(), b.ID, 0, PaymentRequest{Method: MethodCash})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	item := &b.Items[0]
	if item.Status != ItemPaid {
		t.Fatalf("expected paid, got %s", item.Status)
	}
	if b.Status != StatusCompleted {
		t.Fatalf("expected completed budget, got %s", b.Status)
	}

	bd := item.Payment.Breakdown
	if bd.LocationAmount != 1000 || bd.NetAmount != 4000 {
		t.Fatalf("breakdown location=%d net=%d, want 1000/4000", bd.LocationAmount, bd.NetAmount)
	}

	if len(sink.entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(sink.entries))
	}
	e := sink.entries[0]
	if e.Amount != 5000 || e.NetAmount != 4000 || e.LocationAmount != 1000 {
		t.Fatalf("entry amount=%d net=%d location=%d", e.Amount, e.NetAmount, e.LocationAmount)
	}
	if e.Date != "2026-02-01" {
		t.Fatalf("entry should carry the budget date, got %s", e.Date)
	}
	if e.Type != "income" || e.Category != "Procedure" {
		t.Fatalf("entry type=%s category=%s", e.Type, e.Category)
	}
	if !e.PayerIsPatient || e.PayerType != "PF" {
		t.Fatalf("expected patient payer defaults, got %v/%s", e.PayerIsPatient, e.PayerType)
	}
}

func TestPayItem_SuppliedBreakdownRateWins(t *testing.T) {
	repo := newMockBudgetRepo()
	sink := &mockSink{}
	a := newTestAllocator(repo, sink, AccountRates{LocationRate: 10})
	b := seedBudget(repo, approvedItem("11", 10000))

	req := PaymentRequest{
		Method: MethodPix,
		Breakdown: &FinancialBreakdown{
			GrossAmount:  10000,
			NetAmount:    10000,
			LocationRate: 25,
		},
	}
	if err := a.PayItem(context.Background(), b.ID, 0, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bd := b.Items[0].Payment.Breakdown
	if bd.LocationRate != 25 {
		t.Fatalf("expected supplied rate 25, got %v", bd.LocationRate)
	}
	// Location was zero in the supplied breakdown, so it is derived from the
	// winning rate and taken out of net.
	if bd.LocationAmount != 2500 || bd.NetAmount != 7500 {
		t.Fatalf("location=%d net=%d, want 2500/7500", bd.LocationAmount, bd.NetAmount)
	}
}

func TestPayItem_NotApproved(t *testing.T) {
	repo := newMockBudgetRepo()
	sink := &mockSink{}
	a := newTestAllocator(repo, sink, AccountRates{})

	pending := validItem("11", 5000)
	paid := validItem("12", 5000)
	paid.Status = ItemPaid
	b := seedBudget(repo, pending, paid)

	for idx := range b.Items {
		err := a.PayItem(context.Background(), b.ID, idx, PaymentRequest{Method: MethodCash})
		if !IsValidation(err) {
			t.Errorf("item %d: expected validation error, got %v", idx, err)
		}
	}
	if len(sink.entries) != 0 {
		t.Fatalf("no entries should be emitted, got %d", len(sink.entries))
	}
}

func TestPayItem_TransactionsMustSumToGross(t *testing.T) {
	repo := newMockBudgetRepo()
	sink := &mockSink{}
	a := newTestAllocator(repo, sink, AccountRates{})
	b := seedBudget(repo, approvedItem("11", 10000))

	req := PaymentRequest{
		Method: MethodCredit,
		Transactions: []Transaction{
			{Date: "2026-02-01", Amount: 4000, Method: MethodCredit},
			{Date: "2026-03-01", Amount: 4000, Method: MethodCredit},
		},
	}
	err := a.PayItem(context.Background(), b.ID, 0, req)
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if b.Items[0].Status != ItemApproved {
		t.Fatal("item must stay approved on rejection")
	}
}

func TestPayItem_InstallmentSchedule(t *testing.T) {
	repo := newMockBudgetRepo()
	sink := &mockSink{}
	a := newTestAllocator(repo, sink, AccountRates{})
	b := seedBudget(repo, approvedItem("11", 10000))
	b.Date = "2026-01-15"

	req := PaymentRequest{Method: MethodCredit, Installments: 3, Brand: "visa"}
	if err := a.PayItem(context.Background(), b.ID, 0, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	txs := b.Items[0].Payment.Transactions
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txs))
	}
	wantDates := []string{"2026-01-15", "2026-02-15", "2026-03-15"}
	wantAmounts := []int64{3333, 3333, 3334}
	for i, tx := range txs {
		if tx.Date != wantDates[i] || tx.Amount != wantAmounts[i] {
			t.Errorf("tx %d: got %s/%d, want %s/%d", i, tx.Date, tx.Amount, wantDates[i], wantAmounts[i])
		}
	}

	if len(sink.entries) != 3 {
		t.Fatalf("expected 3 ledger entries, got %d", len(sink.entries))
	}
	if !strings.HasSuffix(sink.entries[0].Description, " (1/3)") {
		t.Errorf("missing installment suffix: %q", sink.entries[0].Description)
	}
	if !strings.HasSuffix(sink.entries[2].Description, " (3/3)") {
		t.Errorf("missing installment suffix: %q", sink.entries[2].Description)
	}
	var entrySum int64
	for _, e := range sink.entries {
		entrySum += e.Amount
	}
	if entrySum != 10000 {
		t.Fatalf("entries sum to %d, want 10000", entrySum)
	}
}

func TestPayItem_AnticipatedCollapsesToOneTransaction(t *testing.T) {
	repo := newMockBudgetRepo()
	sink := &mockSink{}
	a := newTestAllocator(repo, sink, AccountRates{})
	b := seedBudget(repo, approvedItem("11", 10000))

	req := PaymentRequest{
		Method:       MethodCredit,
		Installments: 6,
		Breakdown: &FinancialBreakdown{
			GrossAmount: 10000,
			NetAmount:   10000,
			Anticipated: true,
		},
	}
	if err := a.PayItem(context.Background(), b.ID, 0, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	txs := b.Items[0].Payment.Transactions
	if len(txs) != 1 || txs[0].Amount != 10000 {
		t.Fatalf("expected a single full transaction, got %v", txs)
	}
	if len(sink.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(sink.entries))
	}
}

func TestPayItem_Description(t *testing.T) {
	repo := newMockBudgetRepo()
	sink := &mockSink{}
	a := newTestAllocator(repo, sink, AccountRates{})

	item := TreatmentItem{
		Target:     "36",
		Procedures: []string{"Root Canal", "Restoration"},
		Amounts:    map[string]int64{"Root Canal": 30000, "Restoration": 5000},
		Status:     ItemApproved,
	}
	b := seedBudget(repo, item)

	req := PaymentRequest{Method: MethodCredit, Brand: "visa", PatientName: "Ana Souza"}
	if err := a.PayItem(context.Background(), b.ID, 0, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "Root Canal, Restoration (Credit - VISA) - Tooth 36 - Ana Souza"
	if got := sink.entries[0].Description; got != want {
		t.Fatalf("description:\n got %q\nwant %q", got, want)
	}
}

func TestPayItem_PayerOverride(t *testing.T) {
	repo := newMockBudgetRepo()
	sink := &mockSink{}
	a := newTestAllocator(repo, sink, AccountRates{})
	b := seedBudget(repo, approvedItem("11", 5000))

	invoiceSource := uuid.New()
	req := PaymentRequest{
		Method: MethodTransfer,
		Payer: &Payer{
			IsPatient:       false,
			Type:            "PJ",
			Name:            "Acme Dental Plan",
			TaxID:           "12345678000190",
			InvoiceSourceID: &invoiceSource,
		},
	}
	if err := a.PayItem(context.Background(), b.ID, 0, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := sink.entries[0]
	if e.PayerIsPatient || e.PayerType != "PJ" || e.PayerName != "Acme Dental Plan" {
		t.Fatalf("payer not carried: %+v", e)
	}
	if e.InvoiceSourceID == nil || *e.InvoiceSourceID != invoiceSource {
		t.Fatal("invoice source not carried")
	}
}

func TestPayItem_BudgetNotFound(t *testing.T) {
	repo := newMockBudgetRepo()
	a := newTestAllocator(repo, &mockSink{}, AccountRates{})
	err := a.PayItem(context.Background(), uuid.New(), 0, PaymentRequest{Method: MethodCash})
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// -- PayItems --

func TestPayItems_SplitsAcrossItems(t *testing.T) {
	repo := newMockBudgetRepo()
	sink := &mockSink{}
	a := newTestAllocator(repo, sink, AccountRates{})

	rate := 10.0
	b := seedBudget(repo, approvedItem("11", 10000), approvedItem("12", 30000))
	b.LocationRate = &rate

	req := PaymentRequest{
		Method: MethodCredit,
		Transactions: []Transaction{
			{Date: "2026-02-01", Amount: 40000, Method: MethodCredit},
		},
		Breakdown: &FinancialBreakdown{
			GrossAmount:   40000,
			NetAmount:     38800,
			CardFeeRate:   3,
			CardFeeAmount: 1200,
			LocationRate:  7, // batch-average rate, must be ignored
		},
	}
	if err := a.PayItems(context.Background(), b.ID, []int{0, 1}, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b.Status != StatusCompleted {
		t.Fatalf("expected completed budget, got %s", b.Status)
	}

	// Item 0: card fee share 300, location 10% of 9700 = 970.
	bd0 := b.Items[0].Payment.Breakdown
	if bd0.CardFeeAmount != 300 || bd0.LocationAmount != 970 || bd0.LocationRate != 10 {
		t.Fatalf("item 0 breakdown: cardFee=%d location=%d rate=%v", bd0.CardFeeAmount, bd0.LocationAmount, bd0.LocationRate)
	}
	if bd0.NetAmount != 8730 {
		t.Fatalf("item 0 net: got %d, want 8730", bd0.NetAmount)
	}

	// Item 1: card fee share 900, location 10% of 29100 = 2910.
	bd1 := b.Items[1].Payment.Breakdown
	if bd1.CardFeeAmount != 900 || bd1.LocationAmount != 2910 {
		t.Fatalf("item 1 breakdown: cardFee=%d location=%d", bd1.CardFeeAmount, bd1.LocationAmount)
	}
	if bd1.NetAmount != 26190 {
		t.Fatalf("item 1 net: got %d, want 26190", bd1.NetAmount)
	}

	if len(sink.entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(sink.entries))
	}
	if sink.entries[0].Amount != 10000 || sink.entries[1].Amount != 30000 {
		t.Fatalf("entry amounts: %d, %d", sink.entries[0].Amount, sink.entries[1].Amount)
	}
	if sink.entries[0].Amount+sink.entries[1].Amount != 40000 {
		t.Fatal("entries do not re-sum to the payment")
	}
}

func TestPayItems_PerItemRateResolution(t *testing.T) {
	repo := newMockBudgetRepo()
	sink := &mockSink{}
	a := newTestAllocator(repo, sink, AccountRates{LocationRate: 10})

	override := 20.0
	special := approvedItem("11", 10000)
	special.LocationRateOverride = &override
	b := seedBudget(repo, special, approvedItem("12", 10000))

	if err := a.PayItems(context.Background(), b.ID, []int{0, 1}, PaymentRequest{Method: MethodCash}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := b.Items[0].Payment.Breakdown.LocationAmount; got != 2000 {
		t.Fatalf("override item location: got %d, want 2000", got)
	}
	if got := b.Items[1].Payment.Breakdown.LocationAmount; got != 1000 {
		t.Fatalf("default item location: got %d, want 1000", got)
	}
}

func TestPayItems_DuplicateIndex(t *testing.T) {
	repo := newMockBudgetRepo()
	a := newTestAllocator(repo, &mockSink{}, AccountRates{})
	b := seedBudget(repo, approvedItem("11", 5000))

	err := a.PayItems(context.Background(), b.ID, []int{0, 0}, PaymentRequest{Method: MethodCash})
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPayItems_NoSelection(t *testing.T) {
	repo := newMockBudgetRepo()
	a := newTestAllocator(repo, &mockSink{}, AccountRates{})
	err := a.PayItems(context.Background(), uuid.New(), nil, PaymentRequest{Method: MethodCash})
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPayItems_RejectsUnapprovedMember(t *testing.T) {
	repo := newMockBudgetRepo()
	sink := &mockSink{}
	a := newTestAllocator(repo, sink, AccountRates{})
	b := seedBudget(repo, approvedItem("11", 5000), validItem("12", 3000))

	err := a.PayItems(context.Background(), b.ID, []int{0, 1}, PaymentRequest{Method: MethodCash})
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if b.Items[0].Status != ItemApproved {
		t.Fatal("no item may change state on rejection")
	}
	if len(sink.entries) != 0 {
		t.Fatal("no entries may be emitted on rejection")
	}
}

func TestPayItems_TransactionSharesReSum(t *testing.T) {
	repo := newMockBudgetRepo()
	sink := &mockSink{}
	a := newTestAllocator(repo, sink, AccountRates{})
	b := seedBudget(repo, approvedItem("11", 3333), approvedItem("12", 6667))

	req := PaymentRequest{
		Method: MethodCredit,
		Transactions: []Transaction{
			{Date: "2026-02-01", Amount: 5000, Method: MethodCredit},
			{Date: "2026-03-01", Amount: 5000, Method: MethodCredit},
		},
	}
	if err := a.PayItems(context.Background(), b.ID, []int{0, 1}, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for j := 0; j < 2; j++ {
		var txSum int64
		for i := range b.Items {
			txSum += b.Items[i].Payment.Transactions[j].Amount
		}
		if txSum != 5000 {
			t.Errorf("transaction %d shares sum to %d, want 5000", j, txSum)
		}
	}
	var entrySum int64
	for _, e := range sink.entries {
		entrySum += e.Amount
	}
	if entrySum != 10000 {
		t.Fatalf("entries sum to %d, want 10000", entrySum)
	}
}

func TestBuildSchedule_Monthly(t *testing.T) {
	start := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	txs := BuildSchedule(start, 2, 1000, MethodCredit, false)
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	// AddDate normalizes Jan 31 + 1 month to Mar 3 (2026 is not a leap year).
	if txs[1].Date != "2026-03-03" {
		t.Fatalf("got %s", txs[1].Date)
	}
}

func TestParseBudgetDate(t *testing.T) {
	fallback := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	if got := parseBudgetDate("2026-02-01", fallback); got.Format(dateLayout) != "2026-02-01" {
		t.Errorf("ISO date: got %s", got.Format(dateLayout))
	}
	if got := parseBudgetDate("01/02/2026", fallback); got.Format(dateLayout) != "2026-02-01" {
		t.Errorf("DD/MM/YYYY date: got %s", got.Format(dateLayout))
	}
	if got := parseBudgetDate("", fallback); !got.Equal(fallback) {
		t.Error("empty date must fall back")
	}
	if got := parseBudgetDate("not a date", fallback); !got.Equal(fallback) {
		t.Error("malformed date must fall back")
	}
}
