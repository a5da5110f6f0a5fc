package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentway/dentway/internal/platform/db"
)

// ErrNotFound is returned when a ledger entry does not exist.
var ErrNotFound = errors.New("ledger entry not found")

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const entryCols = `id, type, amount, description, category, date, location,
	patient_id, budget_id, net_amount, tax_rate, tax_amount,
	card_fee_rate, card_fee_amount, anticipation_rate, anticipation_amount,
	location_rate, location_amount, payer_is_patient, payer_type,
	payer_name, payer_tax_id, invoice_source_id, created_at`

func (r *repoPG) scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.Type, &e.Amount, &e.Description, &e.Category,
		&e.Date, &e.Location, &e.PatientID, &e.BudgetID, &e.NetAmount,
		&e.TaxRate, &e.TaxAmount, &e.CardFeeRate, &e.CardFeeAmount,
		&e.AnticipationRate, &e.AnticipationAmount, &e.LocationRate,
		&e.LocationAmount, &e.PayerIsPatient, &e.PayerType, &e.PayerName,
		&e.PayerTaxID, &e.InvoiceSourceID, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &e, err
}

func (r *repoPG) Create(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO ledger_entries (id, type, amount, description, category, date,
			location, patient_id, budget_id, net_amount, tax_rate, tax_amount,
			card_fee_rate, card_fee_amount, anticipation_rate, anticipation_amount,
			location_rate, location_amount, payer_is_patient, payer_type,
			payer_name, payer_tax_id, invoice_source_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`,
		e.ID, e.Type, e.Amount, e.Description, e.Category, e.Date,
		e.Location, e.PatientID, e.BudgetID, e.NetAmount, e.TaxRate, e.TaxAmount,
		e.CardFeeRate, e.CardFeeAmount, e.AnticipationRate, e.AnticipationAmount,
		e.LocationRate, e.LocationAmount, e.PayerIsPatient, e.PayerType,
		e.PayerName, e.PayerTaxID, e.InvoiceSourceID)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return r.scanEntry(r.conn(ctx).QueryRow(ctx, `SELECT `+entryCols+` FROM ledger_entries WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	where, args := buildFilter(f)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := fmt.Sprintf(`SELECT %s FROM ledger_entries%s ORDER BY date DESC, created_at DESC LIMIT $%d OFFSET $%d`,
		entryCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, dataSQL, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (r *repoPG) Summarize(ctx context.Context, from, to string) (*Summary, error) {
	s := &Summary{From: from, To: to}
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'income'), 0),
			COALESCE(SUM(net_amount) FILTER (WHERE type = 'income'), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'expense'), 0),
			COUNT(*)
		FROM ledger_entries WHERE date >= $1 AND date <= $2`, from, to).
		Scan(&s.IncomeGross, &s.IncomeNet, &s.ExpenseTotal, &s.EntryCount)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM ledger_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func buildFilter(f Filter) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.PatientID != uuid.Nil {
		add("patient_id = $%d", f.PatientID)
	}
	if f.BudgetID != uuid.Nil {
		add("budget_id = $%d", f.BudgetID)
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.From != "" {
		add("date >= $%d", f.From)
	}
	if f.To != "" {
		add("date <= $%d", f.To)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	where := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}
