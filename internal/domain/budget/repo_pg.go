package budget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentway/dentway/internal/platform/db"
)

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

const budgetCols = `id, patient_id, date, location, location_rate, notes, status, created_at, updated_at`

func (r *repoPG) scanBudget(row pgx.Row) (*Budget, error) {
	var b Budget
	err := row.Scan(&b.ID, &b.PatientID, &b.Date, &b.Location, &b.LocationRate,
		&b.Notes, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &b, err
}

func (r *repoPG) Create(ctx context.Context, b *Budget) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return db.WithTransaction(ctx, r.pool, func(ctx context.Context) error {
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO budgets (id, patient_id, date, location, location_rate, notes, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			b.ID, b.PatientID, b.Date, b.Location, b.LocationRate, b.Notes, b.Status)
		if err != nil {
			return err
		}
		return r.insertItems(ctx, b)
	})
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Budget, error) {
	b, err := r.scanBudget(r.conn(ctx).QueryRow(ctx, `SELECT `+budgetCols+` FROM budgets WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	items, err := r.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Items = items
	return b, nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Budget, int, error) {
	return r.list(ctx, `SELECT COUNT(*) FROM budgets`,
		`SELECT `+budgetCols+` FROM budgets ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		nil, limit, offset)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Budget, int, error) {
	return r.list(ctx, `SELECT COUNT(*) FROM budgets WHERE patient_id = $1`,
		`SELECT `+budgetCols+` FROM budgets WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		[]interface{}{patientID}, limit, offset)
}

func (r *repoPG) list(ctx context.Context, countSQL, dataSQL string, filter []interface{}, limit, offset int) ([]*Budget, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, countSQL, filter...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args := append(filter, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var budgets []*Budget
	for rows.Next() {
		b, err := r.scanBudget(rows)
		if err != nil {
			return nil, 0, err
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for _, b := range budgets {
		items, err := r.loadItems(ctx, b.ID)
		if err != nil {
			return nil, 0, err
		}
		b.Items = items
	}
	return budgets, total, nil
}

// Update replaces the budget row and its full item list in one transaction,
// so a retry with the same payload is idempotent.
func (r *repoPG) Update(ctx context.Context, b *Budget) error {
	return db.WithTransaction(ctx, r.pool, func(ctx context.Context) error {
		tag, err := r.conn(ctx).Exec(ctx, `
			UPDATE budgets SET date=$2, location=$3, location_rate=$4, notes=$5, status=$6, updated_at=NOW()
			WHERE id = $1`,
			b.ID, b.Date, b.Location, b.LocationRate, b.Notes, b.Status)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM budget_items WHERE budget_id = $1`, b.ID); err != nil {
			return err
		}
		return r.insertItems(ctx, b)
	})
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM budgets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) insertItems(ctx context.Context, b *Budget) error {
	for pos := range b.Items {
		item := &b.Items[pos]
		amounts, err := json.Marshal(item.Amounts)
		if err != nil {
			return fmt.Errorf("marshal amounts: %w", err)
		}
		materials, err := json.Marshal(item.Materials)
		if err != nil {
			return fmt.Errorf("marshal materials: %w", err)
		}
		labFlags, err := json.Marshal(item.LabFlags)
		if err != nil {
			return fmt.Errorf("marshal lab flags: %w", err)
		}
		var payment []byte
		if item.Payment != nil {
			if payment, err = json.Marshal(item.Payment); err != nil {
				return fmt.Errorf("marshal payment: %w", err)
			}
		}
		_, err = r.conn(ctx).Exec(ctx, `
			INSERT INTO budget_items (budget_id, position, target, procedures, amounts,
				materials, description, surfaces, lab_flags, location_rate, status, payment)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			b.ID, pos, item.Target, item.Procedures, amounts,
			materials, item.Description, item.Surfaces, labFlags,
			item.LocationRateOverride, item.Status, payment)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) loadItems(ctx context.Context, budgetID uuid.UUID) ([]TreatmentItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT target, procedures, amounts, materials, description, surfaces,
			lab_flags, location_rate, status, payment
		FROM budget_items WHERE budget_id = $1 ORDER BY position`, budgetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TreatmentItem
	for rows.Next() {
		var item TreatmentItem
		var amounts, materials, labFlags, payment []byte
		if err := rows.Scan(&item.Target, &item.Procedures, &amounts, &materials,
			&item.Description, &item.Surfaces, &labFlags,
			&item.LocationRateOverride, &item.Status, &payment); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(amounts, &item.Amounts); err != nil {
			return nil, fmt.Errorf("unmarshal amounts: %w", err)
		}
		if len(materials) > 0 {
			if err := json.Unmarshal(materials, &item.Materials); err != nil {
				return nil, fmt.Errorf("unmarshal materials: %w", err)
			}
		}
		if len(labFlags) > 0 {
			if err := json.Unmarshal(labFlags, &item.LabFlags); err != nil {
				return nil, fmt.Errorf("unmarshal lab flags: %w", err)
			}
		}
		if len(payment) > 0 {
			item.Payment = &PaymentInfo{}
			if err := json.Unmarshal(payment, item.Payment); err != nil {
				return nil, fmt.Errorf("unmarshal payment: %w", err)
			}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
