package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"tripmate/internal/model"
)

type planRow struct {
	ID        int64          `db:"id"`
	Place     string         `db:"place"`
	StartDate string         `db:"start_date"`
	EndDate   string         `db:"end_date"`
	Partner   sql.NullString `db:"partner"`
	Style     sql.NullString `db:"style"`
	CreatedAt string         `db:"created_at"`
	UpdatedAt string         `db:"updated_at"`
}

func (r planRow) toModel() model.Plan {
	return model.Plan{
		ID:        r.ID,
		Place:     r.Place,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		Partner:   r.Partner.String,
		Style:     r.Style.String,
		CreatedAt: parseTime(r.CreatedAt),
		UpdatedAt: parseTime(r.UpdatedAt),
	}
}

const planColumns = `id, place, start_date, end_date, partner, style, created_at, updated_at`

// ListPlans retrieves all plans, soonest first.
func ListPlans(db sqlx.Ext) ([]model.Plan, error) {
	var rows []planRow
	query := `SELECT ` + planColumns + ` FROM plans ORDER BY start_date, id`
	if err := sqlx.Select(db, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	plans := make([]model.Plan, 0, len(rows))
	for _, r := range rows {
		plans = append(plans, r.toModel())
	}
	return plans, nil
}

// GetPlan retrieves a single plan by ID.
func GetPlan(db sqlx.Ext, id int64) (model.Plan, error) {
	var row planRow
	query := db.Rebind(`SELECT ` + planColumns + ` FROM plans WHERE id = ?`)
	if err := sqlx.Get(db, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Plan{}, fmt.Errorf("plan %d: %w", id, ErrNotFound)
		}
		return model.Plan{}, fmt.Errorf("failed to get plan: %w", err)
	}
	return row.toModel(), nil
}

// InsertPlan creates a new plan and returns its ID.
func InsertPlan(db sqlx.Ext, p model.NewPlan) (int64, error) {
	query := db.Rebind(`
		INSERT INTO plans (place, start_date, end_date, partner, style, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	ts := now()
	var id int64
	err := db.QueryRowx(query, p.Place, p.StartDate, p.EndDate, nullString(p.Partner), nullString(p.Style), ts, ts).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert plan: %w", err)
	}
	return id, nil
}

// UpdatePlan edits a plan's descriptive fields.
func UpdatePlan(db sqlx.Ext, id int64, p model.UpdatePlan) error {
	query := db.Rebind(`UPDATE plans SET place = ?, partner = ?, style = ?, updated_at = ? WHERE id = ?`)
	res, err := db.Exec(query, p.Place, nullString(p.Partner), nullString(p.Style), now(), id)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	return expectRow(res, "plan", id)
}

// UpdatePlanDates sets a plan's date range.
func UpdatePlanDates(db sqlx.Ext, id int64, start, end string) error {
	query := db.Rebind(`UPDATE plans SET start_date = ?, end_date = ?, updated_at = ? WHERE id = ?`)
	res, err := db.Exec(query, start, end, now(), id)
	if err != nil {
		return fmt.Errorf("failed to update plan dates: %w", err)
	}
	return expectRow(res, "plan", id)
}

// DeletePlan removes a plan and its stops in one transaction.
func DeletePlan(db *sqlx.DB, id int64) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if _, err := tx.Exec(tx.Rebind(`DELETE FROM stops WHERE plan_id = ?`), id); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete plan stops: %w", err)
	}
	res, err := tx.Exec(tx.Rebind(`DELETE FROM plans WHERE id = ?`), id)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	if err := expectRow(res, "plan", id); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func expectRow(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}
