package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"tripmate/internal/model"
)

type stopRow struct {
	ID        int64          `db:"id"`
	PlanID    int64          `db:"plan_id"`
	Name      string         `db:"name"`
	Address   sql.NullString `db:"address"`
	Latitude  float64        `db:"latitude"`
	Longitude float64        `db:"longitude"`
	Date      string         `db:"stop_date"`
	Time      string         `db:"stop_time"`
	Rank      sql.NullString `db:"sort_rank"`
	CreatedAt string         `db:"created_at"`
}

func (r stopRow) toModel() model.Stop {
	return model.Stop{
		ID:     r.ID,
		PlanID: r.PlanID,
		Location: model.Location{
			Name:      r.Name,
			Address:   r.Address.String,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
		},
		Date:      r.Date,
		Time:      r.Time,
		Rank:      r.Rank.String,
		CreatedAt: parseTime(r.CreatedAt),
	}
}

const stopColumns = `id, plan_id, name, address, latitude, longitude, stop_date, stop_time, sort_rank, created_at`

// ListStops retrieves the flat stop list of a plan in insertion order.
func ListStops(db sqlx.Ext, planID int64) ([]model.Stop, error) {
	var rows []stopRow
	query := db.Rebind(`SELECT ` + stopColumns + ` FROM stops WHERE plan_id = ? ORDER BY id`)
	if err := sqlx.Select(db, &rows, query, planID); err != nil {
		return nil, fmt.Errorf("failed to list stops: %w", err)
	}
	stops := make([]model.Stop, 0, len(rows))
	for _, r := range rows {
		stops = append(stops, r.toModel())
	}
	return stops, nil
}

// GetStop retrieves a stop of a plan by ID.
func GetStop(db sqlx.Ext, planID, id int64) (model.Stop, error) {
	var row stopRow
	query := db.Rebind(`SELECT ` + stopColumns + ` FROM stops WHERE id = ? AND plan_id = ?`)
	if err := sqlx.Get(db, &row, query, id, planID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Stop{}, fmt.Errorf("stop %d: %w", id, ErrNotFound)
		}
		return model.Stop{}, fmt.Errorf("failed to get stop: %w", err)
	}
	return row.toModel(), nil
}

// InsertStop creates a new stop and returns its ID.
func InsertStop(db sqlx.Ext, planID int64, s model.NewStop) (int64, error) {
	query := db.Rebind(`
		INSERT INTO stops (plan_id, name, address, latitude, longitude, stop_date, stop_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	var id int64
	err := db.QueryRowx(query, planID, s.Location.Name, nullString(s.Location.Address),
		s.Location.Latitude, s.Location.Longitude, s.Date, s.Time, now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert stop: %w", err)
	}
	return id, nil
}

// UpdateStop writes every field of s.
func UpdateStop(db sqlx.Ext, s model.Stop) error {
	query := db.Rebind(`
		UPDATE stops
		SET name = ?, address = ?, latitude = ?, longitude = ?, stop_date = ?, stop_time = ?, sort_rank = ?
		WHERE id = ? AND plan_id = ?
	`)
	res, err := db.Exec(query, s.Location.Name, nullString(s.Location.Address), s.Location.Latitude,
		s.Location.Longitude, s.Date, s.Time, nullString(s.Rank), s.ID, s.PlanID)
	if err != nil {
		return fmt.Errorf("failed to update stop: %w", err)
	}
	return expectRow(res, "stop", s.ID)
}

// DeleteStop removes a stop from a plan.
func DeleteStop(db sqlx.Ext, planID, id int64) error {
	res, err := db.Exec(db.Rebind(`DELETE FROM stops WHERE id = ? AND plan_id = ?`), id, planID)
	if err != nil {
		return fmt.Errorf("failed to delete stop: %w", err)
	}
	return expectRow(res, "stop", id)
}

// UpdateStopDates moves many stops of one plan in a single transaction.
// If any stop is missing nothing is changed.
func UpdateStopDates(db *sqlx.DB, planID int64, dates map[int64]string) (int, error) {
	tx, err := db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	query := tx.Rebind(`UPDATE stops SET stop_date = ? WHERE id = ? AND plan_id = ?`)
	for id, date := range dates {
		res, err := tx.Exec(query, date, id, planID)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to update stop date: %w", err)
		}
		if err := expectRow(res, "stop", id); err != nil {
			tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit stop dates: %w", err)
	}
	return len(dates), nil
}
