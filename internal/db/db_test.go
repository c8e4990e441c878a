package db

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"tripmate/internal/model"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "tripmate.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedPlan(t *testing.T, db *sqlx.DB) int64 {
	t.Helper()
	id, err := InsertPlan(db, model.NewPlan{Place: "Seoul", StartDate: "2024-12-25", EndDate: "2024-12-27", Style: "food"})
	if err != nil {
		t.Fatalf("InsertPlan: %v", err)
	}
	return id
}

func seedStop(t *testing.T, db *sqlx.DB, planID int64, name, date, tm string) int64 {
	t.Helper()
	id, err := InsertStop(db, planID, model.NewStop{
		Location: model.Location{Name: name, Latitude: 37.5, Longitude: 127.0},
		Date:     date,
		Time:     tm,
	})
	if err != nil {
		t.Fatalf("InsertStop: %v", err)
	}
	return id
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "x"); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestOpenIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tripmate.db")
	for i := 0; i < 2; i++ {
		db, err := Open(DriverSQLite, path)
		if err != nil {
			t.Fatalf("Open #%d: %v", i, err)
		}
		db.Close()
	}
}

func TestPlanCRUD(t *testing.T) {
	db := openTestDB(t)
	id := seedPlan(t, db)

	p, err := GetPlan(db, id)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if p.Place != "Seoul" || p.StartDate != "2024-12-25" || p.Style != "food" || p.Partner != "" || p.CreatedAt.IsZero() {
		t.Fatalf("plan = %+v", p)
	}

	if err := UpdatePlan(db, id, model.UpdatePlan{Place: "Busan", Partner: "friends"}); err != nil {
		t.Fatalf("UpdatePlan: %v", err)
	}
	if err := UpdatePlanDates(db, id, "2024-12-28", "2024-12-30"); err != nil {
		t.Fatalf("UpdatePlanDates: %v", err)
	}
	p, _ = GetPlan(db, id)
	if p.Place != "Busan" || p.Partner != "friends" || p.Style != "" || p.EndDate != "2024-12-30" {
		t.Fatalf("updated plan = %+v", p)
	}

	plans, err := ListPlans(db)
	if err != nil || len(plans) != 1 {
		t.Fatalf("ListPlans = %v, %v", plans, err)
	}

	seedStop(t, db, id, "Haeundae", "2024-12-28", "10:00")
	if err := DeletePlan(db, id); err != nil {
		t.Fatalf("DeletePlan: %v", err)
	}
	if _, err := GetPlan(db, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetPlan after delete = %v", err)
	}
	stops, _ := ListStops(db, id)
	if len(stops) != 0 {
		t.Fatalf("stops survived plan delete: %v", stops)
	}
}

func TestInvertedPlanRangeRejectedBySchema(t *testing.T) {
	db := openTestDB(t)
	if _, err := InsertPlan(db, model.NewPlan{Place: "X", StartDate: "2024-12-27", EndDate: "2024-12-25"}); err == nil {
		t.Fatalf("expected check constraint failure")
	}
}

func TestStopCRUD(t *testing.T) {
	db := openTestDB(t)
	planID := seedPlan(t, db)
	id := seedStop(t, db, planID, "Gyeongbokgung", "2024-12-25", "09:00")

	s, err := GetStop(db, planID, id)
	if err != nil {
		t.Fatalf("GetStop: %v", err)
	}
	if s.Location.Name != "Gyeongbokgung" || s.Date != "2024-12-25" || s.Time != "09:00" || s.Rank != "" {
		t.Fatalf("stop = %+v", s)
	}

	s.Time = "11:30"
	s.Rank = "h"
	if err := UpdateStop(db, s); err != nil {
		t.Fatalf("UpdateStop: %v", err)
	}
	s, _ = GetStop(db, planID, id)
	if s.Time != "11:30" || s.Rank != "h" {
		t.Fatalf("updated stop = %+v", s)
	}

	if _, err := GetStop(db, planID+1, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("stop visible through another plan: %v", err)
	}
	if err := DeleteStop(db, planID, id); err != nil {
		t.Fatalf("DeleteStop: %v", err)
	}
	if err := DeleteStop(db, planID, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second DeleteStop = %v", err)
	}
}

func TestUpdateStopDatesIsAtomic(t *testing.T) {
	db := openTestDB(t)
	planID := seedPlan(t, db)
	a := seedStop(t, db, planID, "A", "2024-12-25", "09:00")
	b := seedStop(t, db, planID, "B", "2024-12-26", "09:00")

	if _, err := UpdateStopDates(db, planID, map[int64]string{a: "2024-12-28", b + 100: "2024-12-29"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing stop, got %v", err)
	}
	s, _ := GetStop(db, planID, a)
	if s.Date != "2024-12-25" {
		t.Fatalf("partial batch was committed: %s", s.Date)
	}

	n, err := UpdateStopDates(db, planID, map[int64]string{a: "2024-12-28", b: "2024-12-29"})
	if err != nil || n != 2 {
		t.Fatalf("UpdateStopDates = %d, %v", n, err)
	}
	stops, _ := ListStops(db, planID)
	if stops[0].Date != "2024-12-28" || stops[1].Date != "2024-12-29" {
		t.Fatalf("stops = %+v", stops)
	}
}
