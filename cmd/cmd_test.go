package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"tripmate/internal/api"
	"tripmate/internal/db"
	"tripmate/internal/itinerary"
	"tripmate/internal/logging"
	"tripmate/internal/model"
	"tripmate/internal/server"
)

const testToken = "secret"

type cliEnv struct {
	url string
	dir string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	store, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "cli.db"))
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	s, err := server.New(store, logging.New(io.Discard), server.Config{Token: testToken})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return cliEnv{url: srv.URL, dir: t.TempDir()}
}

func (e cliEnv) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd("test")
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config-dir", e.dir, "--api-url", e.url, "--token", testToken}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func (e cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, errOut, err := e.run(t, "", args...)
	if err != nil {
		t.Fatalf("tripmate %s: %v\n%s", strings.Join(args, " "), err, errOut)
	}
	return out
}

func (e cliEnv) seed(t *testing.T) model.Plan {
	t.Helper()
	var plan model.Plan
	out := e.mustRun(t, "plans", "create", "--json", "--place", "Lisbon", "--start", "2025-03-01", "--end", "2025-03-03")
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		t.Fatalf("decode plan: %v\n%s", err, out)
	}
	planArg := strconv.FormatInt(plan.ID, 10)
	for _, args := range [][]string{
		{"--place", "Belém Tower", "--lat", "38.6916", "--lon", "-9.2160", "--date", "2025-03-01", "--time", "10am"},
		{"--place", "Alfama", "--lat", "38.7118", "--lon", "-9.1300", "--date", "2025-03-02", "--time", "14:00"},
		{"--place", "Sintra", "--lat", "38.7980", "--lon", "-9.3880", "--date", "2025-03-03", "--time", "9:30"},
	} {
		e.mustRun(t, append([]string{"stops", "add", "--plan", planArg}, args...)...)
	}
	return plan
}

func (e cliEnv) stops(t *testing.T, planID int64) []model.Stop {
	t.Helper()
	stops, err := api.NewClient(e.url, testToken).ListStops(context.Background(), planID)
	if err != nil {
		t.Fatalf("ListStops: %v", err)
	}
	return stops
}

func TestPlansCreateListAndShow(t *testing.T) {
	env := newCLIEnv(t)
	plan := env.seed(t)

	out := env.mustRun(t, "plans", "list")
	if !strings.Contains(out, "Lisbon") || !strings.Contains(out, "PLACE") {
		t.Fatalf("list output:\n%s", out)
	}

	var view planView
	out = env.mustRun(t, "plans", "show", "--json", strconv.FormatInt(plan.ID, 10))
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode show: %v\n%s", err, out)
	}
	if view.Plan.ID != plan.ID || len(view.Days) != 3 {
		t.Fatalf("view = %+v", view)
	}
	if s := view.Days[0].Stops; len(s) != 1 || s[0].Location.Name != "Belém Tower" || s[0].Time != "10:00" {
		t.Fatalf("day 1 = %+v", s)
	}
}

func TestStopsAddRejectsDateOutsideTrip(t *testing.T) {
	env := newCLIEnv(t)
	env.seed(t)

	_, _, err := env.run(t, "", "stops", "add", "--plan", "1", "--place", "Porto", "--lat", "41.15", "--lon", "-8.61", "--date", "2025-03-09", "--time", "12:00")
	if err == nil || !strings.Contains(err.Error(), "within the trip") {
		t.Fatalf("err = %v", err)
	}
}

func TestDatesDeclinedLeavesEverythingInPlace(t *testing.T) {
	env := newCLIEnv(t)
	plan := env.seed(t)

	out, _, err := env.run(t, "n\n", "dates", "1", "--start", "2025-04-01", "--end", "2025-04-02")
	if err != nil {
		t.Fatalf("dates: %v", err)
	}
	if !strings.Contains(out, "[y/N]") || !strings.Contains(out, "Dates unchanged") {
		t.Fatalf("output:\n%s", out)
	}
	for _, s := range env.stops(t, plan.ID) {
		if !strings.HasPrefix(s.Date, "2025-03-") {
			t.Fatalf("%s moved to %s", s.Location.Name, s.Date)
		}
	}
}

func TestDatesMovesStopsWithTheTrip(t *testing.T) {
	env := newCLIEnv(t)
	plan := env.seed(t)

	out := env.mustRun(t, "dates", "1", "--start", "2025-04-10", "--end", "2025-04-12")
	if !strings.Contains(out, "3 stops moved") {
		t.Fatalf("output:\n%s", out)
	}
	want := map[string]string{"Belém Tower": "2025-04-10", "Alfama": "2025-04-11", "Sintra": "2025-04-12"}
	for _, s := range env.stops(t, plan.ID) {
		if s.Date != want[s.Location.Name] {
			t.Fatalf("%s on %s, want %s", s.Location.Name, s.Date, want[s.Location.Name])
		}
	}
}

func TestDatesYesSkipsThePrompt(t *testing.T) {
	env := newCLIEnv(t)
	plan := env.seed(t)

	out := env.mustRun(t, "dates", "1", "--start", "2025-05-01", "--end", "2025-05-01", "--yes")
	if strings.Contains(out, "[y/N]") {
		t.Fatalf("prompted despite --yes:\n%s", out)
	}
	stops := env.stops(t, plan.ID)
	var outside int
	for _, s := range stops {
		if s.Date != "2025-05-01" {
			outside++
		}
	}
	if outside != 2 {
		t.Fatalf("stops = %+v", stops)
	}
}

func TestRemapFailureAsksTheMatchingQuestion(t *testing.T) {
	var buf bytes.Buffer
	terr := &itinerary.TripDatesError{
		Plan:     model.Plan{ID: 1, StartDate: "2025-03-01", EndDate: "2025-03-03"},
		NewStart: "2025-04-10",
		NewEnd:   "2025-04-12",
		Updated:  make([]model.Stop, 3),
		Err:      errors.New("connection reset"),
	}
	if q := printRemapFailure(&buf, terr); !strings.Contains(q, "trip dates") {
		t.Fatalf("question = %q", q)
	}
	if out := buf.String(); !strings.Contains(out, "3 stops are already") || !strings.Contains(out, "Do not run this command again") {
		t.Fatalf("output:\n%s", out)
	}

	buf.Reset()
	perr := &itinerary.PartialRemapError{
		Failed: itinerary.DateChange{Stop: model.Stop{Location: model.Location{Name: "Alfama"}}, From: "2025-03-02", To: "2025-04-11"},
		Err:    errors.New("timeout"),
	}
	if q := printRemapFailure(&buf, perr); !strings.Contains(q, "remaining stops") {
		t.Fatalf("question = %q", q)
	}
	if !strings.Contains(buf.String(), "Alfama") {
		t.Fatalf("output:\n%s", buf.String())
	}
}

func TestMapWritesDocument(t *testing.T) {
	env := newCLIEnv(t)
	env.seed(t)

	path := filepath.Join(t.TempDir(), "lisbon.html")
	_, errOut, err := env.run(t, "", "map", "1", "--out", path)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "Alfama") {
		t.Fatalf("map document has no stops:\n%s", data)
	}
	if !strings.Contains(errOut, "3 markers") {
		t.Fatalf("status = %q", errOut)
	}
}

func TestOnboardingTokenIsPrivate(t *testing.T) {
	dir := t.TempDir()
	if err := saveToken(dir, " abc \n"); err != nil {
		t.Fatalf("saveToken: %v", err)
	}
	info, err := os.Stat(tokenPath(dir))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("mode = %v", info.Mode().Perm())
	}
	if tok, _ := loadToken(dir); tok != "abc" {
		t.Fatalf("token = %q", tok)
	}
}

func TestValidateAPIURL(t *testing.T) {
	for _, tc := range []struct {
		in string
		ok bool
	}{
		{"http://localhost:8080", true},
		{"https://trips.example.com/api", true},
		{"localhost:8080", false},
		{"ftp://example.com", false},
		{"http://", false},
	} {
		if err := validateAPIURL(tc.in); (err == nil) != tc.ok {
			t.Fatalf("validateAPIURL(%q) = %v", tc.in, err)
		}
	}
}
