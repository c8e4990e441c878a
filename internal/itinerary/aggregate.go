package itinerary

import (
	"sort"
	"strings"

	"tripmate/internal/model"
)

// BuildDayBuckets groups a plan's flat stop list into one bucket per date of the plan.
//
// Every date in the range gets a bucket, even when it holds no stops. Stops whose date
// falls outside the range are left out. Within a bucket stops are ordered by time; stops
// sharing a time keep their input order unless they carry a persisted rank.
func BuildDayBuckets(plan model.Plan, stops []model.Stop) []model.DayBucket {
	dates := ExpandDates(plan.StartDate, plan.EndDate)
	buckets := make([]model.DayBucket, len(dates))
	index := make(map[string]int, len(dates))
	for i, d := range dates {
		buckets[i] = model.DayBucket{Date: d, Index: i, Stops: []model.Stop{}}
		index[d] = i
	}

	for _, s := range stops {
		i, ok := index[normalizeDate(s.Date)]
		if !ok {
			continue
		}
		buckets[i].Stops = append(buckets[i].Stops, s)
	}

	for i := range buckets {
		SortStops(buckets[i].Stops)
	}
	return buckets
}

// SortStops orders stops by time of day in place. The sort is stable.
func SortStops(stops []model.Stop) {
	sort.SliceStable(stops, func(i, j int) bool {
		return compareStops(stops[i], stops[j]) < 0
	})
}

// compareStops orders by time, then ranked before unranked, then by rank.
func compareStops(a, b model.Stop) int {
	ta, tb := normalizeTime(a.Time), normalizeTime(b.Time)
	if ta != tb {
		if ta < tb {
			return -1
		}
		return 1
	}
	ra, rb := strings.TrimSpace(a.Rank), strings.TrimSpace(b.Rank)
	switch {
	case ra == "" && rb == "":
		return 0
	case ra == "":
		return 1
	case rb == "":
		return -1
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	}
	return 0
}

// CountDistinctDates returns the number of different dates the stops occupy.
func CountDistinctDates(stops []model.Stop) int {
	seen := make(map[string]bool, len(stops))
	for _, s := range stops {
		seen[normalizeDate(s.Date)] = true
	}
	return len(seen)
}

// Dropped returns the stops that fall outside the plan's range and so have no bucket.
func Dropped(plan model.Plan, stops []model.Stop) []model.Stop {
	var out []model.Stop
	for _, s := range stops {
		if !InRange(normalizeDate(s.Date), plan.StartDate, plan.EndDate) {
			out = append(out, s)
		}
	}
	return out
}

// FindStop locates a stop by ID, returning its bucket and position.
func FindStop(buckets []model.DayBucket, stopID int64) (bucket, pos int, ok bool) {
	for b := range buckets {
		for p, s := range buckets[b].Stops {
			if s.ID == stopID {
				return b, p, true
			}
		}
	}
	return 0, 0, false
}

func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	// Backends sometimes send full timestamps; only the calendar part matters.
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	return s
}

// normalizeTime pads "9:05" to "09:05" so string comparison matches clock order.
func normalizeTime(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ':'); i == 1 {
		s = "0" + s
	}
	return s
}
