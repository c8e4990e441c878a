package itinerary

import (
	"errors"
	"strings"

	"tripmate/internal/model"
)

const rankAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

const (
	rankMin = 0
	rankMax = len(rankAlphabet) - 1
)

// ErrNoRankSpace is returned when no rank exists strictly between two bounds.
var ErrNoRankSpace = errors.New("no space between ranks")

func rankDigit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'z':
		return 10 + int(c-'a'), true
	}
	return 0, false
}

// RankBetween returns a base36 rank that sorts strictly between lo and hi.
// Either bound may be empty to mean unbounded.
func RankBetween(lo, hi string) (string, error) {
	lo = strings.ToLower(strings.TrimSpace(lo))
	hi = strings.ToLower(strings.TrimSpace(hi))
	if lo != "" && hi != "" && lo >= hi {
		return "", errors.New("rank bounds out of order")
	}

	valid := func(r string) bool {
		return r != "" && (lo == "" || lo < r) && (hi == "" || r < hi)
	}

	prefix := make([]byte, 0, 8)
	for i := 0; i < 256; i++ {
		dl, dh := rankMin, rankMax
		if i < len(lo) {
			v, ok := rankDigit(lo[i])
			if !ok {
				return "", errors.New("invalid rank character")
			}
			dl = v
		}
		if i < len(hi) {
			v, ok := rankDigit(hi[i])
			if !ok {
				return "", errors.New("invalid rank character")
			}
			dh = v
		}

		if dl == dh {
			prefix = append(prefix, rankAlphabet[dl])
			continue
		}
		if dh-dl > 1 {
			prefix = append(prefix, rankAlphabet[dl+(dh-dl)/2])
			if r := string(prefix); valid(r) {
				return r, nil
			}
			return "", ErrNoRankSpace
		}
		// Adjacent digits: any extension of lo stays below hi.
		if r := lo + "0"; valid(r) {
			return r, nil
		}
		return "", ErrNoRankSpace
	}
	return "", ErrNoRankSpace
}

// RankAfter returns a rank that sorts after r.
func RankAfter(r string) (string, error) { return RankBetween(r, "") }

// PlanSessionRanks computes the rank updates that make a dragged bucket order durable.
//
// Only the relative order of stops sharing a time can be persisted, since time stays
// the primary sort key. For each same-time group whose order in the session differs
// from the order aggregation would produce, every member receives a fresh ascending
// rank. The result maps stop ID to its new rank and is empty when nothing changed.
func PlanSessionRanks(order []model.Stop) (map[int64]string, error) {
	groups := map[string][]model.Stop{}
	var times []string
	for _, s := range order {
		t := normalizeTime(s.Time)
		if _, ok := groups[t]; !ok {
			times = append(times, t)
		}
		groups[t] = append(groups[t], s)
	}

	updates := map[int64]string{}
	for _, t := range times {
		session := groups[t]
		if len(session) < 2 {
			continue
		}
		aggregated := append([]model.Stop(nil), session...)
		SortStops(aggregated)
		if sameIDs(session, aggregated) && allRanked(session) {
			continue
		}

		prev := ""
		for _, s := range session {
			r, err := RankAfter(prev)
			if err != nil {
				return nil, err
			}
			prev = r
			if strings.TrimSpace(s.Rank) != r {
				updates[s.ID] = r
			}
		}
	}
	return updates, nil
}

func sameIDs(a, b []model.Stop) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

func allRanked(stops []model.Stop) bool {
	for _, s := range stops {
		if strings.TrimSpace(s.Rank) == "" {
			return false
		}
	}
	return true
}
