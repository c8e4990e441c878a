package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestSearchParsesAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/search" || r.URL.Query().Get("q") != "Namsan Tower" || r.URL.Query().Get("format") != "jsonv2" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if r.Header.Get("User-Agent") != "tripmate-test" {
			t.Errorf("user agent = %q", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(`[
			{"place_id": 101, "lat": "37.5512", "lon": "126.9882", "name": "N Seoul Tower", "display_name": "N Seoul Tower, Namsan, Seoul"},
			{"place_id": 102, "lat": "37.55", "lon": "126.99", "name": "", "display_name": "Namsan Park, Seoul"},
			{"place_id": 103, "lat": "bad", "lon": "126.99", "name": "Broken"}
		]`))
	}))
	defer srv.Close()

	g := NewGeocoder(srv.URL, "tripmate-test")
	places, err := g.Search(context.Background(), "Namsan Tower", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(places) != 2 {
		t.Fatalf("places = %+v", places)
	}
	if places[0].Name != "N Seoul Tower" || places[0].Latitude != 37.5512 || places[0].PlaceID != "101" {
		t.Fatalf("place[0] = %+v", places[0])
	}
	if places[1].Name != "Namsan Park" {
		t.Fatalf("name fallback = %q", places[1].Name)
	}

	if _, err := g.Search(context.Background(), "namsan tower", 5); err != nil {
		t.Fatalf("cached Search: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected cached second lookup, got %d requests", hits.Load())
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	g := NewGeocoder("http://127.0.0.1:1", "")
	places, err := g.Search(context.Background(), "   ", 5)
	if err != nil || len(places) != 0 {
		t.Fatalf("Search empty = %v, %v", places, err)
	}
}

func TestSearchAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := NewGeocoder(srv.URL, "").Search(context.Background(), "Busan", 3); err == nil {
		t.Fatalf("expected error for 429")
	}
}
