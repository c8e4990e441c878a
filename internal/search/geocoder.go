package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"tripmate/internal/model"
)

// DefaultGeocoderURL is the public Nominatim instance.
const DefaultGeocoderURL = "https://nominatim.openstreetmap.org"

const cacheSize = 256

// Geocoder looks up places by free-text query against a Nominatim-compatible API.
type Geocoder struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	cache      *lru.Cache[string, []model.Place]
}

// NewGeocoder creates a geocoding client. An empty baseURL uses DefaultGeocoderURL.
func NewGeocoder(baseURL, userAgent string) *Geocoder {
	if baseURL == "" {
		baseURL = DefaultGeocoderURL
	}
	if userAgent == "" {
		userAgent = "tripmate"
	}
	cache, _ := lru.New[string, []model.Place](cacheSize)
	return &Geocoder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		cache:      cache,
	}
}

// Search returns up to limit places matching query. Results are cached per query.
func (g *Geocoder) Search(ctx context.Context, query string, limit int) ([]model.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.Place{}, nil
	}
	if limit <= 0 {
		limit = 8
	}
	key := strings.ToLower(query) + "|" + strconv.Itoa(limit)
	if places, ok := g.cache.Get(key); ok {
		return places, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("addressdetails", "0")
	reqURL := fmt.Sprintf("%s/search?%s", g.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return []model.Place{}, fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return []model.Place{}, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return []model.Place{}, fmt.Errorf("API error: status %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return []model.Place{}, fmt.Errorf("JSON decode error: %w", err)
	}

	places := make([]model.Place, 0, len(results))
	for _, r := range results {
		lat, err := strconv.ParseFloat(r.Lat, 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(r.Lon, 64)
		if err != nil {
			continue
		}
		name := r.Name
		if name == "" {
			name, _, _ = strings.Cut(r.DisplayName, ",")
		}
		places = append(places, model.Place{
			Name:      strings.TrimSpace(name),
			Address:   r.DisplayName,
			Latitude:  lat,
			Longitude: lon,
			PlaceID:   strconv.FormatInt(r.PlaceID, 10),
		})
	}

	g.cache.Add(key, places)
	return places, nil
}

// API response types

type searchResult struct {
	PlaceID     int64  `json:"place_id"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`
	Type        string `json:"type"`
}
