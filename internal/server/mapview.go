package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tripmate/internal/db"
	"tripmate/internal/itinerary"
	"tripmate/internal/model"
	"tripmate/internal/util"
)

//go:embed templates/map.html
var templatesFS embed.FS

const (
	mapWidth  = 800
	mapHeight = 500
	mapPad    = 40
)

var templateFuncs = template.FuncMap{
	"coords": util.FormatCoords,
}

type mapVM struct {
	Plan     model.Plan
	Range    string
	Days     []mapDayVM
	Markers  []mapMarkerVM
	Route    string
	Width    int
	Height   int
	Outside  int
	HasStops bool
}

type mapDayVM struct {
	Heading string
	Stops   []mapMarkerVM
}

type mapMarkerVM struct {
	Stop  model.Stop
	Seq   int
	X, Y  float64
	Color string
}

var dayColors = []string{"#e4572e", "#17bebb", "#ffc914", "#76b041", "#7d5ba6", "#2e86ab", "#f18f01"}

// buildMapVM projects the plan's stops, in itinerary order, onto the map canvas.
func buildMapVM(plan model.Plan, stops []model.Stop) mapVM {
	vm := mapVM{
		Plan:   plan,
		Range:  util.FormatDateRange(plan.StartDate, plan.EndDate),
		Width:  mapWidth,
		Height: mapHeight,
	}
	buckets := itinerary.BuildDayBuckets(plan, stops)
	vm.Outside = len(itinerary.Dropped(plan, stops))

	var ordered []mapMarkerVM
	for _, b := range buckets {
		day := mapDayVM{Heading: util.FormatDayHeading(b.Date, b.Index)}
		for _, s := range b.Stops {
			m := mapMarkerVM{Stop: s, Seq: len(ordered) + 1, Color: dayColors[b.Index%len(dayColors)]}
			ordered = append(ordered, m)
			day.Stops = append(day.Stops, m)
		}
		vm.Days = append(vm.Days, day)
	}
	if len(ordered) == 0 {
		return vm
	}
	vm.HasStops = true

	minLat, maxLat := math.Inf(1), math.Inf(-1)
	minLon, maxLon := math.Inf(1), math.Inf(-1)
	for _, m := range ordered {
		l := m.Stop.Location
		minLat, maxLat = math.Min(minLat, l.Latitude), math.Max(maxLat, l.Latitude)
		minLon, maxLon = math.Min(minLon, l.Longitude), math.Max(maxLon, l.Longitude)
	}
	spanLat, spanLon := maxLat-minLat, maxLon-minLon
	if spanLat == 0 {
		spanLat = 1
	}
	if spanLon == 0 {
		spanLon = 1
	}

	points := make([]string, 0, len(ordered))
	index := map[int64]int{}
	for i := range ordered {
		l := ordered[i].Stop.Location
		ordered[i].X = round1(mapPad + (l.Longitude-minLon)/spanLon*float64(mapWidth-2*mapPad))
		ordered[i].Y = round1(mapPad + (maxLat-l.Latitude)/spanLat*float64(mapHeight-2*mapPad))
		points = append(points, fmt.Sprintf("%.1f,%.1f", ordered[i].X, ordered[i].Y))
		index[ordered[i].Stop.ID] = i
	}
	for d := range vm.Days {
		for j, m := range vm.Days[d].Stops {
			vm.Days[d].Stops[j] = ordered[index[m.Stop.ID]]
		}
	}
	vm.Markers = ordered
	vm.Route = strings.Join(points, " ")
	return vm
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// renderMap executes the map template for a plan.
func (s *Server) renderMap(plan model.Plan, stops []model.Stop) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "map.html", buildMapVM(plan, stops)); err != nil {
		return nil, fmt.Errorf("failed to render map: %w", err)
	}
	return buf.Bytes(), nil
}

// mapDocument handles GET /map/:planId with a self-contained HTML document.
func (s *Server) mapDocument(c *gin.Context) {
	planID, err := idParam(c, "planId")
	if err != nil {
		s.fail(c, err)
		return
	}
	plan, err := db.GetPlan(s.db, planID)
	if err != nil {
		s.fail(c, err)
		return
	}
	stops, err := db.ListStops(s.db, planID)
	if err != nil {
		s.fail(c, err)
		return
	}
	page, err := s.renderMap(plan, stops)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}
