package domain

import (
	"fmt"
	"html/template"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/stat"
)

// LayerScatterplot is the deck.gl layer type used for emission markers.
const LayerScatterplot = "ScatterplotLayer"

// Presentation holds the fixed per-dashboard display settings.
type Presentation struct {
	Color         []int              // RGB or RGBA, 0-255
	Zoom          int                // deck.gl zoom level
	DefaultCenter Geo                // used when the cohort is empty
	Tooltip       *template.Template // executed with TooltipData per point
	TooltipStyle  TooltipStyle
	ShowTable     bool
}

// TooltipStyle is passed through to the deck.gl tooltip.
type TooltipStyle struct {
	BackgroundColor string `json:"backgroundColor"`
	Color           string `json:"color"`
}

// TooltipData is the per-record payload available to tooltip templates.
type TooltipData struct {
	SourceName string
	Emissions  string // thousands-separated integer tons
	Rank       int
	Year       int
	CohortSize int
}

// Point is one marker on the map.
type Point struct {
	SourceID string     `json:"source_id"`
	Name     string     `json:"source_name"`
	Position [2]float64 `json:"position"` // [lon, lat]
	Radius   float64    `json:"radius"`
	Tooltip  string     `json:"tooltip"`
}

// Layer describes a deck.gl point layer.
type Layer struct {
	Type         string       `json:"type"`
	Color        []int        `json:"color"`
	Pickable     bool         `json:"pickable"`
	TooltipStyle TooltipStyle `json:"tooltip_style"`
	Points       []Point      `json:"points"`
}

// Viewport is the initial camera position.
type Viewport struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      int     `json:"zoom"`
}

// Selector lists the discrete cohort options offered by the UI and the one in use.
type Selector struct {
	Options  []int `json:"options"`
	Selected int   `json:"selected"`
}

// TableRow is one line of the raw-data preview under the map.
type TableRow struct {
	SourceName   string  `json:"source_name"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	Quantity     float64 `json:"emissions_quantity"`
	ScaledRadius float64 `json:"scaled_radius"`
	Rank         int     `json:"rank"`
	Year         int     `json:"year"`
}

// View is everything the UI shell needs to draw one dashboard.
type View struct {
	Dashboard   string     `json:"dashboard"`
	Title       string     `json:"title"`
	Selector    *Selector  `json:"selector,omitempty"`
	Layer       Layer      `json:"layer"`
	Viewport    Viewport   `json:"viewport"`
	CohortSize  int        `json:"cohort_size"`
	Table       []TableRow `json:"table,omitempty"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// BuildView maps an already-derived cohort onto presentation descriptors. It
// reads derived fields only and performs no filtering of its own.
func BuildView(id, title string, cohort []EmissionRecord, p Presentation, selector *Selector) (View, error) {
	layer, err := BuildLayer(cohort, p)
	if err != nil {
		return View{}, err
	}

	v := View{
		Dashboard:   id,
		Title:       title,
		Selector:    selector,
		Layer:       layer,
		Viewport:    BuildViewport(cohort, p.Zoom, p.DefaultCenter),
		CohortSize:  len(cohort),
		GeneratedAt: Now(),
	}
	if p.ShowTable {
		v.Table = BuildTable(cohort)
	}
	return v, nil
}

// BuildLayer renders one point per record with its tooltip.
func BuildLayer(cohort []EmissionRecord, p Presentation) (Layer, error) {
	points := make([]Point, 0, len(cohort))
	var sb strings.Builder
	for _, r := range cohort {
		tooltip := ""
		if p.Tooltip != nil {
			sb.Reset()
			if err := p.Tooltip.Execute(&sb, tooltipData(r, len(cohort))); err != nil {
				return Layer{}, fmt.Errorf("render tooltip for %s: %w", r.SourceID, err)
			}
			tooltip = sb.String()
		}
		points = append(points, Point{
			SourceID: r.SourceID,
			Name:     r.SourceName,
			Position: r.Position(),
			Radius:   r.ScaledRadius,
			Tooltip:  tooltip,
		})
	}

	return Layer{
		Type:         LayerScatterplot,
		Color:        p.Color,
		Pickable:     true,
		TooltipStyle: p.TooltipStyle,
		Points:       points,
	}, nil
}

// BuildViewport centers on the arithmetic mean of the cohort's coordinates.
// An empty cohort falls back to the given center.
func BuildViewport(cohort []EmissionRecord, zoom int, fallback Geo) Viewport {
	if len(cohort) == 0 {
		return Viewport{Latitude: fallback.Lat, Longitude: fallback.Lon, Zoom: zoom}
	}
	lats := make([]float64, len(cohort))
	lons := make([]float64, len(cohort))
	for i, r := range cohort {
		lats[i] = r.Lat
		lons[i] = r.Lon
	}
	return Viewport{
		Latitude:  stat.Mean(lats, nil),
		Longitude: stat.Mean(lons, nil),
		Zoom:      zoom,
	}
}

// BuildTable returns the raw-data preview rows in cohort order.
func BuildTable(cohort []EmissionRecord) []TableRow {
	rows := make([]TableRow, len(cohort))
	for i, r := range cohort {
		rows[i] = TableRow{
			SourceName:   r.SourceName,
			Lat:          r.Lat,
			Lon:          r.Lon,
			Quantity:     r.Quantity,
			ScaledRadius: r.ScaledRadius,
			Rank:         r.Rank,
			Year:         r.Year,
		}
	}
	return rows
}

// FormatTons renders a quantity as a thousands-separated integer, e.g. 1234567.8 -> "1,234,568".
func FormatTons(q float64) string {
	return humanize.Comma(int64(math.Round(q)))
}

func tooltipData(r EmissionRecord, cohortSize int) TooltipData {
	return TooltipData{
		SourceName: r.SourceName,
		Emissions:  FormatTons(r.Quantity),
		Rank:       r.Rank,
		Year:       r.Year,
		CohortSize: cohortSize,
	}
}
