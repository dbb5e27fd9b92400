package pipeline

import (
	"errors"
	"fmt"
	"html/template"

	"github.com/couchcryptid/emissions-dashboard/internal/config"
	"github.com/couchcryptid/emissions-dashboard/internal/domain"
)

// Dashboard IDs served by default.
const (
	IstanbulRoadTransport = "istanbul-road-transport"
	TurkeyLandfills       = "turkey-landfills"
)

const countryTurkey = "TUR"

var defaultTooltipStyle = domain.TooltipStyle{BackgroundColor: "gray", Color: "white"}

// Dashboard is one fully configured pipeline: a source file, the filter that
// narrows it, and how the resulting cohort is scaled and drawn.
type Dashboard struct {
	ID           string
	Title        string
	CSVPath      string
	Criteria     domain.Criteria
	Scale        domain.Scale
	Presentation domain.Presentation

	// YearSelector splits records into one cohort per calendar year. Without
	// it the whole filtered table is a single cohort.
	YearSelector bool
}

// Validate rejects dashboards that could never render.
func (d Dashboard) Validate() error {
	if d.ID == "" {
		return errors.New("dashboard id is required")
	}
	if d.CSVPath == "" {
		return fmt.Errorf("dashboard %s: csv path is required", d.ID)
	}
	if err := d.Criteria.Validate(); err != nil {
		return fmt.Errorf("dashboard %s: %w", d.ID, err)
	}
	if err := d.Scale.Validate(); err != nil {
		return fmt.Errorf("dashboard %s: %w", d.ID, err)
	}
	if n := len(d.Presentation.Color); n != 3 && n != 4 {
		return fmt.Errorf("dashboard %s: color must be RGB or RGBA, got %d components", d.ID, n)
	}
	return nil
}

// DefaultDashboards returns the Istanbul road transport map and the Türkiye
// landfill map, wired to the files and scale settings in cfg.
func DefaultDashboards(cfg *config.Config) []Dashboard {
	country := domain.CountryName(countryTurkey)

	return []Dashboard{
		{
			ID:      IstanbulRoadTransport,
			Title:   fmt.Sprintf("Istanbul Road Transportation Emissions (%s)", country),
			CSVPath: cfg.RoadTransportCSV,
			Criteria: domain.Criteria{
				CountryCode:        countryTurkey,
				Gas:                domain.GasCO2e100,
				NameContains:       "Istanbul",
				RequireCoordinates: true,
			},
			Scale: domain.Scale{Mode: domain.ScaleLinear, Factor: cfg.LinearScaleFactor},
			Presentation: domain.Presentation{
				Color:         []int{255, 140, 0},
				Zoom:          10,
				DefaultCenter: domain.Geo{Lat: 41.0082, Lon: 28.9784},
				Tooltip: template.Must(template.New(IstanbulRoadTransport).Parse(
					`<b>{{.SourceName}}</b><br/>Emissions: {{.Emissions}} T`)),
				TooltipStyle: defaultTooltipStyle,
				ShowTable:    true,
			},
		},
		{
			ID:      TurkeyLandfills,
			Title:   fmt.Sprintf("Solid Waste Landfill Emissions in %s", country),
			CSVPath: cfg.LandfillCSV,
			Criteria: domain.Criteria{
				CountryCode:        countryTurkey,
				Gas:                domain.GasCO2e100,
				RequireCoordinates: true,
			},
			Scale: domain.Scale{Mode: domain.ScaleLog, MinRadius: cfg.LogMinRadius, MaxRadius: cfg.LogMaxRadius},
			Presentation: domain.Presentation{
				Color:         []int{200, 30, 0, 160},
				Zoom:          5,
				DefaultCenter: domain.Geo{Lat: 39.0, Lon: 35.0},
				Tooltip: template.Must(template.New(TurkeyLandfills).Parse(
					`<b>{{.SourceName}}</b><br/>Emissions: {{.Emissions}} t CO2e<br/>Rank {{.Rank}} of {{.CohortSize}} in {{.Year}}`)),
				TooltipStyle: defaultTooltipStyle,
			},
			YearSelector: true,
		},
	}
}
