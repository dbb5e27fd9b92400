package dataset

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gota/gota/series"

	"github.com/couchcryptid/emissions-dashboard/internal/domain"
)

// Reasons a row is excluded during typing. Used as metric label values.
const (
	ReasonMissingCoordinates = "missing_coordinates"
	ReasonInvalidStartTime   = "invalid_start_time"
	ReasonInvalidQuantity    = "invalid_quantity"
)

var (
	errMissingCoordinates = errors.New("lat/lon missing")
	errInvalidQuantity    = errors.New("emissions_quantity missing, negative or not finite")
)

// Issue is a data-quality problem that excluded one row. Issues never fail a load.
type Issue struct {
	Index    int // row position within the dataset, 0-based
	SourceID string
	Reason   string
	Err      error
}

func (i Issue) Error() string {
	return fmt.Sprintf("row %d (source %s): %s: %v", i.Index, i.SourceID, i.Reason, i.Err)
}

// Records types every row and tags it with its calendar year. Rows that fail
// a data-quality check are left out and reported as issues; the rest keep
// their relative order.
func (d *Dataset) Records() ([]domain.EmissionRecord, []Issue) {
	n := d.df.Nrow()
	if n == 0 {
		return nil, nil
	}

	var (
		ids       = d.df.Col(ColSourceID)
		names     = d.df.Col(ColName)
		lats      = d.df.Col(ColLat)
		lons      = d.df.Col(ColLon)
		gases     = d.df.Col(ColGas)
		qtys      = d.df.Col(ColQuantity)
		starts    = d.df.Col(ColStartTime)
		countries = d.df.Col(ColCountry)
	)

	records := make([]domain.EmissionRecord, 0, n)
	var issues []Issue

	for i := 0; i < n; i++ {
		id := stringAt(ids, i)

		lat, lon := lats.Elem(i), lons.Elem(i)
		if missingFloat(lat) || missingFloat(lon) {
			issues = append(issues, Issue{Index: i, SourceID: id, Reason: ReasonMissingCoordinates, Err: errMissingCoordinates})
			continue
		}

		q := qtys.Elem(i)
		if missingFloat(q) || q.Float() < 0 || math.IsInf(q.Float(), 0) {
			issues = append(issues, Issue{Index: i, SourceID: id, Reason: ReasonInvalidQuantity, Err: errInvalidQuantity})
			continue
		}

		year, start, err := domain.DeriveYear(stringAt(starts, i))
		if err != nil {
			issues = append(issues, Issue{Index: i, SourceID: id, Reason: ReasonInvalidStartTime, Err: err})
			continue
		}

		records = append(records, domain.EmissionRecord{
			SourceID:    id,
			SourceName:  stringAt(names, i),
			Lat:         lat.Float(),
			Lon:         lon.Float(),
			Gas:         stringAt(gases, i),
			Quantity:    q.Float(),
			StartTime:   start,
			CountryCode: stringAt(countries, i),
			Year:        year,
		})
	}

	return records, issues
}

// stringAt returns the cell as a string, or "" when it is missing.
func stringAt(s series.Series, i int) string {
	el := s.Elem(i)
	if el.IsNA() {
		return ""
	}
	return el.String()
}
