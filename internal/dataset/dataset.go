// Package dataset loads Climate TRACE emissions-source CSVs into a gota
// DataFrame and narrows them with domain.Criteria before records are typed.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/couchcryptid/emissions-dashboard/internal/domain"
)

// Column names in Climate TRACE emissions-source exports.
const (
	ColSourceID  = "source_id"
	ColName      = "source_name"
	ColLat       = "lat"
	ColLon       = "lon"
	ColGas       = "gas"
	ColQuantity  = "emissions_quantity"
	ColStartTime = "start_time"
	ColCountry   = "iso3_country"
)

// RequiredColumns must all be present in the header row. Other columns are ignored.
var RequiredColumns = []string{
	ColSourceID, ColName, ColLat, ColLon, ColGas, ColQuantity, ColStartTime, ColCountry,
}

var (
	// ErrMissingColumn is returned when the header lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
	// ErrMalformed wraps CSV parse failures, including input with no header row.
	ErrMalformed = errors.New("malformed csv")
)

// columnTypes pins the parsed type of every required column so a stray value
// cannot flip type detection. Unlisted columns load as strings.
var columnTypes = map[string]series.Type{
	ColSourceID:  series.String,
	ColName:      series.String,
	ColLat:       series.Float,
	ColLon:       series.Float,
	ColGas:       series.String,
	ColQuantity:  series.Float,
	ColStartTime: series.String,
	ColCountry:   series.String,
}

// nanValues are the cell contents treated as missing in every column. Float
// columns also treat any unparseable token ("NA", "null") and "nan" as missing.
var nanValues = []string{""}

// Dataset is an immutable in-memory emissions table.
type Dataset struct {
	df dataframe.DataFrame
}

// Load opens path and reads it with Read.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return ds, nil
}

// Read parses a header row plus delimited rows. A missing required column or
// a structurally broken file fails the whole load. A header with no rows is an
// empty dataset.
func Read(r io.Reader) (*Dataset, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrMalformed)
	}
	if err := checkHeader(rows[0]); err != nil {
		return nil, err
	}

	if len(rows) == 1 {
		return &Dataset{df: emptyFrame(rows[0])}, nil
	}

	df := dataframe.LoadRecords(rows,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(columnTypes),
		dataframe.NaNValues(nanValues),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, df.Err)
	}
	return &Dataset{df: df}, nil
}

func checkHeader(names []string) error {
	header := make(map[string]struct{}, len(names))
	for _, name := range names {
		header[name] = struct{}{}
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := header[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// emptyFrame builds a zero-row frame with the header's columns and types.
// gota's loaders reject input without data rows.
func emptyFrame(names []string) dataframe.DataFrame {
	cols := make([]series.Series, len(names))
	for i, name := range names {
		typ, ok := columnTypes[name]
		if !ok {
			typ = series.String
		}
		cols[i] = series.New([]string{}, typ, name)
	}
	return dataframe.New(cols...)
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return d.df.Nrow()
}

// Filter returns a new Dataset holding the rows that satisfy every active
// predicate in c, in their original order. d itself is left untouched.
func (d *Dataset) Filter(c domain.Criteria) (*Dataset, error) {
	df := d.df
	for _, f := range filtersFor(c) {
		if df.Nrow() == 0 {
			break
		}
		// gota ORs the filters passed to a single call, so AND is a chain of calls.
		df = df.Filter(f)
		if df.Err != nil {
			return nil, fmt.Errorf("filter on %s: %w", f.Colname, df.Err)
		}
	}
	return &Dataset{df: df}, nil
}

func filtersFor(c domain.Criteria) []dataframe.F {
	var fs []dataframe.F
	if c.CountryCode != "" {
		fs = append(fs, equals(ColCountry, c.CountryCode))
	}
	if c.Gas != "" {
		fs = append(fs, equals(ColGas, c.Gas))
	}
	if c.NameContains != "" {
		fs = append(fs, dataframe.F{
			Colname:    ColName,
			Comparator: series.CompFunc,
			Comparando: func(el series.Element) bool {
				return c.MatchName(el.String(), el.IsNA())
			},
		})
	}
	if c.RequireCoordinates {
		fs = append(fs, hasValue(ColLat), hasValue(ColLon))
	}
	return fs
}

func equals(col, want string) dataframe.F {
	return dataframe.F{
		Colname:    col,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool {
			return !el.IsNA() && el.String() == want
		},
	}
}

func hasValue(col string) dataframe.F {
	return dataframe.F{
		Colname:    col,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool {
			return !missingFloat(el)
		},
	}
}

// missingFloat reports whether a float cell is absent or holds NaN.
func missingFloat(el series.Element) bool {
	return el.IsNA() || math.IsNaN(el.Float())
}
