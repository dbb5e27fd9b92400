package domain

import "time"

// Gas accounting conventions seen in Climate TRACE exports.
const (
	GasCO2     = "co2"
	GasCH4     = "ch4"
	GasN2O     = "n2o"
	GasCO2e20  = "co2e_20yr"
	GasCO2e100 = "co2e_100yr"
)

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// EmissionRecord is one emissions-source row after loading and year tagging.
// Rank and ScaledRadius are zero until DeriveCohort fills them in.
type EmissionRecord struct {
	SourceID    string    `json:"source_id"`
	SourceName  string    `json:"source_name"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	Gas         string    `json:"gas"`
	Quantity    float64   `json:"emissions_quantity"` // tons
	StartTime   time.Time `json:"start_time"`
	CountryCode string    `json:"iso3_country"`

	Year         int     `json:"year"`
	Rank         int     `json:"rank,omitempty"`
	ScaledRadius float64 `json:"scaled_radius"`
}

// Position returns the record's coordinates in deck.gl order: [lon, lat].
func (r EmissionRecord) Position() [2]float64 {
	return [2]float64{r.Lon, r.Lat}
}
