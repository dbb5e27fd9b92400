// Package domain models Climate TRACE emissions-source records and the
// transformations that turn a cohort of them into a map view.
//
// # Data Source
//
// Records come from the Climate TRACE "emissions_sources" CSV exports, one
// file per sector (e.g. road-transportation, solid-waste-disposal). Each row is
// one source (a road segment, a landfill) for one gas and one reporting period.
// A source appears once per gas and per year, so source_id is not unique per row.
//
// # Conventions
//
// Gas:
//
//	Each row reports a single gas or accounting convention: co2, ch4, n2o,
//	co2e_20yr, co2e_100yr. Views always select exactly one, normally
//	co2e_100yr (CO2 equivalent over a 100-year horizon).
//
// Time format:
//
//	start_time is an ISO-8601 timestamp, usually "2022-01-01 00:00:00" or
//	"2022-01-01T00:00:00Z". The calendar year is read in whatever zone the
//	timestamp states; timestamps without a zone are treated as UTC.
//
// Coordinates:
//
//	lat/lon are WGS-84 degrees. Some sources are published without them and
//	cannot be placed on a map; they are dropped as data-quality issues.
//
// # Cohorts
//
// A cohort is the set of records currently on screen, e.g. one calendar year
// of landfill co2e_100yr rows. Year tagging happens once per load; rank and
// radius only make sense relative to a cohort and are recomputed per view.
//
// Ranking uses the competition ("min") convention: rank = 1 + number of
// records with a strictly larger quantity, so [100, 50, 50, 10] ranks as
// [1, 2, 2, 4].
//
// Radius scaling comes in two modes. Linear divides by the cohort maximum and
// multiplies by a display factor. Log applies log1p and interpolates onto a
// fixed [min, max] radius range, which keeps small landfills visible next to
// very large ones.
package domain
