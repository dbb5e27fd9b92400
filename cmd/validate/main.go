// Command validate checks the configured emissions datasets before they are
// served: every file must load with the required columns, and every cohort
// derived from it must produce finite radii and consistent ranks. Excluded
// rows are listed per reason; with -strict any exclusion fails the run.
//
// Usage:
//
//	go run ./cmd/validate
//	LANDFILL_CSV=/data/solid-waste-disposal_emissions_sources.csv go run ./cmd/validate -strict
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"sort"

	"github.com/couchcryptid/emissions-dashboard/internal/config"
	"github.com/couchcryptid/emissions-dashboard/internal/dataset"
	"github.com/couchcryptid/emissions-dashboard/internal/domain"
	"github.com/couchcryptid/emissions-dashboard/internal/pipeline"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	strict := flag.Bool("strict", false, "fail when any row is excluded")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if code := run(os.Stdout, pipeline.DefaultDashboards(cfg), *strict); code != 0 {
		os.Exit(code)
	}
}

func run(w io.Writer, dashboards []pipeline.Dashboard, strict bool) int {
	fmt.Fprintln(w, "=== Emissions Dataset Validation ===")
	fmt.Fprintln(w)

	var phases []*phase
	for _, d := range dashboards {
		phases = append(phases, validateDashboard(d, strict)...)
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-48s %s\n", p.name, status)
		for _, n := range p.notes {
			fmt.Fprintf(w, "      %s\n", n)
		}
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

func validateDashboard(d pipeline.Dashboard, strict bool) []*phase {
	load := &phase{name: d.ID + ": load"}

	ds, err := dataset.Load(d.CSVPath)
	if err != nil {
		load.errorf("%v", err)
		return []*phase{load}
	}
	filtered, err := ds.Filter(d.Criteria)
	if err != nil {
		load.errorf("%v", err)
		return []*phase{load}
	}
	load.notef("%d rows, %d after filtering", ds.Len(), filtered.Len())

	records, issues := filtered.Records()
	quality := validateQuality(d.ID, records, issues, strict)

	return []*phase{load, quality, validateCohorts(d, records)}
}

func validateQuality(id string, records []domain.EmissionRecord, issues []dataset.Issue, strict bool) *phase {
	p := &phase{name: id + ": data quality"}
	p.notef("%d records kept, %d excluded", len(records), len(issues))

	counts := make(map[string]int)
	for _, is := range issues {
		counts[is.Reason]++
		if strict {
			p.errorf("%v", is)
		}
	}
	reasons := make([]string, 0, len(counts))
	for r := range counts {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		p.notef("%s: %d", r, counts[r])
	}

	if len(records) == 0 {
		p.errorf("no records left after filtering")
	}
	return p
}

// validateCohorts derives every cohort the dashboard can show and checks the
// scaling and ranking invariants on the result.
func validateCohorts(d pipeline.Dashboard, records []domain.EmissionRecord) *phase {
	p := &phase{name: d.ID + ": cohorts"}

	cohorts := map[int][]domain.EmissionRecord{0: records}
	if d.YearSelector {
		cohorts = make(map[int][]domain.EmissionRecord)
		for _, y := range domain.Years(records) {
			cohorts[y] = domain.SelectYear(records, y)
		}
	}

	years := make([]int, 0, len(cohorts))
	for y := range cohorts {
		years = append(years, y)
	}
	sort.Ints(years)

	for _, y := range years {
		derived := domain.DeriveCohort(cohorts[y], d.Scale)
		label := "all"
		if d.YearSelector {
			label = fmt.Sprint(y)
		}
		p.notef("cohort %s: %d records", label, len(derived))
		checkCohort(p, label, derived, d.Scale)
	}
	return p
}

func checkCohort(p *phase, label string, cohort []domain.EmissionRecord, s domain.Scale) {
	upper := s.Factor
	if s.Mode == domain.ScaleLog {
		upper = s.MaxRadius
	}

	for i, r := range cohort {
		if math.IsNaN(r.ScaledRadius) || math.IsInf(r.ScaledRadius, 0) || r.ScaledRadius < 0 {
			p.errorf("cohort %s: source %s has radius %v", label, r.SourceID, r.ScaledRadius)
		}
		if r.ScaledRadius > upper {
			p.errorf("cohort %s: source %s radius %v exceeds %v", label, r.SourceID, r.ScaledRadius, upper)
		}

		greater := 0
		for j, o := range cohort {
			if i == j {
				continue
			}
			if o.Quantity > r.Quantity {
				greater++
			}
			if o.Quantity > r.Quantity && o.ScaledRadius < r.ScaledRadius {
				p.errorf("cohort %s: radius not monotone between %s and %s", label, o.SourceID, r.SourceID)
			}
		}
		if r.Rank != greater+1 {
			p.errorf("cohort %s: source %s has rank %d, want %d", label, r.SourceID, r.Rank, greater+1)
		}
	}
}
