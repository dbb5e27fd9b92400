// Package pipeline runs the load, filter, derive and present stages for each
// configured dashboard and serves the resulting views.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/couchcryptid/emissions-dashboard/internal/dataset"
	"github.com/couchcryptid/emissions-dashboard/internal/domain"
	"github.com/couchcryptid/emissions-dashboard/internal/observability"
)

var (
	// ErrUnknownDashboard is returned for a dashboard ID that is not configured.
	ErrUnknownDashboard = errors.New("unknown dashboard")
	// ErrUnknownYear is returned when the requested cohort year has no records.
	ErrUnknownYear = errors.New("unknown year")
	// ErrDatasetUnavailable wraps the load error of a dashboard whose dataset
	// could not be read. Nothing is rendered for it.
	ErrDatasetUnavailable = errors.New("dataset unavailable")
)

// Summary describes a dashboard and the state of its last load.
type Summary struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Years    []int     `json:"years"`
	Records  int       `json:"records"`
	LoadedAt time.Time `json:"loaded_at,omitzero"`
	Error    string    `json:"error,omitempty"`
}

// snapshot is the cohort-independent result of one load.
type snapshot struct {
	records  []domain.EmissionRecord
	years    []int
	loadedAt time.Time
	err      error
}

type viewKey struct {
	dashboard  string
	year       int
	generation uint64
}

// Service holds the loaded datasets for a fixed set of dashboards and derives
// views from them on request. It is safe for concurrent use.
type Service struct {
	dashboards []Dashboard
	byID       map[string]Dashboard
	logger     *slog.Logger
	metrics    *observability.Metrics

	mu         sync.RWMutex
	snapshots  map[string]*snapshot
	generation uint64

	cache *lru.Cache[viewKey, domain.View]
	ready atomic.Bool
}

// NewService validates the dashboards and returns a Service with nothing
// loaded yet. Call Load before serving views.
func NewService(dashboards []Dashboard, cacheSize int, logger *slog.Logger, metrics *observability.Metrics) (*Service, error) {
	byID := make(map[string]Dashboard, len(dashboards))
	for _, d := range dashboards {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate dashboard id %q", d.ID)
		}
		byID[d.ID] = d
	}

	cache, err := lru.New[viewKey, domain.View](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create view cache: %w", err)
	}

	return &Service{
		dashboards: dashboards,
		byID:       byID,
		logger:     logger,
		metrics:    metrics,
		snapshots:  make(map[string]*snapshot, len(dashboards)),
		cache:      cache,
	}, nil
}

// CheckReadiness returns nil while at least one dashboard's last load succeeded.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no dashboard dataset loaded yet")
	}
	return nil
}

// Load reads every dashboard's dataset and replaces the in-memory state in
// one step. A dashboard that fails keeps its error as state and the others
// still load. The returned error joins the individual load failures.
func (s *Service) Load(ctx context.Context) error {
	next := make(map[string]*snapshot, len(s.dashboards))
	var errs []error

	for _, d := range s.dashboards {
		if err := ctx.Err(); err != nil {
			return err
		}
		snap := s.loadDashboard(d)
		if snap.err != nil {
			errs = append(errs, fmt.Errorf("dashboard %s: %w", d.ID, snap.err))
		}
		next[d.ID] = snap
	}

	s.mu.Lock()
	s.snapshots = next
	s.generation++
	s.cache.Purge()
	s.mu.Unlock()

	s.ready.Store(len(errs) < len(s.dashboards))
	return errors.Join(errs...)
}

func (s *Service) loadDashboard(d Dashboard) *snapshot {
	now := domain.Now()
	logger := s.logger.With("dashboard", d.ID)

	fail := func(err error) *snapshot {
		s.metrics.DatasetLoadErrors.WithLabelValues(d.ID).Inc()
		s.metrics.DatasetRows.WithLabelValues(d.ID).Set(0)
		logger.Error("dataset load failed", "path", d.CSVPath, "error", err)
		return &snapshot{loadedAt: now, err: err}
	}

	ds, err := dataset.Load(d.CSVPath)
	if err != nil {
		return fail(err)
	}
	filtered, err := ds.Filter(d.Criteria)
	if err != nil {
		return fail(err)
	}

	records, issues := filtered.Records()
	s.reportIssues(logger, d.ID, issues)

	s.metrics.RecordsLoaded.WithLabelValues(d.ID).Add(float64(len(records)))
	s.metrics.DatasetRows.WithLabelValues(d.ID).Set(float64(len(records)))

	years := domain.Years(records)
	logger.Info("dataset loaded",
		"path", d.CSVPath,
		"rows", ds.Len(),
		"filtered", filtered.Len(),
		"records", len(records),
		"excluded", len(issues),
		"years", years,
	)

	return &snapshot{records: records, years: years, loadedAt: now}
}

// reportIssues logs one warning per exclusion reason rather than per row.
func (s *Service) reportIssues(logger *slog.Logger, id string, issues []dataset.Issue) {
	if len(issues) == 0 {
		return
	}

	byReason := make(map[string][]dataset.Issue)
	for _, is := range issues {
		byReason[is.Reason] = append(byReason[is.Reason], is)
		logger.Debug("record excluded", "row", is.Index, "source_id", is.SourceID, "reason", is.Reason, "error", is.Err)
	}

	reasons := make([]string, 0, len(byReason))
	for r := range byReason {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)

	for _, r := range reasons {
		group := byReason[r]
		s.metrics.RecordsExcluded.WithLabelValues(id, r).Add(float64(len(group)))
		logger.Warn("records excluded",
			"reason", r,
			"excluded", len(group),
			"first_source_id", group[0].SourceID,
			"first_error", group[0].Err,
		)
	}
}

// View derives the cohort for one dashboard and builds its presentation. For
// dashboards with a year selector a nil year selects the latest year present;
// dashboards without one treat every record as a single cohort and reject an
// explicit year. Views are cached until the next Load.
func (s *Service) View(ctx context.Context, id string, year *int) (domain.View, error) {
	start := time.Now()

	view, err := s.view(ctx, id, year)

	label := id
	if errors.Is(err, ErrUnknownDashboard) {
		// only configured IDs become label values
		label = "unknown"
	}
	if err != nil {
		s.metrics.ViewsRendered.WithLabelValues(label, "error").Inc()
		return domain.View{}, err
	}
	s.metrics.ViewsRendered.WithLabelValues(label, "success").Inc()
	s.metrics.ViewRenderDuration.Observe(time.Since(start).Seconds())
	return view, nil
}

func (s *Service) view(ctx context.Context, id string, year *int) (domain.View, error) {
	if err := ctx.Err(); err != nil {
		return domain.View{}, err
	}

	d, ok := s.byID[id]
	if !ok {
		return domain.View{}, fmt.Errorf("%w: %q", ErrUnknownDashboard, id)
	}

	s.mu.RLock()
	snap := s.snapshots[id]
	generation := s.generation
	s.mu.RUnlock()

	if snap == nil {
		return domain.View{}, fmt.Errorf("%w: %s has not been loaded", ErrDatasetUnavailable, id)
	}
	if snap.err != nil {
		return domain.View{}, fmt.Errorf("%w: %s: %w", ErrDatasetUnavailable, id, snap.err)
	}

	cohort, selector, err := selectCohort(d, snap, year)
	if err != nil {
		return domain.View{}, err
	}

	key := viewKey{dashboard: id, generation: generation}
	if selector != nil {
		key.year = selector.Selected
	}
	if v, ok := s.cache.Get(key); ok {
		s.metrics.ViewCache.WithLabelValues("hit").Inc()
		return v, nil
	}
	s.metrics.ViewCache.WithLabelValues("miss").Inc()

	derived := domain.DeriveCohort(cohort, d.Scale)
	v, err := domain.BuildView(d.ID, d.Title, derived, d.Presentation, selector)
	if err != nil {
		return domain.View{}, fmt.Errorf("build view %s: %w", id, err)
	}

	s.cacheView(key, v)
	s.logger.Debug("view rendered", "dashboard", id, "year", key.year, "cohort_size", v.CohortSize)
	return v, nil
}

// cacheView stores v unless a Load has replaced the data it was built from.
// Load purges under the write lock, so the check and the Add cannot straddle it.
func (s *Service) cacheView(key viewKey, v domain.View) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if key.generation != s.generation {
		return false
	}
	s.cache.Add(key, v)
	return true
}

func selectCohort(d Dashboard, snap *snapshot, year *int) ([]domain.EmissionRecord, *domain.Selector, error) {
	if !d.YearSelector {
		if year != nil {
			return nil, nil, fmt.Errorf("%w: %s has no year selector", ErrUnknownYear, d.ID)
		}
		return snap.records, nil, nil
	}

	if len(snap.years) == 0 {
		if year != nil {
			return nil, nil, fmt.Errorf("%w: %d", ErrUnknownYear, *year)
		}
		return nil, &domain.Selector{Options: []int{}}, nil
	}

	selected := snap.years[len(snap.years)-1]
	if year != nil {
		if !slices.Contains(snap.years, *year) {
			return nil, nil, fmt.Errorf("%w: %d (available: %v)", ErrUnknownYear, *year, snap.years)
		}
		selected = *year
	}

	selector := &domain.Selector{Options: slices.Clone(snap.years), Selected: selected}
	return domain.SelectYear(snap.records, selected), selector, nil
}

// Dashboards summarizes every configured dashboard in configuration order.
func (s *Service) Dashboards() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.dashboards))
	for _, d := range s.dashboards {
		sum := Summary{ID: d.ID, Title: d.Title, Years: []int{}}
		if snap := s.snapshots[d.ID]; snap != nil {
			sum.LoadedAt = snap.loadedAt
			sum.Records = len(snap.records)
			if snap.err != nil {
				sum.Error = snap.err.Error()
			} else if d.YearSelector {
				sum.Years = slices.Clone(snap.years)
			}
		} else {
			sum.Error = "not loaded"
		}
		out = append(out, sum)
	}
	return out
}
