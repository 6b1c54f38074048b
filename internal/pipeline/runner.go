// Package pipeline orchestrates the daily run: fetch every configured
// series, merge them into the processed frame, derive slopes, changes
// and the cross-country spread, persist the dataset, and render the
// chart artifacts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/curvewatch/curvewatch/internal/config"
	"github.com/curvewatch/curvewatch/internal/dataset"
	"github.com/curvewatch/curvewatch/internal/provider"
	"github.com/curvewatch/curvewatch/internal/report"
	"github.com/curvewatch/curvewatch/pkg/models"
)

// Runner executes the fetch → process → render pipeline.
type Runner struct {
	cfg      *config.Config
	registry *provider.Registry
	renderer *report.Renderer
	logger   *zap.Logger
}

// Result summarizes one pipeline run.
type Result struct {
	Frame         *dataset.Frame `json:"-"`
	Rows          int            `json:"rows"`
	Fetched       []string       `json:"fetched,omitempty"`   // series fetched upstream
	FromRaw       []string       `json:"from_raw,omitempty"`  // series reused from today's raw snapshot
	Skipped       []string       `json:"skipped,omitempty"`   // series excluded by config
	Failed        []string       `json:"failed,omitempty"`    // series that errored (continue-on-error)
	ProcessedPath string         `json:"processed_path,omitempty"`
	Artifacts     []string       `json:"artifacts,omitempty"`
}

// NewRunner builds a Runner. A nil logger is replaced with a no-op one.
func NewRunner(cfg *config.Config, reg *provider.Registry, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:      cfg,
		registry: reg,
		renderer: report.NewRenderer(cfg),
		logger:   logger,
	}
}

// Run executes the full pipeline. When every fetch fails but a
// previously processed dataset exists, it falls back to re-rendering
// from that.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	res, err := r.Gather(ctx)
	if err != nil {
		return nil, err
	}

	if res.Frame.Len() == 0 {
		f, loadErr := dataset.Load(r.cfg.Data.ProcessedDir)
		if loadErr != nil {
			return nil, fmt.Errorf("no series fetched and no processed dataset to fall back on: %w", loadErr)
		}
		r.logger.Warn("no fresh data, re-rendering from existing processed dataset",
			zap.String("dir", r.cfg.Data.ProcessedDir))
		res.Frame = f
		res.Rows = f.Len()
		return res, r.render(res)
	}

	r.process(res.Frame)
	path, err := res.Frame.Save(r.cfg.Data.ProcessedDir)
	if err != nil {
		return nil, fmt.Errorf("persist dataset: %w", err)
	}
	res.ProcessedPath = path
	res.Rows = res.Frame.Len()
	r.logger.Info("dataset saved",
		zap.String("path", path),
		zap.Int("rows", res.Rows),
		zap.Int("columns", len(res.Frame.Columns)))

	if err := r.render(res); err != nil {
		return nil, err
	}
	if err := StampReadme(r.cfg.Data.ReadmePath, time.Now().UTC()); err != nil {
		r.logger.Warn("readme stamp failed", zap.Error(err))
	}
	return res, nil
}

// RenderOnly re-renders all artifacts from the persisted dataset
// without fetching.
func (r *Runner) RenderOnly() (*Result, error) {
	f, err := dataset.Load(r.cfg.Data.ProcessedDir)
	if err != nil {
		return nil, fmt.Errorf("load processed dataset: %w", err)
	}
	res := &Result{Frame: f, Rows: f.Len()}
	return res, r.render(res)
}

// Gather fetches all configured series concurrently and merges them
// into a raw frame, without derived columns.
func (r *Runner) Gather(ctx context.Context) (*Result, error) {
	res := &Result{}
	collected := make(map[string][]models.Observation)
	var order []string
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Fetch.Concurrency)

	for _, spec := range r.cfg.Series {
		if r.skipCountry(spec.Country) {
			res.Skipped = append(res.Skipped, spec.Name)
			continue
		}
		order = append(order, spec.Name)

		g.Go(func() error {
			obs, source, err := r.fetchSeries(gctx, spec)
			if err != nil {
				mu.Lock()
				res.Failed = append(res.Failed, spec.Name)
				mu.Unlock()
				if r.cfg.Fetch.ContinueOnError {
					r.logger.Warn("series fetch failed, continuing",
						zap.String("series", spec.Name), zap.Error(err))
					return nil
				}
				return fmt.Errorf("fetch %s: %w", spec.Name, err)
			}

			mu.Lock()
			collected[spec.Name] = obs
			switch source {
			case sourceRaw:
				res.FromRaw = append(res.FromRaw, spec.Name)
			default:
				res.Fetched = append(res.Fetched, spec.Name)
			}
			mu.Unlock()
			r.logger.Debug("series ready",
				zap.String("series", spec.Name),
				zap.String("source", source),
				zap.Int("observations", len(obs)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	res.Frame = dataset.Merge(collected, order)
	return res, nil
}

const (
	sourceUpstream = "upstream"
	sourceRaw      = "raw"
	sourceSample   = "sample"
)

// fetchSeries resolves one series: the offline sample, today's raw
// snapshot if present, or the upstream provider. Upstream results are
// snapshotted to the raw dir for reuse within the day.
func (r *Runner) fetchSeries(ctx context.Context, spec config.SeriesSpec) ([]models.Observation, string, error) {
	if r.cfg.Fetch.Offline {
		path, err := LatestSampleFile(r.cfg.Data.SampleDir, spec.Name)
		if err != nil {
			return nil, "", err
		}
		obs, err := ReadRawCSV(path)
		return obs, sourceSample, err
	}

	today := time.Now().UTC().Format("2006-01-02")
	snapshot := RawSnapshotPath(r.cfg.Data.RawDir, spec.Source, spec.Name, today)
	if obs, err := ReadRawCSV(snapshot); err == nil && len(obs) > 0 {
		return obs, sourceRaw, nil
	}

	obs, err := r.fetchUpstream(ctx, spec)
	if err != nil {
		return nil, "", err
	}
	if err := WriteRawCSV(snapshot, obs); err != nil {
		r.logger.Warn("raw snapshot write failed",
			zap.String("series", spec.Name), zap.Error(err))
	}
	return obs, sourceUpstream, nil
}

// fetchUpstream pulls one series through the provider registry.
func (r *Runner) fetchUpstream(ctx context.Context, spec config.SeriesSpec) ([]models.Observation, error) {
	params := provider.QueryParams{
		provider.ParamProvider:  spec.Source,
		provider.ParamSeriesID:  spec.ID,
		provider.ParamStartDate: r.cfg.Fetch.StartDate,
	}

	if spec.Country == "FX" {
		result, err := r.registry.Fetch(ctx, provider.ModelFXRate, params)
		if err != nil {
			return nil, err
		}
		fx, ok := result.Data.([]models.FXObservation)
		if !ok {
			return nil, fmt.Errorf("unexpected FX payload %T", result.Data)
		}
		obs := make([]models.Observation, len(fx))
		for i, o := range fx {
			obs[i] = models.Observation{Date: o.Date, Value: o.Rate}
		}
		return obs, nil
	}

	result, err := r.registry.FetchWithFallback(ctx, provider.ModelYieldSeries, params)
	if err != nil {
		return nil, err
	}
	obs, ok := result.Data.([]models.Observation)
	if !ok {
		return nil, fmt.Errorf("unexpected yield payload %T", result.Data)
	}
	return obs, nil
}

// process derives the analytical columns on a merged frame in place.
func (r *Runner) process(f *dataset.Frame) {
	mapping := dataset.TenorMapping(r.cfg.TenorMapping())
	f.ForwardFill(r.cfg.YieldColumns())
	f.ComputeSlopes(mapping)
	f.ComputeSpread(mapping["US"][10], mapping["CA"][10])
}

// render writes every chart artifact plus the one-pager.
func (r *Runner) render(res *Result) error {
	written, err := r.renderer.RenderAll(res.Frame)
	if err != nil {
		return fmt.Errorf("render figures: %w", err)
	}
	res.Artifacts = written

	onePager, err := r.renderer.OnePager()
	if err != nil {
		return fmt.Errorf("render one-pager: %w", err)
	}
	res.Artifacts = append(res.Artifacts, onePager)
	r.logger.Info("artifacts rendered", zap.Int("count", len(res.Artifacts)))
	return nil
}

func (r *Runner) skipCountry(country string) bool {
	for _, c := range r.cfg.Fetch.SkipCountries {
		if c == country {
			return true
		}
	}
	return false
}

// ErrNoData is returned by Status helpers when nothing has been
// processed yet.
var ErrNoData = errors.New("no processed dataset")
