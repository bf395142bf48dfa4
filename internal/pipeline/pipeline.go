// Package pipeline runs the read, dedupe, enrich and write stages that turn an
// SCA rate file into a migration script.
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sca-rates/internal/config"
	"github.com/sells-group/sca-rates/internal/emit"
	"github.com/sells-group/sca-rates/internal/model"
	"github.com/sells-group/sca-rates/internal/sca"
)

// Pipeline orchestrates a single generate run.
type Pipeline struct {
	cfg *config.Config
	now func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock replaces the clock used for fiscal year selection and timings.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline for cfg.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// FiscalYear returns the year the run targets.
func (p *Pipeline) FiscalYear() (int, error) {
	return emit.FiscalYear(emit.FiscalYearPolicy(p.cfg.Output.FiscalYear), p.cfg.Output.Year, p.now())
}

// Load runs the read, dedupe and enrich stages. The returned report is never nil
// and carries the stages that ran, including a failed one.
func (p *Pipeline) Load(ctx context.Context) ([]model.RateRecord, *model.RunReport, error) {
	start := p.now()
	report := &model.RunReport{}
	defer func() { report.Total = p.now().Sub(start) }()

	year, err := p.FiscalYear()
	if err != nil {
		return nil, report, err
	}
	report.FiscalYear = year

	records, err := p.load(ctx, report)
	if err != nil {
		return nil, report, err
	}
	report.Records = len(records)
	return records, report, nil
}

func (p *Pipeline) load(ctx context.Context, report *model.RunReport) ([]model.RateRecord, error) {
	var records []model.RateRecord

	if err := p.track(ctx, report, model.StageRead, func() (int, error) {
		var err error
		records, err = sca.ReadSource(ctx, p.cfg.SourceOptions())
		return len(records), err
	}); err != nil {
		return nil, err
	}

	if err := p.track(ctx, report, model.StageDedupe, func() (int, error) {
		var (
			dropped int
			err     error
		)
		records, dropped, err = sca.Dedupe(records, sca.DuplicatePolicy(p.cfg.Source.Duplicates))
		report.Dropped = dropped
		return len(records), err
	}); err != nil {
		return nil, err
	}

	if !p.cfg.Enrichment.Enabled {
		p.skip(report, model.StageEnrich)
		return records, nil
	}
	if err := p.track(ctx, report, model.StageEnrich, func() (int, error) {
		stats, err := sca.Enrich(ctx, records, p.cfg.EnrichmentOptions())
		report.Matched = stats.Matched
		report.Unmatched = stats.Unmatched
		return stats.Rows, err
	}); err != nil {
		return nil, err
	}

	return records, nil
}

// Generate runs every stage and writes the script to the configured directory.
func (p *Pipeline) Generate(ctx context.Context) (*model.RunReport, error) {
	records, report, err := p.Load(ctx)
	if err != nil {
		return report, err
	}

	start := p.now()
	err = p.track(ctx, report, model.StageWrite, func() (int, error) {
		res, werr := emit.WriteFile(ctx, records, report.FiscalYear, p.cfg.EmitOptions(), p.cfg.FileOptions())
		report.OutputPath = res.Path
		return res.Records, werr
	})
	report.Total += p.now().Sub(start)
	if err != nil {
		return report, err
	}

	zap.L().Info("pipeline: run complete",
		zap.Int("fiscal_year", report.FiscalYear),
		zap.String("path", report.OutputPath),
		zap.Int("records", report.Records),
		zap.Duration("total", report.Total),
	)
	return report, nil
}

// Render runs every stage and writes the script to w instead of a file.
func (p *Pipeline) Render(ctx context.Context, w io.Writer) (*model.RunReport, error) {
	return p.RenderWith(ctx, w, p.cfg.EmitOptions())
}

// RenderWith is Render with explicit emission options.
func (p *Pipeline) RenderWith(ctx context.Context, w io.Writer, opts emit.Options) (*model.RunReport, error) {
	records, report, err := p.Load(ctx)
	if err != nil {
		return report, err
	}

	start := p.now()
	err = p.track(ctx, report, model.StageWrite, func() (int, error) {
		return emit.Render(w, records, report.FiscalYear, opts)
	})
	report.Total += p.now().Sub(start)
	return report, err
}

// track times fn and records its outcome on report. A cancelled ctx stops the run
// before the stage starts.
func (p *Pipeline) track(ctx context.Context, report *model.RunReport, name model.StageName, fn func() (int, error)) error {
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("stage", string(name)))

	if err := ctx.Err(); err != nil {
		return eris.Wrapf(err, "pipeline: %s: context cancelled", name)
	}

	start := p.now()
	n, err := fn()
	duration := p.now().Sub(start)

	res := model.StageResult{Name: name, Duration: duration, Records: n}
	if err != nil {
		res.Status = model.StageStatusFailed
		res.Error = err.Error()
		log.Error("pipeline: stage failed", zap.Duration("duration", duration), zap.Error(err))
		report.Stages = append(report.Stages, res)
		return eris.Wrapf(err, "pipeline: %s", name)
	}

	res.Status = model.StageStatusComplete
	log.Info("pipeline: stage complete", zap.Duration("duration", duration), zap.Int("records", n))
	report.Stages = append(report.Stages, res)
	return nil
}

func (p *Pipeline) skip(report *model.RunReport, name model.StageName) {
	zap.L().Debug("pipeline: stage skipped", zap.String("stage", string(name)))
	report.Stages = append(report.Stages, model.StageResult{Name: name, Status: model.StageStatusSkipped})
}
