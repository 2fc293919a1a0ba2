// Package pipeline runs a full distance computation: load, group, score,
// write.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/deidaraiorek/killdist/internal/config"
	"github.com/deidaraiorek/killdist/internal/dataset"
	"github.com/deidaraiorek/killdist/internal/killmail"
	"github.com/deidaraiorek/killdist/internal/similarity"
	"github.com/deidaraiorek/killdist/internal/stopwatch"
	"github.com/deidaraiorek/killdist/internal/storage"
	"github.com/deidaraiorek/killdist/internal/textprocessor"
)

const (
	stageLoad    = "Loading CSV data from local file..."
	stageConvert = "Converting 'item' column value types..."
	stageCompute = "Computing cosine distances by grouping character_id's..."
	stageWrite   = "Concatenating resulting groups and writing to file..."
	stageExit    = "Exit"
)

// Summary describes a finished run.
type Summary struct {
	Rows       int
	Characters int
	Laps       []stopwatch.Lap
}

type Pipeline struct {
	cfg      config.Config
	logger   *zap.Logger
	progress io.Writer
	engine   *similarity.Engine
	watch    *stopwatch.Stopwatch
}

// New prepares a run. progress receives the in-place percentage line and may
// be nil.
func New(cfg config.Config, logger *zap.Logger, progress io.Writer) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Progress {
		progress = nil
	}

	processor, err := textprocessor.New(cfg.AnalyzerOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create text processor: %w", err)
	}

	return &Pipeline{
		cfg:      cfg,
		logger:   logger,
		progress: progress,
		engine:   similarity.NewEngine(processor),
	}, nil
}

// WithStopwatch replaces the stopwatch started by Run.
func (p *Pipeline) WithStopwatch(sw *stopwatch.Stopwatch) *Pipeline {
	p.watch = sw
	return p
}

// Run executes every stage. Nothing is written unless all groups were
// scored and every sink succeeded; cancelling ctx stops the run between
// groups.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	if p.watch == nil {
		p.watch = stopwatch.New()
	}
	var summary Summary

	p.mark(stageLoad)
	table, err := dataset.Load(p.cfg.Input, p.cfg.DatasetOptions())
	if err != nil {
		return summary, err
	}
	p.logger.Info("Loaded dataset",
		zap.String("path", p.cfg.Input),
		zap.String("rows", humanize.Comma(int64(len(table.Records)))),
		zap.Stringer("compression", table.Compression),
		zap.Strings("dropped", table.Dropped),
	)
	if len(table.NotDropped) > 0 {
		p.logger.Debug("Drop columns not present in input", zap.Strings("columns", table.NotDropped))
	}

	// Items cells are decoded while loading; the stage is kept for timing.
	p.mark(stageConvert)

	p.mark(stageCompute)
	parts, err := p.score(ctx, killmail.GroupByCharacter(table.Records))
	if err != nil {
		return summary, err
	}
	summary.Rows = len(table.Records)
	summary.Characters = len(parts)

	p.mark(stageWrite)
	pending, err := dataset.Stage(p.cfg.Output, table, parts)
	if err != nil {
		return summary, fmt.Errorf("failed to write %s: %w", p.cfg.Output, err)
	}
	// The CSV moves into place only after the results database committed.
	if p.cfg.SQLite.Path != "" {
		if err := p.saveResults(parts); err != nil {
			pending.Discard()
			return summary, err
		}
	}
	if err := pending.Commit(); err != nil {
		pending.Discard()
		return summary, fmt.Errorf("failed to write %s: %w", p.cfg.Output, err)
	}
	p.logger.Info("Wrote distances",
		zap.String("path", p.cfg.Output),
		zap.String("rows", humanize.Comma(int64(summary.Rows))),
		zap.String("characters", humanize.Comma(int64(summary.Characters))),
	)

	p.mark(stageExit)
	summary.Laps = p.watch.Laps()
	return summary, nil
}

func (p *Pipeline) score(ctx context.Context, groups []killmail.Partition) ([]dataset.ScoredPartition, error) {
	parts := make([]dataset.ScoredPartition, 0, len(groups))
	lastShown := -1
	for i, g := range groups {
		if err := ctx.Err(); err != nil {
			p.endProgress()
			return nil, fmt.Errorf("scoring stopped after %d of %d characters: %w", i, len(groups), err)
		}

		scores := p.engine.Partition(g)
		parts = append(parts, dataset.ScoredPartition{
			Partition: g,
			Short:     scores.Short,
			Long:      scores.Long,
		})

		// Redraw only when the displayed value changes.
		if permille := (i + 1) * 1000 / len(groups); permille != lastShown {
			p.showProgress(float64(i+1) / float64(len(groups)) * 100)
			lastShown = permille
		}
	}
	p.endProgress()
	return parts, nil
}

func (p *Pipeline) showProgress(pct float64) {
	if p.progress == nil {
		return
	}
	fmt.Fprintf(p.progress, "Progress %.1f%%\r", pct)
}

func (p *Pipeline) endProgress() {
	if p.progress == nil {
		return
	}
	fmt.Fprintln(p.progress)
}

func (p *Pipeline) saveResults(parts []dataset.ScoredPartition) error {
	db, err := storage.NewResultsDB(p.cfg.SQLite.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SaveRun(parts); err != nil {
		return fmt.Errorf("failed to store results: %w", err)
	}
	for key, value := range map[string]string{
		"input":  p.cfg.Input,
		"output": p.cfg.Output,
		"stem":   strconv.FormatBool(p.cfg.Analyzer.Stem),
	} {
		if err := db.SetMetadata(key, value); err != nil {
			return fmt.Errorf("failed to update %s: %w", key, err)
		}
	}

	p.logger.Info("Stored results", zap.String("path", p.cfg.SQLite.Path))
	return nil
}

func (p *Pipeline) mark(label string) {
	lap := p.watch.Mark(label)
	p.logger.Info(lap.String(),
		zap.Duration("elapsed", lap.Elapsed),
		zap.Duration("total", lap.Total),
	)
}
