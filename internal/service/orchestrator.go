package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"batcharchive/internal/boundary"
	"batcharchive/internal/config"
	"batcharchive/internal/metrics"
	"batcharchive/internal/model"
	"batcharchive/internal/scanner"
)

// Pinger is the transport probe checked before any packing work starts when
// uploading is enabled. storage.Storage satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Orchestrator drives a whole archive run: range resolution, scanning,
// filtering, per-unit pipelines, aggregation and boundary advancement.
type Orchestrator struct {
	scan       *scanner.Scanner
	pipeline   Pipeline
	boundaries boundary.Store
	transport  Pinger // nil when uploading is disabled
	metrics    *metrics.RunMetrics
	logOut     *EventLogger

	// Overridable in tests.
	now      func() time.Time
	newRunID func() string
	tmpRoot  string
}

// NewOrchestrator constructs an Orchestrator. transport may be nil when
// uploading is disabled; metrics and log may be nil.
func NewOrchestrator(scan *scanner.Scanner, pl Pipeline, bs boundary.Store, transport Pinger, m *metrics.RunMetrics, log *EventLogger) *Orchestrator {
	return &Orchestrator{
		scan:       scan,
		pipeline:   pl,
		boundaries: bs,
		transport:  transport,
		metrics:    m,
		logOut:     log,
		now:        time.Now,
		newRunID:   uuid.NewString,
		tmpRoot:    os.TempDir(),
	}
}

// Run executes one archive run. A returned error means the run failed before
// or during processing and the report may be partial; a nil error with
// report.Failed > 0 means the run completed with per-unit failures.
func (o *Orchestrator) Run(ctx context.Context, cfg *config.ArchiveConfig) (*model.RunReport, error) {
	today := model.DateOf(o.now())

	if err := cfg.Validate(today); err != nil {
		return nil, err
	}

	rng, err := o.resolveRange(ctx, cfg, today)
	if err != nil {
		return nil, err
	}

	// Fail fast on a dead transport before touching any directory.
	if cfg.UploadEnabled {
		if o.transport == nil {
			return nil, fmt.Errorf("uploading is enabled but no upload transport is configured")
		}
		if err := o.transport.Ping(ctx); err != nil {
			return nil, fmt.Errorf("upload transport unavailable: %w", err)
		}
	}

	runID := o.newRunID()
	if o.logOut == nil {
		o.logOut = NewEventLogger(os.Stdout, runID)
	}
	report := &model.RunReport{RunID: runID, Mode: cfg.Mode, Range: rng}

	workDir := filepath.Join(o.tmpRoot, "archiver-"+runID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create working area: %w", err)
	}
	if cfg.UploadEnabled {
		// Artifacts are transient when uploaded; the area goes away with the
		// run. Without uploading it is the run's output and is reported.
		defer os.RemoveAll(workDir)
	} else {
		report.WorkDir = workDir
	}

	ctx, span := otel.Tracer("batcharchive/orchestrator").Start(ctx, "archive_run",
		oteltrace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.String("mode", cfg.Mode),
			attribute.String("cutoff", rng.Cutoff.String()),
		))
	defer span.End()

	o.logOut.Event("run_started", map[string]any{
		"mode":     cfg.Mode,
		"root":     cfg.RootPath,
		"cutoff":   rng.Cutoff.String(),
		"earliest": earliestLabel(rng),
		"upload":   cfg.UploadEnabled,
		"delete":   cfg.DeleteAfterUpload,
		"encrypt":  cfg.EncryptionEnabled(),
	})

	opts := PipelineOptions{
		WorkDir:      workDir,
		Passphrase:   cfg.Passphrase,
		Upload:       cfg.UploadEnabled,
		DeleteSource: cfg.DeleteAfterUpload,
	}

	stats, walkErr := o.scan.Walk(cfg.RootPath, func(unit model.BatchUnit) error {
		// Stop starting new units on cancellation; the in-flight unit has
		// already finished its stage by the time we get here.
		if err := ctx.Err(); err != nil {
			return err
		}
		if !rng.Includes(unit.Date) {
			return nil
		}
		report.Record(o.pipeline.Process(ctx, unit, opts))
		return nil
	})

	o.recordSkips(stats, report)

	if walkErr != nil {
		// The scan did not reach natural completion: never advance the
		// boundary past directories that were never considered.
		return report, fmt.Errorf("scan aborted: %w", walkErr)
	}

	if cfg.Mode == config.ModeAutomatic {
		if err := o.boundaries.Write(ctx, cfg.RootPath, rng.Cutoff); err != nil {
			report.BoundaryErr = err.Error()
			o.logOut.Event("boundary_write_failed", map[string]any{
				"cutoff": rng.Cutoff.String(),
				"error":  err.Error(),
			})
		} else {
			report.BoundaryAdvanced = true
			o.logOut.Event("boundary_advanced", map[string]any{
				"cutoff": rng.Cutoff.String(),
			})
		}
	}

	o.logOut.Event("run_completed", map[string]any{
		"archived":          report.Archived,
		"not_uploaded":      report.NotUploaded,
		"failed":            report.Failed,
		"unknown_suppliers": report.UnknownSuppliers,
		"malformed_names":   report.MalformedNames,
		"work_dir":          report.WorkDir,
	})
	return report, nil
}

// resolveRange produces the effective date range for the run. Config
// validation has already rejected contradictory parameters.
func (o *Orchestrator) resolveRange(ctx context.Context, cfg *config.ArchiveConfig, today model.BatchDate) (model.DateRange, error) {
	if cfg.Mode == config.ModeManual {
		cutoff, err := model.ParseBatchDate(cfg.CutoffDate)
		if err != nil {
			return model.DateRange{}, err
		}
		rng := model.DateRange{Cutoff: cutoff}
		if cfg.EarliestDate != "" {
			if rng.Earliest, err = model.ParseBatchDate(cfg.EarliestDate); err != nil {
				return model.DateRange{}, err
			}
		}
		return rng, nil
	}

	rng := model.DateRange{Cutoff: today}
	prev, ok, err := o.boundaries.Read(ctx, cfg.RootPath)
	if err != nil {
		return model.DateRange{}, fmt.Errorf("read run boundary: %w", err)
	}
	if ok {
		rng.Earliest = prev
	}
	return rng, nil
}

func (o *Orchestrator) recordSkips(stats *scanner.Stats, report *model.RunReport) {
	report.UnknownSuppliers = len(stats.UnknownSuppliers)
	report.MalformedNames = len(stats.MalformedNames)
	for _, name := range stats.UnknownSuppliers {
		if o.metrics != nil {
			o.metrics.SupplierSkipped()
		}
		o.logOut.Event("supplier_skipped", map[string]any{
			"supplier": name,
			"reason":   "not in allow-list",
		})
	}
	for _, name := range stats.MalformedNames {
		o.logOut.Event("malformed_name_skipped", map[string]any{
			"directory": name,
		})
	}
}

func earliestLabel(rng model.DateRange) string {
	if rng.Earliest.IsZero() {
		return ""
	}
	return rng.Earliest.String()
}
