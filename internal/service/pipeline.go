package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"batcharchive/internal/crypto"
	"batcharchive/internal/metrics"
	"batcharchive/internal/model"
	"batcharchive/internal/pack"
	"batcharchive/internal/storage"
)

// PipelineOptions are the run-level settings applied to every unit.
// The orchestrator validates them once before processing starts.
type PipelineOptions struct {
	// WorkDir is the per-run working area for temporary artifacts.
	WorkDir string
	// Passphrase enables encryption when non-empty.
	Passphrase string
	// Upload sends the final artifact to object storage and makes it
	// transient locally.
	Upload bool
	// DeleteSource removes the source batch directory after a confirmed
	// upload. Ignored when Upload is false.
	DeleteSource bool
}

// Pipeline processes one batch unit through pack, encrypt, upload and
// cleanup. A unit's failure never propagates; it is folded into the result.
type Pipeline interface {
	Process(ctx context.Context, unit model.BatchUnit, opts PipelineOptions) model.UnitResult
}

type archivePipeline struct {
	packer  pack.Packer
	sealer  crypto.Encrypter
	store   storage.Storage // nil when uploading is disabled for the run
	metrics *metrics.RunMetrics
	log     *EventLogger
	tracer  oteltrace.Tracer
}

// NewPipeline constructs the archive pipeline. store may be nil when
// uploading is disabled; metrics and log may be nil.
func NewPipeline(packer pack.Packer, sealer crypto.Encrypter, store storage.Storage, m *metrics.RunMetrics, log *EventLogger) Pipeline {
	return &archivePipeline{
		packer:  packer,
		sealer:  sealer,
		store:   store,
		metrics: m,
		log:     log,
		tracer:  otel.Tracer("batcharchive/pipeline"),
	}
}

// Process runs the stages for one unit in strict order. Stage failure
// short-circuits the remaining stages for this unit only. The source
// directory is deleted only after its upload was confirmed; that ordering is
// the pipeline's sole safety net against data loss.
func (p *archivePipeline) Process(ctx context.Context, unit model.BatchUnit, opts PipelineOptions) model.UnitResult {
	ctx, span := p.tracer.Start(ctx, "archive_unit",
		oteltrace.WithAttributes(
			attribute.String("supplier", string(unit.Supplier)),
			attribute.String("batch_date", unit.Date.String()),
		))
	defer span.End()

	res := model.UnitResult{Supplier: unit.Supplier, Date: unit.Date}

	supplierDir := filepath.Join(opts.WorkDir, string(unit.Supplier))
	if err := os.MkdirAll(supplierDir, 0o755); err != nil {
		return p.fail(res, model.StagePack, fmt.Errorf("create working area: %w", err))
	}

	// Pack
	artifact := filepath.Join(supplierDir, unit.Date.String()+pack.Extension)
	if err := p.timed(ctx, model.StagePack, func() error {
		return p.packer.Pack(ctx, unit.Dir, artifact)
	}); err != nil {
		return p.fail(res, model.StagePack, err)
	}

	// Encrypt
	if opts.Passphrase != "" {
		sealed := artifact + crypto.EncryptedSuffix
		if err := p.timed(ctx, model.StageEncrypt, func() error {
			return p.sealer.Encrypt(ctx, artifact, sealed, opts.Passphrase)
		}); err != nil {
			return p.fail(res, model.StageEncrypt, err)
		}
		// The plaintext intermediate is no longer needed.
		_ = os.Remove(artifact)
		artifact = sealed
	}

	if !opts.Upload {
		res.Status = model.StatusArchivedNotUploaded
		if p.metrics != nil {
			p.metrics.UnitArchived(string(unit.Supplier))
		}
		p.log.Event("unit_archived", map[string]any{
			"supplier": unit.Supplier,
			"date":     unit.Date.String(),
			"artifact": artifact,
			"uploaded": false,
		})
		return res
	}

	// Upload, namespaced by supplier.
	key := string(unit.Supplier) + "/" + filepath.Base(artifact)
	if err := p.timed(ctx, model.StageUpload, func() error {
		_, err := storage.UploadFile(ctx, p.store, artifact, key)
		return err
	}); err != nil {
		return p.fail(res, model.StageUpload, err)
	}
	// The local artifact is transient once the remote copy exists.
	_ = os.Remove(artifact)

	res.Status = model.StatusArchived

	// Cleanup runs only here, after the upload above succeeded.
	if opts.DeleteSource {
		if err := p.timed(ctx, model.StageCleanup, func() error {
			return os.RemoveAll(unit.Dir)
		}); err != nil {
			res.CleanupErr = err.Error()
		}
	}

	if p.metrics != nil {
		p.metrics.UnitArchived(string(unit.Supplier))
	}
	p.log.Event("unit_archived", map[string]any{
		"supplier": unit.Supplier,
		"date":     unit.Date.String(),
		"key":      key,
		"uploaded": true,
		"deleted":  opts.DeleteSource && res.CleanupErr == "",
	})
	return res
}

func (p *archivePipeline) timed(ctx context.Context, stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	if p.metrics != nil {
		p.metrics.ObserveStage(stage, time.Since(start).Seconds())
	}
	return err
}

func (p *archivePipeline) fail(res model.UnitResult, stage string, err error) model.UnitResult {
	res.Status = model.StatusFailed
	res.Stage = stage
	res.Err = err.Error()
	if p.metrics != nil {
		p.metrics.UnitFailed(string(res.Supplier), stage)
	}
	p.log.Event("unit_failed", map[string]any{
		"supplier": res.Supplier,
		"date":     res.Date.String(),
		"stage":    stage,
		"error":    err.Error(),
	})
	return res
}
