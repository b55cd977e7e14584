package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"

	"batcharchive/internal/boundary"
	boundarypg "batcharchive/internal/boundary/postgres"
	"batcharchive/internal/config"
	"batcharchive/internal/crypto"
	"batcharchive/internal/database"
	"batcharchive/internal/database/migration"
	"batcharchive/internal/metrics"
	"batcharchive/internal/otel"
	"batcharchive/internal/pack"
	"batcharchive/internal/scanner"
	"batcharchive/internal/service"
	"batcharchive/internal/storage"
)

// Exit codes: 0 clean, 1 completed with per-unit failures, 2 fatal (nothing
// or only part of the range was processed). Schedulers key off these.
const (
	exitOK      = 0
	exitPartial = 1
	exitFatal   = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load environment configuration (.env auto-loaded if present)
	appCfg := config.Load()

	cfg := &config.ArchiveConfig{}
	var suppliers string
	flag.StringVar(&cfg.RootPath, "root", "", "batch-files root path (required)")
	flag.StringVar(&cfg.Mode, "mode", config.ModeManual, "run mode: manual or automatic")
	flag.StringVar(&cfg.CutoffDate, "cutoff", "", "exclusive cutoff date YYYY-MM-DD (manual mode)")
	flag.StringVar(&cfg.EarliestDate, "earliest", "", "inclusive earliest date YYYY-MM-DD (manual mode, optional)")
	flag.StringVar(&cfg.Passphrase, "passphrase", appCfg.Passphrase, "enables encryption (or ARCHIVER_PASSPHRASE)")
	flag.StringVar(&suppliers, "suppliers", strings.Join(appCfg.Suppliers, ","), "comma-separated supplier allow-list (or ARCHIVER_SUPPLIERS)")
	flag.BoolVar(&cfg.UploadEnabled, "upload", true, "upload artifacts to object storage")
	flag.BoolVar(&cfg.DeleteAfterUpload, "delete", false, "delete source directories after confirmed upload")
	flag.Parse()
	if suppliers != "" {
		for _, s := range strings.Split(suppliers, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.Suppliers = append(cfg.Suppliers, s)
			}
		}
	}

	// Interrupts stop new units; in-flight work finishes its stage.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx)
	if err != nil {
		log.Printf("tracing disabled: %v", err)
	} else {
		defer shutdownTracing(context.Background())
	}

	registry := prometheus.NewRegistry()
	runMetrics, err := metrics.NewRunMetrics(registry)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}

	// Object storage is only wired when uploading; the no-upload debugging
	// path must work without MinIO configuration.
	var objStore storage.Storage
	if cfg.UploadEnabled {
		objStore, err = storage.NewMinIO(appCfg.MinIO)
		if err != nil {
			log.Printf("failed to initialize object storage: %v", err)
			return exitFatal
		}
	}

	var boundaries boundary.Store = boundary.NewFileStore()
	if appCfg.Database.Enabled() {
		db, err := database.NewPostgres(appCfg.Database)
		if err != nil {
			log.Printf("failed to connect to database: %v", err)
			return exitFatal
		}
		defer db.Close()
		if err := migration.EnsureMigrated(ctx, db, appCfg.Database.Host); err != nil {
			log.Printf("failed to migrate database: %v", err)
			return exitFatal
		}
		boundaries = boundarypg.NewStore(db)
	}

	pipeline := service.NewPipeline(pack.NewTarGz(), crypto.NewSealer(), objStore, runMetrics, nil)
	orchestrator := service.NewOrchestrator(scanner.New(cfg.Suppliers), pipeline, boundaries, objStore, runMetrics, nil)

	report, runErr := orchestrator.Run(ctx, cfg)

	if appCfg.MetricsPushURL != "" {
		if err := metrics.Push(appCfg.MetricsPushURL, registry); err != nil {
			log.Printf("metrics push failed: %v", err)
		}
	}

	if runErr != nil {
		log.Printf("archive run failed: %v", runErr)
		return exitFatal
	}

	summary := fmt.Sprintf("archived=%d not_uploaded=%d failed=%d skipped_suppliers=%d",
		report.Archived, report.NotUploaded, report.Failed, report.UnknownSuppliers)
	if report.WorkDir != "" {
		summary += " artifacts=" + report.WorkDir
	}
	log.Printf("archive run %s complete: %s", report.RunID, summary)

	for _, f := range report.Failures {
		log.Printf("failed unit %s/%s at %s: %s", f.Supplier, f.Date, f.Stage, f.Err)
	}
	if report.BoundaryErr != "" {
		log.Printf("WARNING: run boundary was not advanced (%s); the same range will be re-processed next run", report.BoundaryErr)
	}

	if !report.Clean() {
		return exitPartial
	}
	return exitOK
}
