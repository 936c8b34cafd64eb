package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/JakeFAU/embed-provider-sync/internal/clock/system"
	"github.com/JakeFAU/embed-provider-sync/internal/config"
	"github.com/JakeFAU/embed-provider-sync/internal/fetcher"
	collyfetcher "github.com/JakeFAU/embed-provider-sync/internal/fetcher/colly"
	"github.com/JakeFAU/embed-provider-sync/internal/id/uuid"
	"github.com/JakeFAU/embed-provider-sync/internal/logging"
	"github.com/JakeFAU/embed-provider-sync/internal/metrics"
	"github.com/JakeFAU/embed-provider-sync/internal/progress"
	"github.com/JakeFAU/embed-provider-sync/internal/progress/sinks"
	"github.com/JakeFAU/embed-provider-sync/internal/reconcile"
	"github.com/JakeFAU/embed-provider-sync/internal/retry"
	"github.com/JakeFAU/embed-provider-sync/internal/store"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitSaveError = 2

	progressLogEvery = 25
	shutdownTimeout  = 10 * time.Second
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()
	os.Exit(run(*cfgPath))
}

func run(cfgPath string) int {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		return exitFailure
	}
	logger, err := logging.New(logging.Config{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		return exitFailure
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m, err := metrics.New()
	if err != nil {
		logger.Error("metrics init failed", zap.Error(err))
		return exitFailure
	}
	promSink, err := sinks.NewPrometheusSink(m.Registry())
	if err != nil {
		logger.Error("progress sink init failed", zap.Error(err))
		return exitFailure
	}
	hub := progress.NewHub(progress.Config{Logger: logger.Named("progress")},
		sinks.NewLogSink(logger.Named("progress"), progressLogEvery),
		promSink,
	)

	job, err := build(ctx, cfg, logger, m, hub)
	if err != nil {
		logger.Error("sync init failed", zap.Error(err))
		_ = hub.Close(context.Background())
		return exitFailure
	}
	defer job.close()
	logger.Info("starting provider sync",
		zap.String("store", job.store.Path()),
		zap.Int("fetch_concurrency", job.gate.Capacity()),
	)

	summary, runErr := job.rec.Run(ctx)
	if n := job.gate.InFlight(); n > 0 {
		logger.Warn("detail fetches still in flight at shutdown", zap.Int64("in_flight", n))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hub.Close(shutdownCtx); err != nil {
		logger.Warn("progress hub close failed", zap.Error(err))
	}
	shipMetrics(cfg.Metrics, m, logger)

	fields := []zap.Field{
		zap.Stringer("run_id", summary.RunID),
		zap.String("store", job.store.Path()),
		zap.Int("listed", summary.Listed),
		zap.Int("updated", summary.Updated),
		zap.Strings("failed", summary.Failed),
		zap.Strings("pruned", summary.Pruned),
		zap.Bool("saved", summary.Saved),
		zap.Int64("fetch_peak", job.gate.Peak()),
		zap.Int64("progress_dropped", hub.Dropped()),
		zap.Duration("duration", summary.Duration),
	}
	if runErr != nil {
		logger.Error("provider sync failed", append(fields, zap.Error(runErr))...)
	} else {
		logger.Info("provider sync complete", fields...)
	}
	return exitCode(runErr)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, reconcile.ErrSave):
		return exitSaveError
	default:
		return exitFailure
	}
}

// syncJob is a wired reconciler plus the collaborators the entrypoint reports on.
type syncJob struct {
	rec   *reconcile.Reconciler
	gate  *fetcher.Gate
	store *store.FileStore
	close func()
}

func build(
	ctx context.Context,
	cfg config.Config,
	logger *zap.Logger,
	m *metrics.Metrics,
	emitter progress.Emitter,
) (*syncJob, error) {
	policy := retry.NewFixedPolicy(cfg.HTTP.MaxAttempts, cfg.RetryDelay())
	if cfg.HTTP.SkipPermanentErrors {
		policy.Permanent = fetcher.IsPermanent
	}
	gate := fetcher.NewGate(cfg.HTTP.Concurrency, m.SetInFlight)
	pages := fetcher.NewBounded(
		collyfetcher.New(collyfetcher.Config{UserAgent: cfg.HTTP.UserAgent, Timeout: cfg.Timeout()}),
		gate,
		policy,
		logger.Named("fetcher"),
		fetcher.WithRecorder(m),
	)

	providers, err := store.NewFileStore(nil, store.Config{
		Path:          cfg.Store.Path,
		RepairCorrupt: cfg.Store.RepairCorrupt,
	}, logger.Named("store"))
	if err != nil {
		return nil, err
	}

	opts := []reconcile.Option{
		reconcile.WithEmitter(emitter),
		reconcile.WithGauges(m),
		reconcile.WithRunIDs(uuid.New()),
		reconcile.WithClock(system.New().Now),
	}
	if cfg.Domains.Enabled {
		domains, err := store.NewDomainFile(nil, cfg.Domains.Path, logger.Named("domains"))
		if err != nil {
			return nil, err
		}
		opts = append(opts, reconcile.WithDomains(domains))
	}

	exporters, err := buildExporters(ctx, cfg.Export, logger)
	if err != nil {
		return nil, err
	}
	closeAll := func() {
		for _, exp := range exporters {
			if err := exp.Close(); err != nil {
				logger.Warn("exporter close failed", zap.String("exporter", exp.Name()), zap.Error(err))
			}
		}
	}
	opts = append(opts, reconcile.WithExporters(exporters...))

	rec, err := reconcile.New(pages, providers, cfg, logger.Named("sync"), opts...)
	if err != nil {
		closeAll()
		return nil, err
	}
	return &syncJob{rec: rec, gate: gate, store: providers, close: closeAll}, nil
}

func shipMetrics(cfg config.MetricsConfig, m *metrics.Metrics, logger *zap.Logger) {
	if cfg.Textfile != "" {
		if err := m.WriteTextfile(cfg.Textfile); err != nil {
			logger.Warn("metrics textfile write failed", zap.String("path", cfg.Textfile), zap.Error(err))
		}
	}
	if cfg.PushgatewayURL != "" {
		if err := m.Push(cfg.PushgatewayURL, cfg.JobName); err != nil {
			logger.Warn("metrics push failed", zap.String("url", cfg.PushgatewayURL), zap.Error(err))
		}
	}
}
