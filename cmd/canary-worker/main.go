package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/canary-registry/api/clients"
	"github.com/ruteri/canary-registry/cmd/flags"
	"github.com/ruteri/canary-registry/common"
	"github.com/ruteri/canary-registry/cryptoutils"
	"github.com/ruteri/canary-registry/metrics"
	"github.com/ruteri/canary-registry/storage"
	"github.com/ruteri/canary-registry/worker"
	"github.com/urfave/cli/v2"
)

var flagMetricsAddr = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "",
	Usage: "address to listen on for Prometheus metrics, empty to disable",
}

var flagConcurrency = &cli.IntFlag{
	Name:  "concurrency",
	Value: 4,
	Usage: "packages processed in parallel",
}

var flagOnce = &cli.BoolFlag{
	Name:  "once",
	Usage: "run a single scan and exit",
}

func main() {
	app := &cli.App{
		Name:  "canary-worker",
		Usage: "Scan registry members and publish artifact records. Configured through CANARY_* environment variables",
		Flags: append([]cli.Flag{
			flagMetricsAddr,
			flagConcurrency,
			flagOnce,
			flags.LogServiceFlagFn("canary-worker"),
		}, flags.LogFlags...),
		Action: runWorker,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runWorker(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	cfg, err := worker.LoadConfig()
	if err != nil {
		logger.Error("Invalid configuration", "err", err)
		return err
	}

	key, err := cryptoutils.LoadKeyFile(cfg.KeyFile)
	if err != nil {
		logger.Error("Failed to load signing key", "err", err)
		return err
	}

	locations, err := storage.ParseLocations(cfg.StorageURIs)
	if err != nil {
		logger.Error("Invalid storage locations", "err", err)
		return err
	}
	backend, err := storage.NewStorageBackendFactory(logger).CreateMultiBackend(locations)
	if err != nil {
		logger.Error("Failed to create storage backends", "err", err)
		return err
	}

	var workerMetrics *metrics.WorkerMetrics
	var metricsSrv *metrics.MetricsServer
	if addr := cCtx.String(flagMetricsAddr.Name); addr != "" {
		metricsSrv, err = metrics.New(common.PackageName, addr)
		if err != nil {
			logger.Error("Failed to create metrics server", "err", err)
			return err
		}
		workerMetrics = metricsSrv.Worker()
		go func() {
			logger.Info("Starting metrics server", slog.String("metricsAddress", addr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", "err", err)
			}
		}()
	}

	ledgerClient := clients.NewLedgerClient(cfg.APIAddr, key)
	ledgerClient.HTTPClient = &http.Client{Timeout: cfg.StepTimeout}

	w := worker.New(worker.Deps{
		RegistryID:  cfg.RegistryID,
		AdminCap:    cfg.AdminCap,
		Ledger:      ledgerClient,
		Resolver:    worker.NewDNSResolver(cfg.DNSServer),
		Source:      worker.NewHTTPPackageSource(cfg.PackageSourceURL, cfg.StepTimeout),
		Decompiler:  &worker.ExecDecompiler{Path: cfg.DecompilerPath},
		Explainer:   worker.NewHTTPExplainer(cfg.ExplainerURL, cfg.StepTimeout),
		Storage:     backend,
		Metrics:     workerMetrics,
		Log:         logger,
		Concurrency: cCtx.Int(flagConcurrency.Name),
	})

	ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Worker started",
		slog.String("registry", cfg.RegistryID.String()),
		slog.Duration("interval", cfg.Interval()),
		slog.String("storage", backend.LocationURI()))

	if cCtx.Bool(flagOnce.Name) {
		_, err = w.Scan(ctx)
	} else {
		err = w.Run(ctx, cfg.Interval())
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	}

	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(context.Background())
	}
	logger.Info("Worker stopped")
	return err
}
