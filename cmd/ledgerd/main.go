package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/ruteri/canary-registry/cmd/flags"
	"github.com/ruteri/canary-registry/common"
	"github.com/ruteri/canary-registry/httpserver"
	"github.com/ruteri/canary-registry/interfaces"
	"github.com/ruteri/canary-registry/ledger"
	"github.com/ruteri/canary-registry/ledger/postgres"
	"github.com/ruteri/canary-registry/ledger/sqlite"
	"github.com/ruteri/canary-registry/metrics"
	"github.com/ruteri/canary-registry/registry"
	"github.com/urfave/cli/v2"
)

var flagListenAddr = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}
var flagStore = &cli.StringFlag{
	Name:  "store",
	Value: "memory",
	Usage: "ledger snapshot store: 'memory', 'sqlite' or 'postgres'",
}
var flagStoreDSN = &cli.StringFlag{
	Name:    "store-dsn",
	Usage:   "sqlite database path or postgres connection string",
	EnvVars: []string{"CANARY_STORE_DSN"},
}
var flagGenesisAdmin = &cli.StringFlag{
	Name:  "genesis-admin",
	Usage: "principal that initializes the registry on a fresh ledger; no registry is created if empty",
}
var flagGenesisFee = &cli.Uint64Flag{
	Name:  "genesis-fee",
	Value: 1_000_000_000,
	Usage: "membership fee of the genesis registry",
}
var flagGenesisFaucet = &cli.StringSliceFlag{
	Name:  "genesis-faucet",
	Usage: "mint coins on a fresh ledger, as <principal>=<amount>; may be repeated",
}
var flagRevokeCaps = &cli.BoolFlag{
	Name:  "revoke-caps-on-removal",
	Value: false,
	Usage: "membership capabilities of removed members stop verifying",
}

func main() {
	app := &cli.App{
		Name:  "ledgerd",
		Usage: "Serve the canary registry ledger over HTTP",
		Flags: append([]cli.Flag{
			flagListenAddr,
			flagStore,
			flagStoreDSN,
			flagGenesisAdmin,
			flagGenesisFee,
			flagGenesisFaucet,
			flagRevokeCaps,
			flags.LogServiceFlagFn("ledgerd"),
		}, flags.CommonFlags...),
		Action: runServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServer(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)
	cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flagListenAddr.Name))
	ctx := cCtx.Context

	var metricsSrv *metrics.MetricsServer
	var ledgerMetrics ledger.Metrics
	if cfg.MetricsAddr != "" {
		var err error
		metricsSrv, err = metrics.New(common.PackageName, cfg.MetricsAddr)
		if err != nil {
			logger.Error("Failed to create metrics server", "err", err)
			return err
		}
		ledgerMetrics = metricsSrv.Ledger()
	}

	store, closeStore, err := openStore(ctx, cCtx.String(flagStore.Name), cCtx.String(flagStoreDSN.Name), logger)
	if err != nil {
		logger.Error("Failed to open ledger store", "err", err)
		return err
	}
	defer closeStore()

	l, err := ledger.New(ctx, ledger.Options{
		Store:   store,
		Metrics: ledgerMetrics,
		Log:     logger,
	})
	if err != nil {
		logger.Error("Failed to load ledger", "err", err)
		return err
	}

	if l.Checkpoint() == 0 {
		if err := genesis(ctx, cCtx, l, logger); err != nil {
			logger.Error("Genesis failed", "err", err)
			return err
		}
	} else {
		logger.Info("Resuming existing ledger, genesis flags ignored", slog.Uint64("checkpoint", l.Checkpoint()))
	}

	server, err := httpserver.New(cfg, httpserver.NewHandler(l, logger, cfg.MaxBodyBytes), metricsSrv)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}
	server.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")
	return nil
}

func openStore(ctx context.Context, kind, dsn string, logger *slog.Logger) (ledger.Store, func(), error) {
	switch kind {
	case "memory":
		logger.Warn("Using in-memory ledger, state is lost on restart")
		return nil, func() {}, nil
	case "sqlite":
		store, err := sqlite.NewStore(dsn)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using sqlite ledger store", slog.String("path", store.Path()))
		return store, func() { _ = store.Close() }, nil
	case "postgres":
		if dsn == "" {
			return nil, nil, fmt.Errorf("--%s is required for the postgres store", flagStoreDSN.Name)
		}
		store, err := postgres.NewStore(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using postgres ledger store")
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("invalid store: %s", kind)
	}
}

func genesis(ctx context.Context, cCtx *cli.Context, l *ledger.Ledger, logger *slog.Logger) error {
	for _, entry := range cCtx.StringSlice(flagGenesisFaucet.Name) {
		owner, amount, err := parseFaucetEntry(entry)
		if err != nil {
			return err
		}
		coinID, err := l.Mint(ctx, owner, amount)
		if err != nil {
			return fmt.Errorf("mint for %s: %w", owner, err)
		}
		logger.Info("Minted genesis coin",
			slog.String("owner", owner.String()),
			slog.Uint64("amount", amount),
			slog.String("coin", coinID.String()))
	}

	adminHex := cCtx.String(flagGenesisAdmin.Name)
	if adminHex == "" {
		return nil
	}
	admin, err := interfaces.NewAddressFromHex(adminHex)
	if err != nil {
		return fmt.Errorf("genesis admin: %w", err)
	}

	policy := registry.CapPersists
	if cCtx.Bool(flagRevokeCaps.Name) {
		policy = registry.CapRevokedOnRemoval
	}

	var registryID, adminCapID interfaces.Address
	_, err = l.Execute(ctx, admin, func(tx *ledger.Tx) error {
		var err error
		registryID, adminCapID, err = registry.Initialize(tx, cCtx.Uint64(flagGenesisFee.Name), policy)
		return err
	})
	if err != nil {
		return fmt.Errorf("initialize registry: %w", err)
	}

	logger.Info("Registry initialized",
		slog.String("registry", registryID.String()),
		slog.String("admin_cap", adminCapID.String()),
		slog.String("admin", admin.String()),
		slog.String("cap_policy", string(policy)))
	return nil
}

func parseFaucetEntry(entry string) (interfaces.Address, uint64, error) {
	ownerHex, amountStr, ok := strings.Cut(entry, "=")
	if !ok {
		return interfaces.Address{}, 0, fmt.Errorf("invalid faucet entry %q, want <principal>=<amount>", entry)
	}
	owner, err := interfaces.NewAddressFromHex(ownerHex)
	if err != nil {
		return interfaces.Address{}, 0, err
	}
	amount, err := strconv.ParseUint(amountStr, 10, 64)
	if err != nil {
		return interfaces.Address{}, 0, fmt.Errorf("invalid faucet amount %q: %w", amountStr, err)
	}
	return owner, amount, nil
}
