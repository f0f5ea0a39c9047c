package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/canary-registry/api"
	"github.com/ruteri/canary-registry/common"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *api.LedgerServerConfig {
	cfg := api.LedgerServerConfig{
		ListenAddr:  listenAddr,
		MetricsAddr: cCtx.String(MetricsAddrFlag.Name),
		EnablePprof: cCtx.Bool(PprofFlag.Name),
		Log:         logger,
		Timeouts: api.ServerTimeouts{
			Read:     cCtx.Duration(ReadTimeoutFlag.Name),
			Write:    cCtx.Duration(WriteTimeoutFlag.Name),
			Shutdown: cCtx.Duration(ShutdownTimeoutFlag.Name),
			Drain:    time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second,
		},
		MaxBodyBytes: cCtx.Int64(MaxBodyBytesFlag.Name),
	}.WithDefaults()
	return &cfg
}

var ServerAddrFlag = &cli.StringFlag{
	Name:    "server-addr",
	Value:   "http://127.0.0.1:8080",
	Usage:   "ledger server address",
	EnvVars: []string{"CANARY_API_ADDR"},
}

var KeyFileFlag = &cli.StringFlag{
	Name:    "key-file",
	Usage:   "hex secp256k1 private key file used to sign transactions",
	EnvVars: []string{"CANARY_KEY_FILE"},
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics, empty to disable",
}
var MaxBodyBytesFlag = &cli.Int64Flag{
	Name:  "max-body-bytes",
	Value: api.DefaultMaxBodyBytes,
	Usage: "maximum size of a transaction request body",
}
var ReadTimeoutFlag = &cli.DurationFlag{
	Name:  "read-timeout",
	Value: api.DefaultReadTimeout,
	Usage: "maximum duration for reading a request",
}
var WriteTimeoutFlag = &cli.DurationFlag{
	Name:  "write-timeout",
	Value: api.DefaultWriteTimeout,
	Usage: "maximum duration for writing a response",
}
var ShutdownTimeoutFlag = &cli.DurationFlag{
	Name:  "shutdown-timeout",
	Value: api.DefaultShutdownTimeout,
	Usage: "time allowed for in-flight requests on shutdown",
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
	MaxBodyBytesFlag,
	ReadTimeoutFlag,
	WriteTimeoutFlag,
	ShutdownTimeoutFlag,
}
