package worker

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ruteri/canary-registry/interfaces"
)

// Config is the scan worker configuration, read from the environment.
type Config struct {
	IntervalSeconds  uint64             `env:"TASK_INTERVAL_SECONDS"     envDefault:"3600"`
	RegistryID       interfaces.Address `env:"CANARY_REGISTRY_ID,required"`
	AdminCap         interfaces.Address `env:"CANARY_ADMIN_CAP,required"`
	APIAddr          string             `env:"CANARY_API_ADDR"           envDefault:"http://127.0.0.1:8080"`
	KeyFile          string             `env:"CANARY_KEY_FILE,required"`
	StorageURIs      []string           `env:"CANARY_STORAGE_URIS"       envSeparator:"," envDefault:"file://./canary-blobs"`
	DNSServer        string             `env:"CANARY_DNS_SERVER"         envDefault:"127.0.0.53:53"`
	PackageSourceURL string             `env:"CANARY_PACKAGE_SOURCE_URL,required"`
	DecompilerPath   string             `env:"CANARY_DECOMPILER_PATH"    envDefault:"move-decompiler"`
	ExplainerURL     string             `env:"CANARY_EXPLAINER_URL,required"`
	StepTimeout      time.Duration      `env:"CANARY_STEP_TIMEOUT"       envDefault:"2m"`
}

// LoadConfig parses the worker configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.IntervalSeconds == 0 {
		return nil, errors.New("TASK_INTERVAL_SECONDS must be positive")
	}
	return &cfg, nil
}

// Interval is the pause between scans.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}
