package worker

import (
	"os"
	"testing"
	"time"

	"github.com/ruteri/canary-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("CANARY_REGISTRY_ID", "0x1234")
	t.Setenv("CANARY_ADMIN_CAP", "0x5678")
	t.Setenv("CANARY_KEY_FILE", "/etc/canary/admin.key")
	t.Setenv("CANARY_PACKAGE_SOURCE_URL", "http://packages.internal")
	t.Setenv("CANARY_EXPLAINER_URL", "http://explainer.internal/v1/explain")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.Interval())
	assert.Equal(t, interfaces.MustAddress("0x1234"), cfg.RegistryID)
	assert.Equal(t, interfaces.MustAddress("0x5678"), cfg.AdminCap)
	assert.Equal(t, []string{"file://./canary-blobs"}, cfg.StorageURIs)
	assert.Equal(t, "127.0.0.53:53", cfg.DNSServer)
	assert.Equal(t, 2*time.Minute, cfg.StepTimeout)
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TASK_INTERVAL_SECONDS", "60")
	t.Setenv("CANARY_STORAGE_URIS", "file:///data,ipfs://127.0.0.1:5001/canary")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.Interval())
	assert.Len(t, cfg.StorageURIs, 2)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Run("missing registry", func(t *testing.T) {
		setRequiredEnv(t)
		require.NoError(t, os.Unsetenv("CANARY_REGISTRY_ID"))
		_, err := LoadConfig()
		assert.Error(t, err)
	})
	t.Run("zero interval", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("TASK_INTERVAL_SECONDS", "0")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
	t.Run("bad address", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("CANARY_ADMIN_CAP", "not-hex")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
}
