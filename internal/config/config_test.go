package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "portal-normalized2.glb", cfg.Model)
	assert.Equal(t, "baked-extra.jpg", cfg.BakedTexture)
	assert.Equal(t, "draco/", cfg.DecoderPath)
	assert.Equal(t, "Area", cfg.GateNode)
	assert.True(t, cfg.Effects)
	assert.True(t, cfg.PreloaderGate)
	assert.True(t, cfg.PanelCollapsed)
	assert.Equal(t, "#544054", cfg.ClearColor)
	assert.Equal(t, "#b2aada", cfg.PortalColorStart)
	assert.Equal(t, "#ffbb00", cfg.PortalColorEnd)
	assert.Equal(t, 40, cfg.FireflyCount)
	assert.Equal(t, 168.0, cfg.FireflySize)
	assert.Equal(t, 2.0, cfg.MaxPixelRatio)
	assert.Equal(t, EffectsPollInterval, cfg.PollInterval.Std())
	assert.Zero(t, cfg.ReadyTimeout)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout.Std())
	require.NoError(t, cfg.Validate())
}

func TestSimpleVariantPollsSlowerFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"effects": false}`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Effects)
	assert.Equal(t, SimplePollInterval, cfg.PollInterval.Std())
}

func TestSimpleVariantPollsSlowerFromEnv(t *testing.T) {
	t.Setenv("PORTAL_EFFECTS", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.Effects)
	assert.Equal(t, SimplePollInterval, cfg.PollInterval.Std())
}

func TestEffectsVariantPollInterval(t *testing.T) {
	t.Setenv("PORTAL_EFFECTS", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, EffectsPollInterval, cfg.PollInterval.Std())
}

func TestExplicitPollIntervalWins(t *testing.T) {
	t.Setenv("PORTAL_EFFECTS", "false")
	t.Setenv("PORTAL_POLL_INTERVAL", "1s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.PollInterval.Std())
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"effects": false,
		"preloader_gate": false,
		"poll_interval": 1500,
		"ready_timeout": "1m",
		"clear_color": "#000000"
	}`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Effects)
	assert.False(t, cfg.PreloaderGate)
	assert.Equal(t, 1500*time.Millisecond, cfg.PollInterval.Std())
	assert.Equal(t, time.Minute, cfg.ReadyTimeout.Std())
	assert.Equal(t, "#000000", cfg.ClearColor)
	assert.Equal(t, "portal-normalized2.glb", cfg.Model)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	err = cfg.ApplyEnv(envMap(map[string]string{
		"PORTAL_MODEL":          "other.glb",
		"PORTAL_EFFECTS":        "false",
		"PORTAL_POLL_INTERVAL":  "250ms",
		"PORTAL_FIREFLY_SIZE":   "42",
		"PORTAL_FIREFLY_COUNT":  "7",
		"PORTAL_CONTROL_ADDR":   "127.0.0.1:9999",
		"PORTAL_PRELOADER_GATE": "0",
	}))
	require.NoError(t, err)
	assert.Equal(t, "other.glb", cfg.Model)
	assert.False(t, cfg.Effects)
	assert.False(t, cfg.PreloaderGate)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval.Std())
	assert.Equal(t, 42.0, cfg.FireflySize)
	assert.Equal(t, 7, cfg.FireflyCount)
	assert.Equal(t, "127.0.0.1:9999", cfg.ControlAddr)
}

func TestApplyEnvReportsEveryBadValue(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	err = cfg.ApplyEnv(envMap(map[string]string{
		"PORTAL_EFFECTS":       "maybe",
		"PORTAL_READY_TIMEOUT": "soon",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORTAL_EFFECTS")
	assert.Contains(t, err.Error(), "PORTAL_READY_TIMEOUT")
}

func TestValidate(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	cfg.GateNode = ""
	cfg.FireflySize = 501
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gate_node")
	assert.Contains(t, err.Error(), "firefly_size")

	cfg.PreloaderGate = false
	cfg.FireflySize = 500
	assert.NoError(t, cfg.Validate())
}
