// Package config loads the runtime settings of the portal scene.
//
// Settings are layered: embedded defaults, an optional JSON file, then
// PORTAL_* environment variables. Command-line flags are applied by main.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

//go:embed defaults.json
var defaultsJSON []byte

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// Poll intervals of the two scene variants.
	EffectsPollInterval = 3 * time.Second
	SimplePollInterval  = 6 * time.Second
)

// Duration is a time.Duration that decodes from "3s" style strings or
// from a number of milliseconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*d = 0
	case float64:
		*d = Duration(time.Duration(t) * time.Millisecond)
	case string:
		if t == "" {
			*d = 0
			return nil
		}
		parsed, err := time.ParseDuration(t)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", t, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Title      string `json:"title"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Fullscreen bool   `json:"fullscreen"`
	Debug      bool   `json:"debug"`
	LogLevel   string `json:"log_level"`

	AssetDir     string `json:"asset_dir"`
	Model        string `json:"model"`
	BakedTexture string `json:"baked_texture"`
	DecoderPath  string `json:"decoder_path"`
	ShaderDir    string `json:"shader_dir"`

	Effects       bool     `json:"effects"`
	PreloaderGate bool     `json:"preloader_gate"`
	GateNode      string   `json:"gate_node"`
	PollInterval  Duration `json:"poll_interval"`
	ReadyTimeout  Duration `json:"ready_timeout"`
	FetchTimeout  Duration `json:"fetch_timeout"`

	ClearColor       string  `json:"clear_color"`
	PortalColorStart string  `json:"portal_color_start"`
	PortalColorEnd   string  `json:"portal_color_end"`
	FireflyCount     int     `json:"firefly_count"`
	FireflySize      float64 `json:"firefly_size"`
	MaxPixelRatio    float64 `json:"max_pixel_ratio"`

	PanelCollapsed bool   `json:"panel_collapsed"`
	ControlAddr    string `json:"control_addr"`
}

func embedded() (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(defaultsJSON, cfg); err != nil {
		return nil, fmt.Errorf("decode embedded defaults: %w", err)
	}
	return cfg, nil
}

// Default returns the embedded defaults.
func Default() (*Config, error) {
	cfg, err := embedded()
	if err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

// Load builds a Config from the embedded defaults, the JSON file at path
// (skipped when empty) and the process environment. Derived values are
// filled only after every layer, so they follow the final settings.
func Load(path string) (*Config, error) {
	cfg, err := embedded()
	if err != nil {
		return nil, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize fills values whose default depends on other settings.
func (c *Config) normalize() {
	if c.PollInterval == 0 {
		if c.Effects {
			c.PollInterval = Duration(EffectsPollInterval)
		} else {
			c.PollInterval = Duration(SimplePollInterval)
		}
	}
	if c.MaxPixelRatio <= 0 {
		c.MaxPixelRatio = 2
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Model == "" {
		errs = append(errs, errors.New("model must be set"))
	}
	if c.BakedTexture == "" {
		errs = append(errs, errors.New("baked_texture must be set"))
	}
	if c.PreloaderGate && c.GateNode == "" {
		errs = append(errs, errors.New("gate_node must be set when preloader_gate is enabled"))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("invalid window size %dx%d", c.Width, c.Height))
	}
	if c.FireflyCount < 0 {
		errs = append(errs, fmt.Errorf("firefly_count must not be negative, got %d", c.FireflyCount))
	}
	if c.FireflySize < 0 || c.FireflySize > 500 {
		errs = append(errs, fmt.Errorf("firefly_size must be within 0..500, got %g", c.FireflySize))
	}
	if c.ReadyTimeout < 0 || c.FetchTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ApplyEnv overlays PORTAL_* variables using lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	duration := func(key string, dst *Duration) {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = Duration(d)
		}
	}

	str("PORTAL_TITLE", &c.Title)
	integer("PORTAL_WIDTH", &c.Width)
	integer("PORTAL_HEIGHT", &c.Height)
	boolean("PORTAL_FULLSCREEN", &c.Fullscreen)
	boolean("PORTAL_DEBUG", &c.Debug)
	str("PORTAL_LOG_LEVEL", &c.LogLevel)
	str("PORTAL_ASSET_DIR", &c.AssetDir)
	str("PORTAL_MODEL", &c.Model)
	str("PORTAL_BAKED_TEXTURE", &c.BakedTexture)
	str("PORTAL_DECODER_PATH", &c.DecoderPath)
	str("PORTAL_SHADER_DIR", &c.ShaderDir)
	boolean("PORTAL_EFFECTS", &c.Effects)
	boolean("PORTAL_PRELOADER_GATE", &c.PreloaderGate)
	str("PORTAL_GATE_NODE", &c.GateNode)
	duration("PORTAL_POLL_INTERVAL", &c.PollInterval)
	duration("PORTAL_READY_TIMEOUT", &c.ReadyTimeout)
	duration("PORTAL_FETCH_TIMEOUT", &c.FetchTimeout)
	str("PORTAL_CLEAR_COLOR", &c.ClearColor)
	str("PORTAL_PORTAL_COLOR_START", &c.PortalColorStart)
	str("PORTAL_PORTAL_COLOR_END", &c.PortalColorEnd)
	integer("PORTAL_FIREFLY_COUNT", &c.FireflyCount)
	float("PORTAL_FIREFLY_SIZE", &c.FireflySize)
	float("PORTAL_MAX_PIXEL_RATIO", &c.MaxPixelRatio)
	boolean("PORTAL_PANEL_COLLAPSED", &c.PanelCollapsed)
	str("PORTAL_CONTROL_ADDR", &c.ControlAddr)

	if len(errs) > 0 {
		return fmt.Errorf("environment: %w", errors.Join(errs...))
	}
	return nil
}
