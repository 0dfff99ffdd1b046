// Package config loads cortexd's runtime configuration: an optional YAML
// file layered with environment variable overrides and built-in defaults.
// The precedence (defaults, then YAML file if present, then env vars) and
// the strict-unmarshal-then-apply-defaults shape both follow the gateway
// config manager this package replaced.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/cortexmap/cortex/internal/common/configtypes"
	"github.com/cortexmap/cortex/internal/common/yamlutil"
)

// Config is cortexd's full runtime configuration.
type Config struct {
	SocketPath    string `yaml:"socket_path"`
	DataDir       string `yaml:"data_dir"`
	MaxNodes      int    `yaml:"max_nodes"`
	TimeoutMS     int    `yaml:"timeout_ms"`
	HTTPPort      int    `yaml:"http_port,omitempty"` // parsed only; cortexd serves no REST mirror
	ChromiumPath  string `yaml:"chromium_path,omitempty"`
	RespectRobots bool   `yaml:"respect_robots"`
	// DisableSSRFProtection lets the Fetcher dial loopback/private
	// addresses. Off by default; exists so acceptance tests can point
	// Cortex at a local fixture server, mirroring the teacher's own
	// per-environment SSRF opt-out for its bypass client.
	DisableSSRFProtection bool `yaml:"disable_ssrf_protection,omitempty"`
	// InsecureSkipVerify skips TLS certificate verification in the
	// Fetcher; see fetch.Config.InsecureSkipVerify. Off by default.
	InsecureSkipVerify bool                      `yaml:"insecure_skip_verify,omitempty"`
	Log                configtypes.LogConfig     `yaml:"log"`
	Metrics            configtypes.MetricsConfig `yaml:"metrics"`
}

// defaultConfig returns the built-in baseline, applied before the YAML
// file (if any) and before env var overrides.
func defaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		SocketPath:    "/tmp/cortex.sock",
		DataDir:       filepath.Join(home, ".cortex"),
		MaxNodes:      50_000,
		TimeoutMS:     30_000,
		RespectRobots: true,
		Log: configtypes.LogConfig{
			Level: configtypes.LogLevelInfo,
			Console: configtypes.ConsoleLogConfig{
				Enabled: true,
				Format:  configtypes.LogFormatConsole,
			},
		},
		Metrics: configtypes.MetricsConfig{
			Enabled:   false,
			Listen:    ":9090",
			Path:      "/metrics",
			Namespace: "cortex",
		},
	}
}

// Load builds the effective configuration: defaults, then an optional YAML
// file at configPath (skipped entirely if configPath is empty or the file
// does not exist), then environment variable overrides. logger is used only
// to report which layers were applied; it may be nil during early startup
// before a logger exists.
func Load(configPath string, logger *zap.Logger) (*Config, error) {
	cfg := defaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
			}
			if logger != nil {
				logger.Info("loaded config file", zap.String("path", configPath))
			}
		case os.IsNotExist(err):
			if logger != nil {
				logger.Info("config file not found, using defaults and env vars", zap.String("path", configPath))
			}
		default:
			return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SOCKET_PATH"); v != "" {
		cfg.SocketPath = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("MAX_NODES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxNodes = n
		}
	}
	if v := os.Getenv("TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutMS = n
		}
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.HTTPPort = n
		}
	}
	if v := os.Getenv("CHROMIUM_PATH"); v != "" {
		cfg.ChromiumPath = v
	}
	if v := os.Getenv("RESPECT_ROBOTS"); v != "" {
		cfg.RespectRobots = v != "false" && v != "0"
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("DISABLE_SSRF_PROTECTION"); v != "" {
		cfg.DisableSSRFProtection = v != "false" && v != "0"
	}
	if v := os.Getenv("INSECURE_SKIP_VERIFY"); v != "" {
		cfg.InsecureSkipVerify = v != "false" && v != "0"
	}
}

// normalize validates required fields and falls back where a configured
// value can't be used as-is. The socket path falls back to a user-local
// location when its directory can't be created (e.g. /tmp is unwritable
// in a sandboxed environment), rather than failing startup outright.
func (cfg *Config) normalize() error {
	if cfg.MaxNodes <= 0 {
		return fmt.Errorf("max_nodes must be positive, got %d", cfg.MaxNodes)
	}
	if cfg.TimeoutMS <= 0 {
		return fmt.Errorf("timeout_ms must be positive, got %d", cfg.TimeoutMS)
	}

	dir := filepath.Dir(cfg.SocketPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return fmt.Errorf("socket directory %s unusable and no home dir available: %w", dir, err)
		}
		fallback := filepath.Join(home, ".cortex", "cortex.sock")
		if err := os.MkdirAll(filepath.Dir(fallback), 0o755); err != nil {
			return fmt.Errorf("socket directory %s unusable and fallback %s also unusable: %w", dir, fallback, err)
		}
		cfg.SocketPath = fallback
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("data dir %s: %w", cfg.DataDir, err)
	}
	return nil
}
