// Package configtypes holds small shared configuration value types used
// across the logger, metrics server, and top-level service config so that
// none of those packages needs to import the full config package.
package configtypes

// Log level constants
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Log format constants
const (
	LogFormatJSON    = "json"
	LogFormatText    = "text"
	LogFormatConsole = "console"
)

// RotationConfig controls lumberjack-based file rotation.
type RotationConfig struct {
	MaxSize    int  `yaml:"max_size"`    // megabytes
	MaxAge     int  `yaml:"max_age"`     // days
	MaxBackups int  `yaml:"max_backups"` // count
	Compress   bool `yaml:"compress"`
}

// ConsoleLogConfig controls console (stdout) log output.
type ConsoleLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
}

// FileLogConfig controls rotated-file log output.
type FileLogConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Path     string         `yaml:"path"`
	Level    string         `yaml:"level"`
	Format   string         `yaml:"format"`
	Rotation RotationConfig `yaml:"rotation"`
}

// LogConfig is the root logging configuration.
type LogConfig struct {
	Level   string           `yaml:"level"`
	Console ConsoleLogConfig `yaml:"console"`
	File    FileLogConfig    `yaml:"file"`
}

// MetricsConfig controls the Prometheus /metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Listen    string `yaml:"listen"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}
