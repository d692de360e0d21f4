package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	PolicyDrop = "drop"
	PolicyFail = "fail"
)

type Config struct {
	Paths     PathsConfig
	Logger    LoggerConfig
	Pipeline  PipelineConfig
	Outputs   OutputsConfig
	Telemetry TelemetryConfig
}

type PathsConfig struct {
	DataDir string `envconfig:"DATA_DIR" default:"data"`
	OutDir  string `envconfig:"OUT_DIR" default:"outputs"`
}

type LoggerConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"console"`
}

type PipelineConfig struct {
	UnknownProductPolicy string `envconfig:"UNKNOWN_PRODUCT_POLICY" default:"drop"`
	RegressionEnabled    bool   `envconfig:"FORECAST_REGRESSION_ENABLED" default:"true"`
}

type OutputsConfig struct {
	ChartsEnabled bool `envconfig:"CHARTS_ENABLED" default:"true"`
	ReportEnabled bool `envconfig:"REPORT_ENABLED" default:"true"`
}

type TelemetryConfig struct {
	MetricsEnabled bool `envconfig:"METRICS_ENABLED" default:"false"`
	TracingEnabled bool `envconfig:"TRACING_ENABLED" default:"false"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.Paths.OutDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, strings.ToLower(c.Logger.Level)) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "console"}
	if !slices.Contains(validLogFormats, strings.ToLower(c.Logger.Format)) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	validPolicies := []string{PolicyDrop, PolicyFail}
	if !slices.Contains(validPolicies, c.Pipeline.UnknownProductPolicy) {
		return fmt.Errorf("invalid unknown product policy %q, must be one of: %s",
			c.Pipeline.UnknownProductPolicy, strings.Join(validPolicies, ", "))
	}

	return nil
}
