// Package config loads the service configuration from process environment
// variables. Configuration is resolved once at startup; a missing required
// value is a fatal startup error, never a per-request one.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the environment configuration for the Lambda function.
type Config struct {
	// TableName is the DynamoDB table holding event records.
	TableName string `env:"TABLE_NAME,required,notEmpty"`

	// AWSRegion overrides the SDK's default region resolution when set.
	AWSRegion string `env:"AWS_REGION"`

	// LogLevel is the minimum slog level: debug, info, warn or error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// SkipSchemaValidation disables the startup DescribeTable schema check.
	SkipSchemaValidation bool `env:"SKIP_SCHEMA_VALIDATION" envDefault:"false"`

	// HandlerMode selects the Lambda payload shape: "aggregate" for the
	// mapped integration that delivers {application, start_date, end_date}
	// directly, or "proxy" for API Gateway proxy events.
	HandlerMode string `env:"HANDLER_MODE" envDefault:"aggregate"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}
