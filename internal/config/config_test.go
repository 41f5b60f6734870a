package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TABLE_NAME", "metrics-table")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.TableName != "metrics-table" {
		t.Errorf("expected table name 'metrics-table', got %s", cfg.TableName)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.LogLevel)
	}
	if cfg.SkipSchemaValidation {
		t.Error("expected schema validation to be enabled by default")
	}
	if cfg.HandlerMode != "aggregate" {
		t.Errorf("expected default handler mode 'aggregate', got %s", cfg.HandlerMode)
	}
}

func TestLoad_MissingTableName(t *testing.T) {
	t.Setenv("TABLE_NAME", "")

	if _, err := Load(); err == nil {
		t.Error("expected error for missing TABLE_NAME, got nil")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TABLE_NAME", "metrics-table")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SKIP_SCHEMA_VALIDATION", "true")
	t.Setenv("HANDLER_MODE", "proxy")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.LogLevel)
	}
	if !cfg.SkipSchemaValidation {
		t.Error("expected schema validation to be skipped")
	}
	if cfg.HandlerMode != "proxy" {
		t.Errorf("expected handler mode 'proxy', got %s", cfg.HandlerMode)
	}
}
