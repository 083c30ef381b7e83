package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"factoryqc/internal/errs"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Andon.Threshold != 3 || cfg.Andon.Window != 10 || cfg.Andon.MaxEscalation != 3 {
		t.Fatalf("andon defaults = %+v", cfg.Andon)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.MaxOpenConns != 1 {
		t.Fatalf("database defaults = %+v", cfg.Database)
	}
	if cfg.Notify.NATS.Subject != "andon.alerts" {
		t.Fatalf("nats subject = %q", cfg.Notify.NATS.Subject)
	}
	if cfg.HTTP.ReadTimeout != 15*time.Second {
		t.Fatalf("read timeout = %v", cfg.HTTP.ReadTimeout)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "qc.yaml")
	content := []byte(`
app:
  name: plant-7
  timezone: Asia/Shanghai
andon:
  threshold: 4
database:
  dsn: ` + filepath.Join(dir, "qc.sqlite") + `
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("QC_ANDON_WINDOW", "20")

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.App.Name != "plant-7" || cfg.Andon.Threshold != 4 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Andon.Window != 20 {
		t.Fatalf("env override not applied: window=%d", cfg.Andon.Window)
	}
	if cfg.Location().String() != "Asia/Shanghai" {
		t.Fatalf("Location() = %s", cfg.Location())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero threshold", mutate: func(c *Config) { c.Andon.Threshold = 0 }},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "oracle" }},
		{name: "webhook without url", mutate: func(c *Config) { c.Notify.Webhook.Enabled = true }},
		{name: "bad timezone", mutate: func(c *Config) { c.App.Timezone = "Mars/Olympus" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatalf("Validate() error = nil")
			}
			if errs.KindOf(err) != errs.KindValidation {
				t.Fatalf("Validate() kind = %s", errs.KindOf(err))
			}
		})
	}

	if err := Validate(Defaults()); err != nil {
		t.Fatalf("Validate(defaults) error = %v", err)
	}
}
