package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("Server.Address: want=%q got=%q", ":8080", cfg.Server.Address)
	}
	if cfg.Schedule.RenewalCron != "0 5 0 * * *" {
		t.Fatalf("RenewalCron: got=%q", cfg.Schedule.RenewalCron)
	}
	if cfg.Schedule.RenewalTaskTimeout != 2*time.Minute {
		t.Fatalf("RenewalTaskTimeout: want=2m got=%v", cfg.Schedule.RenewalTaskTimeout)
	}
	if cfg.JWT.Expiration != time.Hour {
		t.Fatalf("JWT.Expiration: want=1h got=%v", cfg.JWT.Expiration)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SCHEDULE_TIMEZONE", "Europe/Madrid")
	t.Setenv("SCHEDULE_RENEWAL_CONCURRENCY", "9")
	t.Setenv("ADVISOR_TIMEOUT", "5s")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.JWT.Secret != "s3cret" {
		t.Fatalf("JWT.Secret: want=%q got=%q", "s3cret", cfg.JWT.Secret)
	}
	if cfg.Schedule.RenewalConcurrency != 9 {
		t.Fatalf("RenewalConcurrency: want=9 got=%d", cfg.Schedule.RenewalConcurrency)
	}
	if cfg.Advisor.Timeout != 5*time.Second {
		t.Fatalf("Advisor.Timeout: want=5s got=%v", cfg.Advisor.Timeout)
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Fatalf("Redis.Addr: got=%q", cfg.Redis.Addr)
	}
	loc, err := cfg.Schedule.Location()
	if err != nil || loc.String() != "Europe/Madrid" {
		t.Fatalf("Location: got=%v err=%v", loc, err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "database:\n  name: from_file\nschedule:\n  renewal_cron: \"0 30 1 * * *\"\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Database.Name != "from_file" || cfg.Schedule.RenewalCron != "0 30 1 * * *" {
		t.Fatalf("file values not applied: %+v %+v", cfg.Database, cfg.Schedule)
	}
}

func TestLoadConfigRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("SCHEDULE_TIMEZONE", "Mars/Olympus")
	if _, err := LoadConfig(t.TempDir()); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}
