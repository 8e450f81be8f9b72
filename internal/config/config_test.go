package config

import (
	"os"
	"testing"
)

func TestConfigLoad_Defaults(t *testing.T) {
	_ = os.Unsetenv("LIGHTBOX_BUILD_TARGET")
	_ = os.Unsetenv("LIGHTBOX_DB_DRIVER")
	_ = os.Unsetenv("LIGHTBOX_HTTP_PORT")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.BuildTarget != "local" || cfg.DBDriver != "sqlite" || cfg.HTTPPort != 8085 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.SQLitePath != "data/lightbox.db" {
		t.Fatalf("unexpected default sqlite path: %s", cfg.SQLitePath)
	}
}

func TestConfigLoad_SharedTargetSelectsPostgres(t *testing.T) {
	_ = os.Setenv("LIGHTBOX_BUILD_TARGET", "shared")
	defer func() { _ = os.Unsetenv("LIGHTBOX_BUILD_TARGET") }()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("shared target should select postgres, got %s", cfg.DBDriver)
	}
}

func TestConfigLoad_DriverOverride(t *testing.T) {
	_ = os.Setenv("LIGHTBOX_BUILD_TARGET", "shared")
	_ = os.Setenv("LIGHTBOX_DB_DRIVER", "sqlite")
	defer func() {
		_ = os.Unsetenv("LIGHTBOX_BUILD_TARGET")
		_ = os.Unsetenv("LIGHTBOX_DB_DRIVER")
	}()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("explicit driver override failed, got %s", cfg.DBDriver)
	}
}

func TestConfigLoad_RejectsUnknownTarget(t *testing.T) {
	_ = os.Setenv("LIGHTBOX_BUILD_TARGET", "mainframe")
	defer func() { _ = os.Unsetenv("LIGHTBOX_BUILD_TARGET") }()

	if _, err := New(); err == nil {
		t.Fatal("expected error for unknown build target")
	}
}

func TestConfigLoad_RejectsUnknownDriver(t *testing.T) {
	_ = os.Setenv("LIGHTBOX_DB_DRIVER", "oracle")
	defer func() { _ = os.Unsetenv("LIGHTBOX_DB_DRIVER") }()

	if _, err := New(); err == nil {
		t.Fatal("expected error for unknown db driver")
	}
}

func TestConfigLoad_PortOverride(t *testing.T) {
	_ = os.Setenv("LIGHTBOX_HTTP_PORT", "9090")
	defer func() { _ = os.Unsetenv("LIGHTBOX_HTTP_PORT") }()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.GetHTTPAddr() != ":9090" {
		t.Fatalf("port override failed, got %s", cfg.GetHTTPAddr())
	}
}
