package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/framelink/internal/relay"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadBridgeConfigDefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
addr = "127.0.0.1:9300"
allowed_origins = ["http://app.example", " ", "http://staging.example"]
frame_rate = 50.0
idle_timeout = "90s"
	`)

	cfg, err := LoadBridgeConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9300" {
		t.Fatalf("unexpected addr: %q", cfg.ListenAddr)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "http://app.example" || cfg.AllowedOrigins[1] != "http://staging.example" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.FrameRate != 50.0 {
		t.Fatalf("unexpected frame rate: %v", cfg.FrameRate)
	}
	if cfg.FrameBurst != relay.DefaultServiceConfig().FrameBurst {
		t.Fatalf("frame burst should keep its default: %d", cfg.FrameBurst)
	}
	if cfg.IdleTimeout != 90*time.Second {
		t.Fatalf("unexpected idle timeout: %v", cfg.IdleTimeout)
	}
}

func TestLoadBridgeConfigEmptyFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := LoadBridgeConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	def := relay.DefaultServiceConfig()
	if cfg.ListenAddr != def.ListenAddr || cfg.FrameRate != def.FrameRate || cfg.IdleTimeout != def.IdleTimeout {
		t.Fatalf("defaults not kept: %+v", cfg)
	}
}

func TestLoadBridgeConfigRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `idle_timeout = "soon"`)
	if _, err := LoadBridgeConfig(path); err == nil {
		t.Fatalf("expected duration parse error")
	}
}

func TestLoadBridgeConfigRejectsInvalidSettings(t *testing.T) {
	path := writeConfig(t, `frame_rate = -2.0`)
	_, err := LoadBridgeConfig(path)
	if !errors.Is(err, relay.ErrInvalidServiceConfig) {
		t.Fatalf("expected ErrInvalidServiceConfig, got %v", err)
	}
}

func TestLoadBridgeConfigMissingFile(t *testing.T) {
	if _, err := LoadBridgeConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestTemplateRoundTripsThroughLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.toml")
	if err := WriteTemplate(path, "bridge", false); err != nil {
		t.Fatalf("write template: %v", err)
	}

	cfg, err := LoadBridgeConfig(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	def := relay.DefaultServiceConfig()
	if cfg.ListenAddr != def.ListenAddr {
		t.Fatalf("template addr %q != default %q", cfg.ListenAddr, def.ListenAddr)
	}
	if cfg.FrameRate != def.FrameRate || cfg.FrameBurst != def.FrameBurst {
		t.Fatalf("template limits %v/%d != defaults %v/%d", cfg.FrameRate, cfg.FrameBurst, def.FrameRate, def.FrameBurst)
	}
	if cfg.IdleTimeout != def.IdleTimeout {
		t.Fatalf("template idle timeout %v != default %v", cfg.IdleTimeout, def.IdleTimeout)
	}
}

func TestWriteTemplateRefusesExistingFile(t *testing.T) {
	path := writeConfig(t, "addr = \":1\"\n")
	if err := WriteTemplate(path, "bridge", false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if err := WriteTemplate(path, "bridge", true); err != nil {
		t.Fatalf("forced overwrite: %v", err)
	}
	if _, err := LoadBridgeConfig(path); err != nil {
		t.Fatalf("load after overwrite: %v", err)
	}
}

func TestTemplateUnknownKind(t *testing.T) {
	if _, err := Template("ghost"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}
