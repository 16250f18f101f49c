package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/framelink/internal/relay"
)

// BridgeConfig mirrors the bridgectl config.toml keys.
type BridgeConfig struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
	FrameRate      float64  `toml:"frame_rate"`
	FrameBurst     int      `toml:"frame_burst"`
	IdleTimeout    string   `toml:"idle_timeout"`
}

// LoadBridgeConfig reads a bridgectl TOML file and overlays it onto the
// relay defaults. Keys absent from the file keep their default values.
func LoadBridgeConfig(path string) (relay.ServiceConfig, error) {
	cfg := relay.DefaultServiceConfig()

	var raw BridgeConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return relay.ServiceConfig{}, fmt.Errorf("load bridge config: %w", err)
	}

	if meta.IsDefined("addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("allowed_origins") {
		cfg.AllowedOrigins = normalizeOrigins(raw.AllowedOrigins)
	}
	if meta.IsDefined("frame_rate") {
		cfg.FrameRate = raw.FrameRate
	}
	if meta.IsDefined("frame_burst") {
		cfg.FrameBurst = raw.FrameBurst
	}
	if meta.IsDefined("idle_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.IdleTimeout))
		if err != nil {
			return relay.ServiceConfig{}, fmt.Errorf("parse idle_timeout: %w", err)
		}
		cfg.IdleTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return relay.ServiceConfig{}, err
	}
	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
