package main

import (
	"fmt"
	"os"

	"github.com/danmuck/framelink/internal/config"
	"github.com/danmuck/framelink/internal/observability"
	"github.com/danmuck/framelink/internal/relay"
)

func main() {
	logger := observability.InitLogger("bridgectl")

	cfg := relay.DefaultServiceConfig()
	if len(os.Args) > 1 {
		loaded, err := config.LoadBridgeConfig(os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "bridgectl: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logger.Info().Msgf("bridgectl.start addr=%s origins=%d", cfg.ListenAddr, len(cfg.AllowedOrigins))
	svc := relay.NewServiceWithConfig(cfg)
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "bridgectl: %v\n", err)
		os.Exit(1)
	}
}
