package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/stakeforge/nftstake/internal/api"
	"github.com/stakeforge/nftstake/internal/app"
	"github.com/stakeforge/nftstake/internal/config"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	preset := flag.String("preset", "", "preset: mainnet|devnet|replay")
	flag.Parse()

	cfg, err := config.LoadFile(*cfgPath)
	if err != nil {
		log.Printf("warning: config file: %v, using defaults", err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	if err := config.ApplyPreset(&cfg, *preset); err != nil {
		log.Fatalf("invalid -preset: %v", err)
	}

	log.Printf(
		"stakingd starting (preset=%s symbol=%s start=%s month=%s lock=%s daily=%s)",
		strings.TrimSpace(*preset),
		cfg.Token.Symbol,
		cfg.Ledger.Start.Format("2006-01-02"),
		cfg.Ledger.MonthLength,
		cfg.Ledger.LockPeriod,
		cfg.Allowance.Daily,
	)

	a, err := app.New(cfg, nil)
	if err != nil {
		log.Fatalf("app: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer = api.NewServer(cfg.API.Addr, a, a.Registry(), a.Rewards(), a.Journal(), a, a.Portfolio(), a.Pools())
		apiServer.Mount("GET /metrics", a.MetricsHandler())
		if err := apiServer.Start(ctx); err != nil {
			log.Printf("warning: api server failed to start: %v", err)
		}
	}

	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	if err := a.Run(ctx); err != nil && err != context.Canceled {
		log.Printf("run error: %v", err)
	}

	if apiServer != nil {
		_ = apiServer.Shutdown(context.Background())
	}
	a.Shutdown(context.Background())
}
