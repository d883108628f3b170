package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"maqamlab/internal/app"
	"maqamlab/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configFile := flag.String("config", "", "path to a config.yaml (default <data dir>/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("starting app: %w", err)
	}
	defer a.Close()

	return a.Run(ctx)
}
