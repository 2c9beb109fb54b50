//go:build !tinygo

// Command flcm1sim runs the filter device UI in a desktop window with an
// in-memory flash and synthetic CAN traffic.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tuffrabit/tinygo-flcm1/pkg/hostconfig"
)

func main() {
	var (
		cfgPath  string
		settings string
		scale    int
	)
	flag.StringVar(&cfgPath, "config", "", "YAML configuration file.")
	flag.StringVar(&settings, "settings", "", "Settings YAML to boot with.")
	flag.IntVar(&scale, "scale", 0, "Window scale (default from config).")
	flag.Parse()

	cfg := hostconfig.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = hostconfig.Load(cfgPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if settings != "" {
		cfg.Simulator.Settings = settings
	}
	if scale > 0 {
		cfg.Simulator.Scale = scale
	}
	if err := hostconfig.Validate(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level, _ := hostconfig.ParseLevel(cfg.Logging.Level)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	sim, err := newSimulator(cfg, time.Now, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer sim.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sim.run(ctx)

	if err := runWindow(sim, cfg.Simulator.Scale); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
