//go:build !tinygo

// Command flcm1ctl reads and changes the settings of a filter device over
// its USB serial port.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/tuffrabit/tinygo-flcm1/pkg/hostconfig"
	"github.com/tuffrabit/tinygo-flcm1/pkg/protocol"
)

func main() {
	var (
		cfgPath string
		port    string
		baud    int
		verbose bool
	)
	flag.StringVar(&cfgPath, "config", "", "YAML configuration file.")
	flag.StringVar(&port, "port", "", "Serial port (default: probe every port).")
	flag.IntVar(&baud, "baud", 0, "Baud rate (default from config).")
	flag.BoolVar(&verbose, "v", false, "Debug logging.")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: flcm1ctl [flags] command [args]\n\nflags:\n")
		flag.PrintDefaults()
		usage(flag.CommandLine.Output())
	}
	flag.Parse()

	cfg := hostconfig.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = hostconfig.Load(cfgPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if port != "" {
		cfg.Serial.Port = port
	}
	if baud > 0 {
		cfg.Serial.Baud = baud
	}

	level, _ := hostconfig.ParseLevel(cfg.Logging.Level)
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	p, err := connect(cfg.Serial, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer p.Close()

	s := &session{c: protocol.NewClient(timeoutPort{p}), out: os.Stdout}
	if err := s.exec(flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
