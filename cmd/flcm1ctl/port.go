//go:build !tinygo

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.bug.st/serial"

	"github.com/tuffrabit/tinygo-flcm1/pkg/hostconfig"
	"github.com/tuffrabit/tinygo-flcm1/pkg/protocol"
)

// discoverTimeout is the read timeout used while probing ports.
const discoverTimeout = 300 * time.Millisecond

// timeoutPort turns the silent zero-byte read of an expired read timeout
// into protocol.ErrTimeout.
type timeoutPort struct {
	serial.Port
}

func (p timeoutPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if n == 0 && err == nil {
		return 0, protocol.ErrTimeout
	}
	return n, err
}

func openPort(name string, baud int, timeout time.Duration) (serial.Port, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", name, err)
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set serial read timeout: %w", err)
	}
	return port, nil
}

// connect opens the configured port, or the first port that answers
// CmdDiscover when none is configured.
func connect(cfg hostconfig.SerialConfig, logger *slog.Logger) (serial.Port, error) {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if cfg.Port != "" {
		return openPort(cfg.Port, cfg.Baud, timeout)
	}

	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	for _, name := range names {
		port, err := openPort(name, cfg.Baud, discoverTimeout)
		if err != nil {
			logger.Debug("skipping port", "port", name, "err", err)
			continue
		}
		ok, err := protocol.NewClient(timeoutPort{port}).Discover()
		if err != nil || !ok {
			logger.Debug("no device on port", "port", name, "err", err)
			_ = port.Close()
			continue
		}
		if err := port.SetReadTimeout(timeout); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("set serial read timeout: %w", err)
		}
		logger.Info("device found", "port", name)
		return port, nil
	}
	return nil, errors.New("no device found; set serial.port or -port")
}
