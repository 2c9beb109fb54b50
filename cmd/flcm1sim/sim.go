package main

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	drvtouch "tinygo.org/x/drivers/touch"
	"tinygo.org/x/tinyfs"

	"github.com/tuffrabit/tinygo-flcm1/pkg/app"
	"github.com/tuffrabit/tinygo-flcm1/pkg/canbus"
	"github.com/tuffrabit/tinygo-flcm1/pkg/config"
	"github.com/tuffrabit/tinygo-flcm1/pkg/display"
	"github.com/tuffrabit/tinygo-flcm1/pkg/hostconfig"
	"github.com/tuffrabit/tinygo-flcm1/pkg/menu"
	"github.com/tuffrabit/tinygo-flcm1/pkg/protocol"
	"github.com/tuffrabit/tinygo-flcm1/pkg/screen"
	"github.com/tuffrabit/tinygo-flcm1/pkg/settings"
	"github.com/tuffrabit/tinygo-flcm1/pkg/storage"
	"github.com/tuffrabit/tinygo-flcm1/pkg/timer"
	"github.com/tuffrabit/tinygo-flcm1/pkg/touch"
)

// stepPeriod is the control loop rate.
const stepPeriod = 5 * time.Millisecond

// simPanel is a touch.Panel fed by the mouse. Positions are turned back
// into raw samples so they go through the same calibration as the device.
type simPanel struct {
	cal  touch.Calibration
	down bool
	raw  drvtouch.Point
}

func unscale(v, lo, hi, size int) int {
	if size < 2 {
		return lo
	}
	return lo + (v*(hi-lo)+size-2)/(size-1)
}

func (p *simPanel) press(x, y int) {
	p.down = true
	p.raw = drvtouch.Point{
		X: unscale(x, p.cal.XMin, p.cal.XMax, p.cal.Width),
		Y: unscale(y, p.cal.YMin, p.cal.YMax, p.cal.Height),
		Z: 1,
	}
}

func (p *simPanel) release() { p.down = false }

func (p *simPanel) Touched() bool { return p.down }

func (p *simPanel) ReadTouchPoint() drvtouch.Point {
	if !p.down {
		return drvtouch.Point{}
	}
	return p.raw
}

// simKeys collects key presses until the loop takes them.
type simKeys struct {
	mask uint16
}

func (k *simKeys) press(key menu.Key) { k.mask |= uint16(key) }

func (k *simKeys) Pressed() uint16 {
	m := k.mask
	k.mask = 0
	return m
}

// simulator runs the device loop against an in-memory flash, a pixel
// buffer and synthetic traffic. Every field is guarded by mu.
type simulator struct {
	mu     sync.Mutex
	buf    *display.Buffer
	panel  *simPanel
	keys   *simKeys
	loop   *app.Loop
	engine *menu.Engine
	mgr    *storage.Manager
	logger *slog.Logger
}

func newSimulator(cfg *hostconfig.Config, now timer.Clock, logger *slog.Logger) (*simulator, error) {
	mgr, err := storage.New(tinyfs.NewMemoryDevice(256, 4096, 256), true, logger)
	if err != nil {
		return nil, fmt.Errorf("flash: %w", err)
	}
	reg := settings.New(mgr, logger)
	if cfg.Simulator.Settings != "" {
		s, err := hostconfig.LoadSettings(cfg.Simulator.Settings)
		if err != nil {
			mgr.Close()
			return nil, err
		}
		if err := mgr.SaveSlot(config.TempSlot, &s); err != nil {
			mgr.Close()
			return nil, err
		}
	}

	ctrl, err := newTrafficController(cfg.Simulator.Traffic, now, logger)
	if err != nil {
		mgr.Close()
		return nil, err
	}

	sim := &simulator{
		buf:    display.NewBuffer(screen.Width, screen.Height),
		panel:  &simPanel{cal: touch.DefaultCalibration},
		keys:   &simKeys{},
		mgr:    mgr,
		logger: logger.With("component", "sim"),
	}
	sim.engine = menu.New(reg, display.NewTFT(sim.buf), logger)
	// Notices block the loop like on the device, but the window keeps
	// drawing meanwhile.
	sim.engine.Sleep = func(d time.Duration) {
		sim.mu.Unlock()
		time.Sleep(d)
		sim.mu.Lock()
	}

	sim.loop = app.New(app.Config{
		Registry: reg,
		Engine:   sim.engine,
		Bus:      canbus.NewBus(ctrl, logger),
		Handler:  protocol.NewHandler(reg, mgr, logger),
		Touch:    touch.NewReaderWithClock(sim.panel, touch.DefaultCalibration, now),
		Keys:     sim.keys,
		Voltage:  func() string { return "12.0V" },
		Clock:    now,
		Logger:   logger,
	})

	sim.mu.Lock()
	defer sim.mu.Unlock()
	if err := sim.loop.Boot(); err != nil {
		sim.logger.Warn("boot", "err", err)
	}
	return sim, nil
}

// step runs one loop pass.
func (s *simulator) step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loop.Step(); err != nil {
		s.logger.Debug("step", "err", err)
	}
}

// run steps the loop until ctx ends.
func (s *simulator) run(ctx context.Context) {
	tick := time.NewTicker(stepPeriod)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			s.step()
		}
	}
}

func (s *simulator) pointer(x, y int, down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if down {
		s.panel.press(x, y)
	} else {
		s.panel.release()
	}
}

func (s *simulator) key(k menu.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys.press(k)
}

// snapshot copies the screen into dst.
func (s *simulator) snapshot(dst *image.RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.CopyRGBA(dst)
}

func (s *simulator) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mgr.Close()
}
