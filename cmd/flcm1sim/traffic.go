package main

import (
	"log/slog"
	"time"

	"github.com/tuffrabit/tinygo-flcm1/pkg/canbus"
	"github.com/tuffrabit/tinygo-flcm1/pkg/hostconfig"
	"github.com/tuffrabit/tinygo-flcm1/pkg/timer"
)

type source struct {
	msg     canbus.Message
	counter bool
	every   *timer.IntervalTimer
}

// trafficController is a canbus.Controller that produces the configured
// messages on their periods. Transmitted messages are logged.
type trafficController struct {
	sources []*source
	pending []canbus.Message
	kbps    int
	logger  *slog.Logger
}

func newTrafficController(cfg []hostconfig.TrafficConfig, now timer.Clock, logger *slog.Logger) (*trafficController, error) {
	c := &trafficController{logger: logger.With("component", "traffic")}
	for _, t := range cfg {
		data, err := t.Payload()
		if err != nil {
			return nil, err
		}
		c.sources = append(c.sources, &source{
			msg:     canbus.NewMessage(t.ID, t.Extended, data),
			counter: t.Counter,
			every:   timer.NewWithClock(time.Duration(t.PeriodMs)*time.Millisecond, true, now),
		})
	}
	return c, nil
}

func (c *trafficController) Begin(kbps int) error {
	c.kbps = kbps
	c.pending = nil
	c.logger.Info("bus started", "kbps", kbps)
	return nil
}

// Received queues every message whose period passed since the last call.
func (c *trafficController) Received() bool {
	for _, s := range c.sources {
		for n := s.every.Intervals(); n > 0; n-- {
			c.pending = append(c.pending, s.msg)
			if s.counter && s.msg.Len > 0 {
				s.msg.Data[s.msg.Len-1]++
			}
		}
	}
	return len(c.pending) > 0
}

func (c *trafficController) Receive() (canbus.Message, error) {
	m := c.pending[0]
	c.pending = c.pending[1:]
	return m, nil
}

func (c *trafficController) Transmit(m canbus.Message) error {
	c.logger.Info("transmit", "msg", canbus.FormatMessage(m))
	return nil
}
