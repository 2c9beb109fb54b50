//go:build tinygo

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"machine"
	"time"

	"github.com/tuffrabit/tinygo-flcm1/pkg/app"
	"github.com/tuffrabit/tinygo-flcm1/pkg/canbus"
	"github.com/tuffrabit/tinygo-flcm1/pkg/config"
	"github.com/tuffrabit/tinygo-flcm1/pkg/display"
	"github.com/tuffrabit/tinygo-flcm1/pkg/menu"
	"github.com/tuffrabit/tinygo-flcm1/pkg/protocol"
	"github.com/tuffrabit/tinygo-flcm1/pkg/screen"
	"github.com/tuffrabit/tinygo-flcm1/pkg/settings"
	"github.com/tuffrabit/tinygo-flcm1/pkg/storage"
	"github.com/tuffrabit/tinygo-flcm1/pkg/touch"
	"github.com/tuffrabit/tinygo-flcm1/serial"

	"tinygo.org/x/drivers/ili9341"
	"tinygo.org/x/drivers/mcp2515"
	"tinygo.org/x/drivers/xpt2046"
)

// Pin map. The TFT and the CAN controller share SPI0; the touch controller
// is bit-banged.
const (
	spiSCK = machine.GPIO18
	spiSDO = machine.GPIO19
	spiSDI = machine.GPIO16

	tftCS  = machine.GPIO17
	tftDC  = machine.GPIO20
	tftRST = machine.GPIO21

	canCS = machine.GPIO9

	touchCLK  = machine.GPIO10
	touchDIN  = machine.GPIO11
	touchDOUT = machine.GPIO12
	touchCS   = machine.GPIO13
	touchIRQ  = machine.GPIO14

	auxTX = machine.GPIO4
	auxRX = machine.GPIO5

	// VSYS through the on-board 1:3 divider.
	supplyADC     = machine.ADC3
	supplyDivider = 3
)

// Front panel buttons in menu.Key bit order. Active low.
var keyPins = [...]machine.Pin{
	machine.GPIO2,  // Cancel
	machine.GPIO3,  // Enter
	machine.GPIO26, // Up
	machine.GPIO27, // Down
	machine.GPIO15, // Left
	machine.GPIO22, // Right
}

var outputPins = [config.ComparatorCount]machine.Pin{
	machine.GPIO6, machine.GPIO7, machine.GPIO8,
	machine.GPIO28, machine.GPIO24, machine.GPIO25,
}

var errExtendedTx = errors.New("mcp2515: extended transmit not supported")

// mcpController adapts the mcp2515 driver to canbus.Controller. The
// driver does not expose the acceptance registers, so filtering stays in
// software.
type mcpController struct {
	dev    *mcp2515.Device
	logger *slog.Logger
}

func mcpSpeed(kbps int) (byte, bool) {
	switch kbps {
	case 10:
		return mcp2515.CAN10kBps, true
	case 50:
		return mcp2515.CAN50kBps, true
	case 100:
		return mcp2515.CAN100kBps, true
	case 125:
		return mcp2515.CAN125kBps, true
	case 250:
		return mcp2515.CAN250kBps, true
	case 500:
		return mcp2515.CAN500kBps, true
	case 1000:
		return mcp2515.CAN1000kBps, true
	}
	return 0, false
}

func (c *mcpController) Begin(kbps int) error {
	speed, ok := mcpSpeed(kbps)
	if !ok {
		if kbps != 800 {
			return fmt.Errorf("mcp2515: unsupported rate %d kbps", kbps)
		}
		// No 800k timing for an 8 MHz crystal.
		c.logger.Warn("800 kbps not available, running at 666 kbps")
		speed = mcp2515.CAN666kBps
	}
	return c.dev.Begin(speed, mcp2515.Clock8MHz)
}

func (c *mcpController) Received() bool { return c.dev.Received() }

func (c *mcpController) Receive() (canbus.Message, error) {
	msg, err := c.dev.Rx()
	if err != nil {
		return canbus.Message{}, err
	}
	data := msg.Data
	if int(msg.Dlc) < len(data) {
		data = data[:msg.Dlc]
	}
	m := canbus.NewMessage(msg.ID, msg.Ext, data)
	m.RTR = msg.Rtr
	if m.RTR {
		m.Len = msg.Dlc
	}
	return m, nil
}

func (c *mcpController) Transmit(m canbus.Message) error {
	if m.Extended {
		return errExtendedTx
	}
	return c.dev.Tx(m.ID, m.Len, m.Payload())
}

type pinOutputs struct{}

func (pinOutputs) Set(n int, on bool) {
	if n >= 0 && n < len(outputPins) {
		outputPins[n].Set(on)
	}
}

func readKeys() uint16 {
	var mask uint16
	for i, p := range keyPins {
		if !p.Get() {
			mask |= 1 << i
		}
	}
	return mask
}

func main() {
	machine.DefaultUART.Configure(machine.UARTConfig{BaudRate: 115200})
	logger := slog.New(slog.NewTextHandler(machine.DefaultUART, &slog.HandlerOptions{Level: slog.LevelInfo}))

	machine.SPI0.Configure(machine.SPIConfig{
		Frequency: 16_000_000,
		SCK:       spiSCK,
		SDO:       spiSDO,
		SDI:       spiSDI,
		Mode:      0,
	})

	tft := ili9341.NewSPI(machine.SPI0, tftDC, tftCS, tftRST)
	tft.Configure(ili9341.Config{Width: screen.Width, Height: screen.Height})

	panel := xpt2046.New(touchCLK, touchCS, touchDIN, touchDOUT, touchIRQ)
	panel.Configure(&xpt2046.Config{Precision: 10})

	can := mcp2515.New(machine.SPI0, canCS)
	can.Configure()

	machine.UART1.Configure(machine.UARTConfig{BaudRate: 115200, TX: auxTX, RX: auxRX})

	for _, p := range keyPins {
		p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	}
	for _, p := range outputPins {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.Low()
	}

	machine.InitADC()
	supply := machine.ADC{Pin: supplyADC}
	supply.Configure(machine.ADCConfig{})

	mgr, err := storage.New(machine.Flash, false, logger)
	if err != nil {
		logger.Error("flash unavailable", "err", err)
		for {
			time.Sleep(time.Second)
		}
	}

	reg := settings.New(mgr, logger)
	engine := menu.New(reg, display.NewTFT(tft), logger)
	loop := app.New(app.Config{
		Registry: reg,
		Engine:   engine,
		Bus:      canbus.NewBus(&mcpController{dev: can, logger: logger}, logger),
		Handler:  protocol.NewHandler(reg, mgr, logger),
		Touch:    touch.NewReader(&panel, touch.DefaultCalibration),
		Keys:     app.NewKeypad(readKeys, time.Now),
		Remote:   serial.NewSerial(machine.Serial, logger),
		Aux:      machine.UART1,
		Outputs:  pinOutputs{},
		Voltage: func() string {
			mv := uint32(supply.Get()) * 3300 * supplyDivider / 65535
			return fmt.Sprintf("%d.%dV", mv/1000, mv%1000/100)
		},
		Logger: logger,
	})

	if err := loop.Boot(); err != nil {
		logger.Warn("boot", "err", err)
	}
	for {
		if err := loop.Step(); err != nil {
			logger.Debug("step", "err", err)
		}
	}
}
