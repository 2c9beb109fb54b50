//go:build !tinygo

package main

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/tuffrabit/tinygo-flcm1/pkg/menu"
	"github.com/tuffrabit/tinygo-flcm1/pkg/screen"
)

var keyMap = []struct {
	key    ebiten.Key
	button menu.Key
}{
	{ebiten.KeyEscape, menu.KeyCancel},
	{ebiten.KeyBackspace, menu.KeyCancel},
	{ebiten.KeyEnter, menu.KeyEnter},
	{ebiten.KeyArrowUp, menu.KeyUp},
	{ebiten.KeyArrowDown, menu.KeyDown},
	{ebiten.KeyArrowLeft, menu.KeyLeft},
	{ebiten.KeyArrowRight, menu.KeyRight},
}

// window shows the simulator screen. The mouse is the touch panel and the
// keyboard the front panel buttons.
type window struct {
	sim   *simulator
	img   *image.RGBA
	fbImg *ebiten.Image
	down  bool
}

func runWindow(sim *simulator, scale int) error {
	w := &window{sim: sim}
	ebiten.SetWindowTitle("FLCM1 simulator")
	ebiten.SetWindowSize(screen.Width*scale, screen.Height*scale)
	ebiten.SetTPS(60)
	return ebiten.RunGame(w)
}

func (w *window) Update() error {
	pressed := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	if pressed {
		x, y := ebiten.CursorPosition()
		w.sim.pointer(x, y, true)
	} else if w.down {
		w.sim.pointer(0, 0, false)
	}
	w.down = pressed

	for _, k := range keyMap {
		if inpututil.IsKeyJustPressed(k.key) {
			w.sim.key(k.button)
		}
	}
	return nil
}

func (w *window) Draw(dst *ebiten.Image) {
	if w.img == nil {
		w.img = image.NewRGBA(image.Rect(0, 0, screen.Width, screen.Height))
		w.fbImg = ebiten.NewImage(screen.Width, screen.Height)
	}
	w.sim.snapshot(w.img)
	w.fbImg.WritePixels(w.img.Pix)
	dst.DrawImage(w.fbImg, nil)
}

func (w *window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screen.Width, screen.Height
}
