package headless

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/devicelab-dev/imtest/pkg/core"
)

var (
	colorBackground = color.RGBA{0x1e, 0x1e, 0x1e, 0xff}
	colorWindow     = color.RGBA{0x2d, 0x2d, 0x30, 0xff}
	colorTitle      = color.RGBA{0x29, 0x4a, 0x7a, 0xff}
	colorItem       = color.RGBA{0x42, 0x96, 0xfa, 0xff}
)

// Capture renders the windows of req as flat boxes and encodes the area
// of req.Rect as PNG. Windows are drawn as of the last completed frame.
// It can be used as a core.ScreenCaptureFunc.
func (c *Context) Capture(req core.CaptureRequest) ([]byte, error) {
	area := req.Rect
	if area.IsEmpty() {
		area = core.Rect{Max: c.io.DisplaySize}
	}
	bounds := toImageRect(area)
	if bounds.Empty() {
		return nil, fmt.Errorf("headless: empty capture area %v", area)
	}
	img := image.NewRGBA(bounds)
	draw.Draw(img, bounds, image.NewUniform(colorBackground), image.Point{}, draw.Src)

	windows := req.Windows
	if len(windows) == 0 {
		windows = c.Windows()
	}
	for _, cw := range windows {
		w := c.windowsByID[cw.ID()]
		if w == nil || !w.wasActive {
			continue
		}
		fill(img, w.Rect(), colorWindow)
		if w.hasTitleBar() {
			fill(img, w.TitleBarRect(), colorTitle)
		}
		for _, r := range w.lastRects {
			fill(img, r, colorItem)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("headless: encode capture: %w", err)
	}
	return buf.Bytes(), nil
}

func fill(img *image.RGBA, r core.Rect, col color.Color) {
	rect := toImageRect(r).Intersect(img.Bounds())
	if rect.Empty() {
		return
	}
	draw.Draw(img, rect, image.NewUniform(col), image.Point{}, draw.Src)
}

func toImageRect(r core.Rect) image.Rectangle {
	return image.Rect(
		int(math.Floor(r.Min.X)), int(math.Floor(r.Min.Y)),
		int(math.Ceil(r.Max.X)), int(math.Ceil(r.Max.Y)),
	)
}
