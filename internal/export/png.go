/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"kastom/internal/storage"
)

// PNGOptions controls the raster layout snapshot.
type PNGOptions struct {
	IncludeGrid bool
	Width       int // output width in pixels; defaults to 1600
	Height      int // output height in pixels; defaults to 1000
}

// ExportLayoutPNG writes a raster snapshot of the dashboard layout to
// outPath. Relative paths land under the dashboard's exports folder.
func ExportLayoutPNG(dh *storage.DashboardHandle, outPath string, opt PNGOptions) error {
	if dh == nil {
		return fmt.Errorf("dashboard handle is nil")
	}
	pixW := opt.Width
	pixH := opt.Height
	if pixW <= 0 {
		pixW = 1600
	}
	if pixH <= 0 {
		pixH = 1000
	}

	widgets := paintOrder(dh.Dashboard.Widgets)
	bounds := contentBounds(widgets)
	scale, offX, offY := fitTransform(bounds, float64(pixW), float64(pixH))

	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{250, 250, 250, 255}}, image.Point{}, draw.Src)

	if opt.IncludeGrid {
		drawGridPNG(img, scale, offX, offY)
	}

	frame := color.RGBA{40, 40, 40, 255}
	header := color.RGBA{235, 235, 235, 255}
	for _, w := range widgets {
		x := int(math.Round(offX + (w.Position.X-bounds.minX)*scale))
		y := int(math.Round(offY + (w.Position.Y-bounds.minY)*scale))
		wd := int(math.Round(w.Size.Width * scale))
		ht := int(math.Round(w.Size.Height * scale))
		if wd < 2 || ht < 2 {
			continue
		}

		if r, g, b, a, ok := ParseCSSColor(w.Appearance.BackgroundColor); ok && a > 0 {
			fillRect(img, x, y, x+wd-1, y+ht-1, color.RGBA{uint8(r), uint8(g), uint8(b), uint8(a)})
		}
		hh := 18
		if hh > ht {
			hh = ht
		}
		fillRect(img, x, y, x+wd-1, y+hh-1, header)
		strokeRect(img, x, y, x+wd-1, y+ht-1, frame)
		drawLabel(img, x+4, y+13, truncate(w.Title, wd/7), color.RGBA{0, 0, 0, 255})
	}

	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(dh.Root, "exports", outPath)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return nil
}

func drawGridPNG(img *image.RGBA, scale, offX, offY float64) {
	step := 20 * scale
	if step < 4 {
		return
	}
	gc := color.RGBA{228, 228, 228, 255}
	b := img.Bounds()
	for x := offX; x < float64(b.Max.X); x += step {
		xi := int(math.Round(x))
		for y := b.Min.Y; y < b.Max.Y; y++ {
			img.SetRGBA(xi, y, gc)
		}
	}
	for y := offY; y < float64(b.Max.Y); y += step {
		yi := int(math.Round(y))
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetRGBA(x, yi, gc)
		}
	}
}

// drawLabel renders a single line of text with the fixed 7x13 face.
func drawLabel(img *image.RGBA, x, y int, s string, col color.RGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}
