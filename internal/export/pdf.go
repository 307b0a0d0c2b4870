/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a dashboard's layout to printable and shareable
// artifacts. Widget HTML is not rendered; the exporters draw the frame
// geometry, titles and stacking so a layout can be reviewed offline.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jung-kurt/gofpdf"

	"kastom/internal/domain"
	"kastom/internal/storage"
)

// sheetMargin is the blank border around the layout, in points.
const sheetMargin = 36.0

// PDFOptions controls the layout sheet.
// Units are points; the canvas bounding box is scaled to fit the sheet.
type PDFOptions struct {
	IncludeGrid bool    // draw the snap grid behind the frames
	SheetWidth  float64 // defaults to A4 landscape
	SheetHeight float64
}

// ExportLayoutPDF writes a single-page layout sheet for the dashboard to
// outPath. Relative paths land under the dashboard's exports folder.
func ExportLayoutPDF(dh *storage.DashboardHandle, outPath string, opt PDFOptions) error {
	if dh == nil {
		return fmt.Errorf("dashboard handle is nil")
	}
	sheetW := opt.SheetWidth
	sheetH := opt.SheetHeight
	if sheetW <= 0 || sheetH <= 0 {
		// A4 landscape
		sheetW, sheetH = 842, 595
	}

	widgets := paintOrder(dh.Dashboard.Widgets)
	bounds := contentBounds(widgets)
	scale, offX, offY := fitTransform(bounds, sheetW, sheetH)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: sheetW, Ht: sheetH},
		OrientationStr: "",
	})
	title := dh.Dashboard.Name
	if title == "" {
		title = "Dashboard"
	}
	pdf.SetTitle(fmt.Sprintf("%s — Layout", title), true)
	pdf.SetAuthor("Kastom", false)
	pdf.AddPageFormat("", gofpdf.SizeType{Wd: sheetW, Ht: sheetH})

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(sheetMargin, sheetMargin-12, title)

	if opt.IncludeGrid {
		drawGrid(pdf, scale, offX, offY, sheetW, sheetH)
	}

	pdf.SetFont("Helvetica", "", 9)
	for i, w := range widgets {
		x := offX + (w.Position.X-bounds.minX)*scale
		y := offY + (w.Position.Y-bounds.minY)*scale
		wd := w.Size.Width * scale
		ht := w.Size.Height * scale

		if r, g, b, a, ok := ParseCSSColor(w.Appearance.BackgroundColor); ok && a > 0 {
			pdf.SetFillColor(r, g, b)
			pdf.Rect(x, y, wd, ht, "F")
		}
		pdf.SetDrawColor(40, 40, 40)
		pdf.SetLineWidth(0.8)
		pdf.Rect(x, y, wd, ht, "D")

		// Title header band
		pdf.SetFillColor(235, 235, 235)
		pdf.Rect(x, y, wd, 14, "FD")
		pdf.SetTextColor(0, 0, 0)
		pdf.Text(x+4, y+10, truncate(w.Title, 48))

		// Stack badge, topmost frame gets the highest number
		pdf.SetTextColor(120, 120, 120)
		pdf.Text(x+4, y+ht-4, fmt.Sprintf("#%d", i+1))
		pdf.SetTextColor(0, 0, 0)
	}

	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(dh.Root, "exports", outPath)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func drawGrid(pdf *gofpdf.Fpdf, scale, offX, offY, sheetW, sheetH float64) {
	step := float64(domain.GridSize) * scale
	if step < 2 {
		return
	}
	pdf.SetDrawColor(225, 225, 225)
	pdf.SetLineWidth(0.2)
	for x := offX; x <= sheetW-sheetMargin; x += step {
		pdf.Line(x, sheetMargin, x, sheetH-sheetMargin)
	}
	for y := offY; y <= sheetH-sheetMargin; y += step {
		pdf.Line(sheetMargin, y, sheetW-sheetMargin, y)
	}
}

// bbox is the world-coordinate bounding box of all widget frames.
type bbox struct {
	minX, minY, maxX, maxY float64
}

func (b bbox) width() float64  { return b.maxX - b.minX }
func (b bbox) height() float64 { return b.maxY - b.minY }

func contentBounds(ws []domain.Widget) bbox {
	if len(ws) == 0 {
		return bbox{0, 0, 1000, 700}
	}
	b := bbox{
		minX: ws[0].Position.X,
		minY: ws[0].Position.Y,
		maxX: ws[0].Position.X + ws[0].Size.Width,
		maxY: ws[0].Position.Y + ws[0].Size.Height,
	}
	for _, w := range ws[1:] {
		if w.Position.X < b.minX {
			b.minX = w.Position.X
		}
		if w.Position.Y < b.minY {
			b.minY = w.Position.Y
		}
		if x := w.Position.X + w.Size.Width; x > b.maxX {
			b.maxX = x
		}
		if y := w.Position.Y + w.Size.Height; y > b.maxY {
			b.maxY = y
		}
	}
	return b
}

// fitTransform maps the bounding box into the sheet interior, preserving
// aspect ratio and never scaling up past 1:1.
func fitTransform(b bbox, sheetW, sheetH float64) (scale, offX, offY float64) {
	availW := sheetW - 2*sheetMargin
	availH := sheetH - 2*sheetMargin
	scale = 1
	if b.width() > 0 && availW/b.width() < scale {
		scale = availW / b.width()
	}
	if b.height() > 0 && availH/b.height() < scale {
		scale = availH / b.height()
	}
	offX = sheetMargin + (availW-b.width()*scale)/2
	offY = sheetMargin + (availH-b.height()*scale)/2
	return scale, offX, offY
}

// paintOrder returns widgets sorted bottom to top.
func paintOrder(ws []domain.Widget) []domain.Widget {
	out := make([]domain.Widget, len(ws))
	copy(out, ws)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StackOrder < out[j].StackOrder })
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n < 2 {
		return ""
	}
	return s[:n-1] + "…"
}
