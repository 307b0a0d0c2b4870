//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests validate the Fyne-based UI components. They are gated behind the
// "fyne" build tag so CI (which is headless) does not need Fyne or a display.
// To run locally:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"testing"

	"fyne.io/fyne/v2"

	cv "kastom/internal/canvas"
	"kastom/internal/domain"
	"kastom/internal/store"
)

func seededCanvas(t *testing.T) *DashboardCanvas {
	t.Helper()
	st := store.New()
	st.Load([]domain.Widget{
		{
			ID: "bottom", Title: "Bottom",
			Position: domain.Point{X: 100, Y: 100}, Size: domain.Size{Width: 320, Height: 320},
			StackOrder: 1, Appearance: domain.DefaultAppearance(),
		},
		{
			ID: "top", Title: "Top",
			Position: domain.Point{X: 200, Y: 200}, Size: domain.Size{Width: 320, Height: 320},
			StackOrder: 2, Appearance: domain.DefaultAppearance(),
		},
	})
	return NewDashboardCanvas(st)
}

func TestDashboardCanvas_Defaults(t *testing.T) {
	dc := seededCanvas(t)
	if dc.view.Zoom != 1 {
		t.Fatalf("expected default zoom 1, got %v", dc.view.Zoom)
	}
	sz := dc.PreferredSize()
	if sz.Width != 1000 || sz.Height != 700 {
		t.Fatalf("unexpected PreferredSize: %v", sz)
	}
}

func TestDashboardCanvas_HitTestTopmost(t *testing.T) {
	dc := seededCanvas(t)
	// Overlap region belongs to the higher stack order.
	w, ok := dc.hitTest(cv.Pt{X: 250, Y: 250})
	if !ok || w.ID != "top" {
		t.Fatalf("expected topmost hit, got %v %v", w.ID, ok)
	}
	w, ok = dc.hitTest(cv.Pt{X: 110, Y: 110})
	if !ok || w.ID != "bottom" {
		t.Fatalf("expected bottom hit, got %v %v", w.ID, ok)
	}
	if _, ok = dc.hitTest(cv.Pt{X: 5000, Y: 5000}); ok {
		t.Fatalf("expected miss on empty canvas")
	}
}

func TestDashboardCanvas_TapSelectsAndRaises(t *testing.T) {
	dc := seededCanvas(t)
	dc.Resize(fyne.NewSize(1000, 700))
	dc.Tapped(&fyne.PointEvent{Position: fyne.NewPos(110, 110)})
	if dc.SelectedID() != "bottom" {
		t.Fatalf("expected bottom selected, got %q", dc.SelectedID())
	}
	// Selection raises to the front, so the overlap now hits "bottom".
	w, ok := dc.hitTest(cv.Pt{X: 250, Y: 250})
	if !ok || w.ID != "bottom" {
		t.Fatalf("selection should raise to front, topmost is %q", w.ID)
	}
}

func TestDashboardCanvas_DragMovesWidget(t *testing.T) {
	dc := seededCanvas(t)
	dc.Resize(fyne.NewSize(1000, 700))
	before, _ := dc.st.Get("bottom")

	var gestures []string
	dc.OnGestureTarget = func(id string, active bool) {
		state := "end"
		if active {
			state = "start"
		}
		gestures = append(gestures, id+":"+state)
	}

	// Start inside the widget body, drag 40px right and down.
	dc.Dragged(&fyne.DragEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(150, 150)},
		Dragged:    fyne.Delta{DX: 0, DY: 0},
	})
	dc.Dragged(&fyne.DragEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(190, 190)},
		Dragged:    fyne.Delta{DX: 40, DY: 40},
	})
	dc.DragEnd()

	after, _ := dc.st.Get("bottom")
	if after.Position.X != before.Position.X+40 || after.Position.Y != before.Position.Y+40 {
		t.Fatalf("drag moved widget to %v, want +40/+40 from %v", after.Position, before.Position)
	}
	if len(gestures) != 2 || gestures[0] != "bottom:start" || gestures[1] != "bottom:end" {
		t.Fatalf("unexpected gesture notifications: %v", gestures)
	}
}

func TestDashboardCanvas_DragOnBackgroundPans(t *testing.T) {
	dc := seededCanvas(t)
	dc.Resize(fyne.NewSize(1000, 700))
	dc.Dragged(&fyne.DragEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(900, 600)},
		Dragged:    fyne.Delta{DX: 0, DY: 0},
	})
	dc.Dragged(&fyne.DragEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(950, 620)},
		Dragged:    fyne.Delta{DX: 50, DY: 20},
	})
	dc.DragEnd()
	if dc.view.Pan.X != 50 || dc.view.Pan.Y != 20 {
		t.Fatalf("pan = %v, want (50, 20)", dc.view.Pan)
	}
}

func TestDashboardCanvas_ScrollZoomsAboutPointer(t *testing.T) {
	dc := seededCanvas(t)
	dc.Resize(fyne.NewSize(1000, 700))
	anchor := fyne.NewPos(300, 300)
	worldBefore := dc.toWorld(anchor)
	dc.Scrolled(&fyne.ScrollEvent{
		PointEvent: fyne.PointEvent{Position: anchor},
		Scrolled:   fyne.Delta{DY: 120},
	})
	if dc.view.Zoom <= 1 {
		t.Fatalf("wheel up should zoom in, zoom = %v", dc.view.Zoom)
	}
	worldAfter := dc.toWorld(anchor)
	if dx := worldAfter.X - worldBefore.X; dx > 1e-6 || dx < -1e-6 {
		t.Fatalf("anchor drifted by %v in x", dx)
	}
}

func TestDashboardCanvas_RendererTracksStore(t *testing.T) {
	dc := seededCanvas(t)
	dc.Resize(fyne.NewSize(1000, 700))
	r, ok := dc.CreateRenderer().(*dashboardRenderer)
	if !ok {
		t.Fatalf("unexpected renderer type")
	}
	r.Layout(fyne.NewSize(1000, 700))
	if len(r.frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(r.frames))
	}
	if _, err := dc.st.Duplicate("top"); err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	r.Layout(fyne.NewSize(1000, 700))
	if len(r.frames) != 3 {
		t.Fatalf("expected 3 frames after duplicate, got %d", len(r.frames))
	}
}
