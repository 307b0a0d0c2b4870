/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import "kastom/internal/domain"

// Kind identifies the active pointer gesture. Exactly one is active at a
// time; transitions are edge-triggered by pointer down/up events.
type Kind int

const (
	Idle Kind = iota
	PanningCanvas
	DraggingWidget
	ResizingWidget
)

func (k Kind) String() string {
	switch k {
	case PanningCanvas:
		return "pan"
	case DraggingWidget:
		return "drag"
	case ResizingWidget:
		return "resize"
	default:
		return "idle"
	}
}

// Gesture tracks a single pointer-down-to-pointer-up interaction. Every Move
// recomputes from the captured anchor rather than accumulating increments,
// so dropped intermediate events cause no drift.
type Gesture struct {
	kind         Kind
	widgetID     string
	anchorScreen Pt
	anchorPan    Pt
	anchorPos    domain.Point
	anchorSize   domain.Size
}

// Kind returns the current state.
func (g *Gesture) Kind() Kind { return g.kind }

// WidgetID returns the id of the widget targeted by a drag or resize, or ""
// when idle or panning.
func (g *Gesture) WidgetID() string { return g.widgetID }

// Active reports whether any gesture is in progress.
func (g *Gesture) Active() bool { return g.kind != Idle }

// Targets reports whether the gesture manipulates the given widget. Used to
// make the widget's embedded context inert while it is being moved.
func (g *Gesture) Targets(id string) bool {
	return (g.kind == DraggingWidget || g.kind == ResizingWidget) && g.widgetID == id
}

// BeginPan starts a canvas pan from a pointer-down on empty background.
// A pointer-down during an active gesture is a protocol violation (pointer
// capture is exclusive) and is ignored.
func (g *Gesture) BeginPan(screen Pt, v View) bool {
	if g.kind != Idle {
		return false
	}
	g.kind = PanningCanvas
	g.anchorScreen = screen
	g.anchorPan = v.Pan
	return true
}

// BeginDrag starts moving a widget, capturing its current position.
func (g *Gesture) BeginDrag(screen Pt, id string, pos domain.Point) bool {
	if g.kind != Idle {
		return false
	}
	g.kind = DraggingWidget
	g.widgetID = id
	g.anchorScreen = screen
	g.anchorPos = pos
	return true
}

// BeginResize starts resizing a widget, capturing its current size.
func (g *Gesture) BeginResize(screen Pt, id string, size domain.Size) bool {
	if g.kind != Idle {
		return false
	}
	g.kind = ResizingWidget
	g.widgetID = id
	g.anchorScreen = screen
	g.anchorSize = size
	return true
}

// Update is the effect of a pointer move, interpreted per gesture kind.
type Update struct {
	Kind     Kind
	WidgetID string
	Pan      Pt           // PanningCanvas: new pan offset
	Position domain.Point // DraggingWidget: new snapped position
	Size     domain.Size  // ResizingWidget: new snapped, clamped size
}

// Move streams a pointer position into the active gesture. Pan applies the
// raw screen delta (pan is itself screen-space); drag and resize divide the
// delta by the current zoom so one pointer pixel is one visual pixel at any
// zoom level, then snap to the grid. Returns false when idle.
func (g *Gesture) Move(screen Pt, zoom float64) (Update, bool) {
	if g.kind == Idle {
		return Update{}, false
	}
	dx := screen.X - g.anchorScreen.X
	dy := screen.Y - g.anchorScreen.Y

	switch g.kind {
	case PanningCanvas:
		return Update{
			Kind: PanningCanvas,
			Pan:  Pt{X: g.anchorPan.X + dx, Y: g.anchorPan.Y + dy},
		}, true
	case DraggingWidget:
		return Update{
			Kind:     DraggingWidget,
			WidgetID: g.widgetID,
			Position: SnapPoint(domain.Point{
				X: g.anchorPos.X + dx/zoom,
				Y: g.anchorPos.Y + dy/zoom,
			}),
		}, true
	default: // ResizingWidget
		return Update{
			Kind:     ResizingWidget,
			WidgetID: g.widgetID,
			Size: SnapSize(domain.Size{
				Width:  g.anchorSize.Width + dx/zoom,
				Height: g.anchorSize.Height + dy/zoom,
			}),
		}, true
	}
}

// End terminates the gesture on pointer-up (or on a capture-release fallback
// when the pointer leaves the surface) and returns to Idle.
func (g *Gesture) End() {
	*g = Gesture{}
}
