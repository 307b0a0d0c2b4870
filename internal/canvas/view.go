/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package canvas implements the viewport transform between screen space
// (viewport pixels) and world space (where widget positions live), plus the
// pointer gesture state machine that drives pan, drag and resize.
package canvas

import (
	"math"

	"kastom/internal/domain"
)

// Zoom limits and wheel sensitivity.
const (
	ZoomMin         = 0.1
	ZoomMax         = 5.0
	ZoomSensitivity = 0.001
)

// Pt is a 2D point. It is used for both screen-space and world-space values;
// the function signatures make the space explicit.
type Pt struct{ X, Y float64 }

// View is the viewport transform: screen = world*Zoom + Pan.
// Pan is a screen-space translation applied after scaling.
type View struct {
	Zoom float64
	Pan  Pt
}

// DefaultView returns the identity viewport.
func DefaultView() View { return View{Zoom: 1} }

// ToWorld maps a screen point into world coordinates.
// Zoom is guaranteed non-zero by the clamp invariant.
func ToWorld(screen Pt, v View) Pt {
	return Pt{X: (screen.X - v.Pan.X) / v.Zoom, Y: (screen.Y - v.Pan.Y) / v.Zoom}
}

// ToScreen maps a world point into screen coordinates.
func ToScreen(world Pt, v View) Pt {
	return Pt{X: world.X*v.Zoom + v.Pan.X, Y: world.Y*v.Zoom + v.Pan.Y}
}

// ZoomAt applies a wheel delta at a fixed screen point and returns the new
// view. The world point under the pointer stays mapped to the same screen
// point, so content never slides during a zoom gesture. Exponential scaling
// keeps equal deltas producing equal ratio changes at any zoom level.
func ZoomAt(v View, screen Pt, wheelDelta float64) View {
	anchor := ToWorld(screen, v)
	newZoom := clampZoom(v.Zoom * math.Exp(-wheelDelta*ZoomSensitivity))
	return View{
		Zoom: newZoom,
		Pan:  Pt{X: screen.X - anchor.X*newZoom, Y: screen.Y - anchor.Y*newZoom},
	}
}

func clampZoom(z float64) float64 {
	if z < ZoomMin {
		return ZoomMin
	}
	if z > ZoomMax {
		return ZoomMax
	}
	return z
}

// ViewportCenterWorld returns the world point at the center of a viewport of
// the given pixel dimensions. Used for widget placement.
func ViewportCenterWorld(v View, viewportW, viewportH float64) domain.Point {
	c := ToWorld(Pt{X: viewportW / 2, Y: viewportH / 2}, v)
	return domain.Point{X: c.X, Y: c.Y}
}
