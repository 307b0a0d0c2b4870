/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model for the Kastom dashboard.
// A dashboard is a flat collection of widgets placed on an infinite canvas;
// the manifest serializes to a human-readable JSON document.

import "encoding/json"

// Layout and sizing constants shared across the application.
// Positions and sizes are world-space units; grid snapping applies to both.
const (
	GridSize        = 20
	MinWidgetWidth  = 200
	MinWidgetHeight = 200
	DefaultWidth    = 320
	DefaultHeight   = 320
)

// Point is a position in world-space coordinates (top-left anchor).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in world-space units.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Code is the immutable-per-version markup/style/script triple that defines
// a widget's embedded applet. It is replaced wholesale when a widget is
// created from a template, never partially patched.
type Code struct {
	Markup string `json:"markup"`
	Style  string `json:"style"`
	Script string `json:"script"`
}

// Equal reports field-by-field equality. Records are copy-on-write, so
// identity comparison is meaningless here.
func (c Code) Equal(o Code) bool {
	return c.Markup == o.Markup && c.Style == o.Style && c.Script == o.Script
}

// Appearance holds the cosmetic parameters injected into the embedded
// runtime's root style.
type Appearance struct {
	BackgroundColor string `json:"backgroundColor"`
	FontSize        int    `json:"fontSize"`
	CornerRadius    int    `json:"cornerRadius"`
}

// Equal reports value equality.
func (a Appearance) Equal(o Appearance) bool { return a == o }

// DefaultAppearance is applied to new widgets and substituted when loading
// records persisted before the appearance field existed.
func DefaultAppearance() Appearance {
	return Appearance{BackgroundColor: "rgba(0,0,0,0)", FontSize: 16, CornerRadius: 16}
}

// Widget is a single placed widget instance.
// Payload is owned by the embedded applet and opaque to the host; it must be
// JSON-safe. A nil Payload means the applet has never saved state.
type Widget struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Code       Code            `json:"code"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Position   Point           `json:"position"`
	Size       Size            `json:"size"`
	StackOrder int             `json:"stackOrder"`
	CreatedAt  int64           `json:"createdAt"`
	Appearance Appearance      `json:"appearance"`
}

// Template is the instantiation shape shared by the premade catalog and the
// generation service.
type Template struct {
	Title  string `json:"title"`
	Markup string `json:"markup"`
	Style  string `json:"style"`
	Script string `json:"script"`
}

// Dashboard is the persisted manifest: an ordered sequence of widgets.
type Dashboard struct {
	Name    string   `json:"name,omitempty"`
	Widgets []Widget `json:"widgets"`
}
