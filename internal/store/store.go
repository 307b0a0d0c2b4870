/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package store holds the authoritative widget collection. Every mutation is
// a whole-record replacement (copy-on-write) so snapshot comparison stays
// correct and cheap; in-place field mutation is never performed.
package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"kastom/internal/canvas"
	"kastom/internal/domain"
)

// Cascade constants for newly created widgets: each successive creation is
// offset so simultaneous creations fan out instead of stacking exactly.
const (
	cascadeStep = 20
	cascadeWrap = 100
	duplicateOffset = 40
)

// Store is the sole shared mutable resource of the application. All UI
// mutations happen on the single event thread, but the runtime bridge feeds
// payload saves from its own goroutine, so a mutex guards the collection.
type Store struct {
	mu      sync.Mutex
	widgets []domain.Widget

	// onChange, when set, runs after every committed mutation with a
	// point-in-time copy of the records (used to trigger persistence).
	onChange func([]domain.Widget)

	now   func() time.Time
	newID func() string
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// OnChange registers the mutation hook. Pass nil to clear.
func (s *Store) OnChange(fn func([]domain.Widget)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Load replaces the collection wholesale, e.g. after deserializing a
// manifest. It does not fire the change hook.
func (s *Store) Load(ws []domain.Widget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.widgets = make([]domain.Widget, 0, len(ws))
	for _, w := range ws {
		s.widgets = append(s.widgets, w.Clone())
	}
}

// Len returns the number of widgets.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.widgets)
}

// Get returns a copy of the widget with the given id.
func (s *Store) Get(id string) (domain.Widget, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.widgets[i].Clone(), true
	}
	return domain.Widget{}, false
}

// List returns copies of all widgets in paint order (ascending stack order).
func (s *Store) List() []domain.Widget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

func (s *Store) listLocked() []domain.Widget {
	out := make([]domain.Widget, 0, len(s.widgets))
	for _, w := range s.widgets {
		out = append(out, w.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StackOrder < out[j].StackOrder })
	return out
}

// Create instantiates a template at the world point currently centered in
// the viewport, cascading successive creations, and returns the new widget.
func (s *Store) Create(tpl domain.Template, view canvas.View, viewportW, viewportH float64) domain.Widget {
	s.mu.Lock()
	center := canvas.ViewportCenterWorld(view, viewportW, viewportH)
	offset := float64((len(s.widgets) * cascadeStep) % cascadeWrap)
	title := tpl.Title
	if title == "" {
		title = "New Widget"
	}
	w := domain.Widget{
		ID:    s.newID(),
		Title: title,
		Code:  domain.Code{Markup: tpl.Markup, Style: tpl.Style, Script: tpl.Script},
		Position: domain.Point{
			X: center.X - domain.DefaultWidth/2 + offset,
			Y: center.Y - domain.DefaultHeight/2 + offset,
		},
		Size:       domain.Size{Width: domain.DefaultWidth, Height: domain.DefaultHeight},
		StackOrder: s.maxStackLocked() + 1,
		CreatedAt:  s.now().UnixMilli(),
		Appearance: domain.DefaultAppearance(),
	}
	s.widgets = append(s.widgets, w)
	s.commitLocked()
	return w.Clone()
}

// Duplicate deep-copies a widget, including its payload, so mutating the
// copy's state never leaks into the original. The copy is placed slightly
// offset and stacked on top.
func (s *Store) Duplicate(id string) (domain.Widget, error) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.Widget{}, fmt.Errorf("duplicate: widget %s not found", id)
	}
	w := s.widgets[i].Clone()
	w.ID = s.newID()
	w.Title = w.Title + " (Copy)"
	w.Position = domain.Point{X: w.Position.X + duplicateOffset, Y: w.Position.Y + duplicateOffset}
	w.StackOrder = s.maxStackLocked() + 1
	w.CreatedAt = s.now().UnixMilli()
	s.widgets = append(s.widgets, w)
	s.commitLocked()
	return w.Clone(), nil
}

// Delete removes a widget immediately. Deleting an unknown id is an error.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("delete: widget %s not found", id)
	}
	s.widgets = append(s.widgets[:i], s.widgets[i+1:]...)
	s.commitLocked()
	return nil
}

// UpdatePosition replaces the widget's position.
func (s *Store) UpdatePosition(id string, pos domain.Point) error {
	return s.replace(id, func(w domain.Widget) domain.Widget {
		w.Position = pos
		return w
	})
}

// UpdateSize replaces the widget's size, enforcing the minimum floor.
func (s *Store) UpdateSize(id string, size domain.Size) error {
	return s.replace(id, func(w domain.Widget) domain.Widget {
		w.Size = canvas.ClampSize(size)
		return w
	})
}

// UpdateAppearance replaces the cosmetic parameters.
func (s *Store) UpdateAppearance(id string, ap domain.Appearance) error {
	return s.replace(id, func(w domain.Widget) domain.Widget {
		w.Appearance = ap
		return w
	})
}

// UpdatePayload overwrites the widget's embedded state (last write wins).
// A structurally equal payload is a no-op so downstream consumers see no
// redundant change. Returns whether anything changed.
func (s *Store) UpdatePayload(id string, payload json.RawMessage) (bool, error) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false, fmt.Errorf("update payload: widget %s not found", id)
	}
	if domain.PayloadEqual(s.widgets[i].Payload, payload) {
		s.mu.Unlock()
		return false, nil
	}
	w := s.widgets[i].Clone()
	w.Payload = domain.ClonePayload(payload)
	s.widgets[i] = w
	s.commitLocked()
	return true, nil
}

// BringToFront reassigns the widget's stack order to one above the current
// maximum, even when the widget is already topmost. The counter is monotonic
// across the dashboard lifetime; values are never reused, so paint order is
// always a total order.
func (s *Store) BringToFront(id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("bring to front: widget %s not found", id)
	}
	w := s.widgets[i].Clone()
	w.StackOrder = s.maxStackLocked() + 1
	s.widgets[i] = w
	s.commitLocked()
	return nil
}

func (s *Store) replace(id string, fn func(domain.Widget) domain.Widget) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("widget %s not found", id)
	}
	s.widgets[i] = fn(s.widgets[i].Clone())
	s.commitLocked()
	return nil
}

func (s *Store) indexLocked(id string) int {
	for i := range s.widgets {
		if s.widgets[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) maxStackLocked() int {
	top := 0
	for _, w := range s.widgets {
		if w.StackOrder > top {
			top = w.StackOrder
		}
	}
	return top
}

// commitLocked fires the change hook with a snapshot and releases the lock.
// The hook runs outside the lock so it may call back into the store.
func (s *Store) commitLocked() {
	fn := s.onChange
	var snapshot []domain.Widget
	if fn != nil {
		snapshot = s.listLocked()
	}
	s.mu.Unlock()
	if fn != nil {
		fn(snapshot)
	}
}
