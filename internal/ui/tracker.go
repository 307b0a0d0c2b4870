/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"sync"

	"kastom/internal/domain"
	"kastom/internal/runtime"
)

// docTracker remembers the widget state each embedded context was last built
// from and decides which contexts need a rebuild after a store change. The
// store change hook runs on whichever goroutine committed the mutation,
// including bridge request goroutines, so all state lives behind the lock.
type docTracker struct {
	mu    sync.Mutex
	docs  map[string]domain.Widget
	dirty bool
}

func newDocTracker() *docTracker {
	return &docTracker{docs: make(map[string]domain.Widget)}
}

// Apply absorbs a store snapshot, marks the dashboard dirty, and returns the
// ids whose embedded context must be rebuilt. A payload-only change returns
// nothing; the context stays alive.
func (t *docTracker) Apply(ws []domain.Widget) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirty = true
	var rebuild []string
	seen := make(map[string]bool, len(ws))
	for _, next := range ws {
		seen[next.ID] = true
		prev, ok := t.docs[next.ID]
		if !ok || runtime.NeedsRebuild(prev, next) {
			rebuild = append(rebuild, next.ID)
			t.docs[next.ID] = next.Clone()
		}
	}
	for id := range t.docs {
		if !seen[id] {
			delete(t.docs, id)
		}
	}
	return rebuild
}

// Reset reseeds the tracker from a freshly loaded dashboard and clears the
// dirty flag.
func (t *docTracker) Reset(ws []domain.Widget) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.docs = make(map[string]domain.Widget, len(ws))
	for _, w := range ws {
		t.docs[w.ID] = w.Clone()
	}
	t.dirty = false
}

// Dirty reports whether the dashboard changed since the last save or load.
func (t *docTracker) Dirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dirty
}

// MarkSaved clears the dirty flag after a successful save.
func (t *docTracker) MarkSaved() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirty = false
}
