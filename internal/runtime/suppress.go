/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package runtime

import "kastom/internal/domain"

// NeedsRebuild decides whether a widget's execution context must be torn
// down and rebuilt between two snapshots. Only identity, the code triple and
// the appearance participate: those are baked into the document at bootstrap.
// A payload-only change must NOT rebuild — the context just reported that
// state, and reloading it would discard live UI state (focus, in-progress
// edits) in a visible flicker loop. Position, size and stack order are host
// chrome concerns and never rebuild either.
//
// Records are copy-on-write, so this is a structural comparison; pointer
// identity would report every snapshot as changed.
func NeedsRebuild(prev, next domain.Widget) bool {
	if prev.ID != next.ID {
		return true
	}
	if !prev.Code.Equal(next.Code) {
		return true
	}
	if !prev.Appearance.Equal(next.Appearance) {
		return true
	}
	return false
}
