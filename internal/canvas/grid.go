/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"math"

	"kastom/internal/domain"
)

// Snap rounds a world-space value to the nearest grid unit. Snapping an
// already-snapped value is a no-op.
func Snap(v float64) float64 {
	return math.Round(v/domain.GridSize) * domain.GridSize
}

// SnapPoint snaps both coordinates of a position.
func SnapPoint(p domain.Point) domain.Point {
	return domain.Point{X: Snap(p.X), Y: Snap(p.Y)}
}

// SnapSize snaps a size to the grid and applies the minimum floor. The floor
// wins over snapping so a snapped size can never dip below the minimum.
func SnapSize(s domain.Size) domain.Size {
	return ClampSize(domain.Size{Width: Snap(s.Width), Height: Snap(s.Height)})
}

// ClampSize enforces the minimum widget dimensions.
func ClampSize(s domain.Size) domain.Size {
	if s.Width < domain.MinWidgetWidth {
		s.Width = domain.MinWidgetWidth
	}
	if s.Height < domain.MinWidgetHeight {
		s.Height = domain.MinWidgetHeight
	}
	return s
}
