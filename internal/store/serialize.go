/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"encoding/json"
	"fmt"

	"kastom/internal/domain"
)

// Serialize renders the collection as a self-describing JSON array in paint
// order. Field names are preserved so older and newer builds can read each
// other's output.
func (s *Store) Serialize() ([]byte, error) {
	data, err := json.MarshalIndent(s.List(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal widgets: %w", err)
	}
	return append(data, '\n'), nil
}

// widgetRecord mirrors domain.Widget but keeps appearance optional so blobs
// written before the appearance field existed still load. Unknown extra
// fields are ignored by encoding/json, which gives forward-compatible reads.
type widgetRecord struct {
	ID         string             `json:"id"`
	Title      string             `json:"title"`
	Code       domain.Code        `json:"code"`
	Payload    json.RawMessage    `json:"payload,omitempty"`
	Position   domain.Point       `json:"position"`
	Size       domain.Size        `json:"size"`
	StackOrder int                `json:"stackOrder"`
	CreatedAt  int64              `json:"createdAt"`
	Appearance *domain.Appearance `json:"appearance,omitempty"`
}

// Deserialize parses a persisted blob, upgrading records that predate the
// appearance field by substituting the documented default.
func Deserialize(blob []byte) ([]domain.Widget, error) {
	var records []widgetRecord
	if err := json.Unmarshal(blob, &records); err != nil {
		return nil, fmt.Errorf("parse widgets: %w", err)
	}
	out := make([]domain.Widget, 0, len(records))
	for _, r := range records {
		ap := domain.DefaultAppearance()
		if r.Appearance != nil {
			ap = *r.Appearance
		}
		out = append(out, domain.Widget{
			ID:         r.ID,
			Title:      r.Title,
			Code:       r.Code,
			Payload:    r.Payload,
			Position:   r.Position,
			Size:       r.Size,
			StackOrder: r.StackOrder,
			CreatedAt:  r.CreatedAt,
			Appearance: ap,
		})
	}
	return out, nil
}
