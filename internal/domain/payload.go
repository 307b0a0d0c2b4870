/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"bytes"
	"encoding/json"
)

// PayloadEqual reports structural equality of two opaque payloads.
// Payloads are JSON-safe by contract; comparison happens on a canonical
// re-encoding so key order and whitespace differences do not register as
// changes. Blobs that fail to decode fall back to a byte comparison.
func PayloadEqual(a, b json.RawMessage) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	ca, aok := canonicalJSON(a)
	cb, bok := canonicalJSON(b)
	if aok && bok {
		return bytes.Equal(ca, cb)
	}
	return bytes.Equal(a, b)
}

func canonicalJSON(raw json.RawMessage) ([]byte, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	// encoding/json sorts map keys, which yields a canonical form.
	out, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	return out, true
}

// ClonePayload returns an independent copy of a payload blob so that
// duplicated widgets never alias the original's state.
func ClonePayload(p json.RawMessage) json.RawMessage {
	if p == nil {
		return nil
	}
	out := make(json.RawMessage, len(p))
	copy(out, p)
	return out
}

// Clone returns a deep copy of the widget. Code and appearance are value
// types; only the payload needs an explicit copy.
func (w Widget) Clone() Widget {
	w.Payload = ClonePayload(w.Payload)
	return w
}
