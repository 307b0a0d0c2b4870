/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package runtime

import (
	"encoding/json"
	"log/slog"

	applog "kastom/internal/log"
)

// KindSaveState is the single widget-to-host message kind. There is no
// host-to-widget channel after bootstrap.
const KindSaveState = "save_state"

// Envelope is the typed cross-context message shape.
type Envelope struct {
	Kind     string          `json:"kind"`
	WidgetID string          `json:"widgetId"`
	Payload  json.RawMessage `json:"payload"`
}

// PayloadSink receives save-state payloads; implemented by the widget store.
type PayloadSink interface {
	UpdatePayload(id string, payload json.RawMessage) (bool, error)
}

// Dispatcher routes envelopes by kind. Messages may arrive unordered or
// duplicated; the sink overwrites with the latest value (last write wins),
// so no sequencing is needed here. Malformed messages are dropped silently —
// a widget cannot take the host down.
type Dispatcher struct {
	sink PayloadSink
	log  *slog.Logger
}

// NewDispatcher wires a dispatcher to the given sink.
func NewDispatcher(sink PayloadSink) *Dispatcher {
	return &Dispatcher{sink: sink, log: applog.WithComponent("bridge")}
}

// Dispatch handles one envelope. Unknown kinds and unknown widget ids are
// ignored; they are not errors the sender can act on.
func (d *Dispatcher) Dispatch(env Envelope) {
	if env.Kind != KindSaveState {
		d.log.Debug("ignoring unknown message kind", slog.String("kind", env.Kind))
		return
	}
	if env.WidgetID == "" {
		d.log.Debug("dropping save_state without widget id")
		return
	}
	changed, err := d.sink.UpdatePayload(env.WidgetID, env.Payload)
	if err != nil {
		// Typically a stale message for a deleted widget.
		d.log.Debug("dropping save_state", slog.String("widget", env.WidgetID), slog.Any("err", err))
		return
	}
	if changed {
		d.log.Debug("payload saved", slog.String("widget", env.WidgetID))
	}
}

// DispatchRaw parses and dispatches a wire-format envelope.
func (d *Dispatcher) DispatchRaw(b []byte) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		d.log.Debug("dropping unparseable bridge message", slog.Any("err", err))
		return
	}
	d.Dispatch(env)
}
