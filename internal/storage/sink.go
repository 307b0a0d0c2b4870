/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	applog "kastom/internal/log"
	"kastom/internal/runtime"
)

// payloadHistoryKeep bounds per-widget journal growth.
const payloadHistoryKeep = 50

// journalWriteTimeout caps a single journal transaction; a wedged sqlite
// file must not stall the bridge goroutine.
const journalWriteTimeout = 2 * time.Second

// TeePayloads decorates a payload sink so every accepted save-state message
// is also journaled to the dashboard's sqlite index. Journal failures are
// logged and never surface to the sender; the in-memory store stays the
// source of truth. The handle is looked up per message so a newly opened
// dashboard journals without rewiring the bridge; a nil handle skips the
// journal entirely.
func TeePayloads(handle func() *DashboardHandle, next runtime.PayloadSink) runtime.PayloadSink {
	return &teeSink{handle: handle, next: next, log: applog.WithComponent("storage")}
}

type teeSink struct {
	handle func() *DashboardHandle
	next   runtime.PayloadSink
	log    *slog.Logger
}

func (t *teeSink) UpdatePayload(id string, payload json.RawMessage) (bool, error) {
	changed, err := t.next.UpdatePayload(id, payload)
	if err != nil || !changed {
		return changed, err
	}
	dh := t.handle()
	if dh == nil {
		return changed, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
	defer cancel()
	if jerr := RecordPayload(ctx, dh, id, payload, time.Now()); jerr != nil {
		t.log.Warn("payload journal write failed", slog.String("widget", id), slog.Any("err", jerr))
		return changed, nil
	}
	if _, jerr := PruneOldPayloads(ctx, dh, id, payloadHistoryKeep); jerr != nil {
		t.log.Warn("payload journal prune failed", slog.String("widget", id), slog.Any("err", jerr))
	}
	return changed, nil
}
