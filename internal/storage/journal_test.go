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
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInitOrOpenJournalCreatesSchema(t *testing.T) {
	root := t.TempDir()
	db, err := InitOrOpenJournal(root)
	if err != nil {
		t.Fatalf("InitOrOpenJournal error: %v", err)
	}
	defer db.Close()

	var schema int
	if err := db.QueryRow(`SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil {
		t.Fatalf("read schema version: %v", err)
	}
	if schema != schemaVersion {
		t.Fatalf("schema = %d, want %d", schema, schemaVersion)
	}
	if _, err := db.Exec(`SELECT 1 FROM widgets LIMIT 1;`); err != nil {
		t.Fatalf("widgets table missing: %v", err)
	}
	if _, err := db.Exec(`SELECT 1 FROM payload_log LIMIT 1;`); err != nil {
		t.Fatalf("payload_log table missing: %v", err)
	}
}

func TestPayloadJournalRoundTrip(t *testing.T) {
	root := t.TempDir()
	dh, err := InitDashboard(root, sampleDashboard())
	if err != nil {
		t.Fatalf("InitDashboard error: %v", err)
	}
	ctx := context.Background()

	if err := RecordPayload(ctx, dh, "w-1", []byte(`{"n":1}`), time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("RecordPayload error: %v", err)
	}
	if err := RecordPayload(ctx, dh, "w-1", []byte(`{"n":2}`), time.Now()); err != nil {
		t.Fatalf("RecordPayload error: %v", err)
	}

	blob, ts, err := LatestPayload(ctx, dh, "w-1")
	if err != nil {
		t.Fatalf("LatestPayload error: %v", err)
	}
	if string(blob) != `{"n":2}` {
		t.Fatalf("latest payload = %s, want newest record", blob)
	}
	if ts.IsZero() {
		t.Fatalf("expected a parsed timestamp")
	}

	hist, err := PayloadHistory(ctx, dh, "w-1", 10)
	if err != nil {
		t.Fatalf("PayloadHistory error: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("history length = %d, want 2", len(hist))
	}
	if string(hist[0].Payload) != `{"n":2}` {
		t.Fatalf("history not newest-first: %s", hist[0].Payload)
	}
}

func TestLatestPayloadUnknownWidgetIsNil(t *testing.T) {
	root := t.TempDir()
	dh, err := InitDashboard(root, sampleDashboard())
	if err != nil {
		t.Fatalf("InitDashboard error: %v", err)
	}
	blob, _, err := LatestPayload(context.Background(), dh, "nope")
	if err != nil {
		t.Fatalf("LatestPayload error: %v", err)
	}
	if blob != nil {
		t.Fatalf("expected nil payload for unknown widget, got %s", blob)
	}
}

func TestPruneOldPayloadsKeepsNewest(t *testing.T) {
	root := t.TempDir()
	dh, err := InitDashboard(root, sampleDashboard())
	if err != nil {
		t.Fatalf("InitDashboard error: %v", err)
	}
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		if err := RecordPayload(ctx, dh, "w-1", []byte{byte('0' + i)}, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("RecordPayload error: %v", err)
		}
	}
	deleted, err := PruneOldPayloads(ctx, dh, "w-1", 2)
	if err != nil {
		t.Fatalf("PruneOldPayloads error: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("deleted = %d, want 3", deleted)
	}
	hist, err := PayloadHistory(ctx, dh, "w-1", 10)
	if err != nil {
		t.Fatalf("PayloadHistory error: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("history after prune = %d, want 2", len(hist))
	}
}

func TestSyncJournalAndSearchTitles(t *testing.T) {
	root := t.TempDir()
	d := sampleDashboard()
	d.Widgets = append(d.Widgets, d.Widgets[0])
	d.Widgets[1].ID = "w-2"
	d.Widgets[1].Title = "Smart Spreadsheet"
	d.Widgets[1].StackOrder = 2
	ctx := context.Background()

	if err := SyncJournal(ctx, root, d); err != nil {
		t.Fatalf("SyncJournal error: %v", err)
	}
	ids, err := SearchWidgetTitles(ctx, root, "spread")
	if err != nil {
		t.Fatalf("SearchWidgetTitles error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "w-2" {
		t.Fatalf("search result = %v, want [w-2]", ids)
	}
	ids, err = SearchWidgetTitles(ctx, root, "")
	if err != nil {
		t.Fatalf("SearchWidgetTitles error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "w-2" {
		t.Fatalf("empty query should list all widgets topmost first, got %v", ids)
	}
}

func TestDetectAndRebuildJournal_OnCorruption(t *testing.T) {
	root := t.TempDir()
	d := sampleDashboard()
	if err := SyncJournal(context.Background(), root, d); err != nil {
		t.Fatalf("SyncJournal error: %v", err)
	}
	// Corrupt the DB file by writing junk
	jp := JournalPath(root)
	if err := os.WriteFile(jp, []byte("THIS IS NOT SQLITE"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rebuilt, err := DetectAndRebuildJournal(ctx, root, d)
	if err != nil {
		t.Fatalf("DetectAndRebuildJournal: %v", err)
	}
	if !rebuilt {
		t.Fatalf("expected rebuild to occur")
	}
	st, err := os.Stat(JournalPath(root))
	if err != nil || st.Size() == 0 {
		t.Fatalf("rebuilt journal missing or empty: %v", err)
	}
	bdir := filepath.Join(root, JournalDirName, "backups")
	entries, _ := os.ReadDir(bdir)
	if len(entries) == 0 {
		t.Fatalf("expected backup file in %s", bdir)
	}
	ids, err := SearchWidgetTitles(context.Background(), root, "clock")
	if err != nil {
		t.Fatalf("SearchWidgetTitles after rebuild: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("catalog not repopulated after rebuild: %v", ids)
	}
}
