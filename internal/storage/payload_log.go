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
	"database/sql"
	"errors"
	"time"
)

// language=SQL
// dialect=SQLite
const insertPayloadSQL = `INSERT INTO payload_log(widget_id, ts, payload) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestPayloadSQL = `SELECT ts, payload FROM payload_log WHERE widget_id = ? ORDER BY ts DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listPayloadsSQL = `SELECT ts, payload FROM payload_log WHERE widget_id = ? ORDER BY ts DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldPayloadsSQL = `DELETE FROM payload_log WHERE widget_id = ? AND id NOT IN (
	SELECT id FROM payload_log WHERE widget_id = ? ORDER BY ts DESC LIMIT ?
)`

// PayloadEntry is one journaled widget state message.
type PayloadEntry struct {
	TS      time.Time
	Payload []byte
}

// RecordPayload persists an accepted widget state payload with a timestamp.
// It opens the dashboard's journal database if needed and inserts the record.
func RecordPayload(ctx context.Context, dh *DashboardHandle, widgetID string, payload []byte, ts time.Time) error {
	if dh == nil {
		return errors.New("nil DashboardHandle")
	}
	db, err := InitOrOpenJournal(dh.Root)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	_, err = db.ExecContext(ctx, insertPayloadSQL, widgetID, ts.UTC().Format(time.RFC3339Nano), payload)
	return err
}

// LatestPayload returns the most recent journaled payload for a widget or nil if none.
func LatestPayload(ctx context.Context, dh *DashboardHandle, widgetID string) ([]byte, time.Time, error) {
	if dh == nil {
		return nil, time.Time{}, errors.New("nil DashboardHandle")
	}
	db, err := InitOrOpenJournal(dh.Root)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer func() { _ = db.Close() }()
	var tsStr string
	var blob []byte
	err = db.QueryRowContext(ctx, selectLatestPayloadSQL, widgetID).Scan(&tsStr, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, tsStr)
	if err != nil {
		return blob, time.Time{}, nil // return blob even if ts parse fails
	}
	return blob, ts, nil
}

// PayloadHistory returns up to limit most recent payloads for a widget, newest first.
func PayloadHistory(ctx context.Context, dh *DashboardHandle, widgetID string, limit int) ([]PayloadEntry, error) {
	if dh == nil {
		return nil, errors.New("nil DashboardHandle")
	}
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenJournal(dh.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, listPayloadsSQL, widgetID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []PayloadEntry
	for rows.Next() {
		var tsStr string
		var blob []byte
		if err := rows.Scan(&tsStr, &blob); err != nil {
			return nil, err
		}
		ts, _ := time.Parse(time.RFC3339Nano, tsStr)
		out = append(out, PayloadEntry{TS: ts, Payload: blob})
	}
	return out, rows.Err()
}

// PruneOldPayloads keeps at most keepLast payloads for the widget and deletes older ones.
func PruneOldPayloads(ctx context.Context, dh *DashboardHandle, widgetID string, keepLast int) (int64, error) {
	if dh == nil {
		return 0, errors.New("nil DashboardHandle")
	}
	if keepLast <= 0 {
		return 0, nil
	}
	db, err := InitOrOpenJournal(dh.Root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, pruneOldPayloadsSQL, widgetID, widgetID, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
