/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package bridge

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kastom/internal/domain"
	"kastom/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New()
	s.Load([]domain.Widget{
		{
			ID:    "w-1",
			Title: "Clock",
			Code: domain.Code{
				Markup: "<div id=\"face\"></div>",
				Style:  "#face { color: red; }",
				Script: "sendWidgetState({tick: 0});",
			},
			Position:   domain.Point{X: 100, Y: 100},
			Size:       domain.Size{Width: 320, Height: 320},
			StackOrder: 1,
			CreatedAt:  time.Now().UnixMilli(),
			Appearance: domain.DefaultAppearance(),
		},
	})
	return s
}

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	st := testStore(t)
	srv := httptest.NewServer(New(st, st).Router())
	t.Cleanup(srv.Close)
	return srv, st
}

func TestGetDocument(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/widgets/w-1/doc")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type = %q", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	doc := string(body)
	if !strings.Contains(doc, "w-1") {
		t.Fatalf("document does not carry the widget id:\n%s", doc)
	}
	if !strings.Contains(doc, MessagePath) {
		t.Fatalf("document does not reference the save endpoint:\n%s", doc)
	}
	if !strings.Contains(doc, "#face { color: red; }") {
		t.Fatalf("document misses widget CSS")
	}
	if !strings.Contains(doc, "/widgets/w-1/inert") {
		t.Fatalf("document does not poll its inert flag:\n%s", doc)
	}
}

func TestGetDocumentUnknownWidget(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/widgets/nope/doc")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestPostMessageUpdatesStore(t *testing.T) {
	srv, st := newTestServer(t)

	msg := `{"kind":"save_state","widgetId":"w-1","payload":{"tick":42}}`
	resp, err := http.Post(srv.URL+MessagePath, "application/json", strings.NewReader(msg))
	if err != nil {
		t.Fatalf("post message: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	w, ok := st.Get("w-1")
	if !ok {
		t.Fatalf("widget vanished")
	}
	if !bytes.Contains([]byte(w.Payload), []byte("42")) {
		t.Fatalf("payload = %s, want tick 42", w.Payload)
	}
}

func TestPostMessageDropsSilently(t *testing.T) {
	srv, st := newTestServer(t)

	cases := []string{
		`not json at all`,
		`{"kind":"resize","widgetId":"w-1","payload":{}}`,
		`{"kind":"save_state","widgetId":"ghost","payload":{"a":1}}`,
	}
	for _, body := range cases {
		resp, err := http.Post(srv.URL+MessagePath, "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post %q: %v", body, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("post %q: status = %d, want 204", body, resp.StatusCode)
		}
	}
	w, _ := st.Get("w-1")
	if len(w.Payload) != 0 {
		t.Fatalf("payload mutated by dropped message: %s", w.Payload)
	}
}

func TestInertTracking(t *testing.T) {
	st := testStore(t)
	s := New(st, st)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)

	check := func(want string) {
		t.Helper()
		resp, err := http.Get(srv.URL + "/widgets/w-1/inert")
		if err != nil {
			t.Fatalf("get inert: %v", err)
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		if !strings.Contains(string(b), want) {
			t.Fatalf("inert body = %s, want %s", b, want)
		}
	}

	check("false")
	s.SetInert("w-1", true)
	if !s.Inert("w-1") {
		t.Fatalf("SetInert(true) not visible")
	}
	check("true")
	s.SetInert("w-1", false)
	check("false")
}

func TestStartAndShutdown(t *testing.T) {
	st := testStore(t)
	s := New(st, st)
	addr, err := s.Start("127.0.0.1:0")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if addr == "" || s.Addr() != addr {
		t.Fatalf("addr mismatch: %q vs %q", addr, s.Addr())
	}

	resp, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
