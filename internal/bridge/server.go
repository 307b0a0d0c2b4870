/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package bridge exposes the embedded widget runtime over a loopback HTTP
// server. The browser-side sandbox fetches its document from here and posts
// widget state messages back through it.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"kastom/internal/domain"
	applog "kastom/internal/log"
	"kastom/internal/runtime"
)

// MessagePath is where sandbox documents post their state envelopes.
const MessagePath = "/bridge/message"

// maxEnvelopeBytes bounds a single state message.
const maxEnvelopeBytes = 4 << 20

// WidgetSource provides read access to the live widget collection.
type WidgetSource interface {
	Get(id string) (domain.Widget, bool)
}

// Server serves sandbox documents and accepts state messages.
type Server struct {
	src        WidgetSource
	dispatcher *runtime.Dispatcher
	log        *slog.Logger

	srv *http.Server
	ln  net.Listener

	mu    sync.Mutex
	inert map[string]bool
}

// New builds a server over the given widget source and payload sink.
func New(src WidgetSource, sink runtime.PayloadSink) *Server {
	return &Server{
		src:        src,
		dispatcher: runtime.NewDispatcher(sink),
		log:        applog.WithComponent("bridge"),
		inert:      make(map[string]bool),
	}
}

// inertPath is the per-widget flag endpoint the bootstrap script polls.
func inertPath(id string) string {
	return "/widgets/" + url.PathEscape(id) + "/inert"
}

// SetInert marks a widget's embedded context inert while a host gesture
// targets it, so the sandbox cannot steal pointer capture mid-drag. The
// bootstrap script polls the matching endpoint and suspends pointer-event
// delivery inside the document while the flag is set.
func (s *Server) SetInert(id string, inert bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inert {
		s.inert[id] = true
	} else {
		delete(s.inert, id)
	}
}

// Inert reports whether the widget is currently marked inert.
func (s *Server) Inert(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inert[id]
}

// Router returns the HTTP routes; exposed for tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/widgets/{widgetId}/doc", s.getDocument)
	r.Get("/widgets/{widgetId}/inert", s.getInert)
	r.Post(MessagePath, s.postMessage)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Start begins listening on addr (host:0 picks a free port). It returns the
// bound address.
func (s *Server) Start(addr string) (string, error) {
	if s.ln != nil {
		return "", errors.New("bridge already started")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("bridge serve failed", slog.Any("err", err))
		}
	}()
	bound := ln.Addr().String()
	s.log.Info("bridge listening", slog.String("addr", bound))
	return bound, nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "widgetId")
	widget, ok := s.src.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	doc := runtime.BuildDocument(widget, runtime.DocumentOptions{
		SaveEndpoint:  MessagePath,
		InertEndpoint: inertPath(id),
	})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(doc))
}

func (s *Server) getInert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "widgetId")
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"inert": s.Inert(id)})
}

// postMessage accepts a state envelope. Malformed or unknown messages are
// dropped by the dispatcher; the endpoint always answers 204 for accepted
// reads so a misbehaving widget cannot distinguish a drop from a write.
func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEnvelopeBytes))
	if err != nil {
		s.log.Debug("bridge message read failed", slog.Any("err", err))
		http.Error(w, "read failed", http.StatusBadRequest)
		return
	}
	s.dispatcher.DispatchRaw(body)
	w.WriteHeader(http.StatusNoContent)
}
