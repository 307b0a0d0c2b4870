/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package gen

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"kastom/internal/domain"
	applog "kastom/internal/log"
)

// ContentGenerator is the seam between the UI and the Vertex adapter.
type ContentGenerator interface {
	GenerateWidget(ctx context.Context, prompt string) (domain.Template, error)
}

// Result is delivered to the callback of an async generation request.
type Result struct {
	Template domain.Template
	Err      error
}

// Service serializes generation requests for a single prompt box. Only the
// most recent request may deliver; responses to superseded requests are
// discarded so a slow early reply cannot overwrite a newer one.
type Service struct {
	gen ContentGenerator
	log *slog.Logger

	mu      sync.Mutex
	pending uint64 // id of the latest request; only it may deliver
	seq     atomic.Uint64
}

// NewService wraps a generator.
func NewService(g ContentGenerator) *Service {
	return &Service{gen: g, log: applog.WithComponent("gen")}
}

// Generate runs a request synchronously. It still participates in the
// stale-discard protocol so a concurrent async request supersedes it.
func (s *Service) Generate(ctx context.Context, prompt string) (domain.Template, error) {
	id := s.begin()
	tpl, err := s.gen.GenerateWidget(ctx, prompt)
	if !s.finish(id) {
		return domain.Template{}, context.Canceled
	}
	return tpl, err
}

// GenerateAsync starts a request in the background. The callback fires once,
// on the generation goroutine, unless a newer request supersedes this one.
func (s *Service) GenerateAsync(ctx context.Context, prompt string, deliver func(Result)) {
	id := s.begin()
	go func() {
		tpl, err := s.gen.GenerateWidget(ctx, prompt)
		if !s.finish(id) {
			s.log.Debug("discarding stale generation response", slog.Uint64("request", id))
			return
		}
		if err != nil {
			s.log.Warn("generation failed", slog.Any("err", err))
		}
		deliver(Result{Template: tpl, Err: err})
	}()
}

func (s *Service) begin() uint64 {
	id := s.seq.Add(1)
	s.mu.Lock()
	s.pending = id
	s.mu.Unlock()
	return id
}

// finish reports whether the request is still the latest; if so it clears the
// pending slot.
func (s *Service) finish(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != id {
		return false
	}
	s.pending = 0
	return true
}
