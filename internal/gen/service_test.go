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
	"errors"
	"sync"
	"testing"
	"time"

	"kastom/internal/domain"
)

type stubGenerator struct {
	mu    sync.Mutex
	delay map[string]time.Duration
	fail  error
}

func (s *stubGenerator) GenerateWidget(ctx context.Context, prompt string) (domain.Template, error) {
	s.mu.Lock()
	d := s.delay[prompt]
	err := s.fail
	s.mu.Unlock()
	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return domain.Template{}, ctx.Err()
		}
	}
	if err != nil {
		return domain.Template{}, err
	}
	return domain.Template{Title: prompt, Markup: "<div></div>"}, nil
}

func TestGenerateSynchronous(t *testing.T) {
	svc := NewService(&stubGenerator{})
	tpl, err := svc.Generate(context.Background(), "clock")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if tpl.Title != "clock" {
		t.Fatalf("Generate returned %q, want %q", tpl.Title, "clock")
	}
}

func TestGenerateSurfacesFailure(t *testing.T) {
	svc := NewService(&stubGenerator{fail: errors.New("quota exceeded")})
	if _, err := svc.Generate(context.Background(), "counter"); err == nil {
		t.Fatalf("expected generation failure to surface")
	}
}

func TestAsyncStaleResponseDiscarded(t *testing.T) {
	stub := &stubGenerator{delay: map[string]time.Duration{
		"slow": 150 * time.Millisecond,
		"fast": 10 * time.Millisecond,
	}}
	svc := NewService(stub)

	var mu sync.Mutex
	var delivered []string
	done := make(chan struct{}, 2)
	cb := func(r Result) {
		mu.Lock()
		delivered = append(delivered, r.Template.Title)
		mu.Unlock()
		done <- struct{}{}
	}

	svc.GenerateAsync(context.Background(), "slow", cb)
	svc.GenerateAsync(context.Background(), "fast", cb)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for delivery")
	}
	// Give the stale response time to (incorrectly) deliver
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 1 {
		t.Fatalf("delivered %d results, want only the latest: %v", len(delivered), delivered)
	}
	if delivered[0] != "fast" {
		t.Fatalf("delivered %q, want the latest request", delivered[0])
	}
}

func TestAsyncFailureDelivered(t *testing.T) {
	svc := NewService(&stubGenerator{fail: errors.New("backend down")})
	done := make(chan Result, 1)
	svc.GenerateAsync(context.Background(), "anything", func(r Result) { done <- r })
	select {
	case r := <-done:
		if r.Err == nil {
			t.Fatalf("expected error result")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for failure delivery")
	}
}

func TestParseTemplate(t *testing.T) {
	tpl, err := parseTemplate(`{"title":"Dice","html":"<div id=\"d\"></div>","css":"#d{}","js":"roll()"}`)
	if err != nil {
		t.Fatalf("parseTemplate error: %v", err)
	}
	if tpl.Title != "Dice" || tpl.Markup == "" || tpl.Style == "" || tpl.Script == "" {
		t.Fatalf("template not mapped: %#v", tpl)
	}
}

func TestClientOptionsUseStoredKey(t *testing.T) {
	if got := clientOptions(""); len(got) != 0 {
		t.Fatalf("no key must mean default credentials, got %d options", len(got))
	}
	if got := clientOptions("  "); len(got) != 0 {
		t.Fatalf("blank key must mean default credentials, got %d options", len(got))
	}
	if got := clientOptions("AIza-test"); len(got) != 1 {
		t.Fatalf("stored key must yield an auth option, got %d", len(got))
	}
}

func TestParseTemplateRejectsUntitled(t *testing.T) {
	if _, err := parseTemplate(`{"title":"","html":"x","css":"y","js":"z"}`); err == nil {
		t.Fatalf("expected error for missing title")
	}
	if _, err := parseTemplate(`not json`); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}
