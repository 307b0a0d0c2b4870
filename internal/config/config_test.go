/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestEnvOverridesGeneration(t *testing.T) {
	oldProj := os.Getenv(EnvGenProject)
	oldModel := os.Getenv(EnvGenModel)
	_ = os.Setenv(EnvGenProject, "demo-project")
	_ = os.Setenv(EnvGenModel, "gemini-1.5-pro")
	t.Cleanup(func() {
		_ = os.Setenv(EnvGenProject, oldProj)
		_ = os.Setenv(EnvGenModel, oldModel)
	})
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Generation.Project, "demo-project"; got != want {
		t.Fatalf("Generation.Project = %q, want %q", got, want)
	}
	if got, want := cfg.Generation.Model, "gemini-1.5-pro"; got != want {
		t.Fatalf("Generation.Model = %q, want %q", got, want)
	}
}

func TestEnvOverridesTelemetry(t *testing.T) {
	old := os.Getenv(EnvTelemetryOptIn)
	_ = os.Setenv(EnvTelemetryOptIn, "true")
	t.Cleanup(func() { _ = os.Setenv(EnvTelemetryOptIn, old) })
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("General.TelemetryOptIn expected true from env override")
	}
}

func TestMergeIncludesBridgeAddr(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Bridge.ListenAddr = "127.0.0.1:7642"
	mergeInto(&dst, &src)
	if dst.Bridge.ListenAddr != "127.0.0.1:7642" {
		t.Fatalf("bridge listen addr not merged from file config: %#v", dst.Bridge)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "debug"
	src.Logging.Format = "json"
	src.Logging.File = "C:/tmp/kst.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || dst.Logging.File != "C:/tmp/kst.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	oldLevel := os.Getenv(EnvLogLevel)
	oldFmt := os.Getenv(EnvLogFormat)
	oldFile := os.Getenv(EnvLogFile)
	_ = os.Setenv(EnvLogLevel, "error")
	_ = os.Setenv(EnvLogFormat, "json")
	_ = os.Setenv(EnvLogFile, "X:/kst.log")
	t.Cleanup(func() {
		_ = os.Setenv(EnvLogLevel, oldLevel)
		_ = os.Setenv(EnvLogFormat, oldFmt)
		_ = os.Setenv(EnvLogFile, oldFile)
	})
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || cfg.Logging.File != "X:/kst.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

type fakeStore struct {
	values map[string]string
	errGet error
}

func (f *fakeStore) Get(service, key string) (string, error) {
	if f.errGet != nil {
		return "", f.errGet
	}
	v, ok := f.values[service+"/"+key]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}
func (f *fakeStore) Set(service, key, value string) error {
	f.values[service+"/"+key] = value
	return nil
}
func (f *fakeStore) Delete(service, key string) error {
	k := service + "/" + key
	if _, ok := f.values[k]; !ok {
		return keyring.ErrNotFound
	}
	delete(f.values, k)
	return nil
}

func withFakeStore(t *testing.T, f *fakeStore) {
	t.Helper()
	old := tokenStore
	tokenStore = f
	t.Cleanup(func() { tokenStore = old })
}

func TestAPIKeyRoundTrip(t *testing.T) {
	withFakeStore(t, &fakeStore{values: map[string]string{}})
	if got := APIKey(); got != "" {
		t.Fatalf("APIKey() on empty keyring = %q, want empty", got)
	}
	if err := SetAPIKey("sekret"); err != nil {
		t.Fatalf("SetAPIKey error: %v", err)
	}
	if got := APIKey(); got != "sekret" {
		t.Fatalf("APIKey() = %q, want %q", got, "sekret")
	}
	if err := SetAPIKey(""); err != nil {
		t.Fatalf("SetAPIKey(\"\") error: %v", err)
	}
	if got := APIKey(); got != "" {
		t.Fatalf("APIKey() after clear = %q, want empty", got)
	}
}

func TestSetAPIKeyClearMissingIsNoError(t *testing.T) {
	withFakeStore(t, &fakeStore{values: map[string]string{}})
	if err := SetAPIKey(""); err != nil {
		t.Fatalf("clearing an absent key should be a no-op, got: %v", err)
	}
}

func TestAPIKeyKeyringFailure(t *testing.T) {
	withFakeStore(t, &fakeStore{errGet: errors.New("locked")})
	if got := APIKey(); got != "" {
		t.Fatalf("APIKey() on keyring failure = %q, want empty", got)
	}
}
