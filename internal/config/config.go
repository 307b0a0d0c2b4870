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
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal, so newer files load on older builds.

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
}

type GenerationConfig struct {
	Project  string `yaml:"project"`
	Location string `yaml:"location"`
	Model    string `yaml:"model"`
	// The API key is not stored on disk; it lives in the OS keychain.
}

type BridgeConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int              `yaml:"config_version"`
	General       GeneralConfig    `yaml:"general"`
	Generation    GenerationConfig `yaml:"generation"`
	Bridge        BridgeConfig     `yaml:"bridge"`
	Logging       LoggingConfig    `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system"},
		Generation:    GenerationConfig{Project: "", Location: "us-central1", Model: "gemini-1.5-flash"},
		Bridge:        BridgeConfig{ListenAddr: "127.0.0.1:0"},
		Logging:       LoggingConfig{Level: "info", Format: "console", File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvTelemetryOptIn = "KST_TELEMETRY_OPT_IN"
	EnvGenProject     = "KST_GEN_PROJECT"
	EnvGenLocation    = "KST_GEN_LOCATION"
	EnvGenModel       = "KST_GEN_MODEL"
	EnvBridgeAddr     = "KST_BRIDGE_ADDR"
	EnvLogLevel       = "KST_LOG_LEVEL"
	EnvLogFormat      = "KST_LOG_FORMAT"
	EnvLogFile        = "KST_LOG_FILE"
)

// Service/keys for the OS keyring.
const (
	keyringService = "Kastom"
	keyringAPIKey  = "generation_api_key"
)

// tokenStore abstracts the keyring so tests can stub it.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) {
	return keyring.Get(service, key)
}
func (osKeyring) Set(service, key, value string) error {
	return keyring.Set(service, key, value)
}
func (osKeyring) Delete(service, key string) error {
	return keyring.Delete(service, key)
}

// APIKey returns the generation API key from the OS keyring, or "" when unset.
func APIKey() string {
	v, err := tokenStore.Get(keyringService, keyringAPIKey)
	if err != nil {
		return ""
	}
	return v
}

// SetAPIKey stores or clears the generation API key in the OS keyring.
func SetAPIKey(value string) error {
	if value == "" {
		err := tokenStore.Delete(keyringService, keyringAPIKey)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	return tokenStore.Set(keyringService, keyringAPIKey, value)
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Kastom")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Kastom")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "kastom")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from the file so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if strings.TrimSpace(src.Generation.Project) != "" {
		dst.Generation.Project = strings.TrimSpace(src.Generation.Project)
	}
	if strings.TrimSpace(src.Generation.Location) != "" {
		dst.Generation.Location = strings.TrimSpace(src.Generation.Location)
	}
	if strings.TrimSpace(src.Generation.Model) != "" {
		dst.Generation.Model = strings.TrimSpace(src.Generation.Model)
	}
	if strings.TrimSpace(src.Bridge.ListenAddr) != "" {
		dst.Bridge.ListenAddr = strings.TrimSpace(src.Bridge.ListenAddr)
	}
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvGenProject)); v != "" {
		cfg.Generation.Project = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvGenLocation)); v != "" {
		cfg.Generation.Location = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvGenModel)); v != "" {
		cfg.Generation.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBridgeAddr)); v != "" {
		cfg.Bridge.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func parseBool(v string) bool {
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	lv := strings.ToLower(v)
	return lv == "on" || lv == "yes"
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	var name string
	switch key {
	case "general.telemetry_opt_in":
		name = EnvTelemetryOptIn
	case "generation.project":
		name = EnvGenProject
	case "generation.location":
		name = EnvGenLocation
	case "generation.model":
		name = EnvGenModel
	case "bridge.listen_addr":
		name = EnvBridgeAddr
	case "logging.level":
		name = EnvLogLevel
	case "logging.format":
		name = EnvLogFormat
	case "logging.file":
		name = EnvLogFile
	default:
		return "", false
	}
	if os.Getenv(name) != "" {
		return name, true
	}
	return "", false
}
