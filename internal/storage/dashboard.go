/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"log/slog"

	"kastom/internal/domain"
	applog "kastom/internal/log"
	"kastom/internal/store"
)

const (
	ManifestFileName = "dashboard.json"
	BackupsDirName   = "backups"
)

// Standard subfolders scaffolded next to the manifest.
var standardSubDirs = []string{
	"exports",
	BackupsDirName,
}

// DashboardHandle keeps track of the dashboard state loaded/saved from disk.
// Root is the dashboard directory containing dashboard.json and subfolders.
// Dashboard holds the in-memory representation of the manifest.
type DashboardHandle struct {
	Root         string
	ManifestPath string
	Dashboard    domain.Dashboard
}

// manifest is the on-disk form. Widgets stay raw on read so forward-compatible
// decoding can substitute defaults for records written by older builds.
type manifest struct {
	Name    string          `json:"name"`
	Widgets json.RawMessage `json:"widgets"`
}

// InitDashboard creates a new dashboard directory at root (creating it if it doesn't exist),
// scaffolds the standard subfolders, and writes the given manifest file transactionally.
func InitDashboard(root string, d domain.Dashboard) (*DashboardHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create dashboard root: %w", err)
	}
	for _, sub := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", sub, err)
		}
	}

	dh := &DashboardHandle{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestFileName),
		Dashboard:    d,
	}
	if err := Save(dh); err != nil {
		return nil, err
	}
	return dh, nil
}

// Open loads an existing dashboard from the given root directory.
// If the current manifest cannot be parsed, it will attempt the last backup;
// with no usable backup the parse failure is logged and the handle starts
// with an empty dashboard so the user still gets a blank canvas. A missing
// manifest is a different case: the directory is not a dashboard at all,
// and Open returns an error.
func Open(root string) (*DashboardHandle, error) {
	mpath := filepath.Join(root, ManifestFileName)
	b, err := os.ReadFile(mpath)
	if err != nil {
		d, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("open manifest: %w; backup attempt: %v", err, berr)
		}
		return &DashboardHandle{Root: root, ManifestPath: mpath, Dashboard: *d}, nil
	}
	d, uerr := decodeManifest(b)
	if uerr != nil {
		bd, berr := openFromLatestBackup(root)
		if berr != nil {
			applog.WithComponent("storage").Warn("manifest unreadable and no usable backup, starting empty",
				slog.String("root", root), slog.Any("err", uerr), slog.Any("backup_err", berr))
			return &DashboardHandle{Root: root, ManifestPath: mpath}, nil
		}
		return &DashboardHandle{Root: root, ManifestPath: mpath, Dashboard: *bd}, nil
	}
	return &DashboardHandle{Root: root, ManifestPath: mpath, Dashboard: *d}, nil
}

func decodeManifest(b []byte) (*domain.Dashboard, error) {
	var m manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	d := domain.Dashboard{Name: m.Name}
	if len(m.Widgets) > 0 {
		ws, err := store.Deserialize(m.Widgets)
		if err != nil {
			return nil, err
		}
		d.Widgets = ws
	}
	return &d, nil
}

// Save writes the current DashboardHandle.Dashboard to disk with transactional semantics
// and a timestamped backup of the previous manifest (if present).
func Save(dh *DashboardHandle) error {
	if dh == nil {
		return errors.New("nil DashboardHandle")
	}
	if dh.Root == "" || dh.ManifestPath == "" {
		return errors.New("invalid DashboardHandle: missing paths")
	}
	// Marshal in human-readable form
	data, err := json.MarshalIndent(dh.Dashboard, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	// Ensure backups dir exists
	bdir := filepath.Join(dh.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}

	// If a current manifest exists, copy it to a timestamped backup before replacing
	if _, statErr := os.Stat(dh.ManifestPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405")
		bname := fmt.Sprintf("%s.%s.bak", ManifestFileName, stamp)
		bpath := filepath.Join(bdir, bname)
		if cerr := copyFile(dh.ManifestPath, bpath); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
	}

	// Transactional write: to temp file in same directory, then rename over target
	dir := filepath.Dir(dh.ManifestPath)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", ManifestFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp manifest: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(dh.ManifestPath); err == nil {
		_ = os.Remove(dh.ManifestPath)
	}
	if rerr := os.Rename(temp, dh.ManifestPath); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace manifest: %w", rerr)
	}
	return nil
}

// SaveAs writes the manifest to a new root folder, scaffolding structure if needed, and updates the handle.
func SaveAs(dh *DashboardHandle, newRoot string) error {
	if dh == nil {
		return errors.New("nil DashboardHandle")
	}
	if newRoot == "" {
		return errors.New("new root is empty")
	}
	if err := os.MkdirAll(newRoot, 0o755); err != nil {
		return fmt.Errorf("create new root: %w", err)
	}
	for _, sub := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(newRoot, sub), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", sub, err)
		}
	}
	dh.Root = newRoot
	dh.ManifestPath = filepath.Join(newRoot, ManifestFileName)
	return Save(dh)
}

// AutosaveCrashSnapshot writes the in-memory dashboard to a timestamped snapshot
// in the backups folder without touching the current manifest. Used by the crash
// handler, so it avoids the regular Save path entirely.
func AutosaveCrashSnapshot(dh *DashboardHandle) (string, error) {
	if dh == nil {
		return "", errors.New("nil DashboardHandle")
	}
	if dh.Root == "" {
		return "", errors.New("invalid DashboardHandle: missing root")
	}
	bdir := filepath.Join(dh.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	data, err := json.MarshalIndent(dh.Dashboard, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	data = append(data, '\n')
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(bdir, fmt.Sprintf("autosave-crash-%s.json", stamp))
	if err := writeFileSync(path, data); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// writeFileSync writes data to a file and ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	if err := df.Sync(); err != nil {
		return err
	}
	return nil
}

// openFromLatestBackup tries to open the latest timestamped backup.
func openFromLatestBackup(root string) (*domain.Dashboard, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	latest := candidates[len(candidates)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	d, err := decodeManifest(b)
	if err != nil {
		return nil, fmt.Errorf("parse latest backup: %w", err)
	}
	return d, nil
}
