/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"kastom/internal/bridge"
	"kastom/internal/config"
	"kastom/internal/crash"
	"kastom/internal/domain"
	"kastom/internal/export"
	applog "kastom/internal/log"
	"kastom/internal/storage"
	"kastom/internal/store"
	"kastom/internal/telemetry"
	"kastom/internal/ui"
	"kastom/internal/version"
)

func usage() {
	fmt.Println("Kastom — widget dashboard editor")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  kastom version|-v|--version          Show version")
	fmt.Println("  kastom init <dir> <name>              Create a new dashboard at <dir> with name <name>")
	fmt.Println("  kastom open <dir>                     Open dashboard at <dir> and print summary")
	fmt.Println("  kastom save <dir>                     Save dashboard at <dir> (creates backup)")
	fmt.Println("  kastom export <dir> pdf|png           Export layout sheet under <dir>/exports")
	fmt.Println("  kastom serve <dir> [addr]             Serve widget documents over the local bridge")
	fmt.Println("  kastom key set <value>|clear|status   Manage the generation API key in the OS keyring")
	fmt.Println("  kastom ui [<dir>]                     Launch desktop UI (build with -tags fyne for full UI)")
}

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	telemetry.InitDefault()
	var dh *storage.DashboardHandle
	defer crash.RecoverHandle(&dh)

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("Kastom — widget dashboard editor")
			fmt.Println(version.String())
			return
		case "init":
			if len(args) < 4 {
				fmt.Println("init requires <dir> and <name>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			name := args[3]
			l.Info("init dashboard", slog.String("root", abs), slog.String("name", name))
			h, err := storage.InitDashboard(abs, domain.Dashboard{Name: name})
			if err != nil {
				l.Error("init failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			dh = h
			fmt.Println("Created dashboard at", abs)
			return
		case "open":
			if len(args) < 3 {
				fmt.Println("open requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			l.Info("open dashboard", slog.String("root", abs))
			h, err := storage.Open(abs)
			if err != nil {
				l.Error("open failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			dh = h
			fmt.Printf("Opened dashboard: %s\n", h.Dashboard.Name)
			fmt.Printf("Widgets: %d\n", len(h.Dashboard.Widgets))
			fmt.Println("Root:", h.Root)
			return
		case "save":
			if len(args) < 3 {
				fmt.Println("save requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			l.Info("save dashboard", slog.String("root", abs))
			h, err := storage.Open(abs)
			if err != nil {
				l.Error("open before save failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			dh = h
			if err := storage.Save(h); err != nil {
				l.Error("save failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Saved dashboard and created a backup of the previous manifest (if any).")
			return
		case "export":
			if len(args) < 4 {
				fmt.Println("export requires <dir> and a format (pdf or png)")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			format := args[3]
			h, err := storage.Open(abs)
			if err != nil {
				l.Error("open before export failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			dh = h
			switch format {
			case "pdf":
				err = export.ExportLayoutPDF(h, "layout.pdf", export.PDFOptions{IncludeGrid: true})
			case "png":
				err = export.ExportLayoutPNG(h, "layout.png", export.PNGOptions{IncludeGrid: true})
			default:
				fmt.Println("unknown format:", format)
				os.Exit(2)
			}
			if err != nil {
				l.Error("export failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Printf("Exported layout.%s under %s\n", format, filepath.Join(abs, "exports"))
			return
		case "serve":
			if len(args) < 3 {
				fmt.Println("serve requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			addr := "127.0.0.1:0"
			if len(args) >= 4 {
				addr = args[3]
			}
			h, err := storage.Open(abs)
			if err != nil {
				l.Error("open before serve failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			dh = h
			ctx := context.Background()
			if _, jerr := storage.DetectAndRebuildJournal(ctx, abs, h.Dashboard); jerr != nil {
				l.Warn("journal unavailable, payload history disabled", slog.Any("err", jerr))
			} else if jerr := storage.SyncJournal(ctx, abs, h.Dashboard); jerr != nil {
				l.Warn("journal sync failed", slog.Any("err", jerr))
			}
			st := store.New()
			st.Load(h.Dashboard.Widgets)
			srv := bridge.New(st, storage.TeePayloads(func() *storage.DashboardHandle { return h }, st))
			bound, err := srv.Start(addr)
			if err != nil {
				l.Error("serve failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Printf("Serving %d widgets on http://%s (Ctrl-C to stop and save)\n", st.Len(), bound)
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			// Stop the bridge before snapshotting so no request goroutine is
			// still mutating the store while the manifest is written.
			if serr := srv.Shutdown(ctx); serr != nil {
				l.Warn("bridge shutdown failed", slog.Any("err", serr))
			}
			h.Dashboard.Widgets = st.List()
			if err := storage.Save(h); err != nil {
				l.Error("save on shutdown failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Saved dashboard.")
			return
		case "key":
			if len(args) < 3 {
				fmt.Println("key requires set <value>, clear or status")
				usage()
				os.Exit(2)
			}
			switch args[2] {
			case "set":
				if len(args) < 4 || args[3] == "" {
					fmt.Println("key set requires a non-empty <value>")
					os.Exit(2)
				}
				if err := config.SetAPIKey(args[3]); err != nil {
					l.Error("store key failed", slog.Any("err", err))
					fmt.Println("Error:", err)
					os.Exit(1)
				}
				fmt.Println("Generation API key stored in the OS keyring.")
			case "clear":
				if err := config.SetAPIKey(""); err != nil {
					l.Error("clear key failed", slog.Any("err", err))
					fmt.Println("Error:", err)
					os.Exit(1)
				}
				fmt.Println("Generation API key removed from the OS keyring.")
			case "status":
				if config.APIKey() == "" {
					fmt.Println("No generation API key stored; the Vertex client will use application default credentials.")
				} else {
					fmt.Println("A generation API key is stored in the OS keyring.")
				}
			default:
				fmt.Println("unknown key action:", args[2])
				os.Exit(2)
			}
			return
		case "ui":
			var dir string
			if len(args) >= 3 {
				dir = args[2]
			}
			if err := ui.Run(dir); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}
