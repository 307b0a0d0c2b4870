/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"kastom/internal/storage"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetScreen PresetName = "screen"
	PresetPrint  PresetName = "print"
)

// BatchOptions runs multiple exporters in one pass.
//
// Path semantics:
//   - If OutDir is empty or relative, outputs land under
//     <dashboard>/exports/<preset>/.
//   - The PDF is named layout.pdf, the PNG layout.png.
type BatchOptions struct {
	Preset      PresetName
	Formats     []string // allowed: pdf, png; empty means preset defaults
	IncludeGrid *bool    // when set, overrides the preset default
	OutDir      string
}

// BatchExport runs exports according to the given preset.
func BatchExport(dh *storage.DashboardHandle, opt BatchOptions) error {
	if dh == nil {
		return fmt.Errorf("dashboard handle is nil")
	}

	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	for i := range formats {
		formats[i] = strings.ToLower(strings.TrimSpace(formats[i]))
	}

	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
	}
	if !filepath.IsAbs(baseOut) {
		baseOut = filepath.Join(dh.Root, "exports", baseOut)
	}

	grid := presetIncludeGrid(opt.Preset)
	if opt.IncludeGrid != nil {
		grid = *opt.IncludeGrid
	}

	for _, f := range formats {
		switch f {
		case "pdf":
			out := filepath.Join(baseOut, "layout.pdf")
			if err := ExportLayoutPDF(dh, out, PDFOptions{IncludeGrid: grid}); err != nil {
				return fmt.Errorf("pdf: %w", err)
			}
		case "png":
			out := filepath.Join(baseOut, "layout.png")
			if err := ExportLayoutPNG(dh, out, PNGOptions{IncludeGrid: grid}); err != nil {
				return fmt.Errorf("png: %w", err)
			}
		default:
			return fmt.Errorf("unknown format: %s", f)
		}
	}
	return nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetScreen:
		return []string{"png"}
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return []string{"pdf"}
	}
}

func presetIncludeGrid(p PresetName) bool {
	return p != PresetPrint
}
