//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	fcanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"kastom/internal/bridge"
	cv "kastom/internal/canvas"
	"kastom/internal/catalog"
	"kastom/internal/config"
	"kastom/internal/crash"
	"kastom/internal/domain"
	"kastom/internal/export"
	"kastom/internal/gen"
	applog "kastom/internal/log"
	"kastom/internal/storage"
	"kastom/internal/store"
	"kastom/internal/telemetry"
	"kastom/internal/version"
)

// Run starts the Fyne-based desktop dashboard editor.
func Run(dashboardDir string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))
	telemetry.InitDefault()

	var dh *storage.DashboardHandle
	defer crash.RecoverHandle(&dh)

	cfg, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
		cfg = config.Defaults()
	}

	fyneApp := app.NewWithID("kastom")
	w := fyneApp.NewWindow("Kastom")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1280)
	winH := prefs.IntWithFallback("window.height", 860)
	if winW < 900 {
		winW = 900
	}
	if winH < 640 {
		winH = 640
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	st := store.New()
	status := widget.NewLabel("Ready")
	dc := NewDashboardCanvas(st)

	// The handle is swapped on the UI goroutine but read from bridge request
	// goroutines, so it only moves through these accessors.
	var handleMu sync.Mutex
	currentHandle := func() *storage.DashboardHandle {
		handleMu.Lock()
		defer handleMu.Unlock()
		return dh
	}
	setHandle := func(h *storage.DashboardHandle) {
		handleMu.Lock()
		dh = h
		handleMu.Unlock()
	}

	// Loopback bridge: sandbox documents and the save-state channel. Accepted
	// payloads are journaled to the dashboard's sqlite index.
	srv := bridge.New(st, storage.TeePayloads(currentHandle, st))
	bridgeAddr, err := srv.Start(cfg.Bridge.ListenAddr)
	if err != nil {
		return fmt.Errorf("start bridge: %w", err)
	}
	defer func() { _ = srv.Shutdown(context.Background()) }()
	dc.OnGestureTarget = func(id string, active bool) { srv.SetInert(id, active) }

	// Rebuild bookkeeping: the embedded context reloads only when identity,
	// code or appearance change. Payload-only updates must keep it alive.
	// The hook runs on whichever goroutine committed, so the tracker locks.
	tracker := newDocTracker()
	st.OnChange(func(ws []domain.Widget) {
		for _, id := range tracker.Apply(ws) {
			l.Debug("widget context rebuild", slog.String("widget_id", id))
		}
		fyne.Do(dc.Refresh)
	})

	dc.OnSelect = func(id string) {
		if id == "" {
			status.SetText(fmt.Sprintf("Ready — bridge %s", bridgeAddr))
			return
		}
		if wdg, ok := st.Get(id); ok {
			status.SetText(fmt.Sprintf("%s — %s", wdg.Title, id))
		}
	}

	// Generation service is available only when a project is configured.
	// The API key, when stored, comes from the OS keyring.
	var genSvc *gen.Service
	if cfg.Generation.Project != "" {
		adapter, aerr := gen.NewAdapter(context.Background(), cfg.Generation.Project, cfg.Generation.Location, cfg.Generation.Model, config.APIKey())
		if aerr != nil {
			l.Warn("generation unavailable", slog.Any("err", aerr))
		} else {
			genSvc = gen.NewService(adapter)
			defer func() { _ = adapter.Close() }()
		}
	}

	saveDashboard := func() {
		h := currentHandle()
		if h == nil {
			dialog.ShowInformation("Save", "No dashboard open.", w)
			return
		}
		h.Dashboard.Widgets = st.List()
		if err := storage.Save(h); err != nil {
			dialog.ShowError(fmt.Errorf("save dashboard: %w", err), w)
			return
		}
		tracker.MarkSaved()
		status.SetText("Saved " + h.ManifestPath)
	}

	openDashboard := func(dir string) {
		h, oerr := storage.Open(dir)
		if oerr != nil {
			dialog.ShowError(fmt.Errorf("open dashboard: %w", oerr), w)
			return
		}
		if _, jerr := storage.DetectAndRebuildJournal(context.Background(), h.Root, h.Dashboard); jerr != nil {
			l.Warn("journal unavailable, payload history disabled", slog.Any("err", jerr))
		} else if jerr := storage.SyncJournal(context.Background(), h.Root, h.Dashboard); jerr != nil {
			l.Warn("journal sync failed", slog.Any("err", jerr))
		}
		setHandle(h)
		st.Load(h.Dashboard.Widgets)
		tracker.Reset(h.Dashboard.Widgets)
		w.SetTitle("Kastom — " + h.Dashboard.Name)
		status.SetText(fmt.Sprintf("Opened %s (%d widgets), bridge %s", h.Root, st.Len(), bridgeAddr))
		telemetry.Event("dashboard_opened", map[string]any{"widgets": st.Len()})
		dc.Refresh()
	}

	addFromCatalog := func(key string) {
		tpl, ok := catalog.Get(key)
		if !ok {
			return
		}
		sz := dc.Size()
		wdg := st.Create(tpl, dc.view, float64(sz.Width), float64(sz.Height))
		dc.Select(wdg.ID)
		telemetry.Event("widget_created", map[string]any{"source": "catalog", "template": key})
	}

	generateWidget := func(prompt string) {
		if genSvc == nil {
			dialog.ShowInformation("Generate", "Generation is not configured. Set KST_GEN_PROJECT or the generation section of the config file.", w)
			return
		}
		status.SetText("Generating widget…")
		genSvc.GenerateAsync(context.Background(), prompt, func(res gen.Result) {
			fyne.Do(func() {
				if res.Err != nil {
					dialog.ShowError(fmt.Errorf("widget generation failed, try again"), w)
					status.SetText("Generation failed")
					l.Warn("generation failed", slog.Any("err", res.Err))
					return
				}
				sz := dc.Size()
				wdg := st.Create(res.Template, dc.view, float64(sz.Width), float64(sz.Height))
				dc.Select(wdg.ID)
				status.SetText("Generated " + res.Template.Title)
				telemetry.Event("widget_created", map[string]any{"source": "generated"})
			})
		})
	}

	previewWidget := func(id string) {
		if _, ok := st.Get(id); !ok {
			return
		}
		u, perr := url.Parse(fmt.Sprintf("http://%s/widgets/%s/doc", bridgeAddr, id))
		if perr != nil {
			return
		}
		if oerr := fyneApp.OpenURL(u); oerr != nil {
			dialog.ShowInformation("Preview", "Open this URL in a browser:\n"+u.String(), w)
		}
	}

	showAppearanceDialog := func(id string) {
		wdg, ok := st.Get(id)
		if !ok {
			return
		}
		bgEntry := widget.NewEntry()
		bgEntry.SetText(wdg.Appearance.BackgroundColor)
		fontEntry := widget.NewEntry()
		fontEntry.SetText(strconv.Itoa(wdg.Appearance.FontSize))
		radiusEntry := widget.NewEntry()
		radiusEntry.SetText(strconv.Itoa(wdg.Appearance.CornerRadius))
		items := []*widget.FormItem{
			widget.NewFormItem("Background", bgEntry),
			widget.NewFormItem("Font size", fontEntry),
			widget.NewFormItem("Corner radius", radiusEntry),
		}
		dialog.ShowForm("Appearance", "Apply", "Cancel", items, func(okPressed bool) {
			if !okPressed {
				return
			}
			ap := wdg.Appearance
			if v := strings.TrimSpace(bgEntry.Text); v != "" {
				ap.BackgroundColor = v
			}
			if n, perr := strconv.Atoi(strings.TrimSpace(fontEntry.Text)); perr == nil && n > 0 {
				ap.FontSize = n
			}
			if n, perr := strconv.Atoi(strings.TrimSpace(radiusEntry.Text)); perr == nil && n >= 0 {
				ap.CornerRadius = n
			}
			if uerr := st.UpdateAppearance(id, ap); uerr != nil {
				dialog.ShowError(uerr, w)
			}
		}, w)
	}

	withSelection := func(fn func(id string)) func() {
		return func() {
			id := dc.SelectedID()
			if id == "" {
				status.SetText("Select a widget first")
				return
			}
			fn(id)
		}
	}

	exportLayout := func(format string) {
		h := currentHandle()
		if h == nil {
			dialog.ShowInformation("Export", "No dashboard open.", w)
			return
		}
		h.Dashboard.Widgets = st.List()
		var eerr error
		switch format {
		case "pdf":
			eerr = export.ExportLayoutPDF(h, "layout.pdf", export.PDFOptions{IncludeGrid: true})
		case "png":
			eerr = export.ExportLayoutPNG(h, "layout.png", export.PNGOptions{IncludeGrid: true})
		}
		if eerr != nil {
			dialog.ShowError(eerr, w)
			return
		}
		status.SetText("Exported layout." + format + " under " + h.Root + "/exports")
	}

	// Menus
	addItems := make([]*fyne.MenuItem, 0, len(catalog.Keys()))
	for _, key := range catalog.Keys() {
		k := key
		tpl, _ := catalog.Get(k)
		addItems = append(addItems, fyne.NewMenuItem(tpl.Title, func() { addFromCatalog(k) }))
	}
	addMenu := fyne.NewMenuItem("Add Widget", nil)
	addMenu.ChildMenu = fyne.NewMenu("", addItems...)

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open…", func() {
			entry := widget.NewEntry()
			if h := currentHandle(); h != nil {
				entry.SetText(h.Root)
			}
			dialog.ShowForm("Open Dashboard", "Open", "Cancel",
				[]*widget.FormItem{widget.NewFormItem("Directory", entry)},
				func(okPressed bool) {
					if okPressed && strings.TrimSpace(entry.Text) != "" {
						openDashboard(strings.TrimSpace(entry.Text))
					}
				}, w)
		}),
		fyne.NewMenuItem("Save", saveDashboard),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export PDF", func() { exportLayout("pdf") }),
		fyne.NewMenuItem("Export PNG", func() { exportLayout("png") }),
	)
	widgetMenu := fyne.NewMenu("Widget",
		addMenu,
		fyne.NewMenuItem("Generate…", func() {
			entry := widget.NewEntry()
			entry.SetPlaceHolder("a pomodoro timer with start and reset")
			dialog.ShowForm("Generate Widget", "Generate", "Cancel",
				[]*widget.FormItem{widget.NewFormItem("Prompt", entry)},
				func(okPressed bool) {
					if okPressed && strings.TrimSpace(entry.Text) != "" {
						generateWidget(strings.TrimSpace(entry.Text))
					}
				}, w)
		}),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Duplicate", withSelection(func(id string) {
			if cp, derr := st.Duplicate(id); derr == nil {
				dc.Select(cp.ID)
			}
		})),
		fyne.NewMenuItem("Delete", withSelection(func(id string) {
			if derr := st.Delete(id); derr == nil {
				dc.Select("")
			}
		})),
		fyne.NewMenuItem("Bring to Front", withSelection(func(id string) { _ = st.BringToFront(id) })),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Appearance…", withSelection(showAppearanceDialog)),
		fyne.NewMenuItem("Preview in Browser", withSelection(previewWidget)),
	)
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", func() {
			dialog.ShowInformation("Kastom", "Kastom "+version.String()+"\nBridge: "+bridgeAddr, w)
		}),
	)
	w.SetMainMenu(fyne.NewMainMenu(fileMenu, widgetMenu, helpMenu))

	status.SetText("Ready — bridge " + bridgeAddr)
	w.SetContent(container.NewBorder(nil, status, nil, nil, dc))
	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		if h := currentHandle(); tracker.Dirty() && h != nil {
			h.Dashboard.Widgets = st.List()
			if serr := storage.Save(h); serr != nil {
				l.Error("save on close failed", slog.Any("err", serr))
			}
		}
	})

	if strings.TrimSpace(dashboardDir) != "" {
		openDashboard(dashboardDir)
	}

	w.ShowAndRun()
	return nil
}

// headerHeight is the drag band at the top of each frame, world units.
const headerHeight = 28.0

// handleSize is the square resize grip at the south-east corner, screen px.
const handleSize = float32(14)

// DashboardCanvas renders the widget frames on the infinite canvas and owns
// the pointer gesture state. World geometry lives in the store; this widget
// only maps it through the view transform.
type DashboardCanvas struct {
	widget.BaseWidget

	st      *store.Store
	view    cv.View
	gesture cv.Gesture

	selectedID string

	// OnSelect fires when the selection changes (id == "" on clear).
	OnSelect func(id string)
	// OnGestureTarget fires when a drag or resize starts or ends on a widget,
	// so the host can mark its embedded context inert.
	OnGestureTarget func(id string, active bool)
}

func NewDashboardCanvas(st *store.Store) *DashboardCanvas {
	dc := &DashboardCanvas{st: st, view: cv.DefaultView()}
	dc.ExtendBaseWidget(dc)
	return dc
}

func (d *DashboardCanvas) PreferredSize() fyne.Size { return fyne.NewSize(1000, 700) }

// SelectedID returns the currently selected widget id, or "".
func (d *DashboardCanvas) SelectedID() string { return d.selectedID }

// Select changes the selection and raises the widget.
func (d *DashboardCanvas) Select(id string) {
	d.selectedID = id
	if id != "" {
		_ = d.st.BringToFront(id)
	}
	if d.OnSelect != nil {
		d.OnSelect(id)
	}
	d.Refresh()
}

// View returns the current view transform.
func (d *DashboardCanvas) View() cv.View { return d.view }

func (d *DashboardCanvas) toScreen(world cv.Pt) fyne.Position {
	p := cv.ToScreen(world, d.view)
	return fyne.NewPos(float32(p.X), float32(p.Y))
}

func (d *DashboardCanvas) toWorld(pos fyne.Position) cv.Pt {
	return cv.ToWorld(cv.Pt{X: float64(pos.X), Y: float64(pos.Y)}, d.view)
}

// hitTest returns the topmost widget under the world point.
func (d *DashboardCanvas) hitTest(world cv.Pt) (domain.Widget, bool) {
	ws := d.st.List()
	for i := len(ws) - 1; i >= 0; i-- {
		w := ws[i]
		if world.X >= w.Position.X && world.X <= w.Position.X+w.Size.Width &&
			world.Y >= w.Position.Y && world.Y <= w.Position.Y+w.Size.Height {
			return w, true
		}
	}
	return domain.Widget{}, false
}

// inResizeHandle reports whether the screen position falls on the widget's
// south-east resize grip.
func (d *DashboardCanvas) inResizeHandle(pos fyne.Position, w domain.Widget) bool {
	corner := d.toScreen(cv.Pt{X: w.Position.X + w.Size.Width, Y: w.Position.Y + w.Size.Height})
	return pos.X >= corner.X-handleSize && pos.X <= corner.X &&
		pos.Y >= corner.Y-handleSize && pos.Y <= corner.Y
}

// Tapped selects the topmost widget under the pointer, or clears selection
// on empty canvas.
func (d *DashboardCanvas) Tapped(e *fyne.PointEvent) {
	if w, ok := d.hitTest(d.toWorld(e.Position)); ok {
		d.Select(w.ID)
		return
	}
	d.Select("")
}

// Dragged drives the gesture machine. The first event of a drag decides the
// gesture kind from what sits under the pointer; every later event streams
// through Move, which recomputes from the anchor so dropped events cannot
// cause drift.
func (d *DashboardCanvas) Dragged(e *fyne.DragEvent) {
	screen := cv.Pt{X: float64(e.Position.X), Y: float64(e.Position.Y)}
	if !d.gesture.Active() {
		start := fyne.NewPos(e.Position.X-e.Dragged.DX, e.Position.Y-e.Dragged.DY)
		startScreen := cv.Pt{X: float64(start.X), Y: float64(start.Y)}
		if w, ok := d.hitTest(d.toWorld(start)); ok {
			d.Select(w.ID)
			if d.inResizeHandle(start, w) {
				d.gesture.BeginResize(startScreen, w.ID, w.Size)
			} else {
				d.gesture.BeginDrag(startScreen, w.ID, w.Position)
			}
			if d.OnGestureTarget != nil {
				d.OnGestureTarget(w.ID, true)
			}
		} else {
			d.gesture.BeginPan(startScreen, d.view)
		}
	}

	upd, ok := d.gesture.Move(screen, d.view.Zoom)
	if !ok {
		return
	}
	switch upd.Kind {
	case cv.PanningCanvas:
		d.view.Pan = upd.Pan
	case cv.DraggingWidget:
		_ = d.st.UpdatePosition(upd.WidgetID, upd.Position)
	case cv.ResizingWidget:
		_ = d.st.UpdateSize(upd.WidgetID, upd.Size)
	}
	d.Refresh()
}

func (d *DashboardCanvas) DragEnd() {
	if id := d.gesture.WidgetID(); id != "" && d.OnGestureTarget != nil {
		d.OnGestureTarget(id, false)
	}
	d.gesture.End()
}

// Scrolled zooms about the pointer so the world point under the cursor stays
// put.
func (d *DashboardCanvas) Scrolled(e *fyne.ScrollEvent) {
	d.view = cv.ZoomAt(d.view, cv.Pt{X: float64(e.Position.X), Y: float64(e.Position.Y)}, float64(-e.Scrolled.DY))
	d.Refresh()
}

func (d *DashboardCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := fcanvas.NewRectangle(color.RGBA{R: 24, G: 24, B: 28, A: 255})

	selection := fcanvas.NewRectangle(color.RGBA{})
	selection.StrokeColor = color.RGBA{R: 0, G: 170, B: 255, A: 255}
	selection.StrokeWidth = 2
	selection.Hide()

	grip := fcanvas.NewRectangle(color.RGBA{R: 0, G: 170, B: 255, A: 255})
	grip.Hide()

	return &dashboardRenderer{dc: d, bg: bg, selection: selection, grip: grip}
}

// widgetFrame is the host chrome for one widget: body fill, header band and
// title text. The embedded document itself renders in the bridge-served
// sandbox, not here.
type widgetFrame struct {
	body   *fcanvas.Rectangle
	header *fcanvas.Rectangle
	title  *fcanvas.Text
}

func newWidgetFrame() *widgetFrame {
	body := fcanvas.NewRectangle(color.RGBA{R: 44, G: 44, B: 50, A: 255})
	body.StrokeColor = color.RGBA{R: 70, G: 70, B: 78, A: 255}
	body.StrokeWidth = 1
	header := fcanvas.NewRectangle(color.RGBA{R: 58, G: 58, B: 66, A: 255})
	title := fcanvas.NewText("", color.RGBA{R: 230, G: 230, B: 235, A: 255})
	return &widgetFrame{body: body, header: header, title: title}
}

func (f *widgetFrame) objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{f.body, f.header, f.title}
}

type dashboardRenderer struct {
	dc        *DashboardCanvas
	bg        *fcanvas.Rectangle
	frames    []*widgetFrame
	selection *fcanvas.Rectangle
	grip      *fcanvas.Rectangle
}

func (r *dashboardRenderer) Destroy() {}

func (r *dashboardRenderer) MinSize() fyne.Size { return r.dc.PreferredSize() }

func (r *dashboardRenderer) Objects() []fyne.CanvasObject {
	objs := make([]fyne.CanvasObject, 0, 3+3*len(r.frames))
	objs = append(objs, r.bg)
	for _, f := range r.frames {
		objs = append(objs, f.objects()...)
	}
	objs = append(objs, r.selection, r.grip)
	return objs
}

func (r *dashboardRenderer) Refresh() {
	r.Layout(r.dc.Size())
	fcanvas.Refresh(r.dc)
}

func (r *dashboardRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	ws := r.dc.st.List()
	for len(r.frames) < len(ws) {
		r.frames = append(r.frames, newWidgetFrame())
	}
	r.frames = r.frames[:len(ws)]

	zoom := float32(r.dc.view.Zoom)
	var selW domain.Widget
	selFound := false
	for i, w := range ws {
		f := r.frames[i]
		pos := r.dc.toScreen(cv.Pt{X: w.Position.X, Y: w.Position.Y})
		fw := float32(w.Size.Width) * zoom
		fh := float32(w.Size.Height) * zoom

		f.body.Move(pos)
		f.body.Resize(fyne.NewSize(fw, fh))
		f.body.CornerRadius = float32(w.Appearance.CornerRadius) * zoom
		if cr, cg, cb, ca, ok := export.ParseCSSColor(w.Appearance.BackgroundColor); ok && ca > 0 {
			f.body.FillColor = color.RGBA{R: uint8(cr), G: uint8(cg), B: uint8(cb), A: uint8(ca)}
		} else {
			f.body.FillColor = color.RGBA{R: 44, G: 44, B: 50, A: 255}
		}

		hh := float32(headerHeight) * zoom
		if hh > fh {
			hh = fh
		}
		f.header.Move(pos)
		f.header.Resize(fyne.NewSize(fw, hh))

		f.title.Text = w.Title
		f.title.TextSize = float32(w.Appearance.FontSize) * zoom
		f.title.Move(fyne.NewPos(pos.X+6*zoom, pos.Y+2*zoom))
		f.title.Refresh()

		if w.ID == r.dc.selectedID {
			selW = w
			selFound = true
		}
	}

	if selFound {
		pos := r.dc.toScreen(cv.Pt{X: selW.Position.X, Y: selW.Position.Y})
		fw := float32(selW.Size.Width) * zoom
		fh := float32(selW.Size.Height) * zoom
		r.selection.Move(pos)
		r.selection.Resize(fyne.NewSize(fw, fh))
		r.selection.Show()
		r.grip.Move(fyne.NewPos(pos.X+fw-handleSize, pos.Y+fh-handleSize))
		r.grip.Resize(fyne.NewSize(handleSize, handleSize))
		r.grip.Show()
	} else {
		r.selection.Hide()
		r.grip.Hide()
	}
}
