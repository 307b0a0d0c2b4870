package runtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"kastom/internal/domain"
)

func sampleWidget() domain.Widget {
	return domain.Widget{
		ID:    "11111111-2222-4333-8444-555555555555",
		Title: "Notebook",
		Code: domain.Code{
			Markup: `<textarea id="pad"></textarea>`,
			Style:  `#pad { width: 100%; }`,
			Script: `document.getElementById("pad").value = WIDGET_DATA ? WIDGET_DATA.text : "";`,
		},
		Payload:    json.RawMessage(`{"text":"hello"}`),
		Appearance: domain.Appearance{BackgroundColor: "#18181b", FontSize: 14, CornerRadius: 8},
	}
}

func TestBuildDocumentInjectsBootstrap(t *testing.T) {
	w := sampleWidget()
	doc := BuildDocument(w, DocumentOptions{})
	for _, want := range []string{
		`window.WIDGET_ID = "` + w.ID + `"`,
		`window.WIDGET_DATA = {"text":"hello"}`,
		`background-color: #18181b`,
		`font-size: 14px`,
		w.Code.Markup,
		w.Code.Style,
		w.Code.Script,
		`postMessage`,
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("document missing %q:\n%s", want, doc)
		}
	}
}

func TestBuildDocumentNullPayload(t *testing.T) {
	w := sampleWidget()
	w.Payload = nil
	doc := BuildDocument(w, DocumentOptions{})
	if !strings.Contains(doc, "window.WIDGET_DATA = null;") {
		t.Fatalf("absent payload must inject null")
	}
}

func TestBuildDocumentHTTPEndpoint(t *testing.T) {
	doc := BuildDocument(sampleWidget(), DocumentOptions{SaveEndpoint: "/bridge/message"})
	if !strings.Contains(doc, `fetch("/bridge/message"`) {
		t.Fatalf("endpoint helper missing:\n%s", doc)
	}
	if strings.Contains(doc, "postMessage") {
		t.Fatalf("endpoint build must not fall back to postMessage")
	}
}

func TestBuildDocumentInertPolling(t *testing.T) {
	w := sampleWidget()
	doc := BuildDocument(w, DocumentOptions{
		SaveEndpoint:  "/bridge/message",
		InertEndpoint: "/widgets/" + w.ID + "/inert",
	})
	for _, want := range []string{
		`fetch("/widgets/` + w.ID + `/inert")`,
		`document.body.style.pointerEvents`,
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("inert poll missing %q:\n%s", want, doc)
		}
	}
	// A webview embedding controls input delivery itself; no poller there.
	plain := BuildDocument(w, DocumentOptions{})
	if strings.Contains(plain, "pointerEvents") {
		t.Fatalf("poller must only be injected when an endpoint is configured")
	}
}

func TestBuildDocumentWrapsScriptErrors(t *testing.T) {
	doc := BuildDocument(sampleWidget(), DocumentOptions{})
	if !strings.Contains(doc, "try {") || !strings.Contains(doc, "Runtime Error:") {
		t.Fatalf("script error trap missing")
	}
}

func TestCSSColorStripsHostileInput(t *testing.T) {
	got := cssColor(`red; } </style><script>alert(1)</script>`)
	if strings.ContainsAny(got, `<>;{}"'`) {
		t.Fatalf("hostile characters survived: %q", got)
	}
}

type recordingSink struct {
	id      string
	payload json.RawMessage
	calls   int
	err     error
}

func (r *recordingSink) UpdatePayload(id string, p json.RawMessage) (bool, error) {
	r.calls++
	if r.err != nil {
		return false, r.err
	}
	r.id = id
	r.payload = append(json.RawMessage(nil), p...)
	return true, nil
}

func TestDispatchSaveState(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink)
	d.Dispatch(Envelope{Kind: KindSaveState, WidgetID: "w1", Payload: json.RawMessage(`{"n":1}`)})
	if sink.id != "w1" || string(sink.payload) != `{"n":1}` {
		t.Fatalf("sink not updated: %+v", sink)
	}
}

func TestDispatchDropsUnknownKindAndMissingID(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink)
	d.Dispatch(Envelope{Kind: "telemetry_ping", WidgetID: "w1"})
	d.Dispatch(Envelope{Kind: KindSaveState})
	if sink.calls != 0 {
		t.Fatalf("malformed envelopes must not reach the sink")
	}
}

func TestDispatchToleratesUnknownWidget(t *testing.T) {
	sink := &recordingSink{err: fmt.Errorf("widget w-gone not found")}
	d := NewDispatcher(sink)
	// Must not panic or propagate; stale saves for deleted widgets happen.
	d.Dispatch(Envelope{Kind: KindSaveState, WidgetID: "w-gone", Payload: json.RawMessage(`1`)})
}

func TestDispatchRawMalformedJSON(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink)
	d.DispatchRaw([]byte(`{"kind": "save_state"`))
	if sink.calls != 0 {
		t.Fatalf("unparseable message reached the sink")
	}
}

func TestNeedsRebuildMatrix(t *testing.T) {
	base := sampleWidget()

	payloadOnly := base
	payloadOnly.Payload = json.RawMessage(`{"text":"changed"}`)
	if NeedsRebuild(base, payloadOnly) {
		t.Fatalf("payload-only change must not rebuild")
	}

	layoutOnly := base
	layoutOnly.Position = domain.Point{X: 500, Y: 500}
	layoutOnly.Size = domain.Size{Width: 640, Height: 480}
	layoutOnly.StackOrder = 99
	if NeedsRebuild(base, layoutOnly) {
		t.Fatalf("layout change must not rebuild")
	}

	scriptChange := base
	scriptChange.Code.Script = "/* new */"
	if !NeedsRebuild(base, scriptChange) {
		t.Fatalf("script change must rebuild")
	}

	appearanceChange := base
	appearanceChange.Appearance.FontSize = 22
	if !NeedsRebuild(base, appearanceChange) {
		t.Fatalf("appearance change must rebuild")
	}

	idChange := base
	idChange.ID = "other"
	if !NeedsRebuild(base, idChange) {
		t.Fatalf("id change must rebuild")
	}

	// Copy-on-write: a fresh but equal snapshot must compare equal by value.
	clone := base.Clone()
	if NeedsRebuild(base, clone) {
		t.Fatalf("structurally equal snapshots must not rebuild")
	}
}
