/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package runtime defines the contract between the host and a widget's
// sandboxed execution context: one-shot bootstrap injection on (re)build,
// and an asynchronous save-state channel back into the store.
package runtime

import (
	"encoding/json"
	"fmt"
	"strings"

	"kastom/internal/domain"
)

// DocumentOptions tunes how the bootstrap helper reports state back to the
// host. With a SaveEndpoint the helper POSTs the envelope there; otherwise
// it posts a message to the parent context (webview embedding). With an
// InertEndpoint the bootstrap polls it and drops pointer events while the
// host marks the widget inert.
type DocumentOptions struct {
	SaveEndpoint  string
	InertEndpoint string
}

// BuildDocument composes a fully self-contained sandbox document from a
// widget's code triple. Injected at construction time only: the widget id,
// the current payload (or null), and the appearance values on the root
// style. There is no live-update channel after bootstrap; a payload change
// alone must never force a rebuild (see NeedsRebuild).
func BuildDocument(w domain.Widget, opts DocumentOptions) string {
	payload := "null"
	if len(w.Payload) > 0 {
		payload = string(w.Payload)
	}
	// Values entering script or style context are JSON-escaped; the id is a
	// UUID and the appearance color a CSS color, but escaping costs nothing.
	idLit := jsString(w.ID)

	var b strings.Builder
	b.Grow(len(w.Code.Markup) + len(w.Code.Style) + len(w.Code.Script) + 2048)
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	b.WriteString("<style>\n")
	fmt.Fprintf(&b, `body {
  margin: 0;
  padding: 0;
  box-sizing: border-box;
  font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
  background-color: %s;
  font-size: %dpx;
  color: #fff;
  height: 100vh;
  width: 100vw;
  overflow: hidden;
}
::-webkit-scrollbar { width: 4px; height: 4px; }
::-webkit-scrollbar-thumb { background: #555; border-radius: 2px; }
* { box-sizing: border-box; }
`, cssColor(w.Appearance.BackgroundColor), w.Appearance.FontSize)
	b.WriteString("</style>\n<style>\n")
	b.WriteString(w.Code.Style)
	b.WriteString("\n</style>\n<script>\n")
	fmt.Fprintf(&b, "window.WIDGET_ID = %s;\n", idLit)
	fmt.Fprintf(&b, "window.WIDGET_DATA = %s;\n", payload)
	if opts.SaveEndpoint != "" {
		fmt.Fprintf(&b, `window.sendWidgetState = (data) => {
  fetch(%s, {
    method: "POST",
    headers: { "Content-Type": "application/json" },
    body: JSON.stringify({ kind: %s, widgetId: window.WIDGET_ID, payload: data })
  }).catch(() => {});
};
`, jsString(opts.SaveEndpoint), jsString(KindSaveState))
	} else {
		fmt.Fprintf(&b, `window.sendWidgetState = (data) => {
  window.parent.postMessage({ kind: %s, widgetId: window.WIDGET_ID, payload: data }, "*");
};
`, jsString(KindSaveState))
	}
	if opts.InertEndpoint != "" {
		// While a host gesture targets the widget, the document must not
		// swallow pointer events, or the drag stalls the moment the cursor
		// crosses the frame.
		fmt.Fprintf(&b, `(() => {
  const sync = () => {
    fetch(%s).then((r) => r.json()).then((s) => {
      document.body.style.pointerEvents = s.inert ? "none" : "auto";
    }).catch(() => {});
  };
  setInterval(sync, 150);
})();
`, jsString(opts.InertEndpoint))
	}
	b.WriteString("</script>\n</head>\n<body>\n")
	b.WriteString(w.Code.Markup)
	b.WriteString("\n<script>\ntry {\n")
	b.WriteString(w.Code.Script)
	// Faults inside the applet stay inside the sandbox and are reported in
	// its own rendered area, never silently dropped.
	b.WriteString(`
} catch (e) {
  console.error("Widget Runtime Error:", e);
  document.body.innerHTML += '<div style="color:red; padding:10px; font-size:12px;">Runtime Error: ' + e.message + '</div>';
}
</script>
</body>
</html>
`)
	return b.String()
}

func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

func cssColor(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "rgba(0,0,0,0)"
	}
	// Keep only characters valid in CSS color literals to block injection
	// through a crafted appearance value.
	var out strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out.WriteRune(r)
		case r == '#' || r == '(' || r == ')' || r == ',' || r == '.' || r == '%' || r == ' ':
			out.WriteRune(r)
		}
	}
	return out.String()
}
