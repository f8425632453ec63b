// Package humastar carries map-session actions between Huma operations and
// Datastar: a handler posts its signals as the request body, and the answer
// is an SSE stream of element patches, signal patches and page calls.
//
//	func (h *Handler) Clear(ctx context.Context, in *humastar.SignalsInput) (*huma.StreamResponse, error) {
//		signals, err := in.MustParse()
//		...
//		return h.Stream(func(sse humastar.SSE) {
//			sse.Patch(h.Render("overlay", view), "#overlay")
//		}), nil
//	}
package humastar

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/nycmap/internal/templates"
)

// Handler is embedded by Huma handlers that answer with Datastar SSE.
type Handler struct {
	Renderer *templates.Renderer
}

// Stream answers the request with the events fn sends.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			fn(newSSE(humaCtx))
		},
	}
}

// Render renders a named template. A failed render yields "".
func (h *Handler) Render(name string, data any) string {
	s, err := h.Renderer.Render(name, data)
	if err != nil {
		return ""
	}
	return s
}

// RenderList renders each item with tmpl, or the empty-state fragment.
func (h *Handler) RenderList(tmpl string, items []any, emptyTitle, emptyMsg string) string {
	return RenderList(h.Renderer, tmpl, items, emptyTitle, emptyMsg)
}

// SSE is the Datastar event stream of one response.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

func newSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch replaces the children of the element matching selector.
func (s SSE) Patch(html, selector string) {
	s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeInner(),
	)
}

// Error sets the page's $error signal.
func (s SSE) Error(msg string) {
	s.MarshalAndPatchSignals(map[string]any{"error": msg})
}

// Signals merges signals into the page's signal store.
func (s SSE) Signals(signals map[string]any) {
	s.MarshalAndPatchSignals(signals)
}

// Call runs fn(args...) in the page, each argument encoded as JSON.
func (s SSE) Call(fn string, args ...any) error {
	var b bytes.Buffer
	b.WriteString(fn)
	b.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		data, err := json.Marshal(a)
		if err != nil {
			return err
		}
		b.Write(data)
	}
	b.WriteByte(')')
	return s.ExecuteScript(b.String())
}

// Signals is the signal object Datastar posts with an action.
type Signals map[string]any

// ParseSignals decodes a posted signal object.
func ParseSignals(body []byte) (Signals, error) {
	var signals Signals
	if err := json.Unmarshal(body, &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

// String returns the signal as a string, or "" when it is missing or not a
// string.
func (s Signals) String(key string) string {
	str, _ := s[key].(string)
	return str
}

// Int returns the signal as an int. ok is false when the signal is missing
// or not a whole number; JSON numbers arrive as float64.
func (s Signals) Int(key string) (n int, ok bool) {
	f, isNum := s[key].(float64)
	if !isNum || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// Decode unmarshals a nested signal value into v.
func (s Signals) Decode(key string, v any) error {
	data, err := json.Marshal(s[key])
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// SignalsInput takes the raw signal object as the request body.
type SignalsInput struct {
	RawBody []byte
}

// MustParse decodes the body, failing with 400 when it is not a JSON object.
func (i *SignalsInput) MustParse() (Signals, error) {
	signals, err := ParseSignals(i.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("Malformed signals: " + err.Error())
	}
	return signals, nil
}

// SelectOptionData is one <option> of the "select-option" fragment.
type SelectOptionData struct {
	Value    string
	Label    string
	Selected bool
}

// RenderList renders each item with tmpl, or the empty-state fragment when
// there are none. Fragments that fail to render are left out.
func RenderList(r *templates.Renderer, tmpl string, items []any, emptyTitle, emptyMsg string) string {
	var buf bytes.Buffer
	if len(items) == 0 {
		_ = r.RenderToBuffer(&buf, "empty-state", map[string]string{"Title": emptyTitle, "Message": emptyMsg})
		return buf.String()
	}
	for _, item := range items {
		_ = r.RenderToBuffer(&buf, tmpl, item)
	}
	return buf.String()
}
