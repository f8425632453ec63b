package humastar

import (
	"fmt"
	"strings"
)

// Action is a hypermedia action a response offers, sent as an RFC 8288
// Link header with method, title and type target attributes:
//
//	</api/v1/layers/nyc_subway_stations>; rel="edit"; method="PATCH"; title="Edit layer"
type Action struct {
	Rel    string
	Href   string
	Method string
	Title  string
	Type   string // media type of the target, if not JSON
}

// Actor is implemented by response bodies that carry actions.
type Actor interface {
	Actions() []Action
}

// LinkHeader formats the action as a Link header value.
func (a Action) LinkHeader() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<%s>; rel="%s"`, a.Href, a.Rel)
	for _, p := range [][2]string{{"method", a.Method}, {"title", a.Title}, {"type", a.Type}} {
		if p[1] != "" {
			fmt.Fprintf(&b, `; %s="%s"`, p[0], p[1])
		}
	}
	return b.String()
}

// ActionDef is an action template for one kind of resource. Pattern has a
// single %s for the resource id.
type ActionDef struct {
	Rel     string
	Pattern string
	Method  string
	Title   string
	Type    string
}

// ActionsFor expands defs for the resource id.
func ActionsFor(id string, defs []ActionDef) []Action {
	actions := make([]Action, 0, len(defs))
	for _, d := range defs {
		actions = append(actions, Action{
			Rel:    d.Rel,
			Href:   fmt.Sprintf(d.Pattern, id),
			Method: d.Method,
			Title:  d.Title,
			Type:   d.Type,
		})
	}
	return actions
}
