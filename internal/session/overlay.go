package session

import "github.com/paulmach/orb"

// OverlayContent is the popup state. A nil Anchor means hidden.
type OverlayContent struct {
	Title  string     `json:"title"`
	Body   string     `json:"body"`
	Anchor *orb.Point `json:"anchor,omitempty"`
}

// OverlayPresenter owns the single feature popup.
type OverlayPresenter struct {
	content OverlayContent
}

// Show sets the popup text and anchors it at the given map coordinate.
// body may contain <br> markup; callers escape interpolated values.
func (o *OverlayPresenter) Show(title, body string, at orb.Point) {
	o.content = OverlayContent{Title: title, Body: body, Anchor: &at}
}

// Hide detaches the popup. The text is kept and overwritten on next Show.
func (o *OverlayPresenter) Hide() {
	o.content.Anchor = nil
}

func (o *OverlayPresenter) Visible() bool {
	return o.content.Anchor != nil
}

func (o *OverlayPresenter) Content() OverlayContent {
	return o.content
}

// OptionsPanel is the gear panel holding the search-property selector.
type OptionsPanel struct {
	open bool
}

func (p *OptionsPanel) Toggle() { p.open = !p.open }
func (p *OptionsPanel) Hide()   { p.open = false }
func (p *OptionsPanel) Open() bool {
	return p.open
}

// NotificationContent is the dismissible message used for draw results.
type NotificationContent struct {
	Message string `json:"message"`
	Visible bool   `json:"visible"`
}

// Notification is separate from the feature overlay so a measurement stays
// on screen while the user keeps inspecting features.
type Notification struct {
	content NotificationContent
}

func (n *Notification) Show(msg string) {
	n.content = NotificationContent{Message: msg, Visible: true}
}

func (n *Notification) Hide() {
	n.content.Visible = false
}

func (n *Notification) Content() NotificationContent {
	return n.content
}
