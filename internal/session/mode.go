package session

import (
	"fmt"
	"strings"
)

// Mode is the exclusive interaction the map is currently dedicated to.
type Mode int

const (
	// ModeNone is free browsing; cluster picks zoom the camera.
	ModeNone Mode = iota
	// ModeFeatures inspects the clicked vector feature locally.
	ModeFeatures
	// ModeAPI asks the spatial-query service about the clicked point.
	ModeAPI
)

func (m Mode) String() string {
	switch m {
	case ModeFeatures:
		return "features"
	case ModeAPI:
		return "api"
	default:
		return "none"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMode parses the wire name of a mode. The empty string is ModeNone.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ModeNone, nil
	case "features":
		return ModeFeatures, nil
	case "api":
		return ModeAPI, nil
	}
	return ModeNone, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// ModeController owns the current Mode. Every Set runs the reset hook so
// the overlay, options panel and highlight start clean in the new mode.
type ModeController struct {
	mode  Mode
	reset func()
}

// NewModeController starts in initial without running the reset hook.
func NewModeController(initial Mode, reset func()) *ModeController {
	return &ModeController{mode: initial, reset: reset}
}

// Set records m and resets the transient UI.
func (c *ModeController) Set(m Mode) {
	c.mode = m
	if c.reset != nil {
		c.reset()
	}
}

// Get returns the current mode.
func (c *ModeController) Get() Mode {
	return c.mode
}
