// Package debug holds the tweakable scene parameters exposed to the debug
// panel and the rules for applying changes to them.
package debug

import (
	"errors"
	"fmt"
	"math"

	"github.com/janessatran/portal/internal/colorx"
)

var (
	ErrUnknownControl = errors.New("unknown control")
	ErrInvalidValue   = errors.New("invalid control value")
)

// Control names.
const (
	ClearColor       = "clearColor"
	PortalColorStart = "portalColorStart"
	PortalColorEnd   = "portalColorEnd"
	FirefliesSize    = "firefliesSize"
)

type Kind string

const (
	KindColor  Kind = "color"
	KindNumber Kind = "number"
)

// Control describes one panel row. Min, Max and Step only apply to numbers.
type Control struct {
	Name string  `json:"name"`
	Kind Kind    `json:"kind"`
	Min  float64 `json:"min,omitempty"`
	Max  float64 `json:"max,omitempty"`
	Step float64 `json:"step,omitempty"`
}

var (
	clearColorControl = Control{Name: ClearColor, Kind: KindColor}
	portalStart       = Control{Name: PortalColorStart, Kind: KindColor}
	portalEnd         = Control{Name: PortalColorEnd, Kind: KindColor}
	firefliesSize     = Control{Name: FirefliesSize, Kind: KindNumber, Min: 0, Max: 500, Step: 1}
)

// ControlsFor lists the controls in panel order. Without effects there is
// no portal shader and no fireflies, so only the clear color is tweakable.
func ControlsFor(effects bool) []Control {
	if !effects {
		return []Control{clearColorControl}
	}
	return []Control{clearColorControl, portalStart, portalEnd, firefliesSize}
}

// Params are the current control values.
type Params struct {
	ClearColor       colorx.RGB
	PortalColorStart colorx.RGB
	PortalColorEnd   colorx.RGB
	FireflySize      float32
}

// Value returns the wire value of the named control: a hex string for
// colors, a number otherwise.
func (p Params) Value(name string) (interface{}, error) {
	switch name {
	case ClearColor:
		return p.ClearColor.Hex(), nil
	case PortalColorStart:
		return p.PortalColorStart.Hex(), nil
	case PortalColorEnd:
		return p.PortalColorEnd.Hex(), nil
	case FirefliesSize:
		return float64(p.FireflySize), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownControl, name)
}

// Sink receives validated changes. Each setter touches exactly one piece of
// scene state.
type Sink interface {
	SetClearColor(colorx.RGB)
	SetPortalColorStart(colorx.RGB)
	SetPortalColorEnd(colorx.RGB)
	SetFireflySize(float32)
}

// Change is a request to set one control.
type Change struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// Apply validates c against the enabled controls, updates p and forwards
// the new value to sink. A rejected change leaves both untouched.
func Apply(p *Params, c Change, controls []Control, sink Sink) error {
	ctl, ok := lookup(controls, c.Name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownControl, c.Name)
	}
	switch ctl.Kind {
	case KindColor:
		s, ok := c.Value.(string)
		if !ok {
			return fmt.Errorf("%w: %s wants a color string, got %T", ErrInvalidValue, c.Name, c.Value)
		}
		col, err := colorx.Parse(s)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidValue, c.Name, err)
		}
		switch c.Name {
		case ClearColor:
			p.ClearColor = col
			sink.SetClearColor(col)
		case PortalColorStart:
			p.PortalColorStart = col
			sink.SetPortalColorStart(col)
		case PortalColorEnd:
			p.PortalColorEnd = col
			sink.SetPortalColorEnd(col)
		}
	case KindNumber:
		v, ok := toFloat(c.Value)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s wants a number, got %v", ErrInvalidValue, c.Name, c.Value)
		}
		v = ctl.Snap(v)
		p.FireflySize = float32(v)
		sink.SetFireflySize(float32(v))
	}
	return nil
}

// Snap clamps v to [Min, Max] and rounds it to the nearest Step.
func (c Control) Snap(v float64) float64 {
	if c.Step > 0 {
		v = c.Min + math.Round((v-c.Min)/c.Step)*c.Step
	}
	return math.Max(c.Min, math.Min(c.Max, v))
}

func lookup(controls []Control, name string) (Control, bool) {
	for _, c := range controls {
		if c.Name == name {
			return c, true
		}
	}
	return Control{}, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	}
	return 0, false
}
