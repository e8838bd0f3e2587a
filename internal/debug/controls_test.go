package debug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janessatran/portal/internal/colorx"
)

type recordingSink struct {
	calls []string
	clear colorx.RGB
	start colorx.RGB
	end   colorx.RGB
	size  float32
}

func (s *recordingSink) SetClearColor(c colorx.RGB) {
	s.calls = append(s.calls, ClearColor)
	s.clear = c
}

func (s *recordingSink) SetPortalColorStart(c colorx.RGB) {
	s.calls = append(s.calls, PortalColorStart)
	s.start = c
}

func (s *recordingSink) SetPortalColorEnd(c colorx.RGB) {
	s.calls = append(s.calls, PortalColorEnd)
	s.end = c
}

func (s *recordingSink) SetFireflySize(v float32) {
	s.calls = append(s.calls, FirefliesSize)
	s.size = v
}

func defaults() Params {
	return Params{
		ClearColor:       colorx.MustParse("#544054"),
		PortalColorStart: colorx.MustParse("#b2aada"),
		PortalColorEnd:   colorx.MustParse("#ffbb00"),
		FireflySize:      168,
	}
}

func TestControlsFor(t *testing.T) {
	names := func(cs []Control) []string {
		var out []string
		for _, c := range cs {
			out = append(out, c.Name)
		}
		return out
	}
	assert.Equal(t, []string{ClearColor, PortalColorStart, PortalColorEnd, FirefliesSize}, names(ControlsFor(true)))
	assert.Equal(t, []string{ClearColor}, names(ControlsFor(false)))

	size := ControlsFor(true)[3]
	assert.Equal(t, KindNumber, size.Kind)
	assert.Equal(t, 0.0, size.Min)
	assert.Equal(t, 500.0, size.Max)
	assert.Equal(t, 1.0, size.Step)
}

// Each control touches only its own piece of state.
func TestApplyTouchesOnlyItsTarget(t *testing.T) {
	controls := ControlsFor(true)
	tests := []struct {
		change Change
		check  func(t *testing.T, p Params, s *recordingSink)
	}{
		{
			change: Change{Name: ClearColor, Value: "#ffffff"},
			check: func(t *testing.T, p Params, s *recordingSink) {
				assert.Equal(t, colorx.White, s.clear)
				assert.Equal(t, colorx.White, p.ClearColor)
			},
		},
		{
			change: Change{Name: PortalColorStart, Value: "#000000"},
			check: func(t *testing.T, p Params, s *recordingSink) {
				assert.Equal(t, colorx.Black, s.start)
				assert.Equal(t, colorx.Black, p.PortalColorStart)
			},
		},
		{
			change: Change{Name: PortalColorEnd, Value: "#ff0000"},
			check: func(t *testing.T, p Params, s *recordingSink) {
				assert.Equal(t, colorx.RGB{R: 1}, s.end)
			},
		},
		{
			change: Change{Name: FirefliesSize, Value: 42.0},
			check: func(t *testing.T, p Params, s *recordingSink) {
				assert.Equal(t, float32(42), s.size)
				assert.Equal(t, float32(42), p.FireflySize)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.change.Name, func(t *testing.T) {
			p := defaults()
			before := p
			sink := &recordingSink{}
			require.NoError(t, Apply(&p, tt.change, controls, sink))
			assert.Equal(t, []string{tt.change.Name}, sink.calls)
			tt.check(t, p, sink)

			// Every other field is unchanged.
			v, _ := p.Value(tt.change.Name)
			bv, _ := before.Value(tt.change.Name)
			assert.NotEqual(t, bv, v)
			for _, c := range controls {
				if c.Name == tt.change.Name {
					continue
				}
				a, _ := p.Value(c.Name)
				b, _ := before.Value(c.Name)
				assert.Equal(t, b, a, c.Name)
			}
		})
	}
}

func TestApplyClampsAndSnapsSize(t *testing.T) {
	controls := ControlsFor(true)
	for in, want := range map[float64]float32{
		600:    500,
		-3:     0,
		167.6:  168,
		250.4:  250,
		0:      0,
		500:    500,
		499.99: 500,
	} {
		p := defaults()
		require.NoError(t, Apply(&p, Change{Name: FirefliesSize, Value: in}, controls, &recordingSink{}))
		assert.Equal(t, want, p.FireflySize, "input %v", in)
	}
}

func TestApplyRejects(t *testing.T) {
	tests := []struct {
		name     string
		change   Change
		controls []Control
		want     error
	}{
		{"unknown", Change{Name: "bloom", Value: 1.0}, ControlsFor(true), ErrUnknownControl},
		{"disabled without effects", Change{Name: FirefliesSize, Value: 1.0}, ControlsFor(false), ErrUnknownControl},
		{"bad color", Change{Name: ClearColor, Value: "#zzzzzz"}, ControlsFor(true), ErrInvalidValue},
		{"color as number", Change{Name: PortalColorEnd, Value: 3.0}, ControlsFor(true), ErrInvalidValue},
		{"size as string", Change{Name: FirefliesSize, Value: "big"}, ControlsFor(true), ErrInvalidValue},
		{"size nil", Change{Name: FirefliesSize}, ControlsFor(true), ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := defaults()
			sink := &recordingSink{}
			err := Apply(&p, tt.change, tt.controls, sink)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, defaults(), p)
			assert.Empty(t, sink.calls)
		})
	}
}

func TestValue(t *testing.T) {
	p := defaults()
	v, err := p.Value(ClearColor)
	require.NoError(t, err)
	assert.Equal(t, "#544054", v)
	v, err = p.Value(FirefliesSize)
	require.NoError(t, err)
	assert.Equal(t, 168.0, v)
	_, err = p.Value("nope")
	assert.ErrorIs(t, err, ErrUnknownControl)
}
