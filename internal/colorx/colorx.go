// Package colorx parses CSS-style color strings into shader-ready RGB.
package colorx

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB holds normalized sRGB channels in [0, 1].
type RGB struct {
	R, G, B float32
}

var (
	White = RGB{1, 1, 1}
	Black = RGB{}
)

// Parse accepts "#rgb", "#rrggbb", "0xrrggbb", "rgb(r, g, b)",
// "hsl(h, s%, l%)" and "hsla(h, s%, l%, a)". Alpha is ignored.
func Parse(s string) (RGB, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(in, "#"):
		c, err := colorful.Hex(in)
		if err != nil {
			return RGB{}, fmt.Errorf("parse color %q: %w", s, err)
		}
		return fromColorful(c), nil
	case strings.HasPrefix(in, "0x"):
		c, err := colorful.Hex("#" + in[2:])
		if err != nil {
			return RGB{}, fmt.Errorf("parse color %q: %w", s, err)
		}
		return fromColorful(c), nil
	case strings.HasPrefix(in, "hsl"):
		args, err := functionArgs(in, "hsla", "hsl")
		if err != nil {
			return RGB{}, fmt.Errorf("parse color %q: %w", s, err)
		}
		h, err1 := number(args[0], 360)
		sat, err2 := number(args[1], 1)
		l, err3 := number(args[2], 1)
		if err := firstErr(err1, err2, err3); err != nil {
			return RGB{}, fmt.Errorf("parse color %q: %w", s, err)
		}
		return fromColorful(colorful.Hsl(h, sat, l).Clamped()), nil
	case strings.HasPrefix(in, "rgb"):
		args, err := functionArgs(in, "rgba", "rgb")
		if err != nil {
			return RGB{}, fmt.Errorf("parse color %q: %w", s, err)
		}
		r, err1 := number(args[0], 255)
		g, err2 := number(args[1], 255)
		b, err3 := number(args[2], 255)
		if err := firstErr(err1, err2, err3); err != nil {
			return RGB{}, fmt.Errorf("parse color %q: %w", s, err)
		}
		return fromColorful(colorful.Color{R: r / 255, G: g / 255, B: b / 255}.Clamped()), nil
	}
	return RGB{}, fmt.Errorf("parse color %q: unsupported format", s)
}

// MustParse is Parse for package-level literals.
func MustParse(s string) RGB {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// FromHex converts a 0xRRGGBB integer.
func FromHex(v uint32) RGB {
	return RGB{
		R: float32((v>>16)&0xff) / 255,
		G: float32((v>>8)&0xff) / 255,
		B: float32(v&0xff) / 255,
	}
}

// FromColor converts any image/color value.
func FromColor(c color.Color) RGB {
	cf, _ := colorful.MakeColor(c)
	return fromColorful(cf)
}

func (c RGB) Hex() string {
	return colorful.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B)}.Clamped().Hex()
}

func (c RGB) NRGBA() color.NRGBA {
	r, g, b := colorful.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B)}.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}
}

func (c RGB) Vec() [3]float32 { return [3]float32{c.R, c.G, c.B} }

func fromColorful(c colorful.Color) RGB {
	return RGB{R: float32(c.R), G: float32(c.G), B: float32(c.B)}
}

func functionArgs(in string, names ...string) ([]string, error) {
	for _, name := range names {
		if !strings.HasPrefix(in, name+"(") {
			continue
		}
		if !strings.HasSuffix(in, ")") {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		body := in[len(name)+1 : len(in)-1]
		args := strings.FieldsFunc(body, func(r rune) bool { return r == ',' || r == ' ' || r == '/' })
		if len(args) < 3 {
			return nil, fmt.Errorf("want at least 3 components, got %d", len(args))
		}
		return args, nil
	}
	return nil, fmt.Errorf("unknown color function")
}

// number parses a component; percentages are scaled to max.
func number(s string, max float64) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "deg")
	if strings.HasSuffix(s, "%") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, err
		}
		return v / 100 * max, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
