package scene

import (
	"image"

	"github.com/janessatran/portal/internal/colorx"
)

type Side int

const (
	FrontSide Side = iota
	DoubleSide
)

type Blending int

const (
	NormalBlending Blending = iota
	AdditiveBlending
)

// Material is implemented by the material kinds below.
type Material interface {
	Program() string
}

// Program names, matching the shader sources.
const (
	ProgramBaked     = "baked"
	ProgramBasic     = "basic"
	ProgramPortal    = "portal"
	ProgramFireflies = "fireflies"
)

// BakedMaterial maps a pre-lit texture with no lighting. SRGB marks Map
// as sRGB encoded, so it is sampled as linear values.
type BakedMaterial struct {
	Map   *image.NRGBA
	FlipY bool
	SRGB  bool
}

func (*BakedMaterial) Program() string { return ProgramBaked }

// BasicMaterial draws a flat color.
type BasicMaterial struct {
	Color colorx.RGB
	Side  Side
}

func (*BasicMaterial) Program() string { return ProgramBasic }

// PortalMaterial drives the animated portal surface shader.
type PortalMaterial struct {
	Time       float32
	ColorStart colorx.RGB
	ColorEnd   colorx.RGB
	Side       Side
}

func (*PortalMaterial) Program() string { return ProgramPortal }

// FirefliesMaterial drives the point sprite shader.
type FirefliesMaterial struct {
	PixelRatio  float32
	Size        float32
	Time        float32
	Transparent bool
	DepthWrite  bool
	Blending    Blending
}

func (*FirefliesMaterial) Program() string { return ProgramFireflies }

// SideOf reports the face culling mode of m.
func SideOf(m Material) Side {
	switch t := m.(type) {
	case *BasicMaterial:
		return t.Side
	case *PortalMaterial:
		return t.Side
	}
	return FrontSide
}

// EncodesOutput reports whether m writes sRGB encoded output. The built-in
// materials do; the custom shader materials write their colors as is.
func EncodesOutput(m Material) bool {
	switch m.(type) {
	case *BakedMaterial, *BasicMaterial:
		return true
	}
	return false
}
