package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"

	"github.com/qmuntal/gltf"
	_ "golang.org/x/image/webp"
)

const extDracoMeshCompression = "KHR_draco_mesh_compression"

// ErrDracoUnsupported reports a model whose meshes can only be read with a
// Draco decoder.
var ErrDracoUnsupported = errors.New("assets: draco-compressed meshes are not supported")

// DecodeModel parses a .glb or .gltf document held in memory.
func DecodeModel(data []byte, decoderPath string) (*gltf.Document, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("decode gltf: %w", err)
	}
	for _, ext := range doc.ExtensionsRequired {
		if ext == extDracoMeshCompression {
			return nil, fmt.Errorf("%w (decoder path %q)", ErrDracoUnsupported, decoderPath)
		}
	}
	return doc, nil
}

// DecodeTexture decodes a JPEG, PNG or WebP image into NRGBA rows, top row
// first. Rows are not flipped: baked UVs are authored for that layout.
func DecodeTexture(data []byte) (*image.NRGBA, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode texture: %w", err)
	}
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) {
		return nrgba, nil
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out, nil
}
