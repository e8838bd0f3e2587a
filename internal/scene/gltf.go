package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// FromDocument builds a node tree for the document's default scene. The
// returned root is an unnamed group holding the scene's top-level nodes.
func FromDocument(doc *gltf.Document) (*Node, error) {
	root := NewNode("")
	tops, err := topLevelNodes(doc)
	if err != nil {
		return nil, err
	}
	b := builder{doc: doc, meshes: map[int][]*Primitive{}, visiting: map[int]bool{}}
	for _, idx := range tops {
		n, err := b.node(idx)
		if err != nil {
			return nil, err
		}
		root.Add(n)
	}
	return root, nil
}

func topLevelNodes(doc *gltf.Document) ([]int, error) {
	if len(doc.Scenes) > 0 {
		si := 0
		if doc.Scene != nil {
			si = *doc.Scene
		}
		if si < 0 || si >= len(doc.Scenes) {
			return nil, fmt.Errorf("gltf: scene index %d out of range", si)
		}
		return doc.Scenes[si].Nodes, nil
	}
	// No scenes: every node that is nobody's child is a root.
	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var tops []int
	for i := range doc.Nodes {
		if !isChild[i] {
			tops = append(tops, i)
		}
	}
	return tops, nil
}

type builder struct {
	doc      *gltf.Document
	meshes   map[int][]*Primitive
	visiting map[int]bool
}

func (b *builder) node(idx int) (*Node, error) {
	if idx < 0 || idx >= len(b.doc.Nodes) {
		return nil, fmt.Errorf("gltf: node index %d out of range", idx)
	}
	if b.visiting[idx] {
		return nil, fmt.Errorf("gltf: node %d is its own ancestor", idx)
	}
	b.visiting[idx] = true
	defer delete(b.visiting, idx)

	src := b.doc.Nodes[idx]
	n := NewNode(src.Name)
	n.Local = localMatrix(src)
	if src.Mesh != nil {
		prims, err := b.mesh(*src.Mesh)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", src.Name, err)
		}
		n.Primitives = prims
	}
	for _, c := range src.Children {
		child, err := b.node(c)
		if err != nil {
			return nil, err
		}
		n.Add(child)
	}
	return n, nil
}

func localMatrix(n *gltf.Node) mgl32.Mat4 {
	if m := n.MatrixOrDefault(); m != gltf.DefaultMatrix {
		var out mgl32.Mat4
		for i, v := range m {
			out[i] = float32(v)
		}
		return out
	}
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	q := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	return mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2])).
		Mul4(q.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(float32(s[0]), float32(s[1]), float32(s[2])))
}

// mesh reads every primitive of mesh idx; meshes shared by several nodes
// are read once.
func (b *builder) mesh(idx int) ([]*Primitive, error) {
	if prims, ok := b.meshes[idx]; ok {
		return prims, nil
	}
	if idx < 0 || idx >= len(b.doc.Meshes) {
		return nil, fmt.Errorf("gltf: mesh index %d out of range", idx)
	}
	var prims []*Primitive
	for i, p := range b.doc.Meshes[idx].Primitives {
		prim, err := b.primitive(p)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", idx, i, err)
		}
		prims = append(prims, prim)
	}
	b.meshes[idx] = prims
	return prims, nil
}

func (b *builder) primitive(p *gltf.Primitive) (*Primitive, error) {
	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("no %s attribute", gltf.POSITION)
	}
	positions, err := modeler.ReadPosition(b.doc, b.doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}
	out := &Primitive{Positions: positions}

	if uvIdx, ok := p.Attributes[gltf.TEXCOORD_0]; ok {
		uvs, err := modeler.ReadTextureCoord(b.doc, b.doc.Accessors[uvIdx], nil)
		if err != nil {
			return nil, fmt.Errorf("read uvs: %w", err)
		}
		out.UVs = uvs
	} else {
		out.UVs = make([][2]float32, len(positions))
	}

	if p.Indices != nil {
		indices, err := modeler.ReadIndices(b.doc, b.doc.Accessors[*p.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
		out.Indices = indices
	} else {
		out.Indices = make([]uint32, len(positions))
		for i := range out.Indices {
			out.Indices[i] = uint32(i)
		}
	}
	return out, nil
}
