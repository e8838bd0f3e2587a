// Package scene holds the CPU-side scene graph of the portal: nodes with
// transforms and mesh data, the materials bound to them, and particle
// systems. It knows nothing about GPU resources.
package scene

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrNodeNotFound is returned by named lookups that match nothing.
var ErrNodeNotFound = errors.New("scene: node not found")

// Primitive is one indexed triangle list.
type Primitive struct {
	Positions [][3]float32
	UVs       [][2]float32
	Indices   []uint32
}

type Node struct {
	Name       string
	Local      mgl32.Mat4
	Primitives []*Primitive
	Material   Material
	Children   []*Node

	parent *Node
}

func NewNode(name string) *Node {
	return &Node{Name: name, Local: mgl32.Ident4()}
}

func (n *Node) Add(child *Node) {
	child.parent = n
	n.Children = append(n.Children, child)
}

func (n *Node) Parent() *Node { return n.parent }

// World composes the local transforms from the root down.
func (n *Node) World() mgl32.Mat4 {
	m := n.Local
	for p := n.parent; p != nil; p = p.parent {
		m = p.Local.Mul4(m)
	}
	return m
}

// Traverse visits n and its descendants depth first, parents before children.
func (n *Node) Traverse(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Traverse(fn)
	}
}

// Find returns the first node in traversal order named name.
func (n *Node) Find(name string) (*Node, error) {
	var found *Node
	n.Traverse(func(c *Node) {
		if found == nil && c.Name == name {
			found = c
		}
	})
	if found == nil {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, name)
	}
	return found, nil
}

// FindAll resolves every name, reporting all missing ones at once.
func (n *Node) FindAll(names ...string) (map[string]*Node, error) {
	out := make(map[string]*Node, len(names))
	var missing []error
	for _, name := range names {
		c, err := n.Find(name)
		if err != nil {
			missing = append(missing, err)
			continue
		}
		out[name] = c
	}
	if len(missing) > 0 {
		return nil, errors.Join(missing...)
	}
	return out, nil
}

// Scene is the render list: model roots plus particle systems.
type Scene struct {
	Roots  []*Node
	Points []*Points
}

func (s *Scene) Add(n *Node) { s.Roots = append(s.Roots, n) }

func (s *Scene) AddPoints(p *Points) { s.Points = append(s.Points, p) }

func (s *Scene) Traverse(fn func(*Node)) {
	for _, r := range s.Roots {
		r.Traverse(fn)
	}
}
