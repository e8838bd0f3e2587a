package scene

import "fmt"

// Names the portal model is authored with.
const (
	NodeArea        = "Area"
	NodePortalLight = "portalLight"
	NodePoleLightA  = "poleLightA"
	NodePoleLightB  = "poleLightB"
)

// Materials bound during assembly.
type Materials struct {
	Baked     *BakedMaterial
	PoleLight *BasicMaterial
	// Portal is a *PortalMaterial with effects on, a *BasicMaterial otherwise.
	Portal Material
}

// Assemble binds materials to a freshly decoded model: every node gets the
// baked material, then the two pole lights and the portal surface are
// overridden. observe, when set, sees every node name in traversal order.
//
// The three override nodes are resolved before anything is mutated; if one
// is missing Assemble fails with ErrNodeNotFound and root is left untouched.
func Assemble(root *Node, mats Materials, observe func(name string)) error {
	overrides, err := root.FindAll(NodePortalLight, NodePoleLightA, NodePoleLightB)
	if err != nil {
		return fmt.Errorf("assemble scene: %w", err)
	}

	root.Traverse(func(n *Node) {
		n.Material = mats.Baked
		if observe != nil {
			observe(n.Name)
		}
	})

	overrides[NodePortalLight].Material = mats.Portal
	overrides[NodePoleLightA].Material = mats.PoleLight
	overrides[NodePoleLightB].Material = mats.PoleLight
	return nil
}
