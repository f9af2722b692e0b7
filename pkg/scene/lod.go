package scene

// LODLevel declares a normalized observer-distance range in which the
// referenced objects are visible. Begin and End are fractions of the
// observer's near-to-far clip range, so 0.2..0.6 means "visible between 20%
// and 60% of the view distance".
type LODLevel struct {
	Begin   float64
	End     float64
	Objects []Handle
}

// LODGroup is a set of levels owned by a governing node. Levels are applied
// in order during visibility filtering; if ranges overlap for the same
// object, the last written level wins.
type LODGroup struct {
	Levels []LODLevel
}

// Base is a trivial Node implementation for embedding in concrete node
// types.
type Base struct {
	NodeName string
	LOD      *LODGroup
}

// Name returns the node name.
func (b *Base) Name() string {
	return b.NodeName
}

// LODGroup returns the node's LOD group, or nil.
func (b *Base) LODGroup() *LODGroup {
	return b.LOD
}
