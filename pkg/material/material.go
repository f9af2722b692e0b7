// Package material provides shared render materials for Lumen.
package material

import (
	"image"
	"sync/atomic"
)

// Material holds PBR surface parameters.
type Material struct {
	Name       string
	BaseColor  [4]float64  // RGBA in 0-1 range
	Metallic   float64     // 0 = dielectric, 1 = metal
	Roughness  float64     // 0 = smooth, 1 = rough
	BaseMap    image.Image // Optional base color texture
	HasTexture bool
}

// materialKeys issues material identity keys, starting at 1.
var materialKeys atomic.Uint64

// Shared wraps a Material for shared ownership across batches and nodes.
// Every Shared has a distinct, process-stable 64-bit key: batches group draw
// requests by this key, so two nodes referencing the same Shared can land in
// the same batch.
type Shared struct {
	key uint64
	mat *Material
}

// NewShared wraps mat with a fresh identity key.
func NewShared(mat *Material) *Shared {
	return &Shared{
		key: materialKeys.Add(1),
		mat: mat,
	}
}

// Key returns the stable identity of the material.
func (s *Shared) Key() uint64 {
	return s.key
}

// Material returns the wrapped material parameters.
func (s *Shared) Material() *Material {
	return s.mat
}
