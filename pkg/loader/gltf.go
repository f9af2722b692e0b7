// Package loader imports glTF/GLB assets into Lumen surfaces and materials.
package loader

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"unsafe"

	"github.com/qmuntal/gltf"
	"github.com/taigrr/lumen/pkg/material"
	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/surface"
)

// Primitive is one drawable unit of a loaded model: shared surface data
// plus the material it is rendered with. Primitives from the same document
// that declare the same glTF material share one material.Shared, so they
// batch together downstream.
type Primitive struct {
	Data     *surface.SharedData
	Material *material.Shared
}

// Model is a loaded glTF document, flattened to a primitive list.
type Model struct {
	Name       string
	Primitives []Primitive
}

// Loader reads glTF and GLB files.
type Loader struct {
	// CalculateNormals fills in smooth vertex normals when the source data
	// has none.
	CalculateNormals bool
}

// NewLoader creates a loader with default options.
func NewLoader() *Loader {
	return &Loader{CalculateNormals: true}
}

// LoadGLB loads a binary glTF file with default options.
func LoadGLB(path string) (*Model, error) {
	return NewLoader().Load(path)
}

// Load reads a glTF or GLB document and converts every triangle primitive
// into a surface. Primitives are grouped by their glTF material.
func (l *Loader) Load(path string) (*Model, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	materials := l.loadMaterials(doc)

	model := &Model{Name: filepath.Base(path)}

	for _, m := range doc.Meshes {
		for _, prim := range m.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
				continue
			}
			p, err := l.loadPrimitive(doc, prim, materials)
			if err != nil {
				return nil, fmt.Errorf("mesh %q: %w", m.Name, err)
			}
			if p != nil {
				model.Primitives = append(model.Primitives, *p)
			}
		}
	}

	return model, nil
}

// loadMaterials converts every glTF material, plus one fallback for
// primitives without a material reference.
func (l *Loader) loadMaterials(doc *gltf.Document) []*material.Shared {
	// Fallback lives at the end; see materialFor.
	materials := make([]*material.Shared, 0, len(doc.Materials)+1)

	for _, src := range doc.Materials {
		mat := material.Material{
			Name:      src.Name,
			BaseColor: [4]float64{1, 1, 1, 1},
			Roughness: 1,
		}
		if pbr := src.PBRMetallicRoughness; pbr != nil {
			mat.BaseColor = pbr.BaseColorFactorOrDefault()
			mat.Metallic = pbr.MetallicFactorOrDefault()
			mat.Roughness = pbr.RoughnessFactorOrDefault()
			if pbr.BaseColorTexture != nil {
				if img := decodeTexture(doc, pbr.BaseColorTexture.Index); img != nil {
					mat.BaseMap = img
					mat.HasTexture = true
				}
			}
		}
		materials = append(materials, material.NewShared(&mat))
	}

	materials = append(materials, material.NewShared(&material.Material{
		Name:      "default",
		BaseColor: [4]float64{1, 1, 1, 1},
		Roughness: 1,
	}))

	return materials
}

func materialFor(materials []*material.Shared, index *int) *material.Shared {
	if index == nil || *index < 0 || *index >= len(materials)-1 {
		return materials[len(materials)-1]
	}
	return materials[*index]
}

func (l *Loader) loadPrimitive(doc *gltf.Document, prim *gltf.Primitive, materials []*material.Shared) (*Primitive, error) {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, nil
	}

	positions, err := readVec3Accessor(doc, posIdx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	var normals []math3d.Vec3
	if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
		normals, err = readVec3Accessor(doc, normIdx)
		if err != nil {
			return nil, fmt.Errorf("read normals: %w", err)
		}
	}

	var uvs []math3d.Vec2
	if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		uvs, err = readVec2Accessor(doc, uvIdx)
		if err != nil {
			return nil, fmt.Errorf("read uvs: %w", err)
		}
	}

	data := surface.NewData(surface.LayoutStatic, len(positions), false)

	vertices := make([]surface.Vertex, len(positions))
	for i := range positions {
		vertices[i].Position = positions[i]
		vertices[i].Color = [4]float64{1, 1, 1, 1}
		if i < len(normals) {
			vertices[i].Normal = normals[i]
		}
		if i < len(uvs) {
			// glTF uses a top-left UV origin, flip V.
			vertices[i].UV = math3d.V2(uvs[i].X, 1.0-uvs[i].Y)
		}
	}
	data.AppendVertices(surface.LayoutStatic, vertices)

	var triangles []surface.Triangle
	if prim.Indices != nil {
		indices, err := readIndices(doc, *prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
		for i := 0; i+2 < len(indices); i += 3 {
			triangles = append(triangles, surface.Triangle{
				uint32(indices[i]),
				uint32(indices[i+1]),
				uint32(indices[i+2]),
			})
		}
	} else {
		for i := 0; i+2 < len(positions); i += 3 {
			triangles = append(triangles, surface.Triangle{uint32(i), uint32(i + 1), uint32(i + 2)})
		}
	}
	data.AppendTriangles(triangles, 0)

	if l.CalculateNormals && len(normals) == 0 {
		calculateSmoothNormals(data)
	}

	return &Primitive{
		Data:     surface.NewShared(data),
		Material: materialFor(materials, prim.Material),
	}, nil
}

// calculateSmoothNormals accumulates area-weighted face normals per vertex
// and normalizes the result.
func calculateSmoothNormals(data *surface.Data) {
	vertices := data.Vertices()
	for i := range vertices {
		vertices[i].Normal = math3d.Zero3()
	}
	for _, t := range data.Triangles() {
		v0 := vertices[t[0]].Position
		v1 := vertices[t[1]].Position
		v2 := vertices[t[2]].Position
		normal := v1.Sub(v0).Cross(v2.Sub(v0))

		vertices[t[0]].Normal = vertices[t[0]].Normal.Add(normal)
		vertices[t[1]].Normal = vertices[t[1]].Normal.Add(normal)
		vertices[t[2]].Normal = vertices[t[2]].Normal.Add(normal)
	}
	for i := range vertices {
		vertices[i].Normal = vertices[i].Normal.Normalize()
	}
}

// decodeTexture decodes the image referenced by a texture index, or nil.
func decodeTexture(doc *gltf.Document, texIdx int) image.Image {
	if texIdx < 0 || texIdx >= len(doc.Textures) {
		return nil
	}
	tex := doc.Textures[texIdx]
	if tex.Source == nil || *tex.Source >= len(doc.Images) {
		return nil
	}
	img := doc.Images[*tex.Source]
	if img.BufferView == nil {
		return nil
	}

	bv := doc.BufferViews[*img.BufferView]
	buf := doc.Buffers[bv.Buffer]
	if buf.Data == nil {
		return nil
	}
	start := bv.ByteOffset
	end := start + bv.ByteLength
	if end > len(buf.Data) {
		return nil
	}

	decoded, _, err := image.Decode(bytes.NewReader(buf.Data[start:end]))
	if err != nil {
		return nil
	}
	return decoded
}

// readVec3Accessor reads Vec3 data from an accessor.
func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec3 {
		return nil, fmt.Errorf("expected VEC3, got %v", accessor.Type)
	}

	data, err := readAccessorData(doc, accessor)
	if err != nil {
		return nil, err
	}

	floats, ok := data.([][3]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected data type for VEC3")
	}

	result := make([]math3d.Vec3, len(floats))
	for i, f := range floats {
		result[i] = math3d.V3(float64(f[0]), float64(f[1]), float64(f[2]))
	}

	return result, nil
}

// readVec2Accessor reads Vec2 data from an accessor.
func readVec2Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec2, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec2 {
		return nil, fmt.Errorf("expected VEC2, got %v", accessor.Type)
	}

	data, err := readAccessorData(doc, accessor)
	if err != nil {
		return nil, err
	}

	floats, ok := data.([][2]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected data type for VEC2")
	}

	result := make([]math3d.Vec2, len(floats))
	for i, f := range floats {
		result[i] = math3d.V2(float64(f[0]), float64(f[1]))
	}

	return result, nil
}

// readIndices reads index data from an accessor.
func readIndices(doc *gltf.Document, accessorIdx int) ([]int, error) {
	accessor := doc.Accessors[accessorIdx]

	data, err := readAccessorData(doc, accessor)
	if err != nil {
		return nil, err
	}

	switch v := data.(type) {
	case []uint8:
		result := make([]int, len(v))
		for i, x := range v {
			result[i] = int(x)
		}
		return result, nil
	case []uint16:
		result := make([]int, len(v))
		for i, x := range v {
			result[i] = int(x)
		}
		return result, nil
	case []uint32:
		result := make([]int, len(v))
		for i, x := range v {
			result[i] = int(x)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unexpected index type: %T", data)
	}
}

// readAccessorData reads raw data from an accessor.
func readAccessorData(doc *gltf.Document, accessor *gltf.Accessor) (any, error) {
	if accessor.BufferView == nil {
		return nil, fmt.Errorf("accessor has no buffer view")
	}

	bufferView := doc.BufferViews[*accessor.BufferView]
	buffer := doc.Buffers[bufferView.Buffer]

	if buffer.URI != "" {
		return nil, fmt.Errorf("external buffers not supported")
	}
	bufData := buffer.Data
	if bufData == nil {
		return nil, fmt.Errorf("buffer has no data")
	}

	start := bufferView.ByteOffset + accessor.ByteOffset
	stride := bufferView.ByteStride
	count := accessor.Count

	switch accessor.Type {
	case gltf.AccessorVec3:
		if stride == 0 {
			stride = 12
		}
		result := make([][3]float32, count)
		for i := range count {
			offset := start + i*stride
			for j := range 3 {
				result[i][j] = readFloat32(bufData[offset+j*4:])
			}
		}
		return result, nil

	case gltf.AccessorVec2:
		if stride == 0 {
			stride = 8
		}
		result := make([][2]float32, count)
		for i := range count {
			offset := start + i*stride
			for j := range 2 {
				result[i][j] = readFloat32(bufData[offset+j*4:])
			}
		}
		return result, nil

	case gltf.AccessorScalar:
		if stride == 0 {
			switch accessor.ComponentType {
			case gltf.ComponentUbyte:
				stride = 1
			case gltf.ComponentUshort:
				stride = 2
			case gltf.ComponentUint:
				stride = 4
			}
		}

		switch accessor.ComponentType {
		case gltf.ComponentUbyte:
			result := make([]uint8, count)
			for i := range count {
				result[i] = bufData[start+i*stride]
			}
			return result, nil
		case gltf.ComponentUshort:
			result := make([]uint16, count)
			for i := range count {
				offset := start + i*stride
				result[i] = uint16(bufData[offset]) | uint16(bufData[offset+1])<<8
			}
			return result, nil
		case gltf.ComponentUint:
			result := make([]uint32, count)
			for i := range count {
				offset := start + i*stride
				result[i] = uint32(bufData[offset]) |
					uint32(bufData[offset+1])<<8 |
					uint32(bufData[offset+2])<<16 |
					uint32(bufData[offset+3])<<24
			}
			return result, nil
		}
	}

	return nil, fmt.Errorf("unsupported accessor type: %v / %v", accessor.Type, accessor.ComponentType)
}

// readFloat32 reads a little-endian float32.
func readFloat32(b []byte) float32 {
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return *(*float32)(unsafe.Pointer(&bits))
}
