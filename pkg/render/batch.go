package render

import (
	"encoding/binary"
	"fmt"
	"hash"
	"hash/fnv"
	"sort"

	"github.com/taigrr/lumen/pkg/material"
	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/scene"
	"github.com/taigrr/lumen/pkg/surface"
)

// RenderPath selects the pipeline family a batch is drawn with. Batches
// never mix render paths.
type RenderPath uint32

const (
	// PathDeferred renders through the G-buffer pipeline.
	PathDeferred RenderPath = iota
	// PathForward renders directly to the output target.
	PathForward
)

func (p RenderPath) String() string {
	switch p {
	case PathDeferred:
		return "deferred"
	case PathForward:
		return "forward"
	default:
		return "unknown"
	}
}

// ElementRange selects which part of the shared surface an instance draws.
// The zero value draws the full range.
type ElementRange struct {
	// Offset is the first triangle to draw.
	Offset int
	// Count is the number of triangles to draw; 0 means the full range.
	Count int
}

// IsFull reports whether the range covers the whole surface.
func (r ElementRange) IsFull() bool {
	return r.Count == 0
}

// PersistentID marks drawing data as "the same" across frames, no matter
// which batch it came from, so a downstream GPU-resource cache can reuse
// buffers instead of regenerating them. It depends only on the surface
// identity, the owning node handle, and an index, never on transforms or
// frame numbers.
type PersistentID uint64

// NewPersistentID derives a persistent identifier from shared surface data,
// a node handle, and an arbitrary index. Equal inputs always yield equal
// output.
func NewPersistentID(data *surface.SharedData, node scene.Handle, index int) PersistentID {
	h := fnv.New64a()
	hashU64(h, uint64(node.Index)<<32|uint64(node.Generation))
	hashU64(h, data.Key())
	hashU64(h, uint64(index))
	return PersistentID(h.Sum64())
}

// InstanceData is one drawable instance of a batch's shared surface.
type InstanceData struct {
	// WorldTransform positions the instance in the world.
	WorldTransform math3d.Mat4
	// BoneMatrices hold the skinning palette; empty means not skinned.
	BoneMatrices []math3d.Mat4
	// DepthOffset is a depth-hack value applied at draw time.
	DepthOffset float64
	// BlendShapeWeights hold one weight per blend shape in the surface.
	BlendShapeWeights []float64
	// ElementRange limits drawing to part of the surface.
	ElementRange ElementRange
	// PersistentID identifies the instance across frames; see
	// NewPersistentID.
	PersistentID PersistentID
	// NodeHandle is the node that emitted the instance. May be nil when
	// there is no originating scene node.
	NodeHandle scene.Handle
}

// Batch is a set of surface instances that share vertex/index data, a
// material, and draw state, submittable with minimal state changes.
type Batch struct {
	// Data is the shared surface all instances draw from.
	Data *surface.SharedData
	// TimeToLive is how long (in seconds) GPU buffers generated for Data
	// stay valid in the downstream geometry cache. Zero means the buffers
	// live for this aggregation pass only.
	TimeToLive float64
	// Instances is never empty for a live batch.
	Instances []InstanceData
	// Material is shared across all instances.
	Material *material.Shared
	// IsSkinned reports whether the batch uses GPU skinning.
	IsSkinned bool
	// RenderPath is the pipeline family for the batch.
	RenderPath RenderPath
	// DecalLayer groups overlapping surface decorations for ordering.
	DecalLayer uint8

	sortKey uint64
}

// SortKey returns the externally supplied ordering key of the batch.
func (b *Batch) SortKey() uint64 {
	return b.sortKey
}

func (b *Batch) String() string {
	return fmt.Sprintf("batch %d: %d instances", b.Data.Key(), len(b.Instances))
}

// BatchStorage aggregates draw requests for one render pass. It owns the
// key-to-batch index and the dense, insertion-ordered batch list. A storage
// is built fresh per pass, used by a single goroutine, and discarded after
// submission; it is not safe for concurrent writers.
type BatchStorage struct {
	batchMap map[uint64]int
	// Batches is the batch list; sorted ascending by sort key after Sort.
	Batches []Batch
}

// NewBatchStorage creates an empty storage pre-sized for capacityHint
// batches (the worst case is one unique batch per node).
func NewBatchStorage(capacityHint int) *BatchStorage {
	return &BatchStorage{
		batchMap: make(map[uint64]int, capacityHint),
		Batches:  make([]Batch, 0, capacityHint),
	}
}

// FromGraph builds a populated, sorted batch storage from the given graph
// and observer. It asks every node whose LOD visibility bit is set to
// contribute render data; frustum culling is each node's own responsibility
// (see Collector and Context.Frustum). Nodes filtered out by LOD are not
// visited at all.
func FromGraph(graph *scene.Graph, observer ObserverInfo, renderPassName string) *BatchStorage {
	// Aim for the worst-case scenario when every node has unique render data.
	storage := NewBatchStorage(graph.NodeCount())

	lodFilter := LODVisibility(graph, observer)

	frustum, ok := FrustumFromMatrix(observer.ProjectionMatrix.Mul(observer.ViewMatrix))
	if !ok {
		frustum = PermissiveFrustum()
	}

	ctx := &Context{
		ObserverPosition: observer.Position,
		ZNear:            observer.ZNear,
		ZFar:             observer.ZFar,
		ViewMatrix:       observer.ViewMatrix,
		ProjectionMatrix: observer.ProjectionMatrix,
		Frustum:          &frustum,
		Storage:          storage,
		Graph:            graph,
		RenderPassName:   renderPassName,
	}

	graph.Pairs(func(handle scene.Handle, node scene.Node) bool {
		if !lodFilter[handle.Index] {
			return true
		}
		if collector, ok := node.(Collector); ok {
			collector.CollectRenderData(ctx)
		}
		return true
	})

	storage.Sort()

	return storage
}

// defaultAppendCapacity pre-sizes the merged buffers created by
// PushTriangles.
const defaultAppendCapacity = 4096

// PushTriangles appends caller-supplied vertices and locally-indexed
// triangles into a batch keyed by material, vertex layout, render path,
// skinning flag, and decal layer. If any of these differ a new batch is
// created; otherwise the vertices and triangles accumulate into the
// existing batch's buffers, with triangle indices offset so repeated calls
// build one contiguous mesh.
//
// This path exists to merge small decorative geometry into a single draw;
// vertices should arrive pre-transformed to world space. Do not feed large
// meshes through it: pre-processing them on the CPU can cost more than
// drawing them directly. Use Push with shared surface data instead.
//
// Supplying vertices whose layout doesn't match the batch's buffers panics:
// the key is partly derived from the layout, so a mismatch means the caller
// computed the key incorrectly.
func (s *BatchStorage) PushTriangles(
	layout surface.Layout,
	vertices []surface.Vertex,
	triangles []surface.Triangle,
	mat *material.Shared,
	renderPath RenderPath,
	decalLayer uint8,
	sortKey uint64,
	skinned bool,
	node scene.Handle,
) {
	key := mergedBatchKey(mat.Key(), layout.Key(), skinned, decalLayer, renderPath)

	index, ok := s.batchMap[key]
	if !ok {
		// Fresh empty buffers, valid for this pass only.
		data := surface.NewShared(surface.NewData(layout, defaultAppendCapacity, true))

		index = len(s.Batches)
		s.batchMap[key] = index
		s.Batches = append(s.Batches, Batch{
			Data:    data,
			sortKey: sortKey,
			// Each batch must have at least one instance to be rendered;
			// the merged geometry is already in world space, so the
			// placeholder carries the identity transform.
			Instances: []InstanceData{{
				WorldTransform: math3d.Identity(),
				PersistentID:   NewPersistentID(data, node, 0),
				NodeHandle:     node,
			}},
			Material:   mat,
			IsSkinned:  skinned,
			RenderPath: renderPath,
			DecalLayer: decalLayer,
			TimeToLive: 0,
		})
	}
	batch := &s.Batches[index]

	data := batch.Data.Lock()
	defer batch.Data.Unlock()

	base := uint32(data.VertexCount())
	data.AppendVertices(layout, vertices)
	data.AppendTriangles(triangles, base)
}

// Push adds one surface instance to the batch keyed by material, surface
// identity, render path, skinning flag, and decal layer. If any of these
// differ the instance lands in a separate batch. The skinning flag is
// derived from the instance's bone matrices. The surface and material are
// referenced, not copied.
func (s *BatchStorage) Push(
	data *surface.SharedData,
	mat *material.Shared,
	renderPath RenderPath,
	decalLayer uint8,
	sortKey uint64,
	instance InstanceData,
) {
	skinned := len(instance.BoneMatrices) > 0

	key := instancedBatchKey(mat.Key(), data.Key(), skinned, decalLayer, renderPath)

	index, ok := s.batchMap[key]
	if !ok {
		index = len(s.Batches)
		s.batchMap[key] = index
		s.Batches = append(s.Batches, Batch{
			Data:       data,
			sortKey:    sortKey,
			Material:   mat,
			IsSkinned:  skinned,
			RenderPath: renderPath,
			DecalLayer: decalLayer,
			TimeToLive: DefaultTimeToLive,
		})
	}

	s.Batches[index].Instances = append(s.Batches[index].Instances, instance)
}

// Clear empties the storage for reuse, keeping allocated capacity.
func (s *BatchStorage) Clear() {
	clear(s.batchMap)
	s.Batches = s.Batches[:0]
}

// Sort orders batches ascending by sort key. The sort is unstable: equal
// keys may be reordered between calls, and callers must not rely on
// relative order among them. Sorting invalidates the key-to-batch index,
// so push after sort requires a Clear first.
func (s *BatchStorage) Sort() {
	sort.Slice(s.Batches, func(i, j int) bool {
		return s.Batches[i].sortKey < s.Batches[j].sortKey
	})
}

// Both push paths share one key map, so each writes its own discriminant
// byte before the identity values. Without it a surface identity key that
// is numerically equal to a layout key would resolve a Push and a
// PushTriangles call to the same batch.
const (
	keyKindMerged uint8 = iota + 1
	keyKindInstanced
)

// mergedBatchKey keys the raw-append path: geometry merges into one batch
// when the material, vertex layout, skinning flag, decal layer, and render
// path all match.
func mergedBatchKey(materialKey, layoutKey uint64, skinned bool, decalLayer uint8, renderPath RenderPath) uint64 {
	h := fnv.New64a()
	hashU8(h, keyKindMerged)
	hashU64(h, materialKey)
	hashU64(h, layoutKey)
	hashU8(h, boolByte(skinned))
	hashU8(h, decalLayer)
	hashU32(h, uint32(renderPath))
	return h.Sum64()
}

// instancedBatchKey keys the instance path: instances share a batch when
// the material, surface identity, skinning flag, decal layer, and render
// path all match.
func instancedBatchKey(materialKey, dataKey uint64, skinned bool, decalLayer uint8, renderPath RenderPath) uint64 {
	h := fnv.New64a()
	hashU8(h, keyKindInstanced)
	hashU64(h, materialKey)
	hashU64(h, dataKey)
	hashU8(h, boolByte(skinned))
	hashU8(h, decalLayer)
	hashU32(h, uint32(renderPath))
	return h.Sum64()
}

func hashU64(h hash.Hash64, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	h.Write(b[:])
}

func hashU32(h hash.Hash64, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	h.Write(b[:])
}

func hashU8(h hash.Hash64, v uint8) {
	h.Write([]byte{v})
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
