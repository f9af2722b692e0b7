package render

import (
	"math"
	"testing"

	"github.com/taigrr/lumen/pkg/material"
	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/scene"
	"github.com/taigrr/lumen/pkg/surface"
)

// testNode is a minimal graph node for aggregation tests.
type testNode struct {
	name    string
	pos     math3d.Vec3
	lod     *scene.LODGroup
	collect func(ctx *Context)
}

func (n *testNode) Name() string                { return n.name }
func (n *testNode) GlobalPosition() math3d.Vec3 { return n.pos }
func (n *testNode) LODGroup() *scene.LODGroup   { return n.lod }

func (n *testNode) CollectRenderData(ctx *Context) {
	if n.collect != nil {
		n.collect(ctx)
	}
}

func newTestMaterial(name string) *material.Shared {
	return material.NewShared(&material.Material{Name: name, BaseColor: [4]float64{1, 1, 1, 1}})
}

func newTestSurface(t *testing.T) *surface.SharedData {
	t.Helper()
	return surface.NewShared(surface.NewCubeData(1))
}

func TestPushGroupsByIdentity(t *testing.T) {
	data := newTestSurface(t)
	mat := newTestMaterial("a")

	s := NewBatchStorage(4)
	s.Push(data, mat, PathDeferred, 0, 7, InstanceData{WorldTransform: math3d.Identity()})
	s.Push(data, mat, PathDeferred, 0, 7, InstanceData{WorldTransform: math3d.Translate(math3d.V3(1, 0, 0))})

	if len(s.Batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(s.Batches))
	}
	b := &s.Batches[0]
	if len(b.Instances) != 2 {
		t.Errorf("got %d instances, want 2", len(b.Instances))
	}
	if b.SortKey() != 7 {
		t.Errorf("sort key = %d, want 7", b.SortKey())
	}
	if b.TimeToLive != DefaultTimeToLive {
		t.Errorf("time to live = %v, want %v", b.TimeToLive, DefaultTimeToLive)
	}
	if b.IsSkinned {
		t.Error("batch without bone matrices should not be skinned")
	}
}

func TestPushSeparatesByKeyInputs(t *testing.T) {
	dataA := newTestSurface(t)
	dataB := newTestSurface(t)
	matA := newTestMaterial("a")
	matB := newTestMaterial("b")

	tests := []struct {
		name string
		push func(s *BatchStorage)
	}{
		{"different surface", func(s *BatchStorage) {
			s.Push(dataA, matA, PathDeferred, 0, 0, InstanceData{})
			s.Push(dataB, matA, PathDeferred, 0, 0, InstanceData{})
		}},
		{"different material", func(s *BatchStorage) {
			s.Push(dataA, matA, PathDeferred, 0, 0, InstanceData{})
			s.Push(dataA, matB, PathDeferred, 0, 0, InstanceData{})
		}},
		{"different render path", func(s *BatchStorage) {
			s.Push(dataA, matA, PathDeferred, 0, 0, InstanceData{})
			s.Push(dataA, matA, PathForward, 0, 0, InstanceData{})
		}},
		{"different decal layer", func(s *BatchStorage) {
			s.Push(dataA, matA, PathDeferred, 0, 0, InstanceData{})
			s.Push(dataA, matA, PathDeferred, 1, 0, InstanceData{})
		}},
		{"skinned vs static", func(s *BatchStorage) {
			s.Push(dataA, matA, PathDeferred, 0, 0, InstanceData{})
			s.Push(dataA, matA, PathDeferred, 0, 0, InstanceData{
				BoneMatrices: []math3d.Mat4{math3d.Identity()},
			})
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewBatchStorage(4)
			tc.push(s)
			if len(s.Batches) != 2 {
				t.Errorf("got %d batches, want 2", len(s.Batches))
			}
		})
	}
}

func TestPushSkinnedFlag(t *testing.T) {
	data := newTestSurface(t)
	mat := newTestMaterial("a")

	s := NewBatchStorage(1)
	s.Push(data, mat, PathDeferred, 0, 0, InstanceData{
		BoneMatrices: []math3d.Mat4{math3d.Identity(), math3d.Identity()},
	})

	if !s.Batches[0].IsSkinned {
		t.Error("batch with bone matrices should be skinned")
	}
}

func TestPushTrianglesMerges(t *testing.T) {
	mat := newTestMaterial("decals")
	node := scene.Handle{Index: 3, Generation: 1}

	quadVerts := []surface.Vertex{
		{Position: math3d.V3(0, 0, 0)},
		{Position: math3d.V3(1, 0, 0)},
		{Position: math3d.V3(1, 1, 0)},
		{Position: math3d.V3(0, 1, 0)},
	}
	quadTris := []surface.Triangle{{0, 1, 2}, {0, 2, 3}}

	s := NewBatchStorage(4)
	s.PushTriangles(surface.LayoutDecal, quadVerts, quadTris, mat, PathForward, 0, 0, false, node)
	s.PushTriangles(surface.LayoutDecal, quadVerts, quadTris, mat, PathForward, 0, 0, false, node)

	if len(s.Batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(s.Batches))
	}
	b := &s.Batches[0]

	if b.TimeToLive != 0 {
		t.Errorf("merged batch time to live = %v, want 0", b.TimeToLive)
	}

	data := b.Data.Lock()
	defer b.Data.Unlock()

	if !data.IsTemporary() {
		t.Error("merged batch data should be temporary")
	}
	if data.VertexCount() != 8 {
		t.Errorf("vertex count = %d, want 8", data.VertexCount())
	}
	if data.TriangleCount() != 4 {
		t.Errorf("triangle count = %d, want 4", data.TriangleCount())
	}

	// The second append's indices must be offset past the first quad.
	third := data.Triangles()[2]
	if third != (surface.Triangle{4, 5, 6}) {
		t.Errorf("offset triangle = %v, want {4 5 6}", third)
	}
}

func TestPushTrianglesPlaceholderInstance(t *testing.T) {
	mat := newTestMaterial("decals")
	node := scene.Handle{Index: 9, Generation: 2}

	s := NewBatchStorage(1)
	s.PushTriangles(surface.LayoutDecal,
		[]surface.Vertex{{}, {}, {}},
		[]surface.Triangle{{0, 1, 2}},
		mat, PathForward, 0, 0, false, node)

	b := &s.Batches[0]
	if len(b.Instances) != 1 {
		t.Fatalf("got %d instances, want 1", len(b.Instances))
	}
	inst := b.Instances[0]
	if inst.WorldTransform != math3d.Identity() {
		t.Error("placeholder instance should carry the identity transform")
	}
	if inst.NodeHandle != node {
		t.Errorf("node handle = %v, want %v", inst.NodeHandle, node)
	}
	if inst.PersistentID != NewPersistentID(b.Data, node, 0) {
		t.Error("placeholder persistent ID should derive from the merged data, node, and index 0")
	}
}

func TestPushTrianglesSeparatesByLayout(t *testing.T) {
	mat := newTestMaterial("decals")
	node := scene.Handle{Index: 1, Generation: 1}
	verts := []surface.Vertex{{}, {}, {}}
	tris := []surface.Triangle{{0, 1, 2}}

	s := NewBatchStorage(2)
	s.PushTriangles(surface.LayoutDecal, verts, tris, mat, PathForward, 0, 0, false, node)
	s.PushTriangles(surface.LayoutStatic, verts, tris, mat, PathForward, 0, 0, false, node)

	if len(s.Batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(s.Batches))
	}
	for i := range s.Batches {
		data := s.Batches[i].Data.Lock()
		if data.TriangleCount() != 1 {
			t.Errorf("batch %d triangle count = %d, want 1", i, data.TriangleCount())
		}
		s.Batches[i].Data.Unlock()
	}
}

func TestSortAscending(t *testing.T) {
	mat := newTestMaterial("a")

	s := NewBatchStorage(3)
	for _, key := range []uint64{5, 1, 3} {
		s.Push(newTestSurface(t), mat, PathDeferred, 0, key, InstanceData{})
	}
	s.Sort()

	keys := make([]uint64, len(s.Batches))
	for i := range s.Batches {
		keys[i] = s.Batches[i].SortKey()
	}
	if keys[0] != 1 || keys[1] != 3 || keys[2] != 5 {
		t.Errorf("sorted keys = %v, want [1 3 5]", keys)
	}
}

func TestBatchKeyPathsDisjoint(t *testing.T) {
	// Surface identity keys are small sequential integers, so one can be
	// numerically equal to a layout key. The per-path discriminant byte
	// must keep such inputs in distinct batches instead of resolving a
	// Push and a PushTriangles call with matching state to the same one.
	layouts := []surface.Layout{surface.LayoutStatic, surface.LayoutSkinned, surface.LayoutDecal}
	for _, layout := range layouts {
		t.Run(layout.String(), func(t *testing.T) {
			merged := mergedBatchKey(7, layout.Key(), false, 0, PathForward)
			instanced := instancedBatchKey(7, layout.Key(), false, 0, PathForward)
			if merged == instanced {
				t.Errorf("merged and instanced keys collide on %d", merged)
			}
		})
	}
}

func TestPushPathsNeverShareBatch(t *testing.T) {
	data := newTestSurface(t)
	mat := newTestMaterial("shared")
	node := scene.Handle{Index: 1, Generation: 1}

	verts := []surface.Vertex{
		{Position: math3d.V3(0, 0, 0)},
		{Position: math3d.V3(1, 0, 0)},
		{Position: math3d.V3(0, 1, 0)},
	}
	tris := []surface.Triangle{{0, 1, 2}}

	before := data.Lock().VertexCount()
	data.Unlock()

	s := NewBatchStorage(2)
	s.Push(data, mat, PathForward, 0, 0, InstanceData{WorldTransform: math3d.Identity()})
	s.PushTriangles(surface.LayoutDecal, verts, tris, mat, PathForward, 0, 0, false, node)

	if len(s.Batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(s.Batches))
	}
	if s.Batches[0].Data != data {
		t.Error("instanced batch should keep the pushed shared surface")
	}
	after := data.Lock().VertexCount()
	data.Unlock()
	if after != before {
		t.Errorf("shared surface grew from %d to %d vertices, merged geometry leaked into it", before, after)
	}
	if !s.Batches[1].Data.Lock().IsTemporary() {
		t.Error("merged batch should own temporary buffers, not the shared surface")
	}
	s.Batches[1].Data.Unlock()
}

func TestClearAllowsReuse(t *testing.T) {
	data := newTestSurface(t)
	mat := newTestMaterial("a")

	s := NewBatchStorage(1)
	s.Push(data, mat, PathDeferred, 0, 0, InstanceData{})
	s.Sort()
	s.Clear()

	if len(s.Batches) != 0 {
		t.Fatalf("got %d batches after Clear, want 0", len(s.Batches))
	}

	s.Push(data, mat, PathDeferred, 0, 0, InstanceData{})
	if len(s.Batches) != 1 || len(s.Batches[0].Instances) != 1 {
		t.Error("cleared storage should accept pushes like a fresh one")
	}
}

func TestPersistentIDDeterministic(t *testing.T) {
	data := newTestSurface(t)
	other := newTestSurface(t)
	node := scene.Handle{Index: 5, Generation: 2}

	a := NewPersistentID(data, node, 0)
	b := NewPersistentID(data, node, 0)
	if a != b {
		t.Error("equal inputs should produce equal IDs")
	}

	if NewPersistentID(data, node, 1) == a {
		t.Error("different index should produce a different ID")
	}
	if NewPersistentID(other, node, 0) == a {
		t.Error("different surface should produce a different ID")
	}
	if NewPersistentID(data, scene.Handle{Index: 5, Generation: 3}, 0) == a {
		t.Error("different handle generation should produce a different ID")
	}
}

func TestElementRangeIsFull(t *testing.T) {
	if !(ElementRange{}).IsFull() {
		t.Error("zero element range should be full")
	}
	if (ElementRange{Offset: 0, Count: 12}).IsFull() {
		t.Error("bounded element range should not be full")
	}
}

func testObserver() ObserverInfo {
	pos := math3d.V3(0, 0, 10)
	view := math3d.LookAt(pos, math3d.Zero3(), math3d.Up())
	proj := math3d.Perspective(math.Pi/3, 1.0, 0.1, 100)
	return ObserverInfo{
		Position:         pos,
		ZNear:            0.1,
		ZFar:             100,
		ViewMatrix:       view,
		ProjectionMatrix: proj,
	}
}

func TestFromGraphCollectsAndSorts(t *testing.T) {
	graph := scene.NewGraph()
	mat := newTestMaterial("a")
	dataA := newTestSurface(t)
	dataB := newTestSurface(t)

	graph.Add(&testNode{name: "late", collect: func(ctx *Context) {
		ctx.Storage.Push(dataA, mat, PathDeferred, 0, 9, InstanceData{})
	}})
	graph.Add(&testNode{name: "early", collect: func(ctx *Context) {
		ctx.Storage.Push(dataB, mat, PathDeferred, 0, 2, InstanceData{})
	}})
	// A node without render data is traversed and contributes nothing.
	graph.Add(&testNode{name: "empty"})

	s := FromGraph(graph, testObserver(), "main")

	if len(s.Batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(s.Batches))
	}
	if s.Batches[0].SortKey() != 2 || s.Batches[1].SortKey() != 9 {
		t.Errorf("batches not sorted: keys [%d %d]", s.Batches[0].SortKey(), s.Batches[1].SortKey())
	}
}

func TestFromGraphContextFields(t *testing.T) {
	graph := scene.NewGraph()
	observer := testObserver()

	var seen *Context
	graph.Add(&testNode{name: "probe", collect: func(ctx *Context) {
		seen = ctx
	}})

	FromGraph(graph, observer, "shadow-pass")

	if seen == nil {
		t.Fatal("collector was not visited")
	}
	if seen.RenderPassName != "shadow-pass" {
		t.Errorf("render pass name = %q, want %q", seen.RenderPassName, "shadow-pass")
	}
	if seen.ObserverPosition != observer.Position {
		t.Errorf("observer position = %v, want %v", seen.ObserverPosition, observer.Position)
	}
	if seen.ZNear != observer.ZNear || seen.ZFar != observer.ZFar {
		t.Errorf("clip planes = (%v, %v), want (%v, %v)", seen.ZNear, seen.ZFar, observer.ZNear, observer.ZFar)
	}
	if seen.Frustum == nil {
		t.Fatal("context frustum is nil")
	}
	if !seen.Frustum.ContainsPoint(math3d.Zero3()) {
		t.Error("origin should be inside the test observer's frustum")
	}
}

func TestFromGraphDegenerateObserver(t *testing.T) {
	graph := scene.NewGraph()

	visited := false
	graph.Add(&testNode{name: "anywhere", pos: math3d.V3(1e6, 0, 0), collect: func(ctx *Context) {
		visited = true
		if !ctx.Frustum.ContainsPoint(math3d.V3(1e6, 0, 0)) {
			t.Error("fallback frustum should accept every point")
		}
	}})

	// Zero matrices cannot produce a valid frustum.
	FromGraph(graph, ObserverInfo{ZFar: 100}, "main")

	if !visited {
		t.Error("node should still be visited with a degenerate observer")
	}
}

func TestFromGraphSkipsLODHidden(t *testing.T) {
	graph := scene.NewGraph()
	mat := newTestMaterial("a")
	data := newTestSurface(t)

	visible := &testNode{name: "near", pos: math3d.V3(0, 0, 0)}
	visible.collect = func(ctx *Context) {
		ctx.Storage.Push(data, mat, PathDeferred, 0, 0, InstanceData{})
	}
	hidden := &testNode{name: "far-detail", pos: math3d.V3(0, 0, -90)}
	hidden.collect = func(ctx *Context) {
		t.Error("LOD-hidden node must not be asked for render data")
	}

	visibleHandle := graph.Add(visible)
	hiddenHandle := graph.Add(hidden)

	// Both objects are restricted to the nearest 30% of the view range;
	// the observer at z=10 sees the origin at ~10% and the far node at ~100%.
	graph.Add(&testNode{name: "governor", lod: &scene.LODGroup{
		Levels: []scene.LODLevel{
			{Begin: 0, End: 0.3, Objects: []scene.Handle{visibleHandle, hiddenHandle}},
		},
	}})

	s := FromGraph(graph, testObserver(), "main")

	if len(s.Batches) != 1 {
		t.Errorf("got %d batches, want 1", len(s.Batches))
	}
}
