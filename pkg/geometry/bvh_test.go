package geometry

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/chewxy/math32"
	"github.com/df07/go-cpu-pathtracer/pkg/core"
	"github.com/df07/go-cpu-pathtracer/pkg/material"
)

func TestExpandBits(t *testing.T) {
	tests := []struct {
		input    uint32
		expected uint32
	}{
		{0, 0},
		{1, 1},
		{2, 8},
		{3, 9},
		{1023, 0x09249249},
	}

	for _, tt := range tests {
		if got := expandBits(tt.input); got != tt.expected {
			t.Errorf("expandBits(%d) = %#x, want %#x", tt.input, got, tt.expected)
		}
	}
}

func TestMortonCode(t *testing.T) {
	bounds := core.NewAABB(core.NewVec3(0, 0, 0), core.NewVec3(1, 1, 1))

	tests := []struct {
		name     string
		point    core.Vec3
		expected uint32
	}{
		{"Min corner", core.NewVec3(0, 0, 0), 0},
		{"Max corner", core.NewVec3(1, 1, 1), 0x3FFFFFFF},
		{"X only", core.NewVec3(1, 0, 0), 0x09249249 << 2},
		{"Y only", core.NewVec3(0, 1, 0), 0x09249249 << 1},
		{"Z only", core.NewVec3(0, 0, 1), 0x09249249},
		{"Clamped above", core.NewVec3(5, 5, 5), 0x3FFFFFFF},
		{"Clamped below", core.NewVec3(-5, -5, -5), 0},
		{"NaN", core.NewVec3(math32.NaN(), 0, 0), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MortonCode(tt.point, bounds); got != tt.expected {
				t.Errorf("MortonCode(%v) = %#x, want %#x", tt.point, got, tt.expected)
			}
		})
	}

	flat := core.NewAABB(core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 1))
	if got := MortonCode(core.NewVec3(0, 0, 0), flat); got != 0 {
		t.Errorf("Zero extent axis should quantize to 0, got %#x", got)
	}
}

func TestFindSplit(t *testing.T) {
	tests := []struct {
		name        string
		codes       []uint32
		first, last int
		expected    int
	}{
		{"Two codes", []uint32{1, 2}, 0, 1, 0},
		{"Identical codes split at midpoint", []uint32{7, 7, 7, 7, 7}, 0, 4, 2},
		{"Top bit boundary", []uint32{0b000, 0b001, 0b010, 0b100, 0b101}, 0, 4, 2},
		{"Single outlier", []uint32{0b0001, 0b0010, 0b0011, 0b1000}, 0, 3, 2},
		{"Subrange", []uint32{0, 1, 4, 5, 6, 7}, 2, 5, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := findSplit(tt.codes, tt.first, tt.last); got != tt.expected {
				t.Errorf("findSplit = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestBuildBVH_Empty(t *testing.T) {
	if _, err := BuildBVH([]Primitive{}); !errors.Is(err, ErrEmptyWorld) {
		t.Errorf("Expected ErrEmptyWorld, got %v", err)
	}
}

func TestBuildBVH_SingleIsLeaf(t *testing.T) {
	prims := []Primitive{NewSphere(core.NewVec3(1, 2, 3), 1, nil)}
	bvh, err := BuildBVH(prims)
	if err != nil {
		t.Fatalf("BuildBVH failed: %v", err)
	}
	if len(bvh.Nodes) != 1 || !bvh.Nodes[bvh.Root].IsLeaf() {
		t.Fatalf("Expected a single leaf root, got %+v", bvh.Nodes)
	}
	if err := Validate(bvh, prims); err != nil {
		t.Error(err)
	}
}

func TestBuildBVH_CoincidentOrigins(t *testing.T) {
	var prims []Primitive
	for i := 0; i < 33; i++ {
		prims = append(prims, NewSphere(core.NewVec3(0, 0, 0), float32(i+1)*0.1, nil))
	}

	bvh, err := BuildBVH(prims)
	if err != nil {
		t.Fatalf("BuildBVH failed: %v", err)
	}
	if len(bvh.Nodes) != 2*len(prims)-1 {
		t.Errorf("Expected %d nodes, got %d", 2*len(prims)-1, len(bvh.Nodes))
	}
	if bvh.Depth > 8 {
		t.Errorf("Midpoint splitting should keep depth logarithmic, got %d", bvh.Depth)
	}
	if err := Validate(bvh, prims); err != nil {
		t.Error(err)
	}
}

func TestBuildBVH_Deterministic(t *testing.T) {
	prims := randomPrimitives(rand.New(rand.NewPCG(11, 12)), 200)

	a, err := BuildBVH(prims)
	if err != nil {
		t.Fatal(err)
	}
	b, err := BuildBVH(prims)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Nodes) != len(b.Nodes) || a.Root != b.Root {
		t.Fatalf("Builds differ in shape")
	}
	for i := range a.Nodes {
		if a.Nodes[i] != b.Nodes[i] {
			t.Fatalf("Node %d differs between builds: %+v vs %+v", i, a.Nodes[i], b.Nodes[i])
		}
	}
}

func TestBuildBVH_ParallelBoundsMatchSerial(t *testing.T) {
	prims := randomPrimitives(rand.New(rand.NewPCG(21, 22)), 3*minParallelItems)
	bvh, err := BuildBVH(prims)
	if err != nil {
		t.Fatal(err)
	}
	if err := Validate(bvh, prims); err != nil {
		t.Error(err)
	}
	stats := bvh.Stats()
	if stats.Leaves != len(prims) || stats.Nodes != 2*len(prims)-1 {
		t.Errorf("Unexpected stats %+v for %d primitives", stats, len(prims))
	}
}

func randomPrimitives(rng *rand.Rand, n int) []Primitive {
	prims := make([]Primitive, 0, n)
	for i := 0; i < n; i++ {
		if rng.IntN(2) == 0 {
			prims = append(prims, NewSphere(randomVec(rng, 10), 0.05+rng.Float32(), nil))
			continue
		}
		base := randomVec(rng, 10)
		prims = append(prims, NewTriangle(
			base,
			base.Add(randomVec(rng, 2)),
			base.Add(randomVec(rng, 2)),
			nil,
		))
	}
	return prims
}

// The BVH must report the same nearest hit as a brute force scan.
func TestBVH_MatchesLinearScan(t *testing.T) {
	scenes, rays := 1000, 100
	if testing.Short() {
		scenes = 30
	}

	rng := rand.New(rand.NewPCG(31, 32))
	inf := math32.Inf(1)

	for s := 0; s < scenes; s++ {
		world := NewWorld(0)
		for _, p := range randomPrimitives(rng, 1+rng.IntN(60)) {
			if err := world.Add(p); err != nil {
				t.Fatal(err)
			}
		}
		if err := world.RecalculateBVH(); err != nil {
			t.Fatal(err)
		}
		if err := Validate(world.BVH(), world.Primitives()); err != nil {
			t.Fatalf("scene %d: %v", s, err)
		}

		for r := 0; r < rays; r++ {
			ray := core.NewRay(randomVec(rng, 15), randomVec(rng, 1))
			if ray.Direction.LengthSquared() == 0 {
				continue
			}

			want, wantOK := world.IntersectLinear(ray, 0, inf)
			got, gotOK := world.Intersect(ray, 0, inf, true)

			if wantOK != gotOK {
				t.Fatalf("scene %d ray %d: linear hit=%v, BVH hit=%v", s, r, wantOK, gotOK)
			}
			if wantOK && math32.Abs(want.T-got.T) > 1e-5*max(1, want.T) {
				t.Fatalf("scene %d ray %d: linear t=%f, BVH t=%f", s, r, want.T, got.T)
			}
		}
	}
}

func TestBVH_DeepTreeStillTraverses(t *testing.T) {
	// A hand-built chain deeper than the fixed stack
	const depth = 3 * MaxStackDepth
	mat := material.NewMaterial()
	var items []*Sphere
	var nodes []BVHNode

	for i := 0; i < depth; i++ {
		items = append(items, NewSphere(core.NewVec3(0, 0, float32(-i)*3), 1, mat))
	}
	big := core.NewAABB(core.NewVec3(-2, -2, -float32(depth)*3), core.NewVec3(2, 2, 2))

	// leaves first, then a right-leaning spine
	for i := range items {
		nodes = append(nodes, BVHNode{Bounds: items[i].Bounds().Expand(LeafPad), Left: -1, Right: -1, Item: int32(i)})
	}
	prev := int32(0)
	for i := 1; i < depth; i++ {
		nodes = append(nodes, BVHNode{Bounds: big, Left: int32(i), Right: prev, Item: -1})
		prev = int32(len(nodes) - 1)
	}
	bvh := &BVH{Nodes: nodes, Root: prev, Depth: depth}

	// the spine is popped first each time, leaving every leaf on the stack
	ray := core.NewRay(core.NewVec3(0, 0, -float32(depth)*3-5), core.NewVec3(0, 0, 1))
	hit, item, ok := bvh.Intersect(ray, 0, math32.Inf(1), func(i int32, lo, hi float32) (material.HitRecord, bool) {
		return items[i].Intersect(ray, lo, hi)
	})
	if !ok {
		t.Fatal("Expected a hit through a deep tree")
	}
	if item != depth-1 {
		t.Errorf("Expected nearest sphere %d, got %d (t=%f)", depth-1, item, hit.T)
	}
}
