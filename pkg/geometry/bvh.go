package geometry

import (
	"fmt"
	"runtime"
	"sort"

	"github.com/df07/go-cpu-pathtracer/pkg/core"
	"github.com/df07/go-cpu-pathtracer/pkg/material"
	"golang.org/x/sync/errgroup"
)

// MaxStackDepth is the traversal stack size that fits on the goroutine stack.
// Deeper trees still traverse correctly; the stack spills to the heap.
const MaxStackDepth = 64

// LeafPad grows leaf bounds so grazing rays are not lost to rounding
const LeafPad = 1e-4

// minParallelItems is the smallest item count worth fanning out to goroutines
const minParallelItems = 1024

// BVHNode is either an internal node with two children or a leaf holding one item.
// Children are indices into BVH.Nodes.
type BVHNode struct {
	Bounds core.AABB
	Left   int32
	Right  int32
	Item   int32 // index into the indexed slice, -1 for internal nodes
}

// IsLeaf reports whether the node references an item
func (n *BVHNode) IsLeaf() bool {
	return n.Item >= 0
}

// BVH is a linear bounding volume hierarchy stored as an index arena
type BVH struct {
	Nodes []BVHNode
	Root  int32
	Depth int
}

// BVHStats summarizes the shape of a built tree
type BVHStats struct {
	Nodes  int
	Leaves int
	Depth  int
}

// buildState carries the sorted Morton order through the recursive split
type buildState struct {
	codes  []uint32
	order  []int32
	bounds []core.AABB
	nodes  []BVHNode
	depth  int
}

// BuildBVH constructs a linear BVH over items by sorting their Morton codes and
// splitting ranges where the common prefix drops. Output is deterministic for
// a fixed item order.
func BuildBVH[T Bounded](items []T) (*BVH, error) {
	n := len(items)
	if n == 0 {
		return nil, ErrEmptyWorld
	}

	bounds := make([]core.AABB, n)
	origins := make([]core.Vec3, n)
	if err := forEachChunk(n, func(i int) {
		bounds[i] = items[i].Bounds()
		origins[i] = items[i].Origin()
	}); err != nil {
		return nil, err
	}

	world := core.EmptyAABB()
	for _, b := range bounds {
		world = world.Union(b)
	}

	codes := make([]uint32, n)
	if err := forEachChunk(n, func(i int) {
		codes[i] = MortonCode(origins[i], world)
	}); err != nil {
		return nil, err
	}

	order := make([]int32, n)
	for i := range order {
		order[i] = int32(i)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return codes[order[a]] < codes[order[b]]
	})

	sortedCodes := make([]uint32, n)
	for i, idx := range order {
		sortedCodes[i] = codes[idx]
	}

	state := &buildState{
		codes:  sortedCodes,
		order:  order,
		bounds: bounds,
		nodes:  make([]BVHNode, 0, 2*n-1),
	}
	root := state.build(0, n-1, 1)

	if state.depth > MaxStackDepth {
		logger.Warningf("BVH depth %d exceeds traversal stack size %d; traversal will spill to the heap", state.depth, MaxStackDepth)
	}
	logger.Debugf("built BVH over %d items: %d nodes, depth %d", n, len(state.nodes), state.depth)

	return &BVH{Nodes: state.nodes, Root: root, Depth: state.depth}, nil
}

// build emits the subtree for the sorted range [first, last] and returns its node index
func (s *buildState) build(first, last, depth int) int32 {
	s.depth = max(s.depth, depth)

	if first == last {
		item := s.order[first]
		s.nodes = append(s.nodes, BVHNode{
			Bounds: s.bounds[item].Expand(LeafPad),
			Left:   -1,
			Right:  -1,
			Item:   item,
		})
		return int32(len(s.nodes) - 1)
	}

	split := findSplit(s.codes, first, last)
	left := s.build(first, split, depth+1)
	right := s.build(split+1, last, depth+1)

	s.nodes = append(s.nodes, BVHNode{
		Bounds: s.nodes[left].Bounds.Union(s.nodes[right].Bounds),
		Left:   left,
		Right:  right,
		Item:   -1,
	})
	return int32(len(s.nodes) - 1)
}

// forEachChunk runs fn for every index in [0, n), splitting large ranges across goroutines
func forEachChunk(n int, fn func(i int)) error {
	workers := runtime.GOMAXPROCS(0)
	if n < minParallelItems || workers < 2 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return nil
	}

	chunk := (n + workers - 1) / workers
	var g errgroup.Group
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				fn(i)
			}
			return nil
		})
	}
	return g.Wait()
}

// HitFunc tests a single indexed item against the ray
type HitFunc func(item int32, tMin, tMax float32) (material.HitRecord, bool)

// Intersect walks the tree with an explicit stack and returns the nearest hit in
// [tMin, tMax) along with the index of the item that produced it.
func (b *BVH) Intersect(ray core.Ray, tMin, tMax float32, hit HitFunc) (material.HitRecord, int32, bool) {
	var (
		closest  = tMax
		best     material.HitRecord
		bestItem int32 = -1
	)

	var stackBuf [MaxStackDepth]int32
	stack := append(stackBuf[:0], b.Root)

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &b.Nodes[idx]
		if !node.Bounds.Hit(ray, tMin, closest) {
			continue
		}

		if node.IsLeaf() {
			if rec, ok := hit(node.Item, tMin, closest); ok {
				closest = rec.T
				best = rec
				bestItem = node.Item
			}
			continue
		}

		stack = append(stack, node.Left, node.Right)
	}

	return best, bestItem, bestItem >= 0
}

// Stats returns node, leaf and depth counts
func (b *BVH) Stats() BVHStats {
	stats := BVHStats{Nodes: len(b.Nodes), Depth: b.Depth}
	for i := range b.Nodes {
		if b.Nodes[i].IsLeaf() {
			stats.Leaves++
		}
	}
	return stats
}

// Bounds returns the bounds of the root node
func (b *BVH) Bounds() core.AABB {
	return b.Nodes[b.Root].Bounds
}

// Validate checks that every leaf contains its item and every internal node
// contains both children, and that each item appears in exactly one leaf.
func Validate[T Bounded](b *BVH, items []T) error {
	seen := make([]bool, len(items))
	for i := range b.Nodes {
		node := &b.Nodes[i]
		if node.IsLeaf() {
			if int(node.Item) >= len(items) {
				return fmt.Errorf("%w: leaf %d references item %d of %d", ErrInvalidBVH, i, node.Item, len(items))
			}
			if seen[node.Item] {
				return fmt.Errorf("%w: item %d referenced by more than one leaf", ErrInvalidBVH, node.Item)
			}
			seen[node.Item] = true
			if !node.Bounds.Contains(items[node.Item].Bounds()) {
				return fmt.Errorf("%w: leaf %d does not contain item %d", ErrInvalidBVH, i, node.Item)
			}
			continue
		}
		if !node.Bounds.Contains(b.Nodes[node.Left].Bounds) || !node.Bounds.Contains(b.Nodes[node.Right].Bounds) {
			return fmt.Errorf("%w: node %d does not contain its children", ErrInvalidBVH, i)
		}
	}
	for item, ok := range seen {
		if !ok {
			return fmt.Errorf("%w: item %d missing from tree", ErrInvalidBVH, item)
		}
	}
	return nil
}
