package cluster

import (
	"math"
	"sort"
)

// KDNode is a node in the flattened tree. Leaves own the bucket
// Points[Start:End]; inner nodes split on Points[PointIdx] along Axis.
type KDNode struct {
	PointIdx int32
	Left     int32
	Right    int32
	Start    int32
	End      int32
	Axis     uint8
}

func (n KDNode) isLeaf() bool { return n.Left == -1 && n.Right == -1 && n.End > n.Start }

// KDPoint is a pin position plus its index in the source PinSet.
type KDPoint struct {
	Coordinates
	Idx int32
}

// KDTree is a static 2-D tree over a PinSet's coordinates. Axis 0 is Left,
// axis 1 is Top.
type KDTree struct {
	Nodes    []KDNode
	Points   []KDPoint
	NodeSize int
	Bounds   KDBounds
	pins     PinSet
}

type KDBounds struct {
	MinTop, MinLeft, MaxTop, MaxLeft float64
}

// Extend expands bounds to include a position.
func (b *KDBounds) Extend(c Coordinates) {
	b.MinTop = math.Min(b.MinTop, c.Top)
	b.MinLeft = math.Min(b.MinLeft, c.Left)
	b.MaxTop = math.Max(b.MaxTop, c.Top)
	b.MaxLeft = math.Max(b.MaxLeft, c.Left)
}

// NewKDTree builds the tree. pins must not be mutated afterwards.
func NewKDTree(pins PinSet, nodeSize int) *KDTree {
	if nodeSize <= 0 {
		nodeSize = DefaultOptions().NodeSize
	}
	tree := &KDTree{
		Nodes:    make([]KDNode, 0, 2*len(pins)/nodeSize+1),
		Points:   make([]KDPoint, len(pins)),
		NodeSize: nodeSize,
		pins:     pins,
		Bounds: KDBounds{
			MinTop:  math.Inf(1),
			MinLeft: math.Inf(1),
			MaxTop:  math.Inf(-1),
			MaxLeft: math.Inf(-1),
		},
	}

	for i, p := range pins {
		tree.Points[i] = KDPoint{Coordinates: p.Coordinates, Idx: int32(i)}
		tree.Bounds.Extend(p.Coordinates)
	}

	if len(pins) > 0 {
		tree.buildNodes(0, len(pins)-1, 0)
	}
	return tree
}

func (t *KDTree) buildNodes(start, end, depth int) int32 {
	if start > end {
		return -1
	}

	nodeIdx := int32(len(t.Nodes))
	t.Nodes = append(t.Nodes, KDNode{Left: -1, Right: -1})

	if end-start < t.NodeSize {
		t.Nodes[nodeIdx].Start = int32(start)
		t.Nodes[nodeIdx].End = int32(end + 1)
		return nodeIdx
	}

	axis := depth % 2
	median := (start + end) / 2
	sortPointsRange(t.Points[start:end+1], axis)

	// children append to t.Nodes, so write through the index, not a pointer
	left := t.buildNodes(start, median-1, depth+1)
	right := t.buildNodes(median+1, end, depth+1)

	t.Nodes[nodeIdx].PointIdx = int32(median)
	t.Nodes[nodeIdx].Axis = uint8(axis)
	t.Nodes[nodeIdx].Left = left
	t.Nodes[nodeIdx].Right = right
	return nodeIdx
}

func sortPointsRange(points []KDPoint, axis int) {
	if axis == 0 {
		sort.SliceStable(points, func(i, j int) bool {
			return points[i].Left < points[j].Left
		})
	} else {
		sort.SliceStable(points, func(i, j int) bool {
			return points[i].Top < points[j].Top
		})
	}
}

func axisValue(c Coordinates, axis uint8) float64 {
	if axis == 0 {
		return c.Left
	}
	return c.Top
}

// Within returns the source indexes of pins strictly closer than radius to
// center, ascending, so callers see the same order as a linear scan.
func (t *KDTree) Within(center Coordinates, radius float64) []int {
	if len(t.Nodes) == 0 {
		return nil
	}
	var out []int
	t.search(0, center, radius, &out)
	sort.Ints(out)
	return out
}

func (t *KDTree) search(nodeIdx int32, center Coordinates, radius float64, out *[]int) {
	if nodeIdx < 0 {
		return
	}
	node := t.Nodes[nodeIdx]

	if node.isLeaf() {
		for _, p := range t.Points[node.Start:node.End] {
			t.collect(p, center, radius, out)
		}
		return
	}

	split := t.Points[node.PointIdx]
	t.collect(split, center, radius, out)

	q := axisValue(center, node.Axis)
	s := axisValue(split.Coordinates, node.Axis)
	if q-radius <= s {
		t.search(node.Left, center, radius, out)
	}
	if q+radius >= s {
		t.search(node.Right, center, radius, out)
	}
}

// collect tests against the original pin so the comparison matches
// VisiblePins exactly.
func (t *KDTree) collect(p KDPoint, center Coordinates, radius float64, out *[]int) {
	if distance(t.pins[p.Idx].Coordinates, center) < radius {
		*out = append(*out, int(p.Idx))
	}
}
