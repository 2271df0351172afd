package cluster

import (
	"fmt"
	"sort"
	"strings"

	"web/rentmap/viewport"
)

// Strategy selects how visible pins are grouped below the zoom threshold.
type Strategy string

const (
	// StrategyGreedy is the single-pass, seed-based grouping. It is
	// deterministic but depends on pin order.
	StrategyGreedy Strategy = "greedy"
	// StrategyConnected groups pins transitively linked by pairs closer than
	// the radius. It does not depend on pin order.
	StrategyConnected Strategy = "connected"
)

// ParseStrategy accepts "greedy" or "connected"; anything else is greedy.
func ParseStrategy(s string) Strategy {
	if Strategy(strings.ToLower(strings.TrimSpace(s))) == StrategyConnected {
		return StrategyConnected
	}
	return StrategyGreedy
}

type Options struct {
	MinZoom int
	// ZoomThreshold is the zoom at and above which every pin is individual.
	ZoomThreshold int
	// Radius is the grouping distance in plane units.
	Radius float64
	// View radius is max(MinViewRadius, MaxViewRadius - (zoom-MinZoom)*ViewRadiusStep).
	MaxViewRadius  float64
	MinViewRadius  float64
	ViewRadiusStep float64
	// IndexThreshold is the pin count from which visibility uses a KD-tree.
	IndexThreshold int
	NodeSize       int
	Strategy       Strategy
}

func DefaultOptions() Options {
	return Options{
		MinZoom:        8,
		ZoomThreshold:  13,
		Radius:         12,
		MaxViewRadius:  100,
		MinViewRadius:  35,
		ViewRadiusStep: 6,
		IndexThreshold: 256,
		NodeSize:       16,
		Strategy:       StrategyGreedy,
	}
}

func normalizeOptions(o Options) Options {
	d := DefaultOptions()
	if o.MinZoom <= 0 {
		o.MinZoom = d.MinZoom
	}
	if o.ZoomThreshold <= 0 {
		o.ZoomThreshold = d.ZoomThreshold
	}
	if o.Radius <= 0 {
		o.Radius = d.Radius
	}
	if o.MaxViewRadius <= 0 {
		o.MaxViewRadius = d.MaxViewRadius
	}
	if o.MinViewRadius <= 0 {
		o.MinViewRadius = d.MinViewRadius
	}
	if o.ViewRadiusStep <= 0 {
		o.ViewRadiusStep = d.ViewRadiusStep
	}
	if o.IndexThreshold <= 0 {
		o.IndexThreshold = d.IndexThreshold
	}
	if o.NodeSize <= 0 {
		o.NodeSize = d.NodeSize
	}
	if o.Strategy != StrategyConnected {
		o.Strategy = StrategyGreedy
	}
	return o
}

// ViewRadius is the visible distance from the center at a zoom level. It is
// non-increasing in zoom and never below MinViewRadius.
func (o Options) ViewRadius(zoom int) float64 {
	r := o.MaxViewRadius - float64(zoom-o.MinZoom)*o.ViewRadiusStep
	if r < o.MinViewRadius {
		return o.MinViewRadius
	}
	return r
}

// Group is one rendered marker: a single pin or a cluster of two or more.
type Group struct {
	ID          string        `json:"id"`
	IsCluster   bool          `json:"isCluster"`
	Position    Coordinates   `json:"position"`
	Count       int           `json:"count"`
	AverageRent float64       `json:"averageRent"`
	Members     []PropertyPin `json:"members"`
}

// Partition is the grouping of the visible pins for one viewport.
type Partition struct {
	Zoom      int            `json:"zoom"`
	Center    viewport.Point `json:"center"`
	Radius    float64        `json:"radius"`
	Visible   int            `json:"visible"`
	Clustered bool           `json:"clustered"`
	Groups    []Group        `json:"groups"`
}

// Find returns the group with the given id.
func (p Partition) Find(id string) (Group, bool) {
	for _, g := range p.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}

// Clusters counts groups with two or more members.
func (p Partition) Clusters() int {
	n := 0
	for _, g := range p.Groups {
		if g.IsCluster {
			n++
		}
	}
	return n
}

// VisiblePins returns the pins strictly inside the view radius, in pin order.
func VisiblePins(pins []PropertyPin, vs viewport.State, opts Options) []PropertyPin {
	opts = normalizeOptions(opts)
	center := Coordinates{Top: vs.Center.Y, Left: vs.Center.X}
	radius := opts.ViewRadius(vs.Zoom)

	visible := make([]PropertyPin, 0, len(pins))
	for _, p := range pins {
		if distance(p.Coordinates, center) < radius {
			visible = append(visible, p)
		}
	}
	return visible
}

// Build partitions visible pins into groups for a zoom level.
func Build(visible []PropertyPin, zoom int, opts Options) []Group {
	opts = normalizeOptions(opts)
	if len(visible) == 0 {
		return []Group{}
	}

	var groups [][]int
	switch {
	case zoom >= opts.ZoomThreshold:
		groups = make([][]int, len(visible))
		for i := range visible {
			groups[i] = []int{i}
		}
	case opts.Strategy == StrategyConnected:
		groups = clusterConnected(visible, opts.Radius)
	default:
		groups = clusterGreedy(visible, opts.Radius)
	}

	out := make([]Group, len(groups))
	for i, idx := range groups {
		members := make([]PropertyPin, len(idx))
		for j, k := range idx {
			members[j] = visible[k]
		}
		out[i] = createGroup(members, i)
	}
	return out
}

// clusterGreedy walks pins in order; each unassigned pin seeds a group and
// pulls in every later unassigned pin within radius of the seed. Distances
// are to the seed, never to the growing centroid.
func clusterGreedy(points []PropertyPin, radius float64) [][]int {
	assigned := make([]bool, len(points))
	var groups [][]int

	for i := range points {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		group := []int{i}

		for j := i + 1; j < len(points); j++ {
			if assigned[j] {
				continue
			}
			if distance(points[i].Coordinates, points[j].Coordinates) < radius {
				assigned[j] = true
				group = append(group, j)
			}
		}
		groups = append(groups, group)
	}
	return groups
}

// clusterConnected joins every pair closer than radius with union-find.
// Groups are ordered by their lowest member index, members by index.
func clusterConnected(points []PropertyPin, radius float64) [][]int {
	parent := make([]int, len(points))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	for i := range points {
		for j := i + 1; j < len(points); j++ {
			if distance(points[i].Coordinates, points[j].Coordinates) < radius {
				ri, rj := find(i), find(j)
				if ri == rj {
					continue
				}
				// smaller index wins so roots stay the lowest member
				if ri < rj {
					parent[rj] = ri
				} else {
					parent[ri] = rj
				}
			}
		}
	}

	byRoot := make(map[int][]int)
	var roots []int
	for i := range points {
		r := find(i)
		if _, ok := byRoot[r]; !ok {
			roots = append(roots, r)
		}
		byRoot[r] = append(byRoot[r], i)
	}
	sort.Ints(roots)

	groups := make([][]int, len(roots))
	for i, r := range roots {
		groups[i] = byRoot[r]
	}
	return groups
}

// createGroup turns members into a marker. Singletons keep the pin's own id;
// clusters are named after their position in the partition.
func createGroup(members []PropertyPin, idx int) Group {
	if len(members) == 1 {
		p := members[0]
		return Group{
			ID:          p.ID,
			Position:    p.Coordinates,
			Count:       1,
			AverageRent: p.Rent,
			Members:     members,
		}
	}

	var sumTop, sumLeft, sumRent float64
	for _, p := range members {
		sumTop += p.Coordinates.Top
		sumLeft += p.Coordinates.Left
		sumRent += p.Rent
	}
	n := float64(len(members))

	return Group{
		ID:          fmt.Sprintf("%s%d", ClusterIDPrefix, idx),
		IsCluster:   true,
		Position:    Coordinates{Top: sumTop / n, Left: sumLeft / n},
		Count:       len(members),
		AverageRent: sumRent / n,
		Members:     members,
	}
}

// Engine binds an immutable pin set to clustering options and answers
// viewport queries against it.
type Engine struct {
	opts  Options
	pins  PinSet
	index *KDTree
}

// NewEngine copies pins and, for large sets, builds the visibility index once.
func NewEngine(pins PinSet, opts Options) *Engine {
	opts = normalizeOptions(opts)
	owned := make(PinSet, len(pins))
	copy(owned, pins)

	e := &Engine{opts: opts, pins: owned}
	if len(owned) >= opts.IndexThreshold {
		e.index = NewKDTree(owned, opts.NodeSize)
	}
	return e
}

func (e *Engine) Options() Options { return e.opts }

func (e *Engine) Pins() PinSet { return e.pins }

func (e *Engine) Lookup(id string) (PropertyPin, bool) { return e.pins.Lookup(id) }

// Visible returns the on-screen pins for vs in pin order.
func (e *Engine) Visible(vs viewport.State) []PropertyPin {
	if e.index == nil {
		return VisiblePins(e.pins, vs, e.opts)
	}
	center := Coordinates{Top: vs.Center.Y, Left: vs.Center.X}
	idx := e.index.Within(center, e.opts.ViewRadius(vs.Zoom))
	visible := make([]PropertyPin, len(idx))
	for i, k := range idx {
		visible[i] = e.pins[k]
	}
	return visible
}

// Render runs the visibility filter and the cluster builder from scratch.
func (e *Engine) Render(vs viewport.State) Partition {
	visible := e.Visible(vs)
	return Partition{
		Zoom:      vs.Zoom,
		Center:    vs.Center,
		Radius:    e.opts.ViewRadius(vs.Zoom),
		Visible:   len(visible),
		Clustered: vs.Zoom < e.opts.ZoomThreshold,
		Groups:    Build(visible, vs.Zoom, e.opts),
	}
}
