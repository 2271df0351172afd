package viewport

// Point is a position in the normalized map plane. X runs along a pin's
// Left coordinate, Y along its Top coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// State is the zoom level and pan center of a map view.
type State struct {
	Zoom   int   `json:"zoom"`
	Center Point `json:"center"`
}

// Limits bounds every State produced by the holder operations.
type Limits struct {
	MinZoom   int
	MaxZoom   int
	MinCenter float64
	MaxCenter float64
	Home      State
}

// DefaultLimits returns zoom 8..18, pan bounds [20,80] and home (11, (50,50)).
func DefaultLimits() Limits {
	return Limits{
		MinZoom:   8,
		MaxZoom:   18,
		MinCenter: 20,
		MaxCenter: 80,
		Home: State{
			Zoom:   11,
			Center: Point{X: 50, Y: 50},
		},
	}
}

// SetZoom clamps zoom to [MinZoom, MaxZoom]. The bool is false when the
// clamped value equals the current one, so callers can skip a transition.
func (l Limits) SetZoom(s State, zoom int) (State, bool) {
	zoom = clampInt(zoom, l.MinZoom, l.MaxZoom)
	if zoom == s.Zoom {
		return s, false
	}
	s.Zoom = zoom
	return s, true
}

// PanBy moves the center by signed deltas and clamps each axis on its own.
func (l Limits) PanBy(s State, dx, dy float64) State {
	s.Center.X = clampFloat(s.Center.X+dx, l.MinCenter, l.MaxCenter)
	s.Center.Y = clampFloat(s.Center.Y+dy, l.MinCenter, l.MaxCenter)
	return s
}

// Recenter returns the fixed home view. It is never derived from the data set.
func (l Limits) Recenter() State {
	return l.Home
}

// Clamp forces an arbitrary state (e.g. a restored snapshot) into bounds.
func (l Limits) Clamp(s State) State {
	s.Zoom = clampInt(s.Zoom, l.MinZoom, l.MaxZoom)
	s.Center.X = clampFloat(s.Center.X, l.MinCenter, l.MaxCenter)
	s.Center.Y = clampFloat(s.Center.Y, l.MinCenter, l.MaxCenter)
	return s
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v != v { // NaN
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
