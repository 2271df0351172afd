package viewport

import (
	"errors"
	"fmt"
)

var ErrUnknownEvent = errors.New("unknown event")

// EventKind names an input event understood by Reduce.
type EventKind string

const (
	EventWheel           EventKind = "wheel"
	EventPointerDown     EventKind = "pointer_down"
	EventPointerMove     EventKind = "pointer_move"
	EventPointerUp       EventKind = "pointer_up"
	EventPointerLeave    EventKind = "pointer_leave"
	EventPinClick        EventKind = "pin_click"
	EventClusterClick    EventKind = "cluster_click"
	EventBackgroundClick EventKind = "background_click"
	EventPinHover        EventKind = "pin_hover"
	EventKey             EventKind = "key"
	EventZoomIn          EventKind = "zoom_in"
	EventZoomOut         EventKind = "zoom_out"
	EventRecenter        EventKind = "recenter"
	EventViewDetails     EventKind = "view_details"
)

// Target is what a pointer-down landed on. Only the background starts a pan.
type Target string

const (
	TargetBackground Target = "background"
	TargetPin        Target = "pin"
	TargetCluster    Target = "cluster"
	TargetControl    Target = "control"
)

// Event is a single low-level input. Which fields matter depends on Kind.
type Event struct {
	Kind   EventKind `json:"kind"`
	Target Target    `json:"target,omitempty"`
	X      float64   `json:"x,omitempty"`
	Y      float64   `json:"y,omitempty"`
	DeltaY float64   `json:"deltaY,omitempty"`
	ID     string    `json:"id,omitempty"`
	Key    string    `json:"key,omitempty"`
}

// Validate rejects events Reduce would not recognise.
func (e Event) Validate() error {
	switch e.Kind {
	case EventWheel, EventPointerDown, EventPointerMove, EventPointerUp,
		EventPointerLeave, EventBackgroundClick, EventPinHover, EventKey,
		EventZoomIn, EventZoomOut, EventRecenter:
		return nil
	case EventPinClick, EventClusterClick, EventViewDetails:
		if e.ID == "" {
			return fmt.Errorf("%s without id: %w", e.Kind, ErrUnknownEvent)
		}
		return nil
	}
	return fmt.Errorf("%q: %w", e.Kind, ErrUnknownEvent)
}

// EffectKind names a side effect requested by Reduce.
type EffectKind string

const (
	// EffectStartTransition asks the owner to raise Transitioning for a
	// fixed duration.
	EffectStartTransition EffectKind = "start_transition"
	// EffectNavigate asks an external router to open a property's details.
	EffectNavigate EffectKind = "navigate"
)

type Effect struct {
	Kind       EffectKind `json:"kind"`
	PropertyID string     `json:"propertyId,omitempty"`
}

// DragPhase is the pointer interaction state: Idle -> Panning -> Idle.
type DragPhase int

const (
	DragIdle DragPhase = iota
	DragPanning
)

// Drag carries the last pointer position while panning.
type Drag struct {
	Phase DragPhase `json:"phase"`
	LastX float64   `json:"lastX,omitempty"`
	LastY float64   `json:"lastY,omitempty"`
}

// Model is everything one map view owns.
type Model struct {
	State         State     `json:"state"`
	Selection     Selection `json:"selection"`
	Hovered       string    `json:"hovered,omitempty"`
	Drag          Drag      `json:"drag"`
	Transitioning bool      `json:"transitioning"`
}

// Config parameterises the controller.
type Config struct {
	Limits Limits
	// ClusterZoom is the zoom forced when a cluster is expanded. It should
	// equal the cluster builder's threshold so the drill-in shows individuals.
	ClusterZoom int
	// PanDamping scales pointer deltas into map-plane deltas.
	PanDamping float64
}

func DefaultConfig() Config {
	return Config{
		Limits:      DefaultLimits(),
		ClusterZoom: 13,
		PanDamping:  0.1,
	}
}

// NewModel returns the model a freshly mounted map starts from.
func NewModel(cfg Config) Model {
	return Model{State: cfg.Limits.Home}
}

// IDSet reports whether an id names something on the current map.
type IDSet func(id string) bool

// Resolve checks the id an event carries before it reaches Reduce. A click
// on an unknown pin or cluster becomes a background click, a hover over an
// unknown pin clears the hover, and view details for an unknown pin is
// dropped (ok is false).
func Resolve(ev Event, pins, clusters IDSet) (Event, bool) {
	switch ev.Kind {
	case EventPinClick:
		if !pins(ev.ID) {
			return Event{Kind: EventBackgroundClick}, true
		}
	case EventClusterClick:
		if !clusters(ev.ID) {
			return Event{Kind: EventBackgroundClick}, true
		}
	case EventPinHover:
		if ev.ID != "" && !pins(ev.ID) {
			return Event{Kind: EventPinHover}, true
		}
	case EventViewDetails:
		if !pins(ev.ID) {
			return ev, false
		}
	}
	return ev, true
}

// Reduce applies one event and returns the next model plus any effects.
// It never mutates its input and never fails; unknown kinds are no-ops.
func Reduce(cfg Config, m Model, ev Event) (Model, []Effect) {
	switch ev.Kind {
	case EventWheel:
		if m.Transitioning || ev.DeltaY == 0 {
			return m, nil
		}
		if ev.DeltaY < 0 {
			return zoomBy(cfg, m, 1)
		}
		return zoomBy(cfg, m, -1)

	case EventZoomIn:
		return zoomBy(cfg, m, 1)

	case EventZoomOut:
		return zoomBy(cfg, m, -1)

	case EventPointerDown:
		if ev.Target != TargetBackground {
			return m, nil
		}
		m.Drag = Drag{Phase: DragPanning, LastX: ev.X, LastY: ev.Y}
		return m, nil

	case EventPointerMove:
		if m.Drag.Phase != DragPanning {
			return m, nil
		}
		dx := (ev.X - m.Drag.LastX) * cfg.PanDamping
		dy := (ev.Y - m.Drag.LastY) * cfg.PanDamping
		m.State = cfg.Limits.PanBy(m.State, -dx, -dy)
		m.Drag.LastX, m.Drag.LastY = ev.X, ev.Y
		return m, nil

	case EventPointerUp:
		m.Drag = Drag{}
		return m, nil

	case EventPointerLeave:
		m.Drag = Drag{}
		m.Hovered = ""
		return m, nil

	case EventPinHover:
		m.Hovered = ev.ID
		return m, nil

	case EventPinClick:
		if id, ok := m.Selection.PinID(); ok && id == ev.ID {
			m.Selection = None()
		} else {
			m.Selection = SelectedPin(ev.ID)
		}
		return m, nil

	case EventClusterClick:
		if id, ok := m.Selection.ClusterID(); ok && id == ev.ID {
			m.Selection = None()
			return m, nil
		}
		m.Selection = ExpandedCluster(ev.ID)
		var changed bool
		m.State, changed = cfg.Limits.SetZoom(m.State, cfg.ClusterZoom)
		if changed {
			return m, []Effect{{Kind: EffectStartTransition}}
		}
		return m, nil

	case EventBackgroundClick:
		m.Selection = None()
		return m, nil

	case EventKey:
		switch ev.Key {
		case "Escape":
			m.Selection = None()
			return m, nil
		case "+", "=":
			return zoomBy(cfg, m, 1)
		case "-":
			return zoomBy(cfg, m, -1)
		}
		return m, nil

	case EventRecenter:
		m.State = cfg.Limits.Recenter()
		m.Selection = None()
		return m, []Effect{{Kind: EffectStartTransition}}

	case EventViewDetails:
		return m, []Effect{{Kind: EffectNavigate, PropertyID: ev.ID}}
	}
	return m, nil
}

func zoomBy(cfg Config, m Model, delta int) (Model, []Effect) {
	next, changed := cfg.Limits.SetZoom(m.State, m.State.Zoom+delta)
	if !changed {
		return m, nil
	}
	m.State = next
	return m, []Effect{{Kind: EffectStartTransition}}
}
