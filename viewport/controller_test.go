package viewport

import (
	"encoding/json"
	"errors"
	"testing"
)

func apply(cfg Config, m Model, events ...Event) (Model, []Effect) {
	var all []Effect
	for _, ev := range events {
		var effects []Effect
		m, effects = Reduce(cfg, m, ev)
		all = append(all, effects...)
	}
	return m, all
}

func TestWheelZoomsOneStepPerTick(t *testing.T) {
	cfg := DefaultConfig()
	m := NewModel(cfg)

	m, effects := Reduce(cfg, m, Event{Kind: EventWheel, DeltaY: -120})
	if m.State.Zoom != 12 {
		t.Errorf("Expected zoom 12 after wheel up, got %d", m.State.Zoom)
	}
	if len(effects) != 1 || effects[0].Kind != EffectStartTransition {
		t.Errorf("Expected a transition effect, got %+v", effects)
	}

	m, _ = Reduce(cfg, m, Event{Kind: EventWheel, DeltaY: 3})
	if m.State.Zoom != 11 {
		t.Errorf("Expected zoom 11 after wheel down, got %d", m.State.Zoom)
	}
}

func TestWheelIgnoredWhileTransitioning(t *testing.T) {
	cfg := DefaultConfig()
	m := NewModel(cfg)
	m.Transitioning = true

	next, effects := Reduce(cfg, m, Event{Kind: EventWheel, DeltaY: -1})
	if next.State.Zoom != m.State.Zoom || len(effects) != 0 {
		t.Errorf("Expected wheel to be dropped during a transition, got zoom %d effects %v", next.State.Zoom, effects)
	}
}

func TestZoomAtLimitEmitsNoTransition(t *testing.T) {
	cfg := DefaultConfig()
	m := NewModel(cfg)
	m.State.Zoom = cfg.Limits.MaxZoom

	_, effects := Reduce(cfg, m, Event{Kind: EventZoomIn})
	if len(effects) != 0 {
		t.Errorf("Expected no effect at max zoom, got %v", effects)
	}
}

func TestDragToPan(t *testing.T) {
	cfg := DefaultConfig()
	m := NewModel(cfg)

	m, _ = apply(cfg, m,
		Event{Kind: EventPointerDown, Target: TargetBackground, X: 100, Y: 100},
		Event{Kind: EventPointerMove, X: 150, Y: 80},
	)
	if m.Drag.Phase != DragPanning {
		t.Fatal("Expected panning after background pointer down")
	}
	// map follows the pointer: moving right by 50 pans left by 5
	if m.State.Center.X != 45 || m.State.Center.Y != 52 {
		t.Errorf("Expected center (45,52), got %+v", m.State.Center)
	}

	m, _ = apply(cfg, m,
		Event{Kind: EventPointerMove, X: 160, Y: 80},
		Event{Kind: EventPointerUp},
		Event{Kind: EventPointerMove, X: 900, Y: 900},
	)
	if m.Drag.Phase != DragIdle {
		t.Error("Expected idle after pointer up")
	}
	if m.State.Center.X != 44 || m.State.Center.Y != 52 {
		t.Errorf("Expected moves after release to be ignored, got %+v", m.State.Center)
	}
}

func TestPointerDownOnPinDoesNotPan(t *testing.T) {
	cfg := DefaultConfig()
	for _, target := range []Target{TargetPin, TargetCluster, TargetControl} {
		m, _ := apply(cfg, NewModel(cfg),
			Event{Kind: EventPointerDown, Target: target, X: 0, Y: 0},
			Event{Kind: EventPointerMove, X: 200, Y: 200},
		)
		if m.Drag.Phase != DragIdle || m.State.Center != cfg.Limits.Home.Center {
			t.Errorf("Target %s: expected no pan, got drag %+v center %+v", target, m.Drag, m.State.Center)
		}
	}
}

func TestPointerLeaveEndsDragAndHover(t *testing.T) {
	cfg := DefaultConfig()
	m, _ := apply(cfg, NewModel(cfg),
		Event{Kind: EventPinHover, ID: "p1"},
		Event{Kind: EventPointerDown, Target: TargetBackground},
		Event{Kind: EventPointerLeave},
	)
	if m.Drag.Phase != DragIdle || m.Hovered != "" {
		t.Errorf("Expected idle drag and no hover, got %+v hovered=%q", m.Drag, m.Hovered)
	}
}

func TestPinClickToggles(t *testing.T) {
	cfg := DefaultConfig()
	m := NewModel(cfg)

	m, _ = Reduce(cfg, m, Event{Kind: EventPinClick, ID: "p3"})
	if id, ok := m.Selection.PinID(); !ok || id != "p3" {
		t.Fatalf("Expected p3 selected, got %+v", m.Selection)
	}
	m, _ = Reduce(cfg, m, Event{Kind: EventPinClick, ID: "p3"})
	if !m.Selection.IsNone() {
		t.Errorf("Expected second click to deselect, got %+v", m.Selection)
	}
}

func TestPinClickReplacesExpandedCluster(t *testing.T) {
	cfg := DefaultConfig()
	m, _ := apply(cfg, NewModel(cfg),
		Event{Kind: EventClusterClick, ID: "cluster-0"},
		Event{Kind: EventPinClick, ID: "p1"},
	)
	if _, ok := m.Selection.ClusterID(); ok {
		t.Error("Expected pin click to clear the expanded cluster")
	}
	if id, _ := m.Selection.PinID(); id != "p1" {
		t.Errorf("Expected p1 selected, got %q", id)
	}
}

func TestClusterClickDrillsIn(t *testing.T) {
	cfg := DefaultConfig()
	m, effects := Reduce(cfg, NewModel(cfg), Event{Kind: EventClusterClick, ID: "cluster-0"})

	if m.State.Zoom != cfg.ClusterZoom {
		t.Errorf("Expected zoom jump to %d, got %d", cfg.ClusterZoom, m.State.Zoom)
	}
	if id, ok := m.Selection.ClusterID(); !ok || id != "cluster-0" {
		t.Errorf("Expected cluster-0 expanded, got %+v", m.Selection)
	}
	if len(effects) != 1 || effects[0].Kind != EffectStartTransition {
		t.Errorf("Expected one transition effect, got %v", effects)
	}

	m, _ = Reduce(cfg, m, Event{Kind: EventClusterClick, ID: "cluster-0"})
	if !m.Selection.IsNone() {
		t.Error("Expected second cluster click to collapse")
	}
	if m.State.Zoom != cfg.ClusterZoom {
		t.Error("Collapsing must not change zoom")
	}
}

func TestClusterClickFromHighZoom(t *testing.T) {
	cfg := DefaultConfig()
	m := NewModel(cfg)
	m.State.Zoom = 15

	m, effects := Reduce(cfg, m, Event{Kind: EventClusterClick, ID: "cluster-0"})
	if m.State.Zoom != cfg.ClusterZoom {
		t.Errorf("Expected zoom back to %d, got %d", cfg.ClusterZoom, m.State.Zoom)
	}
	if len(effects) != 1 || effects[0].Kind != EffectStartTransition {
		t.Errorf("Expected one transition effect, got %v", effects)
	}

	m.Selection = None()
	_, effects = Reduce(cfg, m, Event{Kind: EventClusterClick, ID: "cluster-0"})
	if len(effects) != 0 {
		t.Errorf("Expected no transition at zoom %d, got %v", cfg.ClusterZoom, effects)
	}
}

func TestClearingSelection(t *testing.T) {
	cfg := DefaultConfig()
	clears := []Event{
		{Kind: EventBackgroundClick},
		{Kind: EventKey, Key: "Escape"},
		{Kind: EventRecenter},
	}
	for _, clear := range clears {
		m, _ := apply(cfg, NewModel(cfg), Event{Kind: EventClusterClick, ID: "cluster-2"}, clear)
		if !m.Selection.IsNone() {
			t.Errorf("%s/%s: expected selection cleared, got %+v", clear.Kind, clear.Key, m.Selection)
		}
	}
}

func TestKeyboardZoom(t *testing.T) {
	cfg := DefaultConfig()
	m, _ := apply(cfg, NewModel(cfg),
		Event{Kind: EventKey, Key: "+"},
		Event{Kind: EventKey, Key: "="},
		Event{Kind: EventKey, Key: "-"},
		Event{Kind: EventKey, Key: "x"},
	)
	if m.State.Zoom != 12 {
		t.Errorf("Expected zoom 12, got %d", m.State.Zoom)
	}
}

func TestRecenterResetsView(t *testing.T) {
	cfg := DefaultConfig()
	m := Model{State: State{Zoom: 17, Center: Point{X: 22, Y: 79}}, Selection: SelectedPin("p1")}

	m, effects := Reduce(cfg, m, Event{Kind: EventRecenter})
	if m.State != cfg.Limits.Home {
		t.Errorf("Expected home state, got %+v", m.State)
	}
	if len(effects) != 1 {
		t.Errorf("Expected transition effect on recenter, got %v", effects)
	}
}

func TestViewDetailsNavigates(t *testing.T) {
	cfg := DefaultConfig()
	m := NewModel(cfg)
	next, effects := Reduce(cfg, m, Event{Kind: EventViewDetails, ID: "p7"})
	if len(effects) != 1 || effects[0].Kind != EffectNavigate || effects[0].PropertyID != "p7" {
		t.Errorf("Expected navigate effect for p7, got %v", effects)
	}
	if next != m {
		t.Error("View details must not change the model")
	}
}

func TestResolveUnknownIDs(t *testing.T) {
	known := func(ids ...string) IDSet {
		return func(id string) bool {
			for _, k := range ids {
				if k == id {
					return true
				}
			}
			return false
		}
	}
	pins := known("p1", "p2")
	clusters := known("cluster-0")

	testCases := []struct {
		in     Event
		want   Event
		wantOK bool
	}{
		{Event{Kind: EventPinClick, ID: "p1"}, Event{Kind: EventPinClick, ID: "p1"}, true},
		{Event{Kind: EventPinClick, ID: "ghost"}, Event{Kind: EventBackgroundClick}, true},
		{Event{Kind: EventClusterClick, ID: "cluster-0"}, Event{Kind: EventClusterClick, ID: "cluster-0"}, true},
		{Event{Kind: EventClusterClick, ID: "cluster-99"}, Event{Kind: EventBackgroundClick}, true},
		{Event{Kind: EventPinHover, ID: "ghost"}, Event{Kind: EventPinHover}, true},
		{Event{Kind: EventPinHover}, Event{Kind: EventPinHover}, true},
		{Event{Kind: EventViewDetails, ID: "p2"}, Event{Kind: EventViewDetails, ID: "p2"}, true},
		{Event{Kind: EventViewDetails, ID: "ghost"}, Event{Kind: EventViewDetails, ID: "ghost"}, false},
		{Event{Kind: EventZoomIn}, Event{Kind: EventZoomIn}, true},
	}
	for _, tc := range testCases {
		got, ok := Resolve(tc.in, pins, clusters)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("Resolve(%+v): got %+v %v, want %+v %v", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestUnknownClusterClickKeepsZoom(t *testing.T) {
	cfg := DefaultConfig()
	m := NewModel(cfg)
	m.Selection = SelectedPin("p1")

	ev, ok := Resolve(Event{Kind: EventClusterClick, ID: "cluster-99"},
		func(string) bool { return true }, func(string) bool { return false })
	if !ok {
		t.Fatal("Expected resolved click to be applied")
	}
	next, effects := Reduce(cfg, m, ev)
	if next.State.Zoom != m.State.Zoom || len(effects) != 0 {
		t.Errorf("Expected no zoom change, got zoom %d effects %v", next.State.Zoom, effects)
	}
	if !next.Selection.IsNone() {
		t.Errorf("Expected no selection, got %+v", next.Selection)
	}
}

func TestEventValidate(t *testing.T) {
	if err := (Event{Kind: "teleport"}).Validate(); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("Expected ErrUnknownEvent, got %v", err)
	}
	if err := (Event{Kind: EventPinClick}).Validate(); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("Expected pin click without id to be rejected, got %v", err)
	}
	if err := (Event{Kind: EventZoomIn}).Validate(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestSelectionJSON(t *testing.T) {
	for _, s := range []Selection{None(), SelectedPin("p1"), ExpandedCluster("cluster-3")} {
		data, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		var back Selection
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("Unmarshal %s: %v", data, err)
		}
		if back != s {
			t.Errorf("Expected %+v, got %+v", s, back)
		}
	}

	var bad Selection
	if err := json.Unmarshal([]byte(`{"kind":"both"}`), &bad); err == nil {
		t.Error("Expected error for unknown kind")
	}
}
