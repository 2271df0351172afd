package runner

import (
	"fmt"
	"sync"
	"time"

	"web/rentmap/cluster"
	"web/rentmap/metrics"
	"web/rentmap/viewport"
)

// View is what a client renders after every call: the controller model plus
// the partition computed from it.
type View struct {
	SessionID     string             `json:"sessionId"`
	Strategy      cluster.Strategy   `json:"strategy"`
	State         viewport.State     `json:"state"`
	Selection     viewport.Selection `json:"selection"`
	Hovered       string             `json:"hovered,omitempty"`
	Panning       bool               `json:"panning"`
	Transitioning bool               `json:"transitioning"`
	Partition     cluster.Partition  `json:"partition"`
	// Navigate is set when the dispatched event asked to open a property.
	Navigate string `json:"navigate,omitempty"`
}

// SessionInfo describes a live session without rendering it.
type SessionInfo struct {
	ID         string           `json:"id"`
	Strategy   cluster.Strategy `json:"strategy"`
	Zoom       int              `json:"zoom"`
	CreatedAt  time.Time        `json:"createdAt"`
	LastAccess time.Time        `json:"lastAccess"`
}

// Session is one map view. All access goes through mu.
type Session struct {
	id        string
	createdAt time.Time

	mu         sync.Mutex
	cfg        viewport.Config
	engine     *cluster.Engine
	model      viewport.Model
	transition time.Duration
	timer      *time.Timer
	generation uint64
	closed     bool
}

func newSession(id string, cfg viewport.Config, engine *cluster.Engine, model viewport.Model, transition time.Duration) *Session {
	return &Session{
		id:         id,
		createdAt:  time.Now(),
		cfg:        cfg,
		engine:     engine,
		model:      model,
		transition: transition,
	}
}

// dispatch feeds one event through the reducer and applies its effects.
// Ids are checked against the pin set and the partition on screen before
// the event is applied.
func (s *Session) dispatch(ev viewport.Event) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return View{}, fmt.Errorf("session %s: %w", s.id, ErrSessionNotFound)
	}

	ev, ok := viewport.Resolve(ev, s.pinExists, s.clusterOnScreenLocked)
	if !ok {
		return s.viewLocked(), nil
	}

	next, effects := viewport.Reduce(s.cfg, s.model, ev)
	s.model = next

	var navigate string
	for _, eff := range effects {
		switch eff.Kind {
		case viewport.EffectStartTransition:
			s.startTransitionLocked()
		case viewport.EffectNavigate:
			navigate = eff.PropertyID
			metrics.NavigationsTotal.Inc()
		}
	}

	v := s.viewLocked()
	v.Navigate = navigate
	return v, nil
}

func (s *Session) pinExists(id string) bool {
	_, ok := s.engine.Lookup(id)
	return ok
}

func (s *Session) clusterOnScreenLocked(id string) bool {
	_, ok := s.engine.Render(s.model.State).Find(id)
	return ok
}

// startTransitionLocked raises the flag and schedules its release. A newer
// transition supersedes the pending release.
func (s *Session) startTransitionLocked() {
	if s.transition <= 0 || s.closed {
		return
	}
	s.generation++
	gen := s.generation
	s.model.Transitioning = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.transition, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.generation == gen {
			s.model.Transitioning = false
		}
	})
}

func (s *Session) view() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	start := time.Now()
	p := s.engine.Render(s.model.State)
	metrics.RenderDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)

	return View{
		SessionID:     s.id,
		Strategy:      s.engine.Options().Strategy,
		State:         s.model.State,
		Selection:     s.model.Selection,
		Hovered:       s.model.Hovered,
		Panning:       s.model.Drag.Phase == viewport.DragPanning,
		Transitioning: s.model.Transitioning,
		Partition:     p,
	}
}

func (s *Session) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:       s.id,
		Strategy: s.engine.Options().Strategy,
		Model:    s.model,
		SavedAt:  time.Now().UTC(),
	}
}

func (s *Session) info(lastAccess time.Time) SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		ID:         s.id,
		Strategy:   s.engine.Options().Strategy,
		Zoom:       s.model.State.Zoom,
		CreatedAt:  s.createdAt,
		LastAccess: lastAccess,
	}
}

// close stops the pending transition timer. The session must not be used
// afterwards.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
