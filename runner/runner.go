package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"web/rentmap/cluster"
	"web/rentmap/logger"
	"web/rentmap/metrics"
	"web/rentmap/viewport"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownEvent    = viewport.ErrUnknownEvent
	ErrInvalidStrategy = errors.New("invalid cluster strategy")
	// ErrInvalidArgument is what a remote client reports for any rejected
	// input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// IsInvalidArgument reports whether err was caused by caller input.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrUnknownEvent) ||
		errors.Is(err, ErrInvalidStrategy) ||
		errors.Is(err, ErrInvalidArgument)
}

type Options struct {
	MaxSessions        int
	IdleTimeout        time.Duration
	CleanupInterval    time.Duration
	TransitionDuration time.Duration
	Cluster            cluster.Options
	Viewport           viewport.Config
	// Store receives sessions on close, eviction and shutdown. Nil disables
	// snapshots.
	Store SnapshotStore
}

func DefaultOptions() Options {
	return Options{
		MaxSessions:        64,
		IdleTimeout:        30 * time.Minute,
		CleanupInterval:    5 * time.Minute,
		TransitionDuration: 400 * time.Millisecond,
		Cluster:            cluster.DefaultOptions(),
		Viewport:           viewport.DefaultConfig(),
	}
}

// SessionRunner hosts map sessions over one immutable pin set.
type SessionRunner struct {
	opts    Options
	pins    cluster.PinSet
	engines map[cluster.Strategy]*cluster.Engine

	sessionLock  sync.RWMutex
	sessions     map[string]*Session
	lastAccessed map[string]time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewSessionRunner validates pins, builds one engine per strategy and starts
// the idle cleanup loop. Call Shutdown to stop it.
func NewSessionRunner(pins cluster.PinSet, opts Options) (*SessionRunner, error) {
	if err := pins.Validate(); err != nil {
		return nil, err
	}
	d := DefaultOptions()
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = d.MaxSessions
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = d.IdleTimeout
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = d.CleanupInterval
	}
	if opts.Viewport.Limits.MaxZoom == 0 {
		opts.Viewport = d.Viewport
	}

	r := &SessionRunner{
		opts:         opts,
		pins:         pins,
		engines:      make(map[cluster.Strategy]*cluster.Engine),
		sessions:     make(map[string]*Session),
		lastAccessed: make(map[string]time.Time),
		stop:         make(chan struct{}),
	}
	for _, st := range []cluster.Strategy{cluster.StrategyGreedy, cluster.StrategyConnected} {
		co := opts.Cluster
		co.Strategy = st
		r.engines[st] = cluster.NewEngine(pins, co)
	}

	go r.cleanupInactiveSessions()
	return r, nil
}

func (r *SessionRunner) resolveStrategy(name string) (cluster.Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return cluster.ParseStrategy(string(r.opts.Cluster.Strategy)), nil
	case string(cluster.StrategyGreedy):
		return cluster.StrategyGreedy, nil
	case string(cluster.StrategyConnected):
		return cluster.StrategyConnected, nil
	}
	return "", fmt.Errorf("%q: %w", name, ErrInvalidStrategy)
}

// CreateSession starts a session at the home view. An empty strategy uses
// the runner default.
func (r *SessionRunner) CreateSession(ctx context.Context, strategy string) (View, error) {
	st, err := r.resolveStrategy(strategy)
	if err != nil {
		return View{}, err
	}

	id := newSessionID()
	s := newSession(id, r.opts.Viewport, r.engines[st], viewport.NewModel(r.opts.Viewport), r.opts.TransitionDuration)
	r.add(ctx, s)

	logger.L().Info("session_created", "id", id, "strategy", st)
	return s.view(), nil
}

// Dispatch applies one input event to a session.
func (r *SessionRunner) Dispatch(ctx context.Context, id string, ev viewport.Event) (View, error) {
	if err := ev.Validate(); err != nil {
		return View{}, err
	}
	s, err := r.touch(id)
	if err != nil {
		return View{}, err
	}
	metrics.EventsTotal.WithLabelValues(string(ev.Kind)).Inc()

	v, err := s.dispatch(ev)
	if err != nil {
		return View{}, err
	}
	if v.Navigate != "" {
		logger.L().Info("session_navigate", "id", id, "property", v.Navigate)
	}
	return v, nil
}

func (r *SessionRunner) Get(ctx context.Context, id string) (View, error) {
	s, err := r.touch(id)
	if err != nil {
		return View{}, err
	}
	return s.view(), nil
}

// Close snapshots and removes a session.
func (r *SessionRunner) Close(ctx context.Context, id string) error {
	r.sessionLock.Lock()
	s, exists := r.sessions[id]
	if exists {
		delete(r.sessions, id)
		delete(r.lastAccessed, id)
		metrics.SessionsActive.Set(float64(len(r.sessions)))
	}
	r.sessionLock.Unlock()

	if !exists {
		return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	metrics.SessionsEvictedTotal.WithLabelValues("closed").Inc()
	r.persist(ctx, s)
	s.close()
	logger.L().Info("session_closed", "id", id)
	return nil
}

// List returns live sessions, most recently used first.
func (r *SessionRunner) List(ctx context.Context) ([]SessionInfo, error) {
	r.sessionLock.RLock()
	infos := make([]SessionInfo, 0, len(r.sessions))
	for id, s := range r.sessions {
		infos = append(infos, s.info(r.lastAccessed[id]))
	}
	r.sessionLock.RUnlock()

	sortSessionInfos(infos)
	return infos, nil
}

// ListSnapshots reports the persisted sessions Restore can bring back. It is
// empty when no store is configured.
func (r *SessionRunner) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	if r.opts.Store == nil {
		return []SnapshotInfo{}, nil
	}
	infos, err := r.opts.Store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return infos, nil
}

// Restore makes a persisted session live again. A session that is already
// live is returned as is.
func (r *SessionRunner) Restore(ctx context.Context, id string) (View, error) {
	if s, err := r.touch(id); err == nil {
		return s.view(), nil
	}
	if r.opts.Store == nil || !validSessionID(id) {
		return View{}, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}

	snap, err := r.opts.Store.Load(ctx, id)
	if errors.Is(err, ErrSnapshotNotFound) {
		return View{}, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return View{}, fmt.Errorf("failed to restore session %s: %w", id, err)
	}

	st, err := r.resolveStrategy(string(snap.Strategy))
	if err != nil {
		st = cluster.StrategyGreedy
	}
	model := snap.Model
	model.State = r.opts.Viewport.Limits.Clamp(model.State)
	model.Drag = viewport.Drag{}
	model.Transitioning = false

	s := newSession(id, r.opts.Viewport, r.engines[st], model, r.opts.TransitionDuration)
	if live := r.add(ctx, s); live != s {
		return live.view(), nil
	}

	logger.L().Info("session_restored", "id", id, "saved_at", snap.SavedAt)
	return s.view(), nil
}

// Pins returns the pin set every session renders.
func (r *SessionRunner) Pins(ctx context.Context) (cluster.PinSet, error) {
	return r.pins, nil
}

// Shutdown stops the cleanup loop and snapshots every live session.
func (r *SessionRunner) Shutdown(ctx context.Context) error {
	r.stopOnce.Do(func() { close(r.stop) })

	r.sessionLock.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		all = append(all, s)
		delete(r.sessions, id)
		delete(r.lastAccessed, id)
	}
	metrics.SessionsActive.Set(0)
	r.sessionLock.Unlock()

	for _, s := range all {
		r.persist(ctx, s)
		s.close()
	}
	logger.L().Info("runner_shutdown", "sessions", len(all))
	return ctx.Err()
}

func (r *SessionRunner) touch(id string) (*Session, error) {
	r.sessionLock.Lock()
	defer r.sessionLock.Unlock()

	s, exists := r.sessions[id]
	if !exists {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	r.lastAccessed[id] = time.Now()
	return s, nil
}

// add registers s, evicting the least recently used session when full.
// add registers s and returns the live session for its id. If another call
// already registered the same id, that session wins and s is closed.
func (r *SessionRunner) add(ctx context.Context, s *Session) *Session {
	var evicted *Session

	r.sessionLock.Lock()
	if existing, ok := r.sessions[s.id]; ok {
		r.lastAccessed[s.id] = time.Now()
		r.sessionLock.Unlock()
		s.close()
		return existing
	}
	if len(r.sessions) >= r.opts.MaxSessions {
		var oldestID string
		var oldestTime time.Time
		first := true

		for id, accessTime := range r.lastAccessed {
			if first || accessTime.Before(oldestTime) {
				oldestID = id
				oldestTime = accessTime
				first = false
			}
		}

		if oldestID != "" {
			evicted = r.sessions[oldestID]
			delete(r.sessions, oldestID)
			delete(r.lastAccessed, oldestID)
		}
	}
	r.sessions[s.id] = s
	r.lastAccessed[s.id] = time.Now()
	metrics.SessionsActive.Set(float64(len(r.sessions)))
	r.sessionLock.Unlock()

	if evicted != nil {
		metrics.SessionsEvictedTotal.WithLabelValues("lru").Inc()
		logger.L().Info("session_evicted", "id", evicted.id, "reason", "lru")
		r.persist(ctx, evicted)
		evicted.close()
	}
	return s
}

func (r *SessionRunner) cleanupInactiveSessions() {
	ticker := time.NewTicker(r.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			r.evictIdle(now)
		}
	}
}

// evictIdle removes sessions unused for longer than IdleTimeout.
func (r *SessionRunner) evictIdle(now time.Time) int {
	r.sessionLock.Lock()
	var idle []*Session
	for id, lastAccess := range r.lastAccessed {
		if now.Sub(lastAccess) > r.opts.IdleTimeout {
			idle = append(idle, r.sessions[id])
			delete(r.sessions, id)
			delete(r.lastAccessed, id)
		}
	}
	metrics.SessionsActive.Set(float64(len(r.sessions)))
	r.sessionLock.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, s := range idle {
		metrics.SessionsEvictedTotal.WithLabelValues("idle").Inc()
		logger.L().Info("session_evicted", "id", s.id, "reason", "idle")
		r.persist(ctx, s)
		s.close()
	}
	return len(idle)
}

// persist saves a snapshot if a store is configured. Failures are logged.
func (r *SessionRunner) persist(ctx context.Context, s *Session) {
	if r.opts.Store == nil {
		return
	}
	if err := r.opts.Store.Save(ctx, s.snapshot()); err != nil {
		metrics.SnapshotSavesTotal.WithLabelValues("error").Inc()
		logger.L().Error("snapshot_save_failed", "id", s.id, "err", err)
		return
	}
	metrics.SnapshotSavesTotal.WithLabelValues("ok").Inc()
}
