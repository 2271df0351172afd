package runner

import (
	"fmt"
	"time"

	"web/rentmap/cluster"
	"web/rentmap/config"
)

// OptionsFromConfig maps environment settings onto runner options. The store
// is left unset; see OpenSnapshotStore.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.MaxSessions = cfg.MaxSessions
	opts.IdleTimeout = cfg.SessionIdleTimeout
	opts.TransitionDuration = cfg.TransitionDuration
	opts.Cluster.Strategy = cluster.ParseStrategy(cfg.ClusterStrategy)
	return opts
}

// OpenSnapshotStore returns the store named by cfg.SnapshotBackend, or nil
// for "none".
func OpenSnapshotStore(cfg *config.Config) (SnapshotStore, error) {
	switch cfg.SnapshotBackend {
	case "none":
		return nil, nil
	case "", "file":
		return NewFileSnapshotStore(cfg.SnapshotDir)
	case "redis":
		rdb, err := OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, 5*time.Second)
		if err != nil {
			return nil, err
		}
		return NewRedisSnapshotStore(rdb, "", cfg.SnapshotTTL), nil
	}
	return nil, fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend)
}
