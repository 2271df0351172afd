package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshotStore keeps compressed snapshots under prefix+id with a TTL
// and indexes them in a sorted set scored by save time.
type RedisSnapshotStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSnapshotStore(client *redis.Client, prefix string, ttl time.Duration) *RedisSnapshotStore {
	if prefix == "" {
		prefix = "rentmap:session:"
	}
	return &RedisSnapshotStore{client: client, prefix: prefix, ttl: ttl}
}

// OpenRedis connects and pings within timeout.
func OpenRedis(addr, password string, db int, timeout time.Duration) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %v", err)
	}
	return rdb, nil
}

func (s *RedisSnapshotStore) key(id string) string { return s.prefix + id }

func (s *RedisSnapshotStore) indexKey() string { return s.prefix + "index" }

func (s *RedisSnapshotStore) Save(ctx context.Context, snap Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(snap.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(snap.SavedAt.Unix()), Member: snap.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store snapshot: %v", err)
	}
	return nil
}

func (s *RedisSnapshotStore) Load(ctx context.Context, id string) (Snapshot, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, fmt.Errorf("session %s: %w", id, ErrSnapshotNotFound)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to fetch snapshot: %v", err)
	}
	return decodeSnapshot(bytes.NewReader(data))
}

// List returns indexed snapshots newest first and drops index entries whose
// payload has expired.
func (s *RedisSnapshotStore) List(ctx context.Context) ([]SnapshotInfo, error) {
	entries, err := s.client.ZRevRangeWithScores(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot index: %v", err)
	}

	infos := make([]SnapshotInfo, 0, len(entries))
	var stale []interface{}
	for _, z := range entries {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		size, err := s.client.StrLen(ctx, s.key(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to stat snapshot %s: %v", id, err)
		}
		if size == 0 {
			stale = append(stale, id)
			continue
		}
		infos = append(infos, SnapshotInfo{
			ID:       id,
			SavedAt:  time.Unix(int64(z.Score), 0).UTC(),
			FileSize: size,
		})
	}
	if len(stale) > 0 {
		s.client.ZRem(ctx, s.indexKey(), stale...)
	}
	return infos, nil
}
