package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"web/rentmap/cluster"
	"web/rentmap/viewport"
)

func testSnapshot(id string, zoom int, savedAt time.Time) Snapshot {
	model := viewport.NewModel(viewport.DefaultConfig())
	model.State.Zoom = zoom
	model.Selection = viewport.ExpandedCluster("cluster-0")
	return Snapshot{ID: id, Strategy: cluster.StrategyConnected, Model: model, SavedAt: savedAt}
}

func TestSnapshotFilename(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	id := "0b7c1f64-2f0e-4a53-8a1e-3d1b5b2c9f10"
	name := snapshotFilename(id, at)
	if name != "session-20240309-140507-"+id+".zst" {
		t.Errorf("Unexpected filename %q", name)
	}

	gotID, gotAt, ok := parseSnapshotFilename(name)
	if !ok || gotID != id || !gotAt.Equal(at) {
		t.Errorf("parseSnapshotFilename(%q) = %q, %v, %v", name, gotID, gotAt, ok)
	}

	for _, bad := range []string{"session-.zst", "cluster-20240309-140507-x.zst", "session-2024-x.zst", "session-20240309-140507-x.json", "session-20240309-140507x.zst"} {
		if _, _, ok := parseSnapshotFilename(bad); ok {
			t.Errorf("Expected %q to be rejected", bad)
		}
	}
}

func TestSnapshotEncoding(t *testing.T) {
	snap := testSnapshot("abc", 14, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	data, err := encodeSnapshot(snap)
	if err != nil {
		t.Fatalf("encodeSnapshot: %v", err)
	}

	got, err := decodeSnapshot(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decodeSnapshot: %v", err)
	}
	if got.ID != "abc" || got.Model.State.Zoom != 14 || got.Strategy != cluster.StrategyConnected {
		t.Errorf("Unexpected snapshot %+v", got)
	}
	if cid, ok := got.Model.Selection.ClusterID(); !ok || cid != "cluster-0" {
		t.Errorf("Expected expanded cluster-0, got %v", got.Model.Selection.Kind())
	}

	if _, err := decodeSnapshot(bytes.NewReader([]byte("not zstd"))); err == nil {
		t.Error("Expected error decoding garbage")
	}
}

func TestFileSnapshotStoreLatestWins(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileSnapshotStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	if err := store.Save(ctx, testSnapshot("s1", 9, base)); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, testSnapshot("s1", 15, base.Add(time.Minute))); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, testSnapshot("s2", 12, base.Add(30*time.Second))); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644)

	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Model.State.Zoom != 15 {
		t.Errorf("Expected newest snapshot (zoom 15), got zoom %d", got.Model.State.Zoom)
	}

	infos, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("Expected 2 ids, got %d", len(infos))
	}
	if infos[0].ID != "s1" || infos[1].ID != "s2" {
		t.Errorf("Expected newest first [s1 s2], got [%s %s]", infos[0].ID, infos[1].ID)
	}
	if infos[0].FileSize <= 0 {
		t.Errorf("Expected non-zero file size, got %d", infos[0].FileSize)
	}
}

func TestFileSnapshotStoreMissing(t *testing.T) {
	store, err := NewFileSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(context.Background(), "nope"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Expected ErrSnapshotNotFound, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Save(ctx, testSnapshot("x", 11, time.Now())); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

// TestRedisSnapshotStore runs against a live server named by REDIS_ADDR.
func TestRedisSnapshotStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb, err := OpenRedis(addr, os.Getenv("REDIS_PASSWORD"), 0, 2*time.Second)
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	defer rdb.Close()

	prefix := "rentmap:test:" + newSessionID() + ":"
	store := NewRedisSnapshotStore(rdb, prefix, time.Minute)
	ctx := context.Background()
	t.Cleanup(func() {
		rdb.Del(ctx, prefix+"s1", prefix+"index")
	})

	if err := store.Save(ctx, testSnapshot("s1", 16, time.Now())); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx, "s1")
	if err != nil || got.Model.State.Zoom != 16 {
		t.Fatalf("Load: got %+v, %v", got, err)
	}
	if _, err := store.Load(ctx, "missing"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Expected ErrSnapshotNotFound, got %v", err)
	}

	// Stale index entries are pruned by List.
	rdb.ZAdd(ctx, prefix+"index", redis.Z{Score: 1, Member: "gone"})
	infos, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != "s1" {
		t.Errorf("Expected only s1, got %+v", infos)
	}
}
