package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"

	"web/rentmap/cluster"
	"web/rentmap/viewport"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is the persisted form of a session.
type Snapshot struct {
	ID       string           `json:"id"`
	Strategy cluster.Strategy `json:"strategy"`
	Model    viewport.Model   `json:"model"`
	SavedAt  time.Time        `json:"savedAt"`
}

type SnapshotInfo struct {
	ID       string    `json:"id"`
	SavedAt  time.Time `json:"savedAt"`
	FileSize int64     `json:"fileSize"`
}

// SnapshotStore persists sessions beyond their in-memory lifetime.
type SnapshotStore interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, id string) (Snapshot, error)
	List(ctx context.Context) ([]SnapshotInfo, error)
}

func encodeSnapshot(snap Snapshot) ([]byte, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %v", err)
	}
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %v", err)
	}
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to compress snapshot: %v", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush encoder: %v", err)
	}
	return buf.Bytes(), nil
}

func decodeSnapshot(r io.Reader) (Snapshot, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to create decoder: %v", err)
	}
	defer dec.Close()

	var snap Snapshot
	if err := json.NewDecoder(dec).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %v", err)
	}
	if snap.ID == "" {
		return Snapshot{}, fmt.Errorf("snapshot without id")
	}
	return snap, nil
}

// FileSnapshotStore keeps one zstd file per save under Dir. Load returns the
// newest file for an id.
type FileSnapshotStore struct {
	Dir string
}

func NewFileSnapshotStore(dir string) (*FileSnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %v", err)
	}
	return &FileSnapshotStore{Dir: dir}, nil
}

func (s *FileSnapshotStore) Save(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	path := filepath.Join(s.Dir, snapshotFilename(snap.ID, snap.SavedAt))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit snapshot: %v", err)
	}
	return nil
}

func (s *FileSnapshotStore) Load(ctx context.Context, id string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	path, err := s.findLatest(id)
	if err != nil {
		return Snapshot{}, err
	}

	file, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to open snapshot: %v", err)
	}
	defer file.Close()
	return decodeSnapshot(file)
}

func (s *FileSnapshotStore) List(ctx context.Context) ([]SnapshotInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot directory: %v", err)
	}

	latest := make(map[string]SnapshotInfo)
	for _, entry := range entries {
		id, savedAt, ok := parseSnapshotFilename(entry.Name())
		if !ok {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		if prev, seen := latest[id]; seen && !savedAt.After(prev.SavedAt) {
			continue
		}
		latest[id] = SnapshotInfo{ID: id, SavedAt: savedAt, FileSize: fi.Size()}
	}

	infos := make([]SnapshotInfo, 0, len(latest))
	for _, info := range latest {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].SavedAt.Equal(infos[j].SavedAt) {
			return infos[i].SavedAt.After(infos[j].SavedAt)
		}
		return infos[i].ID < infos[j].ID
	})
	return infos, nil
}

func (s *FileSnapshotStore) findLatest(id string) (string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return "", fmt.Errorf("failed to read snapshot directory: %v", err)
	}

	var best string
	var bestAt time.Time
	for _, entry := range entries {
		fid, savedAt, ok := parseSnapshotFilename(entry.Name())
		if !ok || fid != id {
			continue
		}
		if best == "" || savedAt.After(bestAt) {
			best, bestAt = entry.Name(), savedAt
		}
	}
	if best == "" {
		return "", fmt.Errorf("session %s: %w", id, ErrSnapshotNotFound)
	}
	return filepath.Join(s.Dir, best), nil
}
