package runner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const snapshotTimeLayout = "20060102-150405"

func newSessionID() string {
	return uuid.New().String()
}

// validSessionID reports whether id is a canonical uuid. Restore uses it
// before touching the store with caller input.
func validSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// snapshotFilename formats session-{timestamp}-{id}.zst.
func snapshotFilename(id string, savedAt time.Time) string {
	return fmt.Sprintf("session-%s-%s.zst", savedAt.UTC().Format(snapshotTimeLayout), id)
}

func parseSnapshotFilename(name string) (string, time.Time, bool) {
	if !strings.HasPrefix(name, "session-") || !strings.HasSuffix(name, ".zst") {
		return "", time.Time{}, false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(name, "session-"), ".zst")
	if len(rest) < len(snapshotTimeLayout)+2 || rest[len(snapshotTimeLayout)] != '-' {
		return "", time.Time{}, false
	}
	savedAt, err := time.Parse(snapshotTimeLayout, rest[:len(snapshotTimeLayout)])
	if err != nil {
		return "", time.Time{}, false
	}
	return rest[len(snapshotTimeLayout)+1:], savedAt, true
}

// sortSessionInfos orders by last access, newest first, then by id.
func sortSessionInfos(infos []SessionInfo) {
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].LastAccess.Equal(infos[j].LastAccess) {
			return infos[i].LastAccess.After(infos[j].LastAccess)
		}
		return infos[i].ID < infos[j].ID
	})
}
