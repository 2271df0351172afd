package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"web/rentmap/cluster"
	"web/rentmap/runner"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r, err := runner.NewSessionRunner(cluster.SamplePins(), runner.Options{CleanupInterval: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Shutdown(context.Background()) })
	return NewServer(r).Router()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Invalid JSON body %q: %v", w.Body.String(), err)
	}
}

func createSession(t *testing.T, h http.Handler) runner.View {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/sessions", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("Create: got %d %s", w.Code, w.Body.String())
	}
	var v runner.View
	decode(t, w, &v)
	return v
}

func TestPins(t *testing.T) {
	h := newTestRouter(t)

	w := do(t, h, http.MethodGet, "/api/pins", "")
	var pins []cluster.PropertyPin
	decode(t, w, &pins)
	if w.Code != http.StatusOK || len(pins) != 8 {
		t.Errorf("List pins: got %d with %d pins", w.Code, len(pins))
	}

	w = do(t, h, http.MethodGet, "/api/pins/p7", "")
	var pin cluster.PropertyPin
	decode(t, w, &pin)
	if w.Code != http.StatusOK || pin.Locality != "Kondhwa" {
		t.Errorf("Get pin: got %d %+v", w.Code, pin)
	}

	if w := do(t, h, http.MethodGet, "/api/pins/p99", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown pin, got %d", w.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	h := newTestRouter(t)
	v := createSession(t, h)
	if v.State.Zoom != 11 || len(v.Partition.Groups) != 7 {
		t.Errorf("Unexpected initial view: zoom %d, %d groups", v.State.Zoom, len(v.Partition.Groups))
	}

	base := "/api/sessions/" + v.SessionID
	w := do(t, h, http.MethodPost, base+"/events", `{"kind":"key","key":"+"}`)
	decode(t, w, &v)
	if w.Code != http.StatusOK || v.State.Zoom != 12 {
		t.Errorf("Key +: got %d zoom %d", w.Code, v.State.Zoom)
	}

	w = do(t, h, http.MethodPost, base+"/events", `{"kind":"view_details","id":"p2"}`)
	decode(t, w, &v)
	if v.Navigate != "p2" {
		t.Errorf("Expected navigate p2, got %q", v.Navigate)
	}

	w = do(t, h, http.MethodGet, "/api/sessions", "")
	var infos []runner.SessionInfo
	decode(t, w, &infos)
	if len(infos) != 1 || infos[0].Zoom != 12 {
		t.Errorf("List sessions: got %+v", infos)
	}

	if w := do(t, h, http.MethodDelete, base, ""); w.Code != http.StatusNoContent {
		t.Errorf("Delete: got %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, base, ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w.Code)
	}
}

func TestListSnapshots(t *testing.T) {
	h := newTestRouter(t)
	w := do(t, h, http.MethodGet, "/api/snapshots", "")
	if w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Errorf("Expected empty list without a store, got %d %s", w.Code, w.Body.String())
	}

	store, err := runner.NewFileSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r, err := runner.NewSessionRunner(cluster.SamplePins(), runner.Options{CleanupInterval: time.Hour, Store: store})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Shutdown(context.Background()) })
	h = NewServer(r).Router()

	v := createSession(t, h)
	if w := do(t, h, http.MethodDelete, "/api/sessions/"+v.SessionID, ""); w.Code != http.StatusNoContent {
		t.Fatalf("Delete: got %d", w.Code)
	}

	w = do(t, h, http.MethodGet, "/api/snapshots", "")
	var infos []runner.SnapshotInfo
	decode(t, w, &infos)
	if w.Code != http.StatusOK || len(infos) != 1 || infos[0].ID != v.SessionID {
		t.Errorf("List snapshots: got %d %+v", w.Code, infos)
	}

	w = do(t, h, http.MethodPost, "/api/sessions/"+infos[0].ID+"/restore", "")
	if w.Code != http.StatusOK {
		t.Errorf("Restore listed snapshot: got %d %s", w.Code, w.Body.String())
	}
}

func TestDispatchErrors(t *testing.T) {
	h := newTestRouter(t)
	v := createSession(t, h)
	base := "/api/sessions/" + v.SessionID

	testCases := []struct {
		name string
		path string
		body string
		want int
	}{
		{"malformed", base + "/events", `{"kind":`, http.StatusBadRequest},
		{"unknown kind", base + "/events", `{"kind":"teleport"}`, http.StatusBadRequest},
		{"pin click without id", base + "/events", `{"kind":"pin_click"}`, http.StatusBadRequest},
		{"unknown session", "/api/sessions/nope/events", `{"kind":"zoom_in"}`, http.StatusNotFound},
		{"bad strategy", "/api/sessions", `{"strategy":"kmeans"}`, http.StatusBadRequest},
		{"restore unknown", "/api/sessions/nope/restore", "", http.StatusNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, tc.path, tc.body)
			if w.Code != tc.want {
				t.Errorf("got %d, want %d: %s", w.Code, tc.want, w.Body.String())
			}
			var body map[string]interface{}
			decode(t, w, &body)
			if _, ok := body["error"]; !ok {
				t.Errorf("Expected error field in %v", body)
			}
		})
	}
}

func TestGeoJSON(t *testing.T) {
	h := newTestRouter(t)
	v := createSession(t, h)
	base := "/api/sessions/" + v.SessionID
	do(t, h, http.MethodPost, base+"/events", `{"kind":"pin_click","id":"p4"}`)

	w := do(t, h, http.MethodGet, base+"/geojson", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GeoJSON: got %d", w.Code)
	}
	fc, err := geojson.UnmarshalFeatureCollection(w.Body.Bytes())
	if err != nil {
		t.Fatalf("UnmarshalFeatureCollection: %v", err)
	}
	if len(fc.Features) != 7 {
		t.Fatalf("Expected 7 features, got %d", len(fc.Features))
	}

	var clusters, selected int
	for _, f := range fc.Features {
		if f.Properties.MustBool("cluster", false) {
			clusters++
			if f.Properties.MustInt("point_count", 0) != 2 {
				t.Errorf("Expected cluster of 2, got %v", f.Properties["point_count"])
			}
		}
		if f.Properties.MustBool("selected", false) {
			selected++
			if pt, ok := f.Geometry.(orb.Point); !ok || pt != (orb.Point{48, 55}) {
				t.Errorf("Expected p4 at [48 55], got %v", f.Geometry)
			}
		}
	}
	if clusters != 1 || selected != 1 {
		t.Errorf("Expected 1 cluster and 1 selected pin, got %d and %d", clusters, selected)
	}
	if len(fc.BBox) != 4 || fc.BBox[0] != 0 || fc.BBox[2] != 100 {
		t.Errorf("Expected bbox clamped to the plane, got %v", fc.BBox)
	}
}

func TestSummary(t *testing.T) {
	h := newTestRouter(t)
	v := createSession(t, h)

	w := do(t, h, http.MethodGet, "/api/sessions/"+v.SessionID+"/summary", "")
	var s cluster.Summary
	decode(t, w, &s)
	if w.Code != http.StatusOK || s.TotalPins != 8 || s.NumClusters != 1 || s.NumSinglePins != 6 {
		t.Errorf("Summary: got %d %+v", w.Code, s)
	}
}

func TestCORSAndHealth(t *testing.T) {
	h := newTestRouter(t)

	w := do(t, h, http.MethodOptions, "/api/sessions", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("Preflight: got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin: got %q", got)
	}

	if w := do(t, h, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Errorf("Health: got %d", w.Code)
	}
	w = do(t, h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("rentmap_sessions_active")) {
		t.Errorf("Metrics: got %d", w.Code)
	}
}
