package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tbruun/gridscout/scout"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// quietParams shrinks every delay so a controller can be started and
// stopped within a test without multi-second waits.
func quietParams() scout.Params {
	p := scout.DefaultParams()
	p.SettleDelay = 0
	p.ReadingDelay = 0
	p.FineSettleDelay = 0
	p.CyclePause = 5 * time.Millisecond
	p.ErrorPause = time.Millisecond
	p.TurnPause = 0
	p.StopTimeout = 500 * time.Millisecond
	p.MoveTimeFactor = 0.001
	return p
}

// newTestController returns an idle controller over a simulated room.
func newTestController() *scout.Controller {
	drive := scout.NewMockDrive()
	drive.ReadFunc = scout.RectRoomReadFunc(400, 300)
	return scout.NewController(drive, quietParams())
}

// ---------------------------------------------------------------------------
// /health
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	handler := newHTTPServer(newTestController())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("/health status = %d, want %d", w.Code, http.StatusOK)
	}

	var body struct {
		Status    string `json:"status"`
		Running   bool   `json:"running"`
		CellCount int    `json:"cellCount"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode /health response: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
	if body.Running {
		t.Error("running = true, want false before any run")
	}
	if body.CellCount != 0 {
		t.Errorf("cellCount = %d, want 0 before any run", body.CellCount)
	}
}

// ---------------------------------------------------------------------------
// /start and /stop
// ---------------------------------------------------------------------------

func TestStartStopLifecycle(t *testing.T) {
	ctrl := newTestController()
	defer ctrl.Stop()
	handler := newHTTPServer(ctrl)

	// First start succeeds.
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/start", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("/start status = %d, want %d", w.Code, http.StatusOK)
	}
	var started struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(w.Body).Decode(&started); err != nil {
		t.Fatalf("failed to decode /start response: %v", err)
	}
	if !started.Success {
		t.Fatal("first /start should report success")
	}

	// Second start is rejected while the run is active.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/start", nil))
	if err := json.NewDecoder(w.Body).Decode(&started); err != nil {
		t.Fatalf("failed to decode second /start response: %v", err)
	}
	if started.Success {
		t.Error("second /start should be rejected while running")
	}

	// Stop always reports success.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/stop", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("/stop status = %d, want %d", w.Code, http.StatusOK)
	}
	var stopped struct {
		Success     bool `json:"success"`
		CellsMapped int  `json:"cellsMapped"`
	}
	if err := json.NewDecoder(w.Body).Decode(&stopped); err != nil {
		t.Fatalf("failed to decode /stop response: %v", err)
	}
	if !stopped.Success {
		t.Error("/stop should report success")
	}
	if ctrl.Running() {
		t.Error("controller still running after /stop")
	}
}

func TestStartStopRequirePOST(t *testing.T) {
	handler := newHTTPServer(newTestController())

	for _, ep := range []string{"/start", "/stop"} {
		t.Run(ep, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, ep, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("GET %s status = %d, want %d", ep, w.Code, http.StatusMethodNotAllowed)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// /status and /snapshot.json
// ---------------------------------------------------------------------------

func TestStatusIdleController(t *testing.T) {
	handler := newHTTPServer(newTestController())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("/status status = %d, want %d", w.Code, http.StatusOK)
	}

	var body struct {
		Running    bool       `json:"running"`
		Pose       scout.Pose `json:"pose"`
		CellCount  int        `json:"cellCount"`
		Confidence float64    `json:"confidence"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode /status response: %v", err)
	}
	if body.Running {
		t.Error("running = true, want false")
	}
	if body.Pose.X != 0 || body.Pose.Y != 0 {
		t.Errorf("idle pose = (%g,%g), want origin", body.Pose.X, body.Pose.Y)
	}
}

func TestSnapshotJSONRoundTrips(t *testing.T) {
	handler := newHTTPServer(newTestController())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/snapshot.json", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("/snapshot.json status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var snap scout.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("snapshot does not decode back into a Snapshot: %v", err)
	}
	if snap.Resolution <= 0 {
		t.Errorf("snapshot resolution = %g, want positive", snap.Resolution)
	}
}

// ---------------------------------------------------------------------------
// map exports
// ---------------------------------------------------------------------------

func TestMapJSON(t *testing.T) {
	handler := newHTTPServer(newTestController())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/map.json", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("/map.json status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/geo+json")
	}
	if !strings.Contains(w.Body.String(), "FeatureCollection") {
		t.Error("response is not a GeoJSON FeatureCollection")
	}
}

func TestMapPNG(t *testing.T) {
	handler := newHTTPServer(newTestController())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/map.png", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("/map.png status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want %q", ct, "image/png")
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q, want %q", cc, "no-cache")
	}
	body := w.Body.Bytes()
	if len(body) < 8 || body[1] != 'P' || body[2] != 'N' || body[3] != 'G' {
		t.Error("response body is not PNG data")
	}
}

func TestMapSVG(t *testing.T) {
	handler := newHTTPServer(newTestController())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/map.svg", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("/map.svg status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q, want %q", ct, "image/svg+xml")
	}
	if !strings.Contains(w.Body.String(), "<svg") {
		t.Error("response body is not SVG data")
	}
}

// ---------------------------------------------------------------------------
// index page and unknown routes
// ---------------------------------------------------------------------------

func TestIndexServesHTML(t *testing.T) {
	handler := newHTTPServer(newTestController())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("/ status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "/map.svg") {
		t.Error("index page does not embed the SVG map")
	}
}

func TestUnknownPathIs404(t *testing.T) {
	handler := newHTTPServer(newTestController())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("/nope status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
