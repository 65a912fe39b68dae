package main

import (
	"encoding/json"
	"fmt"
	"image/png"
	"log"
	"net/http"
	"time"

	"github.com/tbruun/gridscout/scout"
)

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(ctrl *scout.Controller) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		snap := ctrl.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		status := struct {
			Status    string    `json:"status"`
			Timestamp time.Time `json:"timestamp"`
			Running   bool      `json:"running"`
			CellCount int       `json:"cellCount"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
			Running:   snap.Running,
			CellCount: snap.CellCount,
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding health status: %v", err)
		}
	})

	// Begin a mapping run
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		started := ctrl.Start()
		if !started {
			log.Printf("Warning: start requested while a run is already active")
		}
		w.Header().Set("Content-Type", "application/json")
		resp := struct {
			Success bool `json:"success"`
		}{Success: started}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("Error encoding start response: %v", err)
		}
	})

	// End the current run
	mux.HandleFunc("/stop", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ctrl.Stop()
		snap := ctrl.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		resp := struct {
			Success     bool `json:"success"`
			CellsMapped int  `json:"cellsMapped"`
		}{Success: true, CellsMapped: snap.CellCount}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("Error encoding stop response: %v", err)
		}
	})

	// Run status and pose
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		snap := ctrl.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		status := struct {
			Running          bool         `json:"running"`
			Pose             scout.Pose   `json:"pose"`
			CellCount        int          `json:"cellCount"`
			Bounds           scout.Bounds `json:"bounds"`
			Confidence       float64      `json:"confidence"`
			CompletionReason string       `json:"completionReason,omitempty"`
		}{
			Running:          snap.Running,
			Pose:             snap.Pose,
			CellCount:        snap.CellCount,
			Bounds:           snap.Bounds,
			Confidence:       snap.Confidence,
			CompletionReason: ctrl.CompletionReason(),
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding status: %v", err)
		}
	})

	// Full map snapshot, loadable by the -render mode
	mux.HandleFunc("/snapshot.json", func(w http.ResponseWriter, r *http.Request) {
		snap := ctrl.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			log.Printf("Error encoding snapshot: %v", err)
		}
	})

	// GeoJSON export endpoint
	mux.HandleFunc("/map.json", func(w http.ResponseWriter, r *http.Request) {
		fc := scout.FeatureCollection(ctrl.Snapshot())
		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := json.NewEncoder(w).Encode(fc); err != nil {
			log.Printf("Error encoding GeoJSON map: %v", err)
		}
	})

	// Raster map endpoint
	mux.HandleFunc("/map.png", func(w http.ResponseWriter, r *http.Request) {
		renderer := scout.NewMapRenderer(ctrl.Snapshot())
		img := renderer.Render()
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := png.Encode(w, img); err != nil {
			log.Printf("Error encoding map PNG: %v", err)
		}
	})

	// Vector map endpoint
	mux.HandleFunc("/map.svg", func(w http.ResponseWriter, r *http.Request) {
		renderer := scout.NewVectorRenderer(ctrl.Snapshot())
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		if err := renderer.RenderToSVG(w); err != nil {
			log.Printf("Error encoding map SVG: %v", err)
		}
	})

	// Default route serves HTML page embedding the SVG map
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = fmt.Fprint(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>gridscout</title>
<style>
*{margin:0;padding:0;box-sizing:border-box}
html,body{width:100%;height:100%;overflow:hidden;background:#1a1a1a}
img{display:block;width:100vw;height:100vh;object-fit:contain}
</style>
</head>
<body>
<img src="/map.svg" alt="Exploration Map">
</body>
</html>`)
	})

	// Wrap mux with logging middleware
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		mux.ServeHTTP(w, r)
	})
}
