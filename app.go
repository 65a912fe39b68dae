package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/tbruun/gridscout/scout"
)

// App encapsulates the application state and dependencies
type App struct {
	Config     *scout.Config
	Params     scout.Params
	Drive      scout.Drive
	Controller *scout.Controller

	// CLI Flags (effectively dependencies)
	ConfigFile   string
	HTTPPort     int
	MqttMode     bool
	SimMode      bool
	AutoStart    bool
	OutputFile   string
	RenderFormat string
}

// AppOptions carries parsed CLI flags into the App.
type AppOptions struct {
	ConfigFile   string
	HTTPPort     int
	MqttMode     bool
	SimMode      bool
	AutoStart    bool
	OutputFile   string
	RenderFormat string
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.HTTPPort = opts.HTTPPort
	a.MqttMode = opts.MqttMode
	a.SimMode = opts.SimMode
	a.AutoStart = opts.AutoStart
	a.OutputFile = opts.OutputFile
	a.RenderFormat = opts.RenderFormat
}

// loadConfig reads the config file, falling back to built-in defaults
// when the file is absent. A present-but-broken file is fatal.
func (a *App) loadConfig() {
	if _, err := os.Stat(a.ConfigFile); err != nil {
		log.Printf("no config file at %s, using defaults", a.ConfigFile)
		a.Config = &scout.Config{}
		a.Params = a.Config.Params()
		return
	}

	cfg, err := scout.LoadConfig(a.ConfigFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Loaded config from %s", a.ConfigFile)
	a.Config = cfg
	a.Params = cfg.Params()
}

// buildDrive picks the drive implementation. Hardware integration
// plugs in here; until then only the simulated drive is available.
func (a *App) buildDrive() scout.Drive {
	if !a.SimMode {
		log.Fatal("no hardware drive configured; run with -sim")
	}

	width, depth := a.Config.Sim.RoomWidth, a.Config.Sim.RoomDepth
	if width <= 0 {
		width = 400
	}
	if depth <= 0 {
		depth = 300
	}
	log.Printf("simulation mode: %gx%g cm room", width, depth)

	drive := scout.NewMockDrive()
	drive.ReadFunc = scout.RectRoomReadFunc(width, depth)
	return drive
}

// RunService starts the exploration service: controller, optional MQTT
// telemetry and the HTTP control surface.
func (a *App) RunService() {
	fmt.Println("Starting gridscout service...")

	a.loadConfig()
	a.Drive = a.buildDrive()
	a.Controller = scout.NewController(a.Drive, a.Params)

	var mqttDisconnect func()
	if a.MqttMode {
		client, err := scout.ConnectMQTT(a.Config.MQTT)
		if err != nil {
			log.Fatalf("Failed to connect MQTT: %v", err)
		}
		if client == nil {
			log.Fatal("MQTT broker not configured (set mqtt.broker or MQTT_BROKER)")
		}
		a.Controller.SetTelemetry(scout.NewPublisher(client, a.Config.MQTT.PublishPrefix))
		mqttDisconnect = func() { client.Disconnect(250) }
		fmt.Println("MQTT telemetry publisher initialized")
	}

	if a.AutoStart {
		if a.Controller.Start() {
			fmt.Println("Mapping started automatically")
		}
	}

	httpServer := newHTTPServer(a.Controller)
	go func() {
		addr := fmt.Sprintf(":%d", a.HTTPPort)
		fmt.Printf("HTTP server starting on %s\n", addr)
		if err := http.ListenAndServe(addr, httpServer); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	fmt.Println("\nService Running")
	fmt.Println("===============")
	fmt.Printf("\nHTTP endpoints (port %d):\n", a.HTTPPort)
	fmt.Println("  GET  /health        - Health check")
	fmt.Println("  POST /start         - Begin a mapping run")
	fmt.Println("  POST /stop          - End the current run")
	fmt.Println("  GET  /status        - Run status and pose")
	fmt.Println("  GET  /map.png       - Raster map image")
	fmt.Println("  GET  /map.svg       - Vector map image")
	fmt.Println("  GET  /map.json      - GeoJSON export")
	fmt.Println("  GET  /snapshot.json - Full map snapshot")
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down service...")
	a.Controller.Stop()
	if mqttDisconnect != nil {
		mqttDisconnect()
	}
	fmt.Println("Service stopped")
}

// RunRenderSnapshot renders a snapshot JSON file (as served by
// /snapshot.json) to an image and exits.
func (a *App) RunRenderSnapshot(snapshotPath string) {
	snap, err := loadSnapshot(snapshotPath)
	if err != nil {
		log.Fatalf("Error loading snapshot: %v", err)
	}

	outputPath := a.OutputFile
	format := a.RenderFormat
	if format != "raster" && format != "vector" {
		log.Fatalf("Invalid format: %s (must be raster or vector)", format)
	}

	if format == "raster" {
		renderer := scout.NewMapRenderer(snap)
		if err := renderer.SavePNG(outputPath); err != nil {
			log.Fatalf("Error rendering raster: %v", err)
		}
		fmt.Printf("Created raster: %s\n", outputPath)
		return
	}

	if !strings.HasSuffix(outputPath, ".svg") {
		outputPath = strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".svg"
	}
	outFile, err := os.Create(outputPath)
	if err != nil {
		log.Fatalf("Error creating output file %s: %v", outputPath, err)
	}
	defer func() {
		if err := outFile.Close(); err != nil {
			log.Printf("Warning: error closing output file %s: %v", outputPath, err)
		}
	}()

	renderer := scout.NewVectorRenderer(snap)
	if err := renderer.RenderToSVG(outFile); err != nil {
		log.Fatalf("Error rendering vector SVG: %v", err)
	}
	fmt.Printf("Created vector SVG: %s\n", outputPath)
}

// loadSnapshot reads a Snapshot from a JSON file.
func loadSnapshot(path string) (scout.Snapshot, error) {
	var snap scout.Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("parse %s: %w", path, err)
	}
	return snap, nil
}
