package main

import (
	"flag"
	"fmt"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	configFile     = flag.String("config", "config.yaml", "Path to configuration file")
	httpPort       = flag.Int("http-port", 8080, "HTTP server port (default 8080)")
	mqttMode       = flag.Bool("mqtt", false, "Publish telemetry over MQTT")
	simMode        = flag.Bool("sim", true, "Run against the simulated drive (no hardware)")
	autoStart      = flag.Bool("autostart", false, "Begin mapping immediately on startup")
	renderSnapshot = flag.String("render", "", "Render a saved snapshot JSON to an image and exit")
	outputFile     = flag.String("output", "map.png", "Output file for --render mode")
	renderFormat   = flag.String("format", "raster", "Render format: raster or vector")
)

func main() {
	flag.Parse()
	fmt.Printf("gridscout version: %s\n", Version)

	app := NewApp()
	app.ApplyOptions(AppOptions{
		ConfigFile:   *configFile,
		HTTPPort:     *httpPort,
		MqttMode:     *mqttMode,
		SimMode:      *simMode,
		AutoStart:    *autoStart,
		OutputFile:   *outputFile,
		RenderFormat: *renderFormat,
	})

	if *renderSnapshot != "" {
		app.RunRenderSnapshot(*renderSnapshot)
		return
	}

	app.RunService()
}
