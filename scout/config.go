package scout

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration. Every field is optional; zero
// values fall back to DefaultParams. Durations are given in
// milliseconds so the file stays plain numbers.
type Config struct {
	MQTT     MQTTConfig       `yaml:"mqtt"`
	Map      MapSettings      `yaml:"map"`
	Scan     ScanSettings     `yaml:"scan"`
	Nav      NavSettings      `yaml:"nav"`
	Localize LocalizeSettings `yaml:"localize"`
	Rotation RotationSettings `yaml:"rotation"`
	Sim      SimSettings      `yaml:"sim"`
}

// MQTTConfig holds broker connection settings. An empty broker
// disables telemetry publishing.
type MQTTConfig struct {
	Broker        string `yaml:"broker"`
	ClientID      string `yaml:"client_id"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	PublishPrefix string `yaml:"publish_prefix"`
}

// MapSettings tunes the occupancy grid.
type MapSettings struct {
	Resolution float64 `yaml:"resolution"` // cm per cell
}

// ScanSettings tunes the sensor sweep.
type ScanSettings struct {
	Step             float64 `yaml:"step"`
	ReadingsPerAngle int     `yaml:"readings_per_angle"`
	MaxDistance      float64 `yaml:"max_distance"`
	SettleMs         int     `yaml:"settle_ms"`
}

// NavSettings tunes the planner and drive.
type NavSettings struct {
	Speed        float64 `yaml:"speed"`
	SafeDistance float64 `yaml:"safe_distance"`
	TurnAngle    float64 `yaml:"turn_angle"`
	MoveDistance float64 `yaml:"move_distance"`
	CyclePauseMs int     `yaml:"cycle_pause_ms"`
	ErrorPauseMs int     `yaml:"error_pause_ms"`
	MaxTurns     int     `yaml:"max_turns"`
	StabilityLim int     `yaml:"stability_limit"`
	RevisitLimit int     `yaml:"revisit_limit"`
	MaxBackups   int     `yaml:"max_backups"`
	BackupDist   float64 `yaml:"backup_distance"`
}

// LocalizeSettings tunes the pose search.
type LocalizeSettings struct {
	MinCells     int     `yaml:"min_cells"`
	SearchRadius float64 `yaml:"search_radius"`
	Confidence   float64 `yaml:"confidence"`
}

// RotationSettings controls the panoramic survey at run start.
type RotationSettings struct {
	Enabled bool `yaml:"enabled"`
	Steps   int  `yaml:"steps"`
}

// SimSettings shapes the simulated room used when no hardware drive is
// available.
type SimSettings struct {
	RoomWidth float64 `yaml:"room_width"` // cm
	RoomDepth float64 `yaml:"room_depth"` // cm
}

// LoadConfig reads and validates a YAML config file. Environment
// variables MQTT_BROKER, MQTT_USERNAME, MQTT_PASSWORD and
// MQTT_PUBLISH_PREFIX override the corresponding file values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes the config back out as YAML.
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("MQTT_PUBLISH_PREFIX"); v != "" {
		cfg.MQTT.PublishPrefix = v
	}
}

// Validate rejects settings that would break the exploration loop.
// Zero means "unset" throughout and is always accepted; Params fills in
// the default.
func (c *Config) Validate() error {
	if c.Map.Resolution < 0 {
		return fmt.Errorf("map.resolution must not be negative, got %g", c.Map.Resolution)
	}
	if c.Scan.Step < 0 {
		return fmt.Errorf("scan.step must not be negative, got %g", c.Scan.Step)
	}
	if c.Scan.ReadingsPerAngle < 0 {
		return fmt.Errorf("scan.readings_per_angle must not be negative, got %d", c.Scan.ReadingsPerAngle)
	}
	if c.Nav.Speed < 0 || c.Nav.Speed > 100 {
		return fmt.Errorf("nav.speed must be in [0,100], got %g", c.Nav.Speed)
	}
	if c.Nav.SafeDistance < 0 {
		return fmt.Errorf("nav.safe_distance must not be negative, got %g", c.Nav.SafeDistance)
	}
	if c.Localize.Confidence < 0 || c.Localize.Confidence > 1 {
		return fmt.Errorf("localize.confidence must be in [0,1], got %g", c.Localize.Confidence)
	}
	if c.Sim.RoomWidth < 0 || c.Sim.RoomDepth < 0 {
		return fmt.Errorf("sim room dimensions must not be negative")
	}
	return nil
}

// Params builds runtime parameters: DefaultParams overridden by every
// non-zero config value.
func (c *Config) Params() Params {
	p := DefaultParams()

	if c.Map.Resolution > 0 {
		p.MapResolution = c.Map.Resolution
	}
	if c.Scan.Step > 0 {
		p.ScanStep = c.Scan.Step
	}
	if c.Scan.ReadingsPerAngle > 0 {
		p.ReadingsPerAngle = c.Scan.ReadingsPerAngle
	}
	if c.Scan.MaxDistance > 0 {
		p.MaxValidDistance = c.Scan.MaxDistance
	}
	if c.Scan.SettleMs > 0 {
		p.SettleDelay = time.Duration(c.Scan.SettleMs) * time.Millisecond
	}
	if c.Nav.Speed > 0 {
		p.Speed = c.Nav.Speed
	}
	if c.Nav.SafeDistance > 0 {
		p.SafeDistance = c.Nav.SafeDistance
	}
	if c.Nav.TurnAngle > 0 {
		p.TurnAngle = c.Nav.TurnAngle
	}
	if c.Nav.MoveDistance > 0 {
		p.MoveDistance = c.Nav.MoveDistance
	}
	if c.Nav.CyclePauseMs > 0 {
		p.CyclePause = time.Duration(c.Nav.CyclePauseMs) * time.Millisecond
	}
	if c.Nav.ErrorPauseMs > 0 {
		p.ErrorPause = time.Duration(c.Nav.ErrorPauseMs) * time.Millisecond
	}
	if c.Nav.MaxTurns > 0 {
		p.MaxConsecutiveTurns = c.Nav.MaxTurns
	}
	if c.Nav.StabilityLim > 0 {
		p.StabilityLimit = c.Nav.StabilityLim
	}
	if c.Nav.RevisitLimit > 0 {
		p.RevisitLimit = c.Nav.RevisitLimit
	}
	if c.Nav.MaxBackups > 0 {
		p.MaxBackups = c.Nav.MaxBackups
	}
	if c.Nav.BackupDist > 0 {
		p.BackupDistance = c.Nav.BackupDist
	}
	if c.Localize.MinCells > 0 {
		p.MinLocalizeCells = c.Localize.MinCells
	}
	if c.Localize.SearchRadius > 0 {
		p.SearchRadius = c.Localize.SearchRadius
	}
	if c.Localize.Confidence > 0 {
		p.AcceptConfidence = c.Localize.Confidence
	}
	if c.Rotation.Enabled {
		p.RotationScan = true
	}
	if c.Rotation.Steps > 0 {
		p.RotationSteps = c.Rotation.Steps
	}
	return p
}
