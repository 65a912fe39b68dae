package scout

import "time"

// Pose is the robot's estimated position in grid units plus its heading
// in degrees. X and Y are fractional grid coordinates; multiply by the
// map resolution to get centimeters.
type Pose struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
}

// Bounds is the axis-aligned extent of the populated portion of the map,
// in grid coordinates. All fields are zero for an empty map.
type Bounds struct {
	MinX int `json:"minX"`
	MaxX int `json:"maxX"`
	MinY int `json:"minY"`
	MaxY int `json:"maxY"`
}

// ScanProfile is the result of one sensor sweep: distance in cm per
// relative angle (degrees, robot frame). Angles preserves sweep order;
// an angle with no valid readings is simply absent.
type ScanProfile struct {
	Angles    []float64
	Distances map[float64]float64
}

// NewScanProfile returns an empty profile.
func NewScanProfile() *ScanProfile {
	return &ScanProfile{Distances: make(map[float64]float64)}
}

// Add records a distance for a relative angle, preserving insertion order.
func (p *ScanProfile) Add(angle, distance float64) {
	if _, ok := p.Distances[angle]; !ok {
		p.Angles = append(p.Angles, angle)
	}
	p.Distances[angle] = distance
}

// Get returns the distance for a relative angle, if one was recorded.
func (p *ScanProfile) Get(angle float64) (float64, bool) {
	d, ok := p.Distances[angle]
	return d, ok
}

// Len returns the number of angles with a valid reading.
func (p *ScanProfile) Len() int {
	return len(p.Angles)
}

// ActionKind enumerates the decisions the planner can make.
type ActionKind int

const (
	// ActionTurn rotates in place by Angle degrees (positive = right).
	ActionTurn ActionKind = iota
	// ActionMove optionally pre-turns by Angle degrees, then drives
	// forward Distance cm.
	ActionMove
	// ActionBackup reverses Distance cm without turning.
	ActionBackup
	// ActionComplete ends the exploration run.
	ActionComplete
)

// String returns a short name for logging.
func (k ActionKind) String() string {
	switch k {
	case ActionTurn:
		return "turn"
	case ActionMove:
		return "move"
	case ActionBackup:
		return "backup"
	case ActionComplete:
		return "complete"
	}
	return "unknown"
}

// Action is one planner decision.
type Action struct {
	Kind     ActionKind
	Angle    float64 // degrees, relative to current heading
	Distance float64 // cm
	Reason   string  // set for ActionComplete
}

// Snapshot is a bounded copy of the controller's state, safe to hold
// after the lock is released. Grid is a deep copy.
type Snapshot struct {
	Grid       map[int]map[int]float64 `json:"grid"`
	Pose       Pose                    `json:"pose"`
	Path       []Pose                  `json:"path"`
	Resolution float64                 `json:"resolution"`
	Bounds     Bounds                  `json:"bounds"`
	CellCount  int                     `json:"cellCount"`
	Confidence float64                 `json:"confidence"`
	Running    bool                    `json:"running"`
}

// Params holds every tunable of the exploration stack. Zero values are
// not meaningful; start from DefaultParams and override.
type Params struct {
	// Map geometry
	MapResolution float64 // cm per grid cell

	// Drive
	Speed float64 // motor speed, 0-100

	// Sensor sweep
	ScanMin          float64 // degrees, robot frame
	ScanMax          float64
	ScanStep         float64
	ReadingsPerAngle int
	MaxValidDistance float64 // cm, readings at or beyond are discarded
	SettleDelay      time.Duration
	ReadingDelay     time.Duration
	FineScanStep     float64
	FineSettleDelay  time.Duration

	// Localization
	MinLocalizeCells    int     // search only runs above this cell count
	SearchRadius        float64 // grid units
	SearchStep          float64
	HeadingRadius       float64 // degrees
	HeadingStep         float64
	MaxMatchDistance    float64 // cm, profile points beyond are ignored
	AcceptConfidence    float64
	StrongConfidence    float64
	MinCorrection       float64 // grid units
	ExactMatchTolerance float64 // cm
	NeighborTolerance   float64 // cm

	// Planner
	SafeDistance        float64 // cm
	TurnAngle           float64 // degrees
	MoveDistance        float64 // cm
	SmallSpaceDistance  float64 // cm
	GapMoveCap          float64 // cm
	SmallSpaceThreshold float64 // cm
	GapThreshold        float64 // cm
	ClearanceCone       float64 // degrees, half-width
	GapCone             float64 // degrees, half-width
	MaxConsecutiveTurns int
	StabilityLimit      int
	RevisitLimit        int
	ProgressThreshold   float64 // cm
	StuckLimit          int
	MaxBackups          int
	BackupDistance      float64 // cm

	// Controller timing
	CyclePause  time.Duration
	ErrorPause  time.Duration
	TurnPause   time.Duration
	StopTimeout time.Duration
	// Dead reckoning: moving d cm takes d/50*MoveTimeFactor seconds.
	MoveTimeFactor float64

	// Rotation survey mode
	RotationScan    bool
	RotationSteps   int
	RotationStepDeg float64
}

// DefaultParams returns the tuning the robot ships with.
func DefaultParams() Params {
	return Params{
		MapResolution: 10,

		Speed: 25,

		ScanMin:          -90,
		ScanMax:          90,
		ScanStep:         15,
		ReadingsPerAngle: 3,
		MaxValidDistance: 400,
		SettleDelay:      100 * time.Millisecond,
		ReadingDelay:     20 * time.Millisecond,
		FineScanStep:     0.4,
		FineSettleDelay:  5 * time.Millisecond,

		MinLocalizeCells:    10,
		SearchRadius:        50,
		SearchStep:          10,
		HeadingRadius:       30,
		HeadingStep:         10,
		MaxMatchDistance:    300,
		AcceptConfidence:    0.6,
		StrongConfidence:    0.8,
		MinCorrection:       2,
		ExactMatchTolerance: 20,
		NeighborTolerance:   30,

		SafeDistance:        50,
		TurnAngle:           45,
		MoveDistance:        30,
		SmallSpaceDistance:  15,
		GapMoveCap:          20,
		SmallSpaceThreshold: 80,
		GapThreshold:        30,
		ClearanceCone:       30,
		GapCone:             45,
		MaxConsecutiveTurns: 5,
		StabilityLimit:      10,
		RevisitLimit:        3,
		ProgressThreshold:   5,
		StuckLimit:          3,
		MaxBackups:          3,
		BackupDistance:      25,

		CyclePause:     1 * time.Second,
		ErrorPause:     2 * time.Second,
		TurnPause:      1 * time.Second,
		StopTimeout:    2 * time.Second,
		MoveTimeFactor: 2.0,

		RotationScan:    false,
		RotationSteps:   2,
		RotationStepDeg: 180,
	}
}
