package scout

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"
)

// Telemetry receives controller progress events. The controller logs
// and tolerates errors; a nil Telemetry disables publishing.
type Telemetry interface {
	CycleUpdate(pose Pose, confidence float64, cellCount int) error
	RunComplete(reason string, cellCount int) error
}

// Controller runs the exploration loop: sweep the sensor, fold the
// profile into the map, correct the pose, plan, act, pause, repeat. It
// owns all mutable run state behind a single lock; readers get bounded
// copies through Snapshot.
type Controller struct {
	drive     Drive
	params    Params
	scanner   *Scanner
	localizer *Localizer
	planner   *Planner
	telemetry Telemetry

	mu               sync.RWMutex
	running          bool
	stopped          bool
	grid             *OccupancyMap
	pose             Pose
	confidence       float64
	state            *ExplorationState
	path             []Pose
	aheadBefore      float64
	movePending      bool
	stopCh           chan struct{}
	doneCh           chan struct{}
	completionReason string
}

// NewController wires up a controller over the given drive.
func NewController(drive Drive, params Params) *Controller {
	return &Controller{
		drive:     drive,
		params:    params,
		scanner:   NewScanner(drive, params),
		localizer: NewLocalizer(params),
		planner:   NewPlanner(params),
		grid:      NewOccupancyMap(),
	}
}

// SetTelemetry installs an optional telemetry sink. Call before Start.
func (c *Controller) SetTelemetry(t Telemetry) {
	c.telemetry = t
}

// Running reports whether a run is in progress.
func (c *Controller) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// CompletionReason returns why the last run ended, or "".
func (c *Controller) CompletionReason() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.completionReason
}

// Start begins a run from a fresh map and origin pose. It returns
// false without side effects if a run is already in progress.
func (c *Controller) Start() bool {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		log.Printf("start rejected: mapping already running")
		return false
	}
	if c.doneCh != nil {
		select {
		case <-c.doneCh:
		default:
			// A timed-out Stop left the previous loop draining.
			c.mu.Unlock()
			log.Printf("start rejected: previous mapping loop still draining")
			return false
		}
	}
	c.running = true
	c.stopped = false
	c.grid = NewOccupancyMap()
	c.state = NewExplorationState()
	c.pose = Pose{}
	c.confidence = 0
	c.path = []Pose{{}}
	c.movePending = false
	c.completionReason = ""
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.mu.Unlock()

	go c.run()
	log.Printf("mapping started")
	return true
}

// Stop requests a cooperative shutdown, waits a bounded time for the
// loop to exit, and always leaves the drive stopped and the controller
// idle. Safe to call whether or not a run is in progress, and safe to
// call twice.
func (c *Controller) Stop() {
	c.mu.Lock()
	stopCh, doneCh := c.stopCh, c.doneCh
	signalled := c.stopped
	c.stopped = true
	c.mu.Unlock()

	if stopCh != nil && !signalled {
		close(stopCh)
	}
	if doneCh != nil {
		select {
		case <-doneCh:
		case <-time.After(c.params.StopTimeout):
			// The loop is wedged in a long sweep or motion wait. The
			// run still ends here: go idle now and let the goroutine
			// drain at its next boundary check.
			log.Printf("mapping loop did not stop within %v", c.params.StopTimeout)
			c.mu.Lock()
			c.running = false
			c.mu.Unlock()
		}
	}
	if err := c.drive.Stop(); err != nil {
		log.Printf("drive stop failed: %v", err)
	}
}

// Snapshot returns a bounded deep copy of the current run state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	path := make([]Pose, len(c.path))
	copy(path, c.path)
	return Snapshot{
		Grid:       c.grid.Clone(),
		Pose:       c.pose,
		Path:       path,
		Resolution: c.params.MapResolution,
		Bounds:     c.grid.Bounds(),
		CellCount:  c.grid.CellCount(),
		Confidence: c.confidence,
		Running:    c.running,
	}
}

// run is the mapping loop goroutine.
func (c *Controller) run() {
	c.mu.RLock()
	done := c.doneCh
	c.mu.RUnlock()
	defer func() {
		c.mu.Lock()
		// A drained loop from a timed-out Stop must not touch the
		// state of a newer run.
		if c.doneCh == done {
			c.running = false
		}
		c.mu.Unlock()
		close(done)
		log.Printf("mapping loop exited")
	}()

	if c.params.RotationScan {
		c.rotationSurvey()
	}

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		finished, err := c.cycle()
		if err != nil {
			// A failed cycle never ends the run: stop the wheels,
			// give the hardware a moment, try again.
			log.Printf("cycle error: %v", err)
			if stopErr := c.drive.Stop(); stopErr != nil {
				log.Printf("drive stop failed: %v", stopErr)
			}
			c.pause(c.params.ErrorPause)
			continue
		}
		if finished {
			if err := c.drive.Stop(); err != nil {
				log.Printf("drive stop failed: %v", err)
			}
			return
		}
		c.pause(c.params.CyclePause)
	}
}

// pause sleeps but wakes early on a stop request.
func (c *Controller) pause(d time.Duration) {
	select {
	case <-c.stopCh:
	case <-time.After(d):
	}
}

// cycle runs one scan-map-localize-plan-act iteration. It returns true
// when the planner declares the run complete.
func (c *Controller) cycle() (bool, error) {
	profile, err := c.scanner.Sweep(SweepCoarse)
	if err != nil {
		return false, fmt.Errorf("sweep: %w", err)
	}

	c.mu.Lock()
	pose := c.pose
	c.mu.Unlock()

	c.foldProfile(profile, pose)

	corrected, confidence, applied := c.localizer.Localize(c.grid, profile, pose)

	c.mu.Lock()
	if applied {
		log.Printf("pose corrected: (%.1f,%.1f,%.0f°) -> (%.1f,%.1f,%.0f°) score %.2f",
			c.pose.X, c.pose.Y, c.pose.Heading,
			corrected.X, corrected.Y, corrected.Heading, confidence)
		c.pose = corrected
	}
	c.confidence = confidence

	// Progress check. Dead reckoning always credits the commanded
	// distance, so displacement is read off the world instead: the ray
	// toward the last move's direction was sampled just before the
	// move, and the pre-turn rotated that same ray to zero in this
	// sweep. A stuck robot sees the same wall at the same distance.
	if c.movePending {
		c.movePending = false
		if ahead, ok := profile.Get(0); ok {
			if math.Abs(c.aheadBefore-ahead) < c.params.ProgressThreshold {
				c.state.NoProgress++
			} else {
				c.state.NoProgress = 0
			}
		}
	}

	pose = c.pose
	cells := c.grid.CellCount()
	action := c.planner.Plan(profile, pose, cells, c.state)
	c.mu.Unlock()

	log.Printf("cycle: pose(%.1f,%.1f,%.0f°) cells=%d conf=%.2f action=%s",
		pose.X, pose.Y, pose.Heading, cells, confidence, action.Kind)

	if c.telemetry != nil {
		if err := c.telemetry.CycleUpdate(pose, confidence, cells); err != nil {
			log.Printf("telemetry update failed: %v", err)
		}
	}

	switch action.Kind {
	case ActionComplete:
		log.Printf("mapping complete: %s (%d cells)", action.Reason, cells)
		c.mu.Lock()
		c.completionReason = action.Reason
		c.mu.Unlock()
		if c.telemetry != nil {
			if err := c.telemetry.RunComplete(action.Reason, cells); err != nil {
				log.Printf("telemetry completion failed: %v", err)
			}
		}
		return true, nil
	case ActionTurn:
		c.turn(action.Angle)
	case ActionMove:
		// Baseline for the next cycle's progress check. A direction
		// without its own profile ray goes unclassified.
		if ahead, ok := profile.Get(action.Angle); ok {
			c.mu.Lock()
			c.aheadBefore = ahead
			c.movePending = true
			c.mu.Unlock()
		}
		c.move(action)
	case ActionBackup:
		c.backup(action)
	}
	return false, nil
}

// foldProfile projects every profile point into the map.
func (c *Controller) foldProfile(profile *ScanProfile, pose Pose) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, angle := range profile.Angles {
		gx, gy := PolarToGrid(pose, angle, profile.Distances[angle], c.params.MapResolution)
		c.grid.Observe(gx, gy, profile.Distances[angle])
	}
}

// turn rotates in place by deg (positive = right) and updates the
// dead-reckoned heading.
func (c *Controller) turn(deg float64) {
	var err error
	if deg >= 0 {
		err = c.drive.TurnRight(deg)
	} else {
		err = c.drive.TurnLeft(-deg)
	}
	if err != nil {
		log.Printf("turn failed: %v", err)
		return
	}
	c.pause(c.params.TurnPause)

	c.mu.Lock()
	c.pose.Heading = NormalizeAngle(c.pose.Heading + deg)
	c.mu.Unlock()
}

// move optionally pre-turns toward the chosen direction, then drives
// forward for the dead-reckoned duration and updates the pose.
func (c *Controller) move(a Action) {
	if math.Abs(a.Angle) > 1e-9 {
		c.turn(a.Angle)
	}

	c.drivePulse(true, a.Distance)

	c.mu.Lock()
	rad := c.pose.Heading * math.Pi / 180
	c.pose.X += a.Distance * math.Cos(rad) / c.params.MapResolution
	c.pose.Y += a.Distance * math.Sin(rad) / c.params.MapResolution
	c.path = append(c.path, c.pose)
	c.mu.Unlock()
}

// backup reverses without turning.
func (c *Controller) backup(a Action) {
	log.Printf("stuck: backing up %.0f cm", a.Distance)
	c.drivePulse(false, a.Distance)

	c.mu.Lock()
	rad := c.pose.Heading * math.Pi / 180
	c.pose.X -= a.Distance * math.Cos(rad) / c.params.MapResolution
	c.pose.Y -= a.Distance * math.Sin(rad) / c.params.MapResolution
	c.path = append(c.path, c.pose)
	c.mu.Unlock()
}

// drivePulse runs the wheels for the dead-reckoned travel time of the
// given distance, then stops. Command errors are logged and tolerated;
// timing carries on so the pose estimate stays consistent.
func (c *Controller) drivePulse(forward bool, distance float64) {
	if err := c.drive.SetSpeed(c.params.Speed); err != nil {
		log.Printf("set speed failed: %v", err)
	}
	var err error
	if forward {
		err = c.drive.Forward()
	} else {
		err = c.drive.Backward()
	}
	if err != nil {
		log.Printf("drive command failed: %v", err)
	}

	c.pause(c.moveDuration(distance))

	if err := c.drive.Stop(); err != nil {
		log.Printf("drive stop failed: %v", err)
	}
}

// moveDuration is the dead-reckoning travel time for a distance in cm.
func (c *Controller) moveDuration(distance float64) time.Duration {
	seconds := distance / 50 * c.params.MoveTimeFactor
	return time.Duration(seconds * float64(time.Second))
}

// rotationSurvey clears the map and spins the robot in place, taking a
// fine sweep at each step. The result is a dense panoramic baseline
// before the exploration loop starts.
func (c *Controller) rotationSurvey() {
	log.Printf("rotation survey: clearing map and scanning in place")

	c.mu.Lock()
	c.grid.Reset()
	c.mu.Unlock()

	for i := 0; i < c.params.RotationSteps; i++ {
		select {
		case <-c.stopCh:
			return
		default:
		}

		profile, err := c.scanner.Sweep(SweepFine)
		if err != nil {
			log.Printf("rotation survey sweep failed: %v", err)
			continue
		}

		c.mu.Lock()
		pose := c.pose
		c.mu.Unlock()
		c.foldProfile(profile, pose)

		if i < c.params.RotationSteps-1 {
			c.turn(c.params.RotationStepDeg)
		}
	}

	c.mu.Lock()
	cells := c.grid.CellCount()
	c.mu.Unlock()
	log.Printf("rotation survey done: %d cells", cells)
}
