package scout

import (
	"math"
	"sync"
)

// Drive is the actuator and sensor surface the exploration stack sits
// on. A hardware implementation talks to the motor controller board;
// MockDrive simulates one. All commands are fire-and-forget: the caller
// owns timing (drive for t, then Stop).
type Drive interface {
	// SetSensorHeading pans the distance sensor to an absolute servo
	// angle in degrees, where 90 is straight ahead.
	SetSensorHeading(deg float64) error
	// CenterSensor returns the sensor to straight ahead.
	CenterSensor() error
	// ReadDistance returns one raw distance reading in cm. Zero,
	// negative and out-of-range values indicate a failed echo.
	ReadDistance() (float64, error)

	TurnLeft(deg float64) error
	TurnRight(deg float64) error
	Forward() error
	Backward() error
	SetSpeed(speed float64) error
	Stop() error
}

// DriveCommand records one call made against a MockDrive.
type DriveCommand struct {
	Name  string
	Value float64
}

// MockDrive is an in-memory Drive for tests and simulation runs. It
// records every command and answers distance reads through ReadFunc,
// which sees the current pan angle. With no ReadFunc all reads return
// DefaultDistance.
type MockDrive struct {
	mu       sync.Mutex
	commands []DriveCommand
	pan      float64
	heading  float64
	speed    float64
	moving   int // +1 forward, -1 backward, 0 stopped

	// ReadFunc, when set, produces distance readings. It is called
	// with the current pan angle (degrees, 90 = straight ahead) and
	// the accumulated body heading (degrees).
	ReadFunc func(pan, heading float64) (float64, error)

	// DefaultDistance is returned when ReadFunc is nil.
	DefaultDistance float64

	// Err, when set, is returned by every command. Use SetErr when
	// the drive is shared with a running controller.
	Err error
}

// SetErr sets or clears the injected command error.
func (d *MockDrive) SetErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Err = err
}

// NewMockDrive returns a MockDrive centered and stopped.
func NewMockDrive() *MockDrive {
	return &MockDrive{pan: 90, DefaultDistance: 100}
}

func (d *MockDrive) record(name string, value float64) {
	d.commands = append(d.commands, DriveCommand{Name: name, Value: value})
}

// Commands returns a copy of everything called so far.
func (d *MockDrive) Commands() []DriveCommand {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DriveCommand, len(d.commands))
	copy(out, d.commands)
	return out
}

// CommandCount returns how many times the named command was called.
func (d *MockDrive) CommandCount(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.commands {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Heading returns the accumulated body heading from turn commands.
func (d *MockDrive) Heading() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.heading
}

// Pan returns the current sensor pan angle.
func (d *MockDrive) Pan() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pan
}

func (d *MockDrive) SetSensorHeading(deg float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.pan = math.Max(0, math.Min(180, deg))
	d.record("pan", d.pan)
	return nil
}

func (d *MockDrive) CenterSensor() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.pan = 90
	d.record("center", 90)
	return nil
}

func (d *MockDrive) ReadDistance() (float64, error) {
	d.mu.Lock()
	pan, heading := d.pan, d.heading
	read := d.ReadFunc
	def := d.DefaultDistance
	err := d.Err
	d.record("read", pan)
	d.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if read != nil {
		return read(pan, heading)
	}
	return def, nil
}

func (d *MockDrive) TurnLeft(deg float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.heading = NormalizeAngle(d.heading - deg)
	d.record("turnLeft", deg)
	return nil
}

func (d *MockDrive) TurnRight(deg float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.heading = NormalizeAngle(d.heading + deg)
	d.record("turnRight", deg)
	return nil
}

func (d *MockDrive) Forward() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.moving = 1
	d.record("forward", 0)
	return nil
}

func (d *MockDrive) Backward() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.moving = -1
	d.record("backward", 0)
	return nil
}

func (d *MockDrive) SetSpeed(speed float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.speed = speed
	d.record("speed", speed)
	return nil
}

func (d *MockDrive) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.moving = 0
	d.record("stop", 0)
	// Stop is best-effort even when the drive is failing
	return d.Err
}

// RectRoomReadFunc returns a ReadFunc that ray-casts a rectangular room
// of the given width and depth (cm) around a robot standing at the
// center. It gives the simulation mode believable walls to map.
func RectRoomReadFunc(width, depth float64) func(pan, heading float64) (float64, error) {
	halfW, halfD := width/2, depth/2
	return func(pan, heading float64) (float64, error) {
		// pan 90 = straight ahead; convert to a bearing in the room
		bearing := (heading + pan - 90) * math.Pi / 180
		dx, dy := math.Cos(bearing), math.Sin(bearing)
		best := math.Inf(1)
		if dx > 1e-9 {
			best = math.Min(best, halfW/dx)
		} else if dx < -1e-9 {
			best = math.Min(best, -halfW/dx)
		}
		if dy > 1e-9 {
			best = math.Min(best, halfD/dy)
		} else if dy < -1e-9 {
			best = math.Min(best, -halfD/dy)
		}
		if math.IsInf(best, 1) {
			return 0, nil
		}
		return best, nil
	}
}
