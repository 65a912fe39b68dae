package scout

import (
	"fmt"
	"time"
)

// SweepMode selects the sweep density.
type SweepMode int

const (
	// SweepCoarse is the navigation sweep: wide steps, multiple
	// readings per angle, full servo settle time.
	SweepCoarse SweepMode = iota
	// SweepFine is the survey sweep used by rotation mode: sub-degree
	// steps, one reading per angle, minimal settle.
	SweepFine
)

// Scanner drives the pan servo and distance sensor through sweeps and
// turns raw readings into a ScanProfile.
type Scanner struct {
	drive  Drive
	params Params
}

// NewScanner returns a Scanner over the given drive.
func NewScanner(drive Drive, params Params) *Scanner {
	return &Scanner{drive: drive, params: params}
}

// Sweep pans the sensor across the robot's front arc and collects a
// distance profile. Readings <= 0 or >= the valid-distance cap are
// discarded; an angle where every reading is invalid is omitted from
// the profile. The sensor is re-centered before returning.
//
// Servo and sensor command failures abort the sweep; the caller treats
// that as a failed cycle.
func (s *Scanner) Sweep(mode SweepMode) (*ScanProfile, error) {
	step := s.params.ScanStep
	readings := s.params.ReadingsPerAngle
	settle := s.params.SettleDelay
	if mode == SweepFine {
		step = s.params.FineScanStep
		readings = 1
		settle = s.params.FineSettleDelay
	}

	profile := NewScanProfile()
	for angle := s.params.ScanMin; angle <= s.params.ScanMax+1e-9; angle += step {
		// Servo angle 90 is straight ahead, so relative angle 0 maps
		// to pan 90.
		if err := s.drive.SetSensorHeading(90 + angle); err != nil {
			return nil, fmt.Errorf("pan sensor to %.1f: %w", angle, err)
		}
		time.Sleep(settle)

		var sum float64
		var valid int
		for i := 0; i < readings; i++ {
			d, err := s.drive.ReadDistance()
			if err != nil {
				return nil, fmt.Errorf("read distance at %.1f: %w", angle, err)
			}
			if d > 0 && d < s.params.MaxValidDistance {
				sum += d
				valid++
			}
			if readings > 1 {
				time.Sleep(s.params.ReadingDelay)
			}
		}
		if valid > 0 {
			profile.Add(angle, sum/float64(valid))
		}
	}

	if err := s.drive.CenterSensor(); err != nil {
		return nil, fmt.Errorf("re-center sensor: %w", err)
	}
	return profile, nil
}
