package scout

import "math"

// PolarToGrid converts a sensor reading taken at a relative angle
// (degrees, robot frame) and distance (cm) from the given pose into the
// integer grid cell the obstacle falls in. The pose's heading and the
// relative angle are summed to get the absolute bearing, the offset is
// scaled by the map resolution, and each coordinate is rounded half
// away from zero.
func PolarToGrid(origin Pose, relAngle, distance, resolution float64) (int, int) {
	abs := (origin.Heading + relAngle) * math.Pi / 180
	x := origin.X + distance*math.Cos(abs)/resolution
	y := origin.Y + distance*math.Sin(abs)/resolution
	return roundToCell(x), roundToCell(y)
}

// roundToCell rounds half away from zero, so 0.5 -> 1 and -0.5 -> -1.
func roundToCell(v float64) int {
	return int(math.Round(v))
}

// NormalizeAngle wraps an angle in degrees into [0, 360).
func NormalizeAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
