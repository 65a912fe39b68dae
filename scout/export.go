package scout

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"
)

// pathSimplifyTolerance is the Douglas-Peucker tolerance for the driven
// path, in cm. One grid cell at the default resolution.
const pathSimplifyTolerance = 10.0

// FeatureCollection converts a snapshot into GeoJSON in world
// centimeters: one point feature per obstacle cell, a simplified
// line string for the driven path, and a point for the robot itself.
// Cells are emitted in sorted order so output is deterministic.
func FeatureCollection(snap Snapshot) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	res := snap.Resolution

	xs := make([]int, 0, len(snap.Grid))
	for x := range snap.Grid {
		xs = append(xs, x)
	}
	sort.Ints(xs)
	for _, x := range xs {
		col := snap.Grid[x]
		ys := make([]int, 0, len(col))
		for y := range col {
			ys = append(ys, y)
		}
		sort.Ints(ys)
		for _, y := range ys {
			f := geojson.NewFeature(orb.Point{float64(x) * res, float64(y) * res})
			f.Properties["kind"] = "obstacle"
			f.Properties["distance"] = col[y]
			fc.Append(f)
		}
	}

	if len(snap.Path) > 1 {
		ls := make(orb.LineString, 0, len(snap.Path))
		for _, p := range snap.Path {
			ls = append(ls, orb.Point{p.X * res, p.Y * res})
		}
		s := simplify.DouglasPeucker(pathSimplifyTolerance).Simplify(ls.Clone())
		if simplified, ok := s.(orb.LineString); ok {
			ls = simplified
		}
		f := geojson.NewFeature(ls)
		f.Properties["kind"] = "path"
		fc.Append(f)
	}

	robot := geojson.NewFeature(orb.Point{snap.Pose.X * res, snap.Pose.Y * res})
	robot.Properties["kind"] = "robot"
	robot.Properties["heading"] = snap.Pose.Heading
	robot.Properties["confidence"] = snap.Confidence
	fc.Append(robot)

	return fc
}
