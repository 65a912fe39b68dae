package scout

import "math"

// Localizer corrects the dead-reckoned pose by brute-force search: it
// tries every pose in a small neighborhood and scores how well the
// current scan profile agrees with the map from there.
type Localizer struct {
	params Params
}

// NewLocalizer returns a Localizer with the given tuning.
func NewLocalizer(params Params) *Localizer {
	return &Localizer{params: params}
}

// Localize searches around the estimated pose and returns the corrected
// pose, the best match score, and whether the correction was applied.
//
// The search is skipped entirely until the map holds more than
// MinLocalizeCells cells; matching against a near-empty map produces
// garbage corrections. A correction is only applied when the best score
// clears AcceptConfidence and is either a meaningful positional shift
// (more than MinCorrection grid units) or a strong match above
// StrongConfidence. The returned score is valid either way and the
// caller records it as the current confidence.
func (l *Localizer) Localize(grid *OccupancyMap, profile *ScanProfile, estimate Pose) (Pose, float64, bool) {
	p := l.params
	if grid.CellCount() <= p.MinLocalizeCells {
		return estimate, 0, false
	}

	best := estimate
	bestScore := -1.0
	for dx := -p.SearchRadius; dx <= p.SearchRadius; dx += p.SearchStep {
		for dy := -p.SearchRadius; dy <= p.SearchRadius; dy += p.SearchStep {
			for dh := -p.HeadingRadius; dh <= p.HeadingRadius; dh += p.HeadingStep {
				cand := Pose{
					X:       estimate.X + dx,
					Y:       estimate.Y + dy,
					Heading: NormalizeAngle(estimate.Heading + dh),
				}
				score := l.score(grid, profile, cand)
				if score > bestScore {
					bestScore = score
					best = cand
				}
			}
		}
	}

	if bestScore > p.AcceptConfidence {
		shift := math.Hypot(best.X-estimate.X, best.Y-estimate.Y)
		if shift > p.MinCorrection || bestScore > p.StrongConfidence {
			return best, bestScore, true
		}
	}
	return estimate, bestScore, false
}

// score rates how well the profile matches the map when observed from
// the candidate pose. Each usable profile point projects to a grid
// cell; an exact cell hit earns up to full credit falling off linearly
// over ExactMatchTolerance cm of disagreement, and a miss earns half
// credit from the first of the 8 neighbors that agrees within
// NeighborTolerance. The result is normalized to [0, 1] by the number
// of usable points.
func (l *Localizer) score(grid *OccupancyMap, profile *ScanProfile, cand Pose) float64 {
	p := l.params
	total := 0.0
	used := 0
	for _, angle := range profile.Angles {
		d := profile.Distances[angle]
		if d <= 0 || d > p.MaxMatchDistance {
			continue
		}
		used++

		gx, gy := PolarToGrid(cand, angle, d, p.MapResolution)
		if md, ok := grid.Get(gx, gy); ok {
			diff := math.Abs(d - md)
			if diff < p.ExactMatchTolerance {
				total += (p.ExactMatchTolerance - diff) / p.ExactMatchTolerance
			}
			continue
		}
		total += l.neighborCredit(grid, gx, gy, d)
	}
	if used == 0 {
		return 0
	}
	return total / float64(used)
}

// neighborCredit scans the 8 surrounding cells in fixed order and
// returns the partial credit for the first one agreeing within
// NeighborTolerance, or 0.
func (l *Localizer) neighborCredit(grid *OccupancyMap, gx, gy int, d float64) float64 {
	p := l.params
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			md, ok := grid.Get(gx+dx, gy+dy)
			if !ok {
				continue
			}
			diff := math.Abs(d - md)
			if diff < p.NeighborTolerance {
				return (p.NeighborTolerance - diff) / (2 * p.NeighborTolerance)
			}
		}
	}
	return 0
}
