package scout

import "math"

// GridCell is an integer cell coordinate, used as a visited-set key.
type GridCell struct {
	X, Y int
}

// ExplorationState is the planner's memory across cycles: completion
// counters, the visited set and the stuck/backup bookkeeping. The
// controller owns one per run.
type ExplorationState struct {
	ConsecutiveTurns int
	StableCycles     int
	LastCellCount    int
	NoProgress       int
	Backups          int
	Visited          map[GridCell]int
}

// NewExplorationState returns a fresh state for a new run.
func NewExplorationState() *ExplorationState {
	return &ExplorationState{Visited: make(map[GridCell]int), LastCellCount: -1}
}

// Planner picks the next action from the latest scan profile. It is
// stateless; all memory lives in ExplorationState.
type Planner struct {
	params Params
}

// NewPlanner returns a Planner with the given tuning.
func NewPlanner(params Params) *Planner {
	return &Planner{params: params}
}

// candidateAngles are the relative directions scored each cycle, in
// tie-break priority order.
var candidateAngles = []float64{-90, -60, -30, 0, 30, 60, 90}

// Plan decides the next action. Checks run in a fixed order: completion
// heuristics first, then stuck recovery, then direction scoring.
func (pl *Planner) Plan(profile *ScanProfile, pose Pose, cellCount int, st *ExplorationState) Action {
	p := pl.params

	cell := GridCell{X: roundToCell(pose.X), Y: roundToCell(pose.Y)}
	st.Visited[cell]++

	if cellCount == st.LastCellCount {
		st.StableCycles++
	} else {
		st.StableCycles = 0
	}
	st.LastCellCount = cellCount

	// Completion heuristics
	if st.ConsecutiveTurns >= p.MaxConsecutiveTurns {
		return Action{Kind: ActionComplete, Reason: "turn limit reached"}
	}
	if st.StableCycles >= p.StabilityLimit {
		return Action{Kind: ActionComplete, Reason: "map stopped growing"}
	}
	if st.Visited[cell] >= p.RevisitLimit {
		return Action{Kind: ActionComplete, Reason: "area fully revisited"}
	}

	// Stuck recovery
	if st.NoProgress >= p.StuckLimit {
		if st.Backups < p.MaxBackups {
			st.Backups++
			st.NoProgress = 0
			return Action{Kind: ActionBackup, Distance: p.BackupDistance}
		}
		return Action{Kind: ActionComplete, Reason: "backup attempts exhausted"}
	}

	// Direction scoring
	bestAngle := candidateAngles[0]
	bestCombined := -1.0
	bestClearance := 0.0
	bestBonus := 0.0
	for _, angle := range candidateAngles {
		clearance := pl.clearance(profile, angle)
		bonus := pl.gapBonus(profile, angle)
		combined := clearance + 2*bonus
		if combined > bestCombined {
			bestCombined = combined
			bestAngle = angle
			bestClearance = clearance
			bestBonus = bonus
		}
	}

	if bestCombined < p.SafeDistance {
		st.ConsecutiveTurns++
		if st.ConsecutiveTurns > p.MaxConsecutiveTurns {
			return Action{Kind: ActionComplete, Reason: "turn limit reached"}
		}
		return Action{Kind: ActionTurn, Angle: p.TurnAngle}
	}

	st.ConsecutiveTurns = 0
	distance := p.MoveDistance
	if bestClearance < p.SmallSpaceThreshold {
		distance = p.SmallSpaceDistance
	}
	if bestBonus > 0 && distance > p.GapMoveCap {
		distance = p.GapMoveCap
	}
	return Action{Kind: ActionMove, Angle: bestAngle, Distance: distance}
}

// clearance is the minimum profile distance inside the cone around the
// candidate direction. No samples in the cone means zero clearance:
// unknown is treated as blocked.
func (pl *Planner) clearance(profile *ScanProfile, direction float64) float64 {
	cone := pl.params.ClearanceCone
	best := math.Inf(1)
	found := false
	for _, angle := range profile.Angles {
		if math.Abs(angle-direction) <= cone {
			d := profile.Distances[angle]
			if d < best {
				best = d
			}
			found = true
		}
	}
	if !found {
		return 0
	}
	return best
}

// gapBonus scans the samples inside the wider gap cone for local
// structure worth steering toward. Each adjacent triple contributes: a
// middle sample poking out past both neighbors by more than
// GapThreshold cm looks like an opening and earns (mid-maxNeighbor)/10,
// and a middle sample below SmallSpaceThreshold earns a tight-space
// nudge of (threshold-mid)/20.
func (pl *Planner) gapBonus(profile *ScanProfile, direction float64) float64 {
	p := pl.params
	var dists []float64
	for _, angle := range profile.Angles {
		if math.Abs(angle-direction) <= p.GapCone {
			dists = append(dists, profile.Distances[angle])
		}
	}
	if len(dists) < 3 {
		return 0
	}

	bonus := 0.0
	for i := 1; i < len(dists)-1; i++ {
		left, mid, right := dists[i-1], dists[i], dists[i+1]
		if mid-left > p.GapThreshold && mid-right > p.GapThreshold {
			bonus += (mid - math.Max(left, right)) / 10
		}
		if mid < p.SmallSpaceThreshold {
			bonus += (p.SmallSpaceThreshold - mid) / 20
		}
	}
	return bonus
}
