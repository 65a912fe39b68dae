package scout

import (
	"math"
	"testing"
)

// flatProfile builds a coarse-style profile with the same distance at
// every angle.
func flatProfile(distance float64) *ScanProfile {
	p := NewScanProfile()
	for angle := -90.0; angle <= 90; angle += 15 {
		p.Add(angle, distance)
	}
	return p
}

// planOnce is a convenience wrapper with a varying pose so the revisit
// counter never trips by accident.
func planOnce(pl *Planner, profile *ScanProfile, st *ExplorationState, cycle int) Action {
	pose := Pose{X: float64(cycle * 10)}
	return pl.Plan(profile, pose, cycle+100, st)
}

// ---------------------------------------------------------------------------
// Direction scoring
// ---------------------------------------------------------------------------

func TestPlanMovesTowardOpenSpace(t *testing.T) {
	pl := NewPlanner(DefaultParams())
	st := NewExplorationState()

	// Everything blocked except the forward cone.
	profile := NewScanProfile()
	for angle := -90.0; angle <= 90; angle += 15 {
		d := 20.0
		if angle >= -30 && angle <= 30 {
			d = 200
		}
		profile.Add(angle, d)
	}

	a := pl.Plan(profile, Pose{}, 50, st)
	if a.Kind != ActionMove {
		t.Fatalf("action = %s, want move", a.Kind)
	}
	if a.Angle != 0 {
		t.Errorf("move angle = %g, want 0 (the only open cone)", a.Angle)
	}
	if a.Distance != 30 {
		t.Errorf("move distance = %g, want the default step", a.Distance)
	}
}

func TestPlanPrefersEarlierCandidateOnTie(t *testing.T) {
	pl := NewPlanner(DefaultParams())
	st := NewExplorationState()

	a := pl.Plan(flatProfile(200), Pose{}, 50, st)
	if a.Kind != ActionMove {
		t.Fatalf("action = %s, want move", a.Kind)
	}
	if a.Angle != -90 {
		t.Errorf("tie broke to %g, want the first candidate -90", a.Angle)
	}
}

func TestPlanShortStepInTightSpace(t *testing.T) {
	pl := NewPlanner(DefaultParams())
	st := NewExplorationState()

	// Clearances sit between safe distance and the small-space
	// threshold. The tight-space bonus fires too, so the gap cap
	// applies on top of the short step.
	a := pl.Plan(flatProfile(60), Pose{}, 50, st)
	if a.Kind != ActionMove {
		t.Fatalf("action = %s, want move", a.Kind)
	}
	if a.Distance != 15 {
		t.Errorf("move distance = %g, want the small-space step 15", a.Distance)
	}
}

func TestPlanGapBonusCapsDistance(t *testing.T) {
	pl := NewPlanner(DefaultParams())
	st := NewExplorationState()

	// Comfortable clearance everywhere with a pronounced opening at 0:
	// the chosen step must be capped while a gap bonus is in play.
	profile := NewScanProfile()
	for angle := -90.0; angle <= 90; angle += 15 {
		d := 120.0
		if angle == 0 {
			d = 200
		}
		profile.Add(angle, d)
	}

	a := pl.Plan(profile, Pose{}, 50, st)
	if a.Kind != ActionMove {
		t.Fatalf("action = %s, want move", a.Kind)
	}
	if a.Distance != 20 {
		t.Errorf("move distance = %g, want capped at 20", a.Distance)
	}
}

func TestGapBonusOpening(t *testing.T) {
	pl := NewPlanner(DefaultParams())

	profile := NewScanProfile()
	profile.Add(-15, 100)
	profile.Add(0, 180)
	profile.Add(15, 120)

	bonus := pl.gapBonus(profile, 0)
	// mid exceeds both neighbors by >30: (180-120)/10 = 6
	if math.Abs(bonus-6) > 1e-9 {
		t.Errorf("gap bonus = %g, want 6", bonus)
	}
}

func TestGapBonusTightSpace(t *testing.T) {
	pl := NewPlanner(DefaultParams())

	profile := NewScanProfile()
	profile.Add(-15, 200)
	profile.Add(0, 60)
	profile.Add(15, 200)

	bonus := pl.gapBonus(profile, 0)
	// mid below 80: (80-60)/20 = 1
	if math.Abs(bonus-1) > 1e-9 {
		t.Errorf("tight-space bonus = %g, want 1", bonus)
	}
}

func TestClearanceUnknownIsBlocked(t *testing.T) {
	pl := NewPlanner(DefaultParams())
	profile := NewScanProfile()
	profile.Add(90, 300) // nothing anywhere near -90

	if c := pl.clearance(profile, -90); c != 0 {
		t.Errorf("clearance with no samples = %g, want 0", c)
	}
}

// ---------------------------------------------------------------------------
// Turning and the turn limit
// ---------------------------------------------------------------------------

func TestPlanTurnsWhenBlocked(t *testing.T) {
	pl := NewPlanner(DefaultParams())
	st := NewExplorationState()

	a := planOnce(pl, flatProfile(10), st, 0)
	if a.Kind != ActionTurn {
		t.Fatalf("action = %s, want turn", a.Kind)
	}
	if a.Angle != 45 {
		t.Errorf("turn angle = %g, want 45", a.Angle)
	}
	if st.ConsecutiveTurns != 1 {
		t.Errorf("ConsecutiveTurns = %d, want 1", st.ConsecutiveTurns)
	}
}

func TestPlanCompletesAfterTurnLimit(t *testing.T) {
	pl := NewPlanner(DefaultParams())
	st := NewExplorationState()

	for i := 0; i < 5; i++ {
		a := planOnce(pl, flatProfile(10), st, i)
		if a.Kind != ActionTurn {
			t.Fatalf("cycle %d: action = %s, want turn", i, a.Kind)
		}
	}
	a := planOnce(pl, flatProfile(10), st, 5)
	if a.Kind != ActionComplete {
		t.Fatalf("after 5 turns: action = %s, want complete", a.Kind)
	}
}

func TestPlanMoveResetsTurnCounter(t *testing.T) {
	pl := NewPlanner(DefaultParams())
	st := NewExplorationState()

	planOnce(pl, flatProfile(10), st, 0)
	planOnce(pl, flatProfile(10), st, 1)
	if st.ConsecutiveTurns != 2 {
		t.Fatalf("ConsecutiveTurns = %d, want 2", st.ConsecutiveTurns)
	}

	a := planOnce(pl, flatProfile(200), st, 2)
	if a.Kind != ActionMove {
		t.Fatalf("action = %s, want move", a.Kind)
	}
	if st.ConsecutiveTurns != 0 {
		t.Errorf("ConsecutiveTurns after move = %d, want 0", st.ConsecutiveTurns)
	}
}

// ---------------------------------------------------------------------------
// Completion heuristics
// ---------------------------------------------------------------------------

func TestPlanCompletesWhenMapStable(t *testing.T) {
	pl := NewPlanner(DefaultParams())
	st := NewExplorationState()

	var a Action
	for i := 0; i < 12; i++ {
		pose := Pose{X: float64(i * 10)} // keep revisit out of the way
		a = pl.Plan(flatProfile(200), pose, 500, st)
		if a.Kind == ActionComplete {
			break
		}
	}
	if a.Kind != ActionComplete {
		t.Fatalf("no completion after prolonged stable cell count, last action = %s", a.Kind)
	}
	if st.StableCycles < 10 {
		t.Errorf("StableCycles = %d, want >= 10", st.StableCycles)
	}
}

func TestPlanCompletesOnRevisit(t *testing.T) {
	pl := NewPlanner(DefaultParams())
	st := NewExplorationState()

	pose := Pose{X: 1.2, Y: 0.8}
	var a Action
	for i := 0; i < 3; i++ {
		a = pl.Plan(flatProfile(200), pose, 100+i, st)
	}
	if a.Kind != ActionComplete {
		t.Fatalf("third visit to the same cell: action = %s, want complete", a.Kind)
	}
}

// ---------------------------------------------------------------------------
// Stuck recovery
// ---------------------------------------------------------------------------

func TestPlanBacksUpWhenStuck(t *testing.T) {
	pl := NewPlanner(DefaultParams())
	st := NewExplorationState()
	st.NoProgress = 3

	a := planOnce(pl, flatProfile(200), st, 0)
	if a.Kind != ActionBackup {
		t.Fatalf("action = %s, want backup", a.Kind)
	}
	if a.Distance != 25 {
		t.Errorf("backup distance = %g, want 25", a.Distance)
	}
	if st.Backups != 1 {
		t.Errorf("Backups = %d, want 1", st.Backups)
	}
	if st.NoProgress != 0 {
		t.Errorf("NoProgress after backup = %d, want reset to 0", st.NoProgress)
	}
}

func TestPlanCompletesAfterBackupsExhausted(t *testing.T) {
	pl := NewPlanner(DefaultParams())
	st := NewExplorationState()

	for i := 0; i < 3; i++ {
		st.NoProgress = 3
		a := planOnce(pl, flatProfile(200), st, i)
		if a.Kind != ActionBackup {
			t.Fatalf("backup %d: action = %s, want backup", i+1, a.Kind)
		}
	}

	st.NoProgress = 3
	a := planOnce(pl, flatProfile(200), st, 3)
	if a.Kind != ActionComplete {
		t.Fatalf("after 3 backups: action = %s, want complete", a.Kind)
	}
}
