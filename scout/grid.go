package scout

// OccupancyMap is a sparse obstacle map. Cells are keyed by integer
// grid coordinates (x, then y) and hold the smallest obstacle distance
// (cm) ever observed for that cell. Only observed cells exist; unknown
// space costs nothing.
//
// OccupancyMap is not safe for concurrent use. The controller owns one
// and guards it with its own lock.
type OccupancyMap struct {
	cells map[int]map[int]float64
	count int
}

// NewOccupancyMap returns an empty map.
func NewOccupancyMap() *OccupancyMap {
	return &OccupancyMap{cells: make(map[int]map[int]float64)}
}

// Observe records an obstacle distance for a cell. Repeat observations
// keep the minimum, so a cell only ever gets more conservative.
func (m *OccupancyMap) Observe(x, y int, distance float64) {
	col, ok := m.cells[x]
	if !ok {
		col = make(map[int]float64)
		m.cells[x] = col
	}
	prev, seen := col[y]
	if !seen {
		col[y] = distance
		m.count++
		return
	}
	if distance < prev {
		col[y] = distance
	}
}

// Get returns the recorded distance for a cell, if observed.
func (m *OccupancyMap) Get(x, y int) (float64, bool) {
	col, ok := m.cells[x]
	if !ok {
		return 0, false
	}
	d, ok := col[y]
	return d, ok
}

// CellCount returns the number of observed cells.
func (m *OccupancyMap) CellCount() int {
	return m.count
}

// Bounds returns the extent of the populated cells. An empty map
// reports the zero Bounds.
func (m *OccupancyMap) Bounds() Bounds {
	if m.count == 0 {
		return Bounds{}
	}
	var b Bounds
	first := true
	for x, col := range m.cells {
		for y := range col {
			if first {
				b = Bounds{MinX: x, MaxX: x, MinY: y, MaxY: y}
				first = false
				continue
			}
			if x < b.MinX {
				b.MinX = x
			}
			if x > b.MaxX {
				b.MaxX = x
			}
			if y < b.MinY {
				b.MinY = y
			}
			if y > b.MaxY {
				b.MaxY = y
			}
		}
	}
	return b
}

// Reset discards all observations.
func (m *OccupancyMap) Reset() {
	m.cells = make(map[int]map[int]float64)
	m.count = 0
}

// Clone returns a deep copy of the cell data, suitable for handing out
// in a snapshot.
func (m *OccupancyMap) Clone() map[int]map[int]float64 {
	out := make(map[int]map[int]float64, len(m.cells))
	for x, col := range m.cells {
		cc := make(map[int]float64, len(col))
		for y, d := range col {
			cc[y] = d
		}
		out[x] = cc
	}
	return out
}
