package core

// LODTable is the ordered list of camera distance thresholds. Its length
// defines the highest resolution level.
type LODTable struct {
	Distances []float32 `json:"distances"`
}

// MaxLevel returns len(Distances)-1, or -1 for an empty table.
func (t LODTable) MaxLevel() int {
	return len(t.Distances) - 1
}

// LevelFor picks the resolution level for a camera distance. Closer than
// the last threshold selects the highest level.
func (t LODTable) LevelFor(distance float32) int {
	level := 0
	for i, d := range t.Distances {
		if distance <= d {
			level = i
		}
	}
	return level
}
