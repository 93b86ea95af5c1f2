package facet

import "fmt"

// Level is one level of the portal's cascading filter, levels are ordered
// from the root (State) to the leaf (Station).
type Level int

const (
	LEVEL_STATE Level = iota
	LEVEL_DISTRICT
	LEVEL_TEHSIL
	LEVEL_BLOCK
	LEVEL_AGENCY
	LEVEL_MODE
	LEVEL_STATION
)

var levelNames = [...]string{
	LEVEL_STATE:    "State",
	LEVEL_DISTRICT: "District",
	LEVEL_TEHSIL:   "Tehsil",
	LEVEL_BLOCK:    "Block",
	LEVEL_AGENCY:   "Agency",
	LEVEL_MODE:     "Mode",
	LEVEL_STATION:  "Station",
}

func (l Level) Valid() bool {
	return l >= LEVEL_STATE && l <= LEVEL_STATION
}

func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// Next returns the level directly below l.
func (l Level) Next() Level {
	return l + 1
}

// Below returns every level strictly below l, innermost first.
func (l Level) Below() []Level {
	var out []Level
	for level := LEVEL_STATION; level > l; level-- {
		out = append(out, level)
	}
	return out
}

// Levels returns every level from the root to the leaf.
func Levels() []Level {
	out := make([]Level, 0, len(levelNames))
	for level := LEVEL_STATE; level <= LEVEL_STATION; level++ {
		out = append(out, level)
	}
	return out
}
