package crawler

import "wris-inventory/internal/facet"

// state is the traversal state of one run. It is owned by exactly one Run and
// passed by pointer through the recursion, it is never copied.
type state struct {
	path     facet.Path
	counters map[facet.Level]*facet.Counter
	// dirty marks levels that had something selected since they were last cleared.
	dirty map[facet.Level]bool
	// tehsils visited per district label, only used when merging tehsils.
	visitedTehsils map[string]map[string]struct{}
	summary        Summary
}

func newState() *state {
	return &state{
		counters:       map[facet.Level]*facet.Counter{},
		dirty:          map[facet.Level]bool{},
		visitedTehsils: map[string]map[string]struct{}{},
	}
}

func (s *state) counter(level facet.Level) *facet.Counter {
	c, ok := s.counters[level]
	if !ok {
		c = facet.NewCounter()
		s.counters[level] = c
	}
	return c
}

// push records the selection made at the level the path is currently at.
func (s *state) push(o facet.Option) {
	s.path = s.path.With(o)
}

// truncate drops every selection at or below level.
func (s *state) truncate(level facet.Level) {
	if int(level) < len(s.path) {
		s.path = s.path[:level]
	}
}

func (s *state) record() facet.StationRecord {
	return facet.StationRecord{
		District: s.path.Label(facet.LEVEL_DISTRICT),
		Tehsil:   s.path.Label(facet.LEVEL_TEHSIL),
		Block:    s.path.Label(facet.LEVEL_BLOCK),
		Agency:   s.path.Label(facet.LEVEL_AGENCY),
		Mode:     s.path.Label(facet.LEVEL_MODE),
	}
}

// Summary counts what a run did.
type Summary struct {
	Districts  int
	Branches   int
	Abandoned  int
	Resets     int
	Leaves     int
	Records    int
	Degraded   int
	Duplicates int
	// Unsaved is the amount of records some output did not accept by the end
	// of the run, FlushErr is why.
	Unsaved  int
	FlushErr error
}

// Persisted is the amount of records every output accepted.
func (s Summary) Persisted() int {
	return s.Records - s.Unsaved
}
