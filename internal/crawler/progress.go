package crawler

import "wris-inventory/internal/facet"

type EventKind int

const (
	// EVENT_BRANCH is sent when a branch was selected and is about to be descended.
	EVENT_BRANCH EventKind = iota
	// EVENT_RESET is sent after the descendants of an ambiguous label were reset.
	EVENT_RESET
	// EVENT_EMPTY is sent when a level had nothing to select.
	EVENT_EMPTY
	// EVENT_ABANDONED is sent when a branch failed and was skipped.
	EVENT_ABANDONED
	// EVENT_LEAF is sent after the stations of a leaf were extracted.
	EVENT_LEAF
)

// Event describes the progress of a run, it is delivered synchronously.
type Event struct {
	Kind  EventKind
	Level facet.Level
	Path  facet.Path
	// Stations is the amount of records appended at a leaf.
	Stations int
	Err      error
}

// ProgressFunc receives the events of a run, it must not retain Path.
type ProgressFunc func(Event)
