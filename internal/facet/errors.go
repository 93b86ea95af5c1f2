package facet

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrOccurrenceNotFound indicates fewer visible options share a label than the
	// requested occurrence.
	ErrOccurrenceNotFound = errors.New("occurrence not found")

	// ErrEmptyOptionList indicates a level had nothing to select, this is an
	// expected terminal and not a failure.
	ErrEmptyOptionList = errors.New("empty option list")

	// ErrMetadataTimeout indicates the metadata panel did not reflect the
	// selected station in time.
	ErrMetadataTimeout = errors.New("metadata timeout")

	// ErrRootMissing indicates the top-level selection UI could not be found,
	// nothing can be queried.
	ErrRootMissing = errors.New("root selection surface missing")
)

// Kind classifies an error by how the traversal recovers from it.
type Kind int

const (
	// KIND_TRANSIENT_UI abandons the current branch, siblings continue.
	KIND_TRANSIENT_UI Kind = iota
	// KIND_OCCURRENCE_NOT_FOUND skips the branch.
	KIND_OCCURRENCE_NOT_FOUND
	// KIND_EMPTY_OPTION_LIST backtracks.
	KIND_EMPTY_OPTION_LIST
	// KIND_METADATA_TIMEOUT keeps the record with null metadata.
	KIND_METADATA_TIMEOUT
	// KIND_ROOT_MISSING aborts the run.
	KIND_ROOT_MISSING
	// KIND_CANCELED aborts the run, everything accumulated so far stays valid.
	KIND_CANCELED
)

var kindNames = map[Kind]string{
	KIND_TRANSIENT_UI:         "transient_ui",
	KIND_OCCURRENCE_NOT_FOUND: "occurrence_not_found",
	KIND_EMPTY_OPTION_LIST:    "empty_option_list",
	KIND_METADATA_TIMEOUT:     "metadata_timeout",
	KIND_ROOT_MISSING:         "root_missing",
	KIND_CANCELED:             "canceled",
}

func (k Kind) String() string {
	name, ok := kindNames[k]
	if !ok {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return name
}

// Fatal reports whether errors of this kind end the whole run.
func (k Kind) Fatal() bool {
	return k == KIND_ROOT_MISSING || k == KIND_CANCELED
}

// KindOf classifies err, errors that are not recognized are transient.
func KindOf(err error) Kind {
	var branchErr *BranchError
	if errors.As(err, &branchErr) {
		return branchErr.Kind
	}
	return classify(err)
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, ErrRootMissing):
		return KIND_ROOT_MISSING
	case errors.Is(err, context.Canceled):
		return KIND_CANCELED
	case errors.Is(err, ErrOccurrenceNotFound):
		return KIND_OCCURRENCE_NOT_FOUND
	case errors.Is(err, ErrEmptyOptionList):
		return KIND_EMPTY_OPTION_LIST
	case errors.Is(err, ErrMetadataTimeout):
		return KIND_METADATA_TIMEOUT
	default:
		return KIND_TRANSIENT_UI
	}
}

// BranchError is the failure of a single branch of the traversal, it carries
// the path of the branch for context.
type BranchError struct {
	Kind  Kind
	Level Level
	Path  Path
	Err   error
}

// NewBranchError classifies err and snapshots the path it happened at.
func NewBranchError(level Level, path Path, err error) *BranchError {
	snapshot := make(Path, len(path))
	copy(snapshot, path)
	return &BranchError{
		Kind:  classify(err),
		Level: level,
		Path:  snapshot,
		Err:   err,
	}
}

func (e *BranchError) Error() string {
	return fmt.Sprintf("%s at %s [%s]: %v", e.Kind, e.Level, e.Path, e.Err)
}

func (e *BranchError) Unwrap() error {
	return e.Err
}
