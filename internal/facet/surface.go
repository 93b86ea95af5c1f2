package facet

import "context"

// Surface is the UI/automation collaborator the traversal drives. A surface is
// stateful: every Select and ClearAll may change what ListOptions returns for
// the levels below, so indices returned by ListOptions are only valid until
// the next mutation. A surface is owned by exactly one traversal at a time.
type Surface interface {
	// ListOptions returns the entries currently visible at level, in order.
	// The list may include the "Select all" pseudo-option. `path` is the
	// selection the caller believes is active, surfaces may use it for
	// context but must not select anything themselves.
	ListOptions(ctx context.Context, level Level, path Path) ([]RawOption, error)
	// Select selects the entry at index of the list most recently visible at
	// level. Selecting an already selected entry leaves it selected.
	Select(ctx context.Context, level Level, index int) error
	// ClearAll deselects every entry at level, it is a no-op when nothing
	// can be cleared.
	ClearAll(ctx context.Context, level Level) error
	// ReadMetadata waits for the metadata panel to show the selected station,
	// it returns ErrMetadataTimeout if ctx expires first.
	ReadMetadata(ctx context.Context) (Metadata, error)
}
