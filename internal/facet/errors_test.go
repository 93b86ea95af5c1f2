package facet

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	testCases := []struct {
		err      error
		expected Kind
	}{
		{err: fmt.Errorf("click: %w", errors.New("detached node")), expected: KIND_TRANSIENT_UI},
		{err: fmt.Errorf("locate: %w", ErrOccurrenceNotFound), expected: KIND_OCCURRENCE_NOT_FOUND},
		{err: ErrEmptyOptionList, expected: KIND_EMPTY_OPTION_LIST},
		{err: fmt.Errorf("panel: %w", ErrMetadataTimeout), expected: KIND_METADATA_TIMEOUT},
		{err: fmt.Errorf("open: %w", ErrRootMissing), expected: KIND_ROOT_MISSING},
		{err: context.Canceled, expected: KIND_CANCELED},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, KindOf(test.err), test.err.Error())
	}
}

func TestBranchError(t *testing.T) {
	path := Path{{Label: "Andhra Pradesh"}, {Label: "Guntur"}}
	err := NewBranchError(LEVEL_TEHSIL, path, fmt.Errorf("list: %w", ErrRootMissing))

	// the path is a snapshot
	path[1].Label = "Krishna"
	require.Equal(t, "Guntur", err.Path.Label(LEVEL_DISTRICT))

	wrapped := fmt.Errorf("walk: %w", err)
	require.Equal(t, KIND_ROOT_MISSING, KindOf(wrapped))
	require.True(t, KindOf(wrapped).Fatal())
	require.True(t, errors.Is(wrapped, ErrRootMissing))
	require.Contains(t, err.Error(), "Andhra Pradesh > Guntur")
	require.False(t, KIND_TRANSIENT_UI.Fatal())
}
