package facet

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func raw(labels ...string) []RawOption {
	out := make([]RawOption, len(labels))
	for i, l := range labels {
		out[i] = RawOption{Label: l}
	}
	return out
}

func TestTag(t *testing.T) {
	tagged := Tag(raw("Select all", "Guntur", "Krishna", "Guntur", ""))
	expected := []Option{
		{Label: "Guntur", Occurrence: 0, Index: 1},
		{Label: "Krishna", Occurrence: 0, Index: 2},
		{Label: "Guntur", Occurrence: 1, Index: 3},
	}
	if diff := cmp.Diff(expected, tagged); diff != "" {
		t.Fatal(diff)
	}
}

func TestTagKeepsUnlabelledValues(t *testing.T) {
	tagged := Tag([]RawOption{
		{Label: "Select all"},
		{Label: "", Value: "S9"},
		{Label: ""},
		{Label: "", Value: "S10"},
	})
	expected := []Option{
		{Label: "", Occurrence: 0, Index: 1, Value: "S9"},
		{Label: "", Occurrence: 1, Index: 3, Value: "S10"},
	}
	if diff := cmp.Diff(expected, tagged); diff != "" {
		t.Fatal(diff)
	}

	idx, err := Locate([]RawOption{{Label: "Select all"}, {Label: "", Value: "S9"}, {Label: ""}, {Label: "", Value: "S10"}}, "", 1)
	require.NoError(t, err)
	require.Equal(t, 3, idx)
}

func TestGroupByLabel(t *testing.T) {
	grouped := GroupByLabel(Tag(raw("Guntur", "Krishna", "Guntur", "Anantapur", "Krishna")))

	var got []string
	for _, o := range grouped {
		got = append(got, o.String())
	}
	require.Equal(t, []string{"Guntur", "Guntur#1", "Krishna", "Krishna#1", "Anantapur"}, got)
}

func TestLocate(t *testing.T) {
	visible := raw("Select all", "Guntur", "Krishna", "Guntur")

	testCases := []struct {
		label      string
		occurrence int
		expected   int
		notFound   bool
	}{
		{label: "Guntur", occurrence: 0, expected: 1},
		{label: "Guntur", occurrence: 1, expected: 3},
		{label: "Krishna", occurrence: 0, expected: 2},
		{label: "Guntur", occurrence: 2, notFound: true},
		{label: "Nellore", occurrence: 0, notFound: true},
		{label: "Select all", occurrence: 0, notFound: true},
		{label: "Guntur", occurrence: -1, notFound: true},
	}

	for _, test := range testCases {
		idx, err := Locate(visible, test.label, test.occurrence)
		if test.notFound {
			require.True(t, errors.Is(err, ErrOccurrenceNotFound), test.label)
			require.Equal(t, KIND_OCCURRENCE_NOT_FOUND, KindOf(err))
			continue
		}
		require.NoError(t, err)
		require.Equal(t, test.expected, idx)
	}
}

func TestLocateUsesCurrentList(t *testing.T) {
	// after a reset the second "Guntur" moved to the front of the list
	before := raw("Guntur", "Krishna", "Guntur")
	after := raw("Guntur", "Guntur", "Krishna")

	idx, err := Locate(before, "Guntur", 1)
	require.NoError(t, err)
	require.Equal(t, 2, idx)

	idx, err = Locate(after, "Guntur", 1)
	require.NoError(t, err)
	require.Equal(t, 1, idx)
}

func TestCounter(t *testing.T) {
	c := NewCounter()
	parentA := Path{{Label: "Andhra Pradesh"}, {Label: "Guntur"}}
	parentB := Path{{Label: "Andhra Pradesh"}, {Label: "Guntur", Occurrence: 1}}

	c.Enter(parentA)
	require.Equal(t, 0, c.Next("Tenali"))
	require.Equal(t, 1, c.Next("Tenali"))
	require.Equal(t, 0, c.Next("Bapatla"))
	require.Equal(t, 2, c.Seen("Tenali"))

	// same parent keeps the scope
	c.Enter(parentA)
	require.Equal(t, 2, c.Next("Tenali"))

	// same labels, different occurrence is a different parent
	c.Enter(parentB)
	require.Equal(t, 0, c.Seen("Tenali"))
	require.Equal(t, 0, c.Next("Tenali"))
}

func TestPath(t *testing.T) {
	p := Path{{Label: "Andhra Pradesh"}}
	child := p.With(Option{Label: "Guntur", Occurrence: 1})

	require.Len(t, p, 1)
	require.Equal(t, LEVEL_TEHSIL, child.Depth())
	require.Equal(t, "Guntur", child.Label(LEVEL_DISTRICT))
	require.Equal(t, "", child.Label(LEVEL_BLOCK))
	require.Equal(t, "Andhra Pradesh > Guntur#1", child.String())
	require.NotEqual(t, child.Key(), p.With(Option{Label: "Guntur"}).Key())
	require.Equal(t, p.Key(), child.Parent().Key())
}

func TestLevelBelow(t *testing.T) {
	require.Equal(
		t,
		[]Level{LEVEL_STATION, LEVEL_MODE, LEVEL_AGENCY, LEVEL_BLOCK, LEVEL_TEHSIL},
		LEVEL_DISTRICT.Below(),
	)
	require.Empty(t, LEVEL_STATION.Below())
	require.Len(t, Levels(), 7)
	require.Equal(t, "Tehsil", LEVEL_TEHSIL.String())
}
