package fixture

import (
	"context"
	"errors"
	"testing"
	"time"

	"wris-inventory/internal/facet"

	"github.com/stretchr/testify/require"
)

func labels(raw []facet.RawOption) []string {
	out := make([]string, len(raw))
	for i, r := range raw {
		out[i] = r.Label
	}
	return out
}

func selectLabel(t *testing.T, s *Surface, level facet.Level, label string, occurrence int) {
	t.Helper()
	raw, err := s.ListOptions(context.Background(), level, nil)
	require.NoError(t, err)
	idx, err := facet.Locate(raw, label, occurrence)
	require.NoError(t, err)
	require.NoError(t, s.Select(context.Background(), level, idx))
}

func TestLoad(t *testing.T) {
	s, err := Load("testdata/andhra.json5")
	require.NoError(t, err)

	ctx := context.Background()
	selectLabel(t, s, facet.LEVEL_STATE, "Andhra Pradesh", 0)

	districts, err := s.ListOptions(ctx, facet.LEVEL_DISTRICT, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"Select all", "Guntur", "Guntur", "Krishna"}, labels(districts))
}

func TestUnionOfSelectedParents(t *testing.T) {
	s, err := Load("testdata/andhra.json5")
	require.NoError(t, err)
	ctx := context.Background()

	selectLabel(t, s, facet.LEVEL_STATE, "Andhra Pradesh", 0)
	selectLabel(t, s, facet.LEVEL_DISTRICT, "Guntur", 1)
	selectLabel(t, s, facet.LEVEL_DISTRICT, "Guntur", 0)

	tehsils, err := s.ListOptions(ctx, facet.LEVEL_TEHSIL, nil)
	require.NoError(t, err)
	// rendered in list order, not selection order
	require.Equal(t, []string{"Select all", "Tenali", "Bapatla"}, labels(tehsils))

	selectLabel(t, s, facet.LEVEL_TEHSIL, "Bapatla", 0)
	require.Equal(t, []string{"Bapatla"}, s.Selected(facet.LEVEL_TEHSIL))

	// deselecting the parent drops the selection that is no longer visible
	require.NoError(t, s.ClearAll(ctx, facet.LEVEL_DISTRICT))
	require.Empty(t, s.Selected(facet.LEVEL_TEHSIL))
	tehsils, err = s.ListOptions(ctx, facet.LEVEL_TEHSIL, nil)
	require.NoError(t, err)
	require.Empty(t, tehsils)

	// select all
	require.NoError(t, s.Select(ctx, facet.LEVEL_DISTRICT, 0))
	require.Equal(t, []string{"Guntur", "Guntur", "Krishna"}, s.Selected(facet.LEVEL_DISTRICT))
}

func TestModeIsSingleSelect(t *testing.T) {
	s, err := Load("testdata/andhra.json5")
	require.NoError(t, err)

	selectLabel(t, s, facet.LEVEL_STATE, "Andhra Pradesh", 0)
	selectLabel(t, s, facet.LEVEL_DISTRICT, "Guntur", 0)
	selectLabel(t, s, facet.LEVEL_TEHSIL, "Tenali", 0)
	selectLabel(t, s, facet.LEVEL_BLOCK, "Tenali", 0)
	selectLabel(t, s, facet.LEVEL_AGENCY, "CGWB", 0)

	modes, err := s.ListOptions(context.Background(), facet.LEVEL_MODE, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"Telemetry", "Manual"}, labels(modes))

	selectLabel(t, s, facet.LEVEL_MODE, "Telemetry", 0)
	selectLabel(t, s, facet.LEVEL_STATION, "Kolakaluru", 0)
	selectLabel(t, s, facet.LEVEL_MODE, "Manual", 0)
	require.Equal(t, []string{"Manual"}, s.Selected(facet.LEVEL_MODE))
	require.Empty(t, s.Selected(facet.LEVEL_STATION))
}

func TestReadMetadata(t *testing.T) {
	s, err := Load("testdata/andhra.json5")
	require.NoError(t, err)

	selectLabel(t, s, facet.LEVEL_STATE, "Andhra Pradesh", 0)
	selectLabel(t, s, facet.LEVEL_DISTRICT, "Guntur", 0)
	selectLabel(t, s, facet.LEVEL_DISTRICT, "Guntur", 1)
	selectLabel(t, s, facet.LEVEL_TEHSIL, "Tenali", 0)
	selectLabel(t, s, facet.LEVEL_TEHSIL, "Bapatla", 0)
	selectLabel(t, s, facet.LEVEL_BLOCK, "Tenali", 0)
	selectLabel(t, s, facet.LEVEL_BLOCK, "Bapatla", 0)
	selectLabel(t, s, facet.LEVEL_AGENCY, "APSGWD", 0)
	selectLabel(t, s, facet.LEVEL_MODE, "Manual", 0)

	stations, err := s.ListOptions(context.Background(), facet.LEVEL_STATION, nil)
	require.NoError(t, err)
	require.Equal(t, []facet.RawOption{
		{Label: "Select all"},
		{Label: "Karlapalem", Value: "S3"},
	}, stations)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.ReadMetadata(ctx)
	require.True(t, errors.Is(err, facet.ErrMetadataTimeout), "nothing selected")

	selectLabel(t, s, facet.LEVEL_STATION, "Karlapalem", 0)
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.ReadMetadata(ctx)
	require.True(t, errors.Is(err, facet.ErrMetadataTimeout), "station never settles")

	selectLabel(t, s, facet.LEVEL_AGENCY, "CGWB", 0)
	selectLabel(t, s, facet.LEVEL_MODE, "Telemetry", 0)
	selectLabel(t, s, facet.LEVEL_STATION, "Kolakaluru", 0)
	meta, err := s.ReadMetadata(context.Background())
	require.NoError(t, err)
	require.Equal(t, facet.Metadata{
		StationCode: "S1",
		StationName: "Kolakaluru",
		StationID:   "S1",
		MetaName:    "KOLAKALURU",
	}, meta)
}

func TestFaults(t *testing.T) {
	s := New(N("Andhra Pradesh", N("Guntur")))
	ctx := context.Background()
	boom := errors.New("boom")

	s.FailList(facet.LEVEL_DISTRICT, "Andhra Pradesh", boom)
	_, err := s.ListOptions(ctx, facet.LEVEL_DISTRICT, facet.Path{{Label: "Andhra Pradesh"}})
	require.ErrorIs(t, err, boom)
	_, err = s.ListOptions(ctx, facet.LEVEL_DISTRICT, nil)
	require.NoError(t, err)

	s.FailSelect(facet.LEVEL_STATE, "Andhra Pradesh", boom)
	require.ErrorIs(t, s.Select(ctx, facet.LEVEL_STATE, 1), boom)
	require.Error(t, s.Select(ctx, facet.LEVEL_STATE, 5))

	s.RemoveRoot()
	_, err = s.ListOptions(ctx, facet.LEVEL_STATE, nil)
	require.ErrorIs(t, err, facet.ErrRootMissing)

	require.Equal(t, "list District", s.Calls()[0].String())
}
