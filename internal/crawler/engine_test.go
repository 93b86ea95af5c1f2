package crawler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"wris-inventory/internal/components/chrono"
	"wris-inventory/internal/components/telemetry"
	"wris-inventory/internal/facet"
	"wris-inventory/internal/inventory"
	"wris-inventory/internal/surfaces/fixture"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var N = fixture.N

// chain builds tehsil > block > agency with the given modes below it.
func chain(tehsil, block, agency string, modes ...*fixture.Node) *fixture.Node {
	return N(tehsil, N(block, N(agency, modes...)))
}

func andhra() *fixture.Node {
	return N("Andhra Pradesh",
		N("Guntur", chain("Tenali", "Tenali", "CGWB",
			N("Telemetry", fixture.Station("S1", "Kolakaluru")),
			N("Manual", fixture.Station("S2", "Nandivelugu")),
		)),
		N("Guntur", chain("Bapatla", "Bapatla", "APSGWD",
			N("Manual", fixture.Station("S3", "Karlapalem")),
		)),
		N("Krishna", chain("Gudivada", "Gudivada", "CGWB",
			N("Manual", fixture.Station("S4", "Angaluru"), fixture.Station("S5", "Pamarru")),
		)),
	)
}

func rec(district, tehsil, block, agency, mode, code, name string, withMeta bool) facet.StationRecord {
	r := facet.StationRecord{
		District:    district,
		Tehsil:      tehsil,
		Block:       block,
		Agency:      agency,
		Mode:        mode,
		StationCode: facet.StringOrNil(code),
		StationName: name,
	}
	if withMeta {
		r.StationID = facet.StringOrNil(code)
		r.MetaName = facet.StringOrNil(name)
	}
	return r
}

type result struct {
	summary  Summary
	err      error
	records  []facet.StationRecord
	events   []Event
	reports  *telemetry.Recorder
	surface  *fixture.Surface
	clock    *chrono.FakeImpl
	branches map[facet.Level][]string
}

func crawl(t *testing.T, ctx context.Context, surface *fixture.Surface, opts Options, sinks ...inventory.Sink) result {
	t.Helper()

	reports := telemetry.NewRecorder()
	acc := inventory.NewCollector(reports, sinks...)
	out := result{
		reports:  reports,
		surface:  surface,
		branches: map[facet.Level][]string{},
	}

	if opts.State == "" {
		opts.State = "Andhra Pradesh"
	}
	if opts.MetadataTimeout == 0 {
		opts.MetadataTimeout = 20 * time.Millisecond
	}
	progress := opts.Progress
	opts.Progress = func(ev Event) {
		if ev.Kind == EVENT_BRANCH {
			selected, _ := ev.Path.At(ev.Level)
			out.branches[ev.Level] = append(out.branches[ev.Level], selected.String())
		}
		out.events = append(out.events, ev)
		if progress != nil {
			progress(ev)
		}
	}

	clock := chrono.NewFakeImpl(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	out.clock = clock
	engine := NewEngine(surface, acc, clock, reports, opts)
	out.summary, out.err = engine.Run(ctx)
	out.records = acc.Records()
	return out
}

func (r result) count(kind EventKind) int {
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func TestDuplicateDistrictLabels(t *testing.T) {
	res := crawl(t, context.Background(), fixture.New(andhra()), Options{})
	require.NoError(t, res.err)

	require.Equal(t, []string{"Guntur", "Guntur#1", "Krishna"}, res.branches[facet.LEVEL_DISTRICT])
	require.Equal(t, 3, res.summary.Districts)
	require.Equal(t, 1, res.summary.Resets)
	require.Equal(t, 1, res.count(EVENT_RESET))
	for _, ev := range res.events {
		if ev.Kind == EVENT_RESET {
			require.Equal(t, "Andhra Pradesh > Guntur#1", ev.Path.String())
		}
	}

	expected := []facet.StationRecord{
		rec("Guntur", "Tenali", "Tenali", "CGWB", "Telemetry", "S1", "Kolakaluru", true),
		rec("Guntur", "Tenali", "Tenali", "CGWB", "Manual", "S2", "Nandivelugu", true),
		rec("Guntur", "Bapatla", "Bapatla", "APSGWD", "Manual", "S3", "Karlapalem", true),
		rec("Krishna", "Gudivada", "Gudivada", "CGWB", "Manual", "S4", "Angaluru", true),
		rec("Krishna", "Gudivada", "Gudivada", "CGWB", "Manual", "S5", "Pamarru", true),
	}
	if diff := cmp.Diff(expected, res.records); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, 5, res.summary.Records)
	require.Equal(t, 4, res.summary.Leaves)
	require.Zero(t, res.summary.Abandoned)
}

func TestResetRunsInnermostFirst(t *testing.T) {
	res := crawl(t, context.Background(), fixture.New(andhra()), Options{})
	require.NoError(t, res.err)

	calls := res.surface.Calls()
	selects := 0
	for i, c := range calls {
		if c.String() != "select District Guntur" {
			continue
		}
		selects++
		if selects != 2 {
			continue
		}

		var before []string
		for _, c := range calls[i-7 : i] {
			before = append(before, c.String())
		}
		require.Equal(t, []string{
			"clear Station",
			"clear Mode",
			"clear Agency",
			"clear Block",
			"clear Tehsil",
			"clear District",
			"list District",
		}, before)
	}
	require.Equal(t, 2, selects)
}

func TestEveryRepeatedOccurrenceIsReset(t *testing.T) {
	state := N("Andhra Pradesh",
		N("Guntur", chain("T0", "B0", "CGWB", N("Manual", fixture.Station("S0", "a")))),
		N("Guntur", chain("T1", "B1", "CGWB", N("Manual", fixture.Station("S1", "b")))),
		N("Guntur", chain("T2", "B2", "CGWB", N("Manual", fixture.Station("S2", "c")))),
	)
	res := crawl(t, context.Background(), fixture.New(state), Options{})
	require.NoError(t, res.err)

	require.Equal(t, []string{"Guntur", "Guntur#1", "Guntur#2"}, res.branches[facet.LEVEL_DISTRICT])
	require.Equal(t, 2, res.summary.Resets)
	require.Equal(t, []string{"T0", "T1", "T2"}, res.branches[facet.LEVEL_TEHSIL])
	require.Len(t, res.records, 3)
}

func TestInterleavedDuplicatesAreGrouped(t *testing.T) {
	state := N("Andhra Pradesh",
		N("Guntur", chain("T0", "B0", "CGWB", N("Manual", fixture.Station("S0", "a")))),
		N("Krishna", chain("T1", "B1", "CGWB", N("Manual", fixture.Station("S1", "b")))),
		N("Guntur", chain("T2", "B2", "CGWB", N("Manual", fixture.Station("S2", "c")))),
	)
	res := crawl(t, context.Background(), fixture.New(state), Options{})
	require.NoError(t, res.err)

	require.Equal(t, []string{"Guntur", "Guntur#1", "Krishna"}, res.branches[facet.LEVEL_DISTRICT])
	require.Equal(t, []string{"T0", "T2", "T1"}, res.branches[facet.LEVEL_TEHSIL])
}

func TestListOptionsIsPureForFixedState(t *testing.T) {
	ctx := context.Background()
	surface := fixture.New(andhra())

	states, err := surface.ListOptions(ctx, facet.LEVEL_STATE, nil)
	require.NoError(t, err)
	idx, err := facet.Locate(states, "Andhra Pradesh", 0)
	require.NoError(t, err)
	require.NoError(t, surface.Select(ctx, facet.LEVEL_STATE, idx))

	path := facet.Path{{Label: "Andhra Pradesh"}}
	first, err := surface.ListOptions(ctx, facet.LEVEL_DISTRICT, path)
	require.NoError(t, err)
	second, err := surface.ListOptions(ctx, facet.LEVEL_DISTRICT, path)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, first, 4)
}

func TestRecordKeysAreUnique(t *testing.T) {
	state := N("Andhra Pradesh",
		N("Guntur", chain("Tenali", "Tenali", "CGWB",
			N("Manual",
				fixture.Station("S1", "Kolakaluru"),
				fixture.Station("S1", "Kolakaluru"),
				&fixture.Node{Label: "Unnamed"},
			),
		)),
	)
	res := crawl(t, context.Background(), fixture.New(state), Options{})
	require.NoError(t, res.err)

	require.Equal(t, 1, res.summary.Duplicates)
	require.Len(t, res.records, 2)

	seen := map[facet.RecordKey]bool{}
	for _, r := range res.records {
		key, ok := r.Key()
		if !ok {
			continue
		}
		require.False(t, seen[key], "duplicate key %v", key)
		seen[key] = true
	}
	require.Nil(t, res.records[1].StationCode)
}

func TestTehsilFailureIsContained(t *testing.T) {
	state := N("Andhra Pradesh",
		N("X",
			chain("T1", "B1", "CGWB", N("Manual", fixture.Station("S1", "a"))),
			chain("T2", "B2", "CGWB", N("Manual", fixture.Station("S2", "b"))),
		),
		N("Y",
			chain("T3", "B3", "CGWB", N("Manual", fixture.Station("S3", "c"))),
		),
	)
	surface := fixture.New(state)
	surface.FailList(facet.LEVEL_BLOCK, "Andhra Pradesh > X > T1", errors.New("stale element reference"))

	res := crawl(t, context.Background(), surface, Options{})
	require.NoError(t, res.err)

	var codes []string
	for _, r := range res.records {
		codes = append(codes, *r.StationCode)
	}
	require.Equal(t, []string{"S2", "S3"}, codes)
	require.Equal(t, 1, res.summary.Abandoned)
	require.Equal(t, 1, res.count(EVENT_ABANDONED))

	broken := res.reports.Find(telemetry.SEVERITY_BROKEN, report_engine_branch)
	require.Len(t, broken, 1)
	require.Contains(t, broken[0].Params[0].(error).Error(), "Andhra Pradesh > X > T1")
	require.Equal(t, facet.KIND_TRANSIENT_UI, facet.KindOf(broken[0].Params[0].(error)))
}

func TestSelectFailureIsContained(t *testing.T) {
	surface := fixture.New(andhra())
	surface.FailSelect(facet.LEVEL_TEHSIL, "Bapatla", errors.New("element not interactable"))

	res := crawl(t, context.Background(), surface, Options{})
	require.NoError(t, res.err)
	require.Equal(t, 1, res.summary.Abandoned)
	require.Len(t, res.records, 4)
	require.Equal(t, []string{"Tenali", "Gudivada"}, res.branches[facet.LEVEL_TEHSIL])
}

func TestDistrictWithoutTehsils(t *testing.T) {
	state := N("Andhra Pradesh",
		N("Empty"),
		N("Krishna", chain("Gudivada", "Gudivada", "CGWB", N("Manual", fixture.Station("S4", "Angaluru")))),
	)
	res := crawl(t, context.Background(), fixture.New(state), Options{})
	require.NoError(t, res.err)

	require.Equal(t, 2, res.summary.Districts)
	require.Zero(t, res.summary.Abandoned)
	require.Len(t, res.records, 1)
	require.Equal(t, "Krishna", res.records[0].District)

	empty := 0
	for _, ev := range res.events {
		if ev.Kind == EVENT_EMPTY && ev.Level == facet.LEVEL_TEHSIL {
			require.Equal(t, "Andhra Pradesh > Empty", ev.Path.String())
			empty++
		}
	}
	require.Equal(t, 1, empty)
}

func TestBlockWithoutAgencies(t *testing.T) {
	state := N("Andhra Pradesh",
		N("Guntur", N("Tenali",
			N("B1"),
			N("B2", N("CGWB", N("Manual", fixture.Station("S7", "Duggirala")))),
		)),
	)
	res := crawl(t, context.Background(), fixture.New(state), Options{})
	require.NoError(t, res.err)

	require.Equal(t, []string{"B1", "B2"}, res.branches[facet.LEVEL_BLOCK])
	expected := []facet.StationRecord{
		rec("Guntur", "Tenali", "B2", "CGWB", "Manual", "S7", "Duggirala", true),
	}
	if diff := cmp.Diff(expected, res.records); diff != "" {
		t.Fatal(diff)
	}
}

func TestModeWithoutStations(t *testing.T) {
	state := N("Andhra Pradesh",
		N("Guntur", chain("Tenali", "Tenali", "CGWB",
			N("Telemetry"),
			N("Manual", fixture.Station("S2", "Nandivelugu")),
		)),
	)
	res := crawl(t, context.Background(), fixture.New(state), Options{})
	require.NoError(t, res.err)
	require.Len(t, res.records, 1)
	require.Equal(t, 2, res.summary.Leaves)
	require.Zero(t, res.summary.Abandoned)
}

func TestMetadataTimeoutKeepsStation(t *testing.T) {
	var stations []*fixture.Node
	for _, code := range []string{"S0", "S1", "S2", "S3", "S4"} {
		stations = append(stations, fixture.Station(code, "name "+code))
	}
	stations[3].MetadataTimeout = true

	state := N("Andhra Pradesh",
		N("Guntur", chain("Tenali", "Tenali", "CGWB", N("Manual", stations...))),
	)
	res := crawl(t, context.Background(), fixture.New(state), Options{
		MetadataTimeout: 5 * time.Millisecond,
	})
	require.NoError(t, res.err)

	require.Len(t, res.records, 5)
	expected := rec("Guntur", "Tenali", "Tenali", "CGWB", "Manual", "S3", "name S3", false)
	if diff := cmp.Diff(expected, res.records[3]); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, "S4", *res.records[4].StationID)
	require.Equal(t, 1, res.summary.Degraded)

	warnings := res.reports.Find(telemetry.SEVERITY_WARNING, report_engine_stations)
	require.Len(t, warnings, 1)
	require.Equal(t, facet.KIND_METADATA_TIMEOUT, facet.KindOf(warnings[0].Params[0].(error)))
}

func TestMetadataErrorDegradesRecord(t *testing.T) {
	surface := fixture.New(andhra())
	surface.FailMetadata("S4", errors.New("panel rendered garbage"))

	res := crawl(t, context.Background(), surface, Options{})
	require.NoError(t, res.err)
	require.Len(t, res.records, 5)
	require.Nil(t, res.records[3].StationID)
	require.Equal(t, "S4", *res.records[3].StationCode)
	require.Equal(t, 1, res.summary.Degraded)
}

func TestStationSelectFailureSkipsStation(t *testing.T) {
	surface := fixture.New(andhra())
	surface.FailSelect(facet.LEVEL_STATION, "Angaluru", errors.New("click intercepted"))

	res := crawl(t, context.Background(), surface, Options{})
	require.NoError(t, res.err)
	require.Len(t, res.records, 4)
	require.Equal(t, "S5", *res.records[3].StationCode)
	require.Zero(t, res.summary.Abandoned)
}

func TestRootMissingIsFatal(t *testing.T) {
	surface := fixture.New(andhra())
	surface.RemoveRoot()

	res := crawl(t, context.Background(), surface, Options{})
	require.Error(t, res.err)
	require.Equal(t, facet.KIND_ROOT_MISSING, facet.KindOf(res.err))
	require.True(t, errors.Is(res.err, facet.ErrRootMissing))
	require.Empty(t, res.records)
}

func TestStateResolution(t *testing.T) {
	testCases := []struct {
		state   string
		missing bool
	}{
		{state: "Andhra Pradesh"},
		{state: "andhra   pradesh"},
		{state: "Andhra Pradesh "},
		{state: "Andra Pradesh"},
		{state: "Tamil Nadu", missing: true},
	}

	for _, test := range testCases {
		res := crawl(t, context.Background(), fixture.New(andhra(), N("Kerala Coast")), Options{State: test.state})
		if test.missing {
			require.True(t, errors.Is(res.err, facet.ErrRootMissing), test.state)
			continue
		}
		require.NoError(t, res.err, test.state)
		require.Len(t, res.records, 5, test.state)
	}
}

func TestCancellationKeepsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "Andhra_Pradesh_Stations.json")
	res := crawl(t, ctx, fixture.New(andhra()), Options{
		Progress: func(ev Event) {
			if ev.Kind == EVENT_LEAF {
				cancel()
			}
		},
	}, inventory.NewJSONSink(path))

	require.True(t, errors.Is(res.err, context.Canceled))
	require.Len(t, res.records, 1)

	persisted, err := inventory.ReadJSON(path)
	require.NoError(t, err)
	if diff := cmp.Diff(res.records, persisted); diff != "" {
		t.Fatal(diff)
	}
}

func TestFlushEachDistrict(t *testing.T) {
	sink := &countingSink{}
	res := crawl(t, context.Background(), fixture.New(andhra()), Options{FlushEachDistrict: true}, sink)
	require.NoError(t, res.err)

	// one flush per district, the final flush has nothing new
	require.Equal(t, []int{2, 1, 2}, sink.sizes)
}

type countingSink struct {
	sizes []int
}

func (s *countingSink) Persist(ctx context.Context, batch []facet.StationRecord) error {
	s.sizes = append(s.sizes, len(batch))
	return nil
}

func TestModeFilter(t *testing.T) {
	res := crawl(t, context.Background(), fixture.New(andhra()), Options{Modes: []string{"telemetry"}})
	require.NoError(t, res.err)
	require.Len(t, res.records, 1)
	require.Equal(t, "S1", *res.records[0].StationCode)
}

func TestMergeTehsils(t *testing.T) {
	state := N("Andhra Pradesh",
		N("Guntur", chain("Tenali", "B0", "CGWB", N("Manual", fixture.Station("S0", "a")))),
		N("Guntur",
			chain("Tenali", "B1", "CGWB", N("Manual", fixture.Station("S1", "b"))),
			chain("Bapatla", "B2", "CGWB", N("Manual", fixture.Station("S2", "c"))),
		),
	)

	independent := crawl(t, context.Background(), fixture.New(state), Options{})
	require.NoError(t, independent.err)
	require.Equal(t, []string{"Tenali", "Tenali", "Bapatla"}, independent.branches[facet.LEVEL_TEHSIL])
	require.Len(t, independent.records, 3)

	merged := crawl(t, context.Background(), fixture.New(state), Options{MergeTehsils: true})
	require.NoError(t, merged.err)
	require.Equal(t, []string{"Tenali", "Bapatla"}, merged.branches[facet.LEVEL_TEHSIL])
	require.Len(t, merged.records, 2)
}

func TestMergeTehsilsRetriesAbandonedTehsil(t *testing.T) {
	state := N("Andhra Pradesh",
		N("Guntur", chain("Tenali", "B0", "CGWB", N("Manual", fixture.Station("S0", "a")))),
		N("Guntur", chain("Tenali", "B1", "CGWB", N("Manual", fixture.Station("S1", "b")))),
	)
	surface := fixture.New(state)
	surface.FailList(facet.LEVEL_BLOCK, "Andhra Pradesh > Guntur > Tenali", errors.New("stale element reference"))

	res := crawl(t, context.Background(), surface, Options{MergeTehsils: true})
	require.NoError(t, res.err)

	require.Equal(t, []string{"Tenali", "Tenali"}, res.branches[facet.LEVEL_TEHSIL])
	require.Equal(t, 1, res.summary.Abandoned)
	require.Len(t, res.records, 1)
	require.Equal(t, "S1", *res.records[0].StationCode)
}

func TestDuplicateLabelsBelowDistrict(t *testing.T) {
	state := N("Andhra Pradesh",
		N("Guntur",
			chain("Tenali", "B0", "CGWB", N("Manual", fixture.Station("S0", "Kolakaluru"))),
			N("Tenali",
				N("B1", N("CGWB", N("Manual", fixture.Station("S1", "Nandivelugu")))),
				N("B1", N("CGWB", N("Manual", fixture.Station("S2", "Duggirala")))),
			),
		),
	)
	res := crawl(t, context.Background(), fixture.New(state), Options{})
	require.NoError(t, res.err)

	require.Equal(t, []string{"Tenali", "Tenali#1"}, res.branches[facet.LEVEL_TEHSIL])
	require.Equal(t, []string{"B0", "B1", "B1#1"}, res.branches[facet.LEVEL_BLOCK])
	require.Equal(t, 2, res.summary.Resets)

	var resets []string
	for _, ev := range res.events {
		if ev.Kind == EVENT_RESET {
			resets = append(resets, ev.Path.String())
		}
	}
	require.Equal(t, []string{
		"Andhra Pradesh > Guntur > Tenali#1",
		"Andhra Pradesh > Guntur > Tenali#1 > B1#1",
	}, resets)

	expected := []facet.StationRecord{
		rec("Guntur", "Tenali", "B0", "CGWB", "Manual", "S0", "Kolakaluru", true),
		rec("Guntur", "Tenali", "B1", "CGWB", "Manual", "S1", "Nandivelugu", true),
		rec("Guntur", "Tenali", "B1", "CGWB", "Manual", "S2", "Duggirala", true),
	}
	if diff := cmp.Diff(expected, res.records); diff != "" {
		t.Fatal(diff)
	}
}

func TestEveryMutationSettles(t *testing.T) {
	const settle = 800 * time.Millisecond
	res := crawl(t, context.Background(), fixture.New(andhra()), Options{SettleDelay: settle})
	require.NoError(t, res.err)

	mutations := 0
	for _, c := range res.surface.Calls() {
		if c.Op == "clear" || c.Op == "select" {
			mutations++
		}
	}
	require.Positive(t, mutations)

	slept := res.clock.Slept()
	require.Len(t, slept, mutations)
	for _, d := range slept {
		require.Equal(t, settle, d)
	}
}

type failingSink struct {
	err error
}

func (s failingSink) Persist(ctx context.Context, batch []facet.StationRecord) error {
	return s.err
}

func TestFailedFlushIsReported(t *testing.T) {
	diskFull := errors.New("no space left on device")

	res := crawl(t, context.Background(), fixture.New(andhra()), Options{}, failingSink{err: diskFull})
	require.ErrorIs(t, res.err, diskFull)
	require.Equal(t, 5, res.summary.Records)
	require.Equal(t, 5, res.summary.Unsaved)
	require.Zero(t, res.summary.Persisted())
	require.ErrorIs(t, res.summary.FlushErr, diskFull)
}

func TestFailedFlushOnAbortIsReported(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	diskFull := errors.New("no space left on device")

	res := crawl(t, ctx, fixture.New(andhra()), Options{
		Progress: func(ev Event) {
			if ev.Kind == EVENT_LEAF {
				cancel()
			}
		},
	}, failingSink{err: diskFull})

	require.ErrorIs(t, res.err, context.Canceled)
	require.Equal(t, 1, res.summary.Records)
	require.Equal(t, 1, res.summary.Unsaved)
	require.ErrorIs(t, res.summary.FlushErr, diskFull)
}

func TestUnnamedStationWithCodeIsKept(t *testing.T) {
	state := N("Andhra Pradesh",
		N("Guntur", chain("Tenali", "Tenali", "CGWB",
			N("Manual", fixture.Station("S8", ""), fixture.Station("S9", "Kolakaluru")),
		)),
	)
	res := crawl(t, context.Background(), fixture.New(state), Options{})
	require.NoError(t, res.err)

	require.Len(t, res.records, 2)
	require.Equal(t, "S8", *res.records[0].StationCode)
	require.Empty(t, res.records[0].StationName)
	require.Equal(t, "S9", *res.records[1].StationCode)
}
