package lapi

import (
	"context"
	"fmt"
	"strings"

	"wris-inventory/internal/components/telemetry"
	"wris-inventory/internal/facet"

	"github.com/ohler55/ojg/jp"
)

const (
	report_surface_list     = "surface.list"
	report_surface_metadata = "surface.metadata"
)

// AllModes is the only mode the API offers, it cannot filter stations by
// telemetry or manual measurement.
const AllModes = "All"

type Config struct {
	ClientConfig
	Dataset string `json:"dataset"`
}

// listEndpoint describes how the entries of one level are fetched from the
// entries selected one level up.
type listEndpoint struct {
	path string
	// parentParam is the payload key the parent's id is sent as, empty for the root
	parentParam string
	label       jp.Expr
	id          jp.Expr
}

var endpoints = map[facet.Level]listEndpoint{
	facet.LEVEL_STATE: {
		path:  "/wris-lapi/StateList",
		label: jp.C("stateName"),
		id:    jp.C("stateCode"),
	},
	facet.LEVEL_DISTRICT: {
		path:        "/wris-lapi/getDistrictbyState",
		parentParam: "statecode",
		label:       jp.C("districtname"),
		id:          jp.C("district_id"),
	},
	facet.LEVEL_TEHSIL: {
		path:        "/wris-lapi/getMasterTehsilList",
		parentParam: "districtid",
		label:       jp.C("tehsilName"),
		id:          jp.C("tehsilid"),
	},
	facet.LEVEL_BLOCK: {
		path:        "/wris-lapi/getMasterBlockList",
		parentParam: "tehsilid",
		label:       jp.C("blockName"),
		id:          jp.C("blockid"),
	},
	facet.LEVEL_AGENCY: {
		path:        "/wris-lapi/AgencyListInAnyCase",
		parentParam: "blockid",
		label:       jp.C("agencyname"),
		id:          jp.C("stationcode"),
	},
	facet.LEVEL_STATION: {
		path:        "/stationMaster/getMasterStationsList",
		parentParam: "stationcode",
		label:       jp.C("station_Name"),
		id:          jp.C("station_Code"),
	},
}

const metadataEndpoint = "/stationMaster/getMasterStation"

var (
	metadataCode = jp.MustParseString("$[0].station_Code")
	metadataName = jp.MustParseString("$[0].station_Name")
)

type entry struct {
	label string
	id    any
}

// Surface simulates the portal's multiselect widgets on top of the stateless
// list API: the list of a level is fetched for every entry selected one level
// up, and a mutation drops every selection below it.
type Surface struct {
	client  *client
	dataset string
	tel     telemetry.API

	lists    map[facet.Level][]entry
	selected map[facet.Level][]entry
}

func New(config Config, tel telemetry.API) (*Surface, error) {
	tel = telemetry.NewScopedAPI("lapi", tel)
	c, err := newClient(config.ClientConfig, tel)
	if err != nil {
		return nil, err
	}
	dataset := config.Dataset
	if dataset == "" {
		dataset = "GWATERLVL"
	}
	return &Surface{
		client:   c,
		dataset:  dataset,
		tel:      tel,
		lists:    map[facet.Level][]entry{},
		selected: map[facet.Level][]entry{},
	}, nil
}

func (s *Surface) ListOptions(ctx context.Context, level facet.Level, path facet.Path) ([]facet.RawOption, error) {
	entries, err := s.list(ctx, level)
	if err != nil {
		if level == facet.LEVEL_STATE {
			err = fmt.Errorf("%w: %w", facet.ErrRootMissing, err)
		}
		s.tel.ReportWarning(report_surface_list, err, level.String(), path.String())
		return nil, err
	}
	s.lists[level] = entries

	out := make([]facet.RawOption, len(entries))
	for i, e := range entries {
		out[i] = facet.RawOption{Label: e.label}
		if level == facet.LEVEL_STATION {
			out[i].Value = idString(e.id)
		}
	}
	return out, nil
}

func (s *Surface) list(ctx context.Context, level facet.Level) ([]entry, error) {
	if level == facet.LEVEL_MODE {
		if len(s.selected[facet.LEVEL_AGENCY]) == 0 {
			return nil, nil
		}
		return []entry{{label: AllModes}}, nil
	}

	endpoint, ok := endpoints[level]
	if !ok {
		return nil, fmt.Errorf("no endpoint lists %s", level)
	}
	if endpoint.parentParam == "" {
		return s.fetch(ctx, endpoint, nil)
	}

	parentLevel := level - 1
	if level == facet.LEVEL_STATION {
		// stations hang off agencies, the mode only gates them
		if len(s.selected[facet.LEVEL_MODE]) == 0 {
			return nil, nil
		}
		parentLevel = facet.LEVEL_AGENCY
	}

	var out []entry
	for _, parent := range s.selected[parentLevel] {
		entries, err := s.fetch(ctx, endpoint, map[string]any{endpoint.parentParam: parent.id})
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}

func (s *Surface) fetch(ctx context.Context, endpoint listEndpoint, params map[string]any) ([]entry, error) {
	payload := map[string]any{"datasetcode": s.dataset}
	for k, v := range params {
		payload[k] = v
	}
	items, err := s.client.post(ctx, endpoint.path, payload)
	if err != nil {
		return nil, err
	}

	out := make([]entry, 0, len(items))
	for _, item := range items {
		label, _ := endpoint.label.First(item).(string)
		label = strings.TrimSpace(label)
		id := endpoint.id.First(item)
		if label == "" && id == nil {
			continue
		}
		out = append(out, entry{label: label, id: id})
	}
	return out, nil
}

func (s *Surface) Select(ctx context.Context, level facet.Level, index int) error {
	listed := s.lists[level]
	if index < 0 || index >= len(listed) {
		return fmt.Errorf("select %s: index %d was never listed", level, index)
	}
	chosen := listed[index]

	if level == facet.LEVEL_MODE {
		s.selected[level] = []entry{chosen}
	} else {
		s.selected[level] = append(s.selected[level], chosen)
	}
	s.dropBelow(level)
	return nil
}

func (s *Surface) ClearAll(ctx context.Context, level facet.Level) error {
	delete(s.selected, level)
	s.dropBelow(level)
	return nil
}

func (s *Surface) dropBelow(level facet.Level) {
	for _, below := range level.Below() {
		delete(s.selected, below)
		delete(s.lists, below)
	}
}

func (s *Surface) ReadMetadata(ctx context.Context) (facet.Metadata, error) {
	stations := s.selected[facet.LEVEL_STATION]
	if len(stations) != 1 {
		return facet.Metadata{}, fmt.Errorf("%w: %d stations selected", facet.ErrMetadataTimeout, len(stations))
	}
	station := stations[0]

	items, err := s.client.post(ctx, metadataEndpoint, map[string]any{
		"stationcode": station.id,
		"datasetcode": s.dataset,
	})
	if err != nil {
		if ctx.Err() != nil {
			return facet.Metadata{}, fmt.Errorf("%w: %w", facet.ErrMetadataTimeout, err)
		}
		s.tel.ReportWarning(report_surface_metadata, err, station.label)
		return facet.Metadata{}, err
	}
	if len(items) == 0 {
		return facet.Metadata{}, fmt.Errorf("no metadata for station %s", idString(station.id))
	}

	code := idString(metadataCode.First(items))
	name, _ := metadataName.First(items).(string)
	return facet.Metadata{
		StationCode: code,
		StationName: name,
		StationID:   code,
		MetaName:    strings.TrimSpace(name),
	}, nil
}

func idString(id any) string {
	if id == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(id))
}
