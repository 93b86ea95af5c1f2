// Package config holds the configuration of a crawl as it is read from
// `wris.json5` and its `wris.local.json5` override.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"wris-inventory/internal/components/telemetry"
	"wris-inventory/internal/surfaces/browser"
	"wris-inventory/internal/surfaces/lapi"
	"wris-inventory/lib/configutil"
	configlibsql "wris-inventory/lib/configutil/libsql"
)

const DefaultPath = "wris.json5"

type SurfaceKind string

const (
	SURFACE_BROWSER SurfaceKind = "browser"
	SURFACE_LAPI    SurfaceKind = "lapi"
	SURFACE_FIXTURE SurfaceKind = "fixture"
)

type SurfaceConfig struct {
	Kind SurfaceKind `json:"kind"`
	// Fixture is the json5 tree the fixture surface serves.
	Fixture string         `json:"fixture"`
	Browser browser.Config `json:"browser"`
	Lapi    lapi.Config    `json:"lapi"`
}

// TimingConfig holds durations as strings like "800ms" or "5s".
type TimingConfig struct {
	SettleDelay     string `json:"settle_delay"`
	MetadataTimeout string `json:"metadata_timeout"`
	LoadWait        string `json:"load_wait"`
	OpenWait        string `json:"open_wait"`
	PollInterval    string `json:"poll_interval"`
	RequestTimeout  string `json:"request_timeout"`
	PerfStats       string `json:"perf_stats"`
}

type OutputConfig struct {
	// JSON is the path of the station array, it defaults to
	// `<State>_Stations.json` in the working directory.
	JSON              string              `json:"json"`
	Database          configlibsql.Struct `json:"database"`
	FlushEachDistrict bool                `json:"flush_each_district"`
}

type Config struct {
	State        string           `json:"state"`
	Modes        []string         `json:"modes"`
	MergeTehsils bool             `json:"merge_tehsils"`
	Surface      SurfaceConfig    `json:"surface"`
	Timing       TimingConfig     `json:"timing"`
	Output       OutputConfig     `json:"output"`
	Telemetry    telemetry.Config `json:"telemetry"`
}

func Defaults() Config {
	return Config{
		Surface: SurfaceConfig{Kind: SURFACE_BROWSER},
		Timing: TimingConfig{
			SettleDelay:     "800ms",
			MetadataTimeout: "5s",
			LoadWait:        "4.5s",
			OpenWait:        "500ms",
			PollInterval:    "250ms",
			RequestTimeout:  "30s",
			PerfStats:       "30s",
		},
		Output: OutputConfig{
			Database: configlibsql.Struct{File: "wris.db"},
		},
	}
}

// Read reads the config at path on top of Defaults. A missing file is not an
// error, the defaults are returned instead.
func Read(path string) (Config, error) {
	cfg, err := configutil.ReadConfig(path, Defaults())
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Timing is TimingConfig with its durations parsed.
type Timing struct {
	SettleDelay     time.Duration
	MetadataTimeout time.Duration
	LoadWait        time.Duration
	OpenWait        time.Duration
	PollInterval    time.Duration
	RequestTimeout  time.Duration
	PerfStats       time.Duration
}

func (t TimingConfig) Parse() (Timing, error) {
	var out Timing
	fields := []struct {
		name  string
		value string
		out   *time.Duration
	}{
		{"settle_delay", t.SettleDelay, &out.SettleDelay},
		{"metadata_timeout", t.MetadataTimeout, &out.MetadataTimeout},
		{"load_wait", t.LoadWait, &out.LoadWait},
		{"open_wait", t.OpenWait, &out.OpenWait},
		{"poll_interval", t.PollInterval, &out.PollInterval},
		{"request_timeout", t.RequestTimeout, &out.RequestTimeout},
		{"perf_stats", t.PerfStats, &out.PerfStats},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		d, err := time.ParseDuration(f.value)
		if err != nil {
			return Timing{}, fmt.Errorf("timing.%s: %w", f.name, err)
		}
		if d < 0 {
			return Timing{}, fmt.Errorf("timing.%s: negative duration %s", f.name, f.value)
		}
		*f.out = d
	}
	return out, nil
}

// Validate checks the fields a crawl cannot start without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.State) == "" {
		return fmt.Errorf("no state configured")
	}
	switch c.Surface.Kind {
	case SURFACE_BROWSER, SURFACE_LAPI:
	case SURFACE_FIXTURE:
		if c.Surface.Fixture == "" {
			return fmt.Errorf("surface.fixture is required for the fixture surface")
		}
	default:
		return fmt.Errorf("unknown surface kind %q", c.Surface.Kind)
	}
	_, err := c.Timing.Parse()
	return err
}

// OutputPath returns the configured JSON path or `<State>_Stations.json`.
func (c Config) OutputPath() string {
	if c.Output.JSON != "" {
		return c.Output.JSON
	}
	return StationsFile(c.State)
}

var fileNameReplacer = strings.NewReplacer(" ", "_", "/", "-", "\\", "-")

// StationsFile names the output file of a state.
func StationsFile(state string) string {
	return fileNameReplacer.Replace(strings.TrimSpace(state)) + "_Stations.json"
}
