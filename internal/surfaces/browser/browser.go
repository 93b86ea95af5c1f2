// Package browser drives the portal's filter widgets in a headless Chrome
// through chromedp.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wris-inventory/internal/components/assert"
	"wris-inventory/internal/components/chrono"
	"wris-inventory/internal/components/telemetry"
	"wris-inventory/internal/facet"

	"github.com/chromedp/chromedp"
)

const (
	report_surface_open     = "surface.open"
	report_surface_list     = "surface.list"
	report_surface_select   = "surface.select"
	report_surface_clear    = "surface.clear"
	report_surface_metadata = "surface.metadata"
)

type Config struct {
	URL     string `json:"url"`
	Dataset string `json:"dataset"`
	// Headless is a pointer so the config file can turn it off explicitly.
	Headless *bool  `json:"headless"`
	ExecPath string `json:"exec_path"`
	// LoadWait is waited after every navigation.
	LoadWait time.Duration `json:"-"`
	// OpenWait is waited between opening a dropdown and reading it.
	OpenWait time.Duration `json:"-"`
	// PollInterval is the interval the metadata panel is polled at.
	PollInterval time.Duration `json:"-"`
}

func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = "https://indiawris.gov.in/dataSet/"
	}
	if c.Dataset == "" {
		c.Dataset = "Ground Water Level"
	}
	if c.Headless == nil {
		headless := true
		c.Headless = &headless
	}
	if c.LoadWait <= 0 {
		c.LoadWait = 4500 * time.Millisecond
	}
	if c.OpenWait <= 0 {
		c.OpenWait = 500 * time.Millisecond
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 250 * time.Millisecond
	}
	return c
}

// Surface is a single browser tab showing the dataset page. It implements
// facet.Surface and must only be used by one traversal.
type Surface struct {
	tab    context.Context
	cancel context.CancelFunc
	config Config
	clock  chrono.API
	tel    telemetry.API

	// lists holds the last list read per level, Select resolves indices
	// against it.
	lists map[facet.Level][]facet.RawOption
	// panel is the metadata panel as it was before the last station select.
	panel string
}

// Open starts a browser, navigates to the dataset page and picks the
// configured dataset. It fails with facet.ErrRootMissing when the page does
// not render the filter widgets.
func Open(ctx context.Context, config Config, clock chrono.API, tel telemetry.API) (*Surface, error) {
	assert.NotNil(clock)
	assert.NotNil(tel)
	config = config.withDefaults()

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", *config.Headless),
	)
	if config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(config.ExecPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	tab, cancelTab := chromedp.NewContext(allocCtx)

	s := &Surface{
		tab: tab,
		cancel: func() {
			cancelTab()
			cancelAlloc()
		},
		config: config,
		clock:  clock,
		tel:    telemetry.NewScopedAPI("browser", tel),
		lists:  map[facet.Level][]facet.RawOption{},
	}

	err := s.enter(ctx)
	if err != nil {
		s.Close()
		s.tel.ReportBroken(report_surface_open, err, config.URL)
		return nil, err
	}
	return s, nil
}

func (s *Surface) Close() {
	s.cancel()
}

// run executes actions on the tab, the actions are aborted when ctx is done
// without closing the tab.
func (s *Surface) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func (s *Surface) evaluate(ctx context.Context, js string, out any) error {
	return s.run(ctx, chromedp.Evaluate(js, out))
}

func (s *Surface) enter(ctx context.Context) error {
	// the first run starts the browser and must use the tab context itself
	err := chromedp.Run(s.tab, chromedp.Navigate(s.config.URL))
	if err != nil {
		return fmt.Errorf("navigate %s: %w", s.config.URL, err)
	}
	err = s.clock.Sleep(ctx, s.config.LoadWait)
	if err != nil {
		return err
	}

	// the filters are rendered in an iframe, its page is opened directly
	var frame string
	err = s.evaluate(ctx, findFrameScript, &frame)
	if err != nil {
		return err
	}
	if frame != "" {
		s.tel.ReportDebug("entering frame", frame)
		err = s.run(ctx, chromedp.Navigate(frame))
		if err != nil {
			return fmt.Errorf("navigate frame %s: %w", frame, err)
		}
		err = s.clock.Sleep(ctx, s.config.LoadWait)
		if err != nil {
			return err
		}
	}

	var ok bool
	err = s.evaluate(ctx, chooseSelectOptionScript(datasetSelector, s.config.Dataset), &ok)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: dataset %q could not be chosen", facet.ErrRootMissing, s.config.Dataset)
	}
	return s.clock.Sleep(ctx, s.config.LoadWait)
}

func (s *Surface) ListOptions(ctx context.Context, level facet.Level, path facet.Path) ([]facet.RawOption, error) {
	raw, err := s.list(ctx, level)
	if err != nil {
		s.tel.ReportWarning(report_surface_list, err, level.String(), path.String())
		return nil, err
	}
	s.lists[level] = raw
	s.tel.ReportDebug(report_surface_list, level.String(), describe(raw))
	return raw, nil
}

func (s *Surface) list(ctx context.Context, level facet.Level) ([]facet.RawOption, error) {
	if level == facet.LEVEL_MODE {
		var html string
		err := s.evaluate(ctx, selectHTMLScript(modeSelector), &html)
		if err != nil {
			return nil, err
		}
		if html == "" {
			return nil, fmt.Errorf("mode selector %s not found", modeSelector)
		}
		return parseSelect(html)
	}

	var found bool
	err := s.evaluate(ctx, openDropdownScript(level), &found)
	if err != nil {
		return nil, err
	}
	if !found {
		if level == facet.LEVEL_STATE {
			return nil, fmt.Errorf("%w: no State widget", facet.ErrRootMissing)
		}
		return nil, fmt.Errorf("no %s widget", level)
	}
	err = s.clock.Sleep(ctx, s.config.OpenWait)
	if err != nil {
		return nil, err
	}

	var html string
	err = s.evaluate(ctx, readDropdownScript(level), &html)
	if err != nil {
		return nil, err
	}
	return parseDropdown(html)
}

func (s *Surface) Select(ctx context.Context, level facet.Level, index int) error {
	listed := s.lists[level]
	if index < 0 || index >= len(listed) {
		return fmt.Errorf("select %s: index %d was never listed", level, index)
	}
	option := listed[index]
	s.tel.ReportDebug(report_surface_select, level.String(), option.Label)

	if level == facet.LEVEL_STATION {
		err := s.evaluate(ctx, metadataScript, &s.panel)
		if err != nil {
			return err
		}
	}

	var ok bool
	var err error
	if level == facet.LEVEL_MODE {
		err = s.evaluate(ctx, chooseSelectOptionScript(modeSelector, option.Label), &ok)
	} else {
		err = s.evaluate(ctx, clickOptionScript(level, index), &ok)
	}
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("select %s %q: entry disappeared", level, option.Label)
	}
	return nil
}

func (s *Surface) ClearAll(ctx context.Context, level facet.Level) error {
	// a single select always has something selected
	if level == facet.LEVEL_MODE {
		return nil
	}
	var result string
	err := s.evaluate(ctx, clearScript(level), &result)
	if err != nil {
		return err
	}
	s.tel.ReportDebug(report_surface_clear, level.String(), result)
	return nil
}

// ReadMetadata polls the metadata panel until it shows a station other than
// the one it showed before the last station was selected.
func (s *Surface) ReadMetadata(ctx context.Context) (facet.Metadata, error) {
	for {
		var panel string
		err := s.evaluate(ctx, metadataScript, &panel)
		if err != nil && ctx.Err() == nil {
			return facet.Metadata{}, err
		}
		if err == nil && panel != s.panel {
			meta, ok, err := parseMetadata(panel)
			if err != nil {
				return facet.Metadata{}, err
			}
			if ok {
				return meta, nil
			}
		}

		err = s.clock.Sleep(ctx, s.config.PollInterval)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				s.tel.ReportDebug(report_surface_metadata, "timeout")
				return facet.Metadata{}, fmt.Errorf("%w: %w", facet.ErrMetadataTimeout, err)
			}
			return facet.Metadata{}, err
		}
	}
}
