package commands

import (
	"context"
	"fmt"
	"log/slog"

	"wris-inventory/internal/components/chrono"
	"wris-inventory/internal/components/telemetry"
	"wris-inventory/internal/config"
	"wris-inventory/internal/facet"
	"wris-inventory/internal/store"
	"wris-inventory/internal/surfaces/browser"
	"wris-inventory/internal/surfaces/fixture"
	"wris-inventory/internal/surfaces/lapi"
)

// initTelemetry installs the otel providers and returns the telemetry API the
// components report to, the returned func flushes the exporters.
func initTelemetry(ctx context.Context, timing config.Timing) (telemetry.API, func()) {
	providers, err := telemetry.Setup(ctx, "wris", cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing with logs only", "err", err)
	}

	var tel telemetry.API = telemetry.SlogAPI{}
	otelTel, err := telemetry.NewOtelAPI(tel)
	if err != nil {
		slog.Warn("otel reports unavailable", "err", err)
	} else {
		tel = otelTel
	}

	if timing.PerfStats > 0 {
		telemetry.InstrumentPerfStats(ctx, tel, timing.PerfStats)
	}

	return tel, func() {
		err := providers.Shutdown(context.Background())
		if err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}
}

// openSurface opens the configured surface, the returned func releases it.
func openSurface(
	ctx context.Context,
	timing config.Timing,
	clock chrono.API,
	tel telemetry.API,
) (facet.Surface, func(), error) {
	switch cfg.Surface.Kind {
	case config.SURFACE_BROWSER:
		browserConfig := cfg.Surface.Browser
		browserConfig.LoadWait = timing.LoadWait
		browserConfig.OpenWait = timing.OpenWait
		browserConfig.PollInterval = timing.PollInterval
		surface, err := browser.Open(ctx, browserConfig, clock, tel)
		if err != nil {
			return nil, nil, err
		}
		return surface, surface.Close, nil
	case config.SURFACE_LAPI:
		lapiConfig := cfg.Surface.Lapi
		lapiConfig.Timeout = timing.RequestTimeout
		surface, err := lapi.New(lapiConfig, tel)
		if err != nil {
			return nil, nil, err
		}
		return surface, func() {}, nil
	case config.SURFACE_FIXTURE:
		surface, err := fixture.Load(cfg.Surface.Fixture)
		if err != nil {
			return nil, nil, err
		}
		return surface, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown surface kind %q", cfg.Surface.Kind)
}

// openStore opens and migrates the configured station store.
func openStore(ctx context.Context, clock chrono.API) (store.Store, func(), error) {
	if !cfg.Output.Database.Enabled() {
		return store.Store{}, nil, fmt.Errorf("no database configured")
	}
	database, err := cfg.Output.Database.OpenDB()
	if err != nil {
		return store.Store{}, nil, fmt.Errorf("open database: %w", err)
	}
	st := store.NewStore(database, clock)
	err = st.Migrate(ctx)
	if err != nil {
		database.Close()
		return store.Store{}, nil, fmt.Errorf("migrate database: %w", err)
	}
	return st, func() { database.Close() }, nil
}

func newClock() (chrono.API, error) {
	clock, err := chrono.NewStandardImpl()
	if err != nil {
		return nil, err
	}
	return clock, nil
}
