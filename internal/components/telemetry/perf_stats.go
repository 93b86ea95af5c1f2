package telemetry

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
)

// InstrumentPerfStats periodically records process statistics until ctx is done.
// The gauges are resolved against the global meter provider, so this should be
// called after Setup.
func InstrumentPerfStats(ctx context.Context, tel API, interval time.Duration) {
	meter := otel.Meter("go.perf_stats")
	cpuGauge, _ := meter.Float64Gauge("cpu_usage")
	memoryGauge, _ := meter.Int64Gauge("allocated_mb")
	goroutineGauge, _ := meter.Int64Gauge("goroutine_count")

	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)

				cpuUsage, err := cpu.PercentWithContext(ctx, 0, false)
				if err == nil && len(cpuUsage) > 0 {
					cpuGauge.Record(ctx, cpuUsage[0])
				} else if err != nil {
					tel.ReportWarning("perf_stats.cpu", err)
				}

				allocated := int64(memStats.Alloc / 1_000_000)
				memoryGauge.Record(ctx, allocated)
				goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))
				tel.ReportDebug("perf stats", "allocated_mb", allocated)
			case <-ctx.Done():
				return
			}
		}
	}()
}
