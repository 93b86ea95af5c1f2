package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"wris-inventory/internal/components/assert"
	"wris-inventory/internal/components/telemetry"
	"wris-inventory/internal/facet"
)

const (
	report_collector_add   = "collector.add"
	report_collector_flush = "collector.flush"
)

// Sink persists records. Persist receives every record added since the last
// batch the sink accepted, in the order they were added.
type Sink interface {
	Persist(ctx context.Context, batch []facet.StationRecord) error
}

// Collector keeps the records of a run in traversal order. Records with a
// station code are unique by identity key, records without one are always kept.
type Collector struct {
	lock    sync.Mutex
	tel     telemetry.API
	sinks   []Sink
	records []facet.StationRecord
	keys    map[facet.RecordKey]struct{}
	// flushed[i] is the amount of records sinks[i] has accepted
	flushed []int
	// flushedOnce is set after the first flush, so every sink sees at least
	// one (possibly empty) batch
	flushedOnce bool
}

func NewCollector(tel telemetry.API, sinks ...Sink) *Collector {
	assert.NotNil(tel)
	for _, s := range sinks {
		assert.NotNil(s)
	}
	return &Collector{
		tel:     telemetry.NewScopedAPI("inventory", tel),
		sinks:   sinks,
		keys:    map[facet.RecordKey]struct{}{},
		flushed: make([]int, len(sinks)),
	}
}

func (c *Collector) Add(rec facet.StationRecord) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	key, ok := rec.Key()
	if ok {
		if _, exists := c.keys[key]; exists {
			c.tel.ReportDebug(report_collector_add+": duplicate", key.StationCode, key.District)
			return false
		}
		c.keys[key] = struct{}{}
	}
	c.records = append(c.records, rec)
	return true
}

func (c *Collector) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.records)
}

// Records returns a copy of every record added so far.
func (c *Collector) Records() []facet.StationRecord {
	c.lock.Lock()
	defer c.lock.Unlock()
	out := make([]facet.StationRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Pending returns how many records at least one sink has not accepted yet.
func (c *Collector) Pending() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	pending := 0
	for _, n := range c.flushed {
		pending = max(pending, len(c.records)-n)
	}
	return pending
}

// Flush hands every sink the records it has not accepted yet. A sink that
// fails gets the same records again, together with any new ones, on the
// next flush.
func (c *Collector) Flush(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	var errs []error
	for i, sink := range c.sinks {
		if c.flushedOnce && c.flushed[i] == len(c.records) {
			continue
		}
		batch := c.records[c.flushed[i]:]
		err := sink.Persist(ctx, batch)
		if err != nil {
			c.tel.ReportBroken(report_collector_flush, err, len(batch))
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
			continue
		}
		c.flushed[i] = len(c.records)
	}
	c.flushedOnce = true

	c.tel.ReportCount(report_collector_flush, int64(len(c.records)))
	return errors.Join(errs...)
}
