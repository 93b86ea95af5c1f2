package chrono

import (
	"context"
	"sync"
	"time"
)

// API is the interface that anything depending on the system clock or on
// waiting for a remote page to settle should use.
type API interface {
	Now() time.Time
	Location() *time.Location
	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

type StandardImpl struct {
	location *time.Location
}

// NewStandardImpl uses Asia/Kolkata, the timezone the portal reports its data in.
func NewStandardImpl() (StandardImpl, error) {
	location, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return StandardImpl{}, err
	}
	return StandardImpl{location: location}, nil
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}

func (s StandardImpl) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FakeImpl never blocks, it advances its own clock by every slept duration.
type FakeImpl struct {
	lock    sync.Mutex
	current time.Time
	slept   []time.Duration
}

func NewFakeImpl(start time.Time) *FakeImpl {
	return &FakeImpl{current: start}
}

func (f *FakeImpl) Now() time.Time {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.current
}

func (f *FakeImpl) Location() *time.Location {
	return f.Now().Location()
}

func (f *FakeImpl) Sleep(ctx context.Context, d time.Duration) error {
	f.lock.Lock()
	f.current = f.current.Add(d)
	f.slept = append(f.slept, d)
	f.lock.Unlock()
	return ctx.Err()
}

// Slept returns every duration passed to Sleep so far.
func (f *FakeImpl) Slept() []time.Duration {
	f.lock.Lock()
	defer f.lock.Unlock()
	out := make([]time.Duration, len(f.slept))
	copy(out, f.slept)
	return out
}
