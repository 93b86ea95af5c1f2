package telemetry

import (
	"strings"
	"sync"
)

type Severity int

const (
	SEVERITY_DEBUG Severity = iota
	SEVERITY_WARNING
	SEVERITY_BROKEN
	SEVERITY_COUNT
)

// Report is a single call made against a Recorder.
type Report struct {
	Severity Severity
	ID       string
	Params   []any
	Count    int64
}

// Recorder implements API by keeping every report in memory, it is meant
// to be used in tests to assert that a component reported what it should have.
type Recorder struct {
	lock    sync.Mutex
	reports []Report
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) push(report Report) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.reports = append(r.reports, report)
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.push(Report{Severity: SEVERITY_BROKEN, ID: id, Params: params})
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.push(Report{Severity: SEVERITY_WARNING, ID: id, Params: params})
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.push(Report{Severity: SEVERITY_DEBUG, ID: msg, Params: params})
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.push(Report{Severity: SEVERITY_COUNT, ID: id, Count: count})
}

// Reports returns a copy of every report so far.
func (r *Recorder) Reports() []Report {
	r.lock.Lock()
	defer r.lock.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// Find returns the reports of the given severity whose id ends with suffix,
// suffix matching lets tests ignore the namespaces added by ScopedAPI.
func (r *Recorder) Find(severity Severity, suffix string) []Report {
	var out []Report
	for _, report := range r.Reports() {
		if report.Severity == severity && strings.HasSuffix(report.ID, suffix) {
			out = append(out, report)
		}
	}
	return out
}
