package reconciler

import (
	"sync/atomic"
	"time"
)

// Stats counts reconciler outcomes since start. Safe for concurrent use.
type Stats struct {
	checked         int64
	drifted         int64
	repaired        int64
	failed          int64
	totalDurationNs int64
	startedNs       int64
}

func NewStats() *Stats {
	return &Stats{
		startedNs: time.Now().UnixNano(),
	}
}

func (m *Stats) record(result Result, duration time.Duration) {
	atomic.AddInt64(&m.checked, 1)
	atomic.AddInt64(&m.totalDurationNs, int64(duration))
	switch result {
	case ResultDrift:
		atomic.AddInt64(&m.drifted, 1)
	case ResultRepaired:
		atomic.AddInt64(&m.drifted, 1)
		atomic.AddInt64(&m.repaired, 1)
	}
}

func (m *Stats) recordFailure() {
	atomic.AddInt64(&m.failed, 1)
}

type Snapshot struct {
	Checked     int64
	Drifted     int64
	Repaired    int64
	Failed      int64
	AvgDuration time.Duration
	Uptime      time.Duration
}

func (m *Stats) Snapshot() Snapshot {
	checked := atomic.LoadInt64(&m.checked)
	durationNs := atomic.LoadInt64(&m.totalDurationNs)

	s := Snapshot{
		Checked:  checked,
		Drifted:  atomic.LoadInt64(&m.drifted),
		Repaired: atomic.LoadInt64(&m.repaired),
		Failed:   atomic.LoadInt64(&m.failed),
		Uptime:   time.Since(time.Unix(0, atomic.LoadInt64(&m.startedNs))),
	}
	if checked > 0 {
		s.AvgDuration = time.Duration(durationNs / checked)
	}
	return s
}
