package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// Collector tracks transfer statistics using lock-free atomic counters.
type Collector struct {
	entriesScanned   atomic.Int64
	entriesProcessed atomic.Int64
	entriesCopied    atomic.Int64
	entriesUnchanged atomic.Int64
	entriesFailed    atomic.Int64
	entriesExhausted atomic.Int64
	entriesRecreated atomic.Int64
	falseFailures    atomic.Int64
	dirsCreated      atomic.Int64
	bytesCopied      atomic.Int64
	metaRestored     atomic.Int64
	metaDenied       atomic.Int64
	metaFailed       atomic.Int64
	passes           atomic.Int64
	entriesTotal     atomic.Int64
	startTime        time.Time

	// Ring buffer, written only by the presenter's Tick().
	mu         sync.Mutex
	throughput [ringSize]int64 // bytes delta per second
	entryRate  [ringSize]int64 // processed entries delta per second
	ringIdx    int
	ringCount  int // how many samples have been written (capped at ringSize)
	lastBytes  int64
	lastDone   int64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	EntriesScanned   int64
	EntriesTotal     int64
	EntriesProcessed int64
	EntriesCopied    int64
	EntriesUnchanged int64
	EntriesFailed    int64
	EntriesExhausted int64
	EntriesRecreated int64
	FalseFailures    int64
	DirsCreated      int64
	BytesCopied      int64
	MetaRestored     int64
	MetaDenied       int64
	MetaFailed       int64
	Passes           int64
	Elapsed          time.Duration
}

func (c *Collector) SetEntriesTotal(n int64)     { c.entriesTotal.Store(n) }
func (c *Collector) AddEntriesScanned(n int64)   { c.entriesScanned.Add(n) }
func (c *Collector) AddEntriesProcessed(n int64) { c.entriesProcessed.Add(n) }
func (c *Collector) AddEntriesCopied(n int64)    { c.entriesCopied.Add(n) }
func (c *Collector) AddEntriesUnchanged(n int64) { c.entriesUnchanged.Add(n) }
func (c *Collector) AddEntriesFailed(n int64)    { c.entriesFailed.Add(n) }
func (c *Collector) AddEntriesExhausted(n int64) { c.entriesExhausted.Add(n) }
func (c *Collector) AddEntriesRecreated(n int64) { c.entriesRecreated.Add(n) }
func (c *Collector) AddFalseFailures(n int64)    { c.falseFailures.Add(n) }
func (c *Collector) AddDirsCreated(n int64)      { c.dirsCreated.Add(n) }
func (c *Collector) AddBytesCopied(n int64)      { c.bytesCopied.Add(n) }
func (c *Collector) AddMetaRestored(n int64)     { c.metaRestored.Add(n) }
func (c *Collector) AddMetaDenied(n int64)       { c.metaDenied.Add(n) }
func (c *Collector) AddMetaFailed(n int64)       { c.metaFailed.Add(n) }
func (c *Collector) AddPasses(n int64)           { c.passes.Add(n) }

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		EntriesScanned:   c.entriesScanned.Load(),
		EntriesTotal:     c.entriesTotal.Load(),
		EntriesProcessed: c.entriesProcessed.Load(),
		EntriesCopied:    c.entriesCopied.Load(),
		EntriesUnchanged: c.entriesUnchanged.Load(),
		EntriesFailed:    c.entriesFailed.Load(),
		EntriesExhausted: c.entriesExhausted.Load(),
		EntriesRecreated: c.entriesRecreated.Load(),
		FalseFailures:    c.falseFailures.Load(),
		DirsCreated:      c.dirsCreated.Load(),
		BytesCopied:      c.bytesCopied.Load(),
		MetaRestored:     c.metaRestored.Load(),
		MetaDenied:       c.metaDenied.Load(),
		MetaFailed:       c.metaFailed.Load(),
		Passes:           c.passes.Load(),
		Elapsed:          c.Elapsed(),
	}
}

// Tick snapshots byte/entry deltas into the ring buffer. Called 1/sec by the presenter.
func (c *Collector) Tick() {
	currentBytes := c.bytesCopied.Load()
	currentDone := c.entriesProcessed.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.throughput[c.ringIdx] = currentBytes - c.lastBytes
	c.entryRate[c.ringIdx] = currentDone - c.lastDone
	c.lastBytes = currentBytes
	c.lastDone = currentDone

	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average bytes/sec over the last n seconds of samples.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollingAvg(c.throughput[:], seconds)
}

// RollingEntriesPerSec returns average processed entries/sec over the last
// n seconds.
func (c *Collector) RollingEntriesPerSec(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollingAvg(c.entryRate[:], seconds)
}

// RateHistory returns up to n recent entries/sec samples, oldest first.
func (c *Collector) RateHistory(n int) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := min(n, c.ringCount)
	out := make([]float64, count)
	for i := range count {
		idx := (c.ringIdx - count + i + ringSize) % ringSize
		out[i] = float64(c.entryRate[idx])
	}
	return out
}

func (c *Collector) rollingAvg(buf []int64, n int) float64 {
	count := min(n, c.ringCount)
	if count == 0 {
		return 0
	}
	var sum int64
	for i := range count {
		idx := (c.ringIdx - 1 - i + ringSize) % ringSize
		sum += buf[idx]
	}
	return float64(sum) / float64(count)
}

// ETA estimates remaining time of the first pass from the rolling entry rate.
func (c *Collector) ETA() time.Duration {
	rate := c.RollingEntriesPerSec(10)
	if rate <= 0 {
		return 0
	}
	remaining := c.entriesTotal.Load() - c.entriesProcessed.Load()
	if remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining)/rate) * time.Second
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"scanned=%d copied=%d unchanged=%d failed=%d exhausted=%d recreated=%d recovered=%d dirs=%d bytes=%d passes=%d",
		s.EntriesScanned, s.EntriesCopied, s.EntriesUnchanged, s.EntriesFailed,
		s.EntriesExhausted, s.EntriesRecreated, s.FalseFailures, s.DirsCreated,
		s.BytesCopied, s.Passes,
	)
}
