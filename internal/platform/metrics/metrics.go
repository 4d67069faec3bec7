package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64
	evaluationsMade uint64

	mu          sync.Mutex
	transitions map[string]uint64
	runs        map[string]uint64
	deliveries  map[string]uint64
}

func New() *Collector {
	return &Collector{
		transitions: map[string]uint64{},
		runs:        map[string]uint64{},
		deliveries:  map[string]uint64{},
	}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// ObserveTransition counts state machine outcomes keyed "action:outcome".
func (c *Collector) ObserveTransition(action, outcome string) {
	c.mu.Lock()
	c.transitions[action+":"+outcome]++
	c.mu.Unlock()
}

func (c *Collector) ObserveRun(outcome string, created int) {
	c.mu.Lock()
	c.runs[outcome]++
	c.mu.Unlock()
	atomic.AddUint64(&c.evaluationsMade, uint64(created))
}

func (c *Collector) ObserveDelivery(channel, status string) {
	c.mu.Lock()
	c.deliveries[channel+":"+status]++
	c.mu.Unlock()
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]any{
		"requestsTotal":           total,
		"errorsTotal":             errs,
		"rateLimitedTotal":        limited,
		"avgDurationMs":           avg,
		"totalDurationMs":         totalMs,
		"evaluationsCreatedTotal": atomic.LoadUint64(&c.evaluationsMade),
		"transitions":             copyCounts(c.transitions),
		"automaticCreationRuns":   copyCounts(c.runs),
		"notificationDeliveries":  copyCounts(c.deliveries),
	}
}

func copyCounts(in map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
