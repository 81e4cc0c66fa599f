package batchio

import "time"

// Option configures a single batch call.
type Option func(*callOptions)

type callOptions struct {
	deadline time.Duration
	metrics  *Metrics
}

// WithDeadline bounds each completion wait. When the deadline expires before
// all completions have arrived, the call returns ErrDeadline and the ring is
// torn down; the kernel reclaims any operations still in flight. The zero
// default waits indefinitely.
func WithDeadline(d time.Duration) Option {
	return func(o *callOptions) {
		o.deadline = d
	}
}

// WithMetrics records per-operation counters, byte counts, and latency into
// m for the duration of the call.
func WithMetrics(m *Metrics) Option {
	return func(o *callOptions) {
		o.metrics = m
	}
}

func applyOptions(opts []Option) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o *callOptions) waitDeadline() time.Time {
	if o.deadline <= 0 {
		return time.Time{}
	}
	return time.Now().Add(o.deadline)
}
