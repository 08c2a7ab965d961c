// internal/discovery/usage/recorder.go
package usage

import (
	"context"
	"sync"
	"time"

	"resource-discovery/internal/common/logger"
	"resource-discovery/internal/common/metrics"
)

const Name = "usage"

// Recorder writes usage records off the request path. Failures are logged and counted only.
type Recorder struct {
	sink    Sink
	timeout time.Duration
	logger  logger.Logger
	wg      sync.WaitGroup
}

func NewRecorder(sink Sink, timeout time.Duration, log logger.Logger) *Recorder {
	if sink == nil {
		sink = NopSink{}
	}
	return &Recorder{
		sink:    sink,
		timeout: timeout,
		logger: log.With(map[string]interface{}{
			"component": Name,
		}),
	}
}

// RecordAsync survives cancellation of ctx so a finished request still gets logged.
func (r *Recorder) RecordAsync(ctx context.Context, u Usage) {
	detached := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx := detached
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(detached, r.timeout)
			defer cancel()
		}

		if err := r.sink.Record(ctx, u); err != nil {
			metrics.UsageLogFailures.Inc()
			r.logger.Warn("failed to log ai usage", map[string]interface{}{
				"endpoint": u.Endpoint,
				"error":    err,
			})
		}
	}()
}

// Wait blocks until in-flight records finish.
func (r *Recorder) Wait() {
	r.wg.Wait()
}
