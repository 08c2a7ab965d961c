// internal/api/sse.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"resource-discovery/internal/common/metrics"
)

var errStreamingUnsupported = errors.New("streaming not supported")

// sseSink writes server-sent events. Headers are sent with the first frame so
// a request rejected before any text still gets a plain JSON error. The
// outcome is only known after the stream, so it travels as a trailer.
type sseSink struct {
	w        http.ResponseWriter
	flusher  http.Flusher
	endpoint string
	started  bool
}

func newSSESink(w http.ResponseWriter, endpoint string) (*sseSink, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errStreamingUnsupported
	}
	return &sseSink{w: w, flusher: flusher, endpoint: endpoint}, nil
}

func (s *sseSink) start() {
	if s.started {
		return
	}
	s.started = true
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("Trailer", OutcomeHeader)
	s.w.WriteHeader(http.StatusOK)
	metrics.ActiveStreams.WithLabelValues(s.endpoint).Inc()
}

func (s *sseSink) WriteChunk(chunk string) error {
	s.start()
	data, err := json.Marshal(contentFrame{Content: chunk})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Reset emits `event: reset`; clients discard the content received so far.
func (s *sseSink) Reset() error {
	s.start()
	if _, err := fmt.Fprint(s.w, "event: reset\ndata: {}\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// finish writes the resources frame, the terminator and the outcome trailer.
func (s *sseSink) finish(frame resourcesFrame) {
	s.start()
	defer metrics.ActiveStreams.WithLabelValues(s.endpoint).Dec()

	data, err := json.Marshal(frame)
	if err == nil {
		fmt.Fprintf(s.w, "event: resources\ndata: %s\n\n", data)
	}
	fmt.Fprint(s.w, "data: [DONE]\n\n")
	s.flusher.Flush()
	if frame.Outcome != "" {
		s.w.Header().Set(OutcomeHeader, string(frame.Outcome))
	}
}
