// internal/discovery/orchestrator/models.go
package orchestrator

import (
	"context"
	"time"

	"resource-discovery/internal/discovery/ratelimit"
	"resource-discovery/internal/models"
)

type Request struct {
	Endpoint  string
	RequestID string
	Identity  ratelimit.Identity
	Body      models.DiscoveryRequest
}

// ChunkSink receives narrative text for streaming transports.
// A nil sink selects the buffered contract. Reset tells the client to drop
// the text streamed so far; it is sent before a fallback replaces a stream
// that failed partway.
type ChunkSink interface {
	WriteChunk(chunk string) error
	Reset() error
}

// QuotaChecker is satisfied by *ratelimit.Limiter.
type QuotaChecker interface {
	Check(ctx context.Context, identity ratelimit.Identity, endpoint string, maxRequests, windowMinutes int) ratelimit.Decision
}

// RequestObserver receives one call per finished request.
type RequestObserver interface {
	RecordRequest(ctx context.Context, endpoint, outcome string, duration time.Duration)
}
