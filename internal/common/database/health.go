// internal/common/database/health.go
package database

import (
	"context"
	"sync"
	"time"
)

// Checker is a dependency that can report its own reachability.
type Checker interface {
	Name() string
	Ping(ctx context.Context) error
}

// CheckAll pings every checker concurrently and returns "ok" or the error text per name.
func CheckAll(ctx context.Context, timeout time.Duration, checkers ...Checker) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		healthy = true
		status  = make(map[string]string, len(checkers))
	)

	for _, c := range checkers {
		if c == nil {
			continue
		}
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			err := c.Ping(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				status[c.Name()] = err.Error()
				healthy = false
				return
			}
			status[c.Name()] = "ok"
		}(c)
	}
	wg.Wait()

	return status, healthy
}
