package store

import (
	"strconv"
	"sync"
	"time"
)

// idGenerator produces millisecond-timestamp identifiers matching the
// historical id format of persisted records, with a monotonic guard so
// that rapid consecutive inserts stay distinguishable.
type idGenerator struct {
	mu   sync.Mutex
	last int64
}

func (g *idGenerator) Next(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := now.UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}
