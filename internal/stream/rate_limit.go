package stream

import (
	"errors"
	"sync"
)

var (
	errPerIPLimit = errors.New("too many concurrent streams from this address")
	errCapacity   = errors.New("stream capacity reached")
)

// streamLimiter counts open frame streams per client IP and in total. SSE and
// WebSocket connections draw on the same budget.
type streamLimiter struct {
	mu       sync.Mutex
	perIP    map[string]int
	open     int
	maxPerIP int
	maxTotal int
}

func newStreamLimiter(maxPerIP, maxTotal int) *streamLimiter {
	return &streamLimiter{
		perIP:    make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: maxTotal,
	}
}

// acquire takes a slot for ip, or reports which limit refused it.
func (l *streamLimiter) acquire(ip string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case l.open >= l.maxTotal:
		return errCapacity
	case l.perIP[ip] >= l.maxPerIP:
		return errPerIPLimit
	}
	l.perIP[ip]++
	l.open++
	return nil
}

// release returns a slot taken by acquire. Unmatched releases are ignored.
func (l *streamLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, ok := l.perIP[ip]
	if !ok {
		return
	}
	l.open--
	if n <= 1 {
		delete(l.perIP, ip)
		return
	}
	l.perIP[ip] = n - 1
}

func (l *streamLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip]
}

func (l *streamLimiter) active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open
}
