package tunnel

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ML-KEM encapsulation is the most expensive thing an unauthenticated peer
// can make a listener do, so admission is limited before the handshake.

// IPRateLimiter limits the number of concurrent connections per IP.
type IPRateLimiter struct {
	mu          sync.Mutex
	connections map[string]int
	maxPerIP    int
}

// NewIPRateLimiter creates a new IPRateLimiter. maxPerIP <= 0 disables it.
func NewIPRateLimiter(maxPerIP int) *IPRateLimiter {
	return &IPRateLimiter{
		connections: make(map[string]int),
		maxPerIP:    maxPerIP,
	}
}

// AllowConnection reserves a slot for ip if one is free.
func (l *IPRateLimiter) AllowConnection(ip string) bool {
	if l.maxPerIP <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.connections[ip] >= l.maxPerIP {
		return false
	}
	l.connections[ip]++
	return true
}

// ReleaseConnection frees a slot reserved by AllowConnection.
func (l *IPRateLimiter) ReleaseConnection(ip string) {
	if l.maxPerIP <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.connections[ip] > 0 {
		l.connections[ip]--
		if l.connections[ip] == 0 {
			delete(l.connections, ip)
		}
	}
}

// Active returns the number of connections currently held by ip.
func (l *IPRateLimiter) Active(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connections[ip]
}

// HandshakeLimiter is a token bucket over handshakes.
type HandshakeLimiter struct {
	mu         sync.Mutex
	clock      clockwork.Clock
	rate       float64 // tokens per second
	burst      float64
	tokens     float64
	lastRefill time.Time
}

// NewHandshakeLimiter creates a limiter allowing rate handshakes per second
// with the given burst. A nil clock means the real clock.
func NewHandshakeLimiter(rate float64, burst int, clock clockwork.Clock) *HandshakeLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if burst <= 0 {
		burst = 1
	}
	return &HandshakeLimiter{
		clock:      clock,
		rate:       rate,
		burst:      float64(burst),
		tokens:     float64(burst),
		lastRefill: clock.Now(),
	}
}

// AllowHandshake consumes one token if available.
func (l *HandshakeLimiter) AllowHandshake() bool {
	if l.rate <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.tokens += now.Sub(l.lastRefill).Seconds() * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.lastRefill = now

	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// RateLimitObserver receives notifications when rate limits are hit.
type RateLimitObserver interface {
	// OnConnectionRateLimit is called when a connection is rejected due to per-IP limits.
	OnConnectionRateLimit(remoteIP string)
	// OnHandshakeRateLimit is called when a handshake is rejected due to global limits.
	OnHandshakeRateLimit(remoteIP string)
}
