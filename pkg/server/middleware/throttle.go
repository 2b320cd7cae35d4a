package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleAfter is how long a client's bucket is kept without requests.
const idleAfter = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle limits requests per client IP with a token bucket.
type Throttle struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	visitors map[string]*visitor
	trusted  func(ip string) bool
	now      func() time.Time
	lastGC   time.Time
}

// NewThrottle allows perSecond requests per client with the given burst.
// A non-positive perSecond disables throttling.
func NewThrottle(perSecond float64, burst int, trusted func(ip string) bool) *Throttle {
	t := &Throttle{
		visitors: make(map[string]*visitor),
		trusted:  trusted,
		now:      time.Now,
	}
	t.SetLimit(perSecond, burst)
	return t
}

func toLimit(perSecond float64) rate.Limit {
	if perSecond <= 0 {
		return rate.Inf
	}
	return rate.Limit(perSecond)
}

// SetLimit retunes every bucket, existing ones included.
func (t *Throttle) SetLimit(perSecond float64, burst int) {
	if burst < 1 {
		burst = 1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.limit = toLimit(perSecond)
	t.burst = burst
	for _, v := range t.visitors {
		v.limiter.SetLimit(t.limit)
		v.limiter.SetBurst(t.burst)
	}
}

// Limit returns the current rate and burst.
func (t *Throttle) Limit() (rate.Limit, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limit, t.burst
}

func (t *Throttle) reserve(ip string) *rate.Reservation {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if now.Sub(t.lastGC) > idleAfter {
		for k, v := range t.visitors {
			if now.Sub(v.lastSeen) > idleAfter {
				delete(t.visitors, k)
			}
		}
		t.lastGC = now
	}

	v, ok := t.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.ReserveN(now, 1)
}

// Middleware rejects requests over the limit with 429 and Retry-After.
func (t *Throttle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := t.reserve(ClientIP(r, t.trusted))
		if delay := res.DelayFrom(t.now()); delay > 0 {
			res.CancelAt(t.now())
			wait := int(math.Ceil(delay.Seconds()))
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(wait))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"detail": "Request was throttled. Expected available in " + strconv.Itoa(wait) + " seconds.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
