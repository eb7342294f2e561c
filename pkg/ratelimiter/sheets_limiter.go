package ratelimiter

import "context"

const (
	readsPerMinuteCapacity   = 300.0
	readsPerMinuteRefillRate = 5.0 // 300 / 60s
	requestsPer100sCapacity  = 100.0
	requestsPer100sRefill    = 1.0 // 100 / 100s

	defaultSafetyFactor = 0.8
)

// SheetsRateLimiter composes the two quotas the Google Sheets API enforces:
// reads per minute and requests per 100 seconds. Acquire blocks on both.
type SheetsRateLimiter struct {
	readsPerMinute  *TokenBucket
	requestsPer100s *TokenBucket
}

// NewSheetsRateLimiter scales both bucket capacities and refill rates by the
// safety factor once, at construction, matching the reference behaviour of
// configuring an 80% margin against the provider's published limits.
func NewSheetsRateLimiter(safetyFactor float64) *SheetsRateLimiter {
	if safetyFactor <= 0 {
		safetyFactor = defaultSafetyFactor
	}
	return &SheetsRateLimiter{
		readsPerMinute:  NewTokenBucket(readsPerMinuteCapacity*safetyFactor, readsPerMinuteRefillRate*safetyFactor),
		requestsPer100s: NewTokenBucket(requestsPer100sCapacity*safetyFactor, requestsPer100sRefill*safetyFactor),
	}
}

// Acquire blocks until both component buckets can spare requestCount tokens.
func (l *SheetsRateLimiter) Acquire(ctx context.Context, requestCount float64) error {
	if err := l.readsPerMinute.Acquire(ctx, requestCount); err != nil {
		return err
	}
	return l.requestsPer100s.Acquire(ctx, requestCount)
}

func (l *SheetsRateLimiter) TryAcquire(requestCount float64) bool {
	if !l.readsPerMinute.TryAcquire(requestCount) {
		return false
	}
	if !l.requestsPer100s.TryAcquire(requestCount) {
		// Give back the first bucket's tokens; a failed composite acquire
		// must not leave the limiter partially drained.
		l.readsPerMinute.dataMu.Lock()
		l.readsPerMinute.tokens += requestCount
		l.readsPerMinute.dataMu.Unlock()
		return false
	}
	return true
}
