package dispatcher

import (
	"math/rand"
	"time"
)

// nextBackoff returns the delay before the given attempt number is retried,
// doubling from base up to cap. attempts is the count already made, so the
// first failure (attempts=1) waits base.
func nextBackoff(base, cap time.Duration, attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}

	backoff := base
	for i := 1; i < attempts; i++ {
		backoff *= 2
		if backoff >= cap {
			return cap
		}
	}
	if backoff > cap {
		return cap
	}
	return backoff
}

// jitter spreads retries out so rows claimed in the same batch do not come
// due in lockstep.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d)/4 + 1))
}
