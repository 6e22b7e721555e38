package refresh

import "time"

// Backoff returns the delay before the next refresh attempt after the given
// number of consecutive failures: min(2^(failures-1) * base, max). Zero or
// negative failure counts mean no delay.
func Backoff(failures int, base, max time.Duration) time.Duration {
	if failures <= 0 {
		return 0
	}
	// Shifting past 30 would overflow any practical base; the result is
	// capped anyway.
	if failures > 30 {
		return max
	}
	d := base << uint(failures-1)
	if d <= 0 || d > max {
		return max
	}
	return d
}
