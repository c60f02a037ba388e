package secretcache

import "time"

const (
	// MaxTTL caps how long an entry may live when rotation is far away.
	MaxTTL = 30 * 24 * time.Hour

	// MaxRotationBufferDays bounds the buffer window. Larger values are
	// clamped so the buffer duration cannot overflow.
	MaxRotationBufferDays = 3650

	// RecheckInterval is the minimum spacing between remote rechecks while a
	// secret sits inside its rotation buffer.
	RecheckInterval = time.Hour

	day = 24 * time.Hour
)

// BufferDuration converts a buffer expressed in days, clamped to
// [0, MaxRotationBufferDays].
func BufferDuration(bufferDays int) time.Duration {
	return time.Duration(clampBufferDays(bufferDays)) * day
}

func clampBufferDays(days int) int {
	switch {
	case days < 0:
		return 0
	case days > MaxRotationBufferDays:
		return MaxRotationBufferDays
	}
	return days
}

func clampTTL(ttl time.Duration) time.Duration {
	if ttl > MaxTTL {
		return MaxTTL
	}
	return ttl
}

// ComputeTTL plans how long a freshly fetched secret stays cached.
//
// Without a rotation date the default TTL applies. Inside (or past) the
// buffer window the default TTL also applies, so the entry is rechecked often.
// Otherwise the entry lives until the buffer starts, capped at MaxTTL and
// rounded up to a whole second. A default TTL above MaxTTL is capped too.
func ComputeTTL(nextRotation *time.Time, now time.Time, bufferDays int, defaultTTL time.Duration) time.Duration {
	defaultTTL = clampTTL(defaultTTL)
	if nextRotation == nil || nextRotation.IsZero() {
		return defaultTTL
	}

	bufferStart := nextRotation.Add(-BufferDuration(bufferDays))
	if !now.Before(bufferStart) {
		return defaultTTL
	}

	ttl := bufferStart.Sub(now)
	if ttl > MaxTTL {
		ttl = MaxTTL
	}
	if rem := ttl % time.Second; rem != 0 {
		ttl += time.Second - rem
	}
	return ttl
}
