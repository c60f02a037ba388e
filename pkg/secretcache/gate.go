package secretcache

import "time"

// decision is the Cache Gate's verdict on a cached entry whose payload and
// metadata are both present and readable.
type decision struct {
	serve  bool
	reason string
}

// decide applies the rotation-aware freshness policy.
//
// Boundaries refresh: now == bufferStart counts as inside the buffer and an
// elapsed recheck time of exactly RecheckInterval triggers a refresh.
func decide(meta RotationMetadata, now time.Time, buffer time.Duration) decision {
	if meta.NextRotation == nil || meta.NextRotation.IsZero() {
		return decision{serve: true, reason: "no rotation schedule"}
	}

	next := *meta.NextRotation
	if now.Before(next.Add(-buffer)) {
		return decision{serve: true, reason: "rotation not imminent"}
	}

	if !now.Before(next) {
		return decision{reason: "rotation date passed"}
	}

	if meta.LastChecked.IsZero() {
		return decision{reason: "inside rotation buffer, never checked"}
	}
	if now.Sub(meta.LastChecked) < RecheckInterval {
		return decision{serve: true, reason: "inside rotation buffer, recently checked"}
	}
	return decision{reason: "inside rotation buffer, recheck due"}
}
