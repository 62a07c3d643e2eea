package checker

import (
	"time"

	"roost/internal/domain"
)

// applyOutcomes merges a page with its probe outcomes. Successful proxies get
// a blended rating, every other proxy of the page gets one more fail, and the
// blacklist flag is recomputed for all of them.
func applyOutcomes(page []domain.Proxy, outcomes []probeOutcome, timeout time.Duration, maxFails uint32) ([]domain.Proxy, int) {
	updated := make([]domain.Proxy, len(page))
	healthy := 0

	for i, proxy := range page {
		if i < len(outcomes) && outcomes[i].ok {
			proxy.ApplyProbeSuccess(timeout, outcomes[i].elapsed)
			healthy++
		} else {
			proxy.ApplyProbeFailure()
		}
		proxy.EvaluateBlacklist(maxFails)
		updated[i] = proxy
	}

	return updated, healthy
}
