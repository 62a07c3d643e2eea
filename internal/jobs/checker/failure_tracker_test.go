package checker

import (
	"testing"
	"time"

	"roost/internal/domain"
)

func TestApplyOutcomes(t *testing.T) {
	page := []domain.Proxy{
		{ID: 1, Rating: 4, Fails: 2},
		{ID: 2, Rating: 6, Fails: 2},
		{ID: 3, Rating: 0, Fails: 0},
	}
	outcomes := []probeOutcome{
		{ok: true, elapsed: 2 * time.Second},
		{ok: false},
		{ok: true, elapsed: 10 * time.Second},
	}

	updated, healthy := applyOutcomes(page, outcomes, 10*time.Second, 3)

	if healthy != 2 {
		t.Fatalf("healthy = %d, want 2", healthy)
	}

	if got := updated[0]; got.Rating != 6 || got.Fails != 1 || got.Blacklisted {
		t.Fatalf("successful proxy = %+v, want rating 6, fails 1, not blacklisted", got)
	}
	if got := updated[1]; got.Rating != 6 || got.Fails != 3 || !got.Blacklisted {
		t.Fatalf("failed proxy = %+v, want rating 6, fails 3, blacklisted", got)
	}
	if got := updated[2]; got.Rating != 0 || got.Fails != 0 {
		t.Fatalf("zero score proxy = %+v, want rating 0, fails 0", got)
	}

	if page[1].Fails != 2 {
		t.Fatalf("input page was modified: %+v", page[1])
	}
}

func TestApplyOutcomesMissingOutcomeCountsAsFailure(t *testing.T) {
	page := []domain.Proxy{{ID: 1, Rating: 5}, {ID: 2, Rating: 5}}

	updated, healthy := applyOutcomes(page, []probeOutcome{{ok: true, elapsed: time.Second}}, 5*time.Second, 10)

	if healthy != 1 {
		t.Fatalf("healthy = %d, want 1", healthy)
	}
	if updated[1].Fails != 1 {
		t.Fatalf("proxy without outcome has fails %d, want 1", updated[1].Fails)
	}
}
