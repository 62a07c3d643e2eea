package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"roost/internal/database"
	"roost/internal/domain"

	"gorm.io/driver/sqlite"
)

type fakeCandidates struct {
	proxies []domain.Proxy
	limits  []int
	err     error
}

func (f *fakeCandidates) TopRated(_ context.Context, limit int) ([]domain.Proxy, error) {
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	sorted := append([]domain.Proxy(nil), f.proxies...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rating > sorted[j].Rating })
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

func (f *fakeCandidates) AboveRating(_ context.Context, minRating float64, limit int) ([]domain.Proxy, error) {
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	var above []domain.Proxy
	for _, proxy := range f.proxies {
		if proxy.Rating > minRating {
			above = append(above, proxy)
		}
	}
	sort.SliceStable(above, func(i, j int) bool { return above[i].Rating < above[j].Rating })
	if len(above) > limit {
		above = above[:limit]
	}
	return above, nil
}

type fakeBans struct {
	banned map[string]map[domain.Endpoint]struct{}
	err    error
}

func (f *fakeBans) Banned(_ context.Context, website string, endpoints []domain.Endpoint) (map[domain.Endpoint]struct{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[domain.Endpoint]struct{})
	for _, endpoint := range endpoints {
		if _, ok := f.banned[website][endpoint]; ok {
			out[endpoint] = struct{}{}
		}
		if _, ok := f.banned[domain.GlobalWebsite][endpoint]; ok {
			out[endpoint] = struct{}{}
		}
	}
	return out, nil
}

func proxiesWithRatings(ratings ...float64) []domain.Proxy {
	proxies := make([]domain.Proxy, len(ratings))
	for i, rating := range ratings {
		proxies[i] = domain.Proxy{
			ID:      uint64(i + 1),
			Schema:  "http",
			Address: fmt.Sprintf("10.0.0.%d", i+1),
			Port:    8080,
			Rating:  rating,
		}
	}
	return proxies
}

func ratingsOf(proxies []domain.Proxy) []float64 {
	out := make([]float64, len(proxies))
	for i, proxy := range proxies {
		out[i] = proxy.Rating
	}
	return out
}

func TestGetProxiesReturnsBestFirst(t *testing.T) {
	engine := New(&fakeCandidates{proxies: proxiesWithRatings(5, 9, 1)}, &fakeBans{})

	got, err := engine.GetProxies(context.Background(), Query{Website: "example.com", Amount: 2})
	if err != nil {
		t.Fatalf("GetProxies returned error: %v", err)
	}
	if fmt.Sprint(ratingsOf(got)) != "[9 5]" {
		t.Fatalf("ratings = %v, want [9 5]", ratingsOf(got))
	}
}

func TestGetProxiesWithRatingFloor(t *testing.T) {
	engine := New(&fakeCandidates{proxies: proxiesWithRatings(9, 5, 1, 7)}, &fakeBans{})
	floor := 4.0

	got, err := engine.GetProxies(context.Background(), Query{Website: "example.com", Amount: 2, MinRating: &floor})
	if err != nil {
		t.Fatalf("GetProxies returned error: %v", err)
	}
	if fmt.Sprint(ratingsOf(got)) != "[5 7]" {
		t.Fatalf("ratings = %v, want the two lowest above the floor [5 7]", ratingsOf(got))
	}
}

func TestGetProxiesSkipsBannedAndWidens(t *testing.T) {
	proxies := proxiesWithRatings(9, 8, 7, 6, 5)
	bans := &fakeBans{banned: map[string]map[domain.Endpoint]struct{}{
		"example.com":        {proxies[0].Endpoint(): {}},
		domain.GlobalWebsite: {proxies[1].Endpoint(): {}},
		"other.org":          {proxies[2].Endpoint(): {}},
	}}
	candidates := &fakeCandidates{proxies: proxies}

	got, err := New(candidates, bans).GetProxies(context.Background(), Query{Website: "example.com", Amount: 2})
	if err != nil {
		t.Fatalf("GetProxies returned error: %v", err)
	}
	if fmt.Sprint(ratingsOf(got)) != "[7 6]" {
		t.Fatalf("ratings = %v, want [7 6]", ratingsOf(got))
	}
	if fmt.Sprint(candidates.limits) != "[2 4]" {
		t.Fatalf("candidate limits = %v, want [2 4]", candidates.limits)
	}
}

func TestGetProxiesStopsWhenPoolExhausted(t *testing.T) {
	proxies := proxiesWithRatings(9, 8)
	bans := &fakeBans{banned: map[string]map[domain.Endpoint]struct{}{
		"example.com": {proxies[0].Endpoint(): {}},
	}}
	candidates := &fakeCandidates{proxies: proxies}

	got, err := New(candidates, bans).GetProxies(context.Background(), Query{Website: "example.com", Amount: 2})
	if err != nil {
		t.Fatalf("GetProxies returned error: %v", err)
	}
	if len(got) != 1 || got[0].Rating != 8 {
		t.Fatalf("got %+v, want the single unbanned proxy", got)
	}
	if len(candidates.limits) != 2 {
		t.Fatalf("candidate fetches = %v, want the second fetch to end the search", candidates.limits)
	}
}

func TestGetProxiesAttemptBudget(t *testing.T) {
	proxies := proxiesWithRatings(9, 8, 7, 6)
	banned := map[domain.Endpoint]struct{}{}
	for _, proxy := range proxies {
		banned[proxy.Endpoint()] = struct{}{}
	}
	bans := &fakeBans{banned: map[string]map[domain.Endpoint]struct{}{"example.com": banned}}

	t.Run("without widening", func(t *testing.T) {
		candidates := &fakeCandidates{proxies: proxies}
		engine := New(candidates, bans, WithWidening(false))

		got, err := engine.GetProxies(context.Background(), Query{Website: "example.com", Amount: 1})
		if err != nil {
			t.Fatalf("GetProxies returned error: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("got %+v, want empty", got)
		}
		if fmt.Sprint(candidates.limits) != "[1 1 1 1 1]" {
			t.Fatalf("candidate limits = %v, want five attempts of 1", candidates.limits)
		}
	})

	t.Run("capped candidates", func(t *testing.T) {
		candidates := &fakeCandidates{proxies: append(proxies, proxiesWithRatings(1, 1, 1, 1)...)}
		engine := New(candidates, bans, WithMaxAttempts(3), WithMaxCandidates(3))

		if _, err := engine.GetProxies(context.Background(), Query{Website: "example.com", Amount: 1}); err != nil {
			t.Fatalf("GetProxies returned error: %v", err)
		}
		if fmt.Sprint(candidates.limits) != "[1 2 3]" {
			t.Fatalf("candidate limits = %v, want [1 2 3]", candidates.limits)
		}
	})
}

func TestGetProxiesZeroAmount(t *testing.T) {
	candidates := &fakeCandidates{proxies: proxiesWithRatings(9)}

	got, err := New(candidates, &fakeBans{}).GetProxies(context.Background(), Query{Website: "example.com"})
	if err != nil {
		t.Fatalf("GetProxies returned error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("got %#v, want an empty non-nil slice", got)
	}
	if len(candidates.limits) != 0 {
		t.Fatal("expected no store access for a zero amount")
	}
}

func TestGetProxiesPropagatesStoreErrors(t *testing.T) {
	errBroken := errors.New("store down")

	if _, err := New(&fakeCandidates{err: errBroken}, &fakeBans{}).GetProxies(context.Background(), Query{Amount: 1}); !errors.Is(err, errBroken) {
		t.Fatalf("candidate error = %v, want wrapped store error", err)
	}

	candidates := &fakeCandidates{proxies: proxiesWithRatings(9)}
	if _, err := New(candidates, &fakeBans{err: errBroken}).GetProxies(context.Background(), Query{Amount: 1}); !errors.Is(err, errBroken) {
		t.Fatalf("ban error = %v, want wrapped store error", err)
	}
}

func TestGetProxiesAgainstRegistries(t *testing.T) {
	db, err := database.SetupDB(
		database.WithDialector(sqlite.Open("file:availability_registries?mode=memory&cache=shared")),
		database.WithAdminToken(""),
	)
	if err != nil {
		t.Fatalf("setup database: %v", err)
	}
	t.Cleanup(func() { _ = database.CloseDB(db) })

	ctx := context.Background()
	proxies := database.NewProxyRegistry(db)
	rateLimits := database.NewRateLimitRegistry(db)

	if _, err := proxies.InsertMany(ctx, proxiesWithRatings(9, 5, 1)); err != nil {
		t.Fatalf("insert proxies: %v", err)
	}

	engine := New(proxies, rateLimits)

	got, err := engine.GetProxies(ctx, Query{Website: "example.com", Amount: 2})
	if err != nil {
		t.Fatalf("GetProxies returned error: %v", err)
	}
	if fmt.Sprint(ratingsOf(got)) != "[9 5]" {
		t.Fatalf("ratings = %v, want [9 5]", ratingsOf(got))
	}

	if _, err := rateLimits.AddMany(ctx, []domain.RateLimit{
		{Website: domain.GlobalWebsite, Address: "10.0.0.1", Port: 8080, Until: 1},
	}); err != nil {
		t.Fatalf("add rate limit: %v", err)
	}

	got, err = engine.GetProxies(ctx, Query{Website: "example.com", Amount: 2})
	if err != nil {
		t.Fatalf("GetProxies returned error: %v", err)
	}
	if fmt.Sprint(ratingsOf(got)) != "[5 1]" {
		t.Fatalf("ratings after global ban = %v, want [5 1]", ratingsOf(got))
	}
}
