package checker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"roost/internal/domain"
)

type fakeStore struct {
	mu       sync.Mutex
	proxies  []domain.Proxy
	updates  [][]domain.Proxy
	pageErr  error
	writeErr error
}

func (s *fakeStore) Page(_ context.Context, afterID uint64, size int) ([]domain.Proxy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pageErr != nil {
		return nil, s.pageErr
	}

	var page []domain.Proxy
	for _, proxy := range s.proxies {
		if proxy.ID <= afterID {
			continue
		}
		page = append(page, proxy)
		if len(page) == size {
			break
		}
	}
	return page, nil
}

func (s *fakeStore) UpdateMany(_ context.Context, proxies []domain.Proxy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return s.writeErr
	}
	s.updates = append(s.updates, append([]domain.Proxy(nil), proxies...))
	return nil
}

func (s *fakeStore) updated() map[string]domain.Proxy {
	s.mu.Lock()
	defer s.mu.Unlock()

	byAddress := make(map[string]domain.Proxy)
	for _, batch := range s.updates {
		for _, proxy := range batch {
			byAddress[proxy.Address] = proxy
		}
	}
	return byAddress
}

type probeResult struct {
	elapsed time.Duration
	err     error
}

var errProbeFailed = errors.New("probe failed")

// fakeProber answers from results by address; unknown addresses fail.
type fakeProber struct {
	results map[string]probeResult
	delay   time.Duration

	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (p *fakeProber) Probe(_ context.Context, proxy domain.Proxy) (time.Duration, error) {
	p.calls.Add(1)

	current := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		peak := p.peak.Load()
		if current <= peak || p.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	result, ok := p.results[proxy.Address]
	if !ok {
		return 0, errProbeFailed
	}
	return result.elapsed, result.err
}
