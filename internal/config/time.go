package config

import (
	"sync"
	"sync/atomic"
	"time"
)

var (
	timeBetweenChecks      atomic.Value
	timeBetweenSweeps      atomic.Value
	checkIntervalListeners []chan time.Duration
	sweepIntervalListeners []chan time.Duration
	listenersMu            sync.Mutex
)

func init() {
	cfg := GetConfig()
	timeBetweenChecks.Store(CalculateBetweenTime(cfg.Checker.CheckerTimer))
	timeBetweenSweeps.Store(CalculateBetweenTime(sweeperTimer(cfg)))
}

func SetBetweenTime() {
	cfg := GetConfig()
	setTimeBetweenChecks(CalculateBetweenTime(cfg.Checker.CheckerTimer))
	setTimeBetweenSweeps(CalculateBetweenTime(sweeperTimer(cfg)))
}

// sweeperTimer follows the checker timer unless the sweeper sets its own.
func sweeperTimer(cfg Config) Timer {
	if cfg.Sweeper.SweeperTimer == (Timer{}) {
		return cfg.Checker.CheckerTimer
	}
	return cfg.Sweeper.SweeperTimer
}

func CalculateBetweenTime(timer Timer) time.Duration {
	intervalMs := CalculateMillisecondsOfCheckingPeriod(timer)

	// Enforce minimum interval (e.g., 1 second)
	minInterval := uint64(1000)
	if intervalMs < minInterval {
		intervalMs = minInterval
	}

	return time.Duration(intervalMs) * time.Millisecond
}

func CalculateMillisecondsOfCheckingPeriod(timer Timer) uint64 {
	return uint64(timer.Days)*24*60*60*1000 +
		uint64(timer.Hours)*60*60*1000 +
		uint64(timer.Minutes)*60*1000 +
		uint64(timer.Seconds)*1000
}

func GetTimeBetweenChecks() time.Duration {
	return timeBetweenChecks.Load().(time.Duration)
}

func GetTimeBetweenSweeps() time.Duration {
	return timeBetweenSweeps.Load().(time.Duration)
}

// CheckIntervalUpdates delivers the current interval immediately and every change after it.
func CheckIntervalUpdates() <-chan time.Duration {
	return subscribe(&checkIntervalListeners, GetTimeBetweenChecks())
}

func SweepIntervalUpdates() <-chan time.Duration {
	return subscribe(&sweepIntervalListeners, GetTimeBetweenSweeps())
}

func subscribe(listeners *[]chan time.Duration, current time.Duration) <-chan time.Duration {
	ch := make(chan time.Duration, 1)
	listenersMu.Lock()
	*listeners = append(*listeners, ch)
	listenersMu.Unlock()

	ch <- current
	return ch
}

func setTimeBetweenChecks(interval time.Duration) {
	publishInterval(&timeBetweenChecks, &checkIntervalListeners, interval)
}

func setTimeBetweenSweeps(interval time.Duration) {
	publishInterval(&timeBetweenSweeps, &sweepIntervalListeners, interval)
}

func publishInterval(value *atomic.Value, listeners *[]chan time.Duration, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}

	if current, ok := value.Load().(time.Duration); ok && current == interval {
		return
	}

	value.Store(interval)

	listenersMu.Lock()
	defer listenersMu.Unlock()
	for _, ch := range *listeners {
		// Replace a pending value so listeners always see the newest interval.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- interval:
		default:
		}
	}
}
