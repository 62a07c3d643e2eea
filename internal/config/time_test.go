package config

import (
	"testing"
	"time"
)

func TestCalculateMillisecondsOfCheckingPeriod(t *testing.T) {
	timer := Timer{Days: 1, Hours: 2, Minutes: 3, Seconds: 4}
	want := uint64((24*60*60 + 2*60*60 + 3*60 + 4) * 1000)

	if got := CalculateMillisecondsOfCheckingPeriod(timer); got != want {
		t.Fatalf("CalculateMillisecondsOfCheckingPeriod returned %d, want %d", got, want)
	}
}

func TestCalculateBetweenTime(t *testing.T) {
	t.Run("enforces minimum interval", func(t *testing.T) {
		if got := CalculateBetweenTime(Timer{}); got != time.Second {
			t.Fatalf("CalculateBetweenTime returned %s, want 1s", got)
		}
	})

	t.Run("returns configured duration", func(t *testing.T) {
		if got := CalculateBetweenTime(Timer{Minutes: 1, Seconds: 30}); got != 90*time.Second {
			t.Fatalf("CalculateBetweenTime returned %s, want 1m30s", got)
		}
	})
}

func TestSetBetweenTime(t *testing.T) {
	origCfg := GetConfig()
	origChecks := GetTimeBetweenChecks()
	origSweeps := GetTimeBetweenSweeps()

	t.Cleanup(func() {
		configValue.Store(origCfg)
		timeBetweenChecks.Store(origChecks)
		timeBetweenSweeps.Store(origSweeps)
	})

	testCfg := origCfg
	testCfg.Checker.CheckerTimer = Timer{Seconds: 10}
	testCfg.Sweeper.SweeperTimer = Timer{Minutes: 3}
	configValue.Store(testCfg)

	SetBetweenTime()

	if got := GetTimeBetweenChecks(); got != 10*time.Second {
		t.Fatalf("GetTimeBetweenChecks returned %s, want 10s", got)
	}
	if got := GetTimeBetweenSweeps(); got != 3*time.Minute {
		t.Fatalf("GetTimeBetweenSweeps returned %s, want 3m", got)
	}
}

func TestCheckIntervalUpdates(t *testing.T) {
	origChecks := GetTimeBetweenChecks()
	origListeners := checkIntervalListeners

	t.Cleanup(func() {
		timeBetweenChecks.Store(origChecks)
		checkIntervalListeners = origListeners
	})

	timeBetweenChecks.Store(time.Second)
	checkIntervalListeners = nil

	ch := CheckIntervalUpdates()
	if first := <-ch; first != time.Second {
		t.Fatalf("initial update = %s, want 1s", first)
	}

	setTimeBetweenChecks(5 * time.Second)

	select {
	case next := <-ch:
		if next != 5*time.Second {
			t.Fatalf("next update = %s, want 5s", next)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for interval update")
	}

	// Verify no duplicate notification when same interval is set.
	setTimeBetweenChecks(5 * time.Second)
	select {
	case <-ch:
		t.Fatal("unexpected update when interval unchanged")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSweepIntervalUpdatesKeepsNewest(t *testing.T) {
	origSweeps := GetTimeBetweenSweeps()
	origListeners := sweepIntervalListeners

	t.Cleanup(func() {
		timeBetweenSweeps.Store(origSweeps)
		sweepIntervalListeners = origListeners
	})

	timeBetweenSweeps.Store(time.Second)
	sweepIntervalListeners = nil

	ch := SweepIntervalUpdates()
	<-ch

	setTimeBetweenSweeps(2 * time.Second)
	setTimeBetweenSweeps(7 * time.Second)

	select {
	case next := <-ch:
		if next != 7*time.Second {
			t.Fatalf("pending update = %s, want newest 7s", next)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for interval update")
	}
}

func TestSweepIntervalFollowsCheckerTimer(t *testing.T) {
	origCfg := GetConfig()
	origChecks := GetTimeBetweenChecks()
	origSweeps := GetTimeBetweenSweeps()

	t.Cleanup(func() {
		configValue.Store(origCfg)
		timeBetweenChecks.Store(origChecks)
		timeBetweenSweeps.Store(origSweeps)
	})

	defaults, err := DefaultConfig()
	if err != nil {
		t.Fatalf("DefaultConfig returned error: %v", err)
	}
	if defaults.Sweeper.SweeperTimer != (Timer{}) {
		t.Fatalf("default sweeper timer = %+v, want zero so it follows the checker", defaults.Sweeper.SweeperTimer)
	}

	testCfg := origCfg
	testCfg.Checker.CheckerTimer = Timer{Minutes: 4}
	testCfg.Sweeper.SweeperTimer = Timer{}
	configValue.Store(testCfg)

	SetBetweenTime()

	if got := GetTimeBetweenSweeps(); got != 4*time.Minute {
		t.Fatalf("GetTimeBetweenSweeps returned %s, want checker interval 4m", got)
	}
}
