package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type countingPrewarmer struct {
	calls atomic.Int32
	err   error
}

func (p *countingPrewarmer) Prewarm(ctx context.Context) (int, error) {
	p.calls.Add(1)
	return 3, p.err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestDeckRefresher_RefreshesImmediatelyAndPeriodically(t *testing.T) {
	p := &countingPrewarmer{}
	r := NewDeckRefresher(p, 20*time.Millisecond, zerolog.Nop())
	r.Start()
	defer r.Stop()

	waitFor(t, func() bool { return p.calls.Load() >= 3 })
}

func TestDeckRefresher_ErrorsKeepLooping(t *testing.T) {
	p := &countingPrewarmer{err: errors.New("gmail down")}
	r := NewDeckRefresher(p, 10*time.Millisecond, zerolog.Nop())
	r.Start()
	defer r.Stop()

	waitFor(t, func() bool { return p.calls.Load() >= 2 })
}

func TestDeckRefresher_StopHaltsLoop(t *testing.T) {
	p := &countingPrewarmer{}
	r := NewDeckRefresher(p, time.Hour, zerolog.Nop())
	r.Start()
	waitFor(t, func() bool { return p.calls.Load() == 1 })
	r.Stop()

	time.Sleep(20 * time.Millisecond)
	if got := p.calls.Load(); got != 1 {
		t.Errorf("expected 1 refresh, got %d", got)
	}
}

func TestNewDeckRefresher_DefaultInterval(t *testing.T) {
	r := NewDeckRefresher(&countingPrewarmer{}, 0, zerolog.Nop())
	if r.interval != 4*time.Minute {
		t.Errorf("expected 4m default, got %v", r.interval)
	}
}
