// Package worker runs the background jobs of worker mode.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Prewarmer rebuilds the shared deck.
type Prewarmer interface {
	Prewarm(ctx context.Context) (int, error)
}

// DeckRefresher rebuilds the shared deck on a fixed interval so requests after
// expiry still hit a warm cache.
type DeckRefresher struct {
	deck     Prewarmer
	interval time.Duration
	timeout  time.Duration
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDeckRefresher creates a refresher. A zero interval falls back to 4 minutes.
func NewDeckRefresher(deck Prewarmer, interval time.Duration, log zerolog.Logger) *DeckRefresher {
	if interval <= 0 {
		interval = 4 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &DeckRefresher{
		deck:     deck,
		interval: interval,
		timeout:  2 * time.Minute,
		log:      log.With().Str("component", "deck-refresher").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start runs one refresh immediately, then one per interval.
func (r *DeckRefresher) Start() {
	r.log.Info().Dur("interval", r.interval).Msg("starting")
	r.wg.Add(1)
	go r.run()
}

// Stop cancels the loop and waits for an in-flight refresh.
func (r *DeckRefresher) Stop() {
	r.cancel()
	r.wg.Wait()
	r.log.Info().Msg("stopped")
}

func (r *DeckRefresher) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refresh()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.refresh()
		}
	}
}

func (r *DeckRefresher) refresh() {
	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	start := time.Now()
	n, err := r.deck.Prewarm(ctx)
	if err != nil {
		if r.ctx.Err() != nil {
			return
		}
		r.log.Error().Err(err).Dur("took", time.Since(start)).Msg("deck refresh failed")
		return
	}
	r.log.Info().Int("cards", n).Dur("took", time.Since(start)).Msg("deck refreshed")
}
