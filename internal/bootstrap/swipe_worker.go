package bootstrap

import (
	"context"

	"swipe_server/adapter/in/worker"
	"swipe_server/pkg/logger"
)

// Worker runs the background deck refresher.
type Worker struct {
	refresher *worker.DeckRefresher
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewWorker(deps *Dependencies) *Worker {
	zlog := deps.Log.With().Str("component", "worker").Logger()
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		refresher: worker.NewDeckRefresher(deps.CardService, deps.Config.RefreshInterval, zlog),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the refresher and blocks until Stop.
func (w *Worker) Start() {
	w.refresher.Start()
	logger.Info("Worker started")
	<-w.ctx.Done()
}

// Stop halts the refresher and releases Start.
func (w *Worker) Stop() {
	w.refresher.Stop()
	w.cancel()
	logger.Info("Worker stopped")
}
