package consensus

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/autonity/tendercore/config"
	"github.com/autonity/tendercore/log"
	"github.com/autonity/tendercore/message"
)

// Engine wires a StateMachine to a message.Service through a Consumer and
// runs both to completion under one cancellable context and one shared
// error path.
type Engine struct {
	sm       *StateMachine
	consumer *Consumer
}

// NewEngine builds an Engine around sm, reading from queue.
func NewEngine(sm *StateMachine, queue message.Service, logger *log.Logger) *Engine {
	return &Engine{
		sm:       sm,
		consumer: NewConsumer(queue, sm, config.QueuePollTimeout, logger),
	}
}

// Run starts the state machine's actor loop and the message consumer loop,
// and blocks until ctx is cancelled or either loop returns an error —
// including ErrFatalDoubleCommit, which aborts the whole engine.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.sm.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.sm.Run(gctx) })
	g.Go(func() error { return e.consumer.Run(gctx) })
	return g.Wait()
}
