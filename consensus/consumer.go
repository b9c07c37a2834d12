package consensus

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/autonity/tendercore/config"
	"github.com/autonity/tendercore/log"
	"github.com/autonity/tendercore/message"
)

// Dispatcher is what a Consumer drives. StateMachine implements it; tests
// can substitute a fake to exercise Consumer in isolation.
type Dispatcher interface {
	Dispatch(ctx context.Context, m message.Message) error
	CurrentHeight() message.Height
}

// Consumer is the single reader draining a message.Service and handing
// each message to a Dispatcher. It is the
// "many producers, one consumer" side of the height-aware queue.
type Consumer struct {
	queue       message.Service
	dispatcher  Dispatcher
	pollTimeout time.Duration
	logger      *log.Logger
}

// NewConsumer returns a Consumer. A non-positive pollTimeout falls back to
// config.QueuePollTimeout.
func NewConsumer(queue message.Service, dispatcher Dispatcher, pollTimeout time.Duration, logger *log.Logger) *Consumer {
	if pollTimeout <= 0 {
		pollTimeout = config.QueuePollTimeout
	}
	return &Consumer{queue: queue, dispatcher: dispatcher, pollTimeout: pollTimeout, logger: logger}
}

// Run loops: pull the next message for the dispatcher's current height,
// dispatch it, and repeat, stopping only when ctx is cancelled, the
// dispatcher reports a cancellation, or the dispatcher reports the one
// fatal error this engine recognizes.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		m, ok := c.queue.Get(ctx, c.dispatcher.CurrentHeight(), c.pollTimeout)
		if !ok {
			continue
		}
		if err := c.dispatcher.Dispatch(ctx, m); err != nil {
			if errors.Is(err, ErrFatalDoubleCommit) {
				return err
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			c.logger.Warnw("failed to dispatch message", "err", err)
		}
	}
}
