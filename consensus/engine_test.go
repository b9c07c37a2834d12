package consensus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/autonity/tendercore/config"
	"github.com/autonity/tendercore/internal/chainfake"
	"github.com/autonity/tendercore/internal/cryptofake"
	"github.com/autonity/tendercore/internal/mempoolfake"
	"github.com/autonity/tendercore/internal/netfake"
	"github.com/autonity/tendercore/internal/validationfake"
	"github.com/autonity/tendercore/log"
	"github.com/autonity/tendercore/message"
	"github.com/autonity/tendercore/queue"
)

// TestMain verifies that no goroutine started anywhere in this package's
// tests is still running once they finish — in particular the actor and
// consumer loops an Engine spins up in TestEngine_SoloValidatorRunsToCompletion,
// since a timer left armed or a mailbox never drained would otherwise leak
// silently past a single test's own assertions.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// TestEngine_SoloValidatorRunsToCompletion drives a single-validator Engine
// through its real goroutines (StateMachine.Run's mailbox loop and
// Consumer.Run's poll loop, coordinated by Engine.Run's errgroup) rather
// than calling handle() directly, then cancels the context and waits for
// both loops to exit cleanly. A solo validator is the proposer at every
// height, so it keeps committing successive heights until cancelled.
func TestEngine_SoloValidatorRunsToCompletion(t *testing.T) {
	validators := []message.PubKey{"solo"}
	chain := chainfake.New(1, validators)
	mempool := mempoolfake.New()
	mempool.Add(message.Transaction{Hash: "tx1", Payload: []byte("payload")})
	validation := validationfake.New()
	q := queue.New(16, 0)
	proposer := fixedProposer(nil, "solo")
	crypto := cryptofake.New("solo")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	net := netfake.New(ctx, q)
	sm := New(crypto, net, chain, mempool, validation, proposer, config.DefaultTimeoutSchedule, log.NewNop())
	engine := NewEngine(sm, q, log.NewNop())

	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	require.Eventually(t, func() bool { return len(chain.Committed()) >= 1 }, time.Second, 5*time.Millisecond)

	cancel()
	err := <-done
	require.ErrorIs(t, err, context.Canceled)
}
