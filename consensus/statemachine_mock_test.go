package consensus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/autonity/tendercore/config"
	"github.com/autonity/tendercore/internal/chainfake"
	"github.com/autonity/tendercore/internal/cryptofake"
	"github.com/autonity/tendercore/internal/mempoolfake"
	"github.com/autonity/tendercore/internal/mocks"
	"github.com/autonity/tendercore/internal/validationfake"
	"github.com/autonity/tendercore/log"
	"github.com/autonity/tendercore/message"
)

// TestStateMachine_SoloValidatorDecidesOnSelfQuorum drives a single
// validator (N=1, threshold=1) through a full round using a MockNetwork
// rather than the netfake.Recorder, asserting how many times each kind of
// broadcast is made. The mock delivers nothing, so the test hands each
// broadcast message back to handle() itself: the state machine records its
// own vote in the log as it casts it, but only evaluates a quorum when a
// message is handled.
func TestStateMachine_SoloValidatorDecidesOnSelfQuorum(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	validators := []message.PubKey{"solo"}
	chain := chainfake.New(1, validators)
	mempool := mempoolfake.New()
	validation := validationfake.New()
	net := mocks.NewMockNetwork(ctrl)
	crypto := cryptofake.New("solo")
	proposer := fixedProposer(nil, "solo")

	var proposed message.ProposeBlockRequest
	var prevoted message.PrevoteMessage
	var precommitted message.PrecommitMessage

	net.EXPECT().BroadcastProposal(gomock.Any(), gomock.Any()).Times(1).DoAndReturn(
		func(_ context.Context, p message.ProposeBlockRequest) error {
			proposed = p
			return nil
		})
	// Deciding height 1 starts round 0 of height 2, where "solo" is again
	// the proposer and broadcasts a fresh proposal.
	net.EXPECT().BroadcastProposal(gomock.Any(), gomock.Any()).Times(1).Return(nil)
	net.EXPECT().BroadcastPrevote(gomock.Any(), gomock.Any()).Times(1).DoAndReturn(
		func(_ context.Context, p message.PrevoteMessage) error {
			prevoted = p
			return nil
		})
	net.EXPECT().BroadcastPrecommit(gomock.Any(), gomock.Any()).Times(1).DoAndReturn(
		func(_ context.Context, p message.PrecommitMessage) error {
			precommitted = p
			return nil
		})

	sm := New(crypto, net, chain, mempool, validation, proposer, config.DefaultTimeoutSchedule, log.NewNop())
	require.NoError(t, sm.Start(ctx))
	require.NoError(t, sm.handle(proposed))
	require.NoError(t, sm.handle(prevoted))
	require.NoError(t, sm.handle(precommitted))

	committed := chain.Committed()
	require.Len(t, committed, 1)
	require.Equal(t, proposed.Block.Hash(), committed[0].Header.Hash)
	require.EqualValues(t, 2, sm.height)
	require.EqualValues(t, 0, sm.round)
}
