// Package consensus implements the Tendermint-style round state machine
// and the message consumer that drives it, grounded on
// consensus/tendermint/core/handler.go's checkUponConditions (the upon-*
// rules of Algorithm 1 of "The latest gossip on BFT consensus") and
// consensus/tendermint/core/msg_store.go (the tally store it reads).
package consensus

import (
	"context"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"

	"github.com/autonity/tendercore/config"
	"github.com/autonity/tendercore/journal"
	"github.com/autonity/tendercore/log"
	"github.com/autonity/tendercore/message"
)

var _ Dispatcher = (*StateMachine)(nil)

// ProposerFunc selects the proposer for (height, round). The state machine
// treats proposer selection as an externally supplied pure function, not a
// capability of message.Chain itself.
type ProposerFunc func(height message.Height, round message.Round) message.PubKey

// LockedValue is the block (and the round it was locked at) this validator
// has precommitted to and will not abandon except under the unlocking rule.
type LockedValue struct {
	Round message.Round
	Hash  message.BlockHash
}

// ValidValue is the most recent block this validator has seen a prevote
// quorum for, used to seed its own future proposals.
type ValidValue struct {
	Round message.Round
	Hash  message.BlockHash
}

// StateMachine is a single validator's round state machine for one height
// at a time. It is an actor: every field below is owned exclusively by the
// goroutine draining mailbox, so no internal locking is needed — mirroring
// the design note "model as an actor owning its state with a mailbox; no
// locks internal to MessageLog are required." The one exception is height,
// mirrored into heightAtomic so the message consumer can read the current
// height from its own goroutine without routing through the mailbox.
type StateMachine struct {
	crypto     message.Crypto
	network    message.Network
	chain      message.Chain
	mempool    message.Mempool
	validation message.Validation
	proposer   ProposerFunc
	timeouts   config.TimeoutSchedule
	logger     *log.Logger

	log *journal.MessageLog

	ctx context.Context

	height   message.Height
	round    message.Round
	step     Step
	prevHash message.BlockHash
	decision *message.BlockHash

	locked *LockedValue
	valid  *ValidValue

	sentProposal          bool
	prevoteTimeoutArmed   bool
	precommitTimeoutArmed bool

	proposeTimer   *time.Timer
	prevoteTimer   *time.Timer
	precommitTimer *time.Timer

	mailbox chan func()
	stopCh  chan struct{}

	heightAtomic atomic.Uint64
}

// New builds a StateMachine for one validator. The validator's own pubkey
// is taken from crypto.
func New(
	crypto message.Crypto,
	network message.Network,
	chain message.Chain,
	mempool message.Mempool,
	validation message.Validation,
	proposer ProposerFunc,
	timeouts config.TimeoutSchedule,
	logger *log.Logger,
) *StateMachine {
	return &StateMachine{
		crypto:     crypto,
		network:    network,
		chain:      chain,
		mempool:    mempool,
		validation: validation,
		proposer:   proposer,
		timeouts:   timeouts,
		logger:     logger,
		log:        journal.New(),
		mailbox:    make(chan func(), 64),
		stopCh:     make(chan struct{}),
	}
}

// Start initializes height from the chain and begins round 0, synchronously
// and single-threaded — it must be called exactly once, before Run and
// before any concurrent Dispatch calls can occur.
func (sm *StateMachine) Start(ctx context.Context) error {
	sm.ctx = ctx
	sm.height = sm.chain.Height()
	sm.heightAtomic.Store(uint64(sm.height))
	sm.prevHash = message.NilHash
	sm.startRound(0)
	return nil
}

// Run drains the mailbox until ctx is cancelled. Every state mutation in
// the engine — inbound dispatch and timer firings alike — happens as a
// closure executed here, on this one goroutine.
func (sm *StateMachine) Run(ctx context.Context) error {
	defer close(sm.stopCh)
	for {
		select {
		case fn := <-sm.mailbox:
			fn()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// CurrentHeight returns the height currently being decided. Safe to call
// from any goroutine.
func (sm *StateMachine) CurrentHeight() message.Height {
	return message.Height(sm.heightAtomic.Load())
}

// Dispatch hands m to the state machine and blocks until it has been
// processed (or ctx is done). It is the MessageConsumer's only entry point
// into the state machine.
func (sm *StateMachine) Dispatch(ctx context.Context, m message.Message) error {
	done := make(chan error, 1)
	task := func() { done <- sm.handle(m) }
	select {
	case sm.mailbox <- task:
	case <-ctx.Done():
		return ctx.Err()
	case <-sm.stopCh:
		return context.Canceled
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-sm.stopCh:
		return context.Canceled
	}
}

// enqueue posts a fire-and-forget task (a timeout firing) onto the mailbox.
func (sm *StateMachine) enqueue(fn func()) {
	select {
	case sm.mailbox <- fn:
	case <-sm.stopCh:
	}
}

func (sm *StateMachine) handle(m message.Message) error {
	switch v := m.(type) {
	case message.ProposeBlockRequest:
		if !sm.chain.IsValidator(v.Block.Header.Proposer) {
			return errors.Wrap(ErrNotCommitteeMember, "proposal")
		}
		return sm.handleProposal(v)
	case message.PrevoteMessage:
		if !sm.chain.IsValidator(v.PubKey) {
			return errors.Wrap(ErrNotCommitteeMember, "prevote")
		}
		return sm.handlePrevote(v)
	case message.PrecommitMessage:
		if !sm.chain.IsValidator(v.PubKey) {
			return errors.Wrap(ErrNotCommitteeMember, "precommit")
		}
		return sm.handlePrecommit(v)
	default:
		return ErrUnknownMessageKind
	}
}

// startRound resets per-round state and timers, arms the propose timeout,
// and proposes immediately if this validator is the round's proposer.
func (sm *StateMachine) startRound(round message.Round) {
	sm.stopTimers()
	sm.round = round
	sm.step = StepPropose
	sm.sentProposal = false
	sm.prevoteTimeoutArmed = false
	sm.precommitTimeoutArmed = false
	sm.armProposeTimeout(round)

	if err := sm.maybePropose(); err != nil {
		sm.logger.Warnw("failed to build or broadcast proposal",
			"err", err, "height", sm.height, "round", round)
	}
}

// maybePropose broadcasts a candidate block if and only if this validator
// is the proposer for the current (height, round) and has not already
// proposed this round.
func (sm *StateMachine) maybePropose() error {
	if sm.proposer(sm.height, sm.round) != sm.crypto.GetPubKey() {
		return nil
	}
	if sm.sentProposal {
		return nil
	}

	var block message.Block
	switch {
	case sm.valid != nil:
		b, ok := sm.log.GetCandidate(sm.valid.Hash)
		if !ok {
			return errors.New("valid value references an unknown candidate block")
		}
		block = b
	case sm.round == 0:
		block = sm.buildBlock(nil, nil)
	default:
		threshold := sm.chain.Threshold()
		prevRound := sm.round - 1
		block = sm.buildBlock(sm.log.GetInvalidTxs(prevRound, threshold), sm.log.GetValidTxs(prevRound, threshold))
	}

	req, err := sm.crypto.SignProposal(sm.round, block)
	if err != nil {
		return err
	}
	sm.sentProposal = true
	sm.log.AddProposal(req)
	return sm.network.BroadcastProposal(sm.ctx, req)
}

// handleProposal records the proposal (append-only) and, only if it is
// for the current round and we are still awaiting a proposal, evaluates the
// propose-step predicate.
func (sm *StateMachine) handleProposal(p message.ProposeBlockRequest) error {
	sm.log.AddProposal(p)
	if p.Round != sm.round || sm.step != StepPropose {
		return nil
	}

	block := p.Block
	if !sm.shouldPrevote(block) {
		return sm.castPrevote(message.NilHash, mapset.NewThreadUnsafeSet[message.TxHash]())
	}
	return sm.castPrevote(block.Hash(), sm.computeInvalidTxs(block))
}

// shouldPrevote implements the lock-respecting rule: vote for B if the
// block validates and either nothing is locked, B is what's locked, or the
// lock is older than a prevote quorum this validator has already seen for
// B.
func (sm *StateMachine) shouldPrevote(block message.Block) bool {
	if !sm.validation.ValidateBlock(block) {
		return false
	}
	if sm.locked == nil || sm.locked.Hash == block.Hash() {
		return true
	}
	if sm.locked.Round >= sm.round {
		return false
	}
	threshold := sm.chain.Threshold()
	for r := sm.locked.Round; r < sm.round; r++ {
		if sm.log.HasPrevoteQuorum(r, block.Hash(), threshold) {
			return true
		}
	}
	return false
}

func (sm *StateMachine) computeInvalidTxs(block message.Block) mapset.Set[message.TxHash] {
	s := mapset.NewThreadUnsafeSet[message.TxHash]()
	for _, tx := range block.Body.Transactions {
		if !sm.validation.ValidateTx(tx) {
			s.Add(tx.Hash)
		}
	}
	return s
}

func (sm *StateMachine) castPrevote(hash message.BlockHash, invalid mapset.Set[message.TxHash]) error {
	pv, err := sm.crypto.SignPrevote(sm.height, sm.round, hash)
	if err != nil {
		return err
	}
	pv.InvalidTxs = invalid
	sm.log.AddPrevote(pv)
	sm.step = StepPrevote
	return sm.network.BroadcastPrevote(sm.ctx, pv)
}

// handlePrevote records pv and, for the current round, checks whether this
// vote just completed a quorum — either for a known candidate (precommit,
// locking, and updating the valid value) or for nil (precommit nil) — and
// whether total prevotes at this round now warrant arming the prevote
// timeout.
func (sm *StateMachine) handlePrevote(pv message.PrevoteMessage) error {
	sm.log.AddPrevote(pv)
	if pv.Round != sm.round {
		return nil
	}
	threshold := sm.chain.Threshold()

	if pv.Hash != message.NilHash {
		if _, ok := sm.log.GetCandidate(pv.Hash); ok && sm.log.HasPrevoteQuorum(pv.Round, pv.Hash, threshold) {
			sm.valid = &ValidValue{Round: sm.round, Hash: pv.Hash}
			if sm.step == StepPrevote {
				sm.locked = &LockedValue{Round: sm.round, Hash: pv.Hash}
				if err := sm.castPrecommit(pv.Hash); err != nil {
					return err
				}
			}
		}
	} else if sm.step == StepPrevote && sm.log.HasPrevoteQuorum(pv.Round, message.NilHash, threshold) {
		if err := sm.castPrecommit(message.NilHash); err != nil {
			return err
		}
	}

	if !sm.prevoteTimeoutArmed && sm.log.CountPrevotes(pv.Round) >= threshold {
		sm.prevoteTimeoutArmed = true
		sm.armPrevoteTimeout(pv.Round)
	}
	return nil
}

func (sm *StateMachine) castPrecommit(hash message.BlockHash) error {
	pc, err := sm.crypto.SignPrecommit(sm.height, sm.round, hash)
	if err != nil {
		return err
	}
	sm.log.AddPrecommit(pc)
	sm.step = StepPrecommit
	return sm.network.BroadcastPrecommit(sm.ctx, pc)
}

// handlePrecommit records pc and checks for a decision: a precommit quorum
// for a known candidate decides the height outright, regardless of which
// round it was reached at. A nil-precommit quorum or a
// total-precommit threshold at the current round instead advances the
// round or arms the precommit timeout.
func (sm *StateMachine) handlePrecommit(pc message.PrecommitMessage) error {
	sm.log.AddPrecommit(pc)
	threshold := sm.chain.Threshold()

	if pc.Hash != message.NilHash {
		if block, ok := sm.log.GetCandidate(pc.Hash); ok && sm.log.HasPrecommitQuorum(pc.Round, pc.Hash, threshold) {
			return sm.decide(block)
		}
	}

	if pc.Round != sm.round {
		return nil
	}
	if !sm.precommitTimeoutArmed && sm.log.CountPrecommits(pc.Round) >= threshold {
		sm.precommitTimeoutArmed = true
		sm.armPrecommitTimeout(pc.Round)
	}
	if sm.log.HasPrecommitQuorum(pc.Round, message.NilHash, threshold) {
		sm.advanceRound(sm.round + 1)
	}
	return nil
}

// decide commits block and resets all per-height state to begin the next
// height at round 0. A second decision at
// the same height for a different block is the one fatal invariant
// violation this engine recognizes; the same block decided
// twice is treated as a harmless duplicate quorum notification.
func (sm *StateMachine) decide(block message.Block) error {
	hash := block.Hash()
	if sm.decision != nil {
		if *sm.decision != hash {
			return ErrFatalDoubleCommit
		}
		return nil
	}
	sm.decision = &hash

	if err := sm.chain.Update(block); err != nil {
		return err
	}

	sm.log.Reset()
	sm.prevHash = hash
	sm.height++
	sm.heightAtomic.Store(uint64(sm.height))
	sm.decision = nil
	sm.locked = nil
	sm.valid = nil
	sm.startRound(0)
	return nil
}

func (sm *StateMachine) advanceRound(newRound message.Round) {
	if newRound <= sm.round {
		return
	}
	sm.startRound(newRound)
}

func (sm *StateMachine) stopTimers() {
	if sm.proposeTimer != nil {
		sm.proposeTimer.Stop()
	}
	if sm.prevoteTimer != nil {
		sm.prevoteTimer.Stop()
	}
	if sm.precommitTimer != nil {
		sm.precommitTimer.Stop()
	}
}

func (sm *StateMachine) armProposeTimeout(round message.Round) {
	sm.proposeTimer = time.AfterFunc(sm.timeouts.Propose(uint32(round)), func() {
		sm.enqueue(func() { sm.onTimeoutPropose(round) })
	})
}

func (sm *StateMachine) armPrevoteTimeout(round message.Round) {
	sm.prevoteTimer = time.AfterFunc(sm.timeouts.Prevote(uint32(round)), func() {
		sm.enqueue(func() { sm.onTimeoutPrevote(round) })
	})
}

func (sm *StateMachine) armPrecommitTimeout(round message.Round) {
	sm.precommitTimer = time.AfterFunc(sm.timeouts.Precommit(uint32(round)), func() {
		sm.enqueue(func() { sm.onTimeoutPrecommit(round) })
	})
}

// onTimeoutPropose fires T_propose(R): having not moved past the propose
// step, prevote nil.
func (sm *StateMachine) onTimeoutPropose(round message.Round) {
	if round != sm.round || sm.step != StepPropose {
		return
	}
	if err := sm.castPrevote(message.NilHash, mapset.NewThreadUnsafeSet[message.TxHash]()); err != nil {
		sm.logger.Warnw("failed to broadcast nil prevote on propose timeout",
			"err", err, "height", sm.height, "round", round)
	}
}

// onTimeoutPrevote fires T_prevote(R): precommit nil without having formed
// a quorum for any specific block.
func (sm *StateMachine) onTimeoutPrevote(round message.Round) {
	if round != sm.round || sm.step != StepPrevote {
		return
	}
	if err := sm.castPrecommit(message.NilHash); err != nil {
		sm.logger.Warnw("failed to broadcast nil precommit on prevote timeout",
			"err", err, "height", sm.height, "round", round)
	}
}

// onTimeoutPrecommit fires T_precommit(R): move to the next round.
func (sm *StateMachine) onTimeoutPrecommit(round message.Round) {
	if round != sm.round {
		return
	}
	sm.advanceRound(sm.round + 1)
}
