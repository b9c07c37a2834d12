// Package netfake is a deterministic stand-in for the Network
// collaborator. It records every broadcast and, when wired to
// one or more peer queues, delivers the message synchronously to them —
// enough to run a multi-validator scenario in-process without any real
// transport.
package netfake

import (
	"context"
	"sync"

	"github.com/autonity/tendercore/message"
)

// Recorder captures everything broadcast through it, in order.
type Recorder struct {
	mu          sync.Mutex
	Proposals   []message.ProposeBlockRequest
	Prevotes    []message.PrevoteMessage
	Precommits  []message.PrecommitMessage
	deliverTo   []message.Service
	deliverCtx  context.Context
}

// New returns a Recorder that also delivers every broadcast message to
// each of the given services (simulating peers receiving the gossip),
// using ctx for the delivery calls.
func New(ctx context.Context, deliverTo ...message.Service) *Recorder {
	return &Recorder{deliverTo: deliverTo, deliverCtx: ctx}
}

func (r *Recorder) BroadcastProposal(ctx context.Context, p message.ProposeBlockRequest) error {
	r.mu.Lock()
	r.Proposals = append(r.Proposals, p)
	r.mu.Unlock()
	return r.deliver(p)
}

func (r *Recorder) BroadcastPrevote(ctx context.Context, p message.PrevoteMessage) error {
	r.mu.Lock()
	r.Prevotes = append(r.Prevotes, p)
	r.mu.Unlock()
	return r.deliver(p)
}

func (r *Recorder) BroadcastPrecommit(ctx context.Context, p message.PrecommitMessage) error {
	r.mu.Lock()
	r.Precommits = append(r.Precommits, p)
	r.mu.Unlock()
	return r.deliver(p)
}

func (r *Recorder) deliver(m message.Message) error {
	for _, svc := range r.deliverTo {
		if err := svc.Put(r.deliverCtx, m); err != nil {
			return err
		}
	}
	return nil
}

// ProposalCount, PrevoteCount, and PrecommitCount report how many of each
// message kind have been broadcast so far, for test assertions.
func (r *Recorder) ProposalCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Proposals)
}

func (r *Recorder) PrevoteCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Prevotes)
}

func (r *Recorder) PrecommitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Precommits)
}

var _ message.Network = (*Recorder)(nil)
