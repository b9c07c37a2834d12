// Package chainfake is a deterministic stand-in for the Chain
// collaborator: validator set, commit threshold, and the
// durable "apply this block" call. It also supplies a proposer selection
// function, which the consensus package treats as an externally supplied
// pure function rather than a Chain capability, implemented here as
// simple round-robin over a fixed, sorted validator list.
package chainfake

import (
	"sort"
	"sync"

	"github.com/autonity/tendercore/message"
)

// Chain is an in-memory fake implementing message.Chain.
type Chain struct {
	mu         sync.Mutex
	height     message.Height
	validators []message.PubKey
	committed  []message.Block
}

// New returns a Chain starting at the given height with the given
// (stably sorted) validator set.
func New(height message.Height, validators []message.PubKey) *Chain {
	vs := append([]message.PubKey(nil), validators...)
	sort.Slice(vs, func(i, j int) bool { return vs[i] < vs[j] })
	return &Chain{height: height, validators: vs}
}

func (c *Chain) Height() message.Height {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height
}

// Threshold returns floor(2N/3) + 1, strictly more than two-thirds of the
// validator set.
func (c *Chain) Threshold() int {
	c.mu.Lock()
	n := len(c.validators)
	c.mu.Unlock()
	return Threshold(n)
}

// Threshold computes floor(2N/3) + 1 for a validator set of size n — the
// standard BFT quorum size (strictly more than two-thirds) that, for
// N = 3f+1 validators, equals 2f+1.
func Threshold(n int) int {
	return (2*n)/3 + 1
}

func (c *Chain) Update(block message.Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.committed = append(c.committed, block)
	c.height = block.Header.Height + 1
	return nil
}

func (c *Chain) GetValidators() []message.PubKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]message.PubKey(nil), c.validators...)
}

func (c *Chain) IsValidator(pk message.PubKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.validators {
		if v == pk {
			return true
		}
	}
	return false
}

// Committed returns every block passed to Update so far, in order.
func (c *Chain) Committed() []message.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]message.Block(nil), c.committed...)
}

// Proposer selects the proposer for (height, round) by round-robin over
// the validator set, as a pure deterministic function of both.
func (c *Chain) Proposer(height message.Height, round message.Round) message.PubKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.validators) == 0 {
		return ""
	}
	idx := (uint64(height) + uint64(round)) % uint64(len(c.validators))
	return c.validators[idx]
}

var _ message.Chain = (*Chain)(nil)
