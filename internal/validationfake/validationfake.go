// Package validationfake is a deterministic stand-in for the Validation
// collaborator: a configurable, opinionated verdict on
// transactions and blocks, so tests can script byzantine-proposer
// scenarios.
package validationfake

import "github.com/autonity/tendercore/message"

// Validation is a fake implementing message.Validation. By default every
// transaction and block is valid; mark specific tx hashes invalid with
// RejectTx, or force every block invalid with RejectAllBlocks.
type Validation struct {
	invalidTxs      map[message.TxHash]bool
	rejectAllBlocks bool
}

// New returns a Validation that accepts everything until configured
// otherwise.
func New() *Validation {
	return &Validation{invalidTxs: make(map[message.TxHash]bool)}
}

// RejectTx marks h as an invalid transaction from now on.
func (v *Validation) RejectTx(h message.TxHash) {
	v.invalidTxs[h] = true
}

// RejectAllBlocks makes ValidateBlock always fail.
func (v *Validation) RejectAllBlocks(reject bool) {
	v.rejectAllBlocks = reject
}

func (v *Validation) ValidateTx(tx message.Transaction) bool {
	return !v.invalidTxs[tx.Hash]
}

func (v *Validation) ValidateBlock(block message.Block) bool {
	return !v.rejectAllBlocks
}

var _ message.Validation = (*Validation)(nil)
