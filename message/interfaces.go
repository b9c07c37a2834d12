package message

import (
	"context"
	"time"
)

// Crypto signs outbound messages on behalf of this validator. Signature
// verification of inbound messages happens upstream of the engine; the
// engine only ever calls the signing half.
type Crypto interface {
	GetPubKey() PubKey
	SignProposal(round Round, block Block) (ProposeBlockRequest, error)
	SignPrevote(height Height, round Round, hash BlockHash) (PrevoteMessage, error)
	SignPrecommit(height Height, round Round, hash BlockHash) (PrecommitMessage, error)
}

// Network broadcasts signed messages. Each method returns once the
// message has been submitted for delivery, not once it has reached peers.
type Network interface {
	BroadcastProposal(ctx context.Context, p ProposeBlockRequest) error
	BroadcastPrevote(ctx context.Context, p PrevoteMessage) error
	BroadcastPrecommit(ctx context.Context, p PrecommitMessage) error
}

// Chain is the durable chain store: validator set, commit threshold, and
// block application. It is the source of truth for the validator set size
// and the quorum threshold derived from it.
type Chain interface {
	Height() Height
	Threshold() int
	Update(block Block) error
	GetValidators() []PubKey
	IsValidator(pk PubKey) bool
}

// Mempool supplies pending transactions to a proposer and accepts newly
// observed ones.
type Mempool interface {
	Get(quantity int) []Transaction
	Add(tx Transaction) bool
	Remove(tx Transaction) bool
}

// Validation checks transaction and block validity. A validation failure
// never aborts an operation; it drives a nil-prevote or a blacklist
// increment.
type Validation interface {
	ValidateTx(tx Transaction) bool
	ValidateBlock(block Block) bool
}

// Service is the height-aware message queue external collaborators push
// inbound wire messages into.
type Service interface {
	Put(ctx context.Context, m Message) error
	Get(ctx context.Context, height Height, timeout time.Duration) (Message, bool)
	Empty(height Height) bool
}
