// Package message defines the wire-level types that flow between the
// consensus state machine and its external collaborators: blocks,
// transactions, votes, and the three message kinds a validator exchanges
// during a round (proposal, prevote, precommit).
package message

// Height identifies the block being decided. It increases monotonically.
type Height uint64

// Round identifies a voting attempt within a height. Rounds run 0, 1, 2, …
// until the height commits.
type Round uint32

// PubKey uniquely identifies a validator. The engine treats it as opaque.
type PubKey string

// BlockHash identifies a block by content. The zero value, NilHash, means
// "vote for nothing" wherever a BlockHash appears as a vote target.
type BlockHash string

// NilHash is the sentinel "no block" target used by prevotes and
// precommits that abstain.
const NilHash BlockHash = ""

// TxHash identifies a transaction by content.
type TxHash string

// Transaction is an opaque payload with a derivable hash. Hash derivation
// itself is delegated to the Crypto/Validation collaborators; the engine
// only ever compares hashes.
type Transaction struct {
	Hash    TxHash
	Payload []byte
}

// BlockHeader carries a block's identity and lineage.
type BlockHeader struct {
	Hash     BlockHash
	Height   Height
	Proposer PubKey
	PrevHash BlockHash
}

// BlockBody carries a block's ordered transaction list.
type BlockBody struct {
	Transactions []Transaction
}

// Block is a proposer's candidate for a height.
type Block struct {
	Header BlockHeader
	Body   BlockBody
}

// Hash returns the block's content-derived identity.
func (b Block) Hash() BlockHash { return b.Header.Hash }
