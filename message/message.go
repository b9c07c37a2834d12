package message

import mapset "github.com/deckarep/golang-set/v2"

// ProposeBlockRequest is the proposer's broadcast of a candidate block for
// a round. The block header's hash is its authoritative identity; it is
// NOT keyed by the sender, since a height has at most one honest proposer
// per round but byzantine proposers may send conflicting proposals that
// the journal tracks as independent candidates.
type ProposeBlockRequest struct {
	Round Round
	Block Block
}

// PrevoteMessage is a validator's first vote of a round: either for a
// specific block or, with Hash == NilHash, an explicit abstention.
// InvalidTxs is the voter's opinion of which transactions in the target
// block it considers invalid; it feeds the per-round transaction reputation
// tally. Nil-target prevotes cast by this engine carry an empty set; the
// journal still blacklists any hashes a nil-target prevote does carry.
type PrevoteMessage struct {
	Height     Height
	Round      Round
	PubKey     PubKey
	Hash       BlockHash
	InvalidTxs mapset.Set[TxHash]
}

// PrecommitMessage is a validator's second vote of a round, committing (or, with
// Hash == NilHash, refusing to commit) to a block for a round.
type PrecommitMessage struct {
	Height Height
	Round  Round
	PubKey PubKey
	Hash   BlockHash
}

// Message is the closed set of wire messages the consensus engine consumes
// and produces. It is a tagged sum modeled as an interface with an
// unexported marker, so only the three kinds in this package satisfy it.
// Callers switch on the concrete type to handle a message (the state
// machine's type switch rejects anything else with an error); the one
// method, MessageHeight, exists for height filtering.
type Message interface {
	isMessage()
	// MessageHeight returns the height the message pertains to, used by
	// the HeightAwareQueue to filter messages against the current height.
	MessageHeight() Height
}

func (ProposeBlockRequest) isMessage() {}
func (PrevoteMessage) isMessage()      {}
func (PrecommitMessage) isMessage()    {}

// MessageHeight implementations. ProposeBlockRequest has no top-level
// Height field on the wire (pera proposal is `{round, block}`);
// its height is the block's own header height.
func (p ProposeBlockRequest) MessageHeight() Height { return p.Block.Header.Height }
func (p PrevoteMessage) MessageHeight() Height      { return p.Height }
func (p PrecommitMessage) MessageHeight() Height    { return p.Height }
