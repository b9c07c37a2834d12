// Package journal implements MessageLog, the per-height accumulator of
// prevotes, precommits, and block proposals that the consensus state
// machine queries to decide whether a round predicate fires. It also
// maintains the per-round transaction reputation tally (the whitelist and
// blacklist counts) used to build a cleaned-up block body once a
// proposer's included transactions have been judged by a quorum.
//
// Grounded on consensus/tendermint/core/msg_store.go's nested-map idiom,
// collapsed to the per-height scope this journal owns (msg_store.go
// additionally indexes by height because a single long-lived store spans
// many heights; MessageLog instead gets rebuilt wholesale on height
// advance, since all per-height state becomes irrelevant the moment the
// height moves on).
package journal

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/autonity/tendercore/message"
)

// MessageLog is the per-height journal of votes and proposals. It is owned
// exclusively by the consensus state machine; nothing else mutates it.
type MessageLog struct {
	prevotes   map[message.Round]map[message.PubKey]message.PrevoteMessage
	precommits map[message.Round]map[message.PubKey]message.PrecommitMessage
	proposals  map[message.BlockHash]message.Block

	txWhitelist map[message.Round]map[message.TxHash]int
	txBlacklist map[message.Round]map[message.TxHash]int
}

// New returns an empty MessageLog.
func New() *MessageLog {
	return &MessageLog{
		prevotes:    make(map[message.Round]map[message.PubKey]message.PrevoteMessage),
		precommits:  make(map[message.Round]map[message.PubKey]message.PrecommitMessage),
		proposals:   make(map[message.BlockHash]message.Block),
		txWhitelist: make(map[message.Round]map[message.TxHash]int),
		txBlacklist: make(map[message.Round]map[message.TxHash]int),
	}
}

// Reset discards all per-height state by reconstructing the log from
// scratch, rather than iterating and clearing each map — this avoids
// leaving stale round entries behind.
func (l *MessageLog) Reset() {
	l.prevotes = make(map[message.Round]map[message.PubKey]message.PrevoteMessage)
	l.precommits = make(map[message.Round]map[message.PubKey]message.PrecommitMessage)
	l.proposals = make(map[message.BlockHash]message.Block)
	l.txWhitelist = make(map[message.Round]map[message.TxHash]int)
	l.txBlacklist = make(map[message.Round]map[message.TxHash]int)
}

// AddMessage dispatches m by its concrete kind to the matching adder. It
// returns true when the message was newly recorded, false on duplicate.
func (l *MessageLog) AddMessage(m message.Message) bool {
	switch v := m.(type) {
	case message.ProposeBlockRequest:
		return l.AddProposal(v)
	case message.PrevoteMessage:
		return l.AddPrevote(v)
	case message.PrecommitMessage:
		return l.AddPrecommit(v)
	default:
		return false
	}
}

// AddProposal records a proposal keyed by its block hash. Proposals are
// append-only within a height: an attempt to add an already-known hash is
// a no-op.
func (l *MessageLog) AddProposal(p message.ProposeBlockRequest) bool {
	hash := p.Block.Hash()
	if _, ok := l.proposals[hash]; ok {
		return false
	}
	l.proposals[hash] = p.Block
	return true
}

// AddPrecommit inserts pc into precommits[pc.Round]. A duplicate pubkey at
// that round is a no-op returning false.
func (l *MessageLog) AddPrecommit(pc message.PrecommitMessage) bool {
	round, ok := l.precommits[pc.Round]
	if !ok {
		round = make(map[message.PubKey]message.PrecommitMessage)
		l.precommits[pc.Round] = round
	}
	if _, dup := round[pc.PubKey]; dup {
		return false
	}
	round[pc.PubKey] = pc
	return true
}

// AddPrevote inserts pv into prevotes[pv.Round] and updates the
// transaction reputation tally.
//
// On a new vote:
//  1. prevotes[R], txWhitelist[R], and txBlacklist[R] are lazily created
//     together, so every round that has prevotes also has both tally
//     tables, even if both are empty.
//  2. A duplicate pubkey at this round is a no-op: it returns false
//     without touching either tally, so a resubmission can never inflate
//     a tx's reputation.
//  3. Every tx the voter flagged as invalid gets +1 in the blacklist,
//     initializing its counter to 0 first.
//  4. If the referenced block is already known, every one of its
//     transactions NOT flagged as invalid gets +1 in the whitelist. A
//     prevote that arrives before its proposal can only ever touch the
//     blacklist; the implementation deliberately does not retroactively
//     whitelist once the block later arrives, so tallies stay lossy with
//     respect to message ordering rather than silently rewriting history.
func (l *MessageLog) AddPrevote(pv message.PrevoteMessage) bool {
	round, ok := l.prevotes[pv.Round]
	if !ok {
		round = make(map[message.PubKey]message.PrevoteMessage)
		l.prevotes[pv.Round] = round
		l.txWhitelist[pv.Round] = make(map[message.TxHash]int)
		l.txBlacklist[pv.Round] = make(map[message.TxHash]int)
	}
	if _, dup := round[pv.PubKey]; dup {
		return false
	}

	blacklist := l.txBlacklist[pv.Round]
	invalid := pv.InvalidTxs
	if invalid == nil {
		invalid = mapset.NewThreadUnsafeSet[message.TxHash]()
	}
	invalid.Each(func(t message.TxHash) bool {
		blacklist[t]++
		return false
	})

	if block, known := l.proposals[pv.Hash]; known {
		whitelist := l.txWhitelist[pv.Round]
		for _, tx := range block.Body.Transactions {
			if invalid.Contains(tx.Hash) {
				continue
			}
			whitelist[tx.Hash]++
		}
	}

	round[pv.PubKey] = pv
	return true
}

// CountPrevotesFor counts prevotes at round whose target equals hash
// (message.NilHash counts abstentions).
func (l *MessageLog) CountPrevotesFor(round message.Round, hash message.BlockHash) int {
	n := 0
	for _, v := range l.prevotes[round] {
		if v.Hash == hash {
			n++
		}
	}
	return n
}

// CountPrecommitsFor counts precommits at round whose target equals hash.
func (l *MessageLog) CountPrecommitsFor(round message.Round, hash message.BlockHash) int {
	n := 0
	for _, v := range l.precommits[round] {
		if v.Hash == hash {
			n++
		}
	}
	return n
}

// HasPrevoteQuorum reports whether at least threshold prevotes at round
// target hash.
func (l *MessageLog) HasPrevoteQuorum(round message.Round, hash message.BlockHash, threshold int) bool {
	return l.CountPrevotesFor(round, hash) >= threshold
}

// HasPrecommitQuorum reports whether at least threshold precommits at
// round target hash.
func (l *MessageLog) HasPrecommitQuorum(round message.Round, hash message.BlockHash, threshold int) bool {
	return l.CountPrecommitsFor(round, hash) >= threshold
}

// GetCandidate looks up a previously recorded proposal by hash. The second
// return value is false if no proposal with that hash has been seen.
func (l *MessageLog) GetCandidate(hash message.BlockHash) (message.Block, bool) {
	b, ok := l.proposals[hash]
	return b, ok
}

// GetInvalidTxs returns the tx hashes whose blacklist count at round meets
// threshold, in no particular order.
func (l *MessageLog) GetInvalidTxs(round message.Round, threshold int) []message.TxHash {
	return aboveThreshold(l.txBlacklist[round], threshold)
}

// GetValidTxs returns the tx hashes whose whitelist count at round meets
// threshold, in no particular order.
func (l *MessageLog) GetValidTxs(round message.Round, threshold int) []message.TxHash {
	return aboveThreshold(l.txWhitelist[round], threshold)
}

func aboveThreshold(counts map[message.TxHash]int, threshold int) []message.TxHash {
	out := make([]message.TxHash, 0, len(counts))
	for tx, n := range counts {
		if n >= threshold {
			out = append(out, tx)
		}
	}
	return out
}
