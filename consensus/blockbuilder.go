package consensus

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/autonity/tendercore/message"
)

// buildBlock assembles a candidate block from the mempool, leaving out any
// transaction in exclude and placing any transaction in prefer first, since a
// transaction the previous round's voters already judged reputable is worth
// including again if the proposer still knows about it. Neither list is
// authoritative — a proposer is free to include transactions outside
// prefer, and exclude is the only hard filter.
func (sm *StateMachine) buildBlock(exclude, prefer []message.TxHash) message.Block {
	excludeSet := make(map[message.TxHash]bool, len(exclude))
	for _, h := range exclude {
		excludeSet[h] = true
	}
	preferSet := make(map[message.TxHash]bool, len(prefer))
	for _, h := range prefer {
		preferSet[h] = true
	}

	var preferred, rest []message.Transaction
	for _, tx := range sm.mempool.Get(0) {
		if excludeSet[tx.Hash] {
			continue
		}
		if preferSet[tx.Hash] {
			preferred = append(preferred, tx)
		} else {
			rest = append(rest, tx)
		}
	}
	txs := append(preferred, rest...)

	header := message.BlockHeader{
		Height:   sm.height,
		Proposer: sm.crypto.GetPubKey(),
		PrevHash: sm.prevHash,
	}
	header.Hash = contentHash(header, txs)
	return message.Block{Header: header, Body: message.BlockBody{Transactions: txs}}
}

// contentHash derives a block's identity from its content. Hash derivation
// itself is delegated and opaque — a real deployment would use
// whatever canonical serialization and hash function its Chain
// implementation already has; this is a good-enough, order-independent
// content digest for the in-module demo harness and tests, not a
// cryptographic commitment.
func contentHash(header message.BlockHeader, txs []message.Transaction) message.BlockHash {
	hashes := make([]string, len(txs))
	for i, tx := range txs {
		hashes[i] = string(tx.Hash)
	}
	sort.Strings(hashes)

	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%s|%s", header.Height, header.Proposer, header.PrevHash)
	for _, th := range hashes {
		fmt.Fprintf(h, "|%s", th)
	}
	return message.BlockHash(fmt.Sprintf("%016x", h.Sum64()))
}
