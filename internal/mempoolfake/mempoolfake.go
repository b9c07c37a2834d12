// Package mempoolfake is a deterministic stand-in for the Mempool
// collaborator: an in-memory, order-preserving set of pending
// transactions.
package mempoolfake

import (
	"sync"

	"github.com/autonity/tendercore/message"
)

// Mempool is an in-memory fake implementing message.Mempool.
type Mempool struct {
	mu  sync.Mutex
	txs []message.Transaction
}

// New returns an empty Mempool.
func New() *Mempool {
	return &Mempool{}
}

// Get returns up to quantity pending transactions, oldest first. A
// non-positive quantity returns every pending transaction.
func (m *Mempool) Get(quantity int) []message.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	if quantity <= 0 || quantity > len(m.txs) {
		quantity = len(m.txs)
	}
	return append([]message.Transaction(nil), m.txs[:quantity]...)
}

func (m *Mempool) Add(tx message.Transaction) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txs {
		if t.Hash == tx.Hash {
			return false
		}
	}
	m.txs = append(m.txs, tx)
	return true
}

func (m *Mempool) Remove(tx message.Transaction) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.txs {
		if t.Hash == tx.Hash {
			m.txs = append(m.txs[:i], m.txs[i+1:]...)
			return true
		}
	}
	return false
}

var _ message.Mempool = (*Mempool)(nil)
