// Package queue implements the HeightAwareQueue: a single-consumer,
// many-producer message pipe that hands the consensus engine only the
// messages relevant to the height it is currently deciding, discarding
// everything else.
//
// Modeled on an event-subscription idiom — a single channel drained by one
// goroutine — generalized from a process-wide event mux into a dedicated
// typed queue. Duplicate suppression follows a msgCache-by-hash idea via a
// bounded recently-seen cache instead of an unbounded map, so a
// long-running validator does not leak memory for heights long since
// committed.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/autonity/tendercore/message"
)

// DefaultDedupeSize bounds how many recently-seen message keys the queue
// remembers before evicting the oldest.
const DefaultDedupeSize = 4096

// HeightAwareQueue is safe for concurrent Put calls from many producers;
// Get is intended to be called by a single consumer goroutine at a time.
type HeightAwareQueue struct {
	ch   chan message.Message
	seen *lru.Cache[string, struct{}]

	mu     sync.Mutex
	counts map[message.Height]int
}

// New returns a HeightAwareQueue with the given channel buffer size and
// recently-seen dedupe cache size.
func New(bufSize, dedupeSize int) *HeightAwareQueue {
	if dedupeSize <= 0 {
		dedupeSize = DefaultDedupeSize
	}
	cache, err := lru.New[string, struct{}](dedupeSize)
	if err != nil {
		// Only returns an error for a non-positive size, which cannot
		// happen given the guard above.
		panic(err)
	}
	return &HeightAwareQueue{
		ch:     make(chan message.Message, bufSize),
		seen:   cache,
		counts: make(map[message.Height]int),
	}
}

// Put enqueues m. A message identical to one already seen (same dedupe
// key) is silently dropped — this is not an error, it is the normal
// shape of a gossiped network where every message arrives more than once.
func (q *HeightAwareQueue) Put(ctx context.Context, m message.Message) error {
	key := dedupeKey(m)
	if _, dup := q.seen.Get(key); dup {
		return nil
	}
	q.seen.Add(key, struct{}{})

	q.mu.Lock()
	q.counts[m.MessageHeight()]++
	q.mu.Unlock()

	select {
	case q.ch <- m:
		return nil
	case <-ctx.Done():
		q.mu.Lock()
		q.counts[m.MessageHeight()]--
		q.mu.Unlock()
		return ctx.Err()
	}
}

// Get returns the next message whose height equals the given height,
// discarding any message for a different height encountered along the
// way. It returns (nil, false) if nothing matching arrives before
// timeout elapses or ctx is cancelled.
//
// Ordering guarantee: among messages for the current height received
// after Get begins waiting, delivery is FIFO. There is no ordering
// guarantee across heights, since messages of other heights are dropped
// rather than requeued.
func (q *HeightAwareQueue) Get(ctx context.Context, height message.Height, timeout time.Duration) (message.Message, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case m := <-q.ch:
			q.mu.Lock()
			q.counts[m.MessageHeight()]--
			q.mu.Unlock()

			if m.MessageHeight() == height {
				return m, true
			}
			// Wrong height: dropped, not requeued.
			continue
		case <-timer.C:
			return nil, false
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Empty reports whether no buffered message currently matches height.
func (q *HeightAwareQueue) Empty(height message.Height) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.counts[height] == 0
}

var _ message.Service = (*HeightAwareQueue)(nil)

// dedupeKey derives a stable string identity for a message so the same
// logical vote or proposal, delivered twice by a gossiping network, is
// recognized as a repeat rather than queued again.
func dedupeKey(m message.Message) string {
	switch v := m.(type) {
	case message.ProposeBlockRequest:
		return fmt.Sprintf("P:%d:%s", v.Round, v.Block.Hash())
	case message.PrevoteMessage:
		return fmt.Sprintf("V:%d:%d:%s:%s", v.Height, v.Round, v.PubKey, v.Hash)
	case message.PrecommitMessage:
		return fmt.Sprintf("C:%d:%d:%s:%s", v.Height, v.Round, v.PubKey, v.Hash)
	default:
		return fmt.Sprintf("?:%v", m)
	}
}
