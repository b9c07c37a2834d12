package consensus

import "errors"

// Sentinel errors for the error taxonomy. Duplicate submissions and
// stale-height messages are NOT represented as errors — add_* returns a
// bool, and the queue simply drops stale messages — these sentinels cover
// the remaining, genuinely exceptional cases.
var (
	// ErrUnknownMessageKind is returned when Dispatch receives a
	// message.Message whose concrete type is none of the three wire
	// kinds the engine understands.
	ErrUnknownMessageKind = errors.New("consensus: unknown message kind")

	// ErrNotCommitteeMember is returned when a message's sender is not a
	// member of the current validator set.
	ErrNotCommitteeMember = errors.New("consensus: sender is not a committee member")

	// ErrFatalDoubleCommit is the one fatal invariant violation this
	// engine recognizes explicitly: deciding two different blocks at the
	// same height. It indicates a safety bug or a byzantine fault beyond
	// the tolerance bound, and aborts the engine rather than being
	// handled as an ordinary error.
	ErrFatalDoubleCommit = errors.New("consensus: fatal: attempted to commit two different blocks at the same height")
)
