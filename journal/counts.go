package journal

import "github.com/autonity/tendercore/message"

// CountPrevotes returns the total number of prevotes recorded at round,
// across every target (used to arm the prevote timeout once any mix of
// votes reaches threshold).
func (l *MessageLog) CountPrevotes(round message.Round) int {
	return len(l.prevotes[round])
}

// CountPrecommits returns the total number of precommits recorded at
// round, across every target.
func (l *MessageLog) CountPrecommits(round message.Round) int {
	return len(l.precommits[round])
}
