package gamenet

import (
	"time"

	"github.com/pkg/errors"
)

// sendEntry tracks one reliable packet awaiting acknowledgment. The payload
// is an owned copy, immutable after creation; timeSent is refreshed on every
// retransmission.
type sendEntry struct {
	seq      uint16
	payload  []byte
	timeSent time.Time
}

// sendChannel owns the outgoing half of a peer connection: it assigns
// sequence numbers and keeps unacknowledged entries in a slot array indexed
// by seq modulo capacity, the same partitioning the receive side uses for
// its window.
type sendChannel struct {
	localSeq    uint16
	entries     []*sendEntry
	outstanding int
	rtt         *rttTracker
}

func newSendChannel(maxOutstanding int) *sendChannel {
	return &sendChannel{
		entries: make([]*sendEntry, maxOutstanding),
		rtt:     newRttTracker(),
	}
}

// send assigns the next local sequence number to payload and registers it
// for retransmission tracking. The entry table doubles as the backpressure
// cap: an occupied slot means MaxOutstanding packets already await
// acknowledgment and the send is refused.
func (s *sendChannel) send(payload []byte, now time.Time) (*sendEntry, error) {
	index := int(s.localSeq) % len(s.entries)
	if s.entries[index] != nil {
		return nil, errors.Wrapf(ErrWindowFull, "%d unacked entries", s.outstanding)
	}
	entry := &sendEntry{
		seq:      s.localSeq,
		payload:  append([]byte(nil), payload...),
		timeSent: now,
	}
	s.localSeq++
	s.entries[index] = entry
	s.outstanding++
	return entry, nil
}

// onAck removes every entry the peer confirms delivered, directly via ack
// or through a set bitfield bit, then returns the entries presumed lost: a
// strictly newer packet has reached the peer without these being covered,
// so they are resent without waiting for the timeout. Returned entries have
// timeSent refreshed to now.
func (s *sendChannel) onAck(ack uint16, ackBits uint32, now time.Time) []*sendEntry {
	s.ackEntry(ack, now)
	for i := uint16(0); i < ackWindowSize; i++ {
		if ackBits&(1<<i) != 0 {
			s.ackEntry(ack-(i+1), now)
		}
	}

	var lost []*sendEntry
	for _, entry := range s.entries {
		if entry != nil && isMoreRecent(ack, entry.seq) {
			entry.timeSent = now
			lost = append(lost, entry)
		}
	}
	return lost
}

// ackEntry is idempotent, acknowledging a sequence that is unknown or
// already removed is a no-op.
func (s *sendChannel) ackEntry(seq uint16, now time.Time) {
	index := int(seq) % len(s.entries)
	entry := s.entries[index]
	if entry == nil || entry.seq != seq {
		return
	}
	s.rtt.record(entry.timeSent, now)
	s.entries[index] = nil
	s.outstanding--
}

// timedOut returns every entry unacknowledged for at least timeout, with
// timeSent refreshed. Entries keep their original sequence number across
// retransmissions so the receiver's window still recognizes duplicates.
func (s *sendChannel) timedOut(now time.Time, timeout time.Duration) []*sendEntry {
	var expired []*sendEntry
	for _, entry := range s.entries {
		if entry != nil && now.Sub(entry.timeSent) >= timeout {
			entry.timeSent = now
			expired = append(expired, entry)
		}
	}
	return expired
}
