package gamenet

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

var timeZero = time.Unix(1700000000, 0)

func sendPayloads(t *testing.T, s *sendChannel, count int) []*sendEntry {
	entries := make([]*sendEntry, count)
	for i := 0; i < count; i++ {
		entry, err := s.send([]byte{byte(i)}, timeZero)
		assert.NoError(t, err)
		entries[i] = entry
	}
	return entries
}

func TestSendAssignsIncreasingSequences(t *testing.T) {
	s := newSendChannel(16)
	entries := sendPayloads(t, s, 3)

	assert.Equal(t, uint16(0), entries[0].seq)
	assert.Equal(t, uint16(1), entries[1].seq)
	assert.Equal(t, uint16(2), entries[2].seq)
	assert.Equal(t, 3, s.outstanding)
}

func TestSendCopiesPayload(t *testing.T) {
	s := newSendChannel(16)
	payload := []byte("mutate me")
	entry, err := s.send(payload, timeZero)
	assert.NoError(t, err)

	payload[0] = 'X'
	assert.Equal(t, byte('m'), entry.payload[0])
}

func TestSendWindowFull(t *testing.T) {
	s := newSendChannel(4)
	sendPayloads(t, s, 4)

	_, err := s.send([]byte("overflow"), timeZero)
	assert.True(t, errors.Is(err, ErrWindowFull))

	// acking one entry frees its slot again
	s.onAck(0, 0, timeZero)
	_, err = s.send([]byte("fits"), timeZero)
	assert.NoError(t, err)
}

func TestOnAckRemovesDirectAndBitfield(t *testing.T) {
	s := newSendChannel(16)
	sendPayloads(t, s, 3)

	// ack=2 with bit 0 set covers sequences 2 and 1
	lost := s.onAck(2, 0b1, timeZero)
	assert.Equal(t, 1, s.outstanding)

	// entry 0 is older than the ack and not covered, presumed lost
	assert.Len(t, lost, 1)
	assert.Equal(t, uint16(0), lost[0].seq)
}

func TestOnAckIsIdempotent(t *testing.T) {
	s := newSendChannel(16)
	sendPayloads(t, s, 2)

	s.onAck(1, 0b1, timeZero)
	assert.Equal(t, 0, s.outstanding)

	lost := s.onAck(1, 0b1, timeZero)
	assert.Empty(t, lost)
	assert.Equal(t, 0, s.outstanding)
}

func TestOnAckRefreshesLostEntryTimestamp(t *testing.T) {
	s := newSendChannel(16)
	sendPayloads(t, s, 2)

	later := timeZero.Add(40 * time.Millisecond)
	lost := s.onAck(1, 0, later)
	assert.Len(t, lost, 1)
	assert.Equal(t, later, lost[0].timeSent)

	// a refreshed entry is not due on the next timeout scan
	assert.Empty(t, s.timedOut(later.Add(99*time.Millisecond), 100*time.Millisecond))
}

func TestOnAckEmptySnapshotTouchesNothing(t *testing.T) {
	s := newSendChannel(16)
	sendPayloads(t, s, 3)

	lost := s.onAck(emptySnapshotAck, 0, timeZero)
	assert.Empty(t, lost)
	assert.Equal(t, 3, s.outstanding)
}

func TestTimedOutResendsWithSameSequence(t *testing.T) {
	s := newSendChannel(16)
	sendPayloads(t, s, 2)

	timeout := 100 * time.Millisecond
	assert.Empty(t, s.timedOut(timeZero.Add(timeout-1), timeout))

	now := timeZero.Add(timeout)
	expired := s.timedOut(now, timeout)
	assert.Len(t, expired, 2)
	assert.Equal(t, uint16(0), expired[0].seq)
	assert.Equal(t, uint16(1), expired[1].seq)
	assert.Equal(t, now, expired[0].timeSent)

	// still tracked until acknowledged
	assert.Equal(t, 2, s.outstanding)
}

func TestAckAfterRetransmissionRemovesEntry(t *testing.T) {
	s := newSendChannel(16)
	sendPayloads(t, s, 1)

	now := timeZero.Add(200 * time.Millisecond)
	assert.Len(t, s.timedOut(now, 100*time.Millisecond), 1)

	s.onAck(0, 0, now.Add(50*time.Millisecond))
	assert.Equal(t, 0, s.outstanding)
	assert.Empty(t, s.timedOut(now.Add(time.Second), 100*time.Millisecond))
}

func TestOnAckWraparound(t *testing.T) {
	s := newSendChannel(16)
	s.localSeq = 65534
	entry1, err := s.send([]byte("a"), timeZero) // seq 65534
	assert.NoError(t, err)
	entry2, err := s.send([]byte("b"), timeZero) // seq 65535
	assert.NoError(t, err)
	entry3, err := s.send([]byte("c"), timeZero) // seq 0
	assert.NoError(t, err)

	// ack seq 0 with bits covering 65535 and 65534
	lost := s.onAck(entry3.seq, 0b11, timeZero)
	assert.Empty(t, lost)
	assert.Equal(t, 0, s.outstanding)
	_ = entry1
	_ = entry2
}

func TestRttRecordedOnAck(t *testing.T) {
	s := newSendChannel(16)
	sendPayloads(t, s, 1)

	s.onAck(0, 0, timeZero.Add(60*time.Millisecond))
	// one default sample plus one 60ms measurement
	assert.Equal(t, 80*time.Millisecond, s.rtt.average())
}
