// Package gamenet is a reliability layer for unreliable, unordered datagram
// transports. It gives the sender ack-driven retransmission and the
// receiver duplicate suppression within a bounded lookback window, without
// imposing in-order delivery or congestion control. Transport and clock are
// supplied by the caller, the core only transforms byte buffers.
package gamenet

import (
	"time"

	"github.com/pkg/errors"
)

// Channel pairs the sending and receiving half of one peer connection. All
// operations are synchronous in-memory transforms and perform no I/O; the
// caller owns the transport, the clock and, when sharing a Channel between
// goroutines, the mutual exclusion.
type Channel struct {
	cfg Config
	snd *sendChannel
	rcv *receiveChannel
	// unreliable and ack-only packets consume their own sequence counter,
	// the receive window must never track sequences that are not
	// retransmitted
	unreliableSeq uint16
	// packets produced outside an explicit send, fast retransmissions
	// mostly, waiting to be handed to the transport
	queued [][]byte
}

func NewChannel(cfg Config) *Channel {
	cfg = cfg.withDefaults()
	return &Channel{
		cfg: cfg,
		snd: newSendChannel(cfg.MaxOutstanding),
		rcv: newReceiveChannel(),
	}
}

// Send assigns the next local sequence number to payload and returns the
// encoded packet for dispatch. The packet stays registered for
// retransmission until the peer acknowledges it. Fails with ErrWindowFull
// once MaxOutstanding packets are in flight.
func (c *Channel) Send(payload []byte, timestamp time.Time) ([]byte, error) {
	entry, err := c.snd.send(payload, timestamp)
	if err != nil {
		return nil, err
	}
	return c.packetFor(entry), nil
}

// SendUnreliable builds a fire-and-forget packet: no tracking, no
// retransmission, but it still carries the current ack snapshot so reverse
// traffic keeps the peer's send window moving.
func (c *Channel) SendUnreliable(payload []byte) []byte {
	return c.untrackedPacket(packetUnreliable, payload)
}

// Receive decodes one inbound datagram, classifies it against the receive
// window and processes its embedded ack fields. The returned payload is an
// owned copy, non-nil only for PacketNew. Fast retransmissions inferred
// from the ack fields are queued and picked up by Flush or Tick.
//
// A malformed buffer fails with ErrMalformedHeader, a foreign type tag with
// ErrWrongPacketType; neither disturbs the channel state.
func (c *Channel) Receive(packet []byte, timestamp time.Time) (StatusCode, []byte, error) {
	h, err := readHeader(packet)
	if err != nil {
		if errors.Is(err, ErrWrongPacketType) {
			return WrongPacketType, nil, err
		}
		return Fail, nil, err
	}
	data := packet[headerSize:]

	var status StatusCode
	var payload []byte
	switch h.packetType {
	case packetReliable:
		status = c.rcv.receive(h.seq)
		c.rcv.pendingAck = true
		if status == PacketNew && len(data) > 0 {
			payload = append([]byte(nil), data...)
		}
	case packetUnreliable:
		if len(data) > 0 {
			status = PacketNew
			payload = append([]byte(nil), data...)
		} else {
			status = AckProcessed
		}
	case packetAck:
		status = AckProcessed
	}

	// ack fields are processed whatever the classification outcome
	for _, entry := range c.snd.onAck(h.ack, h.ackBits, timestamp) {
		c.queued = append(c.queued, c.packetFor(entry))
	}

	return status, payload, nil
}

// Tick drives time-based retransmission and ack upkeep. It returns every
// packet due for the transport: entries unacknowledged past the
// retransmission timeout, queued fast retransmissions, and a header-only
// ack when inbound traffic had no outgoing packet to piggyback on. The
// caller invokes it periodically, the channel owns no timer.
func (c *Channel) Tick(now time.Time) [][]byte {
	for _, entry := range c.snd.timedOut(now, c.cfg.RetransmissionTimeout) {
		c.queued = append(c.queued, c.packetFor(entry))
	}
	if c.rcv.pendingAck {
		c.queued = append(c.queued, c.untrackedPacket(packetAck, nil))
	}
	return c.Flush()
}

// Flush drains packets queued since the last call, fast retransmissions
// triggered by Receive in particular, so they can go out before the next
// tick.
func (c *Channel) Flush() [][]byte {
	out := c.queued
	c.queued = nil
	return out
}

// RTT returns the average measured round trip from send to acknowledgment.
func (c *Channel) RTT() time.Duration {
	return c.snd.rtt.average()
}

// Outstanding returns the number of sent packets still awaiting
// acknowledgment.
func (c *Channel) Outstanding() int {
	return c.snd.outstanding
}

// packetFor encodes entry under a fresh header carrying the current ack
// snapshot. Retransmissions reuse the original sequence number, the
// receiver's dedup identity must not change.
func (c *Channel) packetFor(entry *sendEntry) []byte {
	snap := c.rcv.snapshot()
	c.rcv.pendingAck = false
	return createPacket(header{
		packetType: packetReliable,
		seq:        entry.seq,
		ack:        snap.ack,
		ackBits:    snap.ackBits,
	}, entry.payload)
}

func (c *Channel) untrackedPacket(packetType byte, payload []byte) []byte {
	snap := c.rcv.snapshot()
	c.rcv.pendingAck = false
	p := createPacket(header{
		packetType: packetType,
		seq:        c.unreliableSeq,
		ack:        snap.ack,
		ackBits:    snap.ackBits,
	}, payload)
	c.unreliableSeq++
	return p
}
