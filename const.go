package gamenet

import "time"

// packet type tags, first byte of every datagram
const (
	packetReliable   byte = 1
	packetUnreliable byte = 2
	packetAck        byte = 3
)

const (
	headerSize = 9
	// the ack bitfield covers the 32 sequence numbers preceding the acked
	// one, so the receive window spans 33 sequences in total
	ackWindowSize = 32
)

// emptySnapshotAck is embedded in outgoing headers before anything has been
// received. It acknowledges a sequence the peer cannot have outstanding that
// early, so on the wire it reads as "no acknowledged sequences".
const emptySnapshotAck uint16 = 0xFFFF

type StatusCode int

const (
	Success StatusCode = iota
	Fail
	PacketNew
	PacketDuplicate
	PacketStale
	AckProcessed
	WrongPacketType
	InvalidNonce
	Timeout
)

const (
	defaultRetransmissionTimeout = 100 * time.Millisecond
	defaultTickInterval          = 20 * time.Millisecond
	defaultMaxOutstanding        = 1024
	defaultMTU                   = 1400
)

// Config carries the channel knobs. The zero value is usable, every field
// falls back to its default.
type Config struct {
	// RetransmissionTimeout is how long an entry may stay unacknowledged
	// before Tick resends it.
	RetransmissionTimeout time.Duration
	// TickInterval is the cadence at which Socket drives Channel.Tick.
	TickInterval time.Duration
	// MaxOutstanding caps the unacknowledged entry table. Send refuses new
	// payloads with ErrWindowFull once the cap is reached.
	MaxOutstanding int
}

func (cfg Config) withDefaults() Config {
	if cfg.RetransmissionTimeout == 0 {
		cfg.RetransmissionTimeout = defaultRetransmissionTimeout
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.MaxOutstanding == 0 {
		cfg.MaxOutstanding = defaultMaxOutstanding
	}
	return cfg
}
