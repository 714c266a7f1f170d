package gamenet

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var (
	// ErrMalformedHeader marks a datagram too short to contain a header.
	ErrMalformedHeader = errors.New("buffer too short for packet header")
	// ErrWrongPacketType marks a datagram whose type tag belongs to some
	// other packet kind. A routing signal for the caller, not a protocol
	// failure.
	ErrWrongPacketType = errors.New("unknown packet type tag")
	// ErrWindowFull is returned by Send once MaxOutstanding entries await
	// acknowledgment.
	ErrWindowFull = errors.New("send window full")
)

// header is the fixed reliability preamble of every datagram, network byte
// order: [1B type][2B seq][2B ack][4B ackBits].
type header struct {
	packetType byte
	seq        uint16
	ack        uint16
	ackBits    uint32
}

func (h header) write(buffer []byte) {
	buffer[0] = h.packetType
	binary.BigEndian.PutUint16(buffer[1:3], h.seq)
	binary.BigEndian.PutUint16(buffer[3:5], h.ack)
	binary.BigEndian.PutUint32(buffer[5:9], h.ackBits)
}

func readHeader(buffer []byte) (header, error) {
	if len(buffer) < headerSize {
		return header{}, errors.Wrapf(ErrMalformedHeader, "%d bytes", len(buffer))
	}
	h := header{
		packetType: buffer[0],
		seq:        binary.BigEndian.Uint16(buffer[1:3]),
		ack:        binary.BigEndian.Uint16(buffer[3:5]),
		ackBits:    binary.BigEndian.Uint32(buffer[5:9]),
	}
	switch h.packetType {
	case packetReliable, packetUnreliable, packetAck:
		return h, nil
	}
	return header{}, errors.Wrapf(ErrWrongPacketType, "tag %d", h.packetType)
}

func createPacket(h header, payload []byte) []byte {
	buffer := make([]byte, headerSize+len(payload))
	h.write(buffer)
	copy(buffer[headerSize:], payload)
	return buffer
}
