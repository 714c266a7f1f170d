package gamenet

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestHeaderRoundTrip(t *testing.T) {
	headers := []header{
		{packetType: packetReliable, seq: 0, ack: 0, ackBits: 0},
		{packetType: packetReliable, seq: 65535, ack: 32768, ackBits: 0xFFFFFFFF},
		{packetType: packetUnreliable, seq: 42, ack: 41, ackBits: 0b1011},
		{packetType: packetAck, seq: 7, ack: 65535, ackBits: 1},
	}
	for _, h := range headers {
		decoded, err := readHeader(createPacket(h, nil))
		assert.NoError(t, err)
		assert.Equal(t, h, decoded)
	}
}

func TestHeaderWireLayout(t *testing.T) {
	packet := createPacket(header{
		packetType: packetReliable,
		seq:        0x0102,
		ack:        0x0304,
		ackBits:    0x05060708,
	}, []byte{0xAA})

	assert.Equal(t, []byte{1, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0xAA}, packet)
}

func TestHeaderPayloadAppended(t *testing.T) {
	packet := createPacket(header{packetType: packetReliable, seq: 3}, []byte("hello"))
	assert.Len(t, packet, headerSize+5)
	assert.Equal(t, "hello", string(packet[headerSize:]))
}

func TestReadHeaderTooShort(t *testing.T) {
	_, err := readHeader(make([]byte, headerSize-1))
	assert.True(t, errors.Is(err, ErrMalformedHeader))

	_, err = readHeader(nil)
	assert.True(t, errors.Is(err, ErrMalformedHeader))
}

func TestReadHeaderUnknownTag(t *testing.T) {
	packet := createPacket(header{packetType: packetReliable, seq: 1}, nil)
	packet[0] = 0x7F
	_, err := readHeader(packet)
	assert.True(t, errors.Is(err, ErrWrongPacketType))
}
