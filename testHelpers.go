package gamenet

import (
	"container/list"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"
)

// channelConnector moves datagrams over in-memory channels so two peers can
// be wired back to back without touching the network. The endpoint channels
// are shared with the peer and never closed, Close only raises the local
// done signal.
type channelConnector struct {
	in        chan []byte
	out       chan []byte
	timeout   time.Duration
	done      chan struct{}
	closeOnce sync.Once
}

func newConnectedPair() (*channelConnector, *channelConnector) {
	endpoint1, endpoint2 := make(chan []byte, 128), make(chan []byte, 128)
	alpha := &channelConnector{in: endpoint1, out: endpoint2, timeout: time.Second, done: make(chan struct{})}
	beta := &channelConnector{in: endpoint2, out: endpoint1, timeout: time.Second, done: make(chan struct{})}
	return alpha, beta
}

func (connector *channelConnector) Open() error {
	return nil
}

func (connector *channelConnector) Close() error {
	connector.closeOnce.Do(func() { close(connector.done) })
	return nil
}

func (connector *channelConnector) Write(buffer []byte) (StatusCode, int, error) {
	packet := append([]byte(nil), buffer...)
	select {
	case connector.out <- packet:
		return Success, len(packet), nil
	case <-connector.done:
		return Fail, 0, ErrSocketClosed
	}
}

func (connector *channelConnector) Read(buffer []byte) (StatusCode, int, error) {
	select {
	case packet := <-connector.in:
		return Success, copy(buffer, packet), nil
	case <-time.After(connector.timeout):
		return Timeout, 0, nil
	case <-connector.done:
		return Fail, 0, ErrSocketClosed
	}
}

func (connector *channelConnector) SetReadTimeout(t time.Duration) {
	connector.timeout = t
}

// packetManipulator sits between a Channel under test and its transport,
// dropping or duplicating selected sequence numbers once.
type packetManipulator struct {
	extension       Connector
	toDropOnce      list.List
	toDuplicateOnce list.List
}

func newPacketManipulator(extension Connector) *packetManipulator {
	return &packetManipulator{extension: extension}
}

func (manipulator *packetManipulator) DropOnce(seq uint16) {
	manipulator.toDropOnce.PushFront(seq)
}

func (manipulator *packetManipulator) DuplicateOnce(seq uint16) {
	manipulator.toDuplicateOnce.PushFront(seq)
}

func (manipulator *packetManipulator) Open() error {
	return manipulator.extension.Open()
}

func (manipulator *packetManipulator) Close() error {
	return manipulator.extension.Close()
}

func (manipulator *packetManipulator) Write(buffer []byte) (StatusCode, int, error) {
	h, err := readHeader(buffer)
	if err == nil && h.packetType == packetReliable {
		for elem := manipulator.toDropOnce.Front(); elem != nil; elem = elem.Next() {
			if elem.Value.(uint16) == h.seq {
				manipulator.toDropOnce.Remove(elem)
				return Success, len(buffer), nil
			}
		}
		for elem := manipulator.toDuplicateOnce.Front(); elem != nil; elem = elem.Next() {
			if elem.Value.(uint16) == h.seq {
				manipulator.toDuplicateOnce.Remove(elem)
				if _, _, err := manipulator.extension.Write(buffer); err != nil {
					return Fail, 0, err
				}
			}
		}
	}
	return manipulator.extension.Write(buffer)
}

func (manipulator *packetManipulator) Read(buffer []byte) (StatusCode, int, error) {
	return manipulator.extension.Read(buffer)
}

func (manipulator *packetManipulator) SetReadTimeout(t time.Duration) {
	manipulator.extension.SetReadTimeout(t)
}

// channelTestSuite wires two Channels back to back through byte slices, no
// transport involved. Packets travel by explicitly handing the encoded
// buffer from one peer to the other.
type channelTestSuite struct {
	suite.Suite
	timestamp   time.Time
	alpha, beta *Channel
}

func (s *channelTestSuite) SetupTest() {
	s.timestamp = time.Now()
	s.alpha = NewChannel(Config{})
	s.beta = NewChannel(Config{})
}

// deliver hands packet to the receiving channel and asserts the expected
// classification.
func (s *channelTestSuite) deliver(receiver *Channel, packet []byte, expected StatusCode) []byte {
	status, payload, err := receiver.Receive(packet, s.timestamp)
	if expected != WrongPacketType && expected != Fail {
		s.Require().NoError(err)
	}
	s.Equal(expected, status)
	return payload
}

func (s *channelTestSuite) send(sender *Channel, payload string) []byte {
	packet, err := sender.Send([]byte(payload), s.timestamp)
	s.Require().NoError(err)
	return packet
}
