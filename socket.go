package gamenet

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrSocketClosed is returned by Read and Write after Close.
var ErrSocketClosed = errors.New("socket closed")

// Socket is the blocking convenience wrapper around a Channel and a
// Connector. It owns what the core deliberately does not: the read
// goroutine, the periodic tick timer and the mutual exclusion around the
// channel state.
type Socket struct {
	channel   *Channel
	connector Connector
	cfg       Config

	mu        sync.Mutex
	readQueue chan []byte
	errorChan chan error
	done      chan struct{}
	closeOnce sync.Once
}

// NewSocket creates a socket talking plain UDP to the given peer.
func NewSocket(remoteAddress string, remotePort, localPort int, cfg Config) *Socket {
	return newSocket(newUDPConnector(remoteAddress, remotePort, localPort), cfg)
}

// NewEncryptedSocket creates a UDP socket whose traffic runs through a
// Noise XX session. The side that opens first must be the initiator.
func NewEncryptedSocket(remoteAddress string, remotePort, localPort int, initiator bool, cfg Config) *Socket {
	udp := newUDPConnector(remoteAddress, remotePort, localPort)
	return newSocket(newEncryptionConnector(udp, initiator), cfg)
}

func newSocket(connector Connector, cfg Config) *Socket {
	cfg = cfg.withDefaults()
	return &Socket{
		channel:   NewChannel(cfg),
		connector: connector,
		cfg:       cfg,
		readQueue: make(chan []byte, 128),
		errorChan: make(chan error, 16),
		done:      make(chan struct{}),
	}
}

// Open connects the transport and starts the read and tick loops.
func (socket *Socket) Open() error {
	if err := socket.connector.Open(); err != nil {
		return err
	}
	go socket.readLoop()
	go socket.tickLoop()
	return nil
}

func (socket *Socket) Close() error {
	var err error
	socket.closeOnce.Do(func() {
		close(socket.done)
		err = socket.connector.Close()
	})
	return err
}

// Write sends payload reliably. When the send window is full it blocks,
// retrying until in-flight packets are acknowledged, which is the
// backpressure the channel's entry cap asks the caller to provide.
func (socket *Socket) Write(payload []byte) (int, error) {
	retryTimeout := 10 * time.Millisecond
	for {
		select {
		case <-socket.done:
			return 0, ErrSocketClosed
		default:
		}

		socket.mu.Lock()
		packet, err := socket.channel.Send(payload, time.Now())
		socket.mu.Unlock()
		if errors.Is(err, ErrWindowFull) {
			time.Sleep(retryTimeout)
			continue
		}
		if err != nil {
			return 0, err
		}
		if _, _, err := socket.writePacket(packet); err != nil {
			return 0, err
		}
		return len(payload), nil
	}
}

// WriteUnreliable sends payload once, with no delivery guarantee.
func (socket *Socket) WriteUnreliable(payload []byte) (int, error) {
	select {
	case <-socket.done:
		return 0, ErrSocketClosed
	default:
	}
	socket.mu.Lock()
	packet := socket.channel.SendUnreliable(payload)
	socket.mu.Unlock()
	if _, _, err := socket.writePacket(packet); err != nil {
		return 0, err
	}
	return len(payload), nil
}

// Read blocks until the next accepted payload arrives. Duplicate and stale
// packets never surface here.
func (socket *Socket) Read(buffer []byte) (int, error) {
	select {
	case payload := <-socket.readQueue:
		return copy(buffer, payload), nil
	case <-socket.done:
		return 0, ErrSocketClosed
	}
}

// Errors exposes asynchronous transport errors from the read loop.
func (socket *Socket) Errors() <-chan error {
	return socket.errorChan
}

// RTT returns the channel's average measured round trip time.
func (socket *Socket) RTT() time.Duration {
	socket.mu.Lock()
	defer socket.mu.Unlock()
	return socket.channel.RTT()
}

func (socket *Socket) writePacket(packet []byte) (StatusCode, int, error) {
	socket.mu.Lock()
	defer socket.mu.Unlock()
	return socket.connector.Write(packet)
}

func (socket *Socket) readLoop() {
	buffer := make([]byte, defaultMTU)
	for {
		status, n, err := socket.connector.Read(buffer)
		select {
		case <-socket.done:
			return
		default:
		}
		if err != nil {
			socket.reportError(err)
			continue
		}
		if status != Success {
			continue
		}

		socket.mu.Lock()
		_, payload, err := socket.channel.Receive(buffer[:n], time.Now())
		// fast retransmissions inferred from the ack go out right away
		for _, packet := range socket.channel.Flush() {
			_, _, writeErr := socket.connector.Write(packet)
			if writeErr != nil {
				socket.reportError(writeErr)
			}
		}
		socket.mu.Unlock()
		if err != nil {
			// malformed or foreign datagrams are dropped, the channel
			// keeps operating
			continue
		}
		if payload != nil {
			select {
			case socket.readQueue <- payload:
			case <-socket.done:
				return
			}
		}
	}
}

func (socket *Socket) tickLoop() {
	ticker := time.NewTicker(socket.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-socket.done:
			return
		case now := <-ticker.C:
			socket.mu.Lock()
			for _, packet := range socket.channel.Tick(now) {
				_, _, err := socket.connector.Write(packet)
				if err != nil {
					socket.reportError(err)
				}
			}
			socket.mu.Unlock()
		}
	}
}

func (socket *Socket) reportError(err error) {
	select {
	case socket.errorChan <- err:
	default:
	}
}
