package gamenet

import "time"

// Connector is the transport collaborator under a Socket. It moves opaque
// datagrams and knows nothing about sequencing or acknowledgment; concrete
// implementations wrap a UDP socket pair, an in-memory channel for tests,
// or another Connector to layer behavior such as encryption on top.
type Connector interface {
	Open() error
	Close() error
	Write(buffer []byte) (StatusCode, int, error)
	Read(buffer []byte) (StatusCode, int, error)
	SetReadTimeout(t time.Duration)
}
