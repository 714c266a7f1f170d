package gamenet

// ackSnapshot is the receive window state embedded in outgoing headers: the
// highest accepted sequence plus a mask of the 32 preceding ones.
type ackSnapshot struct {
	ack     uint16
	ackBits uint32
}

// receiveChannel owns the inbound half of a peer connection: a sliding
// window over the most recent 33 sequence numbers used both for duplicate
// suppression and for producing ack snapshots. The window only ever moves
// forward under wraparound ordering.
type receiveChannel struct {
	highestReceived uint16
	receivedMask    uint32
	started         bool
	// pendingAck is raised on every inbound reliable packet, duplicates
	// included, and lowered once any outgoing packet carries the snapshot.
	pendingAck bool
}

func newReceiveChannel() *receiveChannel {
	return &receiveChannel{}
}

// receive classifies seq against the sliding window and records it when it
// is new. Bit i of receivedMask stands for sequence highestReceived-(i+1).
func (r *receiveChannel) receive(seq uint16) StatusCode {
	if !r.started {
		r.started = true
		r.highestReceived = seq
		return PacketNew
	}

	if isMoreRecent(seq, r.highestReceived) {
		shift := sequenceDiff(seq, r.highestReceived)
		if shift > ackWindowSize {
			// everything tracked so far falls out of the window
			r.receivedMask = 0
		} else {
			// the old highest was itself received, it now sits shift-1
			// behind the new one
			r.receivedMask = r.receivedMask<<shift | 1<<(shift-1)
		}
		r.highestReceived = seq
		return PacketNew
	}

	d := sequenceDiff(r.highestReceived, seq)
	switch {
	case d == 0:
		return PacketDuplicate
	case d <= ackWindowSize:
		bit := uint32(1) << (d - 1)
		if r.receivedMask&bit != 0 {
			return PacketDuplicate
		}
		r.receivedMask |= bit
		return PacketNew
	default:
		// beyond the lookback window there is no way to tell a duplicate
		// from data that was never recorded, discard
		return PacketStale
	}
}

func (r *receiveChannel) snapshot() ackSnapshot {
	if !r.started {
		return ackSnapshot{ack: emptySnapshotAck}
	}
	return ackSnapshot{ack: r.highestReceived, ackBits: r.receivedMask}
}
