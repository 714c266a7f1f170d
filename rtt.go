package gamenet

import "time"

const (
	defaultRtt = 100 * time.Millisecond
	// inflatePercent widens the recommended timeout above the plain
	// average to absorb jitter
	inflatePercent = 10
)

// rttTracker accumulates round trip samples from send to acknowledgment.
// It starts from a conservative default so the average is defined before
// the first measurement.
type rttTracker struct {
	totalRtt        time.Duration
	numMeasurements int64
}

func newRttTracker() *rttTracker {
	return &rttTracker{totalRtt: defaultRtt, numMeasurements: 1}
}

func (t *rttTracker) record(sentAt, ackedAt time.Time) {
	rtt := ackedAt.Sub(sentAt)
	if rtt < 0 {
		return
	}
	t.totalRtt += rtt
	t.numMeasurements++
}

func (t *rttTracker) average() time.Duration {
	return t.totalRtt / time.Duration(t.numMeasurements)
}

func (t *rttTracker) recommendedTimeout() time.Duration {
	avg := t.average()
	return avg + avg/inflatePercent
}
