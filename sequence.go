package gamenet

const halfSequenceSpace = 1 << 15

// isMoreRecent reports whether sequence a is newer than b in the wrapping
// 16 bit counter space. A sequence at most half the space ahead counts as
// newer, anything further apart is treated as a wrap. Sequence numbers are
// never ordered with plain integer comparison.
func isMoreRecent(a, b uint16) bool {
	return (a > b && a-b <= halfSequenceSpace) ||
		(a < b && b-a > halfSequenceSpace)
}

// sequenceDiff returns the wrapping distance from b forward to a.
func sequenceDiff(a, b uint16) uint16 {
	return a - b
}
