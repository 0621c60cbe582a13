package core

// selectOutputRate snaps a requested rate in Hz to a supported output
// data rate. Requests at or below zero disable streaming (rate 0).
// Otherwise the result is the largest supported rate not above the
// request; anything under the minimum snaps up to 1.56 Hz.
func selectOutputRate(hz float64) (rate float64, code uint8) {
	if hz <= 0 {
		return 0, 0
	}
	for i, r := range outputRates {
		if r <= hz {
			return r, uint8(i)
		}
	}
	// Below 1.56 Hz: the slowest rate the part supports.
	last := len(outputRates) - 1
	return outputRates[last], uint8(last)
}

// selectScaleRange clamps a requested range in g to the supported set.
// The hardware code is the clamped value shifted down two bits, giving
// 0/1/2 for 2/4/8 g; requests between steps round down the same way
// the register encoding does.
func selectScaleRange(g int) (scale int, code uint8) {
	if g > 8 {
		g = 8
	}
	if g < 0 {
		g = 0
	}
	code = uint8(g >> 2)
	return scaleRanges[code], code
}
