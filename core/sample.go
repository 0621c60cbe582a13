package core

// Sample is one decoded acceleration reading in g-units.
type Sample struct {
	X, Y, Z float64
}

// decodeAxis converts one MSB/LSB register pair into a signed 12-bit
// count. The high byte carries bits 11-4, the top nibble of the low
// byte carries bits 3-0. A set sign bit means two's complement.
func decodeAxis(hi, lo uint8) int {
	raw := int(hi)<<4 | int(lo)>>4
	if hi&0x80 != 0 {
		return -(1 + 0xFFF - raw)
	}
	return raw
}

// decodeSample turns the six-byte OUT_X_MSB burst into a scaled sample.
// Counts per g follow from the 12-bit range: 4096 / (2 * scaleRange).
func decodeSample(data []byte, scaleRange int) Sample {
	divisor := 4096.0 / (2.0 * float64(scaleRange))
	return Sample{
		X: float64(decodeAxis(data[0], data[1])) / divisor,
		Y: float64(decodeAxis(data[2], data[3])) / divisor,
		Z: float64(decodeAxis(data[4], data[5])) / divisor,
	}
}
