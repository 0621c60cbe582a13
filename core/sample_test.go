package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeAxis(t *testing.T) {
	cases := []struct {
		name string
		hi   uint8
		lo   uint8
		want int
	}{
		{"zero", 0x00, 0x00, 0},
		{"positive max", 0x7F, 0xF0, 2047},
		{"one count", 0x00, 0x10, 1},
		{"negative min", 0x80, 0x00, -2048},
		{"negative one", 0xFF, 0xF0, -1},
		{"negative mid", 0xC0, 0x00, -1024},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, decodeAxis(tc.hi, tc.lo))
		})
	}
}

func TestDecodeSampleScaling(t *testing.T) {
	// 0x400 = 1024 counts on each axis.
	data := []byte{0x40, 0x00, 0x40, 0x00, 0x40, 0x00}

	for _, tc := range []struct {
		scale int
		want  float64
	}{
		{2, 1.0}, // 1024 counts/g at 2g
		{4, 2.0}, // 512 counts/g at 4g
		{8, 4.0}, // 256 counts/g at 8g
	} {
		s := decodeSample(data, tc.scale)
		assert.Equal(t, tc.want, s.X, "scale %dg", tc.scale)
		assert.Equal(t, tc.want, s.Y, "scale %dg", tc.scale)
		assert.Equal(t, tc.want, s.Z, "scale %dg", tc.scale)
	}
}

func TestDecodeSampleMixedAxes(t *testing.T) {
	// X at negative full scale, Y at zero, Z at -1 count.
	data := []byte{0x80, 0x00, 0x00, 0x00, 0xFF, 0xF0}
	s := decodeSample(data, 2)
	assert.Equal(t, -2.0, s.X)
	assert.Equal(t, 0.0, s.Y)
	assert.Equal(t, -1.0/1024.0, s.Z)
}
