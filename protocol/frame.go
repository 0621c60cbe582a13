package protocol

import (
	"fmt"
)

// Encode builds a complete frame for the given op and payload.
func Encode(op uint8, payload []byte) ([]byte, error) {
	total := frameHeaderSize + len(payload) + frameTrailerSize
	if total > FrameLengthMax {
		return nil, fmt.Errorf("frame too long: %d bytes (max %d)", total, FrameLengthMax)
	}

	frame := make([]byte, 0, total)
	frame = append(frame, uint8(total), op)
	frame = append(frame, payload...)

	crc := CRC16(frame)
	frame = append(frame, uint8(crc>>8), uint8(crc&0xFF), FrameSync)
	return frame, nil
}

// Decoder is a streaming frame parser. Feed it raw bytes as they
// arrive; Next returns complete frames one at a time. A length, CRC or
// sync violation drops the decoder out of sync, and it silently
// discards bytes until the next sync byte.
type Decoder struct {
	buf    []byte
	synced bool
}

// NewDecoder returns a decoder that starts synchronized.
func NewDecoder() *Decoder {
	return &Decoder{synced: true}
}

// Feed appends raw link bytes to the decode buffer.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Next returns the next complete frame, or false if more bytes are
// needed.
func (d *Decoder) Next() (Frame, bool) {
	for {
		if !d.synced {
			if !d.resync() {
				return Frame{}, false
			}
		}

		// Skip idle sync bytes between frames.
		for len(d.buf) > 0 && d.buf[0] == FrameSync {
			d.buf = d.buf[1:]
		}
		if len(d.buf) < FrameLengthMin {
			return Frame{}, false
		}

		total := int(d.buf[0])
		if total < FrameLengthMin || total > FrameLengthMax {
			d.synced = false
			continue
		}
		if len(d.buf) < total {
			return Frame{}, false
		}
		if d.buf[total-1] != FrameSync {
			d.synced = false
			continue
		}

		want := uint16(d.buf[total-3])<<8 | uint16(d.buf[total-2])
		if CRC16(d.buf[:total-frameTrailerSize]) != want {
			d.synced = false
			continue
		}

		payload := make([]byte, total-frameHeaderSize-frameTrailerSize)
		copy(payload, d.buf[frameHeaderSize:total-frameTrailerSize])
		frame := Frame{Op: d.buf[1], Payload: payload}
		d.buf = d.buf[total:]
		return frame, true
	}
}

// resync discards bytes up to and including the next sync byte.
// Reports whether a sync byte was found.
func (d *Decoder) resync() bool {
	for i, b := range d.buf {
		if b == FrameSync {
			d.buf = d.buf[i+1:]
			d.synced = true
			return true
		}
	}
	d.buf = nil
	return false
}
