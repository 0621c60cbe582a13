// Package protocol implements the framed serial link between the host
// driver and a pin-level register bridge. Frames are length-prefixed,
// CRC16-checked and terminated by a sync byte, so the receiver can
// resynchronize after line noise by scanning for the next sync.
package protocol

const (
	// FrameSync terminates every frame.
	FrameSync = 0x7E

	// Frame layout: [len][op][payload...][crcH][crcL][sync].
	frameHeaderSize  = 2 // length + op
	frameTrailerSize = 3 // CRC16 + sync

	// FrameLengthMin is the size of a frame with an empty payload.
	FrameLengthMin = frameHeaderSize + frameTrailerSize

	// FrameLengthMax bounds a frame; register payloads are tiny.
	FrameLengthMax = 64
)

// Frame operations. Host-to-bridge ops have the high bit clear,
// bridge-to-host ops have it set.
const (
	// OpWriteReg writes one register: payload is [reg, value].
	OpWriteReg = 0x01

	// OpTransfer writes then reads in one transaction: payload is
	// [reg, count].
	OpTransfer = 0x02

	// OpStatus acknowledges an OpWriteReg: payload is [code], zero for
	// success.
	OpStatus = 0x81

	// OpData answers an OpTransfer: payload is the bytes read.
	OpData = 0x82

	// OpDataReady is an unsolicited pulse forwarded from the sensor's
	// interrupt pin. Empty payload.
	OpDataReady = 0x83
)

// StatusOK is the OpStatus payload for a successful write.
const StatusOK = 0x00

// Frame is one decoded link frame.
type Frame struct {
	Op      uint8
	Payload []byte
}
