package core

import (
	"fmt"

	"tinygo.org/x/drivers"
)

// Transport is the abstract register bus the driver core runs on.
// Implementations exist for a direct I2C bus (I2CBus) and for a
// serial-linked register bridge (host/bridge).
type Transport interface {
	// Write transmits raw bytes to the device. For register writes the
	// first byte is the register address.
	Write(data []byte) error

	// Transfer writes the given bytes, then reads n bytes back in the
	// same transaction (repeated-start on I2C).
	Transfer(w []byte, n int) ([]byte, error)
}

// I2CBus adapts a drivers.I2C bus (machine.I2C on TinyGo targets, or
// any host-side implementation of the same interface) to the Transport
// contract for a single device address.
type I2CBus struct {
	bus  drivers.I2C
	addr uint16
}

// DefaultAddress is the MMA8452Q address with the SA0 pin high.
// Pulling SA0 low selects 0x1C.
const DefaultAddress = 0x1D

// NewI2CBus wraps an I2C bus and device address as a Transport.
func NewI2CBus(bus drivers.I2C, addr uint16) *I2CBus {
	return &I2CBus{bus: bus, addr: addr}
}

func (b *I2CBus) Write(data []byte) error {
	return b.bus.Tx(b.addr, data, nil)
}

func (b *I2CBus) Transfer(w []byte, n int) ([]byte, error) {
	r := make([]byte, n)
	if err := b.bus.Tx(b.addr, w, r); err != nil {
		return nil, err
	}
	return r, nil
}

// readRegister reads n consecutive bytes starting at reg.
func readRegister(t Transport, reg uint8, n int) ([]byte, error) {
	data, err := t.Transfer([]byte{reg}, n)
	if err != nil {
		return nil, &TransportError{Op: regOpName("read", reg), Err: err}
	}
	return data, nil
}

// writeRegister writes a single byte to reg.
func writeRegister(t Transport, reg, value uint8) error {
	if err := t.Write([]byte{reg, value}); err != nil {
		return &TransportError{Op: regOpName("write", reg), Err: err}
	}
	return nil
}

func regOpName(op string, reg uint8) string {
	names := map[uint8]string{
		RegOutXMSB:    "OUT_X_MSB",
		RegWhoAmI:     "WHO_AM_I",
		RegXYZDataCfg: "XYZ_DATA_CFG",
		RegCtrlReg1:   "CTRL_REG1",
		RegCtrlReg4:   "CTRL_REG4",
	}
	if name, ok := names[reg]; ok {
		return op + " " + name
	}
	return fmt.Sprintf("%s 0x%02X", op, reg)
}
