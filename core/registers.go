package core

// MMA8452Q register map. Addresses are fixed by the silicon; only the
// registers this driver touches are listed.
const (
	RegOutXMSB    = 0x01 // First of six data bytes (X, Y, Z high/low pairs)
	RegWhoAmI     = 0x0D // Identity register
	RegXYZDataCfg = 0x0E // Full-scale range select (bits 0-1)
	RegCtrlReg1   = 0x2A // Active bit (0), output data rate bits (3-5)
	RegCtrlReg4   = 0x2D // Data-ready interrupt enable (bit 0)
)

// WhoAmIValue is the chip ID reported by every MMA8452Q.
const WhoAmIValue = 0x2A

const (
	ctrlReg1Active  = 0x01 // CTRL_REG1 bit 0: standby/active
	ctrlReg1ODRMask = 0x38 // CTRL_REG1 bits 3-5: output data rate
	ctrlReg1ODRPos  = 3

	ctrlReg4DataReady = 0x01 // CTRL_REG4 bit 0: data-ready interrupt
)

// outputRates lists the supported output data rates in Hz, descending.
// The index of a rate is its 3-bit ODR code.
var outputRates = []float64{800, 400, 200, 100, 50, 12.5, 6.25, 1.56}

// scaleRanges lists the supported full-scale ranges in g. The index of
// a range is its XYZ_DATA_CFG code.
var scaleRanges = []int{2, 4, 8}
