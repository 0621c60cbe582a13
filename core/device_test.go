package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBus is an in-memory register file implementing Transport. It
// records every transaction and can be told to fail specific register
// operations.
type fakeBus struct {
	mu      sync.Mutex
	regs    map[uint8]uint8
	out     [6]byte
	log     []string
	failOn  map[string]error
	txCount int
	block   chan struct{} // when set, Transfer blocks until closed
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		regs:   map[uint8]uint8{RegWhoAmI: WhoAmIValue},
		failOn: map[string]error{},
	}
}

func (f *fakeBus) Write(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txCount++
	reg, val := data[0], data[1]
	key := fmt.Sprintf("W:%02X", reg)
	f.log = append(f.log, fmt.Sprintf("%s=%02X", key, val))
	if err := f.failOn[key]; err != nil {
		return err
	}
	f.regs[reg] = val
	return nil
}

func (f *fakeBus) Transfer(w []byte, n int) ([]byte, error) {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.txCount++
	reg := w[0]
	key := fmt.Sprintf("R:%02X", reg)
	f.log = append(f.log, key)
	if err := f.failOn[key]; err != nil {
		return nil, err
	}
	if reg == RegOutXMSB {
		out := make([]byte, n)
		copy(out, f.out[:])
		return out, nil
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = f.regs[reg+uint8(i)]
	}
	return out, nil
}

func (f *fakeBus) reg(r uint8) uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regs[r]
}

func (f *fakeBus) transactions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txCount
}

func (f *fakeBus) logged() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.log))
	copy(out, f.log)
	return out
}

func TestInitChecksIdentityAndAppliesDefaults(t *testing.T) {
	bus := newFakeBus()
	d := New(bus)
	defer d.Close()

	ready := false
	d.OnReady(func() { ready = true })

	require.NoError(t, d.Init())
	assert.True(t, ready)

	// Defaults: 2g scale, 800 Hz (ODR code 0), device left Active.
	assert.Equal(t, uint8(0), bus.reg(RegXYZDataCfg))
	assert.Equal(t, uint8(0), bus.reg(RegCtrlReg1)&ctrlReg1ODRMask)
	assert.Equal(t, uint8(ctrlReg1Active), bus.reg(RegCtrlReg1)&ctrlReg1Active)
	assert.Equal(t, 800.0, d.OutputRate())
	assert.Equal(t, 2, d.ScaleRange())
}

func TestInitIdentityMismatch(t *testing.T) {
	bus := newFakeBus()
	bus.regs[RegWhoAmI] = 0x1A
	d := New(bus)
	defer d.Close()

	var got error
	d.OnError(func(err error) { got = err })

	err := d.Init()
	assert.ErrorIs(t, err, ErrIdentityMismatch)
	assert.ErrorIs(t, got, ErrIdentityMismatch)
}

func TestConfigEditsHappenInStandby(t *testing.T) {
	bus := newFakeBus()
	d := New(bus)
	defer d.Close()
	require.NoError(t, d.Init())

	bus.mu.Lock()
	bus.log = nil
	bus.mu.Unlock()

	require.NoError(t, d.SetScaleRange(8))
	assert.Equal(t, uint8(2), bus.reg(RegXYZDataCfg))
	assert.Equal(t, 8, d.ScaleRange())

	// The scale write must land while the active bit is clear, and the
	// sequence must end by restoring Active.
	log := bus.logged()
	require.Equal(t, []string{
		"R:2A",       // read CTRL_REG1 for standby transition
		"W:2A=00",    // clear active bit
		"W:0E=02",    // scale config edit
		"R:2A",       // read CTRL_REG1 for active transition
		"W:2A=01",    // restore active bit
	}, log)
}

func TestEditFailureStillRestoresActive(t *testing.T) {
	bus := newFakeBus()
	d := New(bus)
	defer d.Close()
	require.NoError(t, d.Init())

	boom := fmt.Errorf("nak")
	bus.mu.Lock()
	bus.failOn["W:0E"] = boom
	bus.mu.Unlock()

	err := d.SetScaleRange(4)
	assert.ErrorIs(t, err, boom)

	// Active was restored despite the failed edit.
	assert.Equal(t, uint8(ctrlReg1Active), bus.reg(RegCtrlReg1)&ctrlReg1Active)
	// The failed edit did not change the recorded range.
	assert.Equal(t, 2, d.ScaleRange())
}

func TestStandbyFailureAbortsSequence(t *testing.T) {
	bus := newFakeBus()
	d := New(bus)
	defer d.Close()
	require.NoError(t, d.Init())

	boom := fmt.Errorf("bus stuck")
	bus.mu.Lock()
	bus.failOn["R:2A"] = boom
	before := len(bus.log)
	bus.mu.Unlock()

	err := d.SetScaleRange(4)
	assert.ErrorIs(t, err, boom)

	var te *TransportError
	assert.ErrorAs(t, err, &te)

	// Only the failed CTRL_REG1 read happened; no edit, no restore.
	log := bus.logged()
	assert.Equal(t, []string{"R:2A"}, log[before:])
}

func TestSetOutputRateProgramsODRBits(t *testing.T) {
	bus := newFakeBus()
	d := New(bus)
	defer d.Close()
	require.NoError(t, d.Init())

	require.NoError(t, d.SetOutputRate(60))
	assert.Equal(t, 50.0, d.OutputRate())
	assert.Equal(t, uint8(4)<<ctrlReg1ODRPos, bus.reg(RegCtrlReg1)&ctrlReg1ODRMask)
	assert.Equal(t, uint8(ctrlReg1Active), bus.reg(RegCtrlReg1)&ctrlReg1Active)
}

func TestSetOutputRateZeroDisablesStreaming(t *testing.T) {
	bus := newFakeBus()
	d := New(bus)
	defer d.Close()
	require.NoError(t, d.Init())
	require.NoError(t, d.EnableDataInterrupts(true))
	require.Equal(t, uint8(ctrlReg4DataReady), bus.reg(RegCtrlReg4))

	require.NoError(t, d.SetOutputRate(0))
	assert.Equal(t, 0.0, d.OutputRate())
	assert.Equal(t, uint8(0), bus.reg(RegCtrlReg4))
}

func TestReadAccelerationDecodesAndEmits(t *testing.T) {
	bus := newFakeBus()
	bus.out = [6]byte{0x40, 0x00, 0x00, 0x00, 0x80, 0x00}
	d := New(bus)
	defer d.Close()
	require.NoError(t, d.Init())

	var seen []Sample
	d.OnShake(func(Shake) {}) // shake consumer must not affect data path

	s, err := d.ReadAcceleration()
	require.NoError(t, err)
	assert.Equal(t, Sample{X: 1, Y: 0, Z: -2}, s)

	// Explicit reads feed the same pipeline as interrupt-driven ones,
	// but sample events only reach subscribers.
	sub := d.OnSample(func(smp Sample) { seen = append(seen, smp) })
	defer sub.Cancel()

	s2, err := d.ReadAcceleration()
	require.NoError(t, err)
	assert.Equal(t, []Sample{s2}, seen)
}

func TestReadAccelerationTransportError(t *testing.T) {
	bus := newFakeBus()
	d := New(bus)
	defer d.Close()
	require.NoError(t, d.Init())

	boom := fmt.Errorf("i/o error")
	bus.mu.Lock()
	bus.failOn["R:01"] = boom
	bus.mu.Unlock()

	var fromEvent error
	d.OnError(func(err error) { fromEvent = err })

	_, err := d.ReadAcceleration()
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, fromEvent, boom)

	// The queue keeps serving after the failure.
	bus.mu.Lock()
	delete(bus.failOn, "R:01")
	bus.mu.Unlock()
	_, err = d.ReadAcceleration()
	assert.NoError(t, err)
}

func TestSampleSubscriptionTogglesInterrupts(t *testing.T) {
	bus := newFakeBus()
	d := New(bus)
	defer d.Close()
	require.NoError(t, d.Init())

	sub1 := d.OnSample(func(Sample) {})
	require.Eventually(t, func() bool {
		return bus.reg(RegCtrlReg4) == ctrlReg4DataReady
	}, time.Second, time.Millisecond)

	// A second subscriber must not re-toggle; a cancel that is not the
	// last must not disable.
	sub2 := d.OnData(func(Sample) {})
	sub1.Cancel()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, uint8(ctrlReg4DataReady), bus.reg(RegCtrlReg4))

	sub2.Cancel()
	require.Eventually(t, func() bool {
		return bus.reg(RegCtrlReg4) == 0
	}, time.Second, time.Millisecond)
}

func TestInvalidArgumentsRejectedBeforeBusTraffic(t *testing.T) {
	bus := newFakeBus()
	d := New(bus)
	defer d.Close()
	require.NoError(t, d.Init())

	before := bus.transactions()
	assert.ErrorIs(t, d.SetShakeThreshold(0), ErrInvalidArgument)
	assert.ErrorIs(t, d.SetShakeThreshold(-2), ErrInvalidArgument)
	assert.ErrorIs(t, d.SetOrientationSuppression(0.0001), ErrInvalidArgument)
	assert.ErrorIs(t, d.SetSampleBufferLength(1), ErrInvalidArgument)
	assert.Equal(t, before, bus.transactions())
}

func TestBufferResizeZeroesAverages(t *testing.T) {
	bus := newFakeBus()
	bus.out = [6]byte{0x40, 0x00, 0x40, 0x00, 0x40, 0x00}
	d := New(bus)
	defer d.Close()
	require.NoError(t, d.Init())

	for i := 0; i < 5; i++ {
		_, err := d.ReadAcceleration()
		require.NoError(t, err)
	}
	require.NotEqual(t, Sample{}, d.AverageAcceleration())

	require.NoError(t, d.SetSampleBufferLength(10))
	assert.Equal(t, Sample{}, d.AverageAcceleration())
	assert.Equal(t, 0.0, d.Turbulence())
}

func TestServeInterruptsReadsOnePulseAtATime(t *testing.T) {
	bus := newFakeBus()
	bus.out = [6]byte{0x40, 0x00, 0x00, 0x00, 0x00, 0x00}
	d := New(bus)
	defer d.Close()
	require.NoError(t, d.Init())

	var mu sync.Mutex
	var count int
	sub := d.OnSample(func(Sample) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	defer sub.Cancel()

	ready := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.ServeInterrupts(ctx, ready) }()

	ready <- struct{}{}
	ready <- struct{}{}
	close(ready)

	require.NoError(t, <-done)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, count)
}

func TestTransactionTimeout(t *testing.T) {
	bus := newFakeBus()
	bus.block = make(chan struct{})
	d := New(bus, WithTransactionTimeout(20*time.Millisecond))
	defer func() {
		close(bus.block)
		d.Close()
	}()

	err := d.Init()
	assert.ErrorIs(t, err, ErrTimeout)
}
