// Package core implements the MMA8452Q driver engine: the command
// queue that serializes register transactions, the standby/active mode
// controller, rate and scale calibration, sample acquisition and the
// shake/orientation signal pipeline.
package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Defaults applied by Init and New.
const (
	DefaultOutputRate     = 800.0
	DefaultScaleRange     = 2
	DefaultBufferLength   = 15
	DefaultSuppression    = 0.2
	DefaultShakeThreshold = 2.0
)

// Device is a single MMA8452Q behind a register Transport. All
// device-touching operations pass through an internal FIFO command
// queue, so configuration changes and sample reads never interleave on
// the bus.
type Device struct {
	bus   Transport
	queue *commandQueue
	ev    *events

	txTimeout time.Duration

	mu             sync.Mutex
	outputRate     float64
	scaleRange     int
	dataInterrupts bool
	shake          *ShakeDetector
	orient         *OrientationTracker
}

// Option adjusts Device construction.
type Option func(*Device)

// WithTransactionTimeout bounds the wait for each queued operation.
// Zero (the default) waits indefinitely, matching a bus with no
// timeout of its own. On expiry the caller gets ErrTimeout but the
// operation still runs to completion in queue order.
func WithTransactionTimeout(d time.Duration) Option {
	return func(dev *Device) { dev.txTimeout = d }
}

// New wraps a Transport as a Device. No bus traffic happens until
// Init (or the first queued operation). The signal pipeline starts
// with the documented defaults.
func New(bus Transport, opts ...Option) *Device {
	d := &Device{
		bus:        bus,
		queue:      newCommandQueue(),
		outputRate: DefaultOutputRate,
		scaleRange: DefaultScaleRange,
		shake:      NewShakeDetector(DefaultShakeThreshold),
	}
	// Defaults are in range, so this cannot fail.
	d.orient, _ = NewOrientationTracker(DefaultBufferLength, DefaultSuppression)

	d.ev = newEvents(
		func() { d.submitAsync(func() error { return d.writeDataInterrupts(true) }) },
		func() { d.submitAsync(func() error { return d.writeDataInterrupts(false) }) },
	)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Init verifies the chip identity and programs the default scale and
// output rate, leaving the device Active. It fires the Ready event on
// success and the Error event on failure, in addition to returning the
// error.
func (d *Device) Init() error {
	err := d.do(func() error {
		id, err := readRegister(d.bus, RegWhoAmI, 1)
		if err != nil {
			return err
		}
		if id[0] != WhoAmIValue {
			return fmt.Errorf("%w: WHO_AM_I reported 0x%02X, want 0x%02X",
				ErrIdentityMismatch, id[0], WhoAmIValue)
		}
		return d.changeRegister(func() error {
			if err := d.writeScaleRange(DefaultScaleRange); err != nil {
				return err
			}
			return d.writeOutputRate(DefaultOutputRate)
		})
	})
	if err != nil {
		d.ev.emitError(err)
		return err
	}
	tracef("device ready")
	d.ev.emitReady()
	return nil
}

// Close drains the command queue and stops accepting operations.
func (d *Device) Close() error {
	d.queue.Close()
	return nil
}

// do runs one operation through the command queue, applying the
// optional transaction timeout.
func (d *Device) do(run func() error) error {
	result := d.queue.Submit(run)
	if d.txTimeout <= 0 {
		return <-result
	}
	select {
	case err := <-result:
		return err
	case <-time.After(d.txTimeout):
		return ErrTimeout
	}
}

// submitAsync queues an operation without waiting; a failure surfaces
// through the Error event instead of a return value. Used by the
// subscription hooks, which must not block.
func (d *Device) submitAsync(run func() error) {
	result := d.queue.Submit(run)
	go func() {
		if err := <-result; err != nil {
			d.ev.emitError(err)
		}
	}()
}

// changeRegister performs a standby-protected edit: Standby, edit,
// Active. If entering Standby fails the sequence aborts without
// touching the device further. If the edit fails, Active is still
// restored and the edit error is the one surfaced.
func (d *Device) changeRegister(edit func() error) error {
	if err := d.setStandby(); err != nil {
		return err
	}
	editErr := edit()
	if activeErr := d.setActive(); editErr == nil {
		editErr = activeErr
	}
	return editErr
}

func (d *Device) setActive() error {
	v, err := readRegister(d.bus, RegCtrlReg1, 1)
	if err != nil {
		return err
	}
	return writeRegister(d.bus, RegCtrlReg1, v[0]|ctrlReg1Active)
}

func (d *Device) setStandby() error {
	v, err := readRegister(d.bus, RegCtrlReg1, 1)
	if err != nil {
		return err
	}
	return writeRegister(d.bus, RegCtrlReg1, v[0]&^ctrlReg1Active)
}

// SetOutputRate selects the nearest supported output data rate at or
// below hz. Requests at or below zero disable streaming: the rate is
// recorded as 0 and the data-ready interrupt is switched off.
func (d *Device) SetOutputRate(hz float64) error {
	rate, _ := selectOutputRate(hz)
	return d.do(func() error {
		if rate == 0 {
			if err := d.changeRegister(func() error {
				return d.writeDataInterruptBit(false)
			}); err != nil {
				d.ev.emitError(err)
				return err
			}
			d.mu.Lock()
			d.outputRate = 0
			d.dataInterrupts = false
			d.mu.Unlock()
			tracef("streaming disabled")
			return nil
		}
		if err := d.changeRegister(func() error {
			return d.writeOutputRate(rate)
		}); err != nil {
			d.ev.emitError(err)
			return err
		}
		return nil
	})
}

// writeOutputRate programs the ODR bits for an already-validated rate.
// Must run between Standby and Active transitions.
func (d *Device) writeOutputRate(rate float64) error {
	_, code := selectOutputRate(rate)
	v, err := readRegister(d.bus, RegCtrlReg1, 1)
	if err != nil {
		return err
	}
	reg := v[0]&^uint8(ctrlReg1ODRMask) | code<<ctrlReg1ODRPos
	if err := writeRegister(d.bus, RegCtrlReg1, reg); err != nil {
		return err
	}
	d.mu.Lock()
	d.outputRate = rate
	d.mu.Unlock()
	tracef("output rate %.2f Hz (code %d)", rate, code)
	return nil
}

// SetScaleRange selects the full-scale range in g. Requests above 8
// clamp to 8; in-between values round down to the next supported step.
func (d *Device) SetScaleRange(g int) error {
	scale, code := selectScaleRange(g)
	return d.do(func() error {
		if err := d.changeRegister(func() error {
			if err := writeRegister(d.bus, RegXYZDataCfg, code); err != nil {
				return err
			}
			d.mu.Lock()
			d.scaleRange = scale
			d.mu.Unlock()
			tracef("scale range %d g (code %d)", scale, code)
			return nil
		}); err != nil {
			d.ev.emitError(err)
			return err
		}
		return nil
	})
}

// writeScaleRange programs an already-validated scale range. Must run
// between Standby and Active transitions.
func (d *Device) writeScaleRange(g int) error {
	scale, code := selectScaleRange(g)
	if err := writeRegister(d.bus, RegXYZDataCfg, code); err != nil {
		return err
	}
	d.mu.Lock()
	d.scaleRange = scale
	d.mu.Unlock()
	return nil
}

// EnableDataInterrupts switches the hardware data-ready interrupt.
// Subscribing to samples does this implicitly; the explicit call is
// for consumers driving the interrupt line themselves.
func (d *Device) EnableDataInterrupts(on bool) error {
	return d.do(func() error { return d.writeDataInterrupts(on) })
}

// writeDataInterrupts toggles the data-ready interrupt under the mode
// controller. Runs on the queue worker.
func (d *Device) writeDataInterrupts(on bool) error {
	if err := d.changeRegister(func() error {
		return d.writeDataInterruptBit(on)
	}); err != nil {
		d.ev.emitError(err)
		return err
	}
	d.mu.Lock()
	d.dataInterrupts = on
	d.mu.Unlock()
	tracef("data interrupts %v", on)
	return nil
}

func (d *Device) writeDataInterruptBit(on bool) error {
	var v uint8
	if on {
		v = ctrlReg4DataReady
	}
	return writeRegister(d.bus, RegCtrlReg4, v)
}

// ReadAcceleration performs one queued sample acquisition. The decoded
// sample feeds the signal pipeline, so shake and orientation events
// may fire before this returns.
func (d *Device) ReadAcceleration() (Sample, error) {
	var sample Sample
	err := d.do(func() error {
		s, err := d.acquire()
		if err != nil {
			return err
		}
		sample = s
		return nil
	})
	return sample, err
}

// acquire reads and decodes one sample and pushes it through the
// signal processors. Runs on the queue worker.
func (d *Device) acquire() (Sample, error) {
	data, err := readRegister(d.bus, RegOutXMSB, 6)
	if err != nil {
		d.ev.emitError(err)
		return Sample{}, err
	}

	d.mu.Lock()
	sample := decodeSample(data, d.scaleRange)
	magnitude, shaken := d.shake.Detect(sample)
	orientation, changed := d.orient.Update(sample)
	turbulence := d.orient.turbulence
	d.mu.Unlock()

	d.ev.emitSample(sample)
	if shaken {
		d.ev.emitShake(Shake{Magnitude: magnitude, Sample: sample})
	}
	if changed {
		d.ev.emitOrientation(OrientationChange{
			Orientation: orientation,
			Turbulence:  turbulence,
		})
	}
	return sample, nil
}

// ServeInterrupts consumes data-ready pulses until ctx is canceled or
// the channel closes. Each pulse triggers exactly one queued sample
// read; the next pulse is not taken until that read completes, so at
// most one acquisition is in flight. Read failures surface through the
// Error event and do not stop the loop.
func (d *Device) ServeInterrupts(ctx context.Context, ready <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ready:
			if !ok {
				return nil
			}
			_, _ = d.ReadAcceleration()
		}
	}
}

// SetShakeThreshold sets the shake magnitude threshold in g. Rejected
// synchronously if g <= 0; no device interaction happens.
func (d *Device) SetShakeThreshold(g float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shake.SetThreshold(g)
}

// SetOrientationSuppression sets the turbulence threshold gating
// orientation emissions. Rejected synchronously if v <= 0.0001.
func (d *Device) SetOrientationSuppression(v float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.orient.SetSuppression(v)
}

// SetSampleBufferLength resizes the orientation ring buffer. History
// is discarded and the tracker restarts cold. Rejected synchronously
// if n < 2.
func (d *Device) SetSampleBufferLength(n int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.orient.SetBufferLength(n)
}

// AverageAcceleration returns the per-axis mean over the orientation
// buffer. Zero immediately after creation or a resize.
func (d *Device) AverageAcceleration() Sample {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.orient.Average()
}

// Turbulence returns the last computed turbulence value.
func (d *Device) Turbulence() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.orient.Turbulence()
}

// OutputRate returns the currently programmed output rate in Hz, or 0
// when streaming is disabled.
func (d *Device) OutputRate() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outputRate
}

// ScaleRange returns the currently programmed full-scale range in g.
func (d *Device) ScaleRange() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scaleRange
}

// OnReady registers a consumer for the post-Init ready event.
func (d *Device) OnReady(fn func()) *Subscription { return d.ev.subscribeReady(fn) }

// OnSample registers a sample consumer. The first sample consumer
// enables the hardware data-ready interrupt through the command queue;
// canceling the last one disables it again.
func (d *Device) OnSample(fn func(Sample)) *Subscription { return d.ev.subscribeSample(fn) }

// OnData is the legacy alias for OnSample.
func (d *Device) OnData(fn func(Sample)) *Subscription { return d.ev.subscribeSample(fn) }

// OnShake registers a shake consumer.
func (d *Device) OnShake(fn func(Shake)) *Subscription { return d.ev.subscribeShake(fn) }

// OnOrientation registers an orientation-change consumer.
func (d *Device) OnOrientation(fn func(OrientationChange)) *Subscription {
	return d.ev.subscribeOrientation(fn)
}

// OnError registers an error consumer. Transport failures from queued
// operations are delivered here as well as returned to their callers.
func (d *Device) OnError(fn func(error)) *Subscription { return d.ev.subscribeError(fn) }
