// Package bridge tunnels accelerometer register traffic over a framed
// serial link to a pin-level bridge MCU. It implements core.Transport,
// so a Device can run against a sensor that is not wired to the host
// directly.
package bridge

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"mma8452/host/serial"
	"mma8452/protocol"
)

// DefaultTimeout bounds how long a request waits for the bridge to
// answer before the transaction is abandoned.
const DefaultTimeout = 2 * time.Second

// ErrClosed is returned for requests made after Close.
var ErrClosed = errors.New("bridge closed")

// Bridge is the host side of the register link. One request is in
// flight at a time; unsolicited data-ready pulses from the bridge MCU
// are surfaced on a separate channel.
type Bridge struct {
	port    io.ReadWriteCloser
	timeout time.Duration

	// reqMu serializes request/response pairs on the link.
	reqMu sync.Mutex

	statusChan chan uint8
	dataChan   chan []byte
	readyChan  chan struct{}

	stopChan  chan struct{}
	doneChan  chan struct{}
	closeOnce sync.Once
}

// Open opens the serial port described by cfg and starts a bridge on
// it.
func Open(cfg *serial.Config) (*Bridge, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	return New(port), nil
}

// New starts a bridge over an already-open link. The bridge owns the
// port and closes it on Close.
func New(port io.ReadWriteCloser) *Bridge {
	b := &Bridge{
		port:       port,
		timeout:    DefaultTimeout,
		statusChan: make(chan uint8, 1),
		dataChan:   make(chan []byte, 1),
		readyChan:  make(chan struct{}, 1),
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}

	// Start background reader
	go b.readLoop()

	return b
}

// SetTimeout overrides the per-request response timeout.
func (b *Bridge) SetTimeout(d time.Duration) {
	if d > 0 {
		b.timeout = d
	}
}

// Write sends a register write to the bridge and waits for its status
// acknowledgement. data is the register address followed by the value
// bytes.
func (b *Bridge) Write(data []byte) error {
	b.reqMu.Lock()
	defer b.reqMu.Unlock()

	if err := b.send(protocol.OpWriteReg, data); err != nil {
		return err
	}

	select {
	case code := <-b.statusChan:
		if code != protocol.StatusOK {
			return fmt.Errorf("bridge rejected write: status 0x%02X", code)
		}
		return nil

	case <-time.After(b.timeout):
		return fmt.Errorf("write ack timeout after %v", b.timeout)

	case <-b.stopChan:
		return ErrClosed
	}
}

// Transfer writes w, then reads n bytes back in the same bus
// transaction on the far side. Used for register reads: w holds the
// register address.
func (b *Bridge) Transfer(w []byte, n int) ([]byte, error) {
	if n <= 0 || n > protocol.FrameLengthMax-protocol.FrameLengthMin {
		return nil, fmt.Errorf("invalid transfer length %d", n)
	}

	payload := make([]byte, 0, len(w)+1)
	payload = append(payload, w...)
	payload = append(payload, uint8(n))

	b.reqMu.Lock()
	defer b.reqMu.Unlock()

	if err := b.send(protocol.OpTransfer, payload); err != nil {
		return nil, err
	}

	select {
	case data := <-b.dataChan:
		if len(data) != n {
			return nil, fmt.Errorf("short transfer: got %d bytes, want %d", len(data), n)
		}
		return data, nil

	case <-time.After(b.timeout):
		return nil, fmt.Errorf("transfer timeout after %v", b.timeout)

	case <-b.stopChan:
		return nil, ErrClosed
	}
}

// DataReady pulses once per interrupt edge forwarded by the bridge
// MCU. Pass it to Device.ServeInterrupts.
func (b *Bridge) DataReady() <-chan struct{} {
	return b.readyChan
}

// Close stops the read loop and closes the underlying port.
func (b *Bridge) Close() error {
	b.closeOnce.Do(func() {
		close(b.stopChan)
		b.port.Close()
		<-b.doneChan
	})
	return nil
}

// send frames and writes one request.
func (b *Bridge) send(op uint8, payload []byte) error {
	frame, err := protocol.Encode(op, payload)
	if err != nil {
		return err
	}

	n, err := b.port.Write(frame)
	if err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	if n != len(frame) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(frame))
	}
	return nil
}

// readLoop continuously reads from the port and dispatches decoded
// frames.
func (b *Bridge) readLoop() {
	defer close(b.doneChan)

	dec := protocol.NewDecoder()
	buffer := make([]byte, 256)

	for {
		select {
		case <-b.stopChan:
			return
		default:
		}

		n, err := b.port.Read(buffer)
		if err != nil {
			if err == io.EOF {
				return
			}
			select {
			case <-b.stopChan:
				return
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}

		if n == 0 {
			continue
		}

		dec.Feed(buffer[:n])
		for {
			frame, ok := dec.Next()
			if !ok {
				break
			}
			b.dispatch(frame)
		}
	}
}

// dispatch routes one frame. Responses overwrite a stale unclaimed
// predecessor rather than blocking the read loop; data-ready pulses
// coalesce when the consumer lags.
func (b *Bridge) dispatch(frame protocol.Frame) {
	switch frame.Op {
	case protocol.OpStatus:
		if len(frame.Payload) != 1 {
			return
		}
		select {
		case <-b.statusChan:
		default:
		}
		b.statusChan <- frame.Payload[0]

	case protocol.OpData:
		select {
		case <-b.dataChan:
		default:
		}
		b.dataChan <- frame.Payload

	case protocol.OpDataReady:
		select {
		case b.readyChan <- struct{}{}:
		default:
		}
	}
}
