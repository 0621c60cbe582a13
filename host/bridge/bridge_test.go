package bridge

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mma8452/protocol"
)

// pipePort joins two in-memory pipes into a Port-shaped duplex link.
type pipePort struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p *pipePort) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipePort) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p *pipePort) Flush() error                { return nil }

func (p *pipePort) Close() error {
	p.r.Close()
	return p.w.Close()
}

// newLink returns the host end of a duplex link plus the far end's
// reader and writer, standing in for the bridge MCU.
func newLink() (host *pipePort, devRead *io.PipeReader, devWrite *io.PipeWriter) {
	hostR, devW := io.Pipe()
	devR, hostW := io.Pipe()
	return &pipePort{r: hostR, w: hostW}, devR, devW
}

// serveRequests decodes host frames and answers each with reply.
func serveRequests(t *testing.T, devRead *io.PipeReader, devWrite *io.PipeWriter, reply func(protocol.Frame) (uint8, []byte)) {
	t.Helper()
	go func() {
		dec := protocol.NewDecoder()
		buf := make([]byte, 128)
		for {
			n, err := devRead.Read(buf)
			if err != nil {
				return
			}
			dec.Feed(buf[:n])
			for {
				frame, ok := dec.Next()
				if !ok {
					break
				}
				op, payload := reply(frame)
				out, err := protocol.Encode(op, payload)
				if err != nil {
					return
				}
				if _, err := devWrite.Write(out); err != nil {
					return
				}
			}
		}
	}()
}

func TestBridgeWriteAcknowledged(t *testing.T) {
	host, devRead, devWrite := newLink()

	var seen protocol.Frame
	serveRequests(t, devRead, devWrite, func(f protocol.Frame) (uint8, []byte) {
		seen = f
		return protocol.OpStatus, []byte{protocol.StatusOK}
	})

	b := New(host)
	defer b.Close()

	require.NoError(t, b.Write([]byte{0x2A, 0x01}))
	require.Equal(t, uint8(protocol.OpWriteReg), seen.Op)
	require.Equal(t, []byte{0x2A, 0x01}, seen.Payload)
}

func TestBridgeWriteRejectedStatus(t *testing.T) {
	host, devRead, devWrite := newLink()

	serveRequests(t, devRead, devWrite, func(protocol.Frame) (uint8, []byte) {
		return protocol.OpStatus, []byte{0x05}
	})

	b := New(host)
	defer b.Close()

	err := b.Write([]byte{0x0E, 0x02})
	require.Error(t, err)
	require.Contains(t, err.Error(), "0x05")
}

func TestBridgeTransferReturnsData(t *testing.T) {
	host, devRead, devWrite := newLink()

	serveRequests(t, devRead, devWrite, func(f protocol.Frame) (uint8, []byte) {
		if f.Op != protocol.OpTransfer {
			return protocol.OpStatus, []byte{0x01}
		}
		count := int(f.Payload[len(f.Payload)-1])
		data := make([]byte, count)
		for i := range data {
			data[i] = uint8(i + 1)
		}
		return protocol.OpData, data
	})

	b := New(host)
	defer b.Close()

	got, err := b.Transfer([]byte{0x01}, 6)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6}, got)
}

func TestBridgeTransferLengthMismatch(t *testing.T) {
	host, devRead, devWrite := newLink()

	serveRequests(t, devRead, devWrite, func(protocol.Frame) (uint8, []byte) {
		return protocol.OpData, []byte{0xAB}
	})

	b := New(host)
	defer b.Close()

	_, err := b.Transfer([]byte{0x0D}, 2)
	require.Error(t, err)
	require.Contains(t, err.Error(), "short transfer")
}

func TestBridgeTransferRejectsBadLength(t *testing.T) {
	host, _, _ := newLink()
	b := New(host)
	defer b.Close()

	_, err := b.Transfer([]byte{0x01}, 0)
	require.Error(t, err)

	_, err = b.Transfer([]byte{0x01}, protocol.FrameLengthMax)
	require.Error(t, err)
}

func TestBridgeDataReadyPulses(t *testing.T) {
	host, _, devWrite := newLink()

	b := New(host)
	defer b.Close()

	pulse, err := protocol.Encode(protocol.OpDataReady, nil)
	require.NoError(t, err)

	_, err = devWrite.Write(pulse)
	require.NoError(t, err)

	select {
	case <-b.DataReady():
	case <-time.After(time.Second):
		t.Fatal("no data-ready pulse observed")
	}
}

func TestBridgeRequestTimeout(t *testing.T) {
	host, devRead, _ := newLink()

	// Swallow the request; never answer.
	go io.Copy(io.Discard, devRead)

	b := New(host)
	defer b.Close()
	b.SetTimeout(50 * time.Millisecond)

	err := b.Write([]byte{0x2A, 0x01})
	require.Error(t, err)
	require.Contains(t, err.Error(), "timeout")
}

func TestBridgeClosedRequestsFail(t *testing.T) {
	host, _, _ := newLink()

	b := New(host)
	require.NoError(t, b.Close())
	b.SetTimeout(50 * time.Millisecond)

	// The port is gone, so the request fails at the write or while
	// waiting for an answer that can never come.
	require.Error(t, b.Write([]byte{0x2A, 0x01}))
}
