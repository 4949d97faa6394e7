package modem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

//go:generate go tool mockgen -source=transport.go -destination=mock_transport.go -package=modem

// Transport represents an established, bidirectional byte stream to the modem.
//
// A Transport is assumed to be already connected and ready for use. Read must
// not wait for data: when nothing is pending it returns 0 and a nil error
// (a serial port with a short read timeout behaves this way). The Session
// relies on this to poll for responses while keeping track of timeouts.
//
// Typical implementations include serial ports or in-memory fakes used for
// testing.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport to the modem.
//
// Dialer abstracts how the modem connection is created (for example, via a
// serial port or a test double) and is intended to be used during Session
// construction only. Once a Transport is obtained, the Dialer is no longer
// needed.
type Dialer interface {
	// Dial is responsible for creating and returning a connected Transport. It
	// should respect cancellation provided by the context. Dial returns an
	// error if the transport cannot be established.
	Dial(ctx context.Context) (Transport, error)
}

// DefaultReadTimeout is how long a serial Read may wait before reporting
// that nothing is pending.
const DefaultReadTimeout = 5 * time.Millisecond

// SerialDialer opens the modem over a serial port using go.bug.st/serial.
type SerialDialer struct {
	// PortName is the device path, e.g. /dev/ttyS1 or /dev/ttyUSB0.
	PortName string
	// BaudRate is used when Mode is nil. Zero selects 115200.
	BaudRate int
	// Mode overrides the full line settings when set.
	Mode *serial.Mode
	// ReadTimeout bounds a single Read. Zero selects DefaultReadTimeout.
	ReadTimeout time.Duration
}

// Dial opens the serial port and configures it for non-waiting reads.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errors.New("gsm: context is nil")
	}
	if d.PortName == "" {
		return nil, errors.New("gsm: serial port name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		baud := d.BaudRate
		if baud == 0 {
			baud = 115200
		}
		mode = &serial.Mode{
			BaudRate: baud,
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("gsm: open %s: %w", d.PortName, err)
	}

	timeout := d.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("gsm: set read timeout on %s: %w", d.PortName, err)
	}

	return port, nil
}
