package gps

import (
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Porter is the minimal serial port surface the backend needs.
type Porter interface {
	io.Reader
	io.Closer
}

// Opener opens the receiver port at path.
type Opener func(path string, baudRate int) (Porter, error)

// DefaultBaudRate is the NMEA 0183 standard rate.
const DefaultBaudRate = 4800

// ErrPermission marks a port the process is not allowed to open.
var ErrPermission = errors.New("serial port access denied")

// SerialOpener opens a real serial port with 8N1 framing.
func SerialOpener(path string, baudRate int) (Porter, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}

	port, err := serial.Open(path, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		var portErr *serial.PortError
		if errors.As(err, &portErr) && portErr.Code() == serial.PermissionDenied {
			return nil, fmt.Errorf("%w: %s: %w", ErrPermission, path, err)
		}

		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}

	return port, nil
}
