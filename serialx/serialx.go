// Package serialx opens and configures serial ports for the loopback
// tests. Asynchronous ports are put in raw 8N1 mode through termios and
// restored on Close. Synchronous ports, recognized by a device name ending
// in "s", are switched to SDLC framing through the ATC SPXS driver ioctl.
package serialx

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/intelight/atc-loopback/logging"
)

// ErrNoSupport indicates that this system cannot configure serial ports.
var ErrNoSupport = errors.New("serial port configuration not supported")

const (
	// DefaultAsyncSpeed is used when an unsupported asynchronous speed is
	// requested.
	DefaultAsyncSpeed = 1200
	// DefaultSyncSpeed is used when an unsupported synchronous speed is
	// requested.
	DefaultSyncSpeed = 153600
	// minTimeout bounds the poll timeout from below.
	minTimeout = 10 * time.Millisecond
)

// Lines is a set of modem control signals.
type Lines int

// Modem control signals.
const (
	DTR Lines = 1 << iota
	RTS
	CTS
	DCD
	DSR
	RI
)

// Has reports whether all of |l| are set.
func (s Lines) Has(l Lines) bool {
	return s&l == l
}

func (s Lines) String() string {
	var names []string
	for _, l := range []struct {
		bit  Lines
		name string
	}{{DTR, "DTR"}, {RTS, "RTS"}, {CTS, "CTS"}, {DCD, "DCD"}, {DSR, "DSR"}, {RI, "RI"}} {
		if s.Has(l.bit) {
			names = append(names, l.name)
		}
	}
	return "[" + strings.Join(names, " ") + "]"
}

// Config describes how to set up a port.
type Config struct {
	// Speed in bits per second.
	Speed int
	// Timeout bounds each Read and Write. Zero means no deadline.
	Timeout time.Duration
}

// IsSync reports whether |name| designates a synchronous port.
func IsSync(name string) bool {
	return strings.HasSuffix(name, "s")
}

// DefaultTimeout returns a poll timeout long enough to move two packets
// of |size| bytes at |speed| bits per second, counting ten bit times per
// byte.
func DefaultTimeout(size, speed int) time.Duration {
	if speed <= 0 {
		speed = DefaultAsyncSpeed
	}
	d := time.Duration(size*2*10) * time.Second / time.Duration(speed)
	if d < minTimeout {
		return minTimeout
	}
	return d
}

// Port is an open serial port. Port implements io.ReadWriteCloser; reads
// and writes that do not complete within the configured timeout return
// os.ErrDeadlineExceeded, which the stream endpoints treat as transient.
type Port struct {
	name    string
	sync    bool
	timeout time.Duration
	f       *os.File
	saved   *savedState
}

// Open opens and configures the port |name|.
func Open(name string, cfg Config) (*Port, error) {
	f, err := openFile(name)
	if err != nil {
		return nil, fmt.Errorf("could not open serial port %s: %w", name, err)
	}
	p := &Port{
		name:    name,
		sync:    IsSync(name),
		timeout: cfg.Timeout,
		f:       f,
	}
	if p.sync {
		err = p.configureSync(cfg.Speed)
	} else {
		err = p.configureAsync(cfg.Speed)
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	logging.Logger.WithField("port", name).WithField("sync", p.sync).Debug("serial port configured")
	return p, nil
}

// Name returns the device name the port was opened with.
func (p *Port) Name() string {
	return p.name
}

func (p *Port) String() string {
	return p.name
}

// Read reads from the port, waiting at most the configured timeout.
func (p *Port) Read(b []byte) (int, error) {
	if p.timeout > 0 {
		p.f.SetReadDeadline(time.Now().Add(p.timeout))
	}
	return p.f.Read(b)
}

// Write writes to the port, waiting at most the configured timeout.
func (p *Port) Write(b []byte) (int, error) {
	if p.timeout > 0 {
		p.f.SetWriteDeadline(time.Now().Add(p.timeout))
	}
	return p.f.Write(b)
}

// Close restores the original settings of an asynchronous port and
// closes it.
func (p *Port) Close() error {
	err := p.restore()
	if cerr := p.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// control runs |fn| on the port descriptor without switching the file
// back to blocking mode, as os.File.Fd would.
func (p *Port) control(fn func(fd int) error) error {
	rc, err := p.f.SyscallConn()
	if err != nil {
		return err
	}
	var opErr error
	if err := rc.Control(func(fd uintptr) {
		opErr = fn(int(fd))
	}); err != nil {
		return err
	}
	return opErr
}
