package serialx

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// atcConfig mirrors atc_spxs_config_t.
type atcConfig struct {
	Protocol    int32
	Baud        int32
	ClockSource int32
	ClockMode   int32
}

// ATCWriteConfig is the ATC_SPXS_WRITE_CONFIG request number, encoded as
// _IOW('m', 1, atc_spxs_config_t).
var ATCWriteConfig = uintptr(1<<30 | unsafe.Sizeof(atcConfig{})<<16 | 'm'<<8 | 1)

var termiosSpeeds = map[int]uint32{
	1200:   unix.B1200,
	1800:   unix.B1800,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

var modemBits = []struct {
	line Lines
	bit  int
}{
	{DTR, unix.TIOCM_DTR},
	{RTS, unix.TIOCM_RTS},
	{CTS, unix.TIOCM_CTS},
	{DCD, unix.TIOCM_CAR},
	{DSR, unix.TIOCM_DSR},
	{RI, unix.TIOCM_RNG},
}

type savedState struct {
	termios *unix.Termios
}

func openFile(name string) (*os.File, error) {
	return os.OpenFile(name, os.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
}

func (p *Port) configureAsync(speed int) error {
	baud := termiosSpeeds[asyncSpeed(speed)]
	return p.control(func(fd int) error {
		old, err := unix.IoctlGetTermios(fd, unix.TCGETS)
		if err != nil {
			return fmt.Errorf("port_config %s: %w", p.name, err)
		}
		t := *old
		t.Cflag = baud | unix.CS8 | unix.CLOCAL | unix.CREAD
		t.Iflag = unix.IGNBRK | unix.IGNPAR
		t.Oflag = 0
		t.Lflag = 0
		t.Cc[unix.VTIME] = 0
		t.Cc[unix.VMIN] = 1
		t.Ispeed = baud
		t.Ospeed = baud
		if err := unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIFLUSH); err != nil {
			return fmt.Errorf("port_config %s: %w", p.name, err)
		}
		if err := unix.IoctlSetTermios(fd, unix.TCSETS, &t); err != nil {
			return fmt.Errorf("port_config %s: %w", p.name, err)
		}
		p.saved = &savedState{termios: old}
		return nil
	})
}

func (p *Port) configureSync(speed int) error {
	cfg := atcConfig{
		Protocol:    atcSDLC,
		Baud:        syncSpeed(speed),
		ClockSource: atcClockInternal,
		ClockMode:   atcGated,
	}
	return p.control(func(fd int) error {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), ATCWriteConfig,
			uintptr(unsafe.Pointer(&cfg)))
		if errno != 0 {
			return fmt.Errorf("ioctl ATC_SPXS_WRITE_CONFIG %s: %w", p.name, errno)
		}
		return nil
	})
}

func (p *Port) restore() error {
	if p.saved == nil {
		return nil
	}
	return p.control(func(fd int) error {
		unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIFLUSH)
		return unix.IoctlSetTermios(fd, unix.TCSETS, p.saved.termios)
	})
}

// ModemLines returns the current modem control signals.
func (p *Port) ModemLines() (Lines, error) {
	var lines Lines
	err := p.control(func(fd int) error {
		bits, err := unix.IoctlGetInt(fd, unix.TIOCMGET)
		if err != nil {
			return fmt.Errorf("could not get mctrl state, port %s: %w", p.name, err)
		}
		for _, m := range modemBits {
			if bits&m.bit != 0 {
				lines |= m.line
			}
		}
		return nil
	})
	return lines, err
}

// SetModemLines sets the output modem control signals to |lines|.
func (p *Port) SetModemLines(lines Lines) error {
	return p.control(func(fd int) error {
		bits, err := unix.IoctlGetInt(fd, unix.TIOCMGET)
		if err != nil {
			return fmt.Errorf("could not get mctrl state, port %s: %w", p.name, err)
		}
		for _, m := range modemBits {
			if lines.Has(m.line) {
				bits |= m.bit
			} else {
				bits &^= m.bit
			}
		}
		if err := unix.IoctlSetPointerInt(fd, unix.TIOCMSET, bits); err != nil {
			return fmt.Errorf("could not set mctrl state, port %s: %w", p.name, err)
		}
		return nil
	})
}
