// Package modemctl checks the modem control wiring of a serial loopback:
// RTS driven on one port must show up as CTS and DCD on the other, in both
// directions, and must go away when RTS is released.
package modemctl

import (
	"fmt"
	"time"

	"github.com/apex/log"

	"github.com/intelight/atc-loopback/logging"
	"github.com/intelight/atc-loopback/serialx"
)

// DefaultSettle is the time given to the lines to settle after RTS changes.
const DefaultSettle = 20 * time.Millisecond

// Port is a serial port with modem control lines. *serialx.Port
// implements it.
type Port interface {
	Name() string
	ModemLines() (serialx.Lines, error)
	SetModemLines(serialx.Lines) error
}

// SignalError reports a modem line that is not in the expected state.
type SignalError struct {
	Port   string
	Signal serialx.Lines
	// Asserted is the state the signal should have been in.
	Asserted bool
}

func (e *SignalError) Error() string {
	what := "assert"
	if !e.Asserted {
		what = "de-assert"
	}
	return fmt.Sprintf("%s failed to %s, port %s", signalName(e.Signal), what, e.Port)
}

func signalName(l serialx.Lines) string {
	s := l.String()
	return s[1 : len(s)-1]
}

// Run performs the eight checks of the modem control test between |a| and
// |b|, waiting |settle| after every change of RTS. It returns the first
// failure. |a| and |b| may be the same port when a single port is looped
// back on itself.
func Run(a, b Port, settle time.Duration) error {
	for _, pair := range [][2]Port{{a, b}, {b, a}} {
		for _, on := range []bool{true, false} {
			if err := step(pair[0], pair[1], on, settle); err != nil {
				return err
			}
		}
	}
	return nil
}

// step drives RTS on |out| to |on| and checks that RTS reads back and that
// CTS and DCD follow on |in|.
func step(out, in Port, on bool, settle time.Duration) error {
	logger := logging.Logger.WithFields(log.Fields{
		"out": out.Name(),
		"in":  in.Name(),
		"rts": on,
	})
	lines, err := out.ModemLines()
	if err != nil {
		return err
	}
	if on {
		lines |= serialx.RTS
	} else {
		lines &^= serialx.RTS
	}
	if err := out.SetModemLines(lines); err != nil {
		return err
	}
	time.Sleep(settle)
	if lines, err = out.ModemLines(); err != nil {
		return err
	}
	if lines.Has(serialx.RTS) != on {
		return &SignalError{Port: out.Name(), Signal: serialx.RTS, Asserted: on}
	}
	peer, err := in.ModemLines()
	if err != nil {
		return err
	}
	for _, sig := range []serialx.Lines{serialx.CTS, serialx.DCD} {
		if peer.Has(sig) != on {
			return &SignalError{Port: in.Name(), Signal: sig, Asserted: on}
		}
	}
	logger.WithField("peer", peer.String()).Debug("modemctl: step passed")
	return nil
}
