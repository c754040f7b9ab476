package modemctl

import (
	"errors"
	"testing"

	"github.com/intelight/atc-loopback/serialx"
)

// wire is a pair of fake ports where the RTS of one end drives the CTS and
// DCD of the other end.
type wire struct {
	rts [2]bool
	// Cut signals on the receiving end, per end.
	noCTS, noDCD [2]bool
	// Stuck signals on the receiving end, per end.
	stuckCTS [2]bool
	// noRTS ignores RTS changes on an end.
	noRTS [2]bool
	err   error
	sets  []string
}

type end struct {
	w    *wire
	i    int
	name string
}

func (w *wire) ends() (*end, *end) {
	return &end{w: w, i: 0, name: "A"}, &end{w: w, i: 1, name: "B"}
}

func (e *end) Name() string { return e.name }

func (e *end) ModemLines() (serialx.Lines, error) {
	if e.w.err != nil {
		return 0, e.w.err
	}
	var l serialx.Lines
	if e.w.rts[e.i] {
		l |= serialx.RTS
	}
	peer := e.w.rts[1-e.i]
	if (peer && !e.w.noCTS[e.i]) || e.w.stuckCTS[e.i] {
		l |= serialx.CTS
	}
	if peer && !e.w.noDCD[e.i] {
		l |= serialx.DCD
	}
	return l, nil
}

func (e *end) SetModemLines(l serialx.Lines) error {
	e.w.sets = append(e.w.sets, e.name+l.String())
	if !e.w.noRTS[e.i] {
		e.w.rts[e.i] = l.Has(serialx.RTS)
	}
	return nil
}

// selfLoop is a single port with RTS wired to its own CTS and DCD.
type selfLoop struct{ rts bool }

func (s *selfLoop) Name() string { return "S" }
func (s *selfLoop) ModemLines() (serialx.Lines, error) {
	if s.rts {
		return serialx.RTS | serialx.CTS | serialx.DCD, nil
	}
	return 0, nil
}
func (s *selfLoop) SetModemLines(l serialx.Lines) error {
	s.rts = l.Has(serialx.RTS)
	return nil
}

func TestRun_Passes(t *testing.T) {
	w := &wire{}
	a, b := w.ends()
	if err := Run(a, b, 0); err != nil {
		t.Fatal(err)
	}
	want := []string{"A[RTS]", "A[]", "B[RTS]", "B[]"}
	if len(w.sets) != len(want) {
		t.Fatalf("sets = %v, want %v", w.sets, want)
	}
	for i := range want {
		if w.sets[i] != want[i] {
			t.Errorf("sets[%d] = %s, want %s", i, w.sets[i], want[i])
		}
	}
	s := &selfLoop{}
	if err := Run(s, s, 0); err != nil {
		t.Errorf("Run(self loop) = %v", err)
	}
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(w *wire)
		want  SignalError
		msg   string
	}{
		{
			name:  "rts-stuck",
			setup: func(w *wire) { w.noRTS[0] = true },
			want:  SignalError{Port: "A", Signal: serialx.RTS, Asserted: true},
			msg:   "RTS failed to assert, port A",
		},
		{
			name:  "cts-cut",
			setup: func(w *wire) { w.noCTS[1] = true },
			want:  SignalError{Port: "B", Signal: serialx.CTS, Asserted: true},
			msg:   "CTS failed to assert, port B",
		},
		{
			name:  "dcd-cut-reverse",
			setup: func(w *wire) { w.noDCD[0] = true },
			want:  SignalError{Port: "A", Signal: serialx.DCD, Asserted: true},
			msg:   "DCD failed to assert, port A",
		},
		{
			name:  "cts-stuck",
			setup: func(w *wire) { w.stuckCTS[1] = true },
			want:  SignalError{Port: "B", Signal: serialx.CTS, Asserted: false},
			msg:   "CTS failed to de-assert, port B",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &wire{}
			tt.setup(w)
			a, b := w.ends()
			err := Run(a, b, 0)
			var sigErr *SignalError
			if !errors.As(err, &sigErr) {
				t.Fatalf("Run() = %v, want a SignalError", err)
			}
			if *sigErr != tt.want {
				t.Errorf("Run() = %+v, want %+v", *sigErr, tt.want)
			}
			if err.Error() != tt.msg {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.msg)
			}
		})
	}
}

func TestRun_IOError(t *testing.T) {
	ioErr := errors.New("ioctl failed")
	w := &wire{err: ioErr}
	a, b := w.ends()
	if err := Run(a, b, 0); !errors.Is(err, ioErr) {
		t.Errorf("Run() = %v, want %v", err, ioErr)
	}
}
