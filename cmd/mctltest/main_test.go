package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/intelight/atc-loopback/data"
	"github.com/intelight/atc-loopback/metrics"
	"github.com/intelight/atc-loopback/report"
	"github.com/intelight/atc-loopback/serialx"
)

// wiring is a pair of ports whose RTS drives CTS and DCD on the peer.
type wiring struct {
	rts    map[string]bool
	broken string
	closed int
}

type fakePort struct {
	name string
	peer string
	w    *wiring
}

func (p *fakePort) Name() string { return p.name }

func (p *fakePort) ModemLines() (serialx.Lines, error) {
	var l serialx.Lines
	if p.w.rts[p.name] {
		l |= serialx.RTS
	}
	if p.w.rts[p.peer] && p.name != p.w.broken {
		l |= serialx.CTS | serialx.DCD
	}
	return l, nil
}

func (p *fakePort) SetModemLines(l serialx.Lines) error {
	p.w.rts[p.name] = l.Has(serialx.RTS)
	return nil
}

func (p *fakePort) Close() error {
	p.w.closed++
	return nil
}

func install(t *testing.T, w *wiring, peers map[string]string) {
	old := openPort
	openPort = func(name string, cfg serialx.Config) (port, error) {
		peer, ok := peers[name]
		if !ok {
			return nil, os.ErrNotExist
		}
		return &fakePort{name: name, peer: peer, w: w}, nil
	}
	t.Cleanup(func() { openPort = old })
}

func TestParseArgs(t *testing.T) {
	a, b, err := parseArgs([]string{"/dev/ttyS1:/dev/ttyS2"})
	if err != nil || a != "/dev/ttyS1" || b != "/dev/ttyS2" {
		t.Errorf("parseArgs() = %q, %q, %v", a, b, err)
	}
	a, b, err = parseArgs([]string{"/dev/ttyS1"})
	if err != nil || a != b {
		t.Errorf("parseArgs() = %q, %q, %v", a, b, err)
	}
	for _, args := range [][]string{nil, {"a", "b"}, {"a:"}} {
		if _, _, err := parseArgs(args); err == nil {
			t.Errorf("parseArgs(%q) should fail", args)
		}
	}
}

func TestRun(t *testing.T) {
	*settle = 0
	tests := []struct {
		name    string
		a, b    string
		broken  string
		code    int
		closed  int
		outcome string
	}{
		{name: "pair", a: "A", b: "B", code: 0, closed: 2, outcome: data.OutcomePass},
		{name: "self", a: "S", b: "S", code: 0, closed: 1, outcome: data.OutcomePass},
		{name: "broken", a: "A", b: "B", broken: "B", code: 1, closed: 2, outcome: data.OutcomeSignal},
		{name: "missing", a: "A", b: "X", code: 1, closed: 1, outcome: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &wiring{rts: map[string]bool{}, broken: tt.broken}
			install(t, w, map[string]string{"A": "B", "B": "A", "S": "S"})
			var before float64
			if tt.outcome != "" {
				before = testutil.ToFloat64(metrics.ModemChecks.WithLabelValues(tt.outcome))
			}
			dir := t.TempDir()
			out := &bytes.Buffer{}
			if code := run(tt.a, tt.b, out, report.Sink{DataDir: dir}); code != tt.code {
				t.Errorf("run() = %d, want %d", code, tt.code)
			}
			if w.closed != tt.closed {
				t.Errorf("ports closed %d times, want %d", w.closed, tt.closed)
			}
			if tt.code == 0 && out.String() != "Modem Control Signal Test "+tt.a+":"+tt.b+" Passed\n" {
				t.Errorf("unexpected output %q", out)
			}
			if tt.outcome == "" {
				return
			}
			if got := testutil.ToFloat64(metrics.ModemChecks.WithLabelValues(tt.outcome)); got != before+1 {
				t.Errorf("modemctl_checks_total{result=%q} = %v, want %v", tt.outcome, got, before+1)
			}
			files, _ := filepath.Glob(filepath.Join(dir, "mctltest", "*", "*", "*", "*.jsonl.gz"))
			if len(files) != 1 {
				t.Errorf("archived records = %v", files)
			}
		})
	}
}
