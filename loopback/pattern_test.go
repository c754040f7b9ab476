package loopback

import (
	"bytes"
	"testing"
)

func TestPayload(t *testing.T) {
	p := Payload(120)
	if !bytes.Equal(p[:49], Pattern[:]) || !bytes.Equal(p[49:98], Pattern[:]) {
		t.Error("Payload() does not repeat the pattern")
	}
	if !bytes.Equal(p[98:], Pattern[:22]) {
		t.Errorf("tail = % x", p[98:])
	}
	if len(Payload(0)) != 0 {
		t.Error("Payload(0) must be empty")
	}
	if Pattern[0] != 0x3e || Pattern[48] != 0xfe {
		t.Errorf("pattern changed: % x", Pattern)
	}
}

func TestCompare(t *testing.T) {
	want := Payload(60)
	if m := compare(want[:30], want, 1, 1); m != nil {
		t.Errorf("compare(prefix) = %v", m)
	}
	got := append([]byte(nil), want[:60]...)
	got[58] = 0
	m := compare(got, want, 4, 2)
	if m == nil || m.Offset != 58 || len(m.Got) != 2 || m.Sent != 4 || m.Received != 2 {
		t.Fatalf("compare() = %+v", m)
	}
	if m.Error() == "" {
		t.Error("empty message")
	}
	// Received more than was ever sent.
	m = compare(Payload(61), want, 0, 0)
	if m == nil || m.Offset != 60 || len(m.Want) != 0 {
		t.Errorf("compare(longer) = %+v", m)
	}
}

func TestSchedule(t *testing.T) {
	s := newSchedule(512, 1024)
	var got []int
	for i := 0; i < 4; i++ {
		got = append(got, s.Current())
		s.Advance()
	}
	if got[0] != 512 || got[1] != 1024 || got[2] != 512 || got[3] != 1024 {
		t.Errorf("sizes = %v", got)
	}
	if s.Max() != 1024 || s.Average() != 768 {
		t.Errorf("Max/Average = %d/%f", s.Max(), s.Average())
	}
	for n, want := range map[int]bool{0: false, 3: false, 512: true, 1000: false, 1024: true} {
		if s.Fits(n) != want {
			t.Errorf("Fits(%d) = %v, want %v", n, !want, want)
		}
	}
}

func TestWrongLength(t *testing.T) {
	want := Payload(64)
	m := wrongLength(3, want, 5, 4)
	if !m.Truncated || m.Offset != 3 || len(m.Got) != 0 || !bytes.Equal(m.Want, want[3:8]) {
		t.Errorf("wrongLength() = %+v", m)
	}
	if m.Error() != "rx packet #4 has 3 bytes, not the size of any tx packet (5 sent)" {
		t.Errorf("Error() = %q", m.Error())
	}
	if m := wrongLength(62, want, 1, 0); !bytes.Equal(m.Want, want[62:]) {
		t.Errorf("wrongLength(62).Want = % x", m.Want)
	}
}
