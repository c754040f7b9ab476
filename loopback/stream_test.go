package loopback_test

import (
	"bytes"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/intelight/atc-loopback/loopback"
	"github.com/intelight/atc-loopback/loopback/loopbacktest"
)

func TestStreamSender_PartialWrites(t *testing.T) {
	stream := &loopbacktest.Stream{Chunk: 10}
	tx := loopback.NewStreamSender(stream)
	payload := loopback.Payload(25)

	// 25 bytes need three writes of at most 10 bytes each.
	for i := 0; i < 2; i++ {
		if err := tx.Send(payload); !errors.Is(err, loopback.ErrWouldBlock) {
			t.Fatalf("Send() #%d = %v, want ErrWouldBlock", i, err)
		}
	}
	// The pending packet is completed regardless of the argument.
	if err := tx.Send([]byte("ignored")); err != nil {
		t.Fatalf("Send() = %v, want nil", err)
	}
	if stream.Buffered() != 25 {
		t.Errorf("Buffered() = %d, want 25", stream.Buffered())
	}
	got := make([]byte, 25)
	io.ReadFull(stream, got)
	if !bytes.Equal(got, payload) {
		t.Errorf("stream carried % x, want % x", got, payload)
	}
}

type errWriter struct{ err error }

func (w errWriter) Write(p []byte) (int, error) { return 0, w.err }
func (w errWriter) Read(p []byte) (int, error)  { return 0, w.err }

func TestStream_ErrorClassification(t *testing.T) {
	tests := []struct {
		err       error
		transient bool
	}{
		{err: loopback.ErrWouldBlock, transient: true},
		{err: os.ErrDeadlineExceeded, transient: true},
		{err: io.ErrClosedPipe, transient: false},
	}
	for _, tt := range tests {
		sendErr := loopback.NewStreamSender(errWriter{tt.err}).Send([]byte{1})
		_, _, recvErr := loopback.NewStreamReceiver(errWriter{tt.err}, 1).Receive(make([]byte, 1))
		for _, err := range []error{sendErr, recvErr} {
			if got := errors.Is(err, loopback.ErrWouldBlock); got != tt.transient {
				t.Errorf("%v: transient = %t, want %t (got %v)", tt.err, got, tt.transient, err)
			}
		}
	}
}

func TestStreamReceiver_Reassembles(t *testing.T) {
	stream := &loopbacktest.Stream{}
	rx := loopback.NewStreamReceiver(stream, 8)
	buf := make([]byte, 8)

	stream.Write([]byte{1, 2, 3})
	if _, _, err := rx.Receive(buf); !errors.Is(err, loopback.ErrWouldBlock) {
		t.Fatalf("Receive() on a partial packet = %v, want ErrWouldBlock", err)
	}
	stream.Write([]byte{4, 5, 6, 7, 8, 9})
	n, self, err := rx.Receive(buf)
	if err != nil || n != 8 || self {
		t.Fatalf("Receive() = %d, %t, %v", n, self, err)
	}
	if !bytes.Equal(buf, []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Errorf("got % x", buf)
	}
	if stream.Buffered() != 1 {
		t.Errorf("the next packet must stay in the stream, Buffered() = %d", stream.Buffered())
	}
}

func TestRun_Stream(t *testing.T) {
	stream := &loopbacktest.Stream{
		Chunk: 7,
		Stall: func(call int) bool { return call%3 == 0 },
	}
	const size = 64
	res, err := loopback.Run(
		loopback.NewStreamSender(stream),
		loopback.NewStreamReceiver(stream, size),
		loopback.Config{Count: 20, SizeA: size})
	if err != nil {
		t.Fatal(err)
	}
	if res.Sent != 20 || res.Received != 20 {
		t.Errorf("got %d/%d, want 20/20", res.Sent, res.Received)
	}
}
