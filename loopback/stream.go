package loopback

import (
	"errors"
	"io"
	"os"
	"syscall"
)

// isTransient reports whether |err| means "try again later" on a
// byte-stream endpoint.
func isTransient(err error) bool {
	return errors.Is(err, ErrWouldBlock) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, syscall.EAGAIN)
}

// StreamSender frames packets on top of a byte stream such as a serial
// port. A packet counts as sent only once all of its bytes have been
// written. When a write times out half way, the rest of that packet is
// written by the following calls before any new data, and the argument of
// those calls is ignored.
type StreamSender struct {
	w     io.Writer
	frame []byte
	off   int
}

// NewStreamSender returns a Sender writing on |w|. Writes on |w| should
// time out rather than block forever.
func NewStreamSender(w io.Writer) *StreamSender {
	return &StreamSender{w: w}
}

// Send implements Sender.
func (s *StreamSender) Send(p []byte) error {
	if len(s.frame) == 0 {
		s.frame = append(s.frame[:0], p...)
		s.off = 0
	}
	for s.off < len(s.frame) {
		n, err := s.w.Write(s.frame[s.off:])
		s.off += n
		if err != nil {
			if isTransient(err) {
				return ErrWouldBlock
			}
			return err
		}
		if n == 0 {
			return ErrWouldBlock
		}
	}
	s.frame = s.frame[:0]
	return nil
}

// StreamReceiver reassembles packets of a fixed size from a byte stream.
// Bytes read before a timeout are kept and completed by the following
// calls.
type StreamReceiver struct {
	r       io.Reader
	size    int
	partial []byte
}

// NewStreamReceiver returns a Receiver reading packets of |size| bytes
// from |r|. Reads on |r| should time out rather than block forever.
func NewStreamReceiver(r io.Reader, size int) *StreamReceiver {
	return &StreamReceiver{r: r, size: size, partial: make([]byte, 0, size)}
}

// Receive implements Receiver. A packet is returned only once a whole
// packet is available, truncated to len(p). Stream endpoints cannot tell
// their own data apart, so self is always false.
func (s *StreamReceiver) Receive(p []byte) (int, bool, error) {
	for len(s.partial) < s.size {
		n, err := s.r.Read(s.partial[len(s.partial):s.size])
		s.partial = s.partial[:len(s.partial)+n]
		if err != nil {
			if isTransient(err) {
				return 0, false, ErrWouldBlock
			}
			return 0, false, err
		}
		if n == 0 {
			return 0, false, ErrWouldBlock
		}
	}
	n := copy(p, s.partial)
	s.partial = s.partial[:0]
	return n, false, nil
}
