// Package loopbacktest provides in-process loopback endpoints for tests.
package loopbacktest

import (
	"github.com/intelight/atc-loopback/loopback"
)

type frame struct {
	data []byte
	self bool
}

// Pipe is a packet loopback where every accepted send is immediately
// visible to Receive. The hooks inject faults; all of them are optional.
// Pipe is not safe for concurrent use, matching the single threaded loop.
type Pipe struct {
	// BlockSend makes send attempt |attempt| (counted from zero) return
	// loopback.ErrWouldBlock.
	BlockSend func(attempt int) bool
	// Drop discards the |i|-th accepted packet (counted from zero).
	Drop func(i int) bool
	// Corrupt may modify the copy of the |i|-th accepted packet before it
	// is delivered.
	Corrupt func(i int, p []byte)
	// Echo delivers a self-originated copy ahead of every packet.
	Echo bool
	// SendErr and ReceiveErr, when set, are returned by every call.
	SendErr    error
	ReceiveErr error

	// Sizes records the size of every accepted packet.
	Sizes []int

	attempts int
	queue    []frame
}

// Send implements loopback.Sender.
func (p *Pipe) Send(b []byte) error {
	if p.SendErr != nil {
		return p.SendErr
	}
	attempt := p.attempts
	p.attempts++
	if p.BlockSend != nil && p.BlockSend(attempt) {
		return loopback.ErrWouldBlock
	}
	i := len(p.Sizes)
	p.Sizes = append(p.Sizes, len(b))
	if p.Echo {
		p.queue = append(p.queue, frame{data: append([]byte(nil), b...), self: true})
	}
	if p.Drop != nil && p.Drop(i) {
		return nil
	}
	data := append([]byte(nil), b...)
	if p.Corrupt != nil {
		p.Corrupt(i, data)
	}
	p.queue = append(p.queue, frame{data: data})
	return nil
}

// Receive implements loopback.Receiver.
func (p *Pipe) Receive(b []byte) (int, bool, error) {
	if p.ReceiveErr != nil {
		return 0, false, p.ReceiveErr
	}
	if len(p.queue) == 0 {
		return 0, false, loopback.ErrWouldBlock
	}
	f := p.queue[0]
	p.queue = p.queue[1:]
	return copy(b, f.data), f.self, nil
}

// Stream is an in-process byte stream. Reads return loopback.ErrWouldBlock
// when no data is buffered. Writes and reads move at most Chunk bytes per
// call when Chunk is positive, to exercise partial transfers.
type Stream struct {
	Chunk int
	// Stall makes write call |call| (counted from zero) accept nothing
	// and return loopback.ErrWouldBlock.
	Stall func(call int) bool

	buf    []byte
	writes int
}

func (s *Stream) limit(n int) int {
	if s.Chunk > 0 && n > s.Chunk {
		return s.Chunk
	}
	return n
}

// Write appends data to the stream.
func (s *Stream) Write(b []byte) (int, error) {
	call := s.writes
	s.writes++
	if s.Stall != nil && s.Stall(call) {
		return 0, loopback.ErrWouldBlock
	}
	n := s.limit(len(b))
	s.buf = append(s.buf, b[:n]...)
	if n < len(b) {
		return n, loopback.ErrWouldBlock
	}
	return n, nil
}

// Read drains buffered data.
func (s *Stream) Read(b []byte) (int, error) {
	if len(s.buf) == 0 {
		return 0, loopback.ErrWouldBlock
	}
	n := copy(b[:s.limit(len(b))], s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

// Buffered returns the number of bytes written and not yet read.
func (s *Stream) Buffered() int {
	return len(s.buf)
}
