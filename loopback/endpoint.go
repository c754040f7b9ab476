package loopback

import (
	"errors"
	"fmt"
)

// ErrWouldBlock is returned by endpoints that are transiently unable to
// make progress. The loop retries on the next cycle.
var ErrWouldBlock = errors.New("loopback: operation would block")

// Sender is the transmit side of a loopback. Send returns nil when the
// whole of |p| has been accepted, ErrWouldBlock when the endpoint is not
// ready, and any other error when the endpoint has failed.
type Sender interface {
	Send(p []byte) error
}

// Receiver is the receive side of a loopback. Receive reads at most
// len(p) bytes into |p|. The self flag is set when the endpoint can tell
// that the data was originated locally, e.g. an outgoing frame seen on a
// shared link.
type Receiver interface {
	Receive(p []byte) (n int, self bool, err error)
}

// EndpointError is returned when an endpoint reports an unrecoverable
// failure. The run is aborted and never retried.
type EndpointError struct {
	Op  string
	Err error
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *EndpointError) Unwrap() error {
	return e.Err
}

// MismatchError is returned when received data differs from the data that
// was sent. It means the physical path is faulty.
type MismatchError struct {
	// Sent and Received are the counters at the time of the failure.
	Sent     uint64
	Received uint64
	// Offset is the first differing byte within the packet. For a packet
	// whose length is not a sent size, it is the received length.
	Offset int
	// Truncated is set when the length of the packet is wrong.
	Truncated bool
	// Got and Want hold up to five bytes starting at Offset.
	Got  []byte
	Want []byte
}

func (e *MismatchError) Error() string {
	if e.Truncated {
		return fmt.Sprintf("rx packet #%d has %d bytes, not the size of any tx packet (%d sent)",
			e.Received, e.Offset, e.Sent)
	}
	return fmt.Sprintf("rx packet #%d differs from tx packet %d at offset %d: got % x, want % x",
		e.Received, e.Sent, e.Offset, e.Got, e.Want)
}

// compare checks |got| against the prefix of |want| and returns a
// MismatchError describing the first difference, or nil.
func compare(got, want []byte, sent, received uint64) *MismatchError {
	for i := range got {
		if i >= len(want) || got[i] != want[i] {
			end := i + 5
			return &MismatchError{
				Sent:     sent,
				Received: received,
				Offset:   i,
				Got:      append([]byte(nil), got[i:min(end, len(got))]...),
				Want:     append([]byte(nil), want[min(i, len(want)):min(end, len(want))]...),
			}
		}
	}
	return nil
}

// wrongLength returns the MismatchError of a packet of |n| bytes whose
// length matches no sent packet.
func wrongLength(n int, want []byte, sent, received uint64) *MismatchError {
	return &MismatchError{
		Sent:      sent,
		Received:  received,
		Offset:    n,
		Truncated: true,
		Got:       []byte{},
		Want:      append([]byte(nil), want[min(n, len(want)):min(n+5, len(want))]...),
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
