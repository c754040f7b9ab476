// Package packetx sends and receives raw Ethernet frames for the Ethernet
// loopback test. Frames carry an 802.2 protocol type, are broadcast on the
// transmit interface and are read back from the receive interface with a
// socket that sees every frame on the link. This code currently only
// works on Linux systems, as it relies on AF_PACKET sockets.
package packetx

import (
	"errors"
	"fmt"
)

// ErrNoSupport indicates that this system does not support raw packet sockets.
var ErrNoSupport = errors.New("AF_PACKET sockets not supported")

const (
	// HeaderLen is the length of the Ethernet header that the kernel adds
	// to every frame.
	HeaderLen = 14
	// MinPayload is the shortest payload that is not padded on the wire.
	// Padding would make received frames differ from sent ones.
	MinPayload = 46
	// MaxPayload is the standard Ethernet MTU.
	MaxPayload = 1500
)

// ValidateSize checks that |size| fits an unpadded standard Ethernet frame.
func ValidateSize(size int) error {
	if size < MinPayload || size > MaxPayload {
		return fmt.Errorf("packet size %d out of range [%d, %d]", size, MinPayload, MaxPayload)
	}
	return nil
}

// Socket is a pair of packet sockets, one bound to the transmit interface
// and one to the receive interface. Socket implements loopback.Sender and
// loopback.Receiver.
type Socket struct {
	TxInterface string
	RxInterface string
	conn        *conn
}

// Open creates the sockets for a loopback between |tx| and |rx|. The two
// names may be the same for a single port with a loopback plug.
func Open(tx, rx string) (*Socket, error) {
	c, err := openConn(tx, rx)
	if err != nil {
		return nil, err
	}
	return &Socket{TxInterface: tx, RxInterface: rx, conn: c}, nil
}

// Send broadcasts |p| as the payload of one frame. It returns
// loopback.ErrWouldBlock when the interface queue is full.
func (s *Socket) Send(p []byte) error {
	return s.conn.send(p)
}

// Receive reads the payload of one frame into |p| without blocking. The
// self flag marks frames that this host transmitted.
func (s *Socket) Receive(p []byte) (int, bool, error) {
	return s.conn.receive(p)
}

// Close closes both sockets.
func (s *Socket) Close() error {
	return s.conn.close()
}

// SetPromisc turns promiscuous mode on or off on the interface |name|.
func SetPromisc(name string, on bool) error {
	return setPromisc(name, on)
}
