package packetx

import (
	"errors"
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/intelight/atc-loopback/loopback"
)

var broadcast = [8]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// htons converts a protocol number to network byte order, as expected in
// sockaddr_ll and by socket(2).
func htons(v uint16) uint16 {
	return v<<8 | v>>8
}

type conn struct {
	tx int
	rx int
	to *unix.SockaddrLinklayer
}

func openConn(txName, rxName string) (*conn, error) {
	txIf, err := net.InterfaceByName(txName)
	if err != nil {
		return nil, fmt.Errorf("unable to get %s device index: %w", txName, err)
	}
	rxIf, err := net.InterfaceByName(rxName)
	if err != nil {
		return nil, fmt.Errorf("unable to get %s device index: %w", rxName, err)
	}
	tx, err := unix.Socket(unix.AF_PACKET, unix.SOCK_DGRAM, int(htons(unix.ETH_P_802_2)))
	if err != nil {
		return nil, fmt.Errorf("socket() failed: %w", err)
	}
	rx, err := unix.Socket(unix.AF_PACKET, unix.SOCK_DGRAM, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		unix.Close(tx)
		return nil, fmt.Errorf("socket() failed: %w", err)
	}
	err = unix.Bind(rx, &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  rxIf.Index,
	})
	if err != nil {
		unix.Close(tx)
		unix.Close(rx)
		return nil, fmt.Errorf("bind() failed: %w", err)
	}
	return &conn{
		tx: tx,
		rx: rx,
		to: &unix.SockaddrLinklayer{
			Protocol: htons(unix.ETH_P_802_2),
			Ifindex:  txIf.Index,
			Halen:    6,
			Addr:     broadcast,
		},
	}, nil
}

func (c *conn) send(p []byte) error {
	err := unix.Sendto(c.tx, p, 0, c.to)
	if errors.Is(err, unix.ENOBUFS) || errors.Is(err, unix.EINTR) {
		return loopback.ErrWouldBlock
	}
	if err != nil {
		return fmt.Errorf("sendto() failed: %w", err)
	}
	return nil
}

func (c *conn) receive(p []byte) (int, bool, error) {
	n, from, err := unix.Recvfrom(c.rx, p, unix.MSG_DONTWAIT)
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
		return 0, false, loopback.ErrWouldBlock
	}
	if err != nil {
		return 0, false, fmt.Errorf("recvfrom() failed: %w", err)
	}
	ll, ok := from.(*unix.SockaddrLinklayer)
	return n, ok && ll.Pkttype == unix.PACKET_OUTGOING, nil
}

func (c *conn) close() error {
	txErr := unix.Close(c.tx)
	rxErr := unix.Close(c.rx)
	if txErr != nil {
		return txErr
	}
	return rxErr
}

func setPromisc(name string, on bool) error {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return fmt.Errorf("error creating control socket: %w", err)
	}
	defer unix.Close(fd)
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return fmt.Errorf("interface name %s: %w", name, err)
	}
	if err := unix.IoctlIfreq(fd, unix.SIOCGIFFLAGS, ifr); err != nil {
		return fmt.Errorf("unable to get %s device flags: %w", name, err)
	}
	flags := ifr.Uint16()
	if on {
		flags |= unix.IFF_PROMISC
	} else {
		flags &^= unix.IFF_PROMISC
	}
	ifr.SetUint16(flags)
	if err := unix.IoctlIfreq(fd, unix.SIOCSIFFLAGS, ifr); err != nil {
		return fmt.Errorf("unable to set %s device flags: %w", name, err)
	}
	return nil
}
