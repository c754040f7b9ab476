//go:build !linux
// +build !linux

package packetx

type conn struct{}

func openConn(string, string) (*conn, error) {
	return nil, ErrNoSupport
}

func (*conn) send([]byte) error {
	return ErrNoSupport
}

func (*conn) receive([]byte) (int, bool, error) {
	return 0, false, ErrNoSupport
}

func (*conn) close() error {
	return nil
}

func setPromisc(string, bool) error {
	return ErrNoSupport
}
