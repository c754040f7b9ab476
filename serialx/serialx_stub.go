//go:build !linux
// +build !linux

package serialx

import "os"

type savedState struct{}

func openFile(string) (*os.File, error) {
	return nil, ErrNoSupport
}

func (*Port) configureAsync(int) error {
	return ErrNoSupport
}

func (*Port) configureSync(int) error {
	return ErrNoSupport
}

func (*Port) restore() error {
	return nil
}

// ModemLines is not supported on this platform.
func (*Port) ModemLines() (Lines, error) {
	return 0, ErrNoSupport
}

// SetModemLines is not supported on this platform.
func (*Port) SetModemLines(Lines) error {
	return ErrNoSupport
}
