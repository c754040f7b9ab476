package serialx

import (
	"go.bug.st/serial"
)

// List returns the names of the serial ports found on the system.
func List() ([]string, error) {
	return serial.GetPortsList()
}
