//go:build !linux
// +build !linux

package platformx

import (
	"github.com/intelight/atc-loopback/logging"
)

func maybeEmitWarning() {
	logging.Logger.Warn("This platform is not supported. Raw packet sockets and serial port configuration are unavailable.")
}
