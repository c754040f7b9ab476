package serialx

import "github.com/intelight/atc-loopback/logging"

// ATC SPXS configuration values, in the order of the driver enumerations.
const (
	atcSDLC = 0

	atcClockInternal = 0
	atcGated         = 0
)

var atcSpeeds = map[int]int32{
	1200:   0,
	2400:   1,
	4800:   2,
	9600:   3,
	19200:  4,
	38400:  5,
	57600:  6,
	76800:  7,
	115200: 8,
	153600: 9,
	614400: 10,
}

// syncSpeed maps |speed| to the ATC driver baud value, falling back to
// DefaultSyncSpeed.
func syncSpeed(speed int) int32 {
	if v, ok := atcSpeeds[speed]; ok {
		return v
	}
	logging.Logger.Warnf("invalid port speed %d, using %d", speed, DefaultSyncSpeed)
	return atcSpeeds[DefaultSyncSpeed]
}

// asyncSpeeds lists the supported asynchronous speeds.
var asyncSpeeds = []int{1200, 1800, 2400, 4800, 9600, 19200, 38400, 57600, 115200, 230400}

// asyncSpeed validates |speed|, falling back to DefaultAsyncSpeed.
func asyncSpeed(speed int) int {
	for _, s := range asyncSpeeds {
		if s == speed {
			return speed
		}
	}
	logging.Logger.Warnf("invalid port speed %d, using %d", speed, DefaultAsyncSpeed)
	return DefaultAsyncSpeed
}
