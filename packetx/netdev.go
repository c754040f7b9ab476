package packetx

import (
	"fmt"

	"github.com/prometheus/procfs"
)

// ProcPath is the mount point of the proc filesystem.
var ProcPath = "/proc"

// Counters are the kernel packet counters of one interface.
type Counters struct {
	RxPackets uint64
	RxErrors  uint64
	RxDropped uint64
	TxPackets uint64
	TxErrors  uint64
	TxDropped uint64
}

// Sub returns the counters accumulated between |before| and c.
func (c Counters) Sub(before Counters) Counters {
	return Counters{
		RxPackets: c.RxPackets - before.RxPackets,
		RxErrors:  c.RxErrors - before.RxErrors,
		RxDropped: c.RxDropped - before.RxDropped,
		TxPackets: c.TxPackets - before.TxPackets,
		TxErrors:  c.TxErrors - before.TxErrors,
		TxDropped: c.TxDropped - before.TxDropped,
	}
}

// ReadCounters reads the counters of |device| from /proc/net/dev.
func ReadCounters(device string) (Counters, error) {
	pfs, err := procfs.NewFS(ProcPath)
	if err != nil {
		return Counters{}, err
	}
	nd, err := pfs.NetDev()
	if err != nil {
		return Counters{}, err
	}
	v, ok := nd[device]
	if !ok {
		return Counters{}, fmt.Errorf("given device not found: %q", device)
	}
	return Counters{
		RxPackets: v.RxPackets,
		RxErrors:  v.RxErrors,
		RxDropped: v.RxDropped,
		TxPackets: v.TxPackets,
		TxErrors:  v.TxErrors,
		TxDropped: v.TxDropped,
	}, nil
}
