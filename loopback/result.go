package loopback

import "time"

// Result summarizes a loopback run.
type Result struct {
	// RunID uniquely identifies the run in logs and archived records.
	RunID    string
	Sent     uint64
	Received uint64
	// Elapsed is the duration of the whole run.
	Elapsed time.Duration
	// Active is the time between the first send and the last verified
	// receive. Throughput is computed over it.
	Active         time.Duration
	ThroughputKbps float64
	// TimedOut is set when the run ended because nothing was received
	// for the idle timeout after all packets were sent.
	TimedOut bool
}

// Lost returns how many sent packets were never received.
func (r Result) Lost() uint64 {
	if r.Received >= r.Sent {
		return 0
	}
	return r.Sent - r.Received
}

// OK reports whether every sent packet came back.
func (r Result) OK() bool {
	return r.Sent == r.Received
}

// ElapsedMillis returns Elapsed in milliseconds.
func (r Result) ElapsedMillis() float64 {
	return float64(r.Elapsed) / float64(time.Millisecond)
}

// throughputKbps estimates the transfer rate the way the bench tools have
// always reported it: ten bit times per byte, over the active interval.
func throughputKbps(avgSize float64, overhead int, received uint64, active time.Duration) float64 {
	ms := float64(active) / float64(time.Millisecond)
	if received == 0 || ms <= 0 {
		return 0
	}
	return (avgSize + float64(overhead)) * 10 * float64(received) / ms
}
