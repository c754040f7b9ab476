package data

import (
	"time"

	"github.com/intelight/atc-loopback/metadata"
)

// CurrentSchemaVersion is the current version of the Record struct below.
// The version should be incremented for every structure change to Record
// so that tools reading archived records can keep up.
const CurrentSchemaVersion = 1

// Outcomes of a test run.
const (
	OutcomePass     = "pass"
	OutcomeLoss     = "loss"
	OutcomeMismatch = "mismatch"
	OutcomeEndpoint = "endpoint-failure"
	OutcomeSignal   = "signal-failure"
	OutcomeError    = "error"
)

// Record is the struct that is serialized as JSON to disk as the archival
// record of one run of a loopback tool. Counters are signed so that records
// load into BigQuery INTEGER columns.
type Record struct {
	SchemaVersion int
	RunID         string
	Tool          string
	Hostname      string

	// Endpoints are interface or device names.
	TxEndpoint string
	RxEndpoint string

	StartTime time.Time
	EndTime   time.Time

	Config Config

	// Labels are annotations given by the operator.
	Labels []metadata.NameValue `json:",omitempty"`

	// Loopback exchange results, absent for the modem control test.
	Sent           int64   `json:",omitempty"`
	Received       int64   `json:",omitempty"`
	ElapsedMillis  float64 `json:",omitempty"`
	ThroughputKbps float64 `json:",omitempty"`
	TimedOut       bool    `json:",omitempty"`

	// Interface counter deltas for the Ethernet test.
	TxInterface *InterfaceCounters `json:",omitempty"`
	RxInterface *InterfaceCounters `json:",omitempty"`

	Outcome string
	Error   string `json:",omitempty"`
}

// Config is the configuration the run was started with.
type Config struct {
	Count       int64  `json:",omitempty"`
	SizeA       int    `json:",omitempty"`
	SizeB       int    `json:",omitempty"`
	Speed       int    `json:",omitempty"`
	IdleTimeout string `json:",omitempty"`
}

// InterfaceCounters are kernel packet counter deltas over a run.
type InterfaceCounters struct {
	RxPackets int64
	RxErrors  int64
	RxDropped int64
	TxPackets int64
	TxErrors  int64
	TxDropped int64
}
