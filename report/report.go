// Package report turns the outcome of a run into the summary printed for
// the operator, the prometheus metrics and the archived record.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/intelight/atc-loopback/data"
	"github.com/intelight/atc-loopback/logging"
	"github.com/intelight/atc-loopback/loopback"
	"github.com/intelight/atc-loopback/metrics"
	"github.com/intelight/atc-loopback/modemctl"
	"github.com/intelight/atc-loopback/results"
)

// Outcome classifies how a run ended.
func Outcome(res loopback.Result, err error) string {
	var mismatch *loopback.MismatchError
	var endpoint *loopback.EndpointError
	var signal *modemctl.SignalError
	switch {
	case err == nil && res.OK():
		return data.OutcomePass
	case err == nil:
		return data.OutcomeLoss
	case errors.As(err, &mismatch):
		return data.OutcomeMismatch
	case errors.As(err, &endpoint):
		return data.OutcomeEndpoint
	case errors.As(err, &signal):
		return data.OutcomeSignal
	}
	return data.OutcomeError
}

func plural(n uint64) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// Summary writes the run summary for the operator on |w|.
func Summary(w io.Writer, res loopback.Result, tx, rx string) {
	fmt.Fprintf(w, "%d packet%s sent to %s\n", res.Sent, plural(res.Sent), tx)
	fmt.Fprintf(w, "%d packet%s received from %s\n", res.Received, plural(res.Received), rx)
	if res.Received > 0 {
		fmt.Fprintf(w, "approximate transfer speed: %.3f kbps\n", res.ThroughputKbps)
	}
	if !res.OK() {
		fmt.Fprintln(w, "packet loss occurred")
	}
}

// Observe updates the metrics after a loopback run of |tool|.
func Observe(tool string, res loopback.Result, outcome string) {
	metrics.Runs.WithLabelValues(tool, outcome).Inc()
	metrics.Packets.WithLabelValues(tool, "sent").Add(float64(res.Sent))
	metrics.Packets.WithLabelValues(tool, "received").Add(float64(res.Received))
	if outcome != data.OutcomePass && outcome != data.OutcomeLoss {
		metrics.Errors.WithLabelValues(tool, outcome).Inc()
	}
	if res.Received > 0 {
		metrics.Rate.WithLabelValues(tool).Observe(res.ThroughputKbps)
	}
}

// NewRecord builds the archival record of a loopback run.
func NewRecord(tool, tx, rx string, start time.Time, cfg data.Config, res loopback.Result, err error) *data.Record {
	rec := newRecord(tool, tx, rx, start, cfg, res.RunID, Outcome(res, err), err)
	rec.Sent = int64(res.Sent)
	rec.Received = int64(res.Received)
	rec.ElapsedMillis = res.ElapsedMillis()
	rec.ThroughputKbps = res.ThroughputKbps
	rec.TimedOut = res.TimedOut
	return rec
}

// NewSignalRecord builds the archival record of a modem control test
// between ports |a| and |b|, which ended with |err|.
func NewSignalRecord(tool, a, b string, start time.Time, cfg data.Config, err error) *data.Record {
	outcome := data.OutcomePass
	var signal *modemctl.SignalError
	switch {
	case errors.As(err, &signal):
		outcome = data.OutcomeSignal
	case err != nil:
		outcome = data.OutcomeError
	}
	return newRecord(tool, a, b, start, cfg, uuid.NewString(), outcome, err)
}

func newRecord(tool, tx, rx string, start time.Time, cfg data.Config, id, outcome string, err error) *data.Record {
	hostname, _ := os.Hostname()
	rec := &data.Record{
		SchemaVersion: data.CurrentSchemaVersion,
		RunID:         id,
		Tool:          tool,
		Hostname:      hostname,
		TxEndpoint:    tx,
		RxEndpoint:    rx,
		StartTime:     start,
		EndTime:       time.Now(),
		Config:        cfg,
		Outcome:       outcome,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

// Sink is where records and metrics go at the end of a run. Empty fields
// disable the corresponding output.
type Sink struct {
	DataDir  string
	Textfile string
}

// Publish archives |rec| and writes the metrics textfile. Failures are
// logged and do not change the outcome of the run.
func (s Sink) Publish(rec *data.Record) {
	if s.DataDir != "" {
		name, err := results.Save(s.DataDir, rec)
		if err != nil {
			logging.Logger.WithError(err).Warn("Cannot save record on disk")
		} else {
			logging.Logger.WithField("file", name).Debug("record saved")
		}
	}
	if err := metrics.WriteTextfile(s.Textfile); err != nil {
		logging.Logger.WithError(err).Warn("Cannot write metrics textfile")
	}
}
