// ethtest is a low-level Ethernet external loopback test. It broadcasts
// test frames on one interface and expects them back, unmodified, on the
// same or another interface.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/m-lab/go/rtx"
	"github.com/m-lab/go/warnonerror"

	"github.com/intelight/atc-loopback/config"
	"github.com/intelight/atc-loopback/data"
	"github.com/intelight/atc-loopback/logging"
	"github.com/intelight/atc-loopback/loopback"
	"github.com/intelight/atc-loopback/metadata"
	"github.com/intelight/atc-loopback/packetx"
	"github.com/intelight/atc-loopback/platformx"
	"github.com/intelight/atc-loopback/report"
)

const tool = "ethtest"

// Flags that can be passed in on the command line
var (
	count       = flag.Uint64("count", 1000, "Number of packets to send")
	sizeA       = flag.Int("size.a", 1024, "First of the two alternating packet sizes")
	sizeB       = flag.Int("size.b", 512, "Second of the two alternating packet sizes")
	idleTimeout = flag.Duration("idle-timeout", 2*time.Second, "Give up when nothing is received for this long after the last send")
	progress    = flag.Duration("progress", 0, "Average interval between progress logs, 0 to disable")
	envFile     = flag.String("env-file", "", "Optional file with flag values as environment variables")
	logFormat   = flag.String("log.format", "json", "Log format: json, text or cli")
	logLevel    = flag.String("log.level", "info", "Log level")
	dataDir     = flag.String("datadir", "", "Directory in which to archive run records, empty to disable")
	textfile    = flag.String("metrics.textfile", "", "File in which to write prometheus metrics, empty to disable")
)

// Annotations recorded with the run
var labels metadata.Flag

// Hooks replaced by tests.
var (
	osExit       = os.Exit
	openSocket   = func(tx, rx string) (endpoint, error) { return packetx.Open(tx, rx) }
	setPromisc   = packetx.SetPromisc
	readCounters = packetx.ReadCounters
)

type endpoint interface {
	loopback.Sender
	loopback.Receiver
	io.Closer
}

type options struct {
	tx, rx string
	cfg    loopback.Config
}

func init() {
	flag.Var(&labels, "label", "Annotation name:value recorded with the run, may be repeated")
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "ethtest version 1.0\n\n"+
		"Usage: ethtest [flags] (ethX | ethX:ethY) [number_of_packets [packet_size]]\n\n")
	flag.PrintDefaults()
}

// parseArgs builds the run options from the flags and the positional
// arguments, which take precedence.
func parseArgs(args []string) (options, error) {
	if len(args) < 1 || len(args) > 3 {
		return options{}, errors.New("wrong number of arguments")
	}
	tx, rx, err := config.ParsePair(args[0])
	if err != nil {
		return options{}, fmt.Errorf("%w in %q", err, args[0])
	}
	opts := options{
		tx: tx,
		rx: rx,
		cfg: loopback.Config{
			Count:            *count,
			SizeA:            *sizeA,
			SizeB:            *sizeB,
			IdleTimeout:      *idleTimeout,
			FrameOverhead:    packetx.HeaderLen,
			ProgressInterval: *progress,
		},
	}
	if len(args) >= 2 {
		if opts.cfg.Count, err = config.ParseUint(args[1]); err != nil {
			return options{}, err
		}
	}
	if len(args) >= 3 {
		size, err := config.ParseUint(args[2])
		if err != nil {
			return options{}, err
		}
		opts.cfg.SizeA, opts.cfg.SizeB = int(size), int(size)
	}
	for _, size := range []int{opts.cfg.SizeA, opts.cfg.SizeB} {
		if err := packetx.ValidateSize(size); err != nil {
			return options{}, err
		}
	}
	return opts, nil
}

func interfaces(opts options) []string {
	if opts.tx == opts.rx {
		return []string{opts.tx}
	}
	return []string{opts.tx, opts.rx}
}

// snapshot reads the counters of every interface, skipping those that
// cannot be read.
func snapshot(names []string) map[string]packetx.Counters {
	m := make(map[string]packetx.Counters)
	for _, name := range names {
		c, err := readCounters(name)
		if err != nil {
			logging.Logger.WithError(err).WithField("interface", name).Warn("Cannot read interface counters")
			continue
		}
		m[name] = c
	}
	return m
}

func delta(before, after map[string]packetx.Counters, name string) *data.InterfaceCounters {
	b, okb := before[name]
	a, oka := after[name]
	if !okb || !oka {
		return nil
	}
	d := a.Sub(b)
	logging.Logger.WithFields(log.Fields{
		"interface": name,
		"rxPackets": d.RxPackets,
		"rxDropped": d.RxDropped,
		"rxErrors":  d.RxErrors,
		"txPackets": d.TxPackets,
		"txDropped": d.TxDropped,
		"txErrors":  d.TxErrors,
	}).Info("interface counters")
	return &data.InterfaceCounters{
		RxPackets: int64(d.RxPackets),
		RxErrors:  int64(d.RxErrors),
		RxDropped: int64(d.RxDropped),
		TxPackets: int64(d.TxPackets),
		TxErrors:  int64(d.TxErrors),
		TxDropped: int64(d.TxDropped),
	}
}

// run performs the test and returns the process exit code.
func run(opts options, stdout io.Writer, sink report.Sink) int {
	start := time.Now()
	names := interfaces(opts)
	for _, name := range names {
		if err := setPromisc(name, true); err != nil {
			logging.Logger.WithError(err).Error("Cannot enable promiscuous mode")
			return 1
		}
		defer func(name string) {
			if err := setPromisc(name, false); err != nil {
				logging.Logger.WithError(err).Warn("Cannot restore promiscuous mode")
			}
		}(name)
	}
	time.Sleep(100 * time.Microsecond)

	sock, err := openSocket(opts.tx, opts.rx)
	if err != nil {
		logging.Logger.WithError(err).Error("Cannot open packet sockets")
		return 1
	}
	defer warnonerror.Close(sock, "ethtest: ignoring socket Close result")

	before := snapshot(names)
	res, err := loopback.Run(sock, sock, opts.cfg)
	after := snapshot(names)

	rec := report.NewRecord(tool, opts.tx, opts.rx, start, data.Config{
		Count:       int64(opts.cfg.Count),
		SizeA:       opts.cfg.SizeA,
		SizeB:       opts.cfg.SizeB,
		IdleTimeout: opts.cfg.IdleTimeout.String(),
	}, res, err)
	rec.TxInterface = delta(before, after, opts.tx)
	rec.RxInterface = delta(before, after, opts.rx)
	report.Observe(tool, res, rec.Outcome)
	rec.Labels = labels
	sink.Publish(rec)

	if err != nil {
		logging.Logger.WithError(err).WithField("run", res.RunID).Error("ethtest failed")
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	report.Summary(stdout, res, opts.tx, opts.rx)
	if !res.OK() {
		return 1
	}
	return 0
}

func main() {
	flag.Usage = usage
	flag.Parse()
	rtx.Must(config.LoadEnv(flag.CommandLine, *envFile), "Could not load flags from the environment")
	rtx.Must(logging.Setup(*logFormat, *logLevel), "Could not set up logging")
	platformx.WarnIfNotFullySupported()

	opts, err := parseArgs(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		osExit(1)
		return
	}
	osExit(run(opts, os.Stdout, report.Sink{DataDir: *dataDir, Textfile: *textfile}))
}
