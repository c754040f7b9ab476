// sertest is a serial port loopback test. It writes packets of a test
// pattern on one port and reads them back from the same or another port.
// Ports whose name ends in "s" are driven as synchronous (HDLC) ports.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/m-lab/go/rtx"
	"github.com/m-lab/go/warnonerror"

	"github.com/intelight/atc-loopback/config"
	"github.com/intelight/atc-loopback/data"
	"github.com/intelight/atc-loopback/logging"
	"github.com/intelight/atc-loopback/loopback"
	"github.com/intelight/atc-loopback/metadata"
	"github.com/intelight/atc-loopback/platformx"
	"github.com/intelight/atc-loopback/report"
	"github.com/intelight/atc-loopback/serialx"
)

const tool = "sertest"

// Flags that can be passed in on the command line
var (
	speed       = flag.Int("speed", serialx.DefaultAsyncSpeed, "Line speed in bits per second")
	count       = flag.Uint64("count", 1000, "Number of packets to send")
	size        = flag.Int("size", 1024, "Packet size in bytes")
	timeout     = flag.Duration("timeout", 0, "Poll timeout of each read and write, 0 to derive it from the speed")
	idleTimeout = flag.Duration("idle-timeout", 10*time.Second, "Give up when nothing is received for this long after the last send")
	progress    = flag.Duration("progress", 0, "Average interval between progress logs, 0 to disable")
	list        = flag.Bool("list", false, "List the serial ports of the system and exit")
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
	osExit    = os.Exit
	openPort  = func(name string, cfg serialx.Config) (io.ReadWriteCloser, error) { return serialx.Open(name, cfg) }
	listPorts = serialx.List
)

const maxSize = 1 << 16

type options struct {
	tx, rx string
	speed  int
	port   serialx.Config
	cfg    loopback.Config
}

func init() {
	flag.Var(&labels, "label", "Annotation name:value recorded with the run, may be repeated")
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "sertest version 1.0\n\n"+
		"Usage: sertest [flags] (port1 | port1:port2) [speed [number_of_packets [packet_size]]]\n\n")
	flag.PrintDefaults()
}

// parseArgs builds the run options from the flags and the positional
// arguments, which take precedence.
func parseArgs(args []string) (options, error) {
	if len(args) < 1 || len(args) > 4 {
		return options{}, errors.New("wrong number of arguments")
	}
	tx, rx, err := config.ParsePair(args[0])
	if err != nil {
		return options{}, fmt.Errorf("%w in %q", err, args[0])
	}
	opts := options{
		tx:    tx,
		rx:    rx,
		speed: *speed,
		cfg: loopback.Config{
			Count:            *count,
			SizeA:            *size,
			SizeB:            *size,
			IdleTimeout:      *idleTimeout,
			ProgressInterval: *progress,
		},
	}
	v := make([]uint64, len(args)-1)
	for i, arg := range args[1:] {
		if v[i], err = config.ParseUint(arg); err != nil {
			return options{}, err
		}
	}
	if len(v) >= 1 {
		opts.speed = int(v[0])
	}
	if len(v) >= 2 {
		opts.cfg.Count = v[1]
	}
	if len(v) >= 3 {
		opts.cfg.SizeA, opts.cfg.SizeB = int(v[2]), int(v[2])
	}
	if opts.cfg.SizeA < 1 || opts.cfg.SizeA > maxSize {
		return options{}, fmt.Errorf("packet size %d out of range [1, %d]", opts.cfg.SizeA, maxSize)
	}
	opts.port = serialx.Config{Speed: opts.speed, Timeout: *timeout}
	if opts.port.Timeout == 0 {
		opts.port.Timeout = serialx.DefaultTimeout(opts.cfg.SizeA, opts.speed)
	}
	return opts, nil
}

// run performs the test and returns the process exit code.
func run(opts options, stdout io.Writer, sink report.Sink) int {
	start := time.Now()
	txPort, err := openPort(opts.tx, opts.port)
	if err != nil {
		logging.Logger.WithError(err).Error("Cannot open transmit port")
		return 1
	}
	defer warnonerror.Close(txPort, "sertest: ignoring port Close result")
	rxPort := txPort
	if opts.rx != opts.tx {
		rxPort, err = openPort(opts.rx, opts.port)
		if err != nil {
			logging.Logger.WithError(err).Error("Cannot open receive port")
			return 1
		}
		defer warnonerror.Close(rxPort, "sertest: ignoring port Close result")
	}

	res, err := loopback.Run(
		loopback.NewStreamSender(txPort),
		loopback.NewStreamReceiver(rxPort, opts.cfg.SizeA),
		opts.cfg)

	rec := report.NewRecord(tool, opts.tx, opts.rx, start, data.Config{
		Count:       int64(opts.cfg.Count),
		SizeA:       opts.cfg.SizeA,
		SizeB:       opts.cfg.SizeB,
		Speed:       opts.speed,
		IdleTimeout: opts.cfg.IdleTimeout.String(),
	}, res, err)
	report.Observe(tool, res, rec.Outcome)
	rec.Labels = labels
	sink.Publish(rec)

	if err != nil {
		logging.Logger.WithError(err).WithField("run", res.RunID).Error("sertest failed")
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	report.Summary(stdout, res, opts.tx, opts.rx)
	if !res.OK() {
		return 1
	}
	return 0
}

func printPorts(w io.Writer) int {
	ports, err := listPorts()
	if err != nil {
		logging.Logger.WithError(err).Error("Cannot list serial ports")
		return 1
	}
	for _, p := range ports {
		fmt.Fprintln(w, p)
	}
	return 0
}

func main() {
	flag.Usage = usage
	flag.Parse()
	rtx.Must(config.LoadEnv(flag.CommandLine, *envFile), "Could not load flags from the environment")
	rtx.Must(logging.Setup(*logFormat, *logLevel), "Could not set up logging")
	platformx.WarnIfNotFullySupported()

	if *list {
		osExit(printPorts(os.Stdout))
		return
	}
	opts, err := parseArgs(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		osExit(1)
		return
	}
	osExit(run(opts, os.Stdout, report.Sink{DataDir: *dataDir, Textfile: *textfile}))
}
