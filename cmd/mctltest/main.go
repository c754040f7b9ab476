// mctltest checks the modem control wiring of a serial loopback: RTS on
// each port must drive CTS and DCD on the other.
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
	"github.com/intelight/atc-loopback/metadata"
	"github.com/intelight/atc-loopback/metrics"
	"github.com/intelight/atc-loopback/modemctl"
	"github.com/intelight/atc-loopback/platformx"
	"github.com/intelight/atc-loopback/report"
	"github.com/intelight/atc-loopback/serialx"
)

const tool = "mctltest"

// Flags that can be passed in on the command line
var (
	speed     = flag.Int("speed", 9600, "Line speed the ports are configured with")
	settle    = flag.Duration("settle", modemctl.DefaultSettle, "Time given to the lines to settle after RTS changes")
	envFile   = flag.String("env-file", "", "Optional file with flag values as environment variables")
	logFormat = flag.String("log.format", "json", "Log format: json, text or cli")
	logLevel  = flag.String("log.level", "info", "Log level")
	dataDir   = flag.String("datadir", "", "Directory in which to archive run records, empty to disable")
	textfile  = flag.String("metrics.textfile", "", "File in which to write prometheus metrics, empty to disable")
)

// Annotations recorded with the run
var labels metadata.Flag

// Hooks replaced by tests.
var (
	osExit   = os.Exit
	openPort = func(name string, cfg serialx.Config) (port, error) { return serialx.Open(name, cfg) }
)

type port interface {
	modemctl.Port
	io.Closer
}

func init() {
	flag.Var(&labels, "label", "Annotation name:value recorded with the run, may be repeated")
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "mctltest version 1.0\n\n"+
		"Usage: mctltest [flags] (port1 | port1:port2)\n\n")
	flag.PrintDefaults()
}

func parseArgs(args []string) (string, string, error) {
	if len(args) != 1 {
		return "", "", errors.New("wrong number of arguments")
	}
	a, b, err := config.ParsePair(args[0])
	if err != nil {
		return "", "", fmt.Errorf("%w in %q", err, args[0])
	}
	return a, b, nil
}

// run performs the test between ports |a| and |b| and returns the process
// exit code.
func run(a, b string, stdout io.Writer, sink report.Sink) int {
	start := time.Now()
	cfg := serialx.Config{Speed: *speed}
	pa, err := openPort(a, cfg)
	if err != nil {
		logging.Logger.WithError(err).Error("Cannot open port")
		return 1
	}
	defer warnonerror.Close(pa, "mctltest: ignoring port Close result")
	pb := pa
	if b != a {
		if pb, err = openPort(b, cfg); err != nil {
			logging.Logger.WithError(err).Error("Cannot open port")
			return 1
		}
		defer warnonerror.Close(pb, "mctltest: ignoring port Close result")
	}

	err = modemctl.Run(pa, pb, *settle)

	rec := report.NewSignalRecord(tool, a, b, start, data.Config{Speed: *speed}, err)
	metrics.ModemChecks.WithLabelValues(rec.Outcome).Inc()
	rec.Labels = labels
	sink.Publish(rec)

	if err != nil {
		logging.Logger.WithError(err).WithField("run", rec.RunID).Error("mctltest failed")
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "Modem Control Signal Test %s:%s Passed\n", a, b)
	return 0
}

func main() {
	flag.Usage = usage
	flag.Parse()
	rtx.Must(config.LoadEnv(flag.CommandLine, *envFile), "Could not load flags from the environment")
	rtx.Must(logging.Setup(*logFormat, *logLevel), "Could not set up logging")
	platformx.WarnIfNotFullySupported()

	a, b, err := parseArgs(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		osExit(1)
		return
	}
	osExit(run(a, b, os.Stdout, report.Sink{DataDir: *dataDir, Textfile: *textfile}))
}
