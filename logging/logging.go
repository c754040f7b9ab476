// Package logging contains the logger shared by the loopback tools. Logs
// are structured and go to the standard error, so that the standard output
// only carries the human readable test summary.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
)

// Logger is a logger that logs messages on the standard error
// in a structured JSON format, to simplify processing by the test
// harnesses that drive the tools on the bench.
var Logger = log.Logger{
	Handler: json.New(os.Stderr),
	Level:   log.InfoLevel,
}

// NewHandler returns the apex/log handler named by |format|, writing on |w|.
// Recognized formats are "json", "text" and "cli".
func NewHandler(format string, w io.Writer) (log.Handler, error) {
	switch format {
	case "json":
		return json.New(w), nil
	case "text":
		return text.New(w), nil
	case "cli":
		return cli.New(w), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}

// Setup reconfigures Logger with the given |format| and |level|, writing on
// the standard error.
func Setup(format, level string) error {
	h, err := NewHandler(format, os.Stderr)
	if err != nil {
		return err
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.Handler = h
	Logger.Level = lvl
	return nil
}
