package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/apex/log"
	"github.com/m-lab/go/rtx"
)

func TestNewHandler(t *testing.T) {
	for _, format := range []string{"json", "text", "cli"} {
		buff := &bytes.Buffer{}
		h, err := NewHandler(format, buff)
		rtx.Must(err, "Could not create %s handler", format)
		l := log.Logger{Handler: h, Level: log.DebugLevel}
		l.WithField("tool", "ethtest").Info("hello")
		if !strings.Contains(buff.String(), "hello") {
			t.Errorf("%s handler did not write the message: %q", format, buff.String())
		}
	}
}

func TestNewHandlerUnknown(t *testing.T) {
	if _, err := NewHandler("xml", &bytes.Buffer{}); err == nil {
		t.Error("Expected an error for an unknown format")
	}
}

func TestSetup(t *testing.T) {
	old := Logger
	defer func() {
		Logger = old
	}()
	if err := Setup("text", "debug"); err != nil {
		t.Fatal(err)
	}
	if Logger.Level != log.DebugLevel {
		t.Errorf("Setup() level = %v, want debug", Logger.Level)
	}
	if err := Setup("json", "loud"); err == nil {
		t.Error("Expected an error for an unknown level")
	}
}
