package results

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/m-lab/go/rtx"

	"github.com/intelight/atc-loopback/data"
)

func TestSave(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	rec := &data.Record{
		SchemaVersion: data.CurrentSchemaVersion,
		RunID:         "0f1e2d3c",
		Tool:          "ethtest",
		TxEndpoint:    "eth0",
		RxEndpoint:    "eth1",
		StartTime:     start,
		EndTime:       start.Add(time.Second),
		Config:        data.Config{Count: 10, SizeA: 1024, SizeB: 512},
		Sent:          10,
		Received:      9,
		TimedOut:      true,
		Outcome:       data.OutcomeLoss,
	}
	name, err := Save(dir, rec)
	rtx.Must(err, "Could not save record")
	wantDir := filepath.Join(dir, "ethtest", "2026", "10", "19")
	if filepath.Dir(name) != wantDir {
		t.Errorf("saved in %s, want %s", filepath.Dir(name), wantDir)
	}
	if !strings.HasSuffix(name, ".0f1e2d3c.jsonl.gz") {
		t.Errorf("unexpected file name %s", name)
	}

	fp, err := os.Open(name)
	rtx.Must(err, "Could not open %s", name)
	defer fp.Close()
	zr, err := gzip.NewReader(fp)
	rtx.Must(err, "Could not read gzip header")
	var got data.Record
	rtx.Must(json.NewDecoder(zr).Decode(&got), "Could not decode record")
	if got.RunID != rec.RunID || got.Received != 9 || got.Outcome != data.OutcomeLoss {
		t.Errorf("decoded %+v", got)
	}

	// Saving the same run twice must not overwrite the first record.
	if _, err := Save(dir, rec); err == nil {
		t.Error("Save() of a duplicate run should fail")
	}
}
