// generate-schemas writes the BigQuery schema of the archived run records,
// for autoloading the files written with -datadir.
package main

import (
	"flag"
	"os"

	"github.com/m-lab/go/cloud/bqx"
	"github.com/m-lab/go/rtx"

	"cloud.google.com/go/bigquery"

	"github.com/intelight/atc-loopback/data"
)

var loopbackSchema string

func init() {
	flag.StringVar(&loopbackSchema, "loopback", "/var/spool/datatypes/loopback.json", "filename to write the run record schema")
}

func main() {
	flag.Parse()
	sch, err := bigquery.InferSchema(data.Record{})
	rtx.Must(err, "failed to generate loopback schema")
	sch = bqx.RemoveRequired(sch)
	b, err := sch.ToJSONFields()
	rtx.Must(err, "failed to marshal schema")
	rtx.Must(os.WriteFile(loopbackSchema, b, 0o644), "failed to write schema")
}
