// Package results archives the records of loopback runs on disk.
package results

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path"

	"github.com/intelight/atc-loopback/data"
)

// File is the file where we save a record.
type File struct {
	// Writer is the gzip writer instance
	Writer *gzip.Writer
	// Fp is the underlying file
	Fp *os.File
}

// newFile opens a new record file below |datadir| on success and returns
// an error on failure.
func newFile(datadir string, rec *data.Record) (*File, error) {
	timestamp := rec.StartTime.UTC()
	dir := path.Join(datadir, rec.Tool, timestamp.Format("2006/01/02"))
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, err
	}
	name := dir + "/" + rec.Tool + "-" + timestamp.Format("2006-01-02T15:04:05.000000000Z") + "." + rec.RunID + ".jsonl.gz"
	// The run ID makes the name unique; O_EXCL will let us know otherwise.
	fp, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, err
	}
	writer, err := gzip.NewWriterLevel(fp, gzip.BestSpeed)
	if err != nil {
		fp.Close()
		return nil, err
	}
	return &File{
		Writer: writer,
		Fp:     fp,
	}, nil
}

// Save writes |rec| into a new file below |datadir| and returns the file
// name.
func Save(datadir string, rec *data.Record) (string, error) {
	fp, err := newFile(datadir, rec)
	if err != nil {
		return "", err
	}
	if err := fp.WriteRecord(rec); err != nil {
		fp.Close()
		return "", err
	}
	return fp.Fp.Name(), fp.Close()
}

// Close closes the record file.
func (fp *File) Close() error {
	err := fp.Writer.Close()
	if err != nil {
		fp.Fp.Close()
		return err
	}
	return fp.Fp.Close()
}

// WriteRecord serializes |rec| as one JSONL line.
func (fp *File) WriteRecord(rec *data.Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	b = append(b, byte('\n'))
	_, err = fp.Writer.Write(b)
	return err
}
