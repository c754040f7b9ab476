// Package metadata holds operator supplied annotations of a run, such as
// the cabinet or controller under test.
package metadata

import (
	"errors"
	"strings"
)

// Limits on the length of names and values. Longer ones are truncated.
const (
	maxName  = 63
	maxValue = 255
	maxPairs = 20
)

// ErrMalformed is returned for annotations that are not "name:value".
var ErrMalformed = errors.New("annotation must be name:value")

// NameValue is a BigQuery-compatible type for "name"/"value" pairs.
type NameValue struct {
	Name  string
	Value string
}

// Parse splits "name:value" and trims both parts.
func Parse(s string) (NameValue, error) {
	name, value, ok := strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return NameValue{}, ErrMalformed
	}
	value = strings.TrimSpace(value)
	if len(name) > maxName {
		name = name[:maxName]
	}
	if len(value) > maxValue {
		value = value[:maxValue]
	}
	return NameValue{Name: name, Value: value}, nil
}

// Flag collects repeated "name:value" flags. It implements flag.Value.
type Flag []NameValue

// String implements flag.Value.
func (f *Flag) String() string {
	s := make([]string, len(*f))
	for i, nv := range *f {
		s[i] = nv.Name + ":" + nv.Value
	}
	return strings.Join(s, ",")
}

// Set implements flag.Value.
func (f *Flag) Set(s string) error {
	if len(*f) >= maxPairs {
		return errors.New("too many annotations")
	}
	nv, err := Parse(s)
	if err != nil {
		return err
	}
	*f = append(*f, nv)
	return nil
}
