// Package config holds the command line helpers shared by the loopback
// tools: endpoint pair parsing, strict positional numbers and loading
// flag values from the environment.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/m-lab/go/flagx"
)

// ErrEmptyName is returned for an empty endpoint name.
var ErrEmptyName = errors.New("empty endpoint name")

// ParsePair splits "a:b" into its two endpoint names. A single name is
// used for both ends.
func ParsePair(arg string) (string, string, error) {
	first, second, found := strings.Cut(arg, ":")
	if !found {
		second = first
	}
	if first == "" || second == "" {
		return "", "", ErrEmptyName
	}
	return first, second, nil
}

// ParseUint parses a positional unsigned decimal argument. Unlike
// strconv.ParseUint with base 0, it rejects signs, prefixes and
// trailing characters.
func ParseUint(s string) (uint64, error) {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return strconv.ParseUint(s, 10, 64)
}

// LoadEnv sets the flags of |fs| that were not given on the command line
// from the environment. When |envFile| is not empty, it is loaded into
// the environment first; variables already set take precedence over the
// file.
func LoadEnv(fs *flag.FlagSet, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	return flagx.ArgsFromEnv(fs)
}
