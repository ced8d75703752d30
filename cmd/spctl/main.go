// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"errors"
	"io"
	"os"

	flags "github.com/jessevdk/go-flags"
	"github.com/silentpay/spd/internal/log"
)

// stdout is where command results are written.
var stdout io.Writer = os.Stdout

// writeJSON prints v as indented JSON.
func writeJSON(v interface{}) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// run parses args and executes the selected command.
func run(args []string) error {
	parser := newParser(defaultConfig())
	_, err := parser.ParseArgs(args)

	if log.LogRotator != nil {
		log.LogRotator.Close()
		log.LogRotator = nil
	}

	return err
}

func main() {
	// Parse and command errors are already printed by the parser.
	if err := run(os.Args[1:]); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}
}
