package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/eim/internal/httputil"
	"github.com/banshee-data/eim/internal/units"
)

// runConvert applies a named conversion to the numbers given as arguments,
// or to a JSON value read from stdin when there are none. The result keeps
// the input's shape and is written as JSON.
func runConvert(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := newCommandFlagSet("convert", stderr)
	name := fs.String("conversion", "", "Conversion to apply ("+units.GetValidNamesString()+")")
	list := fs.Bool("list", false, "List the available conversions")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *list {
		for _, n := range units.Names() {
			fmt.Fprintln(stdout, n)
		}
		return nil
	}
	if *name == "" {
		return fmt.Errorf("%w: -conversion is required", errUsage)
	}

	input, err := convertInput(fs.Args(), stdin)
	if err != nil {
		return err
	}
	out, err := units.ApplyNamed(*name, input)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	return enc.Encode(httputil.Finite(out))
}

func convertInput(args []string, stdin io.Reader) (any, error) {
	if len(args) == 0 {
		dec := json.NewDecoder(stdin)
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("failed to read JSON input: %w", err)
		}
		return v, nil
	}

	values := make([]float64, len(args))
	for i, a := range args {
		f, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: argument %d %q", units.ErrCoercion, i+1, a)
		}
		values[i] = f
	}
	if len(values) == 1 {
		return values[0], nil
	}
	return values, nil
}
