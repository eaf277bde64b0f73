package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/eim/internal/db"
	"github.com/banshee-data/eim/internal/document"
)

// runFlatten writes one flattened JSON object per line, either for stored
// records or for documents read from -in.
func runFlatten(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs, cfgPath := newFlagSet("flatten", stderr)
	in := fs.String("in", "", "Read a JSON object or array of objects from this file (- for stdin)")
	trials := fs.Bool("trials", false, "Flatten stored trials with their resolved signals")
	sep := fs.String("sep", document.DefaultSeparator, "Keypath separator")
	keys := fs.Bool("keys", false, "Print the sorted keypaths instead of the flattened documents")
	limit := fs.Int("limit", 0, "Maximum records to read from the store (0 = all)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *sep == "" {
		return fmt.Errorf("%w: -sep must not be empty", errUsage)
	}

	var docs []map[string]any
	var err error
	if *in != "" {
		docs, err = readDocuments(*in, stdin)
	} else {
		docs, err = storedDocuments(*cfgPath, *trials, *limit)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	if *keys {
		for _, doc := range docs {
			if err := enc.Encode(document.AllKeys(doc, *sep, true)); err != nil {
				return err
			}
		}
		return nil
	}
	for _, flat := range document.FlattenAll(docs, *sep) {
		if err := enc.Encode(flat); err != nil {
			return err
		}
	}
	return nil
}

func readDocuments(path string, stdin io.Reader) ([]map[string]any, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var v any
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to parse documents: %w", err)
	}
	switch x := v.(type) {
	case map[string]any:
		return []map[string]any{x}, nil
	case []any:
		docs := make([]map[string]any, len(x))
		for i, e := range x {
			doc, ok := e.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("document %d is not a JSON object", i)
			}
			docs[i] = doc
		}
		return docs, nil
	}
	return nil, fmt.Errorf("expected a JSON object or array of objects, got %T", v)
}

func storedDocuments(cfgPath string, trials bool, limit int) ([]map[string]any, error) {
	_, database, err := openStore(cfgPath, true)
	if err != nil {
		return nil, err
	}
	defer database.Close()

	if !trials {
		signals, err := database.ListSignals(limit)
		if err != nil {
			return nil, err
		}
		docs := make([]map[string]any, len(signals))
		for i := range signals {
			docs[i] = signals[i].Document()
		}
		return docs, nil
	}

	list, err := database.ListTrials(limit)
	if err != nil {
		return nil, err
	}
	docs := make([]map[string]any, 0, len(list))
	for i := range list {
		signals, err := db.ResolveSignals(database, &list[i])
		if err != nil {
			return nil, err
		}
		docs = append(docs, list[i].Document(signals))
	}
	return docs, nil
}
