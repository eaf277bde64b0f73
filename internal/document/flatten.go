// Package document flattens nested JSON-like documents into single-level
// maps keyed by separator-joined keypaths, so {"foo": [{"bar": 1}, 2]} becomes
// {"foo.0.bar": 1, "foo.1": 2}.
//
// Documents are the values produced by encoding/json: maps with string keys,
// slices, and scalars. Typed slices ([]float64, []string, ...) and maps with
// string keys are traversed as well.
package document

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// DefaultSeparator joins nested keys.
const DefaultSeparator = "."

var (
	ErrKeyNotFound     = errors.New("key not found")
	ErrIndexOutOfRange = errors.New("list index out of range")
	ErrNotTraversable  = errors.New("value cannot be traversed")
)

// AllKeys returns every keypath in doc, sorted. List elements contribute their
// index as a path segment, and lists nested in lists are walked too. When
// onlyLeaves is false the keypaths of intermediate maps and lists are
// included.
func AllKeys(doc map[string]any, sep string, onlyLeaves bool) []string {
	if sep == "" {
		sep = DefaultSeparator
	}
	keys := make(map[string]struct{})
	walk(reflect.ValueOf(doc), sep, "", true, func(key string, _ reflect.Value, leaf bool) {
		if leaf || !onlyLeaves {
			keys[key] = struct{}{}
		}
	})

	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// walk calls visit for every map entry and list element below v, depth
// first. Anything that is not a map or list is a leaf; nil is an invalid
// leaf value.
func walk(v reflect.Value, sep, parent string, root bool, visit func(key string, child reflect.Value, leaf bool)) {
	v = indirect(v)
	join := func(k string) string {
		if root {
			return k
		}
		return parent + sep + k
	}
	descend := func(key string, child reflect.Value) {
		child = indirect(child)
		if isContainer(child) {
			visit(key, child, false)
			walk(child, sep, key, false, visit)
			return
		}
		visit(key, child, true)
	}

	switch {
	case isMap(v):
		for _, mk := range v.MapKeys() {
			descend(join(mk.String()), v.MapIndex(mk))
		}
	case isList(v):
		for i := 0; i < v.Len(); i++ {
			descend(join(strconv.Itoa(i)), v.Index(i))
		}
	}
}

// ValueForKeypath walks doc along the sep-delimited keypath and returns the
// value found there. An empty keypath returns doc itself.
func ValueForKeypath(doc any, keypath, sep string) (any, error) {
	if keypath == "" {
		return doc, nil
	}
	if sep == "" {
		sep = DefaultSeparator
	}

	v := reflect.ValueOf(doc)
	walked := make([]string, 0, 4)
	for _, seg := range strings.Split(keypath, sep) {
		v = indirect(v)
		walked = append(walked, seg)
		switch {
		case isMap(v):
			next := v.MapIndex(reflect.ValueOf(seg).Convert(v.Type().Key()))
			if !next.IsValid() {
				return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, strings.Join(walked, sep))
			}
			v = next
		case isList(v):
			i, err := strconv.Atoi(seg)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a list index at %s", ErrKeyNotFound, seg, strings.Join(walked, sep))
			}
			if i < 0 || i >= v.Len() {
				return nil, fmt.Errorf("%w: %s", ErrIndexOutOfRange, strings.Join(walked, sep))
			}
			v = v.Index(i)
		default:
			return nil, fmt.Errorf("%w: %s", ErrNotTraversable, strings.Join(walked, sep))
		}
	}

	v = indirect(v)
	if !v.IsValid() {
		return nil, nil
	}
	return v.Interface(), nil
}

// Flatten returns a copy of doc with no nested keys. Values are taken during
// the walk, so keys containing sep (or empty keys) keep their own values even
// though ValueForKeypath could not reach them.
func Flatten(doc map[string]any, sep string) map[string]any {
	if sep == "" {
		sep = DefaultSeparator
	}
	flat := make(map[string]any)
	walk(reflect.ValueOf(doc), sep, "", true, func(key string, v reflect.Value, leaf bool) {
		if !leaf {
			return
		}
		if !v.IsValid() {
			flat[key] = nil
			return
		}
		flat[key] = v.Interface()
	})
	return flat
}

// FlattenAll flattens each document in docs.
func FlattenAll(docs []map[string]any, sep string) []map[string]any {
	out := make([]map[string]any, len(docs))
	for i, doc := range docs {
		out[i] = Flatten(doc, sep)
	}
	return out
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func isMap(v reflect.Value) bool {
	return v.IsValid() && v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String
}

func isList(v reflect.Value) bool {
	if !v.IsValid() {
		return false
	}
	switch v.Kind() {
	case reflect.Slice:
		// byte slices are values, not lists
		return v.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	}
	return false
}

func isContainer(v reflect.Value) bool {
	return isMap(v) || isList(v)
}
