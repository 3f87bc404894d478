// Package json provides operators for JSON encoding and decoding.
// On a fan-in stream they run as each job completes.
package json

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/lguimbarda/min-fanin/flow/core"
	"github.com/lguimbarda/min-fanin/flow/transform"
)

// ErrNotArray is returned by DecodeArray when the input does not start with
// a JSON array.
var ErrNotArray = errors.New("json: top-level value is not an array")

// Decode creates a Transformer that decodes JSON documents into typed
// values. Invalid JSON is returned as a failure and the stream continues.
func Decode[T any]() core.Transformer[[]byte, T] {
	return transform.TrySelect(func(data []byte) (T, error) {
		var value T
		err := json.Unmarshal(data, &value)
		return value, err
	})
}

// DecodeString is Decode for string documents.
func DecodeString[T any]() core.Transformer[string, T] {
	return transform.TrySelect(func(s string) (T, error) {
		var value T
		err := json.Unmarshal([]byte(s), &value)
		return value, err
	})
}

// Encode creates a Transformer that encodes values as JSON.
func Encode[T any]() core.Transformer[T, []byte] {
	return transform.TrySelect(func(v T) ([]byte, error) {
		return json.Marshal(v)
	})
}

// DecodeStream creates a Stream that decodes consecutive JSON values from r.
// A syntax error ends the stream after it is returned, since the decoder
// cannot resynchronise.
func DecodeStream[T any](r io.Reader) core.Stream[T] {
	dec := json.NewDecoder(r)
	var done bool
	return core.Pull(func(ctx context.Context) (T, error) {
		var value T
		if done {
			return value, core.ErrEndOfStream
		}
		if err := ctx.Err(); err != nil {
			return value, err
		}
		err := dec.Decode(&value)
		switch {
		case err == io.EOF:
			done = true
			return value, core.ErrEndOfStream
		case err != nil:
			done = true
		}
		return value, err
	}, nil)
}

// DecodeArray creates a Stream over the elements of a top-level JSON array
// without reading the whole array into memory.
func DecodeArray[T any](r io.Reader) core.Stream[T] {
	dec := json.NewDecoder(r)
	var opened, done bool
	return core.Pull(func(ctx context.Context) (T, error) {
		var value T
		if done {
			return value, core.ErrEndOfStream
		}
		if err := ctx.Err(); err != nil {
			return value, err
		}
		if !opened {
			tok, err := dec.Token()
			if err != nil {
				done = true
				return value, err
			}
			if delim, ok := tok.(json.Delim); !ok || delim != '[' {
				done = true
				return value, ErrNotArray
			}
			opened = true
		}
		if !dec.More() {
			done = true
			return value, core.ErrEndOfStream
		}
		if err := dec.Decode(&value); err != nil {
			done = true
			return value, err
		}
		return value, nil
	}, nil)
}
