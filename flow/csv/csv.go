// Package csv provides CSV sources, sinks and a parse operator for documents
// delivered by jobs.
package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"

	"github.com/lguimbarda/min-fanin/flow/core"
	"github.com/lguimbarda/min-fanin/flow/filter"
	"github.com/lguimbarda/min-fanin/flow/transform"
)

// ReaderOption configures a CSV reader.
type ReaderOption func(*csv.Reader)

// WithComma sets the field delimiter (default is ',').
func WithComma(comma rune) ReaderOption {
	return func(r *csv.Reader) {
		r.Comma = comma
	}
}

// WithComment sets the comment character. Lines beginning with this
// character are ignored.
func WithComment(comment rune) ReaderOption {
	return func(r *csv.Reader) {
		r.Comment = comment
	}
}

// WithFieldsPerRecord sets the expected number of fields per record.
// If positive, each record must have exactly that many fields.
// If 0, the number is set to the first record's field count.
// If negative, no check is made and records may have variable fields.
func WithFieldsPerRecord(n int) ReaderOption {
	return func(r *csv.Reader) {
		r.FieldsPerRecord = n
	}
}

// WithTrimLeadingSpace trims leading whitespace from fields.
func WithTrimLeadingSpace(trim bool) ReaderOption {
	return func(r *csv.Reader) {
		r.TrimLeadingSpace = trim
	}
}

func newReader(r io.Reader, opts []ReaderOption) *csv.Reader {
	reader := csv.NewReader(r)
	for _, opt := range opts {
		opt(reader)
	}
	return reader
}

// Records creates a Stream over the records read from r. A malformed record
// is returned as a failure and reading continues with the next one.
func Records(r io.Reader, opts ...ReaderOption) core.Stream[[]string] {
	reader := newReader(r, opts)
	var done bool
	return core.Pull(func(ctx context.Context) ([]string, error) {
		if done {
			return nil, core.ErrEndOfStream
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			done = true
			return nil, core.ErrEndOfStream
		}
		var parseErr *csv.ParseError
		if err != nil && !errors.As(err, &parseErr) {
			done = true
		}
		return record, err
	}, nil)
}

// ReadRecords is Records over a file, opened on the first Next.
func ReadRecords(path string, opts ...ReaderOption) core.Stream[[]string] {
	var (
		file    *os.File
		records core.Stream[[]string]
	)
	return core.Pull(func(ctx context.Context) ([]string, error) {
		if records == nil {
			f, err := os.Open(path)
			if err != nil {
				records = core.Empty[[]string]()
				return nil, err
			}
			file, records = f, Records(f, opts...)
		}
		return records.Next(ctx)
	}, func() error {
		if file != nil {
			return file.Close()
		}
		return nil
	})
}

// SkipHeader drops the first record.
func SkipHeader() core.Transformer[[]string, []string] {
	return filter.Skip[[]string](1)
}

// Parse creates a Transformer that parses every CSV document into its
// records. On a fan-in stream each document is parsed as soon as its job
// completes.
func Parse(opts ...ReaderOption) core.Transformer[[]byte, [][]string] {
	return transform.TrySelect(func(data []byte) ([][]string, error) {
		return newReader(bytes.NewReader(data), opts).ReadAll()
	})
}

// WriterOption configures a CSV writer.
type WriterOption func(*csv.Writer)

// WithWriterComma sets the field delimiter for writing (default is ',').
func WithWriterComma(comma rune) WriterOption {
	return func(w *csv.Writer) {
		w.Comma = comma
	}
}

// WithUseCRLF sets whether to use \r\n as the line terminator.
func WithUseCRLF(useCRLF bool) WriterOption {
	return func(w *csv.Writer) {
		w.UseCRLF = useCRLF
	}
}

// WriteTo returns a Sink that writes every record to w. It stops at the
// first failure and reports how many records were written.
func WriteTo(w io.Writer, opts ...WriterOption) core.Sink[[]string, int] {
	return func(ctx context.Context, in core.Stream[[]string]) (int, error) {
		defer in.Close()

		writer := csv.NewWriter(w)
		for _, opt := range opts {
			opt(writer)
		}
		n := 0
		for {
			record, err := in.Next(ctx)
			if errors.Is(err, core.ErrEndOfStream) {
				writer.Flush()
				return n, writer.Error()
			}
			if err != nil {
				writer.Flush()
				return n, err
			}
			if err := writer.Write(record); err != nil {
				return n, err
			}
			n++
		}
	}
}

// WriteRecords is WriteTo a file, created or truncated.
func WriteRecords(path string, opts ...WriterOption) core.Sink[[]string, int] {
	return func(ctx context.Context, in core.Stream[[]string]) (int, error) {
		file, err := os.Create(path)
		if err != nil {
			in.Close()
			return 0, err
		}
		n, err := WriteTo(file, opts...)(ctx, in)
		return n, errors.Join(err, file.Close())
	}
}
