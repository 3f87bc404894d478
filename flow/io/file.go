// Package io provides file sources and sinks. Whole-file reads run as jobs
// so files can be processed in the order their reads finish.
package io

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/lguimbarda/min-fanin/flow/core"
	"github.com/lguimbarda/min-fanin/flow/job"
)

// File is the content of one file read by ReadFiles.
type File struct {
	Path string
	Data []byte
}

// ReadFiles reads every path on its own goroutine, at most limit at a time
// (limit <= 0 means no limit), and streams the files as their reads finish.
// A file that cannot be read is a failure; the other files still arrive.
func ReadFiles(ctx context.Context, paths []string, limit int) *core.FanIn[File] {
	var opts []job.GroupOption
	if limit > 0 {
		opts = append(opts, job.WithLimit(limit))
	}
	g := job.NewGroup[File](ctx, opts...)
	for _, path := range paths {
		g.Go(func(ctx context.Context) (File, error) {
			if err := ctx.Err(); err != nil {
				return File{}, err
			}
			data, err := os.ReadFile(path)
			return File{Path: path, Data: data}, err
		})
	}
	return g.Stream()
}

// ReadGlob is ReadFiles over the paths matching pattern. Directories are
// skipped. It fails only when the pattern is malformed.
func ReadGlob(ctx context.Context, pattern string, limit int) (*core.FanIn[File], error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	paths := matches[:0]
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.IsDir() {
			continue
		}
		paths = append(paths, m)
	}
	return ReadFiles(ctx, paths, limit), nil
}

// ReadLines creates a Stream over the lines of a file, without trailing
// newlines. The file is opened on the first Next and closed when the stream
// is exhausted or closed.
func ReadLines(path string) core.Stream[string] {
	var (
		file *os.File
		done bool
	)
	s := linesOf(func() (io.Reader, error) {
		f, err := os.Open(path)
		file = f
		return f, err
	})
	return core.Pull(func(ctx context.Context) (string, error) {
		if done {
			return "", core.ErrEndOfStream
		}
		line, err := s.Next(ctx)
		if errors.Is(err, core.ErrEndOfStream) {
			done = true
			if file != nil {
				file.Close()
				file = nil
			}
		}
		return line, err
	}, func() error {
		if file != nil {
			return file.Close()
		}
		return nil
	})
}

// ReadLinesFrom creates a Stream over the lines read from r.
func ReadLinesFrom(r io.Reader) core.Stream[string] {
	return linesOf(func() (io.Reader, error) { return r, nil })
}

func linesOf(open func() (io.Reader, error)) core.Stream[string] {
	var (
		scanner *bufio.Scanner
		done    bool
	)
	return core.Pull(func(ctx context.Context) (string, error) {
		if done {
			return "", core.ErrEndOfStream
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if scanner == nil {
			r, err := open()
			if err != nil {
				done = true
				return "", err
			}
			scanner = bufio.NewScanner(r)
		}
		if scanner.Scan() {
			return scanner.Text(), nil
		}
		done = true
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", core.ErrEndOfStream
	}, nil)
}

// WriteLines returns a Sink that writes every value to a file, one per line,
// creating or truncating it. It stops at the first failure and reports how
// many lines were written.
func WriteLines(path string) core.Sink[string, int] {
	return WriteLinesWithOptions(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
}

// AppendLines is WriteLines appending to the file.
func AppendLines(path string) core.Sink[string, int] {
	return WriteLinesWithOptions(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// WriteLinesWithOptions is WriteLines with custom file options.
func WriteLinesWithOptions(path string, flag int, perm os.FileMode) core.Sink[string, int] {
	return func(ctx context.Context, in core.Stream[string]) (int, error) {
		file, err := os.OpenFile(path, flag, perm)
		if err != nil {
			in.Close()
			return 0, err
		}
		n, err := WriteTo(file)(ctx, in)
		return n, errors.Join(err, file.Close())
	}
}

// WriteTo returns a Sink that writes every value to w, one per line.
func WriteTo(w io.Writer) core.Sink[string, int] {
	return func(ctx context.Context, in core.Stream[string]) (int, error) {
		defer in.Close()

		writer := bufio.NewWriter(w)
		n := 0
		for {
			line, err := in.Next(ctx)
			if errors.Is(err, core.ErrEndOfStream) {
				return n, writer.Flush()
			}
			if err != nil {
				return n, errors.Join(err, writer.Flush())
			}
			if _, err := writer.WriteString(line + "\n"); err != nil {
				return n, err
			}
			n++
		}
	}
}
