package io

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/lguimbarda/min-fanin/flow/core"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	return path
}

func TestReadLines(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{name: "empty file", content: "", expected: nil},
		{name: "single line no newline", content: "hello", expected: []string{"hello"}},
		{name: "single line with newline", content: "hello\n", expected: []string{"hello"}},
		{name: "multiple lines", content: "line1\nline2\nline3\n", expected: []string{"line1", "line2", "line3"}},
		{name: "lines with spaces", content: "  hello  \n  world  \n", expected: []string{"  hello  ", "  world  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "test.txt", tt.content)

			got, err := core.Slice(context.Background(), ReadLines(path))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tt.expected) {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestReadLines_MissingFile(t *testing.T) {
	s := ReadLines(filepath.Join(t.TempDir(), "missing.txt"))
	if _, err := s.Next(context.Background()); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if _, err := s.Next(context.Background()); !errors.Is(err, core.ErrEndOfStream) {
		t.Fatalf("expected end of stream after the failure, got %v", err)
	}
}

func TestReadLinesFrom(t *testing.T) {
	got, err := core.Slice(context.Background(), ReadLinesFrom(strings.NewReader("a\nb")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("got %q", got)
	}
}

func TestReadFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "alpha")
	b := writeFile(t, dir, "b.txt", "beta")
	missing := filepath.Join(dir, "missing.txt")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	contents := map[string]string{}
	var failures int
	for f, err := range core.All(ctx, ReadFiles(ctx, []string{a, missing, b}, 2)) {
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				t.Fatalf("unexpected error: %v", err)
			}
			failures++
			continue
		}
		contents[filepath.Base(f.Path)] = string(f.Data)
	}

	if failures != 1 {
		t.Errorf("expected 1 failure, got %d", failures)
	}
	if contents["a.txt"] != "alpha" || contents["b.txt"] != "beta" {
		t.Errorf("unexpected contents: %v", contents)
	}
}

func TestReadGlob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.log", "1")
	writeFile(t, dir, "two.log", "2")
	writeFile(t, dir, "skip.txt", "x")
	if err := os.Mkdir(filepath.Join(dir, "dir.log"), 0o755); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	s, err := ReadGlob(ctx, filepath.Join(dir, "*.log"), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	files, err := core.Slice(ctx, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f.Path))
	}
	slices.Sort(names)
	if !slices.Equal(names, []string{"one.log", "two.log"}) {
		t.Errorf("got %v", names)
	}

	if _, err := ReadGlob(ctx, "[", 0); err == nil {
		t.Error("expected an error for a malformed pattern")
	}
}

func TestWriteLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	ctx := context.Background()

	n, err := WriteLines(path).From(ctx, ReadLinesFrom(strings.NewReader("a\nb\n")))
	if err != nil || n != 2 {
		t.Fatalf("WriteLines() = %d, %v", n, err)
	}
	n, err = AppendLines(path).From(ctx, ReadLinesFrom(strings.NewReader("c")))
	if err != nil || n != 1 {
		t.Fatalf("AppendLines() = %d, %v", n, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a\nb\nc\n" {
		t.Errorf("got %q", data)
	}
}

func TestWriteTo_StopsAtFailure(t *testing.T) {
	boom := errors.New("boom")
	var calls int
	in := core.Pull(func(context.Context) (string, error) {
		calls++
		switch calls {
		case 1:
			return "first", nil
		case 2:
			return "", boom
		}
		return "never", nil
	}, nil)

	var buf bytes.Buffer
	n, err := WriteTo(&buf).From(context.Background(), in)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if n != 1 || buf.String() != "first\n" {
		t.Errorf("got n=%d, buf=%q", n, buf.String())
	}
}
