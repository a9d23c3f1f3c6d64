// Package sink writes generated files.
//
// Generated files live next to the code they serve, so a sink refuses to
// replace a file it did not generate: a file is replaced only when it starts
// with the generated-code marker.
package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// ErrNotGenerated is returned when the destination exists and lacks the
// generated-code marker.
var ErrNotGenerated = errors.New("file exists and was not generated")

// Sink receives generated files. Implementations must be safe for
// concurrent calls.
type Sink interface {
	// WriteFile writes content to path, a slash-separated path relative to
	// the sink's root.
	WriteFile(ctx context.Context, path string, content []byte) error
}

// FilesystemSink writes below a directory on the local filesystem.
type FilesystemSink struct {
	Root string

	// Mode is the permission of new files. Zero means 0644.
	Mode os.FileMode

	// Marker is the prefix every replaceable file starts with. When empty,
	// any existing file is replaced.
	Marker []byte

	mu      sync.Mutex
	written []string
}

// NewFilesystemSink returns a sink writing below root that only replaces
// files starting with marker.
func NewFilesystemSink(root string, marker string) *FilesystemSink {
	return &FilesystemSink{Root: root, Mode: 0o644, Marker: []byte(marker)}
}

// WriteFile replaces the file at path atomically. A file whose content is
// already up to date is left untouched.
func (s *FilesystemSink) WriteFile(ctx context.Context, path string, content []byte) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	old, err := os.ReadFile(full)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read %s: %w", path, err)
	case bytes.Equal(old, content):
		return nil
	case len(s.Marker) > 0 && !bytes.HasPrefix(old, s.Marker):
		return fmt.Errorf("%s: %w", path, ErrNotGenerated)
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	mode := s.Mode
	if mode == 0 {
		mode = 0o644
	}

	tmp, err := os.CreateTemp(dir, ".routegen-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	_, werr := tmp.Write(content)
	cerr := tmp.Close()
	err = errors.Join(werr, cerr)
	if err == nil {
		err = os.Chmod(tmpPath, mode)
	}
	if err == nil {
		err = ctx.Err()
	}
	if err == nil {
		err = os.Rename(tmpPath, full)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}

	s.mu.Lock()
	s.written = append(s.written, path)
	s.mu.Unlock()
	return nil
}

// Written returns the paths whose content changed, sorted.
func (s *FilesystemSink) Written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sorted(s.written)
}

func (s *FilesystemSink) resolve(path string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	full := filepath.Join(root, filepath.FromSlash(path))
	if !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes root directory: %q", path)
	}
	return full, nil
}

// CheckSink compares files with what is on disk below Root and records the
// ones that differ. It never writes.
type CheckSink struct {
	Root string

	mu    sync.Mutex
	stale []string
}

// WriteFile records path as stale when the file is missing or its content
// differs.
func (s *CheckSink) WriteFile(ctx context.Context, path string, content []byte) error {
	if err := ValidatePath(path); err != nil {
		return fmt.Errorf("invalid path %q: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	old, err := os.ReadFile(filepath.Join(s.Root, filepath.FromSlash(path)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err == nil && bytes.Equal(old, content) {
		return nil
	}
	s.mu.Lock()
	s.stale = append(s.stale, path)
	s.mu.Unlock()
	return nil
}

// Stale returns the paths that are out of date, sorted.
func (s *CheckSink) Stale() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sorted(s.stale)
}

// MemorySink keeps files in memory.
type MemorySink struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

func (s *MemorySink) WriteFile(ctx context.Context, path string, content []byte) error {
	if err := ValidatePath(path); err != nil {
		return fmt.Errorf("invalid path %q: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = bytes.Clone(content)
	return nil
}

// Files returns a copy of every file written.
func (s *MemorySink) Files() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte, len(s.files))
	for p, c := range s.files {
		out[p] = bytes.Clone(c)
	}
	return out
}

// Get returns the content written to path, or nil.
func (s *MemorySink) Get(path string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return bytes.Clone(s.files[path])
}

// ValidatePath reports whether path is a clean, relative, slash-separated
// path that stays below the root.
func ValidatePath(path string) error {
	switch {
	case path == "" || path == ".":
		return errors.New("path is empty")
	case strings.HasPrefix(path, "/") || filepath.IsAbs(path) || filepath.VolumeName(path) != "" ||
		len(path) >= 2 && path[1] == ':':
		return errors.New("absolute paths not allowed")
	case strings.Contains(path, `\`):
		return errors.New("path must use / as separator")
	case slices.Contains(strings.Split(path, "/"), ".."):
		return errors.New("path traversal not allowed")
	}
	if cleaned := filepath.ToSlash(filepath.Clean(path)); cleaned != path {
		return fmt.Errorf("path is not clean (expected %q, got %q)", cleaned, path)
	}
	return nil
}

func sorted(s []string) []string {
	s = slices.Clone(s)
	slices.Sort(s)
	return s
}
