// Package catalog manages the directory of finished audio files. The
// filesystem listing is the source of truth; there is no database or index.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// audioExt is the extension of finished files in the catalog.
const audioExt = ".mp3"

// Entry is a derived view over one finished file.
type Entry struct {
	Filename string `json:"filename"`
}

// Store provides safe access to the catalog directory. Every path it hands
// out is guaranteed to sit strictly inside the catalog root.
type Store struct {
	root string
}

// New creates a Store rooted at dir, creating the directory if needed.
// The root is resolved to an absolute path so containment checks are not
// fooled by relative components.
func New(dir string) (*Store, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog root: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create catalog root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the absolute catalog root directory.
func (s *Store) Root() string {
	return s.root
}

// Resolve returns the absolute path of the named entry inside the catalog
// root. It returns ErrInvalidFilename for empty names, dot entries, names
// containing a path separator, and anything that would escape the root.
// Callers must never perform I/O on a path that did not come from Resolve.
func (s *Store) Resolve(filename string) (string, error) {
	if filename == "" || filename == "." || filename == ".." {
		return "", ErrInvalidFilename
	}
	if strings.ContainsAny(filename, `/\`) {
		return "", ErrInvalidFilename
	}

	resolved := filepath.Clean(filepath.Join(s.root, filename))

	// Prefix check includes the separator so a sibling like "/downloads-evil"
	// does not pass for root "/downloads".
	if !strings.HasPrefix(resolved, s.root+string(filepath.Separator)) {
		return "", ErrInvalidFilename
	}
	return resolved, nil
}

// List returns the catalog entries whose extension matches the target audio
// format, in directory iteration order.
func (s *Store) List() ([]Entry, error) {
	dirents, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read catalog dir: %w", err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if d.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(d.Name()), audioExt) {
			entries = append(entries, Entry{Filename: d.Name()})
		}
	}
	return entries, nil
}

// Open resolves filename and opens the file for reading. It returns
// ErrInvalidFilename on an unsafe name and ErrNotFound when no such entry
// exists.
func (s *Store) Open(filename string) (*os.File, error) {
	path, err := s.Resolve(filename)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	return f, nil
}

// Delete resolves filename and removes the entry. It returns
// ErrInvalidFilename on an unsafe name and ErrNotFound when no such entry
// exists.
func (s *Store) Delete(filename string) error {
	path, err := s.Resolve(filename)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("stat %s: %w", filepath.Base(path), err)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete %s: %w", filepath.Base(path), err)
	}
	return nil
}
