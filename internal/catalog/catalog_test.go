package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func writeTestFile(t *testing.T, s *Store, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), name), []byte("audio"), 0o644))
}

func TestResolve_SafeNames(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"track.mp3", "a b c.mp3", "no-extension", "über.mp3"} {
		path, err := s.Resolve(name)
		require.NoError(t, err, "Resolve(%q)", name)
		assert.True(t, strings.HasPrefix(path, s.Root()+string(filepath.Separator)),
			"Resolve(%q) = %q escapes root", name, path)
		assert.Equal(t, name, filepath.Base(path))
	}
}

func TestResolve_Idempotent(t *testing.T) {
	s := newTestStore(t)

	first, err := s.Resolve("track.mp3")
	require.NoError(t, err)
	second, err := s.Resolve(filepath.Base(first))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolve_Rejections(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"dot", "."},
		{"dotdot", ".."},
		{"traversal", "../../etc/passwd"},
		{"root", "/"},
		{"trailing traversal", "downloads/.."},
		{"nested path", "some/dir/track.mp3"},
		{"backslash", `..\..\track.mp3`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Resolve(tt.input)
			assert.ErrorIs(t, err, ErrInvalidFilename, "Resolve(%q)", tt.input)
		})
	}
}

func TestList_FiltersByExtension(t *testing.T) {
	s := newTestStore(t)
	writeTestFile(t, s, "one.mp3")
	writeTestFile(t, s, "two.MP3")
	writeTestFile(t, s, "skip.txt")
	writeTestFile(t, s, "partial.webm")
	require.NoError(t, os.Mkdir(filepath.Join(s.Root(), "sub.mp3"), 0o755))

	entries, err := s.List()
	require.NoError(t, err)

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Filename
	}
	assert.ElementsMatch(t, []string{"one.mp3", "two.MP3"}, names)
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)
	writeTestFile(t, s, "track.mp3")

	f, err := s.Open("track.mp3")
	require.NoError(t, err)
	defer f.Close()

	_, err = s.Open("missing.mp3")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Open("../track.mp3")
	assert.ErrorIs(t, err, ErrInvalidFilename)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	writeTestFile(t, s, "track.mp3")

	require.NoError(t, s.Delete("track.mp3"))
	assert.NoFileExists(t, filepath.Join(s.Root(), "track.mp3"))

	assert.ErrorIs(t, s.Delete("track.mp3"), ErrNotFound)
	assert.ErrorIs(t, s.Delete("../../etc/passwd"), ErrInvalidFilename)
}

func TestDelete_TraversalPerformsNoMutation(t *testing.T) {
	s := newTestStore(t)

	// A sensitive file one level above the root must survive a traversal attempt.
	outside := filepath.Join(filepath.Dir(s.Root()), "passwd")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))

	err := s.Delete("../passwd")
	assert.ErrorIs(t, err, ErrInvalidFilename)
	assert.FileExists(t, outside)
}
