package docstore

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lserr "lineserver/internal/errors"
)

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// recordingProgress captures the callbacks Build makes.
type recordingProgress struct {
	total    int64
	added    int64
	started  bool
	finished bool
}

func (p *recordingProgress) Start(total int64) { p.started = true; p.total = total }
func (p *recordingProgress) Add(n int64)       { p.added += n }
func (p *recordingProgress) Finish()           { p.finished = true }

func TestBuild_RoundTrip(t *testing.T) {
	path := writeSeed(t, "apple\nbanana\ncherry\n")

	s, err := Build(path, nil)
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())

	for id, want := range map[int]string{1: "apple", 2: "banana", 3: "cherry"} {
		line, err := s.Get(id)
		require.NoError(t, err)
		assert.Equal(t, id, line.ID)
		assert.Equal(t, want, line.Text)
	}

	for _, id := range []int{0, -1, 4, 1 << 30} {
		_, err := s.Get(id)
		assert.ErrorIs(t, err, ErrNotFound, "id %d", id)
		assert.True(t, lserr.IsProtocol(err, lserr.NotFound), "id %d", id)
	}
}

func TestBuild_PreservesText(t *testing.T) {
	content := "  leading\ttabs and spaces  \n\nünïcødé ✓\nlast line without newline"
	s, err := Build(writeSeed(t, content), nil)
	require.NoError(t, err)

	want := []string{"  leading\ttabs and spaces  ", "", "ünïcødé ✓", "last line without newline"}
	require.Equal(t, len(want), s.Len())
	for i, w := range want {
		line, err := s.Get(i + 1)
		require.NoError(t, err)
		assert.Equal(t, w, line.Text)
	}
}

func TestBuild_CRLF(t *testing.T) {
	s, err := Build(writeSeed(t, "one\r\ntwo\r\n"), nil)
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())

	line, _ := s.Get(1)
	assert.Equal(t, "one", line.Text)
	line, _ = s.Get(2)
	assert.Equal(t, "two", line.Text)
}

func TestBuild_Empty(t *testing.T) {
	s, err := Build(writeSeed(t, ""), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	_, err = s.Get(1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBuild_Missing(t *testing.T) {
	_, err := Build(filepath.Join(t.TempDir(), "nope.txt"), nil)
	require.Error(t, err)
	assert.True(t, lserr.IsStartup(err, lserr.Unreadable))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuild_Directory(t *testing.T) {
	_, err := Build(t.TempDir(), nil)
	require.Error(t, err)
	assert.True(t, lserr.IsStartup(err, lserr.Unreadable))
}

func TestBuild_InvalidUTF8(t *testing.T) {
	for name, content := range map[string]string{
		"latin1 byte":       "caf\xe9\nok\n",
		"truncated rune":    "ok\n\xe2\x82\n",
		"lone continuation": "\x80",
	} {
		t.Run(name, func(t *testing.T) {
			s, err := Build(writeSeed(t, content), nil)
			require.Error(t, err)
			assert.Nil(t, s, "no partial store")
			assert.True(t, lserr.IsStartup(err, lserr.Unreadable))
			assert.Contains(t, err.Error(), "UTF-8")
		})
	}
}

func TestBuild_MultibyteText(t *testing.T) {
	s, err := Build(writeSeed(t, "café\n日本語\n"), nil)
	require.NoError(t, err)

	line, err := s.Get(2)
	require.NoError(t, err)
	assert.Equal(t, "日本語", line.Text)
}

func TestFromLines_ReplacesInvalidUTF8(t *testing.T) {
	s := FromLines([]string{"caf\xe9", "ok"})

	line, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "caf\uFFFD", line.Text)
}

func TestBuild_Progress(t *testing.T) {
	content := strings.Repeat("0123456789\n", 1000)
	p := &recordingProgress{}

	s, err := Build(writeSeed(t, content), p)
	require.NoError(t, err)

	assert.True(t, p.started)
	assert.True(t, p.finished)
	assert.Equal(t, int64(len(content)), p.total)
	assert.Equal(t, int64(len(content)), p.added)
	assert.Equal(t, 1000, s.Len())
}

func TestBuild_Metadata(t *testing.T) {
	content := "apple\nbanana\n"
	path := writeSeed(t, content)

	s, err := Build(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, s.Path())
	assert.Equal(t, int64(len(content)), s.Size())
	assert.Equal(t, xxhash.Sum64String(content), s.Digest())
}

func TestFromLines(t *testing.T) {
	src := []string{"apple", "banana", "cherry"}
	s := FromLines(src)
	src[0] = "mutated"

	line, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "apple", line.Text, "store must not alias the caller's slice")
	assert.Equal(t, xxhash.Sum64String("apple\nbanana\ncherry\n"), s.Digest())
	assert.Equal(t, int64(len("apple\nbanana\ncherry\n")), s.Size())
}

func TestStore_ConcurrentReads(t *testing.T) {
	lines := make([]string, 500)
	for i := range lines {
		lines[i] = strings.Repeat("x", i)
	}
	s := FromLines(lines)

	var wg sync.WaitGroup
	for g := 0; g < 32; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for id := 1; id <= s.Len(); id++ {
				line, err := s.Get(id)
				if err != nil || len(line.Text) != id-1 {
					t.Errorf("goroutine %d: id %d got %q, %v", g, id, line.Text, err)
					return
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"\n", []string{""}},
		{"a", []string{"a"}},
		{"a\n", []string{"a"}},
		{"a\n\nb", []string{"a", "", "b"}},
		{"a\r\nb\r", []string{"a", "b"}},
		{"a\r\r\n", []string{"a\r"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitLines(tt.in), "input %q", tt.in)
	}
}

func BenchmarkStore_Get(b *testing.B) {
	lines := make([]string, 100_000)
	for i := range lines {
		lines[i] = "the quick brown fox jumps over the lazy dog"
	}
	s := FromLines(lines)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		id := 1
		for pb.Next() {
			s.Get(id) //nolint:errcheck
			id = id%len(lines) + 1
		}
	})
}
