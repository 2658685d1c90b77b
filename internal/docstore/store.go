// Package docstore holds the immutable line index served by lineserver.
//
// A Store is built once from a text file and never written again, so
// any number of goroutines may read it without locking.  Line ids are
// 1-based and follow file order.
package docstore

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	lserr "lineserver/internal/errors"
	"lineserver/util"
)

// ErrNotFound is returned (wrapped in a *errors.ProtocolError) when an
// id is outside the populated range.
var ErrNotFound = lserr.ErrNotFound

// Line is one line of the source file.
type Line struct {
	ID   int
	Text string // exact content, without the line terminator
}

// Reader is the read-only view handed to connection handlers.
type Reader interface {
	Get(id int) (Line, error)
	Len() int
}

// Progress receives byte counts while a file is loaded.
type Progress interface {
	Start(total int64)
	Add(n int64)
	Finish()
}

// Store is a frozen, id-indexed collection of lines.
type Store struct {
	lines  []string // lines[i] has id i+1
	path   string
	size   int64
	digest uint64
	built  time.Duration
}

var _ Reader = (*Store)(nil)

// Build reads the file at path fully and indexes its lines.  A nil
// progress is allowed.  Open and read failures are returned as a
// *errors.StartupError of kind Unreadable and never yield a partial
// store.
func Build(path string, progress Progress) (*Store, error) {
	start := time.Now()
	if progress == nil {
		progress = nopProgress{}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, lserr.Startup(lserr.Unreadable, path, errors.Wrap(err, "open seed file"))
	}
	defer f.Close()

	var size int64
	if fi, err := f.Stat(); err == nil {
		size = fi.Size()
	}

	buf := util.GetBuffer()
	defer util.PutBuffer(buf)

	progress.Start(size)
	_, err = buf.ReadFrom(&countingReader{r: f, p: progress})
	progress.Finish()
	if err != nil {
		return nil, lserr.Startup(lserr.Unreadable, path, errors.Wrap(err, "read seed file"))
	}

	// Lines go out as WebSocket text frames, which must be UTF-8.
	if !utf8.Valid(buf.B) {
		return nil, lserr.Startup(lserr.Unreadable, path, errors.New("seed file is not valid UTF-8"))
	}

	// string() copies, so the pooled buffer can be recycled.
	text := string(buf.B)

	return &Store{
		lines:  splitLines(text),
		path:   path,
		size:   int64(len(text)),
		digest: xxhash.Sum64String(text),
		built:  time.Since(start),
	}, nil
}

// FromLines builds a store from in-memory text.  The slice is copied;
// invalid UTF-8 sequences are replaced with U+FFFD.
func FromLines(lines []string) *Store {
	cp := make([]string, len(lines))
	for i, l := range lines {
		cp[i] = strings.ToValidUTF8(l, "\uFFFD")
	}

	d := xxhash.New()
	var size int64
	for _, l := range cp {
		n, _ := d.WriteString(l)
		d.WriteString("\n") //nolint:errcheck
		size += int64(n) + 1
	}
	return &Store{lines: cp, size: size, digest: d.Sum64()}
}

// Get returns the line with the given id in O(1).
func (s *Store) Get(id int) (Line, error) {
	if id < 1 || id > len(s.lines) {
		return Line{}, lserr.Protocol(lserr.NotFound, strconv.Itoa(id), ErrNotFound)
	}
	return Line{ID: id, Text: s.lines[id-1]}, nil
}

// Len returns the number of lines (the highest valid id).
func (s *Store) Len() int { return len(s.lines) }

// Path returns the source file, or "" for in-memory stores.
func (s *Store) Path() string { return s.path }

// Size returns the number of source bytes indexed.
func (s *Store) Size() int64 { return s.size }

// Digest returns the xxhash64 of the source content.
func (s *Store) Digest() uint64 { return s.digest }

// BuildTime returns how long Build took.
func (s *Store) BuildTime() time.Duration { return s.built }

// splitLines breaks text on '\n', dropping one trailing '\r' per line.
// A final terminator does not start an extra empty line.
func splitLines(text string) []string {
	lines := make([]string, 0, strings.Count(text, "\n")+1)
	for len(text) > 0 {
		var line string
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			line, text = text[:i], text[i+1:]
		} else {
			line, text = text, ""
		}
		lines = append(lines, strings.TrimSuffix(line, "\r"))
	}
	return lines
}

type countingReader struct {
	r io.Reader
	p Progress
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	if n > 0 {
		c.p.Add(int64(n))
	}
	return n, err
}

type nopProgress struct{}

func (nopProgress) Start(int64) {}
func (nopProgress) Add(int64)   {}
func (nopProgress) Finish()     {}
