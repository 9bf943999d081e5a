package maildir

import (
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	mserrors "github.com/infodancer/mailstore/errors"
)

type subfolder int

const (
	subNew subfolder = iota
	subCur
)

func (s subfolder) String() string {
	if s == subCur {
		return "cur"
	}
	return "new"
}

// readBatch is the number of directory entries read per system call.
const readBatch = 128

// Entries iterates over the messages of one maildir subfolder (new or cur).
//
// The directory is opened on the first call to Next. If it cannot be
// opened the iteration is simply empty; use Maildir.CountNew or CountCur to
// tell a missing directory from an empty one. Files whose name starts with
// "." are skipped. The order of messages is unspecified and may differ
// between iterations.
//
// A failure reading the directory after it was opened is returned once by
// Next as an error of kind KindIO; the iteration ends after it.
type Entries struct {
	dir     string
	sub     subfolder
	f       *os.File
	buf     []os.DirEntry
	readErr error
	done    bool

	readDir func(f *os.File, n int) ([]os.DirEntry, error)
}

func newEntries(root string, sub subfolder) *Entries {
	return &Entries{
		dir:     filepath.Join(root, sub.String()),
		sub:     sub,
		readDir: (*os.File).ReadDir,
	}
}

// Next returns the next message. A file in cur/ without the ":2," info
// separator is reported as an error of kind KindMalformedEntry; iteration
// may continue after it. Next returns io.EOF when no entries remain.
func (es *Entries) Next() (*MailEntry, error) {
	for {
		name, err := es.nextName()
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(name, ".") {
			slog.Debug("skipping hidden maildir entry", slog.String("dir", es.dir), slog.String("name", name))
			continue
		}
		path := filepath.Join(es.dir, name)
		if es.sub == subNew {
			return &MailEntry{id: name, path: path}, nil
		}
		id, flags, ok := splitCurName(name)
		if !ok {
			return nil, mserrors.E(mserrors.KindMalformedEntry, "list", path, mserrors.ErrMalformedEntry)
		}
		return &MailEntry{id: id, flags: flags, path: path}, nil
	}
}

// nextName returns the next raw directory entry name, a pending read
// error, or io.EOF.
func (es *Entries) nextName() (string, error) {
	for len(es.buf) == 0 {
		if err := es.readErr; err != nil {
			es.readErr = nil
			return "", err
		}
		if es.done {
			return "", io.EOF
		}
		if es.f == nil {
			f, err := os.Open(es.dir)
			if err != nil {
				slog.Debug("maildir subfolder unreadable", slog.String("dir", es.dir), slog.Any("error", err))
				es.done = true
				return "", io.EOF
			}
			es.f = f
		}
		batch, err := es.readDir(es.f, readBatch)
		es.buf = batch
		if err != nil {
			if err != io.EOF {
				es.readErr = mserrors.IO("list", es.dir, err)
			}
			es.Close()
		}
	}
	name := es.buf[0].Name()
	es.buf = es.buf[1:]
	return name, nil
}

// Close releases the directory handle. Further calls to Next return io.EOF.
func (es *Entries) Close() error {
	es.done = true
	if es.f == nil {
		return nil
	}
	err := es.f.Close()
	es.f = nil
	return err
}

// All returns an iterator over the remaining entries. Per-entry errors are
// yielded alongside a nil entry. Breaking out of the loop closes the
// directory.
func (es *Entries) All() iter.Seq2[*MailEntry, error] {
	return func(yield func(*MailEntry, error) bool) {
		defer es.Close()
		for {
			e, err := es.Next()
			if err == io.EOF {
				return
			}
			if !yield(e, err) {
				return
			}
		}
	}
}
