package maildir

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gomaildir "github.com/emersion/go-maildir"

	mserrors "github.com/infodancer/mailstore/errors"
)

// Maildir is a handle on a single maildir: the directory containing cur/,
// new/ and tmp/. It holds no state besides the path and its options and
// may be shared freely.
type Maildir struct {
	path string
	opts options
}

// New creates a Maildir instance for the given path.
// It does not create the directory; use CreateDirs() for that.
func New(path string, opts ...Option) *Maildir {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Maildir{path: path, opts: o}
}

// Path returns the maildir path.
func (m *Maildir) Path() string {
	return m.path
}

// CreateDirs creates the maildir and its new, cur and tmp subdirectories.
// Missing parents are created; existing directories are left alone.
func (m *Maildir) CreateDirs() error {
	if err := os.MkdirAll(m.path, 0700); err != nil {
		return mserrors.IO("mkdir", m.path, err)
	}
	if err := gomaildir.Dir(m.path).Init(); err != nil {
		return mserrors.IO("mkdir", m.path, err)
	}
	return nil
}

// Exists checks if the maildir exists and has the required structure.
func (m *Maildir) Exists() bool {
	for _, sub := range []string{"new", "cur", "tmp"} {
		info, err := os.Stat(filepath.Join(m.path, sub))
		if err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}

// CleanTmp removes stale files left in tmp/ by interrupted deliveries.
func (m *Maildir) CleanTmp() error {
	if err := gomaildir.Dir(m.path).Clean(); err != nil {
		return mserrors.IO("clean", filepath.Join(m.path, "tmp"), err)
	}
	return nil
}

// CountNew returns the number of messages in new/.
func (m *Maildir) CountNew() (int, error) {
	return m.count(subNew)
}

// CountCur returns the number of messages in cur/.
func (m *Maildir) CountCur() (int, error) {
	return m.count(subCur)
}

func (m *Maildir) count(sub subfolder) (int, error) {
	dir := filepath.Join(m.path, sub.String())
	entries, err := os.ReadDir(dir)
	if err != nil {
		if m.opts.lenientCount {
			return 0, nil
		}
		return 0, mserrors.IO("count", dir, err)
	}
	n := 0
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			n++
		}
	}
	return n, nil
}

// ListNew returns an iterator over the messages in new/.
func (m *Maildir) ListNew() *Entries {
	return newEntries(m.path, subNew)
}

// ListCur returns an iterator over the messages in cur/.
func (m *Maildir) ListCur() *Entries {
	return newEntries(m.path, subCur)
}

// Find looks for the message with the given identifier in new/ and then
// cur/. If it is not found the error is of kind KindNotFound; any malformed
// entries met during the scan are joined to it.
func (m *Maildir) Find(id string) (*MailEntry, error) {
	return m.find("find", id, subNew, subCur)
}

func (m *Maildir) find(op, id string, order ...subfolder) (*MailEntry, error) {
	if err := validateID(op, id); err != nil {
		return nil, err
	}
	var malformed []error
	for _, sub := range order {
		entries := newEntries(m.path, sub)
		for e, err := range entries.All() {
			if err != nil {
				if mserrors.KindOf(err) != mserrors.KindMalformedEntry {
					return nil, err
				}
				malformed = append(malformed, err)
				continue
			}
			if e.ID() == id {
				return e, nil
			}
		}
	}
	notFound := mserrors.NotFound(op, id)
	if len(malformed) == 0 {
		return nil, notFound
	}
	return nil, errors.Join(append([]error{notFound}, malformed...)...)
}

// MoveNewToCur moves a message from new/ to cur/ without flags. The id
// should come from an entry listed by ListNew.
func (m *Maildir) MoveNewToCur(id string) error {
	if err := validateID("move to cur", id); err != nil {
		return err
	}
	src := filepath.Join(m.path, "new", id)
	dst := filepath.Join(m.path, "cur", curName(id, ""))
	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return mserrors.E(mserrors.KindNotFound, "move to cur", id, err)
		}
		return mserrors.IO("move to cur", src, err)
	}
	return nil
}

// Delete removes the message with the given identifier.
func (m *Maildir) Delete(id string) error {
	e, err := m.Find(id)
	if err != nil {
		return err
	}
	if err := os.Remove(e.Path()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return mserrors.E(mserrors.KindNotFound, "delete", id, err)
		}
		return mserrors.IO("delete", e.Path(), err)
	}
	return nil
}

// CopyTo stores a copy of the message in other under the same identifier
// and flags: in cur/ when the message has flags, in new/ otherwise.
// Copying a maildir onto itself is refused with ErrSameMaildir, and a
// destination that already holds the identifier with ErrMessageExists.
func (m *Maildir) CopyTo(id string, other *Maildir) error {
	same, err := sameDir(m.path, other.path)
	if err != nil {
		return err
	}
	if same {
		return mserrors.E(mserrors.KindInvalidArgument, "copy", id, mserrors.ErrSameMaildir)
	}
	if !other.Exists() {
		return mserrors.E(mserrors.KindNotFound, "copy", other.path, mserrors.ErrMaildirNotFound)
	}

	e, err := m.Find(id)
	if err != nil {
		return err
	}
	data, err := e.Data()
	if err != nil {
		return err
	}
	if _, err := other.Find(id); err == nil {
		return mserrors.E(mserrors.KindExists, "copy", id, mserrors.ErrMessageExists)
	} else if !errors.Is(err, mserrors.ErrNotFound) {
		return err
	}

	sub := subNew
	if e.Flags() != "" {
		sub = subCur
	}
	_, err = other.deliver(sub, data, id, e.Flags())
	return err
}

// MoveTo copies the message to other and then deletes it here. When other
// already holds the identifier with identical content, as after a CopyTo in
// the opposite direction, the copy counts as done and only the delete runs.
func (m *Maildir) MoveTo(id string, other *Maildir) error {
	err := m.CopyTo(id, other)
	if mserrors.KindOf(err) == mserrors.KindExists {
		err = m.sameContent(id, other, err)
	}
	if err != nil {
		return err
	}
	return m.Delete(id)
}

// sameContent returns nil when id holds the same bytes here and in other,
// and exists otherwise.
func (m *Maildir) sameContent(id string, other *Maildir, exists error) error {
	here, err := m.Find(id)
	if err != nil {
		return err
	}
	there, err := other.Find(id)
	if err != nil {
		return err
	}
	a, err := here.Data()
	if err != nil {
		return err
	}
	b, err := there.Data()
	if err != nil {
		return err
	}
	if !bytes.Equal(a, b) {
		return exists
	}
	return nil
}

// SetFlags replaces the message's flags. The message always ends up in
// cur/, even when flags is empty.
func (m *Maildir) SetFlags(id, flags string) error {
	if err := validateFlags("set flags", flags); err != nil {
		return err
	}
	return m.updateFlags("set flags", id, func(string) string {
		return canonicalFlags(flags)
	})
}

// AddFlags adds flags to the message's current flags.
func (m *Maildir) AddFlags(id, flags string) error {
	if err := validateFlags("add flags", flags); err != nil {
		return err
	}
	return m.updateFlags("add flags", id, func(current string) string {
		return unionFlags(current, flags)
	})
}

// RemoveFlags removes flags from the message's current flags.
func (m *Maildir) RemoveFlags(id, flags string) error {
	return m.updateFlags("remove flags", id, func(current string) string {
		return differenceFlags(current, flags)
	})
}

// updateFlags renames the message to cur/<id>:2,<flags> where flags is
// computed from its current flags. Messages in new/ have no flags.
func (m *Maildir) updateFlags(op, id string, compute func(current string) string) error {
	e, err := m.find(op, id, subCur, subNew)
	if err != nil {
		return err
	}
	dst := filepath.Join(m.path, "cur", curName(id, compute(e.Flags())))
	if dst == e.Path() {
		return nil
	}
	if err := os.Rename(e.Path(), dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return mserrors.E(mserrors.KindNotFound, op, id, err)
		}
		return mserrors.IO(op, e.Path(), err)
	}
	return nil
}

// Folder returns a Maildir for a maildir++ subfolder.
func (m *Maildir) Folder(name string) *Maildir {
	return &Maildir{path: filepath.Join(m.path, "."+name), opts: m.opts}
}

// CreateFolder creates a maildir++ subfolder.
func (m *Maildir) CreateFolder(name string) (*Maildir, error) {
	folder := m.Folder(name)
	if err := folder.CreateDirs(); err != nil {
		return nil, err
	}
	return folder, nil
}

// ListSubdirs returns the maildir++ subfolders: directories directly under
// the maildir whose name starts with a single ".".
func (m *Maildir) ListSubdirs() ([]*Maildir, error) {
	entries, err := os.ReadDir(m.path)
	if err != nil {
		return nil, mserrors.IO("list subdirs", m.path, err)
	}
	var dirs []*Maildir
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, ".") || strings.HasPrefix(name, "..") || !e.IsDir() {
			continue
		}
		dirs = append(dirs, &Maildir{path: filepath.Join(m.path, name), opts: m.opts})
	}
	return dirs, nil
}

// Open opens the message file for reading.
func (m *Maildir) Open(id string) (io.ReadCloser, error) {
	e, err := m.Find(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(e.Path())
	if err != nil {
		return nil, mserrors.IO("open", e.Path(), err)
	}
	return f, nil
}

// sameDir reports whether a and b name the same directory.
func sameDir(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, mserrors.IO("abs", a, err)
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, mserrors.IO("abs", b, err)
	}
	if absA == absB {
		return true, nil
	}
	infoA, errA := os.Stat(absA)
	infoB, errB := os.Stat(absB)
	if errA != nil || errB != nil {
		return false, nil
	}
	return os.SameFile(infoA, infoB), nil
}
