package maildir

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	mserrors "github.com/infodancer/mailstore/errors"
)

// StoreNew delivers data into new/ and returns the message identifier.
func (m *Maildir) StoreNew(data []byte) (string, error) {
	return m.deliver(subNew, data, "", "")
}

// StoreCurWithFlags delivers data into cur/ with the given flags and
// returns the message identifier. Duplicate flag characters are dropped.
func (m *Maildir) StoreCurWithFlags(data []byte, flags string) (string, error) {
	if err := validateFlags("store", flags); err != nil {
		return "", err
	}
	return m.deliver(subCur, data, "", canonicalFlags(flags))
}

// deliver writes data to a staging file in tmp/, syncs it, and renames it
// into sub. The message is published under id when id is non-empty;
// otherwise a new identifier is minted from the staged file.
func (m *Maildir) deliver(sub subfolder, data []byte, id, flags string) (string, error) {
	host, err := m.opts.identity.Hostname()
	if err != nil {
		return "", mserrors.E(mserrors.KindHost, "hostname", "", err)
	}
	pid := m.opts.identity.Pid()

	f, now, err := m.createStaging(pid, host)
	if err != nil {
		return "", err
	}
	tmpPath := f.Name()

	fail := func(op string, err error) (string, error) {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return "", mserrors.IO(op, tmpPath, err)
	}

	if _, err := f.Write(data); err != nil {
		return fail("write", err)
	}
	if err := f.Sync(); err != nil {
		return fail("sync", err)
	}
	dev, ino, size, err := fileID(f)
	if err != nil {
		return fail("stat", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", mserrors.IO("close", tmpPath, err)
	}

	publish := os.Rename
	if id == "" {
		id = uniqueName(now, pid, dev, ino, host, size)
	} else {
		// A caller-supplied id may already be taken; link fails where
		// rename would replace.
		publish = linkNoClobber
	}
	name := id
	if sub == subCur {
		name = curName(id, flags)
	}
	dst := filepath.Join(m.path, sub.String(), name)
	if err := publish(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		if errors.Is(err, fs.ErrExist) {
			return "", mserrors.E(mserrors.KindExists, "publish", id, mserrors.ErrMessageExists)
		}
		return "", mserrors.IO("publish", dst, err)
	}
	return id, nil
}

// linkNoClobber publishes tmp at dst only if dst does not exist yet.
func linkNoClobber(tmp, dst string) error {
	if err := os.Link(tmp, dst); err != nil {
		return err
	}
	if err := os.Remove(tmp); err != nil {
		slog.Debug("staging file left behind", slog.String("path", tmp), slog.Any("error", err))
	}
	return nil
}

// createStaging creates a fresh file in tmp/ under a name no other
// delivery is using, waiting and recomputing the name while it collides.
func (m *Maildir) createStaging(pid int, host string) (*os.File, time.Time, error) {
	var (
		f   *os.File
		now time.Time
	)
	err := retryUntil(m.opts.sleep, m.opts.retryInterval, func() (bool, error) {
		now = m.opts.now()
		path := filepath.Join(m.path, "tmp", stagingName(now, pid, host))
		if _, err := os.Lstat(path); err == nil {
			slog.Debug("maildir staging name in use, retrying", slog.String("path", path))
			return false, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return false, mserrors.IO("stat", path, err)
		}
		// O_EXCL closes the window between the existence check and the create.
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if errors.Is(err, fs.ErrExist) {
			slog.Debug("maildir staging name taken concurrently, retrying", slog.String("path", path))
			return false, nil
		}
		if err != nil {
			return false, mserrors.IO("create", path, err)
		}
		f = file
		return true, nil
	})
	return f, now, err
}
