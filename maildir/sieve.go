package maildir

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	gosieve "git.sr.ht/~emersion/go-sieve"

	mserrors "github.com/infodancer/mailstore/errors"
)

// sieveScriptPath returns the filesystem path for a user's Sieve script,
// {basePath}/{expandedMailbox}/.sieve, in the user's mailbox root next to
// the maildir.
func (s *MaildirStore) sieveScriptPath(mailbox string) (string, error) {
	return s.withinBase(filepath.Join(s.basePath, s.expandMailbox(mailbox), ".sieve"))
}

// loadSieveScript parses the mailbox's Sieve script. A missing script
// yields no commands and no error.
func (s *MaildirStore) loadSieveScript(mailbox string) ([]gosieve.Command, error) {
	path, err := s.sieveScriptPath(mailbox)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, mserrors.IO("sieve", path, err)
	}

	cmds, err := gosieve.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, mserrors.Parse("sieve", path, err)
	}
	slog.Debug("loaded sieve script", slog.String("path", path), slog.Int("commands", len(cmds)))
	return cmds, nil
}

// SieveScript parses the mailbox's Sieve script and returns its number of
// top-level commands. A mailbox without a script has zero commands.
func (s *MaildirStore) SieveScript(mailbox string) (int, error) {
	cmds, err := s.loadSieveScript(mailbox)
	if err != nil {
		return 0, err
	}
	return len(cmds), nil
}

// checkSieveScript logs a broken Sieve script at delivery time. Delivery
// itself always proceeds to the inbox.
func (s *MaildirStore) checkSieveScript(mailbox string) {
	if _, err := s.loadSieveScript(mailbox); err != nil {
		slog.Warn("sieve script rejected, delivering to inbox",
			slog.String("mailbox", mailbox), slog.Any("error", err))
	}
}
