package maildir

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/infodancer/mailstore"
	mserrors "github.com/infodancer/mailstore/errors"
)

// MaildirStore implements mailstore.MsgStore with one maildir per mailbox
// under a common base path.
type MaildirStore struct {
	basePath      string
	maildirSubdir string // optional subdirectory under each mailbox (e.g., "Maildir")
	pathTemplate  string // optional path template for domain-aware storage
	opts          []Option

	// deleted tracks messages marked for deletion per mailbox.
	deletedMu sync.Mutex
	deleted   map[string]map[string]bool // mailbox -> uid -> deleted
}

// NewStore creates a new MaildirStore with the given base path.
// The optional maildirSubdir specifies a subdirectory under each mailbox
// (e.g., "Maildir" for paths like users/testuser/Maildir/).
// The optional pathTemplate transforms mailbox names using variables:
// {domain}, {localpart}, {email} (e.g., "{domain}/users/{localpart}").
// opts are applied to every maildir the store opens.
func NewStore(basePath string, maildirSubdir string, pathTemplate string, opts ...Option) *MaildirStore {
	return &MaildirStore{
		basePath:      basePath,
		maildirSubdir: maildirSubdir,
		pathTemplate:  pathTemplate,
		opts:          opts,
		deleted:       make(map[string]map[string]bool),
	}
}

// splitEmail splits an email address into localpart and domain.
// If the email doesn't contain @, localpart is the entire input and domain is empty.
func splitEmail(email string) (localpart, domain string) {
	if idx := strings.LastIndex(email, "@"); idx >= 0 {
		return email[:idx], email[idx+1:]
	}
	return email, ""
}

// expandMailbox applies the path template to a mailbox name.
func (s *MaildirStore) expandMailbox(mailbox string) string {
	if s.pathTemplate == "" {
		return mailbox
	}
	localpart, domain := splitEmail(mailbox)
	return strings.NewReplacer(
		"{domain}", domain,
		"{localpart}", localpart,
		"{email}", mailbox,
	).Replace(s.pathTemplate)
}

// withinBase cleans candidate and verifies it does not escape the base path.
func (s *MaildirStore) withinBase(candidate string) (string, error) {
	cleanBase := filepath.Clean(s.basePath)
	cleanCandidate := filepath.Clean(candidate)
	// The separator keeps /base-other from matching /base.
	if !strings.HasPrefix(cleanCandidate+string(filepath.Separator), cleanBase+string(filepath.Separator)) {
		return "", mserrors.ErrPathTraversal
	}
	return cleanCandidate, nil
}

// mailboxPath returns the filesystem path of a mailbox's maildir.
func (s *MaildirStore) mailboxPath(mailbox string) (string, error) {
	return s.withinBase(filepath.Join(s.basePath, s.expandMailbox(mailbox), s.maildirSubdir))
}

// Maildir returns the maildir backing mailbox without creating it.
func (s *MaildirStore) Maildir(mailbox string) (*Maildir, error) {
	path, err := s.mailboxPath(mailbox)
	if err != nil {
		return nil, err
	}
	return New(path, s.opts...), nil
}

// existingMaildir returns the mailbox's maildir, or ErrMailboxNotFound.
func (s *MaildirStore) existingMaildir(mailbox string) (*Maildir, error) {
	md, err := s.Maildir(mailbox)
	if err != nil {
		return nil, err
	}
	if !md.Exists() {
		return nil, mserrors.ErrMailboxNotFound
	}
	return md, nil
}

// ensureMaildir returns the mailbox's maildir, creating it if necessary.
func (s *MaildirStore) ensureMaildir(mailbox string) (*Maildir, error) {
	md, err := s.Maildir(mailbox)
	if err != nil {
		return nil, err
	}
	if !md.Exists() {
		if err := md.CreateDirs(); err != nil {
			return nil, err
		}
	}
	return md, nil
}

// Deliver implements mailstore.DeliveryAgent. The message is stored for
// every recipient it can be; an error is returned only if no recipient got
// it. A "+extension" selects the maildir++ folder of that name when the
// folder already exists.
func (s *MaildirStore) Deliver(ctx context.Context, envelope mailstore.Envelope, message io.Reader) error {
	if len(envelope.Recipients) == 0 {
		return mserrors.ErrNoRecipients
	}

	// Read once for multi-recipient delivery
	data, err := io.ReadAll(message)
	if err != nil {
		return err
	}

	var lastErr error
	delivered := 0

	for _, recipient := range envelope.Recipients {
		if err := ctx.Err(); err != nil {
			return err
		}
		parsed := mailstore.ParseRecipient(recipient)
		md, err := s.ensureMaildir(parsed.Address)
		if err != nil {
			lastErr = err
			continue
		}
		s.checkSieveScript(parsed.Address)

		target := md
		if parsed.Extension != "" {
			if folder := md.Folder(parsed.Extension); folder.Exists() {
				target = folder
			}
		}

		id, err := target.StoreNew(data)
		if err != nil {
			lastErr = err
			continue
		}
		slog.Debug("delivered message",
			slog.String("recipient", recipient),
			slog.String("maildir", target.Path()),
			slog.String("id", id))
		delivered++
	}

	if delivered == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

// List implements mailstore.MessageStore. Messages waiting in new/ are
// moved to cur/ and reported with the \Recent flag.
func (s *MaildirStore) List(ctx context.Context, mailbox string) ([]mailstore.MessageInfo, error) {
	md, err := s.existingMaildir(mailbox)
	if err != nil {
		return nil, err
	}

	recent := make(map[string]bool)
	for e, err := range md.ListNew().All() {
		if err != nil {
			return nil, err
		}
		if err := md.MoveNewToCur(e.ID()); err != nil {
			// Another reader may have claimed it first.
			if errors.Is(err, mserrors.ErrNotFound) {
				continue
			}
			return nil, err
		}
		recent[e.ID()] = true
	}

	var messages []mailstore.MessageInfo
	for e, err := range md.ListCur().All() {
		if err != nil {
			if mserrors.KindOf(err) != mserrors.KindMalformedEntry {
				return nil, err
			}
			slog.Debug("skipping maildir entry", slog.String("mailbox", mailbox), slog.Any("error", err))
			continue
		}
		if s.isDeleted(mailbox, e.ID()) {
			continue
		}
		fi, err := os.Stat(e.Path())
		if err != nil {
			continue
		}

		var flags []string
		if recent[e.ID()] {
			flags = append(flags, "\\Recent")
		}
		flags = append(flags, convertFlags(e.Flags())...)

		messages = append(messages, mailstore.MessageInfo{
			UID:   e.ID(),
			Size:  fi.Size(),
			Flags: flags,
		})
	}
	return messages, nil
}

// imapFlags maps maildir flag characters to IMAP system flags.
// Passed has no IMAP equivalent.
var imapFlags = []struct {
	maildir rune
	imap    string
}{
	{rune(FlagSeen), "\\Seen"},
	{rune(FlagReplied), "\\Answered"},
	{rune(FlagFlagged), "\\Flagged"},
	{rune(FlagDraft), "\\Draft"},
	{rune(FlagTrashed), "\\Deleted"},
}

// convertFlags converts maildir flag characters to IMAP flag strings.
func convertFlags(flags string) []string {
	var result []string
	for _, r := range flags {
		for _, f := range imapFlags {
			if f.maildir == r {
				result = append(result, f.imap)
			}
		}
	}
	return result
}

// maildirFlags converts IMAP flag strings to maildir flag characters.
func maildirFlags(flags []string) string {
	var b strings.Builder
	for _, name := range flags {
		for _, f := range imapFlags {
			if strings.EqualFold(f.imap, name) {
				b.WriteRune(f.maildir)
			}
		}
	}
	return canonicalFlags(b.String())
}

// Retrieve implements mailstore.MessageStore.
func (s *MaildirStore) Retrieve(ctx context.Context, mailbox string, uid string) (io.ReadCloser, error) {
	if s.isDeleted(mailbox, uid) {
		return nil, mserrors.ErrMessageDeleted
	}
	md, err := s.existingMaildir(mailbox)
	if err != nil {
		return nil, err
	}
	return md.Open(uid)
}

// SetFlags implements mailstore.FlagStore.
func (s *MaildirStore) SetFlags(ctx context.Context, mailbox string, uid string, flags []string) error {
	md, err := s.existingMaildir(mailbox)
	if err != nil {
		return err
	}
	return md.SetFlags(uid, maildirFlags(flags))
}

// Delete implements mailstore.MessageStore.
func (s *MaildirStore) Delete(ctx context.Context, mailbox string, uid string) error {
	s.deletedMu.Lock()
	defer s.deletedMu.Unlock()

	if s.deleted[mailbox] == nil {
		s.deleted[mailbox] = make(map[string]bool)
	}
	s.deleted[mailbox][uid] = true
	return nil
}

// Expunge implements mailstore.MessageStore.
func (s *MaildirStore) Expunge(ctx context.Context, mailbox string) error {
	s.deletedMu.Lock()
	deletedUIDs := s.deleted[mailbox]
	delete(s.deleted, mailbox)
	s.deletedMu.Unlock()

	if len(deletedUIDs) == 0 {
		return nil
	}

	md, err := s.existingMaildir(mailbox)
	if err != nil {
		return err
	}

	var lastErr error
	for uid := range deletedUIDs {
		if err := md.Delete(uid); err != nil && !errors.Is(err, mserrors.ErrNotFound) {
			lastErr = err
		}
	}
	return lastErr
}

// Stat implements mailstore.MessageStore.
func (s *MaildirStore) Stat(ctx context.Context, mailbox string) (count int, totalBytes int64, err error) {
	messages, err := s.List(ctx, mailbox)
	if err != nil {
		return 0, 0, err
	}

	for _, msg := range messages {
		count++
		totalBytes += msg.Size
	}
	return count, totalBytes, nil
}

func (s *MaildirStore) isDeleted(mailbox, uid string) bool {
	s.deletedMu.Lock()
	defer s.deletedMu.Unlock()

	if s.deleted[mailbox] == nil {
		return false
	}
	return s.deleted[mailbox][uid]
}

// Compile-time interface verification.
var _ mailstore.MsgStore = (*MaildirStore)(nil)
