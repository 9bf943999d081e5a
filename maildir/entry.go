package maildir

import (
	"bufio"
	"bytes"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset" // decode non-UTF-8 bodies and headers
	gomail "github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"

	mserrors "github.com/infodancer/mailstore/errors"
)

// MailEntry is a single message inside a maildir, as seen when it was
// listed or found. The file content is not read until a method needs it,
// and is then kept for the lifetime of the entry. Later changes on disk
// are not observed.
type MailEntry struct {
	id    string
	flags string
	path  string

	data   []byte
	loaded bool
}

// ID returns the message's unique identifier.
func (e *MailEntry) ID() string {
	return e.id
}

// Flags returns the raw flag text from the filename, as stored.
func (e *MailEntry) Flags() string {
	return e.flags
}

// Path returns the filesystem path of the message file.
func (e *MailEntry) Path() string {
	return e.path
}

func (e *MailEntry) IsDraft() bool   { return hasFlag(e.flags, FlagDraft) }
func (e *MailEntry) IsFlagged() bool { return hasFlag(e.flags, FlagFlagged) }
func (e *MailEntry) IsPassed() bool  { return hasFlag(e.flags, FlagPassed) }
func (e *MailEntry) IsReplied() bool { return hasFlag(e.flags, FlagReplied) }
func (e *MailEntry) IsSeen() bool    { return hasFlag(e.flags, FlagSeen) }
func (e *MailEntry) IsTrashed() bool { return hasFlag(e.flags, FlagTrashed) }

// Data returns the raw message bytes, reading the file on first use.
func (e *MailEntry) Data() ([]byte, error) {
	if !e.loaded {
		data, err := os.ReadFile(e.path)
		if err != nil {
			return nil, mserrors.IO("read", e.path, err)
		}
		e.data = data
		e.loaded = true
	}
	return e.data, nil
}

// Size returns the size of the message content in bytes.
func (e *MailEntry) Size() (int64, error) {
	data, err := e.Data()
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

// Parsed parses the full message. The returned entity's Body yields the
// decoded content of a single-part message; use MultipartReader for
// multipart ones. Unknown charsets are not an error; the body is then
// returned undecoded.
func (e *MailEntry) Parsed() (*message.Entity, error) {
	data, err := e.Data()
	if err != nil {
		return nil, err
	}
	ent, err := message.Read(bytes.NewReader(data))
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return nil, mserrors.Parse("parse", e.path, err)
	}
	return ent, nil
}

// Headers parses only the message header.
func (e *MailEntry) Headers() (gomail.Header, error) {
	data, err := e.Data()
	if err != nil {
		return gomail.Header{}, err
	}
	h, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(data)))
	if err != nil {
		return gomail.Header{}, mserrors.Parse("parse headers", e.path, err)
	}
	return gomail.Header{Header: message.Header{Header: h}}, nil
}

// Subject returns the decoded Subject header.
func (e *MailEntry) Subject() (string, error) {
	h, err := e.Headers()
	if err != nil {
		return "", err
	}
	s, err := h.Subject()
	if err != nil {
		return "", mserrors.Parse("parse subject", e.path, err)
	}
	return s, nil
}

// Date returns the time from the Date header.
func (e *MailEntry) Date() (time.Time, error) {
	h, err := e.Headers()
	if err != nil {
		return time.Time{}, err
	}
	if h.Get("Date") == "" {
		return time.Time{}, mserrors.E(mserrors.KindDate, "date", e.path, mserrors.ErrDate)
	}
	t, err := h.Date()
	if err != nil {
		return time.Time{}, mserrors.E(mserrors.KindDate, "date", e.path, err)
	}
	return t, nil
}

// Received returns the delivery time recorded by the topmost Received
// header: the text after its last ";".
func (e *MailEntry) Received() (time.Time, error) {
	h, err := e.Headers()
	if err != nil {
		return time.Time{}, err
	}
	v := h.Get("Received")
	if v == "" {
		return time.Time{}, mserrors.E(mserrors.KindDate, "received", e.path, mserrors.ErrNoReceivedHeader)
	}
	stamp := v
	if i := strings.LastIndexByte(v, ';'); i >= 0 {
		stamp = v[i+1:]
	}
	t, err := mail.ParseDate(strings.TrimSpace(stamp))
	if err != nil {
		return time.Time{}, mserrors.E(mserrors.KindDate, "received", e.path, err)
	}
	return t, nil
}
