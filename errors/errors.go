// Package errors provides centralized error definitions for mailstore.
//
// Sentinel errors identify specific conditions. Maildir operations return
// *Error values that carry a Kind, the operation and path involved, and the
// underlying cause. An *Error matches the sentinel of its kind with errors.Is,
// so callers can test either the kind or the specific cause:
//
//	if errors.Is(err, mserrors.ErrNotFound) { ... }       // any not-found
//	if errors.Is(err, mserrors.ErrSameMaildir) { ... }    // self-copy
package errors

import (
	"errors"
	"strings"
)

// Kind classifies an *Error by the layer it originated from.
type Kind int

const (
	// KindIO is any filesystem operation failure.
	KindIO Kind = iota + 1
	// KindParse is a failure reported by the mail parser.
	KindParse
	// KindMalformedEntry is a file in cur/ that is not a maildir message.
	KindMalformedEntry
	// KindNotFound is a reference to a message absent from the mailbox.
	KindNotFound
	// KindInvalidArgument is a request that cannot be honored as given.
	KindInvalidArgument
	// KindHost is a failure to determine the local host identity.
	KindHost
	// KindDate is a missing or unparsable timestamp header.
	KindDate
	// KindExists is a message identifier already present at the destination.
	KindExists
)

// String returns the human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindIO:
		return "i/o"
	case KindParse:
		return "parse"
	case KindMalformedEntry:
		return "malformed entry"
	case KindNotFound:
		return "not found"
	case KindInvalidArgument:
		return "invalid argument"
	case KindHost:
		return "host"
	case KindDate:
		return "date"
	case KindExists:
		return "exists"
	default:
		return "unknown"
	}
}

// Kind sentinels. An *Error of a given kind matches the corresponding
// sentinel with errors.Is.
var (
	// ErrIO matches every KindIO error.
	ErrIO = errors.New("i/o error")

	// ErrParse matches every KindParse error.
	ErrParse = errors.New("parse error")

	// ErrMalformedEntry indicates a non-maildir file was found in the maildir.
	ErrMalformedEntry = errors.New("non-maildir file found in maildir")

	// ErrNotFound matches every KindNotFound error.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument matches every KindInvalidArgument error.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrHost matches every KindHost error.
	ErrHost = errors.New("host identity unavailable")

	// ErrDate matches every KindDate error.
	ErrDate = errors.New("date error")

	// ErrExists matches every KindExists error.
	ErrExists = errors.New("already exists")
)

var kindSentinels = map[Kind]error{
	KindIO:              ErrIO,
	KindParse:           ErrParse,
	KindMalformedEntry:  ErrMalformedEntry,
	KindNotFound:        ErrNotFound,
	KindInvalidArgument: ErrInvalidArgument,
	KindHost:            ErrHost,
	KindDate:            ErrDate,
	KindExists:          ErrExists,
}

// Mailbox errors.
var (
	// ErrMailboxNotFound indicates the requested mailbox does not exist.
	ErrMailboxNotFound = errors.New("mailbox not found")

	// ErrPathTraversal indicates a mailbox name resolved outside the base path.
	ErrPathTraversal = errors.New("mailbox path escapes base directory")
)

// Message errors.
var (
	// ErrMessageNotFound indicates the requested message does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrMessageDeleted indicates the message has been marked for deletion.
	ErrMessageDeleted = errors.New("message deleted")

	// ErrMessageExists indicates the destination already holds the identifier.
	ErrMessageExists = errors.New("message already exists")

	// ErrNoReceivedHeader indicates the message carries no Received header.
	ErrNoReceivedHeader = errors.New("no Received header found")

	// ErrInvalidFlag indicates a flag character that cannot be stored in a filename.
	ErrInvalidFlag = errors.New("invalid maildir flag")

	// ErrInvalidID indicates a message identifier that cannot name a file
	// in new/ or cur/.
	ErrInvalidID = errors.New("invalid message identifier")
)

// Delivery errors.
var (
	// ErrNoRecipients indicates no valid recipients were provided.
	ErrNoRecipients = errors.New("no recipients")

	// ErrSameMaildir indicates a copy or move whose source and destination
	// are the same maildir.
	ErrSameMaildir = errors.New("source and destination maildir are the same")
)

// Store errors.
var (
	// ErrStoreNotRegistered indicates the requested store type is not registered.
	ErrStoreNotRegistered = errors.New("store type not registered")

	// ErrStoreConfigInvalid indicates the store configuration is invalid.
	ErrStoreConfigInvalid = errors.New("invalid store configuration")
)

// Maildir errors.
var (
	// ErrMaildirNotFound indicates a destination maildir whose directories
	// have not been created.
	ErrMaildirNotFound = errors.New("maildir not found")
)

// Key errors.
var (
	// ErrKeyDecryptFailed indicates the private key could not be decrypted.
	ErrKeyDecryptFailed = errors.New("key decryption failed")

	// ErrKeyNotFound indicates the user's key file does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrKeyExists indicates a key pair already exists for the user.
	ErrKeyExists = errors.New("key already exists")

	// ErrInvalidKeyFormat indicates the key file has an invalid format.
	ErrInvalidKeyFormat = errors.New("invalid key format")
)

// Error is a maildir operation failure tagged with its kind.
type Error struct {
	Kind Kind
	Op   string // operation, e.g. "store", "rename", "parse"
	Path string // filesystem path or message identifier, if any
	Err  error  // underlying cause
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
	}
	if e.Path != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(e.Path)
	}
	if b.Len() > 0 {
		b.WriteString(": ")
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString(e.Kind.String() + " error")
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// E builds an *Error of the given kind.
func E(kind Kind, op, path string, err error) error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// IO wraps a filesystem failure.
func IO(op, path string, err error) error {
	return E(KindIO, op, path, err)
}

// Parse wraps a mail parser failure.
func Parse(op, path string, err error) error {
	return E(KindParse, op, path, err)
}

// NotFound reports a message absent from the mailbox.
func NotFound(op, id string) error {
	return E(KindNotFound, op, id, ErrMessageNotFound)
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
