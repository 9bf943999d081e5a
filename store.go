package mailstore

import (
	"context"
	"io"
)

// MsgStore is a complete mail backend: it accepts deliveries, serves
// mailbox contents to readers and records flag changes. Backends register
// a factory for it with Register.
type MsgStore interface {
	DeliveryAgent
	MessageStore
	FlagStore
}

// MessageStore is the reader side of a backend, shaped for POP3 and IMAP
// sessions. A mailbox is addressed by the name the backend maps to storage
// (an address or a local part); uid is the message's stable identifier.
type MessageStore interface {
	// List reports the messages in mailbox. Listing takes ownership of
	// newly delivered messages, which are reported once with \Recent.
	List(ctx context.Context, mailbox string) ([]MessageInfo, error)

	// Retrieve opens the raw message. The caller closes it.
	Retrieve(ctx context.Context, mailbox string, uid string) (io.ReadCloser, error)

	// Delete hides a message from this handle. Nothing is removed from
	// disk until Expunge.
	Delete(ctx context.Context, mailbox string, uid string) error

	// Expunge removes the messages this handle marked with Delete.
	Expunge(ctx context.Context, mailbox string) error

	// Stat returns the number of visible messages and their total size.
	Stat(ctx context.Context, mailbox string) (count int, totalBytes int64, err error)
}

// FlagStore updates message flags.
type FlagStore interface {
	// SetFlags replaces the flags of a message. Flags use IMAP names
	// ("\Seen", "\Answered", ...); names without a maildir equivalent
	// are ignored.
	SetFlags(ctx context.Context, mailbox string, uid string, flags []string) error
}

// MessageInfo describes one listed message.
type MessageInfo struct {
	UID   string
	Size  int64    // bytes on disk
	Flags []string // IMAP flag names, e.g. "\Seen"
}
