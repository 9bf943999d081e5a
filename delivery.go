package mailstore

import (
	"context"
	"io"
	"net"
	"strings"
	"time"
)

// DeliveryAgent stores an incoming message for its recipients.
type DeliveryAgent interface {
	// Deliver reads the raw RFC 5322 message once and stores a copy for
	// every envelope recipient.
	Deliver(ctx context.Context, envelope Envelope, message io.Reader) error
}

// Envelope contains the message envelope information from the SMTP transaction.
type Envelope struct {
	// From is the MAIL FROM address (reverse-path).
	From string

	// Recipients contains the RCPT TO addresses (forward-paths).
	Recipients []string

	// ReceivedTime is when the message was received by the server.
	ReceivedTime time.Time

	// ClientIP is the IP address of the connecting client.
	ClientIP net.IP

	// ClientHostname is the hostname provided in EHLO/HELO.
	ClientHostname string

	// Encryption describes how the message content was encrypted.
	// nil for plaintext deliveries.
	Encryption *EncryptionInfo
}

// Recipient is a recipient address split into its mailbox address and
// subaddress extension.
type Recipient struct {
	// Address is the recipient with any "+extension" removed.
	Address string

	// Extension is the text between the first "+" and the "@", if any.
	// The maildir store delivers to the subfolder of that name when it exists.
	Extension string
}

// ParseRecipient splits user+ext@domain into user@domain and ext.
func ParseRecipient(email string) Recipient {
	local, domain, hasDomain := strings.Cut(email, "@")
	user, ext, _ := strings.Cut(local, "+")
	if hasDomain {
		return Recipient{Address: user + "@" + domain, Extension: ext}
	}
	return Recipient{Address: user, Extension: ext}
}
