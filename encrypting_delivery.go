package mailstore

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/crypto/nacl/box"
)

const (
	// EncryptionAlgorithm is the algorithm identifier for encrypted messages.
	EncryptionAlgorithm = "x25519-xsalsa20-poly1305"

	// PublicKeySize is the size of an X25519 public or private key.
	PublicKeySize = 32

	// NonceSize is the size of the NaCl box nonce.
	NonceSize = 24
)

// KeyProvider looks up recipients' public keys. Usernames are local parts
// with any "+extension" removed.
type KeyProvider interface {
	// GetPublicKey returns the user's 32-byte public key, or an error
	// wrapping errors.ErrKeyNotFound.
	GetPublicKey(ctx context.Context, username string) ([]byte, error)

	// HasEncryption reports whether the user has a key.
	HasEncryption(ctx context.Context, username string) (bool, error)
}

// EncryptionInfo is attached to the envelope of a sealed delivery.
type EncryptionInfo struct {
	Algorithm string // EncryptionAlgorithm
	Encrypted bool
}

// EncryptingDeliveryAgent wraps a DeliveryAgent and seals each message for
// recipients that have a public key. Recipients without a key receive the
// plaintext in a single delivery; each keyed recipient gets a delivery of
// its own, sealed with a fresh ephemeral key (X25519 + XSalsa20-Poly1305).
type EncryptingDeliveryAgent struct {
	underlying  DeliveryAgent
	keyProvider KeyProvider
}

// NewEncryptingDeliveryAgent creates a new encrypting delivery agent.
func NewEncryptingDeliveryAgent(underlying DeliveryAgent, keyProvider KeyProvider) *EncryptingDeliveryAgent {
	return &EncryptingDeliveryAgent{
		underlying:  underlying,
		keyProvider: keyProvider,
	}
}

// Deliver implements DeliveryAgent.
func (e *EncryptingDeliveryAgent) Deliver(ctx context.Context, envelope Envelope, message io.Reader) error {
	data, err := io.ReadAll(message)
	if err != nil {
		return fmt.Errorf("read message: %w", err)
	}

	var plaintext []string
	sealed := make(map[string][]byte)
	var order []string

	for _, rcpt := range envelope.Recipients {
		key, ok := e.recipientKey(ctx, rcpt)
		if !ok {
			plaintext = append(plaintext, rcpt)
			continue
		}
		sealed[rcpt] = key
		order = append(order, rcpt)
	}

	if len(plaintext) > 0 {
		env := envelope
		env.Recipients = plaintext
		env.Encryption = nil
		if err := e.underlying.Deliver(ctx, env, bytes.NewReader(data)); err != nil {
			return err
		}
	}

	for _, rcpt := range order {
		ciphertext, err := encryptMessage(data, sealed[rcpt])
		if err != nil {
			return fmt.Errorf("encrypt for %s: %w", rcpt, err)
		}
		env := envelope
		env.Recipients = []string{rcpt}
		env.Encryption = &EncryptionInfo{Algorithm: EncryptionAlgorithm, Encrypted: true}
		if err := e.underlying.Deliver(ctx, env, bytes.NewReader(ciphertext)); err != nil {
			return err
		}
	}
	return nil
}

// recipientKey returns the public key of rcpt's mailbox owner. Lookup
// failures fall back to plaintext delivery rather than bouncing mail.
func (e *EncryptingDeliveryAgent) recipientKey(ctx context.Context, rcpt string) ([]byte, bool) {
	username := extractUsername(ParseRecipient(rcpt).Address)

	enabled, err := e.keyProvider.HasEncryption(ctx, username)
	if err != nil {
		slog.Warn("encryption status lookup failed, delivering plaintext",
			slog.String("recipient", rcpt), slog.Any("error", err))
		return nil, false
	}
	if !enabled {
		return nil, false
	}
	key, err := e.keyProvider.GetPublicKey(ctx, username)
	if err != nil {
		slog.Warn("public key lookup failed, delivering plaintext",
			slog.String("recipient", rcpt), slog.Any("error", err))
		return nil, false
	}
	return key, true
}

// encryptMessage seals message for the holder of recipientPubKey.
// Output: ephemeral public key (32B) || nonce (24B) || box ciphertext.
func encryptMessage(message []byte, recipientPubKey []byte) ([]byte, error) {
	if len(recipientPubKey) != PublicKeySize {
		return nil, fmt.Errorf("invalid recipient public key size: %d", len(recipientPubKey))
	}
	var peer [PublicKeySize]byte
	copy(peer[:], recipientPubKey)

	ephemeralPub, ephemeralPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", err)
	}
	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, PublicKeySize+NonceSize+len(message)+box.Overhead)
	out = append(out, ephemeralPub[:]...)
	out = append(out, nonce[:]...)
	return box.Seal(out, message, &nonce, &peer, ephemeralPriv), nil
}

// DecryptMessage opens a message sealed by EncryptingDeliveryAgent using
// the recipient's private key.
func DecryptMessage(encryptedData []byte, privateKey []byte) ([]byte, error) {
	if len(privateKey) != PublicKeySize {
		return nil, fmt.Errorf("invalid private key size: %d", len(privateKey))
	}
	if minSize := PublicKeySize + NonceSize + box.Overhead; len(encryptedData) < minSize {
		return nil, fmt.Errorf("encrypted data too short: %d < %d", len(encryptedData), minSize)
	}

	var peer [PublicKeySize]byte
	var nonce [NonceSize]byte
	var priv [PublicKeySize]byte
	copy(peer[:], encryptedData[:PublicKeySize])
	copy(nonce[:], encryptedData[PublicKeySize:PublicKeySize+NonceSize])
	copy(priv[:], privateKey)

	plaintext, ok := box.Open(nil, encryptedData[PublicKeySize+NonceSize:], &nonce, &peer, &priv)
	if !ok {
		return nil, fmt.Errorf("decryption failed")
	}
	return plaintext, nil
}

// extractUsername returns the local part of an email address, or the
// whole input if it has no "@".
func extractUsername(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
