// Package keyring stores per-user encryption keys in a directory.
//
// Each user with encryption enabled has two files:
//
//	<user>.pub   X25519 public key (32 bytes)
//	<user>.key   private key sealed with the user's password:
//	             salt (32B) || nonce (24B) || secretbox ciphertext
//
// The sealing key is derived from the password with Argon2id. Dir implements
// mailstore.KeyProvider so it can feed an EncryptingDeliveryAgent.
package keyring

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/infodancer/mailstore"
	mserrors "github.com/infodancer/mailstore/errors"
)

const (
	// Key file extensions
	privateKeyExt = ".key"
	publicKeyExt  = ".pub"

	saltSize  = 32
	nonceSize = 24

	// Argon2id parameters for key derivation
	argon2Time    = 3
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
)

// Dir is a key directory.
type Dir struct {
	path string
}

// New returns a Dir for path. The directory is created by Generate.
func New(path string) *Dir {
	return &Dir{path: path}
}

// keyPath returns the path of a user's key file, refusing names that would
// leave the directory.
func (d *Dir) keyPath(username, ext string) (string, error) {
	if username == "" || strings.ContainsAny(username, `/\`) || username == "." || username == ".." {
		return "", mserrors.E(mserrors.KindInvalidArgument, "key path", username, mserrors.ErrPathTraversal)
	}
	return filepath.Join(d.path, username+ext), nil
}

// GetPublicKey returns the public key for a user.
// Returns errors.ErrKeyNotFound if the user has no key.
func (d *Dir) GetPublicKey(ctx context.Context, username string) ([]byte, error) {
	path, err := d.keyPath(username, publicKeyExt)
	if err != nil {
		return nil, err
	}
	pubKey, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, mserrors.ErrKeyNotFound
		}
		return nil, fmt.Errorf("read public key: %w", err)
	}
	if len(pubKey) != mailstore.PublicKeySize {
		return nil, mserrors.ErrInvalidKeyFormat
	}
	return pubKey, nil
}

// HasEncryption reports whether the user has a public key.
func (d *Dir) HasEncryption(ctx context.Context, username string) (bool, error) {
	path, err := d.keyPath(username, publicKeyExt)
	if err != nil {
		return false, nil
	}
	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat public key: %w", err)
	}
	return true, nil
}

// PrivateKey loads and unseals the user's private key.
func (d *Dir) PrivateKey(username, password string) ([]byte, error) {
	path, err := d.keyPath(username, privateKeyExt)
	if err != nil {
		return nil, err
	}
	sealed, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, mserrors.ErrKeyNotFound
		}
		return nil, fmt.Errorf("read private key: %w", err)
	}
	return openPrivateKey(sealed, password)
}

// Generate creates a new key pair for the user, sealing the private key
// with password, and returns the public key. An existing key pair is never
// replaced.
func (d *Dir) Generate(username, password string) ([]byte, error) {
	pubPath, err := d.keyPath(username, publicKeyExt)
	if err != nil {
		return nil, err
	}
	privPath, err := d.keyPath(username, privateKeyExt)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(d.path, 0700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}

	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key pair: %w", err)
	}
	sealed, err := sealPrivateKey(priv[:], password)
	if err != nil {
		return nil, err
	}

	// The private key goes first so a visible public key always has a
	// private half.
	if err := writeNew(privPath, sealed, 0600); err != nil {
		return nil, err
	}
	if err := writeNew(pubPath, pub[:], 0644); err != nil {
		_ = os.Remove(privPath)
		return nil, err
	}
	return pub[:], nil
}

// writeNew writes data to a file that must not exist yet.
func writeNew(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if errors.Is(err, fs.ErrExist) {
		return mserrors.ErrKeyExists
	}
	if err != nil {
		return fmt.Errorf("create key file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write key file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close key file: %w", err)
	}
	return nil
}

func deriveKey(password string, salt []byte) *[32]byte {
	var key [32]byte
	copy(key[:], argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen))
	return &key
}

// sealPrivateKey encrypts a private key with the user's password.
func sealPrivateKey(privateKey []byte, password string) ([]byte, error) {
	out := make([]byte, saltSize+nonceSize, saltSize+nonceSize+len(privateKey)+secretbox.Overhead)
	if _, err := rand.Read(out[:saltSize+nonceSize]); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], out[saltSize:])
	return secretbox.Seal(out, privateKey, &nonce, deriveKey(password, out[:saltSize])), nil
}

// openPrivateKey decrypts a private key sealed by sealPrivateKey.
func openPrivateKey(sealed []byte, password string) ([]byte, error) {
	if len(sealed) < saltSize+nonceSize+secretbox.Overhead {
		return nil, mserrors.ErrInvalidKeyFormat
	}

	salt := sealed[:saltSize]
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[saltSize:saltSize+nonceSize])

	plaintext, ok := secretbox.Open(nil, sealed[saltSize+nonceSize:], &nonce, deriveKey(password, salt))
	if !ok {
		return nil, mserrors.ErrKeyDecryptFailed
	}
	return plaintext, nil
}

var _ mailstore.KeyProvider = (*Dir)(nil)
