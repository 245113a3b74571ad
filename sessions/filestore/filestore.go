// Package filestore persists the session in a single file. Writes go to a temporary file in
// the same directory and are renamed over the target, so readers never see a partial record.
package filestore

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jrsteele09/go-prayer-journal/internal/errors"
	"github.com/jrsteele09/go-prayer-journal/sessions"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

var _ sessions.Store = (*Store)(nil)

var sealedMagic = []byte("PJS1")

const (
	saltLength  = 16
	keyLength   = chacha20poly1305.KeySize
	argonTime   = 1
	argonMemory = 64 * 1024
	argonLanes  = 4
)

// Store is a file-backed sessions.Store.
type Store struct {
	path       string
	passphrase []byte
}

// Option configures a Store.
type Option func(*Store)

// WithPassphrase encrypts the session at rest with a key derived from passphrase.
func WithPassphrase(passphrase string) Option {
	return func(s *Store) {
		if passphrase != "" {
			s.passphrase = []byte(passphrase)
		}
	}
}

// New returns a Store writing to path. The parent directory is created if needed.
func New(path string, options ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "[filestore.New] path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("[filestore.New] failed to create session directory: %w", err)
	}
	s := &Store{path: path}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *Store) Load(_ context.Context) (*sessions.Session, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("[filestore.Load] %w", err)
	}
	if s.passphrase != nil {
		if data, err = s.open(data); err != nil {
			return nil, fmt.Errorf("[filestore.Load] %w", err)
		}
	}
	return sessions.Decode(data)
}

func (s *Store) Save(_ context.Context, session *sessions.Session) error {
	data, err := sessions.Encode(session)
	if err != nil {
		return err
	}
	if s.passphrase != nil {
		if data, err = s.seal(data); err != nil {
			return fmt.Errorf("[filestore.Save] %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("[filestore.Save] create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("[filestore.Save] write: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("[filestore.Save] chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[filestore.Save] close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("[filestore.Save] rename: %w", err)
	}
	return nil
}

func (s *Store) Remove(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("[filestore.Remove] %w", err)
	}
	return nil
}

// Sealed layout: magic | salt | nonce | ciphertext.
func (s *Store) seal(plain []byte) ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(s.deriveKey(salt))
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(sealedMagic)+saltLength+len(nonce)+len(plain)+aead.Overhead())
	out = append(out, sealedMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plain, sealedMagic), nil
}

func (s *Store) open(sealed []byte) ([]byte, error) {
	if !bytes.HasPrefix(sealed, sealedMagic) {
		return nil, errors.New("session file is not encrypted")
	}
	rest := sealed[len(sealedMagic):]
	if len(rest) < saltLength+chacha20poly1305.NonceSizeX {
		return nil, errors.New("session file truncated")
	}
	salt, rest := rest[:saltLength], rest[saltLength:]
	aead, err := chacha20poly1305.NewX(s.deriveKey(salt))
	if err != nil {
		return nil, err
	}
	nonce, ciphertext := rest[:aead.NonceSize()], rest[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, sealedMagic)
	if err != nil {
		return nil, fmt.Errorf("decrypt session: %w", err)
	}
	return plain, nil
}

func (s *Store) deriveKey(salt []byte) []byte {
	return argon2.IDKey(s.passphrase, salt, argonTime, argonMemory, argonLanes, keyLength)
}
