package filestore

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-match-client/token"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	keyLength   = 32
	saltLength  = 16
	nonceLength = 24

	defaultLogN = 15
)

var (
	magic = []byte("MCT1")

	ErrNoPassphrase = errors.New("filestore: passphrase is required")
	ErrCorrupt      = errors.New("filestore: credential file is corrupt or the passphrase is wrong")
)

var _ token.Store = (*Store)(nil)

// Store keeps the credential set in a single file sealed with NaCl secretbox.
// The key is derived from a passphrase with scrypt; the salt and cost live in the file header.
//
// File layout: magic(4) | logN(1) | salt(16) | nonce(24) | sealed JSON.
type Store struct {
	path       string
	passphrase []byte
	logN       uint8

	mu      sync.Mutex
	keySalt []byte
	key     *[keyLength]byte
}

type Option func(*Store)

// WithWorkFactor sets scrypt's N as a power of two. Lower values are only sensible in tests.
func WithWorkFactor(logN uint8) Option {
	return func(s *Store) {
		s.logN = logN
	}
}

func New(path, passphrase string, opts ...Option) (*Store, error) {
	if passphrase == "" {
		return nil, ErrNoPassphrase
	}
	s := &Store{
		path:       path,
		passphrase: []byte(passphrase),
		logN:       defaultLogN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Get(_ context.Context) (token.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return token.Credentials{}, token.ErrNotFound
	}
	if err != nil {
		return token.Credentials{}, fmt.Errorf("filestore: read %s: %w", s.path, err)
	}

	plain, err := s.open(data)
	if err != nil {
		return token.Credentials{}, err
	}

	var creds token.Credentials
	if err := json.Unmarshal(plain, &creds); err != nil {
		return token.Credentials{}, fmt.Errorf("filestore: decode credentials: %w", err)
	}
	return creds, nil
}

func (s *Store) GetAccessToken(ctx context.Context) (string, error) {
	return token.AccessToken(ctx, s)
}

func (s *Store) GetRefreshToken(ctx context.Context) (string, error) {
	return token.RefreshToken(ctx, s)
}

func (s *Store) SetCredentials(_ context.Context, creds token.Credentials) error {
	plain, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("filestore: encode credentials: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := s.seal(plain)
	if err != nil {
		return err
	}

	// Write to temp file first, then rename over the old record
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("filestore: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore: chmod temp file: %w", err)
	}
	if _, err := tmp.Write(sealed); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filestore: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("filestore: rename temp file: %w", err)
	}
	return nil
}

func (s *Store) ClearCredentials(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("filestore: remove %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) seal(plain []byte) ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("filestore: generate salt: %w", err)
	}
	var nonce [nonceLength]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("filestore: generate nonce: %w", err)
	}

	key, err := s.deriveKey(salt, s.logN)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(magic)+1+saltLength+nonceLength+len(plain)+secretbox.Overhead)
	out = append(out, magic...)
	out = append(out, s.logN)
	out = append(out, salt...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plain, &nonce, key), nil
}

func (s *Store) open(data []byte) ([]byte, error) {
	headerLength := len(magic) + 1 + saltLength + nonceLength
	if len(data) < headerLength+secretbox.Overhead || !bytes.Equal(data[:len(magic)], magic) {
		return nil, ErrCorrupt
	}

	logN := data[len(magic)]
	salt := data[len(magic)+1 : len(magic)+1+saltLength]
	var nonce [nonceLength]byte
	copy(nonce[:], data[len(magic)+1+saltLength:headerLength])

	key, err := s.deriveKey(salt, logN)
	if err != nil {
		return nil, err
	}

	plain, ok := secretbox.Open(nil, data[headerLength:], &nonce, key)
	if !ok {
		return nil, ErrCorrupt
	}
	return plain, nil
}

// deriveKey caches the key for the most recent salt so repeated reads skip scrypt.
// Callers hold s.mu.
func (s *Store) deriveKey(salt []byte, logN uint8) (*[keyLength]byte, error) {
	if s.key != nil && bytes.Equal(s.keySalt, salt) {
		return s.key, nil
	}
	if logN < 1 || logN > 30 {
		return nil, ErrCorrupt
	}

	derived, err := scrypt.Key(s.passphrase, salt, 1<<logN, 8, 1, keyLength)
	if err != nil {
		return nil, fmt.Errorf("filestore: derive key: %w", err)
	}

	var key [keyLength]byte
	copy(key[:], derived)
	s.key = &key
	s.keySalt = append([]byte(nil), salt...)
	return s.key, nil
}
