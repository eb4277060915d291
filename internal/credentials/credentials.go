// Package credentials persists the YouTrack token and base URL in an
// encrypted file under the state directory. The cipher key is derived
// from a per-install random key file, so credentials at rest are opaque
// without both files.
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
)

const (
	credentialsFile = "credentials.enc"
	keyFile         = "credentials.key"

	keySize   = 32
	nonceSize = 12
)

// credentialData is the decrypted payload shape.
type credentialData struct {
	Token   string `json:"token"`
	BaseURL string `json:"base_url"`
}

// Store reads and writes the encrypted credential file.
type Store struct {
	dir string
}

// NewStore creates a credential store rooted at dir. The directory is
// created on first write, not here.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// StoreToken persists the token, preserving any stored base URL.
func (s *Store) StoreToken(token string) error {
	data := s.load()
	data.Token = token
	if err := s.save(data); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	return nil
}

// Token returns the stored token, or "" if none is stored or the file
// cannot be read. Read failures degrade to "not authenticated".
func (s *Store) Token() string {
	return s.load().Token
}

// StoreBaseURL persists the server base URL, preserving any stored token.
func (s *Store) StoreBaseURL(url string) error {
	data := s.load()
	data.BaseURL = url
	if err := s.save(data); err != nil {
		return fmt.Errorf("persist base URL: %w", err)
	}
	return nil
}

// BaseURL returns the stored server base URL, or "" if none is stored.
func (s *Store) BaseURL() string {
	return s.load().BaseURL
}

// Clear removes the stored credentials. Missing files are not an error.
func (s *Store) Clear() error {
	err := os.Remove(filepath.Join(s.dir, credentialsFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// load decrypts the credential file. Any failure (missing file, corrupt
// ciphertext, bad JSON) yields empty credentials rather than an error.
func (s *Store) load() credentialData {
	var data credentialData

	raw, err := os.ReadFile(filepath.Join(s.dir, credentialsFile))
	if err != nil || len(raw) <= nonceSize {
		return data
	}

	key, err := s.cipherKey(false)
	if err != nil {
		return data
	}

	gcm, err := newGCM(key)
	if err != nil {
		return data
	}

	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return data
	}

	_ = json.Unmarshal(plaintext, &data)
	return data
}

func (s *Store) save(data credentialData) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}

	key, err := s.cipherKey(true)
	if err != nil {
		return err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return err
	}

	plaintext, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	out := append(nonce, gcm.Seal(nil, nonce, plaintext, nil)...)
	if err := os.WriteFile(filepath.Join(s.dir, credentialsFile), out, 0600); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	return nil
}

// cipherKey derives the AES key from the per-install key file, creating
// the key file when create is true and it does not yet exist.
func (s *Store) cipherKey(create bool) ([]byte, error) {
	path := filepath.Join(s.dir, keyFile)

	secret, err := os.ReadFile(path)
	if os.IsNotExist(err) && create {
		secret = make([]byte, keySize)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate key material: %w", err)
		}
		if err := os.WriteFile(path, secret, 0600); err != nil {
			return nil, fmt.Errorf("write key file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	return argon2.IDKey(secret, []byte(credentialsFile), 1, 64*1024, 4, keySize), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return gcm, nil
}
