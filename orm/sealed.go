package orm

import (
	"crypto/cipher"
	"crypto/rand"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrNoCipher is returned when a Sealed column is written or read before
// ConfigCipher has been called.
var ErrNoCipher = errors.New("cipher key not configured")

var (
	cipherMu   sync.RWMutex
	cipherAEAD cipher.AEAD
)

// ConfigCipher sets the key Sealed columns are encrypted with. The key is
// stretched with BLAKE2b-256; an empty key disables encryption.
func ConfigCipher(key []byte) error {
	cipherMu.Lock()
	defer cipherMu.Unlock()
	if len(key) == 0 {
		cipherAEAD = nil
		return nil
	}
	derived := blake2b.Sum256(key)
	aead, err := chacha20poly1305.NewX(derived[:])
	if err != nil {
		return fmt.Errorf("configure cipher: %w", err)
	}
	cipherAEAD = aead
	return nil
}

// CipherConfigured reports whether ConfigCipher has installed a key.
func CipherConfigured() bool {
	cipherMu.RLock()
	defer cipherMu.RUnlock()
	return cipherAEAD != nil
}

func currentCipher() (cipher.AEAD, error) {
	cipherMu.RLock()
	defer cipherMu.RUnlock()
	if cipherAEAD == nil {
		return nil, ErrNoCipher
	}
	return cipherAEAD, nil
}

// Sealed is a string column stored encrypted with XChaCha20-Poly1305.
// The empty string is stored as NULL.
type Sealed string

func (s Sealed) Value() (driver.Value, error) {
	if s == "" {
		return nil, nil
	}
	aead, err := currentCipher()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(s)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}
	return aead.Seal(nonce, nonce, []byte(s), nil), nil
}

func (s *Sealed) Scan(src any) error {
	*s = ""
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("orm.Sealed: cannot scan %T", src)
	}
	if len(data) == 0 {
		return nil
	}

	aead, err := currentCipher()
	if err != nil {
		return err
	}
	if len(data) < aead.NonceSize()+aead.Overhead() {
		return errors.New("orm.Sealed: ciphertext too short")
	}
	nonce, box := data[:aead.NonceSize()], data[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, box, nil)
	if err != nil {
		return fmt.Errorf("orm.Sealed: %w", err)
	}
	*s = Sealed(plain)
	return nil
}

func (Sealed) GormDataType() string { return "blob" }
