// Package securestore seals small secrets (the wallet mnemonic, RPC
// credentials) to disk under a passphrase: argon2id for key derivation,
// XChaCha20-Poly1305 for the payload.
package securestore

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	sealVersion = 1
	saltSize    = 16
	filePrefix  = "IPMINTSEAL1\n"

	kdfTime     = 3
	kdfMemoryKB = 64 * 1024
	kdfThreads  = 2
)

var (
	ErrAuthFailed = errors.New("securestore: passphrase authentication failed")
	ErrInvalid    = errors.New("securestore: sealed payload is invalid")
)

type sealed struct {
	Version    int    `json:"version"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Seal encrypts plaintext under the passphrase and returns a self-describing
// blob suitable for writing to disk.
func Seal(passphrase string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := deriveKey(passphrase, salt)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	blob := sealed{
		Version:    sealVersion,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, nil),
	}
	raw, err := json.Marshal(blob)
	if err != nil {
		return nil, err
	}
	return append([]byte(filePrefix), raw...), nil
}

// Open reverses Seal. A wrong passphrase or tampered blob fails with
// ErrAuthFailed; anything structurally off fails with ErrInvalid.
func Open(passphrase string, data []byte) ([]byte, error) {
	s := string(data)
	if !strings.HasPrefix(s, filePrefix) {
		return nil, ErrInvalid
	}
	var blob sealed
	if err := json.Unmarshal(data[len(filePrefix):], &blob); err != nil {
		return nil, ErrInvalid
	}
	if blob.Version != sealVersion || len(blob.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, ErrInvalid
	}

	key := deriveKey(passphrase, blob.Salt)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, blob.Nonce, blob.Ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// SealToFile writes the sealed blob with restrictive permissions, creating
// parent directories as needed.
func SealToFile(path, passphrase string, plaintext []byte) error {
	blob, err := Seal(passphrase, plaintext)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, blob, 0o600)
}

// OpenFromFile reads and unseals a blob written by SealToFile.
func OpenFromFile(path, passphrase string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Open(passphrase, raw)
}

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, kdfTime, kdfMemoryKB, kdfThreads, chacha20poly1305.KeySize)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
