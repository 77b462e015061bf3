// Package wallet holds the account and chain layer: a mnemonic-derived
// secp256k1 key, its sealed persistence, and the provider that tracks which
// chain the daemon is pointed at.
package wallet

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"
)

const hkdfInfoAccount = "ipmint/wallet/secp256k1/v1"

var (
	ErrInvalidMnemonic  = errors.New("wallet: invalid mnemonic")
	ErrMnemonicRequired = errors.New("wallet: mnemonic is required")
)

// Account is one unlocked signing identity.
type Account struct {
	PrivateKey *ecdsa.PrivateKey
	Address    common.Address
}

// NewMnemonic generates a fresh 24-word mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// FromMnemonic derives the daemon account key: bip39 seed expanded through
// HKDF into secp256k1 key material. The expansion is deterministic, so the
// same mnemonic always yields the same address.
func FromMnemonic(mnemonic string) (*Account, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if mnemonic == "" {
		return nil, ErrMnemonicRequired
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	seed := bip39.NewSeed(mnemonic, "")
	keyBytes, err := hkdfExpand(seed, hkdfInfoAccount, 32)
	if err != nil {
		return nil, err
	}
	priv, err := crypto.ToECDSA(keyBytes)
	if err != nil {
		return nil, err
	}
	return &Account{
		PrivateKey: priv,
		Address:    crypto.PubkeyToAddress(priv.PublicKey),
	}, nil
}

func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(strings.TrimSpace(mnemonic))
}

func hkdfExpand(seed []byte, info string, outLen int) ([]byte, error) {
	reader := hkdf.New(sha256.New, seed, nil, []byte(info))
	out := make([]byte, outLen)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, err
	}
	return out, nil
}
