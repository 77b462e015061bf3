package wallet

import (
	"errors"
	"io/fs"
	"strings"

	"ipmint/go-registrar/internal/securestore"
)

var ErrKeystoreEmpty = errors.New("wallet: keystore has no sealed mnemonic")

// Keystore seals the mnemonic to one file under a passphrase.
type Keystore struct {
	path       string
	passphrase string
}

func NewKeystore(path, passphrase string) *Keystore {
	return &Keystore{path: strings.TrimSpace(path), passphrase: passphrase}
}

func (k *Keystore) Save(mnemonic string) error {
	mnemonic = strings.TrimSpace(mnemonic)
	if mnemonic == "" {
		return ErrMnemonicRequired
	}
	return securestore.SealToFile(k.path, k.passphrase, []byte(mnemonic))
}

// Load unseals the stored mnemonic and derives the account from it.
func (k *Keystore) Load() (*Account, error) {
	plain, err := securestore.OpenFromFile(k.path, k.passphrase)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrKeystoreEmpty
		}
		return nil, err
	}
	return FromMnemonic(string(plain))
}

// LoadOrCreate returns the stored account, creating and sealing a fresh
// mnemonic on first use.
func (k *Keystore) LoadOrCreate() (*Account, bool, error) {
	account, err := k.Load()
	if err == nil {
		return account, false, nil
	}
	if !errors.Is(err, ErrKeystoreEmpty) {
		return nil, false, err
	}
	mnemonic, err := NewMnemonic()
	if err != nil {
		return nil, false, err
	}
	if err := k.Save(mnemonic); err != nil {
		return nil, false, err
	}
	account, err = FromMnemonic(mnemonic)
	if err != nil {
		return nil, false, err
	}
	return account, true, nil
}
