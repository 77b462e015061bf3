package workflow

import (
	"fmt"
	"strings"
)

// NetworkSwitchError means the wallet layer refused or failed the switch to
// the target chain; no later stage may run after it.
type NetworkSwitchError struct {
	ChainID uint64
	Err     error
}

func (e *NetworkSwitchError) Error() string {
	return fmt.Sprintf("network switch to chain %d failed: %v", e.ChainID, e.Err)
}

func (e *NetworkSwitchError) Unwrap() error { return e.Err }

// MintRevertError wraps an on-chain reversion with the usual suspects, so
// the surfaced message is actionable without chasing logs.
type MintRevertError struct {
	Contract string
	Err      error
}

func (e *MintRevertError) Error() string {
	return fmt.Sprintf(`mint transaction reverted on-chain. Most common causes:
  - malformed or rejected metadata
  - insufficient gas or funds on the recipient account
  - wrong SPG collection address (%s)
  - transient network or rpc issues
Underlying error: %v`, e.Contract, e.Err)
}

func (e *MintRevertError) Unwrap() error { return e.Err }

// enrichMintError upgrades reversion failures to the diagnostic form and
// passes every other failure through unchanged.
func enrichMintError(contract string, err error) error {
	if err == nil || !strings.Contains(err.Error(), "execution reverted") {
		return err
	}
	return &MintRevertError{Contract: contract, Err: err}
}
