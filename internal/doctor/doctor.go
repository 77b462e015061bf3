// Package doctor answers "can this daemon register an asset right now":
// chain endpoint, pinning node, collection address and wallet, each as a
// named pass/fail check.
package doctor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ma "github.com/multiformats/go-multiaddr"
)

type Check struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Reason string `json:"reason,omitempty"`
}

type Report struct {
	Ready     bool      `json:"ready"`
	Checks    []Check   `json:"checks"`
	CheckedAt time.Time `json:"checked_at"`
}

type Input struct {
	TargetChainID  uint64
	ChainEndpoint  string
	IPFSAPIAddr    string
	SPGNFTContract string
}

// Probes reach out to external systems. Nil probes skip the respective
// reachability checks, so static validation still runs offline.
type Probes struct {
	// ChainID dials the endpoint and reports the chain id it serves.
	ChainID func(ctx context.Context, endpoint string) (uint64, error)
	// PingIPFS checks that the pinning node's API answers.
	PingIPFS func(ctx context.Context) error
	// WalletLoaded reports whether a signing key is available.
	WalletLoaded func() (bool, error)
}

func Run(ctx context.Context, input Input, probes Probes) Report {
	report := Report{
		Ready:     true,
		Checks:    make([]Check, 0, 8),
		CheckedAt: time.Now().UTC(),
	}
	appendCheck := func(name string, pass bool, reason string) {
		report.Checks = append(report.Checks, Check{Name: name, Pass: pass, Reason: reason})
		if !pass {
			report.Ready = false
		}
	}

	endpointConfigured := strings.TrimSpace(input.ChainEndpoint) != ""
	appendCheck("chain_endpoint_configured", endpointConfigured,
		failReason(!endpointConfigured, fmt.Sprintf("no RPC endpoint configured for chain %d", input.TargetChainID)))

	if endpointConfigured && probes.ChainID != nil {
		served, err := probes.ChainID(ctx, input.ChainEndpoint)
		if err != nil {
			appendCheck("chain_endpoint_reachable", false, err.Error())
		} else {
			appendCheck("chain_endpoint_reachable", true, "")
			appendCheck("chain_id_match", served == input.TargetChainID,
				failReason(served != input.TargetChainID, fmt.Sprintf("endpoint serves chain %d, want %d", served, input.TargetChainID)))
		}
	}

	if _, err := ma.NewMultiaddr(strings.TrimSpace(input.IPFSAPIAddr)); err != nil {
		appendCheck("ipfs_api_addr_valid", false, fmt.Sprintf("invalid multiaddr %q: %v", input.IPFSAPIAddr, err))
	} else {
		appendCheck("ipfs_api_addr_valid", true, "")
		if probes.PingIPFS != nil {
			if err := probes.PingIPFS(ctx); err != nil {
				appendCheck("ipfs_api_reachable", false, err.Error())
			} else {
				appendCheck("ipfs_api_reachable", true, "")
			}
		}
	}

	contractValid := common.IsHexAddress(input.SPGNFTContract)
	appendCheck("collection_address_valid", contractValid,
		failReason(!contractValid, fmt.Sprintf("%q is not a hex address", input.SPGNFTContract)))

	if probes.WalletLoaded != nil {
		loaded, err := probes.WalletLoaded()
		switch {
		case err != nil:
			appendCheck("wallet_initialized", false, err.Error())
		case !loaded:
			appendCheck("wallet_initialized", false, "no wallet keystore found; run wallet init")
		default:
			appendCheck("wallet_initialized", true, "")
		}
	}

	return report
}

func failReason(failed bool, reason string) string {
	if !failed {
		return ""
	}
	return reason
}
