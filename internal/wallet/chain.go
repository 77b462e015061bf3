package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
)

// SwitchError reports a refused or impossible chain switch. The workflow
// must not proceed past it.
type SwitchError struct {
	ChainID uint64
	Reason  string
}

func (e *SwitchError) Error() string {
	return fmt.Sprintf("wallet: cannot switch to chain %d: %s", e.ChainID, e.Reason)
}

// ChainProvider tracks the active chain and the RPC endpoint behind each
// configured chain id. It replaces the ambient wallet-context read of the
// original design with an explicit injected dependency.
type ChainProvider struct {
	mu        sync.RWMutex
	endpoints map[uint64]string
	active    uint64
}

func NewChainProvider(endpoints map[uint64]string, active uint64) *ChainProvider {
	eps := make(map[uint64]string, len(endpoints))
	for id, url := range endpoints {
		eps[id] = url
	}
	return &ChainProvider{endpoints: eps, active: active}
}

// ChainID returns the currently selected chain.
func (p *ChainProvider) ChainID(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active, nil
}

// SwitchChain selects another configured chain. Switching to a chain with no
// configured endpoint fails.
func (p *ChainProvider) SwitchChain(ctx context.Context, chainID uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.endpoints[chainID]; !ok {
		return &SwitchError{ChainID: chainID, Reason: "no rpc endpoint configured"}
	}
	p.active = chainID
	return nil
}

// Endpoint returns the RPC URL for a chain id.
func (p *ChainProvider) Endpoint(chainID uint64) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	url, ok := p.endpoints[chainID]
	return url, ok
}

// VerifyEndpoint dials the configured endpoint and checks the node actually
// serves the expected chain id. Used by readiness checks, not the hot path.
func (p *ChainProvider) VerifyEndpoint(ctx context.Context, chainID uint64) error {
	url, ok := p.Endpoint(chainID)
	if !ok {
		return &SwitchError{ChainID: chainID, Reason: "no rpc endpoint configured"}
	}
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return fmt.Errorf("wallet: dial %s: %w", url, err)
	}
	defer client.Close()
	remote, err := client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("wallet: query chain id: %w", err)
	}
	if remote.Uint64() != chainID {
		return fmt.Errorf("wallet: endpoint %s serves chain %s, expected %d", url, remote, chainID)
	}
	return nil
}
