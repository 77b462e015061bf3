package doctor

import (
	"context"
	"errors"
	"testing"
)

func goodInput() Input {
	return Input{
		TargetChainID:  1315,
		ChainEndpoint:  "https://aeneid.example/rpc",
		IPFSAPIAddr:    "/ip4/127.0.0.1/tcp/5001",
		SPGNFTContract: "0x9999999999999999999999999999999999999999",
	}
}

func passingProbes() Probes {
	return Probes{
		ChainID:      func(ctx context.Context, endpoint string) (uint64, error) { return 1315, nil },
		PingIPFS:     func(ctx context.Context) error { return nil },
		WalletLoaded: func() (bool, error) { return true, nil },
	}
}

func checkByName(t *testing.T, report Report, name string) Check {
	t.Helper()
	for _, c := range report.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q missing from report: %+v", name, report.Checks)
	return Check{}
}

func TestRunAllHealthy(t *testing.T) {
	report := Run(context.Background(), goodInput(), passingProbes())
	if !report.Ready {
		t.Fatalf("expected ready, got %+v", report)
	}
	for _, c := range report.Checks {
		if !c.Pass {
			t.Fatalf("unexpected failing check: %+v", c)
		}
	}
	if report.CheckedAt.IsZero() {
		t.Fatal("report must carry a timestamp")
	}
}

func TestRunChainIDMismatch(t *testing.T) {
	probes := passingProbes()
	probes.ChainID = func(ctx context.Context, endpoint string) (uint64, error) { return 1, nil }

	report := Run(context.Background(), goodInput(), probes)
	if report.Ready {
		t.Fatal("mismatched chain must not be ready")
	}
	c := checkByName(t, report, "chain_id_match")
	if c.Pass || c.Reason == "" {
		t.Fatalf("expected failing chain_id_match with reason: %+v", c)
	}
}

func TestRunUnreachableEndpointSkipsMatchCheck(t *testing.T) {
	probes := passingProbes()
	probes.ChainID = func(ctx context.Context, endpoint string) (uint64, error) {
		return 0, errors.New("connection refused")
	}

	report := Run(context.Background(), goodInput(), probes)
	if report.Ready {
		t.Fatal("unreachable endpoint must not be ready")
	}
	checkByName(t, report, "chain_endpoint_reachable")
	for _, c := range report.Checks {
		if c.Name == "chain_id_match" {
			t.Fatal("chain_id_match must be skipped when the dial fails")
		}
	}
}

func TestRunBadStaticConfig(t *testing.T) {
	input := Input{
		TargetChainID:  1315,
		ChainEndpoint:  "",
		IPFSAPIAddr:    "not-a-multiaddr",
		SPGNFTContract: "0xZZ",
	}
	report := Run(context.Background(), input, Probes{})
	if report.Ready {
		t.Fatal("bad static config must not be ready")
	}
	for _, name := range []string{"chain_endpoint_configured", "ipfs_api_addr_valid", "collection_address_valid"} {
		if c := checkByName(t, report, name); c.Pass {
			t.Fatalf("expected %s to fail: %+v", name, c)
		}
	}
}

func TestRunMissingWallet(t *testing.T) {
	probes := passingProbes()
	probes.WalletLoaded = func() (bool, error) { return false, nil }

	report := Run(context.Background(), goodInput(), probes)
	c := checkByName(t, report, "wallet_initialized")
	if c.Pass || c.Reason == "" {
		t.Fatalf("expected wallet check failure with guidance: %+v", c)
	}
}
