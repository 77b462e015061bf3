package registrar

import (
	"crypto/ecdsa"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"ipmint/go-registrar/pkg/models"
)

const (
	testContract  = "0x1111111111111111111111111111111111111111"
	testRecipient = "0x2222222222222222222222222222222222222222"
)

func testKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func testClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(Config{
		RPCURL:   "http://127.0.0.1:8545",
		Contract: testContract,
		ChainID:  1315,
	}, testKey(t), nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func validRequest() models.MintRequest {
	return models.MintRequest{
		SPGNFTContract:  testContract,
		Recipient:       testRecipient,
		IPMetadataURI:   "ipfs://bafyipmeta",
		IPMetadataHash:  "0x" + strings.Repeat("11", 32),
		NFTMetadataURI:  "ipfs://bafynftmeta",
		NFTMetadataHash: "0x" + strings.Repeat("22", 32),
		AllowDuplicates: true,
	}
}

func TestNewClientRejectsBadContractAddress(t *testing.T) {
	_, err := NewClient(Config{RPCURL: "http://x", Contract: "not-an-address", ChainID: 1315}, testKey(t), nil)
	if !errors.Is(err, ErrBadAddress) {
		t.Fatalf("expected ErrBadAddress, got %v", err)
	}
}

func TestPackCallEncodesSelectorAndArgs(t *testing.T) {
	c := testClient(t)
	calldata, err := c.packCall(validRequest())
	if err != nil {
		t.Fatalf("pack failed: %v", err)
	}
	if len(calldata) < 4 {
		t.Fatalf("calldata too short: %d bytes", len(calldata))
	}
	wantSelector := c.abi.Methods["mintAndRegisterIp"].ID
	if string(calldata[:4]) != string(wantSelector) {
		t.Fatalf("selector mismatch: %x vs %x", calldata[:4], wantSelector)
	}
	// Dynamic string args are appended to the tail of the encoding.
	if !strings.Contains(string(calldata), "ipfs://bafyipmeta") {
		t.Fatal("ip metadata uri not present in calldata")
	}
}

func TestPackCallRejectsMalformedAddresses(t *testing.T) {
	c := testClient(t)
	req := validRequest()
	req.Recipient = "0x123"
	if _, err := c.packCall(req); !errors.Is(err, ErrBadAddress) {
		t.Fatalf("expected ErrBadAddress, got %v", err)
	}
}

func TestIPIDFromLogs(t *testing.T) {
	c := testClient(t)
	ipAddr := common.HexToAddress("0x3333333333333333333333333333333333333333")

	logs := []*types.Log{
		{Topics: []common.Hash{common.HexToHash("0xdead")}}, // unrelated event
		{Topics: []common.Hash{c.ipRegTopic, common.BytesToHash(ipAddr.Bytes())}},
	}
	got, ok := c.ipIDFromLogs(logs)
	if !ok {
		t.Fatal("registration event not found")
	}
	if got != ipAddr.Hex() {
		t.Fatalf("ip id mismatch: %s", got)
	}
}

func TestIPIDFromLogsMissingEvent(t *testing.T) {
	c := testClient(t)
	if _, ok := c.ipIDFromLogs(nil); ok {
		t.Fatal("found an ip id in empty logs")
	}
}
