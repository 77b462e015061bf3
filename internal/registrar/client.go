// Package registrar executes the remote registration call: it packs the
// mintAndRegisterIp arguments, signs and submits the transaction, waits for
// inclusion, and recovers the registered IP id from the receipt logs.
package registrar

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"ipmint/go-registrar/pkg/models"
)

// Minimal surface of the registration workflows periphery contract.
const registrationABI = `[
  {
    "type": "function",
    "name": "mintAndRegisterIp",
    "inputs": [
      {"name": "spgNftContract", "type": "address"},
      {"name": "recipient", "type": "address"},
      {"name": "ipMetadata", "type": "tuple", "components": [
        {"name": "ipMetadataURI", "type": "string"},
        {"name": "ipMetadataHash", "type": "bytes32"},
        {"name": "nftMetadataURI", "type": "string"},
        {"name": "nftMetadataHash", "type": "bytes32"}
      ]},
      {"name": "allowDuplicates", "type": "bool"}
    ],
    "outputs": [
      {"name": "ipId", "type": "address"},
      {"name": "tokenId", "type": "uint256"}
    ]
  },
  {
    "type": "event",
    "name": "IPRegistered",
    "inputs": [
      {"name": "ipId", "type": "address", "indexed": true},
      {"name": "chainId", "type": "uint256", "indexed": true},
      {"name": "tokenContract", "type": "address", "indexed": true},
      {"name": "tokenId", "type": "uint256", "indexed": false},
      {"name": "uri", "type": "string", "indexed": false}
    ]
  }
]`

const (
	defaultGasLimit     = 600_000
	receiptPollInterval = 2 * time.Second
)

var (
	ErrNotMined     = errors.New("registrar: transaction was not mined before the deadline")
	ErrNoIPIDInLogs = errors.New("registrar: registration event not found in receipt")
	ErrBadAddress   = errors.New("registrar: malformed contract or recipient address")
	errABICorrupted = errors.New("registrar: embedded abi failed to parse")
)

type ipMetadataArgs struct {
	IpMetadataURI   string
	IpMetadataHash  [32]byte
	NftMetadataURI  string
	NftMetadataHash [32]byte
}

// Client signs and submits mint transactions against one contract on one
// chain endpoint.
type Client struct {
	rpcURL      string
	contract    common.Address
	key         *ecdsa.PrivateKey
	chainID     *big.Int
	gasLimit    uint64
	waitTimeout time.Duration
	log         *slog.Logger

	abi        abi.ABI
	ipRegTopic common.Hash
}

type Config struct {
	RPCURL      string
	Contract    string
	ChainID     uint64
	GasLimit    uint64
	WaitTimeout time.Duration
}

func NewClient(cfg Config, key *ecdsa.PrivateKey, log *slog.Logger) (*Client, error) {
	if !common.IsHexAddress(cfg.Contract) {
		return nil, fmt.Errorf("%w: %q", ErrBadAddress, cfg.Contract)
	}
	parsed, err := abi.JSON(strings.NewReader(registrationABI))
	if err != nil {
		return nil, errABICorrupted
	}
	if cfg.GasLimit == 0 {
		cfg.GasLimit = defaultGasLimit
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 3 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		rpcURL:      cfg.RPCURL,
		contract:    common.HexToAddress(cfg.Contract),
		key:         key,
		chainID:     new(big.Int).SetUint64(cfg.ChainID),
		gasLimit:    cfg.GasLimit,
		waitTimeout: cfg.WaitTimeout,
		log:         log,
		abi:         parsed,
		ipRegTopic:  parsed.Events["IPRegistered"].ID,
	}, nil
}

// MintAndRegisterIP performs the remote registration call and blocks until
// the transaction is mined or the wait deadline passes.
func (c *Client) MintAndRegisterIP(ctx context.Context, req models.MintRequest) (models.MintReceipt, error) {
	calldata, err := c.packCall(req)
	if err != nil {
		return models.MintReceipt{}, err
	}

	client, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		return models.MintReceipt{}, fmt.Errorf("registrar: dial %s: %w", c.rpcURL, err)
	}
	defer client.Close()

	from := crypto.PubkeyToAddress(c.key.PublicKey)
	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return models.MintReceipt{}, fmt.Errorf("registrar: nonce: %w", err)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return models.MintReceipt{}, fmt.Errorf("registrar: gas price: %w", err)
	}

	gasLimit := c.gasLimit
	if estimated, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &c.contract,
		Data: calldata,
	}); err == nil && estimated > 0 {
		gasLimit = estimated + estimated/5
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &c.contract,
		Data:     calldata,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return models.MintReceipt{}, fmt.Errorf("registrar: sign: %w", err)
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return models.MintReceipt{}, fmt.Errorf("registrar: send: %w", err)
	}

	c.log.Info("mint transaction submitted",
		"tx", signed.Hash().Hex(),
		"contract", c.contract.Hex(),
		"recipient", req.Recipient)

	receipt, err := c.waitMined(ctx, client, signed.Hash())
	if err != nil {
		return models.MintReceipt{}, err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return models.MintReceipt{}, fmt.Errorf("registrar: transaction %s failed: execution reverted", signed.Hash().Hex())
	}

	ipID, ok := c.ipIDFromLogs(receipt.Logs)
	if !ok {
		return models.MintReceipt{}, ErrNoIPIDInLogs
	}
	return models.MintReceipt{IPID: ipID, TxHash: signed.Hash().Hex()}, nil
}

func (c *Client) packCall(req models.MintRequest) ([]byte, error) {
	if !common.IsHexAddress(req.SPGNFTContract) || !common.IsHexAddress(req.Recipient) {
		return nil, ErrBadAddress
	}
	calldata, err := c.abi.Pack("mintAndRegisterIp",
		common.HexToAddress(req.SPGNFTContract),
		common.HexToAddress(req.Recipient),
		ipMetadataArgs{
			IpMetadataURI:   req.IPMetadataURI,
			IpMetadataHash:  common.HexToHash(req.IPMetadataHash),
			NftMetadataURI:  req.NFTMetadataURI,
			NftMetadataHash: common.HexToHash(req.NFTMetadataHash),
		},
		req.AllowDuplicates,
	)
	if err != nil {
		return nil, fmt.Errorf("registrar: pack call: %w", err)
	}
	return calldata, nil
}

func (c *Client) waitMined(ctx context.Context, client *ethclient.Client, txHash common.Hash) (*types.Receipt, error) {
	deadline := time.NewTimer(c.waitTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := client.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("%w: %s", ErrNotMined, txHash.Hex())
		case <-ticker.C:
		}
	}
}

// ipIDFromLogs scans the receipt for the IPRegistered event and returns the
// indexed ipId address.
func (c *Client) ipIDFromLogs(logs []*types.Log) (string, bool) {
	for _, entry := range logs {
		if len(entry.Topics) < 2 || entry.Topics[0] != c.ipRegTopic {
			continue
		}
		return common.BytesToAddress(entry.Topics[1].Bytes()).Hex(), true
	}
	return "", false
}
