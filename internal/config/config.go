// Package config loads the daemon's configuration: built-in defaults, then
// an optional YAML file, then IPMINT_* environment overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ma "github.com/multiformats/go-multiaddr"
	"gopkg.in/yaml.v3"
)

// DefaultChainID is the Story Aeneid testnet.
const DefaultChainID uint64 = 1315

type Config struct {
	Chain    ChainConfig    `yaml:"chain"`
	IPFS     IPFSConfig     `yaml:"ipfs"`
	Image    ImageConfig    `yaml:"image"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Storage  StorageConfig  `yaml:"storage"`
}

type ChainConfig struct {
	TargetChainID  uint64            `yaml:"targetChainId"`
	Endpoints      map[uint64]string `yaml:"endpoints"`
	SPGNFTContract string            `yaml:"spgNftContract"`
	Recipient      string            `yaml:"recipient"`
	GasLimit       uint64            `yaml:"gasLimit"`
	MintTimeout    time.Duration     `yaml:"mintTimeout"`
}

type IPFSConfig struct {
	APIAddr     string `yaml:"apiAddr"`
	GatewayHost string `yaml:"gatewayHost"`
}

type ImageConfig struct {
	MaxDimension int `yaml:"maxDimension"`
	JPEGQuality  int `yaml:"jpegQuality"`
}

type WorkflowConfig struct {
	StageTimeout    time.Duration `yaml:"stageTimeout"`
	AllowDuplicates *bool         `yaml:"allowDuplicates"`
}

type StorageConfig struct {
	DataDir        string `yaml:"dataDir"`
	EncryptHistory *bool  `yaml:"encryptHistory"`
}

func Default() Config {
	allowDup := true
	encrypt := false
	return Config{
		Chain: ChainConfig{
			TargetChainID: DefaultChainID,
			Endpoints: map[uint64]string{
				DefaultChainID: "https://aeneid.storyrpc.io",
			},
			GasLimit:    600_000,
			MintTimeout: 3 * time.Minute,
		},
		IPFS: IPFSConfig{
			APIAddr:     "/ip4/127.0.0.1/tcp/5001",
			GatewayHost: "ipfs.io",
		},
		Image: ImageConfig{
			MaxDimension: 2048,
			JPEGQuality:  82,
		},
		Workflow: WorkflowConfig{
			StageTimeout:    60 * time.Second,
			AllowDuplicates: &allowDup,
		},
		Storage: StorageConfig{
			DataDir:        defaultDataDir(),
			EncryptHistory: &encrypt,
		},
	}
}

// LoadFromPath reads the first readable candidate file; absent or broken
// files fall back to defaults. Env overrides always apply last.
func LoadFromPath(configPath string) Config {
	cfg := Default()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates,
			"configs/registrard.yaml",
			"registrard.yaml",
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var parsed Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}
		merged := cfg
		Merge(&merged, parsed)
		ApplyEnvOverrides(&merged)
		return merged
	}

	ApplyEnvOverrides(&cfg)
	return cfg
}

func Merge(dst *Config, src Config) {
	if src.Chain.TargetChainID != 0 {
		dst.Chain.TargetChainID = src.Chain.TargetChainID
	}
	if len(src.Chain.Endpoints) != 0 {
		if dst.Chain.Endpoints == nil {
			dst.Chain.Endpoints = make(map[uint64]string, len(src.Chain.Endpoints))
		}
		for id, endpoint := range src.Chain.Endpoints {
			dst.Chain.Endpoints[id] = endpoint
		}
	}
	if src.Chain.SPGNFTContract != "" {
		dst.Chain.SPGNFTContract = src.Chain.SPGNFTContract
	}
	if src.Chain.Recipient != "" {
		dst.Chain.Recipient = src.Chain.Recipient
	}
	if src.Chain.GasLimit != 0 {
		dst.Chain.GasLimit = src.Chain.GasLimit
	}
	if src.Chain.MintTimeout != 0 {
		dst.Chain.MintTimeout = src.Chain.MintTimeout
	}
	if src.IPFS.APIAddr != "" {
		dst.IPFS.APIAddr = src.IPFS.APIAddr
	}
	if src.IPFS.GatewayHost != "" {
		dst.IPFS.GatewayHost = src.IPFS.GatewayHost
	}
	if src.Image.MaxDimension != 0 {
		dst.Image.MaxDimension = src.Image.MaxDimension
	}
	if src.Image.JPEGQuality != 0 {
		dst.Image.JPEGQuality = src.Image.JPEGQuality
	}
	if src.Workflow.StageTimeout != 0 {
		dst.Workflow.StageTimeout = src.Workflow.StageTimeout
	}
	if src.Workflow.AllowDuplicates != nil {
		dst.Workflow.AllowDuplicates = src.Workflow.AllowDuplicates
	}
	if src.Storage.DataDir != "" {
		dst.Storage.DataDir = src.Storage.DataDir
	}
	if src.Storage.EncryptHistory != nil {
		dst.Storage.EncryptHistory = src.Storage.EncryptHistory
	}
}

func ApplyEnvOverrides(cfg *Config) {
	if raw := strings.TrimSpace(os.Getenv("IPMINT_CHAIN_ID")); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 64); err == nil && v != 0 {
			cfg.Chain.TargetChainID = v
		}
	}
	if raw := strings.TrimSpace(os.Getenv("IPMINT_CHAIN_ENDPOINT")); raw != "" {
		if cfg.Chain.Endpoints == nil {
			cfg.Chain.Endpoints = make(map[uint64]string, 1)
		}
		cfg.Chain.Endpoints[cfg.Chain.TargetChainID] = raw
	}
	if raw := strings.TrimSpace(os.Getenv("IPMINT_SPG_NFT_CONTRACT")); raw != "" {
		cfg.Chain.SPGNFTContract = raw
	}
	if raw := strings.TrimSpace(os.Getenv("IPMINT_RECIPIENT")); raw != "" {
		cfg.Chain.Recipient = raw
	}
	if raw := strings.TrimSpace(os.Getenv("IPMINT_IPFS_API")); raw != "" {
		cfg.IPFS.APIAddr = raw
	}
	if raw := strings.TrimSpace(os.Getenv("IPMINT_IPFS_GATEWAY")); raw != "" {
		cfg.IPFS.GatewayHost = raw
	}
	if raw := strings.TrimSpace(os.Getenv("IPMINT_DATA_DIR")); raw != "" {
		cfg.Storage.DataDir = raw
	}
}

// Validate reports the first configuration problem that would prevent the
// daemon from registering anything.
func Validate(cfg Config) error {
	if cfg.Chain.TargetChainID == 0 {
		return errors.New("config: target chain id is required")
	}
	if strings.TrimSpace(cfg.Chain.Endpoints[cfg.Chain.TargetChainID]) == "" {
		return fmt.Errorf("config: no RPC endpoint for chain %d", cfg.Chain.TargetChainID)
	}
	if cfg.Chain.SPGNFTContract != "" && !common.IsHexAddress(cfg.Chain.SPGNFTContract) {
		return fmt.Errorf("config: spgNftContract %q is not a hex address", cfg.Chain.SPGNFTContract)
	}
	if cfg.Chain.Recipient != "" && !common.IsHexAddress(cfg.Chain.Recipient) {
		return fmt.Errorf("config: recipient %q is not a hex address", cfg.Chain.Recipient)
	}
	if _, err := ma.NewMultiaddr(strings.TrimSpace(cfg.IPFS.APIAddr)); err != nil {
		return fmt.Errorf("config: ipfs apiAddr: %w", err)
	}
	if cfg.Image.JPEGQuality < 1 || cfg.Image.JPEGQuality > 100 {
		return fmt.Errorf("config: jpegQuality must be in [1..100], got %d", cfg.Image.JPEGQuality)
	}
	if cfg.Image.MaxDimension < 16 {
		return fmt.Errorf("config: maxDimension too small: %d", cfg.Image.MaxDimension)
	}
	return nil
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home + "/.ipmint"
	}
	return ".ipmint"
}
