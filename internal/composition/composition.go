// Package composition wires the daemon together: config, wallet, pinning
// client, image pipeline, contract client, workflow runner, service and
// transport.
package composition

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ipmint/go-registrar/internal/adapters/rpc"
	"ipmint/go-registrar/internal/config"
	"ipmint/go-registrar/internal/doctor"
	"ipmint/go-registrar/internal/hashing"
	"ipmint/go-registrar/internal/imaging"
	"ipmint/go-registrar/internal/ipfs"
	"ipmint/go-registrar/internal/platform/metrics"
	"ipmint/go-registrar/internal/registrar"
	"ipmint/go-registrar/internal/service"
	"ipmint/go-registrar/internal/storage"
	"ipmint/go-registrar/internal/wallet"
	"ipmint/go-registrar/internal/workflow"
	"ipmint/go-registrar/pkg/models"

	"github.com/ethereum/go-ethereum/ethclient"
)

// ipfsUploader narrows the pinning client to what the workflow consumes.
type ipfsUploader struct {
	client *ipfs.Client
}

func (u ipfsUploader) UploadFile(ctx context.Context, name string, data []byte) (string, error) {
	res, err := u.client.UploadFile(ctx, name, data)
	if err != nil {
		return "", err
	}
	return res.CID, nil
}

func (u ipfsUploader) UploadJSON(ctx context.Context, v any) (string, error) {
	res, err := u.client.UploadJSON(ctx, v)
	if err != nil {
		return "", err
	}
	return res.CID, nil
}

type canonicalHasher struct{}

func (canonicalHasher) SHA256Hex(data []byte) string { return hashing.SHA256Hex(data) }

func (canonicalHasher) KeccakOfJSON(v any) (string, error) { return hashing.KeccakOfJSON(v) }

// BuildService assembles the full application from configuration. The
// wallet is created on first run; its passphrase comes from
// IPMINT_WALLET_PASSPHRASE.
func BuildService(configPath, dataDir string, log *slog.Logger) (*service.Service, *metrics.Set, error) {
	if log == nil {
		log = slog.Default()
	}
	cfg := config.LoadFromPath(configPath)
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, err
	}

	passphrase := strings.TrimSpace(os.Getenv("IPMINT_WALLET_PASSPHRASE"))
	keystore := wallet.NewKeystore(filepath.Join(cfg.Storage.DataDir, "wallet.seal"), passphrase)
	account, created, err := keystore.LoadOrCreate()
	if err != nil {
		return nil, nil, fmt.Errorf("wallet: %w", err)
	}
	if created {
		log.Info("wallet created", "address", account.Address.Hex())
	}

	chain := wallet.NewChainProvider(cfg.Chain.Endpoints, cfg.Chain.TargetChainID)
	pinner, err := ipfs.NewClient(cfg.IPFS.APIAddr, log)
	if err != nil {
		return nil, nil, err
	}
	compressor := imaging.NewCompressor(cfg.Image.MaxDimension, cfg.Image.JPEGQuality)

	endpoint := cfg.Chain.Endpoints[cfg.Chain.TargetChainID]
	minter, err := registrar.NewClient(registrar.Config{
		RPCURL:      endpoint,
		Contract:    cfg.Chain.SPGNFTContract,
		ChainID:     cfg.Chain.TargetChainID,
		GasLimit:    cfg.Chain.GasLimit,
		WaitTimeout: cfg.Chain.MintTimeout,
	}, account.PrivateKey, log)
	if err != nil {
		return nil, nil, err
	}

	recipient := cfg.Chain.Recipient
	if recipient == "" {
		recipient = account.Address.Hex()
	}
	allowDup := true
	if cfg.Workflow.AllowDuplicates != nil {
		allowDup = *cfg.Workflow.AllowDuplicates
	}

	// The observer closes over the service built below; the runner cannot
	// fire before Execute, which only the service can reach.
	var svc *service.Service
	observer := func(state models.WorkflowState) {
		if svc != nil {
			svc.ObserveState(state)
		}
	}
	runner, err := workflow.NewRunner(
		workflow.Config{
			TargetChainID:   cfg.Chain.TargetChainID,
			SPGNFTContract:  cfg.Chain.SPGNFTContract,
			Recipient:       recipient,
			GatewayHost:     cfg.IPFS.GatewayHost,
			AllowDuplicates: allowDup,
			StageTimeout:    cfg.Workflow.StageTimeout,
			MintTimeout:     cfg.Chain.MintTimeout,
		},
		workflow.Deps{
			Chain:      chain,
			Compressor: compressor,
			Uploader:   ipfsUploader{client: pinner},
			Hasher:     canonicalHasher{},
			Minter:     minter,
		},
		log,
		observer,
	)
	if err != nil {
		return nil, nil, err
	}

	store, err := buildHistoryStore(cfg, passphrase)
	if err != nil {
		return nil, nil, err
	}

	set := metrics.NewSet()
	svc, err = service.New(service.Options{
		Runner:  runner,
		Store:   store,
		Metrics: set,
		Hub:     service.NewHub(256),
		Log:     log,
		DoctorInput: doctor.Input{
			TargetChainID:  cfg.Chain.TargetChainID,
			ChainEndpoint:  endpoint,
			IPFSAPIAddr:    cfg.IPFS.APIAddr,
			SPGNFTContract: cfg.Chain.SPGNFTContract,
		},
		DoctorProbes: doctor.Probes{
			ChainID: func(ctx context.Context, endpoint string) (uint64, error) {
				client, err := ethclient.DialContext(ctx, endpoint)
				if err != nil {
					return 0, err
				}
				defer client.Close()
				id, err := client.ChainID(ctx)
				if err != nil {
					return 0, err
				}
				return id.Uint64(), nil
			},
			PingIPFS:     pinner.Ping,
			WalletLoaded: func() (bool, error) { return true, nil },
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return svc, set, nil
}

func buildHistoryStore(cfg config.Config, passphrase string) (*storage.RegistrationStore, error) {
	path := filepath.Join(cfg.Storage.DataDir, "registrations.json")
	if cfg.Storage.EncryptHistory != nil && *cfg.Storage.EncryptHistory && passphrase != "" {
		return storage.NewEncryptedRegistrationStore(path, passphrase)
	}
	return storage.NewPersistentRegistrationStore(path)
}

// BuildRPCServer composes the daemon service and its JSON-RPC transport.
func BuildRPCServer(rpcAddr, configPath, dataDir string, log *slog.Logger) (*rpc.Server, error) {
	svc, set, err := BuildService(configPath, dataDir, log)
	if err != nil {
		return nil, err
	}
	return rpc.NewServer(rpcAddr, svc, set.Handler(), set.ObserveRPC, log), nil
}
