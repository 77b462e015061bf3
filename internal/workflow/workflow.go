// Package workflow drives one end-to-end asset registration: a fixed linear
// pipeline over injected collaborators, with an externally observable state
// object advancing through the stage sequence
// idle → compressing → uploading-image → creating-metadata →
// uploading-metadata → minting → success, or to error from any stage.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ipmint/go-registrar/internal/ipfs"
	"ipmint/go-registrar/internal/metadata"
	"ipmint/go-registrar/pkg/models"
)

// ChainSwitcher is the explicit stand-in for the ambient wallet network
// context: read the active chain, request a switch.
type ChainSwitcher interface {
	ChainID(ctx context.Context) (uint64, error)
	SwitchChain(ctx context.Context, chainID uint64) error
}

type Compressor interface {
	Compress(ctx context.Context, file models.MediaFile) (models.MediaFile, error)
}

type Uploader interface {
	UploadFile(ctx context.Context, name string, data []byte) (cid string, err error)
	UploadJSON(ctx context.Context, v any) (cid string, err error)
}

type Hasher interface {
	SHA256Hex(data []byte) string
	KeccakOfJSON(v any) (string, error)
}

type Minter interface {
	MintAndRegisterIP(ctx context.Context, req models.MintRequest) (models.MintReceipt, error)
}

type Config struct {
	TargetChainID   uint64
	SPGNFTContract  string
	Recipient       string
	GatewayHost     string
	AllowDuplicates bool
	StageTimeout    time.Duration
	MintTimeout     time.Duration
}

type Deps struct {
	Chain      ChainSwitcher
	Compressor Compressor
	Uploader   Uploader
	Hasher     Hasher
	Minter     Minter
}

// Runner owns the state of one registration at a time. It does not guard
// against concurrent Execute calls; serializing runs is the caller's job.
type Runner struct {
	cfg      Config
	deps     Deps
	log      *slog.Logger
	observer func(models.WorkflowState)

	mu    sync.RWMutex
	state models.WorkflowState
}

var progressByStage = map[models.WorkflowStatus]int{
	models.StatusCompressing:       10,
	models.StatusUploadingImage:    25,
	models.StatusCreatingMetadata:  50,
	models.StatusUploadingMetadata: 60,
	models.StatusMinting:           75,
	models.StatusSuccess:           100,
}

var errIncompleteDeps = errors.New("workflow: all collaborators must be provided")

func NewRunner(cfg Config, deps Deps, log *slog.Logger, observer func(models.WorkflowState)) (*Runner, error) {
	if deps.Chain == nil || deps.Compressor == nil || deps.Uploader == nil || deps.Hasher == nil || deps.Minter == nil {
		return nil, errIncompleteDeps
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = 60 * time.Second
	}
	if cfg.MintTimeout <= 0 {
		cfg.MintTimeout = 3 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		cfg:      cfg,
		deps:     deps,
		log:      log,
		observer: observer,
		state:    models.WorkflowState{Status: models.StatusIdle},
	}, nil
}

// State returns a copy of the current workflow state.
func (r *Runner) State() models.WorkflowState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Reset returns the state to idle from any prior state. Idempotent, no other
// side effects.
func (r *Runner) Reset() {
	r.setState(models.WorkflowState{Status: models.StatusIdle, Progress: 0})
}

// Execute runs one registration attempt. Failures never propagate as panics
// or returned errors: the terminal state carries the error and the result
// reports Success=false.
func (r *Runner) Execute(ctx context.Context, intent models.RegistrationIntent, file models.MediaFile) models.RegistrationResult {
	result, err := r.run(ctx, intent, file)
	if err != nil {
		r.log.Error("registration failed", "error", err)
		r.mu.Lock()
		r.state.Status = models.StatusError
		r.state.Error = err.Error()
		r.mu.Unlock()
		r.notify()
		return models.RegistrationResult{Success: false, Error: err.Error()}
	}
	return result
}

func (r *Runner) run(ctx context.Context, intent models.RegistrationIntent, file models.MediaFile) (models.RegistrationResult, error) {
	// Identifiers and progress belong to a single attempt; a reused runner
	// starts clean.
	r.mu.Lock()
	r.state = models.WorkflowState{Status: models.StatusIdle}
	r.mu.Unlock()

	// Stage 1: the network gate. Nothing else may run on the wrong chain.
	if err := r.ensureTargetNetwork(ctx); err != nil {
		return models.RegistrationResult{}, err
	}

	// Stage 2: compression.
	r.advance(models.StatusCompressing)
	compressed, err := inStageTimeout(r, ctx, func(ctx context.Context) (models.MediaFile, error) {
		return r.deps.Compressor.Compress(ctx, file)
	})
	if err != nil {
		return models.RegistrationResult{}, err
	}

	// Stage 3: image upload and raw content hash.
	r.advance(models.StatusUploadingImage)
	imageCID, err := r.uploadFile(ctx, compressed)
	if err != nil {
		return models.RegistrationResult{}, err
	}
	imageHash := r.deps.Hasher.SHA256Hex(compressed.Data)
	imageURL := ipfs.ToHTTPS(imageCID, r.cfg.GatewayHost)

	// Stage 4: assemble the IP metadata record.
	r.advance(models.StatusCreatingMetadata)
	buildInput := metadata.BuildInput{
		Title:       intent.DisplayTitle(),
		Prompt:      intent.Prompt,
		ImageURL:    imageURL,
		ImageHash:   imageHash,
		MimeType:    compressed.MimeType,
		CreatorName: r.cfg.Recipient,
		CreatorAddr: r.cfg.Recipient,
		Now:         time.Now(),
	}
	ipMeta := metadata.BuildIPMetadata(buildInput)

	// Stage 5: upload IP metadata, canonical hash of its structured form.
	r.advance(models.StatusUploadingMetadata)
	ipMetaCID, err := r.uploadJSON(ctx, ipMeta)
	if err != nil {
		return models.RegistrationResult{}, err
	}
	ipMetaHash, err := r.deps.Hasher.KeccakOfJSON(ipMeta)
	if err != nil {
		return models.RegistrationResult{}, err
	}
	ipMetaURI := ipfs.ToIPFSURI(ipMetaCID)

	// Stages 6-7: NFT metadata referencing the IP record, then its upload.
	nftMeta := metadata.BuildNFTMetadata(buildInput, ipMetaURI)
	nftMetaCID, err := r.uploadJSON(ctx, nftMeta)
	if err != nil {
		return models.RegistrationResult{}, err
	}
	nftMetaHash, err := r.deps.Hasher.KeccakOfJSON(nftMeta)
	if err != nil {
		return models.RegistrationResult{}, err
	}
	nftMetaURI := ipfs.ToIPFSURI(nftMetaCID)

	// Stage 8: the pre-mint gate. A malformed reference must never reach the
	// remote registration service.
	if err := metadata.ValidateReferences(ipMetaURI, ipMetaHash, nftMetaURI, nftMetaHash); err != nil {
		return models.RegistrationResult{}, err
	}

	// Stage 9: the remote registration call.
	r.advance(models.StatusMinting)
	mintCtx, cancel := context.WithTimeout(ctx, r.cfg.MintTimeout)
	receipt, err := r.deps.Minter.MintAndRegisterIP(mintCtx, models.MintRequest{
		SPGNFTContract:  r.cfg.SPGNFTContract,
		Recipient:       r.cfg.Recipient,
		IPMetadataURI:   ipMetaURI,
		IPMetadataHash:  ipMetaHash,
		NFTMetadataURI:  nftMetaURI,
		NFTMetadataHash: nftMetaHash,
		AllowDuplicates: r.cfg.AllowDuplicates,
	})
	cancel()
	if err != nil {
		return models.RegistrationResult{}, enrichMintError(r.cfg.SPGNFTContract, err)
	}

	r.mu.Lock()
	r.state.Status = models.StatusSuccess
	r.state.Progress = progressByStage[models.StatusSuccess]
	r.state.IPID = receipt.IPID
	r.state.TxHash = receipt.TxHash
	r.state.Error = ""
	r.mu.Unlock()
	r.notify()

	r.log.Info("registration complete", "ip_id", receipt.IPID, "tx", receipt.TxHash)
	return models.RegistrationResult{
		Success:        true,
		IPID:           receipt.IPID,
		TxHash:         receipt.TxHash,
		ImageURL:       imageURL,
		IPMetadataURL:  ipfs.ToHTTPS(ipMetaCID, r.cfg.GatewayHost),
		NFTMetadataURL: ipfs.ToHTTPS(nftMetaCID, r.cfg.GatewayHost),
	}, nil
}

func (r *Runner) ensureTargetNetwork(ctx context.Context) error {
	current, err := r.deps.Chain.ChainID(ctx)
	if err != nil {
		return &NetworkSwitchError{ChainID: r.cfg.TargetChainID, Err: err}
	}
	if current == r.cfg.TargetChainID {
		return nil
	}
	if err := r.deps.Chain.SwitchChain(ctx, r.cfg.TargetChainID); err != nil {
		return &NetworkSwitchError{ChainID: r.cfg.TargetChainID, Err: err}
	}
	return nil
}

func (r *Runner) uploadFile(ctx context.Context, file models.MediaFile) (string, error) {
	return inStageTimeout(r, ctx, func(ctx context.Context) (string, error) {
		return r.deps.Uploader.UploadFile(ctx, file.Name, file.Data)
	})
}

func (r *Runner) uploadJSON(ctx context.Context, v any) (string, error) {
	return inStageTimeout(r, ctx, func(ctx context.Context) (string, error) {
		return r.deps.Uploader.UploadJSON(ctx, v)
	})
}

func inStageTimeout[T any](r *Runner, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	stageCtx, cancel := context.WithTimeout(ctx, r.cfg.StageTimeout)
	defer cancel()
	return fn(stageCtx)
}

// advance moves status forward and publishes the new state before the
// stage's work begins.
func (r *Runner) advance(status models.WorkflowStatus) {
	r.mu.Lock()
	r.state.Status = status
	if p, ok := progressByStage[status]; ok && p > r.state.Progress {
		r.state.Progress = p
	}
	r.state.Error = ""
	r.mu.Unlock()
	r.notify()
}

func (r *Runner) setState(state models.WorkflowState) {
	r.mu.Lock()
	r.state = state
	r.mu.Unlock()
	r.notify()
}

func (r *Runner) notify() {
	if r.observer == nil {
		return
	}
	r.observer(r.State())
}
