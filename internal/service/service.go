// Package service is the daemon's application layer: it owns the workflow
// runner, serializes registration runs, records history, and feeds the
// notification stream and metrics.
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ipmint/go-registrar/internal/doctor"
	"ipmint/go-registrar/internal/platform/metrics"
	"ipmint/go-registrar/internal/storage"
	"ipmint/go-registrar/pkg/models"
)

// MaxUploadBytes bounds the decoded media payload accepted over RPC.
const MaxUploadBytes = 32 << 20

var (
	ErrBusy         = errors.New("a registration is already in progress")
	ErrMissingMedia = errors.New("media name and data are required")
	ErrMediaTooBig  = errors.New("media exceeds maximum size")
	ErrBadEncoding  = errors.New("invalid media encoding")
)

type workflowRunner interface {
	Execute(ctx context.Context, intent models.RegistrationIntent, file models.MediaFile) models.RegistrationResult
	State() models.WorkflowState
	Reset()
}

type Options struct {
	Runner  workflowRunner
	Store   *storage.RegistrationStore
	Metrics *metrics.Set
	Hub     *Hub
	Log     *slog.Logger

	DoctorInput  doctor.Input
	DoctorProbes doctor.Probes
}

type Service struct {
	runner  workflowRunner
	store   *storage.RegistrationStore
	metrics *metrics.Set
	hub     *Hub
	log     *slog.Logger

	doctorInput  doctor.Input
	doctorProbes doctor.Probes

	busy atomic.Bool

	stageMu    sync.Mutex
	stageSince time.Time
	stageName  models.WorkflowStatus
}

func New(opts Options) (*Service, error) {
	if opts.Runner == nil || opts.Store == nil {
		return nil, errors.New("service: runner and store are required")
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewSet()
	}
	if opts.Hub == nil {
		opts.Hub = NewHub(256)
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &Service{
		runner:       opts.Runner,
		store:        opts.Store,
		metrics:      opts.Metrics,
		hub:          opts.Hub,
		log:          opts.Log,
		doctorInput:  opts.DoctorInput,
		doctorProbes: opts.DoctorProbes,
	}, nil
}

// RegisterInput is the wire form of one registration request: media bytes
// arrive base64-encoded alongside the asset's descriptive fields.
type RegisterInput struct {
	Title      string `json:"title"`
	Prompt     string `json:"prompt"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	DataBase64 string `json:"data_base64"`
}

// DecodeMediaInput validates and decodes the uploaded media payload.
func DecodeMediaInput(name, mimeType, dataBase64 string) (models.MediaFile, error) {
	name = strings.TrimSpace(name)
	mimeType = strings.TrimSpace(mimeType)
	dataBase64 = strings.TrimSpace(dataBase64)
	if name == "" || dataBase64 == "" {
		return models.MediaFile{}, ErrMissingMedia
	}
	if base64.StdEncoding.DecodedLen(len(dataBase64)) > MaxUploadBytes {
		return models.MediaFile{}, ErrMediaTooBig
	}
	data, err := base64.StdEncoding.DecodeString(dataBase64)
	if err != nil {
		return models.MediaFile{}, ErrBadEncoding
	}
	if len(data) > MaxUploadBytes {
		return models.MediaFile{}, ErrMediaTooBig
	}
	return models.MediaFile{Name: name, MimeType: mimeType, Data: data}, nil
}

// RegisterAsset runs one registration end to end. Only one run may be in
// flight at a time; a second call while busy fails fast with ErrBusy.
func (s *Service) RegisterAsset(ctx context.Context, input RegisterInput) (models.RegistrationResult, error) {
	file, err := DecodeMediaInput(input.FileName, input.MimeType, input.DataBase64)
	if err != nil {
		return models.RegistrationResult{}, err
	}
	if !s.busy.CompareAndSwap(false, true) {
		return models.RegistrationResult{}, ErrBusy
	}
	defer s.busy.Store(false)

	intent := models.RegistrationIntent{Title: input.Title, Prompt: input.Prompt}
	result := s.runner.Execute(ctx, intent, file)

	s.metrics.ObserveRun(result.Success)
	s.metrics.AddUploadedBytes(len(file.Data))

	record, err := s.store.Append(models.RegistrationRecord{
		Title:          intent.Title,
		Prompt:         intent.Prompt,
		Success:        result.Success,
		Error:          result.Error,
		IPID:           result.IPID,
		TxHash:         result.TxHash,
		ImageURL:       result.ImageURL,
		IPMetadataURL:  result.IPMetadataURL,
		NFTMetadataURL: result.NFTMetadataURL,
	})
	if err != nil {
		// The run itself finished; a history write failure must not turn a
		// successful registration into a reported error.
		s.log.Error("history write failed", "error", err)
	} else {
		s.hub.Publish(MethodRegistrationComplete, record)
	}
	return result, nil
}

func (s *Service) WorkflowState() models.WorkflowState {
	return s.runner.State()
}

// ResetWorkflow returns the workflow to idle. Refused while a run is in
// flight.
func (s *Service) ResetWorkflow() error {
	if s.busy.Load() {
		return ErrBusy
	}
	s.runner.Reset()
	return nil
}

func (s *Service) ListRegistrations(limit, offset int) []models.RegistrationRecord {
	return s.store.List(limit, offset)
}

func (s *Service) Doctor(ctx context.Context) doctor.Report {
	return doctor.Run(ctx, s.doctorInput, s.doctorProbes)
}

func (s *Service) Metrics() models.MetricsSnapshot {
	snap := s.metrics.Snapshot()
	snap.NotificationBacklog = s.hub.BacklogSize()
	return snap
}

// Subscribe exposes the notification stream for the RPC transport.
func (s *Service) Subscribe(fromSeq int64) ([]Event, <-chan Event, func()) {
	return s.hub.Subscribe(fromSeq)
}

// ObserveState is the observer wired into the workflow runner. It pushes
// every transition to subscribers and feeds the per-stage timing metric.
func (s *Service) ObserveState(state models.WorkflowState) {
	s.hub.Publish(MethodWorkflowState, state)

	s.stageMu.Lock()
	now := time.Now()
	if s.stageName != "" && s.stageName != state.Status {
		s.metrics.ObserveStage(s.stageName, now.Sub(s.stageSince))
	}
	switch state.Status {
	case models.StatusIdle, models.StatusSuccess, models.StatusError:
		s.stageName = ""
	default:
		s.stageName = state.Status
		s.stageSince = now
	}
	s.stageMu.Unlock()
}
