package models

import (
	"strings"
	"time"
)

// WorkflowStatus tags one stage of the registration pipeline.
type WorkflowStatus string

const (
	StatusIdle              WorkflowStatus = "idle"
	StatusCompressing       WorkflowStatus = "compressing"
	StatusUploadingImage    WorkflowStatus = "uploading-image"
	StatusCreatingMetadata  WorkflowStatus = "creating-metadata"
	StatusUploadingMetadata WorkflowStatus = "uploading-metadata"
	StatusMinting           WorkflowStatus = "minting"
	StatusSuccess           WorkflowStatus = "success"
	StatusError             WorkflowStatus = "error"
)

// WorkflowState is the externally observable state of one registration run.
// Progress is monotone while the run advances and resets to 0 on idle.
type WorkflowState struct {
	Status   WorkflowStatus `json:"status"`
	Progress int            `json:"progress"`
	Error    string         `json:"error,omitempty"`
	IPID     string         `json:"ip_id,omitempty"`
	TxHash   string         `json:"tx_hash,omitempty"`
}

// RegistrationIntent carries the user-supplied descriptive fields for the
// asset being registered. Both fields are optional.
type RegistrationIntent struct {
	Title  string `json:"title,omitempty"`
	Prompt string `json:"prompt,omitempty"`
}

// DisplayTitle falls back to a generic name when no title was provided.
func (i RegistrationIntent) DisplayTitle() string {
	if t := strings.TrimSpace(i.Title); t != "" {
		return t
	}
	return "Untitled Asset"
}

// MediaFile is a binary media payload plus the minimum shape the pipeline
// needs to re-encode and upload it.
type MediaFile struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

type RegistrationResult struct {
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
	IPID           string `json:"ip_id,omitempty"`
	TxHash         string `json:"tx_hash,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	IPMetadataURL  string `json:"ip_metadata_url,omitempty"`
	NFTMetadataURL string `json:"nft_metadata_url,omitempty"`
}

// MintRequest is the wire contract of the remote registration call.
type MintRequest struct {
	SPGNFTContract  string `json:"spg_nft_contract"`
	Recipient       string `json:"recipient"`
	IPMetadataURI   string `json:"ip_metadata_uri"`
	IPMetadataHash  string `json:"ip_metadata_hash"`
	NFTMetadataURI  string `json:"nft_metadata_uri"`
	NFTMetadataHash string `json:"nft_metadata_hash"`
	AllowDuplicates bool   `json:"allow_duplicates"`
}

type MintReceipt struct {
	IPID   string `json:"ip_id"`
	TxHash string `json:"tx_hash"`
}

// RegistrationRecord is one completed run as kept by the history store.
type RegistrationRecord struct {
	ID             string    `json:"id"`
	Title          string    `json:"title,omitempty"`
	Prompt         string    `json:"prompt,omitempty"`
	Success        bool      `json:"success"`
	Error          string    `json:"error,omitempty"`
	IPID           string    `json:"ip_id,omitempty"`
	TxHash         string    `json:"tx_hash,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`
	IPMetadataURL  string    `json:"ip_metadata_url,omitempty"`
	NFTMetadataURL string    `json:"nft_metadata_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type MetricsSnapshot struct {
	RunsTotal           int       `json:"runs_total"`
	RunsSucceeded       int       `json:"runs_succeeded"`
	RunsFailed          int       `json:"runs_failed"`
	UploadedBytes       int64     `json:"uploaded_bytes"`
	LastRunAt           time.Time `json:"last_run_at"`
	NotificationBacklog int       `json:"notification_backlog"`
}
