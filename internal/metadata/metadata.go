// Package metadata assembles and validates the two metadata documents a
// registration uploads: the IP metadata record describing the asset itself
// and the ERC-721 style NFT metadata record pointing back at it.
package metadata

import (
	"strings"
	"time"
)

const (
	ipfsURIPrefix = "ipfs://"
	hashHexLen    = 66 // 0x + 32 bytes
)

type Creator struct {
	Name                string `json:"name"`
	Address             string `json:"address"`
	ContributionPercent int    `json:"contributionPercent"`
}

// AIProvenance marks an asset as AI-generated and records the prompt that
// produced it.
type AIProvenance struct {
	Generated bool   `json:"generated"`
	Prompt    string `json:"prompt,omitempty"`
	Model     string `json:"model,omitempty"`
}

// IPMetadata is the asset-level record uploaded once per run and referenced
// by its content identifier from the mint call.
type IPMetadata struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Image       string        `json:"image"`
	ImageHash   string        `json:"imageHash"`
	MediaURL    string        `json:"mediaUrl"`
	MediaHash   string        `json:"mediaHash"`
	MediaType   string        `json:"mediaType"`
	CreatedAt   string        `json:"createdAt"`
	Creators    []Creator     `json:"creators"`
	AI          *AIProvenance `json:"aiMetadata,omitempty"`
}

type NFTAttribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// NFTMetadata is the token-level display record. IPMetadataURI points at the
// uploaded IP metadata document.
type NFTMetadata struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Image         string         `json:"image"`
	IPMetadataURI string         `json:"ipMetadataURI"`
	Attributes    []NFTAttribute `json:"attributes"`
}

type BuildInput struct {
	Title       string
	Prompt      string
	ImageURL    string
	ImageHash   string
	MimeType    string
	CreatorName string
	CreatorAddr string
	Now         time.Time
}

func BuildIPMetadata(in BuildInput) IPMetadata {
	description := strings.TrimSpace(in.Prompt)
	if description == "" {
		description = "Registered via ipmint"
	}
	meta := IPMetadata{
		Title:       in.Title,
		Description: description,
		Image:       in.ImageURL,
		ImageHash:   in.ImageHash,
		MediaURL:    in.ImageURL,
		MediaHash:   in.ImageHash,
		MediaType:   in.MimeType,
		CreatedAt:   in.Now.UTC().Format(time.RFC3339),
		Creators: []Creator{
			{
				Name:                in.CreatorName,
				Address:             in.CreatorAddr,
				ContributionPercent: 100,
			},
		},
	}
	if prompt := strings.TrimSpace(in.Prompt); prompt != "" {
		meta.AI = &AIProvenance{Generated: true, Prompt: prompt}
	}
	return meta
}

func BuildNFTMetadata(in BuildInput, ipMetadataURI string) NFTMetadata {
	return NFTMetadata{
		Name:        in.Title,
		Description: strings.TrimSpace(in.Prompt),
		Image:       in.ImageURL,

		IPMetadataURI: ipMetadataURI,
		Attributes: []NFTAttribute{
			{TraitType: "Registration", Value: "ipmint"},
			{TraitType: "Media Type", Value: in.MimeType},
		},
	}
}
