package domain

import "fmt"

type ParsedCommand struct {
	Valid  bool
	Name   string
	Symbol string
}

type ImageSource string

const (
	SourceImageURL      ImageSource = "image_urls"
	SourceEmbeddedMedia ImageSource = "embedded_media"
	SourceEmbedImage    ImageSource = "embed_image"
	SourceEmbedURL      ImageSource = "embed_url"
	SourceAttachment    ImageSource = "attachment"
	SourceDefault       ImageSource = "default"
)

type ResolvedImage struct {
	URL         string
	ContentType string
	Source      ImageSource
}

func (r ResolvedImage) IsDefault() bool {
	return r.Source == SourceDefault
}

const MetadataCategory = "social"

type MetadataProperties struct {
	Category string `json:"category"`
}

// MetadataDocument follows the EIP-7572 coin metadata convention.
type MetadataDocument struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Symbol      string             `json:"symbol,omitempty"`
	Image       string             `json:"image"`
	Properties  MetadataProperties `json:"properties"`
}

func NewMetadataDocument(name, symbol, image string) MetadataDocument {
	return MetadataDocument{
		Name:        name,
		Description: name + " - Created via social bot",
		Symbol:      symbol,
		Image:       image,
		Properties:  MetadataProperties{Category: MetadataCategory},
	}
}

func (d MetadataDocument) Validate() error {
	switch {
	case d.Name == "":
		return fmt.Errorf("%w: metadata name is missing", ErrValidation)
	case d.Description == "":
		return fmt.Errorf("%w: metadata description is missing", ErrValidation)
	case d.Image == "":
		return fmt.Errorf("%w: metadata image is missing", ErrValidation)
	}
	return nil
}

type MetadataOrigin string

const (
	OriginPrimary  MetadataOrigin = "primary"
	OriginFallback MetadataOrigin = "fallback"
)

type PublishedMetadata struct {
	URI    string
	Origin MetadataOrigin
}

type DeploymentInfo struct {
	BlockNumber uint64 `json:"block_number"`
	GasUsed     uint64 `json:"gas_used"`
	Pool        string `json:"pool,omitempty"`
	Version     string `json:"version,omitempty"`
	Simulated   bool   `json:"simulated,omitempty"`
}

type DeploymentResult struct {
	TransactionHash string
	ContractAddress string
	Info            DeploymentInfo
}
