package storage

import (
	"context"
	"time"

	"zoiner/internal/domain"
)

// Launch is one recorded launch attempt.
type Launch struct {
	CastHash        string    `json:"cast_hash"`
	AuthorFID       int64     `json:"author_fid"`
	Username        string    `json:"username"`
	Outcome         string    `json:"outcome"`
	Name            string    `json:"name"`
	Symbol          string    `json:"symbol"`
	ImageURL        string    `json:"image_url"`
	MetadataURI     string    `json:"metadata_uri"`
	MetadataOrigin  string    `json:"metadata_origin"`
	TxHash          string    `json:"tx_hash"`
	ContractAddress string    `json:"contract_address"`
	Reason          string    `json:"reason"`
	CreatedAt       time.Time `json:"created_at"`
}

func LaunchFromOutcome(o domain.Outcome, at time.Time) Launch {
	l := Launch{
		CastHash:       o.Hash,
		AuthorFID:      o.Author.FID,
		Username:       o.Author.Username,
		Outcome:        string(o.Kind),
		Name:           o.Command.Name,
		Symbol:         o.Command.Symbol,
		ImageURL:       o.Image.URL,
		MetadataURI:    o.Meta.URI,
		MetadataOrigin: string(o.Meta.Origin),
		Reason:         o.Reason,
		CreatedAt:      at,
	}
	if o.Result != nil {
		l.TxHash = o.Result.TransactionHash
		l.ContractAddress = o.Result.ContractAddress
	}
	return l
}

type LaunchRepository interface {
	Save(ctx context.Context, o domain.Outcome) error
	FindByCast(ctx context.Context, hash string) (*Launch, error)
	FindAll(ctx context.Context, limit, offset int) ([]Launch, error)
	GetStats(ctx context.Context) (total, deployed, failed int, err error)
}
