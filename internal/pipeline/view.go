package pipeline

import "zoiner/internal/domain"

// EventView is the outcome summary streamed to dashboard clients.
type EventView struct {
	Hash    string `json:"hash"`
	Outcome string `json:"outcome"`
	Author  string `json:"author,omitempty"`
	Name    string `json:"name,omitempty"`
	Symbol  string `json:"symbol,omitempty"`
	Image   string `json:"image,omitempty"`
	// DefaultImage is set when no image in the cast could be verified.
	DefaultImage bool   `json:"default_image,omitempty"`
	URI          string `json:"uri,omitempty"`
	Contract     string `json:"contract,omitempty"`
	TxHash       string `json:"tx_hash,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

func newEventView(o domain.Outcome) EventView {
	v := EventView{
		Hash:         o.Hash,
		Outcome:      string(o.Kind),
		Author:       o.Author.Username,
		Name:         o.Command.Name,
		Symbol:       o.Command.Symbol,
		Image:        o.Image.URL,
		DefaultImage: o.Image.IsDefault(),
		URI:          o.Meta.URI,
		Reason:       o.Reason,
	}
	if o.Result != nil {
		v.Contract = o.Result.ContractAddress
		v.TxHash = o.Result.TransactionHash
	}
	return v
}
