package chain

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindMetadataFetch means the metadata URI could not be read before the
	// transaction was built. Nothing was sent, so the call is safe to repeat.
	KindMetadataFetch
	KindReverted
	KindSubmit
	KindReceipt
)

func (k Kind) String() string {
	switch k {
	case KindMetadataFetch:
		return "metadata_fetch"
	case KindReverted:
		return "reverted"
	case KindSubmit:
		return "submit"
	case KindReceipt:
		return "receipt"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindMetadataFetch:
		return fmt.Sprintf("Metadata fetch failed: %v", e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf reports the kind attached to err, or KindUnknown.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

func IsRetryable(err error) bool {
	return KindOf(err) == KindMetadataFetch
}
