package solana

import (
	"context"
	"errors"
)

// ErrRateLimited signals an upstream throughput rejection (HTTP 429). It is
// the only transport error the fetch layer treats as retryable.
var ErrRateLimited = errors.New("rate limited")

// IsRateLimited reports whether err carries a rate-limit signal.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// RecordSource defines the chain record interface consumed by ingestion.
type RecordSource interface {
	// GetSignaturesForAddress retrieves signatures for an address with pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetTransaction retrieves a transaction by signature. Returns nil when
	// the node does not know the signature.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetAccountInfo retrieves raw account state. Returns nil when the
	// account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)
}
