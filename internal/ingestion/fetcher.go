// Package ingestion retrieves event-bearing ledger records for a set of
// position identifiers over a chronological window. Fetching is strictly
// sequential: one outstanding request at a time, with fixed delays
// between pages, records and identifiers to respect upstream rate
// limits the caller does not control.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"

	"solana-perp-history/internal/domain"
	"solana-perp-history/internal/solana"
)

const (
	defaultPageSize        = 100
	defaultMaxRecords      = 1000
	defaultPageDelay       = 500 * time.Millisecond
	defaultRecordDelay     = 100 * time.Millisecond
	defaultIdentifierDelay = time.Second
)

// Fetcher pages backward through each identifier's signature history and
// materializes in-window transactions as raw records.
type Fetcher struct {
	source          solana.RecordSource
	logger          zerolog.Logger
	pageSize        int
	maxRecords      int
	pageDelay       time.Duration
	recordDelay     time.Duration
	identifierDelay time.Duration
}

// Options configures a Fetcher. Zero values fall back to defaults; only
// Source is required.
type Options struct {
	Source          solana.RecordSource
	Logger          zerolog.Logger
	PageSize        int
	MaxRecords      int
	PageDelay       time.Duration
	RecordDelay     time.Duration
	IdentifierDelay time.Duration
}

// NewFetcher creates a fetcher over the given record source.
func NewFetcher(opts Options) *Fetcher {
	f := &Fetcher{
		source:          opts.Source,
		logger:          opts.Logger,
		pageSize:        opts.PageSize,
		maxRecords:      opts.MaxRecords,
		pageDelay:       opts.PageDelay,
		recordDelay:     opts.RecordDelay,
		identifierDelay: opts.IdentifierDelay,
	}
	if f.pageSize == 0 {
		f.pageSize = defaultPageSize
	}
	if f.maxRecords == 0 {
		f.maxRecords = defaultMaxRecords
	}
	if f.pageDelay == 0 {
		f.pageDelay = defaultPageDelay
	}
	if f.recordDelay == 0 {
		f.recordDelay = defaultRecordDelay
	}
	if f.identifierDelay == 0 {
		f.identifierDelay = defaultIdentifierDelay
	}
	return f
}

// IdentifierResult is one identifier's fetch outcome. Partial marks a
// fetch where a page or record was abandoned after retry exhaustion; Err
// carries a transport failure that stopped this identifier early. Records
// gathered before the failure are still returned.
type IdentifierResult struct {
	Identifier domain.PositionIdentifier
	Records    []*domain.RawRecord
	Pages      int
	Partial    bool
	Err        error
}

// Result aggregates a fetch across identifiers.
type Result struct {
	PerIdentifier   []IdentifierResult
	PagesFetched    int
	RecordsFetched  int
	PartialFailures int
}

// FetchAll retrieves records for every identifier in order. The window is
// validated up front; an invalid window is the only fatal error. Failures
// on one identifier are recorded in its IdentifierResult and do not stop
// the remaining identifiers.
func (f *Fetcher) FetchAll(ctx context.Context, identifiers []domain.PositionIdentifier, window Window) (*Result, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}

	result := &Result{}
	for i, id := range identifiers {
		if i > 0 {
			if err := wait(ctx, f.identifierDelay); err != nil {
				return result, err
			}
		}

		ir := f.fetchIdentifier(ctx, id, window)
		result.PerIdentifier = append(result.PerIdentifier, ir)
		result.PagesFetched += ir.Pages
		result.RecordsFetched += len(ir.Records)
		if ir.Partial {
			result.PartialFailures++
		}

		f.logger.Info().
			Str("identifier", string(id)).
			Int("records", len(ir.Records)).
			Bool("partial", ir.Partial).
			Msg("identifier fetch complete")
	}
	return result, nil
}

// fetchIdentifier pages backward until the window is exhausted, the
// record cap is hit, or the source runs out of signatures.
func (f *Fetcher) fetchIdentifier(ctx context.Context, id domain.PositionIdentifier, window Window) IdentifierResult {
	res := IdentifierResult{Identifier: id}
	cursor := FetchCursor{Window: window}

	for {
		opts := &solana.SignaturesOpts{Limit: f.pageSize}
		if cursor.BeforeSignature != "" {
			opts.Before = cursor.BeforeSignature
		}

		sigs, err := f.source.GetSignaturesForAddress(ctx, string(id), opts)
		if err != nil {
			if solana.IsRateLimited(err) {
				// Retries are exhausted inside the client; this page is
				// abandoned and the identifier keeps what it has.
				f.logger.Warn().Str("identifier", string(id)).Msg("signature page abandoned after rate-limit retries")
				res.Partial = true
				return res
			}
			res.Err = fmt.Errorf("get signatures for %s: %w", id, err)
			return res
		}
		if len(sigs) == 0 {
			return res
		}
		res.Pages++

		pastEnd, done := f.fetchPage(ctx, sigs, window, &cursor, &res)
		if done || pastEnd {
			return res
		}

		cursor.BeforeSignature = sigs[len(sigs)-1].Signature
		if len(sigs) < f.pageSize {
			return res
		}
		if err := wait(ctx, f.pageDelay); err != nil {
			res.Err = err
			return res
		}
	}
}

// fetchPage walks one signature page newest-first, fetching in-window
// transactions. pastEnd reports that a signature older than the window
// was seen; done reports the cap was reached or the identifier failed.
func (f *Fetcher) fetchPage(ctx context.Context, sigs []solana.SignatureInfo, window Window, cursor *FetchCursor, res *IdentifierResult) (pastEnd, done bool) {
	for _, sig := range sigs {
		if sig.BlockTime != nil && window.PastEnd(*sig.BlockTime) {
			return true, false
		}
		// No block time: window membership is undecidable, so the
		// signature is excluded without stopping pagination.
		if sig.BlockTime == nil {
			continue
		}
		if sig.Err != nil {
			continue
		}
		if !window.Contains(*sig.BlockTime) {
			continue
		}

		tx, err := f.source.GetTransaction(ctx, sig.Signature)
		if err != nil {
			if solana.IsRateLimited(err) {
				f.logger.Warn().Str("signature", sig.Signature).Msg("record abandoned after rate-limit retries")
				res.Partial = true
				continue
			}
			res.Err = fmt.Errorf("get transaction %s: %w", sig.Signature, err)
			return false, true
		}
		if tx == nil {
			continue
		}

		res.Records = append(res.Records, recordFromTransaction(sig, tx))
		cursor.TotalFetched++
		if cursor.TotalFetched >= f.maxRecords {
			f.logger.Warn().
				Str("identifier", string(res.Identifier)).
				Int("cap", f.maxRecords).
				Msg("record cap reached, truncating identifier history")
			return false, true
		}

		if err := wait(ctx, f.recordDelay); err != nil {
			res.Err = err
			return false, true
		}
	}
	return false, false
}

// recordFromTransaction flattens a transaction's primary and inner
// instructions into one ordered payload list.
func recordFromTransaction(sig solana.SignatureInfo, tx *solana.Transaction) *domain.RawRecord {
	rec := &domain.RawRecord{
		Signature: sig.Signature,
		Slot:      tx.Slot,
		BlockTime: sig.BlockTime,
		Failed:    sig.Err != nil,
	}
	if tx.Meta != nil {
		rec.FeeLamports = tx.Meta.Fee
		if tx.Meta.Err != nil {
			rec.Failed = true
		}
	}

	var keys []string
	if tx.Message != nil {
		keys = tx.Message.AccountKeys
	}

	index := 0
	appendInstruction := func(ci solana.CompiledInstruction) {
		data, err := base58.Decode(ci.Data)
		if err != nil {
			return
		}
		var program string
		if ci.ProgramIDIndex >= 0 && ci.ProgramIDIndex < len(keys) {
			program = keys[ci.ProgramIDIndex]
		}
		rec.Instructions = append(rec.Instructions, domain.Instruction{
			ProgramID: program,
			Index:     index,
			Data:      data,
		})
		index++
	}

	if tx.Message != nil {
		for _, ci := range tx.Message.Instructions {
			appendInstruction(ci)
		}
	}
	if tx.Meta != nil {
		for _, group := range tx.Meta.InnerInstructions {
			for _, ci := range group.Instructions {
				appendInstruction(ci)
			}
		}
	}
	return rec
}

// wait sleeps for d or until the context ends.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
