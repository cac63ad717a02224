// Package reconstruct runs the full pipeline: fetch ledger records for a
// set of position identifiers, decode their event payloads, group events
// into trade lifecycles and persist the result.
package reconstruct

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"solana-perp-history/internal/decode"
	"solana-perp-history/internal/domain"
	"solana-perp-history/internal/ingestion"
	"solana-perp-history/internal/lifecycle"
	"solana-perp-history/internal/observability"
	"solana-perp-history/internal/reporting"
	"solana-perp-history/internal/solana"
	"solana-perp-history/internal/storage"
)

// Options configures a Service. Source and ProgramID are required;
// Trades, Archive and Metrics are optional and skipped when nil.
type Options struct {
	Source    solana.RecordSource
	Trades    storage.TradeStore
	Archive   storage.RecordArchive
	Logger    zerolog.Logger
	Metrics   *observability.Metrics
	ProgramID string
	Enums     *decode.EnumTable

	// Fetch tuning, passed through to the fetcher. Zero values use the
	// fetcher defaults.
	PageSize        int
	MaxRecords      int
	PageDelay       time.Duration
	RecordDelay     time.Duration
	IdentifierDelay time.Duration
}

// Service reconstructs trade histories from on-chain records.
type Service struct {
	fetcher *ingestion.Fetcher
	decoder *decode.Decoder
	grouper *lifecycle.Grouper
	trades  storage.TradeStore
	archive storage.RecordArchive
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewService wires the pipeline stages together.
func NewService(opts Options) (*Service, error) {
	if opts.Source == nil {
		return nil, errors.New("reconstruct: source is required")
	}
	if opts.ProgramID == "" {
		return nil, errors.New("reconstruct: program id is required")
	}

	fetcher := ingestion.NewFetcher(ingestion.Options{
		Source:          opts.Source,
		Logger:          opts.Logger,
		PageSize:        opts.PageSize,
		MaxRecords:      opts.MaxRecords,
		PageDelay:       opts.PageDelay,
		RecordDelay:     opts.RecordDelay,
		IdentifierDelay: opts.IdentifierDelay,
	})

	return &Service{
		fetcher: fetcher,
		decoder: decode.NewDecoder(opts.ProgramID, opts.Enums),
		grouper: lifecycle.NewGrouper(opts.Logger),
		trades:  opts.Trades,
		archive: opts.Archive,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}, nil
}

// Request describes one reconstruction run. From is the older bound of
// the window and To the newer bound, both inclusive.
type Request struct {
	Owner       string
	Identifiers []domain.PositionIdentifier
	From        time.Time
	To          time.Time
}

// Result is the outcome of one run. Trades are already sorted by the
// grouper; fetch and decode counters cover the whole run.
type Result struct {
	RunID string

	Active    []*domain.Trade
	Completed []*domain.Trade
	Errors    []lifecycle.DataError

	PagesFetched    int
	RecordsFetched  int
	PartialFailures int
	EventsDecoded   int
	PayloadsDropped int
	UnknownEnums    int

	Duration time.Duration
}

// Reconstruct runs the pipeline for one request. Partial fetch failures
// and persistence collisions are logged and reflected in the result but
// do not fail the run; only an invalid window or a context cancellation
// does.
func (s *Service) Reconstruct(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	runID := uuid.NewString()
	logger := s.logger.With().Str("run_id", runID).Logger()

	logger.Info().
		Str("owner", req.Owner).
		Int("identifiers", len(req.Identifiers)).
		Time("from", req.From).
		Time("to", req.To).
		Msg("reconstruction run started")

	window := ingestion.Window{Start: req.To, End: req.From}
	fetched, err := s.fetcher.FetchAll(ctx, req.Identifiers, window)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	result := &Result{
		RunID:           runID,
		PagesFetched:    fetched.PagesFetched,
		RecordsFetched:  fetched.RecordsFetched,
		PartialFailures: fetched.PartialFailures,
	}

	var events []domain.Event
	for _, ir := range fetched.PerIdentifier {
		if ir.Err != nil {
			logger.Warn().
				Err(ir.Err).
				Str("identifier", ir.Identifier.String()).
				Msg("identifier fetched partially")
		}
		s.archiveRecords(ctx, logger, ir.Identifier, ir.Records)

		for _, rec := range ir.Records {
			evs, stats := s.decoder.DecodeRecord(rec)
			events = append(events, evs...)
			result.EventsDecoded += stats.Decoded
			result.PayloadsDropped += stats.Dropped
			result.UnknownEnums += stats.UnknownEnums
		}
	}

	lifecycle.SortEvents(events)
	grouped := s.grouper.Group(events)
	result.Active = grouped.Active
	result.Completed = grouped.Completed
	result.Errors = grouped.Errors

	s.persistTrades(ctx, logger, grouped.Completed)

	result.Duration = time.Since(started)
	s.observe(result)

	logger.Info().
		Int("records", result.RecordsFetched).
		Int("events", result.EventsDecoded).
		Int("active", len(result.Active)).
		Int("completed", len(result.Completed)).
		Int("data_errors", len(result.Errors)).
		Dur("duration", result.Duration).
		Msg("reconstruction run finished")

	return result, nil
}

// archiveRecords stores fetched record metadata. Archive failures are not
// fatal; the archive is an audit trail, not the source of truth.
func (s *Service) archiveRecords(ctx context.Context, logger zerolog.Logger, id domain.PositionIdentifier, records []*domain.RawRecord) {
	if s.archive == nil || len(records) == 0 {
		return
	}
	if err := s.archive.InsertBulk(ctx, id, records); err != nil {
		logger.Warn().
			Err(err).
			Str("identifier", id.String()).
			Msg("failed to archive records")
	}
}

// persistTrades inserts completed trades one by one. A duplicate key
// means the lifecycle was reconstructed in an earlier run and is expected
// on overlapping windows.
func (s *Service) persistTrades(ctx context.Context, logger zerolog.Logger, trades []*domain.Trade) {
	if s.trades == nil {
		return
	}
	for _, t := range trades {
		err := s.trades.Insert(ctx, t)
		switch {
		case err == nil:
		case errors.Is(err, storage.ErrDuplicateKey):
			logger.Debug().
				Str("trade", t.ID.String()).
				Msg("trade already persisted")
		default:
			logger.Warn().
				Err(err).
				Str("trade", t.ID.String()).
				Msg("failed to persist trade")
		}
	}
}

func (s *Service) observe(res *Result) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordsFetched.Add(float64(res.RecordsFetched))
	s.metrics.PagesFetched.Add(float64(res.PagesFetched))
	s.metrics.PartialFetches.Add(float64(res.PartialFailures))
	s.metrics.EventsDecoded.Add(float64(res.EventsDecoded))
	s.metrics.PayloadsDropped.Add(float64(res.PayloadsDropped))
	s.metrics.UnknownEnums.Add(float64(res.UnknownEnums))
	s.metrics.DataConsistencyError.Add(float64(len(res.Errors)))
	for _, t := range res.Completed {
		s.metrics.TradesReconstructed.WithLabelValues(t.Status.String()).Inc()
	}
	s.metrics.TradesReconstructed.WithLabelValues(domain.StatusActive.String()).Add(float64(len(res.Active)))
	s.metrics.RunDuration.Observe(res.Duration.Seconds())
}

// BuildReport converts a run result into a renderable report.
func BuildReport(req Request, res *Result) *reporting.RunReport {
	errs := make([]string, 0, len(res.Errors))
	for _, e := range res.Errors {
		errs = append(errs, e.String())
	}
	return &reporting.RunReport{
		RunID:           res.RunID,
		GeneratedAt:     time.Now(),
		Owner:           req.Owner,
		WindowStart:     req.From,
		WindowEnd:       req.To,
		Identifiers:     len(req.Identifiers),
		PagesFetched:    res.PagesFetched,
		RecordsFetched:  res.RecordsFetched,
		PartialFailures: res.PartialFailures,
		EventsDecoded:   res.EventsDecoded,
		PayloadsDropped: res.PayloadsDropped,
		UnknownEnums:    res.UnknownEnums,
		Active:          res.Active,
		Completed:       res.Completed,
		DataError:       errs,
	}
}
