package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"solana-perp-history/internal/decode"
	"solana-perp-history/internal/domain"
	"solana-perp-history/internal/observability"
	"solana-perp-history/internal/pda"
	"solana-perp-history/internal/reconstruct"
	"solana-perp-history/internal/reporting"
	"solana-perp-history/internal/retry"
	"solana-perp-history/internal/solana"
	"solana-perp-history/internal/storage"
	chstore "solana-perp-history/internal/storage/clickhouse"
	"solana-perp-history/internal/storage/memory"
	"solana-perp-history/internal/storage/migrations"
	pgstore "solana-perp-history/internal/storage/postgres"
)

// Jupiter Perpetuals program on mainnet.
const defaultProgram = "PERPHjGBqRHArX4DySjwM6UJHir3swtPzvFVvKPtjp8"

func main() {
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint")
	program := flag.String("program", defaultProgram, "Perpetuals program ID")
	owner := flag.String("owner", "", "Wallet address to reconstruct history for")
	identifiers := flag.String("identifiers", "", "Comma-separated position account addresses (skips derivation)")
	custodies := flag.String("custodies", "", "Comma-separated custody:collateralCustody pairs for position derivation")
	fromTime := flag.String("from", "", "Older window bound (RFC3339)")
	toTime := flag.String("to", "", "Newer window bound (RFC3339, default now)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for trade persistence")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse DSN for the record archive (empty to disable)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	enumOverrides := flag.String("enum-overrides", "", "TOML file overriding enum value names")
	csvOut := flag.String("csv", "", "Write trades as CSV to this path (empty to skip)")
	reportOut := flag.String("report", "", "Write a Markdown run report to this path (empty to skip)")
	maxRecords := flag.Int("max-records", 0, "Per-identifier record cap (0 for default)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := observability.NewLogger("reconstruct")

	if *rpcEndpoint == "" {
		logger.Fatal().Msg("--rpc-endpoint is required")
	}

	from, err := time.Parse(time.RFC3339, *fromTime)
	if err != nil {
		logger.Fatal().Err(err).Msg("--from must be RFC3339")
	}
	to := time.Now()
	if *toTime != "" {
		to, err = time.Parse(time.RFC3339, *toTime)
		if err != nil {
			logger.Fatal().Err(err).Msg("--to must be RFC3339")
		}
	}

	ids, err := resolveIdentifiers(*program, *owner, *identifiers, *custodies)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve position identifiers")
	}
	if len(ids) == 0 {
		logger.Fatal().Msg("no position identifiers; use --identifiers or --owner with --custodies")
	}

	enums := decode.DefaultEnumTable()
	if *enumOverrides != "" {
		enums, err = decode.LoadEnumOverrides(*enumOverrides)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load enum overrides")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	var metrics *observability.Metrics
	if *metricsAddr != "" {
		metrics = observability.NewMetrics("")
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Info().Str("addr", *metricsAddr).Msg("metrics server listening")
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	trades, err := setupTradeStore(ctx, logger, *useMemory, *postgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up trade store")
	}

	archive, err := setupRecordArchive(ctx, *useMemory, *clickhouseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up record archive")
	}

	var clientOpts []solana.ClientOption
	if metrics != nil {
		policy := retry.DefaultPolicy()
		policy.OnRetry = func(int, error) { metrics.RateLimitRetries.Inc() }
		clientOpts = append(clientOpts,
			solana.WithRetryPolicy(policy),
			solana.WithCallObserver(func(method string, d time.Duration) {
				metrics.RPCCallLatency.WithLabelValues(method).Observe(d.Seconds())
			}),
		)
	}
	client := solana.NewHTTPClient(*rpcEndpoint, clientOpts...)

	svc, err := reconstruct.NewService(reconstruct.Options{
		Source:     client,
		Trades:     trades,
		Archive:    archive,
		Logger:     logger,
		Metrics:    metrics,
		ProgramID:  *program,
		Enums:      enums,
		MaxRecords: *maxRecords,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build service")
	}

	req := reconstruct.Request{
		Owner:       *owner,
		Identifiers: ids,
		From:        from,
		To:          to,
	}

	res, err := svc.Reconstruct(ctx, req)
	if err != nil {
		logger.Fatal().Err(err).Msg("reconstruction failed")
	}

	if *csvOut != "" {
		all := append(append([]*domain.Trade{}, res.Completed...), res.Active...)
		if err := os.WriteFile(*csvOut, []byte(reporting.RenderTradesCSV(all)), 0o644); err != nil {
			logger.Fatal().Err(err).Msg("failed to write CSV")
		}
		logger.Info().Str("path", *csvOut).Int("trades", len(all)).Msg("CSV written")
	}

	if *reportOut != "" {
		md := reporting.RenderMarkdown(reconstruct.BuildReport(req, res))
		if err := os.WriteFile(*reportOut, []byte(md), 0o644); err != nil {
			logger.Fatal().Err(err).Msg("failed to write report")
		}
		logger.Info().Str("path", *reportOut).Msg("report written")
	}

	for _, e := range res.Errors {
		logger.Warn().Str("error", e.String()).Msg("data consistency error")
	}
	fmt.Printf("run %s: %d active, %d completed, %d records, %d partial failures\n",
		res.RunID, len(res.Active), len(res.Completed), res.RecordsFetched, res.PartialFailures)
}

// resolveIdentifiers collects position identifiers either verbatim from
// --identifiers or by deriving one per custody pair and side for the owner.
func resolveIdentifiers(program, owner, identifiers, custodies string) ([]domain.PositionIdentifier, error) {
	var ids []domain.PositionIdentifier
	for _, s := range splitList(identifiers) {
		ids = append(ids, domain.PositionIdentifier(s))
	}
	if custodies == "" {
		return ids, nil
	}
	if owner == "" {
		return nil, fmt.Errorf("--custodies requires --owner")
	}
	for _, pair := range splitList(custodies) {
		custody, collateral, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("custody pair %q must be custody:collateralCustody", pair)
		}
		for _, side := range []domain.Side{domain.SideLong, domain.SideShort} {
			id, err := pda.DerivePosition(program, owner, custody, collateral, side)
			if err != nil {
				return nil, fmt.Errorf("derive %s %s: %w", pair, side, err)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func setupTradeStore(ctx context.Context, logger zerolog.Logger, useMemory bool, dsn string) (storage.TradeStore, error) {
	if useMemory || dsn == "" {
		logger.Info().Msg("using in-memory trade store")
		return memory.NewTradeStore(), nil
	}
	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return pgstore.NewTradeStore(pool), nil
}

func setupRecordArchive(ctx context.Context, useMemory bool, dsn string) (storage.RecordArchive, error) {
	if useMemory || dsn == "" {
		return memory.NewRecordArchive(), nil
	}
	conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse: %w", err)
	}
	return chstore.NewRecordArchive(conn), nil
}
