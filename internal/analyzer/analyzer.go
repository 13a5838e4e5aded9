package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pricelab/avito-price-analyzer/internal/config"
	"github.com/pricelab/avito-price-analyzer/internal/excel"
	"github.com/pricelab/avito-price-analyzer/internal/models"
	"github.com/pricelab/avito-price-analyzer/internal/parser"
	"github.com/pricelab/avito-price-analyzer/internal/ratelimit"
	"github.com/pricelab/avito-price-analyzer/internal/scraper"
	"github.com/pricelab/avito-price-analyzer/internal/search"
)

// Analyzer drives the per-row pipeline: tokenize, build the search, fetch
// with retries, extract listings, score, aggregate. Rows run strictly
// sequentially over one shared session; parallel fetches against a defended
// target only raise the block risk and would scramble progress order.
type Analyzer struct {
	scraperCfg config.ScraperConfig
	cfg        config.AnalyzerConfig
	fetcher    *scraper.Fetcher
	parser     *parser.ListingParser
	limiter    ratelimit.Limiter
	retry      scraper.RetryPolicy
	reporter   Reporter
	logger     *slog.Logger
}

// RunReport summarizes a completed run.
type RunReport struct {
	OutputPath string             `json:"output_path"`
	TotalRows  int                `json:"total_rows"`
	Results    []models.RowResult `json:"results"`
}

// OutcomeCounts tallies results by outcome.
func (r *RunReport) OutcomeCounts() map[models.Outcome]int {
	counts := make(map[models.Outcome]int, 4)
	for _, res := range r.Results {
		counts[res.Outcome]++
	}
	return counts
}

func New(cfg *config.Config, fetcher *scraper.Fetcher, reporter Reporter, logger *slog.Logger) *Analyzer {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Analyzer{
		scraperCfg: cfg.Scraper,
		cfg:        cfg.Analyzer,
		fetcher:    fetcher,
		parser:     parser.NewListingParser(cfg.Analyzer.RawListingLimit),
		limiter:    ratelimit.NewJitteredLimiter(cfg.Analyzer.RowDelayMin, cfg.Analyzer.RowDelayMax),
		retry:      scraper.DefaultRetryPolicy(cfg.Scraper.RetryAttempts),
		reporter:   reporter,
		logger:     logger.With("component", "analyzer"),
	}
}

// Run processes every row of the input workbook and writes the report
// workbook next to it. On cancellation no output file is written at all: a
// partial report would be mistaken for a complete one. Row-level failures
// never abort the run; only an unreadable input or an unwritable output is
// fatal.
func (a *Analyzer) Run(ctx context.Context, inputPath string) (*RunReport, error) {
	rows, err := excel.ReadRows(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	a.logger.Info("run started", "input", inputPath, "rows", len(rows))

	results := make([]models.RowResult, 0, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return a.cancelled(err)
		}

		// Throttles every transition to the next row regardless of outcome;
		// the first call is free.
		if err := a.limiter.Wait(ctx); err != nil {
			return a.cancelled(err)
		}

		a.reporter.Progress(i * 100 / len(rows))

		result, err := a.processRow(ctx, row)
		if err != nil {
			return a.cancelled(err)
		}
		results = append(results, result)
	}

	outPath, err := excel.WriteReport(inputPath, rows, results)
	if err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	a.reporter.Progress(100)
	a.reporter.Status(StatusDone)
	a.logger.Info("run finished", "output", outPath)

	return &RunReport{OutputPath: outPath, TotalRows: len(rows), Results: results}, nil
}

func (a *Analyzer) cancelled(err error) (*RunReport, error) {
	a.reporter.Progress(0)
	a.reporter.Status(StatusCancelled)
	a.logger.Info("run cancelled")
	return nil, err
}

// processRow runs the pipeline for one row. The only error it returns is a
// context cancellation; every other failure degrades to a row outcome.
func (a *Analyzer) processRow(ctx context.Context, row models.ProductRow) (models.RowResult, error) {
	tokens := search.Tokenize(row.Brand, row.Description)
	query := search.BuildQuery(tokens, row.Brand, row.Description)
	urls := search.SearchURLs(query, a.scraperCfg.Hosts)

	a.reporter.Log(fmt.Sprintf("[%d] searching: %s", row.RowIndex+1, query))

	html, err := a.fetcher.FetchWithRetry(ctx, urls, a.retry)
	if err != nil {
		if ctx.Err() != nil {
			return models.RowResult{}, ctx.Err()
		}

		a.logger.Warn("all fetch attempts failed", "row", row.RowIndex, "query", query)
		a.reporter.Log(fmt.Sprintf("[%d] could not fetch results (defense or network); solve the challenge in a browser and re-run", row.RowIndex+1))
		a.reporter.ChallengeRequired(urls[0])

		return models.RowResult{RowIndex: row.RowIndex, Outcome: models.OutcomeFetchFailed}, nil
	}

	listings, err := a.parser.ExtractListings(html)
	if err != nil {
		if errors.Is(err, parser.ErrBlocked) {
			a.logger.Warn("challenge page served instead of results", "row", row.RowIndex)
		} else {
			a.logger.Warn("failed to parse search page", "row", row.RowIndex, "error", err)
		}
		listings = nil
	}

	a.reporter.Log(fmt.Sprintf("[%d] raw listings: %d", row.RowIndex+1, len(listings)))

	if len(listings) == 0 {
		return models.RowResult{RowIndex: row.RowIndex, Outcome: models.OutcomeNoResults}, nil
	}

	selected := Select(listings, tokens, a.cfg.SelectTop)
	if len(selected) == 0 {
		a.reporter.Log(fmt.Sprintf("[%d] listings found but none carry a price", row.RowIndex+1))
		return models.RowResult{RowIndex: row.RowIndex, Outcome: models.OutcomeNoPricedResults}, nil
	}

	result := Aggregate(row, selected)
	a.reporter.Log(fmt.Sprintf("[%d] used %d listings; average %.2f ₽", row.RowIndex+1, result.ListingsUsed, *result.AveragePrice))

	return result, nil
}
