package streams

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/smazurov/streamctl/internal/logging"
	"github.com/smazurov/streamctl/internal/metrics"
)

// DefaultImportWorkers keeps registry writes sequential.
const DefaultImportWorkers = 1

// ImporterOptions configures an Importer.
type ImporterOptions struct {
	// Workers bounds concurrent registry writes. Values below 1 mean 1.
	Workers int
	// Validator checks each row's URL. Nil means DefaultURLValidator.
	Validator URLValidator
}

// Importer turns tabular rows into registry entries with per-row failure
// isolation.
type Importer struct {
	registry  Registry
	workers   int
	validator URLValidator
	logger    *slog.Logger
}

// NewImporter creates an importer writing to registry.
func NewImporter(registry Registry, opts ImporterOptions) *Importer {
	if opts.Workers < 1 {
		opts.Workers = DefaultImportWorkers
	}
	if opts.Validator == nil {
		opts.Validator = DefaultURLValidator
	}
	return &Importer{
		registry:  registry,
		workers:   opts.Workers,
		validator: opts.Validator,
		logger:    logging.GetLogger("importer"),
	}
}

// pendingRow is a row that passed validation and awaits its registry write.
type pendingRow struct {
	index int
	name  string
	conn  string
}

// Import validates and stores rows. Row failures never abort the batch; the
// result lists every failure in row order. Rows whose write has not started
// when ctx is cancelled fail with the context error.
func (imp *Importer) Import(ctx context.Context, rows []ImportRow) ImportResult {
	result, _ := imp.run(ctx, rows)
	return result
}

// run imports rows and also returns the names that were stored, in row order.
func (imp *Importer) run(ctx context.Context, rows []ImportRow) (ImportResult, []string) {
	batchID := uuid.NewString()
	logger := imp.logger.With("batch_id", batchID)
	logger.Info("Import started", "rows", len(rows), "workers", imp.workers)

	failures := make([]error, len(rows))
	pending := imp.prepare(rows, failures)

	writeRow := func(row pendingRow) {
		if err := ctx.Err(); err != nil {
			failures[row.index] = err
			return
		}
		err := imp.registry.Put(ctx, row.name, row.conn)
		metrics.RecordRegistryOperation("put", err)
		if err != nil {
			failures[row.index] = err
			return
		}
		logger.Debug("Row imported", "row", row.index+1, "name", row.name, "url", RedactAddress(row.conn))
	}

	if imp.workers == 1 {
		for _, row := range pending {
			writeRow(row)
		}
	} else {
		// Names are unique after prepare, so concurrent writes never touch
		// the same registry key.
		var g errgroup.Group
		g.SetLimit(imp.workers)
		for _, row := range pending {
			g.Go(func() error {
				writeRow(row)
				return nil
			})
		}
		_ = g.Wait()
	}

	result := ImportResult{BatchID: batchID, Errors: []string{}}
	stored := make([]string, 0, len(pending))
	for i, err := range failures {
		metrics.RecordImportRow(err)
		if err == nil {
			result.SuccessCount++
			stored = append(stored, rows[i].Name)
			continue
		}
		result.FailureCount++
		result.Errors = append(result.Errors, rowError(i, rows[i].Name, err))
	}
	metrics.RecordImportBatch()

	logger.Info("Import finished",
		"success", result.SuccessCount,
		"failed", result.FailureCount)
	return result, stored
}

// prepare validates every row in order and returns those ready to write.
// The first row to use a name claims it, whether or not it later succeeds.
func (imp *Importer) prepare(rows []ImportRow, failures []error) []pendingRow {
	claimed := make(map[string]int, len(rows))
	pending := make([]pendingRow, 0, len(rows))

	for i, row := range rows {
		if row.Err != nil {
			failures[i] = row.Err
			continue
		}
		if err := ValidateName(row.Name); err != nil {
			failures[i] = err
			continue
		}
		if first, dup := claimed[row.Name]; dup {
			failures[i] = NewStreamError(ErrCodeDuplicateName,
				fmt.Sprintf("duplicate name in batch (first used in row %d)", first+1), nil)
			continue
		}
		claimed[row.Name] = i

		if HasTranscodeMarker(row.URL) {
			failures[i] = NewStreamError(ErrCodeInvalidParams, "invalid url", errURLTranscoded)
			continue
		}
		if err := imp.validator(row.URL); err != nil {
			failures[i] = NewStreamError(ErrCodeInvalidParams, "invalid url", err)
			continue
		}

		conn, err := Encode(StreamConfig{Name: row.Name, SourceAddress: row.URL, Mode: ModeDirect})
		if err != nil {
			failures[i] = err
			continue
		}
		metrics.RecordCodecOperation("encode", string(ModeDirect))
		pending = append(pending, pendingRow{index: i, name: row.Name, conn: conn})
	}
	return pending
}

func rowError(index int, name string, err error) string {
	if name == "" {
		return fmt.Sprintf("row %d: %v", index+1, err)
	}
	return fmt.Sprintf("row %d (%s): %v", index+1, name, err)
}

// SummarizeErrors returns at most limit errors followed by a count of the
// rest. A limit below 1 returns errs unchanged.
func SummarizeErrors(errs []string, limit int) []string {
	if limit < 1 || len(errs) <= limit {
		return errs
	}
	out := make([]string, 0, limit+1)
	out = append(out, errs[:limit]...)
	return append(out, fmt.Sprintf("... and %d more errors", len(errs)-limit))
}
