package replace

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/bitablerc/pkg/config"
	"github.com/walteh/bitablerc/pkg/table"
	"gitlab.com/tozd/go/errors"
)

// Partition splits diffs into consecutive groups of at most size, preserving
// order. It returns ceil(len(diffs)/size) groups and nil for no diffs.
func Partition(diffs []table.RecordDiff, size int) [][]table.RecordDiff {
	if size < 1 || len(diffs) == 0 {
		return nil
	}
	out := make([][]table.RecordDiff, 0, (len(diffs)+size-1)/size)
	for start := 0; start < len(diffs); start += size {
		end := min(start+size, len(diffs))
		out = append(out, diffs[start:end:end])
	}
	return out
}

// ✏️ Writer submits diffs as sequential batch updates
type Writer struct {
	client    table.Client
	batchSize int
}

// NewWriter validates the batch size against the client's limit. Zero means the default.
func NewWriter(client table.Client, batchSize int) (*Writer, error) {
	if batchSize == 0 {
		batchSize = config.DefaultBatchSize
	}
	limit := config.MaxBatchSize
	if l, ok := client.(table.Limits); ok {
		limit = l.MaxBatchSize()
	}
	if batchSize < 1 || batchSize > limit {
		return nil, errors.Errorf("batch size must be between 1 and %d, got %d", limit, batchSize)
	}
	return &Writer{client: client, batchSize: batchSize}, nil
}

// BatchSize returns the configured batch size
func (w *Writer) BatchSize() int {
	return w.batchSize
}

// Apply writes every diff. A failed batch marks each of its records as failed
// with the batch's error and the next batch is still attempted. Once ctx is
// done, the batches not yet sent are reported as failed with the context error.
func (w *Writer) Apply(ctx context.Context, tableID string, diffs []table.RecordDiff) table.BatchResult {
	logger := zerolog.Ctx(ctx)
	batches := Partition(diffs, w.batchSize)

	result := table.BatchResult{Attempted: len(diffs)}
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			reason := errors.Errorf("batch %d/%d not sent: %w", i+1, len(batches), err).Error()
			for _, rest := range batches[i:] {
				result.Failures = appendFailures(result.Failures, rest, reason)
			}
			logger.Warn().Err(err).Int("skipped_batches", len(batches)-i).Msg("write cancelled")
			break
		}

		updates := make([]table.RecordUpdate, len(batch))
		for j, d := range batch {
			updates[j] = d.Update()
		}

		if err := w.client.BatchUpdate(ctx, tableID, updates); err != nil {
			ferr := newFault(ErrBatchWrite, err, "batch %d/%d", i+1, len(batches))
			logger.Error().Err(ferr).Int("batch", i+1).Int("records", len(batch)).Msg("batch failed")
			result.Failures = appendFailures(result.Failures, batch, ferr.Error())
			continue
		}

		result.Succeeded += len(batch)
		logger.Debug().Int("batch", i+1).Int("batches", len(batches)).Int("records", len(batch)).Msg("batch written")
	}

	return result
}

func appendFailures(failures []table.Failure, batch []table.RecordDiff, reason string) []table.Failure {
	for _, d := range batch {
		failures = append(failures, table.Failure{RecordID: d.RecordID, Reason: reason})
	}
	return failures
}
