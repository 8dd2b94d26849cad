// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package replace

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/walteh/bitablerc/pkg/config"
	"github.com/walteh/bitablerc/pkg/table"
	"github.com/walteh/bitablerc/pkg/text"
	"gitlab.com/tozd/go/errors"
)

// 🎯 Request describes one search-and-replace over a table
type Request struct {
	TableID     string `json:"table_id"`
	Pattern     string `json:"find"`
	Replacement string `json:"replace"` // may be empty, which deletes every match
	Regex       bool   `json:"regex"`
}

// Options configures an Engine
type Options struct {
	Client    table.Client
	PageSize  int // 0 means config.DefaultPageSize
	BatchSize int // 0 means config.DefaultBatchSize
	Fields    config.FieldFilter
	Observer  Observer // optional
}

// OptionsFromConfig maps a loaded configuration onto engine options.
func OptionsFromConfig(cfg *config.Config, client table.Client) Options {
	return Options{
		Client:    client,
		PageSize:  cfg.PageSize,
		BatchSize: cfg.BatchSize,
		Fields:    cfg.Fields,
	}
}

// 🔄 Engine runs previews and applies. It holds no per-run state, so one
// engine may serve concurrent runs on different tables.
type Engine struct {
	classifier *Classifier
	paginator  *Paginator
	writer     *Writer
	observer   Observer
}

// 🏭 New creates a new Engine
func New(opts Options) (*Engine, error) {
	if opts.Client == nil {
		return nil, errors.Errorf("client is required")
	}

	classifier, err := NewClassifier(opts.Client, opts.Fields)
	if err != nil {
		return nil, errors.Errorf("creating classifier: %w", err)
	}
	paginator, err := NewPaginator(opts.Client, opts.PageSize)
	if err != nil {
		return nil, errors.Errorf("creating paginator: %w", err)
	}
	writer, err := NewWriter(opts.Client, opts.BatchSize)
	if err != nil {
		return nil, errors.Errorf("creating writer: %w", err)
	}

	return &Engine{
		classifier: classifier,
		paginator:  paginator,
		writer:     writer,
		observer:   opts.Observer,
	}, nil
}

// Compile validates the request's pattern without touching the table.
func Compile(req Request) (text.Matcher, error) {
	mode := text.ModeFor(req.Regex)
	m, err := text.NewMatcher(req.Pattern, mode)
	if err != nil {
		return nil, newFault(ErrInvalidPattern, err, "%s %q", mode, req.Pattern)
	}
	return m, nil
}

// 📂 Fields returns the text fields a request on tableID would search. A
// table without any is an empty list, not an error.
func (e *Engine) Fields(ctx context.Context, tableID string) ([]table.Field, error) {
	if tableID == "" {
		return nil, errors.Errorf("table id is required")
	}
	fields, err := e.classifier.Classify(ctx, tableID)
	if errors.Is(err, ErrNoTextFields) {
		return []table.Field{}, nil
	}
	return fields, err
}

// 👀 Preview computes the diffs the request would produce without writing
// anything. Calling it twice on an unchanged table gives the same diffs.
func (e *Engine) Preview(ctx context.Context, req Request) ([]table.RecordDiff, error) {
	m, err := e.prepare(req)
	if err != nil {
		return nil, err
	}

	r, ctx := e.start(ctx, req, "preview")
	diffs, err := e.collect(ctx, r, req, m)
	if err != nil {
		if errors.Is(err, ErrNoTextFields) {
			r.enter(StateDone)
			return []table.RecordDiff{}, nil
		}
		return nil, r.fail(err)
	}

	r.enter(StatePreviewing)
	r.enter(StateDone)
	r.logger.Info().Int("diffs", len(diffs)).Msg("preview complete")
	return diffs, nil
}

// ✏️ Apply reads and diffs the table again, then writes the diffs in batches.
// Read failures are returned as errors with nothing written. Write failures
// are reported per record in the result.
func (e *Engine) Apply(ctx context.Context, req Request) (table.BatchResult, error) {
	m, err := e.prepare(req)
	if err != nil {
		return table.BatchResult{}, err
	}

	r, ctx := e.start(ctx, req, "apply")
	diffs, err := e.collect(ctx, r, req, m)
	if err != nil {
		if errors.Is(err, ErrNoTextFields) {
			r.enter(StateDone)
			return table.BatchResult{}, nil
		}
		return table.BatchResult{}, r.fail(err)
	}

	r.enter(StateWriting)
	result := e.writer.Apply(ctx, req.TableID, diffs)
	r.enter(StateDone)

	r.logger.Info().
		Int("attempted", result.Attempted).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed()).
		Msg("apply complete")

	return result, nil
}

func (e *Engine) prepare(req Request) (text.Matcher, error) {
	m, err := Compile(req)
	if err != nil {
		return nil, err
	}
	if req.TableID == "" {
		return nil, errors.Errorf("table id is required")
	}
	return m, nil
}

func (e *Engine) start(ctx context.Context, req Request, op string) (*run, context.Context) {
	id := uuid.NewString()
	logger := zerolog.Ctx(ctx).With().
		Str("run_id", id).
		Str("table_id", req.TableID).
		Str("op", op).
		Logger()

	logger.Debug().Str("pattern", req.Pattern).Bool("regex", req.Regex).Msg("starting run")

	return &run{
		id:       id,
		tableID:  req.TableID,
		state:    StateIdle,
		observer: e.observer,
		logger:   logger,
	}, logger.WithContext(ctx)
}

// collect runs classification, pagination and diffing. On a read failure
// everything gathered so far is dropped.
func (e *Engine) collect(ctx context.Context, r *run, req Request, m text.Matcher) ([]table.RecordDiff, error) {
	r.enter(StateClassifyingFields)
	fields, err := e.classifier.Classify(ctx, req.TableID)
	if err != nil {
		return nil, err
	}
	names := FieldNames(fields)

	r.enter(StatePaginating)
	var records []table.Record
	pages := e.paginator.Records(req.TableID)
	for pages.Next(ctx) {
		records = append(records, pages.Record())
	}
	if err := pages.Err(); err != nil {
		return nil, err
	}
	pageCount, _ := pages.Stats()
	r.logger.Debug().Int("pages", pageCount).Int("records", len(records)).Msg("paginated records")

	r.enter(StateDiffing)
	diffs := []table.RecordDiff{}
	for _, rec := range records {
		if d, ok := DiffRecord(rec, names, m, req.Replacement); ok {
			diffs = append(diffs, d)
		}
	}
	return diffs, nil
}
