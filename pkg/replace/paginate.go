package replace

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/bitablerc/pkg/config"
	"github.com/walteh/bitablerc/pkg/table"
	"gitlab.com/tozd/go/errors"
)

// 📄 Paginator walks every record of a table with a fixed page size
type Paginator struct {
	client   table.Client
	pageSize int
}

// NewPaginator returns a paginator. A zero page size means the default; the
// size is capped by the client's limit when it reports one.
func NewPaginator(client table.Client, pageSize int) (*Paginator, error) {
	if pageSize == 0 {
		pageSize = config.DefaultPageSize
	}
	limit := config.MaxPageSize
	if l, ok := client.(table.Limits); ok {
		limit = l.MaxPageSize()
	}
	if pageSize < 1 {
		return nil, errors.Errorf("page size must be positive, got %d", pageSize)
	}
	if pageSize > limit {
		pageSize = limit
	}
	return &Paginator{client: client, pageSize: pageSize}, nil
}

// PageSize returns the effective page size
func (p *Paginator) PageSize() int {
	return p.pageSize
}

// Records starts a new walk from the first page. Nothing is fetched until Next is called.
func (p *Paginator) Records(tableID string) *Pages {
	return &Pages{p: p, tableID: tableID, seen: map[string]struct{}{}}
}

// Pages is a single pass over a table's records:
//
//	pages := p.Records(tableID)
//	for pages.Next(ctx) {
//		rec := pages.Record()
//	}
//	if err := pages.Err(); err != nil { ... }
type Pages struct {
	p       *Paginator
	tableID string

	buf     []table.Record
	cur     table.Record
	token   string
	started bool
	done    bool
	err     error

	seen    map[string]struct{}
	fetched int
	yielded int
}

// Next advances to the next record, fetching a page when the buffer is empty.
// It returns false at the end of the table or on the first error.
func (it *Pages) Next(ctx context.Context) bool {
	for {
		if it.err != nil {
			return false
		}

		for len(it.buf) > 0 {
			rec := it.buf[0]
			it.buf = it.buf[1:]
			if _, dup := it.seen[rec.ID]; dup {
				zerolog.Ctx(ctx).Debug().Str("record_id", rec.ID).Msg("skipping duplicate record")
				continue
			}
			it.seen[rec.ID] = struct{}{}
			it.cur = rec
			it.yielded++
			return true
		}

		if it.done {
			return false
		}

		if err := ctx.Err(); err != nil {
			it.err = errors.Errorf("fetching records of %s: %w", it.tableID, err)
			return false
		}

		if !it.fetch(ctx) {
			return false
		}
	}
}

func (it *Pages) fetch(ctx context.Context) bool {
	prev := it.token
	page, err := it.p.client.FetchRecordsPage(ctx, it.tableID, it.token, it.p.pageSize)
	it.fetched++
	if err != nil {
		it.buf = nil
		it.err = newFault(ErrRecordFetch, err, "table %s page %d", it.tableID, it.fetched)
		return false
	}

	if it.started && page.HasMore() && page.NextPageToken == prev {
		it.err = newFault(ErrRecordFetch, nil, "table %s page %d: page token %q did not advance", it.tableID, it.fetched, prev)
		return false
	}
	it.started = true

	zerolog.Ctx(ctx).Debug().
		Str("table_id", it.tableID).
		Int("page", it.fetched).
		Int("records", len(page.Records)).
		Bool("has_more", page.HasMore()).
		Msg("fetched records page")

	it.buf = page.Records
	it.token = page.NextPageToken
	if !page.HasMore() {
		it.done = true
	}
	return true
}

// Record returns the current record
func (it *Pages) Record() table.Record {
	return it.cur
}

// Err returns the error that stopped the walk, if any
func (it *Pages) Err() error {
	return it.err
}

// Stats returns the number of pages fetched and records yielded so far
func (it *Pages) Stats() (pages, records int) {
	return it.fetched, it.yielded
}
