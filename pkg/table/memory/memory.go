// Package memory is an in-process table.Client. It backs tests and the
// "memory" provider, which loads a table from a YAML fixture so the CLI can be
// exercised without credentials.
package memory

import (
	"bytes"
	"context"
	"os"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/bitablerc/pkg/config"
	"github.com/walteh/bitablerc/pkg/table"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

func init() {
	table.Register("memory", func(ctx context.Context, cfg *config.Config) (table.Client, error) {
		if cfg.Memory.Fixture == "" {
			return New(), nil
		}
		return LoadFixture(ctx, cfg.Memory.Fixture)
	})
}

// Table is the fixture form of one table
type Table struct {
	Fields  []table.Field  `yaml:"fields"`
	Records []table.Record `yaml:"records"`
}

// Fixture is the YAML document read by LoadFixture
type Fixture struct {
	Tables map[string]*Table `yaml:"tables"`
}

// Calls counts invocations of each client method.
type Calls struct {
	ListFields  int
	FetchPage   int
	BatchUpdate int
}

// Total returns the number of remote calls of any kind
func (c Calls) Total() int {
	return c.ListFields + c.FetchPage + c.BatchUpdate
}

// Writes returns the number of write calls
func (c Calls) Writes() int {
	return c.BatchUpdate
}

// Client is a table.Client backed by maps. It is safe for concurrent use.
type Client struct {
	mu     sync.Mutex
	tables map[string]*Table
	calls  Calls

	fieldsErr error
	pageErrs  map[int]error // keyed by FetchPage call number, 1-based
	batchErrs map[int]error // keyed by BatchUpdate call number, 1-based
	batches   [][]table.RecordUpdate
}

var (
	_ table.Client = (*Client)(nil)
	_ table.Limits = (*Client)(nil)
	_ table.Pinger = (*Client)(nil)
)

// New returns an empty client
func New() *Client {
	return &Client{
		tables:    map[string]*Table{},
		pageErrs:  map[int]error{},
		batchErrs: map[int]error{},
	}
}

// LoadFixture builds a client from a YAML fixture file.
func LoadFixture(ctx context.Context, path string) (*Client, error) {
	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("loading memory fixture")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading fixture: %w", err)
	}

	var fx Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, errors.Errorf("parsing fixture: %w", err)
	}

	c := New()
	for id, t := range fx.Tables {
		if t == nil {
			t = &Table{}
		}
		c.AddTable(id, t.Fields, t.Records...)
	}
	return c, nil
}

// AddTable creates or replaces a table
func (c *Client) AddTable(id string, fields []table.Field, records ...table.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &Table{Fields: append([]table.Field(nil), fields...)}
	for _, r := range records {
		t.Records = append(t.Records, cloneRecord(r))
	}
	c.tables[id] = t
}

// FailFields makes every ListFields call return err
func (c *Client) FailFields(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fieldsErr = err
}

// FailPage makes the nth FetchRecordsPage call (1-based) return err
func (c *Client) FailPage(n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pageErrs[n] = err
}

// FailBatch makes the nth BatchUpdate call (1-based) return err without writing
func (c *Client) FailBatch(n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batchErrs[n] = err
}

// Calls returns a snapshot of the call counters
func (c *Client) Calls() Calls {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Batches returns every batch passed to BatchUpdate, including failed ones
func (c *Client) Batches() [][]table.RecordUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]table.RecordUpdate(nil), c.batches...)
}

// Records returns a copy of the current rows of a table
func (c *Client) Records(tableID string) []table.Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tables[tableID]
	if !ok {
		return nil
	}
	out := make([]table.Record, 0, len(t.Records))
	for _, r := range t.Records {
		out = append(out, cloneRecord(r))
	}
	return out
}

// Ping implements table.Pinger
func (c *Client) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (c *Client) MaxPageSize() int  { return config.MaxPageSize }
func (c *Client) MaxBatchSize() int { return config.MaxBatchSize }

// ListFields implements table.Client
func (c *Client) ListFields(ctx context.Context, tableID string) ([]table.Field, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls.ListFields++

	if err := ctx.Err(); err != nil {
		return nil, errors.Errorf("context error: %w", err)
	}
	if c.fieldsErr != nil {
		return nil, c.fieldsErr
	}
	t, ok := c.tables[tableID]
	if !ok {
		return nil, errors.Errorf("table %s not found", tableID)
	}
	return append([]table.Field(nil), t.Fields...), nil
}

// FetchRecordsPage implements table.Client. Page tokens are record offsets.
func (c *Client) FetchRecordsPage(ctx context.Context, tableID string, pageToken string, pageSize int) (table.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls.FetchPage++

	if err := ctx.Err(); err != nil {
		return table.Page{}, errors.Errorf("context error: %w", err)
	}
	if err, ok := c.pageErrs[c.calls.FetchPage]; ok {
		return table.Page{}, err
	}
	if pageSize < 1 {
		return table.Page{}, errors.Errorf("invalid page size %d", pageSize)
	}
	t, ok := c.tables[tableID]
	if !ok {
		return table.Page{}, errors.Errorf("table %s not found", tableID)
	}

	start := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 0 || n > len(t.Records) {
			return table.Page{}, errors.Errorf("invalid page token %q", pageToken)
		}
		start = n
	}
	end := min(start+pageSize, len(t.Records))

	page := table.Page{Records: make([]table.Record, 0, end-start)}
	for _, r := range t.Records[start:end] {
		page.Records = append(page.Records, cloneRecord(r))
	}
	if end < len(t.Records) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

// BatchUpdate implements table.Client. A batch is all-or-nothing: an unknown
// record id fails the whole call before anything is written.
func (c *Client) BatchUpdate(ctx context.Context, tableID string, updates []table.RecordUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls.BatchUpdate++
	c.batches = append(c.batches, append([]table.RecordUpdate(nil), updates...))

	if err := ctx.Err(); err != nil {
		return errors.Errorf("context error: %w", err)
	}
	if err, ok := c.batchErrs[c.calls.BatchUpdate]; ok {
		return err
	}
	if len(updates) > config.MaxBatchSize {
		return errors.Errorf("batch of %d exceeds limit %d", len(updates), config.MaxBatchSize)
	}
	t, ok := c.tables[tableID]
	if !ok {
		return errors.Errorf("table %s not found", tableID)
	}

	index := make(map[string]int, len(t.Records))
	for i, r := range t.Records {
		index[r.ID] = i
	}
	for _, u := range updates {
		if _, ok := index[u.RecordID]; !ok {
			return errors.Errorf("record %s not found", u.RecordID)
		}
	}
	for _, u := range updates {
		rec := &t.Records[index[u.RecordID]]
		if rec.Fields == nil {
			rec.Fields = map[string]any{}
		}
		for k, v := range u.Fields {
			rec.Fields[k] = v
		}
	}
	return nil
}

func cloneRecord(r table.Record) table.Record {
	fields := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return table.Record{ID: r.ID, Fields: fields}
}
