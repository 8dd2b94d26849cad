package replace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/bitablerc/pkg/config"
	"github.com/walteh/bitablerc/pkg/table"
	"gitlab.com/tozd/go/errors"
)

type stateRecorder struct {
	runs   map[string]bool
	states []RunState
}

func (s *stateRecorder) observe(ev Event) {
	if s.runs == nil {
		s.runs = map[string]bool{}
	}
	s.runs[ev.RunID] = true
	s.states = append(s.states, ev.State)
}

func newEngine(t *testing.T, client table.Client, batchSize int, obs Observer) *Engine {
	t.Helper()
	eng, err := New(Options{Client: client, BatchSize: batchSize, Observer: obs})
	require.NoError(t, err, "creating engine should succeed")
	return eng
}

func TestEngine_Preview(t *testing.T) {
	ctx := testContext(t)
	client := newMemory([]table.Field{titleField, countField},
		table.Record{ID: "r1", Fields: map[string]any{"Title": "foo bar foo", "Count": 3.0}},
		table.Record{ID: "r2", Fields: map[string]any{"Title": "nothing here"}},
	)
	rec := &stateRecorder{}
	eng := newEngine(t, client, 0, rec.observe)

	diffs, err := eng.Preview(ctx, Request{TableID: "tbl1", Pattern: "foo", Replacement: "baz"})
	require.NoError(t, err, "Preview should succeed")

	assert.Equal(t, []table.RecordDiff{{
		RecordID: "r1",
		Diffs:    []table.FieldDiff{{FieldName: "Title", Before: "foo bar foo", After: "baz bar baz"}},
	}}, diffs)
	assert.Equal(t, []RunState{StateClassifyingFields, StatePaginating, StateDiffing, StatePreviewing, StateDone}, rec.states)
	assert.Zero(t, client.Calls().Writes(), "preview never writes")
}

func TestEngine_PreviewIsRepeatable(t *testing.T) {
	ctx := testContext(t)
	client := newMemory([]table.Field{titleField}, makeRecords(120)...)
	eng := newEngine(t, client, 0, nil)
	req := Request{TableID: "tbl1", Pattern: "foo", Replacement: "baz"}

	first, err := eng.Preview(ctx, req)
	require.NoError(t, err)
	second, err := eng.Preview(ctx, req)
	require.NoError(t, err)

	assert.Len(t, first, 120)
	assert.Equal(t, first, second, "previews of an unchanged table should match")
	assert.Zero(t, client.Calls().Writes(), "preview never writes")
}

func TestEngine_InvalidPattern(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{name: "empty_literal", req: Request{TableID: "tbl1", Pattern: "", Replacement: "x"}},
		{name: "empty_regex", req: Request{TableID: "tbl1", Pattern: "", Regex: true}},
		{name: "bad_regex", req: Request{TableID: "tbl1", Pattern: "(", Regex: true}},
		{name: "regex_matches_empty", req: Request{TableID: "tbl1", Pattern: "a*", Regex: true}},
		{name: "regex_zero_width", req: Request{TableID: "tbl1", Pattern: `\b`, Replacement: "X", Regex: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			client := &MockClient{}
			eng := newEngine(t, client, 0, nil)

			_, err := eng.Preview(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPattern), "preview should report an invalid pattern")

			_, err = eng.Apply(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPattern), "apply should report an invalid pattern")

			assert.Empty(t, client.Calls, "no remote call should be made")
		})
	}
}

func TestEngine_WhitespacePatternAllowed(t *testing.T) {
	ctx := testContext(t)
	client := newMemory([]table.Field{titleField}, table.Record{ID: "r1", Fields: map[string]any{"Title": "a  b"}})
	eng := newEngine(t, client, 0, nil)

	diffs, err := eng.Preview(ctx, Request{TableID: "tbl1", Pattern: "  ", Replacement: " "})
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	assert.Equal(t, "a b", diffs[0].Diffs[0].After)
}

func TestEngine_MissingTableID(t *testing.T) {
	client := &MockClient{}
	eng := newEngine(t, client, 0, nil)

	_, err := eng.Preview(testContext(t), Request{Pattern: "foo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table id is required")
	assert.Empty(t, client.Calls)
}

func TestEngine_NoTextFields(t *testing.T) {
	ctx := testContext(t)
	client := newMemory([]table.Field{countField}, makeRecords(3)...)
	rec := &stateRecorder{}
	eng := newEngine(t, client, 0, rec.observe)
	req := Request{TableID: "tbl1", Pattern: "foo", Replacement: "baz"}

	diffs, err := eng.Preview(ctx, req)
	require.NoError(t, err, "no text fields is not an error")
	assert.Empty(t, diffs)
	assert.NotNil(t, diffs, "empty diffs should still be a list")

	result, err := eng.Apply(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, table.BatchResult{}, result)

	assert.Zero(t, client.Calls().FetchPage, "records are never read")
	assert.Zero(t, client.Calls().Writes())
	assert.Equal(t, []RunState{StateClassifyingFields, StateDone, StateClassifyingFields, StateDone}, rec.states)
}

func TestEngine_ReadFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *MockClient)
		kind  error
	}{
		{
			name: "schema_fetch",
			setup: func(c *MockClient) {
				c.On("ListFields", mock.Anything, "tbl1").Return(nil, assert.AnError)
			},
			kind: ErrSchemaFetch,
		},
		{
			name: "record_fetch_on_second_page",
			setup: func(c *MockClient) {
				c.On("ListFields", mock.Anything, "tbl1").Return([]table.Field{titleField}, nil)
				c.On("FetchRecordsPage", mock.Anything, "tbl1", "", 100).Return(table.Page{
					Records:       []table.Record{{ID: "r1", Fields: map[string]any{"Title": "foo"}}},
					NextPageToken: "p2",
				}, nil)
				c.On("FetchRecordsPage", mock.Anything, "tbl1", "p2", 100).Return(table.Page{}, assert.AnError)
			},
			kind: ErrRecordFetch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			client := &MockClient{}
			tt.setup(client)
			rec := &stateRecorder{}
			eng := newEngine(t, client, 0, rec.observe)
			req := Request{TableID: "tbl1", Pattern: "foo", Replacement: "baz"}

			diffs, err := eng.Preview(ctx, req)
			require.Error(t, err)
			assert.Nil(t, diffs, "a failed run yields nothing")
			assert.True(t, errors.Is(err, tt.kind), "error kind")
			assert.True(t, errors.Is(err, assert.AnError), "error cause")
			assert.Equal(t, StateFailed, rec.states[len(rec.states)-1])

			result, err := eng.Apply(ctx, req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind))
			assert.Equal(t, table.BatchResult{}, result)
			client.AssertNotCalled(t, "BatchUpdate", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestEngine_Apply(t *testing.T) {
	ctx := testContext(t)
	client := newMemory([]table.Field{titleField}, table.Record{ID: "r1", Fields: map[string]any{"Title": "foo bar foo"}})
	rec := &stateRecorder{}
	eng := newEngine(t, client, 0, rec.observe)
	req := Request{TableID: "tbl1", Pattern: "foo", Replacement: "baz"}

	result, err := eng.Apply(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, table.BatchResult{Attempted: 1, Succeeded: 1}, result)
	assert.Equal(t, "baz bar baz", client.Records("tbl1")[0].Fields["Title"])
	assert.Equal(t, []RunState{StateClassifyingFields, StatePaginating, StateDiffing, StateWriting, StateDone}, rec.states)
	assert.Len(t, rec.runs, 1)

	// second apply finds nothing left to change
	again, err := eng.Apply(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, table.BatchResult{}, again)
	assert.Equal(t, 1, client.Calls().Writes())
	assert.Len(t, rec.runs, 2, "each call is its own run")
}

func TestEngine_Apply_PartialFailure(t *testing.T) {
	ctx := testContext(t)
	client := newMemory([]table.Field{titleField}, makeRecords(250)...)
	client.FailBatch(2, assert.AnError)
	eng := newEngine(t, client, 100, nil)

	result, err := eng.Apply(ctx, Request{TableID: "tbl1", Pattern: "foo", Replacement: "baz"})
	require.NoError(t, err, "write failures are reported in the result")

	assert.Equal(t, 250, result.Attempted)
	assert.Equal(t, 150, result.Succeeded)
	assert.Len(t, result.Failures, 100)
	assert.False(t, result.OK())

	for _, b := range client.Batches() {
		assert.LessOrEqual(t, len(b), 100, "no batch exceeds the batch size")
	}

	// only the failed records still match
	diffs, err := eng.Preview(ctx, Request{TableID: "tbl1", Pattern: "foo", Replacement: "baz"})
	require.NoError(t, err)
	assert.Len(t, diffs, 100)
	assert.Equal(t, "r101", diffs[0].RecordID)
}

func TestEngine_Fields(t *testing.T) {
	ctx := testContext(t)

	t.Run("text_fields", func(t *testing.T) {
		eng := newEngine(t, newMemory([]table.Field{titleField, countField, notesField}), 0, nil)
		fields, err := eng.Fields(ctx, "tbl1")
		require.NoError(t, err)
		assert.Equal(t, []string{"Title", "Notes"}, FieldNames(fields))
	})

	t.Run("none", func(t *testing.T) {
		eng := newEngine(t, newMemory([]table.Field{countField}), 0, nil)
		fields, err := eng.Fields(ctx, "tbl1")
		require.NoError(t, err)
		assert.Empty(t, fields)
	})
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		opts        Options
		errContains string
	}{
		{name: "missing_client", opts: Options{}, errContains: "client is required"},
		{name: "bad_batch_size", opts: Options{Client: &MockClient{}, BatchSize: 5000}, errContains: "creating writer"},
		{name: "bad_glob", opts: Options{Client: &MockClient{}, Fields: config.FieldFilter{Include: []string{"[x"}}}, errContains: "creating classifier"},
		{name: "ok", opts: OptionsFromConfig(config.Default(), &MockClient{})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
		})
	}
}
