package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/bitablerc/pkg/replace"
	"github.com/walteh/bitablerc/pkg/table"
	"github.com/walteh/bitablerc/pkg/table/memory"
	"gitlab.com/tozd/go/errors"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.Client) {
	t.Helper()
	ctx := zerolog.New(os.Stderr).Level(zerolog.Disabled).WithContext(context.Background())

	client := memory.New()
	client.AddTable("tbl1",
		[]table.Field{
			{ID: "f1", Name: "Title", Kind: table.KindText},
			{ID: "f2", Name: "Count", Kind: table.KindNumber},
		},
		table.Record{ID: "r1", Fields: map[string]any{"Title": "foo bar foo", "Count": 1.0}},
		table.Record{ID: "r2", Fields: map[string]any{"Title": "nothing"}},
	)

	eng, err := replace.New(replace.Options{Client: client})
	require.NoError(t, err)

	srv := httptest.NewServer(New(ctx, eng).Handler())
	t.Cleanup(srv.Close)
	return srv, client
}

func do(t *testing.T, method, url, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestServer_Preview(t *testing.T) {
	srv, client := newTestServer(t)

	status, body := do(t, http.MethodPost, srv.URL+"/tables/tbl1/preview", `{"find":"foo","replace":"baz"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["count"])

	diffs := body["diffs"].([]any)
	require.Len(t, diffs, 1)
	d := diffs[0].(map[string]any)
	assert.Equal(t, "r1", d["record_id"])
	fd := d["diffs"].([]any)[0].(map[string]any)
	assert.Equal(t, "Title", fd["field_name"])
	assert.Equal(t, "foo bar foo", fd["before"])
	assert.Equal(t, "baz bar baz", fd["after"])

	assert.Zero(t, client.Calls().Writes(), "preview never writes")
}

func TestServer_Apply(t *testing.T) {
	srv, client := newTestServer(t)

	status, body := do(t, http.MethodPost, srv.URL+"/tables/tbl1/apply", `{"find":"foo","replace":"baz"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["attempted"])
	assert.Equal(t, float64(1), body["succeeded"])
	assert.Equal(t, []any{}, body["failures"])

	assert.Equal(t, "baz bar baz", client.Records("tbl1")[0].Fields["Title"])
}

func TestServer_Fields(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := do(t, http.MethodGet, srv.URL+"/tables/tbl1/fields", "")
	require.Equal(t, http.StatusOK, status)
	fields := body["fields"].([]any)
	require.Len(t, fields, 1)
	assert.Equal(t, "Title", fields[0].(map[string]any)["name"])
	assert.Equal(t, "Text", fields[0].(map[string]any)["kind"])
}

func TestServer_Errors(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		status      int
		errContains string
	}{
		{
			name:        "empty_pattern",
			method:      http.MethodPost,
			path:        "/tables/tbl1/preview",
			body:        `{"find":"","replace":"x"}`,
			status:      http.StatusBadRequest,
			errContains: "invalid pattern",
		},
		{
			name:        "bad_regex",
			method:      http.MethodPost,
			path:        "/tables/tbl1/apply",
			body:        `{"find":"(","regex":true}`,
			status:      http.StatusBadRequest,
			errContains: "invalid pattern",
		},
		{
			name:        "bad_json",
			method:      http.MethodPost,
			path:        "/tables/tbl1/preview",
			body:        `{"find":`,
			status:      http.StatusBadRequest,
			errContains: "decoding body",
		},
		{
			name:        "unknown_field",
			method:      http.MethodPost,
			path:        "/tables/tbl1/preview",
			body:        `{"search":"foo"}`,
			status:      http.StatusBadRequest,
			errContains: "decoding body",
		},
		{
			name:        "unknown_table",
			method:      http.MethodPost,
			path:        "/tables/nope/preview",
			body:        `{"find":"foo"}`,
			status:      http.StatusBadGateway,
			errContains: "schema fetch failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, client := newTestServer(t)

			status, body := do(t, tt.method, srv.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Contains(t, body["error"], tt.errContains)
			assert.Zero(t, client.Calls().Writes())
		})
	}
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid_pattern", err: errors.Errorf("preview: %w", replace.ErrInvalidPattern), want: http.StatusBadRequest},
		{name: "schema_fetch", err: replace.ErrSchemaFetch, want: http.StatusBadGateway},
		{name: "record_fetch", err: errors.Errorf("walk: %w", replace.ErrRecordFetch), want: http.StatusBadGateway},
		{name: "other", err: assert.AnError, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
