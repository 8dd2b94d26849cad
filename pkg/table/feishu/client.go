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

package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/bitablerc/pkg/config"
	"github.com/walteh/bitablerc/pkg/table"
	"gitlab.com/tozd/go/errors"
)

const (
	fieldsPageSize = 100
	maxErrorBody   = 512
)

func init() {
	table.Register("feishu", func(ctx context.Context, cfg *config.Config) (table.Client, error) {
		timeout, err := cfg.Feishu.TimeoutDuration()
		if err != nil {
			return nil, err
		}
		return New(Options{
			BaseURL:           cfg.Feishu.BaseURL,
			AppToken:          cfg.Feishu.AppToken,
			PersonalBaseToken: cfg.Feishu.PersonalBaseToken,
			Timeout:           timeout,
		})
	})
}

// 🔧 Options configures a Client
type Options struct {
	BaseURL           string
	AppToken          string // the base (app) token, also sent as X-Base-Token
	PersonalBaseToken string // bearer token
	Timeout           time.Duration
	HTTPClient        *http.Client // overrides Timeout when set
}

// ErrMissingPageToken is returned when a response reports more pages without
// saying where they start.
var ErrMissingPageToken = errors.Base("has_more set without a page token")

// APIError is a response whose envelope carried a non-zero code.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bitable error %d: %s", e.Code, e.Msg)
}

// 🔌 Client implements table.Client against the Bitable open API
type Client struct {
	baseURL           string
	appToken          string
	personalBaseToken string
	http              *http.Client
}

var (
	_ table.Client = (*Client)(nil)
	_ table.Limits = (*Client)(nil)
	_ table.Pinger = (*Client)(nil)
)

// 🏭 New creates a new Bitable client
func New(opts Options) (*Client, error) {
	if opts.AppToken == "" {
		return nil, errors.Errorf("app token is required")
	}
	if opts.PersonalBaseToken == "" {
		return nil, errors.Errorf("personal base token is required")
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, errors.Errorf("parsing base url: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:           baseURL,
		appToken:          opts.AppToken,
		personalBaseToken: opts.PersonalBaseToken,
		http:              httpClient,
	}, nil
}

func (c *Client) MaxPageSize() int  { return config.MaxPageSize }
func (c *Client) MaxBatchSize() int { return config.MaxBatchSize }

// 🩺 Ping checks that the credentials can read the base
func (c *Client) Ping(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, c.appPath(), nil, nil, nil); err != nil {
		return errors.Errorf("getting base: %w", err)
	}
	return nil
}

// 📂 ListFields returns every field of the table, following field pagination
func (c *Client) ListFields(ctx context.Context, tableID string) ([]table.Field, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("table_id", tableID).Msg("listing fields")

	var fields []table.Field
	pageToken := ""
	for {
		q := url.Values{}
		q.Set("page_size", strconv.Itoa(fieldsPageSize))
		if pageToken != "" {
			q.Set("page_token", pageToken)
		}

		var data listFieldsData
		if err := c.do(ctx, http.MethodGet, c.tablePath(tableID, "fields"), q, nil, &data); err != nil {
			return nil, errors.Errorf("listing fields: %w", err)
		}
		for _, item := range data.Items {
			fields = append(fields, table.Field{
				ID:   item.FieldID,
				Name: item.FieldName,
				Kind: item.kind(),
			})
		}

		if !data.HasMore {
			return fields, nil
		}
		if data.PageToken == "" {
			return nil, errors.Errorf("listing fields: %w", ErrMissingPageToken)
		}
		pageToken = data.PageToken
	}
}

// 📄 FetchRecordsPage returns one page of records
func (c *Client) FetchRecordsPage(ctx context.Context, tableID string, pageToken string, pageSize int) (table.Page, error) {
	zerolog.Ctx(ctx).Debug().
		Str("table_id", tableID).
		Str("page_token", pageToken).
		Int("page_size", pageSize).
		Msg("fetching records page")

	q := url.Values{}
	q.Set("page_size", strconv.Itoa(pageSize))
	if pageToken != "" {
		q.Set("page_token", pageToken)
	}

	var data listRecordsData
	if err := c.do(ctx, http.MethodGet, c.tablePath(tableID, "records"), q, nil, &data); err != nil {
		return table.Page{}, errors.Errorf("listing records: %w", err)
	}

	page := table.Page{Records: make([]table.Record, 0, len(data.Items))}
	for _, item := range data.Items {
		page.Records = append(page.Records, table.Record{ID: item.RecordID, Fields: item.Fields})
	}
	if data.HasMore {
		if data.PageToken == "" {
			return table.Page{}, errors.Errorf("listing records: %w", ErrMissingPageToken)
		}
		page.NextPageToken = data.PageToken
	}
	return page, nil
}

// ✏️ BatchUpdate writes all updates in one batch_update call
func (c *Client) BatchUpdate(ctx context.Context, tableID string, updates []table.RecordUpdate) error {
	zerolog.Ctx(ctx).Debug().Str("table_id", tableID).Int("records", len(updates)).Msg("batch updating records")

	body := batchUpdateRequest{Records: make([]recordItem, 0, len(updates))}
	for _, u := range updates {
		body.Records = append(body.Records, recordItem{RecordID: u.RecordID, Fields: u.Fields})
	}

	if err := c.do(ctx, http.MethodPost, c.tablePath(tableID, "records", "batch_update"), nil, body, nil); err != nil {
		return errors.Errorf("batch updating records: %w", err)
	}
	return nil
}

func (c *Client) appPath() string {
	return "/bitable/v1/apps/" + url.PathEscape(c.appToken)
}

func (c *Client) tablePath(tableID string, parts ...string) string {
	p := c.appPath() + "/tables/" + url.PathEscape(tableID)
	if len(parts) > 0 {
		p += "/" + strings.Join(parts, "/")
	}
	return p
}

// do performs one authenticated request and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Errorf("encoding request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return errors.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.personalBaseToken)
	req.Header.Set("X-Base-Token", c.appToken)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(raw))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return errors.Errorf("HTTP %d: %s", resp.StatusCode, snippet)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return errors.Errorf("decoding response: %w", err)
	}
	if env.Code != 0 {
		return &APIError{Code: env.Code, Msg: env.Msg}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Errorf("decoding response data: %w", err)
	}
	return nil
}
