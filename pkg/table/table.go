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

package table

import (
	"context"
)

// Client is the primary interface for talking to a remote table service (e.g. Feishu Bitable)
type Client interface {
	// ListFields returns every field declared on the table
	ListFields(ctx context.Context, tableID string) ([]Field, error)
	// FetchRecordsPage returns one page of records starting at pageToken ("" for the first page)
	FetchRecordsPage(ctx context.Context, tableID string, pageToken string, pageSize int) (Page, error)
	// BatchUpdate writes new field values for a group of records in a single call
	BatchUpdate(ctx context.Context, tableID string, updates []RecordUpdate) error
}

// Pinger is implemented by clients that can check their credentials without reading a table.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Limits is implemented by clients that know the remote API's size caps.
type Limits interface {
	MaxPageSize() int
	MaxBatchSize() int
}

// 📄 Field is a column of a table
type Field struct {
	ID   string    `json:"id" yaml:"id"`
	Name string    `json:"name" yaml:"name"`
	Kind FieldKind `json:"kind" yaml:"kind"`
}

// 📦 Record is a read-only snapshot of one row. Values are whatever the API
// returned: strings, numbers, bools or structured values.
type Record struct {
	ID     string         `json:"id" yaml:"id"`
	Fields map[string]any `json:"fields" yaml:"fields"`
}

// Page is a single page of a record listing.
type Page struct {
	Records []Record
	// NextPageToken is empty when there are no more pages
	NextPageToken string
}

// HasMore reports whether another page can be requested.
func (p Page) HasMore() bool {
	return p.NextPageToken != ""
}

// 🔄 FieldDiff is a before/after pair for a single field. Before never equals After.
type FieldDiff struct {
	FieldName string `json:"field_name"`
	Before    string `json:"before"`
	After     string `json:"after"`
}

// RecordDiff holds every changed field of one record, in field order. It is
// never empty.
type RecordDiff struct {
	RecordID string      `json:"record_id"`
	Diffs    []FieldDiff `json:"diffs"`
}

// Update converts the diff into the write payload: only changed fields, with
// their new values.
func (d RecordDiff) Update() RecordUpdate {
	fields := make(map[string]any, len(d.Diffs))
	for _, fd := range d.Diffs {
		fields[fd.FieldName] = fd.After
	}
	return RecordUpdate{RecordID: d.RecordID, Fields: fields}
}

// RecordUpdate is the payload for one record inside a batch write.
type RecordUpdate struct {
	RecordID string         `json:"record_id"`
	Fields   map[string]any `json:"fields"`
}

// Failure is a record that could not be written, with the reason reported by
// the batch it belonged to.
type Failure struct {
	RecordID string `json:"record_id"`
	Reason   string `json:"reason"`
}

// 📊 BatchResult aggregates the outcome of applying diffs.
type BatchResult struct {
	Attempted int       `json:"attempted"`
	Succeeded int       `json:"succeeded"`
	Failures  []Failure `json:"failures"`
}

// Failed returns the number of records that were not written.
func (r BatchResult) Failed() int {
	return len(r.Failures)
}

// OK reports whether every attempted record was written.
func (r BatchResult) OK() bool {
	return len(r.Failures) == 0
}
