package replace

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/walteh/bitablerc/pkg/table"
	"github.com/walteh/bitablerc/pkg/table/memory"
)

// 🔧 MockClient is a mock implementation of the table.Client interface
type MockClient struct {
	mock.Mock
}

func (m *MockClient) ListFields(ctx context.Context, tableID string) ([]table.Field, error) {
	result := m.Called(ctx, tableID)
	fields, _ := result.Get(0).([]table.Field)
	return fields, result.Error(1)
}

func (m *MockClient) FetchRecordsPage(ctx context.Context, tableID string, pageToken string, pageSize int) (table.Page, error) {
	result := m.Called(ctx, tableID, pageToken, pageSize)
	return result.Get(0).(table.Page), result.Error(1)
}

func (m *MockClient) BatchUpdate(ctx context.Context, tableID string, updates []table.RecordUpdate) error {
	result := m.Called(ctx, tableID, updates)
	return result.Error(0)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	if testing.Verbose() {
		return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel).WithContext(context.Background())
	}
	return zerolog.New(os.Stderr).Level(zerolog.Disabled).WithContext(context.Background())
}

var (
	titleField = table.Field{ID: "f1", Name: "Title", Kind: table.KindText}
	notesField = table.Field{ID: "f2", Name: "Notes", Kind: table.KindText}
	countField = table.Field{ID: "f3", Name: "Count", Kind: table.KindNumber}
)

// makeRecords returns n records r001..rNNN whose Title is "foo <i>"
func makeRecords(n int) []table.Record {
	recs := make([]table.Record, n)
	for i := range recs {
		recs[i] = table.Record{
			ID:     fmt.Sprintf("r%03d", i+1),
			Fields: map[string]any{"Title": fmt.Sprintf("foo %d", i+1)},
		}
	}
	return recs
}

func newMemory(fields []table.Field, records ...table.Record) *memory.Client {
	c := memory.New()
	c.AddTable("tbl1", fields, records...)
	return c
}

func makeDiffs(n int) []table.RecordDiff {
	diffs := make([]table.RecordDiff, n)
	for i := range diffs {
		diffs[i] = table.RecordDiff{
			RecordID: fmt.Sprintf("r%03d", i+1),
			Diffs:    []table.FieldDiff{{FieldName: "Title", Before: "foo", After: "baz"}},
		}
	}
	return diffs
}
