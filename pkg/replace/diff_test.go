package replace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/bitablerc/pkg/table"
	"github.com/walteh/bitablerc/pkg/text"
)

func TestDiffRecord(t *testing.T) {
	tests := []struct {
		name        string
		fields      map[string]any
		names       []string
		pattern     string
		mode        text.Mode
		replacement string
		want        []table.FieldDiff
	}{
		{
			name:        "global_literal_replace",
			fields:      map[string]any{"Title": "foo bar foo"},
			names:       []string{"Title"},
			pattern:     "foo",
			replacement: "baz",
			want:        []table.FieldDiff{{FieldName: "Title", Before: "foo bar foo", After: "baz bar baz"}},
		},
		{
			name:        "no_match",
			fields:      map[string]any{"Title": "hello"},
			names:       []string{"Title"},
			pattern:     "foo",
			replacement: "baz",
		},
		{
			name:        "non_string_value_skipped",
			fields:      map[string]any{"Title": 42.0, "Notes": []any{"foo"}},
			names:       []string{"Title", "Notes"},
			pattern:     "foo",
			replacement: "baz",
		},
		{
			name:        "missing_field_skipped",
			fields:      map[string]any{"Notes": "foo"},
			names:       []string{"Title", "Notes"},
			pattern:     "foo",
			replacement: "baz",
			want:        []table.FieldDiff{{FieldName: "Notes", Before: "foo", After: "baz"}},
		},
		{
			name:        "non_text_field_ignored",
			fields:      map[string]any{"Title": "foo", "Other": "foo"},
			names:       []string{"Title"},
			pattern:     "foo",
			replacement: "baz",
			want:        []table.FieldDiff{{FieldName: "Title", Before: "foo", After: "baz"}},
		},
		{
			name:        "field_order_follows_names",
			fields:      map[string]any{"A": "foo", "B": "foo"},
			names:       []string{"B", "A"},
			pattern:     "foo",
			replacement: "x",
			want: []table.FieldDiff{
				{FieldName: "B", Before: "foo", After: "x"},
				{FieldName: "A", Before: "foo", After: "x"},
			},
		},
		{
			name:        "empty_replacement_deletes",
			fields:      map[string]any{"Title": "a-b-c"},
			names:       []string{"Title"},
			pattern:     "-",
			replacement: "",
			want:        []table.FieldDiff{{FieldName: "Title", Before: "a-b-c", After: "abc"}},
		},
		{
			name:        "same_value_replacement_is_no_change",
			fields:      map[string]any{"Title": "foo"},
			names:       []string{"Title"},
			pattern:     "foo",
			replacement: "foo",
		},
		{
			name:        "regex_with_group",
			fields:      map[string]any{"Title": "v1.2 and v3.4"},
			names:       []string{"Title"},
			pattern:     `v(\d+)\.(\d+)`,
			mode:        text.ModeRegex,
			replacement: "$1-$2",
			want:        []table.FieldDiff{{FieldName: "Title", Before: "v1.2 and v3.4", After: "1-2 and 3-4"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := text.NewMatcher(tt.pattern, tt.mode)
			require.NoError(t, err, "matcher should compile")

			rec := table.Record{ID: "r1", Fields: tt.fields}
			diff, changed := DiffRecord(rec, tt.names, m, tt.replacement)

			if tt.want == nil {
				assert.False(t, changed, "record should not change")
				assert.Empty(t, diff.Diffs)
				return
			}
			assert.True(t, changed, "record should change")
			assert.Equal(t, "r1", diff.RecordID)
			assert.Equal(t, tt.want, diff.Diffs)
		})
	}
}

func TestDiffRecord_Idempotent(t *testing.T) {
	tests := []struct {
		name        string
		before      string
		pattern     string
		replacement string
		rediffs     bool
	}{
		{name: "replacement_without_pattern", before: "foo bar foo", pattern: "foo", replacement: "baz"},
		{name: "replacement_contains_pattern", before: "foo", pattern: "foo", replacement: "foofoo", rediffs: true},
		{name: "deletion", before: "a foo b", pattern: "foo", replacement: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := text.NewMatcher(tt.pattern, text.ModeLiteral)
			require.NoError(t, err)

			first, ok := DiffRecord(table.Record{ID: "r1", Fields: map[string]any{"Title": tt.before}}, []string{"Title"}, m, tt.replacement)
			require.True(t, ok, "first diff should change the record")

			after := first.Diffs[0].After
			_, again := DiffRecord(table.Record{ID: "r1", Fields: map[string]any{"Title": after}}, []string{"Title"}, m, tt.replacement)
			assert.Equal(t, tt.rediffs, again, "re-diffing the new value")
		})
	}
}

func TestDiffRecord_DoesNotMutateRecord(t *testing.T) {
	m, err := text.NewMatcher("foo", text.ModeLiteral)
	require.NoError(t, err)

	rec := table.Record{ID: "r1", Fields: map[string]any{"Title": "foo"}}
	_, ok := DiffRecord(rec, []string{"Title"}, m, "baz")
	require.True(t, ok)
	assert.Equal(t, "foo", rec.Fields["Title"], "record snapshot should be unchanged")
}
