package replace

import (
	"github.com/walteh/bitablerc/pkg/table"
	"github.com/walteh/bitablerc/pkg/text"
)

// DiffRecord substitutes every match in the record's text fields and returns
// the changed fields in the order of fieldNames. Fields that are missing or do
// not hold a string are skipped. The bool is false when nothing changed.
func DiffRecord(rec table.Record, fieldNames []string, m text.Matcher, replacement string) (table.RecordDiff, bool) {
	diff := table.RecordDiff{RecordID: rec.ID}

	for _, name := range fieldNames {
		v, ok := rec.Fields[name]
		if !ok {
			continue
		}
		before, ok := v.(string)
		if !ok {
			continue
		}

		after, n := m.Replace(before, replacement)
		if n == 0 || after == before {
			continue
		}
		diff.Diffs = append(diff.Diffs, table.FieldDiff{
			FieldName: name,
			Before:    before,
			After:     after,
		})
	}

	return diff, len(diff.Diffs) > 0
}
