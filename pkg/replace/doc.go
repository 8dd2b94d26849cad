/*
Package replace implements batch search-and-replace over a remote table.

	+------------+     +-----------+     +--------+     +--------+
	| Classifier | --> | Paginator | --> |  Diff  | --> | Writer |
	| (fields)   |     | (records) |     |        |     |        |
	+------------+     +-----------+     +--------+     +--------+

🎯 Purpose:
- Find the text fields of a table
- Walk every record page by page
- Compute before/after values for each matching field
- Write the new values back in fixed-size batches

🔄 Flow:
Every Preview or Apply is a run with its own id. A run moves through
idle, classifying_fields, paginating, diffing, then previewing or writing,
and ends in done or failed. Apply never reuses an earlier preview.

⚡ Errors:
- ErrInvalidPattern before any remote call
- ErrSchemaFetch and ErrRecordFetch abort the run with nothing written
- ErrNoTextFields becomes an empty result
- ErrBatchWrite is reported per record inside table.BatchResult

🔍 Example:

	eng, err := replace.New(replace.Options{Client: client})
	diffs, err := eng.Preview(ctx, replace.Request{TableID: "tbl1", Pattern: "foo", Replacement: "baz"})
	result, err := eng.Apply(ctx, replace.Request{TableID: "tbl1", Pattern: "foo", Replacement: "baz"})
*/
package replace
