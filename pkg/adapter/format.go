package adapter

import "fmt"

// Shared formatting helpers used by the concrete adapters. These are free
// functions rather than methods on a common base type so that unrelated
// paradigms are not forced through one superclass's assumptions.

// FormatBytes renders a byte count as a human-readable size string.
func FormatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// SyntheticResult builds the single-row QueryResult shape used for
// non-row-returning operations: one row carrying the backend's native return
// value under the given field name, with RowCount holding the affected count.
func SyntheticResult(field string, value interface{}, affected int64) *QueryResult {
	return &QueryResult{
		Rows:     []Row{{field: value}},
		RowCount: affected,
		Fields:   []FieldDescriptor{{Name: field, DataType: "text", Nullable: true}},
	}
}

// RowsResult builds a QueryResult from rows that share the given field
// descriptors, with RowCount equal to the number of rows.
func RowsResult(rows []Row, fields []FieldDescriptor) *QueryResult {
	if rows == nil {
		rows = []Row{}
	}
	return &QueryResult{
		Rows:     rows,
		RowCount: int64(len(rows)),
		Fields:   fields,
	}
}
