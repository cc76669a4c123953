package adapter

// Row is one result row: a mapping from field name to value.
type Row map[string]interface{}

// FieldDescriptor describes one field of a QueryResult.
type FieldDescriptor struct {
	Name     string  `json:"name"`
	DataType string  `json:"dataType"` // backend-native type name, not normalized
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
}

// QueryResult is the uniform shape every ExecuteQuery call returns, including
// on non-tabular backends. For non-row-returning operations Rows holds a
// single synthetic row carrying the native return value and RowCount carries
// the affected-row count; otherwise RowCount equals len(Rows).
type QueryResult struct {
	Rows     []Row             `json:"rows"`
	RowCount int64             `json:"rowCount"`
	Fields   []FieldDescriptor `json:"fields"`
}

// TableKind classifies a queryable structure.
type TableKind string

const (
	TableKindTable            TableKind = "table"
	TableKindView             TableKind = "view"
	TableKindMaterializedView TableKind = "materialized view"
)

// TableInfo represents one queryable structure, real or synthesized (key-value
// backends fabricate one per key-prefix pattern).
type TableInfo struct {
	Name        string           `json:"name"`
	Schema      string           `json:"schema,omitempty"`
	Kind        TableKind        `json:"kind"`
	Columns     []ColumnInfo     `json:"columns"`
	Indexes     []IndexInfo      `json:"indexes,omitempty"`
	Constraints []ConstraintInfo `json:"constraints,omitempty"`
}

// ColumnInfo describes one column of a TableInfo.
type ColumnInfo struct {
	Name         string  `json:"name"`
	DataType     string  `json:"dataType"`
	Nullable     bool    `json:"nullable"`
	Default      *string `json:"default,omitempty"`
	IsPrimaryKey bool    `json:"isPrimaryKey,omitempty"`
	IsForeignKey bool    `json:"isForeignKey,omitempty"`
	Length       *int    `json:"length,omitempty"`
	Precision    *int    `json:"precision,omitempty"`
	Scale        *int    `json:"scale,omitempty"`
}

// IndexInfo describes one index of a TableInfo.
type IndexInfo struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
	Kind    string   `json:"kind,omitempty"`
}

// ConstraintKind classifies a table constraint.
type ConstraintKind string

const (
	ConstraintPrimaryKey ConstraintKind = "primary key"
	ConstraintForeignKey ConstraintKind = "foreign key"
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintCheck      ConstraintKind = "check"
	ConstraintNotNull    ConstraintKind = "not null"
)

// ConstraintInfo describes one constraint of a TableInfo.
type ConstraintInfo struct {
	Name              string         `json:"name"`
	Kind              ConstraintKind `json:"kind"`
	Columns           []string       `json:"columns,omitempty"`
	ReferencedTable   string         `json:"referencedTable,omitempty"`
	ReferencedColumns []string       `json:"referencedColumns,omitempty"`
}

// DatabaseStats holds aggregate metrics about one backend. Backends that
// cannot report a metric populate it with a zero or placeholder value.
type DatabaseStats struct {
	TableCount        int    `json:"tableCount"`
	ViewCount         int    `json:"viewCount"`
	IndexCount        int    `json:"indexCount"`
	Size              string `json:"size"` // human-readable, never empty
	ActiveConnections int    `json:"activeConnections"`
}
