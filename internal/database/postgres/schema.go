package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/Zyleree/PineMCP/pkg/adapter"
)

// Structural introspection runs as a fixed sequence of catalog queries,
// executed through ExecuteQuery itself and joined by schema-qualified table
// name in memory.

const systemSchemas = "('pg_catalog', 'information_schema')"

// GetTables lists all tables, views and materialized views with their
// columns, indexes and constraints.
func (a *Adapter) GetTables(ctx context.Context) ([]adapter.TableInfo, error) {
	return a.discoverTables(ctx, "", "")
}

// GetTableInfo describes one table. Returns (nil, nil) when the table does
// not exist.
func (a *Adapter) GetTableInfo(ctx context.Context, name, schema string) (*adapter.TableInfo, error) {
	tables, err := a.discoverTables(ctx, name, schema)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, nil
	}
	return &tables[0], nil
}

func (a *Adapter) discoverTables(ctx context.Context, name, schema string) ([]adapter.TableInfo, error) {
	filter, args := tableFilter(name, schema)

	tablesRes, err := a.ExecuteQuery(ctx, fmt.Sprintf(`
		SELECT table_schema, table_name, table_type
		FROM information_schema.tables
		WHERE table_schema NOT IN %s%s
		ORDER BY table_schema, table_name`, systemSchemas, filter), args...)
	if err != nil {
		return nil, err
	}

	matviewsRes, err := a.ExecuteQuery(ctx, fmt.Sprintf(`
		SELECT schemaname AS table_schema, matviewname AS table_name
		FROM pg_matviews
		WHERE schemaname NOT IN %s%s
		ORDER BY schemaname, matviewname`, systemSchemas, matviewFilter(name, schema)), args...)
	if err != nil {
		return nil, err
	}

	tables := make([]adapter.TableInfo, 0, len(tablesRes.Rows)+len(matviewsRes.Rows))
	index := make(map[string]*adapter.TableInfo)

	add := func(schema, name string, kind adapter.TableKind) {
		tables = append(tables, adapter.TableInfo{Name: name, Schema: schema, Kind: kind, Columns: []adapter.ColumnInfo{}})
		index[schema+"."+name] = &tables[len(tables)-1]
	}

	for _, row := range tablesRes.Rows {
		kind := adapter.TableKindTable
		if asString(row["table_type"]) == "VIEW" {
			kind = adapter.TableKindView
		}
		add(asString(row["table_schema"]), asString(row["table_name"]), kind)
	}
	for _, row := range matviewsRes.Rows {
		add(asString(row["table_schema"]), asString(row["table_name"]), adapter.TableKindMaterializedView)
	}

	if len(tables) == 0 {
		return tables, nil
	}

	if err := a.attachColumns(ctx, index, filter, args); err != nil {
		return nil, err
	}
	if err := a.attachConstraints(ctx, index, filter, args); err != nil {
		return nil, err
	}
	if err := a.attachIndexes(ctx, index, name, schema, args); err != nil {
		return nil, err
	}

	return tables, nil
}

// tableFilter scopes the information_schema queries to one table when a name
// is given. Parameters go through placeholders, never string concatenation.
func tableFilter(name, schema string) (string, []interface{}) {
	if name == "" {
		return "", nil
	}
	if schema == "" {
		return " AND table_name = $1", []interface{}{name}
	}
	return " AND table_name = $1 AND table_schema = $2", []interface{}{name, schema}
}

func matviewFilter(name, schema string) string {
	if name == "" {
		return ""
	}
	if schema == "" {
		return " AND matviewname = $1"
	}
	return " AND matviewname = $1 AND schemaname = $2"
}

func (a *Adapter) attachColumns(ctx context.Context, index map[string]*adapter.TableInfo, filter string, args []interface{}) error {
	res, err := a.ExecuteQuery(ctx, fmt.Sprintf(`
		SELECT table_schema, table_name, column_name, data_type, is_nullable,
		       column_default, character_maximum_length, numeric_precision, numeric_scale
		FROM information_schema.columns
		WHERE table_schema NOT IN %s%s
		ORDER BY table_schema, table_name, ordinal_position`, systemSchemas, filter), args...)
	if err != nil {
		return err
	}

	for _, row := range res.Rows {
		key := asString(row["table_schema"]) + "." + asString(row["table_name"])
		table, ok := index[key]
		if !ok {
			continue
		}
		col := adapter.ColumnInfo{
			Name:      asString(row["column_name"]),
			DataType:  asString(row["data_type"]),
			Nullable:  asString(row["is_nullable"]) == "YES",
			Default:   asStringPtr(row["column_default"]),
			Length:    asIntPtr(row["character_maximum_length"]),
			Precision: asIntPtr(row["numeric_precision"]),
			Scale:     asIntPtr(row["numeric_scale"]),
		}
		table.Columns = append(table.Columns, col)
	}
	return nil
}

func (a *Adapter) attachConstraints(ctx context.Context, index map[string]*adapter.TableInfo, filter string, args []interface{}) error {
	// One pass over table_constraints joined with the participating columns;
	// foreign keys additionally pull the referenced side.
	res, err := a.ExecuteQuery(ctx, fmt.Sprintf(`
		SELECT tc.table_schema, tc.table_name, tc.constraint_name, tc.constraint_type,
		       kcu.column_name,
		       ccu.table_name  AS referenced_table,
		       ccu.column_name AS referenced_column
		FROM information_schema.table_constraints tc
		LEFT JOIN information_schema.key_column_usage kcu
		       ON tc.constraint_name = kcu.constraint_name
		      AND tc.table_schema = kcu.table_schema
		LEFT JOIN information_schema.constraint_column_usage ccu
		       ON tc.constraint_name = ccu.constraint_name
		      AND tc.constraint_type = 'FOREIGN KEY'
		WHERE tc.table_schema NOT IN %s%s
		ORDER BY tc.table_schema, tc.table_name, tc.constraint_name, kcu.ordinal_position`,
		systemSchemas, strings.ReplaceAll(filter, "table_name", "tc.table_name")), args...)
	if err != nil {
		return err
	}

	type constraintKey struct{ table, name string }
	grouped := make(map[constraintKey]*adapter.ConstraintInfo)
	order := []constraintKey{}

	for _, row := range res.Rows {
		tableKey := asString(row["table_schema"]) + "." + asString(row["table_name"])
		if _, ok := index[tableKey]; !ok {
			continue
		}
		key := constraintKey{tableKey, asString(row["constraint_name"])}
		c, ok := grouped[key]
		if !ok {
			c = &adapter.ConstraintInfo{
				Name: asString(row["constraint_name"]),
				Kind: constraintKind(asString(row["constraint_type"])),
			}
			grouped[key] = c
			order = append(order, key)
		}
		if col := asString(row["column_name"]); col != "" && !contains(c.Columns, col) {
			c.Columns = append(c.Columns, col)
		}
		if ref := asString(row["referenced_table"]); ref != "" {
			c.ReferencedTable = ref
			if refCol := asString(row["referenced_column"]); refCol != "" && !contains(c.ReferencedColumns, refCol) {
				c.ReferencedColumns = append(c.ReferencedColumns, refCol)
			}
		}
	}

	for _, key := range order {
		c := grouped[key]
		table := index[key.table]
		table.Constraints = append(table.Constraints, *c)

		// Mirror key membership onto the column flags.
		for i := range table.Columns {
			if !contains(c.Columns, table.Columns[i].Name) {
				continue
			}
			switch c.Kind {
			case adapter.ConstraintPrimaryKey:
				table.Columns[i].IsPrimaryKey = true
			case adapter.ConstraintForeignKey:
				table.Columns[i].IsForeignKey = true
			}
		}
	}
	return nil
}

func (a *Adapter) attachIndexes(ctx context.Context, index map[string]*adapter.TableInfo, name, schema string, args []interface{}) error {
	filter := ""
	if name != "" {
		filter = " AND tablename = $1"
		if schema != "" {
			filter += " AND schemaname = $2"
		}
	}

	res, err := a.ExecuteQuery(ctx, fmt.Sprintf(`
		SELECT schemaname, tablename, indexname, indexdef
		FROM pg_indexes
		WHERE schemaname NOT IN %s%s
		ORDER BY schemaname, tablename, indexname`, systemSchemas, filter), args...)
	if err != nil {
		return err
	}

	for _, row := range res.Rows {
		key := asString(row["schemaname"]) + "." + asString(row["tablename"])
		table, ok := index[key]
		if !ok {
			continue
		}
		def := asString(row["indexdef"])
		table.Indexes = append(table.Indexes, adapter.IndexInfo{
			Name:    asString(row["indexname"]),
			Columns: indexColumns(def),
			Unique:  strings.Contains(def, "UNIQUE INDEX"),
			Kind:    indexKind(def),
		})
	}
	return nil
}

// GetDatabaseStats collects aggregate metrics from the catalog.
func (a *Adapter) GetDatabaseStats(ctx context.Context) (*adapter.DatabaseStats, error) {
	res, err := a.ExecuteQuery(ctx, fmt.Sprintf(`
		SELECT
			(SELECT count(*) FROM information_schema.tables
			 WHERE table_schema NOT IN %s AND table_type = 'BASE TABLE') AS table_count,
			(SELECT count(*) FROM information_schema.tables
			 WHERE table_schema NOT IN %s AND table_type = 'VIEW') AS view_count,
			(SELECT count(*) FROM pg_indexes
			 WHERE schemaname NOT IN %s) AS index_count,
			pg_size_pretty(pg_database_size(current_database())) AS size,
			(SELECT count(*) FROM pg_stat_activity
			 WHERE datname = current_database()) AS active_connections`,
		systemSchemas, systemSchemas, systemSchemas))
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return &adapter.DatabaseStats{Size: "0 B"}, nil
	}

	row := res.Rows[0]
	stats := &adapter.DatabaseStats{
		TableCount:        asInt(row["table_count"]),
		ViewCount:         asInt(row["view_count"]),
		IndexCount:        asInt(row["index_count"]),
		Size:              asString(row["size"]),
		ActiveConnections: asInt(row["active_connections"]),
	}
	if stats.Size == "" {
		stats.Size = "0 B"
	}
	return stats, nil
}

func constraintKind(constraintType string) adapter.ConstraintKind {
	switch constraintType {
	case "PRIMARY KEY":
		return adapter.ConstraintPrimaryKey
	case "FOREIGN KEY":
		return adapter.ConstraintForeignKey
	case "UNIQUE":
		return adapter.ConstraintUnique
	case "CHECK":
		return adapter.ConstraintCheck
	default:
		return adapter.ConstraintKind(strings.ToLower(constraintType))
	}
}

// indexColumns extracts the column list from a pg_indexes indexdef, e.g.
// "CREATE UNIQUE INDEX users_pkey ON public.users USING btree (id)".
func indexColumns(indexdef string) []string {
	start := strings.Index(indexdef, "(")
	end := strings.LastIndex(indexdef, ")")
	if start < 0 || end <= start {
		return nil
	}
	parts := strings.Split(indexdef[start+1:end], ",")
	columns := make([]string, 0, len(parts))
	for _, p := range parts {
		columns = append(columns, strings.TrimSpace(p))
	}
	return columns
}

func indexKind(indexdef string) string {
	idx := strings.Index(indexdef, "USING ")
	if idx < 0 {
		return ""
	}
	rest := indexdef[idx+len("USING "):]
	if sp := strings.IndexAny(rest, " ("); sp > 0 {
		return rest[:sp]
	}
	return rest
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// Value coercion helpers for rows coming back through ExecuteQuery, where
// every value is an interface{} decoded by the driver.

func asString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}

func asStringPtr(v interface{}) *string {
	if v == nil {
		return nil
	}
	s := asString(v)
	return &s
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func asIntPtr(v interface{}) *int {
	if v == nil {
		return nil
	}
	n := asInt(v)
	return &n
}
