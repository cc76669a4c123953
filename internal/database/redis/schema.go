package redis

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/Zyleree/PineMCP/pkg/adapter"
	"github.com/Zyleree/PineMCP/pkg/dbcapabilities"
)

// keySeparator splits a key into its prefix pattern. Keys without a separator
// fall into one catch-all synthetic table.
const keySeparator = ":"

// catchAllTable names the synthetic table for keys without a separator.
const catchAllTable = "keys"

// syntheticColumns is the fixed two-column shape every synthetic table gets.
func syntheticColumns() []adapter.ColumnInfo {
	return []adapter.ColumnInfo{
		{Name: "key", DataType: "string", Nullable: false, IsPrimaryKey: true},
		{Name: "value", DataType: "string", Nullable: true},
	}
}

// GetTables synthesizes one TableInfo per distinct key prefix, since the
// backend has no native table concept.
func (a *Adapter) GetTables(ctx context.Context) ([]adapter.TableInfo, error) {
	if !a.IsConnected() {
		return nil, adapter.NewQueryError(dbcapabilities.Redis, "get_tables", "", nil, adapter.ErrNotConnected)
	}

	prefixes, err := a.scanPrefixes(ctx)
	if err != nil {
		return nil, adapter.WrapQueryError(dbcapabilities.Redis, "get_tables", "SCAN", nil, err)
	}

	names := make([]string, 0, len(prefixes))
	for p := range prefixes {
		names = append(names, p)
	}
	sort.Strings(names)

	tables := make([]adapter.TableInfo, 0, len(names))
	for _, name := range names {
		tables = append(tables, adapter.TableInfo{
			Name:    name,
			Kind:    adapter.TableKindTable,
			Columns: syntheticColumns(),
		})
	}
	return tables, nil
}

// GetTableInfo returns the synthetic table for one key prefix, or (nil, nil)
// when no key matches it.
func (a *Adapter) GetTableInfo(ctx context.Context, name, schema string) (*adapter.TableInfo, error) {
	tables, err := a.GetTables(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tables {
		if tables[i].Name == name {
			return &tables[i], nil
		}
	}
	return nil, nil
}

// scanPrefixes walks the key space with SCAN and partitions keys by their
// prefix up to the first separator.
func (a *Adapter) scanPrefixes(ctx context.Context) (map[string]int, error) {
	prefixes := make(map[string]int)

	iter := a.client.Scan(ctx, 0, "*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if idx := strings.Index(key, keySeparator); idx > 0 {
			prefixes[key[:idx]]++
		} else {
			prefixes[catchAllTable]++
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return prefixes, nil
}

// GetDatabaseStats reports synthetic-table counts plus whatever the INFO
// command can provide. Metrics the backend cannot report stay at their
// zero/placeholder values rather than failing the call.
func (a *Adapter) GetDatabaseStats(ctx context.Context) (*adapter.DatabaseStats, error) {
	if !a.IsConnected() {
		return nil, adapter.NewQueryError(dbcapabilities.Redis, "get_database_stats", "", nil, adapter.ErrNotConnected)
	}

	stats := &adapter.DatabaseStats{Size: "0 B"}

	prefixes, err := a.scanPrefixes(ctx)
	if err != nil {
		return nil, adapter.WrapQueryError(dbcapabilities.Redis, "get_database_stats", "SCAN", nil, err)
	}
	stats.TableCount = len(prefixes)

	// INFO sections are best effort: limited builds may omit them.
	if info, err := a.client.Info(ctx).Result(); err == nil {
		if size := infoField(info, "used_memory_human"); size != "" {
			stats.Size = size
		}
		if clients := infoField(info, "connected_clients"); clients != "" {
			if n, err := strconv.Atoi(clients); err == nil {
				stats.ActiveConnections = n
			}
		}
	}

	return stats, nil
}

// infoField extracts one "field:value" line from INFO output.
func infoField(info, field string) string {
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if value, ok := strings.CutPrefix(line, field+":"); ok {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
