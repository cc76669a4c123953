package mongodb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/Zyleree/PineMCP/pkg/adapter"
	"github.com/Zyleree/PineMCP/pkg/dbcapabilities"
)

// collectionSpec is the shape of ListCollections output we care about.
type collectionSpec struct {
	Name string `bson:"name"`
	Type string `bson:"type"`
}

// indexSpec is the shape of Indexes().List output we care about.
type indexSpec struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique bool   `bson:"unique"`
}

// GetTables lists user collections and views, sorted by name.
func (a *Adapter) GetTables(ctx context.Context) ([]adapter.TableInfo, error) {
	if !a.IsConnected() {
		return nil, adapter.WrapQueryError(dbcapabilities.MongoDB, "list_tables", "", nil, adapter.ErrNotConnected)
	}

	specs, err := a.listCollections(ctx, "")
	if err != nil {
		return nil, adapter.WrapQueryError(dbcapabilities.MongoDB, "list_tables", "", nil, err)
	}

	tables := make([]adapter.TableInfo, 0, len(specs))
	for _, spec := range specs {
		info, err := a.describeCollection(ctx, spec)
		if err != nil {
			return nil, adapter.WrapQueryError(dbcapabilities.MongoDB, "list_tables", "", nil, err)
		}
		tables = append(tables, *info)
	}

	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	return tables, nil
}

// GetTableInfo describes a single collection, or returns (nil, nil) when no
// collection of that name exists. The schema parameter has no meaning here.
func (a *Adapter) GetTableInfo(ctx context.Context, tableName string, _ string) (*adapter.TableInfo, error) {
	if !a.IsConnected() {
		return nil, adapter.WrapQueryError(dbcapabilities.MongoDB, "describe_table", tableName, nil, adapter.ErrNotConnected)
	}

	name, err := sanitizeCollectionName(tableName)
	if err != nil {
		return nil, adapter.WrapQueryError(dbcapabilities.MongoDB, "describe_table", tableName, nil,
			fmt.Errorf("%w: %v", adapter.ErrInvalidQuery, err))
	}

	specs, err := a.listCollections(ctx, name)
	if err != nil {
		return nil, adapter.WrapQueryError(dbcapabilities.MongoDB, "describe_table", tableName, nil, err)
	}
	if len(specs) == 0 {
		return nil, nil
	}

	info, err := a.describeCollection(ctx, specs[0])
	if err != nil {
		return nil, adapter.WrapQueryError(dbcapabilities.MongoDB, "describe_table", tableName, nil, err)
	}
	return info, nil
}

func (a *Adapter) listCollections(ctx context.Context, name string) ([]collectionSpec, error) {
	filter := bson.D{}
	if name != "" {
		filter = bson.D{{Key: "name", Value: name}}
	}

	cursor, err := a.db.ListCollections(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing collections: %w", err)
	}
	defer cursor.Close(ctx)

	var specs []collectionSpec
	if err := cursor.All(ctx, &specs); err != nil {
		return nil, fmt.Errorf("error decoding collection list: %w", err)
	}

	filtered := specs[:0]
	for _, spec := range specs {
		if strings.HasPrefix(spec.Name, "system.") {
			continue
		}
		filtered = append(filtered, spec)
	}
	return filtered, nil
}

// describeCollection infers a column shape from one sampled document and
// attaches the collection's indexes.
func (a *Adapter) describeCollection(ctx context.Context, spec collectionSpec) (*adapter.TableInfo, error) {
	info := &adapter.TableInfo{
		Name: spec.Name,
		Kind: adapter.TableKindTable,
	}
	if spec.Type == "view" {
		info.Kind = adapter.TableKindView
	}

	coll := a.db.Collection(spec.Name)

	var sample map[string]interface{}
	err := coll.FindOne(ctx, bson.D{}).Decode(&sample)
	if err != nil && err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("error sampling collection %s: %w", spec.Name, err)
	}
	info.Columns = inferColumns(sample)

	if info.Kind == adapter.TableKindTable {
		indexes, err := a.listIndexes(ctx, coll)
		if err != nil {
			return nil, err
		}
		info.Indexes = indexes
	}
	return info, nil
}

func (a *Adapter) listIndexes(ctx context.Context, coll *mongo.Collection) ([]adapter.IndexInfo, error) {
	cursor, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing indexes for %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	var specs []indexSpec
	if err := cursor.All(ctx, &specs); err != nil {
		return nil, fmt.Errorf("error decoding indexes for %s: %w", coll.Name(), err)
	}

	indexes := make([]adapter.IndexInfo, 0, len(specs))
	for _, spec := range specs {
		columns := make([]string, 0, len(spec.Key))
		for _, elem := range spec.Key {
			columns = append(columns, elem.Key)
		}
		indexes = append(indexes, adapter.IndexInfo{
			Name:    spec.Name,
			Columns: columns,
			Unique:  spec.Unique || spec.Name == "_id_",
		})
	}
	return indexes, nil
}

// inferColumns derives a best-effort column list from a sampled document.
// An empty collection yields no columns.
func inferColumns(sample map[string]interface{}) []adapter.ColumnInfo {
	if len(sample) == 0 {
		return nil
	}

	names := make([]string, 0, len(sample))
	for name := range sample {
		names = append(names, name)
	}
	sort.Strings(names)

	columns := make([]adapter.ColumnInfo, 0, len(names))
	for _, name := range names {
		columns = append(columns, adapter.ColumnInfo{
			Name:         name,
			DataType:     bsonTypeName(sample[name]),
			Nullable:     name != "_id",
			IsPrimaryKey: name == "_id",
		})
	}
	return columns
}

// documentFields builds field descriptors from one result document.
func documentFields(doc map[string]interface{}) []adapter.FieldDescriptor {
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]adapter.FieldDescriptor, 0, len(names))
	for _, name := range names {
		fields = append(fields, adapter.FieldDescriptor{
			Name:     name,
			DataType: bsonTypeName(doc[name]),
			Nullable: true,
		})
	}
	return fields
}

// bsonTypeName names a decoded value with its backend type vocabulary.
func bsonTypeName(value interface{}) string {
	switch value.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case int32:
		return "int"
	case int64:
		return "long"
	case float64:
		return "double"
	case string:
		return "string"
	case bson.ObjectID:
		return "objectId"
	case bson.DateTime, time.Time:
		return "date"
	case bson.Decimal128:
		return "decimal"
	case bson.Binary:
		return "binData"
	case bson.A, []interface{}:
		return "array"
	case bson.M, bson.D, map[string]interface{}:
		return "object"
	default:
		return "mixed"
	}
}

// GetDatabaseStats reports collection counts and data size from dbStats.
// Metrics the server does not report come back as placeholders.
func (a *Adapter) GetDatabaseStats(ctx context.Context) (*adapter.DatabaseStats, error) {
	if !a.IsConnected() {
		return nil, adapter.WrapQueryError(dbcapabilities.MongoDB, "stats", "", nil, adapter.ErrNotConnected)
	}

	stats := &adapter.DatabaseStats{Size: "0 B"}

	var out bson.M
	if err := a.db.RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}).Decode(&out); err != nil {
		// Stats are best effort: an unreportable server still yields placeholders.
		return stats, nil
	}

	stats.TableCount = int(asInt64(out["collections"]))
	stats.ViewCount = int(asInt64(out["views"]))
	stats.IndexCount = int(asInt64(out["indexes"]))
	if size := asInt64(out["dataSize"]); size > 0 {
		stats.Size = adapter.FormatBytes(size)
	}
	return stats, nil
}

// asInt64 normalizes the numeric types bson decoding may produce.
func asInt64(value interface{}) int64 {
	switch v := value.(type) {
	case int32:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case int:
		return int64(v)
	default:
		return 0
	}
}
