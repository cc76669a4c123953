package mongodb

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/Zyleree/PineMCP/pkg/adapter"
	"github.com/Zyleree/PineMCP/pkg/dbcapabilities"
)

const (
	placeholderToken  = `"?"`
	maxCollectionName = 120
)

// collectionNamePattern strips every character outside the allowed set.
var collectionNamePattern = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// deniedOperators are server-side code execution operators. Any descriptor
// carrying one is rejected before it reaches the backend.
var deniedOperators = map[string]struct{}{
	"$where":       {},
	"$function":    {},
	"$accumulator": {},
	"$mapReduce":   {},
}

var supportedOperations = map[string]struct{}{
	"find": {}, "findone": {}, "insertone": {}, "insertmany": {},
	"updateone": {}, "updatemany": {}, "deleteone": {}, "deletemany": {},
	"count": {}, "distinct": {}, "aggregate": {},
}

// command is the structured operation descriptor accepted by ExecuteQuery.
type command struct {
	Collection string                   `json:"collection"`
	Operation  string                   `json:"operation"`
	Filter     map[string]interface{}   `json:"filter"`
	Update     map[string]interface{}   `json:"update"`
	Document   map[string]interface{}   `json:"document"`
	Documents  []map[string]interface{} `json:"documents"`
	Field      string                   `json:"field"`
	Pipeline   []map[string]interface{} `json:"pipeline"`
	Options    *commandOptions          `json:"options"`
}

type commandOptions struct {
	Limit      *int64                 `json:"limit"`
	Skip       *int64                 `json:"skip"`
	Sort       map[string]interface{} `json:"sort"`
	Projection map[string]interface{} `json:"projection"`
}

// substitutePlaceholders replaces each standalone "?" string token in the
// raw descriptor with the JSON encoding of the next positional parameter.
// Escaped quotes inside JSON strings always carry a backslash, so the bare
// three-byte sequence only ever appears as a whole placeholder string.
func substitutePlaceholders(raw string, args []interface{}) (string, error) {
	if !strings.Contains(raw, placeholderToken) {
		return raw, nil
	}

	var out strings.Builder
	next := 0
	for {
		idx := strings.Index(raw, placeholderToken)
		if idx < 0 {
			out.WriteString(raw)
			break
		}
		if next >= len(args) {
			return "", fmt.Errorf("not enough parameters: command has more placeholders than the %d provided", len(args))
		}
		encoded, err := json.Marshal(args[next])
		if err != nil {
			return "", fmt.Errorf("parameter %d is not encodable: %w", next, err)
		}
		out.WriteString(raw[:idx])
		out.Write(encoded)
		raw = raw[idx+len(placeholderToken):]
		next++
	}
	return out.String(), nil
}

// parseCommand substitutes parameters, decodes the descriptor, and applies
// every validation gate before any backend call is made.
func parseCommand(raw string, args []interface{}) (*command, error) {
	substituted, err := substitutePlaceholders(raw, args)
	if err != nil {
		return nil, err
	}

	var cmd command
	if err := json.Unmarshal([]byte(substituted), &cmd); err != nil {
		return nil, fmt.Errorf("command is not a valid JSON operation descriptor: %w", err)
	}

	cmd.Collection, err = sanitizeCollectionName(cmd.Collection)
	if err != nil {
		return nil, err
	}

	cmd.Operation = normalizeOperation(cmd.Operation)
	if cmd.Operation == "" {
		return nil, fmt.Errorf("command is missing an operation")
	}
	if _, ok := supportedOperations[cmd.Operation]; !ok {
		return nil, fmt.Errorf("unsupported operation %q", cmd.Operation)
	}

	for _, payload := range []interface{}{cmd.Filter, cmd.Update, cmd.Document, cmd.Options} {
		if err := rejectDeniedOperators(payload); err != nil {
			return nil, err
		}
	}
	for _, doc := range cmd.Documents {
		if err := rejectDeniedOperators(doc); err != nil {
			return nil, err
		}
	}
	for _, stage := range cmd.Pipeline {
		if err := rejectDeniedOperators(stage); err != nil {
			return nil, err
		}
	}

	return &cmd, nil
}

// sanitizeCollectionName strips disallowed characters and rejects names that
// are empty after stripping, too long, or reserved by the backend.
func sanitizeCollectionName(name string) (string, error) {
	cleaned := collectionNamePattern.ReplaceAllString(name, "")
	if cleaned == "" {
		return "", fmt.Errorf("collection name %q is empty after sanitization", name)
	}
	if len(cleaned) > maxCollectionName {
		return "", fmt.Errorf("collection name %q exceeds %d characters", cleaned, maxCollectionName)
	}
	lower := strings.ToLower(cleaned)
	if strings.HasPrefix(lower, "system") || lower == "admin" || lower == "local" || lower == "config" {
		return "", fmt.Errorf("collection name %q is reserved", cleaned)
	}
	return cleaned, nil
}

// normalizeOperation maps hyphenated and mixed-case spellings onto the
// native operation names.
func normalizeOperation(op string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(op), "-", ""))
}

// rejectDeniedOperators walks a decoded payload and fails on any denied
// operator, whether it appears as a key or as an embedded operator string.
func rejectDeniedOperators(payload interface{}) error {
	if payload == nil {
		return nil
	}
	switch v := payload.(type) {
	case map[string]interface{}:
		for key, value := range v {
			if _, denied := deniedOperators[key]; denied {
				return fmt.Errorf("operator %q is not permitted", key)
			}
			if err := rejectDeniedOperators(value); err != nil {
				return err
			}
		}
	case *commandOptions:
		if v == nil {
			return nil
		}
		if err := rejectDeniedOperators(v.Sort); err != nil {
			return err
		}
		return rejectDeniedOperators(v.Projection)
	case []interface{}:
		for _, item := range v {
			if err := rejectDeniedOperators(item); err != nil {
				return err
			}
		}
	case string:
		if _, denied := deniedOperators[v]; denied {
			return fmt.Errorf("operator %q is not permitted", v)
		}
	}
	return nil
}

// ExecuteQuery parses the JSON operation descriptor and dispatches it,
// running on the open transaction's session when one exists.
func (a *Adapter) ExecuteQuery(ctx context.Context, query string, args ...interface{}) (*adapter.QueryResult, error) {
	if !a.IsConnected() {
		return nil, adapter.WrapQueryError(dbcapabilities.MongoDB, "execute", query, args, adapter.ErrNotConnected)
	}

	cmd, err := parseCommand(query, args)
	if err != nil {
		return nil, adapter.WrapQueryError(dbcapabilities.MongoDB, "parse", query, args,
			fmt.Errorf("%w: %v", adapter.ErrInvalidQuery, err))
	}

	result, err := a.dispatch(a.operationContext(ctx), cmd)
	if err != nil {
		return nil, adapter.WrapQueryError(dbcapabilities.MongoDB, cmd.Operation, query, args, err)
	}
	return result, nil
}

func (a *Adapter) dispatch(ctx context.Context, cmd *command) (*adapter.QueryResult, error) {
	coll := a.db.Collection(cmd.Collection)

	switch cmd.Operation {
	case "find":
		return a.runFind(ctx, coll, cmd)
	case "findone":
		return a.runFindOne(ctx, coll, cmd)
	case "insertone":
		return a.runInsertOne(ctx, coll, cmd)
	case "insertmany":
		return a.runInsertMany(ctx, coll, cmd)
	case "updateone":
		return a.runUpdate(ctx, coll, cmd, false)
	case "updatemany":
		return a.runUpdate(ctx, coll, cmd, true)
	case "deleteone":
		return a.runDelete(ctx, coll, cmd, false)
	case "deletemany":
		return a.runDelete(ctx, coll, cmd, true)
	case "count":
		return a.runCount(ctx, coll, cmd)
	case "distinct":
		return a.runDistinct(ctx, coll, cmd)
	case "aggregate":
		return a.runAggregate(ctx, coll, cmd)
	default:
		// parseCommand only admits supported operations.
		return nil, fmt.Errorf("unsupported operation %q", cmd.Operation)
	}
}

func (a *Adapter) runFind(ctx context.Context, coll *mongo.Collection, cmd *command) (*adapter.QueryResult, error) {
	opts := options.Find()
	if cmd.Options != nil {
		if cmd.Options.Limit != nil {
			opts.SetLimit(*cmd.Options.Limit)
		}
		if cmd.Options.Skip != nil {
			opts.SetSkip(*cmd.Options.Skip)
		}
		if cmd.Options.Sort != nil {
			opts.SetSort(cmd.Options.Sort)
		}
		if cmd.Options.Projection != nil {
			opts.SetProjection(cmd.Options.Projection)
		}
	}

	cursor, err := coll.Find(ctx, orEmptyFilter(cmd.Filter), opts)
	if err != nil {
		return nil, err
	}
	return collectDocuments(ctx, cursor)
}

func (a *Adapter) runFindOne(ctx context.Context, coll *mongo.Collection, cmd *command) (*adapter.QueryResult, error) {
	opts := options.FindOne()
	if cmd.Options != nil {
		if cmd.Options.Sort != nil {
			opts.SetSort(cmd.Options.Sort)
		}
		if cmd.Options.Projection != nil {
			opts.SetProjection(cmd.Options.Projection)
		}
	}

	var doc map[string]interface{}
	err := coll.FindOne(ctx, orEmptyFilter(cmd.Filter), opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return adapter.RowsResult(nil, nil), nil
	}
	if err != nil {
		return nil, err
	}
	return adapter.RowsResult([]adapter.Row{adapter.Row(doc)}, documentFields(doc)), nil
}

func (a *Adapter) runInsertOne(ctx context.Context, coll *mongo.Collection, cmd *command) (*adapter.QueryResult, error) {
	if cmd.Document == nil {
		return nil, fmt.Errorf("%w: insertOne requires a document", adapter.ErrInvalidQuery)
	}
	res, err := coll.InsertOne(ctx, cmd.Document)
	if err != nil {
		return nil, err
	}
	return adapter.SyntheticResult("insertedId", fmt.Sprint(res.InsertedID), 1), nil
}

func (a *Adapter) runInsertMany(ctx context.Context, coll *mongo.Collection, cmd *command) (*adapter.QueryResult, error) {
	if len(cmd.Documents) == 0 {
		return nil, fmt.Errorf("%w: insertMany requires documents", adapter.ErrInvalidQuery)
	}
	docs := make([]interface{}, 0, len(cmd.Documents))
	for _, doc := range cmd.Documents {
		docs = append(docs, doc)
	}
	res, err := coll.InsertMany(ctx, docs)
	if err != nil {
		return nil, err
	}
	return adapter.SyntheticResult("insertedCount", int64(len(res.InsertedIDs)), int64(len(res.InsertedIDs))), nil
}

func (a *Adapter) runUpdate(ctx context.Context, coll *mongo.Collection, cmd *command, many bool) (*adapter.QueryResult, error) {
	if cmd.Update == nil {
		return nil, fmt.Errorf("%w: update operations require an update document", adapter.ErrInvalidQuery)
	}

	var res *mongo.UpdateResult
	var err error
	if many {
		res, err = coll.UpdateMany(ctx, orEmptyFilter(cmd.Filter), cmd.Update)
	} else {
		res, err = coll.UpdateOne(ctx, orEmptyFilter(cmd.Filter), cmd.Update)
	}
	if err != nil {
		return nil, err
	}

	row := adapter.Row{
		"matchedCount":  res.MatchedCount,
		"modifiedCount": res.ModifiedCount,
		"upsertedCount": res.UpsertedCount,
	}
	result := adapter.RowsResult([]adapter.Row{row}, documentFields(row))
	result.RowCount = res.ModifiedCount
	return result, nil
}

func (a *Adapter) runDelete(ctx context.Context, coll *mongo.Collection, cmd *command, many bool) (*adapter.QueryResult, error) {
	var res *mongo.DeleteResult
	var err error
	if many {
		res, err = coll.DeleteMany(ctx, orEmptyFilter(cmd.Filter))
	} else {
		res, err = coll.DeleteOne(ctx, orEmptyFilter(cmd.Filter))
	}
	if err != nil {
		return nil, err
	}
	return adapter.SyntheticResult("deletedCount", res.DeletedCount, res.DeletedCount), nil
}

func (a *Adapter) runCount(ctx context.Context, coll *mongo.Collection, cmd *command) (*adapter.QueryResult, error) {
	n, err := coll.CountDocuments(ctx, orEmptyFilter(cmd.Filter))
	if err != nil {
		return nil, err
	}
	return adapter.RowsResult(
		[]adapter.Row{{"count": n}},
		[]adapter.FieldDescriptor{{Name: "count", DataType: "long"}},
	), nil
}

func (a *Adapter) runDistinct(ctx context.Context, coll *mongo.Collection, cmd *command) (*adapter.QueryResult, error) {
	if cmd.Field == "" {
		return nil, fmt.Errorf("%w: distinct requires a field", adapter.ErrInvalidQuery)
	}

	var values []interface{}
	if err := coll.Distinct(ctx, cmd.Field, orEmptyFilter(cmd.Filter)).Decode(&values); err != nil {
		return nil, err
	}

	rows := make([]adapter.Row, 0, len(values))
	for _, value := range values {
		rows = append(rows, adapter.Row{"value": value})
	}
	return adapter.RowsResult(rows, []adapter.FieldDescriptor{{Name: "value", DataType: "mixed"}}), nil
}

func (a *Adapter) runAggregate(ctx context.Context, coll *mongo.Collection, cmd *command) (*adapter.QueryResult, error) {
	if len(cmd.Pipeline) == 0 {
		return nil, fmt.Errorf("%w: aggregate requires a pipeline", adapter.ErrInvalidQuery)
	}
	pipeline := make([]interface{}, 0, len(cmd.Pipeline))
	for _, stage := range cmd.Pipeline {
		pipeline = append(pipeline, stage)
	}
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	return collectDocuments(ctx, cursor)
}

// orEmptyFilter keeps a missing filter meaning "match everything".
func orEmptyFilter(filter map[string]interface{}) map[string]interface{} {
	if filter == nil {
		return map[string]interface{}{}
	}
	return filter
}

// collectDocuments drains a cursor into rows, inferring field descriptors
// from the first document.
func collectDocuments(ctx context.Context, cursor *mongo.Cursor) (*adapter.QueryResult, error) {
	defer cursor.Close(ctx)

	var docs []map[string]interface{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	rows := make([]adapter.Row, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, adapter.Row(doc))
	}

	var fields []adapter.FieldDescriptor
	if len(docs) > 0 {
		fields = documentFields(docs[0])
	}
	return adapter.RowsResult(rows, fields), nil
}
