package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/Zyleree/PineMCP/pkg/adapter"
	"github.com/Zyleree/PineMCP/pkg/dbcapabilities"
)

// placeholderToken is substituted positionally from the supplied parameters.
const placeholderToken = "?"

// parsedCommand is a tokenized key-value command: an upper-cased keyword from
// the closed vocabulary plus its positional arguments.
type parsedCommand struct {
	keyword string
	args    []string
}

// parseCommand tokenizes the command string on whitespace and substitutes
// placeholder tokens, in order, from the parameter list.
func parseCommand(command string, params []interface{}) (parsedCommand, error) {
	tokens := strings.Fields(command)
	if len(tokens) == 0 {
		return parsedCommand{}, fmt.Errorf("empty command")
	}

	next := 0
	args := make([]string, 0, len(tokens)-1)
	for _, tok := range tokens[1:] {
		if tok == placeholderToken {
			if next >= len(params) {
				return parsedCommand{}, fmt.Errorf("not enough parameters: %d placeholder(s) but %d parameter(s)",
					next+1, len(params))
			}
			args = append(args, fmt.Sprint(params[next]))
			next++
			continue
		}
		args = append(args, tok)
	}

	return parsedCommand{keyword: strings.ToUpper(tokens[0]), args: args}, nil
}

var kvFields = []adapter.FieldDescriptor{
	{Name: "key", DataType: "string", Nullable: false},
	{Name: "value", DataType: "string", Nullable: true},
}

// ExecuteQuery tokenizes and dispatches one command. Inside a transaction the
// command is queued on the pipeline and the result carries the native QUEUED
// marker; otherwise it executes immediately.
func (a *Adapter) ExecuteQuery(ctx context.Context, command string, args ...interface{}) (*adapter.QueryResult, error) {
	if !a.IsConnected() {
		return nil, adapter.NewQueryError(dbcapabilities.Redis, "execute_query", command, args, adapter.ErrNotConnected)
	}

	cmd, err := parseCommand(command, args)
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.Redis, "parse_command", command, args, err)
	}

	a.txMu.Lock()
	pipe := a.pipe
	a.txMu.Unlock()

	var result *adapter.QueryResult
	if pipe != nil {
		result, err = a.dispatch(ctx, pipe, cmd, true)
	} else {
		result, err = a.dispatch(ctx, a.client, cmd, false)
	}
	if err != nil {
		return nil, adapter.WrapQueryError(dbcapabilities.Redis, "execute_query", command, args, err)
	}
	return result, nil
}

// dispatch matches the keyword against the closed command vocabulary. The
// vocabulary is fixed; anything outside it fails naming the keyword.
func (a *Adapter) dispatch(ctx context.Context, c redis.Cmdable, cmd parsedCommand, queued bool) (*adapter.QueryResult, error) {
	queuedResult := func() *adapter.QueryResult {
		return adapter.SyntheticResult("result", "QUEUED", 0)
	}

	switch cmd.keyword {
	case "GET":
		if err := arity(cmd, 1, 1); err != nil {
			return nil, err
		}
		res := c.Get(ctx, cmd.args[0])
		if queued {
			return queuedResult(), nil
		}
		val, err := res.Result()
		if err == redis.Nil {
			return adapter.RowsResult([]adapter.Row{{"key": cmd.args[0], "value": nil}}, kvFields), nil
		}
		if err != nil {
			return nil, err
		}
		return adapter.RowsResult([]adapter.Row{{"key": cmd.args[0], "value": val}}, kvFields), nil

	case "SET":
		if err := arity(cmd, 2, 2); err != nil {
			return nil, err
		}
		res := c.Set(ctx, cmd.args[0], cmd.args[1], 0)
		if queued {
			return queuedResult(), nil
		}
		status, err := res.Result()
		if err != nil {
			return nil, err
		}
		return adapter.SyntheticResult("result", status, 1), nil

	case "DEL", "DELETE":
		if err := arity(cmd, 1, -1); err != nil {
			return nil, err
		}
		res := c.Del(ctx, cmd.args...)
		if queued {
			return queuedResult(), nil
		}
		return intResult(res)

	case "EXISTS":
		if err := arity(cmd, 1, -1); err != nil {
			return nil, err
		}
		res := c.Exists(ctx, cmd.args...)
		if queued {
			return queuedResult(), nil
		}
		return intResult(res)

	case "KEYS":
		if err := arity(cmd, 0, 1); err != nil {
			return nil, err
		}
		pattern := "*"
		if len(cmd.args) == 1 {
			pattern = cmd.args[0]
		}
		res := c.Keys(ctx, pattern)
		if queued {
			return queuedResult(), nil
		}
		keys, err := res.Result()
		if err != nil {
			return nil, err
		}
		return sliceResult("key", keys), nil

	case "HGET":
		if err := arity(cmd, 2, 2); err != nil {
			return nil, err
		}
		res := c.HGet(ctx, cmd.args[0], cmd.args[1])
		if queued {
			return queuedResult(), nil
		}
		val, err := res.Result()
		if err == redis.Nil {
			return adapter.RowsResult([]adapter.Row{{"key": cmd.args[0], "field": cmd.args[1], "value": nil}}, hashFields), nil
		}
		if err != nil {
			return nil, err
		}
		return adapter.RowsResult([]adapter.Row{{"key": cmd.args[0], "field": cmd.args[1], "value": val}}, hashFields), nil

	case "HSET":
		if err := arity(cmd, 3, -1); err != nil {
			return nil, err
		}
		if len(cmd.args)%2 != 1 {
			return nil, fmt.Errorf("wrong number of arguments for 'hset': field/value pairs required")
		}
		res := c.HSet(ctx, cmd.args[0], toInterfaces(cmd.args[1:])...)
		if queued {
			return queuedResult(), nil
		}
		return intResult(res)

	case "HGETALL":
		if err := arity(cmd, 1, 1); err != nil {
			return nil, err
		}
		res := c.HGetAll(ctx, cmd.args[0])
		if queued {
			return queuedResult(), nil
		}
		entries, err := res.Result()
		if err != nil {
			return nil, err
		}
		rows := make([]adapter.Row, 0, len(entries))
		for field, value := range entries {
			rows = append(rows, adapter.Row{"field": field, "value": value})
		}
		return adapter.RowsResult(rows, []adapter.FieldDescriptor{
			{Name: "field", DataType: "string"},
			{Name: "value", DataType: "string", Nullable: true},
		}), nil

	case "LPUSH", "RPUSH":
		if err := arity(cmd, 2, -1); err != nil {
			return nil, err
		}
		var res *redis.IntCmd
		if cmd.keyword == "LPUSH" {
			res = c.LPush(ctx, cmd.args[0], toInterfaces(cmd.args[1:])...)
		} else {
			res = c.RPush(ctx, cmd.args[0], toInterfaces(cmd.args[1:])...)
		}
		if queued {
			return queuedResult(), nil
		}
		return intResult(res)

	case "LRANGE":
		if err := arity(cmd, 3, 3); err != nil {
			return nil, err
		}
		start, stop, err := rangeBounds(cmd.args[1], cmd.args[2])
		if err != nil {
			return nil, err
		}
		res := c.LRange(ctx, cmd.args[0], start, stop)
		if queued {
			return queuedResult(), nil
		}
		values, err := res.Result()
		if err != nil {
			return nil, err
		}
		rows := make([]adapter.Row, len(values))
		for i, v := range values {
			rows[i] = adapter.Row{"index": int64(i), "value": v}
		}
		return adapter.RowsResult(rows, []adapter.FieldDescriptor{
			{Name: "index", DataType: "integer"},
			{Name: "value", DataType: "string", Nullable: true},
		}), nil

	case "SADD":
		if err := arity(cmd, 2, -1); err != nil {
			return nil, err
		}
		res := c.SAdd(ctx, cmd.args[0], toInterfaces(cmd.args[1:])...)
		if queued {
			return queuedResult(), nil
		}
		return intResult(res)

	case "SMEMBERS":
		if err := arity(cmd, 1, 1); err != nil {
			return nil, err
		}
		res := c.SMembers(ctx, cmd.args[0])
		if queued {
			return queuedResult(), nil
		}
		members, err := res.Result()
		if err != nil {
			return nil, err
		}
		return sliceResult("member", members), nil

	case "ZADD":
		if err := arity(cmd, 3, -1); err != nil {
			return nil, err
		}
		if len(cmd.args)%2 != 1 {
			return nil, fmt.Errorf("wrong number of arguments for 'zadd': score/member pairs required")
		}
		members := make([]redis.Z, 0, (len(cmd.args)-1)/2)
		for i := 1; i < len(cmd.args); i += 2 {
			score, err := strconv.ParseFloat(cmd.args[i], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid score %q: %w", cmd.args[i], err)
			}
			members = append(members, redis.Z{Score: score, Member: cmd.args[i+1]})
		}
		res := c.ZAdd(ctx, cmd.args[0], members...)
		if queued {
			return queuedResult(), nil
		}
		return intResult(res)

	case "ZRANGE":
		if err := arity(cmd, 3, 3); err != nil {
			return nil, err
		}
		start, stop, err := rangeBounds(cmd.args[1], cmd.args[2])
		if err != nil {
			return nil, err
		}
		res := c.ZRange(ctx, cmd.args[0], start, stop)
		if queued {
			return queuedResult(), nil
		}
		members, err := res.Result()
		if err != nil {
			return nil, err
		}
		return sliceResult("member", members), nil

	case "INFO":
		if err := arity(cmd, 0, 1); err != nil {
			return nil, err
		}
		res := c.Info(ctx, cmd.args...)
		if queued {
			return queuedResult(), nil
		}
		info, err := res.Result()
		if err != nil {
			return nil, err
		}
		return adapter.RowsResult([]adapter.Row{{"info": info}},
			[]adapter.FieldDescriptor{{Name: "info", DataType: "string"}}), nil

	case "PING":
		if err := arity(cmd, 0, 0); err != nil {
			return nil, err
		}
		res := c.Ping(ctx)
		if queued {
			return queuedResult(), nil
		}
		pong, err := res.Result()
		if err != nil {
			return nil, err
		}
		return adapter.SyntheticResult("result", pong, 1), nil

	default:
		return nil, fmt.Errorf("unsupported command: %q", cmd.keyword)
	}
}

var hashFields = []adapter.FieldDescriptor{
	{Name: "key", DataType: "string"},
	{Name: "field", DataType: "string"},
	{Name: "value", DataType: "string", Nullable: true},
}

// arity validates the argument count; max < 0 means unbounded.
func arity(cmd parsedCommand, min, max int) error {
	n := len(cmd.args)
	if n < min || (max >= 0 && n > max) {
		return fmt.Errorf("wrong number of arguments for '%s'", strings.ToLower(cmd.keyword))
	}
	return nil
}

func rangeBounds(startArg, stopArg string) (int64, int64, error) {
	start, err := strconv.ParseInt(startArg, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range start %q: %w", startArg, err)
	}
	stop, err := strconv.ParseInt(stopArg, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range stop %q: %w", stopArg, err)
	}
	return start, stop, nil
}

func intResult(res *redis.IntCmd) (*adapter.QueryResult, error) {
	n, err := res.Result()
	if err != nil {
		return nil, err
	}
	return adapter.SyntheticResult("result", n, n), nil
}

func sliceResult(field string, values []string) *adapter.QueryResult {
	rows := make([]adapter.Row, len(values))
	for i, v := range values {
		rows[i] = adapter.Row{field: v}
	}
	return adapter.RowsResult(rows, []adapter.FieldDescriptor{{Name: field, DataType: "string"}})
}

func toInterfaces(args []string) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}
