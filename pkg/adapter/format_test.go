package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", FormatBytes(0))
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KB", FormatBytes(1024))
	assert.Equal(t, "1.5 MB", FormatBytes(1536*1024))
	assert.Equal(t, "2.0 GB", FormatBytes(2*1024*1024*1024))
}

func TestSyntheticResult(t *testing.T) {
	res := SyntheticResult("result", "OK", 1)

	assert.Len(t, res.Rows, 1)
	assert.Equal(t, "OK", res.Rows[0]["result"])
	assert.Equal(t, int64(1), res.RowCount)
	assert.Equal(t, "result", res.Fields[0].Name)
}

func TestRowsResult(t *testing.T) {
	rows := []Row{{"a": 1}, {"a": 2}}
	res := RowsResult(rows, []FieldDescriptor{{Name: "a", DataType: "integer"}})

	assert.Equal(t, int64(2), res.RowCount)
	assert.Len(t, res.Rows, 2)

	empty := RowsResult(nil, nil)
	assert.NotNil(t, empty.Rows)
	assert.Equal(t, int64(0), empty.RowCount)
}
