package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoWritesJSONFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)

	Info("order placed", map[string]any{
		"order_id": "ORD-1-abc",
		"count":    2,
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "order placed", line["@message"])
	assert.Equal(t, "info", line["@level"])
	assert.Equal(t, "ORD-1-abc", line["order_id"])
	assert.EqualValues(t, 2, line["count"])
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)

	Debug("noise", nil)
	assert.Empty(t, buf.String())
}

func TestArgsOrdered(t *testing.T) {
	got := args(map[string]any{"b": 2, "a": 1})
	assert.Equal(t, []any{"a", 1, "b", 2}, got)
	assert.Nil(t, args(nil))
}
