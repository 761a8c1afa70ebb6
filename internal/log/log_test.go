package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContext(t *testing.T) {
	var buf bytes.Buffer
	ctx := NewContext(context.Background(), New(&buf))

	FromContextOrDiscard(ctx).Info("from slog", "job", "job1")
	logr.FromContextOrDiscard(ctx).Info("from logr", "key", "job1/job1_output.png")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "from slog", first["msg"])
	assert.Equal(t, "job1", first["job"])
	assert.NotContains(t, first, "time")
	assert.Equal(t, "from logr", second["msg"])
	assert.Equal(t, "job1/job1_output.png", second["key"])
}

func TestFromContextOrDiscard(t *testing.T) {
	assert.Same(t, discardLogger, FromContextOrDiscard(context.Background()))
}
