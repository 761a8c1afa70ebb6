package inject

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dmorgan81/kandinsky-worker/internal/handler"
	"github.com/dmorgan81/kandinsky-worker/internal/store"
	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setenv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CONFIG_FILE", filepath.Join(dir, "missing.toml"))
	t.Setenv("CACHE_ROOT", filepath.Join(dir, "cache"))
	t.Setenv("DECODER_PATH", "")
	t.Setenv("UPLOAD_DIR", filepath.Join(dir, "uploads"))
	t.Setenv("BUCKET", "")
	t.Setenv("BACKEND_TOKEN_PARAM", "")
	return dir
}

func TestSetupLocalPublisher(t *testing.T) {
	dir := setenv(t)
	injector := Setup(context.Background())

	publisher, err := do.Invoke[store.Publisher](injector)
	require.NoError(t, err)
	assert.Equal(t, &store.FilePublisher{Dir: filepath.Join(dir, "uploads")}, publisher)
}

func TestSetupFailsWithoutArtifacts(t *testing.T) {
	setenv(t)
	injector := Setup(context.Background())

	_, err := do.Invoke[*handler.Handler](injector)
	assert.Error(t, err)
}
