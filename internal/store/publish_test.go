package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "job1/job1_output.png", objectKey("job1", "/tmp/job1/job1_output.png"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", contentType("out.png"))
	assert.Equal(t, "application/octet-stream", contentType("out"))
}

func TestFilePublisher(t *testing.T) {
	src := filepath.Join(t.TempDir(), "job1_output.png")
	require.NoError(t, os.WriteFile(src, []byte("png bytes"), 0o600))

	dir := t.TempDir()
	p := &FilePublisher{Dir: dir}

	ref, err := p.Publish(context.Background(), "job1", src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "job1", "job1_output.png"), ref)

	data, err := os.ReadFile(ref)
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(data))
}

func TestFilePublisherMissingSource(t *testing.T) {
	p := &FilePublisher{Dir: t.TempDir()}
	_, err := p.Publish(context.Background(), "job1", filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}
