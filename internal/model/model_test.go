package model

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmorgan81/kandinsky-worker/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	loaded    []LoadRequest
	generated []GenerateRequest
	loadErr   error
	images    [][]byte
	genErr    error
}

func (b *fakeBackend) Load(_ context.Context, req LoadRequest) error {
	b.loaded = append(b.loaded, req)
	return b.loadErr
}

func (b *fakeBackend) Generate(_ context.Context, req GenerateRequest) ([][]byte, error) {
	b.generated = append(b.generated, req)
	return b.images, b.genErr
}

func cacheRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "2_1")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "text_encoder"), 0o755))
	for _, name := range []string{"ViT-L-14_stats.th", "movq_final.ckpt", "decoder_fp16.ckpt", "prior_fp16.ckpt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
	return root
}

func encodePNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, c)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNewLoadsBackend(t *testing.T) {
	root := cacheRoot(t)
	backend := &fakeBackend{}

	m, err := New(context.Background(), backend, Options{CacheRoot: root, Device: "cuda", UseFP16: true})
	require.NoError(t, err)
	require.NotNil(t, m)

	require.Len(t, backend.loaded, 1)
	req := backend.loaded[0]
	assert.Equal(t, "cuda", req.Device)
	assert.Equal(t, TaskText2Img, req.TaskType)
	assert.Equal(t, filepath.Join(root, "2_1", "decoder_fp16.ckpt"), req.ModelPath)
	assert.Equal(t, filepath.Join(root, "2_1", "prior_fp16.ckpt"), req.PriorPath)
	assert.True(t, req.Config.ModelConfig.UseFP16)
}

func TestNewMissingArtifact(t *testing.T) {
	root := cacheRoot(t)
	require.NoError(t, os.Remove(filepath.Join(root, "2_1", "movq_final.ckpt")))
	backend := &fakeBackend{}

	_, err := New(context.Background(), backend, Options{CacheRoot: root, Device: "cuda"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "movq_final.ckpt")
	assert.Empty(t, backend.loaded)
}

func TestNewMissingDecoderOverride(t *testing.T) {
	root := cacheRoot(t)
	_, err := New(context.Background(), &fakeBackend{}, Options{
		CacheRoot:   root,
		DecoderPath: filepath.Join(root, "missing.ckpt"),
		Device:      "cuda:0",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.ckpt")
}

func TestNewBadDevice(t *testing.T) {
	_, err := New(context.Background(), &fakeBackend{}, Options{CacheRoot: cacheRoot(t), Device: "tpu"})
	assert.ErrorContains(t, err, `unsupported device "tpu"`)
}

func TestNewLoadFailure(t *testing.T) {
	backend := &fakeBackend{loadErr: errors.New("CUDA unavailable")}
	_, err := New(context.Background(), backend, Options{CacheRoot: cacheRoot(t), Device: "cuda"})
	assert.ErrorContains(t, err, "CUDA unavailable")
}

func TestGenerate(t *testing.T) {
	backend := &fakeBackend{images: [][]byte{encodePNG(t, color.White), encodePNG(t, color.Black)}}
	m, err := New(context.Background(), backend, Options{CacheRoot: cacheRoot(t), Device: "cpu"})
	require.NoError(t, err)

	values, errs := schema.Text2Img.Validate(map[string]any{"text": "a red bike", "h": 512})
	require.Empty(t, errs)

	images, err := m.Generate(context.Background(), values)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, image.Rect(0, 0, 2, 2), images[0].Bounds())

	require.Len(t, backend.generated, 1)
	args := backend.generated[0].Args
	assert.Equal(t, "a red bike", args["prompt"])
	assert.Equal(t, 512, args["h"])
	assert.Equal(t, 768, args["w"])
	assert.Equal(t, "5", args["prior_steps"])
}

func TestGenerateErrors(t *testing.T) {
	values, _ := schema.Text2Img.Validate(map[string]any{"text": "x"})

	oom := errors.New("CUDA out of memory")
	m := &Model{backend: &fakeBackend{genErr: oom}}
	_, err := m.Generate(context.Background(), values)
	assert.Same(t, oom, err)

	m = &Model{backend: &fakeBackend{}}
	_, err = m.Generate(context.Background(), values)
	assert.ErrorIs(t, err, ErrNoImages)

	m = &Model{backend: &fakeBackend{images: [][]byte{[]byte("not an image")}}}
	_, err = m.Generate(context.Background(), values)
	assert.ErrorContains(t, err, "decoding image 0")
}
