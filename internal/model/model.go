// Package model owns the single Kandinsky 2.1 instance a worker process serves
// jobs from.
package model

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"regexp"
	"sync"

	"github.com/dmorgan81/kandinsky-worker/internal/log"
	"github.com/dmorgan81/kandinsky-worker/internal/schema"
	"golang.org/x/sync/errgroup"
)

const TaskText2Img = "text2img"

var deviceRegexp = regexp.MustCompile(`^(cpu|mps|cuda(:\d+)?)$`)

var ErrNoImages = errors.New("model returned no images")

type Options struct {
	CacheRoot   string
	DecoderPath string
	Device      string
	UseFP16     bool
}

// Model is the loaded generator. Generate calls are serialized because the
// backend holds a single set of weights on the device.
type Model struct {
	backend Backend
	mu      sync.Mutex
}

// New builds the configuration, checks every artifact exists and loads the
// backend. An error means the worker must not accept jobs.
func New(ctx context.Context, backend Backend, opts Options) (*Model, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("model").With("device", opts.Device, "cache_root", opts.CacheRoot)
	log.Info("creating model")

	if !deviceRegexp.MatchString(opts.Device) {
		return nil, fmt.Errorf("unsupported device %q", opts.Device)
	}

	cfg, artifacts := NewConfig(opts)
	if err := artifacts.Verify(ctx); err != nil {
		return nil, err
	}

	err := backend.Load(ctx, LoadRequest{
		Config:    cfg,
		ModelPath: artifacts.Decoder,
		PriorPath: artifacts.Prior,
		Device:    opts.Device,
		TaskType:  TaskText2Img,
	})
	if err != nil {
		return nil, fmt.Errorf("loading model: %w", err)
	}

	log.Info("model ready", "decoder", artifacts.Decoder)
	return &Model{backend: backend}, nil
}

// Verify stats every artifact concurrently and reports the first one missing.
func (a Artifacts) Verify(ctx context.Context) error {
	group, _ := errgroup.WithContext(ctx)
	for _, path := range a.paths() {
		path := path
		group.Go(func() error {
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("model artifact: %w", err)
			}
			return nil
		})
	}
	return group.Wait()
}

// Generate runs text-to-image for one validated job. Backend errors are
// returned as is.
func (m *Model) Generate(ctx context.Context, values schema.Values) ([]image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	encoded, err := m.backend.Generate(ctx, GenerateRequest{Args: schema.Text2Img.Args(values)})
	if err != nil {
		return nil, err
	}
	if len(encoded) == 0 {
		return nil, ErrNoImages
	}

	images := make([]image.Image, 0, len(encoded))
	for i, data := range encoded {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding image %d: %w", i, err)
		}
		images = append(images, img)
	}
	return images, nil
}
