package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/dmorgan81/kandinsky-worker/internal/config"
	"github.com/dmorgan81/kandinsky-worker/internal/log"
	"github.com/dmorgan81/kandinsky-worker/internal/model"
	"github.com/dmorgan81/kandinsky-worker/internal/schema"
	"github.com/dmorgan81/kandinsky-worker/internal/store"
	"github.com/google/uuid"
	"github.com/samber/do"
)

type Job struct {
	ID    string         `json:"id"`
	Input map[string]any `json:"input"`
}

// UnmarshalJSON keeps numbers as json.Number so 512 and 512.0 stay distinct
// for the integer fields.
func (j *Job) UnmarshalJSON(data []byte) error {
	type job Job
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode((*job)(j))
}

type Output struct {
	ImageURL string   `json:"image_url,omitempty"`
	Error    []string `json:"error,omitempty"`
}

type Generator interface {
	Generate(context.Context, schema.Values) ([]image.Image, error)
}

type Handler struct {
	schema    schema.Schema
	generator Generator
	publisher store.Publisher
	tempDir   string
	removeAll func(string) error
}

// NewHandler resolves the model eagerly, so a worker whose model cannot load
// fails here instead of on its first job.
func NewHandler(i *do.Injector) (*Handler, error) {
	cfg, err := do.Invoke[*config.Config](i)
	if err != nil {
		return nil, err
	}
	m, err := do.Invoke[*model.Model](i)
	if err != nil {
		return nil, err
	}
	publisher, err := do.Invoke[store.Publisher](i)
	if err != nil {
		return nil, err
	}
	return &Handler{
		schema:    schema.Text2Img,
		generator: m,
		publisher: publisher,
		tempDir:   cfg.TempDir,
		removeAll: os.RemoveAll,
	}, nil
}

func (h *Handler) Handle(ctx context.Context, job Job) (Output, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	// "." would make the job directory the shared temp dir itself.
	if job.ID == "." || filepath.Base(job.ID) != job.ID || !filepath.IsLocal(job.ID) {
		return Output{}, fmt.Errorf("invalid job id %q", job.ID)
	}
	log := log.FromContextOrDiscard(ctx).WithGroup("Handler").With("job", job.ID)
	log.Info("handling job", "input", job.Input)

	values, errs := h.schema.Validate(job.Input)
	if len(errs) > 0 {
		log.Info("rejected job input", "errors", errs)
		return Output{Error: errs}, nil
	}

	log.Info("generating image",
		"prompt", values.String("text"),
		"h", values.Int("h"),
		"w", values.Int("w"),
		"guidance_scale", values.Float("guidance_scale"),
	)
	images, err := h.generator.Generate(ctx, values)
	if err != nil {
		return Output{}, err
	}

	dir := filepath.Join(h.tempDir, job.ID)
	defer func() {
		if err := h.removeAll(dir); err != nil {
			log.Warn("cleaning job directory", "dir", dir, "error", err)
		}
	}()

	path, err := persist(dir, job.ID, images[0])
	if err != nil {
		return Output{}, err
	}
	log.Info("persisted image", "path", path)

	url, err := h.publisher.Publish(ctx, job.ID, path)
	if err != nil {
		return Output{}, err
	}
	log.Info("published image", "url", url)

	return Output{ImageURL: url}, nil
}

func persist(dir, id string, img image.Image) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, id+"_output.png")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("encoding %s: %w", path, err)
	}
	return path, f.Close()
}
