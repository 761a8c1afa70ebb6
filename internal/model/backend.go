package model

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-logr/logr"
)

type LoadRequest struct {
	Config    Config `json:"config"`
	ModelPath string `json:"model_path"`
	PriorPath string `json:"prior_path"`
	Device    string `json:"device"`
	TaskType  string `json:"task_type"`
}

type GenerateRequest struct {
	Args map[string]any `json:"args"`
}

// Backend hosts the weights and runs sampling. Generate returns encoded images
// in the order the model produced them.
type Backend interface {
	Load(context.Context, LoadRequest) error
	Generate(context.Context, GenerateRequest) ([][]byte, error)
}

// HTTPBackend talks to the inference sidecar running next to the worker.
type HTTPBackend struct {
	Client  *http.Client
	BaseURL string
	Token   string
}

func (b *HTTPBackend) Load(ctx context.Context, req LoadRequest) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("device", req.Device, "task", req.TaskType)
	log.Info("loading model via inference backend", "model", req.ModelPath, "prior", req.PriorPath)

	return b.post(ctx, "/load", req, nil)
}

type generateResponse struct {
	Images []string `json:"images"`
}

func (b *HTTPBackend) Generate(ctx context.Context, req GenerateRequest) ([][]byte, error) {
	log := logr.FromContextOrDiscard(ctx)
	log.Info("generating image via inference backend", "args", req.Args)

	var resp generateResponse
	if err := b.post(ctx, "/generate_text2img", req, &resp); err != nil {
		return nil, err
	}

	images := make([][]byte, 0, len(resp.Images))
	for i, enc := range resp.Images {
		data, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return nil, fmt.Errorf("decoding image %d: %w", i, err)
		}
		images = append(images, data)
	}
	log.Info("received images via inference backend", "count", len(images))
	return images, nil
}

func (b *HTTPBackend) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(b.BaseURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	if b.Token != "" {
		req.Header.Add("Authorization", "Bearer "+b.Token)
	}

	resp, err := b.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("inference backend %s: %s: %s", path, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
