package store

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/samber/lo"
)

// Publisher stores a finished job file durably and returns a reference the
// caller can fetch it from.
type Publisher interface {
	Publish(ctx context.Context, jobID, file string) (string, error)
}

func objectKey(jobID, file string) string {
	return path.Join(jobID, filepath.Base(file))
}

func contentType(file string) string {
	t := mime.TypeByExtension(filepath.Ext(file))
	return lo.Ternary(t != "", t, "application/octet-stream")
}

// FilePublisher copies outputs into a local directory. It stands in for a
// bucket when none is configured.
type FilePublisher struct {
	Dir string
}

func (p *FilePublisher) Publish(ctx context.Context, jobID, file string) (string, error) {
	dst := filepath.Join(p.Dir, objectKey(jobID, file))
	log := logr.FromContextOrDiscard(ctx).WithName("file")
	log.Info("writing", "file", dst)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}

	src, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return "", fmt.Errorf("copying %s: %w", file, err)
	}
	return dst, out.Close()
}
