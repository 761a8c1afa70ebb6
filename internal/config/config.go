// Package config holds the process-wide worker settings. They are read once at
// startup and never reloaded.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Device      string `toml:"device"`
	CacheRoot   string `toml:"cache_root"`
	DecoderPath string `toml:"decoder_path"`
	UseFP16     bool   `toml:"use_fp16"`

	BackendURL        string `toml:"backend_url"`
	BackendTokenParam string `toml:"backend_token_param"`

	TempDir        string        `toml:"temp_dir"`
	UploadDir      string        `toml:"upload_dir"`
	Bucket         string        `toml:"bucket"`
	Distribution   string        `toml:"distribution"`
	PresignExpires time.Duration `toml:"presign_expires"`
}

func Default() *Config {
	return &Config{
		Device:         "cuda",
		CacheRoot:      "/app/kandinsky2",
		DecoderPath:    "/app/kandinsky2/2_1/decoder_fp16.ckpt",
		UseFP16:        true,
		BackendURL:     "http://127.0.0.1:7860",
		TempDir:        "/tmp",
		UploadDir:      "simulated_uploaded",
		PresignExpires: 7 * 24 * time.Hour,
	}
}

// Load starts from the defaults, applies the TOML file at path if it exists
// and finally the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"DEVICE":              &c.Device,
		"CACHE_ROOT":          &c.CacheRoot,
		"DECODER_PATH":        &c.DecoderPath,
		"BACKEND_URL":         &c.BackendURL,
		"BACKEND_TOKEN_PARAM": &c.BackendTokenParam,
		"TEMP_DIR":            &c.TempDir,
		"UPLOAD_DIR":          &c.UploadDir,
		"BUCKET":              &c.Bucket,
		"DISTRIBUTION":        &c.Distribution,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	if v, ok := lookup("USE_FP16"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("USE_FP16: %w", err)
		}
		c.UseFP16 = b
	}
	if v, ok := lookup("PRESIGN_EXPIRES"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PRESIGN_EXPIRES: %w", err)
		}
		c.PresignExpires = d
	}
	return nil
}
