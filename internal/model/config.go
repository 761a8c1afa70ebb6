package model

import "path/filepath"

const version = "2_1"

type TextEncParams struct {
	ModelPath   string `json:"model_path"`
	ModelName   string `json:"model_name"`
	InFeatures  int    `json:"in_features"`
	OutFeatures int    `json:"out_features"`
}

type PriorParams struct {
	ClipMeanStdPath string         `json:"clip_mean_std_path"`
	Params          map[string]any `json:"params"`
}

type ImageEncParams struct {
	Name     string         `json:"name"`
	Scale    int            `json:"scale"`
	CkptPath string         `json:"ckpt_path"`
	Params   map[string]any `json:"params"`
}

type ModelConfig struct {
	Version              string `json:"version"`
	ImageSize            int    `json:"image_size"`
	NumChannels          int    `json:"num_channels"`
	NumResBlocks         int    `json:"num_res_blocks"`
	ChannelMult          string `json:"channel_mult"`
	NumHeads             int    `json:"num_heads"`
	NumHeadChannels      int    `json:"num_head_channels"`
	NumHeadsUpsample     int    `json:"num_heads_upsample"`
	AttentionResolutions string `json:"attention_resolutions"`
	Dropout              int    `json:"dropout"`
	ModelDim             int    `json:"model_dim"`
	UseScaleShiftNorm    bool   `json:"use_scale_shift_norm"`
	ResblockUpdown       bool   `json:"resblock_updown"`
	UseFP16              bool   `json:"use_fp16"`
	CacheTextEmb         bool   `json:"cache_text_emb"`
	TextEncoderInDim1    int    `json:"text_encoder_in_dim1"`
	TextEncoderInDim2    int    `json:"text_encoder_in_dim2"`
	ImageEncoderInDim    int    `json:"image_encoder_in_dim"`
	NumImageEmbs         int    `json:"num_image_embs"`
	PoolingType          string `json:"pooling_type"`
	InChannels           int    `json:"in_channels"`
	OutChannels          int    `json:"out_channels"`
	Up                   bool   `json:"up"`
	Inpainting           bool   `json:"inpainting"`
	UseFlashAttention    bool   `json:"use_flash_attention"`
}

type DiffusionConfig struct {
	LearnSigma           bool    `json:"learn_sigma"`
	SigmaSmall           bool    `json:"sigma_small"`
	Steps                int     `json:"steps"`
	NoiseSchedule        string  `json:"noise_schedule"`
	TimestepRespacing    string  `json:"timestep_respacing"`
	UseKL                bool    `json:"use_kl"`
	PredictXStart        bool    `json:"predict_xstart"`
	RescaleTimesteps     bool    `json:"rescale_timesteps"`
	RescaleLearnedSigmas bool    `json:"rescale_learned_sigmas"`
	LinearStart          float64 `json:"linear_start"`
	LinearEnd            float64 `json:"linear_end"`
}

// Config is the model configuration record sent to the backend at load time.
type Config struct {
	ClipImageSize   int             `json:"clip_image_size"`
	ClipName        string          `json:"clip_name"`
	ImageSize       int             `json:"image_size"`
	TokenizerName   string          `json:"tokenizer_name"`
	TokenizerName1  string          `json:"tokenizer_name1"`
	TextEncParams   TextEncParams   `json:"text_enc_params"`
	Prior           PriorParams     `json:"prior"`
	ImageEncParams  ImageEncParams  `json:"image_enc_params"`
	ModelConfig     ModelConfig     `json:"model_config"`
	DiffusionConfig DiffusionConfig `json:"diffusion_config"`
}

// DefaultConfig returns the base 2.1 configuration. Every call builds new maps
// so callers may mutate the result freely.
func DefaultConfig() Config {
	return Config{
		ClipImageSize: 224,
		ClipName:      "ViT-L/14",
		ImageSize:     768,
		TokenizerName: "M-CLIP/XLM-Roberta-Large-Vit-L-14",
		TextEncParams: TextEncParams{
			ModelPath:   "M-CLIP/XLM-Roberta-Large-Vit-L-14",
			ModelName:   "multiclip",
			InFeatures:  1024,
			OutFeatures: 768,
		},
		Prior: PriorParams{
			ClipMeanStdPath: "ViT-L-14_stats.th",
			Params: map[string]any{
				"model_channels":     2048,
				"num_res_blocks":     20,
				"num_heads":          32,
				"xf_width":           2048,
				"text_ctx":           77,
				"clip_dim":           768,
				"learn_sigma":        false,
				"diffusion_steps":    1000,
				"noise_schedule":     "cosine",
				"timestep_respacing": "",
				"rescale_timesteps":  true,
			},
		},
		ImageEncParams: ImageEncParams{
			Name:     "MOVQ",
			Scale:    1,
			CkptPath: "",
			Params: map[string]any{
				"embed_dim": 4,
				"n_embed":   16384,
				"ddconfig": map[string]any{
					"double_z":         false,
					"z_channels":       4,
					"resolution":       256,
					"in_channels":      3,
					"out_ch":           3,
					"ch":               128,
					"ch_mult":          []int{1, 2, 2, 4},
					"num_res_blocks":   2,
					"attn_resolutions": []int{32},
					"dropout":          0.0,
				},
			},
		},
		ModelConfig: ModelConfig{
			Version:              "2.1",
			ImageSize:            64,
			NumChannels:          384,
			NumResBlocks:         3,
			NumHeads:             1,
			NumHeadChannels:      64,
			NumHeadsUpsample:     -1,
			AttentionResolutions: "32,16,8",
			ModelDim:             768,
			UseScaleShiftNorm:    true,
			ResblockUpdown:       true,
			UseFP16:              true,
			CacheTextEmb:         true,
			TextEncoderInDim1:    1024,
			TextEncoderInDim2:    768,
			ImageEncoderInDim:    768,
			NumImageEmbs:         10,
			PoolingType:          "from_model",
			InChannels:           4,
			OutChannels:          8,
			Up:                   false,
			Inpainting:           false,
			UseFlashAttention:    false,
		},
		DiffusionConfig: DiffusionConfig{
			LearnSigma:           true,
			Steps:                1000,
			NoiseSchedule:        "linear",
			RescaleTimesteps:     true,
			RescaleLearnedSigmas: true,
			LinearStart:          0.00085,
			LinearEnd:            0.012,
		},
	}
}

// Artifacts are the on-disk files the backend loads.
type Artifacts struct {
	TextEncoder  string
	ClipStats    string
	ImageEncoder string
	Decoder      string
	Prior        string
}

func (a Artifacts) paths() []string {
	return []string{a.TextEncoder, a.ClipStats, a.ImageEncoder, a.Decoder, a.Prior}
}

// NewConfig copies the defaults, applies the worker's architecture overrides
// and points every artifact at the cache root.
func NewConfig(opts Options) (Config, Artifacts) {
	cfg := DefaultConfig()
	cacheDir := filepath.Join(opts.CacheRoot, version)

	cfg.ModelConfig.Up = false
	cfg.ModelConfig.UseFP16 = opts.UseFP16
	cfg.ModelConfig.Inpainting = false
	cfg.ModelConfig.CacheTextEmb = false
	cfg.ModelConfig.UseFlashAttention = false

	artifacts := Artifacts{
		TextEncoder:  filepath.Join(cacheDir, "text_encoder"),
		ClipStats:    filepath.Join(cacheDir, "ViT-L-14_stats.th"),
		ImageEncoder: filepath.Join(cacheDir, "movq_final.ckpt"),
		Decoder:      filepath.Join(cacheDir, "decoder_fp16.ckpt"),
		Prior:        filepath.Join(cacheDir, "prior_fp16.ckpt"),
	}
	if opts.DecoderPath != "" {
		artifacts.Decoder = opts.DecoderPath
	}

	cfg.TokenizerName = artifacts.TextEncoder
	cfg.TextEncParams.ModelPath = artifacts.TextEncoder
	cfg.Prior.ClipMeanStdPath = artifacts.ClipStats
	cfg.ImageEncParams.CkptPath = artifacts.ImageEncoder

	return cfg, artifacts
}
