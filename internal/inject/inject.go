package inject

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	wconfig "github.com/dmorgan81/kandinsky-worker/internal/config"
	"github.com/dmorgan81/kandinsky-worker/internal/handler"
	"github.com/dmorgan81/kandinsky-worker/internal/log"
	"github.com/dmorgan81/kandinsky-worker/internal/model"
	"github.com/dmorgan81/kandinsky-worker/internal/param"
	"github.com/dmorgan81/kandinsky-worker/internal/store"
	"github.com/samber/do"
)

func Setup(ctx context.Context) *do.Injector {
	log := log.FromContextOrDiscard(ctx)

	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			log.Info(fmt.Sprintf(format, args...))
		},
	})
	do.Provide[*wconfig.Config](injector, func(i *do.Injector) (*wconfig.Config, error) {
		return wconfig.Load(os.Getenv("CONFIG_FILE"))
	})
	do.Provide[aws.Config](injector, func(i *do.Injector) (aws.Config, error) {
		return config.LoadDefaultConfig(ctx)
	})
	do.Provide[*ssm.Client](injector, func(i *do.Injector) (*ssm.Client, error) {
		return ssm.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*s3.Client](injector, func(i *do.Injector) (*s3.Client, error) {
		return s3.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*cloudfront.Client](injector, func(i *do.Injector) (*cloudfront.Client, error) {
		return cloudfront.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.ProvideValue[*http.Client](injector, http.DefaultClient)

	do.Provide[param.Fetcher](injector, param.NewParameterStoreFetcher)
	do.ProvideNamed[string](injector, "backend_token", func(i *do.Injector) (string, error) {
		cfg := do.MustInvoke[*wconfig.Config](i)
		if cfg.BackendTokenParam == "" {
			return "", nil
		}
		fetcher, err := do.Invoke[param.Fetcher](i)
		if err != nil {
			return "", err
		}
		return param.Resolve(ctx, fetcher, cfg.BackendTokenParam)
	})

	do.Provide[model.Backend](injector, func(i *do.Injector) (model.Backend, error) {
		return &model.HTTPBackend{
			Client:  do.MustInvoke[*http.Client](i),
			BaseURL: do.MustInvoke[*wconfig.Config](i).BackendURL,
			Token:   do.MustInvokeNamed[string](i, "backend_token"),
		}, nil
	})
	do.Provide[*model.Model](injector, func(i *do.Injector) (*model.Model, error) {
		cfg := do.MustInvoke[*wconfig.Config](i)
		return model.New(ctx, do.MustInvoke[model.Backend](i), model.Options{
			CacheRoot:   cfg.CacheRoot,
			DecoderPath: cfg.DecoderPath,
			Device:      cfg.Device,
			UseFP16:     cfg.UseFP16,
		})
	})

	do.Provide[store.Publisher](injector, func(i *do.Injector) (store.Publisher, error) {
		cfg := do.MustInvoke[*wconfig.Config](i)
		if cfg.Bucket == "" {
			log.Warn("no bucket configured, publishing to local directory", "dir", cfg.UploadDir)
			return &store.FilePublisher{Dir: cfg.UploadDir}, nil
		}

		var domain string
		if cfg.Distribution != "" {
			var err error
			domain, err = store.DistributionDomain(ctx, do.MustInvoke[*cloudfront.Client](i), cfg.Distribution)
			if err != nil {
				return nil, err
			}
		}
		return &store.S3Publisher{
			Client:  do.MustInvoke[*s3.Client](i),
			Bucket:  cfg.Bucket,
			Domain:  domain,
			Expires: cfg.PresignExpires,
		}, nil
	})

	do.Provide[*handler.Handler](injector, handler.NewHandler)

	return injector
}
