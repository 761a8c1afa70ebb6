package main

import (
	"context"
	"flag"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/dmorgan81/kandinsky-worker/internal/handler"
	"github.com/dmorgan81/kandinsky-worker/internal/inject"
	"github.com/dmorgan81/kandinsky-worker/internal/log"
	"github.com/dmorgan81/kandinsky-worker/internal/serve"
	"github.com/joho/godotenv"
	"github.com/samber/do"
)

func main() {
	testInput := flag.String("test_input", "", "run a single job from inline JSON or a file and exit")
	serveAPI := flag.Bool("serve_api", false, "serve jobs over a local HTTP API instead of Lambda")
	apiAddr := flag.String("api_addr", "localhost:8000", "listen address for -serve_api")
	flag.Parse()

	logger := log.New(os.Stderr)
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", "error", err)
	}

	ctx := log.NewContext(context.Background(), logger)
	injector := inject.Setup(ctx)

	// Loads the model. Nothing is served if this fails.
	h, err := do.Invoke[*handler.Handler](injector)
	if err != nil {
		logger.Error("worker startup failed", "error", err)
		os.Exit(1)
	}

	switch {
	case *testInput != "":
		in, err := serve.OpenInput(*testInput)
		if err != nil {
			logger.Error("opening test input", "error", err)
			os.Exit(1)
		}
		defer in.Close()
		if err := serve.RunOnce(ctx, h, in, os.Stdout); err != nil {
			logger.Error("running test input", "error", err)
			os.Exit(1)
		}
	case *serveAPI:
		logger.Info("serving local api", "addr", *apiAddr)
		if err := http.ListenAndServe(*apiAddr, serve.NewRouter(ctx, h)); err != nil {
			logger.Error("local api stopped", "error", err)
			os.Exit(1)
		}
	default:
		lambda.StartWithOptions(h.Handle, lambda.WithContext(ctx), lambda.WithEnableSIGTERM(func() {
			_ = injector.Shutdown()
		}))
	}
}
