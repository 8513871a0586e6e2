package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"hotdog-server-go/internal/domain/classify"
	domainimage "hotdog-server-go/internal/domain/image"
	platformconfig "hotdog-server-go/internal/platform/config"
	platformerrors "hotdog-server-go/internal/platform/errors"
	platformlogging "hotdog-server-go/internal/platform/logging"
	platformstorage "hotdog-server-go/internal/platform/storage"
	httptransport "hotdog-server-go/internal/transport/http"
	classifyhttp "hotdog-server-go/internal/transport/http/classify"
	"hotdog-server-go/internal/utils"
)

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	config      *platformconfig.Config
	configPath  string
	logProvider *platformlogging.Logger
	logger      *utils.Logger
	uploads     *platformstorage.UploadStore
	normalizer  *domainimage.Normalizer
	classifier  classify.Classifier
}

// Run starts the whole service lifecycle: load config, initialise
// dependencies, serve HTTP, shut down gracefully.
func Run(ctx context.Context) error {
	state := &appState{}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}

	config := state.config
	logger := state.logger
	if config == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}
	if state.classifier == nil || state.normalizer == nil || state.uploads == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"classifier pipeline not initialised",
		)
	}

	logBootstrapGraph(steps, logger)

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	if err := waitForShutdown(signalCtx, cancel, logger, group); err != nil {
		return err
	}

	logger.InfoTag("BOOT", "server stopped")
	logger.Close()
	return nil
}

func logBootstrapGraph(steps []initStep, logger *utils.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("BOOT", "initialisation order")
	for _, step := range steps {
		logger.InfoTag("BOOT", "  %s", step.Title)
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "storage:init-uploads",
			Title:     "Initialise upload store",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initUploadsStep,
		},
		{
			ID:        "image:init-normalizer",
			Title:     "Initialise image normalizer",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initNormalizerStep,
		},
		{
			ID:        "classifier:init",
			Title:     "Initialise remote classifier",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initClassifierStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().Load()
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "config:load", "failed to load configuration", err)
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init-provider",
			"config not loaded",
		)
	}

	logProvider, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}

	state.logProvider = logProvider
	state.logger = logProvider.Tagged()
	utils.DefaultLogger = state.logger

	state.logger.InfoTag("BOOT", "logging ready [%s] config=%s", state.config.Log.Level, state.configPath)
	return nil
}

func initUploadsStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil || state.logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"storage:init-uploads",
			"missing config/logger",
		)
	}

	uploads, err := platformstorage.NewUploadStore(&state.config.Upload, state.logger)
	if err != nil {
		return err
	}
	state.uploads = uploads
	return nil
}

func initNormalizerStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil || state.logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"image:init-normalizer",
			"missing config/logger",
		)
	}

	pipeline, err := domainimage.NewPipeline(domainimage.Options{
		Security: &state.config.Security,
		Logger:   state.logger,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "image:init-normalizer", "failed to create image pipeline", err)
	}

	fetcher := domainimage.NewFetcher(nil, state.config.Security.MaxFileSize, state.logger)
	state.normalizer = domainimage.NewNormalizer(pipeline, fetcher, state.logger)
	return nil
}

func initClassifierStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil || state.logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"classifier:init",
			"missing config/logger",
		)
	}

	classifier, err := classify.NewOpenAIClassifier(&state.config.Classifier, state.logger)
	if err != nil {
		return err
	}
	state.classifier = classifier

	state.logger.InfoTag("BOOT", "classifier ready: model=%s base_url=%s",
		state.config.Classifier.ModelName, state.config.Classifier.BaseURL)
	return nil
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	config := state.config
	logger := state.logger

	httpRouter, err := httptransport.Build(httptransport.Options{
		Config: config,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	service, err := classifyhttp.NewService(config, logger, state.normalizer, state.classifier, state.uploads)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "http:new-classify-service", "failed to create classify service", err)
	}
	service.Register(httpRouter.API)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port),
		Handler: httpRouter.Engine,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "server listening on http://%s", httpServer.Addr)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "server shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "server shut down gracefully")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *utils.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("BOOT", "received shutdown signal %v, cleaning up", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("BOOT", "error during shutdown: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "all services stopped")
	case <-time.After(15 * time.Second):
		logger.ErrorTag("BOOT", "shutdown timed out, forcing exit")
		return errors.New("shutdown timed out")
	}
	return nil
}
