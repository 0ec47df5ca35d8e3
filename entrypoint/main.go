package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text2phenotype.com/ctcdecode/api"
	"text2phenotype.com/ctcdecode/logger"
	"text2phenotype.com/ctcdecode/pipeline"
	"text2phenotype.com/ctcdecode/types"
	"text2phenotype.com/ctcdecode/worker"
	"time"
)

type Config struct {
	ConfigPath    string `envconfig:"CTC_CONFIG_PATH" required:"true"`
	RestAPIActive bool   `envconfig:"CTC_REST_API_ACTIVE" default:"false"`
	RestAPIPort   string `envconfig:"CTC_REST_API_PORT" default:"10000"`
	WorkerActive  bool   `envconfig:"CTC_WORKER_ACTIVE" default:"true"`
}

const (
	registryStartMaxRetries = 5
	retryDelay              = 5 * time.Second
	shutdownTimeout         = 30 * time.Second
)

func main() {
	validate := flag.Bool("validate", false, "load and check decoder configurations, then exit")
	supervise := flag.Bool("supervise", false, "run the service as a child process and supervise its logs")
	flag.Parse()

	if *supervise {
		executable, err := os.Executable()
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not resolve executable: %v\n", err)
			os.Exit(1)
		}
		logger.WrapProcess(executable, childArgs(os.Args[1:])...)
		return
	}

	logger.SetupLogging()
	ctcLogger := logger.NewLogger("Main")
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		ctcLogger.Fatal().Caller().Err(err).Msg("Failed to read environment")
		os.Exit(1)
	}

	if *validate {
		cfgs, err := types.LoadConfigurations(config.ConfigPath)
		if err == nil {
			var registry *pipeline.Registry
			registry, err = pipeline.NewRegistry(cfgs)
			if err == nil {
				registry.Close()
			}
		}
		if err != nil {
			ctcLogger.Fatal().Caller().Err(err).Msg("Configurations are invalid")
			os.Exit(1)
		}
		ctcLogger.Info().Msgf("%d configurations are valid. Exit...", len(cfgs))
		return
	}

	registry := loadRegistry(config, &ctcLogger)
	defer registry.Close()
	ppln := pipeline.CTCDecode(registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g := errgroup.Group{}

	if config.RestAPIActive {
		g.Go(func() error {
			defer cancel()
			return serveAPI(ctx, config, registry, &ctcLogger)
		})
	}
	if config.WorkerActive {
		g.Go(func() error {
			defer cancel()
			return runWorker(ctx, ppln, &ctcLogger)
		})
	}
	if !config.RestAPIActive && !config.WorkerActive {
		ctcLogger.Fatal().Msg("Neither REST API nor worker is active, nothing to do")
		os.Exit(1)
	}

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-shutdownSignal:
		ctcLogger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
		cancel()
	case <-ctx.Done():
		ctcLogger.Info().Msg("Context done, shutting down")
	}

	if err := g.Wait(); err != nil {
		ctcLogger.Fatal().Err(err).Msg("Service stopped with error")
		os.Exit(1)
	}
}

// childArgs drops the -supervise flag so the child runs the service itself.
func childArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		switch arg {
		case "-supervise", "--supervise", "-supervise=true", "--supervise=true":
			continue
		}
		out = append(out, arg)
	}
	return out
}

// loadRegistry blocks until all configured decoders are built. Configuration
// files that fail to load are skipped as long as some remain.
func loadRegistry(config Config, ctcLogger *zerolog.Logger) *pipeline.Registry {
	for retry := 0; retry < registryStartMaxRetries; retry++ {
		cfgs, err := types.LoadConfigurations(config.ConfigPath)
		if err != nil {
			ctcLogger.Err(err).Msg("Some configurations could not be loaded")
		}
		if len(cfgs) == 0 {
			ctcLogger.Error().Msgf("No configurations loaded. Retrying in %s", retryDelay)
			time.Sleep(retryDelay)
			continue
		}
		ctcLogger.Info().Msgf("Loaded %d configurations", len(cfgs))

		registry, err := pipeline.NewRegistry(cfgs)
		if err != nil {
			ctcLogger.Err(err).Msgf("Failed to build decoders. Retrying in %s", retryDelay)
			time.Sleep(retryDelay)
			continue
		}
		ctcLogger.Info().Strs("configurations", registry.Names()).Msg("Decoders loaded")
		return registry
	}
	ctcLogger.Fatal().Caller().Msgf("Could not build decoders after %d retries, exiting", registryStartMaxRetries)
	os.Exit(1)
	return nil
}

func serveAPI(ctx context.Context, config Config, registry *pipeline.Registry, ctcLogger *zerolog.Logger) error {
	mux := http.NewServeMux()
	(&api.Server{Registry: registry}).Register(mux)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.RestAPIPort),
		Handler: mux,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	ctcLogger.Info().Msgf("REST API on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("rest api: %w", err)
	}
	return nil
}

// runWorker restarts the worker until ctx is done; only a failed
// initialization is fatal.
func runWorker(ctx context.Context, ppln pipeline.Pipeline, ctcLogger *zerolog.Logger) error {
	ctcLogger.Info().Msg("Start CTC decode worker")
	for ctx.Err() == nil {
		rmqWorker, err := worker.New(ppln)
		if err != nil {
			return fmt.Errorf("could not initialize RMQ worker: %w", err)
		}
		if err = rmqWorker.StartWorker(ctx); err != nil {
			ctcLogger.Err(err).Msgf("Worker returned with error. Launching new in %s", retryDelay)
			select {
			case <-ctx.Done():
			case <-time.After(retryDelay):
			}
		}
	}
	return nil
}
