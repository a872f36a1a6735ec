package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/JakeFAU/gallery-grabber/internal/api"
	"github.com/JakeFAU/gallery-grabber/internal/clock/system"
	"github.com/JakeFAU/gallery-grabber/internal/config"
	collyfetcher "github.com/JakeFAU/gallery-grabber/internal/fetcher/colly"
	"github.com/JakeFAU/gallery-grabber/internal/fetcher/headless"
	"github.com/JakeFAU/gallery-grabber/internal/fetcher/media"
	"github.com/JakeFAU/gallery-grabber/internal/fetcher/retry"
	"github.com/JakeFAU/gallery-grabber/internal/grabber"
	"github.com/JakeFAU/gallery-grabber/internal/hash/sha256"
	"github.com/JakeFAU/gallery-grabber/internal/id/uuid"
	"github.com/JakeFAU/gallery-grabber/internal/logging"
	"github.com/JakeFAU/gallery-grabber/internal/metrics"
	"github.com/JakeFAU/gallery-grabber/internal/pipeline"
	"github.com/JakeFAU/gallery-grabber/internal/policy/ratelimit"
	"github.com/JakeFAU/gallery-grabber/internal/progress"
	"github.com/JakeFAU/gallery-grabber/internal/progress/sinks"
	pubsubpublisher "github.com/JakeFAU/gallery-grabber/internal/publisher/pubsub"
	"github.com/JakeFAU/gallery-grabber/internal/resolver"
	"github.com/JakeFAU/gallery-grabber/internal/source"
	"github.com/JakeFAU/gallery-grabber/internal/storage/gcs"
	"github.com/JakeFAU/gallery-grabber/internal/storage/postgres"
	"github.com/JakeFAU/gallery-grabber/internal/telemetry"
	"github.com/JakeFAU/gallery-grabber/internal/writer"
)

const (
	serviceName     = "gallery-grabber"
	hubCloseTimeout = 10 * time.Second
)

func main() {
	cfgPath, overrides, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "grabber: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(cfgPath, overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("Grab failed", zap.Error(err))
	}
	if syncErr := logger.Sync(); syncErr != nil && !errors.Is(syncErr, syscall.EINVAL) {
		fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
	}
	if err != nil {
		os.Exit(1)
	}
}

// parseFlags reads the command line. Only flags given explicitly become
// overrides so file and environment values survive. --hl is accepted as an
// alias for --headless.
func parseFlags(args []string, output io.Writer) (string, map[string]any, error) {
	fs := pflag.NewFlagSet("grabber", pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "hl" {
			name = "headless"
		}
		return pflag.NormalizedName(name)
	})

	cfgPath := fs.StringP("config", "c", "", "Path to config file")
	target := fs.StringP("target", "t", "", "Target gallery page")
	out := fs.StringP("output", "o", "", "Output directory")
	mode := fs.StringP("mode", "m", string(grabber.ModeVideo), "Mode: v, p, f, s (video, preview, from text file or selected from directory)")
	headlessRun := fs.Bool("headless", false, "Run the browser without a window")

	if err := fs.Parse(args); err != nil {
		return "", nil, err //nolint:wrapcheck // flag errors are already descriptive
	}
	if fs.NArg() > 0 {
		return "", nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	overrides := map[string]any{}
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "target":
			overrides["grabber.target"] = *target
		case "output":
			overrides["grabber.output"] = *out
		case "mode":
			overrides["grabber.mode"] = *mode
		case "headless":
			overrides["grabber.headless"] = *headlessRun
		}
	})
	return *cfgPath, overrides, nil
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	mode := cfg.Mode()
	if mode == grabber.ModePreview {
		return fmt.Errorf("%w: %s", grabber.ErrUnsupportedMode, mode.Description())
	}

	_, shutdownTracing, err := telemetry.InitTracerProvider(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promSink, err := sinks.NewPrometheusSink(reg)
	if err != nil {
		return fmt.Errorf("prometheus sink: %w", err)
	}
	grabMetrics, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	hubSinks := []progress.Sink{sinks.NewLogSink(logger.Named("progress")), promSink}

	if cfg.DB.DSN != "" {
		ledger, err := postgres.New(ctx, postgres.Config{DSN: cfg.DB.DSN, Table: cfg.DB.Table})
		if err != nil {
			return fmt.Errorf("connect ledger: %w", err)
		}
		defer ledger.Close()
		if err := ledger.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ledger schema: %w", err)
		}
		hubSinks = append(hubSinks, sinks.NewLedgerSink(ledger, logger.Named("ledger")))
	}
	if cfg.PubSub.TopicName != "" {
		pub, err := pubsubpublisher.Connect(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
		if err != nil {
			return fmt.Errorf("connect pubsub: %w", err)
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warn("Pub/Sub close failed", zap.Error(err))
			}
		}()
		hubSinks = append(hubSinks, sinks.NewPublishSink(pub, cfg.PubSub.TopicName, logger.Named("publish")))
	}

	hub := progress.NewHub(progress.Config{
		BufferSize:     cfg.Progress.BufferSize,
		MaxBatchEvents: cfg.Progress.MaxBatchEvents,
		MaxBatchWait:   cfg.MaxBatchWait(),
		Logger:         logger.Named("hub"),
	}, hubSinks...)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), hubCloseTimeout)
		defer cancel()
		if err := hub.Close(closeCtx); err != nil {
			logger.Warn("Progress hub close failed", zap.Error(err))
		}
	}()

	var status *api.Server
	if cfg.Metrics.Addr != "" {
		status = api.NewServer(reg, logger, grabMetrics.Middleware)
		srvCtx, cancelSrv := context.WithCancel(context.Background())
		srvDone := make(chan struct{})
		go func() {
			defer close(srvDone)
			if err := status.ListenAndServe(srvCtx, cfg.Metrics.Addr); err != nil {
				logger.Error("Status server failed", zap.Error(err))
			}
		}()
		defer func() {
			cancelSrv()
			<-srvDone
		}()
	}

	var writerOpts []writer.Option
	if cfg.Storage.GCSBucket != "" {
		mirror, err := gcs.Connect(ctx, gcs.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			return fmt.Errorf("connect mirror: %w", err)
		}
		defer func() {
			if err := mirror.Close(); err != nil {
				logger.Warn("Mirror close failed", zap.Error(err))
			}
		}()
		writerOpts = append(writerOpts, writer.WithMirror(mirror))
	}

	retryCfg := retry.Config{MaxAttempts: cfg.Grabber.MaxRequestRetries, Observer: grabMetrics}
	limiter := ratelimit.New(ratelimit.Config{RPS: cfg.HTTP.RateLimitRPS, Burst: cfg.HTTP.RateLimitBurst})
	pageFetcher := retry.New(ratelimit.Wrap(collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.HTTP.UserAgent,
		Timeout:       cfg.PageTimeout(),
		RespectRobots: cfg.HTTP.RespectRobots,
	}), limiter), retryCfg, logger.Named("pages"))
	mediaFetcher := retry.New(ratelimit.Wrap(media.New(media.Config{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.MediaTimeout(),
	}), limiter), retryCfg, logger.Named("media"))

	var scraper source.Scraper
	if mode == grabber.ModeVideo {
		logger.Info("Setting up browser", zap.Bool("headless", cfg.Grabber.Headless))
		chrome := headless.NewChromedp(headless.Config{
			UserAgent:     cfg.HTTP.UserAgent,
			Headless:      cfg.Grabber.Headless,
			RenderTimeout: cfg.RenderTimeout(),
			ScrollSettle:  cfg.ScrollSettle(),
		}, logger.Named("scraper"))
		defer chrome.Close()
		scraper = chrome
	}

	clock := system.New()
	writerOpts = append(writerOpts,
		writer.WithHasher(sha256.New()),
		writer.WithClock(clock),
		writer.WithLogger(logger.Named("writer")),
	)

	newStrategy := func(mode grabber.Mode, dir string) (grabber.Strategy, error) {
		return source.New(mode, source.Deps{
			Target:   cfg.Grabber.Target,
			Dir:      dir,
			Scraper:  scraper,
			Resolver: resolver.New(pageFetcher),
			Logger:   logger.Named("source"),
		})
	}
	newWriter := func(namer grabber.Namer, files writer.Files) grabber.Writer {
		return writer.New(writer.Config{
			APIHost:      cfg.Grabber.APIHost,
			MirrorPrefix: cfg.MirrorPrefix(),
		}, namer, mediaFetcher, files, writerOpts...)
	}

	opts := []pipeline.Option{
		pipeline.WithEmitter(hub),
		pipeline.WithRunID(uuid.New().NewRunID),
		pipeline.WithClock(clock),
		pipeline.WithLogger(logger),
	}
	if status != nil {
		opts = append(opts, pipeline.WithDispatchHook(func() { status.SetReady(true) }))
	}
	p, err := pipeline.New(pipeline.Config{
		Mode:      mode,
		Target:    cfg.Grabber.Target,
		OutputDir: cfg.OutputDir(),
		Threads:   cfg.Grabber.Threads,
	}, newStrategy, newWriter, opts...)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	if _, err := p.Run(ctx); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}
