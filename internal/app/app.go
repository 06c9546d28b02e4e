// Package app builds the collaborators of a crawl run from configuration and
// owns their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/vacancy-crawler/internal/config"
	"github.com/JakeFAU/vacancy-crawler/internal/crawler"
	collyfetcher "github.com/JakeFAU/vacancy-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/vacancy-crawler/internal/pipeline"
	"github.com/JakeFAU/vacancy-crawler/internal/policy/courtesy"
	"github.com/JakeFAU/vacancy-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/vacancy-crawler/internal/runid"
	"github.com/JakeFAU/vacancy-crawler/internal/server"
	"github.com/JakeFAU/vacancy-crawler/internal/sink"
	"github.com/JakeFAU/vacancy-crawler/internal/sink/postgres"
	"github.com/JakeFAU/vacancy-crawler/internal/sink/xlsx"
	"github.com/JakeFAU/vacancy-crawler/internal/storage"
	gcsstorage "github.com/JakeFAU/vacancy-crawler/internal/storage/gcs"
	localstorage "github.com/JakeFAU/vacancy-crawler/internal/storage/local"
	"github.com/JakeFAU/vacancy-crawler/internal/telemetry"
)

const (
	serviceName     = "vacancy-crawler"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// App contains the dependencies of one crawl run.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	runID  string

	runner   *pipeline.Runner
	server   *server.Server
	workbook *xlsx.Workbook

	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// Build creates the run's dependencies. On error everything built so far is
// released.
func Build(ctx context.Context, cfg config.Config, ids runid.Generator, logger *zap.Logger) (a *App, err error) {
	if ids == nil {
		ids = runid.UUIDv7{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	runID, err := ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("run id: %w", err)
	}
	a = &App{cfg: cfg, runID: runID, logger: logger.With(zap.String("run_id", runID))}
	defer func() {
		if err != nil {
			if cerr := a.Close(context.WithoutCancel(ctx)); cerr != nil {
				a.logger.Warn("release after failed build", zap.Error(cerr))
			}
			a = nil
		}
	}()

	tp, err := telemetry.InitTracerProvider(ctx, telemetry.Config{
		ServiceName: serviceName,
		RunID:       runID,
		Exporter:    cfg.Tracing.Exporter,
	})
	if err != nil {
		return a, fmt.Errorf("tracer init failed: %w", err)
	}
	a.onClose("tracer", tp.Shutdown)

	if err = localstorage.PrepareDir(cfg.Output.Dir, cfg.Output.Clean); err != nil {
		return a, fmt.Errorf("prepare output dir: %w", err)
	}

	sinks, err := a.setupSinks(ctx)
	if err != nil {
		return a, err
	}

	var gcs *gcsstorage.BlobStore
	if cfg.GCS.Bucket != "" {
		if gcs, err = a.setupGCS(ctx); err != nil {
			return a, err
		}
	}
	archive, err := a.setupArchive(gcs)
	if err != nil {
		return a, err
	}

	publisher, err := a.setupPublisher(ctx)
	if err != nil {
		return a, err
	}

	deps := pipeline.Dependencies{
		Collector: a.setupController(),
		Fetcher:   a.setupFetcher(),
		Pacer: courtesy.New(courtesy.Config{
			MinDelay: cfg.Courtesy.MinDelay,
			MaxDelay: cfg.Courtesy.MaxDelay,
			MaxRPS:   cfg.Courtesy.MaxRPS,
			Burst:    cfg.Courtesy.Burst,
		}),
		Sink:    sinks,
		Archive: archive,
	}
	if gcs != nil {
		deps.Uploader = gcs
	}
	if publisher != nil {
		deps.Publisher = publisher
	}
	a.runner = pipeline.New(deps, pipeline.Config{
		Workers:   cfg.Fetch.Workers,
		Artifacts: []pipeline.Artifact{{Path: a.workbook.Path(), ContentType: xlsxContentType}},
	}, runID, a.logger.Named("pipeline"))

	if cfg.Metrics.ListenAddr != "" {
		a.server = server.New(func() any { return a.runner.Progress() }, a.logger.Named("http"))
	}
	a.logger.Info("crawl run built",
		zap.Int("target", cfg.Crawl.TotalArticles()),
		zap.Int("workers", cfg.Fetch.Workers),
		zap.Bool("headless", cfg.Crawl.Headless()),
		zap.String("output", a.workbook.Path()),
	)
	return a, nil
}

// RunID identifies this run in artifacts, rows and notifications.
func (a *App) RunID() string { return a.runID }

// Run executes the crawl. When a metrics address is configured the HTTP
// server runs alongside and stops with the crawl.
func (a *App) Run(ctx context.Context) (pipeline.Summary, error) {
	if a.server == nil {
		return a.runner.Run(ctx, a.cfg.Crawl)
	}

	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	g := new(errgroup.Group)
	g.Go(func() error {
		return a.server.ListenAndServe(serverCtx, a.cfg.Metrics.ListenAddr)
	})

	summary, runErr := a.runner.Run(ctx, a.cfg.Crawl)
	stopServer()
	if err := g.Wait(); err != nil {
		a.logger.Warn("metrics server failed", zap.Error(err))
	}
	return summary, runErr
}

// Close releases every resource in reverse creation order.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

func (a *App) setupSinks(ctx context.Context) (sink.Sink, error) {
	wb, err := xlsx.New(xlsx.Config{
		Dir:   a.cfg.Output.Dir,
		Name:  a.cfg.Output.Workbook,
		Sheet: a.cfg.Output.Sheet,
	})
	if err != nil {
		return nil, fmt.Errorf("workbook init failed: %w", err)
	}
	a.workbook = wb
	a.onClose("workbook", func(context.Context) error { return wb.Close() })
	sinks := sink.Multi{wb}

	if a.cfg.Postgres.DSN == "" {
		a.logger.Info("no postgres dsn configured, rows go to the workbook only")
		return sinks, nil
	}
	store, err := postgres.New(ctx, a.cfg.Postgres, a.runID)
	if err != nil {
		return nil, fmt.Errorf("postgres sink init failed: %w", err)
	}
	a.onClose("postgres", func(context.Context) error {
		store.Close()
		return nil
	})
	a.logger.Info("postgres sink initialized", zap.String("table", a.cfg.Postgres.Table))
	return append(sinks, store), nil
}

func (a *App) setupGCS(ctx context.Context) (*gcsstorage.BlobStore, error) {
	client, err := gcsstorage.NewClient(ctx, a.cfg.GCS.Bucket)
	if err != nil {
		return nil, fmt.Errorf("gcs client init failed: %w", err)
	}
	a.onClose("gcs", func(context.Context) error { return client.Close() })
	store, err := gcsstorage.New(client, gcsstorage.Config{Bucket: a.cfg.GCS.Bucket, Prefix: a.cfg.GCS.Prefix})
	if err != nil {
		return nil, fmt.Errorf("gcs blob store init failed: %w", err)
	}
	a.logger.Info("using GCS for artifacts", zap.String("bucket", a.cfg.GCS.Bucket), zap.String("prefix", a.cfg.GCS.Prefix))
	return store, nil
}

// setupArchive picks where raw pages go: the bucket when one is configured,
// otherwise archive.dir.
func (a *App) setupArchive(gcs *gcsstorage.BlobStore) (storage.BlobStore, error) {
	if !a.cfg.Archive.Enabled {
		return nil, nil
	}
	if gcs != nil {
		return gcs, nil
	}
	store, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Archive.Dir})
	if err != nil {
		return nil, fmt.Errorf("local archive init failed: %w", err)
	}
	a.logger.Info("archiving pages locally", zap.String("dir", a.cfg.Archive.Dir))
	return store, nil
}

func (a *App) setupPublisher(ctx context.Context) (*pubsub.Publisher, error) {
	if a.cfg.PubSub.ProjectID == "" {
		a.logger.Info("no Pub/Sub topic configured, run summary is only logged")
		return nil, nil
	}
	publisher, closeFn, err := pubsub.Open(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.Topic)
	if err != nil {
		return nil, fmt.Errorf("pubsub init failed: %w", err)
	}
	a.onClose("pubsub", func(context.Context) error { return closeFn() })
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.Topic),
	)
	return publisher, nil
}

func (a *App) setupController() *crawler.Controller {
	opener := crawler.ChromedpOpener{
		LoadTimeout: a.cfg.Limits.LoadTimeout,
		UserAgent:   a.cfg.Fetch.UserAgent,
		Logger:      a.logger.Named("browser"),
	}
	return crawler.NewController(opener, crawler.ControllerConfig{
		Site:        a.cfg.CrawlSite(),
		ScrollPause: a.cfg.Limits.ScrollPause,
		MaxScrolls:  a.cfg.Limits.MaxScrolls,
	}, a.logger.Named("crawl"))
}

func (a *App) setupFetcher() *collyfetcher.Fetcher {
	conf := a.cfg.Crawl
	a.logger.Debug("colly fetcher config",
		zap.Duration("timeout", a.cfg.RequestTimeout()),
		zap.Bool("verify_certificate", conf.VerifyCertificate()),
		zap.String("encoding", conf.Encoding()),
	)
	return collyfetcher.New(collyfetcher.Config{
		UserAgent:         a.cfg.Fetch.UserAgent,
		Headers:           conf.Headers(),
		Timeout:           a.cfg.RequestTimeout(),
		VerifyCertificate: conf.VerifyCertificate(),
		Encoding:          conf.Encoding(),
	})
}
