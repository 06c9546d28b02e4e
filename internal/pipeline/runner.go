// Package pipeline runs one crawl: collect detail links from the listing page,
// fetch and parse each vacancy, persist records in discovery order, then
// finalize the sinks, upload artifacts and announce the result.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/vacancy-crawler/internal/crawler"
	"github.com/JakeFAU/vacancy-crawler/internal/extract"
	"github.com/JakeFAU/vacancy-crawler/internal/fetcher"
	"github.com/JakeFAU/vacancy-crawler/internal/metrics"
	"github.com/JakeFAU/vacancy-crawler/internal/sink"
	"github.com/JakeFAU/vacancy-crawler/internal/storage"
	"github.com/JakeFAU/vacancy-crawler/internal/telemetry"
	"github.com/JakeFAU/vacancy-crawler/internal/vacancy"
)

// Run notification event types.
const (
	EventCompleted = "crawl.completed"
	EventFailed    = "crawl.failed"
)

const htmlContentType = "text/html; charset=utf-8"

// Collector gathers detail URLs for a crawl.
type Collector interface {
	Collect(ctx context.Context, conf crawler.Configuration) (*crawler.URLSet, error)
}

// Pacer delays a request to the target site.
type Pacer interface {
	Wait(ctx context.Context, rawURL string) (time.Duration, error)
}

// Publisher announces finished runs.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) (string, error)
}

// Artifact is a local file uploaded once the sinks are finalized.
type Artifact struct {
	Path        string
	ContentType string
}

// Config tunes a Runner.
type Config struct {
	// Workers fetch detail pages concurrently. Records are still emitted in
	// discovery order.
	Workers int
	// Artifacts are uploaded through Dependencies.Uploader after Finalize.
	Artifacts []Artifact
}

// Dependencies are the collaborators of a Runner. Archive, Uploader and
// Publisher are optional.
type Dependencies struct {
	Collector Collector
	Fetcher   fetcher.Fetcher
	Pacer     Pacer
	Sink      sink.Sink
	Archive   storage.BlobStore
	Uploader  storage.BlobStore
	Publisher Publisher
}

// Runner executes a single crawl run.
type Runner struct {
	deps   Dependencies
	cfg    Config
	runID  string
	now    func() time.Time
	logger *zap.Logger

	mu       sync.Mutex
	progress Progress
}

// New wires a Runner for runID.
func New(deps Dependencies, cfg Config, runID string, logger *zap.Logger) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		deps:     deps,
		cfg:      cfg,
		runID:    runID,
		now:      time.Now,
		logger:   logger,
		progress: Progress{RunID: runID, Stage: StagePending},
	}
}

// Run performs the crawl described by conf. Fetch failures skip the URL;
// every other failure aborts the run. The returned Summary is filled in
// either way.
func (r *Runner) Run(ctx context.Context, conf crawler.Configuration) (Summary, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "crawl.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("crawl.run_id", r.runID),
		attribute.Int("crawl.target", conf.TotalArticles()),
	)

	started := r.now()
	r.setStage(StageCollecting)
	runErr := r.run(ctx, conf)

	summary := r.summarize(started, runErr)
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		r.setStage(StageFailed)
		r.logger.Error("crawl failed", zap.String("run_id", r.runID), zap.Error(runErr))
	} else {
		r.setStage(StageDone)
		r.logger.Info("crawl finished",
			zap.String("run_id", r.runID),
			zap.Int("discovered", summary.Discovered),
			zap.Int("written", summary.Written),
			zap.Int("skipped", summary.Skipped),
			zap.Int("salary_malformed", summary.SalaryMalformed),
		)
	}
	r.announce(ctx, summary)
	return summary, runErr
}

func (r *Runner) run(ctx context.Context, conf crawler.Configuration) error {
	urls, err := r.deps.Collector.Collect(ctx, conf)
	if err != nil {
		return fmt.Errorf("collect links: %w", err)
	}
	r.update(func(p *Progress) { p.Discovered = urls.Len() })
	r.logger.Info("links collected", zap.Int("count", urls.Len()), zap.Int("target", conf.TotalArticles()))

	r.setStage(StageFetching)
	processErr := r.process(ctx, urls.URLs())

	r.setStage(StageFinalizing)
	// Finalize even after a failure so the workbook keeps what was written.
	finalizeErr := r.deps.Sink.Finalize(context.WithoutCancel(ctx))
	if finalizeErr != nil {
		finalizeErr = fmt.Errorf("finalize sinks: %w", finalizeErr)
	}
	if err := errors.Join(processErr, finalizeErr); err != nil {
		return err
	}
	return r.upload(ctx)
}

// outcome is the result of handling one detail URL.
type outcome struct {
	record *vacancy.Record
	status string
	err    error
}

// process fans URLs out to the workers and emits results in discovery order.
func (r *Runner) process(ctx context.Context, urls []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]chan outcome, len(urls))
	for i := range results {
		results[i] = make(chan outcome, 1)
	}
	jobs := make(chan int)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range urls {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})
	for w := 0; w < r.cfg.Workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				results[i] <- r.handle(gctx, i+1, urls[i])
			}
			return nil
		})
	}

	err := r.emit(ctx, urls, results)
	cancel()
	_ = g.Wait()
	return err
}

func (r *Runner) emit(ctx context.Context, urls []string, results []chan outcome) error {
	for i := range urls {
		var out outcome
		select {
		case out = <-results[i]:
		case <-ctx.Done():
			return ctx.Err()
		}
		if out.err != nil {
			return out.err
		}
		if out.record == nil {
			r.update(func(p *Progress) { p.Skipped++ })
			metrics.ObserveRecord(metrics.RecordSkipped)
			continue
		}
		if err := r.deps.Sink.AppendRecord(ctx, out.record); err != nil {
			return fmt.Errorf("append record %d: %w", out.record.ID, err)
		}
		metrics.ObserveRecord(out.status)
		r.update(func(p *Progress) {
			p.Written++
			if out.status == metrics.RecordSalaryMalformed {
				p.SalaryMalformed++
			}
		})
	}
	return nil
}

// handle fetches and parses one detail page. A nil record with a nil error
// means the URL was skipped.
func (r *Runner) handle(ctx context.Context, id int, url string) outcome {
	ctx, span := telemetry.Tracer().Start(ctx, "crawl.vacancy")
	defer span.End()
	span.SetAttributes(attribute.Int("vacancy.id", id), attribute.String("vacancy.url", url))

	logger := r.logger.With(zap.Int("id", id), zap.String("url", url))

	if _, err := r.deps.Pacer.Wait(ctx, url); err != nil {
		return outcome{err: fmt.Errorf("courtesy wait: %w", err)}
	}

	metrics.IncActiveWorkers()
	start := time.Now()
	resp, err := r.deps.Fetcher.Fetch(ctx, url)
	metrics.ObserveFetch(fetcher.Outcome(err), time.Since(start))
	metrics.DecActiveWorkers()
	if err != nil {
		if ctx.Err() != nil {
			return outcome{err: ctx.Err()}
		}
		span.RecordError(err)
		logger.Warn("fetch failed, skipping", zap.Error(err))
		return outcome{status: metrics.RecordSkipped}
	}

	r.archive(ctx, id, resp.Body, logger)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		logger.Warn("parse html failed, skipping", zap.Error(err))
		return outcome{status: metrics.RecordSkipped}
	}

	rec := vacancy.New(id, url)
	status := metrics.RecordWritten
	if err := extract.Extract(doc, rec); err != nil {
		if !errors.Is(err, extract.ErrMalformedSalaryText) {
			span.SetStatus(codes.Error, err.Error())
			return outcome{err: fmt.Errorf("extract %s: %w", url, err)}
		}
		logger.Warn("salary text malformed, salary left empty", zap.Error(err))
		rec.SalaryMin, rec.SalaryMax = nil, nil
		status = metrics.RecordSalaryMalformed
	}
	logger.Debug("vacancy parsed", zap.String("title", rec.Title), zap.Stringer("levels", rec.Levels))
	return outcome{record: rec, status: status}
}

func (r *Runner) archive(ctx context.Context, id int, body []byte, logger *zap.Logger) {
	if r.deps.Archive == nil {
		return
	}
	name := path.Join(r.runID, "pages", fmt.Sprintf("%04d.html", id))
	uri, err := r.deps.Archive.PutObject(ctx, name, htmlContentType, bytes.NewReader(body))
	if err != nil {
		logger.Warn("archive page failed", zap.Error(err))
		return
	}
	logger.Debug("page archived", zap.String("uri", uri))
}

func (r *Runner) upload(ctx context.Context) error {
	if r.deps.Uploader == nil {
		return nil
	}
	r.setStage(StageUploading)
	for _, a := range r.cfg.Artifacts {
		uri, err := r.uploadFile(ctx, a)
		if err != nil {
			return err
		}
		r.update(func(p *Progress) { p.Artifacts = append(p.Artifacts, uri) })
		r.logger.Info("artifact uploaded", zap.String("path", a.Path), zap.String("uri", uri))
	}
	return nil
}

func (r *Runner) uploadFile(ctx context.Context, a Artifact) (string, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()
	uri, err := r.deps.Uploader.PutObject(ctx, path.Join(r.runID, filepath.Base(a.Path)), a.ContentType, f)
	if err != nil {
		return "", fmt.Errorf("upload artifact %s: %w", a.Path, err)
	}
	return uri, nil
}

func (r *Runner) announce(ctx context.Context, summary Summary) {
	if r.deps.Publisher == nil {
		return
	}
	event := EventCompleted
	if summary.Error != "" {
		event = EventFailed
	}
	id, err := r.deps.Publisher.Publish(context.WithoutCancel(ctx), event, summary)
	if err != nil {
		r.logger.Warn("publish run summary failed", zap.String("event", event), zap.Error(err))
		return
	}
	r.logger.Info("run summary published", zap.String("event", event), zap.String("message_id", id))
}
