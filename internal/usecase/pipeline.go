package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"PriceNewsScanner/internal/domain"
	"PriceNewsScanner/internal/metrics"
	"PriceNewsScanner/internal/ports"
)

// PipelineDeps wires all driven adapters into the ingestion pipeline.
type PipelineDeps struct {
	Source     ports.HeadlineFetcher
	Parser     ports.ArticleParser
	Classifier ports.RelevanceClassifier
	Summarizer ports.Summarizer
	Repository ports.ArticleRepository
	Notifier   ports.Notifier
	Lock       ports.RunLock
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
}

// PipelineOptions holds the run parameters.
type PipelineOptions struct {
	SearchTerm        string
	BackfillPageStart int
	BackfillPageEnd   int
	Workers           int
	ItemTimeout       time.Duration
}

// Pipeline implements the fetch, classify, parse, summarize and store workflow.
type Pipeline struct {
	source     ports.HeadlineFetcher
	parser     ports.ArticleParser
	classifier ports.RelevanceClassifier
	summarizer ports.Summarizer
	repository ports.ArticleRepository
	notifier   ports.Notifier
	lock       ports.RunLock
	metrics    *metrics.Metrics
	logger     *zap.Logger
	opts       PipelineOptions

	running atomic.Bool
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, opts PipelineOptions) (*Pipeline, error) {
	if deps.Source == nil || deps.Parser == nil || deps.Classifier == nil ||
		deps.Summarizer == nil || deps.Repository == nil {
		return nil, errors.New("pipeline requires source, parser, classifier, summarizer and repository")
	}
	if opts.SearchTerm == "" {
		return nil, errors.New("pipeline search term is empty")
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.BackfillPageStart < 1 {
		opts.BackfillPageStart = 1
	}
	if opts.BackfillPageEnd < opts.BackfillPageStart {
		opts.BackfillPageEnd = opts.BackfillPageStart
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Pipeline{
		source:     deps.Source,
		parser:     deps.Parser,
		classifier: deps.Classifier,
		summarizer: deps.Summarizer,
		repository: deps.Repository,
		notifier:   deps.Notifier,
		lock:       deps.Lock,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		opts:       opts,
	}, nil
}

// Running reports whether a run is active in this process.
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// Run executes one ingestion pass. Only a headline fetch failure (or a held
// run lock) fails the run; per-headline failures are counted in the report.
func (p *Pipeline) Run(ctx context.Context, mode domain.RunMode) (*domain.RunReport, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, domain.ErrRunInProgress
	}
	defer p.running.Store(false)

	if p.lock != nil {
		release, ok, err := p.lock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return nil, domain.ErrRunInProgress
		}
		defer release()
	}

	report := domain.NewRunReport(uuid.NewString(), mode, time.Now())
	log := p.logger.With(zap.String("run_id", report.RunID), zap.String("mode", string(mode)))
	finish := p.metrics.RunStarted(mode)

	headlines, err := p.fetch(ctx, mode, report, log)
	if err != nil {
		report.FinishedAt = time.Now()
		finish("failed")
		log.Error("headline fetch failed, run aborted", zap.Error(err))
		return report, fmt.Errorf("fetch headlines: %w", err)
	}
	report.Headlines = len(headlines)
	p.metrics.ObserveHeadlines(len(headlines))

	outcomes := make([]itemOutcome, len(headlines))
	g := new(errgroup.Group)
	g.SetLimit(p.opts.Workers)
	for i, h := range headlines {
		g.Go(func() error {
			outcomes[i] = p.processHeadline(ctx, h, log)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		p.tally(report, o)
	}
	report.FinishedAt = time.Now()

	if len(report.Created) > 0 {
		p.notify(ctx, report.Created, log)
	}

	status := "ok"
	if ctx.Err() != nil {
		status = "cancelled"
	}
	finish(status)

	log.Info("ingestion run finished",
		zap.Int("headlines", report.Headlines),
		zap.Int("admitted", report.Admitted),
		zap.Int("rejected", report.Rejected),
		zap.Int("created", len(report.Created)),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("failed", report.FailedTotal()),
		zap.Int("page_errors", report.PageErrors),
		zap.Duration("took", report.Duration()))

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (p *Pipeline) fetch(ctx context.Context, mode domain.RunMode, report *domain.RunReport, log *zap.Logger) ([]domain.Headline, error) {
	if mode != domain.ModeBackfill {
		return p.source.FetchHeadlines(ctx, p.opts.SearchTerm, 1)
	}

	headlines, err := p.source.FetchHeadlineRange(ctx, p.opts.SearchTerm, p.opts.BackfillPageStart, p.opts.BackfillPageEnd)
	if err == nil {
		return headlines, nil
	}
	pages := p.opts.BackfillPageEnd - p.opts.BackfillPageStart + 1
	failed, perPage := countPageErrors(err)
	if len(headlines) == 0 && (!perPage || failed >= pages) {
		return nil, err
	}

	report.PageErrors = failed
	log.Warn("some listing pages failed", zap.Int("failed_pages", report.PageErrors), zap.Error(err))
	return headlines, nil
}

type itemStatus int

const (
	itemRejected itemStatus = iota
	itemFailed
	itemSkipped
	itemCreated
	itemDuplicate
)

type itemOutcome struct {
	status  itemStatus
	stage   domain.Stage
	article domain.SummarizedArticle
}

func (p *Pipeline) processHeadline(ctx context.Context, h domain.Headline, runLog *zap.Logger) itemOutcome {
	log := runLog.With(zap.String("url", h.URL))

	if p.opts.ItemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.ItemTimeout)
		defer cancel()
	}

	tier, err := p.classifier.Classify(ctx, h.Title)
	if err != nil {
		log.Warn("classify failed", zap.String("title", h.Title), zap.Error(err))
		return p.failed(domain.StageClassify)
	}
	if !tier.Admitted() {
		log.Debug("headline below relevance threshold", zap.String("tier", string(tier)))
		p.metrics.ObserveSkip(metrics.SkipIrrelevant)
		return itemOutcome{status: itemRejected}
	}

	article, err := p.parser.ParseArticle(ctx, h.URL)
	if err != nil {
		log.Warn("parse failed", zap.Error(err))
		return p.failed(domain.StageParse)
	}

	summary, err := p.summarizer.Summarize(ctx, article.Content)
	var summaryErr *domain.SummaryError
	switch {
	case errors.As(err, &summaryErr), err == nil && summary.Empty():
		log.Info("no usable summary, not storing", zap.Error(err))
		p.metrics.ObserveSkip(metrics.SkipEmptySummary)
		return itemOutcome{status: itemSkipped}
	case err != nil:
		log.Warn("summarize failed", zap.Error(err))
		return p.failed(domain.StageSummarize)
	}

	summarized := article.WithSummary(summary)
	created, err := p.repository.Save(ctx, summarized)
	if err != nil {
		log.Error("persist failed", zap.Error(err))
		return p.failed(domain.StagePersist)
	}
	p.metrics.ObserveSave(created)
	if !created {
		log.Debug("article already stored")
		return itemOutcome{status: itemDuplicate}
	}

	log.Info("article stored", zap.String("title", summarized.Title))
	return itemOutcome{status: itemCreated, article: summarized}
}

func (p *Pipeline) failed(stage domain.Stage) itemOutcome {
	p.metrics.ObserveFailure(stage)
	return itemOutcome{status: itemFailed, stage: stage}
}

func (p *Pipeline) tally(report *domain.RunReport, o itemOutcome) {
	if o.status != itemRejected && o.stage != domain.StageClassify {
		report.Admitted++
	}
	switch o.status {
	case itemRejected:
		report.Rejected++
	case itemFailed:
		report.Failed[o.stage]++
	case itemCreated:
		report.Created = append(report.Created, o.article)
	case itemDuplicate:
		report.Duplicates++
	}
}

func (p *Pipeline) notify(ctx context.Context, created []domain.SummarizedArticle, log *zap.Logger) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.PublishDigest(ctx, FormatDigest(created)); err != nil {
		log.Warn("digest not delivered", zap.Error(err))
	}
}

// countPageErrors counts the joined failures of a range fetch. perPage is
// false when any of them is not tied to a single listing page.
func countPageErrors(err error) (failed int, perPage bool) {
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	perPage = true
	for _, e := range errs {
		var fetchErr *domain.FetchError
		if !errors.As(e, &fetchErr) || fetchErr.Page == 0 {
			perPage = false
		}
	}
	return len(errs), perPage
}
