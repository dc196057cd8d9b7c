// Package restore turns an uploaded photo plus chosen services into a
// restored image URL through the inference provider.
package restore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"storefront/internal/domain"
)

// Predictor runs one model prediction. *replicate.Client satisfies it.
type Predictor interface {
	Run(ctx context.Context, identifier string, input map[string]any) (any, error)
}

// Recorder receives one observation per finished restore.
type Recorder interface {
	ObserveRestore(model, outcome string, elapsed time.Duration)
}

const (
	modelDemo         = "demo-mode"
	modelDemoFallback = "demo-fallback"

	demoMessage     = "Demo mode: add a valid REPLICATE_API_TOKEN to enable real processing."
	fallbackMessage = "Demo mode: inference authentication failed. Check your REPLICATE_API_TOKEN environment variable."
)

// Options wires the orchestrator.
type Options struct {
	Predictor        Predictor
	Models           ModelSet
	InferenceEnabled bool
	Timeout          time.Duration
	RatePerSecond    float64
	BatchConcurrency int
	DemoDelay        time.Duration
	Recorder         Recorder
	Logger           zerolog.Logger
}

// Orchestrator selects a model, runs it and normalizes the result.
type Orchestrator struct {
	predictor   Predictor
	models      ModelSet
	enabled     bool
	timeout     time.Duration
	limiter     *rate.Limiter
	concurrency int
	demoDelay   time.Duration
	recorder    Recorder
	logger      zerolog.Logger
}

func NewOrchestrator(opts Options) *Orchestrator {
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	concurrency := opts.BatchConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Orchestrator{
		predictor:   opts.Predictor,
		models:      opts.Models,
		enabled:     opts.InferenceEnabled && opts.Predictor != nil,
		timeout:     opts.Timeout,
		limiter:     rate.NewLimiter(limit, 1),
		concurrency: concurrency,
		demoDelay:   opts.DemoDelay,
		recorder:    opts.Recorder,
		logger:      opts.Logger.With().Str("component", "restore").Logger(),
	}
}

// Restore processes a single image. Provider authentication failures are
// masked with a pass-through fallback job; every other failure is returned.
func (o *Orchestrator) Restore(ctx context.Context, img Image, services domain.Services) (*domain.RestorationJob, error) {
	start := time.Now()
	original := img.DataURL()
	job := &domain.RestorationJob{
		Filename:      img.Filename,
		OriginalImage: original,
		Services:      services,
	}

	if !o.enabled {
		if err := o.sleep(ctx); err != nil {
			return nil, err
		}
		job.RestoredImage = original
		job.Model = modelDemo
		job.Demo = true
		job.Message = demoMessage
		o.observe(modelDemo, "demo", start)
		return job, nil
	}

	model := o.models.Select(services)
	url, err := o.run(ctx, model, original)
	if err != nil {
		kind := domain.Classify(err)
		if kind == domain.KindProviderAuth {
			o.logger.Warn().Err(err).Str("model", model.Name).Msg("inference auth failed, returning original image")
			job.RestoredImage = original
			job.Model = modelDemoFallback
			job.Demo = true
			job.Fallback = true
			job.Message = fallbackMessage
			o.observe(model.Name, "fallback", start)
			return job, nil
		}
		o.logger.Error().Err(err).Str("model", model.Name).Str("kind", string(kind)).Msg("restore failed")
		o.observe(model.Name, string(kind), start)
		return nil, err
	}

	job.RestoredImage = url
	job.Model = model.Identifier
	o.observe(model.Name, "success", start)
	return job, nil
}

func (o *Orchestrator) run(ctx context.Context, model Model, dataURL string) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	if err := o.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("restore: wait for inference slot: %w", err)
	}
	output, err := o.predictor.Run(ctx, model.Identifier, model.Input(dataURL))
	if err != nil {
		return "", fmt.Errorf("restore: run %s: %w", model.Name, err)
	}
	return NormalizeOutput(output)
}

func (o *Orchestrator) sleep(ctx context.Context) error {
	if o.demoDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(o.demoDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (o *Orchestrator) observe(model, outcome string, start time.Time) {
	if o.recorder != nil {
		o.recorder.ObserveRestore(model, outcome, time.Since(start))
	}
}

// BatchItem is the per-file result of RestoreBatch. Exactly one of Job and
// Err is set.
type BatchItem struct {
	Index    int
	Filename string
	Job      *domain.RestorationJob
	Err      error
}

// RestoreBatch restores every image independently; one failure never
// abandons the rest. Results keep input order.
func (o *Orchestrator) RestoreBatch(ctx context.Context, images []Image, services domain.Services) []BatchItem {
	items := make([]BatchItem, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, img := range images {
		items[i] = BatchItem{Index: i, Filename: img.Filename}
		g.Go(func() error {
			job, err := o.Restore(gctx, img, services)
			items[i].Job, items[i].Err = job, err
			return nil
		})
	}
	_ = g.Wait()
	return items
}

// Failed reports whether any batch item failed.
func Failed(items []BatchItem) bool {
	for _, item := range items {
		if item.Err != nil {
			return true
		}
	}
	return false
}

// IsOutputFormat reports whether err came from an unrecognized model output.
func IsOutputFormat(err error) bool {
	return errors.Is(err, domain.ErrUnrecognizedOutput)
}
