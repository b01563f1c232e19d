package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sivanandareddychinta/PricingServiceDemo/config"
	"github.com/sivanandareddychinta/PricingServiceDemo/service"
)

// Runner drives a PriceService with synthetic producers and consumers.
// Producers emit batch runs on a fixed cadence and occasionally cancel
// one; consumers poll last prices concurrently. It exists so the demo
// binary exercises the full batch lifecycle under realistic
// interleavings.
type Runner struct {
	cfg    config.FeedConfig
	svc    *service.PriceService
	logger zerolog.Logger
	gen    *generator
}

// NewRunner validates the feed configuration and builds a runner bound
// to the given service.
func NewRunner(cfg config.FeedConfig, svc *service.PriceService, logger zerolog.Logger) (*Runner, error) {
	if svc == nil {
		return nil, errors.New("feed: price service must not be nil")
	}
	if len(cfg.Instruments) == 0 {
		return nil, errors.New("feed: at least one instrument must be configured")
	}
	if cfg.Producers <= 0 {
		return nil, errors.New("feed: producers must be positive")
	}
	if cfg.ChunkSize <= 0 || cfg.ChunksPerBatch <= 0 {
		return nil, errors.New("feed: chunk_size and chunks_per_batch must be positive")
	}
	return &Runner{cfg: cfg, svc: svc, logger: logger, gen: newGenerator(cfg)}, nil
}

// Run fans out the configured producers and consumers and blocks until
// the context is cancelled. In-flight batches are completed or cancelled
// before Run returns, so no Started batch outlives the runner.
func (r *Runner) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Producers; i++ {
		wg.Add(1)
		go func(producer int) {
			defer wg.Done()
			r.produce(ctx, producer)
		}(i)
	}
	for i := 0; i < r.cfg.Consumers; i++ {
		wg.Add(1)
		go func(consumer int) {
			defer wg.Done()
			r.consume(ctx, consumer)
		}(i)
	}
	wg.Wait()
	return ctx.Err()
}

func (r *Runner) produce(ctx context.Context, producer int) {
	logger := r.logger.With().Int("producer", producer).Logger()
	ticker := time.NewTicker(r.cfg.BatchInterval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.runBatch(ctx, logger); err != nil {
				logger.Error().Err(err).Msg("batch run failed")
			}
		}
	}
}

func (r *Runner) runBatch(ctx context.Context, logger zerolog.Logger) error {
	id := r.svc.StartBatchRun()

	for chunk := 0; chunk < r.cfg.ChunksPerBatch; chunk++ {
		if ctx.Err() != nil {
			if err := r.svc.CancelBatchRun(id); err != nil {
				return fmt.Errorf("cancel interrupted batch: %w", err)
			}
			return nil
		}
		records := r.gen.chunk(time.Now(), r.cfg.ChunkSize)
		if err := r.svc.UploadRecords(id, records); err != nil {
			return fmt.Errorf("upload chunk %d: %w", chunk, err)
		}
	}

	if r.gen.chance(r.cfg.CancelProbability) {
		if err := r.svc.CancelBatchRun(id); err != nil {
			return fmt.Errorf("cancel batch: %w", err)
		}
		return nil
	}
	if err := r.svc.CompleteBatchRun(id); err != nil {
		return fmt.Errorf("complete batch: %w", err)
	}
	return nil
}

func (r *Runner) consume(ctx context.Context, consumer int) {
	logger := r.logger.With().Int("consumer", consumer).Logger()
	ticker := time.NewTicker(r.cfg.PollInterval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			id := r.gen.pick()
			record, ok, err := r.svc.GetLastPrice(id)
			if err != nil {
				logger.Error().Err(err).Str("instrument", id).Msg("price lookup failed")
				continue
			}
			if !ok {
				logger.Debug().Str("instrument", id).Msg("no price published yet")
				continue
			}
			logger.Debug().
				Str("instrument", id).
				Time("as_of", record.AsOf()).
				Interface("payload", record.Payload()).
				Int("published", r.svc.GetPriceCount()).
				Msg("last price")
		}
	}
}
