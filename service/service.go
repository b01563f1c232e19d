package service

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/sivanandareddychinta/PricingServiceDemo/pricing"
	"github.com/sivanandareddychinta/PricingServiceDemo/runtime/batches"
	"github.com/sivanandareddychinta/PricingServiceDemo/runtime/store"
	"github.com/sivanandareddychinta/PricingServiceDemo/telemetry"
)

// PriceService is the public entry point used by producers and
// consumers. It is a thin facade over the batch registry and the
// published price store: the methods add logging and telemetry but no
// semantics of their own, and all of them are safe for concurrent use.
type PriceService struct {
	registry  *batches.Registry
	store     *store.Store
	logger    zerolog.Logger
	telemetry telemetry.Collector
}

// New wires a fresh registry and store into a PriceService. A nil
// collector is replaced by the no-op implementation.
func New(logger zerolog.Logger, collector telemetry.Collector) *PriceService {
	if collector == nil {
		collector = telemetry.Noop()
	}
	return &PriceService{
		registry:  batches.NewRegistry(),
		store:     store.New(),
		logger:    logger,
		telemetry: collector,
	}
}

// StartBatchRun opens a new batch run and returns its identifier. It
// always succeeds; the batch stays invisible to consumers until it is
// completed.
func (s *PriceService) StartBatchRun() string {
	id := s.registry.Start()
	s.telemetry.IncBatchStarted()
	s.logger.Debug().Str("batch_id", id).Msg("started batch run")
	return id
}

// UploadRecords appends a chunk of records to the batch's staging area.
// It may be called any number of times before the batch is completed or
// cancelled.
func (s *PriceService) UploadRecords(batchID string, records []pricing.Record) error {
	if err := s.registry.Upload(batchID, records); err != nil {
		s.telemetry.IncRejected("upload")
		return err
	}
	s.telemetry.IncRecordsStaged(len(records))
	s.logger.Debug().Str("batch_id", batchID).Int("records", len(records)).Msg("uploaded records")
	return nil
}

// CompleteBatchRun atomically detaches the batch from the registry,
// reduces its staged records to one per instrument and merges them into
// the published store. Registry errors propagate unchanged; there is no
// partial completion state.
func (s *PriceService) CompleteBatchRun(batchID string) error {
	staged, err := s.registry.TakeForCompletion(batchID)
	if err != nil {
		s.telemetry.IncRejected("complete")
		return err
	}

	started := time.Now()
	s.store.MergeBatch(staged)
	s.telemetry.ObserveMergeDuration(time.Since(started))

	s.telemetry.IncBatchFinished(telemetry.OutcomeCompleted)
	s.telemetry.SetPublishedInstruments(s.store.Count())
	s.logger.Info().Str("batch_id", batchID).Int("records", len(staged)).Msg("completed batch run")
	return nil
}

// CancelBatchRun discards the batch and its staged records. The records
// never become visible to consumers.
func (s *PriceService) CancelBatchRun(batchID string) error {
	discarded, err := s.registry.Cancel(batchID)
	if err != nil {
		s.telemetry.IncRejected("cancel")
		return err
	}
	s.telemetry.IncBatchFinished(telemetry.OutcomeCancelled)
	s.logger.Info().Str("batch_id", batchID).Int("records", discarded).Msg("cancelled batch run")
	return nil
}

// GetLastPrice returns the published last-value record for the
// instrument, if one exists. Reads never block on batch activity.
func (s *PriceService) GetLastPrice(id string) (pricing.Record, bool, error) {
	return s.store.Get(id)
}

// GetPriceCount returns the number of instruments with a published price.
func (s *PriceService) GetPriceCount() int {
	return s.store.Count()
}

// ActiveBatchCount reports the number of batches currently staging
// records, mainly for monitoring.
func (s *PriceService) ActiveBatchCount() int {
	return s.registry.ActiveCount()
}
