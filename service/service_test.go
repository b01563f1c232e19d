package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sivanandareddychinta/PricingServiceDemo/pricing"
)

func newTestService(t *testing.T) *PriceService {
	t.Helper()
	return New(zerolog.Nop(), nil)
}

func record(t *testing.T, id string, asOf time.Time, payload interface{}) pricing.Record {
	t.Helper()
	r, err := pricing.NewRecord(id, asOf, payload)
	require.NoError(t, err)
	return r
}

func TestCompletePublishesLastValue(t *testing.T) {
	svc := newTestService(t)
	asOf := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	id := svc.StartBatchRun()
	require.NoError(t, svc.UploadRecords(id, []pricing.Record{record(t, "AAPL", asOf, 100.0)}))
	require.NoError(t, svc.CompleteBatchRun(id))

	published, ok, err := svc.GetLastPrice("AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 100.0, published.Payload())
	require.True(t, published.AsOf().Equal(asOf))
	require.Equal(t, 1, svc.GetPriceCount())
}

func TestOlderTimestampDoesNotOverride(t *testing.T) {
	svc := newTestService(t)
	newer := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)

	first := svc.StartBatchRun()
	require.NoError(t, svc.UploadRecords(first, []pricing.Record{record(t, "AAPL", newer, 100.0)}))
	require.NoError(t, svc.CompleteBatchRun(first))

	second := svc.StartBatchRun()
	require.NoError(t, svc.UploadRecords(second, []pricing.Record{record(t, "AAPL", older, 50.0)}))
	require.NoError(t, svc.CompleteBatchRun(second))

	published, ok, err := svc.GetLastPrice("AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 100.0, published.Payload())
	require.True(t, published.AsOf().Equal(newer))
}

func TestEqualTimestampKeepsFirstStaged(t *testing.T) {
	svc := newTestService(t)
	asOf := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	id := svc.StartBatchRun()
	require.NoError(t, svc.UploadRecords(id, []pricing.Record{
		record(t, "MSFT", asOf, 1.0),
		record(t, "MSFT", asOf, 2.0),
	}))
	require.NoError(t, svc.CompleteBatchRun(id))

	published, ok, err := svc.GetLastPrice("MSFT")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1.0, published.Payload())
}

func TestCancelDiscardsRecords(t *testing.T) {
	svc := newTestService(t)

	id := svc.StartBatchRun()
	require.NoError(t, svc.UploadRecords(id, []pricing.Record{record(t, "TSLA", time.Now(), 10.0)}))
	require.NoError(t, svc.CancelBatchRun(id))

	_, ok, err := svc.GetLastPrice("TSLA")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 0, svc.GetPriceCount())
}

func TestTerminatedBatchOperationsFail(t *testing.T) {
	svc := newTestService(t)
	chunk := []pricing.Record{record(t, "AAPL", time.Now(), 1.0)}

	completed := svc.StartBatchRun()
	require.NoError(t, svc.UploadRecords(completed, chunk))
	require.NoError(t, svc.CompleteBatchRun(completed))

	require.ErrorIs(t, svc.UploadRecords(completed, chunk), pricing.ErrBatchNotFound)
	require.ErrorIs(t, svc.CompleteBatchRun(completed), pricing.ErrBatchNotFound)
	require.ErrorIs(t, svc.CancelBatchRun(completed), pricing.ErrBatchNotFound)

	require.ErrorIs(t, svc.UploadRecords("unknown", chunk), pricing.ErrBatchNotFound)
	require.ErrorIs(t, svc.CompleteBatchRun("unknown"), pricing.ErrBatchNotFound)
	require.ErrorIs(t, svc.CancelBatchRun("unknown"), pricing.ErrBatchNotFound)
}

func TestUploadEmptyChunkFails(t *testing.T) {
	svc := newTestService(t)
	id := svc.StartBatchRun()

	require.ErrorIs(t, svc.UploadRecords(id, nil), pricing.ErrInvalidArgument)

	// The failed upload must not have touched the batch.
	require.NoError(t, svc.UploadRecords(id, []pricing.Record{record(t, "AAPL", time.Now(), 1.0)}))
	require.NoError(t, svc.CompleteBatchRun(id))
	require.Equal(t, 1, svc.GetPriceCount())
}

func TestGetLastPriceRejectsEmptyID(t *testing.T) {
	svc := newTestService(t)
	_, _, err := svc.GetLastPrice("")
	require.ErrorIs(t, err, pricing.ErrInvalidArgument)
}

func TestEmptyBatchCompletesAsNoOp(t *testing.T) {
	svc := newTestService(t)

	id := svc.StartBatchRun()
	require.NoError(t, svc.CompleteBatchRun(id))
	require.Equal(t, 0, svc.GetPriceCount())
}

func TestReadsAreIdempotent(t *testing.T) {
	svc := newTestService(t)
	asOf := time.Now()

	id := svc.StartBatchRun()
	require.NoError(t, svc.UploadRecords(id, []pricing.Record{record(t, "AAPL", asOf, 100.0)}))
	require.NoError(t, svc.CompleteBatchRun(id))

	for i := 0; i < 10; i++ {
		published, ok, err := svc.GetLastPrice("AAPL")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, 100.0, published.Payload())
		require.Equal(t, 1, svc.GetPriceCount())
	}
}

func TestDecimalPayloadsPassThroughOpaque(t *testing.T) {
	svc := newTestService(t)
	payload := decimal.NewFromFloat(101.2345)

	id := svc.StartBatchRun()
	require.NoError(t, svc.UploadRecords(id, []pricing.Record{record(t, "AAPL", time.Now(), payload)}))
	require.NoError(t, svc.CompleteBatchRun(id))

	published, ok, err := svc.GetLastPrice("AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	got, ok := published.Payload().(decimal.Decimal)
	require.True(t, ok)
	require.True(t, got.Equal(payload))
}

func TestConcurrentBatchesPublishDistinctKeys(t *testing.T) {
	svc := newTestService(t)
	base := time.Now()

	const batches = 64
	var wg sync.WaitGroup
	for i := 0; i < batches; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := svc.StartBatchRun()
			instrument := fmt.Sprintf("INST-%03d", i)
			if err := svc.UploadRecords(id, []pricing.Record{record(t, instrument, base.Add(time.Duration(i)), float64(i))}); err != nil {
				t.Errorf("upload %s: %v", instrument, err)
				return
			}
			if err := svc.CompleteBatchRun(id); err != nil {
				t.Errorf("complete %s: %v", instrument, err)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, batches, svc.GetPriceCount())
	for i := 0; i < batches; i++ {
		_, ok, err := svc.GetLastPrice(fmt.Sprintf("INST-%03d", i))
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestConcurrentCompleteAndCancelRace(t *testing.T) {
	svc := newTestService(t)
	asOf := time.Now()

	// Exactly one of complete/cancel may win; the loser must see the
	// batch as already terminated.
	for i := 0; i < 50; i++ {
		id := svc.StartBatchRun()
		instrument := fmt.Sprintf("RACE-%03d", i)
		require.NoError(t, svc.UploadRecords(id, []pricing.Record{record(t, instrument, asOf, float64(i))}))

		var wg sync.WaitGroup
		results := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			results[0] = svc.CompleteBatchRun(id)
		}()
		go func() {
			defer wg.Done()
			results[1] = svc.CancelBatchRun(id)
		}()
		wg.Wait()

		succeeded := 0
		for _, err := range results {
			if err == nil {
				succeeded++
			} else {
				require.ErrorIs(t, err, pricing.ErrBatchNotFound)
			}
		}
		require.Equal(t, 1, succeeded)

		_, ok, err := svc.GetLastPrice(instrument)
		require.NoError(t, err)
		if results[0] == nil {
			require.True(t, ok, "completed batch must be published")
		} else {
			require.False(t, ok, "cancelled batch must never be published")
		}
	}
}
