package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/address-validator/app/models"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRunner struct {
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32

	mu   sync.Mutex
	seen []string
}

func (f *fakeRunner) Run(ctx context.Context, in models.AddressInput) *models.ValidationResult {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.seen = append(f.seen, in.Street)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return &models.ValidationResult{
		Status:      models.StatusSuccess,
		Quality:     models.QualityCertified,
		Score:       100,
		Corrections: []models.Correction{},
		Input:       in,
	}
}

func addresses(n int) []models.AddressInput {
	faker := gofakeit.New(42)
	out := make([]models.AddressInput, n)
	for i := range out {
		out[i] = models.AddressInput{
			Firstname: faker.FirstName(),
			Lastname:  faker.LastName(),
			Street:    faker.Street(),
			Postcode:  faker.Zip(),
			City:      faker.City(),
		}
	}
	return out
}

func newService(r Runner, opts BatchOptions) *ValidationService {
	return NewValidationService(r, opts, zap.NewNop())
}

func TestValidate_DelegatesToRunner(t *testing.T) {
	runner := &fakeRunner{}
	svc := newService(runner, BatchOptions{})

	in := models.AddressInput{Street: "Bahnhofstrasse 1", Postcode: "8001", City: "Zürich"}
	res := svc.Validate(context.Background(), in)

	assert.Equal(t, models.StatusSuccess, res.Status)
	assert.Equal(t, in, res.Input)
	assert.EqualValues(t, 1, runner.calls.Load())
}

func TestValidateBatch_PreservesOrder(t *testing.T) {
	runner := &fakeRunner{delay: 5 * time.Millisecond}
	svc := newService(runner, BatchOptions{Concurrency: 4, MaxSize: 50})

	inputs := addresses(20)
	results, err := svc.ValidateBatch(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, results, len(inputs))
	for i, res := range results {
		assert.Equal(t, inputs[i], res.Input, "index %d", i)
	}
}

func TestValidateBatch_ConcurrencyLimit(t *testing.T) {
	runner := &fakeRunner{delay: 20 * time.Millisecond}
	svc := newService(runner, BatchOptions{Concurrency: 3})

	_, err := svc.ValidateBatch(context.Background(), addresses(12))
	require.NoError(t, err)
	assert.LessOrEqual(t, runner.peak.Load(), int32(3))
	assert.EqualValues(t, 12, runner.calls.Load())
}

func TestValidateBatch_Limits(t *testing.T) {
	svc := newService(&fakeRunner{}, BatchOptions{MaxSize: 2})

	_, err := svc.ValidateBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = svc.ValidateBatch(context.Background(), addresses(3))
	assert.ErrorIs(t, err, ErrBatchTooLarge)
	assert.Equal(t, 2, svc.MaxBatchSize())
}

func TestValidateBatch_CancelledContext(t *testing.T) {
	runner := &fakeRunner{}
	svc := newService(runner, BatchOptions{Concurrency: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inputs := addresses(3)
	results, err := svc.ValidateBatch(ctx, inputs)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, res := range results {
		assert.Equal(t, models.StatusError, res.Status)
		assert.Contains(t, res.Message, "batch cancelled")
		assert.Equal(t, inputs[i], res.Input)
	}
	assert.Zero(t, runner.calls.Load())
}

func TestJobLifecycle(t *testing.T) {
	runner := &fakeRunner{delay: 10 * time.Millisecond}
	svc := newService(runner, BatchOptions{Concurrency: 2})

	inputs := addresses(6)
	status, err := svc.StartJob(inputs)
	require.NoError(t, err)
	assert.NotEmpty(t, status.JobID)
	assert.Equal(t, 6, status.Total)

	require.Eventually(t, func() bool {
		st, err := svc.GetJobStatus(status.JobID)
		return err == nil && st.Status == JobStatusDone
	}, 2*time.Second, 5*time.Millisecond)

	final, err := svc.GetJobStatus(status.JobID)
	require.NoError(t, err)
	assert.Equal(t, 6, final.Processed)
	assert.InDelta(t, 1.0, final.Progress, 1e-9)

	results, err := svc.GetJobResults(status.JobID)
	require.NoError(t, err)
	require.Len(t, results, 6)
	for i, res := range results {
		assert.Equal(t, inputs[i], res.Input)
	}
}

func TestJobResults_WhileRunning(t *testing.T) {
	runner := &fakeRunner{delay: 200 * time.Millisecond}
	svc := newService(runner, BatchOptions{Concurrency: 1})

	status, err := svc.StartJob(addresses(2))
	require.NoError(t, err)

	_, err = svc.GetJobResults(status.JobID)
	assert.ErrorIs(t, err, ErrJobRunning)
}

func TestJob_UnknownAndRejected(t *testing.T) {
	svc := newService(&fakeRunner{}, BatchOptions{MaxSize: 1})

	_, err := svc.GetJobStatus("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
	_, err = svc.GetJobResults("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = svc.StartJob(addresses(2))
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

func TestJobStore_EvictsOldest(t *testing.T) {
	svc := newService(&fakeRunner{}, BatchOptions{MaxJobs: 1})

	first, err := svc.StartJob(addresses(1))
	require.NoError(t, err)
	second, err := svc.StartJob(addresses(1))
	require.NoError(t, err)

	_, err = svc.GetJobStatus(first.JobID)
	assert.ErrorIs(t, err, ErrJobNotFound)
	_, err = svc.GetJobStatus(second.JobID)
	assert.NoError(t, err)
}
