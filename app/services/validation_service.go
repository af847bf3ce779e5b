package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/address-validator/app/models"
	"github.com/address-validator/helpers/utils"
	"github.com/address-validator/internal/normalizer"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrBatchTooLarge batch vượt quá giới hạn cấu hình
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")
	// ErrEmptyBatch batch không có địa chỉ nào
	ErrEmptyBatch = errors.New("batch is empty")
	// ErrJobNotFound job không tồn tại hoặc đã hết hạn
	ErrJobNotFound = errors.New("job not found")
	// ErrJobRunning kết quả chưa sẵn sàng
	ErrJobRunning = errors.New("job still running")
)

// Job statuses
const (
	JobStatusRunning = "running"
	JobStatusDone    = "done"
)

// Runner runs the correction pipeline for one address.
type Runner interface {
	Run(ctx context.Context, in models.AddressInput) *models.ValidationResult
}

// BatchOptions giới hạn cho batch và job
type BatchOptions struct {
	Concurrency  int
	MaxSize      int
	MaxJobs      int
	JobRetention time.Duration
}

// JobStatus trạng thái của job
type JobStatus struct {
	JobID     string
	Status    string
	Progress  float64
	Processed int
	Total     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type job struct {
	mu      sync.RWMutex
	status  JobStatus
	results []*models.ValidationResult
}

func (j *job) snapshot() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

func (j *job) advance() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status.Processed++
	j.status.Progress = float64(j.status.Processed) / float64(j.status.Total)
	j.status.UpdatedAt = time.Now()
}

func (j *job) finish(results []*models.ValidationResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = results
	j.status.Status = JobStatusDone
	j.status.UpdatedAt = time.Now()
}

// ValidationService service validate địa chỉ, đơn lẻ hoặc hàng loạt
type ValidationService struct {
	runner    Runner
	logger    *zap.Logger
	opts      BatchOptions
	jobs      *expirable.LRU[string, *job]
	startTime time.Time
}

// NewValidationService tạo mới ValidationService
func NewValidationService(runner Runner, opts BatchOptions, logger *zap.Logger) *ValidationService {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.MaxJobs < 1 {
		opts.MaxJobs = 100
	}
	if opts.JobRetention <= 0 {
		opts.JobRetention = time.Hour
	}
	return &ValidationService{
		runner:    runner,
		logger:    logger,
		opts:      opts,
		jobs:      expirable.NewLRU[string, *job](opts.MaxJobs, nil, opts.JobRetention),
		startTime: time.Now(),
	}
}

// Validate runs the pipeline for one address.
func (s *ValidationService) Validate(ctx context.Context, in models.AddressInput) *models.ValidationResult {
	start := time.Now()
	fingerprint := normalizer.Fingerprint(in.Street, in.Postcode, in.City)

	s.logger.Debug("Validating address", zap.String("fingerprint", fingerprint))
	res := s.runner.Run(ctx, in)

	fields := []zap.Field{
		zap.String("fingerprint", fingerprint),
		zap.String("status", res.Status),
		zap.String("quality", string(res.Quality)),
		zap.Int("score", res.Score),
		zap.Int("corrections", len(res.Corrections)),
		zap.Duration("took", time.Since(start)),
	}
	if res.Status == models.StatusError {
		s.logger.Warn("Address validation ended with error", append(fields, zap.String("message", res.Message))...)
	} else {
		s.logger.Info("Address validated", fields...)
	}
	return res
}

func (s *ValidationService) checkBatch(inputs []models.AddressInput) error {
	if len(inputs) == 0 {
		return ErrEmptyBatch
	}
	if s.opts.MaxSize > 0 && len(inputs) > s.opts.MaxSize {
		return fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(inputs), s.opts.MaxSize)
	}
	return nil
}

// ValidateBatch validates independent addresses with bounded concurrency.
// Results keep input order. Entries not started before ctx is done get an
// error result.
func (s *ValidationService) ValidateBatch(ctx context.Context, inputs []models.AddressInput) ([]*models.ValidationResult, error) {
	if err := s.checkBatch(inputs); err != nil {
		return nil, err
	}
	return s.validateAll(ctx, inputs, nil), nil
}

func (s *ValidationService) validateAll(ctx context.Context, inputs []models.AddressInput, onDone func()) []*models.ValidationResult {
	start := time.Now()
	results := make([]*models.ValidationResult, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = models.NewErrorResult(in, nil, "batch cancelled: "+err.Error())
			} else {
				results[i] = s.Validate(gctx, in)
			}
			if onDone != nil {
				onDone()
			}
			return nil
		})
	}
	_ = g.Wait() // workers never fail; errors live in the results

	s.logger.Info("Batch completed",
		zap.Int("total", len(inputs)),
		zap.Duration("took", time.Since(start)))
	return results
}

// StartJob queues inputs for background validation and returns the job id.
func (s *ValidationService) StartJob(inputs []models.AddressInput) (JobStatus, error) {
	if err := s.checkBatch(inputs); err != nil {
		return JobStatus{}, err
	}

	now := time.Now()
	j := &job{status: JobStatus{
		JobID:     utils.GenerateUUID(),
		Status:    JobStatusRunning,
		Total:     len(inputs),
		CreatedAt: now,
		UpdatedAt: now,
	}}
	s.jobs.Add(j.status.JobID, j)

	s.logger.Info("Batch job created",
		zap.String("job_id", j.status.JobID),
		zap.Int("total_addresses", len(inputs)))

	// detached from the request; the job outlives it
	go func() {
		results := s.validateAll(context.Background(), inputs, j.advance)
		j.finish(results)
		s.logger.Info("Batch job completed", zap.String("job_id", j.status.JobID))
	}()

	return j.snapshot(), nil
}

// GetJobStatus lấy trạng thái job
func (s *ValidationService) GetJobStatus(jobID string) (JobStatus, error) {
	j, ok := s.jobs.Get(jobID)
	if !ok {
		return JobStatus{}, ErrJobNotFound
	}
	return j.snapshot(), nil
}

// GetJobResults lấy kết quả job đã hoàn thành
func (s *ValidationService) GetJobResults(jobID string) ([]*models.ValidationResult, error) {
	j, ok := s.jobs.Get(jobID)
	if !ok {
		return nil, ErrJobNotFound
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.status.Status != JobStatusDone {
		return nil, ErrJobRunning
	}
	return j.results, nil
}

// GetStartTime lấy thời gian khởi động service
func (s *ValidationService) GetStartTime() time.Time {
	return s.startTime
}

// MaxBatchSize is the configured batch limit, 0 for none.
func (s *ValidationService) MaxBatchSize() int {
	return s.opts.MaxSize
}
