package services

import (
	"net/http"

	"github.com/address-validator/app/config"
	"github.com/address-validator/internal/metrics"
	"github.com/address-validator/internal/pipeline"
	"github.com/address-validator/internal/swisspost"
	"go.uber.org/zap"
)

// Stack holds the wired validation components of one process.
type Stack struct {
	Service *ValidationService
	Tokens  *swisspost.TokenCache
	Client  *swisspost.Client

	closers []func() error
}

// NewStack wires token cache, address client, pipeline and service from cfg.
// Returns an error wrapping swisspost.ErrConfig when credentials are missing.
// A Redis token store is used when redis.url is set and reachable; otherwise
// the token lives in memory only.
func NewStack(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*Stack, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st := &Stack{}
	httpClient := &http.Client{}

	var store swisspost.TokenStore
	if cfg.Redis.URL != "" {
		redisStore, redisClient, err := swisspost.NewRedisTokenStore(cfg.Redis.URL, cfg.SwissPost.ClientID, cfg.SwissPost.Scope, logger)
		if err != nil {
			logger.Warn("Redis token store unavailable, token kept in memory", zap.Error(err))
		} else {
			store = redisStore
			st.closers = append(st.closers, redisClient.Close)
		}
	}

	tokens, err := swisspost.NewTokenCache(cfg.OAuth(), store, httpClient, logger.Named("oauth"), m)
	if err != nil {
		st.Close()
		return nil, err
	}

	cache := swisspost.NewLookupCache(cfg.Cache.LookupSize, cfg.Cache.LookupTTL)
	client := swisspost.NewClient(cfg.Client(), tokens, httpClient, cache, logger.Named("swisspost"), m)

	st.Tokens = tokens
	st.Client = client
	st.Service = NewValidationService(
		pipeline.New(client, logger.Named("pipeline"), m),
		BatchOptions{
			Concurrency:  cfg.Batch.Concurrency,
			MaxSize:      cfg.Batch.MaxSize,
			MaxJobs:      cfg.Batch.MaxJobs,
			JobRetention: cfg.Batch.JobRetention,
		},
		logger,
	)
	return st, nil
}

// Close releases the Redis connection, if any.
func (s *Stack) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
