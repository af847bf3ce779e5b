package swisspost

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TokenStore shares a token between processes.
type TokenStore interface {
	Load(ctx context.Context) (Token, bool, error)
	Save(ctx context.Context, tok Token) error
}

// RedisTokenStore lưu token trong Redis, TTL bằng thời gian còn hiệu lực
type RedisTokenStore struct {
	client redis.Cmdable
	key    string
	logger *zap.Logger
}

// NewRedisTokenStore connects to redisURL and scopes the key to the client id
// and scope so different credentials never share a token.
func NewRedisTokenStore(redisURL, clientID, scope string, logger *zap.Logger) (*RedisTokenStore, *redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	return NewRedisTokenStoreWithClient(client, clientID, scope, logger), client, nil
}

// NewRedisTokenStoreWithClient wraps an existing client.
func NewRedisTokenStoreWithClient(client redis.Cmdable, clientID, scope string, logger *zap.Logger) *RedisTokenStore {
	return &RedisTokenStore{
		client: client,
		key:    TokenStoreKey(clientID, scope),
		logger: logger,
	}
}

// TokenStoreKey is the redis key for a credential pair.
func TokenStoreKey(clientID, scope string) string {
	sum := sha256.Sum256([]byte(clientID + "\x00" + scope))
	return "address_validator:oauth_token:" + hex.EncodeToString(sum[:8])
}

// Load lấy token từ Redis
func (s *RedisTokenStore) Load(ctx context.Context) (Token, bool, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return Token{}, false, nil
	}
	if err != nil {
		return Token{}, false, err
	}

	var tok Token
	if err := json.Unmarshal([]byte(val), &tok); err != nil {
		s.logger.Warn("Discarding unreadable token in redis", zap.Error(err))
		return Token{}, false, nil
	}
	return tok, true, nil
}

// Save lưu token vào Redis cho tới khi hết hạn
func (s *RedisTokenStore) Save(ctx context.Context, tok Token) error {
	ttl := time.Until(tok.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	return s.client.Set(ctx, s.key, data, ttl).Err()
}
