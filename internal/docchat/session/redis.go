package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	redisopts "github.com/kart-io/docchat/pkg/options/redis"
	"github.com/kart-io/docchat/pkg/utils/errors"
	"github.com/kart-io/docchat/pkg/utils/json"
)

// RedisStore 实现基于 Redis 的会话存储。
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore 创建 Redis 会话存储，并验证连接可用。
func NewRedisStore(opts *redisopts.Options) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr(),
		Password:     opts.Password,
		DB:           opts.Database,
		MaxRetries:   opts.MaxRetries,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolTimeout:  opts.PoolTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{
		client:    client,
		keyPrefix: opts.KeyPrefix,
		ttl:       opts.SessionTTL,
	}, nil
}

func (s *RedisStore) key(sessionID string) string {
	return fmt.Sprintf("%s:session:%s", s.keyPrefix, sessionID)
}

// Load 读取会话状态，键不存在时返回空状态。
func (s *RedisStore) Load(ctx context.Context, sessionID string) (*State, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err == redis.Nil {
		return NewState(), nil
	}
	if err != nil {
		return nil, errors.ErrSessionLoadFailed.WithCause(err)
	}

	state := NewState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, errors.ErrSessionLoadFailed.WithCause(err)
	}
	return state, nil
}

// Save 保存会话状态并刷新 TTL。
func (s *RedisStore) Save(ctx context.Context, sessionID string, state *State) error {
	state.UpdatedAt = time.Now()

	data, err := json.Marshal(state)
	if err != nil {
		return errors.ErrSessionSaveFailed.WithCause(err)
	}

	if err := s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return errors.ErrSessionSaveFailed.WithCause(err)
	}
	return nil
}

// Delete 删除会话状态。
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return errors.ErrSessionSaveFailed.WithCause(err)
	}
	return nil
}

// Close 关闭 Redis 连接。
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// 确保 RedisStore 实现了 Store 接口。
var _ Store = (*RedisStore)(nil)
