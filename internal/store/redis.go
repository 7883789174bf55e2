package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/fableweave/fableweave/internal/config"
	"github.com/fableweave/fableweave/internal/game"
)

const updateRetries = 8

// RedisStore keeps one JSON session document per game code and implements
// atomic updates with WATCH-guarded optimistic transactions.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewRedisStore(cfg *config.RedisConfig, log zerolog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &RedisStore{client: client, ttl: cfg.SessionTTL, log: log}, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

func sessionKey(code string) string {
	return "game:" + code
}

func (s *RedisStore) Get(ctx context.Context, code string) (*game.GameSession, error) {
	data, err := s.client.Get(ctx, sessionKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, game.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	var sess game.GameSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) Create(ctx context.Context, sess *game.GameSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, sessionKey(sess.Code), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	if !ok {
		return game.ErrConflict
	}
	return nil
}

func (s *RedisStore) Update(ctx context.Context, code string, fn func(*game.GameSession) error) (*game.GameSession, error) {
	key := sessionKey(code)
	var result *game.GameSession

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return game.ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("reading session: %w", err)
		}
		var sess game.GameSession
		if err := json.Unmarshal(data, &sess); err != nil {
			return fmt.Errorf("decoding session: %w", err)
		}
		if err := fn(&sess); err != nil {
			return err
		}
		out, err := json.Marshal(&sess)
		if err != nil {
			return fmt.Errorf("encoding session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = &sess
		return nil
	}

	for attempt := 0; attempt < updateRetries; attempt++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			s.log.Debug().Str("game", code).Int("attempt", attempt+1).Msg("optimistic lock lost, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, game.ErrConflict
}
