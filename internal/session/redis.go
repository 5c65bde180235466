package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gometeo/widget/internal/widget"
)

// Optimistic transactions are retried this many times before giving up.
const maxTxRetries = 10

// RedisStore keeps view state in Redis so several widget instances can serve
// the same session. Keys expire ttl after the last update.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisStore(addr, password string, db int, ttl time.Duration, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	logger.Info("connected to redis", "addr", addr)
	return NewRedisStoreWithClient(client, ttl, logger), nil
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, logger: logger}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Load(ctx context.Context, id string) (widget.State, error) {
	val, err := s.client.Get(ctx, Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return widget.State{}, nil
	}
	if err != nil {
		return widget.State{}, fmt.Errorf("reading session %s: %w", id, err)
	}
	return decode(val)
}

// Update runs fn inside a WATCH/MULTI transaction on the session key and
// retries when another writer got there first.
func (s *RedisStore) Update(ctx context.Context, id string, fn func(*widget.State)) (widget.State, error) {
	key := Key(id)
	var out widget.State

	txf := func(tx *redis.Tx) error {
		st := widget.State{}
		val, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if st, err = decode(val); err != nil {
				return err
			}
		}

		fn(&st)
		data, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("encoding session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		if err == nil {
			out = st
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug("session update conflict, retrying", "session", id, "attempt", i+1)
			continue
		}
		return widget.State{}, fmt.Errorf("updating session %s: %w", id, err)
	}
	return widget.State{}, fmt.Errorf("updating session %s: too many conflicts", id)
}

// Key is the Redis key of a session's view state.
func Key(id string) string {
	return "weather:session:" + id
}

func decode(val []byte) (widget.State, error) {
	var st widget.State
	if err := json.Unmarshal(val, &st); err != nil {
		return widget.State{}, fmt.Errorf("decoding session: %w", err)
	}
	return st, nil
}
