package dao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"voice-aftercare/model"
)

const defaultSaveRetries = 3

type RedisStore struct {
	client     *redis.Client
	keyPrefix  string
	ttl        time.Duration
	maxRetries int
}

func NewRedisStore(addr, password string, db int, ttl time.Duration) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStore{
		client:     client,
		keyPrefix:  "voice-aftercare:session:",
		ttl:        ttl,
		maxRetries: defaultSaveRetries,
	}
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*model.ConversationState, error) {
	if err := validateID(sessionID); err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, s.keyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, err
	}

	var st model.ConversationState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return st.Clone(), nil
}

// Save writes st under WATCH so a concurrent writer either loses the version
// check or aborts the transaction; aborted transactions are retried.
func (s *RedisStore) Save(ctx context.Context, st *model.ConversationState) error {
	if err := validateSession(st); err != nil {
		return err
	}

	key := s.keyPrefix + st.SessionID
	for i := 0; i <= s.maxRetries; i++ {
		var saved int64
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			currentData, err := tx.Get(ctx, key).Bytes()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if err == nil {
				var current model.ConversationState
				if err := json.Unmarshal(currentData, &current); err != nil {
					return err
				}
				if current.Version != st.Version {
					return fmt.Errorf("%w: %s stored v%d, saving v%d", ErrSessionConflict, st.SessionID, current.Version, st.Version)
				}
			}

			next := st.Clone()
			next.Version++
			data, err := json.Marshal(next)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, s.ttl)
				return nil
			})
			saved = next.Version
			return err
		}, key)

		if err == nil {
			st.Version = saved
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		if i < s.maxRetries {
			time.Sleep(time.Millisecond * time.Duration(10*(i+1)))
		}
	}
	return fmt.Errorf("%w for session %s", ErrMaxRetries, st.SessionID)
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := validateID(sessionID); err != nil {
		return err
	}
	return s.client.Del(ctx, s.keyPrefix+sessionID).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
