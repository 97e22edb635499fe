package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xiaot623/ragbook/internal/domain"
)

const keyPrefix = "conv:"

// RedisStore keeps each session as a Redis list of JSON messages.
// Every write refreshes the key's TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore parses url and pings the server.
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = domain.SessionTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

var _ Store = (*RedisStore)(nil)

func sessionKey(sessionID string) string {
	return keyPrefix + domain.NormalizeSessionID(sessionID)
}

func (r *RedisStore) Append(ctx context.Context, sessionID string, role domain.Role, text string) error {
	if err := validate(role, text); err != nil {
		return err
	}
	return r.push(ctx, sessionID, domain.TurnMessage{Role: role, Text: text})
}

func (r *RedisStore) AppendTurn(ctx context.Context, sessionID, userText, assistantText string) error {
	if err := validate(domain.RoleUser, userText); err != nil {
		return err
	}
	if err := validate(domain.RoleAssistant, assistantText); err != nil {
		return err
	}
	return r.push(ctx, sessionID,
		domain.TurnMessage{Role: domain.RoleUser, Text: userText},
		domain.TurnMessage{Role: domain.RoleAssistant, Text: assistantText},
	)
}

// push appends messages and refreshes the TTL inside one MULTI/EXEC.
func (r *RedisStore) push(ctx context.Context, sessionID string, msgs ...domain.TurnMessage) error {
	values := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		payload, err := json.Marshal(m)
		if err != nil {
			return err
		}
		values = append(values, payload)
	}

	key := sessionKey(sessionID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: redis append: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *RedisStore) Recent(ctx context.Context, sessionID string, n int) ([]domain.TurnMessage, error) {
	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}
	items, err := r.client.LRange(ctx, sessionKey(sessionID), start, -1).Result()
	if err != nil {
		return nil, err
	}

	turns := make([]domain.TurnMessage, 0, len(items))
	for _, item := range items {
		var m domain.TurnMessage
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			// Skip entries written by something else.
			continue
		}
		turns = append(turns, m)
	}
	return turns, nil
}

func (r *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: redis clear: %v", domain.ErrPersistence, err)
	}
	return nil
}

// Close releases the client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
