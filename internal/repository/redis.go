package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rentacar/internal/config"
	"rentacar/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisDraftRepository keeps the in-progress booking state (query, then
// draft) in Redis, one JSON value per key, TTL-bound. Absence of a key is
// not an error: Load methods return nil.
type RedisDraftRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisDraftRepository(client *redis.Client, ttl time.Duration) *RedisDraftRepository {
	return &RedisDraftRepository{
		client: client,
		ttl:    ttl,
	}
}

func queryKey(sessionID string) string {
	return fmt.Sprintf("booking_query:%s", sessionID)
}

func draftKey(sessionID string) string {
	return fmt.Sprintf("booking_draft:%s", sessionID)
}

func (r *RedisDraftRepository) SaveQuery(ctx context.Context, sessionID string, query *models.BookingQuery) error {
	return r.setJSON(ctx, queryKey(sessionID), query)
}

func (r *RedisDraftRepository) LoadQuery(ctx context.Context, sessionID string) (*models.BookingQuery, error) {
	var query models.BookingQuery
	ok, err := r.getJSON(ctx, queryKey(sessionID), &query)
	if err != nil || !ok {
		return nil, err
	}
	return &query, nil
}

func (r *RedisDraftRepository) SaveDraft(ctx context.Context, sessionID string, draft *models.BookingDraft) error {
	return r.setJSON(ctx, draftKey(sessionID), draft)
}

func (r *RedisDraftRepository) LoadDraft(ctx context.Context, sessionID string) (*models.BookingDraft, error) {
	var draft models.BookingDraft
	ok, err := r.getJSON(ctx, draftKey(sessionID), &draft)
	if err != nil || !ok {
		return nil, err
	}
	return &draft, nil
}

// Clear drops both the query and the draft for the session.
func (r *RedisDraftRepository) Clear(ctx context.Context, sessionID string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, queryKey(sessionID), draftKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear draft state: %w", err)
	}
	return nil
}

func (r *RedisDraftRepository) setJSON(ctx context.Context, key string, value interface{}) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal draft state: %w", err)
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set draft state: %w", err)
	}
	return nil
}

func (r *RedisDraftRepository) getJSON(ctx context.Context, key string, target interface{}) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get draft state: %w", err)
	}
	if err := json.Unmarshal([]byte(val), target); err != nil {
		return false, fmt.Errorf("failed to unmarshal draft state: %w", err)
	}
	return true, nil
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
