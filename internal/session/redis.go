package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/postpilot/models"
)

const redisKeyPattern = "session:*:meta"

// RedisRegistry keeps session manifests in redis for deployments that want
// the registry to survive a process restart.
type RedisRegistry struct {
	client *redis.Client
}

func NewRedisRegistry(addr, password string, db int) *RedisRegistry {
	return &RedisRegistry{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func redisKey(id string) string { return fmt.Sprintf("session:%s:meta", id) }

func (r *RedisRegistry) Create(ctx context.Context, sess models.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(sess.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("store session %s: %w", sess.ID, err)
	}
	return nil
}

func (r *RedisRegistry) Get(ctx context.Context, id string) (models.Session, error) {
	val, err := r.client.Get(ctx, redisKey(id)).Result()
	if err == redis.Nil {
		return models.Session{}, models.ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	var sess models.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return models.Session{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return sess, nil
}

func (r *RedisRegistry) Update(ctx context.Context, id string, mutate func(*models.Session)) (models.Session, error) {
	sess, err := r.Get(ctx, id)
	if err != nil {
		return models.Session{}, err
	}
	mutate(&sess)
	if err := r.Create(ctx, sess); err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

func (r *RedisRegistry) Remove(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("remove session %s: %w", id, err)
	}
	return nil
}

func (r *RedisRegistry) List(ctx context.Context) ([]models.Session, error) {
	var out []models.Session
	iter := r.client.Scan(ctx, 0, redisKeyPattern, 0).Iterator()
	for iter.Next(ctx) {
		val, err := r.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		var sess models.Session
		if err := json.Unmarshal([]byte(val), &sess); err != nil {
			continue
		}
		out = append(out, sess)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
