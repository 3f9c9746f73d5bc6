package infrastructure

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"ecommerce/internal/service/platform/domain"
)

const (
	connectionKeyPrefix = "listener:"
	serviceKeyPrefix    = "listener-service:"
	fieldService        = "service"
)

// RedisRegistry 在 Redis 中登记连接：
// listener:{id} 是连接的 hash，listener-service:{service} 是监听该服务的连接集合，两者都带 TTL
type RedisRegistry struct {
	client redis.UniversalClient
}

func NewRedisRegistry(client redis.UniversalClient) *RedisRegistry {
	return &RedisRegistry{client: client}
}

func (r *RedisRegistry) Add(ctx context.Context, connectionID string) error {
	key := connectionKeyPrefix + connectionID
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "id", connectionID)
		pipe.Expire(ctx, key, domain.ConnectionTTL)
		return nil
	})
	return err
}

func (r *RedisRegistry) Bind(ctx context.Context, connectionID, service string) error {
	key := connectionKeyPrefix + connectionID
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return domain.ErrConnectionNotFound
	}

	previous, err := r.client.HGet(ctx, key, fieldService).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	serviceKey := serviceKeyPrefix + service
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previous != "" && previous != service {
			pipe.SRem(ctx, serviceKeyPrefix+previous, connectionID)
		}
		pipe.HSet(ctx, key, fieldService, service)
		pipe.Expire(ctx, key, domain.ConnectionTTL)
		pipe.SAdd(ctx, serviceKey, connectionID)
		pipe.Expire(ctx, serviceKey, domain.ConnectionTTL)
		return nil
	})
	return err
}

func (r *RedisRegistry) Remove(ctx context.Context, connectionID string) error {
	key := connectionKeyPrefix + connectionID
	service, err := r.client.HGet(ctx, key, fieldService).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if service != "" {
			pipe.SRem(ctx, serviceKeyPrefix+service, connectionID)
		}
		pipe.Del(ctx, key)
		return nil
	})
	return err
}

// Connections 返回集合中仍然存在的连接，连接 hash 已过期的成员会从集合中移除
func (r *RedisRegistry) Connections(ctx context.Context, service string, limit int) ([]string, error) {
	serviceKey := serviceKeyPrefix + service
	members, err := r.client.SMembers(ctx, serviceKey).Result()
	if err != nil {
		return nil, err
	}

	var ids, stale []string
	for _, id := range members {
		n, err := r.client.Exists(ctx, connectionKeyPrefix+id).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			stale = append(stale, id)
			continue
		}
		if limit <= 0 || len(ids) < limit {
			ids = append(ids, id)
		}
	}
	if len(stale) > 0 {
		r.client.SRem(ctx, serviceKey, stale)
	}
	return ids, nil
}
