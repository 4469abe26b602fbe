package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SOTO729/Evaluaasiv3-sub005/internal/provisioning"
	"github.com/redis/go-redis/v9"
)

// publicationLockTTL acota la vida del candado por si el proceso muere con
// el candado tomado.
const publicationLockTTL = 15 * time.Second

// RedisSlotLocker implementa el candado del cupo de publicación por código
// ECM sobre Redis. SetNX falla rápido: si otro proceso tiene el candado, el
// llamador recibe ErrConflictRetry en lugar de quedarse esperando.
type RedisSlotLocker struct {
	rdb *redis.Client
}

func NewRedisSlotLocker(rdb *redis.Client) *RedisSlotLocker {
	return &RedisSlotLocker{rdb: rdb}
}

func (l *RedisSlotLocker) AcquirePublicationSlot(ctx context.Context, ecmCode string) (func(), error) {
	key := fmt.Sprintf("publication_slot:%s", provisioning.NormalizeECM(ecmCode))

	ok, err := l.rdb.SetNX(ctx, key, "1", publicationLockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("no fue posible tomar el candado de publicación de %s: %w", ecmCode, err)
	}
	if !ok {
		return nil, provisioning.ErrConflictRetry
	}

	release := func() {
		if err := l.rdb.Del(context.Background(), key).Err(); err != nil {
			slog.Warn("No fue posible liberar el candado de publicación; expirará por TTL", "ecm_code", ecmCode, "error", err)
		}
	}
	return release, nil
}
