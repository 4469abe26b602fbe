package config

import (
	"context"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
)

var RDB *redis.Client
var Ctx = context.Background()

func ConnectRedis() {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		slog.Warn("La variable de entorno REDIS_ADDR no está definida; caché y candados de publicación quedan deshabilitados.")
		return
	}

	RDB = redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	// Verificamos la conexión antes de dar el cliente por bueno.
	if _, err := RDB.Ping(Ctx).Result(); err != nil {
		slog.Error("No fue posible conectar con Redis", "error", err)
		RDB = nil
		return
	}

	slog.Info("Conexión a Redis establecida.")
}
