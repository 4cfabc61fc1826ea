// Package cache хранит отрисованные страницы ленты.
// Инвалидация грубая: любая запись, влияющая на ленту, очищает кэш целиком.
package cache

import (
	"context"
	"time"
)

// DefaultTTL - окно устаревания главной страницы.
const DefaultTTL = 20 * time.Second

type Cache interface {
	// Get возвращает значение и признак попадания.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Invalidate удаляет все записи.
	Invalidate(ctx context.Context) error
}
