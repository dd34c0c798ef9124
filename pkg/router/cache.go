package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
)

// HttpCacheInMemory caches GET responses for ttlSeconds. Used on read-only
// listing routes whose upstream fetch is expensive.
func HttpCacheInMemory(ttlSeconds int) fiber.Handler {
	if ttlSeconds <= 0 {
		ttlSeconds = 5
	}
	return cache.New(cache.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Method() != fiber.MethodGet
		},
		Expiration:   time.Duration(ttlSeconds) * time.Second,
		CacheControl: true,
	})
}
