package httpmiddleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RedisWindow is a fixed-window per-IP limiter backed by redis, for
// deployments running more than one API replica.
type RedisWindow struct {
	client    *redis.Client
	perMinute int
	prefix    string
}

// NewRedisWindow creates the limiter.
func NewRedisWindow(client *redis.Client, perMinute int) *RedisWindow {
	return &RedisWindow{client: client, perMinute: perMinute, prefix: "ratelimit:"}
}

// Allow increments the client's counter for the current minute window.
// Redis errors fail open so a limiter outage never takes the API down.
func (l *RedisWindow) Allow(c *gin.Context) bool {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	ctx := c.Request.Context()
	key := l.prefix + ip + ":" + time.Now().Format("200601021504")

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		l.client.Expire(ctx, key, time.Minute)
	}
	return count <= int64(l.perMinute)
}
