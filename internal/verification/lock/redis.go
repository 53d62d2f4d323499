package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"carebridge/pkg/platform/sentinel"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis shares decision locks across service instances. Locks expire after
// ttl so a crashed holder cannot block a therapist forever.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

type RedisOption func(*Redis)

func WithPrefix(prefix string) RedisOption {
	return func(l *Redis) {
		l.prefix = prefix
	}
}

func WithLogger(logger *slog.Logger) RedisOption {
	return func(l *Redis) {
		l.logger = logger
	}
}

func NewRedis(client redis.UniversalClient, ttl time.Duration, opts ...RedisOption) *Redis {
	l := &Redis{
		client: client,
		ttl:    ttl,
		prefix: "carebridge:decision-lock:",
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire sets the key with SET NX PX. It returns sentinel.ErrLocked when
// another holder has it and wraps sentinel.ErrUnavailable on Redis errors.
func (l *Redis) Acquire(ctx context.Context, key string) (Release, error) {
	fullKey := l.prefix + key
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire decision lock: %w: %w", sentinel.ErrUnavailable, err)
	}
	if !ok {
		return nil, sentinel.ErrLocked
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release even when the request context was cancelled.
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err(); err != nil {
				l.logger.WarnContext(ctx, "failed to release decision lock",
					"key", fullKey,
					"error", err,
				)
			}
		})
	}, nil
}
