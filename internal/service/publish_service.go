package service

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/nsvirk/moneybotscharts/internal/repository"
	"github.com/nsvirk/moneybotscharts/pkg/utils/zaplogger"
	"github.com/redis/go-redis/v9"
)

// RedisChannel receives the key of every stored snapshot
var RedisChannel = "CH:CHARTS:SNAPSHOT"

// PublishService forwards Postgres snapshot notifications to Redis
type PublishService struct {
	redisClient *redis.Client
	pgConnStr   string
}

func NewPublishService(redisClient *redis.Client, pgConnStr string) *PublishService {
	return &PublishService{
		redisClient: redisClient,
		pgConnStr:   pgConnStr,
	}
}

// PublishSnapshotsToRedisChannel blocks until ctx is done
func (s *PublishService) PublishSnapshotsToRedisChannel(ctx context.Context) {
	listener := pq.NewListener(s.pgConnStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			zaplogger.Warn("Postgres listener event", zaplogger.Fields{"event": int(ev), "error": err.Error()})
		}
	})
	defer listener.Close()

	if err := listener.Listen(repository.SnapshotChannel); err != nil {
		zaplogger.Error("Failed to listen on Postgres channel", zaplogger.Fields{
			"channel": repository.SnapshotChannel,
			"error":   err.Error(),
		})
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-listener.Notify:
			// nil after a reconnect
			if n == nil {
				continue
			}
			if err := s.redisClient.Publish(ctx, RedisChannel, n.Extra).Err(); err != nil {
				zaplogger.Error("Failed to publish to Redis", zaplogger.Fields{"error": err.Error()})
			}
		case <-time.After(90 * time.Second):
			go func() {
				if err := listener.Ping(); err != nil {
					zaplogger.Error("Error pinging PostgreSQL", zaplogger.Fields{"error": err.Error()})
				}
			}()
		}
	}
}
