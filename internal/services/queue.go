package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const ReportQueue = "queue:report-generation"

type JobQueue interface {
	Enqueue(ctx context.Context, queue string, jobID uuid.UUID) error
}

type RedisQueue struct {
	redis *redis.Client
}

func NewRedisQueue(redisClient *redis.Client) *RedisQueue {
	return &RedisQueue{redis: redisClient}
}

func (q *RedisQueue) Enqueue(ctx context.Context, queue string, jobID uuid.UUID) error {
	return q.redis.LPush(ctx, queue, jobID.String()).Err()
}
