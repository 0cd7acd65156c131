package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"interview-backend/internal/interview"
	"interview-backend/internal/models"
)

// UserChannel is the pub/sub channel the websocket hub relays to one user.
func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf("user_updates:%s", userID.String())
}

type Publisher interface {
	Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) error
}

type RedisPublisher struct {
	redis *redis.Client
}

func NewRedisPublisher(redisClient *redis.Client) *RedisPublisher {
	return &RedisPublisher{redis: redisClient}
}

func (p *RedisPublisher) Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", msg.Type, err)
	}
	return p.redis.Publish(ctx, UserChannel(userID), string(data)).Err()
}

// SessionEvents forwards controller events to the owning user's websocket
// connections.
type SessionEvents struct {
	pub     Publisher
	timeout time.Duration
}

func NewSessionEvents(pub Publisher) *SessionEvents {
	return &SessionEvents{pub: pub, timeout: 2 * time.Second}
}

func (e *SessionEvents) Notify(ev interview.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	msg := models.WSMessage{Type: string(ev.Type), Payload: ev}
	if err := e.pub.Publish(ctx, ev.Snapshot.UserID, msg); err != nil {
		log.Printf("interview %s: publish %s: %v", ev.Snapshot.ID, ev.Type, err)
	}
}
