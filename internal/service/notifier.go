package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// NotificationChannel is the Redis pub/sub channel the bot frontend listens on.
const NotificationChannel = "socialcredit:notifications"

// NotificationKind says why credits arrived.
type NotificationKind string

const (
	NotifyTransfer   NotificationKind = "transfer"
	NotifyTaskReward NotificationKind = "task_reward"
	NotifyJobReward  NotificationKind = "job_reward"
)

// Notification tells a ledger channel that credits were received.
type Notification struct {
	Kind        NotificationKind `json:"kind"`
	ChannelID   int64            `json:"channel_id"`
	RecipientID int64            `json:"recipient_discord_id"`
	SenderID    int64            `json:"sender_discord_id"`
	Amount      int64            `json:"amount"`
	ItemName    string           `json:"item_name,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Notifier delivers credit notifications to the chat frontend.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// RedisNotifier publishes notifications as JSON over Redis pub/sub.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier creates a notifier publishing on channel.
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = NotificationChannel
	}
	return &RedisNotifier{client: client, channel: channel}
}

// Notify publishes n. It succeeds even when no subscriber is listening.
func (r *RedisNotifier) Notify(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// LogNotifier writes notifications to the process log.
type LogNotifier struct{}

// Notify logs n.
func (LogNotifier) Notify(ctx context.Context, n Notification) error {
	log.Printf("[Notifier] %s: %d credits from %d to %d (channel %d)",
		n.Kind, n.Amount, n.SenderID, n.RecipientID, n.ChannelID)
	return nil
}
