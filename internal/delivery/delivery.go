package delivery

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"github.com/anonto42/dank-memes/backend/internal/logger"
	"go.uber.org/zap"
)

// Message is the visible part of a push notification
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Sender delivers push notifications. Delivery is best-effort: an error means
// the request was not accepted, success does not mean the device displayed it.
type Sender interface {
	SendToDevice(ctx context.Context, token string, msg Message) error
	SendToTopic(ctx context.Context, topic string, msg Message) error
}

// FCMSender delivers through Firebase Cloud Messaging
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender creates a new FCMSender
func NewFCMSender(client *messaging.Client) *FCMSender {
	return &FCMSender{client: client}
}

// SendToDevice sends msg to one registration token
func (s *FCMSender) SendToDevice(ctx context.Context, token string, msg Message) error {
	if token == "" {
		return fmt.Errorf("empty device token")
	}
	id, err := s.client.Send(ctx, &messaging.Message{
		Token:        token,
		Notification: &messaging.Notification{Title: msg.Title, Body: msg.Body},
	})
	if err != nil {
		return fmt.Errorf("fcm send to device: %w", err)
	}
	logger.Log.Debug("Push sent to device", zap.String("message_id", id))
	return nil
}

// SendToTopic sends msg to every subscriber of topic
func (s *FCMSender) SendToTopic(ctx context.Context, topic string, msg Message) error {
	id, err := s.client.Send(ctx, &messaging.Message{
		Topic:        topic,
		Notification: &messaging.Notification{Title: msg.Title, Body: msg.Body},
	})
	if err != nil {
		return fmt.Errorf("fcm send to topic %s: %w", topic, err)
	}
	logger.Log.Debug("Push sent to topic", zap.String("topic", topic), zap.String("message_id", id))
	return nil
}

// LogSender only logs what would be sent. Used for local runs without FCM credentials.
type LogSender struct{}

func (LogSender) SendToDevice(_ context.Context, token string, msg Message) error {
	logger.Log.Info("Push (dry run) to device",
		zap.String("token", token),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body),
	)
	return nil
}

func (LogSender) SendToTopic(_ context.Context, topic string, msg Message) error {
	logger.Log.Info("Push (dry run) to topic",
		zap.String("topic", topic),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body),
	)
	return nil
}
