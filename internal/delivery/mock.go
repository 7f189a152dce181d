package delivery

import (
	"context"
	"sync"
)

// SentMessage records one delivery request made to a MockSender
type SentMessage struct {
	Token   string
	Topic   string
	Message Message
}

// MockSender is a Sender for tests. It records every request and lets tests
// override behaviour per method.
type MockSender struct {
	mu   sync.Mutex
	Sent []SentMessage

	SendToDeviceFunc func(ctx context.Context, token string, msg Message) error
	SendToTopicFunc  func(ctx context.Context, topic string, msg Message) error
}

// NewMockSender creates a MockSender that accepts everything
func NewMockSender() *MockSender {
	return &MockSender{}
}

func (m *MockSender) SendToDevice(ctx context.Context, token string, msg Message) error {
	m.record(SentMessage{Token: token, Message: msg})
	if m.SendToDeviceFunc != nil {
		return m.SendToDeviceFunc(ctx, token, msg)
	}
	return nil
}

func (m *MockSender) SendToTopic(ctx context.Context, topic string, msg Message) error {
	m.record(SentMessage{Topic: topic, Message: msg})
	if m.SendToTopicFunc != nil {
		return m.SendToTopicFunc(ctx, topic, msg)
	}
	return nil
}

func (m *MockSender) record(s SentMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, s)
}

// DeviceTokens returns the tokens of all device sends, in call order
func (m *MockSender) DeviceTokens() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var tokens []string
	for _, s := range m.Sent {
		if s.Token != "" {
			tokens = append(tokens, s.Token)
		}
	}
	return tokens
}

// TopicSends returns all topic sends, in call order
func (m *MockSender) TopicSends() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SentMessage
	for _, s := range m.Sent {
		if s.Topic != "" {
			out = append(out, s)
		}
	}
	return out
}
