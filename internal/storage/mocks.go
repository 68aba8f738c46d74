package storage

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MockRedisClient is an in-memory implementation of RedisClient for testing
type MockRedisClient struct {
	mu           sync.Mutex
	Data         map[string]string
	Sets         map[string]map[string]struct{}
	Published    []PubSubMessage
	StreamData   map[string][]map[string]interface{}
	PubSubData   []PubSubMessage
	PublishErr   error
	GetErr       error
	SetErr       error
	SetAddErr    error
	ExistsErr    error
	DeleteErr    error
	SubscribeErr error
}

// NewMockRedisClient creates an empty mock
func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		Data:       make(map[string]string),
		Sets:       make(map[string]map[string]struct{}),
		StreamData: make(map[string][]map[string]interface{}),
	}
}

func (m *MockRedisClient) PublishToStream(ctx context.Context, stream string, key string, value interface{}) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StreamData[stream] = append(m.StreamData[stream], map[string]interface{}{key: string(jsonData)})
	return nil
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	// Marshal to JSON like the real implementation
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = string(jsonData)
	return nil
}

func (m *MockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetErr != nil {
		return "", m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Data[key], nil
}

func (m *MockRedisClient) GetJSON(ctx context.Context, key string, dest interface{}) error {
	if m.GetErr != nil {
		return m.GetErr
	}
	m.mu.Lock()
	value, exists := m.Data[key]
	m.mu.Unlock()
	if !exists {
		return nil // Return nil if key doesn't exist (like real implementation)
	}
	return json.Unmarshal([]byte(value), dest)
}

func (m *MockRedisClient) Delete(ctx context.Context, key string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
	delete(m.Sets, key)
	return nil
}

func (m *MockRedisClient) Exists(ctx context.Context, key string) (bool, error) {
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.Data[key]
	return exists, nil
}

func (m *MockRedisClient) SetAdd(ctx context.Context, key string, members ...string) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	if m.SetAddErr != nil {
		return m.SetAddErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.Sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.Sets[key] = set
	}
	for _, member := range members {
		set[member] = struct{}{}
	}
	return nil
}

func (m *MockRedisClient) SetMembers(ctx context.Context, key string) ([]string, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	members := make([]string, 0, len(m.Sets[key]))
	for member := range m.Sets[key] {
		members = append(members, member)
	}
	sort.Strings(members)
	return members, nil
}

func (m *MockRedisClient) SetRemove(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range members {
		delete(m.Sets[key], member)
	}
	return nil
}

func (m *MockRedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	jsonData, err := json.Marshal(message)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, PubSubMessage{Channel: channel, Message: string(jsonData)})
	return nil
}

func (m *MockRedisClient) Subscribe(ctx context.Context, channels ...string) (<-chan PubSubMessage, error) {
	if m.SubscribeErr != nil {
		return nil, m.SubscribeErr
	}
	ch := make(chan PubSubMessage, len(m.PubSubData))
	for _, msg := range m.PubSubData {
		ch <- msg
	}
	close(ch)
	return ch, nil
}

func (m *MockRedisClient) Close() error {
	return nil
}

// PublishedOn returns the messages published on a channel
func (m *MockRedisClient) PublishedOn(channel string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.Published {
		if msg.Channel == channel {
			out = append(out, msg.Message)
		}
	}
	return out
}
