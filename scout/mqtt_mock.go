package scout

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MockToken implements mqtt.Token for tests. It is always already
// complete.
type MockToken struct {
	err  error
	done chan struct{}
}

// NewMockToken returns a completed token carrying err.
func NewMockToken(err error) *MockToken {
	done := make(chan struct{})
	close(done)
	return &MockToken{err: err, done: done}
}

func (t *MockToken) Wait() bool                       { return true }
func (t *MockToken) WaitTimeout(_ time.Duration) bool { return true }
func (t *MockToken) Done() <-chan struct{}            { return t.done }
func (t *MockToken) Error() error                     { return t.err }

// MockMessage records one published message.
type MockMessage struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// MockClient is an in-memory mqtt.Client for tests. It records
// published messages and can be told to fail.
type MockClient struct {
	mu                sync.RWMutex
	connected         bool
	publishedMessages []MockMessage
	publishError      error
}

// NewMockClient returns a disconnected mock client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// SetConnected sets the connection state.
func (c *MockClient) SetConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = connected
}

// SetPublishError makes every Publish fail with err.
func (c *MockClient) SetPublishError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishError = err
}

// PublishedMessages returns a copy of everything published so far.
func (c *MockClient) PublishedMessages() []MockMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]MockMessage, len(c.publishedMessages))
	copy(out, c.publishedMessages)
	return out
}

func (c *MockClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *MockClient) IsConnectionOpen() bool {
	return c.IsConnected()
}

func (c *MockClient) Connect() mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return NewMockToken(nil)
}

func (c *MockClient) Disconnect(quiesce uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

func (c *MockClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return NewMockToken(mqtt.ErrNotConnected)
	}
	if c.publishError != nil {
		return NewMockToken(c.publishError)
	}

	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	}

	c.publishedMessages = append(c.publishedMessages, MockMessage{
		Topic:   topic,
		Payload: data,
		QoS:     qos,
		Retain:  retained,
	})
	return NewMockToken(nil)
}

func (c *MockClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	if !c.IsConnected() {
		return NewMockToken(mqtt.ErrNotConnected)
	}
	return NewMockToken(nil)
}

func (c *MockClient) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	if !c.IsConnected() {
		return NewMockToken(mqtt.ErrNotConnected)
	}
	return NewMockToken(nil)
}

func (c *MockClient) Unsubscribe(topics ...string) mqtt.Token {
	return NewMockToken(nil)
}

func (c *MockClient) AddRoute(topic string, callback mqtt.MessageHandler) {}

func (c *MockClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}
