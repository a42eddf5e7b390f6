package mock

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/mock"
)

// ClientMock mocks the jetstream.ClientInterface
type ClientMock struct {
	mock.Mock
}

// SetupStream mocks the SetupStream method
func (m *ClientMock) SetupStream(ctx context.Context, streamConfig *nats.StreamConfig) error {
	args := m.Called(ctx, streamConfig)
	return args.Error(0)
}

// SetupConsumer mocks the SetupConsumer method
func (m *ClientMock) SetupConsumer(ctx context.Context, streamName string, consumerConfig *nats.ConsumerConfig) error {
	args := m.Called(ctx, streamName, consumerConfig)
	return args.Error(0)
}

// Subscribe mocks the Subscribe method
func (m *ClientMock) Subscribe(subject, consumer, group string, handler nats.MsgHandler) (*nats.Subscription, error) {
	args := m.Called(subject, consumer, group, handler)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*nats.Subscription), args.Error(1)
}

// SubscribePush mocks the SubscribePush method
func (m *ClientMock) SubscribePush(subject, consumer, group, stream string, handler nats.MsgHandler) (*nats.Subscription, error) {
	args := m.Called(subject, consumer, group, stream, handler)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*nats.Subscription), args.Error(1)
}

// Publish mocks the Publish method
func (m *ClientMock) Publish(subject string, data []byte, headers map[string]string) error {
	args := m.Called(subject, data, headers)
	return args.Error(0)
}

// EnsureKeyValue mocks the EnsureKeyValue method
func (m *ClientMock) EnsureKeyValue(ctx context.Context, config *nats.KeyValueConfig) (nats.KeyValue, error) {
	args := m.Called(ctx, config)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(nats.KeyValue), args.Error(1)
}

// NatsConn mocks the NatsConn method
func (m *ClientMock) NatsConn() *nats.Conn {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*nats.Conn)
}

// Close mocks the Close method
func (m *ClientMock) Close() {
	m.Called()
}
