package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/mocks"
	"messenger-service/internal/telemetry"
)

func TestEmitPublishesAuditEnvelope(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := telemetry.NewAuditEmitter(publisher, "audit.messenger", "messenger-service", "test")

	var captured telemetry.AuditEnvelope
	publisher.On("PublishJSON", mock.Anything, "audit.messenger", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(2).(telemetry.AuditEnvelope)
		}).
		Return(nil).Once()

	userID := int64(1)
	emitter.Emit(context.Background(), "connection_accepted", 2, "", "req-123", &userID)

	publisher.AssertExpectations(t)
	assert.Equal(t, 1, captured.SchemaVersion)
	assert.Equal(t, "audit_log", captured.EventType)
	assert.Equal(t, "messenger-service", captured.Service)
	assert.Equal(t, "req-123", captured.RequestID)
	require.NotNil(t, captured.UserID)
	assert.Equal(t, int64(1), *captured.UserID)
	assert.Equal(t, "connection_accepted", captured.Payload.Action)
	assert.Equal(t, 2, captured.Payload.PeerID)
}

func TestEmitForwardsRequestIDHeader(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := telemetry.NewAuditEmitter(publisher, "audit.messenger", "messenger-service", "test")

	publisher.On("PublishJSON", mock.Anything, "audit.messenger", mock.Anything,
		map[string]string{"x-request-id": "req-42"}).Return(nil).Once()

	emitter.Emit(context.Background(), "message_sent", 3, "", "req-42", nil)
	publisher.AssertExpectations(t)
}

func TestEmitSwallowsPublishFailure(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := telemetry.NewAuditEmitter(publisher, "audit.messenger", "messenger-service", "test")

	publisher.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(assert.AnError).Once()

	// A broker failure must never surface to the mutating caller.
	emitter.Emit(context.Background(), "connection_removed", 4, "", "req-9", nil)
	publisher.AssertExpectations(t)
}

func TestEmitOnNilEmitter(t *testing.T) {
	var emitter *telemetry.AuditEmitter
	emitter.Emit(context.Background(), "noop", 0, "", "", nil)
}
