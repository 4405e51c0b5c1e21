package kafka

import (
	"Helpdock/internal/pkg/consts"
	"Helpdock/internal/pkg/es"
	"context"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMessageRepo struct {
	mock.Mock
}

func (m *mockMessageRepo) IndexMessage(ctx context.Context, msg *es.MessageES) error {
	return m.Called(msg).Error(0)
}

func (m *mockMessageRepo) Search(ctx context.Context, workspaceID, queryText string, from, size int) ([]*es.MessageES, error) {
	args := m.Called(workspaceID, queryText, from, size)
	return args.Get(0).([]*es.MessageES), args.Error(1)
}

func (m *mockMessageRepo) DeleteByWorkspace(ctx context.Context, workspaceID string) error {
	return m.Called(workspaceID).Error(0)
}

func encode(t *testing.T, evt *Event) *sarama.ConsumerMessage {
	t.Helper()
	b, err := json.Marshal(evt)
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Value: b}
}

func TestIndexHandlerIndexesTextMessages(t *testing.T) {
	repo := &mockMessageRepo{}
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	repo.On("IndexMessage", &es.MessageES{
		MessageID:      "m1",
		ConversationID: "c1",
		WorkspaceID:    "w1",
		Sender:         consts.RoleUser,
		Text:           "Hello",
		CreatedAt:      at,
	}).Return(nil).Once()

	h := NewMessageIndexHandler(repo)
	err := h.handle(context.Background(), encode(t, &Event{
		Type:           consts.EventMessageCreated,
		WorkspaceID:    "w1",
		ConversationID: "c1",
		MessageID:      "m1",
		Sender:         consts.RoleUser,
		Text:           "Hello",
		OccurredAt:     at,
	}))

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestIndexHandlerSkipsImagesAndGarbage(t *testing.T) {
	repo := &mockMessageRepo{}
	h := NewMessageIndexHandler(repo)

	err := h.handle(context.Background(), encode(t, &Event{
		Type: consts.EventMessageCreated,
		Text: "data:image/jpeg;base64,AAAA",
	}))
	require.NoError(t, err)

	err = h.handle(context.Background(), &sarama.ConsumerMessage{Value: []byte("{broken")})
	require.NoError(t, err)

	repo.AssertNotCalled(t, "IndexMessage", mock.Anything)
}

func TestIndexHandlerDropsWorkspaceDocuments(t *testing.T) {
	repo := &mockMessageRepo{}
	repo.On("DeleteByWorkspace", "w9").Return(nil).Once()

	h := NewMessageIndexHandler(repo)
	err := h.handle(context.Background(), encode(t, &Event{Type: consts.EventWorkspaceDeleted, WorkspaceID: "w9"}))

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestEventKeyPrefersConversation(t *testing.T) {
	assert.Equal(t, "c", (&Event{ConversationID: "c", WorkspaceID: "w"}).Key())
	assert.Equal(t, "w", (&Event{WorkspaceID: "w", TenantID: "t"}).Key())
	assert.Equal(t, "t", (&Event{TenantID: "t"}).Key())
}
