package service

import (
	"Helpdock/internal/api/dto"
	"Helpdock/internal/pkg/consts"
	"Helpdock/internal/pkg/mongo"
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var owner = &Viewer{TenantID: "tenant-1", Email: "Owner@Acme.io"}

func startJane(t *testing.T, e *testEnv, ws *mongo.Workspace) *mongo.Conversation {
	t.Helper()
	resp, err := e.convSvc.Start(context.Background(), ws.ID.Hex(), &dto.StartConversationReq{
		Name:  "Jane",
		Email: "jane@x.com",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	conv, err := e.convSvc.AuthorizeVisitor(context.Background(), ws.ID.Hex(), resp.Conversation.ID)
	require.NoError(t, err)
	return conv
}

func TestSendAlternatingRolesKeepsStrictOrder(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ws := e.newWorkspace(t, owner)
	conv := startJane(t, e, ws)

	// 所有消息同一毫秒，顺序只能靠 _id
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	e.convSvc.(*conversationServiceImpl).now = func() time.Time { return fixed }

	const n = 9
	for i := 0; i < n; i++ {
		role := consts.RoleUser
		if i%2 == 1 {
			role = consts.RoleAdmin
		}
		_, err := e.convSvc.SendMessage(ctx, conv, role, "msg")
		require.NoError(t, err)
	}

	page, err := e.convSvc.ListMessages(ctx, conv, "", 0)
	require.NoError(t, err)
	require.Len(t, page.Messages, n)
	assert.False(t, page.HasMore)
	for i := 1; i < n; i++ {
		prev, cur := page.Messages[i-1], page.Messages[i]
		assert.False(t, cur.CreatedAt.Before(prev.CreatedAt))
		assert.Less(t, prev.ID, cur.ID)
		assert.NotEqual(t, prev.Sender, cur.Sender)
	}
}

func TestListMessagesPagesWithoutDuplicates(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ws := e.newWorkspace(t, owner)
	conv := startJane(t, e, ws)

	for i := 0; i < 120; i++ {
		_, err := e.convSvc.SendMessage(ctx, conv, consts.RoleUser, "m")
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	tail, err := e.convSvc.ListMessages(ctx, conv, "", 50)
	require.NoError(t, err)
	require.Len(t, tail.Messages, 50)
	assert.True(t, tail.HasMore)
	for _, m := range tail.Messages {
		seen[m.ID] = true
	}

	cursor := tail.Messages[0].ID
	older, err := e.convSvc.ListMessages(ctx, conv, cursor, 50)
	require.NoError(t, err)
	again, err := e.convSvc.ListMessages(ctx, conv, cursor, 50)
	require.NoError(t, err)
	assert.Equal(t, older.Messages, again.Messages)
	for _, m := range older.Messages {
		assert.False(t, seen[m.ID], "duplicate %s", m.ID)
		seen[m.ID] = true
	}

	oldest, err := e.convSvc.ListMessages(ctx, conv, older.Messages[0].ID, 50)
	require.NoError(t, err)
	assert.Len(t, oldest.Messages, 20)
	assert.False(t, oldest.HasMore)
	for _, m := range oldest.Messages {
		assert.False(t, seen[m.ID])
		seen[m.ID] = true
	}
	assert.Len(t, seen, 120)
}

func TestListMessagesRejectsForeignCursor(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ws := e.newWorkspace(t, owner)
	a := startJane(t, e, ws)
	resp, err := e.convSvc.Start(ctx, ws.ID.Hex(), &dto.StartConversationReq{Name: "Bob", Email: "bob@x.com"})
	require.NoError(t, err)
	b, err := e.convSvc.AuthorizeVisitor(ctx, ws.ID.Hex(), resp.Conversation.ID)
	require.NoError(t, err)

	sent, err := e.convSvc.SendMessage(ctx, b, consts.RoleUser, "hi")
	require.NoError(t, err)

	_, err = e.convSvc.ListMessages(ctx, a, sent.Message.ID, 10)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestSendIncrementsRecipientUnreadAndWorkspaceStats(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ws := e.newWorkspace(t, owner)
	conv := startJane(t, e, ws)

	_, err := e.convSvc.SendMessage(ctx, conv, consts.RoleUser, "Hello")
	require.NoError(t, err)
	_, err = e.convSvc.SendMessage(ctx, conv, consts.RoleUser, "Anyone?")
	require.NoError(t, err)
	_, err = e.convSvc.SendMessage(ctx, conv, consts.RoleAdmin, "Hi")
	require.NoError(t, err)

	fresh, err := e.convSvc.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, fresh.UnreadCountAdmin)
	assert.EqualValues(t, 1, fresh.UnreadCountUser)
	assert.Equal(t, "Hi", fresh.LastMessage)

	stats := e.workspaces.stats(ws.ID)
	assert.EqualValues(t, 1, stats.ConversationCount)
	assert.EqualValues(t, 3, stats.MessageCount)
	assert.EqualValues(t, 1, stats.UnresolvedCount)
	assert.EqualValues(t, 2, stats.UnreadCount)

	assert.Contains(t, e.emitter.types(), consts.EventMessageCreated)
	ok, err := e.rdb.SIsMember(ctx, consts.WorkspaceDirtyKey, ws.ID.Hex()).Result()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSendFailsWhenInsertFails(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ws := e.newWorkspace(t, owner)
	conv := startJane(t, e, ws)
	e.messages.insertErr = errors.New("mongo down")

	_, err := e.convSvc.SendMessage(ctx, conv, consts.RoleUser, "Hello")
	require.Error(t, err)

	fresh, err := e.convSvc.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Zero(t, fresh.UnreadCountAdmin)
	assert.Zero(t, e.workspaces.stats(ws.ID).MessageCount)
}

func TestMarkReadClearsExactlyTheObservedAmount(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ws := e.newWorkspace(t, owner)
	conv := startJane(t, e, ws)

	for i := 0; i < 3; i++ {
		_, err := e.convSvc.SendMessage(ctx, conv, consts.RoleUser, "ping")
		require.NoError(t, err)
	}
	require.EqualValues(t, 3, e.workspaces.stats(ws.ID).UnreadCount)

	cleared, err := e.convSvc.MarkRead(ctx, conv, consts.RoleAdmin)
	require.NoError(t, err)
	assert.EqualValues(t, 3, cleared)
	assert.EqualValues(t, 0, e.workspaces.stats(ws.ID).UnreadCount)

	// 重复投递
	cleared, err = e.convSvc.MarkRead(ctx, conv, consts.RoleAdmin)
	require.NoError(t, err)
	assert.Zero(t, cleared)
	assert.EqualValues(t, 0, e.workspaces.stats(ws.ID).UnreadCount)
}

func TestSetStatusMovesUnresolvedOnlyOnTransition(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ws := e.newWorkspace(t, owner)
	conv := startJane(t, e, ws)
	resolved, open := true, false

	d, err := e.convSvc.SetStatus(ctx, conv, &dto.UpdateStatusReq{IsResolved: &resolved})
	require.NoError(t, err)
	assert.True(t, d.IsResolved)
	assert.True(t, d.IsOpen)
	assert.EqualValues(t, 0, e.workspaces.stats(ws.ID).UnresolvedCount)

	_, err = e.convSvc.SetStatus(ctx, conv, &dto.UpdateStatusReq{IsResolved: &resolved, IsOpen: &open})
	require.NoError(t, err)
	assert.EqualValues(t, 0, e.workspaces.stats(ws.ID).UnresolvedCount)

	reopen := false
	d, err = e.convSvc.SetStatus(ctx, conv, &dto.UpdateStatusReq{IsResolved: &reopen})
	require.NoError(t, err)
	assert.False(t, d.IsResolved)
	assert.False(t, d.IsOpen)
	assert.EqualValues(t, 1, e.workspaces.stats(ws.ID).UnresolvedCount)

	_, err = e.convSvc.SetStatus(ctx, conv, &dto.UpdateStatusReq{})
	assert.ErrorIs(t, err, ErrParamInvalid)
}

func TestStartResumesByExternalIDThenEmail(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ws := e.newWorkspace(t, owner)

	first, err := e.convSvc.Start(ctx, ws.ID.Hex(), &dto.StartConversationReq{
		Name: "Jane", Email: "jane@x.com", ExternalID: "crm-42",
	})
	require.NoError(t, err)
	assert.False(t, first.Resumed)

	byExternal, err := e.convSvc.Start(ctx, ws.ID.Hex(), &dto.StartConversationReq{
		Name: "Jane D", Email: "other@x.com", ExternalID: "crm-42",
	})
	require.NoError(t, err)
	assert.True(t, byExternal.Resumed)
	assert.Equal(t, first.Conversation.ID, byExternal.Conversation.ID)

	byEmail, err := e.convSvc.Start(ctx, ws.ID.Hex(), &dto.StartConversationReq{
		Name: "Jane", Email: "JANE@x.com",
	})
	require.NoError(t, err)
	assert.True(t, byEmail.Resumed)
	assert.Equal(t, first.Conversation.ID, byEmail.Conversation.ID)

	assert.EqualValues(t, 1, e.workspaces.stats(ws.ID).ConversationCount)
	assert.Equal(t, []string{consts.EventConversationStarted}, e.emitter.types())
}

func TestStartReopensClosedConversation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ws := e.newWorkspace(t, owner)
	conv := startJane(t, e, ws)
	closed := false
	_, err := e.convSvc.SetStatus(ctx, conv, &dto.UpdateStatusReq{IsOpen: &closed})
	require.NoError(t, err)

	resp, err := e.convSvc.Start(ctx, ws.ID.Hex(), &dto.StartConversationReq{Name: "Jane", Email: "jane@x.com"})
	require.NoError(t, err)
	assert.True(t, resp.Resumed)
	assert.True(t, resp.Conversation.IsOpen)
}

func TestStartUnknownWorkspace(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.convSvc.Start(context.Background(), "not-an-id", &dto.StartConversationReq{Name: "Jane", Email: "jane@x.com"})
	assert.ErrorIs(t, err, ErrWorkspaceNotFound)
}

func TestCustomDataFollowsActiveSchema(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ws := e.newWorkspace(t, owner)
	conv := startJane(t, e, ws)

	_, err := e.fieldSvc.Save(ctx, ws.ID, &dto.CustomFieldReq{Key: "plan", Label: "Plan", Type: consts.FieldTypeText})
	require.NoError(t, err)
	_, err = e.fieldSvc.Save(ctx, ws.ID, &dto.CustomFieldReq{Key: "seats", Label: "Seats", Type: consts.FieldTypeNumber})
	require.NoError(t, err)

	_, err = e.convSvc.UpdateCustomData(ctx, conv, map[string]string{"unknown": "x"})
	assert.ErrorIs(t, err, ErrCustomFieldUnknown)
	_, err = e.convSvc.UpdateCustomData(ctx, conv, map[string]string{"seats": "many"})
	assert.ErrorIs(t, err, ErrCustomFieldValue)

	d, err := e.convSvc.UpdateCustomData(ctx, conv, map[string]string{"plan": "pro", "seats": "12"})
	require.NoError(t, err)
	assert.Equal(t, "pro", d.CustomData["plan"])

	// 删除 schema 不影响已存的数据
	require.NoError(t, e.fieldSvc.Delete(ctx, ws.ID, "plan"))
	fresh, err := e.convSvc.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "pro", fresh.CustomData["plan"])
	_, err = e.convSvc.UpdateCustomData(ctx, conv, map[string]string{"plan": "free"})
	assert.ErrorIs(t, err, ErrCustomFieldUnknown)

	assert.ErrorIs(t, e.fieldSvc.Delete(ctx, ws.ID, "plan"), ErrCustomFieldNotFound)
}

func TestSendImageBlockedNeverOpensFile(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ws := e.newWorkspace(t, owner)
	conv := startJane(t, e, ws)

	opened := false
	res, err := e.convSvc.SendImage(ctx, conv, consts.RoleUser, func() (io.ReadCloser, error) {
		opened = true
		return io.NopCloser(strings.NewReader("")), nil
	})
	require.NoError(t, err)
	require.NotNil(t, res.Limit)
	assert.Nil(t, res.Message)
	assert.True(t, res.Limit.LimitReached)
	assert.Equal(t, consts.LimitReasonUpload, res.Limit.Reason)
	assert.False(t, opened)

	page, err := e.convSvc.ListMessages(ctx, conv, "", 0)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
}

func TestSendImageStoresDataURIWithPlaceholderPreview(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.setPlan(owner.TenantID, consts.PlanBasic)
	ws := e.newWorkspace(t, owner)
	conv := startJane(t, e, ws)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16))))

	res, err := e.convSvc.SendImage(ctx, conv, consts.RoleUser, func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf.Bytes())), nil
	})
	require.NoError(t, err)
	require.NotNil(t, res.Message)
	assert.True(t, strings.HasPrefix(res.Message.Text, "data:image/jpeg;base64,"))

	fresh, err := e.convSvc.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, consts.ImagePreview, fresh.LastMessage)

	_, err = e.convSvc.SendMessage(ctx, conv, consts.RoleUser, res.Message.Text)
	assert.ErrorIs(t, err, ErrParamInvalid)
}

func TestAuthorizeVisitorIsScopedToWorkspace(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ws := e.newWorkspace(t, owner)
	other := e.newWorkspace(t, &Viewer{TenantID: "tenant-2", Email: "b@b.io"})
	conv := startJane(t, e, ws)

	_, err := e.convSvc.AuthorizeVisitor(ctx, other.ID.Hex(), conv.ID.Hex())
	assert.ErrorIs(t, err, ForbiddenError)
}

func TestAuthorizeAdminRejectsLockedConversation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ws := e.newWorkspace(t, owner)
	_, err := e.planSvc.UpdatePlan(ctx, consts.PlanTrial, &dto.PlanLimitsPatch{MaxCustomers: intPtr(1)})
	require.NoError(t, err)

	older := startJane(t, e, ws)
	resp, err := e.convSvc.Start(ctx, ws.ID.Hex(), &dto.StartConversationReq{Name: "Bob", Email: "bob@x.com"})
	require.NoError(t, err)
	e.convs.setUpdatedAt(older.ID, time.Now().Add(-time.Hour))

	_, limit, err := e.convSvc.AuthorizeAdmin(ctx, owner, older.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, limit)
	assert.Equal(t, consts.LimitReasonChat, limit.Reason)

	_, limit, err = e.convSvc.AuthorizeAdmin(ctx, owner, resp.Conversation.ID)
	require.NoError(t, err)
	assert.Nil(t, limit)

	stranger := &Viewer{TenantID: "tenant-9", Email: "x@y.io"}
	_, _, err = e.convSvc.AuthorizeAdmin(ctx, stranger, older.ID.Hex())
	assert.ErrorIs(t, err, ForbiddenError)
}

func intPtr(i int) *int { return &i }
