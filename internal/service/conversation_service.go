package service

import (
	"Helpdock/internal/api/dto"
	"Helpdock/internal/pkg/broker"
	"Helpdock/internal/pkg/consts"
	"Helpdock/internal/pkg/kafka"
	"Helpdock/internal/pkg/mongo"
	"Helpdock/internal/pkg/security"
	"Helpdock/internal/pkg/util"
	"context"
	"errors"
	"io"
	log "log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultPageSize 打开会话时加载的消息条数
const DefaultPageSize = 50

type ConversationService interface {
	// Start 访客开启会话：先按 externalId，再按邮箱续接，否则新建
	Start(ctx context.Context, workspaceID string, req *dto.StartConversationReq) (*dto.StartConversationResp, error)
	Get(ctx context.Context, id primitive.ObjectID) (*mongo.Conversation, error)

	// AuthorizeAdmin 控制台打开会话：工作区权限 + 可见客户数
	AuthorizeAdmin(ctx context.Context, viewer *Viewer, conversationID string) (*mongo.Conversation, *dto.LimitState, error)
	// AuthorizeVisitor 访客只能访问 token 中的那个会话
	AuthorizeVisitor(ctx context.Context, workspaceID, conversationID string) (*mongo.Conversation, error)
	ListForWorkspace(ctx context.Context, viewer *Viewer, workspaceID string) (*dto.ConversationListResp, error)

	SendMessage(ctx context.Context, conv *mongo.Conversation, role, text string) (*dto.SendResult, error)
	// SendImage 套餐不允许时直接返回 Limit，open 不会被调用
	SendImage(ctx context.Context, conv *mongo.Conversation, role string, open func() (io.ReadCloser, error)) (*dto.SendResult, error)
	ListMessages(ctx context.Context, conv *mongo.Conversation, before string, limit int) (*dto.MessagePage, error)
	// MarkRead 返回本次清零的数量
	MarkRead(ctx context.Context, conv *mongo.Conversation, role string) (int64, error)
	SetStatus(ctx context.Context, conv *mongo.Conversation, req *dto.UpdateStatusReq) (*dto.ConversationDTO, error)
	UpdateCustomData(ctx context.Context, conv *mongo.Conversation, data map[string]string) (*dto.ConversationDTO, error)
}

type conversationServiceImpl struct {
	workspaceRepo mongo.WorkspaceRepo
	convRepo      mongo.ConversationRepo
	messageRepo   mongo.MessageRepo
	workspaceSvc  WorkspaceService
	planSvc       PlanService
	aggregateSvc  AggregateService
	fieldSvc      CustomFieldService
	broker        broker.Broker
	emitter       EventEmitter
	pageSize      int
	now           func() time.Time
}

func NewConversationService(
	workspaceRepo mongo.WorkspaceRepo,
	convRepo mongo.ConversationRepo,
	messageRepo mongo.MessageRepo,
	workspaceSvc WorkspaceService,
	planSvc PlanService,
	aggregateSvc AggregateService,
	fieldSvc CustomFieldService,
	b broker.Broker,
	emitter EventEmitter,
	pageSize int,
) ConversationService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &conversationServiceImpl{
		workspaceRepo: workspaceRepo,
		convRepo:      convRepo,
		messageRepo:   messageRepo,
		workspaceSvc:  workspaceSvc,
		planSvc:       planSvc,
		aggregateSvc:  aggregateSvc,
		fieldSvc:      fieldSvc,
		broker:        b,
		emitter:       emitter,
		pageSize:      pageSize,
		now:           time.Now,
	}
}

// serverTime Mongo 只保存到毫秒，先截断，内存中的顺序与库里一致
func (s *conversationServiceImpl) serverTime() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *conversationServiceImpl) Start(ctx context.Context, workspaceID string, req *dto.StartConversationReq) (*dto.StartConversationResp, error) {
	if err := util.ValidateDTO(req); err != nil {
		return nil, ErrParamInvalid
	}
	wsID, err := primitive.ObjectIDFromHex(workspaceID)
	if err != nil {
		return nil, ErrWorkspaceNotFound
	}
	ws, err := s.workspaceRepo.FindByID(ctx, wsID)
	if err != nil {
		if errors.Is(err, mongo.ErrNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, err
	}
	if len(req.CustomData) > 0 {
		if err = s.fieldSvc.ValidateData(ctx, ws.ID, req.CustomData); err != nil {
			return nil, err
		}
	}

	email := util.NormalizeEmail(req.Email)
	conv, err := s.findExisting(ctx, ws.ID, req.ExternalID, email)
	if err != nil {
		return nil, err
	}

	resumed := conv != nil
	if resumed {
		if err = s.resume(ctx, conv, req.CustomData); err != nil {
			return nil, err
		}
	} else {
		conv, err = s.create(ctx, ws, req, email)
		if err != nil {
			return nil, err
		}
	}

	token, err := security.GenerateVisitorToken(ws.ID.Hex(), conv.ID.Hex(), consts.RoleUser)
	if err != nil {
		return nil, err
	}
	return &dto.StartConversationResp{
		Conversation: toConversationDTO(conv),
		Token:        token,
		Resumed:      resumed,
	}, nil
}

func (s *conversationServiceImpl) findExisting(ctx context.Context, wsID primitive.ObjectID, externalID, email string) (*mongo.Conversation, error) {
	if externalID != "" {
		conv, err := s.convRepo.FindByExternalID(ctx, wsID, externalID)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, mongo.ErrNotFound) {
			return nil, err
		}
	}
	conv, err := s.convRepo.FindByEmail(ctx, wsID, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return conv, nil
}

// resume 已结束的会话重新打开，新传入的自定义数据合并进去
func (s *conversationServiceImpl) resume(ctx context.Context, conv *mongo.Conversation, data map[string]string) error {
	if !conv.IsOpen {
		changed, err := s.convRepo.SetOpen(ctx, conv.ID, true)
		if err != nil {
			return err
		}
		if changed {
			conv.IsOpen = true
			s.notifyConversation(ctx, conv)
		}
	}
	if len(data) > 0 {
		if err := s.convRepo.UpdateCustomData(ctx, conv.ID, data); err != nil {
			return err
		}
		if conv.CustomData == nil {
			conv.CustomData = map[string]string{}
		}
		for k, v := range data {
			conv.CustomData[k] = v
		}
	}
	return nil
}

func (s *conversationServiceImpl) create(ctx context.Context, ws *mongo.Workspace, req *dto.StartConversationReq, email string) (*mongo.Conversation, error) {
	now := s.serverTime()
	conv := &mongo.Conversation{
		WorkspaceID:   ws.ID,
		OwnerID:       ws.OwnerID,
		CustomerName:  strings.TrimSpace(req.Name),
		CustomerEmail: email,
		ExternalID:    req.ExternalID,
		IsOpen:        true,
		IsResolved:    false,
		CustomData:    req.CustomData,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.convRepo.Create(ctx, conv); err != nil {
		return nil, err
	}
	s.aggregateSvc.Apply(ctx, ws.ID, mongo.StatsDelta{Conversations: 1, Unresolved: 1})
	s.notifyConversation(ctx, conv)
	emit(ctx, s.emitter, &kafka.Event{
		Type:           consts.EventConversationStarted,
		WorkspaceID:    ws.ID.Hex(),
		ConversationID: conv.ID.Hex(),
		TenantID:       ws.OwnerID,
		OccurredAt:     now,
	})
	log.InfoContext(ctx, "conversation started", "workspace_id", ws.ID.Hex(), "conversation_id", conv.ID.Hex())
	return conv, nil
}

func (s *conversationServiceImpl) Get(ctx context.Context, id primitive.ObjectID) (*mongo.Conversation, error) {
	conv, err := s.convRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return conv, nil
}

func (s *conversationServiceImpl) getHex(ctx context.Context, id string) (*mongo.Conversation, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrConversationNotFound
	}
	return s.Get(ctx, oid)
}

func (s *conversationServiceImpl) AuthorizeAdmin(ctx context.Context, viewer *Viewer, conversationID string) (*mongo.Conversation, *dto.LimitState, error) {
	conv, err := s.getHex(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	ws, err := s.workspaceSvc.AuthorizeID(ctx, viewer, conv.WorkspaceID, AccessMember)
	if err != nil {
		return nil, nil, err
	}
	limit, err := s.planSvc.CheckConversationOpen(ctx, ws.OwnerID, conv)
	if err != nil {
		return nil, nil, err
	}
	return conv, limit, nil
}

func (s *conversationServiceImpl) AuthorizeVisitor(ctx context.Context, workspaceID, conversationID string) (*mongo.Conversation, error) {
	conv, err := s.getHex(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.WorkspaceID.Hex() != workspaceID {
		return nil, ForbiddenError
	}
	return conv, nil
}

func (s *conversationServiceImpl) ListForWorkspace(ctx context.Context, viewer *Viewer, workspaceID string) (*dto.ConversationListResp, error) {
	ws, err := s.workspaceSvc.Authorize(ctx, viewer, workspaceID, AccessMember)
	if err != nil {
		return nil, err
	}
	list, err := s.convRepo.ListByWorkspace(ctx, ws.ID)
	if err != nil {
		return nil, err
	}
	dtos, limit, err := s.planSvc.VisibleConversations(ctx, ws.OwnerID, list)
	if err != nil {
		return nil, err
	}
	return &dto.ConversationListResp{Conversations: dtos, VisibleLimit: limit}, nil
}

func (s *conversationServiceImpl) SendMessage(ctx context.Context, conv *mongo.Conversation, role, text string) (*dto.SendResult, error) {
	text = strings.TrimSpace(text)
	if text == "" || strings.HasPrefix(text, consts.ImageDataURIPrefix) {
		return nil, ErrParamInvalid
	}
	msg, err := s.appendMessage(ctx, conv, role, text, preview(text))
	if err != nil {
		return nil, err
	}
	return &dto.SendResult{Message: msg}, nil
}

func (s *conversationServiceImpl) SendImage(ctx context.Context, conv *mongo.Conversation, role string, open func() (io.ReadCloser, error)) (*dto.SendResult, error) {
	limit, err := s.planSvc.CheckImageUpload(ctx, conv.OwnerID)
	if err != nil {
		return nil, err
	}
	if limit != nil {
		return &dto.SendResult{Limit: limit}, nil
	}

	file, err := open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()
	dataURI, err := util.CompressImageToDataURI(file)
	if err != nil {
		log.WarnContext(ctx, "compress image failed", "conversation_id", conv.ID.Hex(), "err", err)
		return nil, ErrFileNotSupported
	}

	msg, err := s.appendMessage(ctx, conv, role, dataURI, consts.ImagePreview)
	if err != nil {
		return nil, err
	}
	return &dto.SendResult{Message: msg}, nil
}

// appendMessage 写消息 -> 更新预览与接收方未读 -> 工作区计数。
// 只有第一步失败才返回错误，后两步失败记日志，由校准任务修正
func (s *conversationServiceImpl) appendMessage(ctx context.Context, conv *mongo.Conversation, role, text, previewText string) (*dto.MessageDTO, error) {
	if role != consts.RoleAdmin && role != consts.RoleUser {
		return nil, ErrParamInvalid
	}
	now := s.serverTime()
	msg := &mongo.Message{
		ConversationID: conv.ID,
		WorkspaceID:    conv.WorkspaceID,
		Text:           text,
		Sender:         role,
		CreatedAt:      now,
	}
	if err := s.messageRepo.Insert(ctx, msg); err != nil {
		return nil, err
	}

	recipient := recipientOf(role)
	if err := s.convRepo.AppendPreview(ctx, conv.ID, previewText, recipient, now); err != nil {
		log.ErrorContext(ctx, "update conversation preview failed",
			"conversation_id", conv.ID.Hex(),
			"message_id", msg.ID.Hex(),
			"err", err)
		s.aggregateSvc.MarkDirty(ctx, conv.WorkspaceID)
	}

	delta := mongo.StatsDelta{Messages: 1}
	if recipient == consts.RoleAdmin {
		delta.Unread = 1
	}
	s.aggregateSvc.Apply(ctx, conv.WorkspaceID, delta)

	d := toMessageDTO(msg)
	topic := consts.ConversationTopic + conv.ID.Hex()
	publish(ctx, s.broker, topic, &dto.BusEvent{
		Type:           dto.FrameMessage,
		ConversationID: conv.ID.Hex(),
		WorkspaceID:    conv.WorkspaceID.Hex(),
		Message:        d,
	})
	s.notifyConversation(ctx, conv)

	emit(ctx, s.emitter, &kafka.Event{
		Type:           consts.EventMessageCreated,
		WorkspaceID:    conv.WorkspaceID.Hex(),
		ConversationID: conv.ID.Hex(),
		TenantID:       conv.OwnerID,
		MessageID:      msg.ID.Hex(),
		Sender:         role,
		Text:           text,
		OccurredAt:     now,
	})
	return d, nil
}

// notifyConversation 会话文档有变化，订阅方自行重读
func (s *conversationServiceImpl) notifyConversation(ctx context.Context, conv *mongo.Conversation) {
	evt := &dto.BusEvent{
		Type:           dto.FrameConversation,
		ConversationID: conv.ID.Hex(),
		WorkspaceID:    conv.WorkspaceID.Hex(),
	}
	publish(ctx, s.broker, consts.ConversationTopic+conv.ID.Hex(), evt)
	publish(ctx, s.broker, consts.WorkspaceTopic+conv.WorkspaceID.Hex(), evt)
}

func (s *conversationServiceImpl) ListMessages(ctx context.Context, conv *mongo.Conversation, before string, limit int) (*dto.MessagePage, error) {
	if limit <= 0 || limit > consts.DefaultPageMax {
		limit = s.pageSize
	}

	var list []*mongo.Message
	if before == "" {
		var err error
		list, err = s.messageRepo.Tail(ctx, conv.ID, limit)
		if err != nil {
			return nil, err
		}
	} else {
		cursorID, err := primitive.ObjectIDFromHex(before)
		if err != nil {
			return nil, ErrParamInvalid
		}
		cursor, err := s.messageRepo.FindByID(ctx, cursorID)
		if err != nil {
			if errors.Is(err, mongo.ErrNotFound) {
				return nil, ErrMessageNotFound
			}
			return nil, err
		}
		if cursor.ConversationID != conv.ID {
			return nil, ErrMessageNotFound
		}
		list, err = s.messageRepo.Before(ctx, conv.ID, cursor, limit)
		if err != nil {
			return nil, err
		}
	}
	return &dto.MessagePage{Messages: toMessageDTOs(list), HasMore: len(list) == limit}, nil
}

func (s *conversationServiceImpl) MarkRead(ctx context.Context, conv *mongo.Conversation, role string) (int64, error) {
	cleared, err := s.convRepo.ResetUnread(ctx, conv.ID, role)
	if err != nil {
		return 0, err
	}
	if cleared <= 0 {
		return 0, nil
	}
	if role == consts.RoleAdmin {
		s.aggregateSvc.Apply(ctx, conv.WorkspaceID, mongo.StatsDelta{Unread: -cleared})
	}
	s.notifyConversation(ctx, conv)
	return cleared, nil
}

func (s *conversationServiceImpl) SetStatus(ctx context.Context, conv *mongo.Conversation, req *dto.UpdateStatusReq) (*dto.ConversationDTO, error) {
	if req.IsResolved == nil && req.IsOpen == nil {
		return nil, ErrParamInvalid
	}
	changed := false
	if req.IsResolved != nil {
		ok, err := s.convRepo.SetResolved(ctx, conv.ID, *req.IsResolved)
		if err != nil {
			return nil, err
		}
		if ok {
			changed = true
			delta := int64(1)
			if *req.IsResolved {
				delta = -1
			}
			s.aggregateSvc.Apply(ctx, conv.WorkspaceID, mongo.StatsDelta{Unresolved: delta})
		}
	}
	if req.IsOpen != nil {
		ok, err := s.convRepo.SetOpen(ctx, conv.ID, *req.IsOpen)
		if err != nil {
			return nil, err
		}
		changed = changed || ok
	}
	if changed {
		s.notifyConversation(ctx, conv)
	}
	fresh, err := s.Get(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	return toConversationDTO(fresh), nil
}

func (s *conversationServiceImpl) UpdateCustomData(ctx context.Context, conv *mongo.Conversation, data map[string]string) (*dto.ConversationDTO, error) {
	if err := s.fieldSvc.ValidateData(ctx, conv.WorkspaceID, data); err != nil {
		return nil, err
	}
	if err := s.convRepo.UpdateCustomData(ctx, conv.ID, data); err != nil {
		if errors.Is(err, mongo.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	s.notifyConversation(ctx, conv)
	fresh, err := s.Get(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	return toConversationDTO(fresh), nil
}

func recipientOf(sender string) string {
	if sender == consts.RoleAdmin {
		return consts.RoleUser
	}
	return consts.RoleAdmin
}

// preview 会话列表只展示前 100 个字符
func preview(text string) string {
	const maxPreview = 100
	r := []rune(text)
	if len(r) <= maxPreview {
		return text
	}
	return string(r[:maxPreview]) + "…"
}
