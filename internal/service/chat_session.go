package service

import (
	"Helpdock/internal/api/dto"
	"Helpdock/internal/pkg/broker"
	"Helpdock/internal/pkg/consts"
	"Helpdock/internal/pkg/mongo"
	"context"
	log "log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// SessionAuthorizer 按连接身份校验能否打开某个会话
type SessionAuthorizer func(ctx context.Context, conversationID string) (*mongo.Conversation, *dto.LimitState, error)

// ChatSession 一条实时连接上当前打开的会话：
// 本地维护已下发的时间线窗口，订阅新消息，并在查看期间清零本角色未读
type ChatSession struct {
	convSvc   ConversationService
	broker    broker.Broker
	authorize SessionAuthorizer
	// emit 会被读循环和推送协程同时调用
	emit     func(*dto.ServerFrame)
	role     string
	autoRead bool
	pageSize int
	loc      *time.Location

	mu      sync.Mutex
	gen     uint64
	conv    *mongo.Conversation
	sub     broker.Subscription
	cancel  context.CancelFunc
	// done 推送协程退出时关闭
	done    chan struct{}
	seen    map[string]struct{}
	oldest  string
	hasMore bool
	loading bool
}

type ChatSessionOption func(*ChatSession)

// WithAutoRead 查看期间收到的未读立即清零，控制台使用
func WithAutoRead(on bool) ChatSessionOption {
	return func(s *ChatSession) { s.autoRead = on }
}

func WithLocation(loc *time.Location) ChatSessionOption {
	return func(s *ChatSession) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithPageSize(n int) ChatSessionOption {
	return func(s *ChatSession) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func NewChatSession(
	convSvc ConversationService,
	b broker.Broker,
	role string,
	authorize SessionAuthorizer,
	emit func(*dto.ServerFrame),
	opts ...ChatSessionOption,
) *ChatSession {
	s := &ChatSession{
		convSvc:   convSvc,
		broker:    b,
		authorize: authorize,
		emit:      emit,
		role:      role,
		pageSize:  DefaultPageSize,
		loc:       time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open 切换到另一个会话。先订阅再拉尾页，两者之间到达的消息靠 seen 去重
func (s *ChatSession) Open(ctx context.Context, conversationID string) error {
	s.Close()

	conv, limit, err := s.authorize(ctx, conversationID)
	if err != nil {
		return err
	}
	if limit != nil {
		s.emit(&dto.ServerFrame{Type: dto.FrameLimit, Limit: limit})
		return nil
	}

	sub, err := s.broker.Subscribe(ctx, consts.ConversationTopic+conv.ID.Hex())
	if err != nil {
		return err
	}
	page, err := s.convSvc.ListMessages(ctx, conv, "", s.pageSize)
	if err != nil {
		_ = sub.Close()
		return err
	}

	pumpCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.conv = conv
	s.sub = sub
	s.cancel = cancel
	s.done = done
	s.seen = make(map[string]struct{}, len(page.Messages))
	for _, m := range page.Messages {
		s.seen[m.ID] = struct{}{}
	}
	s.oldest = ""
	if len(page.Messages) > 0 {
		s.oldest = page.Messages[0].ID
	}
	s.hasMore = page.HasMore
	s.loading = false
	s.mu.Unlock()

	s.emit(&dto.ServerFrame{
		Type:     dto.FrameSnapshot,
		Messages: page.Messages,
		HasMore:  page.HasMore,
		Days:     GroupByDay(page.Messages, s.loc),
	})
	if s.autoRead {
		s.reconcile(ctx, conv)
	}

	go func() {
		defer close(done)
		s.pump(pumpCtx, gen, sub)
	}()
	return nil
}

// LoadOlder 同一时刻只允许一个翻页请求；被抑制时返回 false
func (s *ChatSession) LoadOlder(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.conv == nil {
		s.mu.Unlock()
		return false, ErrConversationNotActive
	}
	if s.loading || !s.hasMore || s.oldest == "" {
		s.mu.Unlock()
		return false, nil
	}
	s.loading = true
	gen, conv, oldest := s.gen, s.conv, s.oldest
	s.mu.Unlock()

	page, err := s.convSvc.ListMessages(ctx, conv, oldest, s.pageSize)

	s.mu.Lock()
	if gen != s.gen {
		// 翻页期间切换了会话，结果作废
		s.mu.Unlock()
		return false, nil
	}
	s.loading = false
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	older := make([]*dto.MessageDTO, 0, len(page.Messages))
	for _, m := range page.Messages {
		if _, ok := s.seen[m.ID]; ok {
			continue
		}
		s.seen[m.ID] = struct{}{}
		older = append(older, m)
	}
	if len(page.Messages) > 0 {
		s.oldest = page.Messages[0].ID
	}
	s.hasMore = page.HasMore
	s.mu.Unlock()

	s.emit(&dto.ServerFrame{
		Type:     dto.FramePrepend,
		Messages: older,
		HasMore:  page.HasMore,
		Days:     GroupByDay(older, s.loc),
	})
	return true, nil
}

// MarkRead 访客展开挂件时主动清零
func (s *ChatSession) MarkRead(ctx context.Context) (int64, error) {
	s.mu.Lock()
	conv := s.conv
	s.mu.Unlock()
	if conv == nil {
		return 0, ErrConversationNotActive
	}
	return s.convSvc.MarkRead(ctx, conv, s.role)
}

// Close 释放订阅并等待推送协程退出，返回后不会再有旧会话的写入或推送；重复调用无副作用。
// 不能在 emit 回调里调用
func (s *ChatSession) Close() {
	s.mu.Lock()
	sub, cancel, done := s.sub, s.cancel, s.done
	s.gen++
	s.conv = nil
	s.sub = nil
	s.cancel = nil
	s.done = nil
	s.seen = nil
	s.oldest = ""
	s.hasMore = false
	s.loading = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sub != nil {
		_ = sub.Close()
	}
	if done != nil {
		<-done
	}
}

func (s *ChatSession) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

func (s *ChatSession) pump(ctx context.Context, gen uint64, sub broker.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-sub.C():
			if !ok {
				return
			}
			var evt dto.BusEvent
			if err := json.Unmarshal(data, &evt); err != nil {
				log.WarnContext(ctx, "decode bus event failed", "err", err)
				continue
			}
			switch evt.Type {
			case dto.FrameMessage:
				s.onMessage(gen, evt.Message)
			case dto.FrameConversation:
				s.onConversation(ctx, gen)
			}
		}
	}
}

func (s *ChatSession) onMessage(gen uint64, msg *dto.MessageDTO) {
	if msg == nil {
		return
	}
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	if _, ok := s.seen[msg.ID]; ok {
		s.mu.Unlock()
		return
	}
	s.seen[msg.ID] = struct{}{}
	s.mu.Unlock()

	s.emit(&dto.ServerFrame{Type: dto.FrameMessage, Message: msg})
}

// onConversation 通知只是提示，以重新读到的文档为准
func (s *ChatSession) onConversation(ctx context.Context, gen uint64) {
	s.mu.Lock()
	conv := s.conv
	current := gen == s.gen
	s.mu.Unlock()
	if !current || conv == nil {
		return
	}

	fresh, err := s.convSvc.Get(ctx, conv.ID)
	if err != nil {
		log.WarnContext(ctx, "reload conversation failed", "conversation_id", conv.ID.Hex(), "err", err)
		return
	}
	// 读取期间可能已切换或关闭
	if !s.current(gen) {
		return
	}
	s.emit(&dto.ServerFrame{Type: dto.FrameConversation, Conversation: toConversationDTO(fresh)})
	if s.autoRead && s.current(gen) {
		s.reconcile(ctx, fresh)
	}
}

func (s *ChatSession) reconcile(ctx context.Context, conv *mongo.Conversation) {
	if conv.UnreadFor(s.role) <= 0 {
		return
	}
	if _, err := s.convSvc.MarkRead(ctx, conv, s.role); err != nil {
		log.WarnContext(ctx, "mark read failed", "conversation_id", conv.ID.Hex(), "err", err)
	}
}

// GroupByDay 本地日期字符串变化即开始新的一组，第一条总是新组
func GroupByDay(messages []*dto.MessageDTO, loc *time.Location) []dto.DayGroup {
	if loc == nil {
		loc = time.UTC
	}
	var groups []dto.DayGroup
	prev := ""
	for i, m := range messages {
		day := m.CreatedAt.In(loc).Format(time.DateOnly)
		if i == 0 || day != prev {
			groups = append(groups, dto.DayGroup{Day: day, FirstIdx: i})
			prev = day
		}
		last := &groups[len(groups)-1]
		last.IDs = append(last.IDs, m.ID)
	}
	return groups
}
