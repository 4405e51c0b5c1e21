package handler

import (
	"Helpdock/internal/api/dto"
	"Helpdock/internal/api/middleware"
	"Helpdock/internal/pkg/broker"
	"Helpdock/internal/pkg/consts"
	"Helpdock/internal/pkg/mongo"
	"Helpdock/internal/pkg/response"
	"Helpdock/internal/service"
	"context"
	log "log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = 50 * time.Second
	maxFrameBytes = 4096
)

// 挂件嵌在任意站点，来源不做限制；身份由 token 保证
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RealtimeHandler 一条连接一个 ChatSession
type RealtimeHandler struct {
	convSvc  service.ConversationService
	broker   broker.Broker
	pageSize int
}

func NewRealtimeHandler(convSvc service.ConversationService, b broker.Broker, pageSize int) *RealtimeHandler {
	return &RealtimeHandler{convSvc: convSvc, broker: b, pageSize: pageSize}
}

// Dashboard 控制台连接，查看期间自动清零 admin 未读
func (s *RealtimeHandler) Dashboard(c *gin.Context) {
	viewer := middleware.GetViewer(c)
	authorize := func(ctx context.Context, id string) (*mongo.Conversation, *dto.LimitState, error) {
		return s.convSvc.AuthorizeAdmin(ctx, viewer, id)
	}
	s.serve(c, consts.RoleAdmin, "", authorize, service.WithAutoRead(true))
}

// Widget 访客连接，只能打开 token 中的会话
func (s *RealtimeHandler) Widget(c *gin.Context) {
	claims := middleware.GetVisitor(c)
	authorize := func(ctx context.Context, id string) (*mongo.Conversation, *dto.LimitState, error) {
		if id != claims.ConversationID {
			return nil, nil, service.ForbiddenError
		}
		conv, err := s.convSvc.AuthorizeVisitor(ctx, claims.WorkspaceID, id)
		return conv, nil, err
	}
	s.serve(c, consts.RoleUser, claims.ConversationID, authorize)
}

func (s *RealtimeHandler) serve(c *gin.Context, role, defaultConv string, authorize service.SessionAuthorizer, opts ...service.ChatSessionOption) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.ErrorContext(c, "WS 协议升级失败", "err", err)
		return
	}
	client := &wsClient{conn: conn}
	defer func() {
		_ = conn.Close()
	}()

	// 请求结束后连接仍在，保留 trace_id 但不继承取消
	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	defer cancel()

	if tz := c.Query("tz"); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			opts = append(opts, service.WithLocation(loc))
		}
	}
	opts = append(opts, service.WithPageSize(s.pageSize))
	session := service.NewChatSession(s.convSvc, s.broker, role, authorize, client.send, opts...)
	defer session.Close()

	go client.keepalive(ctx)

	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	log.InfoContext(ctx, "WS 连接已建立", "role", role)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WarnContext(ctx, "WS 连接异常断开", "err", err)
			}
			log.InfoContext(ctx, "WS 连接已断开", "role", role)
			return
		}

		var frame dto.ClientFrame
		if err = json.Unmarshal(data, &frame); err != nil {
			client.fail(ctx, service.ErrParamInvalid)
			continue
		}
		if err = s.handle(ctx, session, &frame, defaultConv); err != nil {
			client.fail(ctx, err)
		}
	}
}

func (s *RealtimeHandler) handle(ctx context.Context, session *service.ChatSession, frame *dto.ClientFrame, defaultConv string) error {
	switch frame.Type {
	case dto.FrameOpen:
		id := frame.ConversationID
		if id == "" {
			id = defaultConv
		}
		return session.Open(ctx, id)
	case dto.FrameLoadOlder:
		_, err := session.LoadOlder(ctx)
		return err
	case dto.FrameRead:
		_, err := session.MarkRead(ctx)
		return err
	case dto.FrameClose:
		session.Close()
		return nil
	default:
		return service.ErrParamInvalid
	}
}

// wsClient gorilla 的连接不支持并发写，读循环与订阅推送共用这把锁
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsClient) send(frame *dto.ServerFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		log.Error("WS 帧序列化失败", "type", frame.Type, "err", err)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err = w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Debug("WS 推送失败", "type", frame.Type, "err", err)
	}
}

func (w *wsClient) fail(ctx context.Context, err error) {
	code, msg := response.Resolve(err)
	if code == response.InternalServerError {
		log.ErrorContext(ctx, "WS 指令处理失败", "err", err)
	}
	w.send(&dto.ServerFrame{Type: dto.FrameError, Error: msg})
}

func (w *wsClient) keepalive(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.Lock()
			err := w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			w.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
