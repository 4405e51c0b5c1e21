package service

import (
	"Helpdock/internal/api/dto"
	"Helpdock/internal/pkg/consts"
	"Helpdock/internal/pkg/es"
	"Helpdock/internal/pkg/kafka"
	"Helpdock/internal/pkg/mongo"
	"Helpdock/internal/pkg/util"
	"context"
	"errors"
	"io"
	log "log/slog"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

const maxLogoBytes = 2 << 20

// Access 工作区访问级别
type Access int

const (
	// AccessMember 所有者或成员，运营可读
	AccessMember Access = iota
	// AccessOwner 仅所有者
	AccessOwner
	// AccessDelete 所有者或运营
	AccessDelete
)

// LogoStorage 工作区 logo 对象存储
type LogoStorage interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, objectOrURL string) error
}

type WorkspaceService interface {
	Create(ctx context.Context, viewer *Viewer, req *dto.CreateWorkspaceReq) (*dto.CreateWorkspaceResp, error)
	List(ctx context.Context, viewer *Viewer) ([]*dto.WorkspaceDTO, error)
	Get(ctx context.Context, viewer *Viewer, id string) (*dto.WorkspaceDTO, error)
	Update(ctx context.Context, viewer *Viewer, id string, req *dto.UpdateWorkspaceReq) (*dto.WorkspaceDTO, error)
	UploadLogo(ctx context.Context, viewer *Viewer, id string, file io.Reader, size int64, contentType, filename string) (*dto.WorkspaceDTO, error)
	AddMember(ctx context.Context, viewer *Viewer, id, email string) (*dto.LimitState, error)
	RemoveMember(ctx context.Context, viewer *Viewer, id, email string) error
	Delete(ctx context.Context, viewer *Viewer, id string) error
	Authorize(ctx context.Context, viewer *Viewer, id string, access Access) (*mongo.Workspace, error)
	AuthorizeID(ctx context.Context, viewer *Viewer, id primitive.ObjectID, access Access) (*mongo.Workspace, error)
	PublicConfig(ctx context.Context, id string) (*dto.WidgetConfigDTO, error)

	ListFields(ctx context.Context, viewer *Viewer, id string) ([]*dto.CustomFieldDTO, error)
	SaveField(ctx context.Context, viewer *Viewer, id string, req *dto.CustomFieldReq) (*dto.CustomFieldDTO, error)
	DeleteField(ctx context.Context, viewer *Viewer, id, key string) error

	SearchMessages(ctx context.Context, viewer *Viewer, id, query string, page, size int) ([]*dto.SearchMessageDTO, error)
}

type workspaceServiceImpl struct {
	workspaceRepo mongo.WorkspaceRepo
	convRepo      mongo.ConversationRepo
	messageRepo   mongo.MessageRepo
	fieldRepo     mongo.CustomFieldRepo
	planSvc       PlanService
	fieldSvc      CustomFieldService
	searchRepo    es.MessageRepo
	logos         LogoStorage
	emitter       EventEmitter
}

func NewWorkspaceService(
	workspaceRepo mongo.WorkspaceRepo,
	convRepo mongo.ConversationRepo,
	messageRepo mongo.MessageRepo,
	fieldRepo mongo.CustomFieldRepo,
	planSvc PlanService,
	fieldSvc CustomFieldService,
	searchRepo es.MessageRepo,
	logos LogoStorage,
	emitter EventEmitter,
) WorkspaceService {
	return &workspaceServiceImpl{
		workspaceRepo: workspaceRepo,
		convRepo:      convRepo,
		messageRepo:   messageRepo,
		fieldRepo:     fieldRepo,
		planSvc:       planSvc,
		fieldSvc:      fieldSvc,
		searchRepo:    searchRepo,
		logos:         logos,
		emitter:       emitter,
	}
}

func (s *workspaceServiceImpl) Create(ctx context.Context, viewer *Viewer, req *dto.CreateWorkspaceReq) (*dto.CreateWorkspaceResp, error) {
	if err := util.ValidateDTO(req); err != nil {
		return nil, ErrParamInvalid
	}
	limit, err := s.planSvc.CheckWorkspaceCreate(ctx, viewer.TenantID)
	if err != nil {
		return nil, err
	}
	if limit != nil {
		return &dto.CreateWorkspaceResp{Limit: limit}, nil
	}

	now := time.Now()
	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Name
	}
	ws := &mongo.Workspace{
		Name:       req.Name,
		OwnerID:    viewer.TenantID,
		OwnerEmail: viewer.NormalizedEmail(),
		Members:    []string{},
		Settings: mongo.WorkspaceSettings{
			BrandColor:  req.BrandColor,
			DisplayName: displayName,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = s.workspaceRepo.Create(ctx, ws); err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "workspace created", "workspace_id", ws.ID.Hex(), "tenant_id", viewer.TenantID)
	return &dto.CreateWorkspaceResp{Workspace: toWorkspaceDTO(ws, viewer.TenantID)}, nil
}

// List 自己拥有的加上作为成员加入的
func (s *workspaceServiceImpl) List(ctx context.Context, viewer *Viewer) ([]*dto.WorkspaceDTO, error) {
	owned, err := s.workspaceRepo.ListByOwner(ctx, viewer.TenantID)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.WorkspaceDTO, 0, len(owned))
	seen := make(map[primitive.ObjectID]struct{}, len(owned))
	for _, ws := range owned {
		seen[ws.ID] = struct{}{}
		res = append(res, toWorkspaceDTO(ws, viewer.TenantID))
	}

	if email := viewer.NormalizedEmail(); email != "" {
		shared, err := s.workspaceRepo.ListByMember(ctx, email)
		if err != nil {
			return nil, err
		}
		for _, ws := range shared {
			if _, ok := seen[ws.ID]; ok {
				continue
			}
			res = append(res, toWorkspaceDTO(ws, viewer.TenantID))
		}
	}
	return res, nil
}

func (s *workspaceServiceImpl) Get(ctx context.Context, viewer *Viewer, id string) (*dto.WorkspaceDTO, error) {
	ws, err := s.Authorize(ctx, viewer, id, AccessMember)
	if err != nil {
		return nil, err
	}
	return toWorkspaceDTO(ws, viewer.TenantID), nil
}

func (s *workspaceServiceImpl) Update(ctx context.Context, viewer *Viewer, id string, req *dto.UpdateWorkspaceReq) (*dto.WorkspaceDTO, error) {
	if err := util.ValidateDTO(req); err != nil {
		return nil, ErrParamInvalid
	}
	ws, err := s.Authorize(ctx, viewer, id, AccessOwner)
	if err != nil {
		return nil, err
	}
	settings := ws.Settings
	settings.BrandColor = req.BrandColor
	if req.DisplayName != "" {
		settings.DisplayName = req.DisplayName
	}
	if err = s.workspaceRepo.UpdateSettings(ctx, ws.ID, req.Name, settings); err != nil {
		return nil, err
	}
	if req.Name != "" {
		ws.Name = req.Name
	}
	ws.Settings = settings
	return toWorkspaceDTO(ws, viewer.TenantID), nil
}

func (s *workspaceServiceImpl) UploadLogo(ctx context.Context, viewer *Viewer, id string, file io.Reader, size int64, contentType, filename string) (*dto.WorkspaceDTO, error) {
	if !strings.HasPrefix(contentType, consts.MimePrefixImage+"/") {
		return nil, ErrFileNotSupported
	}
	if size > maxLogoBytes {
		return nil, ErrFileTooLarge
	}
	ws, err := s.Authorize(ctx, viewer, id, AccessOwner)
	if err != nil {
		return nil, err
	}

	objectName := "logos/" + ws.ID.Hex() + "/" + uuid.NewString() + strings.ToLower(path.Ext(filename))
	url, err := s.logos.Upload(ctx, objectName, file, size, contentType)
	if err != nil {
		return nil, err
	}
	if err = s.workspaceRepo.SetLogo(ctx, ws.ID, url); err != nil {
		return nil, err
	}
	if old := ws.Settings.LogoURL; old != "" {
		if err = s.logos.Delete(ctx, old); err != nil {
			log.WarnContext(ctx, "delete old logo failed", "workspace_id", ws.ID.Hex(), "err", err)
		}
	}
	ws.Settings.LogoURL = url
	return toWorkspaceDTO(ws, viewer.TenantID), nil
}

func (s *workspaceServiceImpl) AddMember(ctx context.Context, viewer *Viewer, id, email string) (*dto.LimitState, error) {
	email = util.NormalizeEmail(email)
	if err := util.ValidateVar(email, "required,email"); err != nil {
		return nil, ErrParamInvalid
	}
	ws, err := s.Authorize(ctx, viewer, id, AccessOwner)
	if err != nil {
		return nil, err
	}
	if email == util.NormalizeEmail(ws.OwnerEmail) {
		return nil, ErrMemberIsOwner
	}
	if slices.Contains(ws.Members, email) {
		return nil, ErrMemberExist
	}
	limit, err := s.planSvc.CheckMemberAdd(ctx, ws.OwnerID, ws)
	if err != nil || limit != nil {
		return limit, err
	}
	return nil, s.workspaceRepo.AddMember(ctx, ws.ID, email)
}

func (s *workspaceServiceImpl) RemoveMember(ctx context.Context, viewer *Viewer, id, email string) error {
	ws, err := s.Authorize(ctx, viewer, id, AccessOwner)
	if err != nil {
		return err
	}
	return s.workspaceRepo.RemoveMember(ctx, ws.ID, util.NormalizeEmail(email))
}

// Delete 级联删除会话、消息、字段，最后删工作区本身；中途失败可以重试
func (s *workspaceServiceImpl) Delete(ctx context.Context, viewer *Viewer, id string) error {
	ws, err := s.Authorize(ctx, viewer, id, AccessDelete)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	var messages, conversations int64
	g.Go(func() error {
		n, err := s.messageRepo.DeleteByWorkspace(gctx, ws.ID)
		messages = n
		return err
	})
	g.Go(func() error {
		n, err := s.convRepo.DeleteByWorkspace(gctx, ws.ID)
		conversations = n
		return err
	})
	g.Go(func() error {
		_, err := s.fieldRepo.DeleteByWorkspace(gctx, ws.ID)
		return err
	})
	if err = g.Wait(); err != nil {
		return err
	}
	if err = s.workspaceRepo.Delete(ctx, ws.ID); err != nil {
		return err
	}

	if ws.Settings.LogoURL != "" {
		if err = s.logos.Delete(ctx, ws.Settings.LogoURL); err != nil {
			log.WarnContext(ctx, "delete logo failed", "workspace_id", ws.ID.Hex(), "err", err)
		}
	}
	emit(ctx, s.emitter, &kafka.Event{
		Type:        consts.EventWorkspaceDeleted,
		WorkspaceID: ws.ID.Hex(),
		TenantID:    ws.OwnerID,
	})
	log.InfoContext(ctx, "workspace deleted",
		"workspace_id", ws.ID.Hex(),
		"by", viewer.TenantID,
		"conversations", conversations,
		"messages", messages)
	return nil
}

func (s *workspaceServiceImpl) Authorize(ctx context.Context, viewer *Viewer, id string, access Access) (*mongo.Workspace, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrWorkspaceNotFound
	}
	return s.AuthorizeID(ctx, viewer, oid, access)
}

// AuthorizeID 所有者身份比对 owner_id，成员身份比对邮箱
func (s *workspaceServiceImpl) AuthorizeID(ctx context.Context, viewer *Viewer, id primitive.ObjectID, access Access) (*mongo.Workspace, error) {
	ws, err := s.workspaceRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, err
	}

	isOwner := viewer.TenantID != "" && ws.OwnerID == viewer.TenantID
	switch access {
	case AccessOwner:
		if isOwner {
			return ws, nil
		}
	case AccessDelete:
		if isOwner || viewer.IsOperator() {
			return ws, nil
		}
	default:
		email := viewer.NormalizedEmail()
		if isOwner || viewer.IsOperator() || (email != "" && slices.Contains(ws.Members, email)) {
			return ws, nil
		}
	}
	return nil, ForbiddenError
}

func (s *workspaceServiceImpl) PublicConfig(ctx context.Context, id string) (*dto.WidgetConfigDTO, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrWorkspaceNotFound
	}
	ws, err := s.workspaceRepo.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, mongo.ErrNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, err
	}
	_, limits, err := s.planSvc.GetLimits(ctx, ws.OwnerID)
	if err != nil {
		return nil, err
	}
	return &dto.WidgetConfigDTO{
		WorkspaceID:      ws.ID.Hex(),
		Name:             ws.Name,
		BrandColor:       ws.Settings.BrandColor,
		LogoURL:          ws.Settings.LogoURL,
		DisplayName:      ws.Settings.DisplayName,
		AllowImageUpload: limits.AllowImageUpload,
	}, nil
}

func (s *workspaceServiceImpl) ListFields(ctx context.Context, viewer *Viewer, id string) ([]*dto.CustomFieldDTO, error) {
	ws, err := s.Authorize(ctx, viewer, id, AccessMember)
	if err != nil {
		return nil, err
	}
	return s.fieldSvc.List(ctx, ws.ID)
}

func (s *workspaceServiceImpl) SaveField(ctx context.Context, viewer *Viewer, id string, req *dto.CustomFieldReq) (*dto.CustomFieldDTO, error) {
	ws, err := s.Authorize(ctx, viewer, id, AccessOwner)
	if err != nil {
		return nil, err
	}
	return s.fieldSvc.Save(ctx, ws.ID, req)
}

func (s *workspaceServiceImpl) DeleteField(ctx context.Context, viewer *Viewer, id, key string) error {
	ws, err := s.Authorize(ctx, viewer, id, AccessOwner)
	if err != nil {
		return err
	}
	return s.fieldSvc.Delete(ctx, ws.ID, key)
}

func (s *workspaceServiceImpl) SearchMessages(ctx context.Context, viewer *Viewer, id, query string, page, size int) ([]*dto.SearchMessageDTO, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrParamInvalid
	}
	if s.searchRepo == nil {
		return nil, ErrSearchUnavailable
	}
	ws, err := s.Authorize(ctx, viewer, id, AccessMember)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > consts.DefaultPageMax {
		size = 20
	}

	hits, err := s.searchRepo.Search(ctx, ws.ID.Hex(), query, (page-1)*size, size)
	if err != nil {
		log.ErrorContext(ctx, "search messages failed", "workspace_id", ws.ID.Hex(), "err", err)
		return nil, ErrSearchUnavailable
	}
	res := make([]*dto.SearchMessageDTO, 0, len(hits))
	for _, h := range hits {
		res = append(res, &dto.SearchMessageDTO{
			MessageID:      h.MessageID,
			ConversationID: h.ConversationID,
			Sender:         h.Sender,
			Text:           h.Text,
			CreatedAt:      h.CreatedAt,
		})
	}
	return res, nil
}
