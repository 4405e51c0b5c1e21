package service

import (
	"Helpdock/internal/model"
	"Helpdock/internal/pkg/broker"
	"Helpdock/internal/pkg/consts"
	"Helpdock/internal/pkg/kafka"
	"Helpdock/internal/pkg/mongo"
	"Helpdock/internal/pkg/redis"
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 内存版仓储，只实现服务层用到的语义

type fakeWorkspaceRepo struct {
	mu   sync.Mutex
	data map[primitive.ObjectID]*mongo.Workspace
}

func newFakeWorkspaceRepo() *fakeWorkspaceRepo {
	return &fakeWorkspaceRepo{data: map[primitive.ObjectID]*mongo.Workspace{}}
}

func (f *fakeWorkspaceRepo) Create(_ context.Context, ws *mongo.Workspace) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ws.ID.IsZero() {
		ws.ID = primitive.NewObjectID()
	}
	cp := *ws
	cp.Members = append([]string{}, ws.Members...)
	f.data[ws.ID] = &cp
	return nil
}

func (f *fakeWorkspaceRepo) FindByID(_ context.Context, id primitive.ObjectID) (*mongo.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws, ok := f.data[id]
	if !ok {
		return nil, mongo.ErrNotFound
	}
	cp := *ws
	cp.Members = append([]string{}, ws.Members...)
	return &cp, nil
}

func (f *fakeWorkspaceRepo) list(match func(*mongo.Workspace) bool) []*mongo.Workspace {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []*mongo.Workspace
	for _, ws := range f.data {
		if match(ws) {
			cp := *ws
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID.Hex() < res[j].ID.Hex() })
	return res
}

func (f *fakeWorkspaceRepo) ListByOwner(_ context.Context, ownerID string) ([]*mongo.Workspace, error) {
	return f.list(func(ws *mongo.Workspace) bool { return ws.OwnerID == ownerID }), nil
}

func (f *fakeWorkspaceRepo) ListByMember(_ context.Context, email string) ([]*mongo.Workspace, error) {
	return f.list(func(ws *mongo.Workspace) bool {
		for _, m := range ws.Members {
			if m == email {
				return true
			}
		}
		return false
	}), nil
}

func (f *fakeWorkspaceRepo) update(id primitive.ObjectID, fn func(*mongo.Workspace)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws, ok := f.data[id]
	if !ok {
		return mongo.ErrNotFound
	}
	fn(ws)
	return nil
}

func (f *fakeWorkspaceRepo) UpdateSettings(_ context.Context, id primitive.ObjectID, name string, settings mongo.WorkspaceSettings) error {
	return f.update(id, func(ws *mongo.Workspace) {
		if name != "" {
			ws.Name = name
		}
		ws.Settings = settings
	})
}

func (f *fakeWorkspaceRepo) SetLogo(_ context.Context, id primitive.ObjectID, logoURL string) error {
	return f.update(id, func(ws *mongo.Workspace) { ws.Settings.LogoURL = logoURL })
}

func (f *fakeWorkspaceRepo) AddMember(_ context.Context, id primitive.ObjectID, email string) error {
	return f.update(id, func(ws *mongo.Workspace) {
		for _, m := range ws.Members {
			if m == email {
				return
			}
		}
		ws.Members = append(ws.Members, email)
	})
}

func (f *fakeWorkspaceRepo) RemoveMember(_ context.Context, id primitive.ObjectID, email string) error {
	return f.update(id, func(ws *mongo.Workspace) {
		kept := ws.Members[:0]
		for _, m := range ws.Members {
			if m != email {
				kept = append(kept, m)
			}
		}
		ws.Members = kept
	})
}

func (f *fakeWorkspaceRepo) IncStats(_ context.Context, id primitive.ObjectID, delta mongo.StatsDelta) error {
	return f.update(id, func(ws *mongo.Workspace) { delta.Apply(&ws.Stats) })
}

func (f *fakeWorkspaceRepo) SetStats(_ context.Context, id primitive.ObjectID, stats mongo.WorkspaceStats) error {
	return f.update(id, func(ws *mongo.Workspace) { ws.Stats = stats })
}

func (f *fakeWorkspaceRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[id]; !ok {
		return mongo.ErrNotFound
	}
	delete(f.data, id)
	return nil
}

func (f *fakeWorkspaceRepo) stats(id primitive.ObjectID) mongo.WorkspaceStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[id].Stats
}

type fakeConversationRepo struct {
	mu   sync.Mutex
	data map[primitive.ObjectID]*mongo.Conversation
	// findHook 非空时 FindByID 先调用它，用于卡住推送协程中的重新读取
	findHook func()
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{data: map[primitive.ObjectID]*mongo.Conversation{}}
}

func copyConversation(c *mongo.Conversation) *mongo.Conversation {
	cp := *c
	if c.CustomData != nil {
		cp.CustomData = make(map[string]string, len(c.CustomData))
		for k, v := range c.CustomData {
			cp.CustomData[k] = v
		}
	}
	return &cp
}

func (f *fakeConversationRepo) Create(_ context.Context, conv *mongo.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if conv.ID.IsZero() {
		conv.ID = primitive.NewObjectID()
	}
	f.data[conv.ID] = copyConversation(conv)
	return nil
}

func (f *fakeConversationRepo) FindByID(_ context.Context, id primitive.ObjectID) (*mongo.Conversation, error) {
	f.mu.Lock()
	hook := f.findHook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.data[id]
	if !ok {
		return nil, mongo.ErrNotFound
	}
	return copyConversation(c), nil
}

func (f *fakeConversationRepo) latest(match func(*mongo.Conversation) bool) (*mongo.Conversation, error) {
	f.mu.Lock()
	var list []*mongo.Conversation
	for _, c := range f.data {
		if match(c) {
			list = append(list, copyConversation(c))
		}
	}
	f.mu.Unlock()
	if len(list) == 0 {
		return nil, mongo.ErrNotFound
	}
	SortByRecency(list)
	return list[0], nil
}

func (f *fakeConversationRepo) FindByExternalID(_ context.Context, wsID primitive.ObjectID, externalID string) (*mongo.Conversation, error) {
	return f.latest(func(c *mongo.Conversation) bool { return c.WorkspaceID == wsID && c.ExternalID == externalID })
}

func (f *fakeConversationRepo) FindByEmail(_ context.Context, wsID primitive.ObjectID, email string) (*mongo.Conversation, error) {
	return f.latest(func(c *mongo.Conversation) bool { return c.WorkspaceID == wsID && c.CustomerEmail == email })
}

func (f *fakeConversationRepo) ListByWorkspace(_ context.Context, wsID primitive.ObjectID) ([]*mongo.Conversation, error) {
	f.mu.Lock()
	var list []*mongo.Conversation
	for _, c := range f.data {
		if c.WorkspaceID == wsID {
			list = append(list, copyConversation(c))
		}
	}
	f.mu.Unlock()
	SortByRecency(list)
	return list, nil
}

func (f *fakeConversationRepo) update(id primitive.ObjectID, fn func(*mongo.Conversation)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.data[id]
	if !ok {
		return mongo.ErrNotFound
	}
	fn(c)
	return nil
}

func (f *fakeConversationRepo) AppendPreview(_ context.Context, id primitive.ObjectID, preview, recipientRole string, at time.Time) error {
	return f.update(id, func(c *mongo.Conversation) {
		c.LastMessage = preview
		c.UpdatedAt = at
		if recipientRole == consts.RoleAdmin {
			c.UnreadCountAdmin++
		} else {
			c.UnreadCountUser++
		}
	})
}

func (f *fakeConversationRepo) ResetUnread(_ context.Context, id primitive.ObjectID, role string) (int64, error) {
	var before int64
	err := f.update(id, func(c *mongo.Conversation) {
		before = c.UnreadFor(role)
		if before <= 0 {
			before = 0
			return
		}
		if role == consts.RoleAdmin {
			c.UnreadCountAdmin = 0
		} else {
			c.UnreadCountUser = 0
		}
	})
	if err != nil {
		return 0, err
	}
	return before, nil
}

func (f *fakeConversationRepo) SetResolved(_ context.Context, id primitive.ObjectID, resolved bool) (bool, error) {
	changed := false
	err := f.update(id, func(c *mongo.Conversation) {
		if c.IsResolved != resolved {
			c.IsResolved = resolved
			changed = true
		}
	})
	return changed, err
}

func (f *fakeConversationRepo) SetOpen(_ context.Context, id primitive.ObjectID, open bool) (bool, error) {
	changed := false
	err := f.update(id, func(c *mongo.Conversation) {
		if c.IsOpen != open {
			c.IsOpen = open
			changed = true
		}
	})
	return changed, err
}

func (f *fakeConversationRepo) UpdateCustomData(_ context.Context, id primitive.ObjectID, data map[string]string) error {
	return f.update(id, func(c *mongo.Conversation) {
		if c.CustomData == nil {
			c.CustomData = map[string]string{}
		}
		for k, v := range data {
			c.CustomData[k] = v
		}
	})
}

func (f *fakeConversationRepo) Recount(_ context.Context, wsID primitive.ObjectID) (*mongo.ConversationRecount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := &mongo.ConversationRecount{}
	for _, c := range f.data {
		if c.WorkspaceID != wsID {
			continue
		}
		res.Conversations++
		if !c.IsResolved {
			res.Unresolved++
		}
		res.Unread += c.UnreadCountAdmin
	}
	return res, nil
}

func (f *fakeConversationRepo) DeleteByWorkspace(_ context.Context, wsID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, c := range f.data {
		if c.WorkspaceID == wsID {
			delete(f.data, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeConversationRepo) setUpdatedAt(id primitive.ObjectID, at time.Time) {
	_ = f.update(id, func(c *mongo.Conversation) { c.UpdatedAt = at })
}

type fakeMessageRepo struct {
	mu   sync.Mutex
	data []*mongo.Message
	// beforeGate 非空时 Before 会阻塞到收到信号，用于并发翻页测试
	beforeGate  chan struct{}
	beforeCalls int
	insertErr   error
	countErr    error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (f *fakeMessageRepo) Insert(_ context.Context, msg *mongo.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	cp := *msg
	f.data = append(f.data, &cp)
	return nil
}

func (f *fakeMessageRepo) FindByID(_ context.Context, id primitive.ObjectID) (*mongo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.data {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, mongo.ErrNotFound
}

func (f *fakeMessageRepo) sorted(convID primitive.ObjectID, keep func(*mongo.Message) bool) []*mongo.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []*mongo.Message
	for _, m := range f.data {
		if m.ConversationID == convID && keep(m) {
			cp := *m
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Before(list[j]) })
	return list
}

func lastN(list []*mongo.Message, n int) []*mongo.Message {
	if len(list) > n {
		return list[len(list)-n:]
	}
	return list
}

func (f *fakeMessageRepo) Tail(_ context.Context, convID primitive.ObjectID, limit int) ([]*mongo.Message, error) {
	return lastN(f.sorted(convID, func(*mongo.Message) bool { return true }), limit), nil
}

func (f *fakeMessageRepo) Before(_ context.Context, convID primitive.ObjectID, cursor *mongo.Message, limit int) ([]*mongo.Message, error) {
	f.mu.Lock()
	f.beforeCalls++
	gate := f.beforeGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return lastN(f.sorted(convID, func(m *mongo.Message) bool { return m.Before(cursor) }), limit), nil
}

func (f *fakeMessageRepo) CountByWorkspace(_ context.Context, wsID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	var n int64
	for _, m := range f.data {
		if m.WorkspaceID == wsID {
			n++
		}
	}
	return n, nil
}

func (f *fakeMessageRepo) DeleteByWorkspace(_ context.Context, wsID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.data[:0]
	var n int64
	for _, m := range f.data {
		if m.WorkspaceID == wsID {
			n++
			continue
		}
		kept = append(kept, m)
	}
	f.data = kept
	return n, nil
}

type fakeFieldRepo struct {
	mu     sync.Mutex
	fields map[primitive.ObjectID]map[string]*mongo.CustomField
}

func newFakeFieldRepo() *fakeFieldRepo {
	return &fakeFieldRepo{fields: map[primitive.ObjectID]map[string]*mongo.CustomField{}}
}

func (f *fakeFieldRepo) Upsert(_ context.Context, field *mongo.CustomField) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	byKey, ok := f.fields[field.WorkspaceID]
	if !ok {
		byKey = map[string]*mongo.CustomField{}
		f.fields[field.WorkspaceID] = byKey
	}
	cp := *field
	cp.Deleted = false
	byKey[field.Key] = &cp
	return nil
}

func (f *fakeFieldRepo) ListActive(_ context.Context, wsID primitive.ObjectID) ([]*mongo.CustomField, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []*mongo.CustomField
	for _, field := range f.fields[wsID] {
		if !field.Deleted {
			cp := *field
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Key < res[j].Key })
	return res, nil
}

func (f *fakeFieldRepo) SoftDelete(_ context.Context, wsID primitive.ObjectID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	field, ok := f.fields[wsID][key]
	if !ok || field.Deleted {
		return mongo.ErrNotFound
	}
	field.Deleted = true
	return nil
}

func (f *fakeFieldRepo) DeleteByWorkspace(_ context.Context, wsID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.fields[wsID]))
	delete(f.fields, wsID)
	return n, nil
}

type fakeTenantRepo struct {
	mu      sync.Mutex
	tenants map[string]*model.Tenant
}

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{tenants: map[string]*model.Tenant{}}
}

func (f *fakeTenantRepo) GetTenantByID(_ context.Context, id string) (*model.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenants[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTenantRepo) EnsureTenant(_ context.Context, id, email string) (*model.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenants[id]
	if !ok {
		t = &model.Tenant{ID: id, Plan: consts.PlanTrial}
		f.tenants[id] = t
	}
	t.Email = email
	cp := *t
	return &cp, nil
}

func (f *fakeTenantRepo) UpdatePlan(_ context.Context, id, plan string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenants[id]
	if !ok {
		t = &model.Tenant{ID: id}
		f.tenants[id] = t
	}
	t.Plan = plan
	return nil
}

type fakePlanConfigRepo struct {
	mu   sync.Mutex
	rows map[string]*model.PlanConfig
}

func newFakePlanConfigRepo() *fakePlanConfigRepo {
	return &fakePlanConfigRepo{rows: map[string]*model.PlanConfig{}}
}

func (f *fakePlanConfigRepo) GetPlanConfig(_ context.Context, tier string) (*model.PlanConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[tier]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (f *fakePlanConfigRepo) ListPlanConfigs(_ context.Context) ([]*model.PlanConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []*model.PlanConfig
	for _, row := range f.rows {
		cp := *row
		res = append(res, &cp)
	}
	return res, nil
}

func (f *fakePlanConfigRepo) SavePlanConfig(_ context.Context, cfg *model.PlanConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *cfg
	f.rows[cfg.Tier] = &cp
	return nil
}

type fakeUpgradeRepo struct {
	mu      sync.Mutex
	nextID  uint64
	rows    map[uint64]*model.UpgradeRequest
	tenants *fakeTenantRepo
}

func newFakeUpgradeRepo(tenants *fakeTenantRepo) *fakeUpgradeRepo {
	return &fakeUpgradeRepo{rows: map[uint64]*model.UpgradeRequest{}, tenants: tenants}
}

func (f *fakeUpgradeRepo) CreateUpgradeRequest(_ context.Context, req *model.UpgradeRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	req.ID = f.nextID
	req.CreatedAt = time.Now()
	cp := *req
	f.rows[req.ID] = &cp
	return nil
}

func (f *fakeUpgradeRepo) GetUpgradeRequest(_ context.Context, id uint64) (*model.UpgradeRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (f *fakeUpgradeRepo) GetPendingByTenant(_ context.Context, tenantID string) (*model.UpgradeRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.TenantID == tenantID && row.Status == consts.UpgradeStatusPending {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUpgradeRepo) ListUpgradeRequests(_ context.Context, status string, limit, offset int) ([]*model.UpgradeRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []*model.UpgradeRequest
	for _, row := range f.rows {
		if status == "" || row.Status == status {
			cp := *row
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	if offset >= len(res) {
		return nil, nil
	}
	res = res[offset:]
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (f *fakeUpgradeRepo) ReviewUpgradeRequest(ctx context.Context, req *model.UpgradeRequest, status, note string) (int64, error) {
	f.mu.Lock()
	row, ok := f.rows[req.ID]
	if !ok || row.Status != consts.UpgradeStatusPending {
		f.mu.Unlock()
		return 0, nil
	}
	row.Status = status
	row.Note = note
	f.mu.Unlock()
	if status == consts.UpgradeStatusApproved {
		return 1, f.tenants.UpdatePlan(ctx, req.TenantID, req.RequestedPlan)
	}
	return 1, nil
}

type fakeLogoStore struct {
	mu      sync.Mutex
	uploads []string
	deleted []string
}

func (f *fakeLogoStore) Upload(_ context.Context, objectName string, r io.Reader, _ int64, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, _ = io.Copy(io.Discard, r)
	f.uploads = append(f.uploads, objectName)
	return "http://cdn.test/" + objectName, nil
}

func (f *fakeLogoStore) Delete(_ context.Context, objectOrURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, objectOrURL)
	return nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []*kafka.Event
}

func (r *recordingEmitter) Emit(_ context.Context, evt *kafka.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recordingEmitter) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]string, 0, len(r.events))
	for _, e := range r.events {
		res = append(res, e.Type)
	}
	return res
}

// testEnv 把所有服务按生产方式装配在内存实现上
type testEnv struct {
	mr         *miniredis.Miniredis
	rdb        *goredis.Client
	workspaces *fakeWorkspaceRepo
	convs      *fakeConversationRepo
	messages   *fakeMessageRepo
	fields     *fakeFieldRepo
	tenants    *fakeTenantRepo
	plans      *fakePlanConfigRepo
	upgrades   *fakeUpgradeRepo
	logos      *fakeLogoStore
	broker     *broker.MemoryBroker
	emitter    *recordingEmitter

	planSvc      PlanService
	aggregateSvc AggregateService
	fieldSvc     CustomFieldService
	workspaceSvc WorkspaceService
	convSvc      ConversationService
	upgradeSvc   UpgradeService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	prev := redis.Rdb
	redis.Rdb = rdb
	t.Cleanup(func() {
		redis.Rdb = prev
		_ = rdb.Close()
	})

	e := &testEnv{
		mr:         mr,
		rdb:        rdb,
		workspaces: newFakeWorkspaceRepo(),
		convs:      newFakeConversationRepo(),
		messages:   newFakeMessageRepo(),
		fields:     newFakeFieldRepo(),
		tenants:    newFakeTenantRepo(),
		plans:      newFakePlanConfigRepo(),
		logos:      &fakeLogoStore{},
		broker:     broker.NewMemoryBroker(),
		emitter:    &recordingEmitter{},
	}
	e.upgrades = newFakeUpgradeRepo(e.tenants)
	e.planSvc = NewPlanService(e.tenants, e.plans, e.workspaces, e.convs)
	e.aggregateSvc = NewAggregateService(e.workspaces, e.convs, e.messages)
	e.fieldSvc = NewCustomFieldService(e.fields)
	e.workspaceSvc = NewWorkspaceService(e.workspaces, e.convs, e.messages, e.fields,
		e.planSvc, e.fieldSvc, nil, e.logos, e.emitter)
	e.convSvc = NewConversationService(e.workspaces, e.convs, e.messages,
		e.workspaceSvc, e.planSvc, e.aggregateSvc, e.fieldSvc, e.broker, e.emitter, DefaultPageSize)
	e.upgradeSvc = NewUpgradeService(e.upgrades, e.workspaces, e.planSvc, e.emitter)
	return e
}

func (e *testEnv) setPlan(tenantID, plan string) {
	_ = e.tenants.UpdatePlan(context.Background(), tenantID, plan)
}

// newWorkspace 直接落库，绕开额度检查
func (e *testEnv) newWorkspace(t *testing.T, owner *Viewer) *mongo.Workspace {
	t.Helper()
	ws := &mongo.Workspace{
		Name:       "Acme",
		OwnerID:    owner.TenantID,
		OwnerEmail: owner.NormalizedEmail(),
		Members:    []string{},
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := e.workspaces.Create(context.Background(), ws); err != nil {
		t.Fatal(err)
	}
	return ws
}
