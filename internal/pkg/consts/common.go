package consts

// 消息发送方 / 会话查看方
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	// ImagePreview 图片消息在会话列表中的预览文案
	ImagePreview = "Image"
	// ImageDataURIPrefix 图片消息正文前缀
	ImageDataURIPrefix = "data:image/"
)

// 套餐
const (
	PlanTrial   = "trial"
	PlanFree    = "free"
	PlanBasic   = "basic"
	PlanPremium = "premium"
)

// 额度受限原因
const (
	LimitReasonUpload    = "upload"
	LimitReasonChat      = "chat"
	LimitReasonWorkspace = "workspace"
	LimitReasonMember    = "member"
	LimitReasonManual    = "manual"
)

// 升级申请状态
const (
	UpgradeStatusPending  = "pending"
	UpgradeStatusApproved = "approved"
	UpgradeStatusRejected = "rejected"
)

// 平台运营角色
const RoleOperator = "OPERATOR"

// 统计维度缺省桶
const (
	UnknownBucket  = "Unknown"
	DefaultDevice  = "desktop"
	DeviceMobile   = "mobile"
	DeviceTablet   = "tablet"
	DeviceBot      = "bot"
	TopListLimit   = 10
	DefaultPageMax = 100
)

const (
	MimePrefixImage = "image"
)

// 自定义字段类型
const (
	FieldTypeText   = "text"
	FieldTypeNumber = "number"
	FieldTypeEmail  = "email"
	FieldTypeURL    = "url"
)

// 领域事件类型，写入 Kafka
const (
	EventMessageCreated      = "message.created"
	EventConversationStarted = "conversation.started"
	EventUpgradeRequested    = "upgrade.requested"
	EventWorkspaceDeleted    = "workspace.deleted"
)

// gin.Context 中的键
const (
	BaseURLKey = "base_url"
	ViewerKey  = "viewer"
	VisitorKey = "visitor"
	RolesKey   = "roles"
)
