package consts

const (
	// AnalyticsKey analytics:{workspaceID}:{yyyy-mm-dd}:{metric}
	AnalyticsKey = "analytics:"
	// RateLimitTrackKey 上报限流 rate:track:{workspaceID}:{ip}
	RateLimitTrackKey = "rate:track:"
	// WorkspaceDirtyKey 统计待校准的工作区集合
	WorkspaceDirtyKey = "workspace:stats:dirty"
	// WorkspaceRecountLock 校准任务多实例互斥
	WorkspaceRecountLock = "lock:workspace:recount"
)

// Pub/Sub 频道
const (
	// ConversationTopic 单个会话的新消息与状态变更 im:conversation:{id}
	ConversationTopic = "im:conversation:"
	// WorkspaceTopic 工作区会话列表变更 im:workspace:{id}
	WorkspaceTopic = "im:workspace:"
)
