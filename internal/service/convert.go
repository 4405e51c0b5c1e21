package service

import (
	"Helpdock/internal/api/dto"
	"Helpdock/internal/pkg/mongo"
	"Helpdock/internal/pkg/util"

	"github.com/jinzhu/copier"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// objectIDConverter ObjectID 字段转成十六进制字符串
var objectIDConverter = copier.TypeConverter{
	SrcType: primitive.ObjectID{},
	DstType: copier.String,
	Fn: func(src interface{}) (interface{}, error) {
		return src.(primitive.ObjectID).Hex(), nil
	},
}

var dtoCopyOption = copier.Option{Converters: []copier.TypeConverter{objectIDConverter}}

func toConversationDTO(c *mongo.Conversation) *dto.ConversationDTO {
	d := &dto.ConversationDTO{}
	_ = copier.CopyWithOption(d, c, dtoCopyOption)
	d.UnreadCountAdmin = util.ClampZero(c.UnreadCountAdmin)
	d.UnreadCountUser = util.ClampZero(c.UnreadCountUser)
	if d.CustomData == nil {
		d.CustomData = map[string]string{}
	}
	return d
}

func toMessageDTO(m *mongo.Message) *dto.MessageDTO {
	return &dto.MessageDTO{
		ID:             m.ID.Hex(),
		ConversationID: m.ConversationID.Hex(),
		Text:           m.Text,
		Sender:         m.Sender,
		CreatedAt:      m.CreatedAt,
	}
}

func toMessageDTOs(list []*mongo.Message) []*dto.MessageDTO {
	res := make([]*dto.MessageDTO, 0, len(list))
	for _, m := range list {
		res = append(res, toMessageDTO(m))
	}
	return res
}

// toWorkspaceDTO 聚合计数展示前截断负数
func toWorkspaceDTO(ws *mongo.Workspace, viewerID string) *dto.WorkspaceDTO {
	members := ws.Members
	if members == nil {
		members = []string{}
	}
	return &dto.WorkspaceDTO{
		ID:         ws.ID.Hex(),
		Name:       ws.Name,
		OwnerID:    ws.OwnerID,
		OwnerEmail: ws.OwnerEmail,
		Members:    members,
		Settings: dto.WorkspaceSettingsDTO{
			BrandColor:  ws.Settings.BrandColor,
			LogoURL:     ws.Settings.LogoURL,
			DisplayName: ws.Settings.DisplayName,
		},
		Stats: dto.WorkspaceStatsDTO{
			ConversationCount: util.ClampZero(ws.Stats.ConversationCount),
			MessageCount:      util.ClampZero(ws.Stats.MessageCount),
			UnresolvedCount:   util.ClampZero(ws.Stats.UnresolvedCount),
			UnreadCount:       util.ClampZero(ws.Stats.UnreadCount),
		},
		IsOwner:   ws.OwnerID == viewerID,
		CreatedAt: ws.CreatedAt,
	}
}
