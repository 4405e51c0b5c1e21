package es

import (
	"context"
	"errors"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/conflicts"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortorder"
	"github.com/goccy/go-json"
)

// MaxSearchDepth from+size 上限
const MaxSearchDepth = 400

type MessageRepo interface {
	IndexMessage(ctx context.Context, msg *MessageES) error
	Search(ctx context.Context, workspaceID, queryText string, from, size int) ([]*MessageES, error)
	DeleteByWorkspace(ctx context.Context, workspaceID string) error
}

type MessageRepoImpl struct {
	client *elasticsearch.TypedClient
}

func NewMessageRepo(client *elasticsearch.TypedClient) MessageRepo {
	return &MessageRepoImpl{client: client}
}

// IndexMessage 以消息 ID 为文档 ID，重复消费是幂等覆盖
func (s *MessageRepoImpl) IndexMessage(ctx context.Context, msg *MessageES) error {
	_, err := s.client.Index(MessageIndex).
		Id(msg.MessageID).
		Document(msg).
		Do(ctx)
	if err != nil {
		var e *types.ElasticsearchError
		if errors.As(err, &e) && e.Status == ConflictCode {
			return nil
		}
		return err
	}
	return nil
}

func (s *MessageRepoImpl) Search(ctx context.Context, workspaceID, queryText string, from, size int) ([]*MessageES, error) {
	if from+size > MaxSearchDepth {
		return []*MessageES{}, nil
	}

	query := &types.Query{
		Bool: &types.BoolQuery{
			Filter: []types.Query{
				{Term: map[string]types.TermQuery{"workspace_id": {Value: workspaceID}}},
			},
			Must: []types.Query{
				{Match: map[string]types.MatchQuery{"text": {Query: queryText}}},
			},
		},
	}

	resp, err := s.client.Search().
		Index(MessageIndex).
		Query(query).
		Sort(&types.SortOptions{SortOptions: map[string]types.FieldSort{
			"created_at": {Order: &sortorder.Desc},
		}}).
		From(from).
		Size(size).
		Do(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*MessageES, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		if hit.Source_ == nil {
			continue
		}
		var msg MessageES
		if err = json.Unmarshal(hit.Source_, &msg); err != nil {
			continue
		}
		results = append(results, &msg)
	}
	return results, nil
}

// DeleteByWorkspace 工作区级联删除时清理索引
func (s *MessageRepoImpl) DeleteByWorkspace(ctx context.Context, workspaceID string) error {
	_, err := s.client.DeleteByQuery(MessageIndex).
		Query(&types.Query{Term: map[string]types.TermQuery{"workspace_id": {Value: workspaceID}}}).
		Conflicts(conflicts.Proceed).
		Do(ctx)
	if err != nil {
		var e *types.ElasticsearchError
		if errors.As(err, &e) && e.Status == NotFoundCode {
			return nil
		}
		return err
	}
	return nil
}
