package es

import (
	"Helpdock/internal/api/config"
	"Helpdock/internal/pkg/logger"
	"context"
	log "log/slog"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
)

var Client *elasticsearch.TypedClient

var MessageIndex string

const (
	NotFoundCode = 404
	ConflictCode = 409
)

// InitClient 初始化 Elasticsearch 客户端，并确保消息索引存在
func InitClient(elasticCfg config.ElasticConfig) error {
	MessageIndex = elasticCfg.Indices.MessageIndex

	cfg := elasticsearch.Config{
		Addresses: []string{elasticCfg.Address},
		Username:  elasticCfg.Username,
		Password:  elasticCfg.Password,
		Transport: &logger.ESTransport{
			Transport: http.DefaultTransport,
		},
	}

	var err error
	Client, err = elasticsearch.NewTypedClient(cfg)
	if err != nil {
		log.Error("Cannot Connect to Elasticsearch", "err", err)
		return err
	}

	ctx := context.Background()
	info, err := Client.Info().Do(ctx)
	if err != nil {
		log.Error("Cannot Connect to Elasticsearch", "err", err)
		return err
	}
	log.Info("Connected to Elasticsearch", "version", info.Version.Int)

	return ensureMessageIndex(ctx)
}

func ensureMessageIndex(ctx context.Context) error {
	exists, err := Client.Indices.Exists(MessageIndex).Do(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = Client.Indices.Create(MessageIndex).Mappings(&types.TypeMapping{
		Properties: map[string]types.Property{
			"message_id":      types.NewKeywordProperty(),
			"conversation_id": types.NewKeywordProperty(),
			"workspace_id":    types.NewKeywordProperty(),
			"sender":          types.NewKeywordProperty(),
			"text":            types.NewTextProperty(),
			"created_at":      types.NewDateProperty(),
		},
	}).Do(ctx)
	if err != nil {
		return err
	}
	log.Info("Elasticsearch index created", "index", MessageIndex)
	return nil
}
