package minio

import (
	"Helpdock/internal/api/config"
	"context"
	"fmt"
	log "log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	// Client 全局 MinIO 客户端实例
	Client *minio.Client
	// MainBucket 主要存储桶
	MainBucket string
	// publicBase 对外访问地址前缀
	publicBase string
)

// 工作区 logo 需要被挂件匿名读取
const publicReadPolicy = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`

// Init 初始化 MinIO 客户端
func Init(cfg config.MinIOConfig) error {
	var endpoint string
	var useSSL bool
	if cfg.InternalEndpoint != "" {
		endpoint = cfg.InternalEndpoint
		useSSL = cfg.InternalUseSSL
	} else {
		endpoint = cfg.ExternalEndpoint
		useSSL = true
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize minio client: %w", err)
	}

	ctx := context.Background()
	Client = client
	MainBucket = cfg.MainBucket
	publicBase = buildPublicBase(cfg)
	return ensureBucket(ctx)
}

func buildPublicBase(cfg config.MinIOConfig) string {
	endpoint := cfg.ExternalEndpoint
	protocol := "https"
	if endpoint == "" {
		endpoint = cfg.InternalEndpoint
		if !cfg.InternalUseSSL {
			protocol = "http"
		}
	}
	return fmt.Sprintf("%s://%s/%s/", protocol, endpoint, cfg.MainBucket)
}

func ensureBucket(ctx context.Context) error {
	exists, err := Client.BucketExists(ctx, MainBucket)
	if err != nil {
		return fmt.Errorf("failed to connect to minio server: %w", err)
	}
	if exists {
		return nil
	}

	if err = Client.MakeBucket(ctx, MainBucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("创建存储桶失败: %w", err)
	}
	if err = Client.SetBucketPolicy(ctx, MainBucket, fmt.Sprintf(publicReadPolicy, MainBucket)); err != nil {
		return fmt.Errorf("设置存储桶策略失败: %w", err)
	}
	log.Info("已创建 MinIO 存储桶", "bucket", MainBucket)
	return nil
}
