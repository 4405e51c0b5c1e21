package minio

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
)

// LogoStore 工作区 logo 存储
type LogoStore struct{}

func NewLogoStore() *LogoStore {
	return &LogoStore{}
}

// Upload 上传并返回公开地址
func (s *LogoStore) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	if Client == nil {
		return "", fmt.Errorf("minio client is not initialized")
	}

	info, err := Client.PutObject(ctx, MainBucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=86400",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return GetPublicURL(info.Key), nil
}

// Delete 删除对象，参数可以是对象名或 Upload 返回的地址
func (s *LogoStore) Delete(ctx context.Context, objectOrURL string) error {
	if Client == nil {
		return fmt.Errorf("minio client is not initialized")
	}
	objectName := strings.TrimPrefix(objectOrURL, publicBase)

	if err := Client.RemoveObject(ctx, MainBucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// GetPublicURL 获取文件的公共访问URL
func GetPublicURL(objectName string) string {
	return publicBase + objectName
}
