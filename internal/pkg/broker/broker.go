// Package broker 实时订阅抽象：订阅返回可取消的 Subscription，
// 持有方（ws 会话）切换会话或断开时必须 Close，避免监听泄漏。
package broker

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("broker closed")

// Subscription 一次订阅。C 在 Close 后关闭
type Subscription interface {
	C() <-chan []byte
	Close() error
}

// Broker 按主题发布 / 订阅
type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe 返回时订阅已生效，之后发布的消息不会丢
	Subscribe(ctx context.Context, topics ...string) (Subscription, error)
}
