package service

import (
	"context"
	"time"

	"github.com/yuqie6/GradeMirror/internal/eventbus"
	"github.com/yuqie6/GradeMirror/internal/schema"
)

// 仓储/外部依赖的最小接口集合（ISP）

// DocumentStore 文档持久化：Load 在无数据或数据损坏时返回 (nil, nil)
type DocumentStore interface {
	Load(ctx context.Context) (*schema.Document, error)
	Save(ctx context.Context, doc *schema.Document) error
}

// IDGenerator 会话内无冲突的不透明 ID
type IDGenerator interface {
	NewID() string
}

type Clock interface {
	Now() time.Time
}

type EventPublisher interface {
	Publish(evt eventbus.Event)
}
