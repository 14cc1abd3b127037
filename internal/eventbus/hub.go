package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Event 事件类型由发布方定义，总线只负责分发
type Event struct {
	Type      string         `json:"type"`
	Timestamp int64          `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Stats 总线累计计数
type Stats struct {
	Subscribers int    `json:"subscribers"`
	Published   uint64 `json:"published"`
	Dropped     uint64 `json:"dropped"`
}

// subscription 一个订阅者；types 为空表示接收全部事件
type subscription struct {
	ch    chan Event
	types map[string]struct{}
}

func (s *subscription) wants(typ string) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[typ]
	return ok
}

// Hub 进程内事件分发：发布不阻塞，订阅随 ctx 结束自动注销
type Hub struct {
	mu   sync.RWMutex
	subs map[*subscription]struct{}

	published atomic.Uint64
	dropped   atomic.Uint64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*subscription]struct{})}
}

func (h *Hub) Publish(evt Event) {
	if h == nil {
		return
	}
	if evt.Timestamp == 0 {
		evt.Timestamp = time.Now().UnixMilli()
	}
	h.published.Add(1)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		if !sub.wants(evt.Type) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			// 慢消费者丢弃并计数，成绩写入路径不等待订阅者
			h.dropped.Add(1)
		}
	}
}

// Subscribe 订阅事件；types 非空时只投递这些类型
func (h *Hub) Subscribe(ctx context.Context, buffer int, types ...string) <-chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &subscription{ch: make(chan Event, buffer)}
	for _, t := range types {
		if t == "" {
			continue
		}
		if sub.types == nil {
			sub.types = make(map[string]struct{}, len(types))
		}
		sub.types[t] = struct{}{}
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, sub)
		h.mu.Unlock()
		close(sub.ch)
	}()

	return sub.ch
}

// SubscriberCount 当前订阅者数量
func (h *Hub) SubscriberCount() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Stats() Stats {
	if h == nil {
		return Stats{}
	}
	return Stats{
		Subscribers: h.SubscriberCount(),
		Published:   h.published.Load(),
		Dropped:     h.dropped.Load(),
	}
}
