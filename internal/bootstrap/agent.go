package bootstrap

import (
	"context"
	"log/slog"
	"sync"

	"github.com/yuqie6/GradeMirror/internal/eventbus"
	"github.com/yuqie6/GradeMirror/internal/pkg/config"
)

// EventConfigReloaded 配置文件变更后发布
const EventConfigReloaded = "config_reloaded"

// AgentRuntime Agent 二进制的运行时：核心依赖 + 配置热更新
// Core.Cfg 启动后只读；热更新的值单独保存在运行时内，由 mu 保护
type AgentRuntime struct {
	*Core

	mu       sync.RWMutex
	logLevel string
}

// NewAgentRuntime 构建 Agent 运行时
func NewAgentRuntime(ctx context.Context, cfgPath string) (*AgentRuntime, error) {
	core, err := NewCore(ctx, cfgPath)
	if err != nil {
		return nil, err
	}
	rt := newAgentRuntime(core)

	// 只热更新日志级别；存储与计算参数需要重启生效
	if err := config.Watch(cfgPath, rt.onConfigChange); err != nil {
		slog.Warn("启动配置监听失败", "error", err)
	}
	return rt, nil
}

func newAgentRuntime(core *Core) *AgentRuntime {
	rt := &AgentRuntime{Core: core}
	if core.Cfg != nil {
		rt.logLevel = core.Cfg.App.LogLevel
	}
	return rt
}

// LogLevel 当前生效的日志级别
func (rt *AgentRuntime) LogLevel() string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.logLevel
}

// onConfigChange 在配置监听 goroutine 中调用
func (rt *AgentRuntime) onConfigChange(cfg *config.Config) {
	level := cfg.App.LogLevel

	rt.mu.Lock()
	changed := level != rt.logLevel
	rt.logLevel = level
	rt.mu.Unlock()

	if changed {
		config.SetLogLevel(level)
		slog.Info("日志级别已更新", "level", level)
	}
	rt.Hub.Publish(eventbus.Event{
		Type: EventConfigReloaded,
		Data: map[string]any{"log_level": level},
	})
}
