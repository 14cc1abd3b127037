package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yuqie6/GradeMirror/internal/bootstrap"
	"github.com/yuqie6/GradeMirror/internal/httpapi"
	"github.com/yuqie6/GradeMirror/internal/pkg/config"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath, cfgErr := config.DefaultConfigPath()
	if cfgErr == nil {
		if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
			_ = config.WriteFile(cfgPath, config.Default())
		}
	}

	rt, err := bootstrap.NewAgentRuntime(ctx, cfgPath)
	if err != nil {
		slog.Error("启动 Agent 失败", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	slog.Info("GradeMirror Agent 启动中...", "name", rt.Cfg.App.Name, "version", rt.Cfg.App.Version)

	server, err := httpapi.Start(ctx, rt.Core, httpapi.Options{ListenAddr: rt.Cfg.Server.ListenAddr})
	if err != nil {
		slog.Error("启动本地 API 失败", "error", err)
		os.Exit(1)
	}
	slog.Info("GradeMirror Agent 已启动", "base_url", server.BaseURL())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	slog.Info("收到系统退出信号，正在关闭...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = server.Shutdown(shutdownCtx)
	shutdownCancel()
	slog.Info("GradeMirror Agent 已退出")
}
