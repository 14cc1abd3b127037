package bootstrap

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/yuqie6/GradeMirror/internal/eventbus"
	"github.com/yuqie6/GradeMirror/internal/pkg/config"
	"github.com/yuqie6/GradeMirror/internal/repository"
	"github.com/yuqie6/GradeMirror/internal/service"
)

// Core 持有跨二进制共享的核心依赖
type Core struct {
	Cfg       *config.Config
	CfgPath   string
	DB        *repository.Database
	Hub       *eventbus.Hub
	LogCloser io.Closer

	Repos struct {
		Document *repository.DocumentRepository
	}

	Services struct {
		Tracker *service.TrackerService
	}
}

// NewCore 构建核心依赖并加载成绩文档
func NewCore(ctx context.Context, cfgPath string) (*Core, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logCloser, err := config.SetupLogger(config.LoggerOptions{
		Level:     cfg.App.LogLevel,
		Path:      cfg.App.LogPath,
		Component: filepath.Base(os.Args[0]),
	})
	if err != nil {
		return nil, err
	}

	db, err := repository.NewDatabase(cfg.Storage.DBPath)
	if err != nil {
		if logCloser != nil {
			_ = logCloser.Close()
		}
		return nil, err
	}

	c := &Core{Cfg: cfg, CfgPath: cfgPath, DB: db, Hub: eventbus.NewHub(), LogCloser: logCloser}

	// Repos
	c.Repos.Document = repository.NewDocumentRepository(db.DB, cfg.Storage.Namespace)

	// Services
	var store service.DocumentStore = c.Repos.Document
	if db.SafeMode {
		// 安全模式：不读写库，文档仅保存在内存中
		store = nil
	}
	c.Services.Tracker = service.NewTrackerService(
		store,
		service.UUIDGenerator{},
		service.SystemClock{},
		c.Hub,
		&service.TrackerServiceConfig{
			HistoryLimit:  cfg.Tracker.HistoryLimit,
			AnalysisDelay: cfg.Tracker.AnalysisDelay(),
			WarningMargin: cfg.Tracker.WarningMargin,
		},
	)
	if err := c.Services.Tracker.Open(ctx); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

// Close 关闭核心依赖资源
func (c *Core) Close() error {
	if c == nil {
		return nil
	}
	var dbErr error
	if c.DB != nil {
		dbErr = c.DB.Close()
	}
	if c.LogCloser != nil {
		_ = c.LogCloser.Close()
	}
	return dbErr
}
