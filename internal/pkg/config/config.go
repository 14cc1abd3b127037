package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Storage StorageConfig `mapstructure:"storage"`
	Tracker TrackerConfig `mapstructure:"tracker"`
	Server  ServerConfig  `mapstructure:"server"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Version  string `mapstructure:"version"`
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	DBPath    string `mapstructure:"db_path"`
	Namespace string `mapstructure:"namespace"` // 文档存储键，格式不兼容时升级版本号
}

// TrackerConfig 成绩计算配置
type TrackerConfig struct {
	HistoryLimit    int     `mapstructure:"history_limit"`
	AnalysisDelayMs int     `mapstructure:"analysis_delay_ms"`
	WarningMargin   float64 `mapstructure:"warning_margin"`
}

// ServerConfig 本地 HTTP 配置
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// AnalysisDelay 分析展示延迟
func (c TrackerConfig) AnalysisDelay() time.Duration {
	if c.AnalysisDelayMs <= 0 {
		return 0
	}
	return time.Duration(c.AnalysisDelayMs) * time.Millisecond
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

func newViper(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// 支持环境变量
	v.SetEnvPrefix("GRADE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || errors.Is(err, fs.ErrNotExist) {
			slog.Warn("配置文件未找到，使用默认配置")
		} else {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		slog.Info("加载配置文件", "path", v.ConfigFileUsed())
	}
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if cfg.Storage.DBPath != ":memory:" {
		cfg.Storage.DBPath = resolvePath(cfg.Storage.DBPath)
	}
	if cfg.App.LogPath != "" {
		cfg.App.LogPath = resolvePath(cfg.App.LogPath)
	}
	return &cfg, nil
}

// Default 默认配置（首次运行时写回配置文件）
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "grade-mirror")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_path", "")

	// Storage
	v.SetDefault("storage.db_path", "./data/grades.db")
	v.SetDefault("storage.namespace", "grade_tracker_v2")

	// Tracker
	v.SetDefault("tracker.history_limit", 10)
	v.SetDefault("tracker.analysis_delay_ms", 0)
	v.SetDefault("tracker.warning_margin", 5.0)

	// Server
	v.SetDefault("server.listen_addr", "127.0.0.1:0")
}

// Watch 监听配置文件变更并回调新配置；配置文件不存在时不监听
func Watch(configPath string, onChange func(*Config)) error {
	v, err := newViper(configPath)
	if err != nil {
		return err
	}
	if v.ConfigFileUsed() == "" {
		return nil
	}
	if _, err := os.Stat(v.ConfigFileUsed()); err != nil {
		return nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			slog.Warn("重新加载配置失败", "path", e.Name, "error", err)
			return
		}
		slog.Info("配置文件已变更", "path", e.Name)
		if onChange != nil {
			onChange(cfg)
		}
	})
	v.WatchConfig()
	return nil
}

// resolvePath 解析相对路径为绝对路径
func resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	exe, err := os.Executable()
	if err != nil {
		return path
	}
	return filepath.Join(filepath.Dir(exe), path)
}

// LoggerOptions 日志配置
type LoggerOptions struct {
	Level     string
	Path      string // 为空时只输出到 stderr
	Component string
}

var logLevel = new(slog.LevelVar)

// ParseLevel 解析日志级别，未知值按 info 处理
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger 设置全局日志；返回的 Closer 用于关闭日志文件
func SetupLogger(opts LoggerOptions) (io.Closer, error) {
	logLevel.Set(ParseLevel(opts.Level))

	var w io.Writer = os.Stderr
	var closer io.Closer
	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("创建日志目录失败: %w", err)
		}
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("打开日志文件失败: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
		closer = f
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	if opts.Component != "" {
		logger = logger.With("component", opts.Component)
	}
	slog.SetDefault(logger)
	return closer, nil
}

// SetLogLevel 运行时调整日志级别
func SetLogLevel(level string) {
	logLevel.Set(ParseLevel(level))
}
