// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Corphon/RevidClone/internal/config"
	"github.com/Corphon/RevidClone/internal/di"
	"github.com/Corphon/RevidClone/internal/engines"
	"github.com/Corphon/RevidClone/internal/services"
	"github.com/Corphon/RevidClone/internal/storage"
	"github.com/Corphon/RevidClone/internal/utils"
)

const (
	// shutdownTimeout 优雅关闭的最长等待时间
	shutdownTimeout = 30 * time.Second

	projectCacheSize = 500
	projectCacheTTL  = 5 * time.Minute
)

// App 持有按依赖顺序装配好的服务
type App struct {
	Config   *config.Config
	Storage  *storage.ProjectStorage
	Projects *services.ProjectService
	Exports  *services.ExportService
	Events   *services.EventService
	Locks    *services.LockManager
	Metrics  *utils.PipelineMetrics
	Logger   *utils.Logger
}

// ConfigureLogging 根据配置设置全局日志级别与日志文件
func ConfigureLogging(cfg *config.Config) error {
	logger := utils.GetLogger()
	logger.SetLogLevel(utils.ParseLogLevel(cfg.LogLevel))
	if cfg.DebugMode {
		logger.SetLogLevel(utils.DEBUG)
	}
	if cfg.LogFile == "" {
		return nil
	}
	if err := utils.InitLogger(cfg.LogFile); err != nil {
		return fmt.Errorf("init log file: %w", err)
	}
	return nil
}

// New 装配服务：存储 → 引擎 → 事件/指标 → 项目服务
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	store, err := storage.NewProjectStorage(cfg.Home)
	if err != nil {
		return nil, err
	}
	store.EnableCache(storage.NewProjectCache(projectCacheSize, projectCacheTTL))

	logger := utils.GetLogger()
	metrics := utils.NewPipelineMetrics(nil, logger)
	events := services.NewEventService()

	projects := services.NewProjectService(
		store,
		engines.NewScriptGenerator(cfg.MaxSentences),
		engines.NewStoryboardDesigner(),
	)
	projects.Events = events
	projects.Metrics = metrics
	projects.Logger = logger

	return &App{
		Config:   cfg,
		Storage:  store,
		Projects: projects,
		Exports:  services.NewExportService(store),
		Events:   events,
		Locks:    services.NewLockManager(),
		Metrics:  metrics,
		Logger:   logger,
	}, nil
}

// Register 将服务注册到容器
func (a *App) Register(c *di.Container) {
	c.Register(di.ServiceConfig, a.Config)
	c.Register(di.ServiceStorage, a.Storage)
	c.Register(di.ServiceProjects, a.Projects)
	c.Register(di.ServiceEvents, a.Events)
	c.Register(di.ServiceLocks, a.Locks)
	c.Register(di.ServiceMetrics, a.Metrics)
	c.Register(di.ServiceExports, a.Exports)
}

// InitServices 初始化所有服务并注册到全局容器
func InitServices(cfg *config.Config) (*App, error) {
	a, err := New(cfg)
	if err != nil {
		return nil, err
	}
	// 重新初始化时不保留上一次注册的服务
	container := di.GetContainer()
	container.Clear()
	a.Register(container)

	a.Logger.Info("services initialized", map[string]interface{}{
		"home":     a.Storage.Home(),
		"services": len(container.GetNames()),
	})
	return a, nil
}

// Serve 在配置的端口上提供 handler，ctx 结束后优雅关闭
func (a *App) Serve(ctx context.Context, handler http.Handler) error {
	listener, err := net.Listen("tcp", ":"+a.Config.Port)
	if err != nil {
		return fmt.Errorf("listen on port %s: %w", a.Config.Port, err)
	}
	return a.serve(ctx, listener, handler)
}

func (a *App) serve(ctx context.Context, listener net.Listener, handler http.Handler) error {
	srv := &http.Server{Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	a.Logger.Info("server listening", map[string]interface{}{"addr": listener.Addr().String()})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}
