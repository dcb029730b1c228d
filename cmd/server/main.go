package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Djomab/activity-weekly-report/config"
	"github.com/Djomab/activity-weekly-report/internal/api/handler"
	"github.com/Djomab/activity-weekly-report/internal/api/router"
	"github.com/Djomab/activity-weekly-report/internal/repository"
	"github.com/Djomab/activity-weekly-report/internal/service"
	"github.com/Djomab/activity-weekly-report/pkg/database"
	"github.com/Djomab/activity-weekly-report/pkg/jwt"
	applogger "github.com/Djomab/activity-weekly-report/pkg/logger"
	"github.com/Djomab/activity-weekly-report/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// REPORT_CONFIG_FILE 可指定配置文件路径，未设置时查找 ./config.yaml
	cfg, err := config.Load(os.Getenv("REPORT_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("周报服务异常退出", zap.Error(err))
		os.Exit(1)
	}
}

// run 装配依赖并阻塞到收到退出信号
func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("周报服务启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// ── PostgreSQL + 迁移 ──
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return fmt.Errorf("数据库连接失败: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, logger); err != nil {
		return err
	}

	// ── Redis（可选）──
	// 不可用时：驳回向导存于进程内，Token 黑名单与登录限流关闭
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		if rdb, err = redis.NewClient(&cfg.Redis, logger); err != nil {
			logger.Warn("Redis 连接失败，降级运行", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	// ── Repository → Service → Handler ──
	jwtMgr := jwt.NewManager(&cfg.Auth)
	svc := service.NewService(cfg, repository.NewRepository(db), jwtMgr, rdb, logger)
	engine := router.Setup(cfg, handler.NewHandler(svc), jwtMgr, rdb, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP 服务器异常: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("收到关闭信号，开始优雅关闭...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("服务器关闭异常: %w", err)
	}

	logger.Info("服务器已关闭")
	return nil
}
