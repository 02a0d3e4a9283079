package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tpm/internal/config"
	"tpm/internal/logger"
	"tpm/internal/server"
	"tpm/internal/util"
)

var (
	port      = flag.Int("port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	devMode   = flag.Bool("dev", false, "开发模式")
	dataDir   = flag.String("dataDir", "", "数据目录 (覆盖配置文件)")
	noBrowser = flag.Bool("no-browser", false, "启动后不自动打开浏览器")
)

func main() {
	flag.Parse()

	fmt.Println("==========================================")
	fmt.Println("  TPM - Quản lý thiết bị")
	fmt.Println("==========================================")

	// 加载配置
	cfg, info, err := config.LoadConfigWithInfo()
	if err != nil {
		fmt.Printf("加载配置失败，使用默认配置: %v\n", err)
		cfg = config.DefaultConfig()
		info = config.LoadConfigInfo{}
	}

	// 命令行参数覆盖配置
	if *port > 0 && !info.PortSpecified {
		cfg.Server.Port = *port
	}
	if *devMode {
		cfg.Server.DevMode = true
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}

	logger.Initialize(cfg.Server.LogEnv)
	defer logger.Sync()

	baseDir := "."
	if info.Path != "" {
		baseDir = filepath.Dir(info.Path)
	}

	srv, err := server.NewServer(cfg, baseDir)
	if err != nil {
		logger.Log.Fatal("failed to create server", zap.Error(err))
	}

	url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)

	// 启动服务器
	go func() {
		logger.Log.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("config", info.Path),
			zap.Bool("dev", cfg.Server.DevMode),
		)
		if err := srv.Run(); err != nil {
			logger.Log.Fatal("server stopped", zap.Error(err))
		}
	}()

	// 打开浏览器
	if !cfg.Server.DevMode && !*noBrowser {
		if err := util.OpenBrowser(url); err != nil {
			if !errors.Is(err, util.ErrHeadless) {
				logger.Log.Warn("failed to open browser", zap.Error(err))
			}
			fmt.Printf("请手动访问: %s\n", url)
		}
	} else {
		fmt.Printf("请访问 %s\n", url)
	}

	fmt.Println("\n按 Ctrl+C 停止服务...")

	// 等待信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("shutdown failed", zap.Error(err))
	}
}
