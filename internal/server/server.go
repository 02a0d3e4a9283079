package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tpm/internal/api"
	"tpm/internal/config"
	"tpm/internal/logger"
	"tpm/internal/store"
)

// Server HTTP服务器
type Server struct {
	router *gin.Engine
	store  *store.Store
	api    *api.Handler
	http   *http.Server
}

// NewServer 创建服务器；baseDir 为相对数据目录与静态目录的基准
func NewServer(cfg *config.AppConfig, baseDir string) (*Server, error) {
	devMode := cfg.Server.DevMode
	if !devMode {
		gin.SetMode(gin.ReleaseMode)
	}

	dataDir, err := config.EnsureDataDir(baseDir, cfg)
	if err != nil {
		return nil, fmt.Errorf("prepare data dir: %w", err)
	}

	// 初始化 SQLite Store
	sqliteStore, err := store.New(filepath.Join(dataDir, "tpm.db"))
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	s := &Server{
		router: gin.New(),
		store:  sqliteStore,
		api:    api.NewHandler(sqliteStore, cfg, filepath.Join(dataDir, "exports")),
	}

	s.setupRoutes(devMode, resolveDir(baseDir, cfg.Server.StaticDir))
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

func resolveDir(baseDir, dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(baseDir, dir)
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(devMode bool, staticDir string) {
	s.router.Use(logger.RequestLogger(), gin.Recovery())

	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// 导入与导出进度走 SSE，不能压缩
	s.router.Use(gzip.Gzip(gzip.BestSpeed, gzip.WithExcludedPaths([]string{
		"/api/import",
		"/api/machines/export/stream",
	})))

	// API 路由
	apiGroup := s.router.Group("/api")
	{
		s.api.RegisterRoutes(apiGroup)
	}

	// 静态资源
	switch {
	case devMode:
		// 开发模式：代理到前端开发服务器
		s.router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") {
				notFound(c)
				return
			}
			c.Redirect(http.StatusTemporaryRedirect, "http://localhost:5173"+c.Request.URL.Path)
		})
	case dirExists(staticDir):
		index := filepath.Join(staticDir, "index.html")
		s.router.Static("/assets", filepath.Join(staticDir, "assets"))
		s.router.GET("/", func(c *gin.Context) { c.File(index) })

		// SPA 路由 fallback
		s.router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") {
				notFound(c)
				return
			}
			c.File(index)
		})
	default:
		logger.Log.Warn("static dir not found, serving API only", zap.String("dir", staticDir))
		s.router.NoRoute(notFound)
	}
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "not found"})
}

func dirExists(dir string) bool {
	if dir == "" {
		return false
	}
	fi, err := os.Stat(dir)
	return err == nil && fi.IsDir()
}

// Handler 路由（用于测试）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 启动服务器，阻塞直到关闭
func (s *Server) Run() error {
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭：等待进行中的请求（包括导入）结束后关闭数据库
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	if cerr := s.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// GetStore 获取存储（用于测试）
func (s *Server) GetStore() *store.Store {
	return s.store
}
