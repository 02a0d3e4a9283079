package api

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"tpm/internal/api/apierr"
	"tpm/internal/config"
	"tpm/internal/importer"
	"tpm/internal/logger"
	"tpm/internal/store"
)

// Handler 设备台账 API 处理器
type Handler struct {
	store       *store.Store
	coordinator *importer.Coordinator
	cfg         *config.AppConfig
	validate    *validator.Validate
	importLimit *RateLimiter
	exportDir   string
	downloads   *downloadStore
}

// NewHandler 创建 API 处理器；导入直接写入本地存储，导出文件写入 exportDir（为空时用系统临时目录）
func NewHandler(st *store.Store, cfg *config.AppConfig, exportDir string) *Handler {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if exportDir == "" {
		exportDir = os.TempDir()
	}
	perMinute := max(cfg.Import.RatePerMinute, 1)

	return &Handler{
		store:       st,
		coordinator: importer.NewCoordinator(importer.NewPipeline(st), st),
		cfg:         cfg,
		validate:    validator.New(),
		importLimit: NewRateLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		exportDir:   exportDir,
		downloads:   newDownloadStore(),
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 运行期配置
	router.GET("/settings", h.GetSettings)
	router.PATCH("/settings", h.UpdateSettings)

	// 台账
	router.GET("/machines", h.ListMachines)
	router.POST("/machines/batch", h.CreateBatch)
	router.GET("/machines/stats", h.GetStats)
	router.GET("/machines/matrix", h.GetMatrix)
	router.POST("/machines/matrix/activate", h.ActivateCell)
	router.GET("/machines/export", h.ExportMachines)
	router.POST("/machines/export/stream", h.ExportStream)
	router.GET("/machines/export/download/:token", h.DownloadExport)
	router.GET("/machines/:id", h.GetMachine)
	router.PATCH("/machines/:id", h.UpdateMachine)

	// 下拉筛选项
	router.GET("/filters/:facet", h.ListFacet)

	// 数据导入
	router.POST("/import", h.importLimit.Middleware(), h.Import)
	router.GET("/import/template", h.DownloadTemplate)
	router.GET("/import/logs", h.ListImportLogs)
}

// respondError 统一错误响应 {success:false, error}
func respondError(c *gin.Context, err error) {
	var ae *apierr.Error
	switch {
	case errors.As(err, &ae):
	case errors.Is(err, store.ErrNotFound):
		ae = apierr.NotFound("record not found", err)
	case errors.Is(err, store.ErrInvalid):
		ae = apierr.BadRequest(err.Error(), err)
	case errors.Is(err, importer.ErrImportInProgress):
		ae = apierr.Conflict(err.Error(), err)
	default:
		ae = apierr.Internal("internal error", err)
	}

	if ae.Code >= http.StatusInternalServerError {
		logger.Error(c, ae.Message, ae.Err)
	}
	c.AbortWithStatusJSON(ae.Code, gin.H{"success": false, "error": ae.Message})
}

// respondOK 统一成功响应 {success:true, data}
func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}
