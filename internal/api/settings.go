package api

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tpm/internal/api/apierr"
	"tpm/internal/logger"
	"tpm/internal/store"
)

// 运行期可修改的配置项
const (
	SettingDefaultCategory = "import.default_category"
)

var settingKeys = map[string]bool{
	SettingDefaultCategory: true,
}

// defaultCategory 导入时注入的设备类别：优先数据库配置，其次配置文件
func (h *Handler) defaultCategory(c *gin.Context) string {
	v, err := h.store.GetConfig(c.Request.Context(), SettingDefaultCategory)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Warn(c, "read default category failed", zap.Error(err))
		}
		return h.cfg.Import.DefaultCategory
	}
	if strings.TrimSpace(v) == "" {
		return h.cfg.Import.DefaultCategory
	}
	return v
}

// GetSettings 获取运行期配置
// GET /api/settings
func (h *Handler) GetSettings(c *gin.Context) {
	all, err := h.store.GetAllConfig(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if _, ok := all[SettingDefaultCategory]; !ok {
		all[SettingDefaultCategory] = h.cfg.Import.DefaultCategory
	}
	respondOK(c, all)
}

// UpdateSettingsRequest 更新配置请求
type UpdateSettingsRequest struct {
	Updates map[string]string `json:"updates" binding:"required"`
}

// UpdateSettings 更新运行期配置（部分更新）
// PATCH /api/settings
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierr.BadRequest("invalid request body", err))
		return
	}
	for key := range req.Updates {
		if !settingKeys[key] {
			respondError(c, apierr.BadRequest("unknown setting: "+key, nil))
			return
		}
	}

	for key, value := range req.Updates {
		if err := h.store.SetConfig(c.Request.Context(), key, strings.TrimSpace(value)); err != nil {
			respondError(c, err)
			return
		}
	}
	h.GetSettings(c)
}
