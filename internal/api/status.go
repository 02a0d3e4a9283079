package api

import (
	"github.com/gin-gonic/gin"

	"tpm/internal/model"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Initialized   bool             `json:"initialized"`   // 是否已有台账数据
	TotalMachines int              `json:"totalMachines"` // 设备总数
	Importing     bool             `json:"importing"`     // 是否有导入正在进行
	LastImport    *model.ImportLog `json:"lastImport"`    // 最近一次导入
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	total, err := h.store.CountMachines(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	last, err := h.store.LastImportLog(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, StatusResponse{
		Initialized:   total > 0,
		TotalMachines: total,
		Importing:     h.coordinator.Busy(),
		LastImport:    last,
	})
}
