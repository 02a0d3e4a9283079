package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tpm/internal/api/apierr"
	"tpm/internal/model"
	"tpm/internal/query"
	"tpm/internal/store"
)

// listParams 解析列表参数；分页上下限取自配置
func (h *Handler) listParams(c *gin.Context) query.Params {
	p := query.FromValues(c.Request.URL.Query())
	if c.Query(query.KeyLimit) == "" {
		p.Limit = h.cfg.Listing.DefaultLimit
	}
	if p.Limit > h.cfg.Listing.MaxLimit {
		p.Limit = h.cfg.Listing.MaxLimit
	}
	return p
}

// ListMachines 设备列表
// GET /api/machines
func (h *Handler) ListMachines(c *gin.Context) {
	p := h.listParams(c)

	list, total, err := h.store.ListMachines(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []model.Machine{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       list,
		"pagination": model.NewPagination(p.Page, p.Limit, total),
	})
}

func machineID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierr.BadRequest("invalid machine id", err)
	}
	return id, nil
}

// GetMachine 单条设备
// GET /api/machines/:id
func (h *Handler) GetMachine(c *gin.Context) {
	id, err := machineID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	m, err := h.store.GetMachine(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, m)
}

// UpdateMachine 编辑设备（部分字段）
// PATCH /api/machines/:id
func (h *Handler) UpdateMachine(c *gin.Context) {
	id, err := machineID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var patch model.MachinePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondError(c, apierr.BadRequest("invalid request body", err))
		return
	}
	if err := h.validate.Struct(patch); err != nil {
		respondError(c, apierr.BadRequest(err.Error(), err))
		return
	}

	m, err := h.store.UpdateMachine(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, m)
}

// BatchRequest 批量创建请求
type BatchRequest struct {
	Machines []model.MachineInput `json:"machines"`
}

// CreateBatch 批量创建；逐行失败写入结果，不影响其他行
// POST /api/machines/batch
func (h *Handler) CreateBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierr.BadRequest("invalid request body", err))
		return
	}
	if len(req.Machines) == 0 {
		respondError(c, apierr.BadRequest("machines must not be empty", nil))
		return
	}

	result, err := h.store.CreateBatch(c.Request.Context(), req.Machines)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

// GetStats 原始状态 × 来源计数
// GET /api/machines/stats
func (h *Handler) GetStats(c *gin.Context) {
	m, err := h.store.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, m)
}

// ListFacet 下拉筛选项
// GET /api/filters/:facet
func (h *Handler) ListFacet(c *gin.Context) {
	facet, err := store.ParseFacet(c.Param("facet"))
	if err != nil {
		respondError(c, err)
		return
	}

	values, err := h.store.DistinctValues(c.Request.Context(), facet)
	if err != nil {
		respondError(c, err)
		return
	}
	if values == nil {
		values = []string{}
	}
	respondOK(c, values)
}
