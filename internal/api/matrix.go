package api

import (
	"github.com/gin-gonic/gin"

	"tpm/internal/aggregate"
	"tpm/internal/api/apierr"
	"tpm/internal/filter"
	"tpm/internal/query"
	"tpm/internal/taxonomy"
)

// GetMatrix 汇总矩阵，并按当前列表参数标记高亮
// GET /api/machines/matrix
func (h *Handler) GetMatrix(c *gin.Context) {
	raw, err := h.store.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	state := query.FromValues(c.Request.URL.Query()).State()
	respondOK(c, filter.Highlight(aggregate.Build(raw), state))
}

// ActivateRequest 点击矩阵单元格
type ActivateRequest struct {
	Row        string             `json:"row" binding:"required"`
	Col        string             `json:"col" binding:"required"`
	Filters    filter.FilterState `json:"filters"`
	Search     string             `json:"search"`
	Limit      int                `json:"limit"`
	Generation uint64             `json:"generation"`
}

// ActivateResponse 激活后的筛选状态与列表请求参数
type ActivateResponse struct {
	State      filter.FilterState  `json:"state"`
	Page       int                 `json:"page"`
	Generation uint64              `json:"generation"`
	Params     map[string][]string `json:"params"`
	Query      string              `json:"query"`
}

// ActivateCell 计算单元格激活后的筛选状态
// POST /api/machines/matrix/activate
func (h *Handler) ActivateCell(c *gin.Context) {
	var req ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierr.BadRequest("invalid request body", err))
		return
	}

	row, err := taxonomy.ParseRowKey(req.Row)
	if err != nil {
		respondError(c, apierr.BadRequest(err.Error(), err))
		return
	}
	col, err := taxonomy.ParseColKey(req.Col)
	if err != nil {
		respondError(c, apierr.BadRequest(err.Error(), err))
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = h.cfg.Listing.DefaultLimit
	}
	limit = min(limit, h.cfg.Listing.MaxLimit)

	session := &filter.Session{State: req.Filters, Generation: req.Generation}
	state := session.Activate(row, col)
	values := query.Assemble(state, req.Search, session.Page, limit).Values()

	respondOK(c, ActivateResponse{
		State:      state,
		Page:       session.Page,
		Generation: session.Generation,
		Params:     values,
		Query:      values.Encode(),
	})
}
