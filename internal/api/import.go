package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tpm/internal/api/apierr"
	"tpm/internal/exporter"
	"tpm/internal/importer"
	"tpm/internal/logger"
)

// 允许上传的工作簿扩展名
var workbookExts = map[string]bool{".xlsx": true, ".xlsm": true}

// Import 导入 Excel 数据（SSE 流式响应）
// POST /api/import
func (h *Handler) Import(c *gin.Context) {
	maxBytes := h.cfg.Import.MaxFileBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+1<<20)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, apierr.PayloadTooLarge("file too large"))
			return
		}
		respondError(c, apierr.BadRequest("missing upload file", err))
		return
	}
	if fh.Size > maxBytes {
		respondError(c, apierr.PayloadTooLarge(fmt.Sprintf("file exceeds %d MB", h.cfg.Import.MaxFileMB)))
		return
	}
	if !workbookExts[strings.ToLower(filepath.Ext(fh.Filename))] {
		respondError(c, apierr.BadRequest("only .xlsx files are accepted", nil))
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, apierr.BadRequest("cannot read upload file", err))
		return
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		respondError(c, apierr.BadRequest("cannot read upload file", err))
		return
	}

	ctx := logger.WithRequestID(c.Request.Context(), c.GetString(logger.RequestIDKey))
	progressChan, err := h.coordinator.Import(ctx, importer.ImportOptions{
		Filename:        fh.Filename,
		Data:            data,
		DefaultCategory: h.defaultCategory(c),
		MaxRows:         h.cfg.Import.MaxRows,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		// 仍需等待导入结束以释放单飞槽位
		for range progressChan {
		}
		respondError(c, fmt.Errorf("streaming unsupported"))
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	for event := range progressChan {
		eventData, err := json.Marshal(event)
		if err != nil {
			continue
		}

		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}

// DownloadTemplate 下载导入模板
// GET /api/import/template
func (h *Handler) DownloadTemplate(c *gin.Context) {
	data, err := exporter.Template()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", contentDisposition("tpm-import-template.xlsx", "Mẫu nhập thiết bị.xlsx"))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ListImportLogs 最近的导入记录
// GET /api/import/logs?limit=20
func (h *Handler) ListImportLogs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	limit = min(limit, 200)

	logs, err := h.store.ListImportLogs(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, logs)
}
