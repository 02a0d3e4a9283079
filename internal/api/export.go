package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"tpm/internal/exporter"
	"tpm/internal/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// 导出文件下载链接有效期
const downloadTTL = 10 * time.Minute

type exportProgressEvent struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// ExportMachines 按列表筛选条件直接导出 xlsx
// GET /api/machines/export
func (h *Handler) ExportMachines(c *gin.Context) {
	p := h.listParams(c)

	list, err := h.store.AllMachines(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}

	data, err := exporter.Machines(list, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	asciiName, name := exportFilename(time.Now())
	c.Header("Content-Disposition", contentDisposition(asciiName, name))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ExportStream 导出 xlsx（SSE 进度 + 完成后提供一次性下载地址）
// POST /api/machines/export/stream
func (h *Handler) ExportStream(c *gin.Context) {
	p := h.listParams(c)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		respondError(c, fmt.Errorf("streaming unsupported"))
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	send := func(event exportProgressEvent) {
		b, err := json.Marshal(event)
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", b)
		flusher.Flush()
	}
	sendError := func(msg string, err error) {
		logger.Error(c, msg, err)
		send(exportProgressEvent{Type: "error", Message: msg + ": " + err.Error(), Data: map[string]any{}, Timestamp: time.Now()})
	}

	list, err := h.store.AllMachines(c.Request.Context(), p)
	if err != nil {
		sendError("查询设备失败", err)
		return
	}
	send(exportProgressEvent{
		Type:      "start",
		Message:   "开始导出",
		Data:      map[string]any{"rows": len(list)},
		Timestamp: time.Now(),
	})

	lastPercent := -1
	data, err := exporter.Machines(list, func(percent int, stage string) {
		if percent == lastPercent {
			return
		}
		lastPercent = percent
		send(exportProgressEvent{
			Type:      "progress",
			Message:   stage,
			Data:      map[string]any{"percent": percent},
			Timestamp: time.Now(),
		})
	})
	if err != nil {
		sendError("导出失败", err)
		return
	}

	f, err := os.CreateTemp(h.exportDir, "tpm_export_*.xlsx")
	if err != nil {
		sendError("写入导出文件失败", err)
		return
	}
	_, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(f.Name())
		sendError("写入导出文件失败", fmt.Errorf("write %s: %v %v", f.Name(), werr, cerr))
		return
	}

	asciiName, name := exportFilename(time.Now())
	token := h.downloads.put(f.Name(), asciiName, name, downloadTTL)

	send(exportProgressEvent{
		Type:    "done",
		Message: "导出完成",
		Data: map[string]any{
			"percent":     100,
			"downloadUrl": "/api/machines/export/download/" + token,
		},
		Timestamp: time.Now(),
	})
}

// DownloadExport 下载导出文件（一次性）
// GET /api/machines/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	item, ok := h.downloads.take(c.Param("token"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "download link expired"})
		return
	}
	defer os.Remove(item.filePath)

	if _, err := os.Stat(item.filePath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "export file missing"})
		return
	}

	c.Header("Content-Disposition", contentDisposition(item.asciiName, item.filename))
	c.Header("Content-Type", xlsxContentType)
	c.File(item.filePath)
}
