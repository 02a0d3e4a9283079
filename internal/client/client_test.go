package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tpm/internal/aggregate"
	"tpm/internal/api"
	"tpm/internal/config"
	"tpm/internal/filter"
	"tpm/internal/importer"
	"tpm/internal/model"
	"tpm/internal/query"
	"tpm/internal/store"
	"tpm/internal/taxonomy"
)

func newServer(t *testing.T) (*Client, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.New(filepath.Join(t.TempDir(), "tpm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	r := gin.New()
	api.NewHandler(st, config.DefaultConfig(), t.TempDir()).RegisterRoutes(r.Group("/api"))
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return New(ts.URL+"/", 5*time.Second), st
}

func TestClient_CreateBatchListStats(t *testing.T) {
	c, _ := newServer(t)
	ctx := context.Background()

	res, err := c.CreateBatch(ctx, []model.MachineInput{
		{TypeMachine: "Máy may", SerialMachine: "S1", BorrowStatus: "borrowed_out"},
		{TypeMachine: "Máy may", SerialMachine: "S2", CurrentStatus: "broken"},
		{TypeMachine: "Máy may", SerialMachine: "S1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.SuccessCount)
	require.Equal(t, 1, res.ErrorCount)
	assert.Equal(t, 3, res.Errors[0].Line)

	m, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Get(taxonomy.StatusAvailable).Get(taxonomy.SourceBorrowedOut))
	assert.Equal(t, 1, m.Get(taxonomy.StatusBroken).Get(taxonomy.SourceInternal))

	// 点击 (可用, 内部) 后的列表包含 borrowed_out 设备
	state := filter.Activate(filter.FilterState{}, taxonomy.RowAvailable, taxonomy.ColInternal)
	list, page, err := c.List(ctx, query.Assemble(state, "", 1, 10))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "S1", list[0].SerialMachine)
	assert.Equal(t, 1, page.Total)

	v := aggregate.Build(m)
	assert.Equal(t, 1, v.Cell(taxonomy.RowAvailable, taxonomy.ColInternal))
}

func TestClient_APIError(t *testing.T) {
	c, _ := newServer(t)

	_, err := c.CreateBatch(context.Background(), nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.NotEmpty(t, apiErr.Message)
}

func TestClient_NonJSONError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := New(ts.URL, time.Second).Stats(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

// 客户端作为导入流水线的批量创建端：远端失败行映射回表格行号
func TestClient_AsBatchCreator(t *testing.T) {
	c, st := newServer(t)
	ctx := context.Background()

	_, err := st.CreateBatch(ctx, []model.MachineInput{{TypeMachine: "Máy may", SerialMachine: "EXIST"}})
	require.NoError(t, err)

	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"Loại máy", "Serial", "Trạng thái"},
		{"Máy may", "N1", "Đang sử dụng"},
		{"", "N2", ""},
		{"Máy may", "EXIST", ""},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)

	var creator importer.BatchCreator = c
	res, err := importer.NewPipeline(creator).Run(ctx, &buf, importer.Options{DefaultCategory: "Thiết bị"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)
	require.Equal(t, 2, res.ErrorCount)
	assert.Equal(t, 4, res.Errors[0].Line)
	assert.Equal(t, 3, res.Errors[1].Line)

	got, err := st.GetMachine(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "in_use", got.CurrentStatus)

	raw, _ := json.Marshal(res)
	assert.Contains(t, string(raw), `"successCount":1`)
}
