package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tpm/internal/aggregate"
	"tpm/internal/model"
	"tpm/internal/query"
)

// APIError 服务端返回的错误
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tpm api: status=%d: %s", e.Status, e.Message)
}

// Client 台账服务 HTTP 客户端
type Client struct {
	baseURL string
	client  *http.Client
}

// New 创建客户端；baseURL 形如 http://localhost:20262
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Success    bool             `json:"success"`
	Data       json.RawMessage  `json:"data"`
	Error      string           `json:"error"`
	Pagination model.Pagination `json:"pagination"`
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body any) (*envelope, error) {
	u := c.baseURL + "/api" + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 400 || !env.Success {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Error}
	}
	return &env, nil
}

// CreateBatch 调用批量创建接口
// 失败行的 Line 为该行在 machines 中的序号（从 1 开始）
func (c *Client) CreateBatch(ctx context.Context, machines []model.MachineInput) (*model.BatchResult, error) {
	env, err := c.do(ctx, http.MethodPost, "/machines/batch", nil, map[string]any{"machines": machines})
	if err != nil {
		return nil, err
	}

	var res model.BatchResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		return nil, fmt.Errorf("decode batch result: %w", err)
	}
	return &res, nil
}

// Stats 原始状态 × 来源计数
func (c *Client) Stats(ctx context.Context) (aggregate.StatusMatrix, error) {
	var m aggregate.StatusMatrix
	env, err := c.do(ctx, http.MethodGet, "/machines/stats", nil, nil)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(env.Data, &m); err != nil {
		return m, fmt.Errorf("decode stats: %w", err)
	}
	return m, nil
}

// List 设备列表
func (c *Client) List(ctx context.Context, p query.Params) ([]model.Machine, model.Pagination, error) {
	env, err := c.do(ctx, http.MethodGet, "/machines", p.Values(), nil)
	if err != nil {
		return nil, model.Pagination{}, err
	}

	var list []model.Machine
	if err := json.Unmarshal(env.Data, &list); err != nil {
		return nil, model.Pagination{}, fmt.Errorf("decode machines: %w", err)
	}
	return list, env.Pagination, nil
}
