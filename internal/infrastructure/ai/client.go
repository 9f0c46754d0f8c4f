package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"aichat/internal/config"
)

var ErrUpstream = errors.New("AI 服务响应异常")

// Request 发往外部 AI 服务的请求体
type Request struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
	ListaID int64  `json:"lista_id"`
}

// Response 外部 AI 服务的响应体。
// Subtrair 是本轮回复的扣减量，由 AI 侧决定；缺省或 0 表示本轮不扣费
type Response struct {
	Output   string `json:"output"`
	Subtrair int64  `json:"subtrair"`
}

// Client 外部 AI 服务接口，测试中以 spy 替换
type Client interface {
	Ask(ctx context.Context, req *Request) (*Response, error)
}

// HTTPClient 同步 HTTP 调用实现。
// 超时由配置指定，调用失败不重试，直接向上抛 ErrUpstream
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
}

func NewHTTPClient(cfg *config.AIConfig) *HTTPClient {
	return &HTTPClient{
		endpoint: cfg.Endpoint,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

func (c *HTTPClient) Ask(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: 状态码 %d", ErrUpstream, resp.StatusCode)
	}

	var aiResp Response
	if err := json.NewDecoder(resp.Body).Decode(&aiResp); err != nil {
		return nil, fmt.Errorf("%w: 解析响应失败 %v", ErrUpstream, err)
	}

	return &aiResp, nil
}
