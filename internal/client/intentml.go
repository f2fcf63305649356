package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aitachi/medical-agent-sub000/internal/intent"
	"go.uber.org/zap"
)

// IntentClient 统计意图分类服务客户端。
// 分类服务独立部署（MLP 模型），本客户端实现 intent.Predictor，
// 服务不可用时由分类器降级到规则打分。
type IntentClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewIntentClient 创建意图分类客户端
func NewIntentClient(baseURL string, timeout time.Duration, logger *zap.Logger) *IntentClient {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &IntentClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// PredictRequest 预测请求
type PredictRequest struct {
	Text string `json:"text"`
	TopK int    `json:"top_k"`
}

// PredictResponse 预测响应
type PredictResponse struct {
	Predictions []struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	} `json:"predictions"`
	ModelVersion string `json:"model_version,omitempty"`
}

// PredictTopK 请求分类服务返回置信度最高的 k 个意图
func (c *IntentClient) PredictTopK(ctx context.Context, text string, k int) ([]intent.Prediction, error) {
	if k <= 0 {
		k = 3
	}

	reqBody := PredictRequest{Text: text, TopK: k}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求分类服务失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("分类服务返回错误 %d: %s", resp.StatusCode, string(body))
	}

	var predResp PredictResponse
	if err := json.Unmarshal(body, &predResp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	predictions := make([]intent.Prediction, 0, len(predResp.Predictions))
	for _, p := range predResp.Predictions {
		predictions = append(predictions, intent.Prediction{
			Label:      p.Label,
			Confidence: p.Confidence,
		})
	}

	c.logger.Debug("意图预测完成",
		zap.Int("count", len(predictions)),
		zap.String("modelVersion", predResp.ModelVersion))

	return predictions, nil
}
