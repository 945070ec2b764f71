package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// DefaultModel 默认使用的大模型
const DefaultModel = "doubao-1-5-pro-256k-250115"

// VolcesAPIClient 封装对Volces（火山方舟）chat completions API的访问
type VolcesAPIClient struct {
	APIKey     string
	BaseURL    string
	Model      string
	HttpClient *http.Client
}

// ChatMessage 表示聊天消息
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest 表示对API的请求
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

// ChatResponse 表示API的响应
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewVolcesAPIClient 创建一个新的API客户端，model 为空时使用默认模型
func NewVolcesAPIClient(apiKey, model string) *VolcesAPIClient {
	if model == "" {
		model = DefaultModel
	}
	return &VolcesAPIClient{
		APIKey:  apiKey,
		BaseURL: "https://ark.cn-beijing.volces.com",
		Model:   model,
		HttpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Chat 发送一轮对话并返回模型回复的文本
func (c *VolcesAPIClient) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	url := strings.TrimRight(c.BaseURL, "/") + "/api/v3/chat/completions"

	jsonBytes, err := json.Marshal(ChatRequest{
		Model:    c.Model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBytes))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	utils.Debug("发送API请求到 %s", url)
	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API返回错误状态码: %d, 响应: %s", resp.StatusCode, string(body))
	}

	var response ChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}

	if len(response.Choices) > 0 {
		return response.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("API响应中没有生成内容")
}
