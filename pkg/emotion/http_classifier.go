package emotion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

type detectRequest struct {
	Text string `json:"text"`
}

type detectResponse struct {
	Emotions        []models.EmotionScore `json:"emotions"`
	DominantEmotion string                `json:"dominant_emotion"`
}

// HTTPClassifier 调用远程情绪服务的 /detect 接口
type HTTPClassifier struct {
	BaseURL string
	TopK    int

	client *http.Client
	errs   *utils.ErrorHandler
}

// NewHTTPClassifier 创建HTTP情绪分类器
func NewHTTPClassifier(baseURL string, topK int, errs *utils.ErrorHandler) *HTTPClassifier {
	if topK <= 0 {
		topK = 2
	}
	if errs == nil {
		errs = utils.NewErrorHandler(1, 0)
	}
	return &HTTPClassifier{
		BaseURL: strings.TrimRight(baseURL, "/"),
		TopK:    topK,
		client:  &http.Client{Timeout: 60 * time.Second},
		errs:    errs,
	}
}

// Classify 实现 Classifier
func (c *HTTPClassifier) Classify(ctx context.Context, text string) ([]models.EmotionScore, error) {
	var out detectResponse
	err := c.errs.RetryContext(ctx, "emotion_http", func() error {
		resp, err := c.detect(ctx, text)
		if err != nil {
			return err
		}
		out = *resp
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(out.Emotions) == 0 {
		return nil, fmt.Errorf("情绪服务未返回结果 (dominant=%q)", out.DominantEmotion)
	}
	return rank(out.Emotions, c.TopK), nil
}

func (c *HTTPClassifier) detect(ctx context.Context, text string) (*detectResponse, error) {
	b, err := json.Marshal(detectRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/detect", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		const maxErr = 4096
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErr))
		return nil, fmt.Errorf("情绪服务 %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("解析情绪服务响应失败: %w", err)
	}
	return &out, nil
}
