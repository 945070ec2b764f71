package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ccp-p/emotion-clipper/pkg/models"
)

type transcribeResponse struct {
	Segments []models.TranscriptSegment `json:"segments"`
	Language string                     `json:"language"`
}

// HTTPTranscriber 调用自建转录服务的 /transcribe 接口
type HTTPTranscriber struct {
	BaseURL string
	client  *http.Client
}

// NewHTTPTranscriber 创建HTTP转录器
func NewHTTPTranscriber(baseURL string) *HTTPTranscriber {
	return &HTTPTranscriber{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Minute},
	}
}

// Transcribe 实现 Transcriber
func (h *HTTPTranscriber) Transcribe(ctx context.Context, mediaPath string, callback ProgressCallback) ([]models.TranscriptSegment, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", filepath.Base(mediaPath))
	if err != nil {
		return nil, fmt.Errorf("创建表单文件失败: %w", err)
	}
	fd, err := os.Open(mediaPath)
	if err != nil {
		return nil, fmt.Errorf("打开 %s 失败: %w", mediaPath, err)
	}
	defer fd.Close()

	if _, err = io.Copy(fw, fd); err != nil {
		return nil, fmt.Errorf("复制音频数据失败: %w", err)
	}
	if err = w.Close(); err != nil {
		return nil, fmt.Errorf("关闭表单写入器失败: %w", err)
	}

	report(callback, 10, "上传音频...")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/transcribe", &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Expect", "100-continue")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		const maxErr = 4096
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErr))
		return nil, fmt.Errorf("转录服务 %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("解析转录响应失败: %w", err)
	}

	report(callback, 100, "识别完成")
	return normalizeSegments(out.Segments), nil
}
