package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// KuaiShouEndpoint 快手字幕生成接口
const KuaiShouEndpoint = "https://ai.kuaishou.com/api/effects/subtitle_generate"

// KuaiShouTranscriber 快手语音识别实现
type KuaiShouTranscriber struct {
	Endpoint string

	client *http.Client
	cache  *ResultCache
}

// NewKuaiShouTranscriber 创建快手ASR实例，cache 可以为 nil
func NewKuaiShouTranscriber(cache *ResultCache) *KuaiShouTranscriber {
	return &KuaiShouTranscriber{
		Endpoint: KuaiShouEndpoint,
		client:   &http.Client{Timeout: 5 * time.Minute},
		cache:    cache,
	}
}

// kuaiShouResponse 响应结构
type kuaiShouResponse struct {
	Data struct {
		Text []struct {
			Text      string  `json:"text"`
			StartTime float64 `json:"start_time"`
			EndTime   float64 `json:"end_time"`
		} `json:"text"`
	} `json:"data"`
}

// Transcribe 实现 Transcriber
func (k *KuaiShouTranscriber) Transcribe(ctx context.Context, mediaPath string, callback ProgressCallback) ([]models.TranscriptSegment, error) {
	file, err := loadMediaFile(mediaPath)
	if err != nil {
		return nil, err
	}

	cacheKey := k.cache.Key("KuaiShouASR", file)
	if segments, ok := k.cache.Load(cacheKey); ok {
		utils.Info("从缓存加载快手ASR结果")
		report(callback, 100, "从缓存加载")
		return segments, nil
	}

	report(callback, 50, "正在识别...")

	result, err := k.submit(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("快手ASR请求失败: %w", err)
	}

	segments := normalizeSegments(k.makeSegments(result))
	if len(segments) == 0 {
		return nil, fmt.Errorf("快手ASR未返回任何识别结果")
	}

	report(callback, 100, "识别完成")

	if err := k.cache.Save(cacheKey, segments); err != nil {
		utils.Warn("保存快手ASR结果到缓存失败: %v", err)
	}

	return segments, nil
}

// submit 提交识别请求
func (k *KuaiShouTranscriber) submit(ctx context.Context, file *mediaFile) (*kuaiShouResponse, error) {
	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	if err := writer.WriteField("typeId", "1"); err != nil {
		return nil, fmt.Errorf("写入表单字段失败: %w", err)
	}

	part, err := writer.CreateFormFile("file", filepath.Base(file.Path))
	if err != nil {
		return nil, fmt.Errorf("创建表单文件失败: %w", err)
	}
	if _, err := part.Write(file.Binary); err != nil {
		return nil, fmt.Errorf("写入文件数据失败: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("关闭表单写入器失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.Endpoint, &requestBody)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("快手ASR返回 %s", resp.Status)
	}

	var result kuaiShouResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("解析响应JSON失败: %w", err)
	}
	return &result, nil
}

// makeSegments 处理识别结果
func (k *KuaiShouTranscriber) makeSegments(resp *kuaiShouResponse) []models.TranscriptSegment {
	var segments []models.TranscriptSegment
	if resp == nil {
		return segments
	}
	for _, item := range resp.Data.Text {
		segments = append(segments, models.TranscriptSegment{
			Start: item.StartTime,
			End:   item.EndTime,
			Text:  item.Text,
		})
	}
	return segments
}
