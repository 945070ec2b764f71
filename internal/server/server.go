// Package server 通过HTTP接收上传的媒体文件并返回高光检测结果
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/ccp-p/emotion-clipper/internal/adapters"
	"github.com/ccp-p/emotion-clipper/pkg/export"
	"github.com/ccp-p/emotion-clipper/pkg/scanner"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// DefaultMaxUploadBytes 单次上传的大小上限
const DefaultMaxUploadBytes = 512 << 20

// DetectResponse 上传接口的响应
type DetectResponse struct {
	Report export.HighlightReport `json:"report"`
	Files  []string               `json:"files,omitempty"`
}

// Server 检测服务
type Server struct {
	Detect         adapters.DetectFunc
	Exporters      []export.Exporter
	UploadDir      string
	MaxUploadBytes int64

	report *export.HighlightJSONExporter
	router *mux.Router
}

// New 创建检测服务
func New(detect adapters.DetectFunc, exporters []export.Exporter, uploadDir string) *Server {
	s := &Server{
		Detect:         detect,
		Exporters:      exporters,
		UploadDir:      uploadDir,
		MaxUploadBytes: DefaultMaxUploadBytes,
		report:         export.NewHighlightJSONExporter(""),
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/detect", s.uploadHandler).Methods(http.MethodPost)
	r.HandleFunc("/health", healthCheckHandler).Methods(http.MethodGet)
	s.router = r
	return s
}

// Handler 返回路由
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe 启动服务，ctx 取消后优雅关闭
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if err := utils.EnsureDirExists(s.UploadDir); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Info("Web服务启动在 %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("关闭Web服务失败: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	utils.Info("Web服务已停止")
	return nil
}

// StartCleanupTask 定期删除过期的上传文件，直到 ctx 取消
func (s *Server) StartCleanupTask(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			utils.Info("开始清理过期文件...")
			if _, err := s.CleanupOldFiles(maxAge); err != nil {
				utils.Error("清理文件失败: %v", err)
			}
		}
	}
}

// CleanupOldFiles 删除修改时间早于 maxAge 的上传文件，返回删除数量
func (s *Server) CleanupOldFiles(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.UploadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.UploadDir, entry.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// 上传处理
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		sendErrorResponse(w, "无法解析表单", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		sendErrorResponse(w, "获取上传文件失败", http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !scanner.IsMediaFile(name) {
		sendErrorResponse(w, fmt.Sprintf("不支持的文件类型: %s", name), http.StatusUnsupportedMediaType)
		return
	}

	utils.Info("接收到文件上传: %s, 大小: %s", name, utils.FormatFileSize(header.Size))
	path, err := s.save(file, name)
	if err != nil {
		sendErrorResponse(w, fmt.Sprintf("保存文件失败: %v", err), http.StatusInternalServerError)
		return
	}

	result, err := s.Detect(r.Context(), path)
	if err != nil {
		sendErrorResponse(w, fmt.Sprintf("处理文件失败: %v", err), http.StatusInternalServerError)
		return
	}

	files, err := export.ExportAll(s.Exporters, result)
	if err != nil {
		utils.Warn("部分导出失败: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(DetectResponse{Report: s.report.GenerateReport(result), Files: files})
}

// save 以唯一前缀保存上传文件，避免同名覆盖
func (s *Server) save(src io.Reader, name string) (string, error) {
	if err := utils.EnsureDirExists(s.UploadDir); err != nil {
		return "", err
	}
	path := filepath.Join(s.UploadDir, uuid.NewString()[:8]+"_"+name)

	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", err
	}
	return path, dst.Close()
}

// 健康检查
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"status": true})
}

// 发送错误响应
func sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	utils.Warn("请求失败: %s", message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
