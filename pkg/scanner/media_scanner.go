// Package scanner 扫描媒体目录
package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// MediaFile 表示一个媒体文件
type MediaFile struct {
	Path    string    // 文件路径
	Name    string    // 文件名
	Ext     string    // 文件扩展名（小写）
	Size    int64     // 文件大小（字节）
	ModTime time.Time // 修改时间
	IsVideo bool      // 是否为视频文件
	IsAudio bool      // 是否为音频文件
}

// MediaScanner 用于扫描媒体文件
type MediaScanner struct{}

// NewMediaScanner 创建新的媒体扫描器
func NewMediaScanner() *MediaScanner {
	return &MediaScanner{}
}

// IsMediaFile 判断路径是否为支持的非隐藏媒体文件
func IsMediaFile(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return utils.IsAudioFile(path) || utils.IsVideoFile(path)
}

// ScanDirectory 扫描目录中的媒体文件（非递归），按文件名排序
func (s *MediaScanner) ScanDirectory(dir string) ([]MediaFile, error) {
	utils.Info("开始扫描目录: %s", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var mediaFiles []MediaFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if !IsMediaFile(path) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			utils.Warn("获取文件信息失败: %v", err)
			continue
		}

		mediaFiles = append(mediaFiles, MediaFile{
			Path:    path,
			Name:    entry.Name(),
			Ext:     strings.ToLower(filepath.Ext(path)),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsVideo: utils.IsVideoFile(path),
			IsAudio: utils.IsAudioFile(path),
		})
	}

	sort.Slice(mediaFiles, func(i, j int) bool {
		return mediaFiles[i].Name < mediaFiles[j].Name
	})

	utils.Info("扫描完成，共找到 %d 个媒体文件", len(mediaFiles))
	return mediaFiles, nil
}

// FilterNewFiles 根据已处理记录过滤出新文件
func (s *MediaScanner) FilterNewFiles(files []MediaFile, processedPaths map[string]bool) []MediaFile {
	var newFiles []MediaFile
	for _, file := range files {
		if !processedPaths[file.Path] {
			newFiles = append(newFiles, file)
		}
	}

	utils.Debug("过滤后剩余 %d 个新文件需要处理", len(newFiles))
	return newFiles
}

// Paths 返回文件路径列表
func Paths(files []MediaFile) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}
