package asr

import (
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"

	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// mediaFile 已加载到内存的媒体文件
type mediaFile struct {
	Path     string
	Binary   []byte
	CRC32Hex string
}

// loadMediaFile 读取文件并计算CRC32
func loadMediaFile(path string) (*mediaFile, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("无效的音频路径: %s", path)
	}

	utils.Debug("从文件读取音频数据: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取音频文件失败: %w", err)
	}

	f := &mediaFile{
		Path:     path,
		Binary:   data,
		CRC32Hex: fmt.Sprintf("%08x", crc32.ChecksumIEEE(data)),
	}
	utils.Debug("计算的CRC32校验和: %s", f.CRC32Hex)
	return f, nil
}

// ResultCache 以文件内容CRC32为键缓存转录结果
type ResultCache struct {
	Dir     string
	Enabled bool
}

// NewResultCache 创建结果缓存，dir 为空时禁用
func NewResultCache(dir string, enabled bool) *ResultCache {
	return &ResultCache{Dir: dir, Enabled: enabled && dir != ""}
}

// Key 返回缓存键名
func (c *ResultCache) Key(prefix string, f *mediaFile) string {
	return fmt.Sprintf("%s-%s", prefix, f.CRC32Hex)
}

func (c *ResultCache) path(key string) string {
	return filepath.Join(c.Dir, key+".json")
}

// Load 从缓存加载识别结果
func (c *ResultCache) Load(key string) ([]models.TranscriptSegment, bool) {
	if c == nil || !c.Enabled {
		return nil, false
	}

	var segments []models.TranscriptSegment
	if err := utils.LoadJSONFile(c.path(key), &segments); err != nil {
		if !os.IsNotExist(err) {
			utils.Warn("读取转录缓存失败: %v", err)
		}
		return nil, false
	}
	return segments, true
}

// Save 保存识别结果到缓存
func (c *ResultCache) Save(key string, segments []models.TranscriptSegment) error {
	if c == nil || !c.Enabled {
		return nil
	}
	if err := utils.SaveJSONFile(c.path(key), segments); err != nil {
		return fmt.Errorf("保存转录缓存失败: %w", err)
	}
	return nil
}
