// Package export 将检测结果写入输出目录
package export

import (
	"errors"

	"github.com/ccp-p/emotion-clipper/pkg/models"
)

// Exporter 单一格式的导出器
type Exporter interface {
	Export(result *models.DetectionResult) (string, error)
}

// ForConfig 按配置返回需要执行的导出器，转录文本总是导出
func ForConfig(config *models.Config) []Exporter {
	exporters := []Exporter{NewTranscriptExporter(config.OutputFolder)}
	if config.ExportJSON {
		exporters = append(exporters, NewHighlightJSONExporter(config.OutputFolder))
	}
	if config.ExportSRT {
		exporters = append(exporters, NewHighlightSRTExporter(config.OutputFolder))
	}
	return exporters
}

// ExportAll 依次执行导出，单个失败不影响其余导出
func ExportAll(exporters []Exporter, result *models.DetectionResult) ([]string, error) {
	var (
		files []string
		errs  []error
	)
	for _, e := range exporters {
		path, err := e.Export(result)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		files = append(files, path)
	}
	return files, errors.Join(errs...)
}
