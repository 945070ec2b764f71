package highlight

import (
	"fmt"

	"github.com/ccp-p/emotion-clipper/pkg/models"
	"github.com/ccp-p/emotion-clipper/pkg/utils"
)

// TimeRange 手动指定的时间范围（秒），To 为0表示直到结尾
type TimeRange struct {
	From float64
	To   float64
}

// ParseTimeRange 解析 HH:MM:SS、MM:SS 或秒数形式的起止时间，空字符串表示不限
func ParseTimeRange(from, to string) (TimeRange, error) {
	var r TimeRange
	var err error
	if from != "" {
		if r.From, err = utils.ParseTimeString(from); err != nil {
			return TimeRange{}, err
		}
	}
	if to != "" {
		if r.To, err = utils.ParseTimeString(to); err != nil {
			return TimeRange{}, err
		}
		if r.To <= r.From {
			return TimeRange{}, fmt.Errorf("结束时间 %s 必须晚于开始时间", to)
		}
	}
	return r, nil
}

// IsZero 未限定范围
func (r TimeRange) IsZero() bool {
	return r.From == 0 && r.To == 0
}

// Filter 返回与范围有重叠的高光，不修改入参
func (r TimeRange) Filter(highlights []models.Highlight) []models.Highlight {
	kept := make([]models.Highlight, 0, len(highlights))
	for _, h := range highlights {
		if h.End <= r.From {
			continue
		}
		if r.To > 0 && h.Start >= r.To {
			continue
		}
		kept = append(kept, h)
	}
	return kept
}

func (r TimeRange) String() string {
	if r.To == 0 {
		return utils.FormatTime(r.From) + " - 结尾"
	}
	return utils.FormatTime(r.From) + " - " + utils.FormatTime(r.To)
}
