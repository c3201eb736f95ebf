package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewRequestID 生成请求ID：毫秒时间戳 + 随机后缀
//
// 同一请求的 pattern 与 target 产物共用此ID作为文件名前缀，
// 时间戳保证大致有序，随机后缀保证并发下不冲突
func NewRequestID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), suffix)
}
