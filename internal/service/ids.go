package service

import (
	"time"

	"github.com/google/uuid"
)

// UUIDGenerator 使用 UUID v4 生成科目与历史记录 ID
type UUIDGenerator struct{}

// NewID 生成新 ID
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// SystemClock 系统时钟
type SystemClock struct{}

// Now 当前时间
func (SystemClock) Now() time.Time {
	return time.Now()
}
