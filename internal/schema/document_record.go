package schema

import "time"

// DocumentRecord 文档存储行：按命名空间键保存整份 JSON 文档
// 命名空间带版本号，避免不兼容的历史格式互相覆盖
type DocumentRecord struct {
	Namespace string    `gorm:"primaryKey;size:100"`
	Payload   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (DocumentRecord) TableName() string {
	return "documents"
}
