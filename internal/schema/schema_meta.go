package schema

import "time"

// SchemaMeta 记录成绩库的结构版本与最后一次迁移它的程序版本，表内只有 ID=1 一行
type SchemaMeta struct {
	ID            int       `gorm:"primaryKey"`
	SchemaVersion int       `gorm:"not null"`
	AppVersion    string    `gorm:"size:64"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (SchemaMeta) TableName() string {
	return "schema_meta"
}
