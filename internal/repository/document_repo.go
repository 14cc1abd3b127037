package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yuqie6/GradeMirror/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultNamespace 文档存储键，带格式版本号
const DefaultNamespace = "grade_tracker_v2"

// DocumentRepository 成绩文档仓储（单行 KV）
type DocumentRepository struct {
	db        *gorm.DB
	namespace string
}

// NewDocumentRepository 创建仓储
func NewDocumentRepository(db *gorm.DB, namespace string) *DocumentRepository {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &DocumentRepository{db: db, namespace: namespace}
}

// Namespace 当前使用的存储键
func (r *DocumentRepository) Namespace() string {
	return r.namespace
}

// Load 读取文档；无记录或载荷无法解析时返回 (nil, nil)
func (r *DocumentRepository) Load(ctx context.Context) (*schema.Document, error) {
	var rec schema.DocumentRecord
	err := r.db.WithContext(ctx).Where("namespace = ?", r.namespace).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询成绩文档失败: %w", err)
	}

	doc, err := schema.DecodeDocument([]byte(rec.Payload))
	if err != nil {
		// 损坏的数据视为不存在，回退默认值
		slog.Warn("成绩文档已损坏，忽略", "namespace", r.namespace, "error", err)
		return nil, nil
	}
	return doc, nil
}

// Save 整体覆盖保存文档
func (r *DocumentRepository) Save(ctx context.Context, doc *schema.Document) error {
	payload, err := schema.EncodeDocument(doc)
	if err != nil {
		return err
	}
	rec := &schema.DocumentRecord{Namespace: r.namespace, Payload: string(payload)}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("保存成绩文档失败: %w", err)
	}
	slog.Debug("成绩文档已保存", "namespace", r.namespace, "bytes", len(payload))
	return nil
}

// ListNamespaces 列出库中已有的存储键（用于诊断旧格式残留）
func (r *DocumentRepository) ListNamespaces(ctx context.Context) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).
		Model(&schema.DocumentRecord{}).
		Order("namespace ASC").
		Pluck("namespace", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("查询存储键失败: %w", err)
	}
	return keys, nil
}
