package schema

import (
	"encoding/json"
	"fmt"
)

// rawDocument 宽松解析用：缺失字段保持 nil 以便填充默认值
type rawDocument struct {
	UserName             *string        `json:"userName"`
	TargetAvg            *float64       `json:"targetAvg"`
	TotalSemestersTarget *int           `json:"totalSemestersTarget"`
	Semesters            []Semester     `json:"semesters"`
	History              []HistoryEntry `json:"history"`
}

// DecodeDocument 解析持久化载荷，缺失字段使用默认值
func DecodeDocument(payload []byte) (*Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("解析文档失败: %w", err)
	}

	doc := NewDocument()
	if raw.UserName != nil {
		doc.UserName = *raw.UserName
	}
	if raw.TargetAvg != nil {
		doc.TargetAvg = *raw.TargetAvg
	}
	if raw.TotalSemestersTarget != nil {
		doc.TotalSemestersTarget = *raw.TotalSemestersTarget
	}
	for _, s := range raw.Semesters {
		subjects := make([]Subject, 0, len(s.Subjects))
		for _, sub := range s.Subjects {
			sub.Score = ClampScore(sub.Score)
			subjects = append(subjects, sub)
		}
		doc.Semesters = append(doc.Semesters, Semester{ID: s.ID, Subjects: subjects})
	}
	for _, h := range raw.History {
		if h.CompletedSemesters == nil {
			h.CompletedSemesters = []int{}
		}
		doc.History = append(doc.History, h)
	}
	return doc, nil
}

// EncodeDocument 序列化文档
func EncodeDocument(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("doc 不能为空")
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("序列化文档失败: %w", err)
	}
	return b, nil
}
