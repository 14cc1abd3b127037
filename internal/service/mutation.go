package service

import (
	"github.com/yuqie6/GradeMirror/internal/schema"
)

// 变更引擎：所有操作接收当前文档并返回新文档，不修改入参

// SubjectField 可更新的科目字段
type SubjectField string

const (
	SubjectFieldName  SubjectField = "name"
	SubjectFieldScore SubjectField = "score"
)

// SubjectUpdate 科目字段更新
type SubjectUpdate struct {
	SubjectID string
	Field     SubjectField
	Name      string
	Score     int // 调用方负责预先 clamp 到 [0,100]
}

// AddSubject 在每个学期末尾追加同一个新科目（空名称、未录入）
func AddSubject(doc *schema.Document, subjectID string) *schema.Document {
	next := doc.Clone()
	for i := range next.Semesters {
		next.Semesters[i].Subjects = append(next.Semesters[i].Subjects, schema.Subject{
			ID:    subjectID,
			Score: schema.UnscoredScore,
		})
	}
	return next
}

// UpdateSubject 按字段分派：名称跨学期同步，分数只作用于当前学期
func UpdateSubject(doc *schema.Document, activeSemesterID int, upd SubjectUpdate) *schema.Document {
	switch upd.Field {
	case SubjectFieldName:
		return RenameSubject(doc, upd.SubjectID, upd.Name)
	case SubjectFieldScore:
		return SetSubjectScore(doc, activeSemesterID, upd.SubjectID, upd.Score)
	default:
		return doc.Clone()
	}
}

// RenameSubject 更新所有学期中该科目的名称
func RenameSubject(doc *schema.Document, subjectID, name string) *schema.Document {
	next := doc.Clone()
	for i := range next.Semesters {
		subs := next.Semesters[i].Subjects
		for j := range subs {
			if subs[j].ID == subjectID {
				subs[j].Name = name
			}
		}
	}
	return next
}

// SetSubjectScore 只更新指定学期中该科目的分数，不做区间校验
func SetSubjectScore(doc *schema.Document, semesterID int, subjectID string, score int) *schema.Document {
	next := doc.Clone()
	for i := range next.Semesters {
		if next.Semesters[i].ID != semesterID {
			continue
		}
		subs := next.Semesters[i].Subjects
		for j := range subs {
			if subs[j].ID == subjectID {
				subs[j].Score = score
			}
		}
	}
	return next
}

// DeleteSubject 从所有学期删除该科目
func DeleteSubject(doc *schema.Document, subjectID string) *schema.Document {
	next := doc.Clone()
	for i := range next.Semesters {
		kept := make([]schema.Subject, 0, len(next.Semesters[i].Subjects))
		for _, sub := range next.Semesters[i].Subjects {
			if sub.ID != subjectID {
				kept = append(kept, sub)
			}
		}
		next.Semesters[i].Subjects = kept
	}
	return next
}

// NewHistoryEntry 基于当前文档生成分析快照
func NewHistoryEntry(doc *schema.Document, id string, timestampMs int64) schema.HistoryEntry {
	complete := CompleteSemesters(doc)
	ids := make([]int, 0, len(complete))
	for _, s := range complete {
		ids = append(ids, s.ID)
	}
	return schema.HistoryEntry{
		ID:                 id,
		Timestamp:          timestampMs,
		UserName:           doc.UserName,
		OverallAvg:         OverallAverage(complete),
		TotalScore:         TotalScore(doc),
		TargetAvg:          doc.TargetAvg,
		CompletedSemesters: ids,
	}
}

// RecordHistory 头插快照并截断到 limit 条（最旧的先淘汰）
func RecordHistory(doc *schema.Document, entry schema.HistoryEntry, limit int) *schema.Document {
	if limit <= 0 {
		limit = schema.DefaultHistoryLimit
	}
	next := doc.Clone()
	history := make([]schema.HistoryEntry, 0, len(next.History)+1)
	history = append(history, entry)
	history = append(history, next.History...)
	if len(history) > limit {
		history = history[:limit]
	}
	next.History = history
	return next
}

// DeleteHistoryEntry 按 ID 删除一条历史记录
func DeleteHistoryEntry(doc *schema.Document, id string) (*schema.Document, bool) {
	next := doc.Clone()
	kept := make([]schema.HistoryEntry, 0, len(next.History))
	found := false
	for _, h := range next.History {
		if h.ID == id {
			found = true
			continue
		}
		kept = append(kept, h)
	}
	next.History = kept
	return next, found
}

// WithUserName 设置用户名
func WithUserName(doc *schema.Document, name string) *schema.Document {
	next := doc.Clone()
	next.UserName = name
	return next
}

// WithTargetAvg 设置目标平均分（区间由 Validate 判定，不在此拒绝）
func WithTargetAvg(doc *schema.Document, target float64) *schema.Document {
	next := doc.Clone()
	next.TargetAvg = target
	return next
}

// WithTotalSemesters 设置目标学期数，学期列表需随后经 SyncSemesters 调整
func WithTotalSemesters(doc *schema.Document, total int) *schema.Document {
	next := doc.Clone()
	next.TotalSemestersTarget = total
	return next
}
