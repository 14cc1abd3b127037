package service

import (
	"github.com/yuqie6/GradeMirror/internal/schema"
)

// SemesterStatus 学期完成状态（派生值，不落库）
type SemesterStatus string

const (
	SemesterEmpty    SemesterStatus = "empty"
	SemesterPartial  SemesterStatus = "partial"
	SemesterComplete SemesterStatus = "complete"
)

// SemesterAverage 学期平均分：所有科目分数的算术平均，未录入按 0 计入
func SemesterAverage(s schema.Semester) float64 {
	if len(s.Subjects) == 0 {
		return 0
	}
	sum := 0
	for _, sub := range s.Subjects {
		sum += sub.Score
	}
	return float64(sum) / float64(len(s.Subjects))
}

// OverallAverage 总平均分：各学期平均分的平均（每个学期权重相同，与科目数无关）
func OverallAverage(semesters []schema.Semester) float64 {
	if len(semesters) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range semesters {
		sum += SemesterAverage(s)
	}
	return sum / float64(len(semesters))
}

// SemesterStatusOf 计算学期状态
// 全部为 0 分与"尚未录入"无法区分，统一视为 empty
func SemesterStatusOf(s schema.Semester) SemesterStatus {
	scored := 0
	for _, sub := range s.Subjects {
		if sub.Score > schema.UnscoredScore {
			scored++
		}
	}
	switch {
	case scored == 0:
		return SemesterEmpty
	case scored == len(s.Subjects):
		return SemesterComplete
	default:
		return SemesterPartial
	}
}

// CompleteSemesters 返回已完成的学期，保持原有顺序
func CompleteSemesters(doc *schema.Document) []schema.Semester {
	if doc == nil {
		return nil
	}
	out := make([]schema.Semester, 0, len(doc.Semesters))
	for _, s := range doc.Semesters {
		if SemesterStatusOf(s) == SemesterComplete {
			out = append(out, s)
		}
	}
	return out
}

// Validation 分析前置校验结果
type Validation struct {
	HasPartial      bool `json:"has_partial"`
	HasComplete     bool `json:"has_complete"`
	IsValidTarget   bool `json:"is_valid_target"`
	IsValidSemCount bool `json:"is_valid_sem_count"`
	CanCalculate    bool `json:"can_calculate"`
}

// Validate 校验文档：任意学期部分录入即全局阻断分析
func Validate(doc *schema.Document) Validation {
	var v Validation
	if doc == nil {
		return v
	}
	for _, s := range doc.Semesters {
		switch SemesterStatusOf(s) {
		case SemesterPartial:
			v.HasPartial = true
		case SemesterComplete:
			v.HasComplete = true
		}
	}
	v.IsValidTarget = doc.TargetAvg > 0 && doc.TargetAvg <= schema.MaxScore
	v.IsValidSemCount = doc.TotalSemestersTarget > 0
	v.CanCalculate = !v.HasPartial && v.HasComplete && v.IsValidTarget && v.IsValidSemCount
	return v
}

// NeededAverage 剩余学期需要达到的最低平均分
// 已达到或超过学期目标数时返回 0；结果下限为 0
func NeededAverage(doc *schema.Document) float64 {
	if doc == nil {
		return 0
	}
	complete := CompleteSemesters(doc)
	remaining := doc.TotalSemestersTarget - len(complete)
	if remaining <= 0 {
		return 0
	}

	achieved := 0.0
	for _, s := range complete {
		achieved += SemesterAverage(s)
	}
	needed := (doc.TargetAvg*float64(doc.TotalSemestersTarget) - achieved) / float64(remaining)
	if needed < 0 {
		return 0
	}
	return needed
}

// TotalScore 已完成学期的科目总分
func TotalScore(doc *schema.Document) int {
	total := 0
	for _, s := range CompleteSemesters(doc) {
		for _, sub := range s.Subjects {
			total += sub.Score
		}
	}
	return total
}

// SubjectAverage 单科跨学期平均
type SubjectAverage struct {
	SubjectID string  `json:"subject_id"`
	Name      string  `json:"name"`
	Average   float64 `json:"average"`
	Count     int     `json:"count"` // 参与计算的学期数
}

// PerSubjectAverages 按规范学期的科目顺序，统计各科在已完成学期中的平均分
// 与 SemesterAverage 不同，未录入（0 分）既不计入总和也不计入次数
func PerSubjectAverages(doc *schema.Document) []SubjectAverage {
	if doc == nil {
		return nil
	}
	canonical, ok := doc.Canonical()
	if !ok {
		return []SubjectAverage{}
	}
	complete := CompleteSemesters(doc)

	out := make([]SubjectAverage, 0, len(canonical.Subjects))
	for _, sub := range canonical.Subjects {
		sum, count := 0, 0
		for _, s := range complete {
			for _, other := range s.Subjects {
				if other.ID == sub.ID && other.Score > schema.UnscoredScore {
					sum += other.Score
					count++
					break
				}
			}
		}
		avg := 0.0
		if count > 0 {
			avg = float64(sum) / float64(count)
		}
		out = append(out, SubjectAverage{SubjectID: sub.ID, Name: sub.Name, Average: avg, Count: count})
	}
	return out
}
