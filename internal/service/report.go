package service

import (
	"github.com/yuqie6/GradeMirror/internal/schema"
)

// SemesterSummary 单学期概览
type SemesterSummary struct {
	ID           int            `json:"id"`
	Average      float64        `json:"average"`
	Status       SemesterStatus `json:"status"`
	SubjectCount int            `json:"subject_count"`
	ScoredCount  int            `json:"scored_count"`
}

// Report 分析报告（每次读取时重新计算）
type Report struct {
	UserName             string            `json:"user_name"`
	TargetAvg            float64           `json:"target_avg"`
	TotalSemestersTarget int               `json:"total_semesters_target"`
	CompletedCount       int               `json:"completed_count"`
	RemainingCount       int               `json:"remaining_count"`
	OverallAvg           float64           `json:"overall_avg"`
	OverallStatus        StatusClass       `json:"overall_status"`
	NeededAvg            float64           `json:"needed_avg"`
	NeededStatus         StatusClass       `json:"needed_status"`
	Reachable            bool              `json:"reachable"` // 所需平均分不超过满分
	TotalScore           int               `json:"total_score"`
	Semesters            []SemesterSummary `json:"semesters"`
	Subjects             []SubjectAverage  `json:"subjects"`
	Validation           Validation        `json:"validation"`
}

// BuildReport 汇总文档的全部派生值
func BuildReport(doc *schema.Document, policy StatusPolicy) *Report {
	complete := CompleteSemesters(doc)
	overall := OverallAverage(complete)
	needed := NeededAverage(doc)

	remaining := doc.TotalSemestersTarget - len(complete)
	if remaining < 0 {
		remaining = 0
	}

	semesters := make([]SemesterSummary, 0, len(doc.Semesters))
	for _, s := range doc.Semesters {
		scored := 0
		for _, sub := range s.Subjects {
			if sub.Score > schema.UnscoredScore {
				scored++
			}
		}
		semesters = append(semesters, SemesterSummary{
			ID:           s.ID,
			Average:      SemesterAverage(s),
			Status:       SemesterStatusOf(s),
			SubjectCount: len(s.Subjects),
			ScoredCount:  scored,
		})
	}

	return &Report{
		UserName:             doc.UserName,
		TargetAvg:            doc.TargetAvg,
		TotalSemestersTarget: doc.TotalSemestersTarget,
		CompletedCount:       len(complete),
		RemainingCount:       remaining,
		OverallAvg:           overall,
		OverallStatus:        policy.Classify(overall, doc.TargetAvg),
		NeededAvg:            needed,
		NeededStatus:         policy.ClassifyNeeded(needed, doc.TargetAvg),
		Reachable:            needed <= schema.MaxScore,
		TotalScore:           TotalScore(doc),
		Semesters:            semesters,
		Subjects:             PerSubjectAverages(doc),
		Validation:           Validate(doc),
	}
}
