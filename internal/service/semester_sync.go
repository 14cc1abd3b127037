package service

import (
	"sort"

	"github.com/yuqie6/GradeMirror/internal/schema"
)

// SyncSemesters 同步策略：按目标学期数增删学期，并以规范学期对齐各学期科目
// 返回新文档与修正后的当前学期 ID；不动点上重复调用不再产生变化
func SyncSemesters(doc *schema.Document, activeSemesterID int) (*schema.Document, int) {
	next := normalizeSemesterIDs(doc.Clone())
	target := next.TotalSemestersTarget
	if target < 0 {
		target = 0
	}

	switch n := len(next.Semesters); {
	case n < target:
		var seed []schema.Subject
		if canonical, ok := next.Canonical(); ok {
			seed = canonical.Subjects
		}
		for i := n; i < target; i++ {
			subjects := make([]schema.Subject, 0, len(seed))
			for _, sub := range seed {
				subjects = append(subjects, schema.Subject{ID: sub.ID, Name: sub.Name, Score: schema.UnscoredScore})
			}
			next.Semesters = append(next.Semesters, schema.Semester{ID: i + 1, Subjects: subjects})
		}
	case n > target:
		next.Semesters = next.Semesters[:target]
	}

	next = ReconcileSubjects(next)

	if activeSemesterID > len(next.Semesters) && len(next.Semesters) > 0 {
		activeSemesterID = schema.CanonicalSemesterID
	}
	return next, activeSemesterID
}

// ReconcileSubjects 让非规范学期的科目集合、顺序与名称和规范学期一致
// 已有科目保留各自分数，缺失的补为未录入，多余的删除
func ReconcileSubjects(doc *schema.Document) *schema.Document {
	next := doc.Clone()
	ci := next.CanonicalIndex()
	if ci < 0 {
		return next
	}
	canonical := next.Semesters[ci]

	for i := range next.Semesters {
		if i == ci {
			continue
		}
		scores := make(map[string]int, len(next.Semesters[i].Subjects))
		for _, sub := range next.Semesters[i].Subjects {
			if _, seen := scores[sub.ID]; !seen {
				scores[sub.ID] = sub.Score
			}
		}
		aligned := make([]schema.Subject, 0, len(canonical.Subjects))
		for _, sub := range canonical.Subjects {
			aligned = append(aligned, schema.Subject{ID: sub.ID, Name: sub.Name, Score: scores[sub.ID]})
		}
		next.Semesters[i].Subjects = aligned
	}
	return next
}

// normalizeSemesterIDs 按原 ID 稳定排序后重新编号为 1..N
// 导入或损坏的数据可能出现缺号、重复或乱序
func normalizeSemesterIDs(doc *schema.Document) *schema.Document {
	sort.SliceStable(doc.Semesters, func(i, j int) bool {
		return doc.Semesters[i].ID < doc.Semesters[j].ID
	})
	for i := range doc.Semesters {
		doc.Semesters[i].ID = i + 1
	}
	return doc
}
