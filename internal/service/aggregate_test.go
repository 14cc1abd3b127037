package service

import (
	"math"
	"testing"

	"github.com/yuqie6/GradeMirror/internal/schema"
)

func sem(id int, scores ...int) schema.Semester {
	subs := make([]schema.Subject, 0, len(scores))
	for i, sc := range scores {
		subs = append(subs, schema.Subject{ID: string(rune('a' + i)), Name: string(rune('A' + i)), Score: sc})
	}
	return schema.Semester{ID: id, Subjects: subs}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSemesterAverage(t *testing.T) {
	cases := []struct {
		name string
		s    schema.Semester
		want float64
	}{
		{"no subjects", sem(1), 0},
		{"all scored", sem(1, 80, 90), 85},
		{"unscored counts as zero", sem(1, 90, 0), 45},
	}
	for _, tc := range cases {
		if got := SemesterAverage(tc.s); !almostEqual(got, tc.want) {
			t.Errorf("%s: SemesterAverage=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestOverallAverageWeightsSemestersEqually(t *testing.T) {
	if got := OverallAverage(nil); got != 0 {
		t.Fatalf("OverallAverage(nil)=%v, want 0", got)
	}
	// 一个学期 1 科 100 分，另一个学期 4 科 60 分：学期平均的平均为 80，而非按科目加权的 68
	got := OverallAverage([]schema.Semester{sem(1, 100), sem(2, 60, 60, 60, 60)})
	if !almostEqual(got, 80) {
		t.Fatalf("OverallAverage=%v, want 80", got)
	}
}

func TestSemesterStatusOf(t *testing.T) {
	cases := []struct {
		name string
		s    schema.Semester
		want SemesterStatus
	}{
		{"no subjects", sem(1), SemesterEmpty},
		{"all zero", sem(1, 0, 0), SemesterEmpty},
		{"some scored", sem(1, 70, 0), SemesterPartial},
		{"all scored", sem(1, 70, 1), SemesterComplete},
	}
	for _, tc := range cases {
		if got := SemesterStatusOf(tc.s); got != tc.want {
			t.Errorf("%s: status=%q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestCompleteSemestersPreservesOrder(t *testing.T) {
	doc := &schema.Document{Semesters: []schema.Semester{sem(1, 90), sem(2, 0), sem(3, 70), sem(4, 50, 0)}}
	got := CompleteSemesters(doc)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Fatalf("complete=%+v, want ids [1 3]", got)
	}
}

func TestValidate(t *testing.T) {
	doc := &schema.Document{TargetAvg: 85, TotalSemestersTarget: 2, Semesters: []schema.Semester{sem(1, 80), sem(2, 0)}}
	v := Validate(doc)
	if !v.CanCalculate || v.HasPartial || !v.HasComplete {
		t.Fatalf("validation=%+v, want calculable", v)
	}

	doc.Semesters[1] = sem(2, 70, 0)
	if v := Validate(doc); v.CanCalculate || !v.HasPartial {
		t.Fatalf("partial semester should block: %+v", v)
	}

	doc.Semesters[1] = sem(2, 0)
	doc.TargetAvg = 0
	if v := Validate(doc); v.CanCalculate || v.IsValidTarget {
		t.Fatalf("target 0 should be invalid: %+v", v)
	}
	doc.TargetAvg = 100.5
	if v := Validate(doc); v.IsValidTarget {
		t.Fatalf("target >100 should be invalid: %+v", v)
	}
	doc.TargetAvg = 100
	doc.TotalSemestersTarget = 0
	if v := Validate(doc); v.CanCalculate || v.IsValidSemCount {
		t.Fatalf("semester count 0 should be invalid: %+v", v)
	}

	empty := &schema.Document{TargetAvg: 85, TotalSemestersTarget: 6, Semesters: []schema.Semester{sem(1, 0)}}
	if v := Validate(empty); v.CanCalculate || v.HasComplete {
		t.Fatalf("no complete semester should block: %+v", v)
	}
}

func TestNeededAverage(t *testing.T) {
	doc := &schema.Document{TargetAvg: 85, TotalSemestersTarget: 2, Semesters: []schema.Semester{sem(1, 80), sem(2)}}
	if got := NeededAverage(doc); !almostEqual(got, 90) {
		t.Fatalf("needed=%v, want 90", got)
	}

	// 已远超目标：结果下限为 0
	doc = &schema.Document{TargetAvg: 10, TotalSemestersTarget: 3, Semesters: []schema.Semester{sem(1, 100), sem(2, 100), sem(3)}}
	if got := NeededAverage(doc); got != 0 {
		t.Fatalf("needed=%v, want 0 (floored)", got)
	}

	// 已完成学期数达到目标
	doc = &schema.Document{TargetAvg: 85, TotalSemestersTarget: 1, Semesters: []schema.Semester{sem(1, 50)}}
	if got := NeededAverage(doc); got != 0 {
		t.Fatalf("needed=%v, want 0 when no semesters remain", got)
	}

	// 没有完成的学期时，剩余数等于目标数
	doc = &schema.Document{TargetAvg: 85, TotalSemestersTarget: 4, Semesters: []schema.Semester{sem(1, 0)}}
	if got := NeededAverage(doc); !almostEqual(got, 85) {
		t.Fatalf("needed=%v, want 85", got)
	}
}

func TestTotalScoreOnlyCountsCompleteSemesters(t *testing.T) {
	doc := &schema.Document{Semesters: []schema.Semester{sem(1, 80, 90), sem(2, 70, 0), sem(3, 60, 60)}}
	if got := TotalScore(doc); got != 290 {
		t.Fatalf("total=%d, want 290", got)
	}
}

func TestPerSubjectAverages(t *testing.T) {
	doc := &schema.Document{Semesters: []schema.Semester{
		sem(1, 80, 90),
		sem(2, 60, 70),
		sem(3, 100, 0), // partial，不参与
	}}
	got := PerSubjectAverages(doc)
	if len(got) != 2 {
		t.Fatalf("len=%d, want 2", len(got))
	}
	if got[0].SubjectID != "a" || !almostEqual(got[0].Average, 70) || got[0].Count != 2 {
		t.Fatalf("subject a=%+v, want avg 70 over 2", got[0])
	}
	if !almostEqual(got[1].Average, 80) {
		t.Fatalf("subject b=%+v, want avg 80", got[1])
	}

	none := PerSubjectAverages(&schema.Document{Semesters: []schema.Semester{sem(1, 0)}})
	if len(none) != 1 || none[0].Average != 0 || none[0].Count != 0 {
		t.Fatalf("unscored subject=%+v, want zero average", none)
	}
}

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		value, target float64
		want          StatusClass
	}{
		{85, 85, StatusSafe},
		{90, 85, StatusSafe},
		{80, 85, StatusWarning},
		{84.9, 85, StatusWarning},
		{79.9, 85, StatusDanger},
	}
	for _, tc := range cases {
		if got := ClassifyStatus(tc.value, tc.target); got != tc.want {
			t.Errorf("ClassifyStatus(%v, %v)=%q, want %q", tc.value, tc.target, got, tc.want)
		}
	}

	needed := []struct {
		needed, target float64
		want           StatusClass
	}{
		{0, 85, StatusSafe},
		{85, 85, StatusSafe},
		{90, 85, StatusWarning},
		{90.1, 85, StatusDanger},
	}
	for _, tc := range needed {
		if got := DefaultStatusPolicy.ClassifyNeeded(tc.needed, tc.target); got != tc.want {
			t.Errorf("ClassifyNeeded(%v, %v)=%q, want %q", tc.needed, tc.target, got, tc.want)
		}
	}

	strict := StatusPolicy{WarningMargin: 1}
	if got := strict.Classify(83, 85); got != StatusDanger {
		t.Fatalf("custom margin: got %q, want DANGER", got)
	}
}

func TestBuildReport(t *testing.T) {
	doc := &schema.Document{UserName: "Ana", TargetAvg: 85, TotalSemestersTarget: 2, Semesters: []schema.Semester{sem(1, 80), sem(2, 0)}}
	r := BuildReport(doc, DefaultStatusPolicy)
	if r.CompletedCount != 1 || r.RemainingCount != 1 {
		t.Fatalf("counts=%d/%d, want 1/1", r.CompletedCount, r.RemainingCount)
	}
	if !almostEqual(r.OverallAvg, 80) || r.OverallStatus != StatusWarning {
		t.Fatalf("overall=%v status=%q", r.OverallAvg, r.OverallStatus)
	}
	if !almostEqual(r.NeededAvg, 90) || !r.Reachable || r.NeededStatus != StatusWarning {
		t.Fatalf("needed=%v reachable=%v status=%q", r.NeededAvg, r.Reachable, r.NeededStatus)
	}
	if len(r.Semesters) != 2 || r.Semesters[1].Status != SemesterEmpty {
		t.Fatalf("semesters=%+v", r.Semesters)
	}

	doc.Semesters[0] = sem(1, 20)
	if r := BuildReport(doc, DefaultStatusPolicy); r.Reachable || r.NeededStatus != StatusDanger {
		t.Fatalf("needed=%v status=%q should be unreachable", r.NeededAvg, r.NeededStatus)
	}

	doc.Semesters[0] = sem(1, 90)
	if r := BuildReport(doc, DefaultStatusPolicy); !almostEqual(r.NeededAvg, 80) || r.NeededStatus != StatusSafe {
		t.Fatalf("needed=%v status=%q, want 80 SAFE", r.NeededAvg, r.NeededStatus)
	}
}
