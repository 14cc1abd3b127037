package service

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
	"github.com/yuqie6/GradeMirror/internal/schema"
)

func TestBuildWorkbook(t *testing.T) {
	doc := schema.NewDocument()
	doc.TotalSemestersTarget = 2
	doc.Semesters = []schema.Semester{sem(1, 80, 90), sem(2, 70, 0)}
	doc.History = []schema.HistoryEntry{{
		ID:                 "h1",
		Timestamp:          1700000000000,
		UserName:           "Lin",
		OverallAvg:         85,
		TotalScore:         170,
		TargetAvg:          85,
		CompletedSemesters: []int{1},
	}}

	buf, err := BuildWorkbook(doc)
	if err != nil {
		t.Fatalf("BuildWorkbook error: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader error: %v", err)
	}
	defer f.Close()

	checks := []struct {
		sheet, cell, want string
	}{
		{gradeSheetName, "A1", "科目"},
		{gradeSheetName, "C1", "第2学期"},
		{gradeSheetName, "A2", "A"},
		{gradeSheetName, "B2", "80"},
		{gradeSheetName, "C2", "70"},
		{gradeSheetName, "D2", "80"},
		{gradeSheetName, "C3", ""},
		{gradeSheetName, "A4", "学期平均"},
		{gradeSheetName, "B4", "85"},
		{gradeSheetName, "C4", "partial"},
		{gradeSheetName, "D4", "85"},
		{historySheetName, "B2", "Lin"},
		{historySheetName, "D2", "170"},
	}
	for _, c := range checks {
		got, err := f.GetCellValue(c.sheet, c.cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s!%s) error: %v", c.sheet, c.cell, err)
		}
		if got != c.want {
			t.Errorf("%s!%s = %q, want %q", c.sheet, c.cell, got, c.want)
		}
	}

	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 {
		t.Fatalf("default sheet should be removed")
	}
}

func TestBuildWorkbookRejectsNil(t *testing.T) {
	if _, err := BuildWorkbook(nil); err == nil {
		t.Fatalf("expected error for nil document")
	}
}
