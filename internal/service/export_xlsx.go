package service

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"github.com/yuqie6/GradeMirror/internal/schema"
)

const (
	gradeSheetName   = "成绩"
	historySheetName = "历史"
)

// BuildWorkbook 将成绩文档导出为 xlsx：成绩表按科目成行、按学期成列，历史表按时间倒序
func BuildWorkbook(doc *schema.Document) (*bytes.Buffer, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档不能为空")
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(gradeSheetName)
	if err != nil {
		return nil, fmt.Errorf("创建工作表失败: %w", err)
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	writeGradeSheet(f, doc, headerStyle)
	if err := writeHistorySheet(f, doc, headerStyle); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("写入 Excel 失败: %w", err)
	}
	return buf, nil
}

func writeGradeSheet(f *excelize.File, doc *schema.Document, headerStyle int) {
	sheet := gradeSheetName
	canonical, _ := doc.Canonical()
	averages := make(map[string]SubjectAverage)
	for _, a := range PerSubjectAverages(doc) {
		averages[a.SubjectID] = a
	}

	lastCol := len(doc.Semesters) + 2
	_ = f.SetColWidth(sheet, "A", "A", 18)

	// 表头
	_ = f.SetCellValue(sheet, cell(1, 1), "科目")
	for i, s := range doc.Semesters {
		_ = f.SetCellValue(sheet, cell(2+i, 1), fmt.Sprintf("第%d学期", s.ID))
	}
	_ = f.SetCellValue(sheet, cell(lastCol, 1), "科目平均")
	_ = f.SetCellStyle(sheet, cell(1, 1), cell(lastCol, 1), headerStyle)

	// 科目行：以规范学期的顺序为准，未录入的分数留空
	row := 2
	for _, sub := range canonical.Subjects {
		_ = f.SetCellValue(sheet, cell(1, row), sub.Name)
		for i, s := range doc.Semesters {
			for _, x := range s.Subjects {
				if x.ID == sub.ID && x.Score != schema.UnscoredScore {
					_ = f.SetCellValue(sheet, cell(2+i, row), x.Score)
				}
			}
		}
		if a, ok := averages[sub.ID]; ok {
			_ = f.SetCellValue(sheet, cell(lastCol, row), round2(a.Average))
		}
		row++
	}

	// 学期平均行
	_ = f.SetCellValue(sheet, cell(1, row), "学期平均")
	for i, s := range doc.Semesters {
		if SemesterStatusOf(s) == SemesterComplete {
			_ = f.SetCellValue(sheet, cell(2+i, row), round2(SemesterAverage(s)))
		} else {
			_ = f.SetCellValue(sheet, cell(2+i, row), string(SemesterStatusOf(s)))
		}
	}
	_ = f.SetCellValue(sheet, cell(lastCol, row), round2(OverallAverage(CompleteSemesters(doc))))
}

func writeHistorySheet(f *excelize.File, doc *schema.Document, headerStyle int) error {
	sheet := historySheetName
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("创建工作表失败: %w", err)
	}
	_ = f.SetColWidth(sheet, "A", "A", 20)

	headers := []string{"时间", "用户", "总平均", "总分", "目标", "已完成学期"}
	for i, h := range headers {
		_ = f.SetCellValue(sheet, cell(1+i, 1), h)
	}
	_ = f.SetCellStyle(sheet, cell(1, 1), cell(len(headers), 1), headerStyle)

	for i, h := range doc.History {
		row := i + 2
		_ = f.SetCellValue(sheet, cell(1, row), time.UnixMilli(h.Timestamp).Format("2006-01-02 15:04:05"))
		_ = f.SetCellValue(sheet, cell(2, row), h.UserName)
		_ = f.SetCellValue(sheet, cell(3, row), round2(h.OverallAvg))
		_ = f.SetCellValue(sheet, cell(4, row), h.TotalScore)
		_ = f.SetCellValue(sheet, cell(5, row), h.TargetAvg)
		_ = f.SetCellValue(sheet, cell(6, row), fmt.Sprint(h.CompletedSemesters))
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
