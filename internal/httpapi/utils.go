package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/yuqie6/GradeMirror/internal/dto"
	"github.com/yuqie6/GradeMirror/internal/schema"
	"github.com/yuqie6/GradeMirror/internal/service"
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// writeServiceError 将服务层错误映射为 HTTP 状态码
func writeServiceError(w http.ResponseWriter, err error) {
	var blocked *service.AnalysisBlockedError
	switch {
	case errors.As(err, &blocked):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      err.Error(),
			"validation": blocked.Validation,
		})
	case errors.Is(err, service.ErrSubjectNotFound),
		errors.Is(err, service.ErrSemesterNotFound),
		errors.Is(err, service.ErrHistoryNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNameLocked):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNotOpened):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func readJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

// bindJSON 解析并校验请求体
func bindJSON(r *http.Request, out any) error {
	if err := readJSON(r, out); err != nil {
		return fmt.Errorf("请求体解析失败: %w", err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("参数校验失败: %w", err)
	}
	return nil
}

func toDocumentDTO(doc *schema.Document, activeID int, resultsVisible bool) dto.DocumentDTO {
	out := dto.DocumentDTO{
		UserName:             doc.UserName,
		TargetAvg:            doc.TargetAvg,
		TotalSemestersTarget: doc.TotalSemestersTarget,
		ActiveSemesterID:     activeID,
		ResultsVisible:       resultsVisible,
		Semesters:            make([]dto.SemesterDTO, 0, len(doc.Semesters)),
	}
	for _, s := range doc.Semesters {
		subjects := make([]dto.SubjectDTO, 0, len(s.Subjects))
		for _, sub := range s.Subjects {
			subjects = append(subjects, dto.SubjectDTO{ID: sub.ID, Name: sub.Name, Score: sub.Score})
		}
		out.Semesters = append(out.Semesters, dto.SemesterDTO{
			ID:       s.ID,
			Status:   string(service.SemesterStatusOf(s)),
			Average:  service.SemesterAverage(s),
			Subjects: subjects,
		})
	}
	return out
}

func toHistoryDTOs(entries []schema.HistoryEntry) []dto.HistoryEntryDTO {
	out := make([]dto.HistoryEntryDTO, 0, len(entries))
	for _, h := range entries {
		out = append(out, dto.HistoryEntryDTO{
			ID:                 h.ID,
			Timestamp:          h.Timestamp,
			UserName:           h.UserName,
			OverallAvg:         h.OverallAvg,
			TotalScore:         h.TotalScore,
			TargetAvg:          h.TargetAvg,
			CompletedSemesters: h.CompletedSemesters,
		})
	}
	return out
}
