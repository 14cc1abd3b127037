package dto

// 注意：本包用于承载“对外契约”的 DTO（与前端/HTTP API 保持稳定）。
// 不要在这里放持久化细节；文档 schema 请见 internal/schema；计算逻辑收敛在 internal/service。

type SubjectDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type SemesterDTO struct {
	ID       int          `json:"id"`
	Status   string       `json:"status"` // empty | partial | complete
	Average  float64      `json:"average"`
	Subjects []SubjectDTO `json:"subjects"`
}

type DocumentDTO struct {
	UserName             string        `json:"user_name"`
	TargetAvg            float64       `json:"target_avg"`
	TotalSemestersTarget int           `json:"total_semesters_target"`
	ActiveSemesterID     int           `json:"active_semester_id"`
	ResultsVisible       bool          `json:"results_visible"`
	Semesters            []SemesterDTO `json:"semesters"`
}

type HistoryEntryDTO struct {
	ID                 string  `json:"id"`
	Timestamp          int64   `json:"timestamp"`
	UserName           string  `json:"user_name"`
	OverallAvg         float64 `json:"overall_avg"`
	TotalScore         int     `json:"total_score"`
	TargetAvg          float64 `json:"target_avg"`
	CompletedSemesters []int   `json:"completed_semesters"`
}

// ========== 请求体 ==========

// UpdateSettingsRequest 仅更新非空字段；目标分与学期数越界不在此拒绝，由校验结果阻断分析
type UpdateSettingsRequest struct {
	UserName       *string  `json:"user_name" validate:"omitempty,max=100"`
	TargetAvg      *float64 `json:"target_avg"`
	TotalSemesters *int     `json:"total_semesters"`
}

type SelectSemesterRequest struct {
	SemesterID int `json:"semester_id" validate:"required,min=1"`
}

type UpdateSubjectRequest struct {
	Field string  `json:"field" validate:"required,oneof=name score"`
	Name  *string `json:"name" validate:"required_if=Field name"`
	Score *int    `json:"score" validate:"required_if=Field score"`
}

type CreateSubjectResponse struct {
	ID string `json:"id"`
}
