package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yuqie6/GradeMirror/internal/bootstrap"
	"github.com/yuqie6/GradeMirror/internal/dto"
	"github.com/yuqie6/GradeMirror/internal/eventbus"
	"github.com/yuqie6/GradeMirror/internal/pkg/buildinfo"
)

type apiServer struct {
	core      *bootstrap.Core
	hub       *eventbus.Hub
	startTime time.Time
}

// NewHandler 构建本地 API 的路由
func NewHandler(core *bootstrap.Core) http.Handler {
	hub := core.Hub
	if hub == nil {
		hub = eventbus.NewHub()
	}
	a := &apiServer{core: core, hub: hub, startTime: time.Now()}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.wrapGET(a.handleHealth))
	mux.HandleFunc("/api/events", a.wrapGET(a.handleSSE))
	a.registerJSONRoutes(mux)
	return mux
}

func (a *apiServer) registerJSONRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", a.wrapGET(a.getStatus))
	mux.HandleFunc("/api/document", a.wrapGET(a.getDocument))
	mux.HandleFunc("/api/report", a.wrapGET(a.getReport))

	mux.HandleFunc("PUT /api/settings", a.updateSettings)
	mux.HandleFunc("PUT /api/active-semester", a.selectSemester)

	mux.HandleFunc("POST /api/subjects", a.createSubject)
	mux.HandleFunc("PATCH /api/subjects/{id}", a.updateSubject)
	mux.HandleFunc("DELETE /api/subjects/{id}", a.deleteSubject)

	mux.HandleFunc("/api/analyze", a.wrapPOST(a.analyze))
	mux.HandleFunc("GET /api/history", a.listHistory)
	mux.HandleFunc("DELETE /api/history/{id}", a.deleteHistory)

	mux.HandleFunc("/api/reset", a.wrapPOST(a.reset))
	mux.HandleFunc("/api/export", a.wrapGET(a.export))
	mux.HandleFunc("/api/import", a.wrapPOST(a.importDocument))
}

func (a *apiServer) wrapGET(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		fn(w, r)
	}
}

func (a *apiServer) wrapPOST(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		fn(w, r)
	}
}

// ========== handlers ==========

func (a *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	name := "grade-mirror"
	if a.core.Cfg != nil && a.core.Cfg.App.Name != "" {
		name = a.core.Cfg.App.Name
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"name":       name,
		"version":    buildinfo.Version,
		"started_at": a.startTime.Format(time.RFC3339),
	})
}

func (a *apiServer) getStatus(w http.ResponseWriter, r *http.Request) {
	out := dto.StatusDTO{
		App: dto.AppStatusDTO{
			Version:   buildinfo.Version,
			Commit:    buildinfo.Commit,
			StartedAt: a.startTime.Format(time.RFC3339),
			UptimeSec: int64(time.Since(a.startTime).Seconds()),
		},
	}
	stats := a.hub.Stats()
	out.Events = dto.EventsStatusDTO{Subscribers: stats.Subscribers, Published: stats.Published, Dropped: stats.Dropped}
	if a.core.Cfg != nil {
		out.App.Name = a.core.Cfg.App.Name
		out.Storage.DBPath = a.core.Cfg.Storage.DBPath
	}
	if a.core.DB != nil {
		out.App.SafeMode = a.core.DB.SafeMode
		out.Storage.SchemaVersion = a.core.DB.SchemaVersion
		out.Storage.SafeModeReason = a.core.DB.MigrationError
	}
	if repo := a.core.Repos.Document; repo != nil {
		out.Storage.Namespace = repo.Namespace()
		if !out.App.SafeMode {
			if ns, err := repo.ListNamespaces(r.Context()); err == nil {
				out.Storage.Namespaces = ns
			}
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *apiServer) getDocument(w http.ResponseWriter, r *http.Request) {
	tracker := a.core.Services.Tracker
	doc := tracker.Document()
	if doc == nil {
		writeError(w, http.StatusServiceUnavailable, "文档尚未加载")
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTO(doc, tracker.ActiveSemesterID(), tracker.ResultsVisible()))
}

func (a *apiServer) getReport(w http.ResponseWriter, r *http.Request) {
	rep, err := a.core.Services.Tracker.Report()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (a *apiServer) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateSettingsRequest
	if err := bindJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	tracker := a.core.Services.Tracker
	if req.UserName != nil {
		if err := tracker.SetUserName(ctx, *req.UserName); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	if req.TargetAvg != nil {
		if err := tracker.SetTargetAvg(ctx, *req.TargetAvg); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	if req.TotalSemesters != nil {
		if err := tracker.SetTotalSemesters(ctx, *req.TotalSemesters); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	a.getDocument(w, r)
}

func (a *apiServer) selectSemester(w http.ResponseWriter, r *http.Request) {
	var req dto.SelectSemesterRequest
	if err := bindJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.core.Services.Tracker.SelectSemester(req.SemesterID); err != nil {
		writeServiceError(w, err)
		return
	}
	a.getDocument(w, r)
}

func (a *apiServer) createSubject(w http.ResponseWriter, r *http.Request) {
	id, err := a.core.Services.Tracker.AddSubject(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.CreateSubjectResponse{ID: id})
}

func (a *apiServer) updateSubject(w http.ResponseWriter, r *http.Request) {
	subjectID := strings.TrimSpace(r.PathValue("id"))
	if subjectID == "" {
		writeError(w, http.StatusBadRequest, "缺少科目 id")
		return
	}
	var req dto.UpdateSubjectRequest
	if err := bindJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tracker := a.core.Services.Tracker
	var err error
	switch req.Field {
	case "name":
		err = tracker.RenameSubject(r.Context(), subjectID, *req.Name)
	case "score":
		err = tracker.SetScore(r.Context(), subjectID, *req.Score)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	a.getDocument(w, r)
}

func (a *apiServer) deleteSubject(w http.ResponseWriter, r *http.Request) {
	subjectID := strings.TrimSpace(r.PathValue("id"))
	if err := a.core.Services.Tracker.DeleteSubject(r.Context(), subjectID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *apiServer) analyze(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	rep, err := a.core.Services.Tracker.Analyze(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (a *apiServer) listHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toHistoryDTOs(a.core.Services.Tracker.History()))
}

func (a *apiServer) deleteHistory(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if err := a.core.Services.Tracker.DeleteHistoryEntry(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *apiServer) reset(w http.ResponseWriter, r *http.Request) {
	if err := a.core.Services.Tracker.Reset(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	a.getDocument(w, r)
}

func (a *apiServer) export(w http.ResponseWriter, r *http.Request) {
	tracker := a.core.Services.Tracker
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		payload, err := tracker.Export()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="grade_tracker.json"`)
		_, _ = w.Write(payload)
	case "xlsx":
		payload, err := tracker.ExportWorkbook()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="grade_tracker.xlsx"`)
		_, _ = w.Write(payload)
	default:
		writeError(w, http.StatusBadRequest, "不支持的导出格式: "+format)
	}
}

func (a *apiServer) importDocument(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("读取请求体失败: %v", err))
		return
	}
	if !json.Valid(payload) {
		writeError(w, http.StatusBadRequest, "导入内容不是合法 JSON")
		return
	}
	if err := a.core.Services.Tracker.Import(r.Context(), payload); err != nil {
		writeServiceError(w, err)
		return
	}
	a.getDocument(w, r)
}

func (a *apiServer) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "stream not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	sub := a.hub.Subscribe(ctx, 32, parseEventTypes(r.URL.Query().Get("types"))...)

	_, _ = io.WriteString(w, "event: ready\n")
	_, _ = io.WriteString(w, "data: {}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, "event: ping\n")
			_, _ = io.WriteString(w, "data: {}\n\n")
			flusher.Flush()
		case evt, ok := <-sub:
			if !ok {
				return
			}
			b, _ := json.Marshal(evt)
			_, _ = io.WriteString(w, "event: "+sanitizeSSEName(evt.Type)+"\n")
			_, _ = io.WriteString(w, "data: ")
			_, _ = w.Write(b)
			_, _ = io.WriteString(w, "\n\n")
			flusher.Flush()
		}
	}
}

// parseEventTypes 解析 ?types=a,b；为空表示订阅全部
func parseEventTypes(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func sanitizeSSEName(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return "message"
	}
	n = strings.ReplaceAll(n, "\n", "")
	n = strings.ReplaceAll(n, "\r", "")
	return n
}
