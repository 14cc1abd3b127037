package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/yuqie6/GradeMirror/internal/eventbus"
	"github.com/yuqie6/GradeMirror/internal/schema"
)

var (
	ErrAnalysisBlocked  = errors.New("当前数据不满足分析条件")
	ErrSubjectNotFound  = errors.New("科目不存在")
	ErrSemesterNotFound = errors.New("学期不存在")
	ErrNameLocked       = errors.New("只能在第 1 学期修改科目名称")
	ErrHistoryNotFound  = errors.New("历史记录不存在")
	ErrNotOpened        = errors.New("文档尚未加载")
)

// AnalysisBlockedError 携带阻断分析的校验结果
type AnalysisBlockedError struct {
	Validation Validation
}

func (e *AnalysisBlockedError) Error() string {
	reasons := make([]string, 0, 4)
	if e.Validation.HasPartial {
		reasons = append(reasons, "存在部分录入的学期")
	}
	if !e.Validation.HasComplete {
		reasons = append(reasons, "没有已完成的学期")
	}
	if !e.Validation.IsValidTarget {
		reasons = append(reasons, "目标平均分需在 (0,100] 内")
	}
	if !e.Validation.IsValidSemCount {
		reasons = append(reasons, "学期数需大于 0")
	}
	return ErrAnalysisBlocked.Error() + ": " + strings.Join(reasons, "；")
}

func (e *AnalysisBlockedError) Unwrap() error {
	return ErrAnalysisBlocked
}

// TrackerServiceConfig 配置
type TrackerServiceConfig struct {
	HistoryLimit  int           // 历史记录上限
	AnalysisDelay time.Duration // 分析前的展示性等待，0 表示不等待
	WarningMargin float64       // WARNING 分档差值
}

// DefaultTrackerServiceConfig 默认配置
func DefaultTrackerServiceConfig() *TrackerServiceConfig {
	return &TrackerServiceConfig{
		HistoryLimit:  schema.DefaultHistoryLimit,
		WarningMargin: DefaultWarningMargin,
	}
}

// TrackerService 成绩文档的状态容器
// 持有当前文档、当前学期与“结果可见”标记；所有写操作串行执行：
// 应用变更 → 同步学期 → 保存 → 重置结果可见 → 发布事件
type TrackerService struct {
	store  DocumentStore
	ids    IDGenerator
	clock  Clock
	events EventPublisher
	cfg    TrackerServiceConfig
	policy StatusPolicy

	mu             sync.Mutex
	doc            *schema.Document
	activeID       int
	resultsVisible bool
}

// NewTrackerService 创建服务；ids/clock/events 为空时使用默认实现
func NewTrackerService(store DocumentStore, ids IDGenerator, clock Clock, events EventPublisher, cfg *TrackerServiceConfig) *TrackerService {
	if cfg == nil {
		cfg = DefaultTrackerServiceConfig()
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = schema.DefaultHistoryLimit
	}
	if cfg.WarningMargin <= 0 {
		cfg.WarningMargin = DefaultWarningMargin
	}
	if ids == nil {
		ids = UUIDGenerator{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &TrackerService{
		store:    store,
		ids:      ids,
		clock:    clock,
		events:   events,
		cfg:      *cfg,
		policy:   StatusPolicy{WarningMargin: cfg.WarningMargin},
		activeID: schema.CanonicalSemesterID,
	}
}

// Open 加载文档；读取失败或数据损坏时回退到默认文档，不视为致命错误
func (s *TrackerService) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc *schema.Document
	if s.store != nil {
		loaded, err := s.store.Load(ctx)
		if err != nil {
			slog.Warn("加载成绩文档失败，使用默认文档", "error", err)
		} else {
			doc = loaded
		}
	}
	if doc == nil {
		doc = schema.NewDocument()
		slog.Info("未找到已保存的成绩文档，使用默认值")
	}

	s.doc, s.activeID = SyncSemesters(doc, schema.CanonicalSemesterID)
	s.resultsVisible = false
	slog.Debug("成绩文档已加载", "semesters", len(s.doc.Semesters), "history", len(s.doc.History))
	return nil
}

// Document 返回当前文档副本
func (s *TrackerService) Document() *schema.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// ActiveSemesterID 当前学期
func (s *TrackerService) ActiveSemesterID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// ResultsVisible 上次分析结果是否仍然有效（任何变更都会重置）
func (s *TrackerService) ResultsVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resultsVisible
}

// Report 基于当前文档重新计算报告
func (s *TrackerService) Report() (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, ErrNotOpened
	}
	return BuildReport(s.doc, s.policy), nil
}

// Validation 当前校验状态
func (s *TrackerService) Validation() Validation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Validate(s.doc)
}

// History 历史记录（最新在前）
func (s *TrackerService) History() []schema.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil
	}
	return s.doc.Clone().History
}

// SelectSemester 切换当前学期
func (s *TrackerService) SelectSemester(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNotOpened
	}
	if _, ok := s.doc.SemesterByID(id); !ok {
		return fmt.Errorf("%w: %d", ErrSemesterNotFound, id)
	}
	s.activeID = id
	return nil
}

// AddSubject 在所有学期追加一个新科目，返回新科目 ID
func (s *TrackerService) AddSubject(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return "", ErrNotOpened
	}
	id := s.ids.NewID()
	return id, s.apply(ctx, AddSubject(s.doc, id), "add_subject")
}

// RenameSubject 修改科目名称（仅在规范学期下允许）
func (s *TrackerService) RenameSubject(ctx context.Context, subjectID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNotOpened
	}
	canonical, ok := s.doc.Canonical()
	if !ok || s.activeID != canonical.ID {
		return ErrNameLocked
	}
	if !hasSubject(canonical, subjectID) {
		return fmt.Errorf("%w: %s", ErrSubjectNotFound, subjectID)
	}
	next := UpdateSubject(s.doc, s.activeID, SubjectUpdate{SubjectID: subjectID, Field: SubjectFieldName, Name: name})
	return s.apply(ctx, next, "rename_subject")
}

// SetScore 设置当前学期的科目分数，输入边界在此 clamp
func (s *TrackerService) SetScore(ctx context.Context, subjectID string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNotOpened
	}
	active, ok := s.doc.SemesterByID(s.activeID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrSemesterNotFound, s.activeID)
	}
	if !hasSubject(active, subjectID) {
		return fmt.Errorf("%w: %s", ErrSubjectNotFound, subjectID)
	}
	next := UpdateSubject(s.doc, s.activeID, SubjectUpdate{
		SubjectID: subjectID,
		Field:     SubjectFieldScore,
		Score:     schema.ClampScore(score),
	})
	return s.apply(ctx, next, "set_score")
}

// DeleteSubject 从所有学期删除科目
func (s *TrackerService) DeleteSubject(ctx context.Context, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNotOpened
	}
	canonical, ok := s.doc.Canonical()
	if !ok || !hasSubject(canonical, subjectID) {
		return fmt.Errorf("%w: %s", ErrSubjectNotFound, subjectID)
	}
	return s.apply(ctx, DeleteSubject(s.doc, subjectID), "delete_subject")
}

// SetUserName 设置用户名
func (s *TrackerService) SetUserName(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNotOpened
	}
	return s.apply(ctx, WithUserName(s.doc, name), "set_user_name")
}

// SetTargetAvg 设置目标平均分；越界值照常保存，由校验阻断分析
func (s *TrackerService) SetTargetAvg(ctx context.Context, target float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNotOpened
	}
	return s.apply(ctx, WithTargetAvg(s.doc, target), "set_target_avg")
}

// SetTotalSemesters 设置目标学期数并触发学期同步
func (s *TrackerService) SetTotalSemesters(ctx context.Context, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNotOpened
	}
	return s.apply(ctx, WithTotalSemesters(s.doc, total), "set_total_semesters")
}

// Analyze 分析触发：校验通过后等待展示延迟，生成报告并写入历史
// 等待期间不持锁，结束后重新校验
func (s *TrackerService) Analyze(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	err := s.checkAnalyzable()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if s.cfg.AnalysisDelay > 0 {
		timer := time.NewTimer(s.cfg.AnalysisDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAnalyzable(); err != nil {
		return nil, err
	}

	report := BuildReport(s.doc, s.policy)
	entry := NewHistoryEntry(s.doc, s.ids.NewID(), s.clock.Now().UnixMilli())
	next := RecordHistory(s.doc, entry, s.cfg.HistoryLimit)
	if evicted := len(s.doc.History) + 1 - len(next.History); evicted > 0 {
		slog.Debug("历史记录超过上限，淘汰最旧记录", "evicted", evicted, "limit", s.cfg.HistoryLimit)
	}

	prevDoc, prevActive := s.doc, s.activeID
	if err := s.apply(ctx, next, "analyze"); err != nil {
		// 保存失败：撤回本次历史记录，调用方看到的失败与内存状态一致
		s.doc, s.activeID = prevDoc, prevActive
		s.publish(EventDocumentUpdated, map[string]any{"reason": "analyze_rollback"})
		return nil, err
	}
	s.resultsVisible = true

	slog.Info("成绩分析完成",
		"overall_avg", report.OverallAvg,
		"needed_avg", report.NeededAvg,
		"completed", report.CompletedCount,
	)
	s.publish(EventAnalysisCompleted, map[string]any{
		"history_id":  entry.ID,
		"overall_avg": report.OverallAvg,
		"needed_avg":  report.NeededAvg,
		"total_score": report.TotalScore,
	})
	return report, nil
}

// checkAnalyzable 调用方持有锁
func (s *TrackerService) checkAnalyzable() error {
	if s.doc == nil {
		return ErrNotOpened
	}
	if v := Validate(s.doc); !v.CanCalculate {
		return &AnalysisBlockedError{Validation: v}
	}
	return nil
}

// DeleteHistoryEntry 删除一条历史记录
func (s *TrackerService) DeleteHistoryEntry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return ErrNotOpened
	}
	next, found := DeleteHistoryEntry(s.doc, id)
	if !found {
		return fmt.Errorf("%w: %s", ErrHistoryNotFound, id)
	}
	if err := s.apply(ctx, next, "delete_history"); err != nil {
		return err
	}
	s.publish(EventHistoryDeleted, map[string]any{"history_id": id})
	return nil
}

// Reset 恢复为首次运行的默认文档
func (s *TrackerService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = schema.CanonicalSemesterID
	return s.apply(ctx, schema.NewDocument(), "reset")
}

// Export 导出当前文档 JSON
func (s *TrackerService) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, ErrNotOpened
	}
	return schema.EncodeDocument(s.doc)
}

// ExportWorkbook 导出当前文档为 xlsx
func (s *TrackerService) ExportWorkbook() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, ErrNotOpened
	}
	buf, err := BuildWorkbook(s.doc)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Import 导入 JSON 文档，缺失字段使用默认值；无法解析时返回错误且不修改当前文档
func (s *TrackerService) Import(ctx context.Context, payload []byte) error {
	doc, err := schema.DecodeDocument(payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = schema.CanonicalSemesterID
	return s.apply(ctx, doc, "import")
}

// apply 提交新文档（调用方持有锁）
func (s *TrackerService) apply(ctx context.Context, next *schema.Document, reason string) error {
	next, s.activeID = SyncSemesters(next, s.activeID)
	s.doc = next
	s.resultsVisible = false

	s.publish(EventDocumentUpdated, map[string]any{"reason": reason})

	if s.store == nil {
		return nil
	}
	if err := s.store.Save(ctx, next); err != nil {
		slog.Error("保存成绩文档失败", "reason", reason, "error", err)
		return fmt.Errorf("保存成绩文档失败: %w", err)
	}
	return nil
}

func (s *TrackerService) publish(typ string, data map[string]any) {
	if s.events == nil {
		return
	}
	s.events.Publish(eventbus.Event{
		Type:      typ,
		Timestamp: s.clock.Now().UnixMilli(),
		Data:      data,
	})
}

func hasSubject(s schema.Semester, subjectID string) bool {
	for _, sub := range s.Subjects {
		if sub.ID == subjectID {
			return true
		}
	}
	return false
}
