package service

// 成绩服务发布到事件总线的事件类型
const (
	EventDocumentUpdated   = "document_updated"
	EventAnalysisCompleted = "analysis_completed"
	EventHistoryDeleted    = "history_deleted"
)
