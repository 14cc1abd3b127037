package service

// StatusClass 相对目标的分档
type StatusClass string

const (
	StatusSafe    StatusClass = "SAFE"
	StatusWarning StatusClass = "WARNING"
	StatusDanger  StatusClass = "DANGER"
)

// DefaultWarningMargin 低于目标但在该差值内视为 WARNING
const DefaultWarningMargin = 5.0

// StatusPolicy 分档策略
type StatusPolicy struct {
	WarningMargin float64
}

// DefaultStatusPolicy 默认分档：>= 目标 SAFE，>= 目标-5 WARNING，否则 DANGER
var DefaultStatusPolicy = StatusPolicy{WarningMargin: DefaultWarningMargin}

// Classify 对数值按目标分档
func (p StatusPolicy) Classify(value, targetAvg float64) StatusClass {
	if value >= targetAvg {
		return StatusSafe
	}
	if value >= targetAvg-p.WarningMargin {
		return StatusWarning
	}
	return StatusDanger
}

// ClassifyNeeded 对剩余学期所需平均分分档，方向与 Classify 相反：
// 不高于目标 SAFE，高出目标不超过 WarningMargin 为 WARNING，否则 DANGER
func (p StatusPolicy) ClassifyNeeded(needed, targetAvg float64) StatusClass {
	return p.Classify(2*targetAvg-needed, targetAvg)
}

// ClassifyStatus 使用默认策略分档
func ClassifyStatus(value, targetAvg float64) StatusClass {
	return DefaultStatusPolicy.Classify(value, targetAvg)
}
