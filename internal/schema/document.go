package schema

// 分数区间与默认值
const (
	MinScore      = 0
	MaxScore      = 100
	UnscoredScore = 0 // 未录入哨兵值，与合法的 0 分重叠

	DefaultTargetAvg      = 85.0
	DefaultTotalSemesters = 6
	DefaultHistoryLimit   = 10

	CanonicalSemesterID = 1
)

// Subject 科目（归属于唯一的学期，不跨学期共享）
type Subject struct {
	ID    string `json:"id"`    // 不透明唯一标识，各学期同一科目 ID 相同
	Name  string `json:"name"`  // 名称以规范学期为准
	Score int    `json:"score"` // [0,100]，0 表示未录入
}

// Semester 学期
type Semester struct {
	ID       int       `json:"id"` // 1..N，最小 ID 为规范学期
	Subjects []Subject `json:"subjects"`
}

// HistoryEntry 分析快照（只读）
type HistoryEntry struct {
	ID                 string  `json:"id"`
	Timestamp          int64   `json:"timestamp"` // Unix 时间戳（毫秒）
	UserName           string  `json:"userName"`
	OverallAvg         float64 `json:"overallAvg"`
	TotalScore         int     `json:"totalScore"`
	TargetAvg          float64 `json:"targetAvg"`
	CompletedSemesters []int   `json:"completedSemesters"`
}

// Document 持久化的根文档
// 每次变更整体替换，调用方不会观察到对旧值的原地修改
type Document struct {
	UserName             string         `json:"userName"`
	TargetAvg            float64        `json:"targetAvg"`
	TotalSemestersTarget int            `json:"totalSemestersTarget"`
	Semesters            []Semester     `json:"semesters"`
	History              []HistoryEntry `json:"history"` // 最新在前
}

// NewDocument 首次运行的默认文档（学期列表由同步策略补齐）
func NewDocument() *Document {
	return &Document{
		TargetAvg:            DefaultTargetAvg,
		TotalSemestersTarget: DefaultTotalSemesters,
		Semesters:            []Semester{},
		History:              []HistoryEntry{},
	}
}

// Clone 深拷贝
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		UserName:             d.UserName,
		TargetAvg:            d.TargetAvg,
		TotalSemestersTarget: d.TotalSemestersTarget,
		Semesters:            make([]Semester, len(d.Semesters)),
		History:              make([]HistoryEntry, len(d.History)),
	}
	for i, s := range d.Semesters {
		out.Semesters[i] = s.Clone()
	}
	for i, h := range d.History {
		h.CompletedSemesters = append([]int{}, h.CompletedSemesters...)
		out.History[i] = h
	}
	return out
}

// Clone 深拷贝学期
func (s Semester) Clone() Semester {
	return Semester{ID: s.ID, Subjects: append([]Subject{}, s.Subjects...)}
}

// CanonicalIndex 返回规范学期（ID 最小）的下标，不存在时返回 -1
func (d *Document) CanonicalIndex() int {
	idx := -1
	for i, s := range d.Semesters {
		if idx < 0 || s.ID < d.Semesters[idx].ID {
			idx = i
		}
	}
	return idx
}

// Canonical 返回规范学期
func (d *Document) Canonical() (Semester, bool) {
	idx := d.CanonicalIndex()
	if idx < 0 {
		return Semester{}, false
	}
	return d.Semesters[idx], true
}

// SemesterByID 按 ID 查找学期
func (d *Document) SemesterByID(id int) (Semester, bool) {
	for _, s := range d.Semesters {
		if s.ID == id {
			return s, true
		}
	}
	return Semester{}, false
}

// ClampScore 将分数限制在 [0,100]
func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
