package model

// SubjectCategory 科目类别
type SubjectCategory string

const (
	CategoryCore     SubjectCategory = "core"     // 核心科目（不可裁减）
	CategoryStandard SubjectCategory = "standard" // 普通科目
	CategoryFiller   SubjectCategory = "filler"   // 补位科目（自习）
)

// SubjectDemand 一个年级对某科目的每周课时需求
type SubjectDemand struct {
	Subject  string          `json:"subject" yaml:"subject"`
	Category SubjectCategory `json:"category" yaml:"category"`
	Periods  int             `json:"periods" yaml:"periods"`
}

// Grade 年级（班级），归属于唯一的段
type Grade struct {
	ID      string          `json:"id" yaml:"id"`
	Segment string          `json:"segment" yaml:"segment"`
	Demands []SubjectDemand `json:"demands" yaml:"demands"`
}

// Demand 返回某科目的每周需求课时，未声明返回0
func (g *Grade) Demand(subject string) int {
	for _, d := range g.Demands {
		if d.Subject == subject {
			return d.Periods
		}
	}
	return 0
}

// TotalPeriods 年级一周的总需求课时
func (g *Grade) TotalPeriods() int {
	total := 0
	for _, d := range g.Demands {
		total += d.Periods
	}
	return total
}

// Subjects 按声明顺序返回科目列表
func (g *Grade) Subjects() []string {
	out := make([]string, 0, len(g.Demands))
	for _, d := range g.Demands {
		out = append(out, d.Subject)
	}
	return out
}

// Teacher 教师：资质（科目×年级）、周负荷上限、是否跨段例外教师
type Teacher struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Subjects  []string `json:"subjects" yaml:"subjects"`
	Grades    []string `json:"grades" yaml:"grades"`
	MaxLoad   int      `json:"max_load" yaml:"max_load"` // 每周最大课时，0表示不限
	Exception bool     `json:"exception" yaml:"exception"`
}

// CanTeach 教师是否可教某年级的某科目
func (t *Teacher) CanTeach(subject, grade string) bool {
	ok := false
	for _, s := range t.Subjects {
		if s == subject {
			ok = true
			break
		}
	}
	if !ok {
		return false
	}
	for _, g := range t.Grades {
		if g == grade {
			return true
		}
	}
	return false
}
