package builtin

import (
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// Defaults 按参数构建全部内置约束，硬约束在前
func Defaults(settings *constraint.Settings) []constraint.Rule {
	if settings == nil {
		settings = constraint.DefaultSettings()
	}
	return []constraint.Rule{
		NewGradeClashRule(),
		NewTeacherClashRule(),
		NewBlankSlotRule(),
		NewEligibilityRule(),
		NewStaffingBudgetRule(),
		NewAdjacencyCapRule(settings.AdjacencyWeight, settings.AdjacencyCap),
		NewSameSlotCapRule(settings.SameSlotWeight, settings.SameSlotCap),
		NewWorkloadBalanceRule(settings.BalanceWeight, 2),
		NewFillerPenaltyRule(settings.FillerWeight, settings.FillerSubject),
	}
}

// RegisterDefaults 将全部内置约束注册到管理器
func RegisterDefaults(m *constraint.Manager, settings *constraint.Settings) {
	for _, r := range Defaults(settings) {
		m.Register(r)
	}
}
