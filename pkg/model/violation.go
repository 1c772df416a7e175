package model

import "fmt"

// ViolationKind 违规类型
type ViolationKind string

const (
	ViolationTeacherClash   ViolationKind = "teacher_clash"            // 教师同一时段被排到多个年级
	ViolationGradeClash     ViolationKind = "grade_clash"              // 同一年级同一时段多个分配
	ViolationBlankSlot      ViolationKind = "blank_slot"               // 授课时段留空
	ViolationAdjacencyCap   ViolationKind = "adjacency_cap_exceeded"   // 同科目当日相邻重复超限
	ViolationSameSlotCap    ViolationKind = "same_slot_cap_exceeded"   // 同科目一周内同时段重复超限
	ViolationStaffingBudget ViolationKind = "staffing_budget_exceeded" // 教师课时预算超限
	ViolationEligibility    ViolationKind = "teacher_not_eligible"     // 教师资质不符
	ViolationWorkloadSkew   ViolationKind = "workload_imbalance"       // 教师负荷失衡
)

// Severity 违规级别
type Severity string

const (
	SeverityHard Severity = "hard" // 硬违规：课表无效
	SeveritySoft Severity = "soft" // 软违规：计入惩罚
)

// Violation 一次具体的约束违规
type Violation struct {
	Kind     ViolationKind `json:"kind"`
	Severity Severity      `json:"severity"`
	Grade    string        `json:"grade,omitempty"`
	Teacher  string        `json:"teacher,omitempty"`
	Day      string        `json:"day,omitempty"`
	SlotID   string        `json:"slot_id,omitempty"`
	Subject  string        `json:"subject,omitempty"`
	Message  string        `json:"message"`
	Penalty  int           `json:"penalty,omitempty"`
}

// Scope 违规位置的可读标识
func (v *Violation) Scope() string {
	return fmt.Sprintf("%s/%s/%s", v.Grade, v.Day, v.SlotID)
}

// IsHard 是否硬违规
func (v *Violation) IsHard() bool {
	return v.Severity == SeverityHard
}
