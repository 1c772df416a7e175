// Package constraints 约束规则库：对外暴露引擎支持的全部规则及可配置参数
package constraints

// RuleParam 规则参数定义
type RuleParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // int, float, string, bool, array
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Min         string `json:"min,omitempty"`
	Max         string `json:"max,omitempty"`
}

// RuleDefinition 规则定义
type RuleDefinition struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name"`
	Type        string      `json:"type"`     // hard 硬约束, soft 软约束
	Category    string      `json:"category"` // 分类
	Description string      `json:"description"`
	Params      []RuleParam `json:"params"`
}

// LibraryResponse 规则库响应
type LibraryResponse struct {
	Library []RuleDefinition `json:"library"`
}

// GetLibrary 获取完整的规则库
func GetLibrary() []RuleDefinition {
	return []RuleDefinition{
		// =====================================================
		// 硬约束
		// =====================================================
		{
			Name:        "teacher_clash",
			DisplayName: "教师冲突",
			Type:        "hard",
			Category:    "冲突检测",
			Description: "同一教师不可在同一天的同一时段出现在两个年级。",
			Params:      []RuleParam{},
		},
		{
			Name:        "grade_clash",
			DisplayName: "年级冲突",
			Type:        "hard",
			Category:    "冲突检测",
			Description: "同一年级的同一格子只能有一个科目分配。",
			Params:      []RuleParam{},
		},
		{
			Name:        "blank_slot",
			DisplayName: "空档检测",
			Type:        "hard",
			Category:    "完整性",
			Description: "周网格内每个可排格子必须有分配，缺口视为硬违规。",
			Params:      []RuleParam{},
		},
		{
			Name:        "eligibility",
			DisplayName: "教师资质",
			Type:        "hard",
			Category:    "资质要求",
			Description: "分配的教师必须同时具备科目资质并带该年级；自习补位无教师，免检。",
			Params:      []RuleParam{},
		},
		{
			Name:        "staffing_budget",
			DisplayName: "教师课时预算",
			Type:        "hard",
			Category:    "工时限制",
			Description: "教师周课时不得超过段级预算；跨段例外教师的预算在多段间共享。",
			Params: []RuleParam{
				{Name: "budget", Type: "int", Description: "周课时预算", Min: "0"},
			},
		},
		// =====================================================
		// 软约束
		// =====================================================
		{
			Name:        "adjacency_cap",
			DisplayName: "同科目相邻上限",
			Type:        "soft",
			Category:    "课表质量",
			Description: "同一科目在一天内连排超过上限产生惩罚，中间仅隔休息/午餐仍视为连排。",
			Params: []RuleParam{
				{Name: "adjacency_cap", Type: "int", Description: "当日连排上限", Default: "1", Min: "1", Max: "4"},
				{Name: "adjacency_weight", Type: "int", Description: "惩罚权重", Default: "6", Min: "0", Max: "100"},
			},
		},
		{
			Name:        "same_slot_cap",
			DisplayName: "同时段重复上限",
			Type:        "soft",
			Category:    "课表质量",
			Description: "同一科目一周内出现在同一时段超过上限产生惩罚，避免课表呆板。",
			Params: []RuleParam{
				{Name: "same_slot_cap", Type: "int", Description: "周内同时段上限", Default: "2", Min: "1", Max: "5"},
				{Name: "same_slot_weight", Type: "int", Description: "惩罚权重", Default: "2", Min: "0", Max: "100"},
			},
		},
		{
			Name:        "workload_balance",
			DisplayName: "教师负荷均衡",
			Type:        "soft",
			Category:    "公平性",
			Description: "教师周课时偏离全体平均值超出容忍带产生惩罚，只统计有课教师。",
			Params: []RuleParam{
				{Name: "balance_weight", Type: "int", Description: "惩罚权重", Default: "1", Min: "0", Max: "100"},
				{Name: "tolerance", Type: "int", Description: "容忍偏差(节)", Default: "2", Min: "0", Max: "10"},
			},
		},
		{
			Name:        "filler_penalty",
			DisplayName: "自习补位惩罚",
			Type:        "soft",
			Category:    "课表质量",
			Description: "需求不足以填满网格时用自习补位，每节自习承担重惩罚以便尽量少用。",
			Params: []RuleParam{
				{Name: "filler_subject", Type: "string", Description: "补位科目名", Default: "自习"},
				{Name: "filler_weight", Type: "int", Description: "每节惩罚", Default: "10000", Min: "0"},
			},
		},
	}
}
