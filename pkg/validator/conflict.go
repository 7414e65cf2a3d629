// Package validator 提供值班方案验证功能
// 对已生成（或手工改动过）的方案做硬规则审计，与求解路径相互独立
package validator

import (
	"fmt"
	"sort"

	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/roster"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictDoubleBooking ConflictType = "double_booking" // 同一时点排在两处
	ConflictAvailability  ConflictType = "availability"   // 时段前后无课，人不在场
	ConflictDoubleLesson  ConflictType = "double_lesson"  // 连堂课跨过课间
	ConflictDailyCap      ConflictType = "daily_cap"      // 超过每日值班上限
	ConflictLongBreakCap  ConflictType = "long_break_cap" // 超过每周长课间上限
	ConflictEdgeCap       ConflictType = "edge_cap"       // 超过每周边缘值班上限
	ConflictCoverage      ConflictType = "coverage"       // 值班点人数与需求不符
	ConflictUnknownRef    ConflictType = "unknown_ref"    // 引用了不存在的区域或课间
)

// Conflict 冲突信息
type Conflict struct {
	Type        ConflictType `json:"type"`
	Severity    string       `json:"severity"` // error/warning
	TeacherCode string       `json:"teacher_code,omitempty"`
	Day         string       `json:"day,omitempty"`
	Message     string       `json:"message"`
}

// ConflictDetector 冲突检测器
type ConflictDetector struct {
	config *DetectorConfig
}

// DetectorConfig 检测器配置
type DetectorConfig struct {
	CheckAvailability bool // 是否检查在场性（锁定值班除外）
	CheckCaps         bool // 是否检查各类上限
	CheckCoverage     bool // 是否检查需求覆盖
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		CheckAvailability: true,
		CheckCaps:         true,
		CheckCoverage:     true,
	}
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(config *DetectorConfig) *ConflictDetector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &ConflictDetector{config: config}
}

// DetectAll 检测方案中的所有冲突
func (d *ConflictDetector) DetectAll(assignments []*model.DutyAssignment, teachers []*model.Teacher, cfg *model.DutyConfig) []Conflict {
	var conflicts []Conflict

	avail := roster.NewIndex(teachers)
	teacherMap := make(map[string]*model.Teacher, len(teachers))
	for _, t := range teachers {
		teacherMap[t.TeacherCode] = t
	}

	conflicts = append(conflicts, d.detectUnknownRefs(assignments, cfg, teacherMap)...)

	byTeacher := groupByTeacher(assignments)
	for code, duties := range byTeacher {
		if teacherMap[code] == nil {
			continue
		}
		conflicts = append(conflicts, d.detectDoubleBookings(code, duties)...)
		if d.config.CheckAvailability {
			conflicts = append(conflicts, d.detectAbsences(code, duties, cfg, avail)...)
		}
		if d.config.CheckCaps {
			conflicts = append(conflicts, d.detectCapViolations(code, duties, cfg, avail)...)
		}
	}

	if d.config.CheckCoverage {
		conflicts = append(conflicts, d.detectCoverageMismatch(assignments, cfg)...)
	}

	return conflicts
}

// DetectForAssignment 检测手工追加一个值班的冲突
func (d *ConflictDetector) DetectForAssignment(newAssignment *model.DutyAssignment, existing []*model.DutyAssignment, teachers []*model.Teacher, cfg *model.DutyConfig) []Conflict {
	combined := make([]*model.DutyAssignment, 0, len(existing)+1)
	combined = append(combined, existing...)
	combined = append(combined, newAssignment)

	var conflicts []Conflict
	for _, c := range d.DetectAll(combined, teachers, cfg) {
		if c.TeacherCode == newAssignment.TeacherCode || c.Type == ConflictCoverage {
			conflicts = append(conflicts, c)
		}
	}
	return conflicts
}

// detectUnknownRefs 检测引用了不存在的区域、课间或老师
func (d *ConflictDetector) detectUnknownRefs(assignments []*model.DutyAssignment, cfg *model.DutyConfig, teachers map[string]*model.Teacher) []Conflict {
	var conflicts []Conflict

	for _, a := range assignments {
		if cfg.ZoneByID(a.ZoneID) == nil {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictUnknownRef,
				Severity:    "error",
				TeacherCode: a.TeacherCode,
				Day:         a.Day,
				Message:     fmt.Sprintf("值班引用了不存在的区域: %s", a.ZoneID),
			})
		}
		if cfg.BreakByID(a.BreakID) == nil {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictUnknownRef,
				Severity:    "error",
				TeacherCode: a.TeacherCode,
				Day:         a.Day,
				Message:     fmt.Sprintf("值班引用了不存在的课间: %s", a.BreakID),
			})
		}
		if teachers[a.TeacherCode] == nil {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictUnknownRef,
				Severity:    "error",
				TeacherCode: a.TeacherCode,
				Day:         a.Day,
				Message:     fmt.Sprintf("值班引用了不存在的老师: %s", a.TeacherCode),
			})
		}
	}

	return conflicts
}

// detectDoubleBookings 检测同一时点排在两处
// 按节次分组：两个课间共享同一节次时老师不能分身
func (d *ConflictDetector) detectDoubleBookings(code string, duties []*model.DutyAssignment) []Conflict {
	var conflicts []Conflict

	seen := make(map[string]*model.DutyAssignment)
	for _, a := range duties {
		key := fmt.Sprintf("%s/%d", a.Day, a.BreakIndex)
		if prev, exists := seen[key]; exists {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictDoubleBooking,
				Severity:    "error",
				TeacherCode: code,
				Day:         a.Day,
				Message:     fmt.Sprintf("老师 %s 在 %s 第%d节后同时排在 %s 和 %s", code, a.Day, a.BreakIndex, prev.ZoneID, a.ZoneID),
			})
		} else {
			seen[key] = a
		}
	}

	return conflicts
}

// detectAbsences 检测人不在场的值班（锁定值班覆盖可用性，跳过）
func (d *ConflictDetector) detectAbsences(code string, duties []*model.DutyAssignment, cfg *model.DutyConfig, avail *roster.Index) []Conflict {
	var conflicts []Conflict

	for _, a := range duties {
		if a.IsPinned {
			continue
		}
		b := cfg.BreakByID(a.BreakID)
		if b == nil {
			continue
		}

		if !avail.Available(code, a.Day, b) {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictAvailability,
				Severity:    "error",
				TeacherCode: code,
				Day:         a.Day,
				Message:     fmt.Sprintf("老师 %s 在 %s 课间 %s 前后没有课，无法在场", code, a.Day, a.BreakID),
			})
		} else if avail.BlockedByDoubleLesson(code, a.Day, b) {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictDoubleLesson,
				Severity:    "error",
				TeacherCode: code,
				Day:         a.Day,
				Message:     fmt.Sprintf("老师 %s 在 %s 有连堂课跨过课间 %s", code, a.Day, a.BreakID),
			})
		}
	}

	return conflicts
}

// detectCapViolations 检测各类上限
func (d *ConflictDetector) detectCapViolations(code string, duties []*model.DutyAssignment, cfg *model.DutyConfig, avail *roster.Index) []Conflict {
	var conflicts []Conflict
	rules := cfg.Rules

	dailyCount := make(map[string]int)
	longBreakCount := 0
	edgeCount := 0

	for _, a := range duties {
		dailyCount[a.Day]++

		if b := cfg.BreakByID(a.BreakID); b != nil {
			if b.IsLong() {
				longBreakCount++
			}
			if avail.IsEdge(code, a.Day, b) {
				edgeCount++
			}
		}
	}

	days := make([]string, 0, len(dailyCount))
	for day := range dailyCount {
		days = append(days, day)
	}
	sort.Strings(days)

	for _, day := range days {
		if dailyCount[day] > rules.MaxDutiesPerDay {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictDailyCap,
				Severity:    "error",
				TeacherCode: code,
				Day:         day,
				Message:     fmt.Sprintf("老师 %s 在 %s 值班 %d 次，超过每日上限 %d", code, day, dailyCount[day], rules.MaxDutiesPerDay),
			})
		}
	}

	if longBreakCount > rules.MaxLongBreakDuties {
		conflicts = append(conflicts, Conflict{
			Type:        ConflictLongBreakCap,
			Severity:    "error",
			TeacherCode: code,
			Message:     fmt.Sprintf("老师 %s 每周长课间值班 %d 次，超过上限 %d", code, longBreakCount, rules.MaxLongBreakDuties),
		})
	}

	if edgeCount > rules.MaxWeeklyEdgeDuties {
		conflicts = append(conflicts, Conflict{
			Type:        ConflictEdgeCap,
			Severity:    "error",
			TeacherCode: code,
			Message:     fmt.Sprintf("老师 %s 每周边缘值班 %d 次，超过上限 %d", code, edgeCount, rules.MaxWeeklyEdgeDuties),
		})
	}

	return conflicts
}

// detectCoverageMismatch 检测值班点人数与需求不符
func (d *ConflictDetector) detectCoverageMismatch(assignments []*model.DutyAssignment, cfg *model.DutyConfig) []Conflict {
	var conflicts []Conflict

	assigned := make(map[string]int)
	for _, a := range assignments {
		assigned[a.Day+"/"+a.BreakID+"/"+a.ZoneID]++
	}

	for _, day := range model.Weekdays {
		for _, b := range cfg.Breaks {
			for _, z := range cfg.Zones {
				required := cfg.Requirements.Count(z.ID, b.ID)
				got := assigned[day+"/"+b.ID+"/"+z.ID]
				if required == got {
					continue
				}

				severity := "error"
				if got > required {
					// 超员不影响安全，只提醒
					severity = "warning"
				}
				conflicts = append(conflicts, Conflict{
					Type:     ConflictCoverage,
					Severity: severity,
					Day:      day,
					Message:  fmt.Sprintf("值班点 %s/%s/%s 需要 %d 人，实际 %d 人", day, b.ID, z.ID, required, got),
				})
			}
		}
	}

	return conflicts
}

// groupByTeacher 按老师分组
func groupByTeacher(assignments []*model.DutyAssignment) map[string][]*model.DutyAssignment {
	result := make(map[string][]*model.DutyAssignment)
	for _, a := range assignments {
		result[a.TeacherCode] = append(result[a.TeacherCode], a)
	}
	return result
}
