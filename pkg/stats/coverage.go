// Package stats 提供值班统计分析功能
package stats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zhiban/zhiban/pkg/model"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	// 整体覆盖率
	TotalRequired   int     `json:"total_required"`   // 总需求人次
	TotalAssigned   int     `json:"total_assigned"`   // 已分配人次
	OverallCoverage float64 `json:"overall_coverage"` // 整体覆盖率 (%)

	// 按教学日统计
	DailyCoverage map[string]DayCoverage `json:"daily_coverage"`

	// 按区域统计
	ZoneCoverage map[string]float64 `json:"zone_coverage"`

	// 按课间统计
	BreakCoverage map[string]float64 `json:"break_coverage"`

	// 问题识别
	Shortfalls []SlotShortfall `json:"shortfalls"` // 缺人的值班点
	Overfills  []SlotShortfall `json:"overfills"`  // 超员的值班点
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Day          string  `json:"day"`
	Required     int     `json:"required"`
	Assigned     int     `json:"assigned"`
	CoverageRate float64 `json:"coverage_rate"`
}

// SlotShortfall 值班点人数偏差
type SlotShortfall struct {
	Day      string `json:"day"`
	BreakID  string `json:"break_id"`
	ZoneID   string `json:"zone_id"`
	Required int    `json:"required"`
	Assigned int    `json:"assigned"`
	Delta    int    `json:"delta"` // assigned - required
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct{}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer() *CoverageAnalyzer {
	return &CoverageAnalyzer{}
}

// Analyze 对照配置需求分析值班方案的覆盖情况
func (c *CoverageAnalyzer) Analyze(cfg *model.DutyConfig, assignments []*model.DutyAssignment) *CoverageMetrics {
	metrics := &CoverageMetrics{
		DailyCoverage: make(map[string]DayCoverage),
		ZoneCoverage:  make(map[string]float64),
		BreakCoverage: make(map[string]float64),
	}
	if cfg == nil {
		metrics.OverallCoverage = 100
		return metrics
	}

	// 按 (日, 课间, 区域) 统计已分配人数
	assigned := make(map[string]int)
	for _, a := range assignments {
		assigned[a.Day+"/"+a.BreakID+"/"+a.ZoneID]++
	}

	dailyRequired := make(map[string]int)
	dailyAssigned := make(map[string]int)
	zoneRequired := make(map[string]int)
	zoneAssigned := make(map[string]int)
	breakRequired := make(map[string]int)
	breakAssigned := make(map[string]int)

	for _, day := range model.Weekdays {
		for _, b := range cfg.Breaks {
			for _, z := range cfg.Zones {
				required := cfg.Requirements.Count(z.ID, b.ID)
				if required == 0 {
					continue
				}

				got := assigned[day+"/"+b.ID+"/"+z.ID]

				metrics.TotalRequired += required
				if got > required {
					metrics.TotalAssigned += required
				} else {
					metrics.TotalAssigned += got
				}

				dailyRequired[day] += required
				dailyAssigned[day] += got
				zoneRequired[z.ID] += required
				zoneAssigned[z.ID] += got
				breakRequired[b.ID] += required
				breakAssigned[b.ID] += got

				if got < required {
					metrics.Shortfalls = append(metrics.Shortfalls, SlotShortfall{
						Day: day, BreakID: b.ID, ZoneID: z.ID,
						Required: required, Assigned: got, Delta: got - required,
					})
				} else if got > required {
					metrics.Overfills = append(metrics.Overfills, SlotShortfall{
						Day: day, BreakID: b.ID, ZoneID: z.ID,
						Required: required, Assigned: got, Delta: got - required,
					})
				}
			}
		}
	}

	if metrics.TotalRequired > 0 {
		metrics.OverallCoverage = float64(metrics.TotalAssigned) / float64(metrics.TotalRequired) * 100
	} else {
		metrics.OverallCoverage = 100
	}

	for day, required := range dailyRequired {
		rate := 0.0
		if required > 0 {
			rate = float64(dailyAssigned[day]) / float64(required) * 100
		}
		metrics.DailyCoverage[day] = DayCoverage{
			Day:          day,
			Required:     required,
			Assigned:     dailyAssigned[day],
			CoverageRate: rate,
		}
	}

	for zoneID, required := range zoneRequired {
		if required > 0 {
			metrics.ZoneCoverage[zoneID] = float64(zoneAssigned[zoneID]) / float64(required) * 100
		}
	}

	for breakID, required := range breakRequired {
		if required > 0 {
			metrics.BreakCoverage[breakID] = float64(breakAssigned[breakID]) / float64(required) * 100
		}
	}

	// 输出顺序稳定
	sortShortfalls(metrics.Shortfalls)
	sortShortfalls(metrics.Overfills)

	return metrics
}

// sortShortfalls 按日、课间、区域排序
func sortShortfalls(slots []SlotShortfall) {
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Day != slots[j].Day {
			return dayIndex(slots[i].Day) < dayIndex(slots[j].Day)
		}
		if slots[i].BreakID != slots[j].BreakID {
			return slots[i].BreakID < slots[j].BreakID
		}
		return slots[i].ZoneID < slots[j].ZoneID
	})
}

// dayIndex 教学日序号
func dayIndex(day string) int {
	for i, d := range model.Weekdays {
		if d == day {
			return i
		}
	}
	return len(model.Weekdays)
}

// GenerateCoverageReport 生成覆盖率文字报告
func (c *CoverageAnalyzer) GenerateCoverageReport(metrics *CoverageMetrics) string {
	var sb strings.Builder

	sb.WriteString("=== 值班覆盖分析报告 ===\n\n")
	sb.WriteString("【整体覆盖情况】\n")
	sb.WriteString(fmt.Sprintf("  总需求人次: %d\n", metrics.TotalRequired))
	sb.WriteString(fmt.Sprintf("  已分配人次: %d\n", metrics.TotalAssigned))
	sb.WriteString(fmt.Sprintf("  覆盖率: %.1f%%\n\n", metrics.OverallCoverage))

	if len(metrics.Shortfalls) > 0 {
		sb.WriteString("【缺人的值班点】\n")
		for _, s := range metrics.Shortfalls {
			sb.WriteString(fmt.Sprintf("  - %s %s %s (需要%d人，仅有%d人)\n",
				s.Day, s.BreakID, s.ZoneID, s.Required, s.Assigned))
		}
		sb.WriteString("\n")
	}

	if len(metrics.Overfills) > 0 {
		sb.WriteString("【超员的值班点】\n")
		for _, s := range metrics.Overfills {
			sb.WriteString(fmt.Sprintf("  - %s %s %s (需要%d人，排了%d人)\n",
				s.Day, s.BreakID, s.ZoneID, s.Required, s.Assigned))
		}
	}

	return sb.String()
}
