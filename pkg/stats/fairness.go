// Package stats 提供值班统计分析功能
package stats

import (
	"math"
	"sort"

	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/roster"
)

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	// 值班次数公平性
	DutyGini           float64 `json:"duty_gini"`             // 值班次数基尼系数 (0=完全公平, 1=完全不公平)
	DutyVariance       float64 `json:"duty_variance"`         // 次数方差
	DutyStdDev         float64 `json:"duty_std_dev"`          // 次数标准差
	AvgDutiesPerTeacher float64 `json:"avg_duties_per_teacher"` // 人均值班次数
	MaxDuties          int     `json:"max_duties"`            // 最多值班次数
	MinDuties          int     `json:"min_duties"`            // 最少值班次数
	DutyRange          int     `json:"duty_range"`            // 次数极差

	// 值班类型公平性
	LongBreakGini float64 `json:"long_break_gini"` // 长课间值班分配基尼系数
	EdgeGini      float64 `json:"edge_gini"`       // 边缘值班分配基尼系数

	// 教师级别统计
	TeacherStats []TeacherStat `json:"teacher_stats"`

	// 综合评分
	OverallFairnessScore float64 `json:"overall_fairness_score"` // 综合公平性评分 (0-100)
}

// TeacherStat 教师统计
type TeacherStat struct {
	TeacherCode     string  `json:"teacher_code"`
	TeacherName     string  `json:"teacher_name"`
	DutyCount       int     `json:"duty_count"`
	LongBreakDuties int     `json:"long_break_duties"`
	EdgeDuties      int     `json:"edge_duties"`
	PinnedDuties    int     `json:"pinned_duties"`
	Target          int     `json:"target"`
	Deviation       int     `json:"deviation"` // 与目标次数的偏差
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct{}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{}
}

// Analyze 分析值班方案的公平性
// targets 为每位教师的目标值班次数，可为 nil（按 0 处理）
func (f *FairnessAnalyzer) Analyze(assignments []*model.DutyAssignment, teachers []*model.Teacher, cfg *model.DutyConfig, targets map[string]int) *FairnessMetrics {
	if len(assignments) == 0 || len(teachers) == 0 {
		return &FairnessMetrics{OverallFairnessScore: 100}
	}

	avail := roster.NewIndex(teachers)
	teacherStats := f.calculateTeacherStats(assignments, teachers, cfg, avail, targets)

	counts := make([]float64, len(teacherStats))
	longBreaks := make([]float64, len(teacherStats))
	edges := make([]float64, len(teacherStats))

	for i, stat := range teacherStats {
		counts[i] = float64(stat.DutyCount)
		longBreaks[i] = float64(stat.LongBreakDuties)
		edges[i] = float64(stat.EdgeDuties)
	}

	avgDuties := mean(counts)
	variance := varianceOf(counts, avgDuties)
	stdDev := math.Sqrt(variance)
	maxDuties, minDuties := intRange(teacherStats)

	dutyGini := gini(counts)
	longGini := gini(longBreaks)
	edgeGini := gini(edges)

	overallScore := f.calculateOverallScore(dutyGini, longGini, edgeGini, stdDev, avgDuties)

	return &FairnessMetrics{
		DutyGini:            dutyGini,
		DutyVariance:        variance,
		DutyStdDev:          stdDev,
		AvgDutiesPerTeacher: avgDuties,
		MaxDuties:           maxDuties,
		MinDuties:           minDuties,
		DutyRange:           maxDuties - minDuties,
		LongBreakGini:       longGini,
		EdgeGini:            edgeGini,
		TeacherStats:        teacherStats,
		OverallFairnessScore: overallScore,
	}
}

// calculateTeacherStats 统计每位教师的值班数据
// 包括一次都没排到的教师，否则基尼系数会偏乐观
func (f *FairnessAnalyzer) calculateTeacherStats(assignments []*model.DutyAssignment, teachers []*model.Teacher, cfg *model.DutyConfig, avail *roster.Index, targets map[string]int) []TeacherStat {
	statMap := make(map[string]*TeacherStat, len(teachers))
	for _, t := range teachers {
		statMap[t.TeacherCode] = &TeacherStat{
			TeacherCode: t.TeacherCode,
			TeacherName: t.TeacherName,
			Target:      targets[t.TeacherCode],
		}
	}

	for _, a := range assignments {
		stat, exists := statMap[a.TeacherCode]
		if !exists {
			stat = &TeacherStat{TeacherCode: a.TeacherCode, TeacherName: a.TeacherCode}
			statMap[a.TeacherCode] = stat
		}

		stat.DutyCount++
		if a.IsPinned {
			stat.PinnedDuties++
		}

		if b := cfg.BreakByID(a.BreakID); b != nil {
			if b.IsLong() {
				stat.LongBreakDuties++
			}
			if avail.IsEdge(a.TeacherCode, a.Day, b) {
				stat.EdgeDuties++
			}
		}
	}

	result := make([]TeacherStat, 0, len(statMap))
	for _, stat := range statMap {
		stat.Deviation = stat.DutyCount - stat.Target
		result = append(result, *stat)
	}

	// 次数多的在前，同次数按编码
	sort.Slice(result, func(i, j int) bool {
		if result[i].DutyCount != result[j].DutyCount {
			return result[i].DutyCount > result[j].DutyCount
		}
		return result[i].TeacherCode < result[j].TeacherCode
	})

	return result
}

// mean 计算平均值
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// varianceOf 计算方差
func varianceOf(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - m
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// intRange 计算次数极值
func intRange(stats []TeacherStat) (max, min int) {
	if len(stats) == 0 {
		return 0, 0
	}
	max, min = stats[0].DutyCount, stats[0].DutyCount
	for _, s := range stats[1:] {
		if s.DutyCount > max {
			max = s.DutyCount
		}
		if s.DutyCount < min {
			min = s.DutyCount
		}
	}
	return
}

// gini 计算基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	g := 0.0
	for i, v := range sorted {
		g += (2*float64(i+1) - float64(n) - 1) * v
	}

	g = g / (float64(n) * sum)
	return math.Max(0, math.Min(1, g))
}

// calculateOverallScore 计算综合公平性评分
func (f *FairnessAnalyzer) calculateOverallScore(dutyGini, longGini, edgeGini, stdDev, avgDuties float64) float64 {
	// 各项权重
	const (
		dutyWeight   = 0.4
		longWeight   = 0.25
		edgeWeight   = 0.25
		stdDevWeight = 0.1
	)

	// 基尼系数转换为分数 (0=100分, 1=0分)
	dutyScore := (1 - dutyGini) * 100
	longScore := (1 - longGini) * 100
	edgeScore := (1 - edgeGini) * 100

	// 标准差评分 (变异系数越低分数越高)
	cvScore := 100.0
	if avgDuties > 0 {
		cv := stdDev / avgDuties
		cvScore = math.Max(0, 100-cv*200)
	}

	score := dutyWeight*dutyScore +
		longWeight*longScore +
		edgeWeight*edgeScore +
		stdDevWeight*cvScore

	return math.Max(0, math.Min(100, score))
}

// CompareSolutions 比较两个值班方案的公平性
func (f *FairnessAnalyzer) CompareSolutions(solution1, solution2 []*model.DutyAssignment, teachers []*model.Teacher, cfg *model.DutyConfig, targets map[string]int) map[string]float64 {
	metrics1 := f.Analyze(solution1, teachers, cfg, targets)
	metrics2 := f.Analyze(solution2, teachers, cfg, targets)

	return map[string]float64{
		"duty_gini_diff":          metrics2.DutyGini - metrics1.DutyGini,
		"long_break_gini_diff":    metrics2.LongBreakGini - metrics1.LongBreakGini,
		"edge_gini_diff":          metrics2.EdgeGini - metrics1.EdgeGini,
		"overall_score_diff":      metrics2.OverallFairnessScore - metrics1.OverallFairnessScore,
		"solution1_overall_score": metrics1.OverallFairnessScore,
		"solution2_overall_score": metrics2.OverallFairnessScore,
	}
}
