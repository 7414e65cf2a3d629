// Package candidate 提供值班点候选老师评分
// 与求解器共用同一套约束评分，用于手工编辑某个值班点时的人选排序
package candidate

import (
	"fmt"
	"sort"

	"github.com/zhiban/zhiban/pkg/errors"
	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/solver/constraint"
	"github.com/zhiban/zhiban/pkg/solver/constraint/builtin"
)

const (
	// BaselineScore 候选基准分，扣除惩罚后得到最终分
	BaselineScore = 50.0
	// BusyScore 不可用老师的固定分
	BusyScore = -100.0
)

// 候选状态
const (
	StatusOK      = "OK"      // 可用且未达任何上限
	StatusWarning = "WARNING" // 可用但接近/超过上限，或远离落点
	StatusBusy    = "BUSY"    // 该时段有课或已有值班
)

// Candidate 候选老师
type Candidate struct {
	TeacherCode string  `json:"teacher_code"`
	TeacherName string  `json:"teacher_name"`
	Score       float64 `json:"score"`
	Status      string  `json:"status"`
	Reason      string  `json:"reason"`
	Rank        int     `json:"rank"`
}

// Query 候选查询：固定的 (日, 节次, 区域) 值班点
type Query struct {
	Day        string `json:"day"`
	BreakIndex int    `json:"break_index"`
	ZoneID     string `json:"zone_id"`
}

// Scorer 候选评分器
type Scorer struct {
	manager *constraint.Manager
}

// NewScorer 创建候选评分器
func NewScorer(rules model.Rules) *Scorer {
	// 手工编辑不涉及锁定白名单
	return &Scorer{manager: builtin.NewManager(rules, nil)}
}

// ScoreCandidates 为某个值班点评分并排序全部老师
// BUSY 的老师也会列出（便于核对），但默认不应被选中
func (s *Scorer) ScoreCandidates(dutyCtx *constraint.Context, q Query) ([]Candidate, error) {
	if !model.IsWeekday(q.Day) {
		return nil, errors.InvalidInput("day", fmt.Sprintf("无效的教学日: %s", q.Day))
	}
	b := dutyCtx.Config.BreakByIndex(q.BreakIndex)
	if b == nil {
		return nil, errors.NotFound("课间", fmt.Sprint(q.BreakIndex))
	}
	z := dutyCtx.Config.ZoneByID(q.ZoneID)
	if z == nil {
		return nil, errors.NotFound("区域", q.ZoneID)
	}

	candidates := make([]Candidate, 0, len(dutyCtx.Teachers))

	for _, t := range dutyCtx.Teachers {
		candidates = append(candidates, s.scoreOne(dutyCtx, t, q.Day, b, z))
	}

	// 高分在前，同分按姓名保证稳定
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].TeacherName != candidates[j].TeacherName {
			return candidates[i].TeacherName < candidates[j].TeacherName
		}
		return candidates[i].TeacherCode < candidates[j].TeacherCode
	})

	for i := range candidates {
		candidates[i].Rank = i + 1
	}

	return candidates, nil
}

// scoreOne 为单个老师评分
func (s *Scorer) scoreOne(dutyCtx *constraint.Context, t *model.Teacher, day string, b *model.Break, z *model.Zone) Candidate {
	c := Candidate{
		TeacherCode: t.TeacherCode,
		TeacherName: t.TeacherName,
	}

	// 不可用：该时段有课缺口、连堂课冲突、或已有值班
	if !dutyCtx.Avail.Available(t.TeacherCode, day, b) {
		c.Status = StatusBusy
		c.Score = BusyScore
		c.Reason = "该时段前后没有课，无法在场"
		return c
	}
	if dutyCtx.Avail.BlockedByDoubleLesson(t.TeacherCode, day, b) {
		c.Status = StatusBusy
		c.Score = BusyScore
		c.Reason = "连堂课跨过该课间"
		return c
	}
	if dutyCtx.AssignedAtTime(t.TeacherCode, day, b.AfterLesson) {
		c.Status = StatusBusy
		c.Score = BusyScore
		c.Reason = "该时段已有值班"
		return c
	}

	assignment := &model.DutyAssignment{
		TeacherCode: t.TeacherCode,
		Day:         day,
		BreakID:     b.ID,
		BreakName:   b.Name,
		BreakIndex:  b.AfterLesson,
		ZoneID:      z.ID,
		ZoneName:    z.Name,
	}

	_, penalty, _ := s.manager.EvaluateAssignment(dutyCtx, assignment)
	c.Score = BaselineScore - float64(penalty)

	c.Status, c.Reason = s.classify(dutyCtx, t, day, b, z)

	return c
}

// classify 判定候选状态并给出原因
func (s *Scorer) classify(dutyCtx *constraint.Context, t *model.Teacher, day string, b *model.Break, z *model.Zone) (string, string) {
	rules := dutyCtx.Config.Rules
	var warnings []string

	// 上限检查：追加这个值班后是否超限
	if dutyCtx.DutyCountOnDay(t.TeacherCode, day)+1 > rules.MaxDutiesPerDay {
		warnings = append(warnings, "超过每日值班上限")
	}
	if b.IsLong() && dutyCtx.LongBreakCount(t.TeacherCode)+1 > rules.MaxLongBreakDuties {
		warnings = append(warnings, "超过每周长课间值班上限")
	}
	if dutyCtx.Avail.IsEdge(t.TeacherCode, day, b) && dutyCtx.EdgeCount(t.TeacherCode)+1 > rules.MaxWeeklyEdgeDuties {
		warnings = append(warnings, "超过每周边缘值班上限")
	}

	// 距离检查
	anchor := dutyCtx.Avail.AnchorRoom(t.TeacherCode, day, b)
	dist := dutyCtx.Topo.Distance(anchor, z.ID)
	if dist >= dutyCtx.Topo.Sentinel() {
		warnings = append(warnings, "远离任课教室落点")
	}

	// 公平性检查
	if dev := dutyCtx.Deviation(t.TeacherCode) + 1; dev > rules.MaxFairnessDeviation {
		warnings = append(warnings, "值班次数已超出目标")
	}

	if len(warnings) > 0 {
		return StatusWarning, warnings[0]
	}

	// 正面原因，便于手工挑选
	switch {
	case dist == 0:
		return StatusOK, "任课教室就在本区域"
	case t.PreferenceRank(z.ID) >= 0:
		return StatusOK, "偏好该区域"
	case dutyCtx.Deviation(t.TeacherCode) < 0:
		return StatusOK, "值班次数低于目标"
	default:
		return StatusOK, "可以承担该值班"
	}
}
