// Package roster 提供教师在岗/可用性索引
package roster

import (
	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/topology"
)

// Index 可用性索引
// 对每个 (教师, 日, 课间) 预计算：是否在校、落点教室、边缘/夹心分类
type Index struct {
	lessons map[string]map[string]map[int]*model.LessonSlot // code -> day -> lesson_index -> 课
}

// NewIndex 从教师名册构建索引
func NewIndex(teachers []*model.Teacher) *Index {
	ix := &Index{
		lessons: make(map[string]map[string]map[int]*model.LessonSlot, len(teachers)),
	}
	for _, t := range teachers {
		byDay := make(map[string]map[int]*model.LessonSlot)
		for i := range t.Schedule {
			s := &t.Schedule[i]
			if byDay[s.Day] == nil {
				byDay[s.Day] = make(map[int]*model.LessonSlot)
			}
			byDay[s.Day][s.LessonIndex] = s
		}
		ix.lessons[t.TeacherCode] = byDay
	}
	return ix
}

// lessonAt 查课，无则 nil
func (ix *Index) lessonAt(code, day string, lessonIndex int) *model.LessonSlot {
	if byDay, ok := ix.lessons[code]; ok {
		if byIdx, ok := byDay[day]; ok {
			return byIdx[lessonIndex]
		}
	}
	return nil
}

// Available 判断教师在某课间是否在校可值班
// 规则：课间紧前（第 afterLesson 节）或紧后（第 afterLesson+1 节）有课即视为在校
func (ix *Index) Available(code, day string, b *model.Break) bool {
	return ix.lessonAt(code, day, b.AfterLesson) != nil ||
		ix.lessonAt(code, day, b.AfterLesson+1) != nil
}

// AnchorRoom 返回教师在该课间的落点教室
// 优先取课间紧前一节课的教室（教师正从那里出来），其次取紧后一节；都没有则为空串
func (ix *Index) AnchorRoom(code, day string, b *model.Break) string {
	if s := ix.lessonAt(code, day, b.AfterLesson); s != nil && s.RoomCode != "" {
		return topology.NormalizeRoom(s.RoomCode)
	}
	if s := ix.lessonAt(code, day, b.AfterLesson+1); s != nil && s.RoomCode != "" {
		return topology.NormalizeRoom(s.RoomCode)
	}
	return ""
}

// IsSandwich 判断课间是否被前后两节课夹住（值班不增加在校时长，最适合值班）
func (ix *Index) IsSandwich(code, day string, b *model.Break) bool {
	return ix.lessonAt(code, day, b.AfterLesson) != nil &&
		ix.lessonAt(code, day, b.AfterLesson+1) != nil
}

// IsEdge 判断课间是否处于教师当日课表边缘（只有一侧有课）
func (ix *Index) IsEdge(code, day string, b *model.Break) bool {
	before := ix.lessonAt(code, day, b.AfterLesson) != nil
	after := ix.lessonAt(code, day, b.AfterLesson+1) != nil
	return (before || after) && !(before && after)
}

// BlockedByDoubleLesson 判断课间是否落在连堂课中间
// 前后两节是同一班级时教师无法离开，不能安排值班
func (ix *Index) BlockedByDoubleLesson(code, day string, b *model.Break) bool {
	before := ix.lessonAt(code, day, b.AfterLesson)
	after := ix.lessonAt(code, day, b.AfterLesson+1)
	if before == nil || after == nil {
		return false
	}
	return before.GroupCode != "" && before.GroupCode == after.GroupCode
}

// AvailableSlotCount 统计教师整周可值班的 (日, 课间) 数
// 连堂课中间的课间不计入
func (ix *Index) AvailableSlotCount(code string, breaks []model.Break) int {
	count := 0
	for _, day := range model.Weekdays {
		for i := range breaks {
			b := &breaks[i]
			if ix.Available(code, day, b) && !ix.BlockedByDoubleLesson(code, day, b) {
				count++
			}
		}
	}
	return count
}

// Targets 计算每位教师的目标值班次数
// 目标按教学课时占比分摊总需求人次：课多的教师承担更多值班，
// 课少（在校时间短）的教师目标相应降低
func Targets(teachers []*model.Teacher, totalSlots int) map[string]int {
	targets := make(map[string]int, len(teachers))
	totalHours := 0
	for _, t := range teachers {
		totalHours += t.LessonCount()
	}
	if totalHours == 0 {
		for _, t := range teachers {
			targets[t.TeacherCode] = 0
		}
		return targets
	}
	for _, t := range teachers {
		share := float64(t.LessonCount()) / float64(totalHours)
		targets[t.TeacherCode] = int(share*float64(totalSlots) + 0.5)
	}
	return targets
}
