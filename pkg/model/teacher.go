// Package model 定义值班排班引擎的核心数据模型
package model

// LessonSlot 教师课表中的一节课
// 不变式：同一教师在同一 (day, lesson_index) 上最多一节课
type LessonSlot struct {
	Day         string `json:"day" db:"day"`                   // Mon..Fri
	LessonIndex int    `json:"lesson_index" db:"lesson_index"` // 1..9
	RoomCode    string `json:"room_code" db:"room_code"`
	Subject     string `json:"subject" db:"subject"`
	GroupCode   string `json:"group_code" db:"group_code"` // 班级标识，例如 "4A"
}

// TeacherPreferences 教师偏好
type TeacherPreferences struct {
	PreferredZones []string `json:"preferred_zones,omitempty"` // 按偏好程度排序的区域ID
}

// PinnedDuty 手动锁定的值班（求解器必须原样保留）
type PinnedDuty struct {
	TeacherCode string `json:"teacher_code"`
	Day         string `json:"day"`
	BreakIndex  int    `json:"break_index"` // 对应课间的 afterLesson
	ZoneID      string `json:"zone_id"`
}

// Teacher 教师（求解器输入，只读）
type Teacher struct {
	TeacherCode string              `json:"teacher_code"`
	TeacherName string              `json:"teacher_name"`
	Schedule    []LessonSlot        `json:"schedule"`
	Preferences *TeacherPreferences `json:"preferences,omitempty"`
	ManualDuties []PinnedDuty       `json:"manual_duties,omitempty"`
}

// LessonAt 返回某天某节次的课，无则返回 nil
func (t *Teacher) LessonAt(day string, lessonIndex int) *LessonSlot {
	for i := range t.Schedule {
		s := &t.Schedule[i]
		if s.Day == day && s.LessonIndex == lessonIndex {
			return s
		}
	}
	return nil
}

// LessonsOn 返回某天的全部课（按节次升序不保证，调用方自行排序）
func (t *Teacher) LessonsOn(day string) []LessonSlot {
	var lessons []LessonSlot
	for _, s := range t.Schedule {
		if s.Day == day {
			lessons = append(lessons, s)
		}
	}
	return lessons
}

// LessonCount 统计有效课时数（忽略空科目的占位行）
func (t *Teacher) LessonCount() int {
	count := 0
	for _, s := range t.Schedule {
		if s.Subject != "" {
			count++
		}
	}
	return count
}

// PreferenceRank 返回区域在偏好列表中的位置（0为最高偏好）
// 不在列表中时返回 -1
func (t *Teacher) PreferenceRank(zoneID string) int {
	if t.Preferences == nil {
		return -1
	}
	for i, z := range t.Preferences.PreferredZones {
		if z == zoneID {
			return i
		}
	}
	return -1
}

// TeacherRecord 教师课表持久化记录
type TeacherRecord struct {
	BaseModel
	TeacherCode string              `json:"teacher_code" db:"teacher_code"`
	TeacherName string              `json:"teacher_name" db:"teacher_name"`
	Schedule    []LessonSlot        `json:"schedule" db:"schedule_json"`
	Preferences *TeacherPreferences `json:"preferences,omitempty" db:"preferences_json"`
	ManualDuties []PinnedDuty       `json:"manual_duties,omitempty" db:"manual_duties_json"`
	IsVerified  bool                `json:"is_verified" db:"is_verified"` // 课表经人工确认后才参与排班
}

// ToTeacher 转换为求解器输入
func (r *TeacherRecord) ToTeacher() *Teacher {
	return &Teacher{
		TeacherCode:  r.TeacherCode,
		TeacherName:  r.TeacherName,
		Schedule:     r.Schedule,
		Preferences:  r.Preferences,
		ManualDuties: r.ManualDuties,
	}
}
