// Package topology 提供区域/教室拓扑和距离度量
package topology

import (
	"strings"

	"github.com/zhiban/zhiban/pkg/model"
)

// Topology 区域拓扑：每个区域覆盖的教室和最近邻区域列表
// 距离是序数度量（邻近排名），不是物理单位
type Topology struct {
	zones      []model.Zone
	roomToZone map[string]string   // 教室编号 -> zone_id
	rooms      map[string][]string // zone_id -> 教室编号列表
	neighbors  map[string][]string // zone_id -> 最近邻区域ID（近者在前）
}

// New 从配置构建拓扑
// 教室编号统一大写去空格后索引；一个教室属于多个区域时以先出现的为准
func New(zones []model.Zone, rooms map[string][]string, neighbors map[string][]string) *Topology {
	t := &Topology{
		zones:      zones,
		roomToZone: make(map[string]string),
		rooms:      make(map[string][]string, len(rooms)),
		neighbors:  make(map[string][]string, len(neighbors)),
	}
	for _, z := range zones {
		for _, room := range rooms[z.ID] {
			key := NormalizeRoom(room)
			if key == "" {
				continue
			}
			if _, taken := t.roomToZone[key]; !taken {
				t.roomToZone[key] = z.ID
			}
			t.rooms[z.ID] = append(t.rooms[z.ID], key)
		}
		t.neighbors[z.ID] = neighbors[z.ID]
	}
	return t
}

// FromConfig 从值班配置构建拓扑
func FromConfig(cfg *model.DutyConfig) *Topology {
	return New(cfg.Zones, cfg.Topology, cfg.Proximity)
}

// NormalizeRoom 规范化教室编号（大写去空格）
func NormalizeRoom(room string) string {
	return strings.ToUpper(strings.TrimSpace(room))
}

// ZoneCount 返回区域数
func (t *Topology) ZoneCount() int {
	return len(t.zones)
}

// ZoneOfRoom 返回教室所属区域ID，未知教室返回空串
func (t *Topology) ZoneOfRoom(room string) string {
	return t.roomToZone[NormalizeRoom(room)]
}

// RoomsOf 返回区域覆盖的教室编号
func (t *Topology) RoomsOf(zoneID string) []string {
	return t.rooms[zoneID]
}

// NeighborRank 返回 candidate 在 anchor 邻近列表中的位置（0为最近）
// 不在列表中时返回 -1
func (t *Topology) NeighborRank(anchorZone, candidateZone string) int {
	for i, n := range t.neighbors[anchorZone] {
		if n == candidateZone {
			return i
		}
	}
	return -1
}

// Sentinel 返回未知/远距离的哨兵距离值
func (t *Topology) Sentinel() int {
	return len(t.zones) + 1
}

// Distance 计算教师落点教室到候选区域的序数距离
//
//	0            教室就在候选区域内
//	1 + rank     候选区域在落点区域的邻近列表中（rank 为0起的列表位置）
//	哨兵值        无落点、落点区域未知或候选区域不在邻近列表中
func (t *Topology) Distance(anchorRoom, candidateZone string) int {
	if anchorRoom == "" {
		return t.Sentinel()
	}
	anchorZone := t.ZoneOfRoom(anchorRoom)
	if anchorZone == "" {
		return t.Sentinel()
	}
	if anchorZone == candidateZone {
		return 0
	}
	rank := t.NeighborRank(anchorZone, candidateZone)
	if rank < 0 {
		return t.Sentinel()
	}
	return 1 + rank
}
