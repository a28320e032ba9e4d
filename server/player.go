package server

import "strings"

// PlayerID 表示玩家唯一标识（UUID 字符串）
type PlayerID string

// Direction 移动方向（服务端权威解释客户端“意图”）
type Direction int

const (
	DirNone Direction = iota
	DirUp
	DirDown
	DirLeft
	DirRight
)

// ParseDirection 解析 up/down/left/right，其余返回 DirNone
func ParseDirection(s string) Direction {
	switch strings.ToLower(s) {
	case "up":
		return DirUp
	case "down":
		return DirDown
	case "left":
		return DirLeft
	case "right":
		return DirRight
	default:
		return DirNone
	}
}

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	default:
		return "none"
	}
}

// delta 返回该方向的单格位移
func (d Direction) delta() (dx, dy int) {
	switch d {
	case DirUp:
		return 0, -1
	case DirDown:
		return 0, 1
	case DirLeft:
		return -1, 0
	case DirRight:
		return 1, 0
	default:
		return 0, 0
	}
}

// 朝向取值与客户端精灵图的行号一致
const (
	FacingDown  = 0
	FacingUp    = 1
	FacingLeft  = 2
	FacingRight = 3
)

// 行走动画帧数
const animationFrames = 4

func (d Direction) facing() int {
	switch d {
	case DirUp:
		return FacingUp
	case DirLeft:
		return FacingLeft
	case DirRight:
		return FacingRight
	default:
		return FacingDown
	}
}

// Player 玩家公开状态，广播给所有客户端
type Player struct {
	ID     PlayerID `json:"id"`
	X      int      `json:"x"`
	Y      int      `json:"y"`
	Facing int      `json:"currentRow"`   // 朝向提示
	Frame  int      `json:"currentFrame"` // 动画帧提示
}
