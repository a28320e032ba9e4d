package dungeon

import "errors"

// 格子取值：0 墙，1 走廊，>=2 为房间编号
const (
	CellWall     = 0
	CellCorridor = 1
	FirstRoomID  = 2
)

var (
	ErrInvalidOptions    = errors.New("invalid dungeon options")
	ErrGenerationFailure = errors.New("dungeon generation failed")
)

// Options 地牢生成参数
type Options struct {
	Width       int `json:"width" yaml:"width"`
	Height      int `json:"height" yaml:"height"`
	RoomCount   int `json:"roomCount" yaml:"room_count"`
	AvgRoomSize int `json:"avgRoomSize" yaml:"avg_room_size"`
}

// Validate 检查参数下限
func (o Options) Validate() error {
	if o.Width < 3 || o.Height < 3 || o.RoomCount < 1 || o.AvgRoomSize < 2 {
		return ErrInvalidOptions
	}
	return nil
}

// Point 网格坐标
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Room 矩形房间，(CX, CY) 为中心点
type Room struct {
	ID int `json:"id"`
	X  int `json:"x"`
	Y  int `json:"y"`
	W  int `json:"w"`
	H  int `json:"h"`
	CX int `json:"cx"`
	CY int `json:"cy"`
}

// Center 返回房间中心
func (r Room) Center() Point {
	return Point{X: r.CX, Y: r.CY}
}

// Dungeon 生成结果，生成后只读；重新生成时整体替换
type Dungeon struct {
	Maze       [][]int `json:"maze"` // Maze[y][x]
	W          int     `json:"w"`
	H          int     `json:"h"`
	Rooms      []Room  `json:"rooms"`
	RoomSize   int     `json:"roomSize"`
	NextRoomID int     `json:"_lastRoomId"` // NextRoomID-1 为最后一个房间
}

// InBounds 判断坐标是否在网格内
func (d *Dungeon) InBounds(x, y int) bool {
	return x >= 0 && x < d.W && y >= 0 && y < d.H
}

// Walkable 越界或墙返回 false
func (d *Dungeon) Walkable(x, y int) bool {
	if !d.InBounds(x, y) {
		return false
	}
	return d.Maze[y][x] != CellWall
}

// Room 按编号查找房间
func (d *Dungeon) Room(id int) (Room, bool) {
	for _, r := range d.Rooms {
		if r.ID == id {
			return r, true
		}
	}
	return Room{}, false
}

// Provider 迷宫生成器：纯函数，给定参数返回新地牢
type Provider func(opts Options) (*Dungeon, error)
