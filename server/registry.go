package server

import (
	"sort"

	"github.com/google/uuid"

	"dungeonrun/dungeon"
)

// ConnID 连接标识，由 GameSession 分配
type ConnID uint64

// Registry 玩家注册表：连接 -> 玩家，玩家 ID -> 状态。
// 非并发安全，由 GameSession 的锁保护
type Registry struct {
	players map[PlayerID]*Player
	byConn  map[ConnID]PlayerID
	newID   func() PlayerID
}

// NewRegistry 创建注册表，玩家 ID 使用随机 UUID
func NewRegistry() *Registry {
	return &Registry{
		players: make(map[PlayerID]*Player),
		byConn:  make(map[ConnID]PlayerID),
		newID:   func() PlayerID { return PlayerID(uuid.NewString()) },
	}
}

// Register 为连接创建玩家并放在起点；同一连接重复注册返回已有玩家（created=false）
func (r *Registry) Register(conn ConnID, start dungeon.Point) (Player, bool) {
	if id, ok := r.byConn[conn]; ok {
		return *r.players[id], false
	}
	id := r.newID()
	for r.players[id] != nil {
		id = r.newID()
	}
	p := &Player{ID: id, X: start.X, Y: start.Y, Facing: FacingDown}
	r.players[id] = p
	r.byConn[conn] = id
	return *p, true
}

// Lookup 返回连接对应的玩家
func (r *Registry) Lookup(conn ConnID) (Player, bool) {
	id, ok := r.byConn[conn]
	if !ok {
		return Player{}, false
	}
	return *r.players[id], true
}

// ApplyMove 尝试沿 dir 移动一格。目标为墙或越界时不改变状态（accepted=false）；
// 玩家不存在时 found=false
func (r *Registry) ApplyMove(id PlayerID, dir Direction, d *dungeon.Dungeon) (p Player, accepted, found bool) {
	cur, ok := r.players[id]
	if !ok {
		return Player{}, false, false
	}
	dx, dy := dir.delta()
	if dx == 0 && dy == 0 {
		return *cur, false, true
	}
	nx, ny := cur.X+dx, cur.Y+dy
	if !d.Walkable(nx, ny) {
		return *cur, false, true
	}
	cur.X, cur.Y = nx, ny
	cur.Facing = dir.facing()
	cur.Frame = (cur.Frame + 1) % animationFrames
	return *cur, true, true
}

// ResetAll 把所有玩家移回起点（换图后使用）
func (r *Registry) ResetAll(start dungeon.Point) {
	for _, p := range r.players {
		p.X, p.Y = start.X, start.Y
		p.Facing = FacingDown
		p.Frame = 0
	}
}

// Remove 删除连接对应的玩家；不存在时无操作
func (r *Registry) Remove(conn ConnID) (PlayerID, bool) {
	id, ok := r.byConn[conn]
	if !ok {
		return "", false
	}
	delete(r.byConn, conn)
	delete(r.players, id)
	return id, true
}

// Len 当前玩家数
func (r *Registry) Len() int {
	return len(r.players)
}

// SnapshotAll 返回所有玩家的值拷贝（按 ID 排序）
func (r *Registry) SnapshotAll() []Player {
	out := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
