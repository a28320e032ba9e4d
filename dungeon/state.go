package dungeon

import (
	"fmt"
)

// 重新生成时为避开上一局起点/终点的最大尝试次数
const regenerateAttempts = 3

// State 可下发给客户端的地牢快照
type State struct {
	Dungeon       *Dungeon `json:"dungeon"`
	StartingPoint Point    `json:"startingPoint"`
	EndingPoint   Point    `json:"endingPoint"`
}

// NewState 校验生成结果并推导起点（房间 2 中心）与终点（最后一个房间中心）
func NewState(d *Dungeon) (*State, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: provider returned no dungeon", ErrGenerationFailure)
	}
	// 网格尺寸必须与 W/H 一致，否则 Walkable 会越界
	if len(d.Maze) != d.H {
		return nil, fmt.Errorf("%w: maze has %d rows, want %d", ErrGenerationFailure, len(d.Maze), d.H)
	}
	for y, row := range d.Maze {
		if len(row) != d.W {
			return nil, fmt.Errorf("%w: maze row %d has %d cells, want %d", ErrGenerationFailure, y, len(row), d.W)
		}
	}
	if len(d.Rooms) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 rooms, got %d", ErrGenerationFailure, len(d.Rooms))
	}
	first, ok := d.Room(FirstRoomID)
	if !ok {
		return nil, fmt.Errorf("%w: room %d missing", ErrGenerationFailure, FirstRoomID)
	}
	last, ok := d.Room(d.NextRoomID - 1)
	if !ok {
		return nil, fmt.Errorf("%w: room %d missing", ErrGenerationFailure, d.NextRoomID-1)
	}
	start, end := first.Center(), last.Center()
	if !d.Walkable(start.X, start.Y) || !d.Walkable(end.X, end.Y) {
		return nil, fmt.Errorf("%w: start %v or end %v is not walkable", ErrGenerationFailure, start, end)
	}
	return &State{Dungeon: d, StartingPoint: start, EndingPoint: end}, nil
}

// Holder 持有当前生效的地牢。非并发安全，由调用方加锁
type Holder struct {
	provider Provider
	current  *State
}

// NewHolder 执行首次生成；失败时返回错误（启动期致命）
func NewHolder(provider Provider, opts Options) (*Holder, error) {
	h := &Holder{provider: provider}
	st, err := h.generate(opts)
	if err != nil {
		return nil, err
	}
	h.current = st
	return h, nil
}

// Regenerate 生成并替换当前地牢；失败时保留旧地牢继续生效
func (h *Holder) Regenerate(opts Options) (*State, error) {
	prev := h.current
	var next *State
	var lastErr error
	for i := 0; i < regenerateAttempts; i++ {
		st, err := h.generate(opts)
		if err != nil {
			lastErr = err
			continue
		}
		next = st
		if st.StartingPoint != prev.StartingPoint && st.EndingPoint != prev.EndingPoint {
			break
		}
	}
	if next == nil {
		return prev, lastErr
	}
	h.current = next
	return next, nil
}

// Snapshot 返回当前状态（只读）
func (h *Holder) Snapshot() *State {
	return h.current
}

func (h *Holder) generate(opts Options) (*State, error) {
	d, err := h.provider(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailure, err)
	}
	return NewState(d)
}
