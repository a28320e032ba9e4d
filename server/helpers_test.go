package server

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"dungeonrun/dungeon"
)

var testOptions = dungeon.Options{Width: 7, Height: 3, RoomCount: 2, AvgRoomSize: 2}

// corridorDungeon 一行走廊连接两个单格房间，reversed 时起点终点互换：
//
//	#######
//	#S...E#
//	#######
func corridorDungeon(reversed bool) *dungeon.Dungeon {
	a, b := 1, 5
	if reversed {
		a, b = b, a
	}
	maze := [][]int{
		{0, 0, 0, 0, 0, 0, 0},
		{0, 1, 1, 1, 1, 1, 0},
		{0, 0, 0, 0, 0, 0, 0},
	}
	maze[1][a] = 2
	maze[1][b] = 3
	return &dungeon.Dungeon{
		Maze: maze, W: 7, H: 3, RoomSize: 1, NextRoomID: 4,
		Rooms: []dungeon.Room{
			{ID: 2, X: a, Y: 1, W: 1, H: 1, CX: a, CY: 1},
			{ID: 3, X: b, Y: 1, W: 1, H: 1, CX: b, CY: 1},
		},
	}
}

// alternatingProvider 交替返回正向/反向走廊地牢
func alternatingProvider() dungeon.Provider {
	n := 0
	return func(dungeon.Options) (*dungeon.Dungeon, error) {
		n++
		return corridorDungeon(n%2 == 0), nil
	}
}

// onceProvider 只有第一次生成成功
func onceProvider() dungeon.Provider {
	n := 0
	return func(dungeon.Options) (*dungeon.Dungeon, error) {
		n++
		if n > 1 {
			return nil, errors.New("generator exhausted")
		}
		return corridorDungeon(false), nil
	}
}

func newTestSession(t *testing.T, provider dungeon.Provider) *GameSession {
	t.Helper()
	s, err := NewGameSession(SessionConfig{Provider: provider, Options: testOptions})
	require.NoError(t, err)
	return s
}

// fakeSender 记录收到的消息
type fakeSender struct {
	mu     sync.Mutex
	msgs   []Envelope
	full   bool
	failOn string // 拒收该类型的消息
	closed bool
}

func (f *fakeSender) Enqueue(b []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full || f.closed {
		return false
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		panic(err)
	}
	if env.Type == f.failOn {
		return false
	}
	f.msgs = append(f.msgs, env)
	return true
}

func (f *fakeSender) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSender) ofType(msgType string) []Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Envelope
	for _, m := range f.msgs {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

// last 返回某类型的最后一条消息的 payload
func (f *fakeSender) last(t *testing.T, msgType string, v any) {
	t.Helper()
	msgs := f.ofType(msgType)
	require.NotEmpty(t, msgs, "no %s message", msgType)
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-1].Payload, v))
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = nil
}

func rosterIDs(players []Player) []PlayerID {
	ids := make([]PlayerID, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID)
	}
	return ids
}

func msgTypes(f *fakeSender) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.msgs))
	for _, m := range f.msgs {
		out = append(out, m.Type)
	}
	return out
}
