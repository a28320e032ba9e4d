package server

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"dungeonrun/dungeon"
)

// Sender 连接的发送端；Enqueue 不阻塞，队列满时返回 false
type Sender interface {
	Enqueue(b []byte) bool
	Close()
}

// ConnState 连接状态机：Connected -> Identified -> Disconnected
type ConnState int

const (
	StateConnected ConnState = iota
	StateIdentified
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateIdentified:
		return "identified"
	default:
		return "disconnected"
	}
}

type connEntry struct {
	sender   Sender
	state    ConnState
	playerID PlayerID
}

// SessionConfig 创建 GameSession 所需的依赖
type SessionConfig struct {
	Provider     dungeon.Provider
	Options      dungeon.Options
	TickInterval time.Duration
	Logger       *zap.SugaredLogger
	Completions  *CompletionLog
}

// GameSession 一局游戏的权威状态：地牢、玩家注册表、计时器与连接表。
// 所有变更与广播在同一把锁内完成，换图广播与移动广播不会交错
type GameSession struct {
	mu sync.Mutex

	holder    *dungeon.Holder
	opts      dungeon.Options
	registry  *Registry
	stopwatch *Stopwatch

	conns    map[ConnID]*connEntry
	nextConn ConnID

	tickInterval time.Duration
	completions  *CompletionLog
	metrics      *SessionMetrics
	log          *zap.SugaredLogger
	now          func() time.Time
}

// NewGameSession 生成首张地牢；失败即返回错误（启动期致命）
func NewGameSession(c SessionConfig) (*GameSession, error) {
	if c.Provider == nil {
		return nil, errors.New("session: provider is required")
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 100 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop().Sugar()
	}
	if c.Completions == nil {
		c.Completions = NewCompletionLog(defaultCompletionLogSize)
	}

	holder, err := dungeon.NewHolder(c.Provider, c.Options)
	if err != nil {
		return nil, err
	}

	st := holder.Snapshot()
	c.Logger.Infof("initial dungeon generated: %dx%d rooms=%d start=%v end=%v",
		st.Dungeon.W, st.Dungeon.H, len(st.Dungeon.Rooms), st.StartingPoint, st.EndingPoint)

	return &GameSession{
		holder:       holder,
		opts:         c.Options,
		registry:     NewRegistry(),
		stopwatch:    NewStopwatch(c.TickInterval),
		conns:        make(map[ConnID]*connEntry),
		tickInterval: c.TickInterval,
		completions:  c.Completions,
		metrics:      &SessionMetrics{},
		log:          c.Logger,
		now:          time.Now,
	}, nil
}

// Connect 登记新连接并立即下发当前地牢
func (s *GameSession) Connect(sender Sender) ConnID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextConn++
	id := s.nextConn
	entry := &connEntry{sender: sender, state: StateConnected}
	s.conns[id] = entry
	s.metrics.IncConnections()
	s.log.Infof("connection %d opened - sending dungeon data", id)

	if b, err := encodeDungeon(s.holder.Snapshot()); err != nil {
		s.log.Errorf("encode dungeon: %v", err)
	} else {
		s.sendLocked(id, entry, b)
	}
	return id
}

// HandleIDRequest 分配（或返回已有的）玩家身份，回复 player_id 并向所有连接广播名单
func (s *GameSession) HandleIDRequest(conn ConnID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.conns[conn]
	if !ok {
		s.metrics.IncUnknownConnection()
		s.log.Warnf("id_request ignored: %v: conn=%d", ErrUnknownConnection, conn)
		return
	}

	p, created := s.registry.Register(conn, s.holder.Snapshot().StartingPoint)
	if created {
		s.log.Infof("connection %d identified as player %s at (%d,%d)", conn, p.ID, p.X, p.Y)
	} else {
		s.metrics.IncDuplicateIdentity()
		s.log.Infof("%v: conn=%d keeps player %s", ErrDuplicateIdentity, conn, p.ID)
	}
	entry.state = StateIdentified
	entry.playerID = p.ID

	if b, err := encode(MsgPlayerID, p); err != nil {
		s.log.Errorf("encode player: %v", err)
	} else {
		s.sendLocked(conn, entry, b)
	}
	s.broadcastRosterLocked()
}

// HandleMove 校验并执行移动，无论是否被接受都广播名单；到达终点则换图
func (s *GameSession) HandleMove(conn ConnID, upd LocationUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.conns[conn]
	if !ok || entry.state != StateIdentified {
		s.metrics.IncUnknownConnection()
		s.log.Warnf("location_update ignored: %v: conn=%d", ErrUnknownConnection, conn)
		return
	}
	if upd.PlayerID != "" && upd.PlayerID != entry.playerID {
		s.metrics.IncUnknownConnection()
		s.log.Warnf("location_update ignored: %v: conn=%d is %s, claimed %s", ErrUnknownConnection, conn, entry.playerID, upd.PlayerID)
		return
	}

	st := s.holder.Snapshot()
	dir := ParseDirection(upd.Direction)
	p, accepted, found := s.registry.ApplyMove(entry.playerID, dir, st.Dungeon)
	if !found {
		s.metrics.IncUnknownConnection()
		s.log.Warnf("location_update ignored: %v: player %s not registered", ErrUnknownConnection, entry.playerID)
		return
	}
	if accepted {
		s.metrics.IncMovesAccepted()
	} else {
		s.metrics.IncMovesRejected()
		s.log.Debugf("%v: player %s at (%d,%d) dir=%s", ErrInvalidMove, p.ID, p.X, p.Y, dir)
	}

	s.broadcastRosterLocked()

	if p.X == st.EndingPoint.X && p.Y == st.EndingPoint.Y {
		s.completeLocked(p.ID)
	}
}

// completeLocked 通关：换图、全员回到新起点、广播、记录用时并清零计时器
func (s *GameSession) completeLocked(id PlayerID) {
	minutes, seconds := s.stopwatch.Elapsed()
	rec := Completion{PlayerID: id, Minutes: minutes, Seconds: seconds, Time: s.stopwatch.String(), At: s.now()}
	s.completions.Record(rec)
	s.metrics.IncCompletions()
	s.log.Infof("player %s reached the end in %s", id, rec.Time)

	st, err := s.holder.Regenerate(s.opts)
	if err != nil {
		s.metrics.IncGenerationFailures()
		s.log.Errorf("regenerate dungeon, keeping previous: %v", err)
	} else {
		s.metrics.IncRegenerations()
		s.log.Infof("dungeon regenerated: rooms=%d start=%v end=%v", len(st.Dungeon.Rooms), st.StartingPoint, st.EndingPoint)
	}
	s.registry.ResetAll(st.StartingPoint)

	if err == nil {
		if b, encErr := encodeDungeon(st); encErr != nil {
			s.log.Errorf("encode dungeon: %v", encErr)
		} else {
			s.broadcastLocked(b)
		}
	}
	s.broadcastRosterLocked()
	s.stopwatch.Reset()
}

// Disconnect 移除连接与其玩家；重复调用无操作
func (s *GameSession) Disconnect(conn ConnID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnectLocked(conn)
}

func (s *GameSession) disconnectLocked(conn ConnID) {
	entry, ok := s.conns[conn]
	if !ok {
		return
	}
	entry.state = StateDisconnected
	delete(s.conns, conn)

	if id, removed := s.registry.Remove(conn); removed {
		s.log.Infof("player %s has lost connection", id)
		s.broadcastRosterLocked()
		return
	}
	s.log.Infof("connection %d closed", conn)
}

// Tick 计时器前进一格并推送给所有连接；无连接时不计时
func (s *GameSession) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.conns) == 0 {
		return
	}
	s.stopwatch.Tick()
	m, sec := s.stopwatch.Elapsed()
	b, err := encode(MsgTimer, TimerPayload{Minutes: m, Seconds: sec})
	if err != nil {
		s.log.Errorf("encode timer: %v", err)
		return
	}
	s.broadcastLocked(b)
}

func (s *GameSession) broadcastRosterLocked() {
	b, err := encode(MsgRoster, s.registry.SnapshotAll())
	if err != nil {
		s.log.Errorf("encode roster: %v", err)
		return
	}
	s.broadcastLocked(b)
}

// broadcastLocked 发送给所有连接（包括尚未识别身份的）。
// 慢客户端在遍历结束后再断开，断开引发的名单广播排在本条消息之后
func (s *GameSession) broadcastLocked(b []byte) {
	var slow []ConnID
	for id, entry := range s.conns {
		if !entry.sender.Enqueue(b) {
			slow = append(slow, id)
		}
	}
	for _, id := range slow {
		s.dropSlowLocked(id)
	}
}

// sendLocked 发送队列满的连接视为慢客户端，直接断开
func (s *GameSession) sendLocked(id ConnID, entry *connEntry, b []byte) {
	if entry.sender.Enqueue(b) {
		return
	}
	s.dropSlowLocked(id)
}

func (s *GameSession) dropSlowLocked(id ConnID) {
	entry, ok := s.conns[id]
	if !ok {
		return
	}
	s.metrics.IncSlowClients()
	s.log.Warnf("connection %d send queue full, closing", id)
	entry.sender.Close()
	s.disconnectLocked(id)
}

// Snapshot 当前地牢
func (s *GameSession) Snapshot() *dungeon.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holder.Snapshot()
}

// View 同一时刻的名单与起点/终点
func (s *GameSession) View() (players []Player, start, end dungeon.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.holder.Snapshot()
	return s.registry.SnapshotAll(), st.StartingPoint, st.EndingPoint
}

// Players 当前名单
func (s *GameSession) Players() []Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.SnapshotAll()
}

// ConnState 返回连接状态；未知连接视为已断开
func (s *GameSession) ConnState(conn ConnID) ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.conns[conn]; ok {
		return entry.state
	}
	return StateDisconnected
}

// Elapsed 计时器当前读数
func (s *GameSession) Elapsed() (minutes, seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopwatch.Elapsed()
}

// Options 下次换图使用的参数
func (s *GameSession) Options() dungeon.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

// SetOptions 更新换图参数，在下一次通关时生效
func (s *GameSession) SetOptions(opts dungeon.Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.opts = opts
	s.mu.Unlock()
	s.log.Infof("dungeon options updated: %dx%d rooms=%d roomSize=%d", opts.Width, opts.Height, opts.RoomCount, opts.AvgRoomSize)
	return nil
}

func (s *GameSession) Metrics() *SessionMetrics { return s.metrics }

func (s *GameSession) Completions() []Completion { return s.completions.Recent() }

func (s *GameSession) TickInterval() time.Duration { return s.tickInterval }
