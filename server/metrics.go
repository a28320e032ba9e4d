package server

import (
	"sync/atomic"
)

// SessionMetrics 记录会话运行期的关键指标（用于监控与调试）
type SessionMetrics struct {
	Connections        int64 // 累计建立的连接数
	MovesAccepted      int64 // 被接受的移动
	MovesRejected      int64 // 撞墙/越界被拒绝的移动
	UnknownConnection  int64 // 来自未识别连接的消息
	DuplicateIdentity  int64 // 重复的 id_request
	Regenerations      int64 // 成功换图次数
	GenerationFailures int64 // 换图失败次数
	Completions        int64 // 通关次数
	SlowClients        int64 // 因发送队列满被断开的连接
	TickCount          int64 // 计时器 Tick 次数
	TotalTickNs        int64 // Tick 累计耗时（纳秒）
}

func (m *SessionMetrics) IncConnections() { atomic.AddInt64(&m.Connections, 1) }
func (m *SessionMetrics) IncMovesAccepted() { atomic.AddInt64(&m.MovesAccepted, 1) }
func (m *SessionMetrics) IncMovesRejected() { atomic.AddInt64(&m.MovesRejected, 1) }
func (m *SessionMetrics) IncUnknownConnection() { atomic.AddInt64(&m.UnknownConnection, 1) }
func (m *SessionMetrics) IncDuplicateIdentity() { atomic.AddInt64(&m.DuplicateIdentity, 1) }
func (m *SessionMetrics) IncRegenerations() { atomic.AddInt64(&m.Regenerations, 1) }
func (m *SessionMetrics) IncGenerationFailures() { atomic.AddInt64(&m.GenerationFailures, 1) }
func (m *SessionMetrics) IncCompletions() { atomic.AddInt64(&m.Completions, 1) }
func (m *SessionMetrics) IncSlowClients() { atomic.AddInt64(&m.SlowClients, 1) }
func (m *SessionMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *SessionMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"connections":         atomic.LoadInt64(&m.Connections),
		"moves_accepted":      atomic.LoadInt64(&m.MovesAccepted),
		"moves_rejected":      atomic.LoadInt64(&m.MovesRejected),
		"unknown_connection":  atomic.LoadInt64(&m.UnknownConnection),
		"duplicate_identity":  atomic.LoadInt64(&m.DuplicateIdentity),
		"regenerations":       atomic.LoadInt64(&m.Regenerations),
		"generation_failures": atomic.LoadInt64(&m.GenerationFailures),
		"completions":         atomic.LoadInt64(&m.Completions),
		"slow_clients":        atomic.LoadInt64(&m.SlowClients),
		"tick_count":          tick,
		"avg_tick_ms":         avgMs,
	}
}
