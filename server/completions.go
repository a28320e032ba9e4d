package server

import (
	"sync"
	"time"
)

// 内存中保留的通关记录条数
const defaultCompletionLogSize = 100

// Completion 一次通关记录
type Completion struct {
	PlayerID PlayerID  `json:"playerId"`
	Minutes  int       `json:"minutes"`
	Seconds  int       `json:"seconds"`
	Time     string    `json:"time"` // "MM : SS"
	At       time.Time `json:"at"`
}

// CompletionLog 有界的通关记录（仅内存，不做持久化）
type CompletionLog struct {
	mu      sync.Mutex
	size    int
	entries []Completion
}

func NewCompletionLog(size int) *CompletionLog {
	if size <= 0 {
		size = defaultCompletionLogSize
	}
	return &CompletionLog{size: size}
}

// Record 追加记录，超出容量时丢弃最旧的
func (l *CompletionLog) Record(c Completion) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, c)
	if over := len(l.entries) - l.size; over > 0 {
		l.entries = append([]Completion(nil), l.entries[over:]...)
	}
}

// Recent 返回最近的记录（旧 -> 新）
func (l *CompletionLog) Recent() []Completion {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Completion, len(l.entries))
	copy(out, l.entries)
	return out
}
