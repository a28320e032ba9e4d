package server

import (
	"fmt"
	"time"
)

// Stopwatch 全局计时器：按固定 Tick 累加，只在通关时清零。
// 非并发安全，由 GameSession 的锁保护
type Stopwatch struct {
	interval time.Duration
	ticks    int64
}

func NewStopwatch(interval time.Duration) *Stopwatch {
	return &Stopwatch{interval: interval}
}

func (s *Stopwatch) Tick() { s.ticks++ }

func (s *Stopwatch) Reset() { s.ticks = 0 }

// Elapsed 以分、秒返回已计时间（向下取整）
func (s *Stopwatch) Elapsed() (minutes, seconds int) {
	d := time.Duration(s.ticks) * s.interval
	return int(d / time.Minute), int(d/time.Second) % 60
}

// String 格式为 "MM : SS"
func (s *Stopwatch) String() string {
	m, sec := s.Elapsed()
	return fmt.Sprintf("%02d : %02d", m, sec)
}
