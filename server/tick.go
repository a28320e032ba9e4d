package server

import (
	"context"
	"time"
)

// Run 启动计时器循环（约 10Hz），直到 ctx 结束
func (s *GameSession) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			s.Tick()
			s.metrics.AddTick(time.Since(start).Nanoseconds())
		}
	}
}
