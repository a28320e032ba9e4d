package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dungeonrun/config"
	"dungeonrun/dungeon"
	"dungeonrun/server"
)

// 入口：加载配置，生成首张地牢，启动计时器与 HTTP + WebSocket 服务
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "server listen address, e.g. :8080")
	flag.Parse()

	log, err := server.NewLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	session, err := server.NewGameSession(server.SessionConfig{
		Provider:     dungeon.NewGenerator(nil),
		Options:      cfg.Dungeon,
		TickInterval: cfg.TickInterval,
		Logger:       log,
	})
	if err != nil {
		log.Fatalf("initial dungeon: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go session.Run(ctx)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.NewServer(session, log, cfg.SendBuffer).Routes(cfg.WebDir),
	}

	go func() {
		log.Infof("Dungeon server listening on %s; open http://localhost%v/", cfg.Addr, cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	<-ctx.Done()
	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("shutdown: %v", err)
	}
}
