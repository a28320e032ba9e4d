package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"dungeonrun/dungeon"
)

// Config 服务运行参数
type Config struct {
	Addr   string `yaml:"addr"`    // HTTP/WebSocket 监听地址
	WebDir string `yaml:"web_dir"` // 在 / 提供的静态客户端目录

	LogFile  string `yaml:"log_file"`  // 滚动日志文件路径
	LogLevel string `yaml:"log_level"` // debug | info | warn | error

	Dungeon dungeon.Options `yaml:"dungeon"`

	TickInterval time.Duration `yaml:"tick_interval"` // 计时器刻度
	SendBuffer   int           `yaml:"send_buffer"`   // 每个连接的发送队列长度
}

// Default 未做任何覆盖时的默认配置
func Default() Config {
	return Config{
		Addr:     ":8080",
		WebDir:   "web",
		LogFile:  "app.log",
		LogLevel: "debug",
		Dungeon: dungeon.Options{
			Width:       20,
			Height:      20,
			RoomCount:   7,
			AvgRoomSize: 8,
		},
		TickInterval: 100 * time.Millisecond,
		SendBuffer:   64,
	}
}

// Load 依次叠加：默认值 -> DUNGEON_CONFIG 指向的 YAML 文件 -> .env 与环境变量
func Load() (Config, error) {
	// 有 .env 则加载
	if err := godotenv.Load(); err != nil {
		log.Printf("[APP] [INFO] .env file not found or could not be loaded: %v", err)
	}

	cfg := Default()
	if path, ok := os.LookupEnv("DUNGEON_CONFIG"); ok && path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 拒绝无法启动的配置
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: addr must not be empty")
	}
	if err := c.Dungeon.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.TickInterval <= 0 {
		return errors.New("config: tick interval must be positive")
	}
	if c.SendBuffer <= 0 {
		return errors.New("config: send buffer must be positive")
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Addr, "DUNGEON_ADDR")
	setString(&cfg.WebDir, "DUNGEON_WEB_DIR")
	setString(&cfg.LogFile, "DUNGEON_LOG_FILE")
	setString(&cfg.LogLevel, "DUNGEON_LOG_LEVEL")

	ints := []struct {
		key string
		dst *int
	}{
		{"DUNGEON_WIDTH", &cfg.Dungeon.Width},
		{"DUNGEON_HEIGHT", &cfg.Dungeon.Height},
		{"DUNGEON_ROOMS", &cfg.Dungeon.RoomCount},
		{"DUNGEON_ROOM_SIZE", &cfg.Dungeon.AvgRoomSize},
		{"DUNGEON_SEND_BUFFER", &cfg.SendBuffer},
	}
	for _, e := range ints {
		if err := setInt(e.dst, e.key); err != nil {
			return err
		}
	}

	var tickMs int
	if err := setInt(&tickMs, "DUNGEON_TICK_MS"); err != nil {
		return err
	}
	if tickMs != 0 {
		cfg.TickInterval = time.Duration(tickMs) * time.Millisecond
	}
	return nil
}

// setString 环境变量存在时覆盖 dst
func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

// setInt 环境变量存在时覆盖 dst，值必须是整数
func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: environment variable %s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}
