package server

import (
	"encoding/json"
	"net/http"
)

// Routes 注册所有接口；webDir 非空时在 / 提供静态客户端
func (s *Server) Routes(webDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWS)
	if webDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(webDir)))
	}
	mux.HandleFunc("/admin/config", s.HandleAdminConfig)
	mux.HandleFunc("/metrics", s.HandleMetrics)
	mux.HandleFunc("/completions", s.HandleCompletions)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// HandleAdminConfig 读取与更新地牢生成参数（下次换图生效）
// GET /admin/config  返回当前参数
// POST /admin/config 以 JSON 载荷更新部分字段
func (s *Server) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	type cfg struct {
		Width       *int `json:"width,omitempty"`
		Height      *int `json:"height,omitempty"`
		RoomCount   *int `json:"roomCount,omitempty"`
		AvgRoomSize *int `json:"avgRoomSize,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.session.Options())
		return
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		opts := s.session.Options()
		if body.Width != nil {
			opts.Width = *body.Width
		}
		if body.Height != nil {
			opts.Height = *body.Height
		}
		if body.RoomCount != nil {
			opts.RoomCount = *body.RoomCount
		}
		if body.AvgRoomSize != nil {
			opts.AvgRoomSize = *body.AvgRoomSize
		}
		if err := s.session.SetOptions(opts); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "options": opts})
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
}

// HandleMetrics 输出会话运行指标
// GET /metrics
func (s *Server) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	players, start, end := s.session.View()
	payload := map[string]any{
		"players":       len(players),
		"startingPoint": start,
		"endingPoint":   end,
		"metrics":       s.session.Metrics().Snapshot(),
	}
	writeJSON(w, http.StatusOK, payload)
}

// HandleCompletions 最近的通关记录
// GET /completions
func (s *Server) HandleCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Completions())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
