package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 1 << 20 // 1MB
)

// Server 把 GameSession 挂到 HTTP 上：WebSocket 接入与管理/监控接口
type Server struct {
	session    *GameSession
	log        *zap.SugaredLogger
	upgrader   websocket.Upgrader
	sendBuffer int
}

func NewServer(session *GameSession, log *zap.SugaredLogger, sendBuffer int) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &Server{
		session:    session,
		log:        log,
		sendBuffer: sendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// 演示环境：允许所有来源（生产环境需严格限制）
				return true
			},
		},
	}
}

// HandleWS WebSocket 接入：连接建立即进入 Connected 状态并收到地牢数据
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("upgrade error: %v", err)
		return
	}

	client := NewClientConn(ws, s.sendBuffer)
	conn := s.session.Connect(client)

	go client.writePump()
	go client.readPump(s.session, conn)
}

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClientConn(ws *websocket.Conn, buffer int) *ClientConn {
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, buffer),
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满或已关闭返回 false）
func (c *ClientConn) Enqueue(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// Close 关闭发送队列，写协程随后关闭底层连接；可重复调用
func (c *ClientConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期发送 ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端消息并分发给会话；退出时断开连接
func (c *ClientConn) readPump(s *GameSession, conn ConnID) {
	defer func() {
		s.Disconnect(conn)
		c.Close()
		_ = c.ws.Close()
	}()
	c.ws.SetReadLimit(maxMessage)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debugf("connection %d read error: %v", conn, err)
			}
			return
		}
		// 客户端有消息即视为存活
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		dispatch(s, conn, payload)
	}
}

// dispatch 解析入站消息；无法解析的消息记录后丢弃
func dispatch(s *GameSession, conn ConnID, payload []byte) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		s.log.Debugf("connection %d sent malformed message: %v", conn, err)
		return
	}
	switch strings.ToLower(env.Type) {
	case MsgIDRequest:
		s.HandleIDRequest(conn)
	case MsgLocationUpdate:
		var upd LocationUpdate
		if err := json.Unmarshal(env.Payload, &upd); err != nil {
			s.log.Debugf("connection %d sent malformed location_update: %v", conn, err)
			return
		}
		s.HandleMove(conn, upd)
	default:
		s.log.Debugf("connection %d sent unknown message type %q", conn, env.Type)
	}
}
