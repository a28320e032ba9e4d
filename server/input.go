package server

import (
	"encoding/json"

	"dungeonrun/dungeon"
)

// 消息类型
const (
	MsgDungeonData    = "dungeon_data"
	MsgIDRequest      = "id_request"
	MsgPlayerID       = "player_id"
	MsgRoster         = "roster"
	MsgLocationUpdate = "location_update"
	MsgTimer          = "timer"
)

// Envelope 所有 WebSocket 文本消息的外层结构
// 示例：{"type":"location_update","payload":{"playerId":"...","direction":"up"}}
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// LocationUpdate 客户端移动意图
type LocationUpdate struct {
	PlayerID  PlayerID `json:"playerId"`
	Direction string   `json:"direction"`
}

// TimerPayload 计时器推送
type TimerPayload struct {
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// encode 生成出站消息
func encode(msgType string, payload any) ([]byte, error) {
	return json.Marshal(struct {
		Type    string `json:"type"`
		Payload any    `json:"payload"`
	}{Type: msgType, Payload: payload})
}

func encodeDungeon(st *dungeon.State) ([]byte, error) {
	return encode(MsgDungeonData, st)
}
